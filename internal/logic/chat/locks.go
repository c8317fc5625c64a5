package chat

import (
	"github.com/gogf/gf/v2/container/gmap"
	"github.com/gogf/gf/v2/os/gmlock"
)

// sessionLocks 按会话串行化请求。持有者和等待者计数归零时删除该会话的锁，
// 避免长期运行时每个会话各留下一把锁。
type sessionLocks struct {
	locker  *gmlock.Locker
	holders *gmap.StrIntMap
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{
		locker:  gmlock.New(),
		holders: gmap.NewStrIntMap(true),
	}
}

func (l *sessionLocks) Lock(sessionID string) {
	l.holders.LockFunc(func(m map[string]int) {
		m[sessionID]++
	})
	l.locker.Lock(sessionID)
}

func (l *sessionLocks) Unlock(sessionID string) {
	l.locker.Unlock(sessionID)
	l.holders.LockFunc(func(m map[string]int) {
		if m[sessionID]--; m[sessionID] <= 0 {
			delete(m, sessionID)
			// 计数为 0 说明没有人在等这把锁，删除后下一次 Lock 会新建
			l.locker.Remove(sessionID)
		}
	})
}

// Len 当前仍持有锁记录的会话数
func (l *sessionLocks) Len() int {
	return l.holders.Size()
}
