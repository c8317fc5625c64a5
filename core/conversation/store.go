package conversation

import (
	"context"
	"time"

	"github.com/Malowking/parlrag/core/errors"
	"github.com/bytedance/sonic"
	"github.com/gogf/gf/v2/os/gcache"
	"github.com/redis/go-redis/v9"
)

// Store 会话存储
type Store interface {
	// Load 会话不存在时返回空会话
	Load(ctx context.Context, sessionID string) (*Conversation, error)
	Save(ctx context.Context, conv *Conversation) error
}

const keyPrefix = "parlrag:conversation:"

// MemoryStore 进程内存储，条目在 ttl 后过期
type MemoryStore struct {
	cache *gcache.Cache
	ttl   time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: gcache.New(), ttl: ttl}
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*Conversation, error) {
	v, err := s.cache.Get(ctx, keyPrefix+sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConversationStore, "failed to load conversation")
	}
	if v == nil || v.IsNil() {
		return New(sessionID), nil
	}
	conv, ok := v.Val().(*Conversation)
	if !ok {
		return New(sessionID), nil
	}
	return conv.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, conv *Conversation) error {
	if err := s.cache.Set(ctx, keyPrefix+conv.SessionID, conv.Clone(), s.ttl); err != nil {
		return errors.Wrap(err, errors.ErrConversationStore, "failed to save conversation")
	}
	return nil
}

// RedisStore 以 JSON 形式保存在 Redis，每次保存刷新过期时间
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Conversation, error) {
	data, err := s.client.Get(ctx, keyPrefix+sessionID).Result()
	if err == redis.Nil {
		return New(sessionID), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConversationStore, "failed to load conversation from redis")
	}

	var conv Conversation
	if err := sonic.UnmarshalString(data, &conv); err != nil {
		return nil, errors.Wrap(err, errors.ErrConversationStore, "failed to decode conversation")
	}
	if conv.Messages == nil {
		conv.Messages = []*Message{}
	}
	return &conv, nil
}

func (s *RedisStore) Save(ctx context.Context, conv *Conversation) error {
	data, err := sonic.MarshalString(conv)
	if err != nil {
		return errors.Wrap(err, errors.ErrConversationStore, "failed to encode conversation")
	}
	if err := s.client.Set(ctx, keyPrefix+conv.SessionID, data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrConversationStore, "failed to save conversation to redis")
	}
	return nil
}
