package cache

import (
	"context"

	"github.com/Malowking/parlrag/core/config"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/redis/go-redis/v9"
)

var (
	rdb *redis.Client
)

// InitRedis 初始化Redis客户端
func InitRedis(ctx context.Context, conf config.RedisConfig) error {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Address,
		Password:     conf.Password,
		DB:           conf.DB,
		MaxRetries:   3,
		PoolSize:     conf.PoolSize,
		MinIdleConns: 2,
	})

	// 测试连接
	if err := client.Ping(ctx).Err(); err != nil {
		g.Log().Errorf(ctx, "Redis connection failed: %v", err)
		_ = client.Close()
		return err
	}

	rdb = client
	g.Log().Infof(ctx, "Redis initialized successfully: %s, DB: %d", conf.Address, conf.DB)
	return nil
}

// GetRedisClient 获取Redis客户端，未初始化时返回 nil
func GetRedisClient() *redis.Client {
	return rdb
}

// CloseRedis 关闭Redis连接
func CloseRedis(ctx context.Context) error {
	if rdb != nil {
		g.Log().Info(ctx, "Closing Redis connection")
		err := rdb.Close()
		rdb = nil
		return err
	}
	return nil
}
