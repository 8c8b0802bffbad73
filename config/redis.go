package config

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func redisOptions(cfg *Config) *redis.Options {
	return &redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     20,
		MinIdleConns: 2,
		MaxRetries:   2,
	}
}

// ConnectRedis returns a live Redis client, or nil when Redis is unreachable.
// Nonces then live in process memory and settings are read uncached.
func ConnectRedis(cfg *Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("Redis disabled")
		return nil
	}
	client := redis.NewClient(redisOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable; using in-process nonce store", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return nil
	}

	log.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
	return client
}
