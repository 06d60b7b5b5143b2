// Package myredis carries the node bus over redis PUBLISH/SUBSCRIBE.
package myredis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisConfig is the connection part of a bus configuration.
type RedisConfig struct {
	Addr string
}

// NewRedisUniversalClient parses a redis:// URL and builds a universal client from it.
func NewRedisUniversalClient(redisAddr string, options ...ConfigOption) (redis.UniversalClient, error) {
	redisOptions, err := redis.ParseURL(redisAddr)
	if err != nil {
		return nil, fmt.Errorf("cant parse redis url: %w", err)
	}
	for _, opt := range options {
		opt(redisOptions)
	}
	return redis.NewUniversalClient(universalOptions(redisOptions)), nil
}

// ConfigOption tweaks the parsed options before the client is built.
type ConfigOption func(*redis.Options)

// WithClientName tags connections so nodes and controllers are told apart in CLIENT LIST.
func WithClientName(name string) ConfigOption {
	return func(o *redis.Options) {
		o.OnConnect = func(ctx context.Context, cn *redis.Conn) error {
			return cn.ClientSetName(ctx, name).Err()
		}
	}
}

func universalOptions(options *redis.Options) *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:        []string{options.Addr},
		DB:           options.DB,
		Username:     options.Username,
		Password:     options.Password,
		OnConnect:    options.OnConnect,
		DialTimeout:  options.DialTimeout,
		ReadTimeout:  options.ReadTimeout,
		WriteTimeout: options.WriteTimeout,
		MaxRetries:   options.MaxRetries,
		PoolSize:     options.PoolSize,
		MinIdleConns: options.MinIdleConns,
		IdleTimeout:  options.IdleTimeout,
	}
}
