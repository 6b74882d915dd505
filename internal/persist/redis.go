package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyburd/redigo/redis"
)

// RedisConfig describes the connection used by RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps records as Redis string values.
type RedisStore struct {
	pool   *redis.Pool
	prefix string
}

// NewRedisStore constructs a pooled RedisStore. Connections are dialled
// lazily on first use.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "areacloud:"
	}
	pool := &redis.Pool{
		MaxIdle:     8,
		MaxActive:   32,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			c, err := redis.Dial("tcp", addr)
			if err != nil {
				return nil, err
			}
			if cfg.Password != "" {
				if _, err := c.Do("AUTH", cfg.Password); err != nil {
					c.Close()
					return nil, err
				}
			}
			if _, err := c.Do("SELECT", cfg.DB); err != nil {
				c.Close()
				return nil, err
			}
			return c, nil
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return newRedisStoreWithPool(pool, prefix)
}

func newRedisStoreWithPool(pool *redis.Pool, prefix string) *RedisStore {
	return &RedisStore{pool: pool, prefix: prefix}
}

func (s *RedisStore) conn(ctx context.Context) (redis.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn := s.pool.Get()
	if err := conn.Err(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persist: redis connection: %w", err)
	}
	return conn, nil
}

// Save stores the record under the prefixed key.
func (s *RedisStore) Save(ctx context.Context, key string, data []byte) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.Do("SET", s.prefix+key, data); err != nil {
		return fmt.Errorf("persist: redis SET failed: %w", err)
	}
	return nil
}

// Load reads the record stored under the prefixed key.
func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	data, err := redis.Bytes(conn.Do("GET", s.prefix+key))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("persist: redis GET failed: %w", err)
	}
	return data, nil
}

// Close releases pooled connections.
func (s *RedisStore) Close() error {
	return s.pool.Close()
}
