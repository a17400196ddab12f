package store

import (
	"context"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "dev:"

type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisSink guarda la última lectura en un hash por dispositivo.
// HSET mezcla campos, así que el resto del hash queda intacto.
type RedisSink struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisSink conecta y hace PING antes de devolver.
func NewRedisSink(ctx context.Context, opts RedisOptions) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Annotatef(err, "redis ping %s", opts.Addr)
	}
	return NewRedisSinkFromClient(rdb, opts.KeyPrefix), nil
}

func NewRedisSinkFromClient(rdb *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisSink{rdb: rdb, prefix: prefix}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Key(deviceID string) string { return s.prefix + deviceID }

func (s *RedisSink) Upsert(ctx context.Context, deviceID string, f Fields, at time.Time) error {
	err := s.rdb.HSet(ctx, s.Key(deviceID),
		FieldLatitude, formatFloat(f.Latitude),
		FieldLongitude, formatFloat(f.Longitude),
		FieldTemperature, formatFloat(f.Temperature),
		FieldLastUpdate, at.UTC().Format(time.RFC3339Nano),
	).Err()
	return errors.Annotatef(err, "redis HSET %s", s.Key(deviceID))
}

// Get lee el hash completo del dispositivo.
func (s *RedisSink) Get(ctx context.Context, deviceID string) (map[string]string, error) {
	m, err := s.rdb.HGetAll(ctx, s.Key(deviceID)).Result()
	if err != nil {
		return nil, errors.Annotatef(err, "redis HGETALL %s", s.Key(deviceID))
	}
	return m, nil
}

func (s *RedisSink) Close() error { return s.rdb.Close() }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
