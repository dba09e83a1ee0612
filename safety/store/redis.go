package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweetpotato0/scholarly/safety"
)

// RedisSink appends audit records to a Redis stream so several instances can
// share one audit trail. Each record becomes one XADD entry.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// RedisConfig holds Redis connection settings for the audit stream.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64
}

// NewRedisSink creates a stream-backed sink.
func NewRedisSink(config *RedisConfig) *RedisSink {
	if config == nil {
		config = &RedisConfig{}
	}
	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}
	if config.Stream == "" {
		config.Stream = "scholarly:audit"
	}
	if config.MaxLen == 0 {
		config.MaxLen = 10000
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisSink{
		client: client,
		stream: config.Stream,
		maxLen: config.MaxLen,
	}
}

// Append adds one record to the stream. The verdict list is flattened to its
// categories; the full record travels as JSON in the record field.
func (s *RedisSink) Append(ctx context.Context, rec safety.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	categories := make([]string, 0, len(rec.Categories))
	for _, c := range rec.Categories {
		categories = append(categories, string(c))
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"timestamp":  rec.Timestamp.Format(time.RFC3339Nano),
			"query_id":   rec.QueryID,
			"direction":  string(rec.Direction),
			"action":     string(rec.Action),
			"categories": strings.Join(categories, ","),
			"record":     raw,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
