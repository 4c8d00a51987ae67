package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/katatrina/xsmb-live/internal/lottery"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is the sliding lifetime of a draw record.
const DefaultTTL = 2 * time.Hour

const (
	fieldsKeyPrefix = "xsmb:live"
	metaKeySuffix   = "meta"
)

// ClientProvider hands out the shared Redis client.
type ClientProvider interface {
	Client(ctx context.Context) (*redis.Client, error)
}

// DrawStore is the durable, time-boxed record of every draw's revealed fields.
type DrawStore struct {
	provider ClientProvider
	ttl      time.Duration
}

func NewDrawStore(provider ClientProvider, ttl time.Duration) *DrawStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DrawStore{
		provider: provider,
		ttl:      ttl,
	}
}

// FieldsKey is the hash holding field -> JSON value for a draw date.
// Ví dụ: xsmb:live:01-01-2025
func FieldsKey(date string) string {
	return fmt.Sprintf("%s:%s", fieldsKeyPrefix, date)
}

// MetadataKey is the sibling key holding the metadata blob.
func MetadataKey(date string) string {
	return fmt.Sprintf("%s:%s:%s", fieldsKeyPrefix, date, metaKeySuffix)
}

// GetFields returns every persisted field of date. Missing records yield an empty map.
func (s *DrawStore) GetFields(ctx context.Context, date string) (map[string]string, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := client.HGetAll(ctx, FieldsKey(date)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read fields of %s: %w", date, err)
	}

	fields := make(map[string]string, len(raw))
	for name, encoded := range raw {
		value, err := decodeValue(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode field %s of %s: %w", name, date, err)
		}
		fields[name] = value
	}
	return fields, nil
}

// GetField returns one stored field. ok is false when it has never been written.
func (s *DrawStore) GetField(ctx context.Context, date, field string) (value string, ok bool, err error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return "", false, err
	}

	encoded, err := client.HGet(ctx, FieldsKey(date), field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read field %s of %s: %w", field, date, err)
	}

	value, err = decodeValue(encoded)
	if err != nil {
		return "", false, fmt.Errorf("failed to decode field %s of %s: %w", field, date, err)
	}
	return value, true, nil
}

// GetMetadata returns nil when no metadata has been stored for date.
func (s *DrawStore) GetMetadata(ctx context.Context, date string) (*lottery.Metadata, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := client.Get(ctx, MetadataKey(date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read metadata of %s: %w", date, err)
	}

	var meta lottery.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata of %s: %w", date, err)
	}
	return &meta, nil
}

// SetField upserts one field and refreshes the record's TTL.
// It does not guard against regressing a revealed field; see SetFieldIfUnrevealed.
func (s *DrawStore) SetField(ctx context.Context, date, field, value string) error {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return err
	}

	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}

	key := FieldsKey(date)
	_, err = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, field, encoded)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write field %s of %s: %w", field, date, err)
	}
	return nil
}

// setUnlessRevealed writes ARGV[2] only if the current value is missing or equals ARGV[3].
var setUnlessRevealed = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], ARGV[1])
if current and current ~= ARGV[3] then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('EXPIRE', KEYS[1], ARGV[4])
return 1
`)

// SetFieldIfUnrevealed atomically writes value unless the field already holds
// a real result. It reports whether the write happened.
func (s *DrawStore) SetFieldIfUnrevealed(ctx context.Context, date, field, value string) (bool, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return false, err
	}

	encoded, err := encodeValue(value)
	if err != nil {
		return false, err
	}
	encodedSentinel, err := encodeValue(lottery.Sentinel)
	if err != nil {
		return false, err
	}

	written, err := setUnlessRevealed.Run(ctx, client,
		[]string{FieldsKey(date)},
		field, encoded, encodedSentinel, int64(s.ttl/time.Second),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to write field %s of %s: %w", field, date, err)
	}
	return written == 1, nil
}

// SetMetadata overwrites the metadata blob and refreshes the TTL of both keys.
func (s *DrawStore) SetMetadata(ctx context.Context, date string, meta lottery.Metadata) error {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, MetadataKey(date), raw, s.ttl)
		pipe.Expire(ctx, FieldsKey(date), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write metadata of %s: %w", date, err)
	}
	return nil
}

// TTL is the lifetime every write refreshes.
func (s *DrawStore) TTL() time.Duration {
	return s.ttl
}

func encodeValue(value string) (string, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return string(b), nil
}

func decodeValue(encoded string) (string, error) {
	var value string
	if err := json.Unmarshal([]byte(encoded), &value); err != nil {
		return "", err
	}
	return value, nil
}
