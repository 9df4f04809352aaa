package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ramadhanas/kaskelas/internal/domain"
)

const keyPrefix = "kaskelas:broadcast:"

// BroadcastStore keeps completed broadcast records in Redis so the retry,
// export and status endpoints can find them. Records expire after the
// configured TTL; the durable audit trail lives in Postgres.
type BroadcastStore struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *BroadcastStore {
	return &BroadcastStore{client: client, ttl: ttl}
}

func (s *BroadcastStore) Save(ctx context.Context, record *domain.BroadcastRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal broadcast record: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+record.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store broadcast record %s: %w", record.ID, err)
	}
	return nil
}

func (s *BroadcastStore) Get(ctx context.Context, id string) (*domain.BroadcastRecord, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrBroadcastNotFound
		}
		return nil, fmt.Errorf("load broadcast record %s: %w", id, err)
	}

	var record domain.BroadcastRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal broadcast record %s: %w", id, err)
	}
	return &record, nil
}
