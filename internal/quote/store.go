package quote

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQuoteNotFound is returned when a quote does not exist or has expired.
var ErrQuoteNotFound = errors.New("quote not found")

const quoteKeyPrefix = "lms:quote:"

// Store persists issued quotes in Redis so checkout can re-read the exact preview.
type Store struct {
	client *redis.Client
}

// NewStore constructs a quote store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Key returns the Redis key of a quote.
func Key(id string) string {
	return quoteKeyPrefix + id
}

// Save writes the quote with the given ttl.
func (s *Store) Save(ctx context.Context, q Quote, ttl time.Duration) error {
	if s == nil || s.client == nil {
		return errors.New("quote store not configured")
	}
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, Key(q.ID), data, ttl).Err()
}

// Load reads a quote by id.
func (s *Store) Load(ctx context.Context, id string) (Quote, error) {
	if s == nil || s.client == nil {
		return Quote{}, errors.New("quote store not configured")
	}
	data, err := s.client.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Quote{}, ErrQuoteNotFound
		}
		return Quote{}, err
	}
	var q Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return Quote{}, err
	}
	return q, nil
}
