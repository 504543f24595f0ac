package coloring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusKeyFormat is the Redis key of a page's processing status.
const StatusKeyFormat = "coloring:status:%s"

const statusTTL = 24 * time.Hour

// ErrStatusUnknown is returned when no status is cached for a page.
var ErrStatusUnknown = errors.New("status not cached")

// StatusStore caches processing states so the result page can poll cheaply.
type StatusStore struct {
	client *redis.Client
}

func NewStatusStore(client *redis.Client) *StatusStore {
	return &StatusStore{client: client}
}

func (s *StatusStore) Set(ctx context.Context, pageUUID, status string) error {
	return s.client.Set(ctx, fmt.Sprintf(StatusKeyFormat, pageUUID), status, statusTTL).Err()
}

func (s *StatusStore) Get(ctx context.Context, pageUUID string) (string, error) {
	status, err := s.client.Get(ctx, fmt.Sprintf(StatusKeyFormat, pageUUID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrStatusUnknown
	}
	return status, err
}
