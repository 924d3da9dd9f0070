// internal/adapters/redis_adapter/preferences.go
package redis_a

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/finops-console/internal/core/ports"
)

// PreferenceStore keeps UI preferences as plain Redis strings without expiry
type PreferenceStore struct {
	client    redis.UniversalClient
	namespace string
}

var _ ports.PreferenceStore = (*PreferenceStore)(nil)

// NewPreferenceStore creates a preference store. namespace separates users or
// consoles sharing one Redis.
func NewPreferenceStore(client redis.UniversalClient, namespace string) *PreferenceStore {
	if namespace == "" {
		namespace = "default"
	}
	return &PreferenceStore{client: client, namespace: namespace}
}

// Get returns the stored value or ports.ErrPreferenceNotSet
func (s *PreferenceStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ports.ErrPreferenceNotSet
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return v, nil
}

// Set stores a value
func (s *PreferenceStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

func (s *PreferenceStore) key(k string) string {
	return BuildKey(PrefixPrefs, s.namespace, k)
}
