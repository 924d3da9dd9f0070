// internal/adapters/redis_adapter/jobs.go
package redis_a

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
)

// DefaultJobTTL is how long export job state is kept
const DefaultJobTTL = 24 * time.Hour

// JobStore keeps export job state in the cache
type JobStore struct {
	cache ports.CacheRepository
	ttl   time.Duration
}

var _ ports.ExportJobStore = (*JobStore)(nil)

// NewJobStore creates a job store on top of a cache
func NewJobStore(cache ports.CacheRepository, ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &JobStore{cache: cache, ttl: ttl}
}

// SaveJob writes the job state, replacing any previous state
func (s *JobStore) SaveJob(ctx context.Context, job *ports.ExportJob) error {
	if err := s.cache.SetWithTTL(ctx, BuildKey(PrefixJob, job.ID.String()), job, s.ttl); err != nil {
		return fmt.Errorf("failed to save export job: %w", err)
	}
	return nil
}

// GetJob reads a job, returning domain.ErrNotFound for unknown or expired ids
func (s *JobStore) GetJob(ctx context.Context, id uuid.UUID) (*ports.ExportJob, error) {
	var job ports.ExportJob
	if err := s.cache.Get(ctx, BuildKey(PrefixJob, id.String()), &job); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, fmt.Errorf("export job %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load export job: %w", err)
	}
	return &job, nil
}
