package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StoreSyncJobName is the name of the store reload job
const StoreSyncJobName = "store_sync"

// DefaultStoreSyncTimeout bounds a single reload
const DefaultStoreSyncTimeout = 2 * time.Minute

// Loader repopulates an in-memory store from the data store
type Loader interface {
	Load(ctx context.Context) error
}

// NamedLoader labels a Loader for logging
type NamedLoader struct {
	Name   string
	Loader Loader
}

// StoreSyncJob reloads the in-memory stores so changes made directly in the
// data store become visible. Loaders run in order and stop at the first failure,
// leaving that store and the ones after it with their previous contents.
type StoreSyncJob struct {
	loaders []NamedLoader
	logger  *zap.Logger
}

func NewStoreSyncJob(logger *zap.Logger, loaders ...NamedLoader) *StoreSyncJob {
	return &StoreSyncJob{
		loaders: loaders,
		logger:  logger,
	}
}

// Run reloads every store
func (j *StoreSyncJob) Run(ctx context.Context) error {
	for _, l := range j.loaders {
		start := time.Now()
		if err := l.Loader.Load(ctx); err != nil {
			return fmt.Errorf("reload %s: %w", l.Name, err)
		}
		j.logger.Debug("store reloaded",
			zap.String("store", l.Name),
			zap.Duration("duration", time.Since(start)))
	}
	return nil
}

// RegisterStoreSyncJob schedules job on s
func RegisterStoreSyncJob(s *Scheduler, job *StoreSyncJob, cronExpr string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultStoreSyncTimeout
	}
	return s.AddJob(StoreSyncJobName, cronExpr, timeout, job.Run)
}
