package service

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teachhub/teachhub-api/pkg/config"
	"github.com/teachhub/teachhub-api/pkg/jobs"
	"github.com/teachhub/teachhub-api/pkg/storage"
)

// fileCleaner removes stored upload files after their owning rows are gone.
// Deletion is best effort: cascades commit first, files follow.
type fileCleaner interface {
	EnqueueKeys(keys []string)
}

// UploadCleaner dispatches file deletions for orphaned upload keys onto a
// background worker queue.
type UploadCleaner struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

func NewUploadCleaner(store *storage.LocalStorage, cfg config.UploadsConfig, logger *zap.Logger) *UploadCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		key, ok := job.Payload.(string)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		if err := store.Delete(key); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("delete upload %s: %w", key, err)
		}
		return nil
	}

	queue := jobs.NewQueue("upload-cleanup", handler, jobs.QueueConfig{
		Workers:    cfg.DeleteWorkers,
		MaxRetries: cfg.DeleteRetries,
		Logger:     logger,
	})
	return &UploadCleaner{queue: queue, logger: logger}
}

// Start launches the cleanup workers.
func (c *UploadCleaner) Start(ctx context.Context) {
	c.queue.Start(ctx)
}

// Stop drains and stops the cleanup workers.
func (c *UploadCleaner) Stop() {
	c.queue.Stop()
}

// EnqueueKeys schedules deletion of each storage key. Empty keys are skipped
// and enqueue failures are logged, never surfaced to the caller.
func (c *UploadCleaner) EnqueueKeys(keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		job := jobs.Job{
			ID:      uuid.NewString(),
			Type:    "delete_upload",
			Payload: key,
		}
		if err := c.queue.Enqueue(job); err != nil {
			c.logger.Warn("enqueue upload cleanup failed", zap.String("key", key), zap.Error(err))
		}
	}
}
