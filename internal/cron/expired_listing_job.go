package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/coolmotors/coolmotors-backend/pkg/logger"
)

const defaultExpiredBatchSize = 200

// expiredListingRemover is the slice of the listings service the sweeper needs.
type expiredListingRemover interface {
	DeleteExpired(ctx context.Context, now time.Time, limit int64) (int, error)
}

// ExpiredListingJobParams configure the expired listing sweeper.
type ExpiredListingJobParams struct {
	Logger    *logger.Logger
	Listings  expiredListingRemover
	BatchSize int64
}

// NewExpiredListingJob builds the job that removes published listings whose
// expiry has passed, images and owner bookkeeping included.
func NewExpiredListingJob(params ExpiredListingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listings service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiredBatchSize
	}
	return &expiredListingJob{
		logg:      params.Logger,
		listings:  params.Listings,
		batchSize: batch,
		now:       time.Now,
	}, nil
}

type expiredListingJob struct {
	logg      *logger.Logger
	listings  expiredListingRemover
	batchSize int64
	now       func() time.Time
}

func (j *expiredListingJob) Name() string { return "expired-listing-cleanup" }

func (j *expiredListingJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	total := 0
	for {
		removed, err := j.listings.DeleteExpired(ctx, cutoff, j.batchSize)
		if err != nil {
			return fmt.Errorf("expired listing cleanup: %w", err)
		}
		total += removed
		if int64(removed) < j.batchSize {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":           cutoff,
		"listings_removed": total,
	})
	j.logg.Info(logCtx, "expired listing cleanup complete")
	return nil
}
