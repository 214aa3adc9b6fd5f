package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/pkg/logger"
)

func TestDLQRetentionJobUsesConfiguredCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeDLQRetentionRepo{}
	jobIface, err := NewDLQRetentionJob(DLQRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         outboxRetentionTxRunner{},
		Repository: repo,
		Retention:  30,
	})
	if err != nil {
		t.Fatalf("NewDLQRetentionJob: %v", err)
	}
	job := jobIface.(*dlqRetentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.Add(-30 * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
}

func TestDLQRetentionJobPropagatesError(t *testing.T) {
	repo := &fakeDLQRetentionRepo{err: errors.New("boom")}
	jobIface, err := NewDLQRetentionJob(DLQRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         outboxRetentionTxRunner{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewDLQRetentionJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeDLQRetentionRepo struct {
	lastCutoff time.Time
	err        error
}

func (f *fakeDLQRetentionRepo) DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}
