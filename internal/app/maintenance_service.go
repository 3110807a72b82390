package app

import (
	"context"
	"fmt"
	"time"

	"birthday_reminder_service/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

const cleanupBatchSize = 200

// MaintenanceService exposes the operator-facing ledger operations:
// aggregate statistics and retention cleanup.
type MaintenanceService struct {
	ledger notification.Repository
	log    logrus.FieldLogger
}

func NewMaintenanceService(ledger notification.Repository, log logrus.FieldLogger) *MaintenanceService {
	return &MaintenanceService{ledger: ledger, log: log}
}

// Stats aggregates ledger entries for a church over [from, to].
func (s *MaintenanceService) Stats(ctx context.Context, churchID string, from, to time.Time) (*notification.Stats, error) {
	stats, err := s.ledger.Stats(ctx, churchID, notification.DateOnly(from), notification.DateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	return stats, nil
}

// Cleanup deletes ledger entries older than the retention window,
// batch by batch so a large backlog never turns into one huge delete.
func (s *MaintenanceService) Cleanup(ctx context.Context, churchID string, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retentionDays must be positive, got %d", retentionDays)
	}
	cutoff := notification.DateOnly(time.Now().UTC().AddDate(0, 0, -retentionDays))

	total := 0
	for {
		deleted, err := s.ledger.DeleteOlderThan(ctx, churchID, cutoff, cleanupBatchSize)
		if err != nil {
			return total, fmt.Errorf("ledger cleanup: %w", err)
		}
		total += deleted
		if deleted < cleanupBatchSize {
			break
		}
	}

	s.log.WithFields(logrus.Fields{
		"church_id": churchID,
		"cutoff":    cutoff.Format("2006-01-02"),
		"deleted":   total,
	}).Info("Ledger cleanup complete.")
	return total, nil
}
