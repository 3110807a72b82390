package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"birthday_reminder_service/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEntry(ledger *fakeLedger, id, churchID string, day time.Time, status notification.Status) {
	ledger.entries[id] = &notification.LedgerEntry{
		ID:               id,
		ChurchID:         churchID,
		MemberID:         "m-" + id,
		NotificationDate: day,
		Status:           status,
	}
}

func TestCleanupRejectsNonPositiveRetention(t *testing.T) {
	svc := NewMaintenanceService(newFakeLedger(), testLogger())

	for _, days := range []int{0, -7} {
		_, err := svc.Cleanup(context.Background(), "c1", days)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
	}
}

func TestCleanupDeletesInBatchesUntilDrained(t *testing.T) {
	ledger := newFakeLedger()
	old := date(2020, time.March, 1)
	for i := 0; i < 450; i++ {
		seedEntry(ledger, fmt.Sprintf("old-%d", i), "c1", old, notification.StatusSent)
	}
	seedEntry(ledger, "fresh", "c1", notification.DateOnly(time.Now().UTC()), notification.StatusSent)
	seedEntry(ledger, "other-tenant", "c2", old, notification.StatusSent)

	svc := NewMaintenanceService(ledger, testLogger())
	deleted, err := svc.Cleanup(context.Background(), "c1", 90)

	require.NoError(t, err)
	assert.Equal(t, 450, deleted)
	assert.Contains(t, ledger.entries, "fresh")
	assert.Contains(t, ledger.entries, "other-tenant")
	assert.Len(t, ledger.entries, 2)
}

func TestStatsAggregatesWindow(t *testing.T) {
	ledger := newFakeLedger()
	seedEntry(ledger, "a", "c1", date(2025, time.July, 1), notification.StatusSent)
	seedEntry(ledger, "b", "c1", date(2025, time.July, 2), notification.StatusFailed)
	seedEntry(ledger, "c", "c1", date(2025, time.July, 3), notification.StatusPending)
	seedEntry(ledger, "outside", "c1", date(2025, time.June, 1), notification.StatusSent)
	seedEntry(ledger, "other-tenant", "c2", date(2025, time.July, 2), notification.StatusSent)

	svc := NewMaintenanceService(ledger, testLogger())
	stats, err := svc.Stats(context.Background(), "c1", date(2025, time.July, 1), date(2025, time.July, 31))

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 3, stats.UniqueMembers)
}
