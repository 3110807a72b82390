package notification

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by all ledger store implementations.
var (
	ErrEntryNotFound  = errors.New("ledger entry not found")
	ErrDuplicateEntry = errors.New("ledger entry already exists for this member/offset/day")
)

// Repository defines operations on the notification ledger. All methods
// are scoped to one church; cross-tenant reads or writes are a
// correctness bug.
type Repository interface {
	// Ping verifies the store is reachable. The engine calls it before
	// iterating so an unreachable store fails the run up front instead of
	// once per member.
	Ping(ctx context.Context) error

	// Exists reports whether an entry for this member/offset lies within
	// a one-day window either side of refDate.
	Exists(ctx context.Context, churchID, memberID string, daysUntil int, refDate time.Time) (bool, error)

	// Create inserts a new pending entry. Returns ErrDuplicateEntry when
	// an entry with the same id already exists (a concurrent run won the
	// race for this member/offset/day).
	Create(ctx context.Context, entry *LedgerEntry) error

	// MarkTerminal transitions an entry from pending to sent or failed.
	// Entries are never reopened; forced re-runs create new entries.
	MarkTerminal(ctx context.Context, churchID, id string, status Status, details *ChannelDetails) error

	// Stats aggregates entries whose notification date falls in [from, to].
	Stats(ctx context.Context, churchID string, from, to time.Time) (*Stats, error)

	// DeleteOlderThan removes entries dated before cutoff, at most
	// batchSize per round trip, and returns the number deleted.
	DeleteOlderThan(ctx context.Context, churchID string, cutoff time.Time, batchSize int) (int, error)
}
