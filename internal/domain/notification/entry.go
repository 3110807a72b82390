package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the delivery state of a ledger entry. Entries are created as
// StatusPending and transition exactly once to StatusSent or StatusFailed.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// ChannelDetails carries audit information about the delivery attempt.
type ChannelDetails struct {
	Subject           string
	SentAt            time.Time
	FailureReason     string
	ProviderMessageID string
}

// LedgerEntry is one recorded notification attempt for a (member, offset,
// day) combination. It is the unit of the at-most-once guarantee.
type LedgerEntry struct {
	ID                string
	ChurchID          string
	MemberID          string
	NotificationDate  time.Time // calendar day, midnight UTC
	DaysUntilBirthday int
	RecipientIDs      []string
	Status            Status
	Details           *ChannelDetails
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EntryID derives the deterministic ledger key for a member/offset/day
// combination. Two runs racing the same combination produce the same id,
// so the second create fails instead of double-sending.
func EntryID(memberID string, daysUntil int, date time.Time) string {
	return fmt.Sprintf("bday_%s_%d_%s", memberID, daysUntil, date.Format("2006-01-02"))
}

// ForcedEntryID derives a unique ledger key for a forced re-run. Forced
// entries never collide with the deterministic key, so re-delivery always
// creates a new entry rather than reopening an old one.
func ForcedEntryID(memberID string, daysUntil int, date time.Time) string {
	return EntryID(memberID, daysUntil, date) + "_" + uuid.NewString()[:8]
}

// DateOnly truncates t to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
