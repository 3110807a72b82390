package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"birthday_reminder_service/internal/domain/notification"

	"github.com/lib/pq" // For pq.Array and driver registration
)

// PostgresLedgerRepository persists the notification ledger in the
// 'birthday_ledger' table for self-hosted deployments.
type PostgresLedgerRepository struct {
	db *sql.DB
}

func NewPostgresLedgerRepository(db *sql.DB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

func (r *PostgresLedgerRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("error pinging ledger database: %w", err)
	}
	return nil
}

func (r *PostgresLedgerRepository) Exists(ctx context.Context, churchID, memberID string, daysUntil int, refDate time.Time) (bool, error) {
	query := `SELECT COUNT(*)
               FROM birthday_ledger
               WHERE church_id = $1
                 AND member_id = $2
                 AND days_until_birthday = $3
                 AND notification_date BETWEEN $4 AND $5`

	day := notification.DateOnly(refDate)
	var count int
	err := r.db.QueryRowContext(ctx, query, churchID, memberID, daysUntil,
		day.AddDate(0, 0, -1), day.AddDate(0, 0, 1)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error checking ledger entry existence: %w", err)
	}
	return count > 0, nil
}

func (r *PostgresLedgerRepository) Create(ctx context.Context, entry *notification.LedgerEntry) error {
	query := `INSERT INTO birthday_ledger
               (id, church_id, member_id, notification_date, days_until_birthday, recipient_ids, status)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		entry.ID, entry.ChurchID, entry.MemberID, entry.NotificationDate,
		entry.DaysUntilBirthday, pq.Array(entry.RecipientIDs), entry.Status,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "birthday_ledger_pkey") {
			return notification.ErrDuplicateEntry
		}
		return fmt.Errorf("error creating ledger entry: %w", err)
	}
	return nil
}

func (r *PostgresLedgerRepository) MarkTerminal(ctx context.Context, churchID, id string, status notification.Status, details *notification.ChannelDetails) error {
	query := `UPDATE birthday_ledger
               SET status = $1, subject = $2, sent_at = $3, failure_reason = $4,
                   provider_message_id = $5, updated_at = NOW()
               WHERE id = $6 AND church_id = $7 AND status = $8
               RETURNING updated_at`

	var subject, failureReason, providerMessageID sql.NullString
	var sentAt sql.NullTime
	if details != nil {
		subject = nullString(details.Subject)
		failureReason = nullString(details.FailureReason)
		providerMessageID = nullString(details.ProviderMessageID)
		if !details.SentAt.IsZero() {
			sentAt = sql.NullTime{Time: details.SentAt, Valid: true}
		}
	}

	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, query, status, subject, sentAt, failureReason,
		providerMessageID, id, churchID, notification.StatusPending).Scan(&updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			// Either the entry is missing or it already left pending.
			return notification.ErrEntryNotFound
		}
		return fmt.Errorf("error marking ledger entry terminal: %w", err)
	}
	return nil
}

func (r *PostgresLedgerRepository) Stats(ctx context.Context, churchID string, from, to time.Time) (*notification.Stats, error) {
	query := `SELECT COUNT(*),
                      COUNT(*) FILTER (WHERE status = $1),
                      COUNT(*) FILTER (WHERE status = $2),
                      COUNT(*) FILTER (WHERE status = $3),
                      COUNT(DISTINCT member_id)
               FROM birthday_ledger
               WHERE church_id = $4 AND notification_date BETWEEN $5 AND $6`

	stats := &notification.Stats{}
	err := r.db.QueryRowContext(ctx, query,
		notification.StatusSent, notification.StatusFailed, notification.StatusPending,
		churchID, from, to,
	).Scan(&stats.Total, &stats.Sent, &stats.Failed, &stats.Pending, &stats.UniqueMembers)
	if err != nil {
		return nil, fmt.Errorf("error aggregating ledger stats: %w", err)
	}
	return stats, nil
}

func (r *PostgresLedgerRepository) DeleteOlderThan(ctx context.Context, churchID string, cutoff time.Time, batchSize int) (int, error) {
	query := `DELETE FROM birthday_ledger
               WHERE id IN (
                   SELECT id FROM birthday_ledger
                   WHERE church_id = $1 AND notification_date < $2
                   LIMIT $3
               )`

	res, err := r.db.ExecContext(ctx, query, churchID, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("error deleting stale ledger entries: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading rows affected for ledger cleanup: %w", err)
	}
	return int(deleted), nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
