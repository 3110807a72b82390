package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"birthday_reminder_service/internal/domain/notification"
)

// LedgerRepositoryFS is the Firestore implementation of the notification
// ledger, stored per church under churches/{id}/birthdayLedger.
type LedgerRepositoryFS struct {
	client *firestore.Client
}

func NewLedgerRepositoryFS(client *firestore.Client) *LedgerRepositoryFS {
	return &LedgerRepositoryFS{client: client}
}

type ledgerDoc struct {
	MemberID          string    `firestore:"memberId"`
	NotificationDate  time.Time `firestore:"notificationDate"`
	DaysUntilBirthday int       `firestore:"daysUntilBirthday"`
	RecipientIDs      []string  `firestore:"recipients"`
	Status            string    `firestore:"status"`
	Subject           string    `firestore:"subject,omitempty"`
	SentAt            time.Time `firestore:"sentAt,omitempty"`
	FailureReason     string    `firestore:"failureReason,omitempty"`
	ProviderMessageID string    `firestore:"providerMessageId,omitempty"`
	CreatedAt         time.Time `firestore:"createdAt"`
	UpdatedAt         time.Time `firestore:"updatedAt"`
}

func (r *LedgerRepositoryFS) col(churchID string) *firestore.CollectionRef {
	return churchDoc(r.client, churchID).Collection(ledgerCollection)
}

func (r *LedgerRepositoryFS) Ping(ctx context.Context) error {
	it := r.client.Collection(churchesCollection).Limit(1).Documents(ctx)
	defer it.Stop()
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("firestore ledger unreachable: %w", err)
	}
	return nil
}

func (r *LedgerRepositoryFS) Exists(ctx context.Context, churchID, memberID string, daysUntil int, refDate time.Time) (bool, error) {
	day := notification.DateOnly(refDate)
	it := r.col(churchID).
		Where("memberId", "==", memberID).
		Where("daysUntilBirthday", "==", daysUntil).
		Where("notificationDate", ">=", day.AddDate(0, 0, -1)).
		Where("notificationDate", "<=", day.AddDate(0, 0, 1)).
		Limit(1).
		Documents(ctx)
	defer it.Stop()

	_, err := it.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking ledger entry existence: %w", err)
	}
	return true, nil
}

func (r *LedgerRepositoryFS) Create(ctx context.Context, entry *notification.LedgerEntry) error {
	now := time.Now().UTC()
	doc := ledgerDoc{
		MemberID:          entry.MemberID,
		NotificationDate:  entry.NotificationDate,
		DaysUntilBirthday: entry.DaysUntilBirthday,
		RecipientIDs:      entry.RecipientIDs,
		Status:            string(entry.Status),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// Create (as opposed to Set) fails on an existing document, which is
	// what closes the check-then-create race between concurrent runs
	// sharing the deterministic entry id.
	_, err := r.col(entry.ChurchID).Doc(entry.ID).Create(ctx, doc)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return notification.ErrDuplicateEntry
		}
		return fmt.Errorf("error creating ledger entry: %w", err)
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	return nil
}

func (r *LedgerRepositoryFS) MarkTerminal(ctx context.Context, churchID, id string, st notification.Status, details *notification.ChannelDetails) error {
	ref := r.col(churchID).Doc(id)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return notification.ErrEntryNotFound
			}
			return fmt.Errorf("error reading ledger entry %s: %w", id, err)
		}

		var doc ledgerDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("error decoding ledger entry %s: %w", id, err)
		}
		if doc.Status != string(notification.StatusPending) {
			// Terminal transitions are one-shot; entries are never reopened.
			return notification.ErrEntryNotFound
		}

		updates := []firestore.Update{
			{Path: "status", Value: string(st)},
			{Path: "updatedAt", Value: time.Now().UTC()},
		}
		if details != nil {
			if details.Subject != "" {
				updates = append(updates, firestore.Update{Path: "subject", Value: details.Subject})
			}
			if !details.SentAt.IsZero() {
				updates = append(updates, firestore.Update{Path: "sentAt", Value: details.SentAt})
			}
			if details.FailureReason != "" {
				updates = append(updates, firestore.Update{Path: "failureReason", Value: details.FailureReason})
			}
			if details.ProviderMessageID != "" {
				updates = append(updates, firestore.Update{Path: "providerMessageId", Value: details.ProviderMessageID})
			}
		}
		return tx.Update(ref, updates)
	})
}

func (r *LedgerRepositoryFS) Stats(ctx context.Context, churchID string, from, to time.Time) (*notification.Stats, error) {
	it := r.col(churchID).
		Where("notificationDate", ">=", from).
		Where("notificationDate", "<=", to).
		Documents(ctx)
	defer it.Stop()

	stats := &notification.Stats{}
	members := make(map[string]struct{})
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating ledger entries for stats: %w", err)
		}
		var doc ledgerDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("error decoding ledger entry %s: %w", snap.Ref.ID, err)
		}
		stats.Total++
		switch notification.Status(doc.Status) {
		case notification.StatusSent:
			stats.Sent++
		case notification.StatusFailed:
			stats.Failed++
		case notification.StatusPending:
			stats.Pending++
		}
		members[doc.MemberID] = struct{}{}
	}
	stats.UniqueMembers = len(members)
	return stats, nil
}

func (r *LedgerRepositoryFS) DeleteOlderThan(ctx context.Context, churchID string, cutoff time.Time, batchSize int) (int, error) {
	it := r.col(churchID).
		Where("notificationDate", "<", cutoff).
		Limit(batchSize).
		Documents(ctx)
	defer it.Stop()

	batch := r.client.Batch()
	deleted := 0
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("error iterating stale ledger entries: %w", err)
		}
		batch.Delete(snap.Ref)
		deleted++
	}
	if deleted == 0 {
		return 0, nil
	}
	if _, err := batch.Commit(ctx); err != nil {
		return 0, fmt.Errorf("error deleting stale ledger entries: %w", err)
	}
	return deleted, nil
}
