package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"birthday_reminder_service/internal/domain/group"
)

// GroupRepositoryFS reads the bacenta roster from Firestore.
type GroupRepositoryFS struct {
	client *firestore.Client
}

func NewGroupRepositoryFS(client *firestore.Client) *GroupRepositoryFS {
	return &GroupRepositoryFS{client: client}
}

type groupDoc struct {
	Name      string    `firestore:"name"`
	LeaderID  string    `firestore:"leaderId"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (r *GroupRepositoryFS) ListByChurch(ctx context.Context, churchID string) ([]*group.Group, error) {
	it := churchDoc(r.client, churchID).Collection(bacentasCollection).Documents(ctx)
	defer it.Stop()

	groups := make([]*group.Group, 0)
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing bacentas for church %s: %w", churchID, err)
		}
		var doc groupDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("error decoding bacenta %s: %w", snap.Ref.ID, err)
		}
		groups = append(groups, &group.Group{
			ID:        snap.Ref.ID,
			ChurchID:  churchID,
			Name:      doc.Name,
			LeaderID:  doc.LeaderID,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return groups, nil
}
