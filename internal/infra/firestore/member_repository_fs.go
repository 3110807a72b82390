package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"birthday_reminder_service/internal/domain/member"
)

// MemberRepositoryFS reads the member roster from Firestore (read-only;
// the engine never mutates members).
type MemberRepositoryFS struct {
	client *firestore.Client
}

func NewMemberRepositoryFS(client *firestore.Client) *MemberRepositoryFS {
	return &MemberRepositoryFS{client: client}
}

type memberDoc struct {
	FirstName   string     `firestore:"firstName"`
	LastName    string     `firestore:"lastName"`
	DateOfBirth *time.Time `firestore:"dateOfBirth"`
	BacentaID   string     `firestore:"bacentaId"`
	Role        string     `firestore:"role"`
	CreatedAt   time.Time  `firestore:"createdAt"`
	UpdatedAt   time.Time  `firestore:"updatedAt"`
}

func (r *MemberRepositoryFS) ListByChurch(ctx context.Context, churchID string) ([]*member.Member, error) {
	it := churchDoc(r.client, churchID).Collection(membersCollection).Documents(ctx)
	defer it.Stop()

	members := make([]*member.Member, 0)
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing members for church %s: %w", churchID, err)
		}
		var doc memberDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("error decoding member %s: %w", snap.Ref.ID, err)
		}
		members = append(members, &member.Member{
			ID:          snap.Ref.ID,
			ChurchID:    churchID,
			FirstName:   doc.FirstName,
			LastName:    doc.LastName,
			DateOfBirth: doc.DateOfBirth,
			BacentaID:   doc.BacentaID,
			Role:        doc.Role,
			CreatedAt:   doc.CreatedAt,
			UpdatedAt:   doc.UpdatedAt,
		})
	}
	return members, nil
}
