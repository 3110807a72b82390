package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"birthday_reminder_service/internal/domain/user"
)

// UserRepositoryFS reads the user roster from Firestore.
type UserRepositoryFS struct {
	client *firestore.Client
}

func NewUserRepositoryFS(client *firestore.Client) *UserRepositoryFS {
	return &UserRepositoryFS{client: client}
}

type userDoc struct {
	Email           string    `firestore:"email"`
	FirstName       string    `firestore:"firstName"`
	LastName        string    `firestore:"lastName"`
	Role            string    `firestore:"role"`
	LeadsBacentaIDs []string  `firestore:"leadsBacentaIds"`
	SupervisorID    string    `firestore:"supervisorId"`
	InvitedByID     string    `firestore:"invitedById"`
	InviteAccepted  bool      `firestore:"inviteAccepted"`
	IsActive        bool      `firestore:"isActive"`
	CreatedAt       time.Time `firestore:"createdAt"`
	UpdatedAt       time.Time `firestore:"updatedAt"`
}

func (r *UserRepositoryFS) ListByChurch(ctx context.Context, churchID string) ([]*user.User, error) {
	it := churchDoc(r.client, churchID).Collection(usersCollection).Documents(ctx)
	defer it.Stop()

	users := make([]*user.User, 0)
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing users for church %s: %w", churchID, err)
		}
		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("error decoding user %s: %w", snap.Ref.ID, err)
		}
		users = append(users, &user.User{
			ID:              snap.Ref.ID,
			ChurchID:        churchID,
			Email:           doc.Email,
			FirstName:       doc.FirstName,
			LastName:        doc.LastName,
			Role:            user.Role(doc.Role),
			LeadsBacentaIDs: doc.LeadsBacentaIDs,
			SupervisorID:    doc.SupervisorID,
			InvitedByID:     doc.InvitedByID,
			InviteAccepted:  doc.InviteAccepted,
			IsActive:        doc.IsActive,
			CreatedAt:       doc.CreatedAt,
			UpdatedAt:       doc.UpdatedAt,
		})
	}
	return users, nil
}
