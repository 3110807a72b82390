package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"birthday_reminder_service/internal/domain/inapp"
)

// InAppNotifierFS writes bell notifications as documents under
// churches/{id}/notifications, one per recipient. The admin UI renders
// them; this side only creates.
type InAppNotifierFS struct {
	client *firestore.Client
}

func NewInAppNotifierFS(client *firestore.Client) *InAppNotifierFS {
	return &InAppNotifierFS{client: client}
}

type notificationDoc struct {
	RecipientID string            `firestore:"recipientId"`
	Kind        string            `firestore:"kind"`
	Title       string            `firestore:"title"`
	Description string            `firestore:"description"`
	Payload     map[string]string `firestore:"payload"`
	ActorID     string            `firestore:"actorId"`
	Read        bool              `firestore:"read"`
	CreatedAt   time.Time         `firestore:"createdAt"`
}

func (n *InAppNotifierFS) Create(ctx context.Context, churchID string, notif inapp.Notification) error {
	col := churchDoc(n.client, churchID).Collection(notificationsCollection)
	now := time.Now().UTC()

	batch := n.client.Batch()
	for _, recipientID := range notif.RecipientIDs {
		doc := notificationDoc{
			RecipientID: recipientID,
			Kind:        notif.Kind,
			Title:       notif.Title,
			Description: notif.Description,
			Payload:     notif.Payload,
			ActorID:     notif.ActorID,
			Read:        false,
			CreatedAt:   now,
		}
		batch.Set(col.Doc(uuid.NewString()), doc)
	}
	if len(notif.RecipientIDs) == 0 {
		return nil
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("error creating in-app notifications: %w", err)
	}
	return nil
}
