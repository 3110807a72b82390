package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// Collection layout under the 'churches' root:
//
//	churches/{churchID}
//	churches/{churchID}/members/{memberID}
//	churches/{churchID}/users/{userID}
//	churches/{churchID}/bacentas/{bacentaID}
//	churches/{churchID}/birthdayLedger/{entryID}
//	churches/{churchID}/notifications/{notificationID}
//
// Keeping every engine collection under its church document is what makes
// cross-tenant leakage structurally impossible.
const (
	churchesCollection      = "churches"
	membersCollection       = "members"
	usersCollection         = "users"
	bacentasCollection      = "bacentas"
	ledgerCollection        = "birthdayLedger"
	notificationsCollection = "notifications"
)

// NewClient creates a Firestore client for the given project. Credentials
// come from the usual application-default chain.
func NewClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore project id is empty")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

func churchDoc(client *firestore.Client, churchID string) *firestore.DocumentRef {
	return client.Collection(churchesCollection).Doc(churchID)
}
