package inapp

import "context"

// Notification is one in-app bell notification fanned out to a set of
// recipients.
type Notification struct {
	RecipientIDs []string
	Kind         string
	Title        string
	Description  string
	Payload      map[string]string
	ActorID      string // acting identity for attribution, not business outcome
}

// Notifier creates in-app notifications. Delivery is best-effort:
// callers log failures and carry on.
type Notifier interface {
	Create(ctx context.Context, churchID string, n Notification) error
}
