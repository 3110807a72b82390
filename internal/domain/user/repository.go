package user

import "context"

// Repository defines read access to the user roster.
type Repository interface {
	ListByChurch(ctx context.Context, churchID string) ([]*User, error)
}
