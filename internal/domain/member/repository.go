package member

import "context"

// Repository defines read access to the member roster.
type Repository interface {
	ListByChurch(ctx context.Context, churchID string) ([]*Member, error)
}
