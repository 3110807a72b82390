package group

import (
	"context"
	"time"
)

// Group is a bacenta: the smallest organizational unit of members, with
// its own leader.
type Group struct {
	ID        string
	ChurchID  string
	Name      string
	LeaderID  string // user id of the bacenta leader; may be empty
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines read access to the bacenta roster.
type Repository interface {
	ListByChurch(ctx context.Context, churchID string) ([]*Group, error)
}
