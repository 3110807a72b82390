package church

import (
	"context"
	"time"
)

// Church is a tenant. Every engine invocation is scoped to exactly one
// church; rosters and ledger entries never cross this boundary.
type Church struct {
	ID           string
	Name         string
	EmailEnabled bool // per-tenant feature flag for the email channel
	Timezone     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository defines read access to the tenant list.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Church, error)
	ListActive(ctx context.Context) ([]*Church, error)
}
