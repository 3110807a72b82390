package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"birthday_reminder_service/internal/domain/church"
)

// ErrChurchNotFound is returned when a tenant id resolves to no document.
var ErrChurchNotFound = fmt.Errorf("church not found")

// ChurchRepositoryFS reads the tenant list from Firestore.
type ChurchRepositoryFS struct {
	client *firestore.Client
}

func NewChurchRepositoryFS(client *firestore.Client) *ChurchRepositoryFS {
	return &ChurchRepositoryFS{client: client}
}

type churchDocData struct {
	Name         string    `firestore:"name"`
	EmailEnabled bool      `firestore:"emailEnabled"`
	Timezone     string    `firestore:"timezone"`
	IsActive     bool      `firestore:"isActive"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

func (r *ChurchRepositoryFS) GetByID(ctx context.Context, id string) (*church.Church, error) {
	snap, err := churchDoc(r.client, id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrChurchNotFound
		}
		return nil, fmt.Errorf("error getting church %s: %w", id, err)
	}
	return docToChurch(snap)
}

func (r *ChurchRepositoryFS) ListActive(ctx context.Context) ([]*church.Church, error) {
	it := r.client.Collection(churchesCollection).Where("isActive", "==", true).Documents(ctx)
	defer it.Stop()

	churches := make([]*church.Church, 0)
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing active churches: %w", err)
		}
		ch, err := docToChurch(snap)
		if err != nil {
			return nil, err
		}
		churches = append(churches, ch)
	}
	return churches, nil
}

func docToChurch(snap *firestore.DocumentSnapshot) (*church.Church, error) {
	var doc churchDocData
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("error decoding church %s: %w", snap.Ref.ID, err)
	}
	return &church.Church{
		ID:           snap.Ref.ID,
		Name:         doc.Name,
		EmailEnabled: doc.EmailEnabled,
		Timezone:     doc.Timezone,
		IsActive:     doc.IsActive,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}
