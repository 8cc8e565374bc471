package planting

import (
	"context"
	"errors"

	"github.com/couchcryptid/tree-request-service/internal/domain"
)

// Duplicate is the result of a duplicate check.
type Duplicate struct {
	Exists     bool
	ExistingID int64
}

// Guard detects addresses that already have a tree request on record.
type Guard struct {
	store Store
}

// NewGuard creates a Guard over store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// Check looks up a canonical street address by exact match.
func (g *Guard) Check(ctx context.Context, address string) (Duplicate, error) {
	existing, err := g.store.FindByStreetAddress(ctx, address)
	if errors.Is(err, domain.ErrNotFound) {
		return Duplicate{}, nil
	}
	if err != nil {
		return Duplicate{}, err
	}
	return Duplicate{Exists: true, ExistingID: existing.ID}, nil
}
