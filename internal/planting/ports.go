// Package planting runs a plant request through validation, duplicate
// detection, 311 submission and persistence.
package planting

import (
	"context"

	"github.com/couchcryptid/tree-request-service/internal/domain"
)

// Store is the persistence the orchestrator needs.
type Store interface {
	// FindByStreetAddress returns domain.ErrNotFound when no row matches.
	FindByStreetAddress(ctx context.Context, address string) (domain.TreeRequest, error)
	// Insert sets req.ID and returns an error wrapping domain.ErrDuplicateAddress
	// when the street address is already on record.
	Insert(ctx context.Context, req *domain.TreeRequest) error
}

// Session is one reserved automation slot.
type Session interface {
	Submit(ctx context.Context, sub domain.Submission) (domain.Receipt, error)
	Close() error
}

// Submitter opens automation sessions.
type Submitter interface {
	Open(ctx context.Context) (Session, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context) (Session, error)

func (f SubmitterFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

// Locker serializes work per key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Publisher announces persisted requests.
type Publisher interface {
	Publish(ctx context.Context, req domain.TreeRequest) error
}
