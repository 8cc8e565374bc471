package planting_test

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/tree-request-service/internal/domain"
	"github.com/couchcryptid/tree-request-service/internal/planting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_NoMatch(t *testing.T) {
	g := planting.NewGuard(newMemStore("1 S State St"))

	dup, err := g.Check(context.Background(), "1234 N Western Ave")
	require.NoError(t, err)
	assert.False(t, dup.Exists)
}

func TestGuard_ExactMatch(t *testing.T) {
	g := planting.NewGuard(newMemStore("1 S State St", "1234 N Western Ave"))

	dup, err := g.Check(context.Background(), "1234 N Western Ave")
	require.NoError(t, err)
	assert.True(t, dup.Exists)
	assert.Equal(t, int64(2), dup.ExistingID)
}

func TestGuard_MatchIsExact(t *testing.T) {
	g := planting.NewGuard(newMemStore("1234 N Western Ave"))

	dup, err := g.Check(context.Background(), "1234 n western ave")
	require.NoError(t, err)
	assert.False(t, dup.Exists)
}

func TestGuard_StoreError(t *testing.T) {
	store := newMemStore()
	store.findErr = &domain.PersistenceError{Op: "find", Err: errors.New("connection refused")}

	_, err := planting.NewGuard(store).Check(context.Background(), "1 S State St")
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
}
