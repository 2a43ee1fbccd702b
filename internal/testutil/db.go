// Package testutil provides helpers for seeding profile stores in tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keydeck/keydeck/internal/store"
)

// NewTestStore opens a migrated store in a temp directory. It is closed
// automatically when the test finishes.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "keydeck.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}
