package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keydeck/keydeck/internal/profile"
	"github.com/keydeck/keydeck/internal/store"
)

// Builder accumulates profiles and writes them to a store in order.
type Builder struct {
	t        *testing.T
	store    *store.Store
	profiles []profile.Profile
	activeID string
	env      profile.Environment
}

// NewBuilder creates a builder for the given test store.
func NewBuilder(t *testing.T, st *store.Store) *Builder {
	t.Helper()
	return &Builder{t: t, store: st}
}

// WithProfile adds a profile with optional configuration.
func (b *Builder) WithProfile(id string, opts ...ProfileOption) *Builder {
	p := defaultProfile(id)
	for _, opt := range opts {
		opt(&p)
	}
	b.profiles = append(b.profiles, p)
	return b
}

// WithActive marks the profile that should be selected after Build.
func (b *Builder) WithActive(id string) *Builder {
	b.activeID = id
	return b
}

// WithEnvironment sets the persisted environment.
func (b *Builder) WithEnvironment(env profile.Environment) *Builder {
	b.env = env
	return b
}

// Build writes all accumulated data. Profiles first, then selection state.
func (b *Builder) Build() {
	b.t.Helper()
	ctx := context.Background()

	for _, p := range b.profiles {
		require.NoError(b.t, b.store.SaveProfile(ctx, p))
	}
	if b.activeID != "" {
		require.NoError(b.t, b.store.SetActiveProfile(ctx, b.activeID))
	}
	if b.env != "" {
		require.NoError(b.t, b.store.SetEnvironment(ctx, b.env))
	}
}

// Seed is shorthand for a fresh store populated with the given profiles,
// the first one active.
func Seed(t *testing.T, profiles ...profile.Profile) *store.Store {
	t.Helper()

	st := NewTestStore(t)
	ctx := context.Background()
	for _, p := range profiles {
		require.NoError(t, st.SaveProfile(ctx, p))
	}
	if len(profiles) > 0 {
		require.NoError(t, st.SetActiveProfile(ctx, profiles[0].ID))
	}
	return st
}
