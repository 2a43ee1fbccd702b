package aliases

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keydeck/keydeck/internal/bus"
	"github.com/keydeck/keydeck/internal/coordinator"
	"github.com/keydeck/keydeck/internal/events"
	"github.com/keydeck/keydeck/internal/profile"
	"github.com/keydeck/keydeck/internal/rpc"
	"github.com/keydeck/keydeck/internal/store"
)

func setup(t *testing.T, seed ...profile.Profile) (*bus.Bus, *rpc.Layer, *coordinator.Coordinator) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "keydeck.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	for _, p := range seed {
		require.NoError(t, st.SaveProfile(ctx, p))
	}
	if len(seed) > 0 {
		require.NoError(t, st.SetActiveProfile(ctx, seed[0].ID))
	}

	b, r := bus.New(), rpc.New()
	coord := coordinator.New(b, r, store.NewCached(st))
	require.NoError(t, coord.Init())
	t.Cleanup(coord.Destroy)
	return b, r, coord
}

func prof(id string, aliases map[string]string) profile.Profile {
	now := time.Now().UTC().Truncate(time.Second)
	return profile.Profile{
		ID: id, Name: "Profile " + id, Game: "quake3",
		Binds: map[string]string{}, Aliases: aliases,
		CreatedAt: now, UpdatedAt: now,
	}
}

func TestInit_SeedsAliasesAndEnvironment(t *testing.T) {
	b, r, coord := setup(t, prof("p1", map[string]string{"rl": "weapon 5"}))

	c := New(b, r, coord)
	require.NoError(t, c.Init())
	defer c.Destroy()

	expansion, ok := c.Expand("rl")
	require.True(t, ok)
	require.Equal(t, "weapon 5", expansion)
	require.Equal(t, profile.EnvDefault, c.Environment())
}

func TestEnvSwitch_UpdatesCache(t *testing.T) {
	b, r, coord := setup(t, prof("p1", map[string]string{"rl": "weapon 5"}))

	c := New(b, r, coord)
	require.NoError(t, c.Init())
	defer c.Destroy()

	_, err := r.Request(context.Background(), events.ReqSwitchEnv,
		events.SwitchEnvRequest{Environment: "tournament"})
	require.NoError(t, err)

	require.Equal(t, profile.Environment("tournament"), c.Environment())
	// Aliases survive an environment switch.
	_, ok := c.Expand("rl")
	require.True(t, ok)
}

func TestSwitch_ReplacesAliasesWholesale(t *testing.T) {
	b, r, coord := setup(t,
		prof("p1", map[string]string{"rl": "weapon 5"}),
		prof("p2", map[string]string{"gg": "say gg"}),
	)

	c := New(b, r, coord)
	require.NoError(t, c.Init())
	defer c.Destroy()

	_, err := r.Request(context.Background(), events.ReqSwitchProfile,
		events.SwitchProfileRequest{ID: "p2"})
	require.NoError(t, err)

	_, ok := c.Expand("rl")
	require.False(t, ok)
	expansion, _ := c.Expand("gg")
	require.Equal(t, "say gg", expansion)
}

func TestUpdate_ActiveProfileAliasesReplaced(t *testing.T) {
	b, r, coord := setup(t, prof("p1", map[string]string{"rl": "weapon 5"}))

	c := New(b, r, coord)
	require.NoError(t, c.Init())
	defer c.Destroy()

	edited := prof("p1", map[string]string{"sg": "weapon 3"})
	_, err := r.Request(context.Background(), events.ReqUpdateProfile,
		events.UpdateProfileRequest{Profile: edited})
	require.NoError(t, err)

	_, ok := c.Expand("rl")
	require.False(t, ok, "old aliases must not survive an update")
	expansion, _ := c.Expand("sg")
	require.Equal(t, "weapon 3", expansion)
}

func TestDeleteActive_ClearsAliases(t *testing.T) {
	b, r, coord := setup(t, prof("p1", map[string]string{"rl": "weapon 5"}))

	c := New(b, r, coord)
	require.NoError(t, c.Init())
	defer c.Destroy()

	_, err := r.Request(context.Background(), events.ReqDeleteProfile,
		events.DeleteProfileRequest{ID: "p1"})
	require.NoError(t, err)

	require.Empty(t, c.All())
}
