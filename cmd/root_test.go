package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keydeck/keydeck/internal/config"
	"github.com/keydeck/keydeck/internal/profile"
)

func sampleSnapshot() profile.Snapshot {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return profile.Snapshot{
		ActiveProfile: "p1",
		Environment:   profile.EnvDefault,
		Profiles: map[string]profile.Profile{
			"p1": {
				ID: "p1", Name: "Duel", Game: "quake3",
				Binds:     map[string]string{"mouse1": "+attack"},
				Aliases:   map[string]string{"rl": "weapon 5"},
				CreatedAt: now, UpdatedAt: now,
			},
			"p2": {
				ID: "p2", Name: "Casual", Game: "cs2",
				Binds:     map[string]string{},
				Aliases:   map[string]string{},
				CreatedAt: now, UpdatedAt: now,
			},
		},
	}
}

func TestFormatProfiles_MarksActiveAndSortsByName(t *testing.T) {
	out := formatProfiles(sampleSnapshot())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3, "header plus one line per profile")

	require.Contains(t, lines[0], "NAME")
	require.Contains(t, lines[1], "Casual", "profiles sorted by name")
	require.Contains(t, lines[2], "Duel")

	require.True(t, strings.HasPrefix(lines[2], "*"), "active profile carries the marker")
	require.False(t, strings.HasPrefix(lines[1], "*"))
}

func TestFormatProfiles_CountsColumns(t *testing.T) {
	out := formatProfiles(sampleSnapshot())

	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Duel") {
			require.Contains(t, line, "1", "bind and alias counts rendered")
		}
	}
}

func TestFormatProfiles_Empty(t *testing.T) {
	out := formatProfiles(profile.Snapshot{Profiles: map[string]profile.Profile{}})
	require.Contains(t, out, "no profiles yet")
}

func TestGameNames_SortedAndJoined(t *testing.T) {
	names := gameNames([]config.GameConfig{
		{Name: "quake3"},
		{Name: "cs2"},
	})
	require.Equal(t, "cs2, quake3", names)
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	require.Contains(t, got, "profiles")
	require.Contains(t, got, "switch")
	require.Contains(t, got, "env")
}

func TestProfileResult(t *testing.T) {
	p, err := profileResult(profile.Profile{ID: "p1", Name: "One"})
	require.NoError(t, err)
	require.Equal(t, "p1", p.ID)

	_, err = profileResult("not a profile")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected response type")

	_, err = profileResult(nil)
	require.Error(t, err)
}

func TestFormatProfileDetail(t *testing.T) {
	p := profile.Profile{
		ID:      "p1",
		Name:    "One",
		Game:    "quake3",
		Binds:   map[string]string{"w": "+forward", "mouse1": "+attack"},
		Aliases: map[string]string{"rl": "weapon 5"},
	}

	out := formatProfileDetail(p, true)
	require.Contains(t, out, "One (p1)")
	require.Contains(t, out, "game:   quake3")
	require.Contains(t, out, "active: yes")
	require.Contains(t, out, "binds (2):")
	require.Contains(t, out, "  mouse1 = +attack")
	require.Contains(t, out, "aliases (1):")
	require.Contains(t, out, "  rl = weapon 5")

	// Keys come out sorted for stable output.
	require.Less(t, strings.Index(out, "mouse1"), strings.Index(out, "w = +forward"))

	require.NotContains(t, formatProfileDetail(p, false), "active: yes")
}

func TestProfilesShowCommand_Registered(t *testing.T) {
	names := make([]string, 0)
	for _, c := range profilesCmd.Commands() {
		names = append(names, c.Name())
	}
	require.Contains(t, names, "show")
}
