package testutil

import (
	"time"

	"github.com/keydeck/keydeck/internal/profile"
)

func defaultProfile(id string) profile.Profile {
	now := time.Now().UTC().Truncate(time.Second)
	return profile.Profile{
		ID:        id,
		Name:      "Profile " + id,
		Game:      "quake3",
		Binds:     map[string]string{},
		Aliases:   map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ProfileOption configures a profile during builder setup.
type ProfileOption func(*profile.Profile)

// Name sets the display name.
func Name(name string) ProfileOption {
	return func(p *profile.Profile) { p.Name = name }
}

// Game sets the target game.
func Game(game string) ProfileOption {
	return func(p *profile.Profile) { p.Game = game }
}

// Bind adds a single key binding.
func Bind(key, command string) ProfileOption {
	return func(p *profile.Profile) { p.Binds[key] = command }
}

// Binds replaces the whole bind table.
func Binds(binds map[string]string) ProfileOption {
	return func(p *profile.Profile) { p.Binds = binds }
}

// Alias adds a single alias.
func Alias(name, expansion string) ProfileOption {
	return func(p *profile.Profile) { p.Aliases[name] = expansion }
}

// Aliases replaces the whole alias table.
func Aliases(aliases map[string]string) ProfileOption {
	return func(p *profile.Profile) { p.Aliases = aliases }
}

// CreatedAt sets the creation timestamp.
func CreatedAt(t time.Time) ProfileOption {
	return func(p *profile.Profile) { p.CreatedAt = t }
}

// UpdatedAt sets the last-modified timestamp.
func UpdatedAt(t time.Time) ProfileOption {
	return func(p *profile.Profile) { p.UpdatedAt = t }
}
