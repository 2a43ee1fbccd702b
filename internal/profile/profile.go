// Package profile defines the game configuration profile domain types.
//
// A profile is a named set of keybinds and command aliases for one game.
// Validation of key names and command grammars is owned by the feature
// layers; these types only carry data across the bus.
package profile

import "time"

// Environment selects which variant of a profile is active,
// e.g. "default" or "tournament".
type Environment string

const EnvDefault Environment = "default"

// Profile is one game configuration document.
type Profile struct {
	ID        string
	Name      string
	Game      string
	Binds     map[string]string // key -> command
	Aliases   map[string]string // alias -> expansion
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy. Receivers of bus payloads must never alias
// coordinator-owned maps.
func (p Profile) Clone() Profile {
	out := p
	out.Binds = cloneMap(p.Binds)
	out.Aliases = cloneMap(p.Aliases)
	return out
}

// Snapshot is the canonical shared state as seen at one instant.
type Snapshot struct {
	ActiveProfile string
	Environment   Environment
	Profiles      map[string]Profile
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Profiles = make(map[string]Profile, len(s.Profiles))
	for id, p := range s.Profiles {
		out.Profiles[id] = p.Clone()
	}
	return out
}

// Active returns the active profile and whether one is selected.
func (s Snapshot) Active() (Profile, bool) {
	p, ok := s.Profiles[s.ActiveProfile]
	return p, ok
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
