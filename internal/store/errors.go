package store

import "fmt"

// ProfileNotFoundError reports a lookup for a profile id that does not exist.
type ProfileNotFoundError struct {
	ID string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("profile %q not found", e.ID)
}
