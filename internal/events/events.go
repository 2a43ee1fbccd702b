// Package events declares the bus topics and their payload types.
//
// The bus transports payloads as `any`; producers and consumers agree on
// shape by sharing the structs declared here. One topic, one payload type.
package events

import "github.com/keydeck/keydeck/internal/profile"

// Lifecycle topics.
const (
	// TopicComponentReady announces that a component finished initializing.
	// Payload: ComponentReady.
	TopicComponentReady = "component:ready"

	// TopicComponentState carries a peer's state snapshot to one recipient.
	// Payload: ComponentState. Recipients ignore pushes whose Target is not
	// their own name.
	TopicComponentState = "component:state"
)

// Coordinator broadcast topics.
const (
	// TopicProfileSwitched fires after the active profile changes.
	// Payload: ProfileSwitched.
	TopicProfileSwitched = "profile:switched"

	// TopicProfileUpdated fires after a profile document changes.
	// Payload: ProfileUpdated.
	TopicProfileUpdated = "profile:updated"

	// TopicProfileCreated fires after a profile is created.
	// Payload: ProfileUpdated.
	TopicProfileCreated = "profile:created"

	// TopicProfileDeleted fires after a profile is deleted.
	// Payload: ProfileDeleted.
	TopicProfileDeleted = "profile:deleted"

	// TopicEnvSwitched fires after the active environment changes.
	// Payload: EnvSwitched.
	TopicEnvSwitched = "env:switched"

	// TopicInitialState carries the canonical snapshot to one late-joining
	// component. Payload: InitialState.
	TopicInitialState = "data:initial-state"

	// TopicExternalChange fires when the profile database is modified by
	// another process. Payload: ExternalChange.
	TopicExternalChange = "data:external-change"
)

// Coordinator mutation-request topics (request/response layer).
const (
	ReqSwitchProfile = "data:switch-profile"
	ReqUpdateProfile = "data:update-profile"
	ReqCreateProfile = "data:create-profile"
	ReqDeleteProfile = "data:delete-profile"
	ReqSwitchEnv     = "data:switch-environment"
	ReqGetState      = "data:get-state"
	ReqGetProfile    = "data:get-profile"
)

// ComponentReady is the late-join announce payload.
type ComponentReady struct {
	Name string
}

// ComponentState is a scoped peer-state push. Reply marks the newcomer's
// answer to an announce-triggered push; receivers never push back on a
// reply, which is what terminates the handshake.
type ComponentState struct {
	Target string // recipient component name
	Sender string
	State  any
	Reply  bool
}

// ProfileSwitched reports a change of the active profile.
type ProfileSwitched struct {
	PreviousID string
	Profile    profile.Profile
}

// ProfileUpdated reports a changed or created profile document.
type ProfileUpdated struct {
	Profile profile.Profile
}

// ProfileDeleted reports a removed profile.
type ProfileDeleted struct {
	ID string
}

// EnvSwitched reports a change of the active environment.
type EnvSwitched struct {
	Environment profile.Environment
}

// InitialState is the coordinator's scoped snapshot push.
type InitialState struct {
	Target   string
	Snapshot profile.Snapshot
}

// ExternalChange reports an out-of-process database modification.
type ExternalChange struct {
	Path string
}

// SwitchProfileRequest asks the coordinator to activate a profile.
type SwitchProfileRequest struct {
	ID string
}

// UpdateProfileRequest asks the coordinator to replace a profile document.
type UpdateProfileRequest struct {
	Profile profile.Profile
}

// CreateProfileRequest asks the coordinator to create a profile.
type CreateProfileRequest struct {
	Name string
	Game string
}

// DeleteProfileRequest asks the coordinator to delete a profile.
type DeleteProfileRequest struct {
	ID string
}

// SwitchEnvRequest asks the coordinator to change environment.
type SwitchEnvRequest struct {
	Environment profile.Environment
}

// GetProfileRequest asks the coordinator for one persisted profile document.
type GetProfileRequest struct {
	ID string
}
