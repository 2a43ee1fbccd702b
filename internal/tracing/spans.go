package tracing

// Span attribute keys used across the substrate.
const (
	// Bus attributes
	AttrTopic           = "bus.topic"
	AttrSubscriberCount = "bus.subscriber_count"

	// Request attributes
	AttrRequestTopic = "rpc.topic"
	AttrRequestID    = "rpc.request_id"

	// Component attributes
	AttrComponentName  = "component.name"
	AttrComponentState = "component.state"

	// Profile attributes
	AttrProfileID   = "profile.id"
	AttrEnvironment = "profile.environment"

	// Error attributes
	AttrErrorMessage = "error.message"
	AttrErrorType    = "error.type"
)

// Span name prefixes for consistent naming.
const (
	SpanPrefixPublish   = "bus.publish."
	SpanPrefixRequest   = "rpc.request."
	SpanPrefixStore     = "store."
	SpanPrefixHandshake = "component.handshake."
)

// Event names for span events.
const (
	EventEnvelopeQueued    = "envelope.queued"
	EventQueueDropped      = "queue.dropped"
	EventListenerPanicked  = "listener.panicked"
	EventResponderInvoked  = "responder.invoked"
	EventStateApplied      = "state.applied"
	EventSnapshotReloaded  = "snapshot.reloaded"
	EventSubscriberDropped = "subscriber.dropped"
)
