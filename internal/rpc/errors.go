package rpc

import "fmt"

// NoResponderError is returned by Request when the topic has no responder at
// call time. The request is never published in that case.
type NoResponderError struct {
	Topic string
}

func (e *NoResponderError) Error() string {
	return fmt.Sprintf("no responder registered for topic %q", e.Topic)
}

// DuplicateResponderError is returned by Respond when the topic already has
// an active responder. Registration fails loudly rather than silently
// replacing the previous handler; detach the old responder first.
type DuplicateResponderError struct {
	Topic string
}

func (e *DuplicateResponderError) Error() string {
	return fmt.Sprintf("topic %q already has a responder", e.Topic)
}
