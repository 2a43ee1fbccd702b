package bus

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// TopicMsg is a bus payload surfaced into a Bubble Tea update loop.
type TopicMsg struct {
	Topic   string
	Payload any
}

// Listen subscribes to topic and returns a channel of TopicMsg values plus a
// tea.Cmd factory for pulling them into an update loop. The subscription is
// removed when ctx is cancelled.
func Listen(ctx context.Context, b *Bus, topic string, buffer int) (<-chan TopicMsg, tea.Cmd) {
	ch := make(chan TopicMsg, buffer)
	cancel := b.Subscribe(topic, func(payload any) {
		select {
		case ch <- TopicMsg{Topic: topic, Payload: payload}:
		default:
			// Update loop is behind; drop rather than stall dispatch.
		}
	})

	go func() {
		<-ctx.Done()
		cancel()
	}()

	cmd := func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			return msg
		}
	}
	return ch, cmd
}

// Bridge adapts UI messages onto the bus. It returns a function for the
// program's Update path: when match reports true for a message, handler (if
// any) runs first and the message is then published on topic. This mirrors
// delegated UI event listeners that keep firing for elements created later.
func Bridge(b *Bus, match func(tea.Msg) bool, topic string, handler func(tea.Msg)) func(tea.Msg) bool {
	return func(msg tea.Msg) bool {
		if match == nil || !match(msg) {
			return false
		}
		if handler != nil {
			handler(msg)
		}
		b.Publish(topic, msg)
		return true
	}
}
