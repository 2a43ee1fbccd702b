package bus

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestListen_DeliversTopicMsg(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, cmd := Listen(ctx, b, "ui:refresh", 4)

	b.Publish("ui:refresh", "payload")

	msg := cmd()
	topicMsg, ok := msg.(TopicMsg)
	require.True(t, ok)
	require.Equal(t, "ui:refresh", topicMsg.Topic)
	require.Equal(t, "payload", topicMsg.Payload)
}

func TestListen_CancelledContextUnsubscribes(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())

	Listen(ctx, b, "ui:refresh", 1)
	require.Equal(t, 1, b.SubscriberCount("ui:refresh"))

	cancel()
	require.Eventually(t, func() bool {
		return b.SubscriberCount("ui:refresh") == 0
	}, time.Second, 5*time.Millisecond)
}

func TestBridge_PublishesMatchingMsgs(t *testing.T) {
	b := New()

	var published []any
	b.Subscribe("keys:pressed", func(p any) { published = append(published, p) })

	var handled bool
	bridge := Bridge(b,
		func(msg tea.Msg) bool { _, ok := msg.(tea.KeyMsg); return ok },
		"keys:pressed",
		func(tea.Msg) { handled = true },
	)

	require.False(t, bridge("not a key msg"))
	require.Empty(t, published)

	key := tea.KeyMsg{Type: tea.KeyEnter}
	require.True(t, bridge(key))
	require.True(t, handled, "handler runs before publish")
	require.Equal(t, []any{tea.Msg(key)}, published)
}
