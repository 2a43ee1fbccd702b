package rpc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequest_RoundTrip(t *testing.T) {
	l := New()

	detach, err := l.Respond("sum", func(payload any) (any, error) {
		nums := payload.([]int)
		return nums[0] + nums[1], nil
	})
	require.NoError(t, err)
	defer detach()

	result, err := l.Request(context.Background(), "sum", []int{2, 3})
	require.NoError(t, err)
	require.Equal(t, 5, result)
}

func TestRequest_NoResponder(t *testing.T) {
	l := New()

	_, err := l.Request(context.Background(), "ghost", struct{}{})

	var noResponder *NoResponderError
	require.ErrorAs(t, err, &noResponder)
	require.Equal(t, "ghost", noResponder.Topic)
}

func TestRequest_HandlerErrorPropagates(t *testing.T) {
	l := New()

	sentinel := errors.New("storage offline")
	detach, err := l.Respond("save", func(any) (any, error) {
		return nil, sentinel
	})
	require.NoError(t, err)
	defer detach()

	_, err = l.Request(context.Background(), "save", nil)
	require.ErrorIs(t, err, sentinel)
}

func TestRequest_HandlerPanicBecomesError(t *testing.T) {
	l := New()

	detach, err := l.Respond("explode", func(any) (any, error) {
		panic("kaboom")
	})
	require.NoError(t, err)
	defer detach()

	_, err = l.Request(context.Background(), "explode", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "kaboom")
}

func TestRespond_DuplicateFailsLoudly(t *testing.T) {
	l := New()

	detach, err := l.Respond("t", func(any) (any, error) { return 1, nil })
	require.NoError(t, err)

	_, err = l.Respond("t", func(any) (any, error) { return 2, nil })
	var dup *DuplicateResponderError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "t", dup.Topic)

	// First responder keeps answering.
	result, err := l.Request(context.Background(), "t", nil)
	require.NoError(t, err)
	require.Equal(t, 1, result)

	// Detaching frees the topic.
	detach()
	require.False(t, l.HasResponder("t"))
	_, err = l.Respond("t", func(any) (any, error) { return 2, nil })
	require.NoError(t, err)
}

func TestDetach_Idempotent(t *testing.T) {
	l := New()

	detach, err := l.Respond("t", func(any) (any, error) { return nil, nil })
	require.NoError(t, err)

	detach()
	require.NotPanics(t, detach)

	// A stale detach must not remove a newer responder.
	_, err = l.Respond("t", func(any) (any, error) { return "new", nil })
	require.NoError(t, err)
	detach()
	require.True(t, l.HasResponder("t"))
}

func TestRequest_ContextDeadline(t *testing.T) {
	l := New()

	release := make(chan struct{})
	detach, err := l.Respond("slow", func(any) (any, error) {
		<-release
		return "late", nil
	})
	require.NoError(t, err)
	defer detach()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = l.Request(ctx, "slow", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequest_ConcurrentNoCrossTalk(t *testing.T) {
	l := New()

	detach, err := l.Respond("echo", func(payload any) (any, error) {
		time.Sleep(time.Millisecond)
		return payload, nil
	})
	require.NoError(t, err)
	defer detach()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := l.Request(context.Background(), "echo", i)
			require.NoError(t, err)
			require.Equal(t, i, result, "reply leaked across pending requests")
		}(i)
	}
	wg.Wait()

	require.Zero(t, l.PendingCount())
}
