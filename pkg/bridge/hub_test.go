package bridge_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/jarvis/pkg/bridge"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_OpenGetClose(t *testing.T) {
	hub := bridge.NewHub()
	ctx := context.Background()

	s := hub.Open(ctx, "a", &slowTransport{})
	got, ok := hub.Get("a")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, hub.Len())

	hub.Close(s)
	_, ok = hub.Get("a")
	assert.False(t, ok)
	assert.Zero(t, hub.Len())
	<-s.Done()
}

func TestHub_ReopenReplaces(t *testing.T) {
	hub := bridge.NewHub()
	ctx := context.Background()

	first := hub.Open(ctx, "a", &slowTransport{})
	second := hub.Open(ctx, "a", &slowTransport{})
	<-first.Done()
	assert.Equal(t, 1, hub.Len())

	hub.Close(first)
	got, ok := hub.Get("a")
	require.True(t, ok, "closing a replaced session leaves its successor")
	assert.Same(t, second, got)
	hub.Shutdown()
	assert.Zero(t, hub.Len())
}

func TestHub_Broadcast(t *testing.T) {
	hub := bridge.NewHub()
	defer hub.Shutdown()
	ctx := context.Background()
	a, b := &slowTransport{}, &slowTransport{}
	hub.Open(ctx, "a", a)
	hub.Open(ctx, "b", b)

	n := hub.Broadcast(ctx, domain.Event{Type: domain.EventSystem, Content: "Capabilities updated"})
	assert.Equal(t, 2, n)
	require.Eventually(t, func() bool { return len(a.got()) == 1 && len(b.got()) == 1 }, time.Second, 5*time.Millisecond)
}
