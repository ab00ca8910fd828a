package bridge_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/jarvis/pkg/bridge"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowTransport records events, taking delay per send.
type slowTransport struct {
	mu     sync.Mutex
	events []domain.Event
	delay  time.Duration
	fail   error
}

func (t *slowTransport) Send(ctx context.Context, ev domain.Event) error {
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	if t.fail != nil {
		return t.fail
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
	return nil
}

func (t *slowTransport) got() []domain.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.Event(nil), t.events...)
}

func TestSession_EmitNeverBlocks(t *testing.T) {
	tr := &slowTransport{delay: 5 * time.Millisecond}
	s := bridge.NewSession("s1", tr)
	s.Start(context.Background())
	defer s.Stop()

	start := time.Now()
	for i := 0; i < 50; i++ {
		s.Emit(context.Background(), domain.Event{Type: domain.EventNode, Content: "step"})
	}
	s.Emit(context.Background(), domain.Event{Type: domain.EventAssistant, Content: "done"})
	assert.Less(t, time.Since(start), 50*time.Millisecond, "the producer is never held by the transport")

	require.Eventually(t, func() bool { return len(tr.got()) == 51 }, 2*time.Second, 10*time.Millisecond)
	events := tr.got()
	assert.Equal(t, domain.Event{Type: domain.EventAssistant, Content: "done"}, events[50], "order is kept")
}

func TestSession_StopEndsDrainOnly(t *testing.T) {
	tr := &slowTransport{}
	s := bridge.NewSession("s1", tr)
	s.Start(context.Background())

	s.Stop()
	select {
	case <-s.Done():
	default:
		t.Fatal("drain must have exited")
	}
	s.Emit(context.Background(), domain.Event{Content: "after stop"})
	assert.Empty(t, tr.got())
	s.Stop()
}

func TestSession_StopWithoutStart(t *testing.T) {
	s := bridge.NewSession("s1", &slowTransport{})
	s.Stop()
	<-s.Done()
}

func TestSession_TransportFailureStopsDrain(t *testing.T) {
	tr := &slowTransport{fail: errors.New("broken pipe")}
	s := bridge.NewSession("s1", tr)
	s.Start(context.Background())
	s.Emit(context.Background(), domain.Event{Content: "x"})

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("drain should stop after a failed send")
	}
}

func TestSession_HooksEmitNodeEvents(t *testing.T) {
	tr := &slowTransport{}
	s := bridge.NewSession("s1", tr)
	s.Start(context.Background())
	defer s.Stop()

	ctx := context.Background()
	h := s.Hooks()
	base := domain.EventBase{Graph: "jarvis"}
	inv := domain.Invocation{Name: "calendar"}
	h.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: base, NodeID: "decide"})
	h.OnToolCall(ctx, &domain.ToolEvent{EventBase: base, Invocation: inv})
	h.OnToolReturn(ctx, &domain.ToolEvent{EventBase: base, Invocation: inv, Result: &domain.Result{Kind: domain.ResultError}})

	require.Eventually(t, func() bool { return len(tr.got()) == 3 }, time.Second, 5*time.Millisecond)
	events := tr.got()
	for _, ev := range events {
		assert.Equal(t, domain.EventNode, ev.Type)
	}
	assert.Equal(t, "jarvis: decide", events[0].Content)
	assert.Equal(t, "jarvis: calling calendar", events[1].Content)
	assert.Equal(t, "jarvis: calendar failed", events[2].Content)
}
