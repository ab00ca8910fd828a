package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/jarvis/internal/metrics"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name  string
		reply session.Reply
		err   error
		want  string
	}{
		{"answered", session.Reply{Text: "hi"}, nil, metrics.OutcomeAnswered},
		{"suspended", session.Reply{Suspended: true}, nil, metrics.OutcomeSuspended},
		{"oracle failure", session.Reply{IsError: true}, nil, metrics.OutcomeFailed},
		{"busy", session.Reply{}, domain.ErrThreadBusy, metrics.OutcomeBusy},
		{"bad input", session.Reply{}, &session.InputError{Err: session.ErrEmptyInput}, metrics.OutcomeRejected},
		{"nothing pending", session.Reply{}, domain.ErrNoPendingSuspension, metrics.OutcomeRejected},
		{"store down", session.Reply{}, errors.New("connection refused"), metrics.OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, metrics.Outcome(tt.reply, tt.err))
		})
	}
}

func TestHooksAndHandler(t *testing.T) {
	m := metrics.New(func() int { return 2 })
	ctx := context.Background()
	h := m.Hooks()

	base := domain.EventBase{Graph: "jarvis"}
	h.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: base, NodeID: "decide"})
	h.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: base, NodeID: "decide"})
	h.OnToolReturn(ctx, &domain.ToolEvent{
		EventBase:  base,
		Invocation: domain.Invocation{Name: "think_tool"},
		Result:     &domain.Result{Kind: domain.ResultOK},
		Duration:   10 * time.Millisecond,
	})
	h.OnSuspend(ctx, &domain.SuspendEvent{EventBase: base, Question: "?"})
	m.ObserveRun(ctx, "t1", session.Reply{Suspended: true}, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `jarvis_node_visits_total{graph="jarvis",node="decide"} 2`)
	assert.Contains(t, text, `jarvis_capability_results_total{capability="think_tool",kind="ok"} 1`)
	assert.Contains(t, text, `jarvis_suspensions_total{graph="jarvis"} 1`)
	assert.Contains(t, text, `jarvis_runs_total{outcome="suspended"} 1`)
	assert.Contains(t, text, `jarvis_live_sessions 2`)
	n, err := testutil.GatherAndCount(m.Registry(), "jarvis_capability_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
