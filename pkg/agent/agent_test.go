package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/jarvis/pkg/adapters/scripted"
	"github.com/aretw0/jarvis/pkg/agent"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/graph"
	"github.com/aretw0/jarvis/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type journal struct {
	mu      sync.Mutex
	entries []map[string]any
}

func (j *journal) add(args map[string]any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, args)
}

func (j *journal) len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

func taskComplete() registry.Capability {
	return registry.Capability{
		Descriptor: domain.CapabilityDescriptor{Name: "task_complete", Completes: true},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			summary, _ := args["summary"].(string)
			return domain.OK("Task Complete: " + summary), nil
		},
	}
}

func noop(calls *atomic.Int32) registry.Capability {
	return registry.Capability{
		Descriptor: domain.CapabilityDescriptor{Name: "noop"},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			calls.Add(1)
			return domain.OK("nothing happened"), nil
		},
	}
}

func newNutrition(t *testing.T, oracle *scripted.Oracle, j *journal) agent.SubAgent {
	t.Helper()
	reg := registry.New()
	reg.MustRegister(
		registry.Capability{
			Descriptor: domain.CapabilityDescriptor{Name: "write_food_entry", Completes: true},
			Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
				j.add(args)
				return domain.OK(fmt.Sprintf("Food logged: %v (%v)", args["food"], args["meal_type"])), nil
			},
		},
		taskComplete(),
		agent.Escalate(),
	)
	g, err := agent.New("nutrition", oracle, reg, agent.AsSubAgent())
	require.NoError(t, err)
	return agent.SubAgent{
		Graph:      g,
		Arg:        "request",
		Descriptor: domain.CapabilityDescriptor{Name: "nutrition_handler", Description: "Logs meals."},
	}
}

func newJarvis(t *testing.T, oracle *scripted.Oracle, caps []registry.Capability, opts ...agent.Option) *graph.Graph {
	t.Helper()
	reg := registry.New()
	reg.MustRegister(caps...)
	g, err := agent.New("jarvis", oracle, reg, opts...)
	require.NoError(t, err)
	return g
}

func roundTrip(t *testing.T, frames []domain.Frame) []domain.Frame {
	t.Helper()
	raw, err := json.Marshal(frames)
	require.NoError(t, err)
	var out []domain.Frame
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func toolResults(s domain.ExecutionState, capability string) []domain.Turn {
	var out []domain.Turn
	for _, turn := range s.Turns {
		if turn.Kind == domain.TurnToolResult && turn.Capability == capability {
			out = append(out, turn)
		}
	}
	return out
}

func TestScenarioA_NutritionDelegationWithQuestion(t *testing.T) {
	ctx := context.Background()
	request := "Log my breakfast: 2 eggs and toast."
	oracle := scripted.New(
		scripted.Call("jarvis", "nutrition_handler", map[string]any{"request": request}),
		scripted.Answer("nutrition", "What meal type?"),
		scripted.Call("nutrition", "write_food_entry", map[string]any{"food": "2 eggs and toast", "meal_type": "breakfast"}),
		scripted.Calls("jarvis", "Logged your breakfast: 2 eggs and toast.",
			domain.Invocation{Name: "task_complete", Args: map[string]any{"summary": "breakfast logged"}}),
	)
	j := &journal{}
	jarvis := newJarvis(t, oracle, []registry.Capability{newNutrition(t, oracle, j).Capability(), taskComplete()})

	res, err := jarvis.Run(ctx, domain.NewState(domain.UserTurn(request)))
	require.NoError(t, err)
	require.True(t, res.Suspended())
	assert.Equal(t, "What meal type?", res.Question)
	require.Len(t, res.Frames, 2)
	assert.Equal(t, domain.Frame{Graph: "jarvis", Node: agent.NodeExecute}, domain.Frame{Graph: res.Frames[0].Graph, Node: res.Frames[0].Node})
	assert.Equal(t, domain.Frame{Graph: "nutrition", Node: agent.NodeDecide}, domain.Frame{Graph: res.Frames[1].Graph, Node: res.Frames[1].Node})
	assert.Zero(t, j.len(), "nothing is logged before the question is answered")

	res, err = jarvis.Resume(ctx, roundTrip(t, res.Frames), "breakfast")
	require.NoError(t, err)
	assert.Equal(t, graph.StatusTerminal, res.Status)
	assert.True(t, res.State.Complete)

	require.Equal(t, 1, j.len())
	assert.Equal(t, "breakfast", j.entries[0]["meal_type"])

	answer, isErr := res.State.FinalAnswer()
	assert.False(t, isErr)
	assert.Equal(t, "Logged your breakfast: 2 eggs and toast.", answer)

	confirmations := 0
	for _, turn := range res.State.Turns {
		if turn.Kind == domain.TurnAssistant && turn.Text == answer {
			confirmations++
		}
	}
	assert.Equal(t, 1, confirmations)

	reqs := oracle.Requests()
	require.Len(t, reqs, 4)
	assert.Equal(t, "nutrition", reqs[2].Agent)
	last := reqs[2].Turns[len(reqs[2].Turns)-1]
	assert.Equal(t, domain.UserTurn("breakfast"), last, "the resume value reaches the sub-agent as the human's reply")

	results := toolResults(res.State, "nutrition_handler")
	require.Len(t, results, 1)
	assert.Equal(t, "Food logged: 2 eggs and toast (breakfast)", results[0].Text)
}

func sendEmail(sent *atomic.Int32) registry.Capability {
	return registry.Capability{
		Descriptor: domain.CapabilityDescriptor{Name: "send_email", RequiresApproval: true},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			sent.Add(1)
			return domain.OK(fmt.Sprintf("Email sent to %v", args["to"])), nil
		},
	}
}

func TestScenarioB_SendNeedsApproval(t *testing.T) {
	ctx := context.Background()
	args := map[string]any{"to": "bob@example.com", "subject": "Lunch", "body": "Lunch at noon?"}

	t.Run("Approved", func(t *testing.T) {
		var sent atomic.Int32
		oracle := scripted.New(
			scripted.Call("jarvis", "send_email", args),
			scripted.Answer("jarvis", "Sent your email to Bob."),
		)
		g := newJarvis(t, oracle, []registry.Capability{sendEmail(&sent)})

		res, err := g.Run(ctx, domain.NewState(domain.UserTurn("Email Bob about lunch")))
		require.NoError(t, err)
		require.True(t, res.Suspended())
		assert.Contains(t, res.Question, "Approval needed for send_email")
		assert.Contains(t, res.Question, "bob@example.com")
		assert.Zero(t, sent.Load(), "send must never run before approval")
		assert.Empty(t, toolResults(res.State, "send_email"))

		res, err = g.Resume(ctx, roundTrip(t, res.Frames), "yes")
		require.NoError(t, err)
		assert.Equal(t, graph.StatusTerminal, res.Status)
		assert.Equal(t, int32(1), sent.Load())

		approvalIdx, resultIdx := -1, -1
		for i, turn := range res.State.Turns {
			if turn.Kind == domain.TurnUser && turn.Text == "yes" {
				approvalIdx = i
			}
			if turn.Kind == domain.TurnToolResult && turn.Capability == "send_email" {
				resultIdx = i
			}
		}
		require.NotEqual(t, -1, approvalIdx)
		require.NotEqual(t, -1, resultIdx)
		assert.Less(t, approvalIdx, resultIdx, "the approval turn precedes the send")
		assert.False(t, res.State.Turns[resultIdx].IsError)
	})

	t.Run("Declined", func(t *testing.T) {
		var sent atomic.Int32
		oracle := scripted.New(
			scripted.Call("jarvis", "send_email", args),
			scripted.Answer("jarvis", "Okay, I won't send it."),
		)
		g := newJarvis(t, oracle, []registry.Capability{sendEmail(&sent)})

		res, err := g.Run(ctx, domain.NewState(domain.UserTurn("Email Bob about lunch")))
		require.NoError(t, err)
		require.True(t, res.Suspended())

		res, err = g.Resume(ctx, res.Frames, "no, don't")
		require.NoError(t, err)
		assert.Zero(t, sent.Load())

		results := toolResults(res.State, "send_email")
		require.Len(t, results, 1)
		assert.True(t, results[0].IsError)
		assert.Contains(t, results[0].Text, "Denied")
	})

	t.Run("Revise", func(t *testing.T) {
		var sent atomic.Int32
		oracle := scripted.New(
			scripted.Call("jarvis", "send_email", args),
			scripted.Answer("jarvis", "Sure, what should the new subject be?"),
		)
		g := newJarvis(t, oracle, []registry.Capability{sendEmail(&sent)})

		res, err := g.Run(ctx, domain.NewState(domain.UserTurn("Email Bob about lunch")))
		require.NoError(t, err)

		res, err = g.Resume(ctx, res.Frames, "change the subject first")
		require.NoError(t, err)
		assert.Zero(t, sent.Load())
		results := toolResults(res.State, "send_email")
		require.Len(t, results, 1)
		assert.Contains(t, results[0].Text, "change the subject first")
	})
}

func TestScenarioC_IterationCeiling(t *testing.T) {
	var calls atomic.Int32
	oracle := scripted.Repeating(scripted.Call("jarvis", "noop", nil))
	g := newJarvis(t, oracle, []registry.Capability{noop(&calls)}, agent.WithMaxIterations(3))

	res, err := g.Run(context.Background(), domain.NewState(domain.UserTurn("spin")))
	require.NoError(t, err)
	assert.Equal(t, graph.StatusTerminal, res.Status)
	assert.Equal(t, 3, oracle.Calls(), "exactly three decision cycles")
	assert.GreaterOrEqual(t, res.State.IterationCount, 3)
	assert.Equal(t, int32(2), calls.Load(), "the third batch is not executed")

	last, _ := res.State.LastTurn()
	assert.Equal(t, domain.TurnSystem, last.Kind)
	assert.Contains(t, last.Text, "Maximum iterations (3) reached")
}

func TestTerminationSafety_AnyCeiling(t *testing.T) {
	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprintf("max=%d", n), func(t *testing.T) {
			var calls atomic.Int32
			oracle := scripted.Repeating(scripted.Call("", "noop", nil))

			var counts []int
			ctx := graph.WithHooks(context.Background(), domain.LifecycleHooks{
				OnToolCall: func(context.Context, *domain.ToolEvent) {
					counts = append(counts, oracle.Calls())
				},
			})
			g := newJarvis(t, oracle, []registry.Capability{noop(&calls)}, agent.WithMaxIterations(n))

			res, err := g.Run(ctx, domain.NewState(domain.UserTurn("spin")))
			require.NoError(t, err)
			assert.Equal(t, n, oracle.Calls())
			assert.Equal(t, n, res.State.IterationCount)
			assert.IsNonDecreasing(t, counts)
			for _, c := range counts {
				assert.Less(t, c, n, "no batch runs at or past the ceiling")
			}
		})
	}
}

func TestCompletionSentinel_WinsAtCeiling(t *testing.T) {
	var calls atomic.Int32
	oracle := scripted.New(
		scripted.Call("jarvis", "noop", nil),
		scripted.Calls("jarvis", "All done.",
			domain.Invocation{Name: "task_complete", Args: map[string]any{"summary": "done"}},
			domain.Invocation{Name: "noop"},
		),
	)
	g := newJarvis(t, oracle, []registry.Capability{noop(&calls), taskComplete()}, agent.WithMaxIterations(2))

	res, err := g.Run(context.Background(), domain.NewState(domain.UserTurn("finish")))
	require.NoError(t, err)
	assert.True(t, res.State.Complete)
	assert.Greater(t, res.State.IterationCount, 2, "forced past the ceiling")
	assert.Equal(t, int32(2), calls.Load(), "the batch executes fully before termination")
	assert.Equal(t, 2, oracle.Calls())

	for _, turn := range res.State.Turns {
		assert.NotContains(t, turn.Text, "Maximum iterations")
	}
	answer, _ := res.State.FinalAnswer()
	assert.Equal(t, "All done.", answer)
}

func TestDelegationRoundTrip(t *testing.T) {
	payload := "What's on my calendar tomorrow?"

	for _, escalated := range []string{payload, ""} {
		t.Run(fmt.Sprintf("escalated=%q", escalated), func(t *testing.T) {
			oracle := scripted.New(
				scripted.Call("jarvis", "nutrition_handler", map[string]any{"request": payload}),
				scripted.Call("nutrition", agent.EscalateName, map[string]any{"request": escalated}),
				scripted.Answer("jarvis", "You have a dentist appointment at 9."),
			)
			j := &journal{}
			g := newJarvis(t, oracle, []registry.Capability{newNutrition(t, oracle, j).Capability()})

			res, err := g.Run(context.Background(), domain.NewState(domain.UserTurn(payload)))
			require.NoError(t, err)
			assert.Equal(t, graph.StatusTerminal, res.Status)

			reqs := oracle.Requests()
			require.Len(t, reqs, 3)
			next := reqs[2].Turns[len(reqs[2].Turns)-1]
			assert.Equal(t, domain.TurnUser, next.Kind)
			assert.Equal(t, payload, next.Text, "the next top-level user turn is the payload, verbatim")
			assert.Zero(t, j.len())
		})
	}
}

func TestDelegation_EmptyPayloadReprompts(t *testing.T) {
	handoff := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{Name: "handoff"},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			return domain.Delegate(""), nil
		},
	}
	oracle := scripted.New(
		scripted.Call("jarvis", "handoff", nil),
		scripted.Answer("jarvis", "How can I help?"),
	)
	g := newJarvis(t, oracle, []registry.Capability{handoff})

	res, err := g.Run(context.Background(), domain.NewState(domain.UserTurn("hm")))
	require.NoError(t, err)
	assert.Equal(t, graph.StatusTerminal, res.Status)

	reqs := oracle.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1].Turns[len(reqs[1].Turns)-1]
	assert.Equal(t, domain.SystemNote(agent.RepromptText), last)
}

func TestDelegation_SurvivesLaterSuspension(t *testing.T) {
	ctx := context.Background()
	request := "book a dentist appointment"
	handoff := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{Name: "fitness_handler"},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			return domain.Delegate(request), nil
		},
	}
	delegatedTurns := func(s domain.ExecutionState) int {
		n := 0
		for _, turn := range s.Turns {
			if turn.Kind == domain.TurnUser && turn.Text == request {
				n++
			}
		}
		return n
	}

	t.Run("ApprovalGate", func(t *testing.T) {
		var sent atomic.Int32
		oracle := scripted.New(
			scripted.Calls("jarvis", "",
				domain.Invocation{Name: "fitness_handler"},
				domain.Invocation{Name: "send_email", Args: map[string]any{"to": "bob@example.com"}},
			),
			scripted.Answer("jarvis", "ok"),
		)
		g := newJarvis(t, oracle, []registry.Capability{handoff, sendEmail(&sent)})

		res, err := g.Run(ctx, domain.NewState(domain.UserTurn("hi")))
		require.NoError(t, err)
		require.True(t, res.Suspended())
		assert.Zero(t, delegatedTurns(res.State), "delegations wait for the batch to finish")

		res, err = g.Resume(ctx, roundTrip(t, res.Frames), "yes")
		require.NoError(t, err)
		assert.Equal(t, graph.StatusTerminal, res.Status)
		assert.Equal(t, int32(1), sent.Load())
		assert.Equal(t, 1, delegatedTurns(res.State))

		reqs := oracle.Requests()
		require.Len(t, reqs, 2)
		last := reqs[1].Turns[len(reqs[1].Turns)-1]
		assert.Equal(t, domain.UserTurn(request), last)
		_, pending := res.State.Scratch["dispatch_delegated"]
		assert.False(t, pending)
	})

	t.Run("SubAgentQuestion", func(t *testing.T) {
		oracle := scripted.New(
			scripted.Calls("jarvis", "",
				domain.Invocation{Name: "fitness_handler"},
				domain.Invocation{Name: "nutrition_handler", Args: map[string]any{"request": "log 2 eggs"}},
			),
			scripted.Answer("nutrition", "Which meal?"),
			scripted.Call("nutrition", "write_food_entry", map[string]any{"food": "2 eggs", "meal_type": "breakfast"}),
			scripted.Answer("jarvis", "Logged. About the dentist..."),
		)
		j := &journal{}
		g := newJarvis(t, oracle, []registry.Capability{handoff, newNutrition(t, oracle, j).Capability()})

		res, err := g.Run(ctx, domain.NewState(domain.UserTurn("hi")))
		require.NoError(t, err)
		require.True(t, res.Suspended())
		assert.Equal(t, "Which meal?", res.Question)

		res, err = g.Resume(ctx, roundTrip(t, res.Frames), "breakfast")
		require.NoError(t, err)
		assert.Equal(t, graph.StatusTerminal, res.Status)
		assert.Equal(t, 1, j.len())
		assert.Equal(t, 1, delegatedTurns(res.State))
	})
}

func TestOracleFailure_EndsWithErrorTurn(t *testing.T) {
	oracle := scripted.New(scripted.Fail("jarvis", errors.New("connection refused")))
	g := newJarvis(t, oracle, nil)

	res, err := g.Run(context.Background(), domain.NewState(domain.UserTurn("hi")))
	require.NoError(t, err, "oracle failures are turns, not engine errors")
	assert.Equal(t, graph.StatusTerminal, res.Status)
	answer, isErr := res.State.FinalAnswer()
	assert.True(t, isErr)
	assert.Contains(t, answer, "connection refused")
	assert.Equal(t, 1, oracle.Calls(), "no retry")
}

func TestSubAgentOracleFailure_IsToolError(t *testing.T) {
	oracle := scripted.New(
		scripted.Call("jarvis", "nutrition_handler", map[string]any{"request": "log lunch"}),
		scripted.Fail("nutrition", errors.New("connection refused")),
		scripted.Answer("jarvis", "The nutrition log is unavailable right now."),
	)
	var returned []domain.Result
	hooks := domain.LifecycleHooks{
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			returned = append(returned, *e.Result)
		},
	}
	g := newJarvis(t, oracle, []registry.Capability{newNutrition(t, oracle, &journal{}).Capability()})

	res, err := g.Run(graph.WithHooks(context.Background(), hooks), domain.NewState(domain.UserTurn("log lunch")))
	require.NoError(t, err)
	assert.Equal(t, graph.StatusTerminal, res.Status)

	results := toolResults(res.State, "nutrition_handler")
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
	assert.Contains(t, results[0].Text, "connection refused")
	require.Len(t, returned, 1)
	assert.Equal(t, domain.ResultError, returned[0].Kind)
}

func TestOracleTimeout(t *testing.T) {
	oracle := scripted.New(scripted.Step{Agent: "jarvis", Delay: time.Second, Decision: scripted.Answer("", "late").Decision})
	g := newJarvis(t, oracle, nil, agent.WithOracleTimeout(20*time.Millisecond))

	start := time.Now()
	res, err := g.Run(context.Background(), domain.NewState(domain.UserTurn("hi")))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	answer, isErr := res.State.FinalAnswer()
	assert.True(t, isErr)
	assert.Contains(t, answer, "deadline exceeded")
}

func TestCapabilityFailure_RunContinues(t *testing.T) {
	flaky := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{Name: "flaky"},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			return domain.Result{}, errors.New("backend down")
		},
	}
	oracle := scripted.New(
		scripted.Call("jarvis", "flaky", nil),
		scripted.Call("jarvis", "missing", nil),
		scripted.Answer("jarvis", "Sorry, that failed."),
	)
	g := newJarvis(t, oracle, []registry.Capability{flaky})

	res, err := g.Run(context.Background(), domain.NewState(domain.UserTurn("try")))
	require.NoError(t, err)
	answer, isErr := res.State.FinalAnswer()
	assert.False(t, isErr)
	assert.Equal(t, "Sorry, that failed.", answer)

	results := toolResults(res.State, "flaky")
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
	assert.Equal(t, "Error: backend down", results[0].Text)

	missing := toolResults(res.State, "missing")
	require.Len(t, missing, 1)
	assert.Contains(t, missing[0].Text, "capability not found")
}

type enabledMap map[string]bool

func (m enabledMap) IsEnabled(name string) bool {
	v, ok := m[name]
	return !ok || v
}

func TestDisabledCapability_HiddenAndRefused(t *testing.T) {
	var calls atomic.Int32
	reg := registry.New(registry.WithEnabledSource(enabledMap{"noop": false}))
	reg.MustRegister(noop(&calls), taskComplete())
	oracle := scripted.New(
		scripted.Call("jarvis", "noop", nil),
		scripted.Answer("jarvis", "ok"),
	)
	g, err := agent.New("jarvis", oracle, reg)
	require.NoError(t, err)

	res, err := g.Run(context.Background(), domain.NewState(domain.UserTurn("x")))
	require.NoError(t, err)
	assert.Zero(t, calls.Load())

	for _, d := range oracle.Requests()[0].Capabilities {
		assert.NotEqual(t, "noop", d.Name)
	}
	results := toolResults(res.State, "noop")
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Text, "capability disabled")
}

func TestResumeEquivalence(t *testing.T) {
	script := func() *scripted.Oracle {
		return scripted.New(
			scripted.Call("jarvis", "nutrition_handler", map[string]any{"request": "log lunch"}),
			scripted.Answer("nutrition", "What did you eat?"),
			scripted.Call("nutrition", "write_food_entry", map[string]any{"food": "salad", "meal_type": "lunch"}),
			scripted.Answer("jarvis", "Logged."),
		)
	}
	run := func(serialize bool) domain.ExecutionState {
		oracle := script()
		g := newJarvis(t, oracle, []registry.Capability{newNutrition(t, oracle, &journal{}).Capability()})
		res, err := g.Run(context.Background(), domain.NewState(domain.UserTurn("log lunch")))
		require.NoError(t, err)
		require.True(t, res.Suspended())
		frames := res.Frames
		if serialize {
			frames = roundTrip(t, frames)
		}
		res, err = g.Resume(context.Background(), frames, "salad")
		require.NoError(t, err)
		return res.State
	}

	strip := func(s domain.ExecutionState) []string {
		var out []string
		for _, turn := range s.Turns {
			out = append(out, string(turn.Kind)+":"+turn.Text)
		}
		return out
	}

	direct, restored := run(false), run(true)
	assert.Equal(t, strip(direct), strip(restored))
	assert.Equal(t, direct.IterationCount, restored.IterationCount)
	_, hasCursor := restored.Scratch["dispatch_cursor"]
	assert.False(t, hasCursor, "cursor is cleared once the batch finishes")
}

func TestContextProvider_SeesStateBeingDecided(t *testing.T) {
	oracle := scripted.New(
		scripted.Call("jarvis", "task_complete", map[string]any{"summary": "done"}),
		scripted.Answer("jarvis", "Done."),
	)
	var seen []string
	provider := func(ctx context.Context, s domain.ExecutionState) string {
		seen = append(seen, fmt.Sprintf("%d turns", len(s.Turns)))
		return "recalled: " + s.LastUserText()
	}
	g := newJarvis(t, oracle, []registry.Capability{taskComplete()}, agent.WithContextProvider(provider))

	_, err := g.Run(context.Background(), domain.NewState(domain.UserTurn("remember the milk")))
	require.NoError(t, err)

	reqs := oracle.Requests()
	require.NotEmpty(t, reqs)
	assert.Equal(t, "recalled: remember the milk", reqs[0].Context)
	assert.Equal(t, "1 turns", seen[0])
}
