package scripted_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/jarvis/pkg/adapters/scripted"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ask(agent, text string) ports.OracleRequest {
	return ports.OracleRequest{Agent: agent, Turns: []domain.Turn{domain.UserTurn(text)}}
}

func TestOracle_ReplaysInOrderThenExhausts(t *testing.T) {
	o := scripted.New(
		scripted.Call("jarvis", "think_tool", map[string]any{"thought": "plan"}),
		scripted.Answer("jarvis", "Done."),
	)
	ctx := context.Background()

	d, err := o.Decide(ctx, ask("jarvis", "hi"))
	require.NoError(t, err)
	require.Len(t, d.Invocations, 1)
	assert.Equal(t, "think_tool", d.Invocations[0].Name)

	d, err = o.Decide(ctx, ask("jarvis", "again"))
	require.NoError(t, err)
	assert.Equal(t, "Done.", d.Text)
	assert.Empty(t, d.Invocations)

	_, err = o.Decide(ctx, ask("jarvis", "more"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script exhausted at step 3")

	assert.Equal(t, 2, o.Calls())
	require.Len(t, o.Requests(), 3)
	assert.Equal(t, "again", o.Requests()[1].Turns[0].Text)
}

func TestOracle_AgentMismatch(t *testing.T) {
	o := scripted.New(scripted.Answer("nutrition", "Which meal?"))

	_, err := o.Decide(context.Background(), ask("jarvis", "hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected agent "nutrition", got "jarvis"`)
}

func TestOracle_FailStep(t *testing.T) {
	boom := errors.New("connection refused")
	o := scripted.New(scripted.Fail("jarvis", boom))

	_, err := o.Decide(context.Background(), ask("jarvis", "hi"))
	assert.ErrorIs(t, err, boom)
}

func TestRepeating_ReplaysLastStep(t *testing.T) {
	o := scripted.Repeating(scripted.Answer("", "first"), scripted.Answer("", "again"))

	var texts []string
	for range 4 {
		d, err := o.Decide(context.Background(), ask("any", "hi"))
		require.NoError(t, err)
		texts = append(texts, d.Text)
	}
	assert.Equal(t, []string{"first", "again", "again", "again"}, texts)

	_, err := scripted.Repeating().Decide(context.Background(), ask("any", "hi"))
	assert.Error(t, err, "an empty script has nothing to repeat")
}

func TestOracle_DelayHonorsCancellation(t *testing.T) {
	o := scripted.New(scripted.Step{Decision: ports.Decision{Text: "late"}, Delay: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := o.Decide(ctx, ask("jarvis", "hi"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOracle_DecisionsAndRequestsAreIsolated(t *testing.T) {
	args := map[string]any{"text": "original"}
	o := scripted.Repeating(scripted.Call("", "echo", args))

	d, err := o.Decide(context.Background(), ask("jarvis", "hi"))
	require.NoError(t, err)
	d.Invocations[0].Args["text"] = "mutated"

	d, err = o.Decide(context.Background(), ask("jarvis", "hi"))
	require.NoError(t, err)
	assert.Equal(t, "original", d.Invocations[0].Args["text"])
	assert.Equal(t, "original", args["text"])

	req := ask("jarvis", "before")
	_, err = o.Decide(context.Background(), req)
	require.NoError(t, err)
	req.Turns[0].Text = "after"
	assert.Equal(t, "before", o.Requests()[2].Turns[0].Text)
}

func TestOracle_ConcurrentUse(t *testing.T) {
	o := scripted.Repeating(scripted.Answer("", "ok"))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Decide(context.Background(), ask("jarvis", "hi"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, o.Calls())
	assert.Len(t, o.Requests(), 16)
}

func TestEcho_RepeatsLastUserText(t *testing.T) {
	req := ports.OracleRequest{Turns: []domain.Turn{
		domain.UserTurn("first"),
		domain.AssistantTurn("reply"),
		domain.UserTurn("second"),
	}}

	d, err := scripted.Echo{}.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "(offline) You said: second", d.Text)
	assert.Empty(t, d.Invocations)
}
