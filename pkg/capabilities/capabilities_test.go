package capabilities_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/jarvis/pkg/adapters/memory"
	"github.com/aretw0/jarvis/pkg/adapters/scripted"
	"github.com/aretw0/jarvis/pkg/capabilities"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/graph"
	"github.com/aretw0/jarvis/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newServices() capabilities.Services {
	return capabilities.Services{
		Profiles: memory.NewProfiles(),
		Journal:  memory.NewJournal(),
		Calendar: memory.NewCalendar(),
		Mailbox: memory.NewMailbox("me@example.com",
			domain.Email{ID: "m1", From: "john@example.com", To: "me@example.com", Subject: "Project update", Body: "Can you send the report?", Timestamp: fixedNow.Add(-time.Hour)}),
		Now: func() time.Time { return fixedNow },
	}
}

func invoke(t *testing.T, reg *registry.Registry, name string, args map[string]any) domain.Result {
	t.Helper()
	res, err := reg.Invoke(capabilities.WithUser(context.Background(), "ada"), domain.Invocation{Name: name, Args: args})
	require.NoError(t, err)
	return res
}

func TestBuiltins(t *testing.T) {
	reg := registry.New().MustRegister(capabilities.Think(), capabilities.TaskComplete())

	assert.Equal(t, domain.OK("Reflection: plan first"), invoke(t, reg, "think_tool", map[string]any{"thought": "plan first"}))
	assert.Equal(t, domain.OK("Task Complete: all done"), invoke(t, reg, "task_complete", map[string]any{"summary": " all done "}))

	c, ok := reg.Lookup("task_complete")
	require.True(t, ok)
	assert.True(t, c.Descriptor.Completes)
}

func TestCoreMemory(t *testing.T) {
	svc := newServices()
	reg := registry.New().MustRegister(capabilities.CoreMemory(svc.Profiles)...)

	res := invoke(t, reg, "update_core_memory", map[string]any{"category": "Health", "key": "allergies", "value": "peanuts"})
	assert.Equal(t, domain.OK("Updated core memory: health.allergies = peanuts"), res)
	invoke(t, reg, "update_core_memory", map[string]any{"category": "identity", "key": "name", "value": "Ada"})

	res = invoke(t, reg, "update_core_memory", map[string]any{"category": "hobbies", "key": "x", "value": "y"})
	assert.Equal(t, domain.ResultError, res.Kind)

	res = invoke(t, reg, "get_core_memory_info", map[string]any{"category": "health"})
	assert.Equal(t, "HEALTH:\n  - allergies: peanuts", res.Text)

	res = invoke(t, reg, "get_core_memory_info", map[string]any{"category": "work"})
	assert.Equal(t, "No core memory found for category: work", res.Text)

	ctx := capabilities.WithUser(context.Background(), "ada")
	text := capabilities.MemoryContext(svc.Profiles, nil)(ctx, domain.NewState(domain.UserTurn("hi")))
	assert.Equal(t, "=== CORE MEMORY ===\n\nIDENTITY:\n  - name: Ada\n\nHEALTH:\n  - allergies: peanuts", text)

	assert.Empty(t, capabilities.MemoryContext(svc.Profiles, nil)(context.Background(), domain.ExecutionState{}), "other users see nothing")
}

func TestCalendarTools(t *testing.T) {
	svc := newServices()
	reg := registry.New().MustRegister(capabilities.CalendarTools(svc)...)

	res := invoke(t, reg, "create_calendar_event", map[string]any{"title": "Dentist", "start_time": "tomorrow at 9am", "duration_minutes": "30"})
	require.Equal(t, domain.ResultOK, res.Kind, res.Text)
	assert.Contains(t, res.Text, "Dentist on Sat Oct 17, 09:00-09:30")

	res = invoke(t, reg, "list_calendar_events", map[string]any{"date": "tomorrow"})
	require.Equal(t, domain.ResultOK, res.Kind)
	assert.Contains(t, res.Text, "1. Dentist")

	id := between(res.Text, "[id: ", "]")
	res = invoke(t, reg, "update_calendar_event", map[string]any{"event_id": id, "new_time": "tomorrow at 10:00"})
	require.Equal(t, domain.ResultOK, res.Kind, res.Text)
	assert.Contains(t, res.Text, "10:00-10:30", "duration is kept")

	res = invoke(t, reg, "delete_calendar_event", map[string]any{"event_title": "dentist"})
	assert.Equal(t, domain.ResultOK, res.Kind, res.Text)

	res = invoke(t, reg, "list_calendar_events", nil)
	assert.Contains(t, res.Text, "No events")

	res = invoke(t, reg, "create_calendar_event", map[string]any{"title": "x", "start_time": "someday"})
	assert.Equal(t, domain.ResultError, res.Kind)
}

func TestNutritionTools(t *testing.T) {
	svc := newServices()
	reg := registry.New().MustRegister(capabilities.NutritionTools(svc)...)

	res := invoke(t, reg, "write_food_entry", map[string]any{"food": "Oatmeal", "quantity": "1 cup", "meal_type": "breakfast", "calories": 300, "protein": "10"})
	require.Equal(t, domain.ResultOK, res.Kind, res.Text)
	assert.Equal(t, "Food logged: Oatmeal (1 cup) - Breakfast | 300 cal | P: 10g", res.Text)

	res = invoke(t, reg, "write_food_entry", map[string]any{"food": "Cake", "meal_type": "brunch"})
	assert.Equal(t, domain.ResultError, res.Kind)

	invoke(t, reg, "write_food_entry", map[string]any{"food": "Salad", "meal_type": "Lunch", "calories": 500, "protein": 30})

	res = invoke(t, reg, "read_food_history", nil)
	assert.Contains(t, res.Text, "Friday, October 16, 2026")
	assert.Contains(t, res.Text, "Daily total: 800 cal | P: 40g")

	res = invoke(t, reg, "calculate_nutrition_stats", map[string]any{"days": 3})
	assert.Contains(t, res.Text, "Calories: 800 cal")
	assert.Contains(t, res.Text, "Days tracked: 1")

	res = invoke(t, reg, "get_meal_suggestions", map[string]any{"meal_type": "SNACK"})
	assert.True(t, strings.HasPrefix(res.Text, "Snack suggestions:"))
}

func TestWorkoutTools(t *testing.T) {
	svc := newServices()
	reg := registry.New().MustRegister(capabilities.WorkoutTools(svc)...)

	res := invoke(t, reg, "write_workout_entry", map[string]any{"exercise": "Bench Press", "sets": 3, "reps": 10, "weight": 60})
	require.Equal(t, domain.ResultOK, res.Kind, res.Text)
	assert.Equal(t, "Workout logged: Bench Press 3x10 @ 60kg", res.Text)

	res = invoke(t, reg, "write_workout_entry", map[string]any{"exercise": "Plank"})
	assert.Equal(t, domain.ResultError, res.Kind)

	invoke(t, reg, "write_workout_entry", map[string]any{"exercise": "Running", "distance": 5, "duration": 30})

	res = invoke(t, reg, "calculate_workout_stats", nil)
	assert.Contains(t, res.Text, "Volume: 1800 kg")
	assert.Contains(t, res.Text, "Distance: 5.0 km")

	res = invoke(t, reg, "get_exercise_suggestions", map[string]any{"muscle_group": "Legs"})
	assert.Equal(t, "Exercises for legs: Squats, Lunges, Leg Press", res.Text)
}

func TestGmailHandler_SendNeedsApproval(t *testing.T) {
	request := "Email bob@example.com asking about lunch at noon"
	email := map[string]any{"to": "bob@example.com", "subject": "Lunch", "body": "Lunch at noon?"}

	t.Run("Approved", func(t *testing.T) {
		svc := newServices()
		oracle := scripted.New(
			scripted.Call(capabilities.MainAgent, "gmail_handler", map[string]any{"request": request}),
			scripted.Call("gmail", "send_email", email),
			scripted.Answer(capabilities.MainAgent, "Sent your email to Bob."),
		)
		g, _, err := capabilities.Assemble(oracle, svc, capabilities.Config{})
		require.NoError(t, err)

		res, err := g.Run(context.Background(), domain.NewState(domain.UserTurn(request)))
		require.NoError(t, err)
		require.True(t, res.Suspended())
		assert.Contains(t, res.Question, "Approval needed for send_email")
		require.Len(t, res.Frames, 2)
		assert.Equal(t, "gmail", res.Frames[1].Graph)
		assert.Empty(t, svc.Mailbox.(*memory.Mailbox).Outbox())

		res, err = g.Resume(context.Background(), res.Frames, "yes")
		require.NoError(t, err)
		assert.Equal(t, graph.StatusTerminal, res.Status)
		outbox := svc.Mailbox.(*memory.Mailbox).Outbox()
		require.Len(t, outbox, 1)
		assert.Equal(t, "bob@example.com", outbox[0].To)

		answer, _ := res.State.FinalAnswer()
		assert.Equal(t, "Sent your email to Bob.", answer)
	})

	t.Run("Declined", func(t *testing.T) {
		svc := newServices()
		oracle := scripted.New(
			scripted.Call(capabilities.MainAgent, "gmail_handler", map[string]any{"request": request}),
			scripted.Call("gmail", "send_email", email),
			scripted.Calls("gmail", "Okay, I won't send it.",
				domain.Invocation{Name: "task_complete", Args: map[string]any{"summary": "email not sent"}}),
			scripted.Answer(capabilities.MainAgent, "I did not send the email."),
		)
		g, _, err := capabilities.Assemble(oracle, svc, capabilities.Config{})
		require.NoError(t, err)

		res, err := g.Run(context.Background(), domain.NewState(domain.UserTurn(request)))
		require.NoError(t, err)
		res, err = g.Resume(context.Background(), res.Frames, "no")
		require.NoError(t, err)
		assert.Equal(t, graph.StatusTerminal, res.Status)
		assert.Empty(t, svc.Mailbox.(*memory.Mailbox).Outbox())

		reqs := oracle.Requests()
		require.Len(t, reqs, 4)
		last := reqs[2].Turns[len(reqs[2].Turns)-1]
		assert.True(t, last.IsError)
		assert.Contains(t, last.Text, "Denied")
	})
}

func TestGmailTools_SearchAndReply(t *testing.T) {
	svc := newServices()
	reg := registry.New().MustRegister(capabilities.GmailTools(svc)...)

	res := invoke(t, reg, "search_emails", map[string]any{"sender": "john"})
	assert.Contains(t, res.Text, "[m1] From: john@example.com | Subject: Project update")

	res = invoke(t, reg, "search_emails", map[string]any{"sender": "john", "subject": "invoice"})
	assert.Contains(t, res.Text, "No emails found")

	res = invoke(t, reg, "read_email", map[string]any{"email_id": "m1"})
	assert.Contains(t, res.Text, "Can you send the report?")

	res = invoke(t, reg, "compose_reply", map[string]any{"email_id": "m1", "body": "Attached."})
	require.Equal(t, domain.ResultOK, res.Kind, res.Text)
	assert.Contains(t, res.Text, "To: john@example.com\nSubject: Re: Project update")
	assert.Empty(t, svc.Mailbox.(*memory.Mailbox).Outbox(), "drafting sends nothing")

	res = invoke(t, reg, "compose_email", map[string]any{"to": "not-an-address", "subject": "x", "body": "y"})
	assert.Equal(t, domain.ResultError, res.Kind)
}

type keys map[string]bool

func (k keys) IsEnabled(name string) bool {
	v, ok := k[name]
	return !ok || v
}

func TestAssemble_GroupsFollowConfigKeys(t *testing.T) {
	svc := newServices()
	oracle := scripted.New()
	_, reg, err := capabilities.Assemble(oracle, svc, capabilities.Config{Enabled: keys{"calendar": false, "workout_handler": false}})
	require.NoError(t, err)

	var names []string
	for _, d := range reg.Descriptors() {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "update_core_memory")
	assert.Contains(t, names, "nutrition_handler")
	assert.Contains(t, names, "gmail_handler")
	assert.NotContains(t, names, "list_calendar_events")
	assert.NotContains(t, names, "workout_handler")

	assert.Equal(t, "calendar", capabilities.GroupKey("delete_calendar_event"))
	assert.Equal(t, "think_tool", capabilities.GroupKey("think_tool"))

	c, ok := reg.Lookup("nutrition_handler")
	require.True(t, ok)
	assert.Equal(t, capabilities.SubAgentTimeout, c.Descriptor.Timeout)
}

func TestAssemble_SkipsMissingBackends(t *testing.T) {
	_, reg, err := capabilities.Assemble(scripted.New(), capabilities.Services{}, capabilities.Config{})
	require.NoError(t, err)
	var names []string
	for _, d := range reg.All() {
		names = append(names, d.Name)
	}
	assert.ElementsMatch(t, []string{"think_tool", "task_complete"}, names)
}

func between(s, start, end string) string {
	_, rest, _ := strings.Cut(s, start)
	out, _, _ := strings.Cut(rest, end)
	return out
}
