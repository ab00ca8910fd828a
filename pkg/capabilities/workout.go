package capabilities

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/jarvis/pkg/agent"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/registry"
	"github.com/google/uuid"
)

var exerciseSuggestions = map[string][]string{
	"chest":     {"Bench Press", "Push-ups", "Dumbbell Flyes"},
	"back":      {"Pull-ups", "Rows", "Deadlifts"},
	"legs":      {"Squats", "Lunges", "Leg Press"},
	"arms":      {"Bicep Curls", "Tricep Dips", "Hammer Curls"},
	"shoulders": {"Overhead Press", "Lateral Raises", "Face Pulls"},
	"core":      {"Planks", "Crunches", "Russian Twists"},
	"cardio":    {"Running", "Cycling", "Rowing"},
}

// WorkoutTools returns the exercise journal tools of the workout sub-agent.
func WorkoutTools(svc Services) []registry.Capability {
	write := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "write_workout_entry",
			Description: "Log an exercise once its details are known. Logging ends the task.",
			Parameters: schema([]string{"exercise"}, map[string]any{
				"exercise": str("Exercise name, e.g. Bench Press or Running."),
				"sets":     integer("Number of sets."),
				"reps":     integer("Repetitions per set."),
				"weight":   num("Weight in kg."),
				"duration": integer("Duration in minutes."),
				"distance": num("Distance in km."),
				"notes":    str("Optional notes."),
			}),
			Completes: true,
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				Exercise string  `mapstructure:"exercise"`
				Sets     float64 `mapstructure:"sets"`
				Reps     float64 `mapstructure:"reps"`
				Weight   float64 `mapstructure:"weight"`
				Duration float64 `mapstructure:"duration"`
				Distance float64 `mapstructure:"distance"`
				Notes    string  `mapstructure:"notes"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			if strings.TrimSpace(in.Exercise) == "" {
				return domain.Failure("exercise is required"), nil
			}
			if in.Sets == 0 && in.Duration == 0 && in.Distance == 0 {
				return domain.Failure("give sets and reps, a duration or a distance"), nil
			}
			entry := domain.JournalEntry{
				ID:       uuid.NewString(),
				UserID:   UserFrom(ctx),
				Kind:     domain.JournalWorkout,
				Title:    in.Exercise,
				Metrics:  nonZero(map[string]float64{"sets": in.Sets, "reps": in.Reps, "weight": in.Weight, "duration": in.Duration, "distance": in.Distance}),
				Notes:    in.Notes,
				LoggedAt: svc.now(),
			}
			if err := svc.Journal.Append(ctx, entry); err != nil {
				return domain.Result{}, err
			}
			return domain.OK("Workout logged: " + formatWorkout(entry)), nil
		},
	}

	history := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "read_workout_history",
			Description: "Show logged workouts of the last days.",
			Parameters:  schema(nil, map[string]any{"days": integer("Days to look back, default 7.")}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			days, err := decodeDays(args)
			if err != nil {
				return domain.Result{}, err
			}
			entries, err := recent(ctx, svc, domain.JournalWorkout, days)
			if err != nil {
				return domain.Result{}, err
			}
			if len(entries) == 0 {
				return domain.OK(fmt.Sprintf("No workouts found in the last %d days.", days)), nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Workout history (last %d days):", days)
			for _, d := range byDay(entries) {
				fmt.Fprintf(&b, "\n\n%s", d.date)
				for _, e := range d.entries {
					fmt.Fprintf(&b, "\n  - %s", formatWorkout(e))
				}
			}
			return domain.OK(b.String()), nil
		},
	}

	suggest := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "get_exercise_suggestions",
			Description: "Suggest exercises for a muscle group.",
			Parameters:  schema(nil, map[string]any{"muscle_group": str("chest, back, legs, arms, shoulders, core or cardio.")}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			group, _ := args["muscle_group"].(string)
			group = strings.ToLower(strings.TrimSpace(group))
			if list, ok := exerciseSuggestions[group]; ok {
				return domain.OK(fmt.Sprintf("Exercises for %s: %s", group, strings.Join(list, ", "))), nil
			}
			groups := make([]string, 0, len(exerciseSuggestions))
			for g := range exerciseSuggestions {
				groups = append(groups, g)
			}
			sort.Strings(groups)
			return domain.OK("Which muscle group: " + strings.Join(groups, ", ") + "?"), nil
		},
	}

	stats := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "calculate_workout_stats",
			Description: "Sessions, sets, volume and time trained over the last days.",
			Parameters:  schema(nil, map[string]any{"days": integer("Days to analyze, default 7.")}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			days, err := decodeDays(args)
			if err != nil {
				return domain.Result{}, err
			}
			entries, err := recent(ctx, svc, domain.JournalWorkout, days)
			if err != nil {
				return domain.Result{}, err
			}
			if len(entries) == 0 {
				return domain.OK(fmt.Sprintf("No workout data found in the last %d days.", days)), nil
			}
			var sets, volume, minutes, km float64
			perExercise := map[string]int{}
			for _, e := range entries {
				m := e.Metrics
				sets += m["sets"]
				volume += m["sets"] * m["reps"] * m["weight"]
				minutes += m["duration"]
				km += m["distance"]
				perExercise[e.Title]++
			}
			top, topCount := "", 0
			for name, n := range perExercise {
				if n > topCount || (n == topCount && name < top) {
					top, topCount = name, n
				}
			}
			return domain.OK(fmt.Sprintf(
				"Workout stats (last %d days):\nEntries: %d over %d day(s)\nSets: %.0f\nVolume: %.0f kg\nTime: %.0f min\nDistance: %.1f km\nMost frequent: %s (%d)",
				days, len(entries), len(byDay(entries)), sets, volume, minutes, km, top, topCount)), nil
		},
	}

	return []registry.Capability{write, history, suggest, stats}
}

// Workout builds the workout_handler sub-agent.
func Workout(oracle ports.Oracle, svc Services, opts ...agent.Option) (agent.SubAgent, error) {
	return subAgent("workout", oracle, WorkoutTools(svc), domain.CapabilityDescriptor{
		Name: "workout_handler",
		Description: "Use for ALL workout tasks: logging exercises, workout history, progress, exercise suggestions. " +
			"It asks the user for missing details itself. Example: 'bench press 3x10 at 60kg'.",
	}, opts)
}

func formatWorkout(e domain.JournalEntry) string {
	m := e.Metrics
	s := e.Title
	if m["sets"] > 0 {
		s += fmt.Sprintf(" %.0fx%.0f", m["sets"], m["reps"])
	}
	if m["weight"] > 0 {
		s += fmt.Sprintf(" @ %gkg", m["weight"])
	}
	if m["distance"] > 0 {
		s += fmt.Sprintf(" %gkm", m["distance"])
	}
	if m["duration"] > 0 {
		s += fmt.Sprintf(" %.0f min", m["duration"])
	}
	if e.Notes != "" {
		s += " (" + e.Notes + ")"
	}
	return s
}
