package capabilities

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/jarvis/pkg/agent"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/registry"
	"github.com/google/uuid"
)

// MealTypes are the accepted meal types.
var MealTypes = []string{"Breakfast", "Lunch", "Dinner", "Snack"}

var mealSuggestions = map[string][]string{
	"breakfast": {"Scrambled eggs with whole wheat toast", "Oatmeal with berries and nuts", "Greek yogurt with granola and honey", "Veggie omelet with avocado"},
	"lunch":     {"Grilled chicken with quinoa and vegetables", "Caesar salad with grilled salmon", "Turkey wrap with hummus", "Lentil soup with whole grain bread"},
	"dinner":    {"Baked salmon with asparagus and wild rice", "Lean steak with sweet potato and broccoli", "Chicken curry with brown rice", "Fish tacos with cabbage slaw"},
	"snack":     {"A handful of almonds", "Apple with peanut butter", "Carrots and hummus", "Banana with almond butter"},
}

var macros = []string{"calories", "protein", "carbs", "fats"}

// NutritionTools returns the food journal tools of the nutrition sub-agent.
func NutritionTools(svc Services) []registry.Capability {
	write := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "write_food_entry",
			Description: "Log a food entry once food, quantity and meal type are known. Logging ends the task.",
			Parameters: schema([]string{"food", "meal_type"}, map[string]any{
				"food":      str("Food name, e.g. Chicken Breast."),
				"quantity":  str("Quantity, e.g. 200g or 1 cup."),
				"meal_type": map[string]any{"type": "string", "enum": MealTypes},
				"calories":  num("Calories, estimated when unknown."),
				"protein":   num("Protein in grams."),
				"carbs":     num("Carbs in grams."),
				"fats":      num("Fats in grams."),
				"notes":     str("Optional notes."),
			}),
			Completes: true,
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				Food     string  `mapstructure:"food"`
				Quantity string  `mapstructure:"quantity"`
				MealType string  `mapstructure:"meal_type"`
				Calories float64 `mapstructure:"calories"`
				Protein  float64 `mapstructure:"protein"`
				Carbs    float64 `mapstructure:"carbs"`
				Fats     float64 `mapstructure:"fats"`
				Notes    string  `mapstructure:"notes"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			if strings.TrimSpace(in.Food) == "" {
				return domain.Failure("food is required"), nil
			}
			meal, ok := canonical(in.MealType, MealTypes)
			if !ok {
				return domain.Failure(fmt.Sprintf("meal_type must be one of %s, got %q", strings.Join(MealTypes, ", "), in.MealType)), nil
			}
			entry := domain.JournalEntry{
				ID:       uuid.NewString(),
				UserID:   UserFrom(ctx),
				Kind:     domain.JournalNutrition,
				Title:    in.Food,
				Quantity: in.Quantity,
				Category: meal,
				Metrics:  nonZero(map[string]float64{"calories": in.Calories, "protein": in.Protein, "carbs": in.Carbs, "fats": in.Fats}),
				Notes:    in.Notes,
				LoggedAt: svc.now(),
			}
			if err := svc.Journal.Append(ctx, entry); err != nil {
				return domain.Result{}, err
			}
			return domain.OK("Food logged: " + formatFood(entry)), nil
		},
	}

	history := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "read_food_history",
			Description: "Show logged meals of the last days with daily totals.",
			Parameters:  schema(nil, map[string]any{"days": integer("Days to look back, default 7.")}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			days, err := decodeDays(args)
			if err != nil {
				return domain.Result{}, err
			}
			entries, err := recent(ctx, svc, domain.JournalNutrition, days)
			if err != nil {
				return domain.Result{}, err
			}
			if len(entries) == 0 {
				return domain.OK(fmt.Sprintf("No meals found in the last %d days.", days)), nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Food history (last %d days):", days)
			for _, day := range byDay(entries) {
				fmt.Fprintf(&b, "\n\n%s", day.date)
				totals := map[string]float64{}
				for _, e := range day.entries {
					fmt.Fprintf(&b, "\n  - %s at %s", formatFood(e), e.LoggedAt.Format("15:04"))
					for k, v := range e.Metrics {
						totals[k] += v
					}
				}
				if totals["calories"] > 0 {
					fmt.Fprintf(&b, "\n  Daily total: %.0f cal | P: %.0fg | C: %.0fg | F: %.0fg",
						totals["calories"], totals["protein"], totals["carbs"], totals["fats"])
				}
			}
			return domain.OK(b.String()), nil
		},
	}

	suggest := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "get_meal_suggestions",
			Description: "Suggest meals for a meal type.",
			Parameters:  schema(nil, map[string]any{"meal_type": map[string]any{"type": "string", "enum": MealTypes}}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			meal, _ := args["meal_type"].(string)
			canon, ok := canonical(meal, MealTypes)
			if !ok {
				return domain.OK("Which meal type would you like suggestions for: " + strings.Join(MealTypes, ", ") + "?"), nil
			}
			return domain.OK(canon + " suggestions:\n- " + strings.Join(mealSuggestions[strings.ToLower(canon)], "\n- ")), nil
		},
	}

	stats := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "calculate_nutrition_stats",
			Description: "Daily averages of calories and macros over the last days.",
			Parameters:  schema(nil, map[string]any{"days": integer("Days to analyze, default 7.")}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			days, err := decodeDays(args)
			if err != nil {
				return domain.Result{}, err
			}
			entries, err := recent(ctx, svc, domain.JournalNutrition, days)
			if err != nil {
				return domain.Result{}, err
			}
			if len(entries) == 0 {
				return domain.OK(fmt.Sprintf("No nutrition data found in the last %d days.", days)), nil
			}
			tracked := byDay(entries)
			sums := map[string]float64{}
			for _, e := range entries {
				for k, v := range e.Metrics {
					sums[k] += v
				}
			}
			n := float64(len(tracked))
			return domain.OK(fmt.Sprintf(
				"Nutrition stats (last %d days), daily averages:\nCalories: %.0f cal\nProtein: %.0fg\nCarbs: %.0fg\nFats: %.0fg\nDays tracked: %d",
				days, sums["calories"]/n, sums["protein"]/n, sums["carbs"]/n, sums["fats"]/n, len(tracked))), nil
		},
	}

	return []registry.Capability{write, history, suggest, stats}
}

// Nutrition builds the nutrition_handler sub-agent.
func Nutrition(oracle ports.Oracle, svc Services, opts ...agent.Option) (agent.SubAgent, error) {
	return subAgent("nutrition", oracle, NutritionTools(svc), domain.CapabilityDescriptor{
		Name: "nutrition_handler",
		Description: "Use for ALL nutrition tasks: logging food, meal history, calories and macros, meal suggestions. " +
			"It asks the user for missing details itself. Example: 'chicken breast 200g for lunch'.",
	}, opts)
}

func subAgent(name string, oracle ports.Oracle, tools []registry.Capability, d domain.CapabilityDescriptor, opts []agent.Option) (agent.SubAgent, error) {
	reg := registry.New()
	if err := reg.Replace(append(tools, TaskComplete(), agent.Escalate())...); err != nil {
		return agent.SubAgent{}, err
	}
	g, err := agent.New(name, oracle, reg, append(slices.Clip(opts), agent.AsSubAgent())...)
	if err != nil {
		return agent.SubAgent{}, err
	}
	if d.Timeout == 0 {
		d.Timeout = SubAgentTimeout
	}
	return agent.SubAgent{Graph: g, Arg: "request", Descriptor: d}, nil
}

type day struct {
	date    string
	entries []domain.JournalEntry
}

func byDay(entries []domain.JournalEntry) []day {
	var out []day
	for _, e := range entries {
		date := e.LoggedAt.Format("Monday, January 2, 2006")
		if len(out) == 0 || out[len(out)-1].date != date {
			out = append(out, day{date: date})
		}
		out[len(out)-1].entries = append(out[len(out)-1].entries, e)
	}
	return out
}

func recent(ctx context.Context, svc Services, kind domain.JournalKind, days int) ([]domain.JournalEntry, error) {
	since := midnight(svc.now()).AddDate(0, 0, -(days - 1))
	return svc.Journal.Since(ctx, kind, UserFrom(ctx), since)
}

func decodeDays(args map[string]any) (int, error) {
	var in struct {
		Days int `mapstructure:"days"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return 0, err
	}
	if in.Days <= 0 {
		in.Days = 7
	}
	return in.Days, nil
}

func canonical(s string, options []string) (string, bool) {
	i := slices.IndexFunc(options, func(o string) bool { return strings.EqualFold(o, strings.TrimSpace(s)) })
	if i < 0 {
		return "", false
	}
	return options[i], true
}

func nonZero(m map[string]float64) map[string]float64 {
	for k, v := range m {
		if v == 0 {
			delete(m, k)
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func formatFood(e domain.JournalEntry) string {
	s := e.Title
	if e.Quantity != "" {
		s += " (" + e.Quantity + ")"
	}
	s += " - " + e.Category
	for _, k := range macros {
		v, ok := e.Metrics[k]
		if !ok {
			continue
		}
		if k == "calories" {
			s += fmt.Sprintf(" | %.0f cal", v)
		} else {
			s += fmt.Sprintf(" | %s: %.0fg", strings.ToUpper(k[:1]), v)
		}
	}
	return s
}

// SubAgentTimeout bounds one sub-agent invocation, all of its decisions included.
const SubAgentTimeout = 5 * time.Minute
