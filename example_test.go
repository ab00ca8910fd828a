package jarvis_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aretw0/jarvis"
	"github.com/aretw0/jarvis/pkg/adapters/scripted"
)

// ExampleNew runs a nutrition request that needs one follow-up question.
func ExampleNew() {
	oracle := scripted.New(
		scripted.Call("jarvis", "nutrition_handler", map[string]any{"request": "I had 2 eggs"}),
		scripted.Answer("nutrition", "Which meal was that?"),
		scripted.Call("nutrition", "write_food_entry", map[string]any{
			"food": "Eggs", "quantity": "2", "meal_type": "Breakfast",
		}),
		scripted.Answer("jarvis", "Logged 2 eggs for breakfast."),
	)
	eng, err := jarvis.New(oracle)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	reply, err := eng.Handle(ctx, "thread-1", "I had 2 eggs", nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("suspended=%v %s\n", reply.Suspended, reply.Text)

	reply, err = eng.Handle(ctx, "thread-1", "breakfast", nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("suspended=%v %s\n", reply.Suspended, reply.Text)
	// Output:
	// suspended=true Which meal was that?
	// suspended=false Logged 2 eggs for breakfast.
}

// ExampleRunner drives a thread from line-oriented input.
func ExampleRunner() {
	eng, err := jarvis.New(scripted.Echo{})
	if err != nil {
		log.Fatal(err)
	}

	r := jarvis.NewRunner(strings.NewReader("hello\nexit\n"), os.Stdout, "cli")
	r.Headless = true
	if err := r.Run(context.Background(), eng); err != nil {
		log.Fatal(err)
	}
	// Output:
	// (offline) You said: hello
	// Bye!
}
