package jarvis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aretw0/jarvis/pkg/bridge"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/graph"
	"github.com/aretw0/jarvis/pkg/ports"
)

// ContentRenderer transforms assistant text before output, e.g. markdown to ANSI.
type ContentRenderer func(string) (string, error)

// EventFormatter decorates a non-assistant event for output.
type EventFormatter func(ev domain.Event) string

// Runner is a line-oriented chat loop on one thread, for terminals and tests.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	ThreadID string
	// Prompt is printed before each read unless Headless.
	Prompt   string
	Headless bool
	// Progress prints node events while a request runs.
	Progress bool
	Renderer ContentRenderer
	Format   EventFormatter

	mu sync.Mutex
}

// NewRunner creates a Runner on thread with the default prompt.
func NewRunner(in io.Reader, out io.Writer, thread string) *Runner {
	return &Runner{Input: in, Output: out, ThreadID: thread, Prompt: "> "}
}

// Run reads messages until EOF, "exit" or "quit", or until ctx ends.
func (r *Runner) Run(ctx context.Context, e *Engine) error {
	if r.Input == nil || r.Output == nil {
		return errors.New("runner: input and output must be set")
	}
	if r.ThreadID == "" {
		return errors.New("runner: thread id is required")
	}
	lines := bufio.NewReader(r.Input)
	sink := ports.EventSinkFunc(r.emit)
	if r.Progress {
		ctx = graph.WithHooks(ctx, bridge.ProgressHooks(sink))
	}

	if cp, err := e.Pending(ctx, r.ThreadID); err == nil {
		r.emit(ctx, domain.Event{Type: domain.EventAssistant, Content: cp.Question})
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.Headless {
			fmt.Fprint(r.Output, r.Prompt)
		}
		text, err := lines.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("input error: %w", err)
		}
		input := strings.TrimSpace(text)
		switch {
		case input == "exit" || input == "quit":
			fmt.Fprintln(r.Output, "Bye!")
			return nil
		case input != "":
			// Failures reach the output as error events.
			_, _ = e.Handle(ctx, r.ThreadID, input, sink)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

func (r *Runner) emit(_ context.Context, ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := ev.Content
	switch {
	case ev.Type == domain.EventAssistant && r.Renderer != nil:
		if rendered, err := r.Renderer(ev.Content); err == nil {
			out = rendered
		}
	case ev.Type != domain.EventAssistant && r.Format != nil:
		out = r.Format(ev)
	case ev.Type == domain.EventError:
		out = "Error: " + ev.Content
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(out))
}
