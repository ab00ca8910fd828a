package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/jarvis"
	"github.com/aretw0/jarvis/internal/cli"
	"github.com/aretw0/jarvis/internal/presentation/tui"
	"github.com/aretw0/jarvis/pkg/capabilities"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with Jarvis in the terminal",
	Long: `Reads one message per line and prints the replies. A thread that was waiting
for an answer shows its question first. Type exit or quit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		thread, _ := cmd.Flags().GetString("thread")
		headless, _ := cmd.Flags().GetBool("headless")
		progress, _ := cmd.Flags().GetBool("progress")

		app, err := setup(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		r := jarvis.NewRunner(os.Stdin, os.Stdout, thread)
		r.Progress = progress
		r.Headless = headless || !term.IsTerminal(int(os.Stdin.Fd()))
		if !r.Headless {
			decorate(r)
			tui.PrintBanner(os.Stdout)
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		runCtx := capabilities.WithUser(ctx, app.Config.UserID)

		done := make(chan error, 1)
		go func() { done <- r.Run(runCtx, app.Engine) }()

		select {
		case err := <-done:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-ctx.Done():
			// The reader may still be blocked on stdin.
			if ctx.Signal() == os.Interrupt {
				fmt.Println("[CTRL+C]")
			}
			fmt.Println(">>> Interrupted.")
			return nil
		}
	},
}

// decorate styles the runner for an interactive terminal.
func decorate(r *jarvis.Runner) {
	width := 0
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width = w
	}
	st := tui.NewStyler()
	r.Prompt = st.Prompt("> ")
	r.Renderer = tui.NewRenderer(width)
	r.Format = func(ev domain.Event) string {
		switch ev.Type {
		case domain.EventError:
			return st.Error("Error: " + ev.Content)
		case domain.EventNode:
			return st.Progress(ev.Content)
		case domain.EventSystem:
			return st.Question(ev.Content)
		}
		return ev.Content
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("thread", "t", "cli", "Thread to continue")
	chatCmd.Flags().Bool("headless", false, "Plain output without banner, prompt or styling")
	chatCmd.Flags().Bool("progress", true, "Show agent steps while a request runs")
}
