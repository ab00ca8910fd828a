package main

import (
	"github.com/aretw0/jarvis/internal/cli"
	httpAdapter "github.com/aretw0/jarvis/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	Long: `Serves live chat sessions on /ws/{session_id}, the synchronous thread API,
capability settings and Prometheus metrics. Edits to the capability file are
picked up without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		app.WatchTools(ctx)

		cfg := app.Config
		srv := httpAdapter.NewServer(app.Engine.Controller(),
			httpAdapter.WithHub(app.Hub),
			httpAdapter.WithGraph(app.Engine.Graph()),
			httpAdapter.WithToolConfig(app.Tools),
			httpAdapter.WithProfiles(app.Engine.Services().Profiles),
			httpAdapter.WithSpeaker(app.Speaker),
			httpAdapter.WithMetrics(app.Metrics.Handler()),
			httpAdapter.WithUser(cfg.UserID),
			httpAdapter.WithAllowedOrigins(cfg.AllowedOrigins...),
			httpAdapter.WithLogger(app.Logger),
		)

		app.Logger.Info("Starting Jarvis server", "addr", cfg.Addr, "store", cfg.Store, "oracle", cfg.Oracle)
		if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
			return err
		}
		if sig := ctx.Signal(); sig != nil {
			app.Logger.Info("Jarvis server stopped", "signal", sig.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default :8000)")
}
