package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-triage/api"
	"github.com/sweetpotato0/ai-triage/app"
	"github.com/sweetpotato0/ai-triage/pkg/logging"
	"github.com/sweetpotato0/ai-triage/pkg/telemetry"
	"github.com/sweetpotato0/ai-triage/retrieval"
)

const shutdownTimeout = 10 * time.Second

var serveSeed bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the ticket API on server.host:server.port until interrupted.

With --seed the bundled knowledge base is indexed before the server starts,
which is convenient with the in-memory index.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:    "ai-triage",
			ServiceVersion: appVersion,
			Environment:    cfg.Telemetry.Environment,
			Endpoint:       cfg.Telemetry.Endpoint,
			SampleRatio:    cfg.Telemetry.SampleRatio,
			Attributes: map[string]string{
				"triage.nlp.provider":       cfg.NLP.Provider,
				"triage.index.provider":     cfg.Index.Provider,
				"triage.generator.provider": cfg.Generator.Provider,
				"triage.generator.model":    cfg.Generator.Model,
				"triage.store.provider":     cfg.Store.Provider,
			},
			Disable: !cfg.Telemetry.Enabled,
		})
		if err != nil {
			return err
		}
		defer func() { _ = shutdownTelemetry(context.Background()) }()

		return withApp(ctx, func(a *app.App) error {
			logger := logging.WithComponent("serve")
			if serveSeed {
				n, err := a.Retriever.IndexDocuments(ctx, retrieval.DefaultSeed())
				if err != nil {
					return fmt.Errorf("seeding knowledge base: %w", err)
				}
				logger.Info("knowledge base seeded", "documents", n)
			}

			srv := api.New(cfg.Server.Addr(), a.Tickets, a.Retriever, api.WithVersion(appVersion))
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutting down server: %w", err)
			}
			return <-errCh
		})
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveSeed, "seed", false, "index the bundled knowledge base before serving")
	rootCmd.AddCommand(serveCmd)
}
