package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-triage/app"
	"github.com/sweetpotato0/ai-triage/mcp"
	"github.com/sweetpotato0/ai-triage/pkg/logging"
)

var mcpAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose triage tools over the Model Context Protocol",
	Long: `Serve the triage_ticket and search_knowledge_base tools to MCP clients.

By default the server speaks over stdin/stdout and logs go to stderr. With
--http the streamable HTTP transport is served on the given address instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if mcpAddr == "" {
			// stdout carries the protocol.
			logging.SetLogger(logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withApp(ctx, func(a *app.App) error {
			logger := logging.WithComponent("mcp")
			server := mcp.NewServer(appVersion, a.Tickets, a.Retriever, logger)
			if mcpAddr == "" {
				return mcp.ServeStdio(ctx, server)
			}

			srv := &http.Server{Addr: mcpAddr, Handler: mcp.NewHTTPHandler(server)}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			logger.Info("MCP HTTP server listening", "addr", mcpAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}
