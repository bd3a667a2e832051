// Package cli implements the triage command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-triage/app"
	"github.com/sweetpotato0/ai-triage/config"
	"github.com/sweetpotato0/ai-triage/pkg/logging"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "AI triage - automated first response for support tickets",
	Long: `triage classifies incoming support tickets, retrieves matching knowledge
base articles and drafts a reply for a human agent to review.

Configuration is read from the file given with --config and from TRIAGE_*
environment variables, e.g. TRIAGE_GENERATOR_PROVIDER=claude.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		logging.Configure(loaded.Log.Format, loaded.Log.Level)
		cfg = loaded
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Version output needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "triage %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// withApp builds the application for the duration of fn.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logging.WithComponent("cli").Warn("shutdown incomplete", "error", cerr)
		}
	}()
	return fn(a)
}
