package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-triage/app"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base index statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app.App) error {
			st, err := a.Retriever.Stats(ctx)
			if err != nil {
				return fmt.Errorf("reading index stats: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Index:      %s\n", cfg.Index.Provider)
			fmt.Fprintf(out, "Documents:  %d\n", st.Count)
			fmt.Fprintf(out, "Dimension:  %d\n", st.Dimension)
			fmt.Fprintf(out, "Fullness:   %.4f\n", st.Fullness)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
