package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-triage/app"
	"github.com/sweetpotato0/ai-triage/pkg/logging"
	"github.com/sweetpotato0/ai-triage/retrieval"
)

const smokeQuery = "how to reset password"

var (
	seedFile  string
	seedClear bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Index knowledge base documents",
	Long: `Index knowledge base documents from a YAML file, or the bundled starter
set when --file is omitted, then run a smoke query and print the hits.

The file has the form:

  documents:
    - id: doc-001
      text: To reset your password ...
      source: password-reset-guide.md
      category: password_reset`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		docs := retrieval.DefaultSeed()
		if seedFile != "" {
			loaded, err := retrieval.LoadSeedFile(seedFile)
			if err != nil {
				return fmt.Errorf("reading %s: %w", seedFile, err)
			}
			docs = loaded
		}

		ctx := cmd.Context()
		return withApp(ctx, func(a *app.App) error {
			logger := logging.WithComponent("seed")
			if seedClear {
				if err := a.Retriever.Clear(ctx); err != nil {
					return fmt.Errorf("clearing index: %w", err)
				}
				logger.Info("index cleared")
			}

			n, err := a.Retriever.IndexDocuments(ctx, docs)
			if err != nil {
				return fmt.Errorf("indexing documents: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents.\n", n)

			hits, err := a.Retriever.Retrieve(ctx, smokeQuery, retrieval.Options{TopK: 2})
			if err != nil {
				return fmt.Errorf("smoke query: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Query %q returned %d documents:\n", smokeQuery, len(hits))
			for _, h := range hits {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %.3f  %s\n", h.ID, h.SimilarityScore, truncate(h.Content, 60))
			}
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML file with documents to index")
	seedCmd.Flags().BoolVar(&seedClear, "clear", false, "delete every indexed document first")
	rootCmd.AddCommand(seedCmd)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
