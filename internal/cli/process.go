package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sweetpotato0/ai-triage/app"
	"github.com/sweetpotato0/ai-triage/middleware/validator"
	"github.com/sweetpotato0/ai-triage/runner"
	"github.com/sweetpotato0/ai-triage/store"
	"github.com/sweetpotato0/ai-triage/ticket"
)

var (
	processFile        string
	processTitle       string
	processDescription string
)

type ticketFile struct {
	Tickets []ticketEntry `yaml:"tickets"`
}

type ticketEntry struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type processOutput struct {
	TicketID string         `json:"ticket_id"`
	Result   *ticket.Result `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run tickets through the pipeline without storing them",
	Long: `Run one ticket (--title and --description) or every ticket in a YAML
file (--file) through the triage pipeline and print the results as JSON.
Nothing is persisted; use the HTTP API to record tickets.

Tickets from a file run concurrently, bounded by pipeline.max_concurrency.

  tickets:
    - id: T-1
      title: Cannot log in
      description: The password reset link never arrives.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := loadTasks()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		return withApp(ctx, func(a *app.App) error {
			results := a.Runner.RunBatch(ctx, tasks)

			out := make([]processOutput, len(results))
			failed := 0
			for i, r := range results {
				out[i] = processOutput{TicketID: r.TicketID, Result: r.Result}
				if r.Error != nil {
					out[i].Error = r.Error.Error()
					failed++
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d tickets failed", failed, len(tasks))
			}
			return nil
		})
	},
}

func loadTasks() ([]runner.Task, error) {
	if processFile == "" {
		if err := validator.Ticket(processTitle, processDescription); err != nil {
			return nil, err
		}
		return []runner.Task{{
			TicketID:    store.NewID(store.TicketPrefix),
			Title:       processTitle,
			Description: processDescription,
		}}, nil
	}

	data, err := os.ReadFile(processFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", processFile, err)
	}
	var f ticketFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", processFile, err)
	}
	if len(f.Tickets) == 0 {
		return nil, fmt.Errorf("%s contains no tickets", processFile)
	}

	tasks := make([]runner.Task, 0, len(f.Tickets))
	for i, e := range f.Tickets {
		if err := validator.Ticket(e.Title, e.Description); err != nil {
			return nil, fmt.Errorf("ticket %d: %w", i+1, err)
		}
		id := e.ID
		if id == "" {
			id = store.NewID(store.TicketPrefix)
		}
		tasks = append(tasks, runner.Task{TicketID: id, Title: e.Title, Description: e.Description})
	}
	return tasks, nil
}

func init() {
	processCmd.Flags().StringVarP(&processFile, "file", "f", "", "YAML file with tickets")
	processCmd.Flags().StringVar(&processTitle, "title", "", "ticket title")
	processCmd.Flags().StringVar(&processDescription, "description", "", "ticket description")
	processCmd.MarkFlagsMutuallyExclusive("file", "title")
	processCmd.MarkFlagsMutuallyExclusive("file", "description")
	rootCmd.AddCommand(processCmd)
}
