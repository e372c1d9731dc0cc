package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show the current status of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	c := newClient(serverURL)

	t, err := c.getTask(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", t.ID)
	fmt.Fprintf(w, "KIND\t%s\n", t.Kind)
	fmt.Fprintf(w, "RUNNER\t%s\n", t.Runner)
	fmt.Fprintf(w, "STATUS\t%s\n", t.Status)
	if t.Result != "" {
		fmt.Fprintf(w, "RESULT\t%s\n", t.Result)
	}
	if t.Error != "" {
		fmt.Fprintf(w, "ERROR\t%s\n", t.Error)
	}
	fmt.Fprintf(w, "CREATED\t%s\n", t.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "UPDATED\t%s\n", t.UpdatedAt.Format(time.RFC3339))
	return w.Flush()
}
