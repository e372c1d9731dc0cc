package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logsHistory bool

func init() {
	logsCmd.Flags().BoolVar(&logsHistory, "history", false, "Fetch archived logs instead of streaming")
	rootCmd.AddCommand(logsCmd)
}

var logsCmd = &cobra.Command{
	Use:   "logs <task-id>",
	Short: "Stream a task's logs (or fetch its archived history)",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

func runLogs(cmd *cobra.Command, args []string) error {
	c := newClient(serverURL)
	ctx := cmd.Context()
	id := args[0]

	if logsHistory {
		events, err := c.logHistory(ctx, id)
		if err != nil {
			return err
		}
		for _, ev := range events {
			fmt.Printf("[%s] %s\n", ev.Level, ev.Message)
		}
		return nil
	}

	return c.streamLogs(ctx, id, func(ev streamEvent) {
		fmt.Printf("[%s] %s\n", ev.Level, ev.Message)
	})
}
