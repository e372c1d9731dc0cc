package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	chatFile   string
	chatAgent  string
	chatNoWait bool
)

func init() {
	chatCmd.Flags().StringVar(&chatFile, "file", "", "Name of a file for the agent to operate on")
	chatCmd.Flags().StringVar(&chatAgent, "agent", "", "Agent type (defaults to the server's active agent)")
	chatCmd.Flags().BoolVar(&chatNoWait, "no-wait", false, "Print the task ID and exit without streaming logs")
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Submit a chat task and stream its logs",
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	c := newClient(serverURL)
	ctx := cmd.Context()

	res, err := c.submit(ctx, "/api/chat", map[string]string{
		"message":    args[0],
		"file_name":  chatFile,
		"agent_type": chatAgent,
	})
	if err != nil {
		return err
	}
	fmt.Println("task:", res.TaskID)

	if chatNoWait {
		return nil
	}
	return followTask(ctx, c, res.TaskID)
}

// followTask streams a task's logs to stdout and then prints its terminal
// outcome from the status endpoint.
func followTask(ctx context.Context, c *client, id string) error {
	err := c.streamLogs(ctx, id, func(ev streamEvent) {
		fmt.Printf("[%s] %s\n", ev.Level, ev.Message)
	})
	if err != nil {
		return err
	}

	t, err := c.getTask(ctx, id)
	if err != nil {
		return err
	}
	if t.Error != "" {
		return fmt.Errorf("task %s: %s", t.Status, t.Error)
	}
	fmt.Printf("%s: %s\n", t.Status, t.Result)
	return nil
}
