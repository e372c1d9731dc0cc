package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	benchIndices string
	benchAgent   string
	benchNoWait  bool
)

func init() {
	benchCmd.Flags().StringVar(&benchIndices, "indices", "", "Comma-separated question indices, e.g. 0,2,5 (default all)")
	benchCmd.Flags().StringVar(&benchAgent, "agent", "", "Agent type (defaults to the server's active agent)")
	benchCmd.Flags().BoolVar(&benchNoWait, "no-wait", false, "Print the task ID and exit without streaming logs")
	rootCmd.AddCommand(benchCmd)
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Submit a benchmark run and stream its logs",
	RunE:  runBench,
}

func runBench(cmd *cobra.Command, args []string) error {
	indices, err := parseIndices(benchIndices)
	if err != nil {
		return err
	}

	c := newClient(serverURL)
	ctx := cmd.Context()

	body := map[string]any{"agent_type": benchAgent}
	if indices != nil {
		body["filter_indices"] = indices
	}

	res, err := c.submit(ctx, "/api/benchmark", body)
	if err != nil {
		return err
	}
	fmt.Println("task:", res.TaskID)

	if benchNoWait {
		return nil
	}
	return followTask(ctx, c, res.TaskID)
}

func parseIndices(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	indices := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", p)
		}
		indices = append(indices, n)
	}
	return indices, nil
}
