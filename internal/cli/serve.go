package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/deskgenie/genied/internal/api"
	"github.com/deskgenie/genied/internal/config"
	"github.com/deskgenie/genied/internal/engine"
	"github.com/deskgenie/genied/internal/runner"
	"github.com/deskgenie/genied/internal/store"
)

// evictionInterval is how often the registry sweep runs when retention is set.
const evictionInterval = time.Minute

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides GENIED_LISTEN_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the genied API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("genied: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"default_agent", cfg.Agent,
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runners := runner.NewRegistry(cfg.Agent)
	runners.Register(runner.EchoRunner{})
	if cfg.LLMBaseURL != "" {
		runners.Register(runner.NewLLMRunner(runner.LLMConfig{
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			APIKey:  cfg.LLMAPIKey,
		}))
	}

	eng := engine.NewEngine(engine.NewRegistry(), db, logger)
	stopEviction := eng.StartEviction(cfg.TaskRetention, evictionInterval)
	defer stopEviction()

	srv := api.NewServer(cfg.ListenAddr, eng, runners, db, cfg.QuestionsFile, logger)
	return srv.Run()
}
