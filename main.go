package main

import (
	"QuestionnaireBot/config"
	"QuestionnaireBot/loader"
	"QuestionnaireBot/metrics"
	"QuestionnaireBot/repo"
	"QuestionnaireBot/session"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "questionnaire",
	Short: "Ask a short questionnaire through a chat",
	Long: `questionnaire walks one person through a fixed list of questions in a chat,
pausing between messages like a human would, and shows a summary of the answers
at the end.

Run without a subcommand to start the Telegram bot.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTelegram(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(telegramCmd, chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

func setupLogging(level string, w io.Writer) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return nil
}

// newStore opens the configured questionnaire source.
func newStore(ctx context.Context, cfg config.Source) (loader.Store, error) {
	switch cfg.Kind {
	case config.SourceHTTP:
		return repo.NewHTTPStore(cfg.BaseURL), nil
	case config.SourceFile:
		return repo.NewFileStore(cfg.Dir), nil
	case config.SourceFirebase:
		fc, err := repo.NewFirebaseConnector(ctx, cfg.Firebase.CredentialsFile, cfg.Firebase.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("error creating Firebase connector: %w", err)
		}
		if cfg.Firebase.QuestionsPath != "" {
			fc.QuestionsPath = cfg.Firebase.QuestionsPath
		}
		if cfg.Firebase.ResponsesPath != "" {
			fc.ResponsesPath = cfg.Firebase.ResponsesPath
		}
		return fc, nil
	default:
		return nil, fmt.Errorf("unknown questionnaire source %q", cfg.Kind)
	}
}

// newMachine builds the state machine and, when a metrics address is set,
// starts serving its metrics.
func newMachine(ctx context.Context, cfg config.Config) (*session.Machine, *metrics.Recorder, error) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg); err != nil {
				log.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	machine, err := session.New(
		session.WithDelays(cfg.Delays),
		session.WithObserver(rec),
		session.WithLogger(log.Logger),
	)
	if err != nil {
		return nil, nil, err
	}
	return machine, rec, nil
}

// loadDataset fetches the questionnaire once at startup.
func loadDataset(ctx context.Context, cfg config.Source, rec loader.Recorder) (*loader.Dataset, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, &loader.LoadError{Source: cfg.Kind, Err: err}
	}
	return loader.Load(ctx, store, rec)
}
