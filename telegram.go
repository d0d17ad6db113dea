package main

import (
	"QuestionnaireBot/handler"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the questionnaire as a Telegram bot",
	RunE:  runTelegram,
}

func runTelegram(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.LogLevel, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}); err != nil {
		return err
	}
	if err := cfg.Telegram.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	machine, rec, err := newMachine(ctx, cfg)
	if err != nil {
		return err
	}

	// Updates only arrive after Start, by which time h is set.
	var h *handler.QuestionnaireBotHandler
	opts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			h.Handler(ctx, b, update)
		}),
	}

	b, err := bot.New(cfg.Telegram.Token, opts...)
	if err != nil {
		log.Error().Err(err).Msg("error creating bot")
		return err
	}
	h = handler.NewQuestionnaireBotHandler(ctx, machine, b, cfg.Telegram.ChatID)

	ds, err := loadDataset(ctx, cfg.Source, rec)
	if err != nil {
		h.SetLoadError(err)
	} else {
		h.SetDataset(ds)
	}

	log.Info().Msg("Bot started")
	b.Start(ctx)
	log.Info().Msg("Bot stopped")
	return nil
}
