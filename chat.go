package main

import (
	"QuestionnaireBot/loader"
	"QuestionnaireBot/tui"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var chatLogPath string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run the questionnaire in the terminal",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatLogPath, "log-file", "questionnaire.log", "file to write logs to while the chat is on screen")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(chatLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	defer logFile.Close()
	if err := setupLogging(cfg.LogLevel, logFile); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	machine, rec, err := newMachine(ctx, cfg)
	if err != nil {
		return err
	}

	load := func(ctx context.Context) (*loader.Dataset, error) {
		return loadDataset(ctx, cfg.Source, rec)
	}
	p := tea.NewProgram(tui.New(ctx, machine, load), tea.WithAltScreen(), tea.WithContext(ctx))
	machine.Subscribe(tui.Notify(p))

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running chat: %w", err)
	}
	return nil
}
