package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chat-relay/internal/config"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "relayctl",
		Short:         "Terminal client and operator tools for the chat relay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newChatCommand(), newTokenCommand(), newReplyCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadClientConfig() (*config.ClientConfig, error) {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load client config: %w", err)
	}
	return cfg, nil
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
