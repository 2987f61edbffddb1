package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chat-relay/internal/client"
)

// newReplyCommand hace de workflow: entrega una respuesta al relay.
func newReplyCommand() *cobra.Command {
	var conversationID string
	cmd := &cobra.Command{
		Use:   "reply [text]",
		Short: "Post a reply to /receive-response as the workflow would",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadClientConfig()
			if err != nil {
				return err
			}
			if conversationID == "" {
				conversationID = cfg.ConversationID
			}
			if conversationID == "" {
				return fmt.Errorf("--conversation or CONVERSATION_ID is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			api := client.NewAPI(cfg.RelayBaseURL, "", nil)
			if err := api.PostReply(ctx, cfg.WebhookSecret, conversationID, strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reply relayed")
			return nil
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "conversation id")
	return cmd
}
