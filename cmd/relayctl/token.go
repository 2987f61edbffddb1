package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chat-relay/internal/domain"
	"chat-relay/internal/service"
)

// newTokenCommand emite un access token de prueba firmado con AUTH_JWT_SECRET.
func newTokenCommand() *cobra.Command {
	var (
		userID   string
		username string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer access token for session-init and pusher-auth",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadClientConfig()
			if err != nil {
				return err
			}
			token, err := mintAccessToken(cfg.AuthJWTSecret, cfg.AuthJWTIssuer, ttl, domain.Caller{ID: userID, Username: username})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli-user", "caller id (sub/uid claim)")
	cmd.Flags().StringVar(&username, "username", "", "caller display name")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func mintAccessToken(secret, issuer string, ttl time.Duration, caller domain.Caller) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("AUTH_JWT_SECRET is required to mint tokens")
	}
	return service.NewJWTService(secret, issuer, ttl).IssueAccessToken(caller)
}
