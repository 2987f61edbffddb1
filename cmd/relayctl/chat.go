package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chat-relay/internal/client"
	"chat-relay/internal/config"
	"chat-relay/internal/domain"
)

func newChatCommand() *cobra.Command {
	var (
		conversationID string
		verbose        bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat: send to the workflow webhook, receive replies over Pusher",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadClientConfig()
			if err != nil {
				return err
			}
			if conversationID == "" {
				conversationID = cfg.ConversationID
			}
			logger := newLogger(verbose)
			defer logger.Sync()

			manager, err := buildManager(cfg, logger)
			if err != nil {
				return err
			}
			defer manager.Close()

			out := cmd.OutOrStdout()
			manager.OnMessage(func(msg domain.Message) {
				fmt.Fprintf(out, "\r[%s] asistente: %s\n> ", msg.CreatedAt.Format("15:04:05"), msg.Text)
			})
			return runChat(cmd.Context(), manager, cmd.InOrStdin(), out, conversationID)
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "resume an existing conversation id")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log socket and session activity")
	return cmd
}

// buildManager arma el cliente a partir de la configuracion. Sin
// RELAY_BEARER_TOKEN pero con AUTH_JWT_SECRET emite un token local.
func buildManager(cfg *config.ClientConfig, logger *zap.Logger) (*client.SessionManager, error) {
	socketURL := strings.TrimSpace(cfg.PusherWSURL)
	if socketURL == "" {
		if cfg.PusherKey == "" || cfg.PusherCluster == "" {
			return nil, fmt.Errorf("PUSHER_KEY and PUSHER_CLUSTER (or PUSHER_WS_URL) are required")
		}
		socketURL = client.PusherURL(cfg.PusherKey, cfg.PusherCluster)
	}
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		return nil, fmt.Errorf("N8N_WEBHOOK_URL is required")
	}

	bearer := strings.TrimSpace(cfg.BearerToken)
	if bearer == "" && cfg.AuthJWTSecret != "" {
		token, err := mintAccessToken(cfg.AuthJWTSecret, cfg.AuthJWTIssuer, 12*time.Hour, domain.Caller{ID: "cli-" + cfg.Username, Username: cfg.Username})
		if err != nil {
			return nil, err
		}
		bearer = token
	}
	if bearer == "" {
		return nil, fmt.Errorf("RELAY_BEARER_TOKEN or AUTH_JWT_SECRET is required")
	}

	api := client.NewAPI(cfg.RelayBaseURL, bearer, nil)
	webhook := client.NewWorkflowWebhook(cfg.WebhookURL, cfg.WebhookToken, nil)
	return client.NewSessionManager(logger, api, webhook, socketURL, cfg.Username), nil
}

func runChat(ctx context.Context, manager *client.SessionManager, in io.Reader, out io.Writer, conversationID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if conversationID == "" {
		conversationID = client.NewConversationID()
	}
	if err := startSession(ctx, manager, conversationID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Conversacion %s. Comandos: /new, /history, /quit\n", manager.ConversationID())

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	done := manager.Done()
	fmt.Fprint(out, "> ")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-manager.Errors():
			fmt.Fprintf(out, "\rerror de conexion: %v\n> ", err)
		case <-done:
			fmt.Fprint(out, "\rconexion cerrada; usa /new para reconectar\n> ")
			done = nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, restarted := handleLine(ctx, manager, out, line)
			if quit {
				return nil
			}
			if restarted {
				done = manager.Done()
			}
			fmt.Fprint(out, "> ")
		}
	}
}

// handleLine procesa una linea de entrada. Devuelve quit=true con /quit y
// restarted=true si se abrio una nueva sesion.
func handleLine(ctx context.Context, manager *client.SessionManager, out io.Writer, line string) (quit bool, restarted bool) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false, false
	case "/quit":
		return true, false
	case "/history":
		for _, msg := range manager.Transcript() {
			fmt.Fprintf(out, "[%s] %s: %s\n", msg.CreatedAt.Format("15:04:05"), msg.Role, msg.Text)
		}
		return false, false
	case "/new":
		if err := startSession(ctx, manager, client.NewConversationID()); err != nil {
			fmt.Fprintf(out, "no se pudo iniciar la sesion: %v\n", err)
			return false, false
		}
		fmt.Fprintf(out, "Nueva conversacion %s\n", manager.ConversationID())
		return false, true
	}

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := manager.Send(sendCtx, line); err != nil {
		fmt.Fprintf(out, "error enviando mensaje: %v\n", err)
	}
	return false, false
}

func startSession(ctx context.Context, manager *client.SessionManager, conversationID string) error {
	startCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	if err := manager.Start(startCtx, conversationID); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}
