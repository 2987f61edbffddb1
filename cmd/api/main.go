package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chat-relay/internal/broadcast"
	"chat-relay/internal/config"
	apihttp "chat-relay/internal/http"
	"chat-relay/internal/paramstore"
	"chat-relay/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if cfg.SSMParamPrefix != "" {
		overlaid, err := loadSecrets(ctx, *cfg)
		if err != nil {
			logger.Fatal("load secrets from ssm", zap.Error(err))
		}
		cfg = &overlaid
	}

	if cfg.ConversationSecret == "" {
		logger.Warn("conversation secret not configured; session-init and pusher-auth will return 503")
	}
	if cfg.AuthJWTSecret == "" {
		logger.Warn("auth jwt secret not configured; bearer credentials cannot be resolved")
	}
	if cfg.WebhookSecret == "" {
		logger.Warn("webhook secret not configured; receive-response is open")
	}

	provider := broadcast.NewPusher(broadcast.PusherConfig{
		AppID:   cfg.PusherAppID,
		Key:     cfg.PusherKey,
		Secret:  cfg.PusherSecret,
		Cluster: cfg.PusherCluster,
		Timeout: cfg.PusherTimeout,
	})
	if !cfg.PusherConfigured() {
		logger.Warn("pusher credentials missing; broadcast disabled")
	}

	var (
		limiter     service.RateLimiter
		mirror      service.ReplyMirror
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			if cfg.SessionRateLimit > 0 {
				limiter = service.NewRedisRateLimiter(redisClient, cfg.SessionRateWindow, cfg.SessionRateLimit)
			}
			if cfg.ReplyStreamTopic != "" {
				streamMirror, err := broadcast.NewStreamMirror(redisClient, cfg.ReplyStreamTopic, logger)
				if err != nil {
					logger.Warn("reply stream mirror init failed", zap.Error(err))
				} else {
					defer streamMirror.Close()
					mirror = streamMirror
				}
			}
		}
		cancel()
	}
	if limiter == nil && cfg.SessionRateLimit > 0 {
		limiter = service.NewMemoryRateLimiter(cfg.SessionRateWindow, cfg.SessionRateLimit)
	}

	jwtSvc := service.NewJWTService(
		cfg.AuthJWTSecret,
		cfg.AuthJWTIssuer,
		time.Duration(cfg.AuthJWTTTLMinutes)*time.Minute,
	)

	issuer := service.NewSessionIssuer(logger, jwtSvc, limiter, cfg.ConversationSecret, cfg.ChannelPrefix)
	authorizer := service.NewChannelAuthorizer(logger, provider, jwtSvc, cfg.ConversationSecret, cfg.ChannelPrefix, cfg.TokenMaxAge)
	relay := service.NewReplyRelay(logger, provider, mirror, cfg.WebhookSecret, cfg.ChannelPrefix, cfg.PublishFallback)

	sessionHandler := apihttp.NewSessionHandler(logger, issuer, authorizer)
	relayHandler := apihttp.NewRelayHandler(logger, relay)
	router := apihttp.NewRouter(logger, cfg.RequestTimeout, sessionHandler, relayHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("channel_prefix", cfg.ChannelPrefix),
		zap.Bool("publish_fallback", cfg.PublishFallback),
		zap.Bool("reply_mirror", mirror != nil),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

// loadSecrets completa los secretos vacios desde SSM Parameter Store.
func loadSecrets(ctx context.Context, cfg config.Config) (config.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, err
	}
	store, err := paramstore.New(ssm.NewFromConfig(awsCfg))
	if err != nil {
		return cfg, err
	}
	return cfg.WithSecrets(ctx, store)
}
