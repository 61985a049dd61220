// chatprobe connects to the chat server and streams live messages and
// unread-notification state to the console.
// Usage: go run ./cmd/chatprobe --config configs/chat.local.yaml --user 42
//
// Required environment variable (unless server.token_path is configured):
//
//	CHAT_TOKEN - bearer token issued by the platform's login endpoint
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gamehub-live/messaging/internal/auth"
	"github.com/gamehub-live/messaging/internal/config"
	"github.com/gamehub-live/messaging/internal/connection"
	"github.com/gamehub-live/messaging/internal/model"
	"github.com/gamehub-live/messaging/internal/poller"
	"github.com/gamehub-live/messaging/internal/rest"
	"github.com/gamehub-live/messaging/internal/router"
	"github.com/gamehub-live/messaging/internal/subscription"
	"github.com/gamehub-live/messaging/internal/unread"
	"github.com/gamehub-live/messaging/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/chat.example.yaml", "path to config file")
	userID := flag.Int64("user", 0, "platform user id")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	logger.Info("chatprobe", "version", version.String())

	if *userID == 0 {
		logger.Error("--user is required")
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	tokens, err := auth.FromEnvOrFile("CHAT_TOKEN", cfg.Server.TokenPath)
	if err != nil {
		logger.Error("failed to resolve token source", "error", err)
		os.Exit(1)
	}
	token, err := tokens.Token()
	if err != nil {
		logger.Error("failed to read token", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	restClient := rest.NewClient(ctx, cfg.Server.RestURL, token,
		rest.WithLogger(logger),
		rest.WithTimeout(cfg.History.Timeout),
		rest.WithMaxRetries(cfg.History.MaxRetries),
		rest.WithCacheTTL(cfg.History.CacheTTL),
	)

	manager := connection.NewManager(connection.ManagerConfig{
		URL:                  cfg.Server.WSURL,
		HandshakeTimeout:     cfg.Connection.HandshakeTimeout,
		WriteTimeout:         cfg.Connection.WriteTimeout,
		PingInterval:         cfg.Connection.PingInterval,
		PingTimeout:          cfg.Connection.PingTimeout,
		ReconnectBaseDelay:   cfg.Connection.ReconnectBaseDelay,
		MaxReconnectAttempts: cfg.Connection.MaxReconnectAttempts,
		FrameBufferSize:      cfg.Connection.FrameBufferSize,
	}, logger)
	defer manager.Close()

	unhook := manager.OnStatusChange(func(change connection.StatusChange) {
		logger.Info("connection status",
			"old", change.Old.String(),
			"new", change.New.String(),
			"error", change.Err,
		)
	})
	defer unhook()

	registry := subscription.NewRegistry(manager, logger)
	defer registry.Close()

	messageRouter := router.New(manager.Frames(), registry, logger)
	if err := messageRouter.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}

	aggregator := unread.New(registry, manager, *userID, logger)
	aggregator.OnNotify(func(msg model.Message, conv model.ConversationRef) {
		fmt.Printf("[%s] %s (%s %d): %s\n",
			msg.Timestamp.Format(time.TimeOnly),
			msg.SenderUsername,
			conv.Kind, conv.ID,
			msg.Content,
		)
	})
	aggregator.Start()
	defer aggregator.Stop()

	membership := poller.New(poller.Config{
		Interval: cfg.Notifications.MembershipRefreshInterval,
		Timeout:  cfg.History.Timeout,
	}, restClient, aggregator, logger)

	if err := manager.Connect(ctx, token, *userID); err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}

	if err := membership.Start(ctx); err != nil {
		logger.Error("failed to start membership poller", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				stats := messageRouter.Stats()
				logger.Info("probe status",
					"state", manager.State().String(),
					"total_unread", aggregator.TotalUnread(),
					"frames", stats.FramesReceived,
					"delivered", stats.Delivered,
					"decode_errors", stats.DecodeErrors,
				)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("probe exited", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	membership.Stop(shutdownCtx)
	messageRouter.Stop(shutdownCtx)
}
