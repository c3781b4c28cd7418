package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tooldesk-io/tooldesk/internal/agent"
	"github.com/tooldesk-io/tooldesk/internal/api"
	"github.com/tooldesk-io/tooldesk/internal/config"
	"github.com/tooldesk-io/tooldesk/internal/connector"
	slackconn "github.com/tooldesk-io/tooldesk/internal/connector/slack"
	"github.com/tooldesk-io/tooldesk/internal/connector/telegram"
	"github.com/tooldesk-io/tooldesk/internal/gate"
	"github.com/tooldesk-io/tooldesk/internal/intake"
	"github.com/tooldesk-io/tooldesk/internal/logbuf"
	"github.com/tooldesk-io/tooldesk/internal/provider"
	"github.com/tooldesk-io/tooldesk/internal/session"
	"github.com/tooldesk-io/tooldesk/internal/ticket"
	"github.com/tooldesk-io/tooldesk/internal/tool"
	"github.com/tooldesk-io/tooldesk/pkg/protocol"
	"github.com/tooldesk-io/tooldesk/web"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Secrets can live in a local .env; missing file is fine.
	godotenv.Load()

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	// Load config (file or env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("tooldeskd starting")

	// 1. Initialize provider
	var prov provider.Provider
	switch cfg.Provider.Type {
	case "anthropic":
		var opts []provider.AnthropicOption
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, provider.WithAnthropicBaseURL(cfg.Provider.BaseURL))
		}
		if cfg.Provider.Model != "" {
			opts = append(opts, provider.WithAnthropicModel(cfg.Provider.Model))
		}
		prov = provider.NewAnthropic(cfg.Provider.APIKey, opts...)
	default: // "openai" or empty
		var opts []provider.OpenAIOption
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, provider.WithBaseURL(cfg.Provider.BaseURL))
		}
		if cfg.Provider.Model != "" {
			opts = append(opts, provider.WithModel(cfg.Provider.Model))
		}
		prov = provider.NewOpenAI(cfg.Provider.APIKey, opts...)
	}
	logger.Info("provider initialized", "type", prov.Name(), "model", cfg.Provider.Model)

	// 2. Initialize ticket store
	var store ticket.Store
	switch cfg.Storage.Driver {
	case "log":
		store = ticket.NewLogStore(logger.With("component", "ticket-log"))
	default:
		os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755)
		store, err = ticket.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			logger.Error("failed to open ticket store", "path", cfg.Storage.Path, "error", err)
			os.Exit(1)
		}
	}
	defer store.Close()

	// 3. Admission gate (disabled unless a limit is configured)
	var admitter intake.Admitter
	if cfg.RateLimit.DailyTicketLimit > 0 {
		var opts []gate.Option
		if cfg.RateLimit.FailClosed {
			opts = append(opts, gate.WithFailClosed())
		}
		admitter = gate.New(store, cfg.RateLimit.DailyTicketLimit, logger.With("component", "gate"), opts...)
		logger.Info("admission gate enabled", "daily_limit", cfg.RateLimit.DailyTicketLimit, "fail_closed", cfg.RateLimit.FailClosed)
	}

	// 4. Sessions, tools, agent, intake service
	idleTTL := session.DefaultIdleTTL
	if cfg.Sessions.IdleTTLMinutes > 0 {
		idleTTL = time.Duration(cfg.Sessions.IdleTTLMinutes) * time.Minute
	}
	seed := []protocol.ChatMessage{{Role: protocol.RoleSystem, Content: agent.IntakeInstructions}}
	sessions := session.NewRegistry(seed, idleTTL)

	tools := tool.NewRegistry()
	tools.Register(&tool.LogTicketTool{
		Store:  store,
		Logger: logger.With("component", "log-ticket"),
	})

	ag := agent.New(prov, tools)
	ag.Logger = logger.With("component", "agent")

	svc := intake.New(sessions, ag, admitter, logger.With("component", "intake"))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// 5. Session idle sweeper
	schedule := cfg.Sessions.SweepSchedule
	if schedule == "" {
		schedule = session.DefaultSweepSchedule
	}
	sweeper, err := session.NewSweeper(sessions, schedule, logger.With("component", "sweeper"))
	if err != nil {
		logger.Error("invalid sweep schedule", "schedule", schedule, "error", err)
		os.Exit(1)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		safeGo(logger, "sweeper", func() { sweeper.Start(ctx) })
	}()

	// 6. Connectors
	inbound := connector.InboundHandler(func(ctx context.Context, channel, chatID, text string) (string, error) {
		return svc.Handle(ctx, channel, chatID, text)
	})

	if cfg.Telegram != nil {
		tgConn, err := telegram.New(telegram.Config{
			Token:     cfg.Telegram.Token,
			AllowFrom: cfg.Telegram.AllowFrom,
		}, inbound, logger.With("connector", "telegram"))
		if err != nil {
			logger.Error("failed to init telegram connector", "error", err)
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			safeGo(logger, "telegram", func() { tgConn.Start(ctx) })
		}()
	}

	if cfg.Slack != nil {
		slConn, err := slackconn.New(slackconn.Config{
			BotToken: cfg.Slack.BotToken,
			AppToken: cfg.Slack.AppToken,
			Channels: cfg.Slack.Channels,
		}, inbound, logger.With("connector", "slack"))
		if err != nil {
			logger.Error("failed to init slack connector", "error", err)
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			safeGo(logger, "slack", func() { slConn.Start(ctx) })
		}()
	}

	// 7. HTTP server
	srv := api.NewServer(svc, store, api.Config{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		AdminKey: cfg.Server.AdminKey,
	}, logger.With("component", "api"), logBuf, web.Handler())

	wg.Add(1)
	go func() {
		defer wg.Done()
		safeGo(logger, "api-server", func() { srv.Start(ctx) })
	}()
	logger.Info("api server started", "host", cfg.Server.Host, "port", cfg.Server.Port)

	// 8. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	wg.Wait()
	logger.Info("tooldeskd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
