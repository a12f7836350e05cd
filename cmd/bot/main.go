package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/xaenox/relay-bot/internal/bot"
	"github.com/xaenox/relay-bot/internal/command"
	"github.com/xaenox/relay-bot/internal/dispatcher"
	"github.com/xaenox/relay-bot/internal/models"
	"github.com/xaenox/relay-bot/internal/msglog"
	"github.com/xaenox/relay-bot/internal/prompt"
	"github.com/xaenox/relay-bot/internal/session"
	"github.com/xaenox/relay-bot/internal/storage"
	"github.com/xaenox/relay-bot/internal/transport"
	"github.com/xaenox/relay-bot/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", configPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := afero.NewOsFs()

	// Initialize storage
	logger.Info("Using message log storage", zap.String("driver", cfg.Storage.Driver))
	sink, err := storage.Open(storage.Config{
		Driver: cfg.Storage.Driver,
		DSN:    cfg.Storage.DSN,
		Dir:    cfg.Log.Dir,
	}, fs)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer sink.Close()

	tg := transport.NewTelegram(transport.Config{
		Token:       cfg.Telegram.Session,
		Endpoint:    cfg.Telegram.APIEndpoint,
		PollTimeout: cfg.Telegram.PollTimeout,
	}, logger.Named("transport"))

	sessions := session.NewManager(tg, cfg.Telegram.Phone, prompt.NewTerminal(), logger.Named("session"))
	sess, err := sessions.Login(ctx)
	if errors.Is(err, session.ErrLoginFailed) {
		logger.Error("Failed to log in. Exiting...")
		return
	}
	if err != nil {
		logger.Fatal("Login error", zap.Error(err))
	}
	logger.Info("You should now be connected", zap.String("session", sess.Token))

	grammar := command.NewGrammar(cfg.Commands)
	disp := dispatcher.New(cfg.Commands, map[string]dispatcher.Backend{
		models.BackendHTTP:   dispatcher.NewHTTPBackend(&http.Client{Timeout: cfg.LLM.Timeout}),
		models.BackendOpenAI: dispatcher.NewOpenAIBackend(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens),
	}, logger.Named("dispatcher"))

	buffer := msglog.NewBuffer(sink, logger.Named("msglog"))

	b := bot.New(bot.Config{
		Transport:   tg,
		Grammar:     grammar,
		Dispatcher:  disp,
		Context:     storage.NewContextFile(fs, cfg.LLM.ContextPath),
		Log:         buffer,
		OwnUsername: cfg.Telegram.Username,
		Logger:      logger.Named("bot"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return buffer.Run(gctx, cfg.Log.FlushInterval)
	})
	g.Go(func() error {
		return b.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
	logger.Info("Shut down")
}
