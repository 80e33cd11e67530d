package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/sig-0/jcbrates/bot"
	"github.com/sig-0/jcbrates/cmd/env"
	"github.com/sig-0/jcbrates/cmd/setup"
	"github.com/sig-0/jcbrates/prefetch"
	"github.com/sig-0/jcbrates/provider/jcb"
	"github.com/sig-0/jcbrates/server"
	"github.com/sig-0/jcbrates/server/config"
	"github.com/sig-0/jcbrates/storage/types"
)

const webhookRegisterTimeout = 30 * time.Second

// serveCfg wraps the serve configuration
type serveCfg struct {
	fs *flag.FlagSet

	configPath    string
	listenAddress string
	token         string
	webhookURL    string
	webhookSecret string
}

// NewServeCmd creates the serve subcommand
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.registerFlags(fs)
	cfg.fs = fs

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve [flags]",
		LongHelp:   "Serves the jcbrates bot webhook and API",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.listenAddress,
		"listen",
		config.DefaultListenAddress,
		"the IP:PORT URL for the server",
	)

	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the server TOML configuration, if any",
	)

	fs.StringVar(
		&c.token,
		"token",
		"",
		"the Telegram Bot API token, used to register the webhook",
	)

	fs.StringVar(
		&c.webhookURL,
		"webhook-url",
		"",
		"the public HTTPS URL of the webhook, registered with Telegram on startup if set",
	)

	fs.StringVar(
		&c.webhookSecret,
		"webhook-secret",
		"",
		"the secret token expected on Telegram webhook updates, if any",
	)
}

// loadConfig reads the server configuration, if any,
// and applies the flags that were explicitly set on top of it
func (c *serveCfg) loadConfig() (*config.Config, error) {
	serverCfg := config.DefaultConfig()

	if c.configPath != "" {
		fileCfg, err := config.Read(c.configPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read server config, %w", err)
		}

		serverCfg = fileCfg
	}

	c.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			serverCfg.ListenAddress = c.listenAddress
		case "token":
			serverCfg.BotConfig.Token = c.token
		case "webhook-url":
			serverCfg.BotConfig.WebhookURL = c.webhookURL
		case "webhook-secret":
			serverCfg.BotConfig.WebhookSecret = c.webhookSecret
		}
	})

	if err := config.ValidateConfig(serverCfg); err != nil {
		return nil, fmt.Errorf("invalid server config, %w", err)
	}

	return serverCfg, nil
}

func (c *serveCfg) exec(ctx context.Context, _ []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	serverCfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	ratesCfg := serverCfg.RatesConfig

	// Set up the rate lookup stack
	r, err := setup.NewRates(ratesCfg, logger)
	if err != nil {
		return fmt.Errorf("unable to set up rates, %w", err)
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancelFn()

	// Make sure a table is available before accepting requests
	if _, err := r.Engine.Initialize(runCtx); err != nil {
		return fmt.Errorf("unable to initialize rates, %w", err)
	}

	// Set up today's table prefetching
	location, err := ratesCfg.Location()
	if err != nil {
		return err
	}

	scheduler := prefetch.New(
		r.Storage,
		prefetch.WithLogger(logger),
		prefetch.WithMetrics(r.Metrics),
	)

	if err := scheduler.Add(jcb.NewDailySource(
		r.Client,
		r.Storage,
		location,
		ratesCfg.PrefetchIntervalDuration(),
	)); err != nil {
		return fmt.Errorf("unable to add prefetch source, %w", err)
	}

	// Set up the bot
	webhook, err := newWebhook(serverCfg.BotConfig, r, logger)
	if err != nil {
		return err
	}

	s, err := server.New(
		r.Engine,
		server.WithLogger(logger),
		server.WithConfig(serverCfg),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	s.Routes(func(router chi.Router) {
		router.Method(http.MethodPost, "/webhook", webhook)
		router.Method(http.MethodGet, "/metrics", r.Metrics.Handler())
	})

	// Point Telegram at the webhook
	if botCfg := serverCfg.BotConfig; botCfg.WebhookURL != "" {
		registerCtx, cancel := context.WithTimeout(runCtx, webhookRegisterTimeout)
		defer cancel()

		api := bot.NewAPIClient(botCfg.Token, webhookRegisterTimeout)

		if err := api.SetWebhook(registerCtx, botCfg.WebhookURL, botCfg.WebhookSecret); err != nil {
			return fmt.Errorf("unable to register webhook, %w", err)
		}

		logger.Info(
			"registered webhook",
			"url", botCfg.WebhookURL,
		)
	}

	group, gCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		return s.Serve(gCtx)
	})

	group.Go(func() error {
		return scheduler.Run(gCtx)
	})

	return group.Wait()
}

func newWebhook(cfg *config.BotConfig, r *setup.Rates, logger *slog.Logger) (*bot.Webhook, error) {
	origin, err := types.ParseCurrency(cfg.DefaultOrigin)
	if err != nil {
		return nil, err
	}

	target, err := types.ParseCurrency(cfg.DefaultTarget)
	if err != nil {
		return nil, err
	}

	b := bot.New(
		r.Engine,
		bot.WithLogger(logger),
		bot.WithDefaultPair(origin, target),
	)

	return bot.NewWebhook(b, cfg.WebhookSecret), nil
}
