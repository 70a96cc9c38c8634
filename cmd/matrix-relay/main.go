// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Matrix-relay answers Matrix room messages with replies from an
// OpenAI-compatible chat completions API, and joins the rooms it is
// invited to.
//
// Identity and secrets come from the environment (optionally seeded
// from a .env file); non-secret tuning comes from an optional YAML or
// JSONC settings file. See lib/config for the variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/relay/lib/config"
	"github.com/bureau-foundation/relay/lib/llm"
	"github.com/bureau-foundation/relay/lib/service"
	"github.com/bureau-foundation/relay/lib/version"
	"github.com/bureau-foundation/relay/relay"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath    string
		envFile       string
		metricsListen string
		verbose       bool
		showVersion   bool
	)

	flagSet := pflag.NewFlagSet("matrix-relay", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "settings file (.yaml, .yml, .json or .jsonc); overrides RELAY_CONFIG")
	flagSet.StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default: .env if present)")
	flagSet.StringVar(&metricsListen, "metrics-listen", "", "address to serve Prometheus metrics on (e.g. 127.0.0.1:9090); disabled when empty")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Printf("matrix-relay %s\n", version.Info())
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := config.Load(config.LoadOptions{EnvFile: envFile, ConfigFile: configPath})
	if err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	defer cfg.Close()

	logger := service.NewLogger(verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// No client-wide timeout: /sync is a long poll, and completion
	// calls are bounded by their own context deadline.
	httpClient := &http.Client{}

	_, session, err := service.Login(ctx, service.LoginConfig{
		HomeserverURL:     cfg.HomeserverURL,
		UserID:            cfg.UserID,
		Password:          cfg.Password,
		DeviceDisplayName: cfg.Settings.DeviceDisplayName,
		HTTPClient:        httpClient,
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	userID, err := service.ValidateSession(ctx, session)
	if err != nil {
		return err
	}
	logger.Info("logged in",
		"user_id", userID,
		"device_id", session.DeviceID(),
		"authorized_users", len(cfg.AuthorizedUsers),
		"model", cfg.Settings.Completion.Model,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := relay.NewMetrics(registry)
	if metricsListen != "" {
		if err := startMetricsServer(ctx, metricsListen, registry, logger); err != nil {
			return err
		}
	}

	completion := cfg.Settings.Completion
	provider := llm.NewOpenAI(llm.OpenAIConfig{
		BaseURL:    completion.BaseURL,
		APIKey:     cfg.APIKey,
		HTTPClient: httpClient,
	})

	matrixRelay := relay.New(relay.Config{
		Session: session,
		Completer: relay.NewProviderCompleter(provider, relay.CompletionConfig{
			Model:        completion.Model,
			SystemPrompt: completion.SystemPrompt,
			MaxTokens:    completion.MaxTokens,
			Temperature:  completion.Temperature,
			User:         completion.User,
			Timeout:      completion.Timeout.Std(),
			Logger:       logger,
		}),
		Authorized:      relay.NewAuthorizationSet(cfg.AuthorizedUsers),
		HistoryPageSize: cfg.Settings.History.PageSize,
		SyncTimeout:     cfg.Settings.Sync.Timeout.Std(),
		Logger:          logger,
		Metrics:         metrics,
	})

	if err := matrixRelay.Run(ctx); err != nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}

// startMetricsServer serves /metrics until ctx is cancelled. It returns
// once the listener is bound, or with the bind error.
func startMetricsServer(ctx context.Context, address string, registry *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address: address,
		Handler: mux,
		Logger:  logger,
	})
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx)
	}()

	select {
	case <-server.Ready():
		go func() {
			if err := <-serveErr; err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		return nil
	case err := <-serveErr:
		return fmt.Errorf("metrics server: %w", err)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `matrix-relay - answer Matrix messages with a chat completion model

The relay logs in as MATRIX_USERNAME, accepts invites addressed to it,
and replies in joined rooms using the room's recent history as the
conversation. Only senders listed in AUTHORIZED_USERS get replies when
that variable is set.

Usage:
  matrix-relay [flags]

Environment:
  MATRIX_USERNAME        full user ID of the bot, e.g. @bot:example.org (required)
  MATRIX_PASSWORD        login password (required)
  OPENAI_API_KEY         completion API key (required)
  AUTHORIZED_USERS       comma-separated user IDs allowed to trigger replies
  MATRIX_HOMESERVER_URL  skip .well-known discovery and use this homeserver
  RELAY_CONFIG           settings file, same as --config

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
