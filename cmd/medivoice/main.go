// medivoice serves the medical voice assistant: the stateless question
// endpoint, browser voice sessions and the observer feed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	cli "github.com/spf13/pflag"

	"github.com/teslashibe/medi-voice/internal/config"
	"github.com/teslashibe/medi-voice/internal/httpc"
	"github.com/teslashibe/medi-voice/internal/log"
	"github.com/teslashibe/medi-voice/pkg/assistant"
	"github.com/teslashibe/medi-voice/pkg/conversation"
	"github.com/teslashibe/medi-voice/pkg/fallback"
	"github.com/teslashibe/medi-voice/pkg/hub"
	"github.com/teslashibe/medi-voice/pkg/inference"
	"github.com/teslashibe/medi-voice/pkg/server"
	"github.com/teslashibe/medi-voice/pkg/session"
	"github.com/teslashibe/medi-voice/pkg/tts"
)

var version = "dev"

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	port := cli.IntP("port", "p", 0, "HTTP port (overrides PORT)")
	logLevel := cli.StringP("log", "l", "", "Log level (overrides LOG_LEVEL)")
	debug := cli.Bool("debug", false, "Log every request")
	cli.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)
	log.Info("starting medivoice", "version", version, "port", cfg.Port)

	if err := run(cfg); err != nil {
		log.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.L()

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	if provider != nil {
		defer provider.Close()
	}

	policy, err := assistant.ParsePolicy(cfg.Dispatch)
	if err != nil {
		return err
	}

	resolver := assistant.NewResolver(provider, fallback.MustNew(),
		assistant.WithModel(cfg.Model),
		assistant.WithLogger(logger),
	)

	events := hub.New("events", logger)
	go events.Run(ctx)

	sessionOpts := []session.Option{
		session.WithTTL(cfg.SessionTTL),
		session.WithHub(events),
		session.WithDispatchOptions(assistant.WithPolicy(policy)),
		session.WithLogger(logger),
	}

	if cfg.RedisAddr != "" {
		rdb, err := redisClient(ctx, cfg)
		if err != nil {
			return err
		}
		defer rdb.Close()
		sessionOpts = append(sessionOpts, session.WithStores(session.RedisStores(rdb, cfg.SessionTTL)))
		log.Info("conversation store", "backend", "redis", "addr", cfg.RedisAddr)
	} else {
		log.Info("conversation store", "backend", "memory")
	}

	if cfg.TTSEnabled {
		speech, err := tts.NewOpenAI(
			tts.WithAPIKey(cfg.OpenAIKey),
			tts.WithVoice(cfg.TTSVoice),
			tts.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("tts: %w", err)
		}
		defer speech.Close()
		sessionOpts = append(sessionOpts, session.WithTTS(speech))
		log.Info("server-side speech enabled", "voice", cfg.TTSVoice)
	}

	sessions := session.NewManager(resolver, sessionOpts...)
	go sessions.Run(ctx)

	serverOpts := []server.Option{
		server.WithStaticDir(cfg.StaticDir),
		server.WithRateLimit(cfg.RateLimit),
		server.WithDebug(cfg.Debug),
		server.WithLogger(logger),
	}
	if provider != nil {
		serverOpts = append(serverOpts, server.WithProvider(provider))
	}
	srv := server.New(resolver, sessions, events, serverOpts...)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Listen(fmt.Sprintf(":%d", cfg.Port))
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", "error", err)
	}
	sessions.CloseAll()
	return nil
}

// newProvider returns nil when no credentials are configured; every reply
// then comes from the fallback responder.
func newProvider(cfg config.Config) (inference.Provider, error) {
	if cfg.OpenAIKey == "" {
		log.Warn("OPENAI_API_KEY not set, answering from the fallback responder only")
		return nil, nil
	}
	p, err := inference.NewOpenAI(
		inference.WithAPIKey(cfg.OpenAIKey),
		inference.WithBaseURL(cfg.OpenAIBaseURL),
		inference.WithModel(cfg.Model),
		inference.WithHTTPClient(httpc.NewClient(inference.DefaultTimeout)),
		inference.WithLogger(log.L()),
	)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	return p, nil
}

func redisClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	rdb, err := conversation.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rdb, nil
}
