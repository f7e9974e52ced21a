// Command streamctl logs into the streaming gateway, subscribes to QUOTE
// for the equity symbols given with -symbols, and logs decoded quote
// updates until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/alexgolec/td-ameritrade-api/envelope"
	"github.com/alexgolec/td-ameritrade-api/fields"
	"github.com/alexgolec/td-ameritrade-api/internal/config"
	"github.com/alexgolec/td-ameritrade-api/internal/logging"
	"github.com/alexgolec/td-ameritrade-api/internal/metrics"
	"github.com/alexgolec/td-ameritrade-api/principals"
	"github.com/alexgolec/td-ameritrade-api/relay"
	"github.com/alexgolec/td-ameritrade-api/session"
	"github.com/alexgolec/td-ameritrade-api/transport"
)

func main() {
	symbols := flag.String("symbols", "", "comma-separated equity symbols to subscribe to QUOTE")
	accessToken := flag.String("access-token", os.Getenv("STREAM_ACCESS_TOKEN"), "OAuth access token for the principals endpoint")
	baseURL := flag.String("base-url", "https://api.tdameritrade.com/v1", "brokerage API base URL")
	flag.Parse()

	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintf(os.Stderr, "streamctl: maxprocs: %v\n", err)
	}

	cfg, err := config.Load(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamctl: config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamctl: logging: %v\n", err)
		os.Exit(1)
	}
	cfg.LogFields(logger)

	registry := metrics.NewRegistry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go registry.SampleSystem(ctx, cfg.MetricsInterval)
	go serveMetrics(ctx, cfg.MetricsAddr, registry, logger)

	var r *relay.Relay
	if cfg.RelayEnabled() {
		r, err = relay.Dial(relay.Config{URL: cfg.NATSURL, SubjectPrefix: cfg.NATSSubjectPrefix}, registry, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("could not dial relay")
		}
		defer r.Close()
	}

	provider := &principals.HTTPProvider{BaseURL: *baseURL, AccessToken: *accessToken}

	sess, err := session.Login(ctx, provider, session.Config{
		AccountID: cfg.AccountID,
		TransportConfig: transport.Config{
			ConnectTimeout:    cfg.ConnectTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			EnableCompression: cfg.EnableCompression,
		},
		Relay:   r,
		Metrics: registry,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("login failed")
	}
	defer sess.Close()

	sess.Register(fields.QUOTE, func(entry envelope.DataEntry) error {
		logger.Info().Interface("content", entry.Content).Msg("quote update")
		return nil
	})

	if *symbols != "" {
		keys := strings.Split(*symbols, ",")
		if err := sess.Subs(ctx, fields.QUOTE, keys, nil); err != nil {
			logger.Fatal().Err(err).Msg("subscribe failed")
		}
		logger.Info().Strs("symbols", keys).Msg("subscribed to quotes")
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down")
			return
		default:
		}
		if err := sess.HandleMessage(ctx); err != nil {
			logger.Error().Err(err).Msg("handle message failed")
			return
		}
	}
}

func serveMetrics(ctx context.Context, addr string, registry *metrics.Registry, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}
}
