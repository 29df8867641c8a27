// Package main implements the Vahan dashboard server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"google.golang.org/grpc"

	"github.com/WessleyAI/vahan-insights/engine/dashboard"
	"github.com/WessleyAI/vahan-insights/engine/vahan"
	"github.com/WessleyAI/vahan-insights/pkg/config"
	"github.com/WessleyAI/vahan-insights/pkg/metrics"
	"github.com/WessleyAI/vahan-insights/pkg/mid"
	"github.com/WessleyAI/vahan-insights/pkg/natsutil"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	reg := metrics.New()
	client := vahan.New(vahan.Options{
		BaseURL:       cfg.BaseURL,
		UserAgent:     cfg.UserAgent,
		Timeout:       cfg.Timeout,
		RatePerSecond: cfg.RatePerSecond,
		Burst:         cfg.Burst,
		Logger:        logger,
		Metrics:       reg,
	})
	svc := dashboard.New(client, dashboard.Options{
		IncludeTopMakers: cfg.IncludeTopMakers,
		Metrics:          reg,
	}, logger)
	s := newServer(svc, reg, logger)

	// --- Optional NATS responder ---
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.OTelService))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		if _, err := natsutil.Respond(nc, cfg.NATSSubject, s.buildForRequest(renderBudget(cfg))); err != nil {
			return fmt.Errorf("nats subscribe: %w", err)
		}
		logger.Info("nats responder ready", "subject", cfg.NATSSubject)
	}

	// --- Optional gRPC health server ---
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		gs, _ := newHealthServer()
		go func() {
			logger.Info("grpc health server starting", "port", cfg.GRPCPort)
			if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				logger.Error("grpc health server failed", "err", err)
			}
		}()
		defer gs.GracefulStop()
	}

	// --- HTTP server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.handler(cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: renderBudget(cfg) + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// handler wires the routes and the middleware chain. Metrics sits directly
// around the mux so it sees the matched pattern.
func (s *server) handler(cfg config.Config) http.Handler {
	return mid.Chain(s.routes(),
		mid.Recover(s.logger),
		mid.RequestID(),
		mid.Logger(s.logger),
		mid.OTel(cfg.OTelService),
		mid.CORS(cfg.CORSOrigin),
		mid.Metrics(s.reg),
	)
}

// renderBudget bounds one full render: every endpoint call may use the
// whole client timeout.
func renderBudget(cfg config.Config) time.Duration {
	return time.Duration(endpointCalls) * cfg.Timeout
}

// endpointCalls is the upper bound of upstream calls per render.
const endpointCalls = 8
