package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/registre/internal/health"
	"github.com/BrandonDHaskell/registre/internal/httpapi"
	"github.com/BrandonDHaskell/registre/internal/metrics"
	"github.com/BrandonDHaskell/registre/internal/register/draft"
	"github.com/BrandonDHaskell/registre/internal/register/persist"
	"github.com/BrandonDHaskell/registre/internal/register/service"
	"github.com/BrandonDHaskell/registre/internal/register/store/factory"
	"github.com/BrandonDHaskell/registre/internal/register/types"
)

const shutdownTimeout = 5 * time.Second

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and gRPC health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd.Context())
		},
	}
}

func serveRun(parent context.Context) error {
	cfg, logger, err := commonRun()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	sub, closeStore, err := factory.Open(ctx, cfg, logger)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error().Err(err).Msg("close storage")
		}
	}()

	ps := persist.New(sub,
		persist.WithNamespace(cfg.Namespace),
		persist.WithLogger(logger.With().Str("component", "persist").Logger()),
		persist.WithMetrics(m),
	)

	register := service.NewRegister(ps,
		service.WithResolver(cfg.DefaultResolver),
		service.WithLogger(logger.With().Str("component", "register").Logger()),
		service.WithMetrics(m),
	)
	register.Load(ctx)

	draftLog := logger.With().Str("component", "draft").Logger()
	visitorDraft := draft.New[types.VisitorDraft](ps, persist.VisitorDraftKey,
		draft.WithDebounce(cfg.DraftDebounce),
		draft.WithLogger(draftLog),
		draft.WithMetrics(m),
	)
	eventDraft := draft.New[types.EventDraft](ps, persist.EventDraftKey,
		draft.WithDebounce(cfg.DraftDebounce),
		draft.WithLogger(draftLog),
		draft.WithMetrics(m),
	)
	// Pending edits are written before storage closes.
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		visitorDraft.Close(flushCtx)
		eventDraft.Close(flushCtx)
	}()

	pruner := draft.NewPruner(draft.PrunerConfig{
		RetentionDays: cfg.DraftRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger.With().Str("component", "pruner").Logger(), visitorDraft, eventDraft)
	pruner.Start(ctx)
	defer pruner.Stop()

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:          logger.With().Str("component", "http").Logger(),
		Addr:            cfg.HTTPAddr,
		Register:        register,
		Visitors:        service.NewVisitorIntake(register, visitorDraft),
		Events:          service.NewEventIntake(register, eventDraft),
		Metrics:         m,
		Gatherer:        reg,
		Health:          ps.Ping,
		Location:        cfg.Location(),
		SignatureWidth:  cfg.SignatureWidth,
		SignatureHeight: cfg.SignatureHeight,
	})

	var hs *health.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return errors.Wrap(err, "listen grpc")
		}
		hs = health.New(ps, 0, logger.With().Str("component", "health").Logger())
		go func() {
			if err := hs.Serve(lis); err != nil {
				logger.Error().Err(err).Msg("grpc server error")
				stop()
			}
		}()
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	if hs != nil {
		hs.Stop()
	}
	return nil
}
