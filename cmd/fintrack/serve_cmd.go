package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"fintrack/internal/amqp"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/worker"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard",
		Long: "Serve the dashboard and its JSON API. When AMQP_URL is set, import events\n" +
			"from other processes invalidate the dashboard's cached reports.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = net.JoinHostPort("", a.cfg.Port)
			}
			return a.withRepo(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
				return runServe(ctx, a, repo, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :PORT).")
	return cmd
}

func runServe(ctx context.Context, a *app, repo *storage.SQLiteRepository, addr string) error {
	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:           addr,
		CacheTTL:       a.cfg.CacheTTL,
		RateLimitRPS:   a.cfg.RateLimitRPS,
		RateLimitBurst: a.cfg.RateLimitBurst,
		Logger:         a.logger,
	}, repo)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfoContext(gctx, "Dashboard listening", "addr", addr, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("Shutting down dashboard", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if a.cfg.AMQPEnabled() {
		client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
		if err != nil {
			a.logger.Warn("AMQP unavailable, cached reports expire by TTL only", log.FieldError, err.Error())
		} else {
			defer client.Close()
			invalidator := worker.NewCacheInvalidator(a.logger, srv.Flushers()...)
			g.Go(func() error {
				return invalidator.Run(gctx, client)
			})
		}
	}

	return g.Wait()
}
