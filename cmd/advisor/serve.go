package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/MJE43/blackjack-advisor-go/internal/api"
	"github.com/MJE43/blackjack-advisor-go/internal/store"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	flags := cmd.Flags()
	flags.String("addr", "127.0.0.1:8080", "listen address")
	flags.Bool("record", false, "record analyses in SQLite")
	flags.String("db", "", "SQLite path (default: user config dir)")
	a.bind("http.addr", flags.Lookup("addr"))
	a.bind("store.enabled", flags.Lookup("record"))
	a.bind("store.path", flags.Lookup("db"))
	return cmd
}

func (a *app) serve(ctx context.Context) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer, err := a.analyzer()
	if err != nil {
		return err
	}
	opts := api.Options{
		Analyzer:             analyzer,
		Simulator:            a.simulator(),
		Logger:               a.logger,
		SimulationIterations: a.cfg.Engine.SimulationIterations,
		RequestTimeout:       a.cfg.HTTP.RequestTimeout,
	}

	if a.cfg.Store.Enabled {
		path := a.cfg.Store.Path
		if path == "" {
			path = defaultStorePath(a.logger)
		}
		st, openErr := store.New(path)
		if openErr != nil {
			return openErr
		}
		rec := store.NewRecorder(st, 0, a.logger)
		defer func() {
			rec.Close()
			err = multierr.Append(err, st.Close())
		}()
		opts.Store = st
		opts.Calculations = rec
		a.logger.Info("store_opened", zap.String("path", path))
	}

	srv := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      api.NewServer(opts).Routes(),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server_listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
