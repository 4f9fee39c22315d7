package main

import (
	"context"
	"fmt"
	"github.com/myrjola/tutorai/internal/audit"
	"github.com/myrjola/tutorai/internal/errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func (app *application) configureAndStartServer(ctx context.Context, addr string) error {
	var err error
	shutdownComplete := make(chan struct{})
	idleTimeout := time.Minute
	defaultTimeout := 5 * time.Second //nolint:mnd // page handlers never wait for the language model.
	srv := &http.Server{
		ErrorLog:          slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
		Handler:           app.routes(defaultTimeout),
		IdleTimeout:       idleTimeout,
		ReadTimeout:       defaultTimeout,
		WriteTimeout:      defaultTimeout,
		ReadHeaderTimeout: time.Second,
	}

	go app.reloadQuestionsOnHangup(ctx)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigint)

		select {
		case <-sigint:
		case <-ctx.Done():
		}
		app.logger.LogAttrs(ctx, slog.LevelInfo, "shutting down server")
		app.auditor.Access(ctx, audit.AppStop, "Application stopped", "", audit.Metadata{}) //nolint:exhaustruct // no client

		// We received an interrupt signal, shut down.
		shutdownContext, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownContext); shutdownErr != nil {
			shutdownErr = errors.Wrap(shutdownErr, "shutdown server")
			app.logger.LogAttrs(ctx, slog.LevelError, "error shutting down server", errors.SlogError(shutdownErr))
		}
		close(shutdownComplete)
	}()

	var listener net.Listener
	if listener, err = net.Listen("tcp", addr); err != nil {
		return errors.Wrap(err, "TCP listen")
	}
	listenAddr := listener.Addr().String()
	app.auditor.Access(ctx, audit.AppStart, "Application started", "", audit.Metadata{}) //nolint:exhaustruct // no client
	app.auditor.App("").Info(ctx, audit.AppLaunched,
		fmt.Sprintf("Listening on %s | Authentication: %t", listenAddr, app.cfg.Auth))
	app.logger.LogAttrs(ctx, slog.LevelInfo, "starting server", slog.String("addr", listenAddr))
	if err = srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server serve")
	}
	<-shutdownComplete

	return nil
}

// reloadQuestionsOnHangup swaps in a freshly loaded question catalog on every SIGHUP.
func (app *application) reloadQuestionsOnHangup(ctx context.Context) {
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hangup:
			app.logger.LogAttrs(ctx, slog.LevelInfo, "reloading questions")
			app.library.Reload()
		}
	}
}
