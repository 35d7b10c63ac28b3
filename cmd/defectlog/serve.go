package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"defectlog/internal/server"

	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP API",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	cCtx.Context = ctx

	app, err := setup(cCtx, setupOptions{jsonLogs: true, degraded: true})
	if err != nil {
		return err
	}
	defer app.Close()

	logger := app.logger

	srv, err := server.New(app.config, logger, server.Dependencies{
		Catalog:     app.catalog,
		Defects:     app.defects,
		Preferences: app.prefs,
		Query:       app.query,
		Stats:       app.stats,
		Capture:     app.capture,
		Assembler:   app.assembler,
		Exporter:    app.exporter,
		Sharer:      app.sharer,
	})
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", app.config.ServerPort).Infof("server starting http://localhost:%d", app.config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
