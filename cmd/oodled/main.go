// Package main provides oodled, the HTTP daemon serving oodle files.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"oodle/internal/auth"
	"oodle/internal/oodle"
	"oodle/internal/server"
	"oodle/internal/store"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("oodled failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	flags := flag.NewFlagSet("oodled", flag.ContinueOnError)
	workDir := flags.StringP("cwd", "C", "", "run as if started in this directory")
	configPath := flags.StringP("config", "c", "", "explicit config file")
	dataDir := flags.String("data-dir", "", "override the oodle directory")
	listen := flags.String("listen", "", "listen address (overrides config)")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	cfg, err := oodle.LoadConfig(oodle.LoadConfigInput{
		WorkDirOverride: *workDir,
		ConfigPath:      *configPath,
		DataDirOverride: *dataDir,
		Env:             env,
	})
	if err != nil {
		return err
	}

	if *listen != "" {
		cfg.Listen = *listen
	}

	st, err := store.Open(cfg.DataDirAbs)
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var creds *auth.Credentials

	if cfg.Credentials != "" {
		creds, err = auth.LoadCredentials(cfg.Credentials)
		if err != nil {
			return err
		}
	} else {
		log.Warn("no credentials file configured, serving without authentication")
	}

	srv := server.New(st, creds, log)
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("listening", "addr", cfg.Listen, "data_dir", cfg.DataDirAbs)

		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err = <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}
