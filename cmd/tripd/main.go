package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"Tripboard/internal/app"
	"Tripboard/internal/config"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("tripd", flag.ContinueOnError)
	flagSet.SetOutput(errOut)
	link := flagSet.String("link", "", "Launch link carrying trip, remote credentials and share parameters")
	yes := flagSet.BoolP("yes", "y", false, "Apply a shared trip from --link without asking")
	addr := flagSet.String("addr", "", "Listen address (default 0.0.0.0:$HTTP_PORT)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(errOut, "config:", err)
		return 1
	}
	log := newLogger(cfg.App, errOut)
	log.Info().Str("env", cfg.App.Env).Str("cache", cfg.Cache.Backend).Msg("config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, *link, log)
	if err != nil {
		log.Error().Err(err).Msg("app init")
		return 1
	}
	sess := application.Session()
	svc := application.Service()
	st := svc.Status()
	ev := log.Info().Str("trip", sess.TripID).Str("mode", string(st.Mode))
	if st.ConnErr != nil {
		ev = ev.AnErr("connection_error", st.ConnErr)
	}
	ev.Msg("trip session ready")

	if err := importShared(ctx, application, in, out, *yes); err != nil {
		log.Error().Err(err).Msg("shared trip not applied")
	}
	if sess.ShareToken != "" && sess.CleanLink != "" {
		fmt.Fprintln(out, "Launch link without share data:", sess.CleanLink)
	}

	application.StartReminders(ctx)

	listen := *addr
	if listen == "" {
		listen = "0.0.0.0:" + cfg.HTTP.Port
	}
	server := &http.Server{
		Addr:         listen,
		Handler:      application.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	code := 0
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server error")
			code = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown")
		code = 1
	}
	if err := application.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("close")
		code = 1
	}
	return code
}

func newLogger(cfg config.AppConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Env == "dev" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("version", cfg.Version).Logger()
}
