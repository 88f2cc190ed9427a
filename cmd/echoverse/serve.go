package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cfgpkg "echoverse/internal/config"
	"echoverse/internal/web"
)

// echoverse serve
func cmdServe(args []string) error {
	var cf commonFlags
	var addr, voice, origins stringFlag
	rateLimit := -1

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addCommonFlags(fs, &cf)
	fs.Var(&addr, "addr", "Listen address")
	fs.Var(&voice, "voice", "TTS voice")
	fs.Var(&origins, "cors-origins", "Comma-separated origins allowed to call /api")
	fs.IntVar(&rateLimit, "rate-limit", -1, "Generate requests per minute per IP (0 disables)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	setupLogger(cf.logLevel)

	var flagOv cfgpkg.Overrides
	if addr.set {
		flagOv.Addr = &addr.v
	}
	if voice.set {
		flagOv.Voice = &voice.v
	}
	if rateLimit >= 0 {
		flagOv.RateLimit = &rateLimit
	}
	cfg, err := loadConfig(cf, flagOv)
	if err != nil {
		return err
	}
	if err := cfgpkg.ValidateForServe(cfg); err != nil {
		return err
	}

	pipeline, store, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	handler := web.NewServer(pipeline, store, web.Options{
		RateLimit:      cfg.RateLimit,
		AllowedOrigins: splitList(origins.v),
	}).Routes()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RunTimeoutDuration() + 30*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Addr, "rewriteProvider", cfg.RewriteProvider, "ttsProvider", cfg.TTSProvider, "out", cfg.OutDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
