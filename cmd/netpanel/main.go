package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/netpanel/internal/api"
	"github.com/dgnsrekt/netpanel/internal/browser"
	"github.com/dgnsrekt/netpanel/internal/capture"
	"github.com/dgnsrekt/netpanel/internal/cdp"
	"github.com/dgnsrekt/netpanel/internal/clipboard"
	"github.com/dgnsrekt/netpanel/internal/config"
	"github.com/dgnsrekt/netpanel/internal/metrics"
	"github.com/dgnsrekt/netpanel/internal/netutil"
	"github.com/dgnsrekt/netpanel/internal/notify"
	"github.com/dgnsrekt/netpanel/internal/panel"
	"github.com/dgnsrekt/netpanel/internal/storage"
	"github.com/dgnsrekt/netpanel/internal/stream"
	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("netpanel config loaded",
		"version", version,
		"cdp_url", cfg.CDPURL(),
		"bind_addr", cfg.BindAddr,
		"tab_url_filter", cfg.TabURLFilter,
		"record_on_start", cfg.RecordOnStart,
		"max_body_bytes", cfg.MaxBodyBytes,
		"journal_dir", cfg.JournalDir,
		"launch_browser", cfg.LaunchBrowser,
		"clipboard_fallback", cfg.ClipboardFallback,
		"notify", cfg.NotifyURL != "",
	)

	ln, err := netutil.Listen(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to bind control API", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	fallback, err := clipboard.FallbackFromName(cfg.ClipboardFallback)
	if err != nil {
		slog.Error("invalid clipboard fallback", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var launcher *browser.Launcher
	if cfg.LaunchBrowser {
		launcher = browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			StartURL:   cfg.StartURL,
			ProfileDir: cfg.BrowserProfileDir,
		})
		if err := launcher.Launch(ctx); err != nil {
			slog.Error("failed to launch browser", "error", err)
		}
		defer launcher.Stop()
	}

	m := metrics.New()
	log := capture.NewLog()
	broker := stream.NewBroker()
	stream.PublishLog(log, broker)

	cdpClient := cdp.NewClient(cdp.Options{CDPURL: cfg.CDPURL(), TabURLFilter: cfg.TabURLFilter}, nil)
	connectCtx, connectCancel := context.WithTimeout(ctx, 15*time.Second)
	if err := cdpClient.Connect(connectCtx); err != nil {
		slog.Warn("CDP connect failed, panel will show an empty log", "cdp_url", cfg.CDPURL(), "error", err)
	}
	connectCancel()
	defer func() {
		if err := cdpClient.Close(); err != nil {
			slog.Debug("CDP client close failed", "error", err)
		}
	}()

	adapter := capture.NewAdapter(cdpClient, log, capture.Options{
		Recording:    cfg.RecordOnStart,
		MaxBodyBytes: cfg.MaxBodyBytes,
		BodyTimeout:  cfg.BodyTimeout(),
		Metrics:      m,
	})
	if err := adapter.Start(ctx); err != nil {
		slog.Error("failed to start capture", "error", err)
		os.Exit(1)
	}
	defer adapter.Close()

	journal := storage.NewJournal(cfg.JournalDir, uuid.NewString(), cfg.JournalBufferSize, cfg.JournalMaxSizeMB)
	defer func() {
		if err := journal.Close(); err != nil {
			slog.Debug("journal close failed", "error", err)
		}
	}()

	var notifier panel.Notifier
	if cfg.NotifyURL != "" {
		notifier = notify.New(cfg.NotifyURL, "netpanel", nil)
	}

	session := panel.NewSession(adapter, panel.Options{
		Clipboard: clipboard.NewSystem(fallback),
		Journal:   journal,
		Artifacts: storage.NewArtifactWriter(cfg.JournalDir),
		Metrics:   m,
		Notifier:  notifier,
		Tabs:      cdpClient.Tabs,
		ToastTTL:  cfg.ToastTTL(),
		Version:   version,
	})

	h := api.NewServer(session, api.Options{Broker: broker, Metrics: m})
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	addr := ln.Addr().String()
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("netpanel listening", "addr", addr, "docs", "http://"+addr+"/docs",
			"session_id", session.ID(), "artifacts", filepath.Clean(cfg.JournalDir))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		slog.Error("netpanel server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("netpanel shutdown failed", "error", err)
	}
	session.Wait()
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
