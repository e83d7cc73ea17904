package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"srt-search-server/internal"
)

func newServeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configFlag)
		},
	}
}

func runServe(configPath string) error {
	// --- Logging Setup ---
	if err := os.MkdirAll("tmp", 0755); err != nil {
		slog.Error("failed to create log directory", "func", "runServe", "path", "tmp", "err", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join("tmp", fmt.Sprintf("%s-server.log", timestamp))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		slog.Error("unable to open log file", "func", "runServe", "path", logPath, "err", err)
		internal.SetupLogging(nil)
	} else {
		defer logFile.Close()
		internal.SetupLogging(logFile)
	}

	slog.Info("server starting up", "version", Version, "build_time", BuildTime)

	// --- Single Instance Lock ---
	// Two server processes must never share the SQLite file.
	lock := flock.New(filepath.Join("tmp", "srtsearch.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another srtsearch server instance is already running")
	}
	defer lock.Unlock()

	// --- App Setup ---
	app, config, closeDB, err := setupApp(configPath)
	if err != nil {
		return err
	}
	defer closeDB()

	// Fail early if the driver lacks FTS5; search would break later.
	if err := app.VerifyFTS(context.Background()); err != nil {
		return err
	}
	slog.Info("database opened and FTS5 verified", "func", "runServe", "path", config.DBPath)

	if config.MediaDir == "" {
		slog.Warn("media_dir not configured; reindex and media serving are disabled")
	}

	// --- Server Setup ---
	mux := http.NewServeMux()
	app.InitServerEndpoints(mux)
	corsHandler := internal.CorsMiddleware(mux)

	server := &http.Server{
		Addr:              config.ListenAddr,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	slog.Info("server listening", "func", "runServe", "addr", config.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
