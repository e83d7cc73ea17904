package main

import (
	"fmt"
	"os"
	"path/filepath"

	"srt-search-server/internal"
)

// setupApp loads the config, opens the store, and runs the schema setup.
// The returned closer releases the database handle.
func setupApp(configPath string) (*internal.App, internal.Config, func(), error) {
	config, err := internal.GetConfig(configPath)
	if err != nil {
		return nil, internal.Config{}, nil, fmt.Errorf("unable to read in config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(config.DBPath), 0755); err != nil {
		return nil, internal.Config{}, nil, fmt.Errorf("unable to create database directory: %w", err)
	}

	db, err := internal.OpenDB(config.DBPath, config.Database)
	if err != nil {
		return nil, internal.Config{}, nil, fmt.Errorf("unable to open database: %w", err)
	}

	app := internal.NewApp(db, config)
	if err := app.InitDB(); err != nil {
		db.Close()
		return nil, internal.Config{}, nil, fmt.Errorf("unable to initialize database: %w", err)
	}

	return app, config, func() { db.Close() }, nil
}
