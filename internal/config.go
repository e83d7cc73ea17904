package internal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	MediaDir   string         `yaml:"media_dir"`
	APIKey     string         `yaml:"api_key"`
	ListenAddr string         `yaml:"listen_addr"`
	DBPath     string         `yaml:"db_path"`
	Database   DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	JournalMode   string `yaml:"journal_mode"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
	Synchronous   string `yaml:"synchronous"`
	CacheSizeKB   int    `yaml:"cache_size_kb"`
	TempStore     string `yaml:"temp_store"`
	MmapSizeBytes int64  `yaml:"mmap_size_bytes"`
}

// DefaultConfig matches the behavior of a bare deployment with no
// config.yaml present.
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":3456",
		DBPath:     "tmp/srtsearch.db",
		Database: DatabaseConfig{
			JournalMode:   "WAL",
			BusyTimeoutMS: 5000,
			Synchronous:   "NORMAL",
			TempStore:     "MEMORY",
		},
	}
}

// GetConfig loads the YAML config file and applies environment overrides.
// A missing file is not an error; defaults plus environment apply.
func GetConfig(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("unable to read yaml file: %v", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("unable to unmarshal yaml: %v", err)
		}
	}

	if mediaDir := os.Getenv("MEDIA_DIR"); mediaDir != "" {
		config.MediaDir = mediaDir
	}
	if port := os.Getenv("PORT"); port != "" {
		config.ListenAddr = ":" + port
	}
	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		config.APIKey = apiKey
	}

	if config.ListenAddr == "" {
		config.ListenAddr = ":3456"
	}
	if config.DBPath == "" {
		config.DBPath = "tmp/srtsearch.db"
	}

	return config, nil
}
