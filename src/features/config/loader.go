package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file from the given path and returns a new ConfigManager.
// If the file doesn't exist, creates a default configuration.
// Variables from a .env file in the working directory are loaded before the
// environment overrides are applied.
func Load(path string) (*Manager, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Could not load .env file", "error", err)
	}

	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		cfg = createDefaultConfig()
		if err := saveDefaultConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		cfg, err = decode(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	manager := NewManager(cfg)
	if err := manager.EnsureDirectories(); err != nil {
		return nil, err
	}
	return manager, nil
}

func decode(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Start from the defaults so omitted sections keep sensible values.
	cfg := createDefaultConfig()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overrides secrets and the database DSN from the environment.
func applyEnv(cfg *Config) {
	if key := os.Getenv("DISCOGS_KEY"); key != "" {
		cfg.Providers.Discogs.Key = key
	}
	if secret := os.Getenv("DISCOGS_SECRET"); secret != "" {
		cfg.Providers.Discogs.Secret = secret
	}
	if dsn := os.Getenv("LISTENLOG_DATABASE_DSN"); dsn != "" {
		cfg.Database.Type = "postgres"
		cfg.Database.DSN = dsn
	}
}

// createDefaultConfig creates a new Config with sensible default values
func createDefaultConfig() *Config {
	return &Config{
		DataPath: "./data",
		Logger: Logger{
			Enabled: true,
			Level:   "info",
			Format:  "text",
		},
		Server: Server{
			PrintRoutes: false,
			Port:        3535,
		},
		Database: Database{
			Type: "sqlite",
			Path: "./data/listenlog.db",
		},
		Images: Images{
			MaxSize: 500,
		},
		Providers: Providers{
			MusicBrainz: MusicBrainz{
				BaseURL:     "https://musicbrainz.org/ws/2/",
				CoverArtURL: "https://coverartarchive.org/",
				UserAgent:   "listenlog/0.1 ( https://github.com/contre95/listenlog )",
				RateLimit:   time.Second,
			},
			Discogs: Discogs{
				Enabled: false,
				BaseURL: "https://api.discogs.com/",
			},
		},
		Jobs: Jobs{
			Log:     true,
			LogPath: "./logs/jobs",
		},
	}
}

// saveDefaultConfig saves the default configuration to the specified file path
func saveDefaultConfig(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	slog.Info("Default configuration saved", "path", path)
	return nil
}
