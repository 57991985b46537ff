package config

import "time"

// Config holds the application configuration.
type Config struct {
	DataPath  string    `yaml:"data_path" json:"data_path" validate:"required"`
	Server    Server    `yaml:"server" json:"server"`
	Logger    Logger    `yaml:"logger" json:"logger"`
	Database  Database  `yaml:"database" json:"database"`
	Images    Images    `yaml:"images" json:"images"`
	Providers Providers `yaml:"providers" json:"providers"`
	Jobs      Jobs      `yaml:"jobs" json:"jobs"`
}

type Jobs struct {
	Log     bool   `yaml:"log" json:"log"`
	LogPath string `yaml:"log_path" json:"log_path"`
}

// Database holds the configuration for the database
type Database struct {
	Type string `yaml:"type" json:"type" validate:"required,oneof=sqlite postgres"`
	Path string `yaml:"path" json:"path" validate:"required_if=Type sqlite"`
	DSN  string `yaml:"dsn" json:"dsn" validate:"required_if=Type postgres"`
}

// Server hold the configuration for the Fiber server Config
type Server struct {
	PrintRoutes bool   `yaml:"show_routes" json:"show_routes"`
	Port        uint32 `yaml:"port" json:"port" validate:"required"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Level   string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format  string `yaml:"format" json:"format" validate:"omitempty,oneof=text json logfmt"`
}

// Images holds the configuration for stored artwork. Images wider or taller
// than MaxSize are downscaled, 0 keeps them as downloaded.
type Images struct {
	MaxSize int `yaml:"max_size" json:"max_size" validate:"gte=0"`
}

// Providers holds the configuration for the external metadata services.
type Providers struct {
	MusicBrainz MusicBrainz `yaml:"musicbrainz" json:"musicbrainz"`
	Discogs     Discogs     `yaml:"discogs" json:"discogs"`
}

type MusicBrainz struct {
	BaseURL     string        `yaml:"base_url" json:"base_url" validate:"required,url"`
	CoverArtURL string        `yaml:"cover_art_url" json:"cover_art_url" validate:"required,url"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent" validate:"required"`
	RateLimit   time.Duration `yaml:"rate_limit" json:"rate_limit"`
}

type Discogs struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	BaseURL string `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
	Key     string `yaml:"key" json:"key"`
	Secret  string `yaml:"secret" json:"secret"`
}
