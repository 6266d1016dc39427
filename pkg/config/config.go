package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yi-nology/asset_harbor/pkg/storage"
)

// Config captures service level configuration loaded from config.yaml.
// Components receive the relevant sections by reference at construction time
// and never read ambient process state themselves.
type Config struct {
	Env         string            `yaml:"env"`
	Server      ServerConfig      `yaml:"server"`
	Media       MediaConfig       `yaml:"media"`
	Compression CompressionConfig `yaml:"compression"`
	CORS        CORSConfig        `yaml:"cors"`
	Audit       AuditConfig       `yaml:"audit"`
	Database    DatabaseConfig    `yaml:"database"`
	Mirror      MirrorConfig      `yaml:"mirror"`
	Redis       RedisConfig       `yaml:"redis"`
}

// ServerConfig defines HTTP server options.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// MediaConfig defines the asset tree location and the client-facing upload
// and resize constraints.
type MediaConfig struct {
	RootDir       string   `yaml:"root_dir"`
	AllowedTags   []string `yaml:"allowed_tags"`
	AllowedWidths []int    `yaml:"allowed_widths"`
	AllowedTypes  []string `yaml:"allowed_types"`
	MaxFileSizeMB int64    `yaml:"max_file_size_mb"`
	WebpQuality   int      `yaml:"webp_quality"`
}

// MaxFileSizeBytes returns the upload size limit in bytes.
func (m MediaConfig) MaxFileSizeBytes() int64 {
	return m.MaxFileSizeMB * 1024 * 1024
}

// CompressionConfig controls optional gzip content-encoding of derivative
// responses. It changes only what is sent, never what is cached on disk.
type CompressionConfig struct {
	Enabled bool `yaml:"enabled"`
	Level   int  `yaml:"level"`
}

// CORSConfig defines CORS middleware settings.
type CORSConfig struct {
	AllowOrigin      string `yaml:"allow_origin"`
	AllowMethods     string `yaml:"allow_methods"`
	AllowHeaders     string `yaml:"allow_headers"`
	AllowCredentials bool   `yaml:"allow_credentials"`
}

// AuditConfig toggles the database-backed upload history.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DatabaseConfig defines the audit database backend.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig contains SQLite specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// MySQLConfig contains MySQL specific connection details.
type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

// PostgresConfig contains PostgreSQL specific connection details.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// MirrorConfig replicates uploaded originals to a secondary object store.
type MirrorConfig struct {
	Enabled bool           `yaml:"enabled"`
	Storage storage.Config `yaml:"storage"`
}

// RedisConfig defines Redis connection settings for the optional
// cross-process write lock.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Production reports whether error detail should be withheld from responses.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads a YAML configuration file from the provided path.
// It searches in the current working directory first, then next to the
// binary executable.
func Load(name string) (*Config, error) {
	cfg := defaultConfig()

	configPath := findConfigFile(name)
	if configPath == "" {
		log.Printf("Warning: config file %q not found, using defaults", name)
		return cfg, nil
	}

	log.Printf("Loading config from: %s", configPath)
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	var parsed Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&parsed)
	return &parsed, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Env == "" {
		cfg.Env = "production"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Media.RootDir == "" {
		cfg.Media.RootDir = "assets"
	}
	if len(cfg.Media.AllowedTags) == 0 {
		cfg.Media.AllowedTags = []string{"front", "back", "inside", "spine"}
	}
	if len(cfg.Media.AllowedWidths) == 0 {
		cfg.Media.AllowedWidths = []int{75, 200, 400, 800, 1200, 1600}
	}
	if len(cfg.Media.AllowedTypes) == 0 {
		cfg.Media.AllowedTypes = []string{
			"image/jpeg",
			"image/png",
			"image/gif",
			"image/webp",
			"application/pdf",
			"video/mp4",
			"video/webm",
		}
	}
	if cfg.Media.MaxFileSizeMB == 0 {
		cfg.Media.MaxFileSizeMB = 10
	}
	if cfg.Media.WebpQuality == 0 {
		cfg.Media.WebpQuality = 80
	}
	if cfg.Compression.Level == 0 {
		cfg.Compression.Level = 6
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/audit.db"
	}
}

// findConfigFile searches for a config file in the current directory first,
// then next to the binary executable. Returns the full path or empty string.
func findConfigFile(name string) string {
	// 1. Current working directory
	if _, err := os.Stat(name); err == nil {
		abs, _ := filepath.Abs(name)
		return abs
	}

	// 2. Next to the binary executable
	exe, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exe)
		candidate := filepath.Join(exeDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}
