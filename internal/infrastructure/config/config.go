// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for casegraph configuration.
	DefaultConfigDir = ".casegraph"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultProjectsFile is the default project registry file name.
	DefaultProjectsFile = "projects.yaml"
	// GraphFile is the name of a project's graph dump.
	GraphFile = "graph.json"
	// DatabaseFile is the name of a project's side-table database.
	DatabaseFile = "casegraph.db"
)

var (
	// reNonAlphanumeric matches characters that aren't alphanumeric or underscore.
	reNonAlphanumeric = regexp.MustCompile(`[^a-z0-9_]`)
	// reMultipleUnderscores matches consecutive underscores.
	reMultipleUnderscores = regexp.MustCompile(`_+`)
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Embedder EmbedderConfig `yaml:"embedder,omitempty"`
	Qdrant   QdrantConfig   `yaml:"qdrant,omitempty"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Sync     SyncConfig     `yaml:"sync,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
}

// EmbedderConfig holds configuration for the embedding provider.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// QdrantConfig holds configuration for the Qdrant vector database.
type QdrantConfig struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite relational database.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	// For per-project databases, this is computed dynamically using SQLitePathForProject.
	Path string `yaml:"path,omitempty"`
}

// SyncConfig holds configuration for peer synchronisation over Redis.
type SyncConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	RedisURL string `yaml:"redis_url,omitempty"`
	// Channel is the pub/sub channel prefix; the project name is appended.
	Channel string `yaml:"channel,omitempty"`
	// PeerID identifies this process; messages carrying it are ignored.
	// Generated at startup when empty.
	PeerID string `yaml:"peer_id,omitempty"`
	// QueueSize bounds the outbound message buffer.
	QueueSize int `yaml:"queue_size,omitempty"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		Sync: SyncConfig{
			RedisURL:  "redis://localhost:6379/0",
			Channel:   "casegraph",
			QueueSize: 256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the .casegraph directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'casegraph init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Embedder.APIKey == "" {
		c.Embedder.APIKey = key
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" && c.Qdrant.APIKey == "" {
		c.Qdrant.APIKey = key
	}
	if url := os.Getenv("CASEGRAPH_REDIS_URL"); url != "" {
		c.Sync.RedisURL = url
	}
	if level := os.Getenv("CASEGRAPH_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// SlogLevel maps Log.Level to a slog level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// ConfigDir returns the path to the .casegraph config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// ProjectsFilePath returns the path to the project registry.
func ProjectsFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultProjectsFile)
}

// SanitizeProjectName converts a project name to a valid directory and
// collection suffix.
func SanitizeProjectName(name string) string {
	name = strings.ToLower(name)

	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	name = reNonAlphanumeric.ReplaceAllString(name, "")
	name = reMultipleUnderscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if name == "" {
		return "default"
	}

	return name
}

// GenerateCollectionName creates a collection name for a project.
func GenerateCollectionName(projectName string) string {
	return "casegraph_" + SanitizeProjectName(projectName)
}

// ProjectDir returns the directory path for a given project.
func ProjectDir(basePath, projectName string) string {
	return filepath.Join(basePath, DefaultConfigDir, "projects", SanitizeProjectName(projectName))
}

// SQLitePathForProject returns the SQLite database path for a given project.
func SQLitePathForProject(basePath, projectName string) string {
	return filepath.Join(ProjectDir(basePath, projectName), DatabaseFile)
}

// GraphPathForProject returns the graph dump path for a given project.
func GraphPathForProject(basePath, projectName string) string {
	return filepath.Join(ProjectDir(basePath, projectName), GraphFile)
}
