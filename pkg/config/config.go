// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all CaseFlow configuration.
type Config struct {
	Version int `yaml:"version"`

	Server    ServerConfig    `yaml:"server"`
	Parser    ParserConfig    `yaml:"parser"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Watch     WatchConfig     `yaml:"watch"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig for the HTTP API server.
type ServerConfig struct {
	Port          int      `yaml:"port"`
	Host          string   `yaml:"host"`
	MaxUploadSize int64    `yaml:"max_upload_size"` // bytes
	CORSOrigins   []string `yaml:"cors_origins"`
}

// ParserConfig holds the default column mapping for row-based formats.
type ParserConfig struct {
	CaseIDColumn    string `yaml:"case_id_column"`
	ActivityColumn  string `yaml:"activity_column"`
	TimestampColumn string `yaml:"timestamp_column"`
	ResourceColumn  string `yaml:"resource_column"`
	TimestampFormat string `yaml:"timestamp_format"`
}

// ArchiveConfig selects the report export backend.
type ArchiveConfig struct {
	Backend string             `yaml:"backend"` // local | redis | s3
	Local   LocalArchiveConfig `yaml:"local"`
	Redis   RedisArchiveConfig `yaml:"redis"`
	S3      S3ArchiveConfig    `yaml:"s3"`
}

// LocalArchiveConfig for filesystem export.
type LocalArchiveConfig struct {
	Dir string `yaml:"dir"`
}

// RedisArchiveConfig for Redis export.
type RedisArchiveConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // 0 = keep forever
}

// S3ArchiveConfig for S3-compatible object storage export.
type S3ArchiveConfig struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"` // optional, for MinIO and friends
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// WatchConfig for the directory watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	caseflowDir := filepath.Join(homeDir, ".caseflow")

	return &Config{
		Version: 1,
		Server: ServerConfig{
			Port:          8080,
			Host:          "localhost",
			MaxUploadSize: 500 << 20,
			CORSOrigins:   []string{"*"},
		},
		Parser: ParserConfig{
			CaseIDColumn:    "case_id",
			ActivityColumn:  "activity",
			TimestampColumn: "timestamp",
			ResourceColumn:  "resource",
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		},
		Archive: ArchiveConfig{
			Backend: "local",
			Local: LocalArchiveConfig{
				Dir: filepath.Join(caseflowDir, "reports"),
			},
			Redis: RedisArchiveConfig{
				Addr: "localhost:6379",
			},
			S3: S3ArchiveConfig{
				Region: "us-east-1",
				Prefix: "caseflow/reports",
			},
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "caseflow",
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Start with defaults
	m.config = Default()

	// Load from paths in order (later overrides earlier)
	paths := m.getConfigPaths()
	for _, path := range paths {
		if err := m.loadFile(path); err != nil {
			// Ignore missing files, but surface errors for existing files
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	// Override with environment variables
	m.loadEnv()

	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/caseflow/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".caseflow", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".caseflow.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}

	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	// Server
	if src.Server.Port != 0 {
		m.config.Server.Port = src.Server.Port
	}
	if src.Server.Host != "" {
		m.config.Server.Host = src.Server.Host
	}
	if src.Server.MaxUploadSize != 0 {
		m.config.Server.MaxUploadSize = src.Server.MaxUploadSize
	}
	if len(src.Server.CORSOrigins) > 0 {
		m.config.Server.CORSOrigins = src.Server.CORSOrigins
	}

	// Parser
	if src.Parser.CaseIDColumn != "" {
		m.config.Parser.CaseIDColumn = src.Parser.CaseIDColumn
	}
	if src.Parser.ActivityColumn != "" {
		m.config.Parser.ActivityColumn = src.Parser.ActivityColumn
	}
	if src.Parser.TimestampColumn != "" {
		m.config.Parser.TimestampColumn = src.Parser.TimestampColumn
	}
	if src.Parser.ResourceColumn != "" {
		m.config.Parser.ResourceColumn = src.Parser.ResourceColumn
	}
	if src.Parser.TimestampFormat != "" {
		m.config.Parser.TimestampFormat = src.Parser.TimestampFormat
	}

	// Archive
	if src.Archive.Backend != "" {
		m.config.Archive.Backend = src.Archive.Backend
	}
	if src.Archive.Local.Dir != "" {
		m.config.Archive.Local.Dir = src.Archive.Local.Dir
	}
	if src.Archive.Redis.Addr != "" {
		m.config.Archive.Redis.Addr = src.Archive.Redis.Addr
	}
	if src.Archive.Redis.Password != "" {
		m.config.Archive.Redis.Password = src.Archive.Redis.Password
	}
	if src.Archive.Redis.DB != 0 {
		m.config.Archive.Redis.DB = src.Archive.Redis.DB
	}
	if src.Archive.Redis.TTL != 0 {
		m.config.Archive.Redis.TTL = src.Archive.Redis.TTL
	}
	if src.Archive.S3.Bucket != "" {
		m.config.Archive.S3.Bucket = src.Archive.S3.Bucket
	}
	if src.Archive.S3.Prefix != "" {
		m.config.Archive.S3.Prefix = src.Archive.S3.Prefix
	}
	if src.Archive.S3.Region != "" {
		m.config.Archive.S3.Region = src.Archive.S3.Region
	}
	if src.Archive.S3.Endpoint != "" {
		m.config.Archive.S3.Endpoint = src.Archive.S3.Endpoint
	}
	if src.Archive.S3.AccessKey != "" {
		m.config.Archive.S3.AccessKey = src.Archive.S3.AccessKey
	}
	if src.Archive.S3.SecretKey != "" {
		m.config.Archive.S3.SecretKey = src.Archive.S3.SecretKey
	}

	// Watch
	if src.Watch.Debounce != 0 {
		m.config.Watch.Debounce = src.Watch.Debounce
	}

	// Telemetry
	if src.Telemetry.Enabled {
		m.config.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		m.config.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
	if src.Telemetry.ServiceName != "" {
		m.config.Telemetry.ServiceName = src.Telemetry.ServiceName
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("CASEFLOW_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			m.config.Server.Port = port
		}
	}
	if v := os.Getenv("CASEFLOW_HOST"); v != "" {
		m.config.Server.Host = v
	}
	if v := os.Getenv("CASEFLOW_ARCHIVE_BACKEND"); v != "" {
		m.config.Archive.Backend = v
	}
	if v := os.Getenv("CASEFLOW_ARCHIVE_DIR"); v != "" {
		m.config.Archive.Local.Dir = v
	}
	if v := os.Getenv("CASEFLOW_REDIS_ADDR"); v != "" {
		m.config.Archive.Redis.Addr = v
	}
	if v := os.Getenv("CASEFLOW_S3_BUCKET"); v != "" {
		m.config.Archive.S3.Bucket = v
	}
	if v := os.Getenv("CASEFLOW_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Enabled = true
		m.config.Telemetry.Endpoint = v
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".caseflow")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0644)
}

// Global instance
var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the global configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		globalManager.Load()
	})
	return globalManager
}
