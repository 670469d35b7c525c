// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration, resolved once at startup.
type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	Storage StorageConfig
	Backup  BackupConfig
	Report  ReportConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	// AccessPassword gates every API route when non-empty.
	AccessPassword string
}

// StorageConfig describes where the database and its satellite directories
// live. A mounted persistent volume is preferred over the local data dir;
// the choice is made once here, never re-decided mid-request.
type StorageConfig struct {
	PersistentDir  string // mounted volume root, usually /mnt
	LocalDataDir   string // fallback when the mount is absent
	DatabasePath   string // resolved DB file path
	BackupDir      string // resolved backup directory
	UploadDir      string // temp dir for uploaded spreadsheets
	ExportDir      string // generated xlsx/pdf/csv files
	UsePersistent  bool
	MaxUploadBytes int64
}

type BackupConfig struct {
	// Schedule is a standard 5-field cron expression.
	Schedule string
	// RetentionCount is how many backup files to keep; older ones are pruned.
	RetentionCount int
}

type ReportConfig struct {
	// FontPath points at a CJK-capable TTF for PDF rendering; when empty
	// the renderer probes well-known system locations.
	FontPath string
}

// Load reads configuration from environment variables and resolves the
// storage layout (creating directories as needed).
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Auth: AuthConfig{
			AccessPassword: getEnv("ACCESS_PASSWORD", ""),
		},
		Storage: StorageConfig{
			PersistentDir:  getEnv("PERSISTENT_DIR", "/mnt"),
			LocalDataDir:   getEnv("DATA_DIR", "."),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 16)) << 20,
		},
		Backup: BackupConfig{
			Schedule:       getEnv("BACKUP_SCHEDULE", "0 3 * * *"),
			RetentionCount: getEnvAsInt("BACKUP_RETENTION", 10),
		},
		Report: ReportConfig{
			FontPath: getEnv("PDF_FONT_PATH", ""),
		},
	}

	if err := cfg.Storage.resolve(); err != nil {
		return nil, fmt.Errorf("failed to resolve storage layout: %w", err)
	}

	return cfg, nil
}

// resolve picks the data root (persistent mount when present, local dir
// otherwise), derives the file paths, and ensures the directories exist.
func (s *StorageConfig) resolve() error {
	root := s.LocalDataDir
	if info, err := os.Stat(s.PersistentDir); err == nil && info.IsDir() {
		root = s.PersistentDir
		s.UsePersistent = true
	}

	s.DatabasePath = filepath.Join(root, "budget.db")
	s.BackupDir = filepath.Join(root, "backups")
	s.UploadDir = filepath.Join(s.LocalDataDir, "uploads")
	s.ExportDir = filepath.Join(s.LocalDataDir, "exports")

	for _, dir := range []string{filepath.Dir(s.DatabasePath), s.BackupDir, s.UploadDir, s.ExportDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
