// Package project locates per-project tracker state. Each project keeps its
// database and settings under a .todos directory at the project root, found
// by walking up from the working directory the way version control roots are.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	// TodosDir is the per-project state directory.
	TodosDir = ".todos"
	// DBFileName is the database file inside TodosDir.
	DBFileName = "project.db"
	// ConfigFileName is the settings file inside TodosDir.
	ConfigFileName = "config.toml"
	// EnvDBPath overrides database discovery entirely.
	EnvDBPath = "TODOTRACKER_DB_PATH"
)

// defaultDBPath is the fallback when no project database is found.
var defaultDBPath = filepath.Join("data", DBFileName)

// FindDatabase walks up from start looking for .todos/project.db. It returns
// the absolute path and true if found.
func FindDatabase(start string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, TodosDir, DBFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// ResolveDatabase determines the database path for the working directory:
// the TODOTRACKER_DB_PATH environment variable wins, then a discovered
// project database, then the data/project.db fallback.
func ResolveDatabase(start string) string {
	if env := os.Getenv(EnvDBPath); env != "" {
		return env
	}
	if path, ok := FindDatabase(start); ok {
		return path
	}
	return defaultDBPath
}

// Root returns the project root implied by a database path, or empty when
// the path is not of the <root>/.todos/project.db shape.
func Root(dbPath string) string {
	dir := filepath.Dir(dbPath)
	if filepath.Base(dbPath) == DBFileName && filepath.Base(dir) == TodosDir {
		return filepath.Dir(dir)
	}
	return ""
}

// Init creates the .todos directory under root and returns the database
// path inside it. A config file is written if none exists yet. Existing
// state is left untouched, so Init is safe to run repeatedly.
func Init(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("project: resolve root %s: %w", root, err)
	}
	todosDir := filepath.Join(abs, TodosDir)
	if err := os.MkdirAll(todosDir, 0o755); err != nil {
		return "", fmt.Errorf("project: create %s: %w", todosDir, err)
	}

	cfgPath := filepath.Join(todosDir, ConfigFileName)
	if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
		cfg := Config{
			ProjectName: filepath.Base(abs),
			ProjectRoot: abs,
		}
		if err := cfg.Save(cfgPath); err != nil {
			return "", err
		}
	}

	return filepath.Join(todosDir, DBFileName), nil
}

// Config holds per-project settings stored in .todos/config.toml.
type Config struct {
	ProjectName string `toml:"project_name"`
	ProjectRoot string `toml:"project_root"`
	// WebPort pins the web server port for this project; 0 lets the
	// server pick one.
	WebPort int `toml:"web_port,omitempty"`
	// ToolsPort pins the agent tool server port; 0 lets the server pick.
	ToolsPort int `toml:"tools_port,omitempty"`
}

// LoadConfig reads the config file at path. A missing file returns nil
// without error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project: read config %s: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("project: parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// FindConfig walks up from start looking for .todos/config.toml and loads
// it. Returns nil without error when no project config exists.
func FindConfig(start string) (*Config, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("project: resolve %s: %w", start, err)
	}
	for {
		candidate := filepath.Join(dir, TodosDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return LoadConfig(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Save writes the config to path.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("project: encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("project: write config %s: %w", path, err)
	}
	return nil
}
