package config

import "github.com/spf13/viper"

// DashboardConfig holds configuration for the multi-project dashboard.
type DashboardConfig struct {
	Port int `mapstructure:"port"`
}

// Config holds all runtime configuration for a tracker process.
// Values are populated from .todotracker.yaml, TODOTRACKER_* env vars, and
// CLI flags.
type Config struct {
	// DBPath overrides project database discovery when non-empty.
	DBPath string `mapstructure:"db_path"`
	// WebPort is the web server port; 0 picks the next free port.
	WebPort int `mapstructure:"web_port"`
	// ToolsPort is the MCP tool server port; 0 picks the next free port.
	ToolsPort int `mapstructure:"tools_port"`
	// TelemetryPath is the JSONL audit stream; empty disables it.
	TelemetryPath string          `mapstructure:"telemetry_path"`
	Verbose       bool            `mapstructure:"verbose"`
	Dashboard     DashboardConfig `mapstructure:"dashboard"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() Config {
	viper.SetDefault("db_path", "")
	viper.SetDefault("web_port", 0)
	viper.SetDefault("tools_port", 0)
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("verbose", false)
	viper.SetDefault("dashboard.port", 8069)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}
