package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// DatabasePath points at the sqlite file backing rooms and chat history.
	// Empty disables persistence and the hub runs purely in memory.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`

	Exec ExecConfig `mapstructure:"exec" yaml:"exec"`
}

// ExecConfig controls the code execution coordinator.
type ExecConfig struct {
	ScratchDir string        `mapstructure:"scratch_dir" yaml:"scratch_dir"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Workers    int           `mapstructure:"workers" yaml:"workers"`
	QueueDepth int           `mapstructure:"queue_depth" yaml:"queue_depth"`
	// RatePerSec caps execution requests per connection. Zero disables the cap.
	RatePerSec float64 `mapstructure:"rate_per_sec" yaml:"rate_per_sec"`
	PythonBin  string  `mapstructure:"python_bin" yaml:"python_bin"`
	CXXBin     string  `mapstructure:"cxx_bin" yaml:"cxx_bin"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":5000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		AllowedOrigins:    []string{"http://localhost:3000", "http://localhost:5000"},
		LogLevel:          "info",
		DatabasePath:      "",
		MaxMessageBytes:   1 << 20,
		Exec: ExecConfig{
			ScratchDir: filepath.Join(os.TempDir(), "pairpad"),
			Timeout:    10 * time.Second,
			Workers:    4,
			QueueDepth: 16,
			RatePerSec: 1,
			PythonBin:  "python3",
			CXXBin:     "g++",
		},
	}
}
