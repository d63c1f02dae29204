package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/go-homedir"
)

// Constants for default values
const (
	DefaultPort          = 12345
	DefaultListenAddr    = "0.0.0.0:12345"
	DefaultServerHost    = "127.0.0.1"
	DefaultOutputDir     = "./received"
	DefaultLogDir        = "logs"
	DefaultTimeout       = 1 * time.Second
	DefaultPollTimeout   = 1 * time.Second
	DefaultIdleTimeout   = 5 * time.Minute
	DefaultMaxMisses     = 5
	DefaultWorkers       = 4
	DefaultProgressEvery = 1 * time.Second

	// EnvPrefix is the prefix of environment overrides, e.g. UDPCOPIER_TIMEOUT
	EnvPrefix = "UDPCOPIER"

	// File system constants
	LogDirPerms    = 0755
	OutputDirPerms = 0755
	OutputPerms    = 0644
)

// Client transfer modes
const (
	ModeSequential  = "sequential"
	ModeConcurrent  = "concurrent"
	ModeInterleaved = "interleaved"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Server mode settings
	IsServer         bool          `toml:"-" ignored:"true"`
	ListenAddress    string        `toml:"listen_address" split_words:"true"`
	OutputDir        string        `toml:"output_dir" split_words:"true"`
	PollTimeout      time.Duration `toml:"poll_timeout" split_words:"true"`
	IdleTimeout      time.Duration `toml:"idle_timeout" split_words:"true"`
	CompressOutput   bool          `toml:"compress_output" split_words:"true"`
	StrictCompletion bool          `toml:"strict_completion" split_words:"true"`

	// Client mode settings
	ServerAddress string        `toml:"server_address" split_words:"true"`
	FileList      string        `toml:"file_list" split_words:"true"`
	Mode          string        `toml:"mode"`
	Workers       int           `toml:"workers"`
	SharedSocket  bool          `toml:"shared_socket" split_words:"true"`
	Timeout       time.Duration `toml:"timeout"`
	MaxMisses     int           `toml:"max_misses" split_words:"true"`
	ShowProgress  bool          `toml:"show_progress" split_words:"true"`
	ProgressEvery time.Duration `toml:"progress_every" split_words:"true"`

	// Common parameters
	LogDir  string `toml:"log_dir" split_words:"true"`
	Verbose bool   `toml:"verbose"`
}

// Defaults returns a Config populated with the built-in defaults
func Defaults() *Config {
	return &Config{
		ListenAddress: DefaultListenAddr,
		OutputDir:     DefaultOutputDir,
		PollTimeout:   DefaultPollTimeout,
		IdleTimeout:   DefaultIdleTimeout,
		ServerAddress: fmt.Sprintf("%s:%d", DefaultServerHost, DefaultPort),
		Mode:          ModeConcurrent,
		Workers:       DefaultWorkers,
		Timeout:       DefaultTimeout,
		MaxMisses:     DefaultMaxMisses,
		ShowProgress:  true,
		ProgressEvery: DefaultProgressEvery,
		LogDir:        DefaultLogDir,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.IsServer {
		if c.ListenAddress == "" {
			return fmt.Errorf("listen address is required in server mode")
		}
		if c.OutputDir == "" {
			return fmt.Errorf("output directory is required in server mode")
		}
		if c.PollTimeout <= 0 {
			return fmt.Errorf("poll timeout must be positive")
		}
		if c.IdleTimeout < 0 {
			return fmt.Errorf("idle timeout cannot be negative")
		}
		return nil
	}

	if c.ServerAddress == "" {
		return fmt.Errorf("server address is required in client mode")
	}
	if c.FileList == "" {
		return fmt.Errorf("file list is required in client mode")
	}
	switch c.Mode {
	case ModeSequential, ModeConcurrent, ModeInterleaved:
	default:
		return fmt.Errorf("unknown transfer mode %q", c.Mode)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxMisses < 0 {
		return fmt.Errorf("max misses cannot be negative")
	}
	if c.ShowProgress && c.ProgressEvery <= 0 {
		return fmt.Errorf("progress interval must be positive")
	}

	return nil
}

// LoadFile overlays a TOML config file and then UDPCOPIER_* environment variables
// onto cfg. An empty path skips the file and applies only the environment.
func LoadFile(path string, cfg *Config) error {
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return fmt.Errorf("expand config path %s: %w", path, err)
		}

		data, err := os.ReadFile(expanded)
		if err != nil {
			return fmt.Errorf("read config file %s: %w", expanded, err)
		}

		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode config file %s: %w", expanded, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("processing env var overrides: %w", err)
	}

	return nil
}

// ExpandPaths resolves a leading ~ in the path settings
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.OutputDir, &c.FileList, &c.LogDir} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand path %s: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// String returns a string representation of the config for logging
func (c *Config) String() string {
	if c.IsServer {
		return fmt.Sprintf("Config{Mode: Server, Listen: %s, OutputDir: %s, PollTimeout: %s, IdleTimeout: %s, Compress: %v}",
			c.ListenAddress, c.OutputDir, c.PollTimeout, c.IdleTimeout, c.CompressOutput)
	}

	return fmt.Sprintf("Config{Mode: Client, Server: %s, Transfer: %s, Workers: %d, SharedSocket: %v, Timeout: %s, MaxMisses: %d}",
		c.ServerAddress, c.Mode, c.Workers, c.SharedSocket, c.Timeout, c.MaxMisses)
}
