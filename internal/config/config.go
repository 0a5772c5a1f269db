package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/datahub-cli/internal/ingest"
	"github.com/KaramelBytes/datahub-cli/internal/table"
)

// Global configuration structure.
type Global struct {
	WorkspacesDir     string   `mapstructure:"workspaces_dir" yaml:"workspaces_dir"`
	MaxUploadMB       int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	AllowedExtensions []string `mapstructure:"allowed_extensions" yaml:"allowed_extensions"`
	// Delimiter forces a field separator; empty sniffs it per file.
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	Sheet     string `mapstructure:"sheet" yaml:"sheet"`

	// Live updates
	LiveIntervalMs int `mapstructure:"live_interval_ms" yaml:"live_interval_ms"`

	// HTTP server and persistence
	HTTPAddr    string `mapstructure:"http_addr" yaml:"http_addr"`
	DBPath      string `mapstructure:"db_path" yaml:"db_path"`
	CacheTTLSec int    `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Keys lists every settable key in display order.
var Keys = []string{
	"workspaces_dir", "max_upload_mb", "allowed_extensions", "delimiter", "sheet",
	"live_interval_ms", "http_addr", "db_path", "cache_ttl_sec", "log_level",
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".datahub"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.datahub/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := homeDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATAHUB")
	v.AutomaticEnv()

	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("allowed_extensions", []string{".csv", ".tsv", ".txt", ".xlsx"})
	v.SetDefault("delimiter", "")
	v.SetDefault("sheet", "")
	v.SetDefault("live_interval_ms", 5000)
	v.SetDefault("http_addr", "127.0.0.1:8080")
	v.SetDefault("cache_ttl_sec", 3600)
	v.SetDefault("log_level", "info")

	dir, err := homeDir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.WorkspacesDir == "" {
		c.WorkspacesDir = filepath.Join(dir, "workspaces")
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(dir, "datahub.db")
	}
	if _, err := c.delimiter(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Set assigns a key from its string form, as given on the command line.
func (c *Global) Set(key, value string) error {
	var n int
	switch key {
	case "max_upload_mb", "live_interval_ms", "cache_ttl_sec":
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer", key)
		}
	}
	switch key {
	case "workspaces_dir":
		c.WorkspacesDir = value
	case "max_upload_mb":
		c.MaxUploadMB = n
	case "allowed_extensions":
		c.AllowedExtensions = splitList(value)
	case "delimiter":
		old := c.Delimiter
		c.Delimiter = value
		if _, err := c.delimiter(); err != nil {
			c.Delimiter = old
			return err
		}
	case "sheet":
		c.Sheet = value
	case "live_interval_ms":
		c.LiveIntervalMs = n
	case "http_addr":
		c.HTTPAddr = value
	case "db_path":
		c.DBPath = value
	case "cache_ttl_sec":
		c.CacheTTLSec = n
	case "log_level":
		c.LogLevel = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// Policy derives the upload policy.
func (c *Global) Policy() ingest.Policy {
	p := ingest.DefaultPolicy()
	if c.MaxUploadMB > 0 {
		p.MaxBytes = int64(c.MaxUploadMB) << 20
	}
	if len(c.AllowedExtensions) > 0 {
		p.Extensions = append([]string(nil), c.AllowedExtensions...)
	}
	return p
}

// TableOptions derives parser options.
func (c *Global) TableOptions() table.Options {
	d, _ := c.delimiter()
	return table.Options{Delimiter: d, Sheet: c.Sheet}
}

// LiveInterval is the simulator tick period.
func (c *Global) LiveInterval() time.Duration {
	if c.LiveIntervalMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.LiveIntervalMs) * time.Millisecond
}

// CacheTTL is how long uploads stay in the store.
func (c *Global) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

func (c *Global) delimiter() (rune, error) {
	switch c.Delimiter {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r := []rune(c.Delimiter)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	return r[0], nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
