package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrUnknownNetwork is returned when a network id is not configured.
var ErrUnknownNetwork = errors.New("unknown network")

// Config holds the YAML configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Accessor string         `yaml:"accessor"`
	OutDir   string         `yaml:"out_dir"`
	Cache    CacheConfig    `yaml:"cache"`
	Explorer ExplorerConfig `yaml:"explorer"`
	Networks []Network      `yaml:"networks"`
}

// CacheConfig configures the local ABI cache.
type CacheConfig struct {
	Path string `yaml:"path"`
	TTL  string `yaml:"ttl"`
}

// ExplorerConfig tunes the explorer API client shared by all networks.
type ExplorerConfig struct {
	Timeout           string `yaml:"timeout"`
	RequestsPerSecond int    `yaml:"requests_per_second"`
	MaxAttempts       int    `yaml:"max_attempts"`
}

// Network is one supported chain: where to call it and where to fetch
// verified ABIs for it.
type Network struct {
	ID      string `yaml:"id"`
	ChainID uint64 `yaml:"chain_id"`
	RPCURL  string `yaml:"rpc_url"`
	APIURL  string `yaml:"api_url"`
	APIKey  string `yaml:"api_key"`
}

const (
	defaultAccessor    = "modules"
	defaultOutDir      = "abis"
	defaultCachePath   = "abiscout.db"
	defaultCacheTTL    = 24 * time.Hour
	defaultTimeout     = 20 * time.Second
	defaultRPS         = 4
	defaultMaxAttempts = 3
)

var envPattern = regexp.MustCompile(`\${([A-Za-z_][A-Za-z0-9_]*)}`)

// Load reads, interpolates env vars, parses YAML, applies defaults, and validates.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	interpolated, err := interpolateEnv(string(raw))
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv(configPath string) error {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	return nil
}

func interpolateEnv(input string) (string, error) {
	missing := []string{}
	out := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment variables: %s", strings.Join(dedup(missing), ", "))
	}
	return out, nil
}

func (c *Config) applyDefaults() {
	if c.Accessor == "" {
		c.Accessor = defaultAccessor
	}
	if c.OutDir == "" {
		c.OutDir = defaultOutDir
	}
	if c.Cache.Path == "" {
		c.Cache.Path = defaultCachePath
	}
	if c.Explorer.RequestsPerSecond == 0 {
		c.Explorer.RequestsPerSecond = defaultRPS
	}
	if c.Explorer.MaxAttempts == 0 {
		c.Explorer.MaxAttempts = defaultMaxAttempts
	}
}

// Validate performs small, direct schema checks.
func (c *Config) Validate() error {
	if c.Version == 0 {
		return errors.New("version is required")
	}
	if len(c.Networks) == 0 {
		return errors.New("at least one network is required")
	}

	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if _, err := c.ExplorerTimeout(); err != nil {
		return err
	}
	if c.Explorer.RequestsPerSecond < 0 {
		return errors.New("explorer.requests_per_second must not be negative")
	}
	if c.Explorer.MaxAttempts < 0 {
		return errors.New("explorer.max_attempts must not be negative")
	}

	ids := map[string]struct{}{}
	for _, n := range c.Networks {
		if _, exists := ids[n.ID]; exists {
			return fmt.Errorf("duplicate network id: %s", n.ID)
		}
		ids[n.ID] = struct{}{}
		if err := n.Validate(); err != nil {
			return fmt.Errorf("network %s: %w", n.ID, err)
		}
	}
	return nil
}

func (n *Network) Validate() error {
	if n.ID == "" {
		return errors.New("id is required")
	}
	if n.ChainID == 0 {
		return errors.New("chain_id is required")
	}
	if n.RPCURL == "" {
		return errors.New("rpc_url is required")
	}
	if n.APIURL == "" {
		return errors.New("api_url is required")
	}
	return nil
}

// Network resolves a configured network by id. Unknown ids are rejected
// before any network activity begins.
func (c *Config) Network(id string) (Network, error) {
	for _, n := range c.Networks {
		if n.ID == id {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("%w: %s", ErrUnknownNetwork, id)
}

// CacheTTL returns the configured cache TTL, defaulting to 24h.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return defaultCacheTTL, nil
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("parse cache.ttl %q: %w", c.Cache.TTL, err)
	}
	return d, nil
}

// ExplorerTimeout returns the configured per-request timeout, defaulting to 20s.
func (c *Config) ExplorerTimeout() (time.Duration, error) {
	if c.Explorer.Timeout == "" {
		return defaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Explorer.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parse explorer.timeout %q: %w", c.Explorer.Timeout, err)
	}
	return d, nil
}

func dedup(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
