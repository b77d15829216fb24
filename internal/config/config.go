package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Deployment profiles. The profile only changes defaults.
const (
	ProfileRemote = "remote"
	ProfileLocal  = "local"
)

// Environment variables consulted for credentials
const (
	EnvAPIKey         = "OPENWEBUI_API_KEY"
	EnvCFClientID     = "CF_ACCESS_CLIENT_ID"
	EnvCFClientSecret = "CF_ACCESS_CLIENT_SECRET"
)

// DefaultTargetModel is the base model records are moved to when none is given.
// Override at build time with: go build -ldflags "-X github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/config.DefaultTargetModel=..."
var DefaultTargetModel = "openrouter.microsoft/phi-4-multimodal-instruct"

var (
	// DefaultListingPaths are tried in order until one returns a model collection
	DefaultListingPaths = []string{"/models", "/models/", "/models/list", "/v1/models"}
	// DefaultUpdatePaths are tried in order until one confirms the update
	DefaultUpdatePaths = []string{"/models/model/update", "/models/update"}
)

// Config is the resolved configuration of one run. It is built once at
// startup and passed explicitly to every component.
type Config struct {
	Profile     string `yaml:"profile" mapstructure:"profile"`
	BaseURL     string `yaml:"url" mapstructure:"url"`
	APIPath     string `yaml:"api_path" mapstructure:"api_path"`
	TargetModel string `yaml:"target_model" mapstructure:"target_model"`

	APIKey         string `yaml:"api_key" mapstructure:"api_key"`
	CFClientID     string `yaml:"cf_access_client_id" mapstructure:"cf_access_client_id"`
	CFClientSecret string `yaml:"cf_access_client_secret" mapstructure:"cf_access_client_secret"`
	ProxyHeaders   bool   `yaml:"proxy_headers" mapstructure:"proxy_headers"` // send the CF-Access header pair

	Debug     bool          `yaml:"debug" mapstructure:"debug"`
	BatchMode bool          `yaml:"batch_mode" mapstructure:"batch_mode"`
	Workers   int           `yaml:"workers" mapstructure:"workers"`
	Delay     time.Duration `yaml:"delay" mapstructure:"delay"`     // between records in sequential mode
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"` // per HTTP call
	Rate      float64       `yaml:"rate,omitempty" mapstructure:"rate"`

	ListingPaths []string `yaml:"listing_paths" mapstructure:"listing_paths"`
	UpdatePaths  []string `yaml:"update_paths" mapstructure:"update_paths"`

	ReportPath  string `yaml:"report,omitempty" mapstructure:"report"`
	MetricsFile string `yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`
}

type profileDefaults struct {
	baseURL      string
	workers      int
	proxyHeaders bool
}

var profiles = map[string]profileDefaults{
	// Remote calls go through an access proxy and are costlier per connection
	ProfileRemote: {baseURL: "https://chat.example.com", workers: 5, proxyHeaders: true},
	ProfileLocal:  {baseURL: "http://localhost:8080", workers: 10, proxyHeaders: false},
}

// LoadOptions controls where Load looks for settings
type LoadOptions struct {
	ConfigFile string         // explicit YAML file; empty means DefaultConfigPath if it exists
	EnvFile    string         // dotenv file; empty means ".env"
	Flags      *pflag.FlagSet // flags registered with RegisterFlags
}

// DefaultConfigPath returns ~/.openwebui-updater/config.yaml
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".openwebui-updater", "config.yaml")
}

// Load layers defaults, the optional config file, credential environment
// variables and explicitly set flags, in that order of precedence.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables already set in the environment
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	configFile := opts.ConfigFile
	explicit := configFile != ""
	if !explicit {
		configFile = DefaultConfigPath()
	}
	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			v.SetConfigFile(configFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if explicit {
			return nil, fmt.Errorf("config file %s: %w", configFile, err)
		}
	}

	for key, env := range map[string]string{
		"api_key":                 EnvAPIKey,
		"cf_access_client_id":     EnvCFClientID,
		"cf_access_client_secret": EnvCFClientSecret,
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if opts.Flags != nil {
		for flagName, key := range flagKeys {
			if f := opts.Flags.Lookup(flagName); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", flagName, err)
				}
			}
		}
	}

	v.SetDefault("profile", ProfileRemote)
	profileName := strings.ToLower(v.GetString("profile"))
	defaults, ok := profiles[profileName]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (want %s or %s)", profileName, ProfileRemote, ProfileLocal)
	}

	v.SetDefault("url", defaults.baseURL)
	v.SetDefault("api_path", "/api/v1")
	v.SetDefault("target_model", DefaultTargetModel)
	v.SetDefault("api_key", "")
	v.SetDefault("cf_access_client_id", "")
	v.SetDefault("cf_access_client_secret", "")
	v.SetDefault("proxy_headers", defaults.proxyHeaders)
	v.SetDefault("debug", false)
	v.SetDefault("batch_mode", true)
	v.SetDefault("workers", defaults.workers)
	v.SetDefault("delay", 500*time.Millisecond)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("rate", 0.0)
	v.SetDefault("listing_paths", DefaultListingPaths)
	v.SetDefault("update_paths", DefaultUpdatePaths)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Profile = profileName

	if opts.Flags != nil {
		if noBatch, err := opts.Flags.GetBool(FlagNoBatch); err == nil && noBatch {
			cfg.BatchMode = false
		}
	}

	if cfg.Workers < 1 {
		cfg.Workers = defaults.workers
	}
	if len(cfg.ListingPaths) == 0 {
		cfg.ListingPaths = DefaultListingPaths
	}
	if len(cfg.UpdatePaths) == 0 {
		cfg.UpdatePaths = DefaultUpdatePaths
	}

	return &cfg, nil
}

// APIBaseURL returns the base URL joined with the API path prefix
func (c *Config) APIBaseURL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.APIPath
}

// Mode returns "parallel" or "sequential"
func (c *Config) Mode() string {
	if c.BatchMode {
		return "parallel"
	}
	return "sequential"
}

// Masked returns a copy with credentials hidden, for display
func (c *Config) Masked() *Config {
	masked := *c
	masked.APIKey = maskSecret(c.APIKey)
	masked.CFClientID = maskSecret(c.CFClientID)
	masked.CFClientSecret = maskSecret(c.CFClientSecret)
	return &masked
}

// YAML renders the configuration as a config file
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
