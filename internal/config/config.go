package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Target  Target  `yaml:"target"`
	Sources Sources `yaml:"sources"`
	Scraper Scraper `yaml:"scraper"`
	LLM     LLM     `yaml:"llm"`
	Output  Output  `yaml:"output"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

type Target struct {
	City     string   `yaml:"city"`
	Keywords []string `yaml:"keywords"`
}

type Sources struct {
	Feeds    []Feed `yaml:"feeds"`
	PressURL string `yaml:"press_url"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Scraper struct {
	TimeoutSeconds   int     `yaml:"timeout_seconds"`
	RetryAttempts    int     `yaml:"retry_attempts"`
	RateLimitSeconds float64 `yaml:"rate_limit_seconds"`
	UserAgent        string  `yaml:"user_agent"`
	MaxPerSource     int     `yaml:"max_per_source"`
	Debug            bool    `yaml:"debug"`
}

type LLM struct {
	Model       string  `yaml:"model"`
	Host        string  `yaml:"host"`
	Port        int     `yaml:"port"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// BaseURL joins host and port into the Ollama endpoint.
func (l LLM) BaseURL() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for civictrack.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "civictrack")
}

// DataDir returns the XDG data directory for civictrack.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "civictrack")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/civictrack/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'civictrack init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Target: Target{
			City: "San Jose",
			Keywords: []string{
				"project", "construction", "approved", "council",
				"budget", "housing", "infrastructure",
			},
		},
		Scraper: Scraper{
			TimeoutSeconds:   10,
			RetryAttempts:    3,
			RateLimitSeconds: 1.0,
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MaxPerSource:     20,
		},
		LLM: LLM{
			Model:       "qwen2.5-coder:7b",
			Host:        "http://localhost",
			Port:        11434,
			MaxTokens:   2048,
			Temperature: 0.0,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
