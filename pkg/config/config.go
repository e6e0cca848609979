package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	Delegation      *DelegationConfig
	ConfigDir       string
}

// FileConfig represents the structure of ~/.localgate/config.yaml
type FileConfig struct {
	APIKeys APIKeysConfig `yaml:"api_keys"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Google    string `yaml:"google"`
}

// Load reads configuration from config files and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		ConfigDir:       configDir,
	}

	delegationPath := filepath.Join(configDir, "delegation.yaml")
	if _, err := os.Stat(delegationPath); err == nil {
		delegation, err := LoadDelegationConfig(delegationPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load delegation config: %w", err)
		}
		cfg.Delegation = delegation
	} else {
		cfg.Delegation = DefaultDelegationConfig()
	}

	return cfg, nil
}

// LoadWithDelegationFile loads config with a specific delegation file.
func LoadWithDelegationFile(delegationPath string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	delegation, err := LoadDelegationConfig(delegationPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load delegation config from %s: %w", delegationPath, err)
	}
	cfg.Delegation = delegation

	return cfg, nil
}

// HasCloudAdapter returns true if the API key for the given adapter is configured.
func (c *Config) HasCloudAdapter(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	default:
		return false
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg // Return empty config if file doesn't exist
	}

	_ = yaml.Unmarshal(data, cfg) // Ignore parse errors, use defaults
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".localgate")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
