package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads the YAML file (generating a default one when missing),
// applies .env and environment overrides, then validates the result.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
		if err := generateDefaultConfig(filename); err != nil {
			return nil, fmt.Errorf("failed to generate default config file: %v", err)
		}
		data, err = os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read generated config file: %v", err)
		}
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}

	if err := ApplyEnvOverrides(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return &config, nil
}

// ApplyEnvOverrides loads a .env file when present and lets HISTORYMIND_*
// variables override values from the YAML file.
func ApplyEnvOverrides(config *Config) error {
	return applyEnvOverrides(config, ".env")
}

func applyEnvOverrides(config *Config, dotenv string) error {
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %v", dotenv, err)
	}

	if err := env.Parse(config); err != nil {
		return fmt.Errorf("failed to parse environment overrides: %v", err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: Default.Server.Host,
			Port: Default.Server.Port,
		},
		Backend: BackendConfig{
			ChatURL: Default.Backend.ChatURL,
			SSE:     SSEConfig{ReadBufferSize: Default.Backend.ReadBufferSize},
		},
		Timeouts: TimeoutConfig{
			TLSHandshake:   Default.Timeouts.TLSHandshake,
			ResponseHeader: Default.Timeouts.ResponseHeader,
			IdleConnection: Default.Timeouts.IdleConnection,
		},
		Logging: LoggingConfig{
			Level:           "info",
			LogTurnTypes:    "failed",
			LogResponseBody: "truncated",
			LogDirectory:    "./logs",
		},
		Presentation: PresentationConfig{
			Locale: Default.Presentation.Locale,
			Theme:  Default.Presentation.Theme,
		},
	}
}

func generateDefaultConfig(filename string) error {
	data, err := yaml.Marshal(defaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %v", err)
	}

	header := `# History Mind default configuration
# Generated automatically. Point backend.chat_url at your chat service.

`
	if err := os.WriteFile(filename, []byte(header+string(data)), 0644); err != nil {
		return fmt.Errorf("failed to write default config file: %v", err)
	}

	fmt.Printf("Default configuration written to %s\n", filename)
	return nil
}
