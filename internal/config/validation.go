package config

import (
	"fmt"
	"net"
	"net/url"
	"time"
)

// ValidateConfig fills defaults in place and reports the first invalid value
func ValidateConfig(config *Config) error {
	return validateConfig(config)
}

func validateConfig(config *Config) error {
	if config.Server.Host == "" {
		config.Server.Host = Default.Server.Host
	}
	if config.Server.Port == 0 {
		config.Server.Port = Default.Server.Port
	}
	if err := validateServerConfig(config.Server.Host, config.Server.Port); err != nil {
		return err
	}

	if err := validateBackendConfig(&config.Backend); err != nil {
		return err
	}

	if err := validateTimeoutConfig(&config.Timeouts); err != nil {
		return err
	}

	if err := validateLoggingConfig(&config.Logging); err != nil {
		return err
	}

	return validatePresentationConfig(&config.Presentation)
}

func validateServerConfig(host string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}
	return nil
}

func validateBackendConfig(config *BackendConfig) error {
	if config.ChatURL == "" {
		config.ChatURL = Default.Backend.ChatURL
	}
	u, err := url.Parse(config.ChatURL)
	if err != nil {
		return fmt.Errorf("invalid backend chat_url '%s': %v", config.ChatURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid backend chat_url '%s': scheme must be http or https", config.ChatURL)
	}

	if config.SSE.ReadBufferSize <= 0 {
		config.SSE.ReadBufferSize = Default.Backend.ReadBufferSize
	}

	if config.Proxy != nil {
		if err := ValidateProxyConfig(config.Proxy, "backend"); err != nil {
			return err
		}
	}
	return nil
}

// ValidateProxyConfig checks a single proxy definition
func ValidateProxyConfig(config *ProxyConfig, context string) error {
	if config.Type == "" {
		return fmt.Errorf("%s: proxy type is required", context)
	}

	if !oneOf(config.Type, "http", "socks5") {
		return fmt.Errorf("%s: invalid proxy type '%s', must be one of: [http socks5]", context, config.Type)
	}

	if config.Address == "" {
		return fmt.Errorf("%s: proxy address is required", context)
	}

	if _, _, err := net.SplitHostPort(config.Address); err != nil {
		return fmt.Errorf("%s: invalid proxy address '%s': %v", context, config.Address, err)
	}

	if (config.Username != "" && config.Password == "") || (config.Username == "" && config.Password != "") {
		return fmt.Errorf("%s: proxy username and password must both be provided or both be empty", context)
	}

	return nil
}

func validateTimeoutConfig(config *TimeoutConfig) error {
	if config.TLSHandshake == "" {
		config.TLSHandshake = Default.Timeouts.TLSHandshake
	}
	if config.ResponseHeader == "" {
		config.ResponseHeader = Default.Timeouts.ResponseHeader
	}
	if config.IdleConnection == "" {
		config.IdleConnection = Default.Timeouts.IdleConnection
	}

	timeoutFields := map[string]string{
		"tls_handshake":   config.TLSHandshake,
		"response_header": config.ResponseHeader,
		"idle_connection": config.IdleConnection,
		"overall_request": config.OverallRequest,
	}

	for fieldName, value := range timeoutFields {
		if value != "" {
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid timeout '%s' for field '%s': %v", value, fieldName, err)
			}
		}
	}

	return nil
}

func validateLoggingConfig(config *LoggingConfig) error {
	if config.Level == "" {
		config.Level = "info"
	}
	if config.LogDirectory == "" {
		config.LogDirectory = "./logs"
	}

	if config.LogTurnTypes == "" {
		config.LogTurnTypes = "all"
	}
	if !oneOf(config.LogTurnTypes, "failed", "success", "all") {
		return fmt.Errorf("invalid log_turn_types '%s', must be one of: failed, success, all", config.LogTurnTypes)
	}

	if config.LogResponseBody == "" {
		config.LogResponseBody = "truncated"
	}
	if !oneOf(config.LogResponseBody, "none", "truncated", "full") {
		return fmt.Errorf("invalid log_response_body '%s', must be one of: none, truncated, full", config.LogResponseBody)
	}

	return nil
}

func validatePresentationConfig(config *PresentationConfig) error {
	if config.Locale == "" {
		config.Locale = Default.Presentation.Locale
	}
	if !oneOf(config.Locale, "vi", "en") {
		return fmt.Errorf("invalid presentation locale '%s', must be one of: vi, en", config.Locale)
	}

	if config.Theme == "" {
		config.Theme = Default.Presentation.Theme
	}
	if !oneOf(config.Theme, "light", "dark") {
		return fmt.Errorf("invalid presentation theme '%s', must be one of: light, dark", config.Theme)
	}
	return nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
