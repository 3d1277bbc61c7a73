// Package httpclient builds the HTTP clients used to reach the chat backend.
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"history-mind-companion/internal/config"
)

// ClientType names a client profile with its own defaults.
type ClientType string

const (
	// ClientTypeChat talks to the chat endpoint. Streamed answers can run
	// long, so it has no overall timeout unless one is configured.
	ClientTypeChat ClientType = "chat"
)

// TimeoutConfig holds parsed timeouts. Zero OverallRequest means no limit.
type TimeoutConfig struct {
	TLSHandshake   time.Duration
	ResponseHeader time.Duration
	IdleConnection time.Duration
	OverallRequest time.Duration
}

// ClientConfig describes one client to build.
type ClientConfig struct {
	Type               ClientType
	Timeouts           TimeoutConfig
	ProxyConfig        *config.ProxyConfig
	MaxIdleConns       int
	MaxIdlePerHost     int
	DisableKeepAlive   bool
	InsecureSkipVerify bool
}

// Factory builds clients from per-type defaults merged with caller settings.
type Factory struct {
	defaultConfigs map[ClientType]ClientConfig
}

func NewFactory() *Factory {
	return &Factory{
		defaultConfigs: map[ClientType]ClientConfig{
			ClientTypeChat: {
				Type: ClientTypeChat,
				Timeouts: TimeoutConfig{
					TLSHandshake:   config.GetTimeoutDuration(config.Default.Timeouts.TLSHandshake, 10*time.Second),
					ResponseHeader: config.GetTimeoutDuration(config.Default.Timeouts.ResponseHeader, 60*time.Second),
					IdleConnection: config.GetTimeoutDuration(config.Default.Timeouts.IdleConnection, 90*time.Second),
				},
				MaxIdleConns:   config.Default.HTTPClient.MaxIdleConns,
				MaxIdlePerHost: config.Default.HTTPClient.MaxIdlePerHost,
			},
		},
	}
}

// CreateClient builds a client, filling unset fields from the type defaults.
func (f *Factory) CreateClient(cfg ClientConfig) (*http.Client, error) {
	if defaultConfig, exists := f.defaultConfigs[cfg.Type]; exists {
		cfg = f.mergeConfigs(defaultConfig, cfg)
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   cfg.Timeouts.TLSHandshake,
		ResponseHeaderTimeout: cfg.Timeouts.ResponseHeader,
		IdleConnTimeout:       cfg.Timeouts.IdleConnection,
		DisableKeepAlives:     cfg.DisableKeepAlive,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdlePerHost,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	if cfg.ProxyConfig != nil {
		if err := applyProxy(transport, cfg.ProxyConfig); err != nil {
			return nil, fmt.Errorf("failed to configure proxy: %v", err)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeouts.OverallRequest,
	}, nil
}

// CreateChatClient builds the chat client from the backend and timeout
// sections of the configuration.
func (f *Factory) CreateChatClient(backend config.BackendConfig, timeouts config.TimeoutConfig) (*http.Client, error) {
	parsed, err := ParseTimeouts(timeouts)
	if err != nil {
		return nil, err
	}
	return f.CreateClient(ClientConfig{
		Type:        ClientTypeChat,
		Timeouts:    parsed,
		ProxyConfig: backend.Proxy,
	})
}

// ParseTimeouts converts configured duration strings. Empty values stay zero
// so the type defaults apply.
func ParseTimeouts(timeouts config.TimeoutConfig) (TimeoutConfig, error) {
	var (
		parsed TimeoutConfig
		err    error
	)
	if parsed.TLSHandshake, err = ParseTimeoutWithDefault(timeouts.TLSHandshake, "tls_handshake", 0); err != nil {
		return parsed, err
	}
	if parsed.ResponseHeader, err = ParseTimeoutWithDefault(timeouts.ResponseHeader, "response_header", 0); err != nil {
		return parsed, err
	}
	if parsed.IdleConnection, err = ParseTimeoutWithDefault(timeouts.IdleConnection, "idle_connection", 0); err != nil {
		return parsed, err
	}
	if parsed.OverallRequest, err = ParseTimeoutWithDefault(timeouts.OverallRequest, "overall_request", 0); err != nil {
		return parsed, err
	}
	return parsed, nil
}

// mergeConfigs overlays the non-zero fields of userConfig on defaultConfig
func (f *Factory) mergeConfigs(defaultConfig, userConfig ClientConfig) ClientConfig {
	result := defaultConfig

	if userConfig.Timeouts.TLSHandshake != 0 {
		result.Timeouts.TLSHandshake = userConfig.Timeouts.TLSHandshake
	}
	if userConfig.Timeouts.ResponseHeader != 0 {
		result.Timeouts.ResponseHeader = userConfig.Timeouts.ResponseHeader
	}
	if userConfig.Timeouts.IdleConnection != 0 {
		result.Timeouts.IdleConnection = userConfig.Timeouts.IdleConnection
	}
	if userConfig.Timeouts.OverallRequest != 0 {
		result.Timeouts.OverallRequest = userConfig.Timeouts.OverallRequest
	}
	if userConfig.MaxIdleConns != 0 {
		result.MaxIdleConns = userConfig.MaxIdleConns
	}
	if userConfig.MaxIdlePerHost != 0 {
		result.MaxIdlePerHost = userConfig.MaxIdlePerHost
	}
	if userConfig.ProxyConfig != nil {
		result.ProxyConfig = userConfig.ProxyConfig
	}

	result.DisableKeepAlive = userConfig.DisableKeepAlive
	result.InsecureSkipVerify = userConfig.InsecureSkipVerify

	return result
}

// ParseTimeoutWithDefault parses value, returning defaultDuration when empty
func ParseTimeoutWithDefault(value, fieldName string, defaultDuration time.Duration) (time.Duration, error) {
	if value == "" {
		return defaultDuration, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s timeout: %v", fieldName, err)
	}
	return d, nil
}
