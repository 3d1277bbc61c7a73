package config

import "time"

type defaults struct {
	Server struct {
		Host string
		Port int
	}
	Backend struct {
		ChatURL        string
		ReadBufferSize int
	}
	Timeouts struct {
		TLSHandshake   string
		ResponseHeader string
		IdleConnection string
	}
	HTTPClient struct {
		MaxIdleConns   int
		MaxIdlePerHost int
	}
	ProxyDialer struct {
		Timeout   time.Duration
		KeepAlive time.Duration
	}
	Database struct {
		CacheSize     int
		MmapSize      int
		BusyTimeout   int
		MaxRetries    int
		RetentionDays int
	}
	Presentation struct {
		Locale string
		Theme  string
	}
}

// Default holds the values shared by config generation, validation and the
// packages that build clients and storage from a partially filled config.
var Default = func() defaults {
	var d defaults
	d.Server.Host = "127.0.0.1"
	d.Server.Port = 8080
	d.Backend.ChatURL = "http://localhost:8080/api/v1/chat/ask"
	d.Backend.ReadBufferSize = 4096
	d.Timeouts.TLSHandshake = "10s"
	d.Timeouts.ResponseHeader = "60s"
	d.Timeouts.IdleConnection = "90s"
	d.HTTPClient.MaxIdleConns = 100
	d.HTTPClient.MaxIdlePerHost = 10
	d.ProxyDialer.Timeout = 30 * time.Second
	d.ProxyDialer.KeepAlive = 30 * time.Second
	d.Database.CacheSize = -8000
	d.Database.MmapSize = 67108864
	d.Database.BusyTimeout = 5000
	d.Database.MaxRetries = 3
	d.Database.RetentionDays = 30
	d.Presentation.Locale = "vi"
	d.Presentation.Theme = "light"
	return d
}()

// GetTimeoutDuration parses value and falls back to def when it is empty or invalid
func GetTimeoutDuration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
