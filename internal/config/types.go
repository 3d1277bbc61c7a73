package config

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Backend      BackendConfig      `yaml:"backend"`
	Timeouts     TimeoutConfig      `yaml:"timeouts"`
	Logging      LoggingConfig      `yaml:"logging"`
	Presentation PresentationConfig `yaml:"presentation"` // threaded through the controller, never global
}

type ServerConfig struct {
	Host string `yaml:"host" env:"HISTORYMIND_HOST"`
	Port int    `yaml:"port" env:"HISTORYMIND_PORT"`
}

// BackendConfig describes the chat backend the controller talks to
type BackendConfig struct {
	ChatURL string       `yaml:"chat_url" json:"chat_url" env:"HISTORYMIND_CHAT_URL"`
	Proxy   *ProxyConfig `yaml:"proxy,omitempty" json:"proxy,omitempty"`
	SSE     SSEConfig    `yaml:"sse" json:"sse"`
}

// SSEConfig tunes how streamed bodies are read
type SSEConfig struct {
	ReadBufferSize int `yaml:"read_buffer_size" json:"read_buffer_size"` // bytes per body read
}

type ProxyConfig struct {
	Type     string `yaml:"type" json:"type"`       // "http" | "socks5"
	Address  string `yaml:"address" json:"address"` // e.g. "127.0.0.1:1080"
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

type TimeoutConfig struct {
	TLSHandshake   string `yaml:"tls_handshake" json:"tls_handshake"`
	ResponseHeader string `yaml:"response_header" json:"response_header"`
	IdleConnection string `yaml:"idle_connection" json:"idle_connection"`
	// Empty means no overall limit so long streamed answers are not cut off.
	OverallRequest string `yaml:"overall_request" json:"overall_request"`
}

type LoggingConfig struct {
	Level           string `yaml:"level" env:"HISTORYMIND_LOG_LEVEL"`
	LogTurnTypes    string `yaml:"log_turn_types"`    // failed | success | all
	LogResponseBody string `yaml:"log_response_body"` // none | truncated | full
	LogDirectory    string `yaml:"log_directory"`     // "none" disables the turn database
}

// PresentationConfig carries the UI preferences the core needs to know about.
// The core only reads the locale (for user-visible error strings); theme is
// passed through to clients untouched.
type PresentationConfig struct {
	Locale string `yaml:"locale" json:"locale" env:"HISTORYMIND_LOCALE"` // vi | en
	Theme  string `yaml:"theme" json:"theme" env:"HISTORYMIND_THEME"`    // light | dark
}
