package config

import "time"

// Config represents the complete configuration for the gateway.
type Config struct {
	Server  ServerConfig  `koanf:"server"  validate:"required"`
	Backend BackendConfig `koanf:"backend" validate:"required"`
	Runtime RuntimeConfig `koanf:"runtime" validate:"required"`
}

// ServerConfig contains MCP transport configuration. A port of zero selects
// the stdio transport; any positive port starts the SSE listener.
type ServerConfig struct {
	Host string `koanf:"host" env:"CCOW_MCP_SERVER_HOST"`
	Port int    `koanf:"port" env:"CCOW_MCP_SERVER_PORT" validate:"min=0,max=65535"`
}

// BackendConfig contains the compliance backend connection settings.
type BackendConfig struct {
	BaseURL        string          `koanf:"base_url"         env:"CCOW_API_URL"          validate:"required"`
	AuthToken      SensitiveString `koanf:"auth_token"       env:"CCOW_API_TOKEN"`
	Timeout        time.Duration   `koanf:"timeout"          env:"CCOW_API_TIMEOUT"`
	MaxPageFetches int             `koanf:"max_page_fetches" env:"CCOW_MAX_PAGE_FETCHES" validate:"min=1"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	LogLevel string `koanf:"log_level" env:"CCOW_LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogJSON  bool   `koanf:"log_json"  env:"CCOW_LOG_JSON"`
}

// Default returns the default configuration values. Environment variables
// override these during Load.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 0,
		},
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8080/api",
			Timeout:        60 * time.Second,
			MaxPageFetches: 20,
		},
		Runtime: RuntimeConfig{
			LogLevel: "info",
		},
	}
}
