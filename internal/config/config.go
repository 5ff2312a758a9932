package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apierrors "collectdash/internal/errors"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "COLLECT"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Source    SourceConfig    `yaml:"source" envconfig:"SOURCE"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Refresh   RefreshConfig   `yaml:"refresh" envconfig:"REFRESH"`
	Auth      AuthConfig      `yaml:"auth" envconfig:"AUTH"`
	Chat      ChatConfig      `yaml:"chat" envconfig:"CHAT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// Source kinds.
const (
	SourceSheets   = "sheets"
	SourceWorkbook = "workbook"
)

// SourceConfig selects where agent batches are read from.
type SourceConfig struct {
	Kind            string            `yaml:"kind" envconfig:"KIND"`
	SpreadsheetID   string            `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	CredentialsFile string            `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	WorkbookPath    string            `yaml:"workbook_path" envconfig:"WORKBOOK_PATH"`
	ExclusionPolicy string            `yaml:"exclusion_policy" envconfig:"EXCLUSION_POLICY"`
	Excluded        []string          `yaml:"excluded" envconfig:"EXCLUDED"`
	HeaderAliases   map[string]string `yaml:"header_aliases" envconfig:"HEADER_ALIASES"`
	CurrencyToken   string            `yaml:"currency_token" envconfig:"CURRENCY_TOKEN"`
	FetchTimeout    time.Duration     `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT"`
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig configures the dashboard snapshot cache.
type CacheConfig struct {
	Backend   string        `yaml:"backend" envconfig:"BACKEND"`
	TTL       time.Duration `yaml:"ttl" envconfig:"TTL"`
	RedisAddr string        `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisDB   int           `yaml:"redis_db" envconfig:"REDIS_DB"`
	KeyPrefix string        `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
}

// RefreshConfig configures the background refresh job.
type RefreshConfig struct {
	Enabled  bool          `yaml:"enabled" envconfig:"ENABLED"`
	Interval time.Duration `yaml:"interval" envconfig:"INTERVAL"`
}

// CredentialConfig is one role's login. PasswordHash is a bcrypt hash; a role
// without one cannot log in.
type CredentialConfig struct {
	Username     string `yaml:"username" envconfig:"USERNAME"`
	PasswordHash string `yaml:"password_hash" envconfig:"PASSWORD_HASH"`
}

// AuthConfig contains the static role logins and session settings.
type AuthConfig struct {
	SessionTTL time.Duration    `yaml:"session_ttl" envconfig:"SESSION_TTL"`
	Agent      CredentialConfig `yaml:"agent" envconfig:"AGENT"`
	Admin      CredentialConfig `yaml:"admin" envconfig:"ADMIN"`
	Superadmin CredentialConfig `yaml:"superadmin" envconfig:"SUPERADMIN"`
}

// ChatConfig configures the message board.
type ChatConfig struct {
	Enabled   bool   `yaml:"enabled" envconfig:"ENABLED"`
	Worksheet string `yaml:"worksheet" envconfig:"WORKSHEET"`
	Timezone  string `yaml:"timezone" envconfig:"TIMEZONE"`
}

// TelemetryConfig toggles tracing and metrics.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Load builds the configuration from defaults, then the YAML file (if any),
// then a .env file, then the environment. Later sources win.
func Load() (*Config, error) {
	return LoadFile(configFilePath())
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, apierrors.NewConfigError("config validation failed", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML onto cfg.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// resolvePaths anchors relative file paths at the executable directory.
func (c *Config) resolvePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return err
	}
	c.Source.CredentialsFile = paths.Resolve(c.Source.CredentialsFile)
	c.Source.WorkbookPath = paths.Resolve(c.Source.WorkbookPath)
	c.Logging.FilePath = paths.Resolve(c.Logging.FilePath)
	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	switch c.Source.Kind {
	case SourceSheets:
		if c.Source.SpreadsheetID == "" {
			return fmt.Errorf("source kind %q requires a spreadsheet id", c.Source.Kind)
		}
	case SourceWorkbook:
		if c.Source.WorkbookPath == "" {
			return fmt.Errorf("source kind %q requires a workbook path", c.Source.Kind)
		}
	default:
		return fmt.Errorf("unknown source kind: %q", c.Source.Kind)
	}

	switch strings.ToLower(c.Source.ExclusionPolicy) {
	case "", "fold", "exact":
	default:
		return fmt.Errorf("unknown exclusion policy: %q", c.Source.ExclusionPolicy)
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("redis cache requires an address")
		}
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Cache.Backend)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	if c.Refresh.Enabled && c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	if c.Chat.Timezone != "" {
		if _, err := time.LoadLocation(c.Chat.Timezone); err != nil {
			return fmt.Errorf("invalid chat timezone: %w", err)
		}
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	return nil
}

// configFilePath returns the first config file found, or "".
func configFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG_FILE"); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Source: SourceConfig{
			Kind:            SourceSheets,
			SpreadsheetID:   "",
			CredentialsFile: "credentials.json",
			ExclusionPolicy: "fold",
			CurrencyToken:   "KES",
			FetchTimeout:    2 * time.Minute,
		},
		Cache: CacheConfig{
			Backend:   CacheMemory,
			TTL:       60 * time.Second,
			KeyPrefix: "collectdash:snapshot:",
		},
		Refresh: RefreshConfig{
			Enabled:  true,
			Interval: 60 * time.Second,
		},
		Auth: AuthConfig{
			SessionTTL: 12 * time.Hour,
			Agent:      CredentialConfig{Username: "agent"},
			Admin:      CredentialConfig{Username: "admin"},
			Superadmin: CredentialConfig{Username: "superadmin"},
		},
		Chat: ChatConfig{
			Enabled:   true,
			Worksheet: "Agent Chat",
			Timezone:  "Africa/Nairobi",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "collectdash",
			TracingEnabled: false,
			MetricsEnabled: true,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
