package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Execution  ExecutionConfig  `mapstructure:"execution"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Boundaries BoundariesConfig `mapstructure:"boundaries"`
	Map        MapConfig        `mapstructure:"map"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	CORSOrigins  string `mapstructure:"cors_origins"`
	OpenAPIPath  string `mapstructure:"openapi_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// NATSConfig: an empty URL disables run event publishing.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// ValkeyConfig: an empty Addr disables caching.
type ValkeyConfig struct {
	Addr      string `mapstructure:"addr"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider"` // openai | anthropic | google
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
	// ExtractModel is used for border-query extraction; empty means Model.
	ExtractModel     string `mapstructure:"extract_model"`
	ExtractMaxTokens int64  `mapstructure:"extract_max_tokens"`
}

type ExecutionConfig struct {
	Mode           string `mapstructure:"mode"` // local | temporal
	Interpreter    string `mapstructure:"interpreter"`
	Timeout        int    `mapstructure:"timeout"` // seconds
	PreludePath    string `mapstructure:"prelude_path"`
	TileURLPattern string `mapstructure:"tile_url_pattern"`
	WorkDir        string `mapstructure:"work_dir"`
	MaxOutputBytes int    `mapstructure:"max_output_bytes"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type BoundariesConfig struct {
	Source   string `mapstructure:"source"` // file | postgres
	Path     string `mapstructure:"path"`   // file path or http(s) URL
	CacheTTL int    `mapstructure:"cache_ttl"`
}

type MapConfig struct {
	TileSize        int     `mapstructure:"tile_size"`
	RasterPadding   int     `mapstructure:"raster_padding"`
	VectorPadding   int     `mapstructure:"vector_padding"`
	MinExtentMeters float64 `mapstructure:"min_extent_meters"`
	BorderCacheTTL  int     `mapstructure:"border_cache_ttl"`
	MaxSessions     int     `mapstructure:"max_sessions"`     // 0 disables the cap
	SessionIdleTTL  int     `mapstructure:"session_idle_ttl"` // seconds, 0 disables expiry
}

// Load reads configuration from .env, an optional config file and
// environment variables, in increasing order of precedence.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 90)
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("server.openapi_path", "api/openapi.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "terramind")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "terramind")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.key_prefix", "terramind:")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 900)
	v.SetDefault("llm.extract_model", "")
	v.SetDefault("llm.extract_max_tokens", 100)
	v.SetDefault("execution.mode", "local")
	v.SetDefault("execution.interpreter", "python3")
	v.SetDefault("execution.timeout", 60)
	v.SetDefault("execution.prelude_path", "")
	v.SetDefault("execution.tile_url_pattern", "")
	v.SetDefault("execution.work_dir", "")
	v.SetDefault("execution.max_output_bytes", 4<<20)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "script-runs")
	v.SetDefault("boundaries.source", "file")
	v.SetDefault("boundaries.path", "data/us-states.geojson")
	v.SetDefault("boundaries.cache_ttl", 600)
	v.SetDefault("map.tile_size", 256)
	v.SetDefault("map.raster_padding", 40)
	v.SetDefault("map.vector_padding", 50)
	v.SetDefault("map.min_extent_meters", 500)
	v.SetDefault("map.border_cache_ttl", 3600)
	v.SetDefault("map.max_sessions", 1000)
	v.SetDefault("map.session_idle_ttl", 3600)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: TERRAMIND_DATABASE_HOST → database.host
	v.SetEnvPrefix("TERRAMIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The provider's conventional variable also works for the key.
	_ = v.BindEnv("llm.api_key", "TERRAMIND_LLM_API_KEY", "OPENAI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
// All problems are reported at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "anthropic", "google":
	default:
		errs = append(errs, fmt.Sprintf("llm.provider must be openai, anthropic or google, got %q", c.LLM.Provider))
	}
	if c.LLM.Model == "" {
		errs = append(errs, "llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("llm.temperature must be 0-2, got %g", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, "llm.max_tokens must be positive")
	}

	switch c.Execution.Mode {
	case "local":
	case "temporal":
		if c.Temporal.HostPort == "" {
			errs = append(errs, "temporal.host_port is required when execution.mode is temporal")
		}
		if c.Temporal.TaskQueue == "" {
			errs = append(errs, "temporal.task_queue is required when execution.mode is temporal")
		}
	default:
		errs = append(errs, fmt.Sprintf("execution.mode must be local or temporal, got %q", c.Execution.Mode))
	}
	if c.Execution.Interpreter == "" {
		errs = append(errs, "execution.interpreter is required")
	}
	if c.Execution.Timeout <= 0 {
		errs = append(errs, "execution.timeout must be positive")
	}
	if c.Execution.TileURLPattern != "" {
		if _, err := regexp.Compile(c.Execution.TileURLPattern); err != nil {
			errs = append(errs, fmt.Sprintf("execution.tile_url_pattern: %v", err))
		}
	}

	switch c.Boundaries.Source {
	case "file":
		if c.Boundaries.Path == "" {
			errs = append(errs, "boundaries.path is required when boundaries.source is file")
		}
	case "postgres":
		errs = append(errs, c.Database.validate()...)
	default:
		errs = append(errs, fmt.Sprintf("boundaries.source must be file or postgres, got %q", c.Boundaries.Source))
	}

	if c.Map.TileSize <= 0 {
		errs = append(errs, "map.tile_size must be positive")
	}
	if c.Map.RasterPadding < 0 || c.Map.VectorPadding < 0 {
		errs = append(errs, "map paddings must not be negative")
	}
	if c.Map.MinExtentMeters <= 0 {
		errs = append(errs, "map.min_extent_meters must be positive")
	}
	if c.Map.MaxSessions < 0 || c.Map.SessionIdleTTL < 0 {
		errs = append(errs, "map session limits must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateDatabase reports problems with the database section only; the
// ingestor and migrator need a database regardless of boundaries.source.
func (c *Config) ValidateDatabase() error {
	if errs := c.Database.validate(); len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (d DatabaseConfig) validate() []string {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user is required")
	}
	if d.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	return errs
}
