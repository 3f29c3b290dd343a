package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research agent
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Tool      ToolConfig      `mapstructure:"tool"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Server    ServerConfig    `mapstructure:"server"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug      bool   `mapstructure:"debug"`
	LogLevel   string `mapstructure:"log_level"`
	LogFile    string `mapstructure:"log_file"`
	Production bool   `mapstructure:"production"`
}

// LLMConfig describes the chat-completions endpoint and the models routed to each role.
type LLMConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`      // planning + integration
	ToolModel   string        `mapstructure:"tool_model"` // search query + page selection
	QAModel     string        `mapstructure:"qa_model"`   // assessment
	Timeout     time.Duration `mapstructure:"timeout"` // 0 keeps the transport default
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.Endpoint) == "" {
		return fmt.Errorf("llm.endpoint required")
	}
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model required")
	}
	if l.Timeout < 0 {
		return fmt.Errorf("llm.timeout cannot be negative")
	}
	return nil
}

// Normalize routes the tool and QA roles to the main model when unset.
func (l LLMConfig) Normalize() LLMConfig {
	if strings.TrimSpace(l.ToolModel) == "" {
		l.ToolModel = l.Model
	}
	if strings.TrimSpace(l.QAModel) == "" {
		l.QAModel = l.Model
	}
	return l
}

// SourcesConfig contains search source configurations
type SourcesConfig struct {
	WebSearch WebSearchConfig `mapstructure:"web_search"`
}

// WebSearchConfig contains web search settings
type WebSearchConfig struct {
	Provider     string        `mapstructure:"provider"` // serper, brave
	Endpoint     string        `mapstructure:"endpoint"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"` // 0 waits for the provider
}

func (w WebSearchConfig) Validate() error {
	switch w.Provider {
	case "serper", "brave":
	default:
		return fmt.Errorf("sources.web_search.provider must be serper or brave, got %q", w.Provider)
	}
	if w.MaxResults < 0 {
		return fmt.Errorf("sources.web_search.max_results cannot be negative")
	}
	return nil
}

// APIKey returns the key for the configured provider.
func (w WebSearchConfig) APIKey() string {
	if w.Provider == "brave" {
		return w.BraveAPIKey
	}
	return w.SerperAPIKey
}

// FetchConfig controls how candidate pages are downloaded and decoded.
type FetchConfig struct {
	Type          string        `mapstructure:"type"` // http, chromedp
	Timeout       time.Duration `mapstructure:"timeout"`
	MinConfidence float64       `mapstructure:"min_confidence"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"` // 0 reads the whole body
}

func (f FetchConfig) Validate() error {
	switch f.Type {
	case "http", "chromedp":
	default:
		return fmt.Errorf("fetch.type must be http or chromedp, got %q", f.Type)
	}
	if f.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0")
	}
	if f.MinConfidence < 0 || f.MinConfidence > 1 {
		return fmt.Errorf("fetch.min_confidence must be within [0,1]")
	}
	return nil
}

// ToolConfig tunes the search-and-retrieve protocol.
type ToolConfig struct {
	MaxAttempts     int     `mapstructure:"max_attempts"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	GarbleThreshold float64 `mapstructure:"garble_threshold"`
	FallbackRanking bool    `mapstructure:"fallback_ranking"`
}

func (t ToolConfig) Validate() error {
	if t.MaxAttempts <= 0 {
		return fmt.Errorf("tool.max_attempts must be > 0")
	}
	if t.MaxTokens <= 0 {
		return fmt.Errorf("tool.max_tokens must be > 0")
	}
	if t.GarbleThreshold <= 0 || t.GarbleThreshold > 1 {
		return fmt.Errorf("tool.garble_threshold must be within (0,1]")
	}
	return nil
}

// AgentConfig contains control loop settings
type AgentConfig struct {
	MaxIterations    int    `mapstructure:"max_iterations"`
	FailedSitesScope string `mapstructure:"failed_sites_scope"` // invocation, session
}

func (a AgentConfig) Validate() error {
	if a.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be > 0")
	}
	switch a.FailedSitesScope {
	case "invocation", "session":
	default:
		return fmt.Errorf("agent.failed_sites_scope must be invocation or session, got %q", a.FailedSitesScope)
	}
	return nil
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Feedback FeedbackConfig `mapstructure:"feedback"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// FeedbackConfig selects the feedback store backend.
type FeedbackConfig struct {
	Backend   string `mapstructure:"backend"` // file, redis, postgres
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

func (f FeedbackConfig) Validate() error {
	switch f.Backend {
	case "file":
		if strings.TrimSpace(f.Path) == "" {
			return fmt.Errorf("storage.feedback.path required for file backend")
		}
	case "redis", "postgres":
	default:
		return fmt.Errorf("storage.feedback.backend must be file, redis or postgres, got %q", f.Backend)
	}
	return nil
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port.
func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%s", r.Host, r.Port) }

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL         string `mapstructure:"url"`
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a connection string, preferring the explicit url.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	MetricsPort  int    `mapstructure:"metrics_port"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func (t TelemetryConfig) Validate() error {
	if t.MetricsPort < 0 {
		return fmt.Errorf("telemetry.metrics_port cannot be negative")
	}
	return nil
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("llm.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.timeout", time.Duration(0))
	v.SetDefault("sources.web_search.provider", "serper")
	v.SetDefault("sources.web_search.max_results", 10)
	v.SetDefault("sources.web_search.timeout", time.Duration(0))
	v.SetDefault("fetch.type", "http")
	v.SetDefault("fetch.timeout", 20*time.Second)
	v.SetDefault("fetch.min_confidence", 0.5)
	v.SetDefault("fetch.max_body_bytes", int64(0))
	v.SetDefault("tool.max_attempts", 5)
	v.SetDefault("tool.max_tokens", 4000)
	v.SetDefault("tool.garble_threshold", 0.2)
	v.SetDefault("tool.fallback_ranking", false)
	v.SetDefault("agent.max_iterations", 10)
	v.SetDefault("agent.failed_sites_scope", "invocation")
	v.SetDefault("storage.feedback.backend", "file")
	v.SetDefault("storage.feedback.path", "memory.json")
	v.SetDefault("storage.feedback.namespace", "default")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("telemetry.service_name", "scout")
	v.SetDefault("server.address", ":8080")
}

// Load reads configuration from path (or the default search paths when empty),
// overlays SCOUT_* environment variables and validates the result. A missing
// config file is only an error when path is given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Credentials keep their conventional variable names.
	_ = v.BindEnv("llm.api_key", "SCOUT_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("sources.web_search.serper_api_key", "SCOUT_SOURCES_WEB_SEARCH_SERPER_API_KEY", "SERPER_API_KEY")
	_ = v.BindEnv("sources.web_search.brave_api_key", "SCOUT_SOURCES_WEB_SEARCH_BRAVE_API_KEY", "BRAVE_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM = cfg.LLM.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section that is always in use; backend specific
// sections are checked only when selected.
func (c *Config) Validate() error {
	checks := []func() error{
		c.LLM.Validate,
		c.Sources.WebSearch.Validate,
		c.Fetch.Validate,
		c.Tool.Validate,
		c.Agent.Validate,
		c.Storage.Feedback.Validate,
		c.Telemetry.Validate,
	}
	switch c.Storage.Feedback.Backend {
	case "redis":
		checks = append(checks, c.Storage.Redis.Validate)
	case "postgres":
		checks = append(checks, c.Storage.Postgres.Validate)
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
