package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends
const (
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"
)

// Config holds all application configuration. Values come from defaults,
// then the optional YAML file, then the environment.
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`
	LogLevel      string `yaml:"log_level"`

	// Storage and AWS
	StoreBackend  string `yaml:"store_backend"`
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	EventBusName  string `yaml:"event_bus_name"`

	// Lambda configuration
	IsLambda           bool   `yaml:"-"`
	LambdaFunctionName string `yaml:"-"`

	// Authentication
	JWTSecret   string `yaml:"-"`
	JWTIssuer   string `yaml:"jwt_issuer"`
	JWTAudience string `yaml:"jwt_audience"`

	// Suggestion service
	OpenRouter         OpenRouterConfig `yaml:"openrouter"`
	SuggestionTimeout  time.Duration    `yaml:"suggestion_timeout"`
	SuggestionCacheTTL time.Duration    `yaml:"suggestion_cache_ttl"`

	// Engine tunables
	HistoryLimit        int           `yaml:"history_limit"`
	AutosaveDebounce    time.Duration `yaml:"autosave_debounce"`
	FreeMapLimit        int           `yaml:"free_map_limit"`
	PremiumOwners       []string      `yaml:"premium_owners"`
	ExpansionsPerMinute int           `yaml:"expansions_per_minute"`
	StrictDedup         bool          `yaml:"strict_dedup"`

	// Feature flags
	EnableMetrics bool     `yaml:"enable_metrics"`
	EnableTracing bool     `yaml:"enable_tracing"`
	EnableCORS    bool     `yaml:"enable_cors"`
	CORSOrigins   []string `yaml:"cors_origins"`

	// TrustProxyHeaders reads the client IP from forwarding headers
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`

	// ConfigFile is the YAML overlay this config was read from, if any
	ConfigFile string `yaml:"-"`
}

// OpenRouterConfig configures the chat completions client
type OpenRouterConfig struct {
	APIKey  string `yaml:"-"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Referer string `yaml:"referer"`
	Title   string `yaml:"title"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		ServerAddress: ":8080",
		Environment:   "development",
		LogLevel:      "info",

		StoreBackend:  StoreMemory,
		AWSRegion:     "us-west-2",
		DynamoDBTable: "mindmaps",
		EventBusName:  "",

		JWTIssuer:   "mindmap-backend",
		JWTAudience: "mindmap-api",

		OpenRouter: OpenRouterConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "deepseek/deepseek-chat-v3.1:free",
			Referer: "http://localhost:5173",
			Title:   "MindFlow",
		},
		SuggestionTimeout:  15 * time.Second,
		SuggestionCacheTTL: 10 * time.Minute,

		HistoryLimit:        50,
		AutosaveDebounce:    time.Second,
		FreeMapLimit:        5,
		ExpansionsPerMinute: 30,

		EnableCORS:  true,
		CORSOrigins: []string{"*"},
	}
}

// LoadConfig loads configuration from CONFIG_FILE (optional) and the
// environment
func LoadConfig() (*Config, error) {
	return Load(os.Getenv("CONFIG_FILE"))
}

// Load reads path as a YAML overlay, applies the environment and validates
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", c.StoreBackend))
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)

	c.LambdaFunctionName = getEnv("AWS_LAMBDA_FUNCTION_NAME", c.LambdaFunctionName)
	c.IsLambda = getEnvBool("IS_LAMBDA", c.LambdaFunctionName != "")

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.JWTAudience = getEnv("JWT_AUDIENCE", c.JWTAudience)

	c.OpenRouter.APIKey = getEnv("OPENROUTER_API_KEY", c.OpenRouter.APIKey)
	c.OpenRouter.BaseURL = getEnv("OPENROUTER_BASE_URL", c.OpenRouter.BaseURL)
	c.OpenRouter.Model = getEnv("OPENROUTER_MODEL", c.OpenRouter.Model)
	c.OpenRouter.Referer = getEnv("OPENROUTER_REFERER", c.OpenRouter.Referer)
	c.OpenRouter.Title = getEnv("OPENROUTER_TITLE", c.OpenRouter.Title)
	c.SuggestionTimeout = getEnvDuration("SUGGESTION_TIMEOUT", c.SuggestionTimeout)
	c.SuggestionCacheTTL = getEnvDuration("SUGGESTION_CACHE_TTL", c.SuggestionCacheTTL)

	c.HistoryLimit = getEnvInt("HISTORY_LIMIT", c.HistoryLimit)
	c.AutosaveDebounce = getEnvDuration("AUTOSAVE_DEBOUNCE", c.AutosaveDebounce)
	c.FreeMapLimit = getEnvInt("FREE_MAP_LIMIT", c.FreeMapLimit)
	c.PremiumOwners = getEnvList("PREMIUM_OWNERS", c.PremiumOwners)
	c.ExpansionsPerMinute = getEnvInt("EXPANSIONS_PER_MINUTE", c.ExpansionsPerMinute)
	c.StrictDedup = getEnvBool("STRICT_DEDUP", c.StrictDedup)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	c.CORSOrigins = getEnvList("CORS_ORIGINS", c.CORSOrigins)
	c.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", c.TrustProxyHeaders)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.HistoryLimit < 2 {
		return fmt.Errorf("HISTORY_LIMIT must be at least 2, got %d", c.HistoryLimit)
	}
	if c.AutosaveDebounce <= 0 {
		return fmt.Errorf("AUTOSAVE_DEBOUNCE must be positive")
	}
	if c.FreeMapLimit < 0 {
		return fmt.Errorf("FREE_MAP_LIMIT cannot be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == "" && !c.IsLambda {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.StoreBackend != StoreDynamoDB {
			return fmt.Errorf("production requires the dynamodb store")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration parses a Go duration such as 500ms
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
