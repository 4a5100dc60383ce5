package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Webhook verification modes.
const (
	VerificationEnforce = "enforce"
	VerificationBypass  = "bypass"
)

// EnvironmentProduction is the environment name that tightens startup checks.
const EnvironmentProduction = "production"

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port            int           `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	} `mapstructure:"server"`
	Database struct {
		PostgresDSN         string        `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool          `mapstructure:"postgresAutoMigrate"`
		ConnectTimeout      time.Duration `mapstructure:"connectTimeout"` // Max time spent retrying the initial connection
	} `mapstructure:"database"`
	Auth struct {
		JWTSecret string        `mapstructure:"jwtSecret"`
		TokenTTL  time.Duration `mapstructure:"tokenTTL"`
	} `mapstructure:"auth"`
	Mailgun struct {
		APIKey            string `mapstructure:"apiKey"`
		Domain            string `mapstructure:"domain"`
		WebhookSigningKey string `mapstructure:"webhookSigningKey"`
	} `mapstructure:"mailgun"`
	Webhook struct {
		Verification string `mapstructure:"verification"` // enforce | bypass
	} `mapstructure:"webhook"`
	OpenAI struct {
		APIKey  string        `mapstructure:"apiKey"`
		Model   string        `mapstructure:"model"`
		BaseURL string        `mapstructure:"baseURL"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"openai"`
	Geocoding struct {
		APIKey  string        `mapstructure:"apiKey"`
		BaseURL string        `mapstructure:"baseURL"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"geocoding"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"` // Geocode cache entry lifetime
	} `mapstructure:"redis"`
	NATS struct {
		URL           string `mapstructure:"url"`
		Stream        string `mapstructure:"stream"`
		SubjectPrefix string `mapstructure:"subjectPrefix"`
		MaxAgeDays    int    `mapstructure:"maxAgeDays"`
	} `mapstructure:"nats"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	WorkerPools struct {
		Geocode WorkerPoolConfig `mapstructure:"geocode"`
	} `mapstructure:"workerPools"`
	Query struct {
		DefaultLimit int `mapstructure:"defaultLimit"`
		MapLimit     int `mapstructure:"mapLimit"`
		MaxLimit     int `mapstructure:"maxLimit"`
	} `mapstructure:"query"`
}

// WorkerPoolConfig holds configuration for a bounded worker pool
type WorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// IsProduction reports whether the service runs with production safeguards.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvironmentProduction)
}

// IsDevelopment reports whether verbose error details may be returned to clients.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// MailgunConfigured reports whether real email delivery is possible.
func (c *Config) MailgunConfigured() bool {
	return c.Mailgun.APIKey != "" && c.Mailgun.Domain != ""
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwtSecret is required"))
	}
	if c.Database.PostgresDSN == "" {
		errs = append(errs, errors.New("database.postgresDSN is required"))
	}
	switch c.Webhook.Verification {
	case VerificationEnforce:
		if c.Mailgun.WebhookSigningKey == "" && c.IsProduction() {
			errs = append(errs, errors.New("mailgun.webhookSigningKey is required in production"))
		}
	case VerificationBypass:
		if c.IsProduction() {
			errs = append(errs, errors.New("webhook.verification=bypass is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("webhook.verification must be %q or %q, got %q", VerificationEnforce, VerificationBypass, c.Webhook.Verification))
	}
	if c.IsProduction() && !c.MailgunConfigured() {
		errs = append(errs, errors.New("mailgun.apiKey and mailgun.domain are required in production"))
	}
	if c.Query.DefaultLimit <= 0 || c.Query.MapLimit <= 0 || c.Query.MaxLimit < c.Query.DefaultLimit {
		errs = append(errs, errors.New("query limits must be positive and maxLimit >= defaultLimit"))
	}
	return errors.Join(errs...)
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	// Create new viper instance
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("database.postgresAutoMigrate", true)
	v.SetDefault("database.connectTimeout", 2*time.Minute)
	v.SetDefault("auth.tokenTTL", 24*time.Hour)
	v.SetDefault("webhook.verification", VerificationEnforce)
	v.SetDefault("openai.model", "gpt-4.1-nano")
	v.SetDefault("openai.baseURL", "https://api.openai.com/v1")
	v.SetDefault("openai.timeout", 30*time.Second)
	v.SetDefault("geocoding.baseURL", "https://maps.googleapis.com/maps/api")
	v.SetDefault("geocoding.timeout", 10*time.Second)
	v.SetDefault("redis.ttl", 30*24*time.Hour)
	v.SetDefault("nats.stream", "lead_activity")
	v.SetDefault("nats.subjectPrefix", "v1.leads")
	v.SetDefault("nats.maxAgeDays", 30)
	v.SetDefault("metrics.enabled", true)

	// WorkerPools Defaults
	v.SetDefault("workerPools.geocode.poolSize", 4)
	v.SetDefault("workerPools.geocode.expiryTime", time.Minute)

	// Paging Defaults
	v.SetDefault("query.defaultLimit", 10)
	v.SetDefault("query.mapLimit", 5)
	v.SetDefault("query.maxLimit", 100)

	// Config file settings
	v.SetConfigName("default") // name of config file (without extension)
	v.SetConfigType("yaml")    // REQUIRED if the config file does not have the extension in the name

	// Add lookup paths
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.lead-outreach-service")
	v.AddConfigPath("/etc/lead-outreach-service")

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map environment variables to config fields
	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	directEnv := map[string]string{
		"POSTGRES_DSN":                "database.postgresDSN",
		"LOG_LEVEL":                   "logLevel",
		"JWT_SECRET":                  "auth.jwtSecret",
		"MAILGUN_API_KEY":             "mailgun.apiKey",
		"MAILGUN_DOMAIN":              "mailgun.domain",
		"MAILGUN_WEBHOOK_SIGNING_KEY": "mailgun.webhookSigningKey",
		"OPENAI_API_KEY":              "openai.apiKey",
		"GOOGLE_MAPS_API_KEY":         "geocoding.apiKey",
		"NATS_URL":                    "nats.url",
		"REDIS_ADDR":                  "redis.addr",
	}
	for env, key := range directEnv {
		if val := os.Getenv(env); val != "" {
			v.Set(key, val)
		}
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		// Get the field tag value (mapstructure)
		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		// Build the env var path
		path := append(append([]string{}, parts...), tag)
		key := strings.Join(path, ".")

		// If it's a struct, recursively bind its fields
		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		// Bind the env var
		_ = v.BindEnv(key)
	}
}
