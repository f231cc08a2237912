package internal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Approval      ApprovalConfig      `mapstructure:"approval"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Jobs          JobsConfig          `mapstructure:"jobs"`
	Invoice       InvoiceConfig       `mapstructure:"invoice"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	RateLimitPerMin   int           `mapstructure:"rate_limit_per_minute"`
	ExportRatePerMin  int           `mapstructure:"export_rate_per_minute"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration"`
	CookieName          string        `mapstructure:"cookie_name"`
	BCryptCost          int           `mapstructure:"bcrypt_cost"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ApprovalLevel is one entry of the default approval chain attached to new trip requests.
type ApprovalLevel struct {
	Level int    `mapstructure:"level"`
	Role  string `mapstructure:"role"`
}

type ApprovalConfig struct {
	Levels []ApprovalLevel `mapstructure:"levels"`
}

type TelemetryConfig struct {
	BrokerURL       string `mapstructure:"broker_url"`
	Topic           string `mapstructure:"topic"`
	ClientID        string `mapstructure:"client_id"`
	QoS             byte   `mapstructure:"qos"`
	ReplayMaxPoints int    `mapstructure:"replay_max_points"`
	ExportMaxRows   int    `mapstructure:"export_max_rows"`
}

type JobsConfig struct {
	RedisAddr          string `mapstructure:"redis_addr"`
	RedisPassword      string `mapstructure:"redis_password"`
	RedisDB            int    `mapstructure:"redis_db"`
	Concurrency        int    `mapstructure:"concurrency"`
	MonthlyInvoiceCron string `mapstructure:"monthly_invoice_cron"`
	OverdueCron        string `mapstructure:"overdue_cron"`
}

type InvoiceConfig struct {
	NumberPrefix   string `mapstructure:"number_prefix"`
	DefaultDueDays int    `mapstructure:"default_due_days"`
	Currency       string `mapstructure:"currency"`
}

var DefaultApprovalLevels = []ApprovalLevel{
	{Level: 1, Role: "Line Manager"},
	{Level: 2, Role: "Department Head"},
}

// ApplyDefaults fills zero values left by a sparse config file.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.RateLimitPerMin == 0 {
		c.Server.RateLimitPerMin = 120
	}
	if c.Server.ExportRatePerMin == 0 {
		c.Server.ExportRatePerMin = 5
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Security.AccessTokenDuration == 0 {
		c.Security.AccessTokenDuration = 15 * time.Minute
	}
	if c.Security.CookieName == "" {
		c.Security.CookieName = "accessToken"
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 12
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
	if len(c.Approval.Levels) == 0 {
		c.Approval.Levels = append([]ApprovalLevel(nil), DefaultApprovalLevels...)
	}
	if c.Telemetry.Topic == "" {
		c.Telemetry.Topic = "fleet/+/gps"
	}
	if c.Telemetry.ClientID == "" {
		c.Telemetry.ClientID = "tms-telemetry"
	}
	if c.Telemetry.ReplayMaxPoints == 0 {
		c.Telemetry.ReplayMaxPoints = 5000
	}
	if c.Telemetry.ExportMaxRows == 0 {
		c.Telemetry.ExportMaxRows = 10000
	}
	if c.Jobs.Concurrency == 0 {
		c.Jobs.Concurrency = 5
	}
	if c.Jobs.MonthlyInvoiceCron == "" {
		c.Jobs.MonthlyInvoiceCron = "0 2 1 * *"
	}
	if c.Jobs.OverdueCron == "" {
		c.Jobs.OverdueCron = "0 3 * * *"
	}
	if c.Invoice.NumberPrefix == "" {
		c.Invoice.NumberPrefix = "INV"
	}
	if c.Invoice.DefaultDueDays == 0 {
		c.Invoice.DefaultDueDays = 30
	}
	if c.Invoice.Currency == "" {
		c.Invoice.Currency = "LKR"
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LoadConfigFromEnv builds the configuration from plain environment variables (container deployments).
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Environment: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:             getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:          getEnv("BASE_URL", ""),
			ReadTimeout:      getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:     getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:      getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			RateLimitPerMin:  getEnvAsInt("HTTP_RATE_LIMIT_PER_MINUTE", 120),
			ExportRatePerMin: getEnvAsInt("HTTP_EXPORT_RATE_PER_MINUTE", 5),
			AllowedOrigins:   getEnvAsList("HTTP_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Security: SecurityConfig{
			JWTSecret:           getEnv("JWT_SECRET", ""),
			AccessTokenDuration: getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
			CookieName:          getEnv("AUTH_COOKIE_NAME", "accessToken"),
			BCryptCost:          getEnvAsInt("BCRYPT_COST", 12),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnv("METRICS_ENABLED", "true") == "true",
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
		Telemetry: TelemetryConfig{
			BrokerURL:       getEnv("MQTT_BROKER_URL", ""),
			Topic:           getEnv("MQTT_TOPIC", "fleet/+/gps"),
			ClientID:        getEnv("MQTT_CLIENT_ID", "tms-telemetry"),
			QoS:             byte(getEnvAsInt("MQTT_QOS", 1)),
			ReplayMaxPoints: getEnvAsInt("GPS_REPLAY_MAX_POINTS", 5000),
			ExportMaxRows:   getEnvAsInt("GPS_EXPORT_MAX_ROWS", 10000),
		},
		Jobs: JobsConfig{
			RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:      getEnv("REDIS_PASSWORD", ""),
			RedisDB:            getEnvAsInt("REDIS_DB", 0),
			Concurrency:        getEnvAsInt("JOBS_CONCURRENCY", 5),
			MonthlyInvoiceCron: getEnv("JOBS_MONTHLY_INVOICE_CRON", ""),
			OverdueCron:        getEnv("JOBS_OVERDUE_CRON", ""),
		},
		Invoice: InvoiceConfig{
			NumberPrefix:   getEnv("INVOICE_NUMBER_PREFIX", "INV"),
			DefaultDueDays: getEnvAsInt("INVOICE_DEFAULT_DUE_DAYS", 30),
			Currency:       getEnv("INVOICE_CURRENCY", "LKR"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Approval.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("approval config: %v", err))
	}

	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("telemetry config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters")
	}
	if c.AccessTokenDuration < time.Minute {
		return errors.New("access_token_duration must be at least 1m")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
	if c.Format != "json" && c.Format != "text" {
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}

func (c *ApprovalConfig) Validate() error {
	seen := make(map[int]bool, len(c.Levels))
	for _, l := range c.Levels {
		if l.Level <= 0 {
			return fmt.Errorf("approval level must be positive, got %d", l.Level)
		}
		if seen[l.Level] {
			return fmt.Errorf("duplicate approval level %d", l.Level)
		}
		if strings.TrimSpace(l.Role) == "" {
			return fmt.Errorf("approval level %d has no role", l.Level)
		}
		seen[l.Level] = true
	}
	return nil
}

func (c *TelemetryConfig) Validate() error {
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if c.ReplayMaxPoints < 2 {
		return errors.New("replay_max_points must be at least 2")
	}
	if c.ExportMaxRows < 1 {
		return errors.New("export_max_rows must be positive")
	}
	return nil
}
