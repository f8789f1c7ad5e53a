package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Neo4j     Neo4jConfig     `mapstructure:"neo4j"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	LitePort        int           `mapstructure:"lite_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Schema          string        `mapstructure:"schema"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.Schema,
	)
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TLS       bool   `mapstructure:"tls"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type Neo4jConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	URI                string `mapstructure:"uri"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	Database           string `mapstructure:"database"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MaxLifetimeMinutes int    `mapstructure:"max_lifetime_minutes"`
}

type NATSConfig struct {
	Enabled    bool               `mapstructure:"enabled"`
	URL        string             `mapstructure:"url"`
	StreamName string             `mapstructure:"stream_name"`
	Subjects   NATSSubjectsConfig `mapstructure:"subjects"`
}

type NATSSubjectsConfig struct {
	AnalysisCompleted string `mapstructure:"analysis_completed"`
	HighRiskDetected  string `mapstructure:"high_risk_detected"`
}

type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// AnalysisConfig tunes the analyzer service around the pure scoring core
type AnalysisConfig struct {
	BatchMax       int           `mapstructure:"batch_max"`
	Workers        int           `mapstructure:"workers"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	PersistResults bool          `mapstructure:"persist_results"`
	PublishEvents  bool          `mapstructure:"publish_events"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults only contain plain values, decoding cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "privacyguard-lab")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8090)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.lite_port", 8091)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "privacyguard")
	v.SetDefault("database.dbname", "privacyguard")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.schema", "public")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.key_prefix", "privacyguard:")

	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("neo4j.max_connections", 20)
	v.SetDefault("neo4j.max_lifetime_minutes", 60)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream_name", "PRIVACYGUARD_ANALYSES")
	v.SetDefault("nats.subjects.analysis_completed", "analyses.completed")
	v.SetDefault("nats.subjects.high_risk_detected", "analyses.high_risk")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("ratelimit.requests_per_minute", 120)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.time_format", time.RFC3339)

	v.SetDefault("analysis.batch_max", 500)
	v.SetDefault("analysis.workers", 8)
	v.SetDefault("analysis.cache_ttl", 24*time.Hour)
	v.SetDefault("analysis.persist_results", true)
	v.SetDefault("analysis.publish_events", true)
}

// Load reads configuration from file and environment variables.
// A missing config file is not an error when configPath is empty.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/privacyguard-lab")
	}

	v.SetEnvPrefix("PRIVACYGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind nested env vars explicitly (viper doesn't auto-bind nested struct fields)
	v.BindEnv("redis.enabled", "PRIVACYGUARD_REDIS_ENABLED")
	v.BindEnv("redis.host", "PRIVACYGUARD_REDIS_HOST")
	v.BindEnv("redis.port", "PRIVACYGUARD_REDIS_PORT")
	v.BindEnv("redis.password", "PRIVACYGUARD_REDIS_PASSWORD")
	v.BindEnv("database.enabled", "PRIVACYGUARD_DATABASE_ENABLED")
	v.BindEnv("database.host", "PRIVACYGUARD_DATABASE_HOST")
	v.BindEnv("database.port", "PRIVACYGUARD_DATABASE_PORT")
	v.BindEnv("database.user", "PRIVACYGUARD_DATABASE_USER")
	v.BindEnv("database.password", "PRIVACYGUARD_DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "PRIVACYGUARD_DATABASE_DBNAME")
	v.BindEnv("neo4j.enabled", "PRIVACYGUARD_NEO4J_ENABLED")
	v.BindEnv("nats.enabled", "PRIVACYGUARD_NATS_ENABLED")
	v.BindEnv("app.environment", "PRIVACYGUARD_APP_ENVIRONMENT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
