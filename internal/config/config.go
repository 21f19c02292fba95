package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/medbot/internal/refdata"
	"github.com/jwalitptl/medbot/internal/service/alternative"
	"github.com/jwalitptl/medbot/internal/service/chat"
	"github.com/jwalitptl/medbot/internal/service/symptom"
	"github.com/jwalitptl/medbot/pkg/logger"
	"github.com/jwalitptl/medbot/pkg/messaging/redis"
	"github.com/jwalitptl/medbot/pkg/worker"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Database      DatabaseConfig      `mapstructure:"database"`
	SQLite        SQLiteConfig        `mapstructure:"sqlite"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Mongo         MongoConfig         `mapstructure:"mongo"`
	Data          DataConfig          `mapstructure:"data"`
	Model         ModelConfig         `mapstructure:"model"`
	Matching      MatchingConfig      `mapstructure:"matching"`
	Alternatives  AlternativesConfig  `mapstructure:"alternatives"`
	OpenAI        OpenAIConfig        `mapstructure:"openai"`
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	PredictionLog PredictionLogConfig `mapstructure:"prediction_log"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Security      SecurityConfig      `mapstructure:"security"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
	Outbox        OutboxConfig        `mapstructure:"outbox"`
	Retention     RetentionConfig     `mapstructure:"retention"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	Mode           string        `mapstructure:"mode"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open_conns"`
	MaxIdle  int    `mapstructure:"max_idle_conns"`
}

// DSN is the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type MongoConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DataConfig holds the reference table paths.
type DataConfig struct {
	Medicines    string `mapstructure:"medicines"`
	Alternatives string `mapstructure:"alternatives"`
	Descriptions string `mapstructure:"descriptions"`
	Medications  string `mapstructure:"medications"`
	Precautions  string `mapstructure:"precautions"`
	Workouts     string `mapstructure:"workouts"`
	Diets        string `mapstructure:"diets"`
}

// ModelConfig holds the classifier artifact paths. An empty IntentModel
// selects the keyword classifier.
type ModelConfig struct {
	DiseaseTree   string `mapstructure:"disease_tree"`
	DiseaseLabels string `mapstructure:"disease_labels"`
	Columns       string `mapstructure:"columns"`
	IntentModel   string `mapstructure:"intent_model"`
}

type MatchingConfig struct {
	MedicineCutoff float64 `mapstructure:"medicine_cutoff"`
	SymptomCutoff  float64 `mapstructure:"symptom_cutoff"`
}

type AlternativesConfig struct {
	MinScore     int           `mapstructure:"min_score"`
	ExcludeScore int           `mapstructure:"exclude_score"`
	Limit        int           `mapstructure:"limit"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

type OpenAIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	Token   string `mapstructure:"token"`
	Timeout int    `mapstructure:"timeout"`
	Debug   bool   `mapstructure:"debug"`
}

type PredictionLogConfig struct {
	Buffer       int           `mapstructure:"buffer"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	TTL               time.Duration `mapstructure:"ttl"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxBodyBytes   int64    `mapstructure:"max_body_bytes"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled"`
	MetricsPath       string `mapstructure:"metrics_path"`
	HealthPort        int    `mapstructure:"health_port"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

type RetentionConfig struct {
	OutboxDays int           `mapstructure:"outbox_days"`
	Interval   time.Duration `mapstructure:"interval"`
}

// envOverrides are applied on top of the file. Unset variables leave the
// file value alone.
type envOverrides struct {
	Port          *int    `envconfig:"PORT"`
	LogLevel      *string `envconfig:"LOG_LEVEL"`
	DBHost        *string `envconfig:"DB_HOST"`
	DBPort        *int    `envconfig:"DB_PORT"`
	DBUser        *string `envconfig:"DB_USER"`
	DBPassword    *string `envconfig:"DB_PASSWORD"`
	DBName        *string `envconfig:"DB_NAME"`
	DBSSLMode     *string `envconfig:"DB_SSLMODE"`
	SQLitePath    *string `envconfig:"SQLITE_PATH"`
	RedisURL      *string `envconfig:"REDIS_URL"`
	MongoURI      *string `envconfig:"MONGO_URI"`
	OpenAIAPIKey  *string `envconfig:"OPENAI_API_KEY"`
	TelegramToken *string `envconfig:"TELEGRAM_BOT_TOKEN"`
}

// LoadConfig reads config.yml from the usual locations, falling back to
// defaults when there is no file, then applies environment overrides.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app", "/app/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 20*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "medbot")
	v.SetDefault("database.name", "medbot")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("sqlite.path", "medical_chatbot.db")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel", "medbot.predictions")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "medbot")
	v.SetDefault("mongo.collection", "chat_history")
	v.SetDefault("mongo.timeout", 5*time.Second)

	v.SetDefault("data.medicines", "data/medicines.csv")
	v.SetDefault("data.alternatives", "data/medicine_with_real_prices.csv")
	v.SetDefault("data.descriptions", "data/description.csv")
	v.SetDefault("data.medications", "data/medications.csv")
	v.SetDefault("data.precautions", "data/precautions_df.csv")
	v.SetDefault("data.workouts", "data/workout_df.csv")
	v.SetDefault("data.diets", "data/diets.csv")

	v.SetDefault("model.disease_tree", "model/disease_tree.json")
	v.SetDefault("model.disease_labels", "model/labels.json")
	v.SetDefault("model.columns", "model/columns.json")

	v.SetDefault("matching.medicine_cutoff", 0.6)
	v.SetDefault("matching.symptom_cutoff", 0.7)

	v.SetDefault("alternatives.min_score", 60)
	v.SetDefault("alternatives.exclude_score", 95)
	v.SetDefault("alternatives.limit", 5)
	v.SetDefault("alternatives.cache_ttl", 10*time.Minute)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", 5*time.Second)

	v.SetDefault("telegram.timeout", 60)

	v.SetDefault("prediction_log.buffer", 256)
	v.SetDefault("prediction_log.write_timeout", 5*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 5.0)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("rate_limit.ttl", 10*time.Minute)

	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("security.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"})
	v.SetDefault("security.max_body_bytes", 64<<10)

	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.health_port", 8081)

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 5*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", time.Second)
	v.SetDefault("outbox.max_retries", 5)

	v.SetDefault("retention.outbox_days", 7)
	v.SetDefault("retention.interval", 24*time.Hour)
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	setInt(&c.Server.Port, env.Port)
	setString(&c.Log.Level, env.LogLevel)
	setString(&c.Database.Host, env.DBHost)
	setInt(&c.Database.Port, env.DBPort)
	setString(&c.Database.User, env.DBUser)
	setString(&c.Database.Password, env.DBPassword)
	setString(&c.Database.Name, env.DBName)
	setString(&c.Database.SSLMode, env.DBSSLMode)
	setString(&c.SQLite.Path, env.SQLitePath)
	setString(&c.Redis.URL, env.RedisURL)
	setString(&c.Mongo.URI, env.MongoURI)
	setString(&c.OpenAI.APIKey, env.OpenAIAPIKey)
	setString(&c.Telegram.Token, env.TelegramToken)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks ports and matching thresholds.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Database.Enabled && (c.Database.Port <= 0 || c.Database.Port > 65535) {
		return fmt.Errorf("invalid database port %d", c.Database.Port)
	}
	if c.Matching.MedicineCutoff <= 0 || c.Matching.MedicineCutoff > 1 {
		return fmt.Errorf("matching.medicine_cutoff must be in (0, 1], got %v", c.Matching.MedicineCutoff)
	}
	if c.Matching.SymptomCutoff <= 0 || c.Matching.SymptomCutoff > 1 {
		return fmt.Errorf("matching.symptom_cutoff must be in (0, 1], got %v", c.Matching.SymptomCutoff)
	}
	if c.Alternatives.MinScore >= c.Alternatives.ExcludeScore {
		return fmt.Errorf("alternatives.min_score %d must be below exclude_score %d",
			c.Alternatives.MinScore, c.Alternatives.ExcludeScore)
	}
	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return errors.New("openai.enabled requires an API key")
	}
	return nil
}

// Conversion methods to the package-level config types.

func (c LogConfig) ToLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      logger.ParseLevel(c.Level),
		TimeFormat: time.RFC3339,
		JSON:       c.JSON,
	}
}

func (c DataConfig) ToRefdataConfig() refdata.Config {
	return refdata.Config{
		Medicines:    c.Medicines,
		Alternatives: c.Alternatives,
		Descriptions: c.Descriptions,
		Medications:  c.Medications,
		Precautions:  c.Precautions,
		Workouts:     c.Workouts,
		Diets:        c.Diets,
	}
}

func (c *OutboxConfig) ToWorkerConfig(channel string) worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		Channel:       channel,
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
		MaxRetries:    c.MaxRetries,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c AlternativesConfig) ToRankerConfig() alternative.Config {
	return alternative.Config{
		MinScore:     c.MinScore,
		ExcludeScore: c.ExcludeScore,
		Limit:        c.Limit,
		CacheTTL:     c.CacheTTL,
	}
}

func (c OpenAIConfig) ToExtractorConfig() symptom.OpenAIConfig {
	return symptom.OpenAIConfig{
		APIKey:  c.APIKey,
		Model:   c.Model,
		BaseURL: c.BaseURL,
		Timeout: c.Timeout,
	}
}

func (c PredictionLogConfig) ToSinkConfig() chat.AsyncSinkConfig {
	return chat.AsyncSinkConfig{
		Buffer:       c.Buffer,
		WriteTimeout: c.WriteTimeout,
	}
}
