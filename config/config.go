package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server    Server
	Database  Database
	Redis     Redis
	AMQP      AMQP
	Log       Log
	Evaluator Evaluator
	Keyword   Keyword
	Quiz      Quiz
}

type Server struct {
	Port    string
	GinMode string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the postgres connection string.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// Redis is optional; an empty Addr disables the catalog cache.
type Redis struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// AMQP is optional; an empty URL disables event publishing.
type AMQP struct {
	URL      string
	Exchange string
}

type Log struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type Evaluator struct {
	GeminiAPIKey  string
	GeminiModel   string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Concurrency   int
}

// Keyword holds the fallback scoring breakpoints. Ratios are in [0,1], payouts in percent.
type Keyword struct {
	FullRatio      float64
	PartialRatio   float64
	FullPercent    float64
	PartialPercent float64
	LowPercent     float64
}

type Quiz struct {
	DefaultTimeLimitMinutes  int
	MultiChoicePartialCredit bool
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Server.GinMode = viper.GetString("GIN_MODE")

	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")
	config.Database.SSLMode = viper.GetString("DATABASE_SSLMODE")

	config.Redis.Addr = viper.GetString("REDIS_ADDR")
	config.Redis.Password = viper.GetString("REDIS_PASSWORD")
	config.Redis.DB = viper.GetInt("REDIS_DB")
	config.Redis.CacheTTL = time.Duration(viper.GetInt("CATALOG_CACHE_TTL_SECONDS")) * time.Second

	config.AMQP.URL = viper.GetString("AMQP_URL")
	config.AMQP.Exchange = viper.GetString("AMQP_EXCHANGE")

	config.Log.Level = viper.GetString("LOG_LEVEL")
	config.Log.Format = viper.GetString("LOG_FORMAT")
	config.Log.File = viper.GetString("LOG_FILE")
	config.Log.MaxSizeMB = viper.GetInt("LOG_MAX_SIZE_MB")
	config.Log.MaxBackups = viper.GetInt("LOG_MAX_BACKUPS")
	config.Log.MaxAgeDays = viper.GetInt("LOG_MAX_AGE_DAYS")

	config.Evaluator.GeminiAPIKey = viper.GetString("GEMINI_API_KEY")
	config.Evaluator.GeminiModel = viper.GetString("GEMINI_MODEL")
	config.Evaluator.Timeout = time.Duration(viper.GetInt("EVALUATOR_TIMEOUT_SECONDS")) * time.Second
	config.Evaluator.RatePerSecond = viper.GetFloat64("EVALUATOR_RATE_PER_SECOND")
	config.Evaluator.Burst = viper.GetInt("EVALUATOR_BURST")
	config.Evaluator.Concurrency = viper.GetInt("EVALUATOR_CONCURRENCY")

	config.Keyword.FullRatio = viper.GetFloat64("KEYWORD_FULL_RATIO")
	config.Keyword.PartialRatio = viper.GetFloat64("KEYWORD_PARTIAL_RATIO")
	config.Keyword.FullPercent = viper.GetFloat64("KEYWORD_FULL_PERCENT")
	config.Keyword.PartialPercent = viper.GetFloat64("KEYWORD_PARTIAL_PERCENT")
	config.Keyword.LowPercent = viper.GetFloat64("KEYWORD_LOW_PERCENT")

	config.Quiz.DefaultTimeLimitMinutes = viper.GetInt("QUIZ_DEFAULT_TIME_LIMIT_MINUTES")
	config.Quiz.MultiChoicePartialCredit = viper.GetBool("QUIZ_MULTI_CHOICE_PARTIAL_CREDIT")

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Info().Interface("config", config.masked()).Msg("Config loaded")
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("DATABASE_HOST", "localhost")
	viper.SetDefault("DATABASE_PORT", "5432")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("CATALOG_CACHE_TTL_SECONDS", 300)
	viper.SetDefault("AMQP_EXCHANGE", "quiz.events")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_MAX_SIZE_MB", 100)
	viper.SetDefault("LOG_MAX_BACKUPS", 5)
	viper.SetDefault("LOG_MAX_AGE_DAYS", 30)
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("EVALUATOR_TIMEOUT_SECONDS", 20)
	viper.SetDefault("EVALUATOR_RATE_PER_SECOND", 5)
	viper.SetDefault("EVALUATOR_BURST", 5)
	viper.SetDefault("EVALUATOR_CONCURRENCY", 4)
	viper.SetDefault("KEYWORD_FULL_RATIO", 0.8)
	viper.SetDefault("KEYWORD_PARTIAL_RATIO", 0.5)
	viper.SetDefault("KEYWORD_FULL_PERCENT", 100)
	viper.SetDefault("KEYWORD_PARTIAL_PERCENT", 60)
	viper.SetDefault("KEYWORD_LOW_PERCENT", 20)
	viper.SetDefault("QUIZ_DEFAULT_TIME_LIMIT_MINUTES", 30)
	viper.SetDefault("QUIZ_MULTI_CHOICE_PARTIAL_CREDIT", false)
}

func (c Config) validate() error {
	if c.Keyword.PartialRatio > c.Keyword.FullRatio {
		return fmt.Errorf("KEYWORD_PARTIAL_RATIO (%.2f) must not exceed KEYWORD_FULL_RATIO (%.2f)", c.Keyword.PartialRatio, c.Keyword.FullRatio)
	}
	if c.Quiz.DefaultTimeLimitMinutes <= 0 {
		return fmt.Errorf("QUIZ_DEFAULT_TIME_LIMIT_MINUTES must be positive, got %d", c.Quiz.DefaultTimeLimitMinutes)
	}
	if c.Evaluator.Timeout <= 0 {
		return fmt.Errorf("EVALUATOR_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

func (c Config) masked() Config {
	if c.Database.Password != "" {
		c.Database.Password = "***"
	}
	if c.Redis.Password != "" {
		c.Redis.Password = "***"
	}
	if c.Evaluator.GeminiAPIKey != "" {
		c.Evaluator.GeminiAPIKey = "***"
	}
	if c.AMQP.URL != "" {
		c.AMQP.URL = "***"
	}
	return c
}
