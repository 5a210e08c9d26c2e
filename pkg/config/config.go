package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	SMTP          SMTPConfig
	WhatsApp      WhatsAppConfig
	Notifications NotificationsConfig
	Ratification  RatificationConfig
	Fees          FeesConfig
	Vacancies     VacanciesConfig
	School        SchoolConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SMTPConfig configures the outbound email transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// Configured reports whether the transport has usable credentials.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// Addr returns the host:port dial address.
func (c SMTPConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// WhatsAppConfig toggles the WhatsApp channel.
type WhatsAppConfig struct {
	Enabled     bool
	StoreDSN    string
	CountryCode string
}

// NotificationsConfig tunes the background dispatch queue.
type NotificationsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// RatificationConfig bounds bulk ratification concurrency.
type RatificationConfig struct {
	Concurrency int
	PortalURL   string
}

// FeesConfig carries the per-level monthly fee schedule as configured,
// e.g. "Inicial=130,Primaria=180,Secundaria=180".
type FeesConfig struct {
	Schedule      string
	DefaultAmount float64
}

// VacanciesConfig tunes the public availability listing cache.
type VacanciesConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// SchoolConfig holds institution identity used on documents and messages.
type SchoolConfig struct {
	Name    string
	Address string
	Phone   string
	City    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.SMTP = SMTPConfig{
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		Username: v.GetString("SMTP_USER"),
		Password: v.GetString("SMTP_PASS"),
		Sender:   v.GetString("SMTP_SENDER"),
	}
	if cfg.SMTP.Sender == "" {
		cfg.SMTP.Sender = cfg.SMTP.Username
	}

	cfg.WhatsApp = WhatsAppConfig{
		Enabled:     v.GetBool("WHATSAPP_ENABLED"),
		StoreDSN:    v.GetString("WHATSAPP_STORE_DSN"),
		CountryCode: v.GetString("WHATSAPP_COUNTRY_CODE"),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		BufferSize: v.GetInt("NOTIFY_BUFFER_SIZE"),
		MaxRetries: v.GetInt("NOTIFY_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Ratification = RatificationConfig{
		Concurrency: v.GetInt("RATIFICATION_CONCURRENCY"),
		PortalURL:   v.GetString("RATIFICATION_PORTAL_URL"),
	}

	cfg.Fees = FeesConfig{
		Schedule:      v.GetString("FEE_SCHEDULE"),
		DefaultAmount: v.GetFloat64("FEE_DEFAULT"),
	}

	cfg.Vacancies = VacanciesConfig{
		CacheEnabled: v.GetBool("VACANCIES_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("VACANCIES_CACHE_TTL"), 30*time.Second),
	}

	cfg.School = SchoolConfig{
		Name:    v.GetString("SCHOOL_NAME"),
		Address: v.GetString("SCHOOL_ADDRESS"),
		Phone:   v.GetString("SCHOOL_PHONE"),
		City:    v.GetString("SCHOOL_CITY"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "matricula")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_SENDER", "")

	v.SetDefault("WHATSAPP_ENABLED", false)
	v.SetDefault("WHATSAPP_STORE_DSN", "")
	v.SetDefault("WHATSAPP_COUNTRY_CODE", "51")

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFY_MAX_RETRIES", 1)
	v.SetDefault("NOTIFY_RETRY_DELAY", "5s")

	v.SetDefault("RATIFICATION_CONCURRENCY", 4)
	v.SetDefault("RATIFICATION_PORTAL_URL", "http://localhost:3000/padres")

	v.SetDefault("FEE_SCHEDULE", "Inicial=130,Primaria=180,Secundaria=180")
	v.SetDefault("FEE_DEFAULT", 180)

	v.SetDefault("VACANCIES_CACHE_ENABLED", false)
	v.SetDefault("VACANCIES_CACHE_TTL", "30s")

	v.SetDefault("SCHOOL_NAME", "Colegio Experimental UNS")
	v.SetDefault("SCHOOL_ADDRESS", "Avenida Universitaria S/N - Nuevo Chimbote")
	v.SetDefault("SCHOOL_PHONE", "(043) 000-000")
	v.SetDefault("SCHOOL_CITY", "Chimbote")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
