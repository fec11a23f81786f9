package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Mail      MailConfig
	Links     LinksConfig
	Lifecycle LifecycleConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	TimeZone              string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	RefCodeEnabled bool
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level   string
	Service string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// MailConfig holds outbound SMTP submission settings.
type MailConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	FromEmail      string
	FromName       string
	TimeoutSeconds int
}

// LinksConfig builds public links embedded in e-mails.
type LinksConfig struct {
	BaseURL string
}

// LifecycleConfig carries the status ids with special lifecycle meaning.
type LifecycleConfig struct {
	OpenStatusID           int64
	ClosedStatusID         int64
	TerminalStatusIDs      []int64
	UrgentWindowHours      int
	DefaultSLAHours        int
	DefaultEscalationHours int
	EnforceTransitions     bool
}

// Setting keys read from the settings table at startup.
const (
	SettingSMTPHost   = "EMAIL_SMTP_HOST"
	SettingSMTPPort   = "EMAIL_SMTP_PORT"
	SettingSMTPUser   = "EMAIL_SMTP_USER"
	SettingSMTPPass   = "EMAIL_SMTP_PASS"
	SettingMailFrom   = "EMAIL_FROM"
	SettingSystemName = "SISTEMA_NOME"
	SettingSystemURL  = "SISTEMA_URL"
)

// SettingKeys lists every persisted key consulted by Overlay.
var SettingKeys = []string{
	SettingSMTPHost,
	SettingSMTPPort,
	SettingSMTPUser,
	SettingSMTPPass,
	SettingMailFrom,
	SettingSystemName,
	SettingSystemURL,
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	terminal, err := getEnvAsInt64List("LIFECYCLE_TERMINAL_STATUS_IDS", []int64{6, 7, 8})
	if err != nil {
		return nil, fmt.Errorf("invalid LIFECYCLE_TERMINAL_STATUS_IDS: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "saos-service-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "5001"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			TimeZone:              getEnv("APP_TIMEZONE", "America/Sao_Paulo"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			RefCodeEnabled: getEnvAsBool("REDIS_REFCODE_ENABLED", true),
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Service: getEnv("APP_NAME", "saos-service-desk"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Mail: MailConfig{
			Host:           getEnv(SettingSMTPHost, "smtp.office365.com"),
			Port:           getEnvAsInt(SettingSMTPPort, 587),
			Username:       os.Getenv(SettingSMTPUser),
			Password:       os.Getenv(SettingSMTPPass),
			FromEmail:      os.Getenv(SettingMailFrom),
			FromName:       getEnv(SettingSystemName, "SAOS - Sistema de Abertura de OS"),
			TimeoutSeconds: getEnvAsInt("SMTP_TIMEOUT_SECONDS", 15),
		},
		Links: LinksConfig{
			BaseURL: getEnv(SettingSystemURL, "http://localhost:5001"),
		},
		Lifecycle: LifecycleConfig{
			OpenStatusID:           int64(getEnvAsInt("LIFECYCLE_OPEN_STATUS_ID", 1)),
			ClosedStatusID:         int64(getEnvAsInt("LIFECYCLE_CLOSED_STATUS_ID", 7)),
			TerminalStatusIDs:      terminal,
			UrgentWindowHours:      getEnvAsInt("LIFECYCLE_URGENT_WINDOW_HOURS", 24),
			DefaultSLAHours:        getEnvAsInt("LIFECYCLE_DEFAULT_SLA_HOURS", 72),
			DefaultEscalationHours: getEnvAsInt("LIFECYCLE_DEFAULT_ESCALATION_HOURS", 48),
			EnforceTransitions:     getEnvAsBool("LIFECYCLE_ENFORCE_TRANSITIONS", false),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the display time zone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Overlay returns a copy of the mail settings with persisted values applied.
// Empty persisted values never replace a configured one.
func (m MailConfig) Overlay(settings map[string]string) MailConfig {
	out := m
	if v := strings.TrimSpace(settings[SettingSMTPHost]); v != "" {
		out.Host = v
	}
	if v := strings.TrimSpace(settings[SettingSMTPPort]); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			out.Port = port
		}
	}
	if v := strings.TrimSpace(settings[SettingSMTPUser]); v != "" {
		out.Username = v
	}
	if v := settings[SettingSMTPPass]; v != "" {
		out.Password = v
	}
	if v := strings.TrimSpace(settings[SettingMailFrom]); v != "" {
		out.FromEmail = v
	}
	if v := strings.TrimSpace(settings[SettingSystemName]); v != "" {
		out.FromName = v
	}
	return out
}

// Timeout returns the SMTP dial/send timeout.
func (m MailConfig) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Overlay applies the persisted public URL, if any.
func (l LinksConfig) Overlay(settings map[string]string) LinksConfig {
	out := l
	if v := strings.TrimSpace(settings[SettingSystemURL]); v != "" {
		out.BaseURL = v
	}
	out.BaseURL = strings.TrimRight(out.BaseURL, "/")
	return out
}

// UrgentWindow is the look-ahead used to flag requests as urgent.
func (l LifecycleConfig) UrgentWindow() time.Duration {
	if l.UrgentWindowHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(l.UrgentWindowHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsInt64List(key string, fallback []int64) ([]int64, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	parts := strings.Split(val, ",")
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
