package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	BaseURL     string
	DatabaseURL string
	RedisURL    string
	LogFile     string

	// TokenSecret signs session and registration claims.
	TokenSecret string

	// SessionTTL applies to direct password logins; TwoFactorSessionTTL to
	// logins completed through a 2FA code. The two values are intentionally
	// distinct — do not collapse them without a product decision.
	SessionTTL          time.Duration
	TwoFactorSessionTTL time.Duration

	InvitationTTL time.Duration
	CodeTTL       time.Duration
	NotifyTimeout time.Duration

	TOTPIssuer     string
	TrustedProxies []string

	Email EmailConfig
	SMS   SMSConfig
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

type SMSConfig struct {
	APIURL string
	APIKey string
	From   string
}

func (s SMSConfig) Enabled() bool {
	return s.APIURL != ""
}

func Load() (Config, error) {
	clean := func(val string) string {
		return strings.Trim(val, "\"' \t\r\n")
	}

	rawPort := strings.Trim(getenvDefault("EMAIL_SERVER_PORT", "587"), "\"' ")
	emailPort, err := strconv.Atoi(rawPort)
	if err != nil {
		emailPort = 587
	}

	cfg := Config{
		Port:                getenvDefault("PORT", "8080"),
		BaseURL:             getenvDefault("APP_BASE_URL", "http://localhost:3000"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            getenvDefault("REDIS_URL", "redis://localhost:6379"),
		LogFile:             getenvDefault("LOG_FILE", "logs/server.log"),
		TokenSecret:         os.Getenv("TOKEN_SECRET"),
		SessionTTL:          parseDuration(os.Getenv("SESSION_TTL"), 24*time.Hour),
		TwoFactorSessionTTL: parseDuration(os.Getenv("TWO_FACTOR_SESSION_TTL"), 1*time.Hour),
		InvitationTTL:       parseDuration(os.Getenv("INVITATION_TTL"), 7*24*time.Hour),
		CodeTTL:             parseDuration(os.Getenv("CODE_TTL"), 10*time.Minute),
		NotifyTimeout:       parseDuration(os.Getenv("NOTIFY_TIMEOUT"), 10*time.Second),
		TOTPIssuer:          getenvDefault("TOTP_ISSUER", "CareOps"),
		TrustedProxies:      parseList(os.Getenv("TRUSTED_PROXIES")),
	}

	cfg.Email = EmailConfig{
		Host:     clean(os.Getenv("EMAIL_SERVER_HOST")),
		Port:     emailPort,
		Username: clean(os.Getenv("EMAIL_SERVER_USER")),
		Password: clean(os.Getenv("EMAIL_SERVER_PASSWORD")),
		From:     clean(os.Getenv("EMAIL_FROM")),
	}

	cfg.SMS = SMSConfig{
		APIURL: clean(os.Getenv("SMS_API_URL")),
		APIKey: clean(os.Getenv("SMS_API_KEY")),
		From:   clean(os.Getenv("SMS_FROM")),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.TokenSecret == "" {
		return Config{}, fmt.Errorf("TOKEN_SECRET is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseList(val string) []string {
	parts := strings.Split(val, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
