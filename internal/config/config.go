// Package config loads the runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config maps 1:1 to environment variables.
type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"`

	// DatabaseURL wins over the DB_* parts when set.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`

	// Empty disables the text index cache.
	RedisURL            string `mapstructure:"REDIS_URL"`
	TextIndexTTLMinutes int    `mapstructure:"TEXT_INDEX_TTL_MINUTES"`

	JWTSecret          string `mapstructure:"JWT_ADMIN_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	AdminUser          string `mapstructure:"ADMIN_USER"`
	AdminPasswordHash  string `mapstructure:"ADMIN_PASSWORD_HASH"`
	AdminAllowedEmails string `mapstructure:"ADMIN_ALLOWED_EMAILS"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	BaseURL            string `mapstructure:"BASE_URL"`

	SpecSheetBaseURL string `mapstructure:"SPECSHEET_BASE_URL"`
}

// devSecret signs admin tokens in development only.
const devSecret = "dev-admin-secret"

var errDevSecret = errors.New("config: JWT_ADMIN_SECRET must be set outside development")

var defaults = map[string]any{
	"PORT":                   "8080",
	"APP_ENV":                "development",
	"DATABASE_URL":           "",
	"DB_HOST":                "localhost",
	"DB_PORT":                "5432",
	"DB_USER":                "postgres",
	"DB_PASSWORD":            "postgres",
	"DB_NAME":                "myshop",
	"DB_SSLMODE":             "disable",
	"REDIS_URL":              "",
	"TEXT_INDEX_TTL_MINUTES": 60,
	"JWT_ADMIN_SECRET":       devSecret,
	"JWT_EXPIRATION_HOURS":   6,
	"ADMIN_USER":             "admin",
	"ADMIN_PASSWORD_HASH":    "",
	"ADMIN_ALLOWED_EMAILS":   "",
	"GOOGLE_CLIENT_ID":       "",
	"GOOGLE_CLIENT_SECRET":   "",
	"BASE_URL":               "http://localhost:8080",
	"SPECSHEET_BASE_URL":     "",
}

// Load reads the environment. A .env file in dir is read when present and
// never overrides real environment variables. Outside development the admin
// token secret has to be set to something other than the dev default.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if !cfg.IsDev() {
		if s := strings.TrimSpace(cfg.JWTSecret); s == "" || s == devSecret {
			return nil, errDevSecret
		}
	}
	return cfg, nil
}

// DSN returns DATABASE_URL, or a key/value DSN assembled from DB_*.
func (c *Config) DSN() string {
	if strings.TrimSpace(c.DatabaseURL) != "" {
		return c.DatabaseURL
	}
	return "host=" + c.DBHost + " user=" + c.DBUser + " password=" + c.DBPassword +
		" dbname=" + c.DBName + " port=" + c.DBPort + " sslmode=" + c.DBSSLMode
}

func (c *Config) IsDev() bool {
	e := strings.ToLower(c.Env)
	return e == "" || e == "development" || e == "dev"
}

// AllowedEmails splits ADMIN_ALLOWED_EMAILS on commas.
func (c *Config) AllowedEmails() []string {
	var out []string
	for _, e := range strings.Split(c.AdminAllowedEmails, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
