// Package config holds the environment-driven configuration for the booking
// verification service. Structs carry cleanenv tags and are read once at
// startup.
package config

import (
	"fmt"
	"time"
)

type AppConfig struct {
	Host string `env:"BOOKING_HOST" env-default:"0.0.0.0"`
	Port uint16 `env:"BOOKING_PORT" env-default:"4000"`
}

// Addr returns the host:port listen address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DbConfig struct {
	// Persistence selects the repository backend: "postgres" or "inmem".
	// The in-memory backend is for local development and demos only.
	Persistence string `env:"BOOKING_PERSISTENCE" env-default:"postgres"`

	Host     string `env:"BOOKING_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"BOOKING_PG_PORT" env-default:"5432"`
	Database string `env:"BOOKING_PG_DATABASE" env-default:"booking_db"`
	User     string `env:"BOOKING_PG_USER" env-default:"booking"`
	Password string `env:"BOOKING_PG_PASSWORD" env-default:"pwd"`
}

// DSN returns the pgx connection string.
func (c DbConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

type SmtpConfig struct {
	Host     string `env:"SMTP_HOST" env-default:"localhost"`
	Port     int    `env:"SMTP_PORT" env-default:"1025"`
	Username string `env:"SMTP_USERNAME" env-default:""`
	Password string `env:"SMTP_PASSWORD" env-default:""`
	From     string `env:"SMTP_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"SMTP_TLS" env-default:"false"`
}

type SignedLinkConfig struct {
	// Secret signs verification links. The service refuses to start without
	// one outside of in-memory mode.
	Secret           string `env:"SIGNED_LINK_SECRET" env-default:""`
	MaxAgeHours      int    `env:"SIGNED_LINK_MAX_AGE_HOURS" env-default:"72"`
	ClockSkewSeconds int    `env:"SIGNED_LINK_CLOCK_SKEW_SECONDS" env-default:"300"`
}

func (c SignedLinkConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

func (c SignedLinkConfig) ClockSkew() time.Duration {
	return time.Duration(c.ClockSkewSeconds) * time.Second
}

type OtpConfig struct {
	ExpiryMinutes int `env:"OTP_EXPIRY_MINUTES" env-default:"10"`
	MaxAttempts   int `env:"OTP_MAX_ATTEMPTS" env-default:"3"`
}

func (c OtpConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

type BookingTokenConfig struct {
	TTLHours int `env:"BOOKING_TOKEN_TTL_HOURS" env-default:"168"`
}

func (c BookingTokenConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

type AdminConfig struct {
	JwtSecret string `env:"ADMIN_JWT_SECRET" env-default:"very-secure-jwt-secret"`
}

type SweeperConfig struct {
	IntervalMinutes int `env:"SWEEP_INTERVAL_MINUTES" env-default:"5"`
}

func (c SweeperConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

type Config struct {
	AppConfig          AppConfig
	DbConfig           DbConfig
	SmtpConfig         SmtpConfig
	SignedLinkConfig   SignedLinkConfig
	OtpConfig          OtpConfig
	BookingTokenConfig BookingTokenConfig
	AdminConfig        AdminConfig
	SweeperConfig      SweeperConfig

	// BookingBaseURL is the public base used when composing booking links in
	// candidate emails.
	BookingBaseURL string `env:"BOOKING_BASE_URL" env-default:"http://localhost:4000"`
}
