package database

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shoeboxd/shoebox/pkg/configure"
)

// Config holds PostgreSQL connection and pool settings.
type Config struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Name            string `toml:"name"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	SSLMode         string `toml:"ssl_mode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnTimeout     string `toml:"conn_timeout"`
}

// Env names the environment variables that may override each Config field.
type Env struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    string
	MaxIdleConns    string
	ConnMaxLifetime string
	ConnTimeout     string
}

// ConnMaxLifetimeDuration returns the parsed ConnMaxLifetime.
func (c *Config) ConnMaxLifetimeDuration() time.Duration { return duration(c.ConnMaxLifetime) }

// ConnTimeoutDuration returns the parsed ConnTimeout.
func (c *Config) ConnTimeoutDuration() time.Duration { return duration(c.ConnTimeout) }

// Dsn returns the connection string in URL form, which both the pgx
// driver and golang-migrate accept.
func (c *Config) Dsn() string {
	user := url.User(c.User)
	if c.Password != "" {
		user = url.UserPassword(c.User, c.Password)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Finalize resolves environment overrides and defaults, then validates.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		configure.Env(env.Host, &c.Host)
		configure.EnvInt(env.Port, &c.Port)
		configure.Env(env.Name, &c.Name)
		configure.Env(env.User, &c.User)
		configure.Env(env.Password, &c.Password)
		configure.Env(env.SSLMode, &c.SSLMode)
		configure.EnvInt(env.MaxOpenConns, &c.MaxOpenConns)
		configure.EnvInt(env.MaxIdleConns, &c.MaxIdleConns)
		configure.Env(env.ConnMaxLifetime, &c.ConnMaxLifetime)
		configure.Env(env.ConnTimeout, &c.ConnTimeout)
	}

	configure.Default(&c.Host, "localhost")
	configure.Default(&c.Port, 5432)
	configure.Default(&c.SSLMode, "disable")
	configure.Default(&c.MaxOpenConns, 25)
	configure.Default(&c.MaxIdleConns, 5)
	configure.Default(&c.ConnMaxLifetime, "15m")
	configure.Default(&c.ConnTimeout, "5s")

	return c.validate()
}

// Merge overwrites fields that overlay sets.
func (c *Config) Merge(overlay *Config) {
	configure.Merge(&c.Host, overlay.Host)
	configure.Merge(&c.Port, overlay.Port)
	configure.Merge(&c.Name, overlay.Name)
	configure.Merge(&c.User, overlay.User)
	configure.Merge(&c.Password, overlay.Password)
	configure.Merge(&c.SSLMode, overlay.SSLMode)
	configure.Merge(&c.MaxOpenConns, overlay.MaxOpenConns)
	configure.Merge(&c.MaxIdleConns, overlay.MaxIdleConns)
	configure.Merge(&c.ConnMaxLifetime, overlay.ConnMaxLifetime)
	configure.Merge(&c.ConnTimeout, overlay.ConnTimeout)
}

func (c *Config) validate() error {
	if c.Name == "" {
		return fmt.Errorf("name required")
	}
	if c.User == "" {
		return fmt.Errorf("user required")
	}

	durations := []struct{ field, value string }{
		{"conn_max_lifetime", c.ConnMaxLifetime},
		{"conn_timeout", c.ConnTimeout},
	}
	for _, d := range durations {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s: %w", d.field, err)
		}
	}
	return nil
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
