// Package config assembles runtime configuration from built-in defaults, an
// optional TOML file and environment variables, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the resolved configuration of the dashboard binaries.
type Config struct {
	Port       string
	CORSOrigin string
	LogLevel   slog.Level
	GRPCPort   string // empty disables the gRPC health server

	BaseURL          string
	Timeout          time.Duration
	UserAgent        string
	RatePerSecond    float64 // 0 disables client-side rate limiting
	Burst            int
	IncludeTopMakers bool

	NATSURL     string // empty disables NATS
	NATSSubject string

	OTelService string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:        "8080",
		CORSOrigin:  "*",
		LogLevel:    slog.LevelInfo,
		BaseURL:     "https://analytics.parivahan.gov.in/analytics/publicdashboard",
		Timeout:     30 * time.Second,
		UserAgent:   "Mozilla/5.0",
		Burst:       1,
		NATSSubject: "vahan.dashboard.build",
		OTelService: "vahan-insights",
	}
}

// file mirrors the TOML layout. Pointers distinguish absent keys from zero
// values.
type file struct {
	Server struct {
		Port       *string `toml:"port"`
		CORSOrigin *string `toml:"cors_origin"`
		LogLevel   *string `toml:"log_level"`
		GRPCPort   *string `toml:"grpc_port"`
	} `toml:"server"`
	Upstream struct {
		BaseURL          *string  `toml:"base_url"`
		Timeout          *string  `toml:"timeout"`
		UserAgent        *string  `toml:"user_agent"`
		RatePerSecond    *float64 `toml:"rate_per_second"`
		Burst            *int     `toml:"burst"`
		IncludeTopMakers *bool    `toml:"include_top_makers"`
	} `toml:"upstream"`
	NATS struct {
		URL     *string `toml:"url"`
		Subject *string `toml:"subject"`
	} `toml:"nats"`
	OTel struct {
		Service *string `toml:"service"`
	} `toml:"otel"`
}

// Load resolves the configuration. path may be empty; a missing file is an
// error only when path was given. getenv is usually os.Getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := cfg.applyTOML(data); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return cfg, fmt.Errorf("config env: %w", err)
	}
	return cfg, nil
}

// FromEnv loads the file named by CONFIG_FILE, then the process environment.
func FromEnv() (Config, error) {
	return Load(os.Getenv("CONFIG_FILE"), os.Getenv)
}

func (c *Config) applyTOML(data []byte) error {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return err
	}
	setStr(&c.Port, f.Server.Port)
	setStr(&c.CORSOrigin, f.Server.CORSOrigin)
	setStr(&c.GRPCPort, f.Server.GRPCPort)
	if f.Server.LogLevel != nil {
		if err := c.LogLevel.UnmarshalText([]byte(*f.Server.LogLevel)); err != nil {
			return fmt.Errorf("server.log_level: %w", err)
		}
	}
	setStr(&c.BaseURL, f.Upstream.BaseURL)
	setStr(&c.UserAgent, f.Upstream.UserAgent)
	if f.Upstream.Timeout != nil {
		d, err := time.ParseDuration(*f.Upstream.Timeout)
		if err != nil {
			return fmt.Errorf("upstream.timeout: %w", err)
		}
		c.Timeout = d
	}
	if f.Upstream.RatePerSecond != nil {
		c.RatePerSecond = *f.Upstream.RatePerSecond
	}
	if f.Upstream.Burst != nil {
		c.Burst = *f.Upstream.Burst
	}
	if f.Upstream.IncludeTopMakers != nil {
		c.IncludeTopMakers = *f.Upstream.IncludeTopMakers
	}
	setStr(&c.NATSURL, f.NATS.URL)
	setStr(&c.NATSSubject, f.NATS.Subject)
	setStr(&c.OTelService, f.OTel.Service)
	return c.validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	c.Port = envOr(getenv, "PORT", c.Port)
	c.CORSOrigin = envOr(getenv, "CORS_ORIGIN", c.CORSOrigin)
	c.GRPCPort = envOr(getenv, "GRPC_PORT", c.GRPCPort)
	c.BaseURL = envOr(getenv, "VAHAN_BASE_URL", c.BaseURL)
	c.UserAgent = envOr(getenv, "VAHAN_USER_AGENT", c.UserAgent)
	c.NATSURL = envOr(getenv, "NATS_URL", c.NATSURL)
	c.NATSSubject = envOr(getenv, "NATS_SUBJECT", c.NATSSubject)
	c.OTelService = envOr(getenv, "OTEL_SERVICE_NAME", c.OTelService)

	var errs []error
	if v := getenv("LOG_LEVEL"); v != "" {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}
	if v := getenv("VAHAN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("VAHAN_TIMEOUT: %w", err))
		} else {
			c.Timeout = d
		}
	}
	if v := getenv("VAHAN_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("VAHAN_RATE: %w", err))
		} else {
			c.RatePerSecond = f
		}
	}
	if v := getenv("VAHAN_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("VAHAN_BURST: %w", err))
		} else {
			c.Burst = n
		}
	}
	if v := getenv("VAHAN_TOP_MAKERS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("VAHAN_TOP_MAKERS: %w", err))
		} else {
			c.IncludeTopMakers = b
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return c.validate()
}

func (c *Config) validate() error {
	switch {
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	case c.RatePerSecond < 0:
		return fmt.Errorf("rate must not be negative, got %g", c.RatePerSecond)
	case c.Burst < 1:
		return fmt.Errorf("burst must be at least 1, got %d", c.Burst)
	case !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://"):
		return fmt.Errorf("base url must be http(s), got %q", c.BaseURL)
	}
	return nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
