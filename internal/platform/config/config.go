package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Drivers de storage soportados.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port    string
	AppName string

	DBDriver    string
	DBDSN       string
	AutoMigrate bool

	LogLevel  string
	LogFormat string

	SessionTTL    time.Duration
	SweepInterval time.Duration

	// OptimisticRollback: si una mutación falla, la vista vuelve al estado previo.
	OptimisticRollback bool

	OTelStdout bool
}

func Defaults() Config {
	return Config{
		Port:          "8080",
		AppName:       "petsoft",
		DBDriver:      DriverMemory,
		AutoMigrate:   true,
		LogLevel:      "info",
		LogFormat:     "text",
		SessionTTL:    30 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// fileConfig es el formato del archivo TOML (todas las claves opcionales).
type fileConfig struct {
	Port    string `toml:"port"`
	AppName string `toml:"app_name"`

	Database struct {
		Driver      string `toml:"driver"`
		DSN         string `toml:"dsn"`
		AutoMigrate *bool  `toml:"auto_migrate"`
	} `toml:"database"`

	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`

	Session struct {
		TTL           string `toml:"ttl"`
		SweepInterval string `toml:"sweep_interval"`
	} `toml:"session"`

	Optimistic struct {
		Rollback *bool `toml:"rollback"`
	} `toml:"optimistic"`

	OTel struct {
		Stdout *bool `toml:"stdout"`
	} `toml:"otel"`
}

// Load arma la config: defaults -> archivo TOML (si path no es vacío y existe) -> env.
// getenv nil => os.Getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Defaults()

	if path = strings.TrimSpace(path); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromEnv usa PETSOFT_CONFIG como path del archivo.
func LoadFromEnv() (Config, error) {
	return Load(os.Getenv("PETSOFT_CONFIG"), os.Getenv)
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&cfg.Port, fc.Port)
	setString(&cfg.AppName, fc.AppName)
	setString(&cfg.DBDriver, fc.Database.Driver)
	setString(&cfg.DBDSN, fc.Database.DSN)
	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogFormat, fc.Log.Format)

	if fc.Database.AutoMigrate != nil {
		cfg.AutoMigrate = *fc.Database.AutoMigrate
	}
	if fc.Optimistic.Rollback != nil {
		cfg.OptimisticRollback = *fc.Optimistic.Rollback
	}
	if fc.OTel.Stdout != nil {
		cfg.OTelStdout = *fc.OTel.Stdout
	}

	if err := setDuration(&cfg.SessionTTL, fc.Session.TTL, "session.ttl"); err != nil {
		return err
	}
	return setDuration(&cfg.SweepInterval, fc.Session.SweepInterval, "session.sweep_interval")
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	setString(&cfg.Port, getenv("PORT"))
	setString(&cfg.AppName, getenv("APP_NAME"))
	setString(&cfg.DBDriver, getenv("DB_DRIVER"))
	setString(&cfg.DBDSN, getenv("DB_DSN"))
	setString(&cfg.LogLevel, getenv("LOG_LEVEL"))
	setString(&cfg.LogFormat, getenv("LOG_FORMAT"))

	// Compat: DB_DSN sin driver explícito => postgres.
	if strings.TrimSpace(getenv("DB_DRIVER")) == "" && strings.TrimSpace(getenv("DB_DSN")) != "" && cfg.DBDriver == DriverMemory {
		cfg.DBDriver = DriverPostgres
	}

	if err := setBool(&cfg.AutoMigrate, getenv("DB_AUTO_MIGRATE"), "DB_AUTO_MIGRATE"); err != nil {
		return err
	}
	if err := setBool(&cfg.OptimisticRollback, getenv("OPTIMISTIC_ROLLBACK"), "OPTIMISTIC_ROLLBACK"); err != nil {
		return err
	}
	if err := setBool(&cfg.OTelStdout, getenv("OTEL_STDOUT"), "OTEL_STDOUT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.SessionTTL, getenv("SESSION_TTL"), "SESSION_TTL"); err != nil {
		return err
	}
	return setDuration(&cfg.SweepInterval, getenv("SESSION_SWEEP_INTERVAL"), "SESSION_SWEEP_INTERVAL")
}

func (c Config) validate() error {
	switch c.DBDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if strings.TrimSpace(c.DBDSN) == "" {
			return errors.New("config: postgres driver requires a dsn")
		}
	default:
		return fmt.Errorf("config: unknown db driver %q", c.DBDriver)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("config: invalid port %q", c.Port)
	}
	if c.SessionTTL <= 0 || c.SweepInterval <= 0 {
		return errors.New("config: session durations must be positive")
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v, name string) error {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", name, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, v, name string) error {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", name, err)
	}
	*dst = d
	return nil
}
