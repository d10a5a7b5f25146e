// Package config holds the settings of the rent bot on top of the shared core
// configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/rentbot/core/config"
	coredatabase "github.com/m3rciful/rentbot/core/database"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// StorageConfig selects where tenant records live.
type StorageConfig struct {
	Driver    string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	UsersFile string `yaml:"users_file" envconfig:"USERS_FILE"`
}

// PaymentConfig shapes the payment and apartment pickers.
type PaymentConfig struct {
	Amounts             []int64 `yaml:"amounts" envconfig:"PAYMENT_AMOUNTS"`
	ApartmentCount      int     `yaml:"apartment_count" envconfig:"APARTMENT_COUNT"`
	ApartmentsPerRow    int     `yaml:"apartments_per_row"`
	ExclusiveApartments bool    `yaml:"exclusive_apartments" envconfig:"EXCLUSIVE_APARTMENTS"`
}

// SessionConfig bounds in-memory conversation state.
type SessionConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
}

// BroadcastConfig paces messages sent to administrators and payers.
type BroadcastConfig struct {
	// RatePerSecond caps outbound messages to other users; 0 disables pacing.
	RatePerSecond int `yaml:"rate_per_second" envconfig:"BROADCAST_RATE"`
	QueueSize     int `yaml:"queue_size"`
	Workers       int `yaml:"workers"`
	MaxRetries    int `yaml:"max_retries"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	AdminConfig string              `yaml:"admin_config" envconfig:"ADMIN_CONFIG"`
	DefaultLang string              `yaml:"default_lang" envconfig:"DEFAULT_LANG"`
	Storage     StorageConfig       `yaml:"storage"`
	Database    coredatabase.Config `yaml:"database"`
	Payment     PaymentConfig       `yaml:"payment"`
	Sessions    SessionConfig       `yaml:"sessions"`
	Broadcast   BroadcastConfig     `yaml:"broadcast"`
}

// Defaults applied by Load.
const (
	DefaultAdminConfig = "admin-config.json"
	DefaultUsersFile   = "users.json"
	DefaultLang        = "ru"
	DefaultBroadcast   = 20
)

// Load reads the YAML file at path, overlays the environment and validates.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CoreConfig exposes the shared section.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// UsesDatabase reports whether records are kept in Postgres.
func (c *Config) UsesDatabase() bool {
	return c.Storage.Driver == DriverPostgres
}

func (c *Config) normalize() error {
	if c.AdminConfig == "" {
		c.AdminConfig = DefaultAdminConfig
	}
	if c.DefaultLang == "" {
		c.DefaultLang = DefaultLang
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = DriverFile
		fallthrough
	case DriverFile:
		if c.Storage.UsersFile == "" {
			c.Storage.UsersFile = DefaultUsersFile
		}
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres driver")
		}
		if c.Database.Port == "" {
			c.Database.Port = "5432"
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: file, postgres", c.Storage.Driver)
	}

	for _, a := range c.Payment.Amounts {
		if a <= 0 {
			return fmt.Errorf("payment.amounts must be positive, got %d", a)
		}
	}
	if c.Payment.ApartmentCount < 0 || c.Payment.ApartmentsPerRow < 0 {
		return fmt.Errorf("payment.apartment_count and payment.apartments_per_row must be >= 0")
	}
	if c.Sessions.TTL < 0 || c.Sessions.Capacity < 0 {
		return fmt.Errorf("sessions.ttl and sessions.capacity must be >= 0")
	}
	if c.Broadcast.RatePerSecond < 0 {
		return fmt.Errorf("broadcast.rate_per_second must be >= 0")
	}
	if c.Broadcast.RatePerSecond == 0 {
		c.Broadcast.RatePerSecond = DefaultBroadcast
	}
	return nil
}
