// Package admins loads the administrator settings file.
package admins

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

// ErrInvalid marks an unusable administrator file.
var ErrInvalid = errors.New("invalid admin config")

// Config is the administrator settings file:
//
//	{"admins": [123, 456], "cardNumber": "8600 ...", "mainAdminUsername": "@manager"}
type Config struct {
	Admins            []int64 `json:"admins"`
	CardNumber        string  `json:"cardNumber"`
	MainAdminUsername string  `json:"mainAdminUsername"`
}

// Load reads and validates the file at path. A missing or malformed file, an
// empty admin list or an empty card number is an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("admins: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("admins: parse %s: %w: %w", path, ErrInvalid, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("admins: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Admins) == 0 {
		return fmt.Errorf("%w: admins list is empty", ErrInvalid)
	}
	for _, id := range c.Admins {
		if id <= 0 {
			return fmt.Errorf("%w: admin id %d", ErrInvalid, id)
		}
	}
	slices.Sort(c.Admins)
	c.Admins = slices.Compact(c.Admins)

	c.CardNumber = strings.TrimSpace(c.CardNumber)
	if c.CardNumber == "" {
		return fmt.Errorf("%w: cardNumber is empty", ErrInvalid)
	}
	c.MainAdminUsername = strings.TrimSpace(c.MainAdminUsername)
	return nil
}

// IsAdmin reports whether id is listed.
func (c Config) IsAdmin(id int64) bool {
	_, ok := slices.BinarySearch(c.Admins, id)
	return ok
}
