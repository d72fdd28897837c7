package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

const DefaultConfigFile = "rover.json"

// DefaultAddress is where the rover bridge listens unless configured otherwise.
const DefaultAddress = "localhost:8080"

const (
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 10 * time.Second
)

// Config holds the ground station configuration
type Config struct {
	Address     string          `json:"address"`
	LogCapacity int             `json:"log_capacity"` // 0 keeps every log entry
	StrictArm   bool            `json:"strict_arm"`   // reject arm packets with missing or non-numeric fields
	Reconnect   ReconnectConfig `json:"reconnect"`
	Twin        TwinConfig      `json:"twin"`
}

// ReconnectConfig bounds the retries after a failed session.
type ReconnectConfig struct {
	MaxRetries     int      `json:"max_retries"` // 0 disables reconnection
	InitialBackoff Duration `json:"initial_backoff"`
	MaxBackoff     Duration `json:"max_backoff"`
}

// TwinConfig holds configuration for the optional local arm that mirrors the rover arm
type TwinConfig struct {
	Port        string `json:"port"`
	Calibration string `json:"calibration"`
}

// Enabled returns true if a twin arm port is configured
func (t TwinConfig) Enabled() bool {
	return t.Port != ""
}

// Duration is a time.Duration that reads and writes as a string like "500ms".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return (&Config{}).WithDefaults()
}

// WithDefaults fills in zero values and returns c.
func (c *Config) WithDefaults() *Config {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.Reconnect.InitialBackoff == 0 {
		c.Reconnect.InitialBackoff = Duration(defaultInitialBackoff)
	}
	if c.Reconnect.MaxBackoff == 0 {
		c.Reconnect.MaxBackoff = Duration(defaultMaxBackoff)
	}
	return c
}

// Validate checks the configuration for values the link cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Address == "" {
		errs = append(errs, errors.New("address is required"))
	}
	if c.LogCapacity < 0 {
		errs = append(errs, fmt.Errorf("log_capacity must not be negative, got %d", c.LogCapacity))
	}
	if c.Reconnect.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("reconnect.max_retries must not be negative, got %d", c.Reconnect.MaxRetries))
	}
	if c.Reconnect.InitialBackoff < 0 || c.Reconnect.MaxBackoff < 0 {
		errs = append(errs, errors.New("reconnect backoff must not be negative"))
	}
	if c.Reconnect.MaxBackoff < c.Reconnect.InitialBackoff {
		errs = append(errs, fmt.Errorf("reconnect.max_backoff (%s) is below initial_backoff (%s)",
			time.Duration(c.Reconnect.MaxBackoff), time.Duration(c.Reconnect.InitialBackoff)))
	}
	if c.Twin.Enabled() && c.Twin.Calibration == "" {
		errs = append(errs, errors.New("twin.calibration is required when twin.port is set"))
	}
	return errors.Join(errs...)
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg.WithDefaults(), nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the config file exists
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
