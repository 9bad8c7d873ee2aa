// Package config loads the application configuration: a YAML file with the
// kernel, log, trace and supervisor sections, overlaid by FSRTOS_* variables.
package config

import (
	"fmt"
	"os"
	"strings"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/viper"

	"fsrtos/internal/kernel"
)

// Config is the root application configuration.
type Config struct {
	Kernel     kernel.Config    `yaml:"kernel"`
	Log        LogConfig        `yaml:"log"`
	Trace      TraceConfig      `yaml:"trace"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level"`
	// Format: console or json
	Format string `yaml:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `yaml:"outputs"`
	// Rotation controls file rotation when writing to files
	Rotation    RotationConfig `yaml:"rotation"`
	Development bool           `yaml:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `yaml:"enable"`
	Filename   string `yaml:"filename"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// TraceConfig selects where kernel events are recorded. Empty paths disable
// the corresponding sink.
type TraceConfig struct {
	CSV    string `yaml:"csv"`
	Binary string `yaml:"binary"`
	Format string `yaml:"format"` // cbor or proto
	Ring   int    `yaml:"ring"`   // recent events kept in memory
}

// SupervisorConfig controls resets after an abort.
type SupervisorConfig struct {
	MaxRestarts int `yaml:"max_restarts"` // 0 = unlimited
	BlinkMS     int `yaml:"blink_ms"`     // distress blink half-period, 0 = no delay
}

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Kernel: kernel.DefaultConfig(),
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stdout"},
			Development: true,
			Rotation: RotationConfig{
				Filename:   "logs/fsrtos.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Trace: TraceConfig{
			Format: "cbor",
			Ring:   256,
		},
		Supervisor: SupervisorConfig{
			MaxRestarts: 3,
			BlinkMS:     100,
		},
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. An empty path falls back to $FSRTOS_CONFIG; no file
// at all means defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("FSRTOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if path == "" {
		_ = v.BindEnv("config")
		path = v.GetString("config")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := applyEnv(v, &cfg); err != nil {
		return cfg, err
	}
	cfg.Kernel = cfg.Kernel.Sanitize()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// envBindings maps config keys to the fields they override.
var envBindings = []struct {
	key string
	set func(v *viper.Viper, key string, c *Config)
}{
	{"kernel.tick_ms", func(v *viper.Viper, k string, c *Config) { c.Kernel.TickMS = v.GetInt(k) }},
	{"kernel.system_slots", func(v *viper.Viper, k string, c *Config) { c.Kernel.SystemSlots = v.GetInt(k) }},
	{"kernel.periodic_slots", func(v *viper.Viper, k string, c *Config) { c.Kernel.PeriodicSlots = v.GetInt(k) }},
	{"kernel.round_robin_slots", func(v *viper.Viper, k string, c *Config) { c.Kernel.RoundRobinSlots = v.GetInt(k) }},
	{"kernel.max_tasks", func(v *viper.Viper, k string, c *Config) { c.Kernel.MaxTasks = v.GetInt(k) }},
	{"log.level", func(v *viper.Viper, k string, c *Config) { c.Log.Level = v.GetString(k) }},
	{"log.format", func(v *viper.Viper, k string, c *Config) { c.Log.Format = v.GetString(k) }},
	{"log.outputs", func(v *viper.Viper, k string, c *Config) { c.Log.Outputs = v.GetStringSlice(k) }},
	{"trace.csv", func(v *viper.Viper, k string, c *Config) { c.Trace.CSV = v.GetString(k) }},
	{"trace.binary", func(v *viper.Viper, k string, c *Config) { c.Trace.Binary = v.GetString(k) }},
	{"trace.format", func(v *viper.Viper, k string, c *Config) { c.Trace.Format = v.GetString(k) }},
	{"supervisor.max_restarts", func(v *viper.Viper, k string, c *Config) { c.Supervisor.MaxRestarts = v.GetInt(k) }},
	{"supervisor.blink_ms", func(v *viper.Viper, k string, c *Config) { c.Supervisor.BlinkMS = v.GetInt(k) }},
}

func applyEnv(v *viper.Viper, cfg *Config) error {
	for _, b := range envBindings {
		if err := v.BindEnv(b.key); err != nil {
			return fmt.Errorf("bind env %s: %w", b.key, err)
		}
		if v.IsSet(b.key) {
			b.set(v, b.key, cfg)
		}
	}
	return nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}
	switch strings.ToLower(c.Trace.Format) {
	case "", "cbor":
		c.Trace.Format = "cbor"
	case "proto":
	default:
		return fmt.Errorf("invalid trace.format: %q", c.Trace.Format)
	}
	if c.Trace.Ring <= 0 {
		c.Trace.Ring = 256
	}
	if c.Supervisor.MaxRestarts < 0 {
		return fmt.Errorf("invalid supervisor.max_restarts: %d", c.Supervisor.MaxRestarts)
	}
	return nil
}
