package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/vi-countdown/events"
)

const (
	dirName  = ".vi-countdown"
	fileName = "config.yaml"
)

// Config is the on-disk configuration
type Config struct {
	Timer TimerConfig `yaml:"timer"`
	Audio AudioConfig `yaml:"audio"`
	Log   LogConfig   `yaml:"log"`
}

// TimerConfig seeds the countdown
type TimerConfig struct {
	InitialSeconds int           `yaml:"initial_seconds"`
	StartActive    bool          `yaml:"start_active"`
	TickInterval   time.Duration `yaml:"tick_interval"`
}

// AudioConfig controls the expiry chime and the final-seconds warning
type AudioConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Volume      float64 `yaml:"volume"`
	WarnSeconds int     `yaml:"warn_seconds"`
}

// LogConfig controls the debug log file
type LogConfig struct {
	Debug  bool     `yaml:"debug"`
	Dir    string   `yaml:"dir"`
	Events []string `yaml:"events"` // Timer event names written to the log, e.g. "Expired"
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	return &Config{
		Timer: TimerConfig{
			InitialSeconds: 300,
			StartActive:    true,
			TickInterval:   time.Second,
		},
		Audio: AudioConfig{
			Enabled:     true,
			Volume:      0.5,
			WarnSeconds: 10,
		},
		Log: LogConfig{
			Debug:  false,
			Dir:    "logs",
			Events: []string{"Expired", "Reset"},
		},
	}
}

// Validate clamps what the engine would clamp anyway and rejects the rest
func (c *Config) Validate() error {
	if c.Timer.InitialSeconds < 0 {
		c.Timer.InitialSeconds = 0
	}
	if c.Timer.TickInterval <= 0 {
		return errors.Errorf("timer.tick_interval must be positive, got %v", c.Timer.TickInterval)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return errors.Errorf("audio.volume must be within [0, 1], got %v", c.Audio.Volume)
	}
	if c.Audio.WarnSeconds < 0 {
		return errors.Errorf("audio.warn_seconds must not be negative, got %d", c.Audio.WarnSeconds)
	}
	for _, name := range c.Log.Events {
		if _, ok := events.ParseEventType(name); !ok {
			return errors.Errorf("log.events: unknown event %q", name)
		}
	}
	return nil
}

// Manager owns the configuration file
type Manager struct {
	config     *Config
	configPath string
}

// DefaultPath returns $HOME/.vi-countdown/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(homeDir, dirName, fileName), nil
}

// NewManager loads path, writing the defaults there if the file does not exist
// A file that exists but does not parse or validate is an error, not silently replaced
func NewManager(path string) (*Manager, error) {
	m := &Manager{configPath: path}

	err := m.load()
	switch {
	case err == nil:
		return m, nil
	case errors.Is(err, os.ErrNotExist):
		m.config = DefaultConfig()
		if err := m.Save(); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, err
	}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return errors.Wrapf(err, "read config %s", m.configPath)
	}

	// Missing keys keep their defaults
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config %s", m.configPath)
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrapf(err, "invalid config %s", m.configPath)
	}

	m.config = cfg
	return nil
}

// Save writes the current configuration, creating the directory if needed
func (m *Manager) Save() error {
	data, err := yaml.Marshal(m.config)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return errors.Wrap(err, "create config directory")
	}

	return errors.Wrapf(os.WriteFile(m.configPath, data, 0644), "write config %s", m.configPath)
}

// Config returns the loaded configuration
func (m *Manager) Config() *Config {
	return m.config
}

// Path returns the file backing this manager
func (m *Manager) Path() string {
	return m.configPath
}
