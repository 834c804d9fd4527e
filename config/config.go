// Package config loads and validates the appliance configuration from a YAML
// file. Defaults mirror the pin and network assignments the hardware ships
// with, so an empty file is a valid configuration.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Hardware HardwareConfig `yaml:"hardware"`
	Display  DisplayConfig  `yaml:"display"`
	Remote   RemoteConfig   `yaml:"remote"`
	Web      WebConfig      `yaml:"web"`
	Files    FilesConfig    `yaml:"files"`
	Update   UpdateConfig   `yaml:"update"`
	TimeSync TimeSyncConfig `yaml:"time_sync"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type HardwareConfig struct {
	LedPin     int `yaml:"led_pin" validate:"gte=0,lte=255"`
	AcceptPin  int `yaml:"accept_pin" validate:"gte=0,lte=255"`
	RejectPin  int `yaml:"reject_pin" validate:"gte=0,lte=255"`
	DebounceMS int `yaml:"debounce_ms" validate:"gt=0"`
}

type DisplayConfig struct {
	I2CBus    string `yaml:"i2c_bus" validate:"oneof=i2c0 i2c1"`
	I2CAddr   uint16 `yaml:"i2c_addr"`
	Width     int    `yaml:"width" validate:"gt=0"`
	Height    int    `yaml:"height" validate:"gt=0"`
	Rotate180 bool   `yaml:"rotate_180"`
}

type RemoteConfig struct {
	Target      string `yaml:"target" validate:"hostname_port"`
	PathText    string `yaml:"path_text"`
	PathOpacity string `yaml:"path_opacity"`
	PathConnect string `yaml:"path_connect"`
	PathGroup   string `yaml:"path_group"`
}

type WebConfig struct {
	Listen  string `yaml:"listen" validate:"hostname_port"`
	HTMLDir string `yaml:"html_dir" validate:"required"`
}

type FilesConfig struct {
	Messages string `yaml:"messages" validate:"required"`
	Log      string `yaml:"log" validate:"required"`
}

type UpdateConfig struct {
	ManifestURL string `yaml:"manifest_url" validate:"omitempty,url"`
	StagingDir  string `yaml:"staging_dir" validate:"required"`
}

type TimeSyncConfig struct {
	Server string `yaml:"server" validate:"hostname_port"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn error"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Hardware: HardwareConfig{
			LedPin:     2,
			AcceptPin:  15,
			RejectPin:  14,
			DebounceMS: 200,
		},
		Display: DisplayConfig{
			I2CBus:  "i2c0",
			I2CAddr: 0x3C,
			Width:   128,
			Height:  64,
		},
		Remote: RemoteConfig{
			Target:      "192.168.104.10:7000",
			PathText:    "/composition/layers/6/clips/1/video/effects/textblock/effect/text/params/lines",
			PathOpacity: "/composition/layers/6/video/opacity",
			PathConnect: "/composition/layers/6/clips/1/connect",
			PathGroup:   "/composition/groups/4/video/opacity/behaviour/playdirection",
		},
		Web: WebConfig{
			Listen:  "0.0.0.0:80",
			HTMLDir: "html",
		},
		Files: FilesConfig{
			Messages: "messages.txt",
			Log:      "avnotify.log",
		},
		Update: UpdateConfig{
			StagingDir: "update",
		},
		TimeSync: TimeSyncConfig{
			Server: "pool.ntp.org:123",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error; a
// malformed or invalid one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
