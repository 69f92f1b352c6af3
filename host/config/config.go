// Package config loads the JSON configuration of the tile host
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tilelink/host/library"
	"tilelink/host/serial"
	"tilelink/protocol"
)

// Config is the host configuration file
type Config struct {
	Device        string `json:"device"`
	Baud          int    `json:"baud"`
	Parity        string `json:"parity"`
	ReadTimeoutMS int    `json:"read_timeout_ms"`

	Tile  TileConfig  `json:"tile"`
	Panel PanelConfig `json:"panel"`

	// Images are files or directories, served in order
	Images []string    `json:"images"`
	Fit    library.Fit `json:"fit"`
}

// TileConfig must match the firmware build
type TileConfig struct {
	Width   int  `json:"width"`
	Height  int  `json:"height"`
	Chunk   int  `json:"chunk"`
	Checked bool `json:"checked"`
}

// PanelConfig is the size images are fitted to before slicing
type PanelConfig struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// LoadConfig parses a JSON configuration and fills in defaults
func LoadConfig(jsonData []byte) (*Config, error) {
	var config Config

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)

	return &config, config.Validate()
}

// Load reads a configuration file. Relative image paths are resolved against
// the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, img := range config.Images {
		if !filepath.IsAbs(img) {
			config.Images[i] = filepath.Join(dir, img)
		}
	}
	return config, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *Config) {
	if config.Baud == 0 {
		config.Baud = serial.DefaultBaud
	}
	if config.Parity == "" {
		config.Parity = serial.ParityNone
	}
	if config.ReadTimeoutMS == 0 {
		config.ReadTimeoutMS = 100
	}

	if config.Tile.Width == 0 {
		config.Tile.Width = protocol.DefaultFormat.Width
	}
	if config.Tile.Height == 0 {
		config.Tile.Height = protocol.DefaultFormat.Height
	}
	if config.Tile.Chunk == 0 {
		config.Tile.Chunk = protocol.DefaultFormat.Chunk
	}

	// One tile per screen unless told otherwise
	if config.Panel.Width == 0 {
		config.Panel.Width = config.Tile.Width
	}
	if config.Panel.Height == 0 {
		config.Panel.Height = config.Tile.Height
	}

	if config.Fit == "" {
		config.Fit = library.FitScale
	}
}

// Validate checks the values applyDefaults cannot fix
func (c *Config) Validate() error {
	if err := c.Format().Validate(); err != nil {
		return err
	}
	if c.Panel.Width <= 0 || c.Panel.Height <= 0 {
		return fmt.Errorf("invalid panel size %dx%d", c.Panel.Width, c.Panel.Height)
	}
	if _, err := library.ParseFit(string(c.Fit)); err != nil {
		return err
	}
	return nil
}

// Format returns the tile format both ends must agree on
func (c *Config) Format() protocol.Format {
	return protocol.Format{
		Width:   c.Tile.Width,
		Height:  c.Tile.Height,
		Chunk:   c.Tile.Chunk,
		Checked: c.Tile.Checked,
	}
}

// Serial returns the port settings
func (c *Config) Serial() *serial.Config {
	return &serial.Config{
		Device:      c.Device,
		Baud:        c.Baud,
		Parity:      c.Parity,
		ReadTimeout: c.ReadTimeoutMS,
	}
}

// DefaultConfig returns the configuration matching the 128x128 panel firmware
func DefaultConfig(device string) *Config {
	config := &Config{Device: device}
	applyDefaults(config)
	return config
}
