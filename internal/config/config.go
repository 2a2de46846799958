// # internal/config/config.go
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Exclude Exclude `toml:"exclude"`
	Select  Select  `toml:"select"`
	Watch   Watch   `toml:"watch"`
	History History `toml:"history"`
	Output  Output  `toml:"output"`
	Metrics Metrics `toml:"metrics"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Select struct {
	Max           int `toml:"max"`            // 0 = unlimited
	DistanceLimit int `toml:"distance_limit"` // -1 = unbounded
}

type Watch struct {
	Debounce         time.Duration `toml:"debounce"`
	RescansPerMinute float64       `toml:"rescans_per_minute"`
}

type History struct {
	Path string `toml:"path"` // empty disables run history
}

type Output struct {
	TSV  string `toml:"tsv"`
	DOT  string `toml:"dot"`
	JSON string `toml:"json"`
}

type Metrics struct {
	Addr string `toml:"addr"` // empty disables the watch-mode listener
}

func Default() *Config {
	return &Config{
		Select: Select{DistanceLimit: -1},
		Watch: Watch{
			Debounce:         500 * time.Millisecond,
			RescansPerMinute: 30,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Config{Select: Select{DistanceLimit: -1}}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	// Default debounce if not set
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.RescansPerMinute == 0 {
		cfg.Watch.RescansPerMinute = 30
	}

	return &cfg, nil
}
