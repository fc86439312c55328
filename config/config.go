/*
Copyright 2024 SerialLink Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads wsss's configuration from a TOML file, environment
// variables, and CLI flags, in that override order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Shoaibashk/wsss/internal/serial"
)

// Config is the complete process configuration.
type Config struct {
	HTTPPort    int           `mapstructure:"http_port"`
	BindAddress string        `mapstructure:"bind_address"`
	Serial      SerialConfig  `mapstructure:"serial"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// SerialConfig holds the defaults applied to every port the Registry opens,
// plus Scanner tuning.
type SerialConfig struct {
	Defaults        SerialDefaults `mapstructure:"defaults"`
	ExcludePatterns []string       `mapstructure:"exclude_patterns"`
}

// SerialDefaults mirrors serial.PortConfig in the string/int form a TOML
// file or CLI flag can express.
type SerialDefaults struct {
	BaudRate       int    `mapstructure:"baud_rate"`
	DataBits       int    `mapstructure:"data_bits"`
	StopBits       int    `mapstructure:"stop_bits"`
	Parity         string `mapstructure:"parity"`
	FlowControl    string `mapstructure:"flow_control"`
	ReadTimeoutMs  int    `mapstructure:"read_timeout_ms"`
	WriteTimeoutMs int    `mapstructure:"write_timeout_ms"`
}

// LoggingConfig holds charmbracelet/log setup.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// ToPortConfig converts SerialDefaults into a concrete serial.PortConfig.
func (d SerialDefaults) ToPortConfig() (serial.PortConfig, error) {
	parity, err := serial.ParseParity(d.Parity)
	if err != nil {
		return serial.PortConfig{}, err
	}
	flowControl, err := serial.ParseFlowControl(d.FlowControl)
	if err != nil {
		return serial.PortConfig{}, err
	}
	stopBits, err := serial.ParseStopBits(d.StopBits)
	if err != nil {
		return serial.PortConfig{}, err
	}
	return serial.PortConfig{
		BaudRate:       d.BaudRate,
		DataBits:       d.DataBits,
		StopBits:       stopBits,
		Parity:         parity,
		FlowControl:    flowControl,
		ReadTimeoutMs:  d.ReadTimeoutMs,
		WriteTimeoutMs: d.WriteTimeoutMs,
	}, nil
}

// DefaultConfig returns wsss's baseline configuration: port 10080, bound to
// the loopback address, so a freshly installed server never listens beyond
// the local host until an operator opts in.
func DefaultConfig() *Config {
	return &Config{
		HTTPPort:    10080,
		BindAddress: "127.0.0.1",
		Serial: SerialConfig{
			Defaults: SerialDefaults{
				BaudRate:       9600,
				DataBits:       8,
				StopBits:       1,
				Parity:         "none",
				FlowControl:    "none",
				ReadTimeoutMs:  1000,
				WriteTimeoutMs: 2000,
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// SetDefaults seeds viper with DefaultConfig's values, the lowest-priority
// layer in the override chain.
func SetDefaults() {
	d := DefaultConfig()
	viper.SetDefault("http_port", d.HTTPPort)
	viper.SetDefault("bind_address", d.BindAddress)
	viper.SetDefault("serial.defaults.baud_rate", d.Serial.Defaults.BaudRate)
	viper.SetDefault("serial.defaults.data_bits", d.Serial.Defaults.DataBits)
	viper.SetDefault("serial.defaults.stop_bits", d.Serial.Defaults.StopBits)
	viper.SetDefault("serial.defaults.parity", d.Serial.Defaults.Parity)
	viper.SetDefault("serial.defaults.flow_control", d.Serial.Defaults.FlowControl)
	viper.SetDefault("serial.defaults.read_timeout_ms", d.Serial.Defaults.ReadTimeoutMs)
	viper.SetDefault("serial.defaults.write_timeout_ms", d.Serial.Defaults.WriteTimeoutMs)
	viper.SetDefault("logging.level", d.Logging.Level)
}

// resolveConfigFile walks the config file discovery order: the path named by
// WSS_CONF_FILE, then /etc/wsss/wsss_conf.toml, then a file named
// wsss_conf.toml next to the running executable. Only the first file that
// actually exists is used; viper's own multi-path AddConfigPath search
// doesn't express this priority (it merges/first-match across paths rather
// than treating an env-named override as highest priority), so the order is
// walked by hand.
func resolveConfigFile() string {
	if p := os.Getenv("WSS_CONF_FILE"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	const systemPath = "/etc/wsss/wsss_conf.toml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}

	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "wsss_conf.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

// InitViper wires up viper's layers in override order: defaults, the
// discovered TOML file (if any), then WSSS_HTTP_PORT/WSSS_BIND_ADDRESS
// environment variables. CLI flags are layered on top separately, by the
// caller binding cobra flags with viper.BindPFlag — viper's own flag > env >
// config > default precedence then does the rest.
func InitViper(configFileOverride string) error {
	SetDefaults()

	path := configFileOverride
	if path == "" {
		path = resolveConfigFile()
	}
	if path != "" {
		viper.SetConfigFile(path)
		viper.SetConfigType("toml")
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	viper.SetEnvPrefix("WSSS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return nil
}

// Load unmarshals viper's merged configuration layers into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that a Config is usable.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535")
	}
	if c.BindAddress == "" {
		return fmt.Errorf("bind_address is required")
	}
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if _, err := c.Serial.Defaults.ToPortConfig(); err != nil {
		return fmt.Errorf("invalid serial defaults: %w", err)
	}
	return nil
}
