// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/gnss_status/internal/logging"
)

// Config holds all application configuration values.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Web      WebConfig      `yaml:"web"`
	Accuracy AccuracyConfig `yaml:"accuracy"`
	Log      LogConfig      `yaml:"log"`
}

type SerialConfig struct {
	Port     string `yaml:"port" validate:"required"`
	BaudRate int    `yaml:"baud_rate" validate:"gt=0"`
}

type MQTTConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker" validate:"required"`
	ClientID string `yaml:"client_id" validate:"required"`
	Topic    string `yaml:"topic" validate:"required"`
	QoS      byte   `yaml:"qos" validate:"max=2"`
}

type WebConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// AccuracyConfig sizes the recent-fix window. Threshold must stay below
// Capacity, Digits is the number of decimal places kept when bucketing fixes.
type AccuracyConfig struct {
	Capacity  int `yaml:"capacity" validate:"gt=0"`
	Threshold int `yaml:"threshold" validate:"gt=0"`
	Digits    int `yaml:"digits" validate:"min=1,max=9"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `yaml:"pretty"`
}

// Setup configures the global logger from the log section.
func (c LogConfig) Setup(w io.Writer) error {
	return logging.Setup(c.Level, c.Pretty, w)
}

// Default returns the configuration used for every key a file leaves out.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{Port: "/dev/serial0", BaudRate: 9600},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "gnss-status-monitor",
			Topic:    "gnss/status",
		},
		Web:      WebConfig{Addr: ":8080"},
		Accuracy: AccuracyConfig{Capacity: 100, Threshold: 20, Digits: 7},
		Log:      LogConfig{Level: "info"},
	}
}

// Package-level singleton, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads a YAML file over the defaults and validates the result. An empty
// path yields the validated defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	if configPath != "" {
		b, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks field constraints and reports the first violation by its
// YAML key, e.g. "serial.port is required".
func (c *Config) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return err
		}
		return fieldError(verrs[0])
	}
	if c.Accuracy.Threshold >= c.Accuracy.Capacity {
		return fmt.Errorf("accuracy.threshold must be less than accuracy.capacity")
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", key)
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %v", key, fe.Param(), fe.Value())
	case "gt":
		return fmt.Errorf("%s must be > %s, got %v", key, fe.Param(), fe.Value())
	case "min":
		return fmt.Errorf("%s must be >= %s, got %v", key, fe.Param(), fe.Value())
	case "max":
		return fmt.Errorf("%s must be <= %s, got %v", key, fe.Param(), fe.Value())
	}
	return fmt.Errorf("%s failed %s validation", key, fe.Tag())
}

// InitGlobal loads the configuration once; later calls return nil and keep
// the first result.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
