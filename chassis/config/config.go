package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	// EnvPath points to the yaml config file.
	EnvPath = "CFG_PATH"
	// EnvPrefix is used for per-field environment overrides, e.g. TODO_SERVER_PORT.
	EnvPrefix = "TODO"
)

// Storage drivers
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// QueueConfig describes a single SQS queue.
type QueueConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Retries int    `yaml:"readRetries"`
}

// AppConfig ...
//
// Environment overrides are always prefixed, e.g. TODO_STORAGE_PATH or
// TODO_CHAOS_ERROR_CHANCE. Bare names such as PATH or PORT are never read.
type AppConfig struct {
	Server struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		ShutdownTimeout int    `yaml:"shutdownTimeout" split_words:"true"`
	} `yaml:"server"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Storage struct {
		Driver  string `yaml:"driver"`
		Path    string `yaml:"path"`
		DSN     string `yaml:"dsn"`
		Migrate bool   `yaml:"migrate"`
	} `yaml:"storage"`
	AWS struct {
		Region             string `yaml:"region"`
		CredentialsFile    string `yaml:"credentialsFile" split_words:"true"`
		CredentialsProfile string `yaml:"credentialsProfile" split_words:"true"`
	} `yaml:"aws"`
	Events struct {
		Queue   QueueConfig `yaml:"queue"`
		Workers int         `yaml:"workers"`
		Buffer  int         `yaml:"buffer"`
	} `yaml:"events"`
	Chaos struct {
		ErrorChance float64 `yaml:"errorChance" split_words:"true"`
	} `yaml:"chaos"`
	LogLevel string `yaml:"loglevel" split_words:"true"`
}

// Default returns a config with every field set to its default value.
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Server.ShutdownTimeout = 10
	cfg.Metrics.Addr = ":2112"
	cfg.Storage.Driver = DriverFile
	cfg.Storage.Path = "db.json"
	cfg.Events.Workers = 1
	cfg.Events.Buffer = 100
	cfg.LogLevel = "info"
	return cfg
}

// Read loads the config from the file named by CFG_PATH.
func Read() (*AppConfig, error) {
	return ReadFile(os.Getenv(EnvPath))
}

// ReadFile applies, in order, defaults, the yaml file (if filename is set)
// and TODO_* environment variables, then validates the result.
func ReadFile(filename string) (*AppConfig, error) {
	cfg := Default()
	if filename != "" {
		buff, err := ioutil.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		err = yaml.Unmarshal(buff, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", filename, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr is the listen address of the API server.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate ...
func (c *AppConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.Path == "" {
			return errors.New("storage path is required for file driver")
		}
	case DriverMemory:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage dsn is required for postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Chaos.ErrorChance < 0 || c.Chaos.ErrorChance > 1 {
		return fmt.Errorf("chaos error chance must be within [0, 1], got %v", c.Chaos.ErrorChance)
	}
	if c.Events.Workers < 1 {
		return errors.New("events workers must be positive")
	}
	if c.Events.Buffer < 0 {
		return errors.New("events buffer must not be negative")
	}
	return nil
}
