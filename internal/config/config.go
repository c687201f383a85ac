package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

const configPathEnv = "CONFIG_PATH"

type Config struct {
	App       AppConfig       `yaml:"app"`
	Namespace NamespaceConfig `yaml:"namespace"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ResolvePath prefers CONFIG_PATH over the compiled-in default.
func ResolvePath(fallback string) string {
	if p := os.Getenv(configPathEnv); p != "" {
		return p
	}
	return fallback
}

func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	if configPath == "" {
		return nil, fmt.Errorf("%s: config path is empty", op)
	}

	// check if file exists
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, configPath)
	}

	// YAML first, then SNFS_* env variables on top
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: cannot read config: %w", op, err)
	}

	return &cfg, nil
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}
