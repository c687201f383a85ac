package config

import (
	"time"
)

const (
	EnvLocal = "local"
	EnvProd  = "prod"
)

type AppConfig struct {
	Env             string        `yaml:"env" env:"SNFS_ENV" env-default:"local"`
	Port            int           `yaml:"port" env:"SNFS_PORT" env-default:"8080"`
	DefaultTimeout  time.Duration `yaml:"default_timeout" env:"SNFS_DEFAULT_TIMEOUT" env-default:"5s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SNFS_SHUTDOWN_TIMEOUT" env-default:"10s"`
}
