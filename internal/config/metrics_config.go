package config

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"SNFS_METRICS_ENABLED"`
	Path    string `yaml:"path" env:"SNFS_METRICS_PATH" env-default:"/metrics"`
}
