package config

// NamespaceConfig bounds every namespace the server hands out.
// Zero disables the corresponding limit.
type NamespaceConfig struct {
	MaxInodes   int   `yaml:"max_inodes" env:"SNFS_MAX_INODES"`
	MaxFileSize int64 `yaml:"max_file_size" env:"SNFS_MAX_FILE_SIZE"`
}
