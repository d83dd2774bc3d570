package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - S3MIRROR_CONFIG_PATH: config file location (default: ~/.config/s3mirror.toml)
//   - S3MIRROR_HOME: base directory for s3mirror data (default: ~/.local/share/s3mirror)
//   - S3MIRROR_ENV_FILE: dotenv file with credentials (default: .env)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	envFile := os.Getenv("S3MIRROR_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"env_file":    envFile,
	}, nil
}

// getConfigPath returns the config file path, checking S3MIRROR_CONFIG_PATH first,
// then falling back to the default ~/.config/s3mirror.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("S3MIRROR_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "s3mirror.toml"), nil
}

// getBaseDir returns the base directory for s3mirror data, checking S3MIRROR_HOME
// first, then falling back to the XDG default ~/.local/share/s3mirror.
func getBaseDir() (string, error) {
	if path := os.Getenv("S3MIRROR_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "s3mirror"), nil
}
