package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("S3MIRROR_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("S3MIRROR_HOME", "/custom/s3mirror")
		t.Setenv("S3MIRROR_ENV_FILE", "/custom/creds.env")

		defaults, err := GetDefaults()
		require.NoError(t, err)

		assert.Equal(t, "/custom/config.toml", defaults["config_path"])
		assert.Equal(t, "/custom/s3mirror", defaults["base_dir"])
		assert.Equal(t, "/custom/s3mirror/log", defaults["log_dir"])
		assert.Equal(t, "/custom/creds.env", defaults["env_file"])
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("S3MIRROR_CONFIG_PATH", "")
		t.Setenv("S3MIRROR_HOME", "")
		t.Setenv("S3MIRROR_ENV_FILE", "")

		defaults, err := GetDefaults()
		require.NoError(t, err)

		homeDir, _ := os.UserHomeDir()
		wantBase := filepath.Join(homeDir, ".local", "share", "s3mirror")

		assert.Equal(t, filepath.Join(homeDir, ".config", "s3mirror.toml"), defaults["config_path"])
		assert.Equal(t, wantBase, defaults["base_dir"])
		assert.Equal(t, filepath.Join(wantBase, "log"), defaults["log_dir"])
		assert.Equal(t, ".env", defaults["env_file"])
	})
}
