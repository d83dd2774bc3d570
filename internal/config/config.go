package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the main configuration for s3mirror.
type Config struct {
	RootDir     string            `toml:"root_dir"`
	BaseDir     string            `toml:"base_dir"`
	LogDir      string            `toml:"log_dir"`
	ObjectStore ObjectStoreConfig `toml:"object_store"`
	Index       IndexConfig       `toml:"index"`
	Observer    ObserverConfig    `toml:"observer"`
	Filesystem  FilesystemConfig  `toml:"filesystem"`
	Encryption  EncryptionConfig  `toml:"encryption"`
}

// ObjectStoreConfig represents configuration for the remote object store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ObjectStoreConfig struct {
	Type   string `toml:"type"` // "s3" (default), "filesystem" or "memory"
	Bucket string `toml:"bucket"`
	Region string `toml:"region"`

	// S3-specific fields (only used when Type == "s3")
	Endpoint  string `toml:"endpoint,omitempty"`   // S3-compatible endpoint; implies path-style addressing
	AccessKey string `toml:"access_key,omitempty"` // static credentials; default chain when empty
	SecretKey string `toml:"secret_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// IndexConfig represents configuration for the metadata index.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type IndexConfig struct {
	Type        string `toml:"type"`               // "postgres" (default), "sqlite" or "memory"
	DSN         string `toml:"dsn,omitempty"`      // only used for type=postgres
	DataDir     string `toml:"data_dir,omitempty"` // only used for type=sqlite
	AutoMigrate bool   `toml:"auto_migrate"`
}

// ObserverConfig selects the filesystem notification backend.
type ObserverConfig struct {
	Type string `toml:"type"` // "fsnotify" (default) or "notify"
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// EncryptionConfig holds paths to the age key pair used to encrypt uploads.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default) or "age"
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
}

// NewConfig creates a new Config with the provided values and defaults.
func NewConfig(rootDir, baseDir string) *Config {
	return &Config{
		RootDir: rootDir,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		ObjectStore: ObjectStoreConfig{
			Type: "s3",
		},
		Index: IndexConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Observer: ObserverConfig{Type: "fsnotify"},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "s3mirror.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "s3mirror.key"),
		},
	}
}

// Validate reports missing settings that make startup impossible.
func (c *Config) Validate() error {
	var errs []error
	if c.RootDir == "" {
		errs = append(errs, errors.New("root_dir is required"))
	}
	if c.ObjectStore.Bucket == "" {
		errs = append(errs, errors.New("object_store.bucket is required"))
	}
	if c.ObjectStore.Region == "" {
		errs = append(errs, errors.New("object_store.region is required"))
	}
	return errors.Join(errs...)
}

// ApplyEnv overrides config values with environment variables when set.
// Recognized variables:
//   - S3MIRROR_ROOT, S3MIRROR_BUCKET, S3MIRROR_REGION, S3MIRROR_ENDPOINT
//   - S3MIRROR_INDEX_DSN (also selects the postgres index)
//   - AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
//
// BUCKET_NAME and AWS_REGION fill the bucket and region only when neither
// the config file nor the S3MIRROR_ variables set them.
func (c *Config) ApplyEnv() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"S3MIRROR_ROOT", &c.RootDir},
		{"S3MIRROR_BUCKET", &c.ObjectStore.Bucket},
		{"S3MIRROR_REGION", &c.ObjectStore.Region},
		{"S3MIRROR_ENDPOINT", &c.ObjectStore.Endpoint},
		{"S3MIRROR_INDEX_DSN", &c.Index.DSN},
		{"AWS_ACCESS_KEY_ID", &c.ObjectStore.AccessKey},
		{"AWS_SECRET_ACCESS_KEY", &c.ObjectStore.SecretKey},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
	if os.Getenv("S3MIRROR_INDEX_DSN") != "" {
		c.Index.Type = "postgres"
	}

	fallbacks := []struct {
		env string
		dst *string
	}{
		{"BUCKET_NAME", &c.ObjectStore.Bucket},
		{"AWS_REGION", &c.ObjectStore.Region},
	}
	for _, f := range fallbacks {
		if *f.dst == "" {
			*f.dst = os.Getenv(f.env)
		}
	}
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may carry credentials.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
