package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"s3mirror/internal/app"
	"s3mirror/internal/config"
	"s3mirror/internal/encryption"
	"s3mirror/internal/index/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the dotenv file, the config file and environment
// overrides, in that order. Without a config file the environment alone
// must supply root, bucket and region.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	if err := config.LoadEnvFile(defaults["env_file"]); err != nil {
		return nil, err
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = config.NewConfig("", defaults["base_dir"])
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = defaults["base_dir"]
	}
	if cfg.LogDir == "" {
		cfg.LogDir = defaults["log_dir"]
	}

	cfg.ApplyEnv()
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:           "s3mirror",
	Short:         "Mirror a local directory into an S3 bucket",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the root directory and mirror every change",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := app.NewMirrorApp(cmd.Context(), cfg, app.Options{
			Log: app.LogOptions{Console: os.Stderr, Verbose: verbose},
		})
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		return a.Run(cmd.Context())
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString("root")
		bucket, _ := cmd.Flags().GetString("bucket")
		region, _ := cmd.Flags().GetString("region")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		if root != "" {
			if root, err = filepath.Abs(root); err != nil {
				return fmt.Errorf("resolving root: %w", err)
			}
		}

		cfg := config.NewConfig(root, defaults["base_dir"])
		cfg.ObjectStore.Bucket = bucket
		cfg.ObjectStore.Region = region

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Root:     %s\n", cfg.RootDir)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		if err := cfg.Validate(); err != nil {
			fmt.Printf("Still missing:\n%v\n", err)
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		secret := ""
		if cfg.ObjectStore.SecretKey != "" {
			secret = "********"
		}

		fmt.Printf("Root:         %s\n", cfg.RootDir)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Store:        %s\n", cfg.ObjectStore.Type)
		fmt.Printf("  Bucket:     %s\n", cfg.ObjectStore.Bucket)
		fmt.Printf("  Region:     %s\n", cfg.ObjectStore.Region)
		fmt.Printf("  Endpoint:   %s\n", cfg.ObjectStore.Endpoint)
		fmt.Printf("  Access Key: %s\n", cfg.ObjectStore.AccessKey)
		fmt.Printf("  Secret Key: %s\n", secret)
		fmt.Printf("Index:        %s\n", cfg.Index.Type)
		fmt.Printf("Observer:     %s\n", cfg.Observer.Type)
		fmt.Printf("Encryption:   %s\n", cfg.Encryption.Type)
		fmt.Printf("Ignore:       %v\n", cfg.Filesystem.Ignore)
		if err := cfg.Validate(); err != nil {
			fmt.Printf("\nConfiguration is incomplete:\n%v\n", err)
		}
		return nil
	},
}

// index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and maintain the metadata index",
}

var indexMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		idx, err := app.OpenIndex(cfg)
		if err != nil {
			return err
		}
		defer idx.Close()

		if err := idx.Migrate(); err != nil {
			return err
		}
		fmt.Println("Metadata index is up to date.")
		return nil
	},
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		idx, err := app.OpenIndex(cfg)
		if err != nil {
			return err
		}
		defer idx.Close()

		latest, err := migrations.LatestVersion(idx.Driver())
		if err != nil {
			return err
		}
		fmt.Printf("Driver:         %s\n", idx.Driver())
		fmt.Printf("Latest version: %d\n", latest)
		if err := idx.CheckMigrations(); err != nil {
			fmt.Printf("Status:         %v\n", err)
			return nil
		}
		fmt.Println("Status:         up to date")
		return nil
	},
}

var indexShowCmd = &cobra.Command{
	Use:   "show KEY",
	Short: "Show the record for a remote key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		idx, err := app.OpenIndex(cfg)
		if err != nil {
			return err
		}
		defer idx.Close()

		rec, err := idx.FindRecord(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("no record for %s", args[0])
		}
		fmt.Printf("Key:         %s\n", rec.Key)
		fmt.Printf("URL:         %s\n", rec.Locator)
		fmt.Printf("Uploaded at: %s (%s)\n", rec.LastModified.Local().Format("2006-01-02 15:04:05"), humanize.Time(rec.LastModified))
		return nil
	},
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records in key order",
	RunE: func(cmd *cobra.Command, args []string) error {
		after, _ := cmd.Flags().GetString("after")
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		idx, err := app.OpenIndex(cfg)
		if err != nil {
			return err
		}
		defer idx.Close()

		records, err := idx.ListRecords(cmd.Context(), after, limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No records.")
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%s  %-14s  %s\n", rec.LastModified.Local().Format("2006-01-02 15:04:05"), humanize.Time(rec.LastModified), rec.Key)
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage upload encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the age key pair used to encrypt uploads",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		enc := encryption.NewAgeEncryptor(cfg.Encryption)
		if enc.IsConfigured() && !force {
			return fmt.Errorf("keys already exist at %s (use --force to replace)", cfg.Encryption.PublicKeyPath)
		}

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}
		if passphrase == "" {
			return fmt.Errorf("passphrase must not be empty")
		}

		if err := enc.Setup(passphrase); err != nil {
			return err
		}
		recipient, err := enc.Recipient()
		if err != nil {
			return err
		}
		fmt.Printf("Public key:  %s\n", recipient)
		fmt.Printf("Stored at:   %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Println("Set encryption.type = \"age\" in the config to encrypt uploads.")
		return nil
	},
}

// decrypt command
var decryptCmd = &cobra.Command{
	Use:   "decrypt FILE",
	Short: "Decrypt a downloaded object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		in, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		var out io.Writer = os.Stdout
		if outPath != "" {
			f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		dec, err := encryption.NewAgeEncryptor(cfg.Encryption).Unlock(passphrase)
		if err != nil {
			return err
		}
		return dec.Decrypt(in, out)
	},
}

// key command
var keyCmd = &cobra.Command{
	Use:   "key PATH",
	Short: "Print the remote key and URL for a local path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		isDir, _ := cmd.Flags().GetBool("dir")
		if info, err := os.Stat(args[0]); err == nil {
			isDir = info.IsDir()
		}

		key, locator, err := app.KeyFor(cfg, args[0], isDir)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", key, locator)
		return nil
	},
}

// readPassphrase prompts on stderr and reads without echo.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("a terminal is required to read the passphrase")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func init() {
	runCmd.Flags().BoolP("verbose", "v", false, "Log debug output to the console")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("root", "", "Directory to mirror")
	configInitCmd.Flags().String("bucket", "", "Destination S3 bucket")
	configInitCmd.Flags().String("region", "", "Bucket region")

	// index subcommands
	indexCmd.AddCommand(indexMigrateCmd)
	indexCmd.AddCommand(indexStatusCmd)
	indexCmd.AddCommand(indexShowCmd)
	indexCmd.AddCommand(indexListCmd)
	indexListCmd.Flags().String("after", "", "List keys after this one")
	indexListCmd.Flags().IntP("limit", "n", 50, "Maximum number of records to show")

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)
	keysInitCmd.Flags().Bool("force", false, "Replace existing keys")

	decryptCmd.Flags().StringP("out", "o", "", "Write plaintext to this file instead of stdout")
	keyCmd.Flags().Bool("dir", false, "Treat a missing path as a directory")

	// root commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(keyCmd)
}
