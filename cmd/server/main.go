package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/openmined/dropsearch/internal/extract"
	"github.com/openmined/dropsearch/internal/index"
	"github.com/openmined/dropsearch/internal/indexsync"
	"github.com/openmined/dropsearch/internal/remote"
	"github.com/openmined/dropsearch/internal/server"
	"github.com/openmined/dropsearch/internal/utils"
	"github.com/openmined/dropsearch/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "DROPSEARCH"
	configFileName = "config"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dropsearch",
		Short:   "Full-text phrase search over a cloud storage account",
		Version: version.Detailed(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			closeLog, err := setupLogger(&cfg.Log)
			if err != nil {
				return err
			}
			defer closeLog()

			// all good now, errors from here on are not usage errors
			cmd.SilenceUsage = true
			slog.Info("config loaded",
				"file", cfg.configFile,
				"remote", cfg.Remote.Backend,
				"index", cfg.Index.Backend,
				"credential", utils.MaskSecret(remoteCredential(&cfg.Remote)),
				"tika", cfg.Extract.TikaURL,
				"addr", cfg.HTTP.Addr,
			)

			srv, err := server.New(&cfg.Config)
			if err != nil {
				return err
			}

			defer slog.Info("Bye!")
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("bind", "b", server.DefaultAddr, "Address to bind the server")
	cmd.Flags().String("cert", "", "Path to the TLS certificate file")
	cmd.Flags().String("key", "", "Path to the TLS key file")
	cmd.Flags().String("env-file", ".env", "Environment file loaded before reading the environment")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to the config file (yaml or json)")

	cmd.AddCommand(newConfigCmd())

	return cmd
}

func main() {
	setupConsoleLogger()

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// remoteCredential is the key identifying the account, for logging only
func remoteCredential(cfg *remote.Config) string {
	if cfg.Backend == remote.BackendS3 {
		return cfg.S3.AccessKey
	}
	if cfg.Dropbox.AppKey != "" {
		return cfg.Dropbox.AppKey
	}
	return cfg.Dropbox.AccessToken
}

type loadedConfig struct {
	server.Config
	configFile string
	settings   map[string]any
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", server.DefaultAddr)
	v.SetDefault("http.cert_file", "")
	v.SetDefault("http.key_file", "")
	v.SetDefault("http.search_rate", server.DefaultSearchRate)

	v.SetDefault("log.level", server.DefaultLogLevel)
	v.SetDefault("log.file", "")

	v.SetDefault("remote.backend", remote.BackendDropbox)
	v.SetDefault("remote.dropbox.app_key", "")
	v.SetDefault("remote.dropbox.app_secret", "")
	v.SetDefault("remote.dropbox.refresh_token", "")
	v.SetDefault("remote.dropbox.access_token", "")
	v.SetDefault("remote.dropbox.api_url", remote.DefaultDropboxAPIURL)
	v.SetDefault("remote.dropbox.content_url", remote.DefaultDropboxContentURL)
	v.SetDefault("remote.s3.bucket_name", "")
	v.SetDefault("remote.s3.region", "")
	v.SetDefault("remote.s3.access_key", "")
	v.SetDefault("remote.s3.secret_key", "")
	v.SetDefault("remote.s3.endpoint", "")
	v.SetDefault("remote.s3.prefix", "")
	v.SetDefault("remote.s3.link_expiry", remote.DefaultLinkExpiry)
	v.SetDefault("remote.s3.use_accelerate", false)

	v.SetDefault("index.backend", index.BackendSQLite)
	v.SetDefault("index.name", index.DefaultName)
	v.SetDefault("index.page_size", index.DefaultPageSize)
	v.SetDefault("index.sqlite.path", index.DefaultSQLitePath)
	v.SetDefault("index.elastic.url", "")
	v.SetDefault("index.elastic.cloud_id", "")
	v.SetDefault("index.elastic.username", "")
	v.SetDefault("index.elastic.password", "")
	v.SetDefault("index.elastic.timeout", 0)

	v.SetDefault("extract.tika_url", "")
	v.SetDefault("extract.timeout", extract.DefaultTimeout)

	v.SetDefault("sync.workers", indexsync.DefaultWorkers)
	v.SetDefault("sync.max_file_size", indexsync.DefaultMaxFileSize)
	v.SetDefault("sync.exclude", []string{})
	v.SetDefault("sync.lock_file", "")

	v.SetDefault("search.max_hits", indexsync.DefaultMaxHits)
	v.SetDefault("search.link_cache_ttl", 0)
}

// loadConfig merges, from lowest to highest priority: defaults, the config file,
// the .env file, the environment and the command line flags.
func loadConfig(cmd *cobra.Command) (*loadedConfig, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		// variables already present in the environment win over the file
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("env file '%s': %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	// config path
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		v.SetConfigFile(configFilePath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "dropsearch"))
		}
		v.SetConfigName(configFileName)
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	// Bind flags to viper
	v.BindPFlag("http.addr", cmd.Flags().Lookup("bind"))
	v.BindPFlag("http.cert_file", cmd.Flags().Lookup("cert"))
	v.BindPFlag("http.key_file", cmd.Flags().Lookup("key"))

	// Set up environment variables, e.g. DROPSEARCH_REMOTE_DROPBOX_REFRESH_TOKEN
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &loadedConfig{configFile: v.ConfigFileUsed(), settings: v.AllSettings()}
	if err := v.Unmarshal(&cfg.Config); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}

	return cfg, nil
}
