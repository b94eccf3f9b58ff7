package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/dropsearch/internal/searchsdk"
	"github.com/openmined/dropsearch/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix        = "DROPSEARCH"
	defaultServerURL = "http://127.0.0.1:8080"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dropsearch-cli",
		Short:   "Search the files indexed by a dropsearch server",
		Version: version.Detailed(),
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringP("server", "s", defaultServerURL, "dropsearch server URL")
	cmd.PersistentFlags().Bool("json", false, "Print raw JSON instead of formatted output")

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelWarn,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newSDK resolves the server URL from --server, then DROPSEARCH_SERVER_URL,
// then the default
func newSDK(cmd *cobra.Command) (*searchsdk.SearchSDK, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if err := v.BindPFlag("server_url", cmd.Flag("server")); err != nil {
		return nil, err
	}

	serverURL := v.GetString("server_url")
	slog.Debug("server", "url", serverURL)
	return searchsdk.New(serverURL)
}

func jsonOutput(cmd *cobra.Command) bool {
	raw, _ := cmd.Flags().GetBool("json")
	return raw
}
