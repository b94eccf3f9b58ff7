package main

import (
	"strings"

	"github.com/openmined/dropsearch/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var secretSuffixes = []string{"secret", "token", "password", "secret_key", "access_key"}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// flags are defined on the root command
			cfg, err := loadConfig(cmd.Root())
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(maskSettings(cfg.settings))
		},
	}
}

// maskSettings masks every non-empty string whose key looks like a credential
func maskSettings(settings map[string]any) map[string]any {
	masked := make(map[string]any, len(settings))
	for k, v := range settings {
		switch val := v.(type) {
		case map[string]any:
			masked[k] = maskSettings(val)
		case string:
			if isSecretKey(k) && val != "" {
				masked[k] = utils.MaskSecret(val)
			} else {
				masked[k] = val
			}
		default:
			masked[k] = v
		}
	}
	return masked
}

func isSecretKey(key string) bool {
	for _, suffix := range secretSuffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}
