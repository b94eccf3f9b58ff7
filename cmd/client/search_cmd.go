package main

import (
	"context"
	"strings"

	"github.com/openmined/dropsearch/internal/searchsdk"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <phrase>...",
		Short: "Find files containing a phrase",
		Long: "Find files containing a phrase. The server brings its index up to date " +
			"before answering, so the first search after many changes can be slow.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, err := newSDK(cmd)
			if err != nil {
				return err
			}

			phrase := strings.Join(args, " ")

			var results []*searchsdk.Result
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Searching...", func(ctx context.Context) error {
				var err error
				results, err = sdk.Search.Query(ctx, phrase)
				return err
			})
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			return renderResults(cmd.OutOrStdout(), phrase, results)
		},
	}
}
