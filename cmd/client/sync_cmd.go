package main

import (
	"context"
	"fmt"

	"github.com/openmined/dropsearch/internal/searchsdk"
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Bring the server's index up to date with the remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, err := newSDK(cmd)
			if err != nil {
				return err
			}

			var report *searchsdk.SyncReport
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Syncing...", func(ctx context.Context) error {
				var err error
				report, err = sdk.Sync.Run(ctx)
				return err
			})
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return renderReport(cmd.OutOrStdout(), report)
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the report of the last sync pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, err := newSDK(cmd)
			if err != nil {
				return err
			}

			report, err := sdk.Sync.Status(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			if report == nil {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), gray.Render("No sync pass has completed yet"))
				return err
			}
			return renderReport(cmd.OutOrStdout(), report)
		},
	}
}
