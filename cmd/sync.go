// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/xataio/gqlmirror/cmd/flags"
	"github.com/xataio/gqlmirror/internal/transport"
	"github.com/xataio/gqlmirror/pkg/mirror"
)

func syncCmd() *cobra.Command {
	var since int64

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Runs the update loop to convergence against --endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.Endpoint() == "" {
				return errEndpointRequired
			}

			m, err := NewMirror(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			t := transport.New(flags.Endpoint(), flags.Token())

			sp, _ := pterm.DefaultSpinner.WithText("Syncing mirror...").Start()

			err = m.Update(cmd.Context(), t.PostQuery, mirror.UpdateOptions{
				SinceEpochMillis: since,
				NowEpochMillis:   time.Now().UnixMilli(),
				Limits:           limitsFromFlags(),
			})
			if err != nil {
				sp.Fail(fmt.Sprintf("Sync failed: %s", err))
				return err
			}

			sp.Success("Sync converged")
			return nil
		},
	}

	syncCmd.Flags().Int64Var(&since, "since", 0, "Consider entities outdated if last updated before this epoch-millis timestamp")

	return syncCmd
}
