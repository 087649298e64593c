// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initializes the mirror's on-disk store for the configured schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, _ := pterm.DefaultSpinner.WithText("Initializing mirror store...").Start()

		m, err := NewMirror(cmd.Context())
		if err != nil {
			sp.Fail(fmt.Sprintf("Failed to initialize mirror store: %s", err))
			return err
		}
		defer m.Close()

		sp.Success("Initialization complete")
		return nil
	},
}
