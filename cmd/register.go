// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "register <typename> <id>",
		Short:     "Declares a root object for the mirror to track",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"typename", "id"},
		RunE: func(cmd *cobra.Command, args []string) error {
			typename, id := args[0], args[1]

			m, err := NewMirror(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.RegisterObject(cmd.Context(), typename, id); err != nil {
				return fmt.Errorf("registering %s %q: %w", typename, id, err)
			}

			pterm.Success.Printfln("registered %s %q", typename, id)
			return nil
		},
	}
}
