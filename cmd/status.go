// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type statusLine struct {
	OutdatedObjects     int `json:"outdatedObjects"`
	OutdatedConnections int `json:"outdatedConnections"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how many objects and connections are currently outdated",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		m, err := NewMirror(ctx)
		if err != nil {
			return err
		}
		defer m.Close()

		objects, connections, err := m.Status(ctx, 0)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(statusLine{OutdatedObjects: objects, OutdatedConnections: connections}, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(out))
		return nil
	},
}
