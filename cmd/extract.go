// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "extract <id>",
		Short:     "Dumps the materialized object graph rooted at id as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"id"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rootID := args[0]

			m, err := NewMirror(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			root, err := m.Extract(cmd.Context(), rootID)
			if err != nil {
				return fmt.Errorf("extracting %q: %w", rootID, err)
			}

			out, err := json.MarshalIndent(jsonSafe(root, make(map[any]bool)), "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(out))
			return nil
		},
	}
}

// jsonSafe walks an extracted object graph and replaces repeat visits to
// the same node with a stub holding its id, its __typename and
// "__cyclic": true, since encoding/json cannot serialize cycles.
func jsonSafe(v any, visiting map[any]bool) any {
	switch val := v.(type) {
	case map[string]any:
		if visiting[fmt.Sprintf("%p", val)] {
			return map[string]any{"id": val["id"], "__typename": val["__typename"], "__cyclic": true}
		}
		visiting[fmt.Sprintf("%p", val)] = true
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = jsonSafe(v, visiting)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = jsonSafe(e, visiting)
		}
		return out
	default:
		return val
	}
}
