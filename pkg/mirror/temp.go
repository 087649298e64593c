// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xataio/gqlmirror/pkg/store"
)

const tempTablePrefix = "tmp_transitive_dependencies_"

// nextTempTableName scans sqlite_temp_master for the existing maximum suffix
// and uses one past it, so a table left behind by a previous attempt that
// aborted before DROP never collides with a new one. TEMP tables are
// recorded in the temp schema's own catalog, not in sqlite_master.
func nextTempTableName(ctx context.Context, tx store.Tx) (string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM sqlite_temp_master WHERE type = 'table' AND name LIKE ?`, tempTablePrefix+"%")
	if err != nil {
		return "", fmt.Errorf("scanning sqlite_temp_master for temp table names: %w", err)
	}
	defer rows.Close()

	max := -1
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
		suffix := strings.TrimPrefix(name, tempTablePrefix)
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue // not one of ours, ignore
		}
		if n > max {
			max = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%d", tempTablePrefix, max+1), nil
}
