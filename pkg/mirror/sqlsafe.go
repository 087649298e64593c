// SPDX-License-Identifier: Apache-2.0

package mirror

import "regexp"

var sqlSafeRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// isSqlSafe reports whether s is safe to splice directly into an identifier
// position in SQL text. Any schema-derived identifier (typename, fieldname,
// egg name) must pass this check before being used to build DDL or DML; it
// is never quoted as a workaround.
func isSqlSafe(s string) bool {
	return s != "" && sqlSafeRe.MatchString(s)
}

// requireSqlSafe validates id and returns UnsafeIdentifierError if it fails.
func requireSqlSafe(id string) error {
	if !isSqlSafe(id) {
		return UnsafeIdentifierError{Identifier: id}
	}
	return nil
}
