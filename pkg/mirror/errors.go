// SPDX-License-Identifier: Apache-2.0

package mirror

import "fmt"

// ConfigMismatchError is returned when an on-disk meta blob does not match
// the schema/options a Mirror was constructed with. Fatal; the store is
// left untouched.
type ConfigMismatchError struct{}

func (e ConfigMismatchError) Error() string {
	return "incompatible schema, options, or version: on-disk configuration does not match"
}

// UnsafeIdentifierError is raised when a typename or fieldname fails the
// isSqlSafe check before being spliced into DDL.
type UnsafeIdentifierError struct {
	Identifier string
}

func (e UnsafeIdentifierError) Error() string {
	return fmt.Sprintf("identifier %q is not safe to use in SQL (must match [A-Za-z0-9_]+)", e.Identifier)
}

// UnfaithfulFieldError is raised when a NODE field declares UNFAITHFUL
// fidelity; unsupported by this core.
type UnfaithfulFieldError struct {
	Typename  string
	Fieldname string
}

func (e UnfaithfulFieldError) Error() string {
	return fmt.Sprintf("unfaithful fields not yet implemented: %s.%s", e.Typename, e.Fieldname)
}

// UnknownTypeError is raised when an operation references a typename the
// schema does not define.
type UnknownTypeError struct {
	Typename string
}

func (e UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type %q", e.Typename)
}

// NotObjectTypeError is raised when an operation requires an OBJECT type but
// found something else.
type NotObjectTypeError struct {
	Typename string
}

func (e NotObjectTypeError) Error() string {
	return fmt.Sprintf("type %q is not an OBJECT type", e.Typename)
}

// RetypedObjectError is raised by the registrar when an id is re-registered
// with a different typename than it was first registered with.
type RetypedObjectError struct {
	ID           string
	OldTypename  string
	NewTypename  string
}

func (e RetypedObjectError) Error() string {
	return fmt.Sprintf("inconsistent type for id %q: already registered as %q, got %q", e.ID, e.OldTypename, e.NewTypename)
}

// MissingConnectionError is raised by the ingester when a response
// references a connection field that has no corresponding `connections`
// row.
type MissingConnectionError struct {
	ObjectID  string
	Fieldname string
}

func (e MissingConnectionError) Error() string {
	return fmt.Sprintf("no such connection: object %q field %q", e.ObjectID, e.Fieldname)
}

// TypenameMismatchError is raised when an own-data batch contains records
// whose __typename values disagree.
type TypenameMismatchError struct {
	Expected, Found string
}

func (e TypenameMismatchError) Error() string {
	return fmt.Sprintf("own-data batch typename mismatch: expected %q, found %q", e.Expected, e.Found)
}

// UnregisteredObjectError is raised when own-data ingest targets an id with
// no `objects` row.
type UnregisteredObjectError struct {
	ID string
}

func (e UnregisteredObjectError) Error() string {
	return fmt.Sprintf("object %q is not registered", e.ID)
}

// MissingFieldError is raised when a remote response omits a field the
// schema declares required (primitive, node, or nested egg).
type MissingFieldError struct {
	Typename  string
	ID        string
	Fieldname string
}

func (e MissingFieldError) Error() string {
	return fmt.Sprintf("response for %s %q is missing required field %q", e.Typename, e.ID, e.Fieldname)
}

// SingleRowUpdateError is raised when a write that must change exactly one
// row changed a different number. Carries the statement and args for
// diagnosis.
type SingleRowUpdateError struct {
	SQL          string
	Args         []any
	RowsAffected int64
}

func (e SingleRowUpdateError) Error() string {
	return fmt.Sprintf("expected exactly one row to change, got %d; sql=%q args=%v", e.RowsAffected, e.SQL, e.Args)
}

// CorruptPresenceMarkerError is raised when a nested-presence column holds a
// value other than NULL/0/1.
type CorruptPresenceMarkerError struct {
	Typename  string
	ID        string
	Fieldname string
	Value     any
}

func (e CorruptPresenceMarkerError) Error() string {
	return fmt.Sprintf("corrupt nested-presence marker for %s %q field %q: %v", e.Typename, e.ID, e.Fieldname, e.Value)
}

// CorruptColumnNameError is raised when a primitives_T column name has more
// than one '.' separator.
type CorruptColumnNameError struct {
	Column string
}

func (e CorruptColumnNameError) Error() string {
	return fmt.Sprintf("corrupt column name %q: expected at most one '.'", e.Column)
}

// FreshnessViolationError is raised by Extract when a transitive dependency
// lacks own-data or connection data.
type FreshnessViolationError struct {
	ID   string
	What string // "own data" or "<fieldname> connection"
}

func (e FreshnessViolationError) Error() string {
	return fmt.Sprintf("freshness violation: %q has no %s", e.ID, e.What)
}

// RootNotFoundError is raised by Extract when the root id is absent from
// the materialized object set.
type RootNotFoundError struct {
	ID string
}

func (e RootNotFoundError) Error() string {
	return fmt.Sprintf("root object %q not found", e.ID)
}

// PlanTypenamesUnsupportedError is raised when findOutdated would have to
// populate the reserved typenames[] bucket of a QueryPlan.
type PlanTypenamesUnsupportedError struct{}

func (e PlanTypenamesUnsupportedError) Error() string {
	return "QueryPlan.typenames is reserved and must be empty"
}

// ConnectionTypenameConflictError is raised by the planner when two
// connection rows scheduled for the same object id disagree on typename.
type ConnectionTypenameConflictError struct {
	ObjectID string
	First    string
	Second   string
}

func (e ConnectionTypenameConflictError) Error() string {
	return fmt.Sprintf("object %q scheduled with conflicting typenames %q and %q", e.ObjectID, e.First, e.Second)
}

// AlreadyInTransactionError is raised by inTransaction when the underlying
// store already reports an open transaction.
type AlreadyInTransactionError struct{}

func (e AlreadyInTransactionError) Error() string {
	return "store already has an open transaction"
}

// UnexpectedResultKeyError is raised by the ingester when a query response's
// top-level key matches neither the owndata_ nor the node_ alias prefix.
type UnexpectedResultKeyError struct {
	Key string
}

func (e UnexpectedResultKeyError) Error() string {
	return fmt.Sprintf("unexpected top-level result key %q", e.Key)
}

// MalformedResultError is raised when a query response's shape does not
// match what the planner asked for (wrong JSON type at a given position).
type MalformedResultError struct {
	Where string
}

func (e MalformedResultError) Error() string {
	return fmt.Sprintf("malformed query result: %s", e.Where)
}
