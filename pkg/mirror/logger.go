// SPDX-License-Identifier: Apache-2.0

package mirror

import "github.com/pterm/pterm"

// Logger is responsible for logging all Mirror operations.
type Logger interface {
	LogStoreInit(version string, typeCount int)
	LogRegister(typename, id string)

	LogUpdateStepStart(objectCount, connectionCount int)
	LogUpdateStepComplete(objectCount, connectionCount int)
	LogUpdateConverged(steps int)

	LogIngestStart(updateID int64)
	LogIngestComplete(updateID int64, objectsWritten, connectionsWritten int)

	LogExtractStart(rootID string)
	LogExtractComplete(rootID string, objectCount int)

	Info(msg string, args ...any)
}

type pretermLogger struct {
	logger pterm.Logger
}

type noopLogger struct{}

func NewLogger() Logger {
	return &pretermLogger{logger: pterm.DefaultLogger}
}

func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (l *pretermLogger) LogStoreInit(version string, typeCount int) {
	l.logger.Info("initialized mirror store", l.logger.Args([]any{
		"version", version,
		"type_count", typeCount,
	}))
}

func (l *pretermLogger) LogRegister(typename, id string) {
	l.logger.Info("registered object", l.logger.Args([]any{
		"typename", typename,
		"id", id,
	}))
}

func (l *pretermLogger) LogUpdateStepStart(objectCount, connectionCount int) {
	l.logger.Info("starting update step", l.logger.Args([]any{
		"object_count", objectCount,
		"connection_count", connectionCount,
	}))
}

func (l *pretermLogger) LogUpdateStepComplete(objectCount, connectionCount int) {
	l.logger.Info("completed update step", l.logger.Args([]any{
		"object_count", objectCount,
		"connection_count", connectionCount,
	}))
}

func (l *pretermLogger) LogUpdateConverged(steps int) {
	l.logger.Info("update loop converged", l.logger.Args("steps", steps))
}

func (l *pretermLogger) LogIngestStart(updateID int64) {
	l.logger.Info("ingesting update", l.logger.Args("update_id", updateID))
}

func (l *pretermLogger) LogIngestComplete(updateID int64, objectsWritten, connectionsWritten int) {
	l.logger.Info("ingested update", l.logger.Args([]any{
		"update_id", updateID,
		"objects_written", objectsWritten,
		"connections_written", connectionsWritten,
	}))
}

func (l *pretermLogger) LogExtractStart(rootID string) {
	l.logger.Info("extracting object graph", l.logger.Args("root_id", rootID))
}

func (l *pretermLogger) LogExtractComplete(rootID string, objectCount int) {
	l.logger.Info("extracted object graph", l.logger.Args([]any{
		"root_id", rootID,
		"object_count", objectCount,
	}))
}

func (l *pretermLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, l.logger.Args(args))
}

func (l *noopLogger) LogStoreInit(version string, typeCount int)                      {}
func (l *noopLogger) LogRegister(typename, id string)                                 {}
func (l *noopLogger) LogUpdateStepStart(objectCount, connectionCount int)              {}
func (l *noopLogger) LogUpdateStepComplete(objectCount, connectionCount int)           {}
func (l *noopLogger) LogUpdateConverged(steps int)                                     {}
func (l *noopLogger) LogIngestStart(updateID int64)                                    {}
func (l *noopLogger) LogIngestComplete(updateID int64, objectsWritten, connWritten int) {}
func (l *noopLogger) LogExtractStart(rootID string)                                    {}
func (l *noopLogger) LogExtractComplete(rootID string, objectCount int)                {}
func (l *noopLogger) Info(msg string, args ...any)                                     {}
