// SPDX-License-Identifier: Apache-2.0

// Package rellog is the logging surface wired into
// postgres.Engine.RunMigrations, db.RDB's retry loop and the CLI,
// grounded on pkg/migrations/logger.go:
// a small Logger interface, a pterm-backed implementation for console
// output, and a no-op implementation for library callers and tests
// that don't want console output.
package rellog

import (
	"github.com/pterm/pterm"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/relormdb/relorm/pkg/relplan"
)

// Logger is responsible for narrating migration and operation
// progress. Implementations must be safe to call from a single
// goroutine only — RunMigrations narrates one migration at a time.
type Logger interface {
	LogMigrationStart(actionCount int)
	LogMigrationComplete(actionCount int)
	LogActionStart(a relplan.Action)
	LogActionComplete(a relplan.Action)
	Info(msg string, args ...any)
}

type ptermLogger struct {
	logger pterm.Logger
}

// NewLogger returns a Logger that writes structured lines to stdout via
// pterm's default logger.
func NewLogger() Logger {
	return &ptermLogger{logger: pterm.DefaultLogger}
}

// NewFileLogger is like NewLogger but writes to a rotating log file
// instead of stdout, for the CLI's --log-file flag. Rotation policy
// (size/age/backup count) is lumberjack's, not reimplemented here.
func NewFileLogger(path string) Logger {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	logger := pterm.DefaultLogger
	logger.Writer = w
	return &ptermLogger{logger: logger}
}

func (l *ptermLogger) LogMigrationStart(actionCount int) {
	l.logger.Info("starting migration", l.logger.Args("action_count", actionCount))
}

func (l *ptermLogger) LogMigrationComplete(actionCount int) {
	l.logger.Info("completed migration", l.logger.Args("action_count", actionCount))
}

func (l *ptermLogger) LogActionStart(a relplan.Action) {
	l.logger.Info("starting action", l.logger.Args(extractActionArgs(a)...))
}

func (l *ptermLogger) LogActionComplete(a relplan.Action) {
	l.logger.Info("completed action", l.logger.Args(extractActionArgs(a)...))
}

func (l *ptermLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, l.logger.Args(args...))
}

func extractActionArgs(a relplan.Action) []any {
	switch a.Kind {
	case relplan.CreateTable:
		return []any{"action", a.Kind, "table", a.NewTable.Name.String()}
	case relplan.DropTable:
		return []any{"action", a.Kind, "table", a.Table}
	case relplan.AddColumn:
		return []any{"action", a.Kind, "table", a.Table, "column", a.Column.Name.String(), "type", a.Column.Type}
	case relplan.DropColumn:
		return []any{"action", a.Kind, "table", a.Table, "column", a.ColumnName}
	case relplan.AlterColumn:
		return []any{"action", a.Kind, "table", a.Table, "column", a.ColumnName}
	case relplan.AddConstraint:
		return []any{"action", a.Kind, "table", a.Table, "constraint", a.Constraint.Name}
	case relplan.DropConstraint:
		return []any{"action", a.Kind, "table", a.Table, "constraint", a.ConstraintName}
	default:
		return []any{"action", a.Kind, "table", a.Table}
	}
}

type noopLogger struct{}

// NewNoopLogger returns a Logger whose methods are no-ops, for library
// callers and tests that don't want console output.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (l *noopLogger) LogMigrationStart(int)            {}
func (l *noopLogger) LogMigrationComplete(int)         {}
func (l *noopLogger) LogActionStart(relplan.Action)    {}
func (l *noopLogger) LogActionComplete(relplan.Action) {}
func (l *noopLogger) Info(msg string, args ...any)     {}
