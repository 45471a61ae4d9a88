// SPDX-License-Identifier: Apache-2.0

package relschema

import (
	"time"

	"github.com/relormdb/relorm/pkg/relident"
)

// ValueKind tags the payload carried by a ColumnValue.
type ValueKind string

const (
	ValueBool      ValueKind = "bool"
	ValueInt       ValueKind = "int"
	ValueFloat     ValueKind = "float"
	ValueString    ValueKind = "string"
	ValueTimestamp ValueKind = "timestamp"
	ValueUuid      ValueKind = "uuid"
	ValueJson      ValueKind = "json"
	ValueNull      ValueKind = "null"

	ValueOneToOne  ValueKind = "one_to_one"
	ValueOneToMany ValueKind = "one_to_many"
)

// ColumnValue is a tagged union carrying the payload of a single field
// of an insert/update request: a scalar, or an owned nested record (or
// collection of records) for OneToOne/OneToMany relationships.
type ColumnValue struct {
	Kind ValueKind

	Bool      bool
	Int       int64
	Float     float64
	String    string
	Timestamp time.Time
	Uuid      string
	Json      string

	// Child is set when Kind == ValueOneToOne.
	Child *Record

	// Children is set when Kind == ValueOneToMany.
	Children []*Record
}

func BoolValue(v bool) ColumnValue           { return ColumnValue{Kind: ValueBool, Bool: v} }
func IntValue(v int64) ColumnValue           { return ColumnValue{Kind: ValueInt, Int: v} }
func FloatValue(v float64) ColumnValue       { return ColumnValue{Kind: ValueFloat, Float: v} }
func StringValue(v string) ColumnValue       { return ColumnValue{Kind: ValueString, String: v} }
func TimestampValue(v time.Time) ColumnValue { return ColumnValue{Kind: ValueTimestamp, Timestamp: v} }
func UuidValue(v string) ColumnValue         { return ColumnValue{Kind: ValueUuid, Uuid: v} }
func JsonValue(v string) ColumnValue         { return ColumnValue{Kind: ValueJson, Json: v} }
func NullValue() ColumnValue                 { return ColumnValue{Kind: ValueNull} }

// OneToOneValue wraps an owned child record.
func OneToOneValue(child *Record) ColumnValue {
	return ColumnValue{Kind: ValueOneToOne, Child: child}
}

// OneToManyValue wraps a collection of owned child records.
func OneToManyValue(children []*Record) ColumnValue {
	return ColumnValue{Kind: ValueOneToMany, Children: children}
}

// Record is the payload of an insert/upsert: an ordered set of
// column->value assignments targeting a specific table.
type Record struct {
	Table relident.Identifier

	names  []relident.Identifier
	values map[string]ColumnValue
}

// NewRecord starts a record targeting the given table.
func NewRecord(table relident.Identifier) *Record {
	return &Record{Table: table, values: make(map[string]ColumnValue)}
}

// Set assigns a value to a column, returning the record for chaining.
func (r *Record) Set(column relident.Identifier, v ColumnValue) *Record {
	key := column.String()
	if _, exists := r.values[key]; !exists {
		r.names = append(r.names, column)
	}
	r.values[key] = v
	return r
}

// Get returns the value assigned to column, if any.
func (r *Record) Get(column relident.Identifier) (ColumnValue, bool) {
	v, ok := r.values[column.String()]
	return v, ok
}

// Fields returns the record's column names in assignment order.
func (r *Record) Fields() []relident.Identifier {
	out := make([]relident.Identifier, len(r.names))
	copy(out, r.names)
	return out
}
