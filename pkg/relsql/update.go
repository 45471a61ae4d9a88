// SPDX-License-Identifier: Apache-2.0

package relsql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relormdb/relorm/pkg/relschema"
)

// BuildUpdateStatement renders a flat UPDATE, used when a mutation is
// invoked from a non-nested context: "UPDATE <table> SET
// <col> = $n, ... WHERE id = $k". The id column is never written.
func BuildUpdateStatement(rec *relschema.Record, id string) (Statement, error) {
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	var setClauses []string
	for _, field := range rec.Fields() {
		if field.String() == "id" {
			continue
		}
		v, _ := rec.Get(field)
		switch v.Kind {
		case relschema.ValueOneToOne, relschema.ValueOneToMany:
			return Statement{}, UnsupportedValueError{Kind: string(v.Kind)}
		}
		expr, err := bindFlatValue(bind, v)
		if err != nil {
			return Statement{}, err
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", field.String(), expr))
	}

	idPlaceholder := bind(id)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s;",
		rec.Table.String(), strings.Join(setClauses, ", "), idPlaceholder)
	return Statement{SQL: sql, Args: args}, nil
}

func bindFlatValue(bind func(any) string, v relschema.ColumnValue) (string, error) {
	switch v.Kind {
	case relschema.ValueBool:
		return bind(v.Bool), nil
	case relschema.ValueInt:
		return bind(v.Int), nil
	case relschema.ValueFloat:
		return bind(v.Float), nil
	case relschema.ValueString:
		return bind(v.String), nil
	case relschema.ValueTimestamp:
		return bind(v.Timestamp), nil
	case relschema.ValueUuid:
		return bind(v.Uuid), nil
	case relschema.ValueJson:
		return bind(v.Json), nil
	case relschema.ValueNull:
		return bind(nil), nil
	default:
		return "", UnsupportedValueError{Kind: string(v.Kind)}
	}
}
