// SPDX-License-Identifier: Apache-2.0

package relschema

import "github.com/relormdb/relorm/pkg/relident"

// TypeKey is the stable type identity the registry keys tables by. It
// stands in for the reflection-based type identity a compile-time
// derivation mechanism would supply; callers pass a string that
// uniquely names the Go type the table was derived from.
type TypeKey string

// Table is a fluent, append-only table definition. Once passed to
// Registry.AddResource and the registry is finalized, the table is
// treated as immutable — mutating a Table obtained from a Snapshot is a
// programmer error.
type Table struct {
	Name relident.Identifier

	// names preserves column declaration order; columns indexes by
	// name. Both are kept in lockstep by Column and WithColumnRemoved.
	names   []relident.Identifier
	columns map[string]Column

	tableConstraints []TableConstraint

	// childTables are the (TypeKey -> Table) child tables declared
	// directly on this table, consumed by the registry's transitive
	// closure walk. Not necessarily exhaustive: the registry may add
	// further children (synthesized join tables) that this table does
	// not report here.
	childTables map[TypeKey]Table

	isJoinTable bool
}

// NewTable starts a fluent table definition.
func NewTable(name relident.Identifier) Table {
	return Table{
		Name:    name,
		columns: make(map[string]Column),
	}
}

// Column appends a column to the table definition, returning the
// updated table for chaining.
func (t Table) Column(c Column) Table {
	if t.columns == nil {
		t.columns = make(map[string]Column)
	}
	key := c.Name.String()
	if _, exists := t.columns[key]; !exists {
		t.names = append(t.names, c.Name)
	}
	t.columns[key] = c
	return t
}

// WithTableConstraint appends a table-level constraint.
func (t Table) WithTableConstraint(c TableConstraint) Table {
	t.tableConstraints = append(t.tableConstraints, c)
	return t
}

// WithChildTable registers a child table reachable from this one, used
// by the registry to compute the transitive closure of reachable
// tables.
func (t Table) WithChildTable(key TypeKey, child Table) Table {
	if t.childTables == nil {
		t.childTables = make(map[TypeKey]Table)
	}
	t.childTables[key] = child
	return t
}

// Columns returns the table's columns in declaration order.
func (t Table) Columns() []Column {
	cols := make([]Column, 0, len(t.names))
	for _, name := range t.names {
		cols = append(cols, t.columns[name.String()])
	}
	return cols
}

// ColumnNames returns the table's column names in declaration order.
func (t Table) ColumnNames() []relident.Identifier {
	out := make([]relident.Identifier, len(t.names))
	copy(out, t.names)
	return out
}

// GetColumn looks up a column by name.
func (t Table) GetColumn(name relident.Identifier) (Column, bool) {
	c, ok := t.columns[name.String()]
	return c, ok
}

// HasColumn reports whether the table has a column with the given
// name.
func (t Table) HasColumn(name relident.Identifier) bool {
	_, ok := t.columns[name.String()]
	return ok
}

// TableConstraints returns the table's table-level constraints.
func (t Table) TableConstraints() []TableConstraint {
	return append([]TableConstraint(nil), t.tableConstraints...)
}

// ChildTables returns the table's directly declared child tables.
func (t Table) ChildTables() map[TypeKey]Table {
	return t.childTables
}

// PrimaryKeyColumn returns the table's single primary-key column. In
// this revision a table must have exactly one primary key column,
// named "id", of type Uuid; Registry.Build validates
// this.
func (t Table) PrimaryKeyColumn() (Column, bool) {
	for _, c := range t.Columns() {
		if c.IsPrimaryKey() {
			return c, true
		}
	}
	return Column{}, false
}

// WithColumnRemoved returns a copy of t with the named column removed.
// It is a no-op if the column does not exist.
func (t Table) WithColumnRemoved(name relident.Identifier) Table {
	key := name.String()
	if _, ok := t.columns[key]; !ok {
		return t
	}
	newCols := make(map[string]Column, len(t.columns))
	for k, v := range t.columns {
		if k != key {
			newCols[k] = v
		}
	}
	t.columns = newCols

	newNames := make([]relident.Identifier, 0, len(t.names))
	for _, n := range t.names {
		if n.String() != key {
			newNames = append(newNames, n)
		}
	}
	t.names = newNames
	return t
}

// MarkJoinTable marks t as a synthesized many-to-many join table, which
// is exempt from the single-primary-key validation rule: join tables
// carry only parent_id/child_id plus a composite uniqueness
// constraint, no id column.
func (t Table) MarkJoinTable() Table {
	t.isJoinTable = true
	return t
}

// IsJoinTable reports whether t is a synthesized many-to-many join
// table.
func (t Table) IsJoinTable() bool {
	return t.isJoinTable
}
