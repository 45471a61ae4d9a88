// SPDX-License-Identifier: Apache-2.0

package relschema

import (
	"reflect"
	"sort"

	"github.com/relormdb/relorm/pkg/relident"
)

// Registry accepts user-declared root tables, closes the set under
// child-table reachability, rewrites relationship columns into
// concrete FK columns (and synthesizes join tables where needed), and
// produces an immutable Snapshot. Grounded on map-keyed
// Schema (pkg/schema/schema.go) generalized to build from declared
// metadata rather than introspection.
//
// A Registry under construction is not safe for concurrent use: build
// it on one goroutine and freeze it into a Snapshot before sharing it.
type Registry struct {
	order     []TypeKey
	resources map[TypeKey]Table
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{resources: make(map[TypeKey]Table)}
}

// AddResource registers a type's table metadata. Idempotent when the
// same type identity is registered again with a structurally identical
// table; returns DuplicateRegistrationError if a different table is
// registered under an already-used type identity.
func (r *Registry) AddResource(key TypeKey, t Table) error {
	if existing, ok := r.resources[key]; ok {
		if !tablesEqual(existing, t) {
			return DuplicateRegistrationError{Type: key}
		}
		return nil
	}
	r.resources[key] = t
	r.order = append(r.order, key)
	return nil
}

// Build finalizes the registry into an immutable Snapshot. All
// failures surface here; on error the partially built snapshot is
// discarded.
func (r *Registry) Build() (*Snapshot, error) {
	resources := make(map[TypeKey]Table, len(r.resources))
	for k, v := range r.resources {
		resources[k] = v
	}

	// Step 1-2: seed a work stack with every registered table and walk
	// child tables transitively, closing the reachable set.
	stack := make([]TypeKey, len(r.order))
	copy(stack, r.order)

	for len(stack) > 0 {
		tid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		t := resources[tid]
		for childTid, childTable := range t.childTables {
			if _, ok := resources[childTid]; !ok {
				resources[childTid] = childTable
				stack = append(stack, childTid)
			}
		}
	}

	ids := make([]TypeKey, 0, len(resources))
	for tid := range resources {
		ids = append(ids, tid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	injectedParentOf := make(map[TypeKey]TypeKey)
	joinTables := make(map[TypeKey]Table)

	// Step 3: rewrite relationship columns into concrete FK columns and
	// synthesized tables.
	for _, tid := range ids {
		t := resources[tid]

		for _, col := range t.Columns() {
			switch col.Type {
			case OneToOne:
				childTable, ok := resources[col.Referent]
				if !ok {
					return nil, BuildError{Err: DanglingChildError{Table: t.Name.String(), Column: col.Name.String()}}
				}
				fkName, err := relident.New(col.Name.String() + "_id")
				if err != nil {
					return nil, BuildError{Err: err}
				}
				fkCol := UuidColumn(fkName).References(ForeignKeyRef{
					Table:  childTable.Name,
					Column: relident.MustNew("id"),
				})
				if !col.IsNullable() {
					fkCol = fkCol.NotNull()
				}
				t = t.WithColumnRemoved(col.Name).Column(fkCol)

			case OneToMany:
				childTable, ok := resources[col.Referent]
				if !ok {
					return nil, BuildError{Err: DanglingChildError{Table: t.Name.String(), Column: col.Name.String()}}
				}

				if parent, injected := injectedParentOf[col.Referent]; injected && parent != tid {
					return nil, BuildError{Err: CyclicOwnershipError{Table: childTable.Name.String()}}
				}
				injectedParentOf[col.Referent] = tid

				if !childTable.HasColumn(relident.MustNew("parent_id")) {
					parentIDCol := UuidColumn(relident.MustNew("parent_id")).NotNull().References(ForeignKeyRef{
						Table:  t.Name,
						Column: relident.MustNew("id"),
					})
					childTable = childTable.Column(parentIDCol)
					resources[col.Referent] = childTable
				}

				t = t.WithColumnRemoved(col.Name)

			case ManyToMany:
				childTable, ok := resources[col.Referent]
				if !ok {
					return nil, BuildError{Err: DanglingChildError{Table: t.Name.String(), Column: col.Name.String()}}
				}

				joinName, err := relident.New(t.Name.String() + "_to_" + childTable.Name.String())
				if err != nil {
					return nil, BuildError{Err: err}
				}

				if _, exists := joinTables[TypeKey("__join__:"+joinName.String())]; !exists {
					parentIDCol := UuidColumn(relident.MustNew("parent_id")).NotNull().References(ForeignKeyRef{
						Table: t.Name, Column: relident.MustNew("id"),
					})
					childIDCol := UuidColumn(relident.MustNew("child_id")).NotNull().References(ForeignKeyRef{
						Table: childTable.Name, Column: relident.MustNew("id"),
					})
					join := NewTable(joinName).
						Column(parentIDCol).
						Column(childIDCol).
						WithTableConstraint(TableConstraint{
							Name:    "uq_" + joinName.String() + "_parent_id_child_id",
							Kind:    ConstraintUnique,
							Columns: []relident.Identifier{parentIDCol.Name, childIDCol.Name},
						}).
						MarkJoinTable()
					joinTables[TypeKey("__join__:"+joinName.String())] = join
				}

				t = t.WithColumnRemoved(col.Name)
			}
		}

		resources[tid] = t
	}

	// Mutual one-to-many ownership (a owns b, b owns a — or any longer
	// loop) is disallowed: walk each child's ownership chain and reject
	// on revisiting the starting table.
	for _, start := range ids {
		seen := map[TypeKey]bool{start: true}
		for cur, ok := injectedParentOf[start]; ok; cur, ok = injectedParentOf[cur] {
			if seen[cur] {
				return nil, BuildError{Err: CyclicOwnershipError{Table: resources[cur].Name.String()}}
			}
			seen[cur] = true
		}
	}

	for jtid, jt := range joinTables {
		resources[jtid] = jt
	}

	// Step 4: validate.
	snap := &Snapshot{
		tables:     make(map[string]Table, len(resources)),
		typeToName: make(map[TypeKey]string, len(resources)),
		nameToType: make(map[string]TypeKey, len(resources)),
	}

	for tid, t := range resources {
		name := t.Name.String()
		if _, exists := snap.tables[name]; exists {
			return nil, BuildError{Err: DuplicateRegistrationError{Type: tid}}
		}
		snap.tables[name] = t
		snap.typeToName[tid] = name
		snap.nameToType[name] = tid
	}

	for _, t := range snap.tables {
		if err := validateTable(t, snap); err != nil {
			return nil, BuildError{Err: err}
		}
	}

	return snap, nil
}

func validateTable(t Table, snap *Snapshot) error {
	if !t.IsJoinTable() {
		pk, ok := t.PrimaryKeyColumn()
		count := 0
		for _, c := range t.Columns() {
			if c.IsPrimaryKey() {
				count++
			}
		}
		switch {
		case count == 0:
			return MissingPrimaryKeyError{Table: t.Name.String()}
		case count > 1:
			return MultiplePrimaryKeysError{Table: t.Name.String()}
		case ok && (pk.Name.String() != "id" || pk.Type != Uuid):
			return InvalidPrimaryKeyError{Table: t.Name.String(), Column: pk.Name.String()}
		}
	}

	for _, c := range t.Columns() {
		ref, ok := c.ForeignKeyConstraint()
		if !ok {
			continue
		}
		target, ok := snap.GetTable(ref.Table)
		if !ok {
			return DanglingReferenceError{Table: t.Name.String(), Column: c.Name.String(), Target: ref.Table.String()}
		}
		if !target.HasColumn(ref.Column) {
			return DanglingReferenceError{Table: t.Name.String(), Column: c.Name.String(), Target: ref.Table.String() + "." + ref.Column.String()}
		}
	}

	for _, tc := range t.TableConstraints() {
		for _, col := range tc.Columns {
			if !t.HasColumn(col) {
				return DanglingReferenceError{Table: t.Name.String(), Column: col.String(), Target: "table constraint " + tc.Name}
			}
		}
	}

	return nil
}

// tablesEqual compares two table definitions structurally, ignoring
// declaration order of child tables (which are keyed by TypeKey, an
// unordered map already).
func tablesEqual(a, b Table) bool {
	if a.Name.String() != b.Name.String() {
		return false
	}
	return reflect.DeepEqual(a.Columns(), b.Columns()) &&
		reflect.DeepEqual(a.TableConstraints(), b.TableConstraints())
}
