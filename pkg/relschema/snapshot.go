// SPDX-License-Identifier: Apache-2.0

package relschema

import (
	"sort"

	"github.com/relormdb/relorm/pkg/relident"
)

// Snapshot is an immutable, closure-complete schema description
// produced by Registry.Build. It is the sole input to the migration
// planner and the SQL builder. Grounded on Schema/Table
// map model (pkg/schema/schema.go), generalized from "introspected
// physical schema" to "schema built from registered type metadata."
type Snapshot struct {
	tables     map[string]Table
	typeToName map[TypeKey]string
	nameToType map[string]TypeKey
}

// GetTable returns a table by name, or false if it does not exist in
// the snapshot.
func (s *Snapshot) GetTable(name relident.Identifier) (Table, bool) {
	t, ok := s.tables[name.String()]
	return t, ok
}

// GetTableByType returns a table by its registered type identity.
func (s *Snapshot) GetTableByType(key TypeKey) (Table, bool) {
	name, ok := s.typeToName[key]
	if !ok {
		return Table{}, false
	}
	return s.GetTable(relident.MustNew(name))
}

// Tables returns every table in the snapshot, ordered by name for
// deterministic iteration.
func (s *Snapshot) Tables() []Table {
	names := make([]string, 0, len(s.tables))
	for n := range s.tables {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]Table, 0, len(names))
	for _, n := range names {
		out = append(out, s.tables[n])
	}
	return out
}

// TableNames returns the sorted list of table names in the snapshot.
func (s *Snapshot) TableNames() []string {
	names := make([]string, 0, len(s.tables))
	for n := range s.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SnapshotFromTables rebuilds an already closure-complete Snapshot
// directly from a flat table list, re-running the same validation
// Registry.Build performs (every FK resolves, exactly one primary key
// per non-join table). It does not run the relationship-rewrite pass:
// callers must supply tables that have already been through it. This
// is the reconstruction path for a persisted snapshot loaded from disk
// — the document on disk is the output
// of a prior Registry.Build, not user-declared metadata, so replaying
// the rewrite would be wrong (relationship columns are already gone).
// Because a reloaded snapshot has no original type identity, each
// table's own name stands in as its TypeKey; GetTableByType over a
// reloaded snapshot is only meaningful by name.
func SnapshotFromTables(tables []Table) (*Snapshot, error) {
	snap := &Snapshot{
		tables:     make(map[string]Table, len(tables)),
		typeToName: make(map[TypeKey]string, len(tables)),
		nameToType: make(map[string]TypeKey, len(tables)),
	}

	for _, t := range tables {
		name := t.Name.String()
		if _, exists := snap.tables[name]; exists {
			return nil, DuplicateRegistrationError{Type: TypeKey(name)}
		}
		snap.tables[name] = t
		snap.typeToName[TypeKey(name)] = name
		snap.nameToType[name] = TypeKey(name)
	}

	for _, t := range snap.tables {
		if err := validateTable(t, snap); err != nil {
			return nil, BuildError{Err: err}
		}
	}

	return snap, nil
}
