// SPDX-License-Identifier: Apache-2.0

// Package relstate persists a schema Snapshot to a JSON file so
// run_migrations can diff against the previously-applied schema on the
// next startup. It is the
// file-backed counterpart of pkg/state (which persists
// migration history inside Postgres); here the document lives on disk
// at an explicit path rather than in a database table. Atomic rewrite
// follows the common Go write-to-temp + os.Rename idiom.
package relstate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/relormdb/relorm/pkg/relident"
	"github.com/relormdb/relorm/pkg/relschema"
)

// DefaultPath is the default location of the persisted snapshot,
// relative to the working directory the engine is started from.
const DefaultPath = "./.table_data/last.migration"

// schemaVersion is the only document version this revision reads or
// writes.
const schemaVersion = 1

//go:embed schemadoc/snapshot.schema.json
var schemaDocJSON []byte

var validator = mustCompileValidator()

func mustCompileValidator() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaDocJSON))
	if err != nil {
		panic(fmt.Sprintf("relstate: embedded schema document is invalid JSON: %s", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("snapshot.schema.json", doc); err != nil {
		panic(fmt.Sprintf("relstate: embedded schema document failed to register: %s", err))
	}
	sch, err := c.Compile("snapshot.schema.json")
	if err != nil {
		panic(fmt.Sprintf("relstate: embedded schema document failed to compile: %s", err))
	}
	return sch
}

// document is the on-disk shape: {version, tables: [...]}. Field names
// match schemadoc/snapshot.schema.json exactly.
type document struct {
	Version int        `json:"version"`
	Tables  []tableDoc `json:"tables"`
}

type tableDoc struct {
	Name        string               `json:"name"`
	JoinTable   bool                 `json:"joinTable,omitempty"`
	Columns     []columnDoc          `json:"columns"`
	Constraints []tableConstraintDoc `json:"constraints,omitempty"`
}

type columnDoc struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Constraints []constraintDoc `json:"constraints,omitempty"`
}

type constraintDoc struct {
	Kind     string `json:"kind"`
	Table    string `json:"table,omitempty"`
	Column   string `json:"column,omitempty"`
	Match    string `json:"match,omitempty"`
	OnDelete string `json:"onDelete,omitempty"`
	OnUpdate string `json:"onUpdate,omitempty"`
}

type tableConstraintDoc struct {
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Columns    []string       `json:"columns"`
	ForeignKey *constraintDoc `json:"foreignKey,omitempty"`
}

// Load reads the persisted snapshot at path. If the file does not
// exist, it returns (nil, nil): the caller should diff against the
// empty schema.
func Load(path string) (*relschema.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("relstate: reading %s: %w", path, err)
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, fmt.Errorf("relstate: %s is not valid JSON: %w", path, err)
	}
	if err := validator.Validate(instance); err != nil {
		return nil, fmt.Errorf("relstate: %s does not match the snapshot schema: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("relstate: decoding %s: %w", path, err)
	}

	tables, err := tablesFromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("relstate: %s: %w", path, err)
	}

	snap, err := relschema.SnapshotFromTables(tables)
	if err != nil {
		return nil, fmt.Errorf("relstate: %s describes an invalid schema: %w", path, err)
	}
	return snap, nil
}

// Save atomically rewrites the persisted snapshot at path: it writes
// to a temp file in the same directory and renames over the target, so
// a crash mid-write never leaves a half-written document behind.
func Save(path string, snap *relschema.Snapshot) error {
	doc := documentFromSnapshot(snap)

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("relstate: marshalling snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("relstate: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("relstate: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("relstate: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("relstate: closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("relstate: renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

func documentFromSnapshot(snap *relschema.Snapshot) document {
	doc := document{Version: schemaVersion}
	if snap == nil {
		return doc
	}

	for _, t := range snap.Tables() {
		td := tableDoc{
			Name:      t.Name.String(),
			JoinTable: t.IsJoinTable(),
		}
		for _, c := range t.Columns() {
			td.Columns = append(td.Columns, columnDocFromColumn(c))
		}
		for _, tc := range t.TableConstraints() {
			td.Constraints = append(td.Constraints, tableConstraintDocFromConstraint(tc))
		}
		doc.Tables = append(doc.Tables, td)
	}
	return doc
}

func columnDocFromColumn(c relschema.Column) columnDoc {
	cd := columnDoc{Name: c.Name.String(), Type: string(c.Type)}
	for _, cs := range c.Constraints {
		cd.Constraints = append(cd.Constraints, constraintDocFromConstraint(cs))
	}
	return cd
}

func constraintDocFromConstraint(cs relschema.Constraint) constraintDoc {
	d := constraintDoc{Kind: string(cs.Kind)}
	if cs.Kind == relschema.ConstraintReferences {
		d.Table = cs.ForeignKey.Table.String()
		d.Column = cs.ForeignKey.Column.String()
		d.Match = string(cs.ForeignKey.Match)
		d.OnDelete = string(cs.ForeignKey.OnDelete)
		d.OnUpdate = string(cs.ForeignKey.OnUpdate)
	}
	return d
}

func tableConstraintDocFromConstraint(tc relschema.TableConstraint) tableConstraintDoc {
	d := tableConstraintDoc{Name: tc.Name, Kind: string(tc.Kind)}
	for _, c := range tc.Columns {
		d.Columns = append(d.Columns, c.String())
	}
	if tc.Kind == relschema.ConstraintReferences {
		fk := constraintDocFromConstraint(relschema.Constraint{Kind: tc.Kind, ForeignKey: tc.ForeignKey})
		d.ForeignKey = &fk
	}
	return d
}

func tablesFromDocument(doc document) ([]relschema.Table, error) {
	tables := make([]relschema.Table, 0, len(doc.Tables))
	for _, td := range doc.Tables {
		name, err := relident.New(td.Name)
		if err != nil {
			return nil, err
		}
		t := relschema.NewTable(name)
		if td.JoinTable {
			t = t.MarkJoinTable()
		}
		for _, cd := range td.Columns {
			col, err := columnFromDoc(cd)
			if err != nil {
				return nil, err
			}
			t = t.Column(col)
		}
		for _, tcd := range td.Constraints {
			tc, err := tableConstraintFromDoc(tcd)
			if err != nil {
				return nil, err
			}
			t = t.WithTableConstraint(tc)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func columnFromDoc(cd columnDoc) (relschema.Column, error) {
	name, err := relident.New(cd.Name)
	if err != nil {
		return relschema.Column{}, err
	}
	col := relschema.Column{Name: name, Type: relschema.ColumnType(cd.Type)}
	for _, csd := range cd.Constraints {
		cs, err := constraintFromDoc(csd)
		if err != nil {
			return relschema.Column{}, err
		}
		col.Constraints = append(col.Constraints, cs)
	}
	return col, nil
}

func constraintFromDoc(csd constraintDoc) (relschema.Constraint, error) {
	cs := relschema.Constraint{Kind: relschema.ConstraintKind(csd.Kind)}
	if cs.Kind == relschema.ConstraintReferences {
		ref, err := foreignKeyFromDoc(csd)
		if err != nil {
			return relschema.Constraint{}, err
		}
		cs.ForeignKey = ref
	}
	return cs, nil
}

func foreignKeyFromDoc(csd constraintDoc) (relschema.ForeignKeyRef, error) {
	table, err := relident.New(csd.Table)
	if err != nil {
		return relschema.ForeignKeyRef{}, err
	}
	column, err := relident.New(csd.Column)
	if err != nil {
		return relschema.ForeignKeyRef{}, err
	}
	return relschema.ForeignKeyRef{
		Table:    table,
		Column:   column,
		Match:    relschema.MatchType(csd.Match),
		OnDelete: relschema.ReferentialAction(csd.OnDelete),
		OnUpdate: relschema.ReferentialAction(csd.OnUpdate),
	}, nil
}

func tableConstraintFromDoc(tcd tableConstraintDoc) (relschema.TableConstraint, error) {
	tc := relschema.TableConstraint{Name: tcd.Name, Kind: relschema.ConstraintKind(tcd.Kind)}
	for _, cname := range tcd.Columns {
		id, err := relident.New(cname)
		if err != nil {
			return relschema.TableConstraint{}, err
		}
		tc.Columns = append(tc.Columns, id)
	}
	if tcd.ForeignKey != nil {
		ref, err := foreignKeyFromDoc(*tcd.ForeignKey)
		if err != nil {
			return relschema.TableConstraint{}, err
		}
		tc.ForeignKey = ref
	}
	return tc, nil
}
