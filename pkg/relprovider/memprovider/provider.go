// SPDX-License-Identifier: Apache-2.0

// Package memprovider is an in-memory, mutex-guarded reference
// implementation of relprovider.DataProvider, intended for tests only —
// no concurrent writer fairness guarantees. It reuses relquery's
// filter vocabulary only at the type level; matching itself is
// done directly against in-memory Records rather than by rendering SQL,
// since there is no database to send SQL to.
package memprovider

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relormdb/relorm/pkg/relerrors"
	"github.com/relormdb/relorm/pkg/relident"
	"github.com/relormdb/relorm/pkg/relprovider"
	"github.com/relormdb/relorm/pkg/relquery"
	"github.com/relormdb/relorm/pkg/relschema"
)

// Provider is an in-memory reference DataProvider for a single table.
type Provider struct {
	table relident.Identifier

	mu   sync.Mutex
	rows map[string]*relschema.Record
}

var _ relprovider.DataProvider = (*Provider)(nil)

// New returns an empty in-memory provider for table.
func New(table relident.Identifier) *Provider {
	return &Provider{table: table, rows: make(map[string]*relschema.Record)}
}

func (p *Provider) All(ctx context.Context) ([]*relschema.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.sortedRows(), nil
}

func (p *Provider) Get(ctx context.Context, pred relquery.Filter) (*relschema.Record, error) {
	matches, err := p.matching(ctx, pred)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, relerrors.DataIntegrityError{Reason: "Get observed more than one matching row"}
	}
}

func (p *Provider) Create(ctx context.Context, req *relschema.Record) (*relschema.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	idCol := relident.MustNew("id")
	if _, ok := req.Get(idCol); !ok {
		req.Set(idCol, relschema.UuidValue(uuid.NewString()))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	idVal, _ := req.Get(idCol)
	p.rows[idVal.Uuid] = req
	return req, nil
}

func (p *Provider) Update(ctx context.Context, rec *relschema.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	idCol := relident.MustNew("id")
	idVal, ok := rec.Get(idCol)
	if !ok {
		return relerrors.DataIntegrityError{Reason: "Update requires a record with an id"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.rows[idVal.Uuid]; !exists {
		return relerrors.NotFoundError{Table: p.table.String(), ID: idVal.Uuid}
	}
	p.rows[idVal.Uuid] = rec
	return nil
}

func (p *Provider) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.rows[id]; !exists {
		return relerrors.NotFoundError{Table: p.table.String(), ID: id}
	}
	delete(p.rows, id)
	return nil
}

func (p *Provider) WithFilter(pred relquery.Filter) relprovider.ExecutableQuery {
	return &ExecutableQuery{provider: p, pred: pred}
}

func (p *Provider) matching(ctx context.Context, pred relquery.Filter) ([]*relschema.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var out []*relschema.Record
	for _, rec := range p.sortedRows() {
		if matchFilter(rec, pred) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// sortedRows returns the provider's rows ordered by id for
// deterministic iteration. Callers must hold p.mu.
func (p *Provider) sortedRows() []*relschema.Record {
	ids := make([]string, 0, len(p.rows))
	for id := range p.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*relschema.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.rows[id])
	}
	return out
}

// matchFilter evaluates f against rec directly. A zero-valued Filter
// (Kind == "") matches everything — the no-predicate case used by
// WithFilter(Filter{}).
func matchFilter(rec *relschema.Record, f relquery.Filter) bool {
	switch f.Kind {
	case "":
		return true
	case relquery.FilterAnd:
		for _, c := range f.Children {
			if !matchFilter(rec, c) {
				return false
			}
		}
		return true
	case relquery.FilterOr:
		for _, c := range f.Children {
			if matchFilter(rec, c) {
				return true
			}
		}
		return false
	case relquery.FilterIn:
		v, ok := rec.Get(f.Left.Column)
		if !ok {
			return false
		}
		for _, want := range f.Values {
			if scalarEqual(v, want) {
				return true
			}
		}
		return false
	default:
		v, ok := rec.Get(f.Left.Column)
		if !ok {
			return false
		}
		return compareScalar(f.Kind, v, f.Value)
	}
}

func compareScalar(kind relquery.FilterKind, v relschema.ColumnValue, want any) bool {
	switch kind {
	case relquery.FilterEq:
		return scalarEqual(v, want)
	case relquery.FilterNe:
		return !scalarEqual(v, want)
	case relquery.FilterLike:
		s, ok := want.(string)
		return ok && likeMatch(scalarString(v), s)
	case relquery.FilterLt:
		return scalarLess(v, want)
	case relquery.FilterLe:
		return scalarLess(v, want) || scalarEqual(v, want)
	case relquery.FilterGt:
		return !scalarLess(v, want) && !scalarEqual(v, want)
	case relquery.FilterGe:
		return !scalarLess(v, want)
	default:
		return false
	}
}

// likeMatch implements the subset of SQL LIKE this in-memory provider
// supports: a trailing and/or leading "%" wildcard, matching the
// forms relquery's tests actually exercise (e.g. "BUG%").
func likeMatch(s, pattern string) bool {
	switch {
	case strings.HasSuffix(pattern, "%") && strings.HasPrefix(pattern, "%"):
		return strings.Contains(s, strings.Trim(pattern, "%"))
	case strings.HasSuffix(pattern, "%"):
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "%"))
	case strings.HasPrefix(pattern, "%"):
		return strings.HasSuffix(s, strings.TrimPrefix(pattern, "%"))
	default:
		return s == pattern
	}
}

func scalarString(v relschema.ColumnValue) string {
	switch v.Kind {
	case relschema.ValueString:
		return v.String
	case relschema.ValueUuid:
		return v.Uuid
	case relschema.ValueJson:
		return v.Json
	default:
		return ""
	}
}

func scalarEqual(v relschema.ColumnValue, want any) bool {
	switch v.Kind {
	case relschema.ValueBool:
		b, ok := want.(bool)
		return ok && v.Bool == b
	case relschema.ValueInt:
		return scalarIntEqual(v.Int, want)
	case relschema.ValueFloat:
		f, ok := want.(float64)
		return ok && v.Float == f
	case relschema.ValueString:
		s, ok := want.(string)
		return ok && v.String == s
	case relschema.ValueUuid:
		s, ok := want.(string)
		return ok && v.Uuid == s
	case relschema.ValueJson:
		s, ok := want.(string)
		return ok && v.Json == s
	case relschema.ValueNull:
		return want == nil
	default:
		return false
	}
}

func scalarIntEqual(have int64, want any) bool {
	switch w := want.(type) {
	case int:
		return have == int64(w)
	case int64:
		return have == w
	default:
		return false
	}
}

func scalarLess(v relschema.ColumnValue, want any) bool {
	switch v.Kind {
	case relschema.ValueInt:
		switch w := want.(type) {
		case int:
			return v.Int < int64(w)
		case int64:
			return v.Int < w
		default:
			return false
		}
	case relschema.ValueFloat:
		w, ok := want.(float64)
		return ok && v.Float < w
	case relschema.ValueTimestamp:
		w, ok := want.(time.Time)
		return ok && v.Timestamp.Before(w)
	case relschema.ValueString:
		w, ok := want.(string)
		return ok && v.String < w
	default:
		return false
	}
}

// ExecutableQuery is memprovider's implementation of
// relprovider.ExecutableQuery.
type ExecutableQuery struct {
	provider *Provider
	pred     relquery.Filter
	order    []relquery.OrderTerm
	limitN   *int
}

var _ relprovider.ExecutableQuery = (*ExecutableQuery)(nil)

func (q *ExecutableQuery) OrderBy(col relquery.ColumnRef, dir relquery.OrderDirection) relprovider.ExecutableQuery {
	q.order = append(q.order, relquery.OrderTerm{Column: col, Direction: dir})
	return q
}

func (q *ExecutableQuery) Limit(n int) relprovider.ExecutableQuery {
	q.limitN = &n
	return q
}

func (q *ExecutableQuery) Execute(ctx context.Context) ([]*relschema.Record, error) {
	rows, err := q.provider.matching(ctx, q.pred)
	if err != nil {
		return nil, err
	}

	for i := len(q.order) - 1; i >= 0; i-- {
		term := q.order[i]
		sort.SliceStable(rows, func(a, b int) bool {
			va, _ := rows[a].Get(term.Column.Column)
			vb, _ := rows[b].Get(term.Column.Column)
			if term.Direction == relquery.Desc {
				return scalarLess(vb, scalarRawValue(va))
			}
			return scalarLess(va, scalarRawValue(vb))
		})
	}

	if q.limitN != nil && *q.limitN < len(rows) {
		rows = rows[:*q.limitN]
	}
	return rows, nil
}

// scalarRawValue extracts the comparable Go value out of a
// ColumnValue so it can be passed back into scalarLess as the "want"
// side.
func scalarRawValue(v relschema.ColumnValue) any {
	switch v.Kind {
	case relschema.ValueInt:
		return v.Int
	case relschema.ValueFloat:
		return v.Float
	case relschema.ValueString:
		return v.String
	case relschema.ValueUuid:
		return v.Uuid
	default:
		return nil
	}
}
