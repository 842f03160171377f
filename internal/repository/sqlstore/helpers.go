package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"registrar/internal/domain"
	"registrar/internal/query"
	"registrar/internal/repository"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToInt64 converts sql.NullInt64 to int64, 0 when NULL
func nullToInt64(ni sql.NullInt64) int64 {
	if ni.Valid {
		return ni.Int64
	}
	return 0
}

// int64ToNull writes 0 as NULL so an unset foreign key hits NOT NULL
func int64ToNull(i int64) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: i, Valid: true}
}

// ============================================================================
// Table Descriptors
// ============================================================================
//
// Column order must match between:
// - table.columns
// - recordRow.scanArgs()
// - writeArgs()
//
// The id column always comes first in SELECT lists and is never written.

// table describes one entity table
type table struct {
	name    string
	columns []string
}

var tables = map[domain.EntityType]table{
	domain.TypeProfessor: {name: "professor", columns: []string{"name", "email"}},
	domain.TypeCourse:    {name: "course", columns: []string{"name", "credits", "professor_id"}},
	domain.TypeStudent:   {name: "student", columns: []string{"name", "email"}},
}

func tableFor(t domain.EntityType) (table, error) {
	tb, ok := tables[t]
	if !ok {
		return table{}, fmt.Errorf("unknown entity type %q", t)
	}
	return tb, nil
}

// selectList returns the id plus all columns, qualified with alias if set
func (tb table) selectList(alias string) []string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	cols := make([]string, 0, len(tb.columns)+1)
	cols = append(cols, prefix+"id")
	for _, c := range tb.columns {
		cols = append(cols, prefix+c)
	}
	return cols
}

// from returns the table name followed by alias if set
func (tb table) from(alias string) string {
	if alias == "" {
		return tb.name
	}
	return tb.name + " " + alias
}

// ============================================================================
// Record Row Scanner
// ============================================================================

// recordRow holds the columns of any entity table for scanning
type recordRow struct {
	ID          int64
	Name        string
	Email       sql.NullString
	Credits     sql.NullFloat64
	ProfessorID sql.NullInt64
}

// scanArgs returns pointers matching selectList order for t
func (r *recordRow) scanArgs(t domain.EntityType) []any {
	switch t {
	case domain.TypeCourse:
		return []any{&r.ID, &r.Name, &r.Credits, &r.ProfessorID}
	default:
		return []any{&r.ID, &r.Name, &r.Email}
	}
}

func (r *recordRow) toRecord(t domain.EntityType) repository.Record {
	return repository.Record{
		Type:        t,
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email.String,
		Credits:     r.Credits.Float64,
		ProfessorID: nullToInt64(r.ProfessorID),
	}
}

// writeArgs returns the writable column values of rec in table.columns order
func writeArgs(rec repository.Record) []any {
	switch rec.Type {
	case domain.TypeCourse:
		return []any{rec.Name, rec.Credits, int64ToNull(rec.ProfessorID)}
	default:
		return []any{rec.Name, rec.Email}
	}
}

// ============================================================================
// Condition Builder
// ============================================================================

// conditions turns filters into predicates on columns qualified with alias.
// An IN over an empty set renders as a predicate that is never true.
func conditions(alias string, filters []query.Filter) []squirrel.Sqlizer {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	preds := make([]squirrel.Sqlizer, 0, len(filters))
	for _, f := range filters {
		col := prefix + string(f.Field)
		switch f.Op {
		case query.OpIn:
			preds = append(preds, squirrel.Eq{col: f.Values})
		case query.OpGt:
			preds = append(preds, squirrel.Gt{col: f.Values[0]})
		case query.OpLt:
			preds = append(preds, squirrel.Lt{col: f.Values[0]})
		default:
			preds = append(preds, squirrel.Eq{col: f.Values[0]})
		}
	}
	return preds
}
