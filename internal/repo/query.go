// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the entity-agnostic list engine: it turns a
// ListQuery (predicates, ordering, skip/limit) into a total count plus one
// bounded, ordered page of rows.
//
// Column names in predicates and ordering come from code-level allow-lists in
// the services package, never from raw client input.
package repo

import (
	"context"
	"database/sql/driver"
	"strings"

	gosqlite "github.com/glebarez/go-sqlite"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Op is the comparison applied by a Predicate.
type Op int

const (
	// OpEq matches column = value.
	OpEq Op = iota
	// OpContains matches a case-insensitive substring of a text column.
	OpContains
	// OpAtLeast matches column >= value (inclusive lower bound).
	OpAtLeast
	// OpAtMost matches column <= value (inclusive upper bound).
	OpAtMost
)

// Predicate is one filter condition on a single column.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// Eq builds an equality predicate.
func Eq(column string, v any) Predicate { return Predicate{Column: column, Op: OpEq, Value: v} }

// Contains builds a case-insensitive substring predicate.
func Contains(column, needle string) Predicate {
	return Predicate{Column: column, Op: OpContains, Value: needle}
}

// AtLeast builds an inclusive lower-bound predicate.
func AtLeast(column string, v any) Predicate {
	return Predicate{Column: column, Op: OpAtLeast, Value: v}
}

// AtMost builds an inclusive upper-bound predicate.
func AtMost(column string, v any) Predicate {
	return Predicate{Column: column, Op: OpAtMost, Value: v}
}

// ListQuery describes one list request against a single table.
//
// An empty OrderBy leaves the natural order of the store plus the id
// tiebreaker. Limit == 0 yields an empty page (the total is still computed).
type ListQuery struct {
	Where   []Predicate
	OrderBy string
	Desc    bool
	Skip    int
	Limit   int
}

// Page is the pagination envelope returned by every list endpoint.
type Page[T any] struct {
	Total   int64 `json:"total"`
	Skip    int   `json:"skip"`
	Limit   int   `json:"limit"`
	Results []T   `json:"results"`
}

// List counts the rows of T matching q and loads the requested window.
// Rows are ordered by q.OrderBy, then by id ascending, so that consecutive
// windows never overlap or skip rows when no writes intervene.
func List[T any](ctx context.Context, db *gorm.DB, q ListQuery) (Page[T], error) {
	page := Page[T]{Skip: q.Skip, Limit: q.Limit, Results: []T{}}

	base := Filter(db.WithContext(ctx).Model(new(T)), q.Where)
	if err := base.Count(&page.Total).Error; err != nil {
		return page, err
	}
	if page.Total == 0 || q.Limit <= 0 || int64(q.Skip) >= page.Total {
		return page, nil
	}

	tx := Filter(db.WithContext(ctx).Model(new(T)), q.Where)
	if q.OrderBy != "" {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderBy}, Desc: q.Desc})
	}
	tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})

	var out []T
	if err := tx.Offset(q.Skip).Limit(q.Limit).Find(&out).Error; err != nil {
		return page, err
	}
	if out != nil {
		page.Results = out
	}
	return page, nil
}

// Filter applies predicates to tx as AND-ed WHERE clauses.
func Filter(tx *gorm.DB, preds []Predicate) *gorm.DB {
	for _, p := range preds {
		col := clause.Column{Name: p.Column}
		switch p.Op {
		case OpEq:
			tx = tx.Where(clause.Eq{Column: col, Value: p.Value})
		case OpContains:
			needle, _ := p.Value.(string)
			fold := foldFunc(tx)
			tx = tx.Where(clause.Expr{
				SQL:  fold + "(?) LIKE " + fold + "(?) ESCAPE '\\'",
				Vars: []any{col, "%" + escapeLike(needle) + "%"},
			})
		case OpAtLeast:
			tx = tx.Where(clause.Gte{Column: col, Value: p.Value})
		case OpAtMost:
			tx = tx.Where(clause.Lte{Column: col, Value: p.Value})
		}
	}
	return tx
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE wildcards so the needle matches literally.
func escapeLike(s string) string { return likeEscaper.Replace(s) }

// casefoldFunc is registered with the sqlite driver. SQLite's own LOWER and
// LIKE only fold ASCII, so "École" would never match "école".
const casefoldFunc = "casefold"

func init() {
	gosqlite.MustRegisterDeterministicScalarFunction(casefoldFunc, 1,
		func(_ *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return cases.Fold().String(v), nil
			case []byte:
				return cases.Fold().String(string(v)), nil
			default:
				return v, nil
			}
		})
}

// foldFunc names the SQL function that case-folds both sides of a substring
// match. Postgres LOWER is Unicode aware.
func foldFunc(tx *gorm.DB) string {
	if tx.Dialector != nil && tx.Dialector.Name() == DriverSQLite {
		return casefoldFunc
	}
	return "LOWER"
}
