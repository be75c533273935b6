// Package services – Collection
//
// This file implements Collection, the generic controller behind every
// resource. It validates typed inputs, applies list defaults and bounds, and
// runs each write in its own transaction through the repo layer. Per-entity
// behaviour (field allow-lists, filters, sort keys) lives in the input and
// query types declared next to each entity.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/referral-backend/internal/domain"
	"github.com/tbourn/referral-backend/internal/repo"
)

// CreateInput is a validated create payload that can build a new row.
type CreateInput[T any] interface {
	Model() (*T, error)
}

// PatchInput is a validated partial update. Changes returns the columns to
// write keyed by column name; TargetID is the id carried in the payload, if
// any.
type PatchInput interface {
	Changes() (map[string]any, error)
	TargetID() *uint
}

// Filter is a validated list request for one entity.
type Filter interface {
	Predicates() []repo.Predicate
	Ordering() (column string, desc bool)
	Paging() (skip, limit *int)
}

// Options tune list paging and create idempotency for all collections.
type Options struct {
	DefaultLimit   int
	MaxLimit       int
	IdempotencyTTL time.Duration
}

// DefaultOptions mirrors the configuration defaults.
var DefaultOptions = Options{DefaultLimit: 10, MaxLimit: 100, IdempotencyTTL: 24 * time.Hour}

// Collection provides create/list/get/update/delete for one model type.
type Collection[T domain.Record] struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Entity is the singular display name used in messages ("Job").
	Entity string

	DefaultLimit   int
	MaxLimit       int
	IdempotencyTTL time.Duration
}

// NewCollection constructs a Collection, filling zero options with defaults.
func NewCollection[T domain.Record](db *gorm.DB, entity string, opts Options) *Collection[T] {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultOptions.DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = DefaultOptions.MaxLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = DefaultOptions.IdempotencyTTL
	}
	return &Collection[T]{
		DB:             db,
		Entity:         entity,
		DefaultLimit:   opts.DefaultLimit,
		MaxLimit:       opts.MaxLimit,
		IdempotencyTTL: opts.IdempotencyTTL,
	}
}

// Scope is the collection's plural name; it keys idempotency records.
func (s *Collection[T]) Scope() string {
	var zero T
	return zero.TableName()
}

// Create validates in and inserts the new row.
func (s *Collection[T]) Create(ctx context.Context, in CreateInput[T]) (*T, error) {
	row, err := s.build(in)
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.Create(ctx, tx, row)
	})
	if err != nil {
		return nil, classify(s.Entity, err)
	}
	return row, nil
}

var errReplayRace = errors.New("idempotency key claimed concurrently")

// CreateOnce behaves like Create, except that a non-empty key already used
// for this collection within the TTL returns the row created by the first
// call and replayed == true. The row and the key are written in the same
// transaction.
func (s *Collection[T]) CreateOnce(ctx context.Context, key string, in CreateInput[T]) (row *T, replayed bool, err error) {
	if key == "" {
		row, err = s.Create(ctx, in)
		return row, false, err
	}
	row, err = s.build(in)
	if err != nil {
		return nil, false, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		var prior *T
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			rec, err := repo.GetIdempotency(ctx, tx, s.Scope(), key, time.Now().UTC())
			switch {
			case err == nil:
				prior, err = repo.Get[T](ctx, tx, rec.ResourceID)
				if err == nil {
					return nil
				}
				if !errors.Is(err, repo.ErrNotFound) {
					return err
				}
				// The original row is gone; the key is free again.
				if err := repo.DeleteIdempotency(ctx, tx, s.Scope(), key, time.Time{}); err != nil {
					return err
				}
			case !errors.Is(err, repo.ErrNotFound):
				return err
			}

			if err := repo.Create(ctx, tx, row); err != nil {
				return err
			}
			_, err = repo.CreateIdempotency(ctx, tx, s.Scope(), key, (*row).GetID(), s.IdempotencyTTL)
			if errors.Is(err, repo.ErrDuplicate) {
				return errReplayRace
			}
			return err
		})
		switch {
		case err == nil && prior != nil:
			return prior, true, nil
		case err == nil:
			return row, false, nil
		case errors.Is(err, errReplayRace):
			// Another request won and the rollback undid our insert; rebuild
			// the row so it carries no stale id, then look again.
			if row, err = s.build(in); err != nil {
				return nil, false, err
			}
		default:
			return nil, false, classify(s.Entity, err)
		}
	}
	return nil, false, classify(s.Entity, err)
}

// List validates f and returns one page of matching rows.
func (s *Collection[T]) List(ctx context.Context, f Filter) (repo.Page[T], error) {
	if err := checkStruct(s.Entity, f); err != nil {
		return repo.Page[T]{Results: []T{}}, err
	}
	skip, limit := 0, s.DefaultLimit
	sp, lp := f.Paging()
	if sp != nil {
		skip = *sp
	}
	if lp != nil {
		limit = *lp
	}
	switch {
	case skip < 0:
		return repo.Page[T]{Results: []T{}}, invalid(s.Entity, "skip must be at least 0")
	case limit < 0:
		return repo.Page[T]{Results: []T{}}, invalid(s.Entity, "limit must be at least 0")
	case limit > s.MaxLimit:
		return repo.Page[T]{Results: []T{}}, invalid(s.Entity, "limit must be at most %d", s.MaxLimit)
	}

	col, desc := f.Ordering()
	page, err := repo.List[T](ctx, s.DB, repo.ListQuery{
		Where:   f.Predicates(),
		OrderBy: col,
		Desc:    desc,
		Skip:    skip,
		Limit:   limit,
	})
	if err != nil {
		return page, classify(s.Entity, err)
	}
	return page, nil
}

// Get returns the row with the given id.
func (s *Collection[T]) Get(ctx context.Context, id uint) (*T, error) {
	row, err := repo.Get[T](ctx, s.DB, id)
	if err != nil {
		return nil, classify(s.Entity, err)
	}
	return row, nil
}

// Update applies in to the row with the given id. The payload may not carry
// an id of its own.
func (s *Collection[T]) Update(ctx context.Context, id uint, in PatchInput) (*T, error) {
	if in.TargetID() != nil {
		return nil, invalid(s.Entity, "id is not writable")
	}
	fields, err := s.changes(in)
	if err != nil {
		return nil, err
	}
	var row *T
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err = repo.UpdateFields[T](ctx, tx, id, fields)
		return err
	})
	if err != nil {
		return nil, classify(s.Entity, err)
	}
	return row, nil
}

// UpdateBatch applies every entry to the row named by its id, in order, in
// one transaction. All entries are validated before anything is written.
// Entries whose id does not exist are skipped; the updated rows are returned.
func (s *Collection[T]) UpdateBatch(ctx context.Context, ins []PatchInput) ([]T, error) {
	type step struct {
		id     uint
		fields map[string]any
	}
	steps := make([]step, 0, len(ins))
	for i, in := range ins {
		id := in.TargetID()
		if id == nil {
			return nil, invalid(s.Entity, "entry %d: id is required", i)
		}
		fields, err := s.changes(in)
		if err != nil {
			var se *Error
			if errors.As(err, &se) {
				se.Detail = fmt.Sprintf("entry %d: %s", i, se.Detail)
			}
			return nil, err
		}
		steps = append(steps, step{id: *id, fields: fields})
	}

	updated := []T{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, st := range steps {
			row, err := repo.UpdateFields[T](ctx, tx, st.id, st.fields)
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			updated = append(updated, *row)
		}
		return nil
	})
	if err != nil {
		return nil, classify(s.Entity, err)
	}
	return updated, nil
}

// Delete removes the row with the given id.
func (s *Collection[T]) Delete(ctx context.Context, id uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.Delete[T](ctx, tx, id)
	})
	return classify(s.Entity, err)
}

// DeleteBatch removes every row whose id is listed and returns the ids that
// existed. Unknown ids are ignored.
func (s *Collection[T]) DeleteBatch(ctx context.Context, ids []uint) ([]uint, error) {
	var deleted []uint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = repo.DeleteIDs[T](ctx, tx, ids)
		return err
	})
	if err != nil {
		return nil, classify(s.Entity, err)
	}
	return deleted, nil
}

func (s *Collection[T]) build(in CreateInput[T]) (*T, error) {
	if err := checkStruct(s.Entity, in); err != nil {
		return nil, err
	}
	row, err := in.Model()
	if err != nil {
		return nil, invalid(s.Entity, "%s", err.Error())
	}
	return row, nil
}

func (s *Collection[T]) changes(in PatchInput) (map[string]any, error) {
	if err := checkStruct(s.Entity, in); err != nil {
		return nil, err
	}
	fields, err := in.Changes()
	if err != nil {
		return nil, invalid(s.Entity, "%s", err.Error())
	}
	return fields, nil
}
