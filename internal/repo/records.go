// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the generic record functions shared by
// every collection (users, jobs, companies, referrals).
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - When a row is not found, functions return ErrNotFound
//     (gorm.ErrRecordNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated; see IsConstraintViolation.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Create inserts row and fills its primary key and managed timestamps.
func Create[T any](ctx context.Context, db *gorm.DB, row *T) error {
	return db.WithContext(ctx).Create(row).Error
}

// Get loads a single row of T by primary key, or ErrNotFound.
func Get[T any](ctx context.Context, db *gorm.DB, id uint) (*T, error) {
	var row T
	if err := db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateFields overwrites the given columns of the row identified by id and
// returns the reloaded row. Zero values in fields are written as-is. If the
// row does not exist, it returns ErrNotFound.
func UpdateFields[T any](ctx context.Context, db *gorm.DB, id uint, fields map[string]any) (*T, error) {
	row, err := Get[T](ctx, db, id)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return row, nil
	}
	if err := db.WithContext(ctx).Model(row).Updates(fields).Error; err != nil {
		return nil, err
	}
	return Get[T](ctx, db, id)
}

// Delete removes the row identified by id. If no row is affected it returns
// ErrNotFound.
func Delete[T any](ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ExistingIDs returns the subset of ids that resolve to a row of T, in
// ascending order.
func ExistingIDs[T any](ctx context.Context, db *gorm.DB, ids []uint) ([]uint, error) {
	out := []uint{}
	if len(ids) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).
		Model(new(T)).
		Where("id IN ?", ids).
		Order("id").
		Pluck("id", &out).Error
	return out, err
}

// DeleteIDs removes every row of T whose id is in ids and returns the ids
// that actually existed. Unknown ids are ignored.
func DeleteIDs[T any](ctx context.Context, db *gorm.DB, ids []uint) ([]uint, error) {
	found, err := ExistingIDs[T](ctx, db, ids)
	if err != nil || len(found) == 0 {
		return found, err
	}
	if err := db.WithContext(ctx).Where("id IN ?", found).Delete(new(T)).Error; err != nil {
		return nil, err
	}
	return found, nil
}
