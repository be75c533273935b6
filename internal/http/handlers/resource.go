// Package handlers provides HTTP handler implementations for the public API.
//
// This file implements Resource, the generic handler set mounted once per
// collection (users, jobs, companies, referrals). Each Resource decodes the
// entity's typed create/patch/query inputs and delegates to a Store; the
// services layer owns validation and persistence.
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/referral-backend/internal/http/middleware"
	"github.com/tbourn/referral-backend/internal/repo"
	"github.com/tbourn/referral-backend/internal/services"
)

// Store is the collection behaviour a Resource needs. services.Collection
// satisfies it.
type Store[T any] interface {
	CreateOnce(ctx context.Context, key string, in services.CreateInput[T]) (*T, bool, error)
	List(ctx context.Context, f services.Filter) (repo.Page[T], error)
	Get(ctx context.Context, id uint) (*T, error)
	Update(ctx context.Context, id uint, in services.PatchInput) (*T, error)
	UpdateBatch(ctx context.Context, ins []services.PatchInput) ([]T, error)
	Delete(ctx context.Context, id uint) error
	DeleteBatch(ctx context.Context, ids []uint) ([]uint, error)
}

// Resource serves the seven collection endpoints for model T, decoding
// create bodies into C, patch bodies into P and query strings into Q.
type Resource[T any, C services.CreateInput[T], P services.PatchInput, Q services.Filter] struct {
	store  Store[T]
	entity string // singular display name, "Job"
	plural string // lower-case plural, "jobs"
}

// NewResource builds a Resource over store.
func NewResource[T any, C services.CreateInput[T], P services.PatchInput, Q services.Filter](store Store[T], entity, plural string) *Resource[T, C, P, Q] {
	return &Resource[T, C, P, Q]{store: store, entity: entity, plural: plural}
}

// Register mounts the endpoints on g. Collection routes answer with and
// without the trailing slash.
func (h *Resource[T, C, P, Q]) Register(g *gin.RouterGroup) {
	for _, root := range []string{"", "/"} {
		g.POST(root, h.Create)
		g.GET(root, h.List)
		g.PUT(root, h.UpdateBatch)
		g.DELETE(root, h.DeleteBatch)
	}
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// Create inserts a new record and answers 201 with it. With an
// Idempotency-Key header, a repeated request within the TTL answers 200
// with the record created the first time.
func (h *Resource[T, C, P, Q]) Create(c *gin.Context) {
	var in C
	if !decodeBody(c, &in) {
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)
	row, replayed, err := h.store.CreateOnce(c.Request.Context(), key, in)
	if err != nil {
		writeError(c, err)
		return
	}
	if replayed {
		// prechecked is false when the first request committed after the
		// middleware lookup ran.
		middleware.LoggerFrom(c).Debug().
			Str("entity", h.entity).
			Bool("prechecked", middleware.IsReplay(c)).
			Msg("idempotent replay")
		ok(c, http.StatusOK, row)
		return
	}
	middleware.RecordWrite(h.entity, "create", 1)
	ok(c, http.StatusCreated, row)
}

// List answers with one page of records matching the query filters.
func (h *Resource[T, C, P, Q]) List(c *gin.Context) {
	var q Q
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.store.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

// Get answers with the record named by :id.
func (h *Resource[T, C, P, Q]) Get(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	row, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, row)
}

// Update applies the body's fields to the record named by :id.
func (h *Resource[T, C, P, Q]) Update(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var in P
	if !decodeBody(c, &in) {
		return
	}
	row, err := h.store.Update(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.RecordWrite(h.entity, "update", 1)
	ok(c, http.StatusOK, row)
}

// UpdateBatch applies a list of {id, ...fields} entries in one transaction
// and answers with the records that were updated.
func (h *Resource[T, C, P, Q]) UpdateBatch(c *gin.Context) {
	var entries []P
	if !decodeBody(c, &entries) {
		return
	}
	ins := make([]services.PatchInput, len(entries))
	for i := range entries {
		ins[i] = entries[i]
	}
	rows, err := h.store.UpdateBatch(c.Request.Context(), ins)
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.RecordWrite(h.entity, "update", len(rows))
	ok(c, http.StatusOK, rows)
}

// Delete removes the record named by :id.
func (h *Resource[T, C, P, Q]) Delete(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	middleware.RecordWrite(h.entity, "delete", 1)
	ok(c, http.StatusOK, MessageResponse{Message: h.entity + " deleted successfully."})
}

// DeleteBatch removes every record whose id is in the body's list and
// reports which ones existed.
func (h *Resource[T, C, P, Q]) DeleteBatch(c *gin.Context) {
	var ids []uint
	if !decodeBody(c, &ids) {
		return
	}
	deleted, err := h.store.DeleteBatch(c.Request.Context(), ids)
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.RecordWrite(h.entity, "delete", len(deleted))
	ok(c, http.StatusOK, BatchDeleteResponse{
		Message: fmt.Sprintf("Multiple %s deleted successfully.", h.plural),
		Deleted: deleted,
	})
}
