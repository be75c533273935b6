package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/referral-backend/internal/domain"
)

func TestCreateGet_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	j := &domain.Job{JobURL: "https://jobs.example.com/1", Role: "SRE", Skills: []string{"go", "k8s"}}
	if err := Create(ctx, db, j); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if j.ID == 0 || j.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at to be set: %+v", j)
	}

	got, err := Get[domain.Job](ctx, db, j.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Role != "SRE" || len(got.Skills) != 2 || got.Status != domain.JobStatusNew {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := Get[domain.User](context.Background(), db, 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateFields_WritesZeroValues(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := &domain.Company{Name: "Acme", Domain: "acme.com", IsVerified: 1}
	if err := Create(ctx, db, c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := UpdateFields[domain.Company](ctx, db, c.ID, map[string]any{"is_verified": 0, "domain": ""})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if got.IsVerified != 0 || got.Domain != "" || got.Name != "Acme" {
		t.Fatalf("unexpected row after update: %+v", got)
	}

	if _, err := UpdateFields[domain.Company](ctx, db, 999, map[string]any{"name": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateFields_NoChanges(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := &domain.Company{Name: "Acme"}
	if err := Create(ctx, db, c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := UpdateFields[domain.Company](ctx, db, c.ID, nil)
	if err != nil || got.Name != "Acme" {
		t.Fatalf("expected unchanged row, got %+v err=%v", got, err)
	}
}

func TestDelete_ThenGetNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := &domain.Company{Name: "Acme"}
	if err := Create(ctx, db, c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := Delete[domain.Company](ctx, db, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := Get[domain.Company](ctx, db, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := Delete[domain.Company](ctx, db, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteIDs_MixedExistingAndUnknown(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var ids []uint
	for _, n := range []string{"a", "b", "c"} {
		c := &domain.Company{Name: n}
		if err := Create(ctx, db, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, c.ID)
	}

	deleted, err := DeleteIDs[domain.Company](ctx, db, []uint{ids[2], 777, ids[0]})
	if err != nil {
		t.Fatalf("DeleteIDs: %v", err)
	}
	if len(deleted) != 2 || deleted[0] != ids[0] || deleted[1] != ids[2] {
		t.Fatalf("deleted = %v; want [%d %d]", deleted, ids[0], ids[2])
	}

	left, err := ExistingIDs[domain.Company](ctx, db, ids)
	if err != nil {
		t.Fatalf("ExistingIDs: %v", err)
	}
	if len(left) != 1 || left[0] != ids[1] {
		t.Fatalf("remaining = %v; want [%d]", left, ids[1])
	}

	none, err := DeleteIDs[domain.Company](ctx, db, nil)
	if err != nil || len(none) != 0 {
		t.Fatalf("empty input: got %v err=%v", none, err)
	}
}

func TestDelete_CascadesReferrals(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := &domain.User{Name: "Ann", Email: "ann@x.io", PasswordHash: "h"}
	j := &domain.Job{JobURL: "https://x.io/j"}
	if err := Create(ctx, db, u); err != nil {
		t.Fatalf("user: %v", err)
	}
	if err := Create(ctx, db, j); err != nil {
		t.Fatalf("job: %v", err)
	}
	r := &domain.Referral{JobID: j.ID, UserID: u.ID}
	if err := Create(ctx, db, r); err != nil {
		t.Fatalf("referral: %v", err)
	}

	if err := Delete[domain.Job](ctx, db, j.ID); err != nil {
		t.Fatalf("Delete job: %v", err)
	}
	if _, err := Get[domain.Referral](ctx, db, r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected referral to be cascade-deleted, got %v", err)
	}
}
