// Package seed loads YAML fixtures into the store through the same
// validation path as the HTTP API. Users and jobs may carry a symbolic
// `key`; referrals point at them with `user_key` and `job_key` instead of
// numeric ids. A fixture is applied in a single transaction.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/tbourn/referral-backend/internal/domain"
	"github.com/tbourn/referral-backend/internal/services"
)

// Entry is one record as written in the fixture.
type Entry map[string]any

// Fixture is the document layout. Sections are applied in field order.
type Fixture struct {
	Users     []Entry `yaml:"users"`
	Companies []Entry `yaml:"companies"`
	Jobs      []Entry `yaml:"jobs"`
	Referrals []Entry `yaml:"referrals"`
}

// Summary counts the rows created per collection.
type Summary struct {
	Users     int
	Companies int
	Jobs      int
	Referrals int
}

// Load parses a fixture. Unknown top-level sections are rejected.
func Load(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// Apply creates every record in f inside one transaction. Any failure rolls
// the whole fixture back.
func Apply(ctx context.Context, db *gorm.DB, opts services.Options, f *Fixture) (Summary, error) {
	var sum Summary
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reg := services.NewRegistry(tx, opts)
		users := map[string]uint{}
		jobs := map[string]uint{}

		n, err := createAll[domain.User, services.UserCreate](ctx, reg.Users, "users", f.Users, keyed(users))
		if err != nil {
			return err
		}
		sum.Users = n

		n, err = createAll[domain.Company, services.CompanyCreate](ctx, reg.Companies.Collection, "companies", f.Companies, nil)
		if err != nil {
			return err
		}
		sum.Companies = n

		n, err = createAll[domain.Job, services.JobCreate](ctx, reg.Jobs, "jobs", f.Jobs, keyed(jobs))
		if err != nil {
			return err
		}
		sum.Jobs = n

		resolve := func(e Entry) error {
			if err := swapRef(e, "user_key", "user_id", users); err != nil {
				return err
			}
			return swapRef(e, "job_key", "job_id", jobs)
		}
		n, err = createAll[domain.Referral, services.ReferralCreate](ctx, reg.Referrals, "referrals", f.Referrals, &hooks{before: resolve})
		sum.Referrals = n
		return err
	})
	if err != nil {
		return Summary{}, err
	}
	log.Info().
		Int("users", sum.Users).
		Int("companies", sum.Companies).
		Int("jobs", sum.Jobs).
		Int("referrals", sum.Referrals).
		Msg("fixture applied")
	return sum, nil
}

// hooks customise createAll per section: before rewrites an entry prior to
// decoding, after sees the created row's id.
type hooks struct {
	before func(Entry) error
	after  func(key string, id uint) error
}

// keyed records the id of every entry carrying a `key` into ids.
func keyed(ids map[string]uint) *hooks {
	return &hooks{after: func(key string, id uint) error {
		if key == "" {
			return nil
		}
		if _, dup := ids[key]; dup {
			return fmt.Errorf("duplicate key %q", key)
		}
		ids[key] = id
		return nil
	}}
}

func createAll[T domain.Record, C services.CreateInput[T]](ctx context.Context, col *services.Collection[T], section string, entries []Entry, h *hooks) (int, error) {
	for i, orig := range entries {
		e := maps.Clone(orig)
		key, err := takeKey(e)
		if err != nil {
			return i, fmt.Errorf("%s[%d]: %w", section, i, err)
		}
		if h != nil && h.before != nil {
			if err := h.before(e); err != nil {
				return i, fmt.Errorf("%s[%d]: %w", section, i, err)
			}
		}
		var in C
		if err := decodeEntry(e, &in); err != nil {
			return i, fmt.Errorf("%s[%d]: %w", section, i, err)
		}
		row, err := col.Create(ctx, in)
		if err != nil {
			return i, fmt.Errorf("%s[%d]: %w", section, i, err)
		}
		if h != nil && h.after != nil {
			if err := h.after(key, (*row).GetID()); err != nil {
				return i, fmt.Errorf("%s[%d]: %w", section, i, err)
			}
		}
	}
	return len(entries), nil
}

// takeKey removes the symbolic key from e and returns it.
func takeKey(e Entry) (string, error) {
	v, ok := e["key"]
	if !ok {
		return "", nil
	}
	delete(e, "key")
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errors.New("key must be a non-empty string")
	}
	return s, nil
}

// swapRef replaces the symbolic reference field with the resolved id.
func swapRef(e Entry, refField, idField string, ids map[string]uint) error {
	v, ok := e[refField]
	if !ok {
		return nil
	}
	delete(e, refField)
	if _, both := e[idField]; both {
		return fmt.Errorf("%s and %s are mutually exclusive", refField, idField)
	}
	key, _ := v.(string)
	id, found := ids[key]
	if !found {
		return fmt.Errorf("%s %v does not match any seeded record", refField, v)
	}
	e[idField] = id
	return nil
}

// decodeEntry round-trips e through JSON so fixture entries are held to the
// same strict decoding as request bodies.
func decodeEntry(e Entry, dst any) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	return nil
}
