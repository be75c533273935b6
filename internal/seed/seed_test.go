package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/referral-backend/internal/domain"
	"github.com/tbourn/referral-backend/internal/repo"
	"github.com/tbourn/referral-backend/internal/services"
)

func init() { services.PasswordCost = bcrypt.MinCost }

func newSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:seed_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := repo.Open(repo.Options{Driver: repo.DriverSQLite, DSN: dsn, Silent: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(db) })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func loadString(t *testing.T, doc string) *Fixture {
	t.Helper()
	f, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return f
}

func count[T any](t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(new(T)).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestApply_TestdataFixture(t *testing.T) {
	db := newSeedDB(t)
	fh, err := os.Open("testdata/fixture.yaml")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer fh.Close()
	f, err := Load(fh)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	sum, err := Apply(context.Background(), db, services.DefaultOptions, f)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if sum != (Summary{Users: 2, Companies: 2, Jobs: 2, Referrals: 2}) {
		t.Fatalf("summary = %+v", sum)
	}

	var ref domain.Referral
	if err := db.Where("candidate_email = ?", "carol@example.com").First(&ref).Error; err != nil {
		t.Fatalf("find referral: %v", err)
	}
	var job domain.Job
	if err := db.First(&job, ref.JobID).Error; err != nil {
		t.Fatalf("find job: %v", err)
	}
	if job.Role != "Backend Engineer" || len(job.Skills) != 2 || job.ActiveTill == nil {
		t.Fatalf("job not resolved from job_key: %+v", job)
	}
	var user domain.User
	if err := db.First(&user, ref.UserID).Error; err != nil {
		t.Fatalf("find user: %v", err)
	}
	if user.Email != "alice@example.com" || user.ReferralCredits != 3 {
		t.Fatalf("user not resolved from user_key: %+v", user)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse-battery")) != nil {
		t.Fatalf("password was not hashed")
	}

	var other domain.Referral
	if err := db.Where("response_status = ?", "replied").First(&other).Error; err != nil {
		t.Fatalf("find second referral: %v", err)
	}
	if other.EmailStatus != domain.EmailSent {
		t.Fatalf("create defaults not applied: %+v", other)
	}
}

func TestApply_FailureRollsBackEverything(t *testing.T) {
	cases := map[string]struct {
		doc  string
		want string
	}{
		"validation": {
			doc: `
users:
  - {key: a, name: A, email: a@example.com, password: long-enough}
jobs:
  - {role: missing url}
`,
			want: "jobs[0]",
		},
		"unknown field": {
			doc: `
users:
  - {name: A, email: a@example.com, password: long-enough, nickname: aa}
`,
			want: "users[0]",
		},
		"unknown reference": {
			doc: `
users:
  - {key: a, name: A, email: a@example.com, password: long-enough}
jobs:
  - {key: j, job_url: "https://jobs.example.com/1"}
referrals:
  - {job_key: j, user_key: nobody}
`,
			want: "user_key nobody",
		},
		"duplicate key": {
			doc: `
users:
  - {key: a, name: A, email: a@example.com, password: long-enough}
  - {key: a, name: B, email: b@example.com, password: long-enough}
`,
			want: `duplicate key "a"`,
		},
		"id and key together": {
			doc: `
users:
  - {key: a, name: A, email: a@example.com, password: long-enough}
jobs:
  - {key: j, job_url: "https://jobs.example.com/1"}
referrals:
  - {job_key: j, user_key: a, user_id: 1}
`,
			want: "mutually exclusive",
		},
		"constraint": {
			doc: `
users:
  - {name: A, email: a@example.com, password: long-enough}
  - {name: A2, email: a@example.com, password: long-enough}
`,
			want: "users[1]",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			db := newSeedDB(t)
			_, err := Apply(context.Background(), db, services.DefaultOptions, loadString(t, tc.doc))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tc.want)
			}
			if n := count[domain.User](t, db); n != 0 {
				t.Fatalf("users after rollback = %d", n)
			}
			if n := count[domain.Job](t, db); n != 0 {
				t.Fatalf("jobs after rollback = %d", n)
			}
		})
	}
}

func TestApply_ValidationErrorsAreClassified(t *testing.T) {
	db := newSeedDB(t)
	_, err := Apply(context.Background(), db, services.DefaultOptions, loadString(t, `
companies:
  - {name: Acme, is_verified: 2}
`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestApply_DoesNotMutateFixture(t *testing.T) {
	db := newSeedDB(t)
	f := loadString(t, `
users:
  - {key: a, name: A, email: a@example.com, password: long-enough}
`)
	if _, err := Apply(context.Background(), db, services.DefaultOptions, f); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if f.Users[0]["key"] != "a" {
		t.Fatalf("fixture entry was modified: %v", f.Users[0])
	}
}

func TestLoad(t *testing.T) {
	f, err := Load(strings.NewReader(""))
	if err != nil || len(f.Users) != 0 {
		t.Fatalf("empty document = %+v, %v", f, err)
	}
	if _, err := Load(strings.NewReader("accounts: []\n")); err == nil {
		t.Fatalf("expected unknown section to be rejected")
	}
	if _, err := Load(strings.NewReader("users: [")); err == nil {
		t.Fatalf("expected syntax error")
	}
}
