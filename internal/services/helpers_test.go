package services

import (
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/referral-backend/internal/repo"
)

func init() { PasswordCost = bcrypt.MinCost }

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
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

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(newServiceDB(t), DefaultOptions)
}

func ptr[V any](v V) *V { return &v }
