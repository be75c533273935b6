package services

import (
	"gorm.io/gorm"

	"github.com/tbourn/referral-backend/internal/domain"
)

// Registry groups the four collections served by the API.
type Registry struct {
	Users     *Collection[domain.User]
	Jobs      *Collection[domain.Job]
	Companies *CompanyService
	Referrals *Collection[domain.Referral]
}

// NewRegistry builds every collection over db with shared options.
func NewRegistry(db *gorm.DB, opts Options) *Registry {
	return &Registry{
		Users:     NewCollection[domain.User](db, "User", opts),
		Jobs:      NewCollection[domain.Job](db, "Job", opts),
		Companies: NewCompanyService(db, opts),
		Referrals: NewCollection[domain.Referral](db, "Referral", opts),
	}
}
