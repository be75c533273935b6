package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/referral-backend/internal/domain"
	"github.com/tbourn/referral-backend/internal/repo"
	"github.com/tbourn/referral-backend/internal/utils"
)

// CompanyCreate is the accepted payload for creating a company.
type CompanyCreate struct {
	Name              *string     `json:"name"               binding:"required,min=1,max=255"`
	Domain            *string     `json:"domain"             binding:"omitempty,max=255"`
	EmailPattern      *string     `json:"email_pattern"      binding:"omitempty,max=255"`
	DeliverableFormat *string     `json:"deliverable_format" binding:"omitempty,max=64"`
	LastVerifiedAt    *utils.Time `json:"last_verified_at"`
	IsVerified        *int        `json:"is_verified"        binding:"omitempty,oneof=0 1"`
}

// Model implements CreateInput.
func (in CompanyCreate) Model() (*domain.Company, error) {
	return &domain.Company{
		Name:              strings.TrimSpace(*in.Name),
		Domain:            deref(in.Domain),
		EmailPattern:      deref(in.EmailPattern),
		DeliverableFormat: deref(in.DeliverableFormat),
		LastVerifiedAt:    in.LastVerifiedAt.Ptr(),
		IsVerified:        deref(in.IsVerified),
	}, nil
}

// CompanyPatch is the accepted payload for updating a company.
type CompanyPatch struct {
	Identified
	Name              *string     `json:"name"               binding:"omitempty,min=1,max=255"`
	Domain            *string     `json:"domain"             binding:"omitempty,max=255"`
	EmailPattern      *string     `json:"email_pattern"      binding:"omitempty,max=255"`
	DeliverableFormat *string     `json:"deliverable_format" binding:"omitempty,max=64"`
	LastVerifiedAt    *utils.Time `json:"last_verified_at"`
	IsVerified        *int        `json:"is_verified"        binding:"omitempty,oneof=0 1"`
}

// Changes implements PatchInput.
func (in CompanyPatch) Changes() (map[string]any, error) {
	f := fieldSet{}
	f.text("name", in.Name)
	f.text("domain", in.Domain)
	f.text("email_pattern", in.EmailPattern)
	f.text("deliverable_format", in.DeliverableFormat)
	f.when("last_verified_at", in.LastVerifiedAt)
	f.num("is_verified", in.IsVerified)
	return f, nil
}

// CompanyQuery holds the filters, sort key and paging accepted by
// GET /companies.
type CompanyQuery struct {
	Name         string `form:"name"`
	Domain       string `form:"domain"`
	EmailPattern string `form:"email_pattern"`
	IsVerified   *int   `form:"is_verified" binding:"omitempty,oneof=0 1"`
	SortBy       string `form:"sort_by"     binding:"omitempty,oneof=id name domain last_verified_at is_verified"`
	ListParams
}

// Predicates implements Filter.
func (q CompanyQuery) Predicates() []repo.Predicate {
	var ps predicates
	ps.contains("name", q.Name)
	ps.contains("domain", q.Domain)
	ps.contains("email_pattern", q.EmailPattern)
	ps.eqInt("is_verified", q.IsVerified)
	return ps
}

// Ordering implements Filter. Companies carry no creation time, so the
// default order is by id.
func (q CompanyQuery) Ordering() (string, bool) {
	return orderBy(q.SortBy, "id"), q.descending()
}

// CompanyService is the company collection plus the verify action.
type CompanyService struct {
	*Collection[domain.Company]
}

// NewCompanyService constructs a CompanyService.
func NewCompanyService(db *gorm.DB, opts Options) *CompanyService {
	return &CompanyService{Collection: NewCollection[domain.Company](db, "Company", opts)}
}

// Verify marks the company as verified and returns it. Verifying an already
// verified company succeeds without changes. last_verified_at is left as is.
func (s *CompanyService) Verify(ctx context.Context, id uint) (*domain.Company, error) {
	var c *domain.Company
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		c, err = repo.UpdateFields[domain.Company](ctx, tx, id, map[string]any{"is_verified": 1})
		return err
	})
	if err != nil {
		return nil, classify(s.Entity, err)
	}
	return c, nil
}
