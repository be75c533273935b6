package services

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tbourn/referral-backend/internal/domain"
	"github.com/tbourn/referral-backend/internal/repo"
	"github.com/tbourn/referral-backend/internal/utils"
)

// PasswordCost is the bcrypt cost used when hashing plaintext passwords.
var PasswordCost = bcrypt.DefaultCost

var errPasswordChoice = errors.New("send either password or password_hash, not both")

// UserCreate is the accepted payload for creating a user.
type UserCreate struct {
	Name            *string `json:"name"             binding:"required,min=1,max=255"`
	Email           *string `json:"email"            binding:"required,email,max=320"`
	Password        *string `json:"password"         binding:"omitempty,min=8,max=72"`
	PasswordHash    *string `json:"password_hash"    binding:"omitempty,min=1,max=255"`
	ReferralCredits *int    `json:"referral_credits" binding:"omitempty,min=0"`
}

// Model implements CreateInput.
func (in UserCreate) Model() (*domain.User, error) {
	hash, err := credential(in.Password, in.PasswordHash)
	if err != nil {
		return nil, err
	}
	if hash == nil {
		return nil, errors.New("password or password_hash is required")
	}
	return &domain.User{
		Name:            strings.TrimSpace(*in.Name),
		Email:           strings.TrimSpace(*in.Email),
		PasswordHash:    *hash,
		ReferralCredits: deref(in.ReferralCredits),
	}, nil
}

// UserPatch is the accepted payload for updating a user.
type UserPatch struct {
	Identified
	Name            *string `json:"name"             binding:"omitempty,min=1,max=255"`
	Email           *string `json:"email"            binding:"omitempty,email,max=320"`
	Password        *string `json:"password"         binding:"omitempty,min=8,max=72"`
	PasswordHash    *string `json:"password_hash"    binding:"omitempty,min=1,max=255"`
	ReferralCredits *int    `json:"referral_credits" binding:"omitempty,min=0"`
}

// Changes implements PatchInput.
func (in UserPatch) Changes() (map[string]any, error) {
	f := fieldSet{}
	f.text("name", in.Name)
	f.text("email", in.Email)
	f.num("referral_credits", in.ReferralCredits)
	hash, err := credential(in.Password, in.PasswordHash)
	if err != nil {
		return nil, err
	}
	f.text("password_hash", hash)
	return f, nil
}

// credential resolves the stored hash from a plaintext password or a
// pre-computed hash. It returns nil when neither is set.
func credential(password, hash *string) (*string, error) {
	switch {
	case password != nil && hash != nil:
		return nil, errPasswordChoice
	case hash != nil:
		return hash, nil
	case password != nil:
		b, err := bcrypt.GenerateFromPassword([]byte(*password), PasswordCost)
		if err != nil {
			return nil, err
		}
		s := string(b)
		return &s, nil
	}
	return nil, nil
}

// UserQuery holds the filters, sort key and paging accepted by GET /users.
type UserQuery struct {
	Name          string      `form:"name"`
	Email         string      `form:"email"`
	CreatedAfter  *utils.Time `form:"created_after"`
	CreatedBefore *utils.Time `form:"created_before"`
	SortBy        string      `form:"sort_by" binding:"omitempty,oneof=created_at name email referral_credits id"`
	ListParams
}

// Predicates implements Filter.
func (q UserQuery) Predicates() []repo.Predicate {
	var ps predicates
	ps.contains("name", q.Name)
	ps.contains("email", q.Email)
	ps.atLeast("created_at", q.CreatedAfter)
	ps.atMost("created_at", q.CreatedBefore)
	return ps
}

// Ordering implements Filter.
func (q UserQuery) Ordering() (string, bool) {
	return orderBy(q.SortBy, "created_at"), q.descending()
}
