package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/referral-backend/internal/domain"
	"github.com/tbourn/referral-backend/internal/http/middleware"
)

// CompanyVerifier marks companies as verified.
type CompanyVerifier interface {
	Verify(ctx context.Context, id uint) (*domain.Company, error)
}

// VerifyCompany handles POST /companies/:id/verify. Verifying an already
// verified company succeeds again.
func VerifyCompany(svc CompanyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := pathID(c)
		if !valid {
			return
		}
		co, err := svc.Verify(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		middleware.RecordWrite("Company", "verify", 1)
		ok(c, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Company '%s' marked as verified.", co.Name)})
	}
}
