package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/referral-backend/internal/domain"
	"github.com/tbourn/referral-backend/internal/services"
)

// RegisterResources mounts the four collections and the company verify
// action on api.
func RegisterResources(api *gin.RouterGroup, reg *services.Registry) {
	NewResource[domain.User, services.UserCreate, services.UserPatch, services.UserQuery](
		reg.Users, "User", "users").Register(api.Group("/users"))
	NewResource[domain.Job, services.JobCreate, services.JobPatch, services.JobQuery](
		reg.Jobs, "Job", "jobs").Register(api.Group("/jobs"))
	NewResource[domain.Referral, services.ReferralCreate, services.ReferralPatch, services.ReferralQuery](
		reg.Referrals, "Referral", "referrals").Register(api.Group("/referrals"))

	companies := api.Group("/companies")
	NewResource[domain.Company, services.CompanyCreate, services.CompanyPatch, services.CompanyQuery](
		reg.Companies, "Company", "companies").Register(companies)
	companies.POST("/:id/verify", VerifyCompany(reg.Companies))
}
