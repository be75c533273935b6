package services

import (
	"github.com/tbourn/referral-backend/internal/domain"
	"github.com/tbourn/referral-backend/internal/repo"
)

// ReferralCreate is the accepted payload for creating a referral.
type ReferralCreate struct {
	JobID          *uint                  `json:"job_id"          binding:"required,min=1"`
	UserID         *uint                  `json:"user_id"         binding:"required,min=1"`
	CandidateName  *string                `json:"candidate_name"  binding:"omitempty,max=255"`
	CandidateEmail *string                `json:"candidate_email" binding:"omitempty,email,max=320"`
	EmailStatus    *domain.EmailStatus    `json:"email_status"    binding:"omitempty,oneof=sent failed verified blocked"`
	ResponseStatus *domain.ResponseStatus `json:"response_status" binding:"omitempty,oneof=waiting opened clicked replied ignored unsubscribed bounced spam_reported blacklisted accepted rejected"`
	Critical       *int                   `json:"critical"        binding:"omitempty,min=0,max=5"`
}

// Model implements CreateInput.
func (in ReferralCreate) Model() (*domain.Referral, error) {
	r := &domain.Referral{
		JobID:          *in.JobID,
		UserID:         *in.UserID,
		CandidateName:  deref(in.CandidateName),
		CandidateEmail: deref(in.CandidateEmail),
		EmailStatus:    domain.EmailSent,
		ResponseStatus: domain.ResponseWaiting,
		Critical:       deref(in.Critical),
	}
	if in.EmailStatus != nil {
		r.EmailStatus = *in.EmailStatus
	}
	if in.ResponseStatus != nil {
		r.ResponseStatus = *in.ResponseStatus
	}
	return r, nil
}

// ReferralPatch is the accepted payload for updating a referral.
type ReferralPatch struct {
	Identified
	JobID          *uint                  `json:"job_id"          binding:"omitempty,min=1"`
	UserID         *uint                  `json:"user_id"         binding:"omitempty,min=1"`
	CandidateName  *string                `json:"candidate_name"  binding:"omitempty,max=255"`
	CandidateEmail *string                `json:"candidate_email" binding:"omitempty,email,max=320"`
	EmailStatus    *domain.EmailStatus    `json:"email_status"    binding:"omitempty,oneof=sent failed verified blocked"`
	ResponseStatus *domain.ResponseStatus `json:"response_status" binding:"omitempty,oneof=waiting opened clicked replied ignored unsubscribed bounced spam_reported blacklisted accepted rejected"`
	Critical       *int                   `json:"critical"        binding:"omitempty,min=0,max=5"`
}

// Changes implements PatchInput.
func (in ReferralPatch) Changes() (map[string]any, error) {
	f := fieldSet{}
	if in.JobID != nil {
		f["job_id"] = *in.JobID
	}
	if in.UserID != nil {
		f["user_id"] = *in.UserID
	}
	f.text("candidate_name", in.CandidateName)
	f.text("candidate_email", in.CandidateEmail)
	if in.EmailStatus != nil {
		f["email_status"] = string(*in.EmailStatus)
	}
	if in.ResponseStatus != nil {
		f["response_status"] = string(*in.ResponseStatus)
	}
	f.num("critical", in.Critical)
	return f, nil
}

// ReferralQuery holds the filters, sort key and paging accepted by
// GET /referrals.
type ReferralQuery struct {
	JobID          *uint  `form:"job_id"          binding:"omitempty,min=1"`
	UserID         *uint  `form:"user_id"         binding:"omitempty,min=1"`
	EmailStatus    string `form:"email_status"    binding:"omitempty,oneof=sent failed verified blocked"`
	ResponseStatus string `form:"response_status" binding:"omitempty,oneof=waiting opened clicked replied ignored unsubscribed bounced spam_reported blacklisted accepted rejected"`
	Critical       *int   `form:"critical"        binding:"omitempty,min=0,max=5"`
	SortBy         string `form:"sort_by"         binding:"omitempty,oneof=created_at id critical email_status response_status job_id user_id"`
	ListParams
}

// Predicates implements Filter.
func (q ReferralQuery) Predicates() []repo.Predicate {
	var ps predicates
	ps.eqUint("job_id", q.JobID)
	ps.eqUint("user_id", q.UserID)
	ps.eqString("email_status", q.EmailStatus)
	ps.eqString("response_status", q.ResponseStatus)
	ps.eqInt("critical", q.Critical)
	return ps
}

// Ordering implements Filter.
func (q ReferralQuery) Ordering() (string, bool) {
	return orderBy(q.SortBy, "created_at"), q.descending()
}
