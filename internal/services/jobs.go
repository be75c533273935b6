package services

import (
	"strings"

	"gorm.io/datatypes"

	"github.com/tbourn/referral-backend/internal/domain"
	"github.com/tbourn/referral-backend/internal/repo"
	"github.com/tbourn/referral-backend/internal/utils"
)

// JobCreate is the accepted payload for creating a job.
type JobCreate struct {
	JobURL         *string           `json:"job_url"         binding:"required,url"`
	CompanyName    *string           `json:"company_name"    binding:"omitempty,max=255"`
	Role           *string           `json:"role"            binding:"omitempty,max=255"`
	JobDescription *string           `json:"job_description"`
	Skills         []string          `json:"skills"          binding:"omitempty,dive,min=1,max=100"`
	Status         *domain.JobStatus `json:"status"          binding:"omitempty,oneof=new active closed"`
	JobOpenDate    *utils.Time       `json:"job_open_date"`
	ActiveTill     *utils.Time       `json:"active_till"`
	PostedBy       *string           `json:"posted_by"       binding:"omitempty,max=255"`
	ReceivedCall   *int              `json:"received_call"   binding:"omitempty,oneof=0 1"`
	Critical       *int              `json:"critical"        binding:"omitempty,min=0,max=5"`
	ReminderDate   *utils.Time       `json:"reminder_date"`
	ReminderSent   *int              `json:"reminder_sent"   binding:"omitempty,oneof=0 1"`
}

// Model implements CreateInput.
func (in JobCreate) Model() (*domain.Job, error) {
	status := domain.JobStatusNew
	if in.Status != nil {
		status = *in.Status
	}
	skills := datatypes.JSONSlice[string]{}
	if in.Skills != nil {
		skills = in.Skills
	}
	return &domain.Job{
		JobURL:         strings.TrimSpace(*in.JobURL),
		CompanyName:    deref(in.CompanyName),
		Role:           deref(in.Role),
		JobDescription: deref(in.JobDescription),
		Skills:         skills,
		Status:         status,
		JobOpenDate:    in.JobOpenDate.Ptr(),
		ActiveTill:     in.ActiveTill.Ptr(),
		PostedBy:       deref(in.PostedBy),
		ReceivedCall:   deref(in.ReceivedCall),
		Critical:       deref(in.Critical),
		ReminderDate:   in.ReminderDate.Ptr(),
		ReminderSent:   deref(in.ReminderSent),
	}, nil
}

// JobPatch is the accepted payload for updating a job.
type JobPatch struct {
	Identified
	JobURL         *string           `json:"job_url"         binding:"omitempty,url"`
	CompanyName    *string           `json:"company_name"    binding:"omitempty,max=255"`
	Role           *string           `json:"role"            binding:"omitempty,max=255"`
	JobDescription *string           `json:"job_description"`
	Skills         []string          `json:"skills"          binding:"omitempty,dive,min=1,max=100"`
	Status         *domain.JobStatus `json:"status"          binding:"omitempty,oneof=new active closed"`
	JobOpenDate    *utils.Time       `json:"job_open_date"`
	ActiveTill     *utils.Time       `json:"active_till"`
	PostedBy       *string           `json:"posted_by"       binding:"omitempty,max=255"`
	ReceivedCall   *int              `json:"received_call"   binding:"omitempty,oneof=0 1"`
	Critical       *int              `json:"critical"        binding:"omitempty,min=0,max=5"`
	ReminderDate   *utils.Time       `json:"reminder_date"`
	ReminderSent   *int              `json:"reminder_sent"   binding:"omitempty,oneof=0 1"`
}

// Changes implements PatchInput.
func (in JobPatch) Changes() (map[string]any, error) {
	f := fieldSet{}
	f.text("job_url", in.JobURL)
	f.text("company_name", in.CompanyName)
	f.text("role", in.Role)
	f.text("job_description", in.JobDescription)
	if in.Skills != nil {
		f["skills"] = datatypes.JSONSlice[string](in.Skills)
	}
	if in.Status != nil {
		f["status"] = string(*in.Status)
	}
	f.when("job_open_date", in.JobOpenDate)
	f.when("active_till", in.ActiveTill)
	f.text("posted_by", in.PostedBy)
	f.num("received_call", in.ReceivedCall)
	f.num("critical", in.Critical)
	f.when("reminder_date", in.ReminderDate)
	f.num("reminder_sent", in.ReminderSent)
	return f, nil
}

// JobQuery holds the filters, sort key and paging accepted by GET /jobs.
type JobQuery struct {
	Role             string      `form:"role"`
	CompanyName      string      `form:"company_name"`
	PostedBy         string      `form:"posted_by"`
	Status           string      `form:"status"         binding:"omitempty,oneof=new active closed"`
	Critical         *int        `form:"critical"       binding:"omitempty,min=0,max=5"`
	ReceivedCall     *int        `form:"received_call"  binding:"omitempty,oneof=0 1"`
	ReminderSent     *int        `form:"reminder_sent"  binding:"omitempty,oneof=0 1"`
	CreatedAfter     *utils.Time `form:"created_after"`
	ActiveTillBefore *utils.Time `form:"active_till_before"`
	SortBy           string      `form:"sort_by" binding:"omitempty,oneof=created_at id role company_name status critical job_open_date active_till reminder_date"`
	ListParams
}

// Predicates implements Filter.
func (q JobQuery) Predicates() []repo.Predicate {
	var ps predicates
	ps.contains("role", q.Role)
	ps.contains("company_name", q.CompanyName)
	ps.contains("posted_by", q.PostedBy)
	ps.eqString("status", q.Status)
	ps.eqInt("critical", q.Critical)
	ps.eqInt("received_call", q.ReceivedCall)
	ps.eqInt("reminder_sent", q.ReminderSent)
	ps.atLeast("created_at", q.CreatedAfter)
	ps.atMost("active_till", q.ActiveTillBefore)
	return ps
}

// Ordering implements Filter.
func (q JobQuery) Ordering() (string, bool) {
	return orderBy(q.SortBy, "created_at"), q.descending()
}
