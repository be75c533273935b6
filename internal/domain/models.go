// Package domain defines the persistence models for the referral tracker:
// users, job postings, companies and the referrals that tie a user to a job.
// These types are mapped with GORM and form the core data layer of the
// application.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// User is an account that submits referrals.
//
// Fields:
//   - ID: auto-increment primary key.
//   - Name: display name.
//   - Email: unique login email.
//   - PasswordHash: credential hash; never serialized.
//   - ReferralCredits: number of referral credits earned.
//   - CreatedAt: insertion time (UTC), managed by GORM.
type User struct {
	ID              uint      `json:"id"               gorm:"primaryKey"`
	Name            string    `json:"name"             gorm:"type:varchar(255);not null"`
	Email           string    `json:"email"            gorm:"type:varchar(320);not null;uniqueIndex:ux_users_email"`
	PasswordHash    string    `json:"-"                gorm:"type:varchar(255);not null"`
	ReferralCredits int       `json:"referral_credits" gorm:"not null;default:0"`
	CreatedAt       time.Time `json:"created_at"       gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Job is a job posting a referral can be made against.
//
// CompanyName is free text shown in the dashboard; it is deliberately not a
// foreign key to Company. ReminderDate and ReminderSent are stored as given
// and not acted upon.
type Job struct {
	ID             uint                        `json:"id"              gorm:"primaryKey"`
	JobURL         string                      `json:"job_url"         gorm:"type:text;not null"`
	CompanyName    string                      `json:"company_name"    gorm:"type:varchar(255);index"`
	Role           string                      `json:"role"            gorm:"type:varchar(255)"`
	JobDescription string                      `json:"job_description" gorm:"type:text"`
	Skills         datatypes.JSONSlice[string] `json:"skills"`
	Status         JobStatus                   `json:"status"          gorm:"type:varchar(16);not null;default:'new';check:status IN ('new','active','closed')"`
	JobOpenDate    *time.Time                  `json:"job_open_date"`
	ActiveTill     *time.Time                  `json:"active_till"`
	PostedBy       string                      `json:"posted_by"       gorm:"type:varchar(255)"`
	ReceivedCall   int                         `json:"received_call"   gorm:"not null;default:0;check:received_call IN (0,1)"`
	Critical       int                         `json:"critical"        gorm:"not null;default:0;check:critical BETWEEN 0 AND 5"`
	ReminderDate   *time.Time                  `json:"reminder_date"`
	ReminderSent   int                         `json:"reminder_sent"   gorm:"not null;default:0;check:reminder_sent IN (0,1)"`
	CreatedAt      time.Time                   `json:"created_at"      gorm:"index"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string { return "jobs" }

// Company holds the email conventions used to reach people at an employer.
// LastVerifiedAt is stored but no operation reads or updates it.
type Company struct {
	ID                uint       `json:"id"                 gorm:"primaryKey"`
	Name              string     `json:"name"               gorm:"type:varchar(255);not null;index"`
	Domain            string     `json:"domain"             gorm:"type:varchar(255)"`
	EmailPattern      string     `json:"email_pattern"      gorm:"type:varchar(255)"`
	DeliverableFormat string     `json:"deliverable_format" gorm:"type:varchar(64)"`
	LastVerifiedAt    *time.Time `json:"last_verified_at"`
	IsVerified        int        `json:"is_verified"        gorm:"not null;default:0;check:is_verified IN (0,1)"`
}

// TableName returns the database table name for Company.
func (Company) TableName() string { return "companies" }

// Referral records that a user referred a candidate for a job, along with
// the delivery and response state of the outreach email.
//
// Job and User are FK associations; referrals are cascade-deleted when either
// parent row is removed.
type Referral struct {
	ID             uint           `json:"id"              gorm:"primaryKey"`
	JobID          uint           `json:"job_id"          gorm:"not null;index"`
	UserID         uint           `json:"user_id"         gorm:"not null;index"`
	CandidateName  string         `json:"candidate_name"  gorm:"type:varchar(255)"`
	CandidateEmail string         `json:"candidate_email" gorm:"type:varchar(320)"`
	EmailStatus    EmailStatus    `json:"email_status"    gorm:"type:varchar(16);not null;default:'sent';check:email_status IN ('sent','failed','verified','blocked')"`
	ResponseStatus ResponseStatus `json:"response_status" gorm:"type:varchar(16);not null;default:'waiting';check:response_status IN ('waiting','opened','clicked','replied','ignored','unsubscribed','bounced','spam_reported','blacklisted','accepted','rejected')"`
	Critical       int            `json:"critical"        gorm:"not null;default:0;check:critical BETWEEN 0 AND 5"`
	CreatedAt      time.Time      `json:"created_at"      gorm:"index"`

	Job  *Job  `json:"-" gorm:"foreignKey:JobID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User *User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Referral.
func (Referral) TableName() string { return "referrals" }
