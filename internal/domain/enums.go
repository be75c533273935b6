package domain

// JobStatus is the lifecycle state of a job posting.
type JobStatus string

const (
	JobStatusNew    JobStatus = "new"
	JobStatusActive JobStatus = "active"
	JobStatusClosed JobStatus = "closed"
)

// EmailStatus is the delivery state of a referral email.
type EmailStatus string

const (
	EmailSent     EmailStatus = "sent"
	EmailFailed   EmailStatus = "failed"
	EmailVerified EmailStatus = "verified"
	EmailBlocked  EmailStatus = "blocked"
)

// ResponseStatus is the recipient's reaction to a referral email.
type ResponseStatus string

const (
	ResponseWaiting      ResponseStatus = "waiting"
	ResponseOpened       ResponseStatus = "opened"
	ResponseClicked      ResponseStatus = "clicked"
	ResponseReplied      ResponseStatus = "replied"
	ResponseIgnored      ResponseStatus = "ignored"
	ResponseUnsubscribed ResponseStatus = "unsubscribed"
	ResponseBounced      ResponseStatus = "bounced"
	ResponseSpamReported ResponseStatus = "spam_reported"
	ResponseBlacklisted  ResponseStatus = "blacklisted"
	ResponseAccepted     ResponseStatus = "accepted"
	ResponseRejected     ResponseStatus = "rejected"
)

// Valid reports whether s is a declared job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusNew, JobStatusActive, JobStatusClosed:
		return true
	}
	return false
}

// Valid reports whether s is a declared email status.
func (s EmailStatus) Valid() bool {
	switch s {
	case EmailSent, EmailFailed, EmailVerified, EmailBlocked:
		return true
	}
	return false
}

// Valid reports whether s is a declared response status.
func (s ResponseStatus) Valid() bool {
	switch s {
	case ResponseWaiting, ResponseOpened, ResponseClicked, ResponseReplied,
		ResponseIgnored, ResponseUnsubscribed, ResponseBounced,
		ResponseSpamReported, ResponseBlacklisted, ResponseAccepted,
		ResponseRejected:
		return true
	}
	return false
}
