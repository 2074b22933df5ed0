package models

import "time"

// ApplicationStatus captures the application axis of the admissions pipeline.
type ApplicationStatus string

// Application statuses.
const (
	ApplicationStatusInitiated            ApplicationStatus = "initiated"
	ApplicationStatusUnderReview          ApplicationStatus = "under review"
	ApplicationStatusOnHold               ApplicationStatus = "on hold"
	ApplicationStatusAccepted             ApplicationStatus = "accepted"
	ApplicationStatusRejected             ApplicationStatus = "rejected"
	ApplicationStatusInterviewScheduled   ApplicationStatus = "interview scheduled"
	ApplicationStatusInterviewRescheduled ApplicationStatus = "interview rescheduled"
	ApplicationStatusInterviewConcluded   ApplicationStatus = "interview concluded"
	ApplicationStatusWaitlist             ApplicationStatus = "waitlist"
	ApplicationStatusSelected             ApplicationStatus = "selected"
	ApplicationStatusNotQualified         ApplicationStatus = "not qualified"
)

// Application is the submission a student makes to join a cohort.
type Application struct {
	Status          ApplicationStatus `db:"application_status" json:"status"`
	RevisionCount   int               `db:"revision_count" json:"revisionCount"`
	TaskSubmissions []TaskSubmission  `db:"-" json:"taskSubmissions"`
	Feedback        []FeedbackEntry   `db:"-" json:"feedback"`
}

// Revised reports whether the application was resubmitted at least once.
func (a Application) Revised() bool {
	return a.RevisionCount > 1
}

// TaskSubmission is one artefact submitted with the application.
type TaskSubmission struct {
	TaskID      string    `json:"taskId"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// FeedbackEntry is an attributed, timestamped reviewer note. Entries are
// append-only.
type FeedbackEntry struct {
	ID        string            `db:"id" json:"id"`
	Status    ApplicationStatus `db:"status" json:"status"`
	Comments  string            `db:"comments" json:"comments"`
	AuthorID  string            `db:"author_id" json:"authorId"`
	CreatedAt time.Time         `db:"created_at" json:"createdAt"`
}
