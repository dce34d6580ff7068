package domain

import "time"

// SubmissionKind names the throttled public forms.
type SubmissionKind string

const (
	SubmissionContactUs    SubmissionKind = "contact_us"
	SubmissionConsultation SubmissionKind = "consultation"
	SubmissionHireUs       SubmissionKind = "hire_us"
)

// Submission is a form handed off to the mailer once admitted.
type Submission struct {
	ID          string         `json:"id"`
	Kind        SubmissionKind `json:"kind"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Subject     string         `json:"subject,omitempty"`
	Message     string         `json:"message"`
	PrincipalID string         `json:"principal_id,omitempty"`
	ReceivedAt  time.Time      `json:"received_at"`
}
