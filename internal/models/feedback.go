package models

import "time"

// Dispute statuses.
const (
	DisputeStatusOpen     = "open"
	DisputeStatusResolved = "resolved"
	DisputeStatusClosed   = "closed"
)

// Problem report statuses.
const (
	ReportStatusOpen     = "open"
	ReportStatusReviewed = "reviewed"
	ReportStatusResolved = "resolved"
)

// Review is a post-delivery rating, one per (assignment, reviewer).
type Review struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	ReviewerID   string    `json:"reviewer_id"`
	RevieweeID   string    `json:"reviewee_id"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateReviewRequest is the payload for submitting a review.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty"`
}

// Dispute is a complaint either party raises against an assignment.
type Dispute struct {
	ID           string     `json:"id"`
	AssignmentID string     `json:"assignment_id"`
	OpenedByID   string     `json:"opened_by_id"`
	Reason       string     `json:"reason"`
	Status       string     `json:"status"`
	Resolution   string     `json:"resolution,omitempty"`
	ResolvedByID *string    `json:"resolved_by_id,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`

	// Joined for the admin queue.
	OpenedBy *PublicProfile `json:"opened_by,omitempty"`
}

// OpenDisputeRequest is the payload for raising a dispute.
type OpenDisputeRequest struct {
	AssignmentID string `json:"assignment_id" validate:"required"`
	Reason       string `json:"reason" validate:"required"`
}

// ProblemReport is a general support ticket, optionally tied to an
// assignment.
type ProblemReport struct {
	ID           string     `json:"id"`
	ReporterID   string     `json:"reporter_id"`
	AssignmentID *string    `json:"assignment_id,omitempty"`
	Category     string     `json:"category"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	AdminNote    string     `json:"admin_note,omitempty"`
	ReviewedByID *string    `json:"reviewed_by_id,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`

	Reporter *PublicProfile `json:"reporter,omitempty"`
}

// CreateReportRequest is the payload for filing a problem report.
type CreateReportRequest struct {
	AssignmentID *string `json:"assignment_id,omitempty"`
	Category     string  `json:"category" validate:"required"`
	Description  string  `json:"description" validate:"required"`
}

// ResolutionRequest carries an admin decision. The note is required for
// rejections and resolutions so the decision is auditable.
type ResolutionRequest struct {
	Note string `json:"note" validate:"required"`
}
