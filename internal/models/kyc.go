package models

import "time"

// KYC document statuses.
const (
	KYCStatusPending  = "pending"
	KYCStatusApproved = "approved"
	KYCStatusRejected = "rejected"
)

// KYCDocument is an identity document uploaded by a traveler and reviewed
// by an admin.
type KYCDocument struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	DocumentType string     `json:"document_type"`
	DocumentURL  string     `json:"document_url"`
	Status       string     `json:"status"`
	Note         string     `json:"note,omitempty"`
	ReviewedByID *string    `json:"reviewed_by_id,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`

	// Joined for the admin queue.
	User *PublicProfile `json:"user,omitempty"`
}

// SubmitKYCRequest references a document already uploaded to storage.
type SubmitKYCRequest struct {
	DocumentType string `json:"document_type" validate:"required,oneof=passport id_card driver_license"`
	DocumentURL  string `json:"document_url" validate:"required"`
}

// Notification is a per-user inbox entry emitted on lifecycle milestones.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	RefID     *string    `json:"ref_id,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
