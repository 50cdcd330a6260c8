package models

import "time"

// User roles. A user signs up as a sender or a traveler; admins are
// provisioned manually.
const (
	RoleSender   = "sender"
	RoleTraveler = "traveler"
	RoleAdmin    = "admin"
)

// User represents an account plus its public profile fields.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	Phone        string     `json:"phone,omitempty"`
	City         string     `json:"city,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	Role         string     `json:"role"`
	KYCVerified  bool       `json:"kyc_verified"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// PublicProfile is the subset of a user shown to counterparties, with the
// aggregate review rating joined in.
type PublicProfile struct {
	ID            string    `json:"id"`
	FullName      string    `json:"full_name"`
	City          string    `json:"city,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	Role          string    `json:"role"`
	KYCVerified   bool      `json:"kyc_verified"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
	MemberSince   time.Time `json:"member_since"`
}

// RegisterRequest is the payload for email/password signup.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=sender traveler"`
}

// LoginRequest is the payload for email/password login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest carries the editable profile fields.
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	City      *string `json:"city,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// AuthResponse is returned after a successful login or registration.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
