package models

import "time"

// Match request statuses. A pending request is decided exactly once.
const (
	MatchStatusPending  = "pending"
	MatchStatusAccepted = "accepted"
	MatchStatusRejected = "rejected"
)

// Assignment payment statuses.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// MatchRequest is a sender's proposal to ship a parcel on a specific trip.
type MatchRequest struct {
	ID             string     `json:"id"`
	ShipmentID     string     `json:"shipment_id"`
	TripID         string     `json:"trip_id"`
	SenderID       string     `json:"sender_id"`
	EstimatedPrice float64    `json:"estimated_price"`
	Currency       string     `json:"currency"`
	Message        string     `json:"message,omitempty"`
	Status         string     `json:"status"`
	FinalPrice     *float64   `json:"final_price,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`

	// Joined for traveler review screens.
	Shipment *Shipment      `json:"shipment,omitempty"`
	Sender   *PublicProfile `json:"sender,omitempty"`
}

// Assignment is the committed pairing created when a traveler accepts a
// match request. The two nullable timestamps are the lifecycle signal:
// neither set means pending, pickup set means in transit, delivery set
// means delivered.
type Assignment struct {
	ID                  string     `json:"id"`
	MatchRequestID      string     `json:"match_request_id"`
	ShipmentID          string     `json:"shipment_id"`
	TripID              string     `json:"trip_id"`
	SenderID            string     `json:"sender_id"`
	TravelerID          string     `json:"traveler_id"`
	FinalPrice          float64    `json:"final_price"`
	Currency            string     `json:"currency"`
	PaymentStatus       string     `json:"payment_status"`
	PickupCompletedAt   *time.Time `json:"pickup_completed_at,omitempty"`
	DeliveryCompletedAt *time.Time `json:"delivery_completed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// AssignmentDetail is the fully composed aggregate used by tracking,
// messaging and review screens, loaded in one repository call.
type AssignmentDetail struct {
	Assignment
	Status   string         `json:"status"`
	Shipment *Shipment      `json:"shipment,omitempty"`
	Trip     *Trip          `json:"trip,omitempty"`
	Sender   *PublicProfile `json:"sender,omitempty"`
	Traveler *PublicProfile `json:"traveler,omitempty"`
}

// BookingRequest is the server-side form of the three-step booking wizard.
// Step 1 covers the package fields, step 2 the delivery fields; step 3 is
// review only and adds the optional message to the traveler.
type BookingRequest struct {
	TripID string `json:"trip_id" validate:"required"`

	// Step 1: package.
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description" validate:"required"`
	WeightKg    float64 `json:"weight_kg" validate:"required,gt=0"`
	VolumeL     float64 `json:"volume_l,omitempty" validate:"omitempty,gt=0"`

	// Step 2: delivery.
	DeliveryAddress      string `json:"delivery_address" validate:"required"`
	DeliveryCity         string `json:"delivery_city" validate:"required"`
	DeliveryContactName  string `json:"delivery_contact_name" validate:"required"`
	DeliveryContactPhone string `json:"delivery_contact_phone" validate:"required"`

	// Step 3: review.
	Message string `json:"message,omitempty"`
}

// BookingResponse returns both rows created by a booking.
type BookingResponse struct {
	Shipment     *Shipment     `json:"shipment"`
	MatchRequest *MatchRequest `json:"match_request"`
}

// QuoteResponse is the price preview shown on the wizard's review step.
type QuoteResponse struct {
	EstimatedPrice float64 `json:"estimated_price"`
	Currency       string  `json:"currency"`
	Display        string  `json:"display"`
}

// AcceptMatchRequest carries the traveler's decision payload. FinalPrice
// defaults to the estimate when omitted.
type AcceptMatchRequest struct {
	FinalPrice *float64 `json:"final_price,omitempty" validate:"omitempty,gt=0"`
}

// PayAssignmentRequest is the sender's payment payload.
type PayAssignmentRequest struct {
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}
