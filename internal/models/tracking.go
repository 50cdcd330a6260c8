package models

import "time"

// Delivery statuses derived from an assignment's timestamp pair.
const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusInTransit = "in_transit"
	DeliveryStatusDelivered = "delivered"
)

// Well-known tracking event types. EventType is free text so travelers can
// also log ad hoc milestones.
const (
	TrackingEventPickup        = "pickup_completed"
	TrackingEventDelivery      = "delivery_completed"
	TrackingEventLocationShare = "location_share"
)

// TrackingEvent is an append-only log entry tied to an assignment. Events
// are never mutated or deleted.
type TrackingEvent struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	EventType    string    `json:"event_type"`
	Description  string    `json:"description,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TrackingEventRequest is the payload for a manual GPS share.
type TrackingEventRequest struct {
	Description string   `json:"description,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	PhotoURL    string   `json:"photo_url,omitempty"`
}

// ProofOfDelivery is the one-per-assignment record completing a delivery.
type ProofOfDelivery struct {
	ID            string    `json:"id"`
	AssignmentID  string    `json:"assignment_id"`
	RecipientName string    `json:"recipient_name"`
	PhotoURL      string    `json:"photo_url"`
	SignatureURL  string    `json:"signature_url,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProofOfDeliveryRequest is the traveler's proof submission. The photo is
// uploaded separately and referenced by its object key.
type ProofOfDeliveryRequest struct {
	RecipientName string `json:"recipient_name" validate:"required"`
	PhotoURL      string `json:"photo_url" validate:"required"`
	SignatureURL  string `json:"signature_url,omitempty"`
	Notes         string `json:"notes,omitempty"`
}
