package models

import "time"

// Shipment statuses. A shipment follows its match request until acceptance
// and then mirrors the assignment lifecycle.
const (
	ShipmentStatusPending   = "pending"
	ShipmentStatusAccepted  = "accepted"
	ShipmentStatusInTransit = "in_transit"
	ShipmentStatusDelivered = "delivered"
	ShipmentStatusCancelled = "cancelled"
)

// Shipment is a sender-owned parcel description. Shipments are never
// physically deleted; cancellation is a status.
type Shipment struct {
	ID                   string    `json:"id"`
	SenderID             string    `json:"sender_id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	WeightKg             float64   `json:"weight_kg"`
	VolumeL              float64   `json:"volume_l,omitempty"`
	PickupAddress        string    `json:"pickup_address"`
	PickupCity           string    `json:"pickup_city"`
	PickupContactName    string    `json:"pickup_contact_name"`
	PickupContactPhone   string    `json:"pickup_contact_phone"`
	DeliveryAddress      string    `json:"delivery_address"`
	DeliveryCity         string    `json:"delivery_city"`
	DeliveryContactName  string    `json:"delivery_contact_name"`
	DeliveryContactPhone string    `json:"delivery_contact_phone"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
