package models

import "time"

// Trip is a traveler's transport offer: a route, travel dates and spare
// capacity priced per kilogram.
type Trip struct {
	ID                 string    `json:"id"`
	TravelerID         string    `json:"traveler_id"`
	FromCity           string    `json:"from_city"`
	FromCountry        string    `json:"from_country"`
	ToCity             string    `json:"to_city"`
	ToCountry          string    `json:"to_country"`
	DepartureDate      time.Time `json:"departure_date"`
	ArrivalDate        time.Time `json:"arrival_date"`
	AvailableWeightKg  float64   `json:"available_weight_kg"`
	AvailableVolumeL   float64   `json:"available_volume_l"`
	PricePerKg         float64   `json:"price_per_kg"`
	Currency           string    `json:"currency"`
	PickupTimeLimitHrs int       `json:"pickup_time_limit_hrs"`
	Notes              string    `json:"notes,omitempty"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Joined for search results and detail views.
	Traveler *PublicProfile `json:"traveler,omitempty"`
}

// CreateTripRequest is the payload for publishing a new trip.
type CreateTripRequest struct {
	FromCity           string    `json:"from_city" validate:"required"`
	FromCountry        string    `json:"from_country" validate:"required"`
	ToCity             string    `json:"to_city" validate:"required"`
	ToCountry          string    `json:"to_country" validate:"required"`
	DepartureDate      time.Time `json:"departure_date" validate:"required"`
	ArrivalDate        time.Time `json:"arrival_date" validate:"required"`
	AvailableWeightKg  float64   `json:"available_weight_kg" validate:"required,gt=0"`
	AvailableVolumeL   float64   `json:"available_volume_l" validate:"omitempty,gt=0"`
	PricePerKg         float64   `json:"price_per_kg" validate:"required,gt=0"`
	Currency           string    `json:"currency" validate:"required,len=3"`
	PickupTimeLimitHrs int       `json:"pickup_time_limit_hrs" validate:"omitempty,gt=0"`
	Notes              string    `json:"notes,omitempty"`
}

// UpdateTripRequest carries the fields a traveler may amend before departure.
type UpdateTripRequest struct {
	DepartureDate     *time.Time `json:"departure_date,omitempty"`
	ArrivalDate       *time.Time `json:"arrival_date,omitempty"`
	AvailableWeightKg *float64   `json:"available_weight_kg,omitempty" validate:"omitempty,gt=0"`
	AvailableVolumeL  *float64   `json:"available_volume_l,omitempty" validate:"omitempty,gt=0"`
	PricePerKg        *float64   `json:"price_per_kg,omitempty" validate:"omitempty,gt=0"`
	Notes             *string    `json:"notes,omitempty"`
	IsActive          *bool      `json:"is_active,omitempty"`
}

// TripSearchFilter narrows the public trip search.
type TripSearchFilter struct {
	FromCity    string     `query:"from_city"`
	ToCity      string     `query:"to_city"`
	DateFrom    *time.Time `query:"date_from"`
	DateTo      *time.Time `query:"date_to"`
	MinWeightKg float64    `query:"min_weight_kg"`
}
