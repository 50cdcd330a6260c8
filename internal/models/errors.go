package models

import "errors"

var ErrNotFound = errors.New("requested resource not found")
var ErrForbidden = errors.New("user does not have permission to access this resource")
var ErrConflict = errors.New("resource conflict, item already exists")
var ErrInvalidToken = errors.New("token not found or expired")
var ErrInvalidCredentials = errors.New("invalid credentials") // email or password provided does not match database record
var ErrEmailTaken = errors.New("email already registered")

// Matching errors.
var ErrTripInactive = errors.New("trip is no longer active")
var ErrOwnTrip = errors.New("cannot book a shipment on your own trip")

// ErrInsufficientCapacity indicates that the parcel weight exceeds the
// trip's remaining capacity.
var ErrInsufficientCapacity = errors.New("parcel exceeds the trip's remaining capacity")

// ErrAlreadyDecided indicates the match request left the pending state
// already; a request is accepted or rejected exactly once.
var ErrAlreadyDecided = errors.New("match request has already been decided")

// Delivery lifecycle errors. Transitions are guarded: pickup before
// delivery, and neither is re-applied once stamped.
var ErrAlreadyPickedUp = errors.New("pickup has already been recorded")
var ErrNotPickedUp = errors.New("pickup has not been recorded yet")
var ErrAlreadyDelivered = errors.New("delivery has already been recorded")
var ErrNotDelivered = errors.New("assignment has not been delivered yet")
var ErrAlreadyPaid = errors.New("assignment has already been paid")

var ErrProofExists = errors.New("proof of delivery already submitted")
var ErrReviewExists = errors.New("review already submitted for this assignment")
