package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gp-connect/internal/models"
)

// fallbackPickupPhone is used when the trip owner has no phone on file; the
// sender gets the real number once the traveler completes their profile.
const fallbackPickupPhone = "to be provided"

// NotifierInterface is the contract for emitting lifecycle notifications
// (in-app inbox plus email).
type NotifierInterface interface {
	Notify(ctx context.Context, userID, kind, title, body string, refID *string)
}

// ServiceInterface defines the contract for the matching service.
type ServiceInterface interface {
	Quote(ctx context.Context, tripID string, weightKg float64) (*models.QuoteResponse, error)
	Book(ctx context.Context, senderID string, req models.BookingRequest) (*models.BookingResponse, error)
	ListMyRequests(ctx context.Context, senderID string, page, limit int) ([]*models.MatchRequest, int, error)
	ListIncoming(ctx context.Context, travelerID string, page, limit int) ([]*models.MatchRequest, int, error)
	Accept(ctx context.Context, matchID, travelerID string, req models.AcceptMatchRequest) (*models.Assignment, error)
	Reject(ctx context.Context, matchID, travelerID string) error
}

// Service implements the matching service logic.
type Service struct {
	repo     RepositoryInterface
	notifier NotifierInterface
}

// NewService creates a new matching service.
func NewService(repo RepositoryInterface, notifier NotifierInterface) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// ValidatePackageStep checks the wizard's package step: non-empty title and
// description and a positive weight.
func ValidatePackageStep(req models.BookingRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return errors.New("description is required")
	}
	if req.WeightKg <= 0 {
		return errors.New("weight must be greater than zero")
	}
	return nil
}

// ValidateDeliveryStep checks the wizard's delivery step: all four
// address/contact fields are required.
func ValidateDeliveryStep(req models.BookingRequest) error {
	for _, f := range []struct{ name, value string }{
		{"delivery address", req.DeliveryAddress},
		{"delivery city", req.DeliveryCity},
		{"delivery contact name", req.DeliveryContactName},
		{"delivery contact phone", req.DeliveryContactPhone},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%s is required", f.name)
		}
	}
	return nil
}

// Quote returns the price preview for shipping a given weight on a trip.
func (s *Service) Quote(ctx context.Context, tripID string, weightKg float64) (*models.QuoteResponse, error) {
	if weightKg <= 0 {
		return nil, fmt.Errorf("%w: weight must be greater than zero", models.ErrConflict)
	}
	trip, err := s.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.Quote: %w", err)
	}
	price := EstimatePrice(weightKg, trip.PricePerKg)
	return &models.QuoteResponse{
		EstimatedPrice: price,
		Currency:       trip.Currency,
		Display:        FormatPrice(price, trip.Currency),
	}, nil
}

// Book turns a completed wizard into a shipment plus a match request. Both
// rows are written in one transaction. Pickup fields are copied from the
// trip's departure location and the trip owner's profile.
func (s *Service) Book(ctx context.Context, senderID string, req models.BookingRequest) (*models.BookingResponse, error) {
	if err := ValidatePackageStep(req); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrConflict, err)
	}
	if err := ValidateDeliveryStep(req); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrConflict, err)
	}

	trip, err := s.repo.GetTrip(ctx, req.TripID)
	if err != nil {
		return nil, fmt.Errorf("service.Book: %w", err)
	}
	if !trip.IsActive {
		return nil, models.ErrTripInactive
	}
	if trip.TravelerID == senderID {
		return nil, models.ErrOwnTrip
	}
	if req.WeightKg > trip.AvailableWeightKg {
		return nil, models.ErrInsufficientCapacity
	}

	owner, err := s.repo.GetTripOwner(ctx, req.TripID)
	if err != nil {
		return nil, fmt.Errorf("service.Book: %w", err)
	}
	pickupPhone := owner.Phone
	if pickupPhone == "" {
		pickupPhone = fallbackPickupPhone
	}

	shipment := &models.Shipment{
		SenderID:             senderID,
		Title:                req.Title,
		Description:          req.Description,
		WeightKg:             req.WeightKg,
		VolumeL:              req.VolumeL,
		PickupAddress:        trip.FromCity + ", " + trip.FromCountry,
		PickupCity:           trip.FromCity,
		PickupContactName:    owner.FullName,
		PickupContactPhone:   pickupPhone,
		DeliveryAddress:      req.DeliveryAddress,
		DeliveryCity:         req.DeliveryCity,
		DeliveryContactName:  req.DeliveryContactName,
		DeliveryContactPhone: req.DeliveryContactPhone,
	}
	request := &models.MatchRequest{
		TripID:         req.TripID,
		SenderID:       senderID,
		EstimatedPrice: EstimatePrice(req.WeightKg, trip.PricePerKg),
		Currency:       trip.Currency,
		Message:        req.Message,
	}

	if err := s.repo.CreateBooking(ctx, shipment, request); err != nil {
		return nil, fmt.Errorf("service.Book: %w", err)
	}

	if s.notifier != nil {
		// The delivery contact is the recipient, not the person booking;
		// name the sender from their profile instead.
		senderName := "A sender"
		if sender, err := s.repo.GetSender(ctx, senderID); err == nil && sender.FullName != "" {
			senderName = sender.FullName
		}
		s.notifier.Notify(ctx, trip.TravelerID, "match_request",
			"New delivery request",
			fmt.Sprintf("%s would like to ship %q (%.1f kg) on your %s → %s trip.",
				senderName, req.Title, req.WeightKg, trip.FromCity, trip.ToCity),
			&request.ID)
	}

	return &models.BookingResponse{Shipment: shipment, MatchRequest: request}, nil
}

// ListMyRequests retrieves the caller's own match requests.
func (s *Service) ListMyRequests(ctx context.Context, senderID string, page, limit int) ([]*models.MatchRequest, int, error) {
	page, limit = normalizePage(page, limit)
	out, total, err := s.repo.ListBySender(ctx, senderID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ListMyRequests: %w", err)
	}
	return out, total, nil
}

// ListIncoming retrieves pending requests on the traveler's trips.
func (s *Service) ListIncoming(ctx context.Context, travelerID string, page, limit int) ([]*models.MatchRequest, int, error) {
	page, limit = normalizePage(page, limit)
	out, total, err := s.repo.ListPendingForTraveler(ctx, travelerID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ListIncoming: %w", err)
	}
	return out, total, nil
}

// Accept commits a pending request. The final price defaults to the
// sender's estimate when the traveler does not amend it.
func (s *Service) Accept(ctx context.Context, matchID, travelerID string, req models.AcceptMatchRequest) (*models.Assignment, error) {
	match, err := s.repo.FindByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("service.Accept: %w", err)
	}

	finalPrice := match.EstimatedPrice
	if req.FinalPrice != nil {
		finalPrice = *req.FinalPrice
	}

	assignment, err := s.repo.Accept(ctx, matchID, travelerID, finalPrice)
	if err != nil {
		return nil, fmt.Errorf("service.Accept: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, assignment.SenderID, "match_accepted",
			"Your delivery request was accepted",
			fmt.Sprintf("The traveler accepted your request at %s.", FormatPrice(finalPrice, assignment.Currency)),
			&assignment.ID)
	}

	return assignment, nil
}

// Reject declines a pending request.
func (s *Service) Reject(ctx context.Context, matchID, travelerID string) error {
	if err := s.repo.Reject(ctx, matchID, travelerID); err != nil {
		return fmt.Errorf("service.Reject: %w", err)
	}

	if s.notifier != nil {
		if match, err := s.repo.FindByID(ctx, matchID); err == nil {
			s.notifier.Notify(ctx, match.SenderID, "match_rejected",
				"Your delivery request was declined",
				"The traveler declined your request. Your parcel was not booked.",
				&match.ID)
		}
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
