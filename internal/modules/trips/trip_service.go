package trips

import (
	"context"
	"fmt"
	"log"
	"time"

	"gp-connect/internal/models"
)

// ServiceInterface defines the contract for the trip service.
type ServiceInterface interface {
	CreateTrip(ctx context.Context, travelerID string, req models.CreateTripRequest) (*models.Trip, error)
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)
	ListMyTrips(ctx context.Context, travelerID string, page, limit int) ([]*models.Trip, int, error)
	SearchTrips(ctx context.Context, filter models.TripSearchFilter, page, limit int) ([]*models.Trip, int, error)
	UpdateTrip(ctx context.Context, tripID, travelerID string, req models.UpdateTripRequest) (*models.Trip, error)
	DeactivateTrip(ctx context.Context, tripID, travelerID string) (*models.Trip, error)
	SweepDeparted(ctx context.Context) (int64, error)
}

// Service implements the trip service logic.
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new trip service.
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// CreateTrip publishes a new trip offer after checking the dates are
// coherent.
func (s *Service) CreateTrip(ctx context.Context, travelerID string, req models.CreateTripRequest) (*models.Trip, error) {
	if req.ArrivalDate.Before(req.DepartureDate) {
		return nil, fmt.Errorf("%w: arrival before departure", models.ErrConflict)
	}
	if req.DepartureDate.Before(time.Now()) {
		return nil, fmt.Errorf("%w: departure in the past", models.ErrConflict)
	}

	trip, err := s.repo.Create(ctx, travelerID, req)
	if err != nil {
		return nil, fmt.Errorf("service.CreateTrip: %w", err)
	}
	return trip, nil
}

// GetTrip retrieves a single trip with the traveler profile joined.
func (s *Service) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip, err := s.repo.FindByID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.GetTrip: %w", err)
	}
	return trip, nil
}

// ListMyTrips retrieves the caller's own trips.
func (s *Service) ListMyTrips(ctx context.Context, travelerID string, page, limit int) ([]*models.Trip, int, error) {
	page, limit = normalizePage(page, limit)
	trips, total, err := s.repo.ListByTraveler(ctx, travelerID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ListMyTrips: %w", err)
	}
	return trips, total, nil
}

// SearchTrips lists bookable trips matching the filter.
func (s *Service) SearchTrips(ctx context.Context, filter models.TripSearchFilter, page, limit int) ([]*models.Trip, int, error) {
	page, limit = normalizePage(page, limit)
	trips, total, err := s.repo.Search(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.SearchTrips: %w", err)
	}
	return trips, total, nil
}

// UpdateTrip amends a trip owned by the caller.
func (s *Service) UpdateTrip(ctx context.Context, tripID, travelerID string, req models.UpdateTripRequest) (*models.Trip, error) {
	trip, err := s.repo.Update(ctx, tripID, travelerID, req)
	if err != nil {
		return nil, fmt.Errorf("service.UpdateTrip: %w", err)
	}
	return trip, nil
}

// DeactivateTrip takes a trip off the search results without deleting it.
func (s *Service) DeactivateTrip(ctx context.Context, tripID, travelerID string) (*models.Trip, error) {
	inactive := false
	trip, err := s.repo.Update(ctx, tripID, travelerID, models.UpdateTripRequest{IsActive: &inactive})
	if err != nil {
		return nil, fmt.Errorf("service.DeactivateTrip: %w", err)
	}
	return trip, nil
}

// SweepDeparted deactivates trips past their departure date. Exposed for a
// cron-style caller; the original platform ran this as a scheduled
// function.
func (s *Service) SweepDeparted(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateDeparted(ctx)
	if err != nil {
		return 0, fmt.Errorf("service.SweepDeparted: %w", err)
	}
	if n > 0 {
		log.Printf("trip sweep: deactivated %d departed trips", n)
	}
	return n, nil
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
