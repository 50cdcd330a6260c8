package trips

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gp-connect/internal/models"
)

type fakeRepo struct {
	trips map[string]*models.Trip
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{trips: make(map[string]*models.Trip)}
}

func (f *fakeRepo) Create(ctx context.Context, travelerID string, req models.CreateTripRequest) (*models.Trip, error) {
	tr := &models.Trip{
		ID:                fmt.Sprintf("trip-%d", len(f.trips)+1),
		TravelerID:        travelerID,
		FromCity:          req.FromCity,
		FromCountry:       req.FromCountry,
		ToCity:            req.ToCity,
		ToCountry:         req.ToCountry,
		DepartureDate:     req.DepartureDate,
		ArrivalDate:       req.ArrivalDate,
		AvailableWeightKg: req.AvailableWeightKg,
		AvailableVolumeL:  req.AvailableVolumeL,
		PricePerKg:        req.PricePerKg,
		Currency:          req.Currency,
		Notes:             req.Notes,
		IsActive:          true,
		CreatedAt:         time.Now(),
	}
	f.trips[tr.ID] = tr
	cp := *tr
	return &cp, nil
}

func (f *fakeRepo) FindByID(ctx context.Context, tripID string) (*models.Trip, error) {
	tr, ok := f.trips[tripID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *tr
	return &cp, nil
}

func (f *fakeRepo) ListByTraveler(ctx context.Context, travelerID string, page, limit int) ([]*models.Trip, int, error) {
	out := []*models.Trip{}
	for _, tr := range f.trips {
		if tr.TravelerID == travelerID {
			cp := *tr
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) Search(ctx context.Context, filter models.TripSearchFilter, page, limit int) ([]*models.Trip, int, error) {
	out := []*models.Trip{}
	for _, tr := range f.trips {
		if !tr.IsActive {
			continue
		}
		if filter.FromCity != "" && !strings.EqualFold(tr.FromCity, filter.FromCity) {
			continue
		}
		if filter.ToCity != "" && !strings.EqualFold(tr.ToCity, filter.ToCity) {
			continue
		}
		if filter.MinWeightKg > 0 && tr.AvailableWeightKg < filter.MinWeightKg {
			continue
		}
		cp := *tr
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Update(ctx context.Context, tripID, travelerID string, req models.UpdateTripRequest) (*models.Trip, error) {
	tr, ok := f.trips[tripID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if tr.TravelerID != travelerID {
		return nil, models.ErrForbidden
	}
	if req.AvailableWeightKg != nil {
		tr.AvailableWeightKg = *req.AvailableWeightKg
	}
	if req.PricePerKg != nil {
		tr.PricePerKg = *req.PricePerKg
	}
	if req.IsActive != nil {
		tr.IsActive = *req.IsActive
	}
	cp := *tr
	return &cp, nil
}

func (f *fakeRepo) DeactivateDeparted(ctx context.Context) (int64, error) {
	var n int64
	now := time.Now()
	for _, tr := range f.trips {
		if tr.IsActive && tr.DepartureDate.Before(now) {
			tr.IsActive = false
			n++
		}
	}
	return n, nil
}

func validTrip() models.CreateTripRequest {
	return models.CreateTripRequest{
		FromCity:          "Paris",
		FromCountry:       "France",
		ToCity:            "Douala",
		ToCountry:         "Cameroon",
		DepartureDate:     time.Now().Add(48 * time.Hour),
		ArrivalDate:       time.Now().Add(72 * time.Hour),
		AvailableWeightKg: 10,
		PricePerKg:        4,
		Currency:          "EUR",
	}
}

func TestCreateTripDateChecks(t *testing.T) {
	fr := newFakeRepo()
	svc := NewService(fr)
	ctx := context.Background()

	tr, err := svc.CreateTrip(ctx, "traveler-1", validTrip())
	if err != nil {
		t.Fatalf("CreateTrip error: %v", err)
	}
	if !tr.IsActive {
		t.Error("new trip is not active")
	}

	backwards := validTrip()
	backwards.ArrivalDate = backwards.DepartureDate.Add(-time.Hour)
	if _, err := svc.CreateTrip(ctx, "traveler-1", backwards); !errors.Is(err, models.ErrConflict) {
		t.Errorf("arrival before departure error = %v; want ErrConflict", err)
	}

	past := validTrip()
	past.DepartureDate = time.Now().Add(-time.Hour)
	past.ArrivalDate = time.Now().Add(time.Hour)
	if _, err := svc.CreateTrip(ctx, "traveler-1", past); !errors.Is(err, models.ErrConflict) {
		t.Errorf("past departure error = %v; want ErrConflict", err)
	}
}

func TestUpdateTripOwnership(t *testing.T) {
	fr := newFakeRepo()
	svc := NewService(fr)
	ctx := context.Background()

	tr, err := svc.CreateTrip(ctx, "traveler-1", validTrip())
	if err != nil {
		t.Fatalf("CreateTrip error: %v", err)
	}

	newPrice := 5.0
	if _, err := svc.UpdateTrip(ctx, tr.ID, "traveler-2", models.UpdateTripRequest{PricePerKg: &newPrice}); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("foreign update error = %v; want ErrForbidden", err)
	}

	updated, err := svc.UpdateTrip(ctx, tr.ID, "traveler-1", models.UpdateTripRequest{PricePerKg: &newPrice})
	if err != nil {
		t.Fatalf("UpdateTrip error: %v", err)
	}
	if updated.PricePerKg != 5 {
		t.Errorf("PricePerKg = %v; want 5", updated.PricePerKg)
	}
}

func TestDeactivateTripHidesFromSearch(t *testing.T) {
	fr := newFakeRepo()
	svc := NewService(fr)
	ctx := context.Background()

	tr, err := svc.CreateTrip(ctx, "traveler-1", validTrip())
	if err != nil {
		t.Fatalf("CreateTrip error: %v", err)
	}

	found, _, err := svc.SearchTrips(ctx, models.TripSearchFilter{FromCity: "paris"}, 1, 20)
	if err != nil {
		t.Fatalf("SearchTrips error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("search results = %d; want 1", len(found))
	}

	if _, err := svc.DeactivateTrip(ctx, tr.ID, "traveler-1"); err != nil {
		t.Fatalf("DeactivateTrip error: %v", err)
	}

	found, _, _ = svc.SearchTrips(ctx, models.TripSearchFilter{FromCity: "paris"}, 1, 20)
	if len(found) != 0 {
		t.Errorf("search results after deactivation = %d; want 0", len(found))
	}
}

func TestSweepDeparted(t *testing.T) {
	fr := newFakeRepo()
	svc := NewService(fr)
	ctx := context.Background()

	// One future trip and one already departed.
	if _, err := svc.CreateTrip(ctx, "traveler-1", validTrip()); err != nil {
		t.Fatalf("CreateTrip error: %v", err)
	}
	fr.trips["departed"] = &models.Trip{
		ID:            "departed",
		TravelerID:    "traveler-2",
		DepartureDate: time.Now().Add(-24 * time.Hour),
		IsActive:      true,
	}

	n, err := svc.SweepDeparted(ctx)
	if err != nil {
		t.Fatalf("SweepDeparted error: %v", err)
	}
	if n != 1 {
		t.Errorf("swept = %d; want 1", n)
	}
	if fr.trips["departed"].IsActive {
		t.Error("departed trip still active")
	}
	if !fr.trips["trip-1"].IsActive {
		t.Error("future trip was deactivated")
	}
}
