package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gp-connect/internal/models"
)

// fakeRepo mimics the storage layer in memory and records what the
// service wrote so tests can assert on it.
type fakeRepo struct {
	trips       map[string]*models.Trip
	owners      map[string]*models.User
	users       map[string]*models.User
	requests    map[string]*models.MatchRequest
	shipments   []*models.Shipment
	assignments []*models.Assignment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		trips:    make(map[string]*models.Trip),
		owners:   make(map[string]*models.User),
		users:    make(map[string]*models.User),
		requests: make(map[string]*models.MatchRequest),
	}
}

func (f *fakeRepo) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	tr, ok := f.trips[tripID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *tr
	return &cp, nil
}

func (f *fakeRepo) GetTripOwner(ctx context.Context, tripID string) (*models.User, error) {
	o, ok := f.owners[tripID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) GetSender(ctx context.Context, senderID string) (*models.User, error) {
	u, ok := f.users[senderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) CreateBooking(ctx context.Context, shipment *models.Shipment, request *models.MatchRequest) error {
	shipment.ID = fmt.Sprintf("ship-%d", len(f.shipments)+1)
	shipment.Status = models.ShipmentStatusPending
	shipment.CreatedAt = time.Now()
	f.shipments = append(f.shipments, shipment)

	request.ID = fmt.Sprintf("match-%d", len(f.requests)+1)
	request.ShipmentID = shipment.ID
	request.Status = models.MatchStatusPending
	request.CreatedAt = time.Now()
	cp := *request
	f.requests[request.ID] = &cp
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, matchID string) (*models.MatchRequest, error) {
	m, ok := f.requests[matchID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeRepo) ListBySender(ctx context.Context, senderID string, page, limit int) ([]*models.MatchRequest, int, error) {
	out := []*models.MatchRequest{}
	for _, m := range f.requests {
		if m.SenderID == senderID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) ListPendingForTraveler(ctx context.Context, travelerID string, page, limit int) ([]*models.MatchRequest, int, error) {
	out := []*models.MatchRequest{}
	for _, m := range f.requests {
		trip, ok := f.trips[m.TripID]
		if ok && trip.TravelerID == travelerID && m.Status == models.MatchStatusPending {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) Accept(ctx context.Context, matchID, travelerID string, finalPrice float64) (*models.Assignment, error) {
	m, ok := f.requests[matchID]
	if !ok {
		return nil, models.ErrNotFound
	}
	trip := f.trips[m.TripID]
	if trip.TravelerID != travelerID {
		return nil, models.ErrForbidden
	}
	if m.Status != models.MatchStatusPending {
		return nil, models.ErrAlreadyDecided
	}

	var weight float64
	for _, sh := range f.shipments {
		if sh.ID == m.ShipmentID {
			weight = sh.WeightKg
		}
	}
	if trip.AvailableWeightKg < weight {
		return nil, models.ErrInsufficientCapacity
	}
	trip.AvailableWeightKg -= weight

	now := time.Now()
	m.Status = models.MatchStatusAccepted
	m.FinalPrice = &finalPrice
	m.ConfirmedAt = &now

	a := &models.Assignment{
		ID:             fmt.Sprintf("assign-%d", len(f.assignments)+1),
		MatchRequestID: matchID,
		ShipmentID:     m.ShipmentID,
		TripID:         m.TripID,
		SenderID:       m.SenderID,
		TravelerID:     travelerID,
		FinalPrice:     finalPrice,
		Currency:       m.Currency,
		PaymentStatus:  models.PaymentStatusPending,
		CreatedAt:      now,
	}
	f.assignments = append(f.assignments, a)
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) Reject(ctx context.Context, matchID, travelerID string) error {
	m, ok := f.requests[matchID]
	if !ok {
		return models.ErrNotFound
	}
	trip := f.trips[m.TripID]
	if trip.TravelerID != travelerID {
		return models.ErrForbidden
	}
	if m.Status != models.MatchStatusPending {
		return models.ErrAlreadyDecided
	}
	m.Status = models.MatchStatusRejected
	return nil
}

func seedTrip(fr *fakeRepo) {
	fr.trips["t1"] = &models.Trip{
		ID:                "t1",
		TravelerID:        "traveler-1",
		FromCity:          "Paris",
		FromCountry:       "France",
		ToCity:            "Douala",
		ToCountry:         "Cameroon",
		AvailableWeightKg: 10,
		PricePerKg:        4,
		Currency:          "EUR",
		IsActive:          true,
	}
	fr.owners["t1"] = &models.User{
		ID:       "traveler-1",
		FullName: "Traveler One",
		Phone:    "+33 6 00 00 00 00",
	}
	fr.users["sender-1"] = &models.User{
		ID:       "sender-1",
		FullName: "Sender One",
	}
}

// fakeNotifier records every notification emitted by the service.
type fakeNotifier struct {
	users  []string
	kinds  []string
	bodies []string
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, kind, title, body string, refID *string) {
	f.users = append(f.users, userID)
	f.kinds = append(f.kinds, kind)
	f.bodies = append(f.bodies, body)
}

func validBooking() models.BookingRequest {
	return models.BookingRequest{
		TripID:               "t1",
		Title:                "Documents",
		Description:          "A sealed envelope of papers",
		WeightKg:             5,
		DeliveryAddress:      "12 Rue des Fleurs",
		DeliveryCity:         "Douala",
		DeliveryContactName:  "Jean R.",
		DeliveryContactPhone: "+237 6 00 00 00 00",
	}
}

func TestValidatePackageStep(t *testing.T) {
	req := validBooking()
	if err := ValidatePackageStep(req); err != nil {
		t.Errorf("valid package step rejected: %v", err)
	}

	noTitle := validBooking()
	noTitle.Title = "  "
	if err := ValidatePackageStep(noTitle); err == nil {
		t.Error("blank title accepted")
	}

	zeroWeight := validBooking()
	zeroWeight.WeightKg = 0
	if err := ValidatePackageStep(zeroWeight); err == nil {
		t.Error("zero weight accepted")
	}
}

func TestValidateDeliveryStep(t *testing.T) {
	req := validBooking()
	if err := ValidateDeliveryStep(req); err != nil {
		t.Errorf("valid delivery step rejected: %v", err)
	}

	noPhone := validBooking()
	noPhone.DeliveryContactPhone = ""
	if err := ValidateDeliveryStep(noPhone); err == nil {
		t.Error("missing contact phone accepted")
	}
}

func TestQuote(t *testing.T) {
	fr := newFakeRepo()
	seedTrip(fr)
	svc := NewService(fr, nil)

	q, err := svc.Quote(context.Background(), "t1", 5)
	if err != nil {
		t.Fatalf("Quote error: %v", err)
	}
	if q.EstimatedPrice != 20 {
		t.Errorf("EstimatedPrice = %v; want 20", q.EstimatedPrice)
	}
	if q.Currency != "EUR" {
		t.Errorf("Currency = %s; want EUR", q.Currency)
	}
	if q.Display != "20.00€" {
		t.Errorf("Display = %q; want 20.00€", q.Display)
	}

	if _, err := svc.Quote(context.Background(), "t1", 0); !errors.Is(err, models.ErrConflict) {
		t.Errorf("zero weight quote error = %v; want ErrConflict", err)
	}
}

func TestBookCreatesShipmentAndRequest(t *testing.T) {
	fr := newFakeRepo()
	seedTrip(fr)
	svc := NewService(fr, nil)

	resp, err := svc.Book(context.Background(), "sender-1", validBooking())
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	if len(fr.shipments) != 1 {
		t.Fatalf("shipments created = %d; want 1", len(fr.shipments))
	}
	sh := fr.shipments[0]
	if sh.PickupCity != "Paris" {
		t.Errorf("PickupCity = %s; want Paris", sh.PickupCity)
	}
	if sh.PickupContactName != "Traveler One" {
		t.Errorf("PickupContactName = %s; want Traveler One", sh.PickupContactName)
	}
	if sh.PickupContactPhone != "+33 6 00 00 00 00" {
		t.Errorf("PickupContactPhone = %s", sh.PickupContactPhone)
	}

	if resp.MatchRequest.EstimatedPrice != 20 {
		t.Errorf("EstimatedPrice = %v; want 20", resp.MatchRequest.EstimatedPrice)
	}
	if resp.MatchRequest.Status != models.MatchStatusPending {
		t.Errorf("Status = %s; want pending", resp.MatchRequest.Status)
	}
	if resp.MatchRequest.ShipmentID != sh.ID {
		t.Errorf("ShipmentID = %s; want %s", resp.MatchRequest.ShipmentID, sh.ID)
	}
}

func TestBookNotifiesTravelerWithSenderName(t *testing.T) {
	fr := newFakeRepo()
	seedTrip(fr)
	notifier := &fakeNotifier{}
	svc := NewService(fr, notifier)

	if _, err := svc.Book(context.Background(), "sender-1", validBooking()); err != nil {
		t.Fatalf("Book error: %v", err)
	}

	if len(notifier.users) != 1 || notifier.users[0] != "traveler-1" {
		t.Fatalf("notified users = %v; want [traveler-1]", notifier.users)
	}
	if notifier.kinds[0] != "match_request" {
		t.Errorf("kind = %s; want match_request", notifier.kinds[0])
	}
	// The notification names the person booking, not the parcel's
	// recipient.
	if !strings.Contains(notifier.bodies[0], "Sender One") {
		t.Errorf("body = %q; want it to name Sender One", notifier.bodies[0])
	}
	if strings.Contains(notifier.bodies[0], "Jean R.") {
		t.Errorf("body = %q; names the delivery contact instead of the sender", notifier.bodies[0])
	}
}

func TestBookNotificationWithoutSenderProfile(t *testing.T) {
	fr := newFakeRepo()
	seedTrip(fr)
	delete(fr.users, "sender-1")
	notifier := &fakeNotifier{}
	svc := NewService(fr, notifier)

	if _, err := svc.Book(context.Background(), "sender-1", validBooking()); err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if !strings.Contains(notifier.bodies[0], "A sender") {
		t.Errorf("body = %q; want the neutral fallback", notifier.bodies[0])
	}
}

func TestBookUsesFallbackPhone(t *testing.T) {
	fr := newFakeRepo()
	seedTrip(fr)
	fr.owners["t1"].Phone = ""
	svc := NewService(fr, nil)

	_, err := svc.Book(context.Background(), "sender-1", validBooking())
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if got := fr.shipments[0].PickupContactPhone; got != fallbackPickupPhone {
		t.Errorf("PickupContactPhone = %q; want %q", got, fallbackPickupPhone)
	}
}

func TestBookGuards(t *testing.T) {
	fr := newFakeRepo()
	seedTrip(fr)
	svc := NewService(fr, nil)
	ctx := context.Background()

	// Own trip.
	if _, err := svc.Book(ctx, "traveler-1", validBooking()); !errors.Is(err, models.ErrOwnTrip) {
		t.Errorf("own trip error = %v; want ErrOwnTrip", err)
	}

	// Over capacity.
	heavy := validBooking()
	heavy.WeightKg = 11
	if _, err := svc.Book(ctx, "sender-1", heavy); !errors.Is(err, models.ErrInsufficientCapacity) {
		t.Errorf("over capacity error = %v; want ErrInsufficientCapacity", err)
	}

	// Inactive trip.
	fr.trips["t1"].IsActive = false
	if _, err := svc.Book(ctx, "sender-1", validBooking()); !errors.Is(err, models.ErrTripInactive) {
		t.Errorf("inactive trip error = %v; want ErrTripInactive", err)
	}

	if len(fr.shipments) != 0 {
		t.Errorf("rejected bookings still created %d shipments", len(fr.shipments))
	}
}

func TestAcceptDefaultsToEstimate(t *testing.T) {
	fr := newFakeRepo()
	seedTrip(fr)
	svc := NewService(fr, nil)
	ctx := context.Background()

	resp, err := svc.Book(ctx, "sender-1", validBooking())
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	a, err := svc.Accept(ctx, resp.MatchRequest.ID, "traveler-1", models.AcceptMatchRequest{})
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if a.FinalPrice != 20 {
		t.Errorf("FinalPrice = %v; want the 20 estimate", a.FinalPrice)
	}
	if a.PaymentStatus != models.PaymentStatusPending {
		t.Errorf("PaymentStatus = %s; want pending", a.PaymentStatus)
	}
	// Capacity is consumed at acceptance.
	if fr.trips["t1"].AvailableWeightKg != 5 {
		t.Errorf("AvailableWeightKg = %v; want 5", fr.trips["t1"].AvailableWeightKg)
	}
}

func TestAcceptWithAmendedPrice(t *testing.T) {
	fr := newFakeRepo()
	seedTrip(fr)
	svc := NewService(fr, nil)
	ctx := context.Background()

	resp, err := svc.Book(ctx, "sender-1", validBooking())
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	amended := 18.0
	a, err := svc.Accept(ctx, resp.MatchRequest.ID, "traveler-1", models.AcceptMatchRequest{FinalPrice: &amended})
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if a.FinalPrice != 18 {
		t.Errorf("FinalPrice = %v; want 18", a.FinalPrice)
	}
}

func TestAcceptIsDecidedOnce(t *testing.T) {
	fr := newFakeRepo()
	seedTrip(fr)
	svc := NewService(fr, nil)
	ctx := context.Background()

	resp, err := svc.Book(ctx, "sender-1", validBooking())
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	if _, err := svc.Accept(ctx, resp.MatchRequest.ID, "traveler-1", models.AcceptMatchRequest{}); err != nil {
		t.Fatalf("first Accept error: %v", err)
	}
	if _, err := svc.Accept(ctx, resp.MatchRequest.ID, "traveler-1", models.AcceptMatchRequest{}); !errors.Is(err, models.ErrAlreadyDecided) {
		t.Errorf("second Accept error = %v; want ErrAlreadyDecided", err)
	}
	if err := svc.Reject(ctx, resp.MatchRequest.ID, "traveler-1"); !errors.Is(err, models.ErrAlreadyDecided) {
		t.Errorf("Reject after Accept error = %v; want ErrAlreadyDecided", err)
	}
	if len(fr.assignments) != 1 {
		t.Errorf("assignments = %d; want 1", len(fr.assignments))
	}
}

func TestRejectLeavesNoAssignment(t *testing.T) {
	fr := newFakeRepo()
	seedTrip(fr)
	svc := NewService(fr, nil)
	ctx := context.Background()

	resp, err := svc.Book(ctx, "sender-1", validBooking())
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	if err := svc.Reject(ctx, resp.MatchRequest.ID, "traveler-1"); err != nil {
		t.Fatalf("Reject error: %v", err)
	}
	if fr.requests[resp.MatchRequest.ID].Status != models.MatchStatusRejected {
		t.Errorf("Status = %s; want rejected", fr.requests[resp.MatchRequest.ID].Status)
	}
	if len(fr.assignments) != 0 {
		t.Errorf("assignments = %d; want 0", len(fr.assignments))
	}
	// Capacity is untouched on rejection.
	if fr.trips["t1"].AvailableWeightKg != 10 {
		t.Errorf("AvailableWeightKg = %v; want 10", fr.trips["t1"].AvailableWeightKg)
	}
}
