package delivery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gp-connect/internal/models"
)

// fakeRepo holds assignments in memory and applies the same stamp guards
// as the SQL layer.
type fakeRepo struct {
	assignments    map[string]*models.Assignment
	shipments      map[string]*models.Shipment
	trackingEvents []*models.TrackingEvent
	proofs         map[string]*models.ProofOfDelivery
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		assignments: make(map[string]*models.Assignment),
		shipments:   make(map[string]*models.Shipment),
		proofs:      make(map[string]*models.ProofOfDelivery),
	}
}

func (f *fakeRepo) FindAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	a, ok := f.assignments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) FindDetail(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	a, ok := f.assignments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	var sh *models.Shipment
	if s, ok := f.shipments[a.ShipmentID]; ok {
		scp := *s
		sh = &scp
	}
	return &models.AssignmentDetail{
		Assignment: cp,
		Status:     AssignmentStatus(&cp),
		Shipment:   sh,
	}, nil
}

func (f *fakeRepo) ListForUser(ctx context.Context, userID string, page, limit int) ([]*models.Assignment, int, error) {
	out := []*models.Assignment{}
	for _, a := range f.assignments {
		if a.SenderID == userID || a.TravelerID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) StampPickup(ctx context.Context, id string) (*models.Assignment, error) {
	a, ok := f.assignments[id]
	if !ok || a.PickupCompletedAt != nil || a.DeliveryCompletedAt != nil {
		return nil, models.ErrNotFound
	}
	now := time.Now()
	a.PickupCompletedAt = &now
	if sh, ok := f.shipments[a.ShipmentID]; ok {
		sh.Status = models.ShipmentStatusInTransit
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) StampDelivery(ctx context.Context, id string) (*models.Assignment, error) {
	a, ok := f.assignments[id]
	if !ok || a.PickupCompletedAt == nil || a.DeliveryCompletedAt != nil {
		return nil, models.ErrNotFound
	}
	now := time.Now()
	a.DeliveryCompletedAt = &now
	if sh, ok := f.shipments[a.ShipmentID]; ok {
		sh.Status = models.ShipmentStatusDelivered
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) CreateTrackingEvent(ctx context.Context, ev *models.TrackingEvent) error {
	ev.ID = fmt.Sprintf("track-%d", len(f.trackingEvents)+1)
	ev.CreatedAt = time.Now()
	f.trackingEvents = append(f.trackingEvents, ev)
	return nil
}

func (f *fakeRepo) ListTrackingEvents(ctx context.Context, id string) ([]*models.TrackingEvent, error) {
	out := []*models.TrackingEvent{}
	for _, ev := range f.trackingEvents {
		if ev.AssignmentID == id {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateProof(ctx context.Context, proof *models.ProofOfDelivery) error {
	if _, ok := f.proofs[proof.AssignmentID]; ok {
		return models.ErrProofExists
	}
	proof.ID = fmt.Sprintf("proof-%d", len(f.proofs)+1)
	proof.CreatedAt = time.Now()
	f.proofs[proof.AssignmentID] = proof
	return nil
}

func (f *fakeRepo) FindProof(ctx context.Context, id string) (*models.ProofOfDelivery, error) {
	p, ok := f.proofs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) SetPaid(ctx context.Context, id string) error {
	a, ok := f.assignments[id]
	if !ok {
		return models.ErrNotFound
	}
	if a.PaymentStatus == models.PaymentStatusPaid {
		return models.ErrAlreadyPaid
	}
	a.PaymentStatus = models.PaymentStatusPaid
	return nil
}

// fakePayment records charges and can be told to fail.
type fakePayment struct {
	charges []float64
	fail    bool
}

func (f *fakePayment) ProcessPayment(ctx context.Context, userID string, amount float64, currency, paymentMethodID string) (string, error) {
	if f.fail {
		return "", errors.New("card declined")
	}
	f.charges = append(f.charges, amount)
	return fmt.Sprintf("charge-%d", len(f.charges)), nil
}

func seedAssignment(fr *fakeRepo) {
	fr.assignments["a1"] = &models.Assignment{
		ID:            "a1",
		ShipmentID:    "s1",
		SenderID:      "sender-1",
		TravelerID:    "traveler-1",
		FinalPrice:    18,
		Currency:      "EUR",
		PaymentStatus: models.PaymentStatusPending,
	}
	fr.shipments["s1"] = &models.Shipment{
		ID:              "s1",
		SenderID:        "sender-1",
		Title:           "Documents",
		PickupCity:      "Paris",
		PickupAddress:   "Paris, France",
		DeliveryCity:    "Douala",
		DeliveryAddress: "12 Rue des Fleurs",
		Status:          models.ShipmentStatusAccepted,
	}
}

func TestMarkPickedUp(t *testing.T) {
	fr := newFakeRepo()
	seedAssignment(fr)
	svc := NewService(fr, &fakePayment{}, nil, nil)
	ctx := context.Background()

	a, err := svc.MarkPickedUp(ctx, "a1", "traveler-1")
	if err != nil {
		t.Fatalf("MarkPickedUp error: %v", err)
	}
	if a.PickupCompletedAt == nil {
		t.Error("PickupCompletedAt not stamped")
	}
	if fr.shipments["s1"].Status != models.ShipmentStatusInTransit {
		t.Errorf("shipment status = %s; want in_transit", fr.shipments["s1"].Status)
	}
	if len(fr.trackingEvents) != 1 || fr.trackingEvents[0].EventType != models.TrackingEventPickup {
		t.Errorf("tracking events = %+v; want one pickup event", fr.trackingEvents)
	}

	// Re-invocation is rejected, not re-applied.
	if _, err := svc.MarkPickedUp(ctx, "a1", "traveler-1"); !errors.Is(err, models.ErrAlreadyPickedUp) {
		t.Errorf("second MarkPickedUp error = %v; want ErrAlreadyPickedUp", err)
	}
	if len(fr.trackingEvents) != 1 {
		t.Errorf("tracking events after rejected repeat = %d; want 1", len(fr.trackingEvents))
	}
}

func TestMarkPickedUpAuthorization(t *testing.T) {
	fr := newFakeRepo()
	seedAssignment(fr)
	svc := NewService(fr, &fakePayment{}, nil, nil)

	if _, err := svc.MarkPickedUp(context.Background(), "a1", "sender-1"); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("sender MarkPickedUp error = %v; want ErrForbidden", err)
	}
}

func TestMarkDeliveredRequiresPickup(t *testing.T) {
	fr := newFakeRepo()
	seedAssignment(fr)
	svc := NewService(fr, &fakePayment{}, nil, nil)
	ctx := context.Background()

	if _, err := svc.MarkDelivered(ctx, "a1", "traveler-1"); !errors.Is(err, models.ErrNotPickedUp) {
		t.Errorf("MarkDelivered before pickup error = %v; want ErrNotPickedUp", err)
	}

	if _, err := svc.MarkPickedUp(ctx, "a1", "traveler-1"); err != nil {
		t.Fatalf("MarkPickedUp error: %v", err)
	}
	a, err := svc.MarkDelivered(ctx, "a1", "traveler-1")
	if err != nil {
		t.Fatalf("MarkDelivered error: %v", err)
	}
	if a.DeliveryCompletedAt == nil {
		t.Error("DeliveryCompletedAt not stamped")
	}
	if fr.shipments["s1"].Status != models.ShipmentStatusDelivered {
		t.Errorf("shipment status = %s; want delivered", fr.shipments["s1"].Status)
	}

	// Delivered is terminal.
	if _, err := svc.MarkDelivered(ctx, "a1", "traveler-1"); !errors.Is(err, models.ErrAlreadyDelivered) {
		t.Errorf("repeat MarkDelivered error = %v; want ErrAlreadyDelivered", err)
	}
	if _, err := svc.MarkPickedUp(ctx, "a1", "traveler-1"); !errors.Is(err, models.ErrAlreadyDelivered) {
		t.Errorf("MarkPickedUp after delivery error = %v; want ErrAlreadyDelivered", err)
	}
}

func TestShareLocation(t *testing.T) {
	fr := newFakeRepo()
	seedAssignment(fr)
	svc := NewService(fr, &fakePayment{}, nil, nil)
	ctx := context.Background()

	lat, lng := 48.85, 2.35
	err := svc.ShareLocation(ctx, "a1", "traveler-1", models.TrackingEventRequest{
		Latitude:  &lat,
		Longitude: &lng,
	})
	if err != nil {
		t.Fatalf("ShareLocation error: %v", err)
	}

	evs, err := svc.GetTracking(ctx, "a1", "sender-1", models.RoleSender)
	if err != nil {
		t.Fatalf("GetTracking error: %v", err)
	}
	if len(evs) != 1 || evs[0].EventType != models.TrackingEventLocationShare {
		t.Errorf("events = %+v; want one location_share", evs)
	}

	// Outsiders see not-found, not forbidden.
	if _, err := svc.GetTracking(ctx, "a1", "stranger", models.RoleSender); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("outsider GetTracking error = %v; want ErrNotFound", err)
	}
}

func TestSubmitProofStampsDelivery(t *testing.T) {
	fr := newFakeRepo()
	seedAssignment(fr)
	svc := NewService(fr, &fakePayment{}, nil, nil)
	ctx := context.Background()

	req := models.ProofOfDeliveryRequest{RecipientName: "Jean R.", PhotoURL: "/media/p1.jpg"}

	// Proof before pickup is rejected.
	if _, err := svc.SubmitProof(ctx, "a1", "traveler-1", req); !errors.Is(err, models.ErrNotPickedUp) {
		t.Errorf("SubmitProof before pickup error = %v; want ErrNotPickedUp", err)
	}

	if _, err := svc.MarkPickedUp(ctx, "a1", "traveler-1"); err != nil {
		t.Fatalf("MarkPickedUp error: %v", err)
	}
	proof, err := svc.SubmitProof(ctx, "a1", "traveler-1", req)
	if err != nil {
		t.Fatalf("SubmitProof error: %v", err)
	}
	if proof.RecipientName != "Jean R." {
		t.Errorf("RecipientName = %s", proof.RecipientName)
	}
	// Proof submission completes the delivery when not stamped separately.
	if fr.assignments["a1"].DeliveryCompletedAt == nil {
		t.Error("DeliveryCompletedAt not stamped by proof submission")
	}

	if _, err := svc.SubmitProof(ctx, "a1", "traveler-1", req); !errors.Is(err, models.ErrProofExists) {
		t.Errorf("second SubmitProof error = %v; want ErrProofExists", err)
	}
}

func TestPay(t *testing.T) {
	fr := newFakeRepo()
	seedAssignment(fr)
	pay := &fakePayment{}
	svc := NewService(fr, pay, nil, nil)
	ctx := context.Background()

	req := models.PayAssignmentRequest{PaymentMethodID: "pm_123"}

	if _, err := svc.Pay(ctx, "a1", "traveler-1", req); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("traveler Pay error = %v; want ErrForbidden", err)
	}

	a, err := svc.Pay(ctx, "a1", "sender-1", req)
	if err != nil {
		t.Fatalf("Pay error: %v", err)
	}
	if a.PaymentStatus != models.PaymentStatusPaid {
		t.Errorf("PaymentStatus = %s; want paid", a.PaymentStatus)
	}
	if len(pay.charges) != 1 || pay.charges[0] != 18 {
		t.Errorf("charges = %v; want one charge of 18", pay.charges)
	}

	if _, err := svc.Pay(ctx, "a1", "sender-1", req); !errors.Is(err, models.ErrAlreadyPaid) {
		t.Errorf("second Pay error = %v; want ErrAlreadyPaid", err)
	}
	if len(pay.charges) != 1 {
		t.Errorf("charges after rejected repeat = %d; want 1", len(pay.charges))
	}
}

func TestPayChargeFailure(t *testing.T) {
	fr := newFakeRepo()
	seedAssignment(fr)
	pay := &fakePayment{fail: true}
	svc := NewService(fr, pay, nil, nil)

	_, err := svc.Pay(context.Background(), "a1", "sender-1", models.PayAssignmentRequest{PaymentMethodID: "pm_123"})
	if err == nil {
		t.Fatal("Pay with declined card succeeded")
	}
	if fr.assignments["a1"].PaymentStatus != models.PaymentStatusPending {
		t.Errorf("PaymentStatus = %s; want pending after declined charge", fr.assignments["a1"].PaymentStatus)
	}
}

// End to end through the service layer: estimate, accept-equivalent
// seed, pickup, delivery, proof, payment.
func TestLifecycleEndToEnd(t *testing.T) {
	fr := newFakeRepo()
	seedAssignment(fr)
	pay := &fakePayment{}
	svc := NewService(fr, pay, nil, nil)
	ctx := context.Background()

	detail, err := svc.GetAssignment(ctx, "a1", "sender-1", models.RoleSender)
	if err != nil {
		t.Fatalf("GetAssignment error: %v", err)
	}
	if detail.Status != models.DeliveryStatusPending {
		t.Errorf("initial status = %s; want pending", detail.Status)
	}

	if _, err := svc.MarkPickedUp(ctx, "a1", "traveler-1"); err != nil {
		t.Fatalf("MarkPickedUp error: %v", err)
	}
	detail, _ = svc.GetAssignment(ctx, "a1", "sender-1", models.RoleSender)
	if detail.Status != models.DeliveryStatusInTransit {
		t.Errorf("status after pickup = %s; want in_transit", detail.Status)
	}

	if _, err := svc.SubmitProof(ctx, "a1", "traveler-1", models.ProofOfDeliveryRequest{
		RecipientName: "Jean R.", PhotoURL: "/media/p1.jpg",
	}); err != nil {
		t.Fatalf("SubmitProof error: %v", err)
	}
	detail, _ = svc.GetAssignment(ctx, "a1", "sender-1", models.RoleSender)
	if detail.Status != models.DeliveryStatusDelivered {
		t.Errorf("status after proof = %s; want delivered", detail.Status)
	}

	if _, err := svc.Pay(ctx, "a1", "sender-1", models.PayAssignmentRequest{PaymentMethodID: "pm_123"}); err != nil {
		t.Fatalf("Pay error: %v", err)
	}
	if got := fr.assignments["a1"].PaymentStatus; got != models.PaymentStatusPaid {
		t.Errorf("final PaymentStatus = %s; want paid", got)
	}
}
