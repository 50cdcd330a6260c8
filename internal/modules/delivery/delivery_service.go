package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gp-connect/internal/models"
)

// PaymentServiceInterface defines the contract for a payment processing
// service.
type PaymentServiceInterface interface {
	ProcessPayment(ctx context.Context, userID string, amount float64, currency, paymentMethodID string) (string, error)
}

// NotifierInterface is the contract for emitting lifecycle notifications.
type NotifierInterface interface {
	Notify(ctx context.Context, userID, kind, title, body string, refID *string)
}

// RealtimeInterface pushes tracking updates to subscribed clients.
type RealtimeInterface interface {
	Publish(topic string, payload interface{})
}

// ServiceInterface defines the contract for the delivery service.
type ServiceInterface interface {
	GetAssignment(ctx context.Context, assignmentID, userID, role string) (*models.AssignmentDetail, error)
	ListMyAssignments(ctx context.Context, userID string, page, limit int) ([]*models.Assignment, int, error)
	MarkPickedUp(ctx context.Context, assignmentID, travelerID string) (*models.Assignment, error)
	MarkDelivered(ctx context.Context, assignmentID, travelerID string) (*models.Assignment, error)
	ShareLocation(ctx context.Context, assignmentID, travelerID string, req models.TrackingEventRequest) error
	GetTracking(ctx context.Context, assignmentID, userID, role string) ([]*models.TrackingEvent, error)
	SubmitProof(ctx context.Context, assignmentID, travelerID string, req models.ProofOfDeliveryRequest) (*models.ProofOfDelivery, error)
	GetProof(ctx context.Context, assignmentID, userID, role string) (*models.ProofOfDelivery, error)
	Pay(ctx context.Context, assignmentID, senderID string, req models.PayAssignmentRequest) (*models.Assignment, error)
}

// Service implements the delivery lifecycle logic.
type Service struct {
	repo           RepositoryInterface
	paymentService PaymentServiceInterface
	notifier       NotifierInterface
	realtime       RealtimeInterface
}

// NewService creates a new delivery service. notifier and realtime may be
// nil in tests.
func NewService(repo RepositoryInterface, paymentService PaymentServiceInterface, notifier NotifierInterface, realtime RealtimeInterface) *Service {
	return &Service{
		repo:           repo,
		paymentService: paymentService,
		notifier:       notifier,
		realtime:       realtime,
	}
}

// GetAssignment retrieves the composed assignment aggregate, restricted to
// its two parties and admins.
func (s *Service) GetAssignment(ctx context.Context, assignmentID, userID, role string) (*models.AssignmentDetail, error) {
	detail, err := s.repo.FindDetail(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("service.GetAssignment: %w", err)
	}
	if err := authorize(&detail.Assignment, userID, role); err != nil {
		return nil, err
	}
	return detail, nil
}

// ListMyAssignments retrieves the caller's assignments on either side.
func (s *Service) ListMyAssignments(ctx context.Context, userID string, page, limit int) ([]*models.Assignment, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	out, total, err := s.repo.ListForUser(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ListMyAssignments: %w", err)
	}
	return out, total, nil
}

// MarkPickedUp records the pickup milestone. The transition is rejected,
// not re-applied, when pickup or delivery has already been stamped.
func (s *Service) MarkPickedUp(ctx context.Context, assignmentID, travelerID string) (*models.Assignment, error) {
	detail, err := s.repo.FindDetail(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("service.MarkPickedUp: %w", err)
	}
	if detail.TravelerID != travelerID {
		return nil, models.ErrForbidden
	}
	if detail.DeliveryCompletedAt != nil {
		return nil, models.ErrAlreadyDelivered
	}
	if detail.PickupCompletedAt != nil {
		return nil, models.ErrAlreadyPickedUp
	}

	a, err := s.repo.StampPickup(ctx, assignmentID)
	if err != nil {
		// A concurrent call can win the stamp between the check and the
		// guarded update; surface that as the same state error.
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrAlreadyPickedUp
		}
		return nil, fmt.Errorf("service.MarkPickedUp: %w", err)
	}

	event := &models.TrackingEvent{
		AssignmentID: assignmentID,
		EventType:    models.TrackingEventPickup,
		Description:  fmt.Sprintf("Parcel picked up in %s (%s)", detail.Shipment.PickupCity, detail.Shipment.PickupAddress),
	}
	if err := s.repo.CreateTrackingEvent(ctx, event); err != nil {
		// The stamp is already committed; the event log is best effort.
		log.Printf("delivery: failed to append pickup event for %s: %v", assignmentID, err)
	}

	s.publishEvent(assignmentID, event)
	if s.notifier != nil {
		s.notifier.Notify(ctx, a.SenderID, "pickup_completed",
			"Your parcel is on its way",
			fmt.Sprintf("%q was picked up in %s.", detail.Shipment.Title, detail.Shipment.PickupCity),
			&a.ID)
	}
	return a, nil
}

// MarkDelivered records the delivery milestone. Delivery without a prior
// pickup is rejected.
func (s *Service) MarkDelivered(ctx context.Context, assignmentID, travelerID string) (*models.Assignment, error) {
	detail, err := s.repo.FindDetail(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("service.MarkDelivered: %w", err)
	}
	if detail.TravelerID != travelerID {
		return nil, models.ErrForbidden
	}
	if detail.DeliveryCompletedAt != nil {
		return nil, models.ErrAlreadyDelivered
	}
	if detail.PickupCompletedAt == nil {
		return nil, models.ErrNotPickedUp
	}

	a, err := s.repo.StampDelivery(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrAlreadyDelivered
		}
		return nil, fmt.Errorf("service.MarkDelivered: %w", err)
	}

	event := &models.TrackingEvent{
		AssignmentID: assignmentID,
		EventType:    models.TrackingEventDelivery,
		Description:  fmt.Sprintf("Parcel delivered in %s (%s)", detail.Shipment.DeliveryCity, detail.Shipment.DeliveryAddress),
	}
	if err := s.repo.CreateTrackingEvent(ctx, event); err != nil {
		log.Printf("delivery: failed to append delivery event for %s: %v", assignmentID, err)
	}

	s.publishEvent(assignmentID, event)
	if s.notifier != nil {
		s.notifier.Notify(ctx, a.SenderID, "delivery_completed",
			"Your parcel was delivered",
			fmt.Sprintf("%q was delivered in %s. You can now review the traveler.", detail.Shipment.Title, detail.Shipment.DeliveryCity),
			&a.ID)
	}
	return a, nil
}

// ShareLocation appends a manual GPS tracking event.
func (s *Service) ShareLocation(ctx context.Context, assignmentID, travelerID string, req models.TrackingEventRequest) error {
	a, err := s.repo.FindAssignment(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("service.ShareLocation: %w", err)
	}
	if a.TravelerID != travelerID {
		return models.ErrForbidden
	}
	if a.DeliveryCompletedAt != nil {
		return models.ErrAlreadyDelivered
	}

	event := &models.TrackingEvent{
		AssignmentID: assignmentID,
		EventType:    models.TrackingEventLocationShare,
		Description:  req.Description,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		PhotoURL:     req.PhotoURL,
	}
	if err := s.repo.CreateTrackingEvent(ctx, event); err != nil {
		return fmt.Errorf("service.ShareLocation: %w", err)
	}
	s.publishEvent(assignmentID, event)
	return nil
}

// GetTracking lists an assignment's tracking events oldest first.
func (s *Service) GetTracking(ctx context.Context, assignmentID, userID, role string) ([]*models.TrackingEvent, error) {
	a, err := s.repo.FindAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("service.GetTracking: %w", err)
	}
	if err := authorize(a, userID, role); err != nil {
		return nil, err
	}
	events, err := s.repo.ListTrackingEvents(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("service.GetTracking: %w", err)
	}
	return events, nil
}

// SubmitProof records the proof of delivery. Submitting proof also stamps
// delivery completion when the traveler has not done it separately.
func (s *Service) SubmitProof(ctx context.Context, assignmentID, travelerID string, req models.ProofOfDeliveryRequest) (*models.ProofOfDelivery, error) {
	a, err := s.repo.FindAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("service.SubmitProof: %w", err)
	}
	if a.TravelerID != travelerID {
		return nil, models.ErrForbidden
	}
	if a.PickupCompletedAt == nil {
		return nil, models.ErrNotPickedUp
	}

	proof := &models.ProofOfDelivery{
		AssignmentID:  assignmentID,
		RecipientName: req.RecipientName,
		PhotoURL:      req.PhotoURL,
		SignatureURL:  req.SignatureURL,
		Notes:         req.Notes,
	}
	if err := s.repo.CreateProof(ctx, proof); err != nil {
		if errors.Is(err, models.ErrProofExists) {
			return nil, models.ErrProofExists
		}
		return nil, fmt.Errorf("service.SubmitProof: %w", err)
	}

	if a.DeliveryCompletedAt == nil {
		if _, err := s.MarkDelivered(ctx, assignmentID, travelerID); err != nil &&
			!errors.Is(err, models.ErrAlreadyDelivered) {
			return nil, fmt.Errorf("service.SubmitProof: stamp delivery: %w", err)
		}
	}

	return proof, nil
}

// GetProof retrieves an assignment's proof of delivery.
func (s *Service) GetProof(ctx context.Context, assignmentID, userID, role string) (*models.ProofOfDelivery, error) {
	a, err := s.repo.FindAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("service.GetProof: %w", err)
	}
	if err := authorize(a, userID, role); err != nil {
		return nil, err
	}
	proof, err := s.repo.FindProof(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("service.GetProof: %w", err)
	}
	return proof, nil
}

// Pay charges the sender the final price and marks the assignment paid.
func (s *Service) Pay(ctx context.Context, assignmentID, senderID string, req models.PayAssignmentRequest) (*models.Assignment, error) {
	a, err := s.repo.FindAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("service.Pay: %w", err)
	}
	if a.SenderID != senderID {
		return nil, models.ErrForbidden
	}
	if a.PaymentStatus == models.PaymentStatusPaid {
		return nil, models.ErrAlreadyPaid
	}

	if _, err := s.paymentService.ProcessPayment(ctx, senderID, a.FinalPrice, a.Currency, req.PaymentMethodID); err != nil {
		return nil, fmt.Errorf("payment processing failed: %w", err)
	}

	if err := s.repo.SetPaid(ctx, assignmentID); err != nil {
		// The charge went through but the status write failed; this needs
		// operator attention, not a silent retry.
		log.Printf("CRITICAL: payment processed for assignment %s but failed to update status: %v", assignmentID, err)
		return nil, fmt.Errorf("failed to update payment status after successful charge: %w", err)
	}

	a.PaymentStatus = models.PaymentStatusPaid
	return a, nil
}

func (s *Service) publishEvent(assignmentID string, event *models.TrackingEvent) {
	if s.realtime != nil {
		s.realtime.Publish("assignment:"+assignmentID, event)
	}
}

func authorize(a *models.Assignment, userID, role string) error {
	if role == models.RoleAdmin || a.SenderID == userID || a.TravelerID == userID {
		return nil
	}
	// Return NotFound to avoid leaking information.
	return models.ErrNotFound
}
