package delivery

import (
	"context"
	"errors"
	"fmt"

	"gp-connect/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the delivery repository.
type RepositoryInterface interface {
	FindAssignment(ctx context.Context, assignmentID string) (*models.Assignment, error)
	FindDetail(ctx context.Context, assignmentID string) (*models.AssignmentDetail, error)
	ListForUser(ctx context.Context, userID string, page, limit int) ([]*models.Assignment, int, error)
	StampPickup(ctx context.Context, assignmentID string) (*models.Assignment, error)
	StampDelivery(ctx context.Context, assignmentID string) (*models.Assignment, error)
	CreateTrackingEvent(ctx context.Context, event *models.TrackingEvent) error
	ListTrackingEvents(ctx context.Context, assignmentID string) ([]*models.TrackingEvent, error)
	CreateProof(ctx context.Context, proof *models.ProofOfDelivery) error
	FindProof(ctx context.Context, assignmentID string) (*models.ProofOfDelivery, error)
	SetPaid(ctx context.Context, assignmentID string) error
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new delivery repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const assignmentColumns = `a.id, a.match_request_id, a.shipment_id, a.trip_id, a.sender_id, a.traveler_id,
	a.final_price, a.currency, a.payment_status, a.pickup_completed_at, a.delivery_completed_at,
	a.created_at, a.updated_at`

func scanAssignment(row pgx.Row) (*models.Assignment, error) {
	var a models.Assignment
	err := row.Scan(
		&a.ID,
		&a.MatchRequestID,
		&a.ShipmentID,
		&a.TripID,
		&a.SenderID,
		&a.TravelerID,
		&a.FinalPrice,
		&a.Currency,
		&a.PaymentStatus,
		&a.PickupCompletedAt,
		&a.DeliveryCompletedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan assignment: %w", err)
	}
	return &a, nil
}

// FindAssignment retrieves a single assignment row.
func (r *Repository) FindAssignment(ctx context.Context, assignmentID string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments a WHERE a.id = $1`
	a, err := scanAssignment(r.db.QueryRow(ctx, query, assignmentID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindAssignment: %w", err)
	}
	return a, nil
}

// FindDetail loads the assignment with its shipment, trip and both party
// profiles in one query, so downstream screens do not fan out into N+1
// lookups.
func (r *Repository) FindDetail(ctx context.Context, assignmentID string) (*models.AssignmentDetail, error) {
	query := `
		SELECT ` + assignmentColumns + `,
			s.id, s.sender_id, s.title, s.description, s.weight_kg, s.volume_l,
			s.pickup_address, s.pickup_city, s.pickup_contact_name, s.pickup_contact_phone,
			s.delivery_address, s.delivery_city, s.delivery_contact_name, s.delivery_contact_phone,
			s.status, s.created_at, s.updated_at,
			t.id, t.traveler_id, t.from_city, t.from_country, t.to_city, t.to_country,
			t.departure_date, t.arrival_date, t.available_weight_kg, t.available_volume_l,
			t.price_per_kg, t.currency, t.pickup_time_limit_hrs, t.notes, t.is_active, t.created_at, t.updated_at,
			su.id, su.full_name, su.city, su.avatar_url, su.role, su.kyc_verified, su.created_at,
			tu.id, tu.full_name, tu.city, tu.avatar_url, tu.role, tu.kyc_verified, tu.created_at
		FROM assignments a
		JOIN shipments s ON s.id = a.shipment_id
		JOIN trips t ON t.id = a.trip_id
		JOIN users su ON su.id = a.sender_id
		JOIN users tu ON tu.id = a.traveler_id
		WHERE a.id = $1`

	var d models.AssignmentDetail
	var s models.Shipment
	var t models.Trip
	var sp, tp models.PublicProfile
	err := r.db.QueryRow(ctx, query, assignmentID).Scan(
		&d.ID, &d.MatchRequestID, &d.ShipmentID, &d.TripID, &d.SenderID, &d.TravelerID,
		&d.FinalPrice, &d.Currency, &d.PaymentStatus, &d.PickupCompletedAt, &d.DeliveryCompletedAt,
		&d.CreatedAt, &d.UpdatedAt,
		&s.ID, &s.SenderID, &s.Title, &s.Description, &s.WeightKg, &s.VolumeL,
		&s.PickupAddress, &s.PickupCity, &s.PickupContactName, &s.PickupContactPhone,
		&s.DeliveryAddress, &s.DeliveryCity, &s.DeliveryContactName, &s.DeliveryContactPhone,
		&s.Status, &s.CreatedAt, &s.UpdatedAt,
		&t.ID, &t.TravelerID, &t.FromCity, &t.FromCountry, &t.ToCity, &t.ToCountry,
		&t.DepartureDate, &t.ArrivalDate, &t.AvailableWeightKg, &t.AvailableVolumeL,
		&t.PricePerKg, &t.Currency, &t.PickupTimeLimitHrs, &t.Notes, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
		&sp.ID, &sp.FullName, &sp.City, &sp.AvatarURL, &sp.Role, &sp.KYCVerified, &sp.MemberSince,
		&tp.ID, &tp.FullName, &tp.City, &tp.AvatarURL, &tp.Role, &tp.KYCVerified, &tp.MemberSince,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindDetail: %w", err)
	}
	d.Status = DeriveStatus(d.PickupCompletedAt, d.DeliveryCompletedAt)
	d.Shipment = &s
	d.Trip = &t
	d.Sender = &sp
	d.Traveler = &tp
	return &d, nil
}

// ListForUser retrieves assignments where the user is either party.
func (r *Repository) ListForUser(ctx context.Context, userID string, page, limit int) ([]*models.Assignment, int, error) {
	offset := (page - 1) * limit
	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments a
		WHERE a.sender_id = $1 OR a.traveler_id = $1
		ORDER BY a.created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListForUser.Query: %w", err)
	}
	defer rows.Close()

	var out []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListForUser.scanAssignment: %w", err)
		}
		out = append(out, a)
	}

	var total int
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM assignments WHERE sender_id = $1 OR traveler_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListForUser.Count: %w", err)
	}
	return out, total, nil
}

// StampPickup sets the pickup timestamp once. The IS NULL guard makes a
// repeated call match zero rows instead of re-stamping.
func (r *Repository) StampPickup(ctx context.Context, assignmentID string) (*models.Assignment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository.StampPickup: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE assignments a SET pickup_completed_at = NOW(), updated_at = NOW()
		WHERE a.id = $1 AND a.pickup_completed_at IS NULL AND a.delivery_completed_at IS NULL
		RETURNING ` + assignmentColumns
	a, err := scanAssignment(tx.QueryRow(ctx, query, assignmentID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.StampPickup: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE shipments SET status = 'in_transit', updated_at = NOW() WHERE id = $1`, a.ShipmentID); err != nil {
		return nil, fmt.Errorf("repository.StampPickup: shipment status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository.StampPickup: commit: %w", err)
	}
	return a, nil
}

// StampDelivery sets the delivery timestamp once; pickup must already be
// stamped.
func (r *Repository) StampDelivery(ctx context.Context, assignmentID string) (*models.Assignment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository.StampDelivery: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE assignments a SET delivery_completed_at = NOW(), updated_at = NOW()
		WHERE a.id = $1 AND a.pickup_completed_at IS NOT NULL AND a.delivery_completed_at IS NULL
		RETURNING ` + assignmentColumns
	a, err := scanAssignment(tx.QueryRow(ctx, query, assignmentID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.StampDelivery: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE shipments SET status = 'delivered', updated_at = NOW() WHERE id = $1`, a.ShipmentID); err != nil {
		return nil, fmt.Errorf("repository.StampDelivery: shipment status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository.StampDelivery: commit: %w", err)
	}
	return a, nil
}

// CreateTrackingEvent appends a tracking event. Events are never updated
// or deleted.
func (r *Repository) CreateTrackingEvent(ctx context.Context, event *models.TrackingEvent) error {
	event.ID = uuid.NewString()
	err := r.db.QueryRow(ctx, `
		INSERT INTO tracking_events (id, assignment_id, event_type, description, latitude, longitude, photo_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		event.ID, event.AssignmentID, event.EventType, event.Description,
		event.Latitude, event.Longitude, event.PhotoURL,
	).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.CreateTrackingEvent: %w", err)
	}
	return nil
}

// ListTrackingEvents returns an assignment's events oldest first.
func (r *Repository) ListTrackingEvents(ctx context.Context, assignmentID string) ([]*models.TrackingEvent, error) {
	query := `
		SELECT id, assignment_id, event_type, description, latitude, longitude, photo_url, created_at
		FROM tracking_events
		WHERE assignment_id = $1
		ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListTrackingEvents: %w", err)
	}
	defer rows.Close()

	var out []*models.TrackingEvent
	for rows.Next() {
		var ev models.TrackingEvent
		if err := rows.Scan(&ev.ID, &ev.AssignmentID, &ev.EventType, &ev.Description,
			&ev.Latitude, &ev.Longitude, &ev.PhotoURL, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ListTrackingEvents.Scan: %w", err)
		}
		out = append(out, &ev)
	}
	return out, nil
}

// CreateProof inserts the one-per-assignment proof record. The unique
// constraint turns a duplicate into ErrProofExists.
func (r *Repository) CreateProof(ctx context.Context, proof *models.ProofOfDelivery) error {
	proof.ID = uuid.NewString()
	err := r.db.QueryRow(ctx, `
		INSERT INTO proofs_of_delivery (id, assignment_id, recipient_name, photo_url, signature_url, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (assignment_id) DO NOTHING
		RETURNING created_at`,
		proof.ID, proof.AssignmentID, proof.RecipientName, proof.PhotoURL, proof.SignatureURL, proof.Notes,
	).Scan(&proof.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrProofExists
		}
		return fmt.Errorf("repository.CreateProof: %w", err)
	}
	return nil
}

// FindProof retrieves an assignment's proof of delivery.
func (r *Repository) FindProof(ctx context.Context, assignmentID string) (*models.ProofOfDelivery, error) {
	query := `
		SELECT id, assignment_id, recipient_name, photo_url, signature_url, notes, created_at
		FROM proofs_of_delivery WHERE assignment_id = $1`
	var p models.ProofOfDelivery
	err := r.db.QueryRow(ctx, query, assignmentID).Scan(
		&p.ID, &p.AssignmentID, &p.RecipientName, &p.PhotoURL, &p.SignatureURL, &p.Notes, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindProof: %w", err)
	}
	return &p, nil
}

// SetPaid flips the payment status once.
func (r *Repository) SetPaid(ctx context.Context, assignmentID string) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE assignments SET payment_status = 'paid', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'`, assignmentID)
	if err != nil {
		return fmt.Errorf("repository.SetPaid: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrAlreadyPaid
	}
	return nil
}
