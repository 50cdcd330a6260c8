package matching

import (
	"context"
	"errors"
	"fmt"

	"gp-connect/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the matching repository.
// Booking and acceptance are transactional so a failure can never leave an
// orphaned shipment or a half-applied acceptance.
type RepositoryInterface interface {
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)
	GetTripOwner(ctx context.Context, tripID string) (*models.User, error)
	GetSender(ctx context.Context, senderID string) (*models.User, error)
	CreateBooking(ctx context.Context, shipment *models.Shipment, request *models.MatchRequest) error
	FindByID(ctx context.Context, matchID string) (*models.MatchRequest, error)
	ListBySender(ctx context.Context, senderID string, page, limit int) ([]*models.MatchRequest, int, error)
	ListPendingForTraveler(ctx context.Context, travelerID string, page, limit int) ([]*models.MatchRequest, int, error)
	Accept(ctx context.Context, matchID, travelerID string, finalPrice float64) (*models.Assignment, error)
	Reject(ctx context.Context, matchID, travelerID string) error
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new matching repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const matchColumns = `m.id, m.shipment_id, m.trip_id, m.sender_id, m.estimated_price, m.currency,
	m.message, m.status, m.final_price, m.confirmed_at, m.created_at`

func scanMatch(row pgx.Row) (*models.MatchRequest, error) {
	var m models.MatchRequest
	err := row.Scan(
		&m.ID,
		&m.ShipmentID,
		&m.TripID,
		&m.SenderID,
		&m.EstimatedPrice,
		&m.Currency,
		&m.Message,
		&m.Status,
		&m.FinalPrice,
		&m.ConfirmedAt,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan match request: %w", err)
	}
	return &m, nil
}

// GetTrip loads the trip a booking targets.
func (r *Repository) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	query := `
		SELECT id, traveler_id, from_city, from_country, to_city, to_country,
			departure_date, arrival_date, available_weight_kg, available_volume_l,
			price_per_kg, currency, pickup_time_limit_hrs, notes, is_active, created_at, updated_at
		FROM trips WHERE id = $1`
	var t models.Trip
	err := r.db.QueryRow(ctx, query, tripID).Scan(
		&t.ID, &t.TravelerID, &t.FromCity, &t.FromCountry, &t.ToCity, &t.ToCountry,
		&t.DepartureDate, &t.ArrivalDate, &t.AvailableWeightKg, &t.AvailableVolumeL,
		&t.PricePerKg, &t.Currency, &t.PickupTimeLimitHrs, &t.Notes, &t.IsActive,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.GetTrip: %w", err)
	}
	return &t, nil
}

// GetTripOwner loads the traveler who published a trip, used to fill the
// shipment's pickup contact.
func (r *Repository) GetTripOwner(ctx context.Context, tripID string) (*models.User, error) {
	query := `
		SELECT u.id, u.full_name, u.phone
		FROM users u JOIN trips t ON t.traveler_id = u.id
		WHERE t.id = $1`
	var u models.User
	err := r.db.QueryRow(ctx, query, tripID).Scan(&u.ID, &u.FullName, &u.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.GetTripOwner: %w", err)
	}
	return &u, nil
}

// GetSender loads the sender placing a booking, used to name them in the
// traveler's notification.
func (r *Repository) GetSender(ctx context.Context, senderID string) (*models.User, error) {
	query := `SELECT id, full_name, phone FROM users WHERE id = $1`
	var u models.User
	err := r.db.QueryRow(ctx, query, senderID).Scan(&u.ID, &u.FullName, &u.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.GetSender: %w", err)
	}
	return &u, nil
}

// CreateBooking inserts the shipment and its match request in one
// transaction. The generated ids and timestamps are written back into the
// passed structs.
func (r *Repository) CreateBooking(ctx context.Context, shipment *models.Shipment, request *models.MatchRequest) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository.CreateBooking: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	shipment.ID = uuid.NewString()
	err = tx.QueryRow(ctx, `
		INSERT INTO shipments (id, sender_id, title, description, weight_kg, volume_l,
			pickup_address, pickup_city, pickup_contact_name, pickup_contact_phone,
			delivery_address, delivery_city, delivery_contact_name, delivery_contact_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING status, created_at, updated_at`,
		shipment.ID, shipment.SenderID, shipment.Title, shipment.Description,
		shipment.WeightKg, shipment.VolumeL,
		shipment.PickupAddress, shipment.PickupCity, shipment.PickupContactName, shipment.PickupContactPhone,
		shipment.DeliveryAddress, shipment.DeliveryCity, shipment.DeliveryContactName, shipment.DeliveryContactPhone,
	).Scan(&shipment.Status, &shipment.CreatedAt, &shipment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository.CreateBooking: insert shipment: %w", err)
	}

	request.ID = uuid.NewString()
	request.ShipmentID = shipment.ID
	err = tx.QueryRow(ctx, `
		INSERT INTO match_requests (id, shipment_id, trip_id, sender_id, estimated_price, currency, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING status, created_at`,
		request.ID, request.ShipmentID, request.TripID, request.SenderID,
		request.EstimatedPrice, request.Currency, request.Message,
	).Scan(&request.Status, &request.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.CreateBooking: insert match request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository.CreateBooking: commit: %w", err)
	}
	return nil
}

// FindByID retrieves a single match request.
func (r *Repository) FindByID(ctx context.Context, matchID string) (*models.MatchRequest, error) {
	query := `SELECT ` + matchColumns + ` FROM match_requests m WHERE m.id = $1`
	m, err := scanMatch(r.db.QueryRow(ctx, query, matchID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindMatchByID: %w", err)
	}
	return m, nil
}

// ListBySender retrieves a sender's own match requests, newest first.
func (r *Repository) ListBySender(ctx context.Context, senderID string, page, limit int) ([]*models.MatchRequest, int, error) {
	offset := (page - 1) * limit
	query := `SELECT ` + matchColumns + `
		FROM match_requests m
		WHERE m.sender_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, senderID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListBySender.Query: %w", err)
	}
	defer rows.Close()

	var out []*models.MatchRequest
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListBySender.scanMatch: %w", err)
		}
		out = append(out, m)
	}

	var total int
	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM match_requests WHERE sender_id = $1`, senderID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListBySender.Count: %w", err)
	}
	return out, total, nil
}

// ListPendingForTraveler retrieves pending requests across all of a
// traveler's trips, with the shipment and the sender profile joined so the
// review screen needs no extra queries.
func (r *Repository) ListPendingForTraveler(ctx context.Context, travelerID string, page, limit int) ([]*models.MatchRequest, int, error) {
	offset := (page - 1) * limit
	query := `
		SELECT ` + matchColumns + `,
			s.id, s.sender_id, s.title, s.description, s.weight_kg, s.volume_l,
			s.pickup_address, s.pickup_city, s.pickup_contact_name, s.pickup_contact_phone,
			s.delivery_address, s.delivery_city, s.delivery_contact_name, s.delivery_contact_phone,
			s.status, s.created_at, s.updated_at,
			u.id, u.full_name, u.city, u.avatar_url, u.role, u.kyc_verified, u.created_at
		FROM match_requests m
		JOIN trips t ON t.id = m.trip_id
		JOIN shipments s ON s.id = m.shipment_id
		JOIN users u ON u.id = m.sender_id
		WHERE t.traveler_id = $1 AND m.status = 'pending'
		ORDER BY m.created_at ASC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, travelerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListPendingForTraveler.Query: %w", err)
	}
	defer rows.Close()

	var out []*models.MatchRequest
	for rows.Next() {
		var m models.MatchRequest
		var s models.Shipment
		var p models.PublicProfile
		err := rows.Scan(
			&m.ID, &m.ShipmentID, &m.TripID, &m.SenderID, &m.EstimatedPrice, &m.Currency,
			&m.Message, &m.Status, &m.FinalPrice, &m.ConfirmedAt, &m.CreatedAt,
			&s.ID, &s.SenderID, &s.Title, &s.Description, &s.WeightKg, &s.VolumeL,
			&s.PickupAddress, &s.PickupCity, &s.PickupContactName, &s.PickupContactPhone,
			&s.DeliveryAddress, &s.DeliveryCity, &s.DeliveryContactName, &s.DeliveryContactPhone,
			&s.Status, &s.CreatedAt, &s.UpdatedAt,
			&p.ID, &p.FullName, &p.City, &p.AvatarURL, &p.Role, &p.KYCVerified, &p.MemberSince,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListPendingForTraveler.Scan: %w", err)
		}
		m.Shipment = &s
		m.Sender = &p
		out = append(out, &m)
	}

	var total int
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM match_requests m JOIN trips t ON t.id = m.trip_id
		WHERE t.traveler_id = $1 AND m.status = 'pending'`, travelerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListPendingForTraveler.Count: %w", err)
	}
	return out, total, nil
}

// Accept decides a pending request and creates the assignment in one
// transaction. The conditional update is the guard against concurrent
// double-acceptance: the second caller matches zero rows and gets
// ErrAlreadyDecided. The same transaction decrements the trip's remaining
// capacity and marks the shipment accepted.
func (r *Repository) Accept(ctx context.Context, matchID, travelerID string, finalPrice float64) (*models.Assignment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository.AcceptMatch: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the request row and verify the caller owns the trip.
	var m models.MatchRequest
	var tripOwner string
	var weightKg float64
	err = tx.QueryRow(ctx, `
		SELECT m.id, m.shipment_id, m.trip_id, m.sender_id, m.estimated_price, m.currency, m.status,
			t.traveler_id, s.weight_kg
		FROM match_requests m
		JOIN trips t ON t.id = m.trip_id
		JOIN shipments s ON s.id = m.shipment_id
		WHERE m.id = $1
		FOR UPDATE OF m, t`, matchID).Scan(
		&m.ID, &m.ShipmentID, &m.TripID, &m.SenderID, &m.EstimatedPrice, &m.Currency, &m.Status,
		&tripOwner, &weightKg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.AcceptMatch: load: %w", err)
	}
	if tripOwner != travelerID {
		return nil, models.ErrForbidden
	}

	cmdTag, err := tx.Exec(ctx, `
		UPDATE match_requests
		SET status = 'accepted', final_price = $1, confirmed_at = NOW()
		WHERE id = $2 AND status = 'pending'`, finalPrice, matchID)
	if err != nil {
		return nil, fmt.Errorf("repository.AcceptMatch: update request: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, models.ErrAlreadyDecided
	}

	// Capacity is reserved here, not at booking time, so competing
	// bookings only collide when one of them is actually accepted.
	cmdTag, err = tx.Exec(ctx, `
		UPDATE trips
		SET available_weight_kg = available_weight_kg - $1, updated_at = NOW()
		WHERE id = $2 AND available_weight_kg >= $1`, weightKg, m.TripID)
	if err != nil {
		return nil, fmt.Errorf("repository.AcceptMatch: reserve capacity: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, models.ErrInsufficientCapacity
	}

	if _, err := tx.Exec(ctx, `
		UPDATE shipments SET status = 'accepted', updated_at = NOW() WHERE id = $1`, m.ShipmentID); err != nil {
		return nil, fmt.Errorf("repository.AcceptMatch: update shipment: %w", err)
	}

	a := &models.Assignment{
		ID:             uuid.NewString(),
		MatchRequestID: m.ID,
		ShipmentID:     m.ShipmentID,
		TripID:         m.TripID,
		SenderID:       m.SenderID,
		TravelerID:     travelerID,
		FinalPrice:     finalPrice,
		Currency:       m.Currency,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO assignments (id, match_request_id, shipment_id, trip_id, sender_id, traveler_id, final_price, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING payment_status, created_at, updated_at`,
		a.ID, a.MatchRequestID, a.ShipmentID, a.TripID, a.SenderID, a.TravelerID, a.FinalPrice, a.Currency,
	).Scan(&a.PaymentStatus, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository.AcceptMatch: insert assignment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository.AcceptMatch: commit: %w", err)
	}
	return a, nil
}

// Reject decides a pending request with no further side effects. The same
// pending-only guard applies.
func (r *Repository) Reject(ctx context.Context, matchID, travelerID string) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE match_requests m
		SET status = 'rejected', confirmed_at = NOW()
		FROM trips t
		WHERE m.id = $1 AND t.id = m.trip_id AND t.traveler_id = $2 AND m.status = 'pending'`,
		matchID, travelerID)
	if err != nil {
		return fmt.Errorf("repository.RejectMatch: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Either missing, not the caller's trip, or already decided.
		m, ferr := r.FindByID(ctx, matchID)
		if ferr != nil {
			return models.ErrNotFound
		}
		if m.Status != models.MatchStatusPending {
			return models.ErrAlreadyDecided
		}
		return models.ErrForbidden
	}
	return nil
}
