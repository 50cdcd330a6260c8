package trips

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gp-connect/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the trip repository.
type RepositoryInterface interface {
	Create(ctx context.Context, travelerID string, req models.CreateTripRequest) (*models.Trip, error)
	FindByID(ctx context.Context, tripID string) (*models.Trip, error)
	ListByTraveler(ctx context.Context, travelerID string, page, limit int) ([]*models.Trip, int, error)
	Search(ctx context.Context, filter models.TripSearchFilter, page, limit int) ([]*models.Trip, int, error)
	Update(ctx context.Context, tripID, travelerID string, req models.UpdateTripRequest) (*models.Trip, error)
	DeactivateDeparted(ctx context.Context) (int64, error)
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new trip repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const tripColumns = `t.id, t.traveler_id, t.from_city, t.from_country, t.to_city, t.to_country,
	t.departure_date, t.arrival_date, t.available_weight_kg, t.available_volume_l,
	t.price_per_kg, t.currency, t.pickup_time_limit_hrs, t.notes, t.is_active, t.created_at, t.updated_at`

func scanTrip(row pgx.Row) (*models.Trip, error) {
	var t models.Trip
	err := row.Scan(
		&t.ID,
		&t.TravelerID,
		&t.FromCity,
		&t.FromCountry,
		&t.ToCity,
		&t.ToCountry,
		&t.DepartureDate,
		&t.ArrivalDate,
		&t.AvailableWeightKg,
		&t.AvailableVolumeL,
		&t.PricePerKg,
		&t.Currency,
		&t.PickupTimeLimitHrs,
		&t.Notes,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan trip: %w", err)
	}
	return &t, nil
}

// Create inserts a new trip offer.
func (r *Repository) Create(ctx context.Context, travelerID string, req models.CreateTripRequest) (*models.Trip, error) {
	query := `
		INSERT INTO trips (id, traveler_id, from_city, from_country, to_city, to_country,
			departure_date, arrival_date, available_weight_kg, available_volume_l,
			price_per_kg, currency, pickup_time_limit_hrs, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + strings.ReplaceAll(tripColumns, "t.", "")
	row := r.db.QueryRow(ctx, query,
		uuid.NewString(), travelerID, req.FromCity, req.FromCountry, req.ToCity, req.ToCountry,
		req.DepartureDate, req.ArrivalDate, req.AvailableWeightKg, req.AvailableVolumeL,
		req.PricePerKg, strings.ToUpper(req.Currency), req.PickupTimeLimitHrs, req.Notes)
	trip, err := scanTrip(row)
	if err != nil {
		return nil, fmt.Errorf("repository.CreateTrip: %w", err)
	}
	return trip, nil
}

// FindByID retrieves a single trip with the traveler's public profile
// joined in.
func (r *Repository) FindByID(ctx context.Context, tripID string) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips t WHERE t.id = $1`
	trip, err := scanTrip(r.db.QueryRow(ctx, query, tripID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindTripByID: %w", err)
	}

	profile, err := r.getTravelerProfile(ctx, trip.TravelerID)
	if err == nil {
		trip.Traveler = profile
	}

	return trip, nil
}

func (r *Repository) getTravelerProfile(ctx context.Context, userID string) (*models.PublicProfile, error) {
	query := `
		SELECT u.id, u.full_name, u.city, u.avatar_url, u.role, u.kyc_verified, u.created_at,
			COALESCE(AVG(rv.rating), 0), COUNT(rv.id)
		FROM users u
		LEFT JOIN reviews rv ON rv.reviewee_id = u.id
		WHERE u.id = $1
		GROUP BY u.id`
	var p models.PublicProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.ID, &p.FullName, &p.City, &p.AvatarURL, &p.Role, &p.KYCVerified, &p.MemberSince,
		&p.AverageRating, &p.ReviewCount)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByTraveler retrieves a traveler's own trips with pagination.
func (r *Repository) ListByTraveler(ctx context.Context, travelerID string, page, limit int) ([]*models.Trip, int, error) {
	offset := (page - 1) * limit
	query := `
		SELECT ` + tripColumns + `
		FROM trips t
		WHERE t.traveler_id = $1
		ORDER BY t.departure_date DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, travelerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListByTraveler.Query: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListByTraveler.scanTrip: %w", err)
		}
		trips = append(trips, trip)
	}

	var total int
	err = r.db.QueryRow(ctx, "SELECT COUNT(*) FROM trips WHERE traveler_id = $1", travelerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListByTraveler.Count: %w", err)
	}

	return trips, total, nil
}

// Search lists active future trips with remaining capacity, filtered by
// route and date window.
func (r *Repository) Search(ctx context.Context, filter models.TripSearchFilter, page, limit int) ([]*models.Trip, int, error) {
	offset := (page - 1) * limit

	where := []string{"t.is_active", "t.available_weight_kg > 0", "t.departure_date > NOW()"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.FromCity != "" {
		where = append(where, "LOWER(t.from_city) = LOWER("+arg(filter.FromCity)+")")
	}
	if filter.ToCity != "" {
		where = append(where, "LOWER(t.to_city) = LOWER("+arg(filter.ToCity)+")")
	}
	if filter.DateFrom != nil {
		where = append(where, "t.departure_date >= "+arg(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where = append(where, "t.departure_date <= "+arg(*filter.DateTo))
	}
	if filter.MinWeightKg > 0 {
		where = append(where, "t.available_weight_kg >= "+arg(filter.MinWeightKg))
	}
	cond := strings.Join(where, " AND ")

	countQuery := `SELECT COUNT(*) FROM trips t WHERE ` + cond
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.SearchTrips.Count: %w", err)
	}

	query := `SELECT ` + tripColumns + ` FROM trips t WHERE ` + cond +
		` ORDER BY t.departure_date ASC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.SearchTrips.Query: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.SearchTrips.scanTrip: %w", err)
		}
		trips = append(trips, trip)
	}

	// Join the traveler profiles in one batch keyed by the collected ids.
	ids := make([]string, 0, len(trips))
	for _, t := range trips {
		ids = append(ids, t.TravelerID)
	}
	if len(ids) > 0 {
		profiles, err := r.getProfilesByIDs(ctx, ids)
		if err == nil {
			for _, t := range trips {
				t.Traveler = profiles[t.TravelerID]
			}
		}
	}

	return trips, total, nil
}

func (r *Repository) getProfilesByIDs(ctx context.Context, ids []string) (map[string]*models.PublicProfile, error) {
	query := `
		SELECT u.id, u.full_name, u.city, u.avatar_url, u.role, u.kyc_verified, u.created_at,
			COALESCE(AVG(rv.rating), 0), COUNT(rv.id)
		FROM users u
		LEFT JOIN reviews rv ON rv.reviewee_id = u.id
		WHERE u.id = ANY($1)
		GROUP BY u.id`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*models.PublicProfile, len(ids))
	for rows.Next() {
		var p models.PublicProfile
		if err := rows.Scan(&p.ID, &p.FullName, &p.City, &p.AvatarURL, &p.Role, &p.KYCVerified,
			&p.MemberSince, &p.AverageRating, &p.ReviewCount); err != nil {
			return nil, err
		}
		out[p.ID] = &p
	}
	return out, nil
}

// Update amends a trip's editable fields for its owner.
func (r *Repository) Update(ctx context.Context, tripID, travelerID string, req models.UpdateTripRequest) (*models.Trip, error) {
	set := []string{"updated_at = NOW()"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if req.DepartureDate != nil {
		set = append(set, "departure_date = "+arg(*req.DepartureDate))
	}
	if req.ArrivalDate != nil {
		set = append(set, "arrival_date = "+arg(*req.ArrivalDate))
	}
	if req.AvailableWeightKg != nil {
		set = append(set, "available_weight_kg = "+arg(*req.AvailableWeightKg))
	}
	if req.AvailableVolumeL != nil {
		set = append(set, "available_volume_l = "+arg(*req.AvailableVolumeL))
	}
	if req.PricePerKg != nil {
		set = append(set, "price_per_kg = "+arg(*req.PricePerKg))
	}
	if req.Notes != nil {
		set = append(set, "notes = "+arg(*req.Notes))
	}
	if req.IsActive != nil {
		set = append(set, "is_active = "+arg(*req.IsActive))
	}

	query := `UPDATE trips SET ` + strings.Join(set, ", ") +
		` WHERE id = ` + arg(tripID) + ` AND traveler_id = ` + arg(travelerID) +
		` RETURNING ` + strings.ReplaceAll(tripColumns, "t.", "")
	trip, err := scanTrip(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.UpdateTrip: %w", err)
	}
	return trip, nil
}

// DeactivateDeparted flips is_active off for trips whose departure has
// passed. Called by the periodic sweep.
func (r *Repository) DeactivateDeparted(ctx context.Context) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE trips SET is_active = FALSE, updated_at = NOW() WHERE is_active AND departure_date < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("repository.DeactivateDeparted: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
