package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gp-connect/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// assignmentParties is the slice of an assignment needed to authorize
// feedback: who was involved and whether delivery finished.
type assignmentParties struct {
	SenderID            string
	TravelerID          string
	DeliveryCompletedAt *time.Time
}

// RepositoryInterface defines the contract for the review repository.
type RepositoryInterface interface {
	GetAssignmentParties(ctx context.Context, assignmentID string) (*assignmentParties, error)
	CreateReview(ctx context.Context, review *models.Review) error
	ListForUser(ctx context.Context, userID string, page, limit int) ([]*models.Review, int, error)
	CreateDispute(ctx context.Context, dispute *models.Dispute) error
	CreateReport(ctx context.Context, report *models.ProblemReport) error
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new review repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// GetAssignmentParties loads the assignment slice used for authorization.
func (r *Repository) GetAssignmentParties(ctx context.Context, assignmentID string) (*assignmentParties, error) {
	var p assignmentParties
	err := r.db.QueryRow(ctx, `
		SELECT sender_id, traveler_id, delivery_completed_at
		FROM assignments WHERE id = $1`, assignmentID).Scan(
		&p.SenderID, &p.TravelerID, &p.DeliveryCompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.GetAssignmentParties: %w", err)
	}
	return &p, nil
}

// CreateReview inserts a review. The unique constraint on
// (assignment_id, reviewer_id) makes double submission fail cleanly.
func (r *Repository) CreateReview(ctx context.Context, review *models.Review) error {
	review.ID = uuid.NewString()
	err := r.db.QueryRow(ctx, `
		INSERT INTO reviews (id, assignment_id, reviewer_id, reviewee_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		review.ID, review.AssignmentID, review.ReviewerID, review.RevieweeID,
		review.Rating, review.Comment).Scan(&review.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrReviewExists
		}
		return fmt.Errorf("repository.CreateReview: %w", err)
	}
	return nil
}

// ListForUser returns reviews received by a user, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID string, page, limit int) ([]*models.Review, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM reviews WHERE reviewee_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListForUser.Count: %w", err)
	}

	offset := (page - 1) * limit
	rows, err := r.db.Query(ctx, `
		SELECT id, assignment_id, reviewer_id, reviewee_id, rating, comment, created_at
		FROM reviews
		WHERE reviewee_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListForUser: %w", err)
	}
	defer rows.Close()

	var out []*models.Review
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.AssignmentID, &rv.ReviewerID, &rv.RevieweeID,
			&rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("repository.ListForUser.Scan: %w", err)
		}
		out = append(out, &rv)
	}
	return out, total, nil
}

// CreateDispute inserts an open dispute.
func (r *Repository) CreateDispute(ctx context.Context, dispute *models.Dispute) error {
	dispute.ID = uuid.NewString()
	dispute.Status = models.DisputeStatusOpen
	err := r.db.QueryRow(ctx, `
		INSERT INTO disputes (id, assignment_id, opened_by_id, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		dispute.ID, dispute.AssignmentID, dispute.OpenedByID, dispute.Reason,
		dispute.Status).Scan(&dispute.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.CreateDispute: %w", err)
	}
	return nil
}

// CreateReport inserts an open problem report.
func (r *Repository) CreateReport(ctx context.Context, report *models.ProblemReport) error {
	report.ID = uuid.NewString()
	report.Status = models.ReportStatusOpen
	err := r.db.QueryRow(ctx, `
		INSERT INTO problem_reports (id, reporter_id, assignment_id, category, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		report.ID, report.ReporterID, report.AssignmentID, report.Category,
		report.Description, report.Status).Scan(&report.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.CreateReport: %w", err)
	}
	return nil
}
