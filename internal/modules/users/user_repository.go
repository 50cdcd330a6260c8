package users

import (
	"context"
	"errors"
	"fmt"

	"gp-connect/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the user repository.
type RepositoryInterface interface {
	FindByID(ctx context.Context, userID string) (*models.User, error)
	FindPublicProfile(ctx context.Context, userID string) (*models.PublicProfile, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
	CreateKYCDocument(ctx context.Context, doc *models.KYCDocument) error
	ListKYCForUser(ctx context.Context, userID string) ([]*models.KYCDocument, error)
	ListNotifications(ctx context.Context, userID string, page, limit int) ([]*models.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	MarkNotificationsRead(ctx context.Context, userID string) (int64, error)
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new user repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// FindByID retrieves the full account row.
func (r *Repository) FindByID(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, full_name, phone, city, avatar_url,
			role, kyc_verified, created_at, updated_at, last_login_at
		FROM users WHERE id = $1`, userID).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.City,
		&u.AvatarURL, &u.Role, &u.KYCVerified, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return &u, nil
}

// FindPublicProfile retrieves the public subset with the review aggregate
// joined in.
func (r *Repository) FindPublicProfile(ctx context.Context, userID string) (*models.PublicProfile, error) {
	var p models.PublicProfile
	err := r.db.QueryRow(ctx, `
		SELECT u.id, u.full_name, u.city, u.avatar_url, u.role, u.kyc_verified,
			COALESCE(AVG(rv.rating), 0), COUNT(rv.id), u.created_at
		FROM users u
		LEFT JOIN reviews rv ON rv.reviewee_id = u.id
		WHERE u.id = $1
		GROUP BY u.id`, userID).Scan(
		&p.ID, &p.FullName, &p.City, &p.AvatarURL, &p.Role, &p.KYCVerified,
		&p.AverageRating, &p.ReviewCount, &p.MemberSince)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindPublicProfile: %w", err)
	}
	return &p, nil
}

// UpdateProfile applies the provided fields and returns the updated row.
func (r *Repository) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	set := "updated_at = NOW()"
	args := []interface{}{userID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if req.FullName != nil {
		set += ", full_name = " + arg(*req.FullName)
	}
	if req.Phone != nil {
		set += ", phone = " + arg(*req.Phone)
	}
	if req.City != nil {
		set += ", city = " + arg(*req.City)
	}
	if req.AvatarURL != nil {
		set += ", avatar_url = " + arg(*req.AvatarURL)
	}

	query := fmt.Sprintf(`
		UPDATE users SET %s WHERE id = $1
		RETURNING id, email, password_hash, full_name, phone, city, avatar_url,
			role, kyc_verified, created_at, updated_at, last_login_at`, set)

	var u models.User
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.City,
		&u.AvatarURL, &u.Role, &u.KYCVerified, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.UpdateProfile: %w", err)
	}
	return &u, nil
}

// CreateKYCDocument inserts a pending document for review.
func (r *Repository) CreateKYCDocument(ctx context.Context, doc *models.KYCDocument) error {
	doc.ID = uuid.NewString()
	doc.Status = models.KYCStatusPending
	err := r.db.QueryRow(ctx, `
		INSERT INTO kyc_documents (id, user_id, document_type, document_url, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		doc.ID, doc.UserID, doc.DocumentType, doc.DocumentURL, doc.Status).Scan(&doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.CreateKYCDocument: %w", err)
	}
	return nil
}

// ListKYCForUser returns the user's submitted documents, newest first.
func (r *Repository) ListKYCForUser(ctx context.Context, userID string) ([]*models.KYCDocument, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, document_type, document_url, status, note,
			reviewed_by_id, reviewed_at, created_at
		FROM kyc_documents
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListKYCForUser: %w", err)
	}
	defer rows.Close()

	var out []*models.KYCDocument
	for rows.Next() {
		var d models.KYCDocument
		if err := rows.Scan(&d.ID, &d.UserID, &d.DocumentType, &d.DocumentURL,
			&d.Status, &d.Note, &d.ReviewedByID, &d.ReviewedAt, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ListKYCForUser.Scan: %w", err)
		}
		out = append(out, &d)
	}
	return out, nil
}

// ListNotifications returns the user's inbox, newest first.
func (r *Repository) ListNotifications(ctx context.Context, userID string, page, limit int) ([]*models.Notification, error) {
	offset := (page - 1) * limit
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, kind, title, body, ref_id, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("repository.ListNotifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body,
			&n.RefID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ListNotifications.Scan: %w", err)
		}
		out = append(out, &n)
	}
	return out, nil
}

// CountUnreadNotifications returns the badge count.
func (r *Repository) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND read_at IS NULL`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("repository.CountUnreadNotifications: %w", err)
	}
	return n, nil
}

// MarkNotificationsRead stamps every unread notification for the user.
func (r *Repository) MarkNotificationsRead(ctx context.Context, userID string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE notifications SET read_at = NOW()
		WHERE user_id = $1 AND read_at IS NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("repository.MarkNotificationsRead: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
