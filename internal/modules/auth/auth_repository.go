package auth

import (
	"context"
	"errors"
	"fmt"

	"gp-connect/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/google/uuid"
)

// RepositoryInterface defines the contract for the auth repository.
type RepositoryInterface interface {
	CreateUser(ctx context.Context, email, passwordHash, fullName, role string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpsertOAuthUser(ctx context.Context, email, fullName string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id string) error
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new auth repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const userColumns = `id, email, password_hash, full_name, phone, city, avatar_url, role, kyc_verified, created_at, updated_at, last_login_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Phone,
		&u.City,
		&u.AvatarURL,
		&u.Role,
		&u.KYCVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a new email/password account.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash, fullName, role string) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	row := r.db.QueryRow(ctx, query, uuid.NewString(), email, passwordHash, fullName, role)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrEmailTaken
		}
		return nil, fmt.Errorf("repository.CreateUser: %w", err)
	}
	return user, nil
}

// FindByEmail retrieves a user by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByEmail: %w", err)
	}
	return user, nil
}

// FindByID retrieves a user by primary key.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return user, nil
}

// UpsertOAuthUser creates the account on first Google login and returns the
// existing row afterwards. OAuth accounts default to the sender role.
func (r *Repository) UpsertOAuthUser(ctx context.Context, email, fullName string) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, full_name, role)
		VALUES ($1, $2, $3, 'sender')
		ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, uuid.NewString(), email, fullName))
	if err != nil {
		return nil, fmt.Errorf("repository.UpsertOAuthUser: %w", err)
	}
	return user, nil
}

// TouchLastLogin stamps the last successful login time.
func (r *Repository) TouchLastLogin(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository.TouchLastLogin: %w", err)
	}
	return nil
}
