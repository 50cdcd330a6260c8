package admin

import (
	"context"
	"errors"
	"fmt"

	"gp-connect/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueueFilter narrows the admin review queues. Search matches the
// submitting user's name or email.
type QueueFilter struct {
	Status string
	Search string
}

// RepositoryInterface defines the contract for the admin repository.
type RepositoryInterface interface {
	ListKYCDocuments(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.KYCDocument, int, error)
	DecideKYC(ctx context.Context, documentID, adminID, status, note string) (*models.KYCDocument, error)
	ListDisputes(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.Dispute, int, error)
	ResolveDispute(ctx context.Context, disputeID, adminID, status, resolution string) (*models.Dispute, error)
	ListReports(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.ProblemReport, int, error)
	ResolveReport(ctx context.Context, reportID, adminID, status, note string) (*models.ProblemReport, error)
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new admin repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// ListKYCDocuments returns the review queue with the submitting user
// joined in.
func (r *Repository) ListKYCDocuments(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.KYCDocument, int, error) {
	where := "TRUE"
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		where += " AND d.status = " + arg(filter.Status)
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where += fmt.Sprintf(" AND (u.full_name ILIKE %s OR u.email ILIKE %s)", p, p)
	}

	var total int
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM kyc_documents d
		JOIN users u ON u.id = d.user_id
		WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.ListKYCDocuments.Count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT d.id, d.user_id, d.document_type, d.document_url, d.status,
			d.note, d.reviewed_by_id, d.reviewed_at, d.created_at,
			u.id, u.full_name, u.city, u.avatar_url, u.role, u.kyc_verified, u.created_at
		FROM kyc_documents d
		JOIN users u ON u.id = d.user_id
		WHERE %s
		ORDER BY d.created_at ASC
		LIMIT %s OFFSET %s`, where, arg(limit), arg((page-1)*limit))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListKYCDocuments: %w", err)
	}
	defer rows.Close()

	var out []*models.KYCDocument
	for rows.Next() {
		var d models.KYCDocument
		var p models.PublicProfile
		err := rows.Scan(&d.ID, &d.UserID, &d.DocumentType, &d.DocumentURL, &d.Status,
			&d.Note, &d.ReviewedByID, &d.ReviewedAt, &d.CreatedAt,
			&p.ID, &p.FullName, &p.City, &p.AvatarURL, &p.Role, &p.KYCVerified, &p.MemberSince)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListKYCDocuments.Scan: %w", err)
		}
		d.User = &p
		out = append(out, &d)
	}
	return out, total, nil
}

// DecideKYC stamps the decision on a pending document and, on approval,
// flips the user's verified flag in the same transaction.
func (r *Repository) DecideKYC(ctx context.Context, documentID, adminID, status, note string) (*models.KYCDocument, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository.DecideKYC: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var d models.KYCDocument
	err = tx.QueryRow(ctx, `
		UPDATE kyc_documents
		SET status = $2, note = $3, reviewed_by_id = $4, reviewed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING id, user_id, document_type, document_url, status, note,
			reviewed_by_id, reviewed_at, created_at`,
		documentID, status, note, adminID).Scan(
		&d.ID, &d.UserID, &d.DocumentType, &d.DocumentURL, &d.Status, &d.Note,
		&d.ReviewedByID, &d.ReviewedAt, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish missing from already decided.
			var exists bool
			if lookupErr := r.db.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM kyc_documents WHERE id = $1)`,
				documentID).Scan(&exists); lookupErr == nil && exists {
				return nil, models.ErrAlreadyDecided
			}
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.DecideKYC: %w", err)
	}

	if status == models.KYCStatusApproved {
		if _, err := tx.Exec(ctx,
			`UPDATE users SET kyc_verified = TRUE, updated_at = NOW() WHERE id = $1`,
			d.UserID); err != nil {
			return nil, fmt.Errorf("repository.DecideKYC: verify user: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository.DecideKYC: commit: %w", err)
	}
	return &d, nil
}

// ListDisputes returns disputes with the opener joined in.
func (r *Repository) ListDisputes(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.Dispute, int, error) {
	where := "TRUE"
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		where += " AND dp.status = " + arg(filter.Status)
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where += fmt.Sprintf(" AND (u.full_name ILIKE %s OR u.email ILIKE %s OR dp.reason ILIKE %s)", p, p, p)
	}

	var total int
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM disputes dp
		JOIN users u ON u.id = dp.opened_by_id
		WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.ListDisputes.Count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT dp.id, dp.assignment_id, dp.opened_by_id, dp.reason, dp.status,
			dp.resolution, dp.resolved_by_id, dp.resolved_at, dp.created_at,
			u.id, u.full_name, u.city, u.avatar_url, u.role, u.kyc_verified, u.created_at
		FROM disputes dp
		JOIN users u ON u.id = dp.opened_by_id
		WHERE %s
		ORDER BY dp.created_at ASC
		LIMIT %s OFFSET %s`, where, arg(limit), arg((page-1)*limit))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListDisputes: %w", err)
	}
	defer rows.Close()

	var out []*models.Dispute
	for rows.Next() {
		var d models.Dispute
		var p models.PublicProfile
		err := rows.Scan(&d.ID, &d.AssignmentID, &d.OpenedByID, &d.Reason, &d.Status,
			&d.Resolution, &d.ResolvedByID, &d.ResolvedAt, &d.CreatedAt,
			&p.ID, &p.FullName, &p.City, &p.AvatarURL, &p.Role, &p.KYCVerified, &p.MemberSince)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListDisputes.Scan: %w", err)
		}
		d.OpenedBy = &p
		out = append(out, &d)
	}
	return out, total, nil
}

// ResolveDispute stamps an admin decision on an open dispute.
func (r *Repository) ResolveDispute(ctx context.Context, disputeID, adminID, status, resolution string) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.QueryRow(ctx, `
		UPDATE disputes
		SET status = $2, resolution = $3, resolved_by_id = $4, resolved_at = NOW()
		WHERE id = $1 AND status = 'open'
		RETURNING id, assignment_id, opened_by_id, reason, status, resolution,
			resolved_by_id, resolved_at, created_at`,
		disputeID, status, resolution, adminID).Scan(
		&d.ID, &d.AssignmentID, &d.OpenedByID, &d.Reason, &d.Status, &d.Resolution,
		&d.ResolvedByID, &d.ResolvedAt, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if lookupErr := r.db.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM disputes WHERE id = $1)`,
				disputeID).Scan(&exists); lookupErr == nil && exists {
				return nil, models.ErrAlreadyDecided
			}
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.ResolveDispute: %w", err)
	}
	return &d, nil
}

// ListReports returns problem reports with the reporter joined in.
func (r *Repository) ListReports(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.ProblemReport, int, error) {
	where := "TRUE"
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		where += " AND pr.status = " + arg(filter.Status)
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where += fmt.Sprintf(" AND (u.full_name ILIKE %s OR u.email ILIKE %s OR pr.description ILIKE %s)", p, p, p)
	}

	var total int
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM problem_reports pr
		JOIN users u ON u.id = pr.reporter_id
		WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.ListReports.Count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT pr.id, pr.reporter_id, pr.assignment_id, pr.category, pr.description,
			pr.status, pr.admin_note, pr.reviewed_by_id, pr.reviewed_at, pr.created_at,
			u.id, u.full_name, u.city, u.avatar_url, u.role, u.kyc_verified, u.created_at
		FROM problem_reports pr
		JOIN users u ON u.id = pr.reporter_id
		WHERE %s
		ORDER BY pr.created_at ASC
		LIMIT %s OFFSET %s`, where, arg(limit), arg((page-1)*limit))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListReports: %w", err)
	}
	defer rows.Close()

	var out []*models.ProblemReport
	for rows.Next() {
		var rep models.ProblemReport
		var p models.PublicProfile
		err := rows.Scan(&rep.ID, &rep.ReporterID, &rep.AssignmentID, &rep.Category,
			&rep.Description, &rep.Status, &rep.AdminNote, &rep.ReviewedByID,
			&rep.ReviewedAt, &rep.CreatedAt,
			&p.ID, &p.FullName, &p.City, &p.AvatarURL, &p.Role, &p.KYCVerified, &p.MemberSince)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListReports.Scan: %w", err)
		}
		rep.Reporter = &p
		out = append(out, &rep)
	}
	return out, total, nil
}

// ResolveReport stamps an admin decision on an open report.
func (r *Repository) ResolveReport(ctx context.Context, reportID, adminID, status, note string) (*models.ProblemReport, error) {
	var rep models.ProblemReport
	err := r.db.QueryRow(ctx, `
		UPDATE problem_reports
		SET status = $2, admin_note = $3, reviewed_by_id = $4, reviewed_at = NOW()
		WHERE id = $1 AND status <> $2
		RETURNING id, reporter_id, assignment_id, category, description, status,
			admin_note, reviewed_by_id, reviewed_at, created_at`,
		reportID, status, note, adminID).Scan(
		&rep.ID, &rep.ReporterID, &rep.AssignmentID, &rep.Category, &rep.Description,
		&rep.Status, &rep.AdminNote, &rep.ReviewedByID, &rep.ReviewedAt, &rep.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if lookupErr := r.db.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM problem_reports WHERE id = $1)`,
				reportID).Scan(&exists); lookupErr == nil && exists {
				return nil, models.ErrAlreadyDecided
			}
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.ResolveReport: %w", err)
	}
	return &rep, nil
}
