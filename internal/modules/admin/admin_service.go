package admin

import (
	"context"
	"fmt"

	"gp-connect/internal/models"
)

// NotifierInterface is the contract for emitting decision notifications.
type NotifierInterface interface {
	Notify(ctx context.Context, userID, kind, title, body string, refID *string)
}

// ServiceInterface defines the contract for the admin service.
type ServiceInterface interface {
	GetKYCQueue(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.KYCDocument, int, error)
	ApproveKYC(ctx context.Context, documentID, adminID, note string) (*models.KYCDocument, error)
	RejectKYC(ctx context.Context, documentID, adminID, note string) (*models.KYCDocument, error)
	GetDisputes(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.Dispute, int, error)
	ResolveDispute(ctx context.Context, disputeID, adminID, resolution string) (*models.Dispute, error)
	CloseDispute(ctx context.Context, disputeID, adminID, resolution string) (*models.Dispute, error)
	GetReports(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.ProblemReport, int, error)
	ResolveReport(ctx context.Context, reportID, adminID, status, note string) (*models.ProblemReport, error)
}

// Service implements the admin review logic.
type Service struct {
	repo     RepositoryInterface
	notifier NotifierInterface
}

// NewService creates a new admin service. notifier may be nil in tests.
func NewService(repo RepositoryInterface, notifier NotifierInterface) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// GetKYCQueue returns the document review queue, oldest first.
func (s *Service) GetKYCQueue(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.KYCDocument, int, error) {
	page, limit = normalizePage(page, limit)
	out, total, err := s.repo.ListKYCDocuments(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.GetKYCQueue: %w", err)
	}
	return out, total, nil
}

// ApproveKYC approves a pending document and marks the user verified.
func (s *Service) ApproveKYC(ctx context.Context, documentID, adminID, note string) (*models.KYCDocument, error) {
	doc, err := s.repo.DecideKYC(ctx, documentID, adminID, models.KYCStatusApproved, note)
	if err != nil {
		return nil, decisionError("service.ApproveKYC", err)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, doc.UserID, "kyc_approved",
			"Identity verified",
			"Your identity document was approved. Your profile now shows a verified badge.",
			&doc.ID)
	}
	return doc, nil
}

// RejectKYC rejects a pending document. The note explains what to fix
// and is required.
func (s *Service) RejectKYC(ctx context.Context, documentID, adminID, note string) (*models.KYCDocument, error) {
	doc, err := s.repo.DecideKYC(ctx, documentID, adminID, models.KYCStatusRejected, note)
	if err != nil {
		return nil, decisionError("service.RejectKYC", err)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, doc.UserID, "kyc_rejected",
			"Identity document rejected", note, &doc.ID)
	}
	return doc, nil
}

// GetDisputes returns the dispute queue, oldest first.
func (s *Service) GetDisputes(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.Dispute, int, error) {
	page, limit = normalizePage(page, limit)
	out, total, err := s.repo.ListDisputes(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.GetDisputes: %w", err)
	}
	return out, total, nil
}

// ResolveDispute records the admin's resolution on an open dispute.
func (s *Service) ResolveDispute(ctx context.Context, disputeID, adminID, resolution string) (*models.Dispute, error) {
	d, err := s.repo.ResolveDispute(ctx, disputeID, adminID, models.DisputeStatusResolved, resolution)
	if err != nil {
		return nil, decisionError("service.ResolveDispute", err)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, d.OpenedByID, "dispute_resolved",
			"Your dispute was resolved", resolution, &d.ID)
	}
	return d, nil
}

// CloseDispute closes an open dispute without a remedy.
func (s *Service) CloseDispute(ctx context.Context, disputeID, adminID, resolution string) (*models.Dispute, error) {
	d, err := s.repo.ResolveDispute(ctx, disputeID, adminID, models.DisputeStatusClosed, resolution)
	if err != nil {
		return nil, decisionError("service.CloseDispute", err)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, d.OpenedByID, "dispute_closed",
			"Your dispute was closed", resolution, &d.ID)
	}
	return d, nil
}

// GetReports returns the problem report queue, oldest first.
func (s *Service) GetReports(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.ProblemReport, int, error) {
	page, limit = normalizePage(page, limit)
	out, total, err := s.repo.ListReports(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.GetReports: %w", err)
	}
	return out, total, nil
}

// ResolveReport moves a report to reviewed or resolved with a note.
func (s *Service) ResolveReport(ctx context.Context, reportID, adminID, status, note string) (*models.ProblemReport, error) {
	if status != models.ReportStatusReviewed && status != models.ReportStatusResolved {
		return nil, fmt.Errorf("%w: invalid report status %q", models.ErrConflict, status)
	}
	rep, err := s.repo.ResolveReport(ctx, reportID, adminID, status, note)
	if err != nil {
		return nil, decisionError("service.ResolveReport", err)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, rep.ReporterID, "report_"+status,
			"Update on your report", note, &rep.ID)
	}
	return rep, nil
}

func decisionError(op string, err error) error {
	switch err {
	case models.ErrNotFound, models.ErrAlreadyDecided:
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
