package reviews

import (
	"context"
	"fmt"

	"gp-connect/internal/models"
)

// ServiceInterface defines the contract for the review and feedback
// service.
type ServiceInterface interface {
	CreateReview(ctx context.Context, assignmentID, reviewerID string, req models.CreateReviewRequest) (*models.Review, error)
	GetReviewsForUser(ctx context.Context, userID string, page, limit int) ([]*models.Review, int, error)
	OpenDispute(ctx context.Context, userID string, req models.OpenDisputeRequest) (*models.Dispute, error)
	FileReport(ctx context.Context, reporterID string, req models.CreateReportRequest) (*models.ProblemReport, error)
}

// Service implements the review and feedback logic.
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new review service.
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// CreateReview submits a rating once the delivery is complete. Each party
// may review the other exactly once per assignment.
func (s *Service) CreateReview(ctx context.Context, assignmentID, reviewerID string, req models.CreateReviewRequest) (*models.Review, error) {
	parties, err := s.repo.GetAssignmentParties(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("service.CreateReview: %w", err)
	}

	var revieweeID string
	switch reviewerID {
	case parties.SenderID:
		revieweeID = parties.TravelerID
	case parties.TravelerID:
		revieweeID = parties.SenderID
	default:
		return nil, models.ErrNotFound
	}

	if parties.DeliveryCompletedAt == nil {
		return nil, fmt.Errorf("%w: delivery is not complete", models.ErrNotDelivered)
	}

	review := &models.Review{
		AssignmentID: assignmentID,
		ReviewerID:   reviewerID,
		RevieweeID:   revieweeID,
		Rating:       req.Rating,
		Comment:      req.Comment,
	}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		if err == models.ErrReviewExists {
			return nil, err
		}
		return nil, fmt.Errorf("service.CreateReview: %w", err)
	}
	return review, nil
}

// GetReviewsForUser returns reviews received by a user.
func (s *Service) GetReviewsForUser(ctx context.Context, userID string, page, limit int) ([]*models.Review, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	out, total, err := s.repo.ListForUser(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.GetReviewsForUser: %w", err)
	}
	return out, total, nil
}

// OpenDispute raises a dispute against an assignment the caller is part
// of.
func (s *Service) OpenDispute(ctx context.Context, userID string, req models.OpenDisputeRequest) (*models.Dispute, error) {
	parties, err := s.repo.GetAssignmentParties(ctx, req.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("service.OpenDispute: %w", err)
	}
	if userID != parties.SenderID && userID != parties.TravelerID {
		return nil, models.ErrNotFound
	}

	dispute := &models.Dispute{
		AssignmentID: req.AssignmentID,
		OpenedByID:   userID,
		Reason:       req.Reason,
	}
	if err := s.repo.CreateDispute(ctx, dispute); err != nil {
		return nil, fmt.Errorf("service.OpenDispute: %w", err)
	}
	return dispute, nil
}

// FileReport files a general problem report. When tied to an assignment
// the caller must be a party to it.
func (s *Service) FileReport(ctx context.Context, reporterID string, req models.CreateReportRequest) (*models.ProblemReport, error) {
	if req.AssignmentID != nil {
		parties, err := s.repo.GetAssignmentParties(ctx, *req.AssignmentID)
		if err != nil {
			return nil, fmt.Errorf("service.FileReport: %w", err)
		}
		if reporterID != parties.SenderID && reporterID != parties.TravelerID {
			return nil, models.ErrNotFound
		}
	}

	report := &models.ProblemReport{
		ReporterID:   reporterID,
		AssignmentID: req.AssignmentID,
		Category:     req.Category,
		Description:  req.Description,
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("service.FileReport: %w", err)
	}
	return report, nil
}
