package users

import (
	"context"
	"fmt"

	"gp-connect/internal/models"
)

// ServiceInterface defines the contract for the user service.
type ServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	GetPublicProfile(ctx context.Context, userID string) (*models.PublicProfile, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
	SubmitKYC(ctx context.Context, userID string, req models.SubmitKYCRequest) (*models.KYCDocument, error)
	GetKYCDocuments(ctx context.Context, userID string) ([]*models.KYCDocument, error)
	GetNotifications(ctx context.Context, userID string, page, limit int) ([]*models.Notification, error)
	GetUnreadCount(ctx context.Context, userID string) (int, error)
	MarkNotificationsRead(ctx context.Context, userID string) error
}

// Service implements the user profile logic.
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new user service.
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// GetProfile returns the caller's own account.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.GetProfile: %w", err)
	}
	return u, nil
}

// GetPublicProfile returns the counterparty view of a user.
func (s *Service) GetPublicProfile(ctx context.Context, userID string) (*models.PublicProfile, error) {
	p, err := s.repo.FindPublicProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.GetPublicProfile: %w", err)
	}
	return p, nil
}

// UpdateProfile applies the editable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	u, err := s.repo.UpdateProfile(ctx, userID, req)
	if err != nil {
		return nil, fmt.Errorf("service.UpdateProfile: %w", err)
	}
	return u, nil
}

// SubmitKYC files an identity document for admin review. Resubmission
// after a rejection is allowed; the newest document drives the decision.
func (s *Service) SubmitKYC(ctx context.Context, userID string, req models.SubmitKYCRequest) (*models.KYCDocument, error) {
	doc := &models.KYCDocument{
		UserID:       userID,
		DocumentType: req.DocumentType,
		DocumentURL:  req.DocumentURL,
	}
	if err := s.repo.CreateKYCDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("service.SubmitKYC: %w", err)
	}
	return doc, nil
}

// GetKYCDocuments returns the caller's submitted documents.
func (s *Service) GetKYCDocuments(ctx context.Context, userID string) ([]*models.KYCDocument, error) {
	docs, err := s.repo.ListKYCForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.GetKYCDocuments: %w", err)
	}
	return docs, nil
}

// GetNotifications returns a page of the caller's inbox.
func (s *Service) GetNotifications(ctx context.Context, userID string, page, limit int) ([]*models.Notification, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	out, err := s.repo.ListNotifications(ctx, userID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("service.GetNotifications: %w", err)
	}
	return out, nil
}

// GetUnreadCount returns the unread notification badge count.
func (s *Service) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := s.repo.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("service.GetUnreadCount: %w", err)
	}
	return n, nil
}

// MarkNotificationsRead clears the caller's unread notifications.
func (s *Service) MarkNotificationsRead(ctx context.Context, userID string) error {
	if _, err := s.repo.MarkNotificationsRead(ctx, userID); err != nil {
		return fmt.Errorf("service.MarkNotificationsRead: %w", err)
	}
	return nil
}
