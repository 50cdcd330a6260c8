package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gp-connect/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

const tokenTTL = 24 * time.Hour

// Claims carried inside every access token.
type Claims struct {
	UserID string `json:"sub"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ServiceInterface defines the contract for the auth service.
type ServiceInterface interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	GoogleLogin(ctx context.Context, code string) (*models.AuthResponse, error)
	GoogleAuthURL(state string) string
}

// Service implements the auth service logic.
type Service struct {
	repo        RepositoryInterface
	jwtSecret   []byte
	googleOAuth *oauth2.Config
}

// NewService creates a new auth service. googleOAuth may be nil when OAuth
// login is not configured.
func NewService(repo RepositoryInterface, jwtSecret string, googleOAuth *oauth2.Config) *Service {
	return &Service{
		repo:        repo,
		jwtSecret:   []byte(jwtSecret),
		googleOAuth: googleOAuth,
	}
}

// Register creates a sender or traveler account and returns a signed token.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("service.Register: hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, req.Email, string(hash), req.FullName, req.Role)
	if err != nil {
		return nil, fmt.Errorf("service.Register: %w", err)
	}

	return s.issueToken(user)
}

// Login verifies credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service.Login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, models.ErrInvalidCredentials
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("service.Login: %w", err)
	}

	return s.issueToken(user)
}

// GoogleAuthURL returns the consent page URL for the OAuth flow.
func (s *Service) GoogleAuthURL(state string) string {
	if s.googleOAuth == nil {
		return ""
	}
	return s.googleOAuth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// GoogleLogin exchanges the authorization code, fetches the Google profile
// and upserts the matching account.
func (s *Service) GoogleLogin(ctx context.Context, code string) (*models.AuthResponse, error) {
	if s.googleOAuth == nil {
		return nil, models.ErrForbidden
	}

	token, err := s.googleOAuth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("service.GoogleLogin: exchange code: %w", err)
	}

	client := s.googleOAuth.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("service.GoogleLogin: fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("service.GoogleLogin: decode userinfo: %w", err)
	}
	if info.Email == "" {
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.repo.UpsertOAuthUser(ctx, info.Email, info.Name)
	if err != nil {
		return nil, fmt.Errorf("service.GoogleLogin: %w", err)
	}

	return s.issueToken(user)
}

func (s *Service) issueToken(user *models.User) (*models.AuthResponse, error) {
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &models.AuthResponse{Token: signed, User: user}, nil
}
