package service

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/internal/identity/jwt"
	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// TokenIssuer issues and validates token pairs
type TokenIssuer interface {
	GenerateTokenPair(user *jwt.UserInfo) (*jwt.TokenPair, error)
	ValidateRefreshToken(token string) (*jwt.RefreshClaims, error)
}

// AuthService handles authentication
type AuthService struct {
	profiles ProfileStore
	orgs     OrganizationStore
	tokens   TokenIssuer
	logger   *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(profiles ProfileStore, orgs OrganizationStore, tokens TokenIssuer, log *logger.Logger) *AuthService {
	return &AuthService{
		profiles: profiles,
		orgs:     orgs,
		tokens:   tokens,
		logger:   log,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	*jwt.TokenPair
	User *domain.Profile `json:"user"`
}

// RefreshRequest represents a refresh token request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Login authenticates a user by email and password
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	profile, err := s.profiles.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InvalidCredentials()
		}
		return nil, err
	}

	if !profile.IsActive {
		s.logger.Warn().Str("user_id", profile.ID).Msg("login attempt for inactive profile")
		return nil, errors.InvalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.InvalidCredentials()
	}

	pair, err := s.issue(profile)
	if err != nil {
		return nil, err
	}

	if err := s.profiles.TouchLastLogin(ctx, profile.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", profile.ID).Msg("failed to record last login")
	}

	s.logger.Info().
		Str("user_id", profile.ID).
		Str("organization_id", profile.OrganizationID).
		Msg("user logged in")

	return &LoginResponse{TokenPair: pair, User: profile}, nil
}

// Refresh exchanges a refresh token for a new pair carrying the current roles
func (s *AuthService) Refresh(ctx context.Context, req *RefreshRequest) (*LoginResponse, error) {
	claims, err := s.tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.TokenInvalid()
		}
		return nil, err
	}

	if !profile.IsActive || profile.OrganizationID != claims.OrganizationID {
		return nil, errors.TokenInvalid()
	}

	pair, err := s.issue(profile)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{TokenPair: pair, User: profile}, nil
}

// Me returns the caller's profile, organization and permissions
func (s *AuthService) Me(ctx context.Context) (*domain.ProfileWithPermissions, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}

	profile, err := s.profiles.GetByID(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	org, err := s.orgs.GetByID(ctx, profile.OrganizationID)
	if err != nil {
		return nil, err
	}

	return &domain.ProfileWithPermissions{
		Profile:      profile,
		Organization: org,
		Permissions:  permissions.ForRoles(profile.Roles),
	}, nil
}

func (s *AuthService) issue(profile *domain.Profile) (*jwt.TokenPair, error) {
	pair, err := s.tokens.GenerateTokenPair(&jwt.UserInfo{
		ID:             profile.ID,
		Email:          profile.Email,
		Name:           profile.FullName,
		OrganizationID: profile.OrganizationID,
		Roles:          profile.Roles,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", profile.ID).Msg("failed to issue tokens")
		return nil, errors.Internal("failed to issue tokens")
	}
	return pair, nil
}
