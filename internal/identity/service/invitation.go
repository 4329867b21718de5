package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

const (
	// DefaultInvitationExpiry applies when a code is created without an expiry
	DefaultInvitationExpiry = 7 * 24 * time.Hour

	maxCodeAttempts = 5
)

// Redemption failures reported to the registrant
const (
	msgCodeExpired = "invitation code has expired"
	msgCodeUsed    = "invitation code already used"
)

// InvitationService handles invitation codes
type InvitationService struct {
	invitations InvitationStore
	profiles    ProfileStore
	orgs        OrganizationStore
	tx          Transactor
	logger      *logger.Logger
	generate    func() (string, error)
}

// NewInvitationService creates a new invitation service
func NewInvitationService(invitations InvitationStore, profiles ProfileStore, orgs OrganizationStore, tx Transactor, log *logger.Logger) *InvitationService {
	return &InvitationService{
		invitations: invitations,
		profiles:    profiles,
		orgs:        orgs,
		tx:          tx,
		logger:      log,
		generate:    GenerateCode,
	}
}

// GenerateCode draws an invitation code from the invitation alphabet
func GenerateCode() (string, error) {
	alphabet := domain.InvitationAlphabet
	max := big.NewInt(int64(len(alphabet)))

	var b strings.Builder
	b.Grow(domain.InvitationCodeLength)
	for i := 0; i < domain.InvitationCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// CreateInvitationRequest represents a create invitation request
type CreateInvitationRequest struct {
	Role          string  `json:"role" validate:"omitempty,oneof=org_admin manager accounting_manager user"`
	ManagerID     *string `json:"manager_id,omitempty" validate:"omitempty,uuid"`
	GradeID       *string `json:"grade_id,omitempty" validate:"omitempty,uuid"`
	ExpiresInDays *int    `json:"expires_in_days,omitempty" validate:"omitempty,min=1,max=90"`
	MaxUses       *int    `json:"max_uses,omitempty" validate:"omitempty,min=1,max=1000"`
}

// Create creates a new invitation code. A code collision is retried with a
// fresh code.
func (s *InvitationService) Create(ctx context.Context, req *CreateInvitationRequest) (*domain.InvitationCode, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}

	role := req.Role
	if role == "" {
		role = permissions.RoleUser
	}
	if role == permissions.RoleAdmin || !permissions.IsValidRole(role) {
		return nil, errors.ValidationField("role", "cannot be granted by invitation")
	}

	expiry := DefaultInvitationExpiry
	if req.ExpiresInDays != nil {
		expiry = time.Duration(*req.ExpiresInDays) * 24 * time.Hour
	}
	maxUses := 1
	if req.MaxUses != nil {
		maxUses = *req.MaxUses
	}

	inv := &domain.InvitationCode{
		OrganizationID: a.OrganizationID,
		Role:           role,
		ManagerID:      req.ManagerID,
		GradeID:        req.GradeID,
		ExpiresAt:      time.Now().Add(expiry),
		MaxUses:        maxUses,
		CreatedBy:      &a.ID,
	}

	err := s.tx.WithTenant(ctx, func(ctx context.Context) error {
		if req.ManagerID != nil {
			manager, err := s.profiles.GetByID(ctx, *req.ManagerID)
			if err != nil || manager.OrganizationID != a.OrganizationID {
				return errors.ValidationField("manager_id", "must be a member of the organization")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, errors.Internal("failed to generate invitation code")
		}
		inv.ID = ""
		inv.Code = code

		err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
			return s.invitations.Create(ctx, inv)
		})
		if err == nil {
			break
		}
		if errors.CodeOf(err) != "CONFLICT" || attempt >= maxCodeAttempts {
			return nil, err
		}
		s.logger.Debug().Int("attempt", attempt).Msg("invitation code collision, retrying")
	}

	s.logger.Info().
		Str("invitation_id", inv.ID).
		Str("role", inv.Role).
		Str("actor_id", a.ID).
		Msg("invitation code created")

	return inv, nil
}

// List lists the invitation codes of the caller's organization
func (s *InvitationService) List(ctx context.Context, limit, offset int) ([]*domain.InvitationCode, int64, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, 0, errors.Unauthorized("authentication required")
	}
	return s.invitations.List(ctx, a.OrganizationID, limit, offset)
}

// Delete deletes an invitation code of the caller's organization
func (s *InvitationService) Delete(ctx context.Context, id string) error {
	a := actor.FromContext(ctx)
	if a == nil {
		return errors.Unauthorized("authentication required")
	}

	return s.tx.WithTenant(ctx, func(ctx context.Context) error {
		inv, err := s.invitations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if inv.OrganizationID != a.OrganizationID {
			return errors.NotFound("invitation code")
		}
		if err := s.invitations.Delete(ctx, id); err != nil {
			return err
		}
		s.logger.Info().Str("invitation_id", id).Str("actor_id", a.ID).Msg("invitation code deleted")
		return nil
	})
}

// Lookup returns what a code grants without redeeming it (public endpoint)
func (s *InvitationService) Lookup(ctx context.Context, code string) (*domain.InvitationPublicInfo, error) {
	inv, err := s.invitations.GetByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}

	org, err := s.orgs.GetByID(ctx, inv.OrganizationID)
	if err != nil {
		return nil, err
	}

	return &domain.InvitationPublicInfo{
		Code:             inv.Code,
		OrganizationName: org.Name,
		Role:             inv.Role,
		ExpiresAt:        inv.ExpiresAt,
		IsValid:          inv.IsValid(time.Now()),
	}, nil
}

// RedeemRequest registers a new member with an invitation code
type RedeemRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=255"`
}

// Redeem creates a profile bound to the code's organization, role, manager
// and grade. The code row stays locked for the whole transaction, so two
// concurrent redemptions of a single-use code cannot both succeed. A
// rejected redemption writes nothing.
func (s *InvitationService) Redeem(ctx context.Context, code string, req *RedeemRequest) (*domain.Profile, error) {
	code = normalizeCode(code)

	inv, err := s.invitations.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}

	var profile *domain.Profile
	err = s.tx.WithTenantRLS(ctx, inv.OrganizationID, func(ctx context.Context) error {
		locked, err := s.invitations.LockByCode(ctx, code)
		if err != nil {
			return err
		}

		if locked.IsExpired(time.Now()) {
			return errors.BadRequest(msgCodeExpired)
		}
		if locked.IsExhausted() {
			return errors.BadRequest(msgCodeUsed)
		}

		p := &domain.Profile{
			OrganizationID: locked.OrganizationID,
			Email:          strings.ToLower(strings.TrimSpace(req.Email)),
			PasswordHash:   string(hash),
			FullName:       strings.TrimSpace(req.FullName),
			ManagerID:      locked.ManagerID,
			GradeID:        locked.GradeID,
			IsActive:       true,
		}
		if err := s.profiles.Create(ctx, p); err != nil {
			return err
		}
		if err := s.profiles.GrantRole(ctx, p.ID, p.OrganizationID, locked.Role); err != nil {
			return err
		}
		if _, err := s.invitations.RecordUse(ctx, locked.ID); err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.BadRequest(msgCodeUsed)
			}
			return err
		}

		p.Roles = []string{locked.Role}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", profile.ID).
		Str("organization_id", profile.OrganizationID).
		Str("invitation_id", inv.ID).
		Msg("invitation code redeemed, profile created")

	return profile, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
