package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	auditdomain "github.com/travelflow/travelflow-backend/internal/audit/domain"
	"github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// DefaultCurrency is used for organizations registered without one
const DefaultCurrency = "EUR"

// OrganizationService handles organization sign-up and settings
type OrganizationService struct {
	orgs     OrganizationStore
	profiles ProfileStore
	tx       Transactor
	audit    AuditRecorder
	logger   *logger.Logger
}

// NewOrganizationService creates a new organization service
func NewOrganizationService(orgs OrganizationStore, profiles ProfileStore, tx Transactor, audit AuditRecorder, log *logger.Logger) *OrganizationService {
	return &OrganizationService{
		orgs:     orgs,
		profiles: profiles,
		tx:       tx,
		audit:    audit,
		logger:   log,
	}
}

// RegisterOrganizationRequest signs up a new organization and its first administrator
type RegisterOrganizationRequest struct {
	OrganizationName string `json:"organization_name" validate:"required,max=255"`
	DefaultCurrency  string `json:"default_currency" validate:"omitempty,len=3"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	FullName         string `json:"full_name" validate:"required,max=255"`
}

// Registration is the result of a sign-up
type Registration struct {
	Organization *domain.Organization `json:"organization"`
	Profile      *domain.Profile      `json:"profile"`
}

// Register creates the organization and its first profile holding the
// org_admin and manager roles in one transaction.
func (s *OrganizationService) Register(ctx context.Context, req *RegisterOrganizationRequest) (*Registration, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}

	currency := strings.ToUpper(req.DefaultCurrency)
	if currency == "" {
		currency = DefaultCurrency
	}

	org := &domain.Organization{
		ID:              uuid.New().String(),
		Name:            strings.TrimSpace(req.OrganizationName),
		AccountingType:  domain.AccountingInternal,
		DefaultCurrency: currency,
	}
	profile := &domain.Profile{
		OrganizationID: org.ID,
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:   string(hash),
		FullName:       strings.TrimSpace(req.FullName),
		IsActive:       true,
		Roles:          []string{permissions.RoleOrgAdmin, permissions.RoleManager},
	}

	err = s.tx.WithTenantRLS(ctx, org.ID, func(ctx context.Context) error {
		if err := s.orgs.Create(ctx, org); err != nil {
			return err
		}
		if err := s.profiles.Create(ctx, profile); err != nil {
			return err
		}
		for _, role := range profile.Roles {
			if err := s.profiles.GrantRole(ctx, profile.ID, org.ID, role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("organization_id", org.ID).
		Str("user_id", profile.ID).
		Msg("organization registered")

	return &Registration{Organization: org, Profile: profile}, nil
}

// Get returns the organization of the caller
func (s *OrganizationService) Get(ctx context.Context) (*domain.Organization, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	return s.orgs.GetByID(ctx, a.OrganizationID)
}

// UpdateSettingsRequest changes organization settings. Omitted fields keep their value.
type UpdateSettingsRequest struct {
	Name                    *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	AccountingType          *string `json:"accounting_type,omitempty" validate:"omitempty,oneof=internal external"`
	ExternalAccountingEmail *string `json:"external_accounting_email,omitempty" validate:"omitempty,email"`
	DefaultCurrency         *string `json:"default_currency,omitempty" validate:"omitempty,len=3"`
}

// UpdateSettings applies the request. External accounting requires an
// accounting email; internal accounting never stores one.
func (s *OrganizationService) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*domain.Organization, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if !a.CanManageOrganization() {
		return nil, errors.Forbidden("not allowed to change organization settings")
	}

	var updated *domain.Organization
	err := s.tx.WithTenant(ctx, func(ctx context.Context) error {
		current, err := s.orgs.GetByID(ctx, a.OrganizationID)
		if err != nil {
			return err
		}

		next := *current
		if req.Name != nil {
			next.Name = strings.TrimSpace(*req.Name)
		}
		if req.DefaultCurrency != nil {
			next.DefaultCurrency = strings.ToUpper(*req.DefaultCurrency)
		}
		if req.AccountingType != nil {
			next.AccountingType = *req.AccountingType
		}
		if req.ExternalAccountingEmail != nil {
			email := strings.TrimSpace(*req.ExternalAccountingEmail)
			next.ExternalAccountingEmail = &email
		}

		switch next.AccountingType {
		case domain.AccountingExternal:
			if next.ExternalAccountingEmail == nil || *next.ExternalAccountingEmail == "" {
				return errors.ValidationField("external_accounting_email", "required when accounting_type is external")
			}
		case domain.AccountingInternal:
			next.ExternalAccountingEmail = nil
		default:
			return errors.ValidationField("accounting_type", "must be internal or external")
		}

		if err := s.orgs.UpdateSettings(ctx, &next); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, auditdomain.EntityOrganizationSettings, next.ID, auditdomain.ActionUpdate, current, &next); err != nil {
			return err
		}

		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("organization_id", updated.ID).
		Str("accounting_type", updated.AccountingType).
		Str("actor_id", a.ID).
		Msg("organization settings updated")

	return updated, nil
}
