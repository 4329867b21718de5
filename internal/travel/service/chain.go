package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	auditdomain "github.com/travelflow/travelflow-backend/internal/audit/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// ChainService configures the approval chains of an organization
type ChainService struct {
	chains   ChainStore
	profiles ProfileDirectory
	tx       Transactor
	audit    AuditRecorder
	logger   *logger.Logger
}

// NewChainService creates a new approval chain service
func NewChainService(chains ChainStore, profiles ProfileDirectory, tx Transactor, audit AuditRecorder, log *logger.Logger) *ChainService {
	return &ChainService{
		chains:   chains,
		profiles: profiles,
		tx:       tx,
		audit:    audit,
		logger:   log,
	}
}

// ChainLevelRequest describes one level. Levels are numbered by position.
type ChainLevelRequest struct {
	ApproverType                 string              `json:"approver_type" validate:"required,oneof=manager role user"`
	ApproverRole                 *string             `json:"approver_role,omitempty"`
	ApproverID                   *string             `json:"approver_id,omitempty" validate:"omitempty,uuid"`
	CanSkipIfApprovedAmountUnder decimal.NullDecimal `json:"can_skip_if_approved_amount_under"`
}

// ChainRequest creates or replaces an approval chain
type ChainRequest struct {
	Name      string              `json:"name" validate:"required,max=255"`
	IsDefault bool                `json:"is_default"`
	Levels    []ChainLevelRequest `json:"levels" validate:"required,min=1,max=10,dive"`
}

func (s *ChainService) apply(ctx context.Context, organizationID string, req *ChainRequest, c *domain.ApprovalChain) error {
	c.Name = strings.TrimSpace(req.Name)
	c.IsDefault = req.IsDefault
	c.Levels = make([]*domain.ChainLevel, 0, len(req.Levels))

	for i, l := range req.Levels {
		level := &domain.ChainLevel{
			Level:                        i + 1,
			ApproverType:                 l.ApproverType,
			CanSkipIfApprovedAmountUnder: l.CanSkipIfApprovedAmountUnder,
		}
		field := "levels." + strconv.Itoa(i)

		if l.CanSkipIfApprovedAmountUnder.Valid && l.CanSkipIfApprovedAmountUnder.Decimal.IsNegative() {
			return errors.ValidationField(field+".can_skip_if_approved_amount_under", "must not be negative")
		}

		switch l.ApproverType {
		case domain.ApproverRole:
			if l.ApproverRole == nil || !permissions.IsValidRole(*l.ApproverRole) {
				return errors.ValidationField(field+".approver_role", "must be a valid role")
			}
			level.ApproverRole = l.ApproverRole
		case domain.ApproverUser:
			if l.ApproverID == nil {
				return errors.ValidationField(field+".approver_id", "required for a user level")
			}
			p, err := s.profiles.GetByID(ctx, *l.ApproverID)
			if err != nil || p.OrganizationID != organizationID || !p.IsActive {
				return errors.ValidationField(field+".approver_id", "must be an active member of the organization")
			}
			level.ApproverID = l.ApproverID
		}
		c.Levels = append(c.Levels, level)
	}
	return nil
}

// List lists the approval chains of the caller's organization
func (s *ChainService) List(ctx context.Context) ([]*domain.ApprovalChain, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if !a.Can(permissions.ChainsRead) {
		return nil, errors.Forbidden("not allowed to view approval chains")
	}
	return s.chains.List(ctx, a.OrganizationID)
}

// Get returns an approval chain of the caller's organization
func (s *ChainService) Get(ctx context.Context, id string) (*domain.ApprovalChain, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if !a.Can(permissions.ChainsRead) {
		return nil, errors.Forbidden("not allowed to view approval chains")
	}
	c, err := s.chains.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OrganizationID != a.OrganizationID {
		return nil, errors.NotFound("approval chain")
	}
	return c, nil
}

func (s *ChainService) write(ctx context.Context, fn func(ctx context.Context, a *actor.Actor) error) error {
	a, err := caller(ctx)
	if err != nil {
		return err
	}
	if !a.Can(permissions.ChainsWrite) {
		return errors.Forbidden("not allowed to manage approval chains")
	}
	return s.tx.WithTenant(ctx, func(ctx context.Context) error {
		return fn(ctx, a)
	})
}

// Create creates an approval chain. A new default chain replaces the
// previous default.
func (s *ChainService) Create(ctx context.Context, req *ChainRequest) (*domain.ApprovalChain, error) {
	var chain *domain.ApprovalChain
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		c := &domain.ApprovalChain{OrganizationID: a.OrganizationID}
		if err := s.apply(ctx, a.OrganizationID, req, c); err != nil {
			return err
		}
		if c.IsDefault {
			if err := s.chains.ClearDefault(ctx, a.OrganizationID); err != nil {
				return err
			}
		}
		if err := s.chains.Create(ctx, c); err != nil {
			return err
		}
		chain = c
		return s.audit.Record(ctx, auditdomain.EntityApprovalChain, c.ID, auditdomain.ActionCreate, nil, c)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("chain_id", chain.ID).
		Int("levels", len(chain.Levels)).
		Bool("is_default", chain.IsDefault).
		Msg("approval chain created")
	return chain, nil
}

// Update replaces the name, default flag and levels of a chain
func (s *ChainService) Update(ctx context.Context, id string, req *ChainRequest) (*domain.ApprovalChain, error) {
	var chain *domain.ApprovalChain
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		current, err := s.chains.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.OrganizationID != a.OrganizationID {
			return errors.NotFound("approval chain")
		}

		next := *current
		if err := s.apply(ctx, a.OrganizationID, req, &next); err != nil {
			return err
		}
		if next.IsDefault && !current.IsDefault {
			if err := s.chains.ClearDefault(ctx, a.OrganizationID); err != nil {
				return err
			}
		}
		if err := s.chains.Update(ctx, &next); err != nil {
			return err
		}
		chain = &next
		return s.audit.Record(ctx, auditdomain.EntityApprovalChain, id, auditdomain.ActionUpdate, current, &next)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("chain_id", id).Msg("approval chain updated")
	return chain, nil
}

// Delete deletes an approval chain. Requests that named it fall back to the
// organization default.
func (s *ChainService) Delete(ctx context.Context, id string) error {
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		current, err := s.chains.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.OrganizationID != a.OrganizationID {
			return errors.NotFound("approval chain")
		}
		if err := s.chains.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, auditdomain.EntityApprovalChain, id, auditdomain.ActionDelete, current, nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("chain_id", id).Msg("approval chain deleted")
	return nil
}
