package database

import (
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/lib/pq"

	"github.com/travelflow/travelflow-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case "23514":
		return mapCheckConstraint(pqErr)

	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	case "23503":
		return errors.BadRequest("referenced record does not exist")

	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// Classify returns err mapped to an AppError: sql.ErrNoRows becomes NotFound(resource),
// constraint violations are mapped by MapPQError and anything else is passed through.
func Classify(err error, resource string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound(resource)
	}
	if appErr := MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "email_format"):
		return errors.Validation(map[string]string{
			"email": "must be a valid email address",
		})

	case strings.Contains(constraint, "accounting_email"):
		return errors.Validation(map[string]string{
			"external_accounting_email": "required when accounting_type is external",
		})

	case strings.Contains(constraint, "dates"):
		return errors.Validation(map[string]string{
			"end_date": "must not be before start_date",
		})

	case strings.Contains(constraint, "max_uses"):
		return errors.Validation(map[string]string{
			"max_uses": "must be at least 1",
		})

	case strings.Contains(constraint, "limit_positive"):
		return errors.Validation(map[string]string{
			"limit_amount": "must not be negative",
		})

	case strings.Contains(constraint, "amount_positive"), strings.Contains(constraint, "rate_positive"):
		return errors.Validation(map[string]string{
			"amount": "must be greater than zero",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "profiles_email"):
		return "a user with this email already exists"
	case strings.Contains(constraint, "invitation_codes_code"):
		return "invitation code already exists"
	case strings.Contains(constraint, "approval_level"):
		return "approval level already recorded for this request"
	case strings.Contains(constraint, "grade"):
		return "a grade with this name already exists"
	default:
		return "a record with these values already exists"
	}
}
