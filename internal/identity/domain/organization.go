package domain

import "time"

// Accounting types
const (
	AccountingInternal = "internal"
	AccountingExternal = "external"
)

// Organization is a tenant. Every other record belongs to exactly one.
type Organization struct {
	ID                      string    `json:"id" db:"id"`
	Name                    string    `json:"name" db:"name"`
	AccountingType          string    `json:"accounting_type" db:"accounting_type"`
	ExternalAccountingEmail *string   `json:"external_accounting_email,omitempty" db:"external_accounting_email"`
	DefaultCurrency         string    `json:"default_currency" db:"default_currency"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

// UsesExternalAccounting reports whether approved reports go to an outside accountant
func (o *Organization) UsesExternalAccounting() bool {
	return o.AccountingType == AccountingExternal && o.ExternalAccountingEmail != nil && *o.ExternalAccountingEmail != ""
}
