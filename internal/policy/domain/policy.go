// Package domain holds the per-organization travel policy: employee grades,
// amount limits, restrictions and custom rules.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Destination types
const (
	DestinationDomestic      = "domestic"
	DestinationInternational = "international"
)

// Expense categories a policy can limit
const (
	CategoryFlights        = "flights"
	CategoryAccommodation  = "accommodation"
	CategoryFood           = "food"
	CategoryTransportation = "transportation"
	CategoryMiscellaneous  = "miscellaneous"

	// CategoryTotal is only valid for custom rules and covers the whole trip
	CategoryTotal = "total"
)

// Categories lists the limitable categories in display order
var Categories = []string{
	CategoryFlights, CategoryAccommodation, CategoryFood, CategoryTransportation, CategoryMiscellaneous,
}

// Limit units
const (
	UnitPerTrip  = "per_trip"
	UnitPerNight = "per_night"
	UnitPerDay   = "per_day"
)

// Restriction types
const (
	RestrictionBlockedDestination = "blocked_destination"
	RestrictionMaxTripDays        = "max_trip_days"
	RestrictionMinAdvanceDays     = "min_advance_days"
)

// EmployeeGrade groups employees that share limits
type EmployeeGrade struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Level          int       `json:"level" db:"level"`
	Description    *string   `json:"description,omitempty" db:"description"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// PolicyRule caps one category for a destination type. A nil GradeID
// applies to every grade.
type PolicyRule struct {
	ID              string          `json:"id" db:"id"`
	OrganizationID  string          `json:"organization_id" db:"organization_id"`
	GradeID         *string         `json:"grade_id,omitempty" db:"grade_id"`
	DestinationType string          `json:"destination_type" db:"destination_type"`
	Category        string          `json:"category" db:"category"`
	LimitAmount     decimal.Decimal `json:"limit_amount" db:"limit_amount"`
	LimitUnit       string          `json:"limit_unit" db:"limit_unit"`
	Currency        string          `json:"currency" db:"currency"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// LimitFor scales the rule's limit to a trip of the given nights and days
func (r *PolicyRule) LimitFor(nights, days int) decimal.Decimal {
	switch r.LimitUnit {
	case UnitPerNight:
		return r.LimitAmount.Mul(decimal.NewFromInt(int64(nights)))
	case UnitPerDay:
		return r.LimitAmount.Mul(decimal.NewFromInt(int64(days)))
	default:
		return r.LimitAmount
	}
}

// Restriction forbids a kind of trip
type Restriction struct {
	ID              string    `json:"id" db:"id"`
	OrganizationID  string    `json:"organization_id" db:"organization_id"`
	GradeID         *string   `json:"grade_id,omitempty" db:"grade_id"`
	RestrictionType string    `json:"restriction_type" db:"restriction_type"`
	Value           string    `json:"value" db:"value"`
	Description     *string   `json:"description,omitempty" db:"description"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// CustomRule caps a category, or the trip total, per trip
type CustomRule struct {
	ID                  string          `json:"id" db:"id"`
	OrganizationID      string          `json:"organization_id" db:"organization_id"`
	Name                string          `json:"name" db:"name"`
	Description         *string         `json:"description,omitempty" db:"description"`
	GradeID             *string         `json:"grade_id,omitempty" db:"grade_id"`
	Category            string          `json:"category" db:"category"`
	MaxAmount           decimal.Decimal `json:"max_amount" db:"max_amount"`
	DestinationContains *string         `json:"destination_contains,omitempty" db:"destination_contains"`
	IsActive            bool            `json:"is_active" db:"is_active"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// AppliesToGrade reports whether a rule scoped to ruleGrade covers gradeID
func AppliesToGrade(ruleGrade, gradeID *string) bool {
	if ruleGrade == nil {
		return true
	}
	return gradeID != nil && *ruleGrade == *gradeID
}

// RuleSet is the active policy that applies to one requester and
// destination type
type RuleSet struct {
	Rules        map[string]*PolicyRule `json:"rules"`
	Restrictions []*Restriction         `json:"restrictions"`
	CustomRules  []*CustomRule          `json:"custom_rules"`
}

// Rule returns the limit for a category, or nil when none applies
func (s *RuleSet) Rule(category string) *PolicyRule {
	if s == nil {
		return nil
	}
	return s.Rules[category]
}

// SelectRuleSet filters active policy entries down to those applying to a
// requester of gradeID travelling to destinationType. A grade-specific rule
// wins over an all-grades rule of the same category.
func SelectRuleSet(gradeID *string, destinationType string, rules []*PolicyRule, restrictions []*Restriction, custom []*CustomRule) *RuleSet {
	set := &RuleSet{Rules: make(map[string]*PolicyRule)}

	for _, r := range rules {
		if !r.IsActive || r.DestinationType != destinationType || !AppliesToGrade(r.GradeID, gradeID) {
			continue
		}
		current, ok := set.Rules[r.Category]
		if !ok || (current.GradeID == nil && r.GradeID != nil) {
			set.Rules[r.Category] = r
		}
	}

	for _, r := range restrictions {
		if r.IsActive && AppliesToGrade(r.GradeID, gradeID) {
			set.Restrictions = append(set.Restrictions, r)
		}
	}

	for _, c := range custom {
		if c.IsActive && AppliesToGrade(c.GradeID, gradeID) {
			set.CustomRules = append(set.CustomRules, c)
		}
	}

	return set
}
