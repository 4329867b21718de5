// Package violation compares a travel request against the travel policy.
// Detection is pure: it reads a request and a rule set and returns the
// violations without touching storage.
package violation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	policydomain "github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/domain"
)

// Categories used by restriction violations, which are not tied to a cost
// category
const (
	CategoryDestination = "destination"
	CategoryDuration    = "duration"
	CategoryAdvance     = "advance_booking"
)

var hundred = decimal.NewFromInt(100)

// Overage returns requested - limit and that difference as a percentage of
// limit rounded to two decimals. A zero limit counts as a 100% overage.
func Overage(requested, limit decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	over := requested.Sub(limit)
	if limit.IsZero() {
		return over, hundred
	}
	return over, over.Div(limit).Mul(hundred).Round(2)
}

// Detect returns the violations of req against set. today anchors the
// minimum advance booking check. Limits in a currency other than the
// request's are not compared; callers convert them first.
func Detect(req *domain.TravelRequest, set *policydomain.RuleSet, today time.Time) []*domain.Violation {
	violations := make([]*domain.Violation, 0)
	if set == nil {
		return violations
	}

	totals := req.CategoryTotals()
	nights, days := req.Nights(), req.Days()

	for _, category := range policydomain.Categories {
		requested := totals[category]
		rule := set.Rule(category)
		if rule == nil || !requested.IsPositive() || !sameCurrency(rule.Currency, req.Currency) {
			continue
		}

		limit := rule.LimitFor(nights, days)
		if !requested.GreaterThan(limit) {
			continue
		}

		over, pct := Overage(requested, limit)
		violations = append(violations, &domain.Violation{
			TravelRequestID:   req.ID,
			Category:          category,
			ViolationType:     domain.ViolationAmountLimit,
			RequestedAmount:   requested,
			LimitAmount:       limit,
			OverageAmount:     over,
			OveragePercentage: pct,
			Message: fmt.Sprintf("%s of %s %s exceeds the limit of %s by %s (%s%%)",
				category, requested.StringFixed(2), req.Currency, limit.StringFixed(2), over.StringFixed(2), pct.StringFixed(2)),
		})
	}

	for _, r := range set.Restrictions {
		if v := checkRestriction(req, r, days, today); v != nil {
			violations = append(violations, v)
		}
	}

	for _, c := range set.CustomRules {
		if v := checkCustomRule(req, c, totals); v != nil {
			violations = append(violations, v)
		}
	}

	return violations
}

func checkRestriction(req *domain.TravelRequest, r *policydomain.Restriction, days int, today time.Time) *domain.Violation {
	switch r.RestrictionType {
	case policydomain.RestrictionBlockedDestination:
		if r.Value == "" || !strings.Contains(strings.ToLower(req.Destination), strings.ToLower(r.Value)) {
			return nil
		}
		return &domain.Violation{
			TravelRequestID: req.ID,
			Category:        CategoryDestination,
			ViolationType:   domain.ViolationRestriction,
			Message:         fmt.Sprintf("travel to %s is not allowed", r.Value),
		}

	case policydomain.RestrictionMaxTripDays:
		max, err := strconv.Atoi(r.Value)
		if err != nil || days <= max {
			return nil
		}
		requested, limit := decimal.NewFromInt(int64(days)), decimal.NewFromInt(int64(max))
		over, pct := Overage(requested, limit)
		return &domain.Violation{
			TravelRequestID:   req.ID,
			Category:          CategoryDuration,
			ViolationType:     domain.ViolationRestriction,
			RequestedAmount:   requested,
			LimitAmount:       limit,
			OverageAmount:     over,
			OveragePercentage: pct,
			Message:           fmt.Sprintf("trip of %d days exceeds the maximum of %d days", days, max),
		}

	case policydomain.RestrictionMinAdvanceDays:
		min, err := strconv.Atoi(r.Value)
		if err != nil {
			return nil
		}
		advance := int(dateOnly(req.StartDate).Sub(dateOnly(today)).Hours() / 24)
		if advance >= min {
			return nil
		}
		return &domain.Violation{
			TravelRequestID: req.ID,
			Category:        CategoryAdvance,
			ViolationType:   domain.ViolationRestriction,
			RequestedAmount: decimal.NewFromInt(int64(advance)),
			LimitAmount:     decimal.NewFromInt(int64(min)),
			OverageAmount:   decimal.NewFromInt(int64(min - advance)),
			Message:         fmt.Sprintf("trip starts in %d days, at least %d days notice is required", advance, min),
		}
	}
	return nil
}

func checkCustomRule(req *domain.TravelRequest, c *policydomain.CustomRule, totals domain.Amounts) *domain.Violation {
	if c.DestinationContains != nil &&
		!strings.Contains(strings.ToLower(req.Destination), strings.ToLower(*c.DestinationContains)) {
		return nil
	}

	requested := totals[c.Category]
	if c.Category == policydomain.CategoryTotal {
		requested = totals.Total()
	}
	if !requested.GreaterThan(c.MaxAmount) {
		return nil
	}

	over, pct := Overage(requested, c.MaxAmount)
	return &domain.Violation{
		TravelRequestID:   req.ID,
		Category:          c.Category,
		ViolationType:     domain.ViolationCustomRule,
		RequestedAmount:   requested,
		LimitAmount:       c.MaxAmount,
		OverageAmount:     over,
		OveragePercentage: pct,
		Message:           fmt.Sprintf("%s: %s exceeds %s", c.Name, requested.StringFixed(2), c.MaxAmount.StringFixed(2)),
	}
}

// Carry copies explanations from previous violations onto detected ones
// that describe the same problem
func Carry(previous, detected []*domain.Violation) {
	explained := make(map[string]*string, len(previous))
	for _, v := range previous {
		if v.IsExplained() {
			explained[v.Key()] = v.Explanation
		}
	}
	for _, v := range detected {
		if e, ok := explained[v.Key()]; ok {
			text := *e
			v.Explanation = &text
		}
	}
}

// Unexplained returns the violations still lacking an explanation
func Unexplained(violations []*domain.Violation) []*domain.Violation {
	out := make([]*domain.Violation, 0)
	for _, v := range violations {
		if !v.IsExplained() {
			out = append(out, v)
		}
	}
	return out
}

func sameCurrency(a, b string) bool {
	return a == "" || b == "" || strings.EqualFold(a, b)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
