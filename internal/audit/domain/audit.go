package domain

import (
	"encoding/json"
	"time"
)

// Entity types recorded in the policy audit log
const (
	EntityEmployeeGrade        = "employee_grade"
	EntityPolicyRule           = "policy_rule"
	EntityRestriction          = "restriction"
	EntityCustomRule           = "custom_rule"
	EntityOrganizationSettings = "organization_settings"
	EntityApprovalChain        = "approval_chain"
)

// Actions recorded in the policy audit log
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ValidEntityTypes lists every entity type the log accepts
var ValidEntityTypes = []string{
	EntityEmployeeGrade, EntityPolicyRule, EntityRestriction,
	EntityCustomRule, EntityOrganizationSettings, EntityApprovalChain,
}

// Entry is one append-only audit record
type Entry struct {
	ID             string                 `json:"id" db:"id"`
	OrganizationID string                 `json:"organization_id" db:"organization_id"`
	EntityType     string                 `json:"entity_type" db:"entity_type"`
	EntityID       string                 `json:"entity_id" db:"entity_id"`
	Action         string                 `json:"action" db:"action"`
	OldValues      map[string]interface{} `json:"old_values,omitempty" db:"-"`
	NewValues      map[string]interface{} `json:"new_values,omitempty" db:"-"`
	ActorID        *string                `json:"actor_id,omitempty" db:"actor_id"`
	ActorName      string                 `json:"actor_name" db:"actor_name"`
	CreatedAt      time.Time              `json:"created_at" db:"created_at"`
}

// Snapshot converts an entity into the JSON object stored as old or new values.
// A nil entity yields nil.
func Snapshot(v interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// Filter narrows an audit log listing
type Filter struct {
	EntityType string
	Action     string
	ActorID    string
	Search     string
	From       *time.Time
	To         *time.Time
}
