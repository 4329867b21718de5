// Package permissions maps TravelFlow roles to permission strings and checks
// granted permissions against required ones with wildcard support.
//
// Permission format:
//   - "*" - full access
//   - "resource.*" - every action on a resource (e.g. "policy.*")
//   - "resource.action" - a single action (e.g. "travel.approve")
package permissions

import (
	"sort"
	"strings"
)

// Roles
const (
	RoleAdmin             = "admin"
	RoleOrgAdmin          = "org_admin"
	RoleManager           = "manager"
	RoleAccountingManager = "accounting_manager"
	RoleUser              = "user"
)

// Permissions
const (
	TravelOwn     = "travel.own"
	TravelRead    = "travel.read"
	TravelApprove = "travel.approve"

	ReportsOwn     = "reports.own"
	ReportsRead    = "reports.read"
	ReportsApprove = "reports.approve"
	ReportsRates   = "reports.rates"

	OrgRead     = "org.read"
	OrgSettings = "org.settings"

	UsersRead  = "users.read"
	UsersWrite = "users.write"
	UsersRoles = "users.roles"

	InvitationsCreate = "invitations.create"
	InvitationsRead   = "invitations.read"
	InvitationsDelete = "invitations.delete"

	PolicyRead  = "policy.read"
	PolicyWrite = "policy.write"

	ChainsRead  = "chains.read"
	ChainsWrite = "chains.write"

	AuditRead = "audit.read"

	ProfileRead   = "profile.read"
	ProfileUpdate = "profile.update"
)

var baseUser = []string{TravelOwn, ReportsOwn, OrgRead, PolicyRead, "profile.*"}

// RolePermissions is the single source of truth for what each role may do.
var RolePermissions = map[string][]string{
	RoleUser:    baseUser,
	RoleManager: MergePermissions(baseUser, []string{TravelApprove, ReportsApprove, UsersRead}),
	RoleAccountingManager: MergePermissions(baseUser, []string{
		"reports.*", TravelRead, UsersRead,
	}),
	RoleOrgAdmin: MergePermissions(baseUser, []string{
		"org.*", "users.*", "invitations.*", "policy.*", "chains.*",
		AuditRead, TravelRead, ReportsRead,
	}),
	RoleAdmin: {"*"},
}

// ValidRoles lists every assignable role.
var ValidRoles = []string{RoleAdmin, RoleOrgAdmin, RoleManager, RoleAccountingManager, RoleUser}

// IsValidRole reports whether role is one of ValidRoles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// ForRoles returns the merged, sorted permission set of the given roles.
func ForRoles(roles []string) []string {
	sets := make([][]string, 0, len(roles))
	for _, role := range roles {
		sets = append(sets, RolePermissions[role])
	}
	merged := MergePermissions(sets...)
	sort.Strings(merged)
	return merged
}

// HasPermission checks if the granted permissions include the required one.
// "*" matches everything and "policy.*" matches "policy.write".
func HasPermission(userPerms []string, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range userPerms {
		if p == "*" || p == required {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission checks if the user has any of the required permissions.
func HasAnyPermission(userPerms []string, required []string) bool {
	for _, req := range required {
		if HasPermission(userPerms, req) {
			return true
		}
	}
	return false
}

// HasAllPermissions checks if the user has all of the required permissions.
func HasAllPermissions(userPerms []string, required []string) bool {
	for _, req := range required {
		if !HasPermission(userPerms, req) {
			return false
		}
	}
	return true
}

// MergePermissions merges permission sets, removing duplicates.
func MergePermissions(sets ...[]string) []string {
	seen := make(map[string]bool)
	var result []string

	for _, set := range sets {
		for _, p := range set {
			if !seen[p] {
				seen[p] = true
				result = append(result, p)
			}
		}
	}

	return result
}
