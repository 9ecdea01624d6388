package models

import "fmt"

// Role is the stable key of a store role.
type Role string

// Store roles
const (
	RoleStoreManager    Role = "store_manager"
	RoleSalesConsultant Role = "sales_consultant"
	RoleRunner          Role = "runner"
)

// AllRoles lists every known role.
var AllRoles = []Role{RoleStoreManager, RoleSalesConsultant, RoleRunner}

// WorkerRoles are the roles that claim and execute tasks.
var WorkerRoles = []Role{RoleSalesConsultant, RoleRunner}

var roleDisplayNames = map[Role]string{
	RoleStoreManager:    "Mağaza Müdürü",
	RoleSalesConsultant: "Satış Danışmanı",
	RoleRunner:          "Runner",
}

// ParseRole accepts either the role key or its display name.
func ParseRole(s string) (Role, error) {
	folded := foldLabel(s)
	for _, r := range AllRoles {
		if folded == foldLabel(string(r)) || folded == foldLabel(roleDisplayNames[r]) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// DisplayName returns the name shown to store staff.
func (r Role) DisplayName() string {
	if n, ok := roleDisplayNames[r]; ok {
		return n
	}
	return string(r)
}

// Valid reports whether r is a registered role key.
func (r Role) Valid() bool {
	_, ok := roleDisplayNames[r]
	return ok
}
