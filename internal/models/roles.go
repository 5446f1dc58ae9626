package models

import "strings"

// Roles is a bitmask of the roles a user holds.
type Roles uint8

const (
	RoleMember Roles = 1 << iota
	RoleModerator
	RoleAdministrator
)

var roleNames = []struct {
	role Roles
	name string
}{
	{RoleMember, "member"},
	{RoleModerator, "moderator"},
	{RoleAdministrator, "administrator"},
}

// Has reports whether every bit of role is set.
func (r Roles) Has(role Roles) bool {
	return role != 0 && r&role == role
}

// Add returns r with role set.
func (r Roles) Add(role Roles) Roles {
	return r | role
}

// Remove returns r with role cleared.
func (r Roles) Remove(role Roles) Roles {
	return r &^ role
}

// IsAdmin reports whether r holds the administrator role.
func (r Roles) IsAdmin() bool {
	return r.Has(RoleAdministrator)
}

// Names lists the role names set in r, lowest bit first.
func (r Roles) Names() []string {
	names := make([]string, 0, len(roleNames))
	for _, rn := range roleNames {
		if r.Has(rn.role) {
			names = append(names, rn.name)
		}
	}
	return names
}

func (r Roles) String() string {
	return strings.Join(r.Names(), ",")
}
