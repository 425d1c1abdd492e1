package auth

import "sort"

// Principal is an authenticated user with its resolved roles and the union
// of the permissions those roles grant.
type Principal struct {
	User        User
	Roles       map[RoleName]struct{}
	Permissions map[Permission]struct{}
}

// NewPrincipal builds a principal from loaded grants.
func NewPrincipal(user User, roles []RoleName, perms []Permission) Principal {
	p := Principal{
		User:        user,
		Roles:       make(map[RoleName]struct{}, len(roles)),
		Permissions: make(map[Permission]struct{}, len(perms)),
	}
	for _, r := range roles {
		p.Roles[r] = struct{}{}
	}
	for _, perm := range perms {
		p.Permissions[perm] = struct{}{}
	}
	return p
}

// ID returns the user id.
func (p Principal) ID() string { return p.User.ID }

// HasRole reports role membership. Never fails.
func (p Principal) HasRole(role RoleName) bool {
	_, ok := p.Roles[role]
	return ok
}

// HasPermission reports whether any held role grants perm.
func (p Principal) HasPermission(perm Permission) bool {
	_, ok := p.Permissions[perm]
	return ok
}

// CanManage is true for the owner of a record or a holder of perm.
func (p Principal) CanManage(ownerID string, perm Permission) bool {
	return (ownerID != "" && ownerID == p.User.ID) || p.HasPermission(perm)
}

// HasAnyRole reports membership in at least one of roles.
func (p Principal) HasAnyRole(roles ...RoleName) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// RoleNames returns the roles sorted by name.
func (p Principal) RoleNames() []RoleName {
	out := make([]RoleName, 0, len(p.Roles))
	for r := range p.Roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PermissionNames returns the permissions sorted by name.
func (p Principal) PermissionNames() []Permission {
	out := make([]Permission, 0, len(p.Permissions))
	for perm := range p.Permissions {
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
