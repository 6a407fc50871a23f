// Package rbac models the authenticated principal and its authorities.
//
// Authorities come in two classes: role-derived (coarse, prefixed with
// "ROLE_") and permission-derived (fine-grained dotted scopes such as
// "tenants.write", supporting trailing wildcards like "tenants.*"). Tenant
// tokens produce only role authorities; platform-admin tokens produce both.
package rbac

import "strings"

// RolePrefix marks role-derived authorities, distinguishing them from
// fine-grained permissions in a single authority list.
const RolePrefix = "ROLE_"

const wildcard = "*"

// Principal is an authenticated caller with a known set of authorities.
type Principal struct {
	Subject     string
	Authorities []string
}

// RoleAuthority converts a role name to its authority form.
func RoleAuthority(role string) string {
	return RolePrefix + role
}

// NewPrincipal builds a principal from role and permission claims.
func NewPrincipal(subject string, roles, permissions []string) Principal {
	authorities := make([]string, 0, len(roles)+len(permissions))
	for _, role := range roles {
		authorities = append(authorities, RoleAuthority(role))
	}
	authorities = append(authorities, permissions...)
	return Principal{Subject: subject, Authorities: authorities}
}

// HasRole reports whether the principal carries the role-derived authority.
func (p Principal) HasRole(role string) bool {
	target := RoleAuthority(role)
	for _, a := range p.Authorities {
		if a == target {
			return true
		}
	}
	return false
}

// HasPermission reports whether any permission-derived authority grants the
// requested permission, honoring wildcards: "*" grants everything and
// "tenants.*" grants any permission under the tenants namespace.
func (p Principal) HasPermission(permission string) bool {
	for _, a := range p.Authorities {
		if strings.HasPrefix(a, RolePrefix) {
			continue
		}
		if permissionMatches(permission, a) {
			return true
		}
	}
	return false
}

func permissionMatches(permission, granted string) bool {
	if permission == granted || granted == wildcard {
		return true
	}

	if strings.HasSuffix(granted, wildcard) {
		prefix := strings.TrimSuffix(granted, wildcard)
		// "tenants.*" must not match "tenants" itself, only children.
		return prefix != "" && strings.HasPrefix(permission, prefix)
	}

	return false
}
