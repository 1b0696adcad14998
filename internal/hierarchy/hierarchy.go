// Package hierarchy implements the role permission matrix and the
// visibility scopes computed over the superior-account tree.
package hierarchy

import (
	"errors"

	"fleet-service/internal/model"
)

// ErrCircularReference is returned when a proposed superior is already a
// descendant of the account being (re)parented.
var ErrCircularReference = errors.New("circular reference in account hierarchy")

// ErrUnknownRole is returned when a user carries a role outside the matrix.
var ErrUnknownRole = errors.New("unknown role")

// Scope is the visibility class a role grants over other users.
type Scope string

const (
	ScopeAll          Scope = "all"          // unrestricted
	ScopeHierarchical Scope = "hierarchical" // full descendant tree
	ScopeDirect       Scope = "direct"       // direct children plus self
	ScopeSelf         Scope = "self"         // own record only
)

type rolePermission struct {
	canCreate []string
	scope     Scope
}

// rolePermissions maps each role to what it may create and what it may
// see. Creation and visibility are deliberately independent tables.
var rolePermissions = map[string]rolePermission{
	model.RoleSuperAdmin: {
		canCreate: []string{model.RoleDistributor, model.RoleAdmin, model.RoleCustomer, model.RoleDriver},
		scope:     ScopeAll,
	},
	model.RoleDistributor: {
		canCreate: []string{model.RoleAdmin, model.RoleCustomer, model.RoleDriver},
		scope:     ScopeHierarchical,
	},
	model.RoleAdmin: {
		canCreate: []string{model.RoleCustomer, model.RoleDriver},
		scope:     ScopeDirect,
	},
	model.RoleCustomer: {
		canCreate: []string{},
		scope:     ScopeSelf,
	},
	model.RoleDriver: {
		canCreate: []string{},
		scope:     ScopeSelf,
	},
}

// CanCreateRole reports whether creatorRole may create accounts of
// targetRole. Unknown roles may create nothing.
func CanCreateRole(creatorRole, targetRole string) bool {
	perm, ok := rolePermissions[creatorRole]
	if !ok {
		return false
	}
	for _, allowed := range perm.canCreate {
		if allowed == targetRole {
			return true
		}
	}
	return false
}

// AllowedRoles returns the roles creatorRole may create.
func AllowedRoles(creatorRole string) []string {
	return rolePermissions[creatorRole].canCreate
}

// ScopeOf returns the visibility scope granted by a role.
func ScopeOf(role string) (Scope, error) {
	perm, ok := rolePermissions[role]
	if !ok {
		return "", ErrUnknownRole
	}
	return perm.scope, nil
}

// Directory resolves parent->children edges of the account tree. It is
// the only persistence the traversal needs, so tests can supply a map.
type Directory interface {
	// ChildrenOf returns the emails of all users whose superior_account
	// is one of the given parent emails.
	ChildrenOf(parents []string) ([]string, error)
}

// UserHierarchy walks the descendant tree below rootEmail breadth first,
// one directory query per level. The result starts with rootEmail and
// contains each email at most once; the visited set terminates the walk
// even if corrupt data contains a cycle.
func UserHierarchy(dir Directory, rootEmail string) ([]string, error) {
	hierarchy := []string{rootEmail}
	visited := map[string]bool{rootEmail: true}

	frontier := []string{rootEmail}
	for len(frontier) > 0 {
		children, err := dir.ChildrenOf(frontier)
		if err != nil {
			return nil, err
		}

		next := make([]string, 0, len(children))
		for _, child := range children {
			if visited[child] {
				continue
			}
			visited[child] = true
			hierarchy = append(hierarchy, child)
			next = append(next, child)
		}
		frontier = next
	}

	return hierarchy, nil
}

// ValidateNoCircularReference fails with ErrCircularReference when
// superiorEmail sits in targetEmail's descendant tree, i.e. the proposed
// parent is actually below the account being parented. Callers must
// invoke this before persisting a new or changed superior_account; it is
// not enforced automatically.
func ValidateNoCircularReference(dir Directory, superiorEmail, targetEmail string) error {
	if superiorEmail == "" {
		return nil
	}

	descendants, err := UserHierarchy(dir, targetEmail)
	if err != nil {
		return err
	}
	for _, email := range descendants {
		if email == superiorEmail {
			return ErrCircularReference
		}
	}
	return nil
}
