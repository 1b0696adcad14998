package hierarchy

import (
	"errors"
	"testing"

	"fleet-service/internal/model"
)

// mapDirectory is an in-memory Directory keyed by parent email.
type mapDirectory map[string][]string

func (d mapDirectory) ChildrenOf(parents []string) ([]string, error) {
	var out []string
	for _, p := range parents {
		out = append(out, d[p]...)
	}
	return out, nil
}

func TestCanCreateRole(t *testing.T) {
	allowed := map[string][]string{
		model.RoleSuperAdmin:  {model.RoleDistributor, model.RoleAdmin, model.RoleCustomer, model.RoleDriver},
		model.RoleDistributor: {model.RoleAdmin, model.RoleCustomer, model.RoleDriver},
		model.RoleAdmin:       {model.RoleCustomer, model.RoleDriver},
		model.RoleCustomer:    {},
		model.RoleDriver:      {},
	}

	roles := []string{model.RoleSuperAdmin, model.RoleDistributor, model.RoleAdmin, model.RoleCustomer, model.RoleDriver}
	for creator, targets := range allowed {
		set := map[string]bool{}
		for _, r := range targets {
			set[r] = true
		}
		for _, target := range roles {
			got := CanCreateRole(creator, target)
			if got != set[target] {
				t.Errorf("CanCreateRole(%s, %s) = %v, want %v", creator, target, got, set[target])
			}
		}
	}

	if CanCreateRole("Intruder", model.RoleDriver) {
		t.Error("unknown creator role should not create anything")
	}
	if CanCreateRole(model.RoleSuperAdmin, model.RoleSuperAdmin) {
		t.Error("SuperAdmin accounts are never created through the API")
	}
}

func TestUserHierarchy(t *testing.T) {
	dir := mapDirectory{
		"root@acme.mx":  {"dist@acme.mx"},
		"dist@acme.mx":  {"admin@acme.mx", "admin2@acme.mx"},
		"admin@acme.mx": {"driver@acme.mx", "customer@acme.mx"},
	}

	got, err := UserHierarchy(dir, "root@acme.mx")
	if err != nil {
		t.Fatalf("UserHierarchy: %v", err)
	}

	want := []string{"root@acme.mx", "dist@acme.mx", "admin@acme.mx", "admin2@acme.mx", "driver@acme.mx", "customer@acme.mx"}
	if len(got) != len(want) {
		t.Fatalf("hierarchy = %v, want %v", got, want)
	}
	if got[0] != "root@acme.mx" {
		t.Errorf("hierarchy must start with the root, got %q", got[0])
	}
	seen := map[string]int{}
	for _, email := range got {
		seen[email]++
	}
	for _, email := range want {
		if seen[email] != 1 {
			t.Errorf("email %q appears %d times, want exactly once", email, seen[email])
		}
	}
}

func TestUserHierarchyTerminatesOnCycle(t *testing.T) {
	// Corrupt data: a is b's parent and b is a's parent.
	dir := mapDirectory{
		"a@acme.mx": {"b@acme.mx"},
		"b@acme.mx": {"a@acme.mx"},
	}

	got, err := UserHierarchy(dir, "a@acme.mx")
	if err != nil {
		t.Fatalf("UserHierarchy: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("hierarchy = %v, want the two distinct emails", got)
	}
	for i, email := range got[1:] {
		if email == "a@acme.mx" {
			t.Errorf("root reappears at position %d", i+1)
		}
	}
}

func TestValidateNoCircularReference(t *testing.T) {
	// A -> B -> C: A is an ancestor of C.
	dir := mapDirectory{
		"a@acme.mx": {"b@acme.mx"},
		"b@acme.mx": {"c@acme.mx"},
	}

	// Setting C (a descendant) as A's superior must fail.
	if err := ValidateNoCircularReference(dir, "c@acme.mx", "a@acme.mx"); !errors.Is(err, ErrCircularReference) {
		t.Errorf("expected ErrCircularReference, got %v", err)
	}

	// Reparenting C under B is fine.
	if err := ValidateNoCircularReference(dir, "b@acme.mx", "c@acme.mx"); err != nil {
		t.Errorf("valid reparent rejected: %v", err)
	}

	// No superior means nothing to validate.
	if err := ValidateNoCircularReference(dir, "", "a@acme.mx"); err != nil {
		t.Errorf("empty superior rejected: %v", err)
	}
}

func TestScopeOf(t *testing.T) {
	cases := []struct {
		role string
		want Scope
	}{
		{model.RoleSuperAdmin, ScopeAll},
		{model.RoleDistributor, ScopeHierarchical},
		{model.RoleAdmin, ScopeDirect},
		{model.RoleCustomer, ScopeSelf},
		{model.RoleDriver, ScopeSelf},
	}
	for _, tc := range cases {
		got, err := ScopeOf(tc.role)
		if err != nil {
			t.Errorf("ScopeOf(%s): %v", tc.role, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ScopeOf(%s) = %s, want %s", tc.role, got, tc.want)
		}
	}

	if _, err := ScopeOf("Intruder"); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("expected ErrUnknownRole, got %v", err)
	}
}
