package game

import (
	"math/rand"
	"testing"
)

func TestDrawRolesDistinct(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pool := DefaultRolePool()

	roles, err := drawRoles(pool, 6, rng)
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 6 {
		t.Fatalf("got %d roles, want 6", len(roles))
	}

	seen := make(map[Role]bool)
	for _, r := range roles {
		if seen[r] {
			t.Errorf("role %s drawn twice", r)
		}
		seen[r] = true
	}
}

func TestDrawRolesUndersizedPool(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	if _, err := drawRoles([]Role{RolePresident, RoleBomber}, 3, rng); err == nil {
		t.Error("drawing 3 roles from a pool of 2 should fail")
	}
}

func TestDrawRolesSubset(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pool := DefaultRolePool()

	roles, err := drawRoles(pool, 2, rng)
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 2 {
		t.Fatalf("got %d roles, want 2", len(roles))
	}
	inPool := make(map[Role]bool)
	for _, r := range pool {
		inPool[r] = true
	}
	for _, r := range roles {
		if !inPool[r] {
			t.Errorf("role %s not in the pool", r)
		}
	}
}

func TestAffiliations(t *testing.T) {
	cases := []struct {
		role Role
		want Affiliation
	}{
		{RolePresident, AffiliationBlue},
		{RoleBomber, AffiliationRed},
		{RoleSniper, AffiliationGrey},
		{RoleTarget, AffiliationGrey},
		{RoleDecoy, AffiliationGrey},
		{RoleHotPotato, AffiliationGrey},
	}
	for _, tc := range cases {
		if got := tc.role.Affiliation(); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.role, got, tc.want)
		}
	}
}
