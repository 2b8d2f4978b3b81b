package game

import (
	"fmt"
	"math/rand"
)

// Role is a hidden identity drawn from the pool at the start of a game.
type Role string

const (
	RolePresident Role = "President"
	RoleBomber    Role = "Bomber"
	RoleSniper    Role = "Sniper"
	RoleTarget    Role = "Target"
	RoleDecoy     Role = "Decoy"
	RoleHotPotato Role = "Hot Potato"
)

// Affiliation is the team a role belongs to. Only the President and the
// Bomber anchor a team; everyone else plays grey.
type Affiliation string

const (
	AffiliationBlue Affiliation = "Blue"
	AffiliationRed  Affiliation = "Red"
	AffiliationGrey Affiliation = "Grey"
)

func (r Role) Affiliation() Affiliation {
	switch r {
	case RolePresident:
		return AffiliationBlue
	case RoleBomber:
		return AffiliationRed
	default:
		return AffiliationGrey
	}
}

// DefaultRolePool returns the six-role pool of the base game.
func DefaultRolePool() []Role {
	return []Role{
		RolePresident,
		RoleBomber,
		RoleSniper,
		RoleTarget,
		RoleDecoy,
		RoleHotPotato,
	}
}

// drawRoles picks n distinct roles from pool in random order. A pool
// smaller than n is a configuration error.
func drawRoles(pool []Role, n int, rng *rand.Rand) ([]Role, error) {
	if len(pool) < n {
		return nil, fmt.Errorf("game: role pool has %d roles for %d players", len(pool), n)
	}
	shuffled := make([]Role, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n], nil
}
