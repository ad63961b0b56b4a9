package community

import (
	"fmt"

	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// LadderStep is one tier of the role ladder.
type LadderStep struct {
	// Role is the platform role granted at this tier.
	Role shared.RoleID

	// Threshold is the cumulative XP required for this tier.
	Threshold shared.XP
}

// Ladder is the ascending ordered list of (role, threshold) tiers. Thresholds
// are strictly increasing, role IDs unique; Threshold[0] may be 0.
type Ladder []LadderStep

// Validate checks the ladder invariants.
func (l Ladder) Validate() error {
	seen := make(map[shared.RoleID]struct{}, len(l))
	for i, step := range l {
		if !step.Role.IsValid() {
			return shared.NewDomainError("community", "Validate", shared.ErrInvalidLadder,
				fmt.Sprintf("step %d: invalid role id", i))
		}
		if step.Threshold < 0 {
			return shared.NewDomainError("community", "Validate", shared.ErrInvalidLadder,
				fmt.Sprintf("step %d: negative threshold", i))
		}
		if i > 0 && step.Threshold <= l[i-1].Threshold {
			return shared.NewDomainError("community", "Validate", shared.ErrInvalidLadder,
				fmt.Sprintf("step %d: thresholds must be strictly increasing", i))
		}
		if _, dup := seen[step.Role]; dup {
			return shared.NewDomainError("community", "Validate", shared.ErrInvalidLadder,
				fmt.Sprintf("step %d: duplicate role %d", i, step.Role))
		}
		seen[step.Role] = struct{}{}
	}
	return nil
}

// Contains reports whether role belongs to the ladder.
func (l Ladder) Contains(role shared.RoleID) bool {
	for _, step := range l {
		if step.Role == role {
			return true
		}
	}
	return false
}

// TierFor returns the highest step whose threshold does not exceed xp
// (largest lower bound). ok is false when no threshold is met.
// xp must be non-negative; callers validate input first.
func (l Ladder) TierFor(xp shared.XP) (LadderStep, bool) {
	// Ladders are small; a linear scan over the sorted steps is enough.
	var (
		best  LadderStep
		found bool
	)
	for _, step := range l {
		if step.Threshold > xp {
			break
		}
		best = step
		found = true
	}
	return best, found
}

// RoleDelta is the minimal role mutation converging a member to the correct
// tier: remove the listed roles, then add the listed ones.
type RoleDelta struct {
	Add    []shared.RoleID
	Remove []shared.RoleID
}

// Empty reports whether the delta changes nothing.
func (d RoleDelta) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// PlanConvergence computes the role delta that converges the held ladder
// roles to the tier for xp. A member holds at most one ladder role after the
// delta is applied; reapplying with unchanged xp yields an empty delta.
// Held roles outside the ladder are never touched. When no threshold is met,
// no change is emitted.
func (l Ladder) PlanConvergence(xp shared.XP, held []shared.RoleID) (RoleDelta, error) {
	if !xp.IsValid() {
		return RoleDelta{}, shared.NewDomainError("community", "PlanConvergence", shared.ErrInvalidInput,
			"xp cannot be negative")
	}

	target, ok := l.TierFor(xp)
	if !ok {
		return RoleDelta{}, nil
	}

	var delta RoleDelta
	holdsTarget := false
	for _, role := range held {
		if !l.Contains(role) {
			continue
		}
		if role == target.Role {
			holdsTarget = true
			continue
		}
		delta.Remove = append(delta.Remove, role)
	}
	if !holdsTarget {
		delta.Add = append(delta.Add, target.Role)
	}
	return delta, nil
}
