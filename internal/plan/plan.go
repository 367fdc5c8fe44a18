// Package plan holds manual override plans for draw ceremonies. A plan fixes
// the reveal order and pins specific teams to specific group letters; teams
// the plan does not mention are balanced automatically by the engine.
package plan

// Plan is the override record for one tournament. Order lists team ids in
// reveal priority; Groups pins team ids to letters. Both are advisory:
// ids outside the tournament and letters outside the active set are
// ignored by the engine.
type Plan struct {
	Order  []uint          `json:"order"`
	Groups map[uint]string `json:"groups"`
}

// Source looks up the optional manual plan for a tournament slug.
type Source interface {
	Lookup(slug string) (Plan, bool)
}

// Static serves plans from a fixed in-memory map.
type Static map[string]Plan

func (s Static) Lookup(slug string) (Plan, bool) {
	p, ok := s[slug]
	return p, ok
}

// None is a Source with no plans, used when no plans file is configured.
type None struct{}

func (None) Lookup(string) (Plan, bool) { return Plan{}, false }
