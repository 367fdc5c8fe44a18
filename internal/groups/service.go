// Package groups implements the group letter allocation engine: bulk draws,
// resets, and the one-team-at-a-time reveal used for live draw ceremonies.
package groups

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/groupstage/draw-backend/internal/models"
	"github.com/groupstage/draw-backend/internal/plan"
	"github.com/groupstage/draw-backend/internal/shuffle"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DrawMethod selects the ordering used for a bulk draw.
type DrawMethod string

const (
	MethodRoundRobin DrawMethod = "roundRobin" // ascending team id order
	MethodRandom     DrawMethod = "random"     // seeded shuffle of team ids
)

// Grouping is the read model returned by List: assigned teams keyed by
// letter, plus the total team count including unassigned teams.
type Grouping struct {
	Groups     map[string][]models.Team `json:"groups"`
	TotalTeams int                      `json:"totalTeams"`
}

// Reveal is the outcome of AssignOne. Done is set when every team already
// has a letter; Team and Letter are only meaningful when Done is false.
type Reveal struct {
	Done   bool
	Team   models.Team
	Letter string
}

// Service runs the four allocation operations against a transactional team
// store. It keeps no state of its own and is safe behind concurrent request
// handlers, but provides no mutual exclusion across calls: two overlapping
// AssignOne calls for one tournament can pick the same team or letter.
type Service struct {
	store    Store
	plans    plan.Source
	notifier Notifier
	log      *zap.Logger
}

func NewService(store Store, plans plan.Source, notifier Notifier, log *zap.Logger) *Service {
	return &Service{store: store, plans: plans, notifier: notifier, log: log}
}

// List groups the tournament's teams by letter, dropping unassigned teams
// from the grouped result. Read-only.
func (s *Service) List(ctx context.Context, slug string) (Grouping, error) {
	t, err := s.store.TournamentBySlug(ctx, slug)
	if err != nil {
		return Grouping{}, err
	}
	teams, err := s.store.TeamsByTournament(ctx, t.ID)
	if err != nil {
		return Grouping{}, fmt.Errorf("list teams: %w", err)
	}

	g := Grouping{Groups: make(map[string][]models.Team), TotalTeams: len(teams)}
	for _, team := range teams {
		if team.GroupLetter == "" {
			continue
		}
		g.Groups[team.GroupLetter] = append(g.Groups[team.GroupLetter], team)
	}
	return g, nil
}

// Draw reassigns every team of the tournament to a group letter in one
// transaction: clear everything, honor the manual plan if one exists, then
// round-robin the rest over the letter set. Returns the confirmed count.
func (s *Service) Draw(ctx context.Context, slug string, groupsCount int, method DrawMethod) (int, error) {
	if !validGroupsCount(groupsCount) {
		return 0, ErrInvalidGroupsCount
	}
	t, err := s.store.TournamentBySlug(ctx, slug)
	if err != nil {
		return 0, err
	}
	teams, err := s.store.TeamsByTournament(ctx, t.ID)
	if err != nil {
		return 0, fmt.Errorf("load teams: %w", err)
	}
	if len(teams) == 0 {
		return 0, ErrNoTeams
	}

	letters := letterSet(groupsCount)
	ids := teamIDs(teams)

	err = s.store.InTx(ctx, func(tx TeamWriter) error {
		if err := tx.ClearGroupLetters(t.ID); err != nil {
			return err
		}
		if p, ok := s.plans.Lookup(slug); ok {
			return drawPlanned(tx, t.ID, slug, ids, p, letters)
		}
		order := ids
		if method == MethodRandom {
			order = shuffle.Deterministic(ids, shuffle.Seed(slug))
		}
		return assignRoundRobin(tx, t.ID, order, letters)
	})
	if err != nil {
		s.log.Error("draw failed", zap.String("slug", slug), zap.Error(err))
		return 0, fmt.Errorf("draw groups: %w", err)
	}

	s.notifier.Publish(slug, Event{Slug: slug, GroupsCount: groupsCount})
	return groupsCount, nil
}

// Reset clears every group letter for the tournament. Idempotent.
func (s *Service) Reset(ctx context.Context, slug string) error {
	t, err := s.store.TournamentBySlug(ctx, slug)
	if err != nil {
		return err
	}
	err = s.store.InTx(ctx, func(tx TeamWriter) error {
		return tx.ClearGroupLetters(t.ID)
	})
	if err != nil {
		s.log.Error("reset failed", zap.String("slug", slug), zap.Error(err))
		return fmt.Errorf("reset groups: %w", err)
	}

	s.notifier.Publish(slug, Event{Slug: slug, Reset: true})
	return nil
}

// AssignOne reveals the next single assignment. With a manual plan the plan
// order wins; otherwise the least-filled letter (ties broken alphabetically)
// goes to the next unassigned team in the tournament's seeded shuffle order,
// so the reveal sequence is stable across calls no matter how the rows were
// fetched. Returns Done when no unassigned teams remain.
func (s *Service) AssignOne(ctx context.Context, slug string, groupsCount int) (Reveal, error) {
	if !validGroupsCount(groupsCount) {
		return Reveal{}, ErrInvalidGroupsCount
	}
	t, err := s.store.TournamentBySlug(ctx, slug)
	if err != nil {
		return Reveal{}, err
	}
	teams, err := s.store.TeamsByTournament(ctx, t.ID)
	if err != nil {
		return Reveal{}, fmt.Errorf("load teams: %w", err)
	}

	byID := make(map[uint]models.Team, len(teams))
	unassigned := make(map[uint]bool)
	for _, team := range teams {
		byID[team.ID] = team
		if team.GroupLetter == "" {
			unassigned[team.ID] = true
		}
	}
	if len(unassigned) == 0 {
		return Reveal{Done: true}, nil
	}

	letters := letterSet(groupsCount)

	if p, ok := s.plans.Lookup(slug); ok {
		if id, letter, ok := plannedNext(p, byID, unassigned, letters); ok {
			return s.commitReveal(ctx, slug, t.ID, byID[id], letter)
		}
	}

	letter := leastFilled(teams, letters)
	for _, id := range shuffle.Deterministic(teamIDs(teams), shuffle.Seed(slug)) {
		if unassigned[id] {
			return s.commitReveal(ctx, slug, t.ID, byID[id], letter)
		}
	}
	// unreachable: unassigned is non-empty and the shuffle covers every id
	return Reveal{Done: true}, nil
}

func (s *Service) commitReveal(ctx context.Context, slug string, tournamentID uint, team models.Team, letter string) (Reveal, error) {
	err := s.store.InTx(ctx, func(tx TeamWriter) error {
		return tx.SetGroupLetter(tournamentID, team.ID, letter)
	})
	if err != nil {
		s.log.Error("assign one failed",
			zap.String("slug", slug), zap.Uint("team_id", team.ID), zap.Error(err))
		return Reveal{}, fmt.Errorf("assign group: %w", err)
	}
	team.GroupLetter = letter

	s.notifier.Publish(slug, Event{
		Slug:         slug,
		Incremental:  true,
		LastAssigned: &Assignment{TeamID: team.ID, Letter: letter},
	})
	return Reveal{Team: team, Letter: letter}, nil
}

// drawPlanned pins the plan's mapped teams to their letters, then
// round-robins the remaining teams in seeded shuffle order.
func drawPlanned(tx TeamWriter, tournamentID uint, slug string, ids []uint, p plan.Plan, letters []string) error {
	used := make(map[uint]bool)
	for _, id := range ids {
		letter, ok := p.Groups[id]
		if !ok || !slices.Contains(letters, letter) {
			continue
		}
		if err := tx.SetGroupLetter(tournamentID, id, letter); err != nil {
			return err
		}
		used[id] = true
	}

	rest := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !used[id] {
			rest = append(rest, id)
		}
	}
	order := shuffle.Deterministic(rest, shuffle.Seed(slug))
	return assignRoundRobin(tx, tournamentID, order, letters)
}

func assignRoundRobin(tx TeamWriter, tournamentID uint, order []uint, letters []string) error {
	for i, id := range order {
		if err := tx.SetGroupLetter(tournamentID, id, letters[i%len(letters)]); err != nil {
			return err
		}
	}
	return nil
}

// plannedNext selects the first plan-order id not yet assigned. That id must
// still belong to the tournament and still be unassigned, otherwise the plan
// yields nothing and the caller falls back to automatic balancing.
func plannedNext(p plan.Plan, byID map[uint]models.Team, unassigned map[uint]bool, letters []string) (uint, string, bool) {
	for _, id := range p.Order {
		if team, ok := byID[id]; ok && team.GroupLetter != "" {
			continue
		}
		if _, belongs := byID[id]; !belongs || !unassigned[id] {
			return 0, "", false
		}
		letter, ok := p.Groups[id]
		if !ok || !slices.Contains(letters, letter) {
			letter = letters[0]
		}
		return id, letter, true
	}
	return 0, "", false
}

// leastFilled picks the letter with the fewest assigned teams; the scan runs
// A→Z so ties resolve to the earliest letter.
func leastFilled(teams []models.Team, letters []string) string {
	counts := make(map[string]int, len(letters))
	for _, team := range teams {
		if team.GroupLetter != "" {
			counts[team.GroupLetter]++
		}
	}
	best := letters[0]
	for _, l := range letters[1:] {
		if counts[l] < counts[best] {
			best = l
		}
	}
	return best
}

func letterSet(groupsCount int) []string {
	letters := make([]string, groupsCount)
	for i := range letters {
		letters[i] = string(alphabet[i])
	}
	return letters
}

func validGroupsCount(n int) bool { return n >= 2 && n <= 26 }

func teamIDs(teams []models.Team) []uint {
	ids := make([]uint, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	return ids
}
