package groups

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/groupstage/draw-backend/internal/models"
	"github.com/groupstage/draw-backend/internal/plan"
)

var errStore = errors.New("store blew up")

// fakeStore keeps teams in memory with commit-on-success transactions, so a
// failed transaction leaves the committed state untouched.
type fakeStore struct {
	tournament models.Tournament
	teams      []models.Team
	failWrite  int // fail the nth SetGroupLetter inside a transaction, 0 = never
}

func (f *fakeStore) TournamentBySlug(_ context.Context, slug string) (models.Tournament, error) {
	if slug != f.tournament.Slug {
		return models.Tournament{}, ErrTournamentNotFound
	}
	return f.tournament, nil
}

func (f *fakeStore) TeamsByTournament(_ context.Context, tournamentID uint) ([]models.Team, error) {
	out := make([]models.Team, 0, len(f.teams))
	for _, team := range f.teams {
		if team.TournamentID == tournamentID {
			out = append(out, team)
		}
	}
	slices.SortFunc(out, func(a, b models.Team) int { return int(a.ID) - int(b.ID) })
	return out, nil
}

func (f *fakeStore) InTx(_ context.Context, fn func(tx TeamWriter) error) error {
	w := &fakeWriter{teams: slices.Clone(f.teams), failWrite: f.failWrite}
	if err := fn(w); err != nil {
		return err // rolled back, committed teams untouched
	}
	f.teams = w.teams
	return nil
}

type fakeWriter struct {
	teams     []models.Team
	failWrite int
	writes    int
}

func (w *fakeWriter) ClearGroupLetters(tournamentID uint) error {
	for i := range w.teams {
		if w.teams[i].TournamentID == tournamentID {
			w.teams[i].GroupLetter = ""
		}
	}
	return nil
}

func (w *fakeWriter) SetGroupLetter(tournamentID, teamID uint, letter string) error {
	w.writes++
	if w.failWrite > 0 && w.writes >= w.failWrite {
		return errStore
	}
	for i := range w.teams {
		if w.teams[i].ID == teamID && w.teams[i].TournamentID == tournamentID {
			w.teams[i].GroupLetter = letter
		}
	}
	return nil
}

type fakeNotifier struct{ events []Event }

func (n *fakeNotifier) Publish(_ string, event Event) { n.events = append(n.events, event) }

func newTestService(teams []models.Team, plans plan.Source) (*Service, *fakeStore, *fakeNotifier) {
	st := &fakeStore{
		tournament: models.Tournament{ID: 1, Slug: "bcup-s1", Name: "B Cup Season 1"},
		teams:      teams,
	}
	if plans == nil {
		plans = plan.None{}
	}
	n := &fakeNotifier{}
	return NewService(st, plans, n, zap.NewNop()), st, n
}

func makeTeams(ids ...uint) []models.Team {
	teams := make([]models.Team, len(ids))
	for i, id := range ids {
		teams[i] = models.Team{ID: id, TournamentID: 1, Name: fmt.Sprintf("Team %d", id)}
	}
	return teams
}

func lettersByID(teams []models.Team) map[uint]string {
	out := make(map[uint]string, len(teams))
	for _, team := range teams {
		out[team.ID] = team.GroupLetter
	}
	return out
}

// spread is max minus min per-letter count across the full letter set.
func spread(teams []models.Team, letters []string) int {
	counts := make(map[string]int, len(letters))
	for _, team := range teams {
		if team.GroupLetter != "" {
			counts[team.GroupLetter]++
		}
	}
	lo, hi := int(^uint(0)>>1), 0
	for _, l := range letters {
		if counts[l] < lo {
			lo = counts[l]
		}
		if counts[l] > hi {
			hi = counts[l]
		}
	}
	return hi - lo
}

func TestDraw_EveryTeamGetsExactlyOneLetterInSet(t *testing.T) {
	for _, method := range []DrawMethod{MethodRoundRobin, MethodRandom} {
		t.Run(string(method), func(t *testing.T) {
			svc, st, n := newTestService(makeTeams(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), nil)

			count, err := svc.Draw(context.Background(), "bcup-s1", 4, method)
			require.NoError(t, err)
			require.Equal(t, 4, count)

			letters := letterSet(4)
			for _, team := range st.teams {
				require.Contains(t, letters, team.GroupLetter, "team %d", team.ID)
			}
			require.LessOrEqual(t, spread(st.teams, letters), 1, "draw must balance group sizes")

			require.Len(t, n.events, 1)
			require.Equal(t, Event{Slug: "bcup-s1", GroupsCount: 4}, n.events[0])
		})
	}
}

func TestDraw_RandomMethodIsDeterministic(t *testing.T) {
	svc1, st1, _ := newTestService(makeTeams(1, 2, 3, 4, 5, 6, 7, 8), nil)
	svc2, st2, _ := newTestService(makeTeams(1, 2, 3, 4, 5, 6, 7, 8), nil)

	_, err := svc1.Draw(context.Background(), "bcup-s1", 3, MethodRandom)
	require.NoError(t, err)
	_, err = svc2.Draw(context.Background(), "bcup-s1", 3, MethodRandom)
	require.NoError(t, err)

	require.Equal(t, lettersByID(st1.teams), lettersByID(st2.teams),
		"same slug and teams must draw identically")
}

func TestDraw_OverwritesPreviousAssignment(t *testing.T) {
	teams := makeTeams(1, 2, 3, 4)
	teams[0].GroupLetter = "Z" // stale letter from some earlier draw
	svc, st, _ := newTestService(teams, nil)

	_, err := svc.Draw(context.Background(), "bcup-s1", 2, MethodRoundRobin)
	require.NoError(t, err)

	for _, team := range st.teams {
		require.Contains(t, letterSet(2), team.GroupLetter)
	}
}

func TestDraw_Validation(t *testing.T) {
	cases := []struct {
		name    string
		slug    string
		count   int
		teams   []models.Team
		wantErr error
	}{
		{name: "unknown slug", slug: "no-such-slug", count: 4, teams: makeTeams(1), wantErr: ErrTournamentNotFound},
		{name: "count too low", slug: "bcup-s1", count: 1, teams: makeTeams(1), wantErr: ErrInvalidGroupsCount},
		{name: "count too high", slug: "bcup-s1", count: 27, teams: makeTeams(1), wantErr: ErrInvalidGroupsCount},
		{name: "no teams", slug: "bcup-s1", count: 4, teams: nil, wantErr: ErrNoTeams},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, n := newTestService(tc.teams, nil)
			_, err := svc.Draw(context.Background(), tc.slug, tc.count, MethodRoundRobin)
			require.ErrorIs(t, err, tc.wantErr)
			require.Empty(t, n.events, "failed draw must not notify")
		})
	}
}

func TestDraw_ManualPlanPinsMappedTeams(t *testing.T) {
	plans := plan.Static{
		"bcup-s1": {
			Groups: map[uint]string{
				78:  "A",
				82:  "B",
				86:  "E", // outside a 4-group set, ignored
				999: "C", // not in this tournament, ignored
			},
		},
	}
	svc, st, _ := newTestService(makeTeams(78, 82, 86, 90, 94, 98), plans)

	_, err := svc.Draw(context.Background(), "bcup-s1", 4, MethodRoundRobin)
	require.NoError(t, err)

	byID := lettersByID(st.teams)
	require.Equal(t, "A", byID[78])
	require.Equal(t, "B", byID[82])
	for _, team := range st.teams {
		require.Contains(t, letterSet(4), team.GroupLetter, "team %d", team.ID)
	}
}

func TestDraw_StoreFailureRollsBackEverything(t *testing.T) {
	teams := makeTeams(1, 2, 3, 4)
	for i := range teams {
		teams[i].GroupLetter = "A" // pre-existing assignment that must survive
	}
	svc, st, n := newTestService(teams, nil)
	st.failWrite = 3

	_, err := svc.Draw(context.Background(), "bcup-s1", 2, MethodRoundRobin)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidGroupsCount)

	for _, team := range st.teams {
		require.Equal(t, "A", team.GroupLetter, "rollback must restore team %d", team.ID)
	}
	require.Empty(t, n.events)
}

func TestReset_ClearsLettersKeepsTeams(t *testing.T) {
	teams := makeTeams(1, 2, 3)
	for i := range teams {
		teams[i].GroupLetter = string(rune('A' + i))
	}
	svc, st, n := newTestService(teams, nil)

	require.NoError(t, svc.Reset(context.Background(), "bcup-s1"))

	for _, team := range st.teams {
		require.Empty(t, team.GroupLetter)
	}

	g, err := svc.List(context.Background(), "bcup-s1")
	require.NoError(t, err)
	require.Empty(t, g.Groups)
	require.Equal(t, 3, g.TotalTeams)

	require.Len(t, n.events, 1)
	require.Equal(t, Event{Slug: "bcup-s1", Reset: true}, n.events[0])
}

func TestReset_IdempotentOnUnassignedTeams(t *testing.T) {
	svc, _, _ := newTestService(makeTeams(1, 2), nil)
	require.NoError(t, svc.Reset(context.Background(), "bcup-s1"))
	require.NoError(t, svc.Reset(context.Background(), "bcup-s1"))
}

func TestList_DropsUnassignedTeams(t *testing.T) {
	teams := makeTeams(1, 2, 3, 4)
	teams[0].GroupLetter = "A"
	teams[2].GroupLetter = "A"
	teams[3].GroupLetter = "B"
	svc, _, _ := newTestService(teams, nil)

	g, err := svc.List(context.Background(), "bcup-s1")
	require.NoError(t, err)
	require.Equal(t, 4, g.TotalTeams)
	require.Len(t, g.Groups, 2)
	require.Len(t, g.Groups["A"], 2)
	require.Len(t, g.Groups["B"], 1)
}

func TestList_UnknownSlug(t *testing.T) {
	svc, _, _ := newTestService(makeTeams(1), nil)
	_, err := svc.List(context.Background(), "no-such-slug")
	require.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestAssignOne_SequentialRevealTerminatesAndStaysBalanced(t *testing.T) {
	const total = 10
	ids := make([]uint, total)
	for i := range ids {
		ids[i] = uint(i + 1)
	}
	svc, st, n := newTestService(makeTeams(ids...), nil)
	letters := letterSet(4)

	for i := 0; i < total; i++ {
		reveal, err := svc.AssignOne(context.Background(), "bcup-s1", 4)
		require.NoError(t, err)
		require.False(t, reveal.Done, "call %d", i+1)
		require.Contains(t, letters, reveal.Letter)
		require.LessOrEqual(t, spread(st.teams, letters), 1,
			"after %d reveals group sizes must differ by at most 1", i+1)
	}

	reveal, err := svc.AssignOne(context.Background(), "bcup-s1", 4)
	require.NoError(t, err)
	require.True(t, reveal.Done, "call %d must be terminal", total+1)
	require.Len(t, n.events, total, "done must not notify")
}

func TestAssignOne_RevealSequenceIsStable(t *testing.T) {
	svc1, _, n1 := newTestService(makeTeams(1, 2, 3, 4, 5, 6), nil)
	svc2, _, n2 := newTestService(makeTeams(1, 2, 3, 4, 5, 6), nil)

	for i := 0; i < 6; i++ {
		_, err := svc1.AssignOne(context.Background(), "bcup-s1", 3)
		require.NoError(t, err)
		_, err = svc2.AssignOne(context.Background(), "bcup-s1", 3)
		require.NoError(t, err)
	}
	require.Equal(t, n1.events, n2.events, "reveal order must be reproducible")
}

func TestAssignOne_ManualPlanOrder(t *testing.T) {
	plans := plan.Static{
		"bcup-s1": {
			Order:  []uint{78, 82, 86, 90},
			Groups: map[uint]string{78: "A", 82: "B", 86: "C", 90: "D"},
		},
	}
	// database row order deliberately different from plan order
	svc, _, n := newTestService(makeTeams(90, 78, 86, 82, 94, 98), plans)

	want := []Assignment{{78, "A"}, {82, "B"}, {86, "C"}, {90, "D"}}
	for i, expected := range want {
		reveal, err := svc.AssignOne(context.Background(), "bcup-s1", 4)
		require.NoError(t, err)
		require.False(t, reveal.Done)
		require.Equal(t, expected.TeamID, reveal.Team.ID, "reveal %d", i+1)
		require.Equal(t, expected.Letter, reveal.Letter, "reveal %d", i+1)

		event := n.events[i]
		require.True(t, event.Incremental)
		require.Equal(t, &Assignment{TeamID: expected.TeamID, Letter: expected.Letter}, event.LastAssigned)
	}
}

func TestAssignOne_PlanWithoutMappingUsesFirstLetter(t *testing.T) {
	plans := plan.Static{
		"bcup-s1": {Order: []uint{3}},
	}
	svc, _, _ := newTestService(makeTeams(1, 2, 3), plans)

	reveal, err := svc.AssignOne(context.Background(), "bcup-s1", 4)
	require.NoError(t, err)
	require.Equal(t, uint(3), reveal.Team.ID)
	require.Equal(t, "A", reveal.Letter)
}

func TestAssignOne_ExhaustedPlanFallsBackToLeastFilled(t *testing.T) {
	plans := plan.Static{
		"bcup-s1": {
			Order:  []uint{1, 2},
			Groups: map[uint]string{1: "B", 2: "B"},
		},
	}
	svc, st, _ := newTestService(makeTeams(1, 2, 3, 4), plans)

	for i := 0; i < 2; i++ {
		reveal, err := svc.AssignOne(context.Background(), "bcup-s1", 3)
		require.NoError(t, err)
		require.Equal(t, "B", reveal.Letter)
	}

	// plan order is spent; "A" and "C" are both empty, tie goes to "A"
	reveal, err := svc.AssignOne(context.Background(), "bcup-s1", 3)
	require.NoError(t, err)
	require.Equal(t, "A", reveal.Letter)
	require.LessOrEqual(t, spread(st.teams, letterSet(3)), 2)
}

func TestAssignOne_AllAssignedIsTerminalNoop(t *testing.T) {
	teams := makeTeams(1, 2)
	teams[0].GroupLetter = "A"
	teams[1].GroupLetter = "B"
	svc, st, n := newTestService(teams, nil)

	reveal, err := svc.AssignOne(context.Background(), "bcup-s1", 2)
	require.NoError(t, err)
	require.True(t, reveal.Done)
	require.Empty(t, n.events)
	require.Equal(t, "A", st.teams[0].GroupLetter)
	require.Equal(t, "B", st.teams[1].GroupLetter)
}

func TestAssignOne_Validation(t *testing.T) {
	svc, _, _ := newTestService(makeTeams(1), nil)

	_, err := svc.AssignOne(context.Background(), "bcup-s1", 1)
	require.ErrorIs(t, err, ErrInvalidGroupsCount)

	_, err = svc.AssignOne(context.Background(), "no-such-slug", 4)
	require.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestAssignOne_StoreFailureDoesNotNotify(t *testing.T) {
	svc, st, n := newTestService(makeTeams(1, 2, 3), nil)
	st.failWrite = 1

	_, err := svc.AssignOne(context.Background(), "bcup-s1", 2)
	require.Error(t, err)
	require.Empty(t, n.events)
	for _, team := range st.teams {
		require.Empty(t, team.GroupLetter)
	}
}
