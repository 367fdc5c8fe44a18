package groups

import (
	"context"

	"github.com/groupstage/draw-backend/internal/models"
)

// Store is the slice of team persistence the engine needs. Implemented by
// internal/store against postgres; faked in tests.
type Store interface {
	// TournamentBySlug returns ErrTournamentNotFound for an unknown slug.
	TournamentBySlug(ctx context.Context, slug string) (models.Tournament, error)

	// TeamsByTournament returns every team of the tournament ordered by id.
	TeamsByTournament(ctx context.Context, tournamentID uint) ([]models.Team, error)

	// InTx runs fn inside one transaction: commit when fn returns nil,
	// roll back otherwise. Nothing fn writes is observable until commit.
	InTx(ctx context.Context, fn func(tx TeamWriter) error) error
}

// TeamWriter is the write surface available inside a transaction.
type TeamWriter interface {
	ClearGroupLetters(tournamentID uint) error
	SetGroupLetter(tournamentID, teamID uint, letter string) error
}

// Notifier pushes allocation events to connected viewers. Best effort:
// the engine never waits on delivery and never fails because of it.
type Notifier interface {
	Publish(slug string, event Event)
}

// Event is the payload pushed to viewers after a write operation.
type Event struct {
	Slug         string      `json:"slug"`
	GroupsCount  int         `json:"groupsCount,omitempty"`
	Reset        bool        `json:"reset,omitempty"`
	Incremental  bool        `json:"incremental,omitempty"`
	LastAssigned *Assignment `json:"lastAssigned,omitempty"`
}

// Assignment identifies the team revealed by an incremental assign.
type Assignment struct {
	TeamID uint   `json:"teamId"`
	Letter string `json:"letter"`
}
