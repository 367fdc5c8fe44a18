// Package store is the postgres-backed team record store.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/groupstage/draw-backend/internal/groups"
	"github.com/groupstage/draw-backend/internal/models"
)

type TeamStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *TeamStore {
	return &TeamStore{db: db}
}

func (s *TeamStore) TournamentBySlug(ctx context.Context, slug string) (models.Tournament, error) {
	var t models.Tournament
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Tournament{}, groups.ErrTournamentNotFound
	}
	if err != nil {
		return models.Tournament{}, fmt.Errorf("lookup tournament: %w", err)
	}
	return t, nil
}

func (s *TeamStore) TeamsByTournament(ctx context.Context, tournamentID uint) ([]models.Team, error) {
	var teams []models.Team
	err := s.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("id ASC").
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// InTx runs fn inside a single transaction; gorm commits on nil and rolls
// back on error or panic, so a failed draw leaves no partial assignment.
func (s *TeamStore) InTx(ctx context.Context, fn func(tx groups.TeamWriter) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txWriter{tx: tx})
	})
}

type txWriter struct {
	tx *gorm.DB
}

func (w *txWriter) ClearGroupLetters(tournamentID uint) error {
	err := w.tx.Model(&models.Team{}).
		Where("tournament_id = ?", tournamentID).
		Update("group_letter", "").Error
	if err != nil {
		return fmt.Errorf("clear group letters: %w", err)
	}
	return nil
}

func (w *txWriter) SetGroupLetter(tournamentID, teamID uint, letter string) error {
	err := w.tx.Model(&models.Team{}).
		Where("id = ? AND tournament_id = ?", teamID, tournamentID).
		Update("group_letter", letter).Error
	if err != nil {
		return fmt.Errorf("set group letter: %w", err)
	}
	return nil
}
