package models

import "time"

// Tournament is resolved once per request by its public slug. This service
// never creates or deletes tournaments.
type Tournament struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"uniqueIndex;size:64;not null" json:"slug"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Tournament) TableName() string { return "tournaments" }

// Team carries the one column this service mutates: group_letter.
// Empty string means the team has not been assigned to a group yet.
type Team struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TournamentID uint      `gorm:"index;not null" json:"tournament_id"`
	Name         string    `gorm:"size:128;not null" json:"name"`
	LogoURL      string    `gorm:"size:256" json:"logo_url"`
	GroupLetter  string    `gorm:"column:group_letter;size:1;default:''" json:"group_letter"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Team) TableName() string { return "teams" }
