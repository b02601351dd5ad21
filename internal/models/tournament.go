package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopspring/decimal"
)

type TournamentStatus string

const (
	TournamentStatusUpcoming    TournamentStatus = "upcoming"
	TournamentStatusActive      TournamentStatus = "active"
	TournamentStatusCompleted   TournamentStatus = "completed"
	TournamentStatusDistributed TournamentStatus = "distributed"
)

// Tournament represents one entry-fee tournament. Entry fee and participant
// count are frozen once the tournament starts.
type Tournament struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Name                string           `gorm:"size:255;not null" json:"name"`
	GameName            string           `gorm:"size:100;not null;index" json:"game_name"`
	EntryFee            decimal.Decimal  `gorm:"type:decimal(18,8);not null" json:"entry_fee"`
	Currency            string           `gorm:"size:10;not null;default:NAG" json:"currency"`
	CurrentParticipants int              `gorm:"default:0" json:"current_participants"`
	PrizePool           decimal.Decimal  `gorm:"type:decimal(18,8);default:0" json:"prize_pool"`
	PrizeDistribution   JSONB            `gorm:"type:jsonb" json:"prize_distribution"`
	Status              TournamentStatus `gorm:"size:20;not null;default:upcoming;index" json:"status"`
	StartsAt            *time.Time       `json:"starts_at,omitempty"`
	EndsAt              *time.Time       `json:"ends_at,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func (Tournament) TableName() string {
	return "tournaments"
}

type ParticipantStatus string

const (
	ParticipantStatusRegistered ParticipantStatus = "registered"
	ParticipantStatusWinner     ParticipantStatus = "winner"
)

// TournamentParticipant is one wallet's entry in a tournament
type TournamentParticipant struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TournamentID uuid.UUID         `gorm:"type:uuid;not null;index" json:"tournament_id"`
	Wallet       string            `gorm:"size:64;not null;index" json:"wallet"`
	FinalScore   int64             `gorm:"default:0" json:"final_score"`
	FinalRank    *int              `json:"final_rank,omitempty"`
	PrizeWon     decimal.Decimal   `gorm:"type:decimal(18,8);default:0" json:"prize_won"`
	Status       ParticipantStatus `gorm:"size:20;not null;default:registered" json:"status"`
	JoinedAt     time.Time         `json:"joined_at"`
	CreatedAt    time.Time         `gorm:"index" json:"created_at"`
}

func (TournamentParticipant) TableName() string {
	return "tournament_participants"
}
