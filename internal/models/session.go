package models

import (
	"time"

	"github.com/google/uuid"
)

// GameSession represents one completed game submitted by the game client.
// Sessions are immutable once recorded.
type GameSession struct {
	ID                  uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Wallet              string      `gorm:"size:64;not null;index" json:"wallet"`
	GameName            string      `gorm:"size:100;not null;index" json:"game_name"`
	Score               int64       `gorm:"not null" json:"score"`
	DurationSeconds     int         `gorm:"not null" json:"duration_seconds"`
	MovesPerMinute      *float64    `json:"moves_per_minute,omitempty"`
	AverageReactionTime *float64    `json:"average_reaction_time,omitempty"`
	PerfectMoves        *int        `json:"perfect_moves,omitempty"`
	Mistakes            *int        `json:"mistakes,omitempty"`
	IsSuspicious        bool        `gorm:"default:false;index" json:"is_suspicious"`
	SuspicionScore      int         `gorm:"default:0" json:"suspicion_score"`
	FlaggedReasons      StringArray `gorm:"type:text" json:"flagged_reasons"`
	IPAddress           *string     `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent           *string     `gorm:"size:500" json:"user_agent,omitempty"`
	TournamentID        *uuid.UUID  `gorm:"type:uuid;index" json:"tournament_id,omitempty"`
	IsTournamentGame    bool        `gorm:"default:false" json:"is_tournament_game"`
	EndTime             time.Time   `json:"end_time"`
	CreatedAt           time.Time   `gorm:"index" json:"created_at"`
}

func (GameSession) TableName() string {
	return "game_sessions"
}

// PlayerStatistics aggregates per-wallet play history and reputation.
// Updated after every recorded session and every ban/unban.
type PlayerStatistics struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Wallet             string     `gorm:"size:64;uniqueIndex;not null" json:"wallet"`
	TotalGamesPlayed   int64      `gorm:"default:0" json:"total_games_played"`
	AverageScore       float64    `gorm:"default:0" json:"average_score"`
	HighestScore       int64      `gorm:"default:0" json:"highest_score"`
	SuspiciousSessions int64      `gorm:"default:0" json:"suspicious_sessions"`
	SuspicionRate      float64    `gorm:"default:0" json:"suspicion_rate"`
	TrustScore         float64    `gorm:"default:100" json:"trust_score"`
	IsBanned           bool       `gorm:"default:false;index" json:"is_banned"`
	LastPlayedAt       *time.Time `json:"last_played_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (PlayerStatistics) TableName() string {
	return "player_statistics"
}

// RecordSessionRequest is the ingestion payload from the game-serving layer
type RecordSessionRequest struct {
	Wallet              string   `json:"wallet" binding:"required"`
	GameName            string   `json:"game_name" binding:"required"`
	Score               int64    `json:"score"`
	DurationSeconds     int      `json:"duration_seconds" binding:"required"`
	MovesPerMinute      *float64 `json:"moves_per_minute,omitempty"`
	AverageReactionTime *float64 `json:"average_reaction_time,omitempty"`
	PerfectMoves        *int     `json:"perfect_moves,omitempty"`
	Mistakes            *int     `json:"mistakes,omitempty"`
	IPAddress           *string  `json:"ip_address,omitempty"`
	UserAgent           *string  `json:"user_agent,omitempty"`
	TournamentID        *string  `json:"tournament_id,omitempty"`
}
