package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity of a detection rule or a flagged activity
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Detection rule names. Each maps to one row in ai_detection_rules.
const (
	RuleImpossibleScore = "impossible_score"
	RuleBotSpeed        = "bot_speed"
	RulePerfectGameplay = "perfect_gameplay"
	RuleScoreAnomaly    = "score_anomaly"
	RuleSessionAnomaly  = "session_anomaly"
)

// Reasons attached to a verdict when a rule fires
const (
	ReasonImpossibleScore     = "impossible_score"
	ReasonBotSpeedHigh        = "bot_speed_high"
	ReasonReactionTimeTooFast = "reaction_time_too_fast"
	ReasonPerfectGameplay     = "perfect_gameplay"
	ReasonScoreAnomaly        = "score_anomaly"
	ReasonExcessiveSessions   = "excessive_sessions"
)

// DetectionRule holds one named anti-cheat rule with typed thresholds.
// Each rule reads only the columns that apply to it; the rest stay at their
// seeded defaults. Mutated only by admins.
type DetectionRule struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	RuleName    string   `gorm:"size:50;uniqueIndex;not null" json:"rule_name"`
	Description string   `gorm:"type:text" json:"description"`
	Severity    Severity `gorm:"size:20;not null;default:low" json:"severity"`
	IsActive    bool     `gorm:"default:true;index" json:"is_active"`
	AutoFlag    bool     `gorm:"default:true" json:"auto_flag"`
	AutoBan     bool     `gorm:"default:false" json:"auto_ban"`

	MaxScorePerGame       int64   `gorm:"default:0" json:"max_score_per_game"`
	MaxMovesPerMinute     float64 `gorm:"default:0" json:"max_moves_per_minute"`
	MinReactionTimeMs     float64 `gorm:"default:0" json:"min_reaction_time_ms"`
	PerfectMovesThreshold float64 `gorm:"default:0" json:"perfect_moves_threshold"`
	ZeroMistakesThreshold int     `gorm:"default:0" json:"zero_mistakes_threshold"`
	SessionCountPerHour   int     `gorm:"default:0" json:"session_count_per_hour"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DetectionRule) TableName() string {
	return "ai_detection_rules"
}

// SuspicionVerdict is the outcome of analyzing one session. Computed fresh
// per session, never persisted as its own row.
type SuspicionVerdict struct {
	IsSuspicious   bool     `json:"is_suspicious"`
	SuspicionScore int      `json:"suspicion_score"`
	FlaggedReasons []string `json:"flagged_reasons"`
	Severity       Severity `json:"severity"`
	ShouldBan      bool     `json:"should_ban"`
}

// Review states for a suspicious activity
type ReviewStatus string

const (
	ReviewStatusPending       ReviewStatus = "pending"
	ReviewStatusConfirmed     ReviewStatus = "confirmed"
	ReviewStatusFalsePositive ReviewStatus = "false_positive"
)

// Actions an admin can take when reviewing
type ReviewAction string

const (
	ReviewActionNone         ReviewAction = "none"
	ReviewActionWarning      ReviewAction = "warning"
	ReviewActionTempBan      ReviewAction = "temp_ban"
	ReviewActionPermanentBan ReviewAction = "permanent_ban"
)

// SuspiciousActivity is one flagged session awaiting or past admin review
type SuspiciousActivity struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Wallet          string       `gorm:"size:64;not null;index" json:"wallet"`
	GameSessionID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"game_session_id"`
	GameSession     *GameSession `gorm:"foreignKey:GameSessionID" json:"game_session,omitempty"`
	ActivityType    string       `gorm:"size:50;not null" json:"activity_type"`
	Severity        Severity     `gorm:"size:20;not null" json:"severity"`
	Description     string       `gorm:"type:text" json:"description"`
	ConfidenceScore int          `gorm:"not null" json:"confidence_score"`
	EvidenceData    JSONB        `gorm:"type:jsonb" json:"evidence_data"`
	DetectedBy      string       `gorm:"size:50;default:ai_system" json:"detected_by"`
	Status          ReviewStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	ReviewedBy      *string      `gorm:"size:100" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time   `json:"reviewed_at,omitempty"`
	ReviewNotes     *string      `gorm:"type:text" json:"review_notes,omitempty"`
	ActionTaken     ReviewAction `gorm:"size:20;default:none" json:"action_taken"`
	ActionTakenAt   *time.Time   `json:"action_taken_at,omitempty"`
	CreatedAt       time.Time    `gorm:"index" json:"created_at"`
}

func (SuspiciousActivity) TableName() string {
	return "suspicious_activities"
}
