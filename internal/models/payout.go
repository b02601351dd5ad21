package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutStatusQueued     PayoutStatus = "queued"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

// PendingPayout is one queued, retryable transfer to a single recipient.
// Status only moves forward except the single processing -> queued retry edge.
type PendingPayout struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Wallet       string          `gorm:"size:64;not null;index" json:"wallet"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"amount"`
	Currency     string          `gorm:"size:10;not null" json:"currency"`
	Reason       string          `gorm:"size:50;not null" json:"reason"` // tournament_prize, refund, referral_bonus
	ReferenceID  string          `gorm:"size:100;index" json:"reference_id"`
	Status       PayoutStatus    `gorm:"size:20;not null;default:queued;index" json:"status"`
	Attempts     int             `gorm:"default:0" json:"attempts"`
	MaxAttempts  int             `gorm:"default:3" json:"max_attempts"`
	Priority     int             `gorm:"default:0;index" json:"priority"`
	ScheduledFor time.Time       `gorm:"index" json:"scheduled_for"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (PendingPayout) TableName() string {
	return "pending_payouts"
}

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is an append-only ledger row recording the outcome of one
// attempted payout. A payout may leave several failed rows before a final
// completed one.
type Transaction struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Wallet          string            `gorm:"size:64;not null;index" json:"wallet"`
	Type            string            `gorm:"size:50;not null;index" json:"type"`
	Amount          decimal.Decimal   `gorm:"type:decimal(18,8);not null" json:"amount"`
	Currency        string            `gorm:"size:10;not null" json:"currency"`
	Status          TransactionStatus `gorm:"size:20;not null;index" json:"status"`
	TransactionHash *string           `gorm:"size:120" json:"transaction_hash,omitempty"`
	Metadata        JSONB             `gorm:"type:jsonb" json:"metadata"`
	CreatedAt       time.Time         `gorm:"index" json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}
