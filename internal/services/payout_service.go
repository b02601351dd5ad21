package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"arcade-arena/internal/config"
	"arcade-arena/internal/models"
	"arcade-arena/internal/repository"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// PayoutService owns admission to the payout queue. All pending_payouts
// writes outside the settlement worker go through it.
type PayoutService struct {
	repo *repository.Repository
	cfg  config.PayoutConfig
}

func NewPayoutService(repo *repository.Repository, cfg config.PayoutConfig) *PayoutService {
	return &PayoutService{repo: repo, cfg: cfg}
}

// EnqueuePayoutRequest describes one transfer to queue
type EnqueuePayoutRequest struct {
	Wallet       string
	Amount       decimal.Decimal
	Currency     string
	Reason       string
	ReferenceID  string
	Priority     int
	ScheduledFor *time.Time
}

// Enqueue validates and queues one payout job
func (ps *PayoutService) Enqueue(ctx context.Context, req *EnqueuePayoutRequest) (*models.PendingPayout, error) {
	if req.Wallet == "" || req.Currency == "" || req.Reason == "" {
		return nil, errors.New("wallet, currency and reason are required")
	}
	if decoded, err := base58.Decode(req.Wallet); err != nil || len(decoded) != 32 {
		return nil, ErrInvalidWallet
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("amount must be positive")
	}

	scheduledFor := time.Now()
	if req.ScheduledFor != nil {
		scheduledFor = *req.ScheduledFor
	}

	payout := &models.PendingPayout{
		ID:           uuid.New(),
		Wallet:       req.Wallet,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Reason:       req.Reason,
		ReferenceID:  req.ReferenceID,
		Status:       models.PayoutStatusQueued,
		MaxAttempts:  ps.cfg.MaxAttempts,
		Priority:     req.Priority,
		ScheduledFor: scheduledFor,
		CreatedAt:    time.Now(),
	}

	if err := ps.repo.CreatePendingPayout(ctx, payout); err != nil {
		return nil, fmt.Errorf("failed to enqueue payout: %w", err)
	}

	log.Printf("Queued payout: %s %s to %s (%s)", payout.Amount, payout.Currency, payout.Wallet, payout.Reason)
	return payout, nil
}

// RetryFailedPayouts puts every terminally failed job back in the queue
// with a fresh attempt budget. Manual operator action.
func (ps *PayoutService) RetryFailedPayouts(ctx context.Context) (int64, error) {
	count, err := ps.repo.ResetFailedPayouts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed payouts: %w", err)
	}
	if count > 0 {
		log.Printf("Requeued %d failed payouts for retry", count)
	}
	return count, nil
}

// QueueStatus returns the queue depth per status
func (ps *PayoutService) QueueStatus(ctx context.Context) (map[models.PayoutStatus]int64, error) {
	return ps.repo.CountPayoutsByStatus(ctx)
}

// TransactionHistory lists the ledger rows for one wallet, newest first
func (ps *PayoutService) TransactionHistory(ctx context.Context, wallet string, limit int) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return ps.repo.ListTransactionsByWallet(ctx, wallet, limit)
}
