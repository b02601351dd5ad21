package repository

import (
	"context"
	"time"

	"arcade-arena/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreatePendingPayout enqueues a payout job
func (r *Repository) CreatePendingPayout(ctx context.Context, payout *models.PendingPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

// GetPendingPayoutByID retrieves one payout job
func (r *Repository) GetPendingPayoutByID(ctx context.Context, id uuid.UUID) (*models.PendingPayout, error) {
	var payout models.PendingPayout
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// SelectDuePayouts returns up to limit queued jobs that are scheduled and
// still have attempts left, highest priority first, oldest first within a
// priority.
func (r *Repository) SelectDuePayouts(ctx context.Context, now time.Time, limit int) ([]*models.PendingPayout, error) {
	var payouts []*models.PendingPayout
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ? AND attempts < max_attempts",
			models.PayoutStatusQueued, now).
		Order("priority DESC").
		Order("created_at ASC").
		Limit(limit).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// ClaimPayout moves a job from queued to processing and bumps its attempt
// counter. The status guard in the WHERE clause means a job already claimed
// elsewhere is not claimed twice; the boolean result reports whether this
// caller won.
func (r *Repository) ClaimPayout(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PendingPayout{}).
		Where("id = ? AND status = ?", id, models.PayoutStatusQueued).
		Updates(map[string]interface{}{
			"status":   models.PayoutStatusProcessing,
			"attempts": gorm.Expr("attempts + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CompletePayout marks a job completed
func (r *Repository) CompletePayout(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PendingPayout{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.PayoutStatusCompleted,
			"completed_at": at,
		}).Error
}

// RequeuePayout returns a job to the queue after a retryable failure
func (r *Repository) RequeuePayout(ctx context.Context, id uuid.UUID, errMsg string) error {
	return r.db.WithContext(ctx).
		Model(&models.PendingPayout{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.PayoutStatusQueued,
			"error_message": errMsg,
		}).Error
}

// FailPayout marks a job terminally failed
func (r *Repository) FailPayout(ctx context.Context, id uuid.UUID, errMsg string) error {
	return r.db.WithContext(ctx).
		Model(&models.PendingPayout{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.PayoutStatusFailed,
			"error_message": errMsg,
		}).Error
}

// ResetFailedPayouts puts every terminally failed job back in the queue with
// a fresh attempt budget. Manual operator action.
func (r *Repository) ResetFailedPayouts(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PendingPayout{}).
		Where("status = ?", models.PayoutStatusFailed).
		Updates(map[string]interface{}{
			"status":        models.PayoutStatusQueued,
			"attempts":      0,
			"error_message": nil,
		})
	return result.RowsAffected, result.Error
}

// CountPayoutsByStatus returns the queue depth per status
func (r *Repository) CountPayoutsByStatus(ctx context.Context) (map[models.PayoutStatus]int64, error) {
	counts := make(map[models.PayoutStatus]int64)
	statuses := []models.PayoutStatus{
		models.PayoutStatusQueued,
		models.PayoutStatusProcessing,
		models.PayoutStatusCompleted,
		models.PayoutStatusFailed,
	}

	for _, status := range statuses {
		var count int64
		err := r.db.WithContext(ctx).
			Model(&models.PendingPayout{}).
			Where("status = ?", status).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, nil
}

// CreateTransaction appends a ledger row
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// ListTransactionsByWallet retrieves the transaction history for a wallet
func (r *Repository) ListTransactionsByWallet(ctx context.Context, wallet string, limit int) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	err := r.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// GetTournamentByID retrieves a tournament
func (r *Repository) GetTournamentByID(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	var tournament models.Tournament
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tournament).Error
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

// SaveTournament persists tournament changes
func (r *Repository) SaveTournament(ctx context.Context, tournament *models.Tournament) error {
	return r.db.WithContext(ctx).Save(tournament).Error
}

// ListParticipantsByScore returns all participants of a tournament ordered
// by final score descending, ties broken by submission order.
func (r *Repository) ListParticipantsByScore(ctx context.Context, tournamentID uuid.UUID) ([]*models.TournamentParticipant, error) {
	var participants []*models.TournamentParticipant
	err := r.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("final_score DESC").
		Order("created_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// GetParticipant returns one wallet's entry in a tournament
func (r *Repository) GetParticipant(ctx context.Context, tournamentID uuid.UUID, wallet string) (*models.TournamentParticipant, error) {
	var participant models.TournamentParticipant
	err := r.db.WithContext(ctx).
		Where("tournament_id = ? AND wallet = ?", tournamentID, wallet).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// CreateParticipant registers a wallet in a tournament
func (r *Repository) CreateParticipant(ctx context.Context, participant *models.TournamentParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

// SaveParticipant persists participant changes
func (r *Repository) SaveParticipant(ctx context.Context, participant *models.TournamentParticipant) error {
	return r.db.WithContext(ctx).Save(participant).Error
}
