package repository

import (
	"context"
	"time"

	"arcade-arena/internal/models"
)

// CountSessionsTotalSince counts all sessions recorded after the given time
func (r *Repository) CountSessionsTotalSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

// CountSuspiciousSessionsSince counts flagged sessions after the given time
func (r *Repository) CountSuspiciousSessionsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("is_suspicious = ? AND created_at >= ?", true, since).
		Count(&count).Error
	return count, err
}

// CountActiveBans counts currently active ban rows
func (r *Repository) CountActiveBans(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Ban{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}

// CountPendingReviews counts suspicious activities awaiting review
func (r *Repository) CountPendingReviews(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SuspiciousActivity{}).
		Where("status = ?", models.ReviewStatusPending).
		Count(&count).Error
	return count, err
}

// WalletSuspicionCount pairs a wallet with how often it was flagged
type WalletSuspicionCount struct {
	Wallet string `json:"wallet"`
	Count  int64  `json:"count"`
}

// TopSuspiciousWallets returns the wallets with the most flagged activities
func (r *Repository) TopSuspiciousWallets(ctx context.Context, limit int) ([]WalletSuspicionCount, error) {
	var rows []WalletSuspicionCount
	err := r.db.WithContext(ctx).
		Model(&models.SuspiciousActivity{}).
		Select("wallet, COUNT(*) as count").
		Group("wallet").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetAdminByUserID retrieves the admin record for a user, if any
func (r *Repository) GetAdminByUserID(ctx context.Context, userID uint) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
