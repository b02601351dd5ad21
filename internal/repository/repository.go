package repository

import (
	"context"
	"time"

	"arcade-arena/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for callers that need to open a
// transaction and rebind the repository to it.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// GetUserByWallet retrieves a user by wallet address
func (r *Repository) GetUserByWallet(ctx context.Context, wallet string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// CreateGameSession persists a completed game session
func (r *Repository) CreateGameSession(ctx context.Context, session *models.GameSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetRecentSessions retrieves the most recent sessions for a wallet
func (r *Repository) GetRecentSessions(ctx context.Context, wallet string, limit int) ([]*models.GameSession, error) {
	var sessions []*models.GameSession
	err := r.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("created_at DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// CountSessionsSince counts sessions a wallet recorded after the given time
func (r *Repository) CountSessionsSince(ctx context.Context, wallet string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("wallet = ? AND created_at >= ?", wallet, since).
		Count(&count).Error
	return count, err
}

// GetPlayerStatistics retrieves aggregated statistics for a wallet.
// Returns gorm.ErrRecordNotFound for wallets that never played.
func (r *Repository) GetPlayerStatistics(ctx context.Context, wallet string) (*models.PlayerStatistics, error) {
	var stats models.PlayerStatistics
	err := r.db.WithContext(ctx).Where("wallet = ?", wallet).First(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// SavePlayerStatistics creates or updates a statistics row
func (r *Repository) SavePlayerStatistics(ctx context.Context, stats *models.PlayerStatistics) error {
	return r.db.WithContext(ctx).Save(stats).Error
}

// SetPlayerBannedFlag updates the is_banned cache on player statistics
func (r *Repository) SetPlayerBannedFlag(ctx context.Context, wallet string, banned bool) error {
	updates := map[string]interface{}{"is_banned": banned}
	if banned {
		updates["trust_score"] = 0.0
	}
	return r.db.WithContext(ctx).
		Model(&models.PlayerStatistics{}).
		Where("wallet = ?", wallet).
		Updates(updates).Error
}

// GetActiveRule retrieves an active detection rule by name.
// Returns gorm.ErrRecordNotFound when the rule is missing or inactive.
func (r *Repository) GetActiveRule(ctx context.Context, name string) (*models.DetectionRule, error) {
	var rule models.DetectionRule
	err := r.db.WithContext(ctx).
		Where("rule_name = ? AND is_active = ?", name, true).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRules retrieves all detection rules
func (r *Repository) ListRules(ctx context.Context) ([]*models.DetectionRule, error) {
	var rules []*models.DetectionRule
	err := r.db.WithContext(ctx).Order("rule_name ASC").Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// GetRuleByName retrieves a rule regardless of its active flag
func (r *Repository) GetRuleByName(ctx context.Context, name string) (*models.DetectionRule, error) {
	var rule models.DetectionRule
	err := r.db.WithContext(ctx).Where("rule_name = ?", name).First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// SaveRule persists rule changes
func (r *Repository) SaveRule(ctx context.Context, rule *models.DetectionRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// CreateSuspiciousActivity logs one flagged session
func (r *Repository) CreateSuspiciousActivity(ctx context.Context, activity *models.SuspiciousActivity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// GetSuspiciousActivityByID retrieves one activity
func (r *Repository) GetSuspiciousActivityByID(ctx context.Context, id uuid.UUID) (*models.SuspiciousActivity, error) {
	var activity models.SuspiciousActivity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&activity).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListSuspiciousActivities retrieves activities in a review state, newest first
func (r *Repository) ListSuspiciousActivities(ctx context.Context, status models.ReviewStatus, limit int) ([]*models.SuspiciousActivity, error) {
	var activities []*models.SuspiciousActivity
	err := r.db.WithContext(ctx).
		Preload("GameSession").
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// ListSuspiciousActivitiesByWallet retrieves all activities for one wallet
func (r *Repository) ListSuspiciousActivitiesByWallet(ctx context.Context, wallet string, limit int) ([]*models.SuspiciousActivity, error) {
	var activities []*models.SuspiciousActivity
	err := r.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// SaveSuspiciousActivity persists review changes
func (r *Repository) SaveSuspiciousActivity(ctx context.Context, activity *models.SuspiciousActivity) error {
	return r.db.WithContext(ctx).Save(activity).Error
}

// CreateBan inserts a new ban row
func (r *Repository) CreateBan(ctx context.Context, ban *models.Ban) error {
	return r.db.WithContext(ctx).Create(ban).Error
}

// GetEffectiveBan returns the currently effective ban for a wallet, or
// gorm.ErrRecordNotFound when the wallet is clear.
func (r *Repository) GetEffectiveBan(ctx context.Context, wallet string, now time.Time) (*models.Ban, error) {
	var ban models.Ban
	err := r.db.WithContext(ctx).
		Where("wallet = ? AND is_active = ? AND (ban_type = ? OR banned_until > ?)",
			wallet, true, models.BanTypePermanent, now).
		Order("created_at DESC").
		First(&ban).Error
	if err != nil {
		return nil, err
	}
	return &ban, nil
}

// DeactivateBans lifts every active ban for a wallet. Rows stay in place as
// history.
func (r *Repository) DeactivateBans(ctx context.Context, wallet, reason, by string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Ban{}).
		Where("wallet = ? AND is_active = ?", wallet, true).
		Updates(map[string]interface{}{
			"is_active":    false,
			"unbanned_at":  at,
			"unbanned_by":  by,
			"unban_reason": reason,
		})
	return result.RowsAffected, result.Error
}

// ListBans retrieves ban rows, optionally only the active ones
func (r *Repository) ListBans(ctx context.Context, activeOnly bool, limit int) ([]*models.Ban, error) {
	var bans []*models.Ban
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Find(&bans).Error
	if err != nil {
		return nil, err
	}
	return bans, nil
}

// ListBansByWallet retrieves the ban history for one wallet
func (r *Repository) ListBansByWallet(ctx context.Context, wallet string) ([]*models.Ban, error) {
	var bans []*models.Ban
	err := r.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("created_at DESC").
		Find(&bans).Error
	if err != nil {
		return nil, err
	}
	return bans, nil
}
