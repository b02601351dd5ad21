package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arcade-arena/internal/models"
	"arcade-arena/internal/repository"

	"gorm.io/gorm"
)

// AdminService backs the admin monitoring surface: dashboard counters,
// per-wallet stat bundles, and detection rule management.
type AdminService struct {
	repo *repository.Repository
}

func NewAdminService(repo *repository.Repository) *AdminService {
	return &AdminService{repo: repo}
}

// GetAdminByUserID retrieves the admin record for a user
func (as *AdminService) GetAdminByUserID(ctx context.Context, userID uint) (*models.AdminUser, error) {
	return as.repo.GetAdminByUserID(ctx, userID)
}

// DashboardStats are the aggregate counters on the monitoring dashboard
type DashboardStats struct {
	GamesToday           int64                             `json:"games_today"`
	SuspiciousToday      int64                             `json:"suspicious_today"`
	ActiveBans           int64                             `json:"active_bans"`
	PendingReviews       int64                             `json:"pending_reviews"`
	TopSuspiciousWallets []repository.WalletSuspicionCount `json:"top_suspicious_wallets"`
}

// GetDashboard computes the monitoring dashboard counters
func (as *AdminService) GetDashboard(ctx context.Context) (*DashboardStats, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats := &DashboardStats{}
	var err error

	if stats.GamesToday, err = as.repo.CountSessionsTotalSince(ctx, startOfDay); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	if stats.SuspiciousToday, err = as.repo.CountSuspiciousSessionsSince(ctx, startOfDay); err != nil {
		return nil, fmt.Errorf("failed to count suspicious sessions: %w", err)
	}
	if stats.ActiveBans, err = as.repo.CountActiveBans(ctx); err != nil {
		return nil, fmt.Errorf("failed to count active bans: %w", err)
	}
	if stats.PendingReviews, err = as.repo.CountPendingReviews(ctx); err != nil {
		return nil, fmt.Errorf("failed to count pending reviews: %w", err)
	}
	if stats.TopSuspiciousWallets, err = as.repo.TopSuspiciousWallets(ctx, 10); err != nil {
		return nil, fmt.Errorf("failed to rank suspicious wallets: %w", err)
	}

	return stats, nil
}

// PlayerReport bundles everything an admin sees about one wallet
type PlayerReport struct {
	Wallet            string                       `json:"wallet"`
	Statistics        *models.PlayerStatistics     `json:"statistics,omitempty"`
	RecentSessions    []*models.GameSession        `json:"recent_sessions"`
	SuspiciousHistory []*models.SuspiciousActivity `json:"suspicious_history"`
	BanHistory        []*models.Ban                `json:"ban_history"`
	IsCurrentlyBanned bool                         `json:"is_currently_banned"`
}

// GetPlayerReport assembles the per-wallet view for admin review
func (as *AdminService) GetPlayerReport(ctx context.Context, wallet string) (*PlayerReport, error) {
	report := &PlayerReport{Wallet: wallet}

	stats, err := as.repo.GetPlayerStatistics(ctx, wallet)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}
	report.Statistics = stats

	if report.RecentSessions, err = as.repo.GetRecentSessions(ctx, wallet, 20); err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	if report.SuspiciousHistory, err = as.repo.ListSuspiciousActivitiesByWallet(ctx, wallet, 50); err != nil {
		return nil, fmt.Errorf("failed to load suspicious history: %w", err)
	}
	if report.BanHistory, err = as.repo.ListBansByWallet(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to load ban history: %w", err)
	}

	now := time.Now()
	for _, ban := range report.BanHistory {
		if ban.IsEffective(now) {
			report.IsCurrentlyBanned = true
			break
		}
	}

	return report, nil
}

// ListRules returns every detection rule
func (as *AdminService) ListRules(ctx context.Context) ([]*models.DetectionRule, error) {
	return as.repo.ListRules(ctx)
}

// RuleUpdate carries admin changes to one detection rule. Nil fields are
// left untouched.
type RuleUpdate struct {
	IsActive              *bool            `json:"is_active,omitempty"`
	Severity              *models.Severity `json:"severity,omitempty"`
	AutoFlag              *bool            `json:"auto_flag,omitempty"`
	AutoBan               *bool            `json:"auto_ban,omitempty"`
	MaxScorePerGame       *int64           `json:"max_score_per_game,omitempty"`
	MaxMovesPerMinute     *float64         `json:"max_moves_per_minute,omitempty"`
	MinReactionTimeMs     *float64         `json:"min_reaction_time_ms,omitempty"`
	PerfectMovesThreshold *float64         `json:"perfect_moves_threshold,omitempty"`
	ZeroMistakesThreshold *int             `json:"zero_mistakes_threshold,omitempty"`
	SessionCountPerHour   *int             `json:"session_count_per_hour,omitempty"`
}

// UpdateRule applies admin changes to a detection rule
func (as *AdminService) UpdateRule(ctx context.Context, name string, update *RuleUpdate) (*models.DetectionRule, error) {
	rule, err := as.repo.GetRuleByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("rule not found: %w", err)
	}

	if update.IsActive != nil {
		rule.IsActive = *update.IsActive
	}
	if update.Severity != nil {
		switch *update.Severity {
		case models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
			rule.Severity = *update.Severity
		default:
			return nil, fmt.Errorf("invalid severity: %s", *update.Severity)
		}
	}
	if update.AutoFlag != nil {
		rule.AutoFlag = *update.AutoFlag
	}
	if update.AutoBan != nil {
		rule.AutoBan = *update.AutoBan
	}
	if update.MaxScorePerGame != nil {
		rule.MaxScorePerGame = *update.MaxScorePerGame
	}
	if update.MaxMovesPerMinute != nil {
		rule.MaxMovesPerMinute = *update.MaxMovesPerMinute
	}
	if update.MinReactionTimeMs != nil {
		rule.MinReactionTimeMs = *update.MinReactionTimeMs
	}
	if update.PerfectMovesThreshold != nil {
		rule.PerfectMovesThreshold = *update.PerfectMovesThreshold
	}
	if update.ZeroMistakesThreshold != nil {
		rule.ZeroMistakesThreshold = *update.ZeroMistakesThreshold
	}
	if update.SessionCountPerHour != nil {
		rule.SessionCountPerHour = *update.SessionCountPerHour
	}

	if err := as.repo.SaveRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	return rule, nil
}
