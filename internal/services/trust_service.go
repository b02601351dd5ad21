package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"arcade-arena/internal/config"
	"arcade-arena/internal/models"
	"arcade-arena/internal/repository"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"gorm.io/gorm"
)

var (
	// ErrPlayerBanned is returned when a banned wallet tries to record a session
	ErrPlayerBanned = errors.New("player is banned and cannot record games")

	// ErrActivityReviewed is returned when reviewing an activity that already
	// left the pending state
	ErrActivityReviewed = errors.New("suspicious activity has already been reviewed")

	// ErrInvalidWallet is returned for wallets that are not valid Solana addresses
	ErrInvalidWallet = errors.New("invalid wallet address")
)

// TrustService owns the per-player trust history and the ban lifecycle.
// All ban and suspicious-activity writes go through it.
type TrustService struct {
	repo     *repository.Repository
	analyzer *AnalyzerService
	cfg      config.MonitoringConfig

	// Serializes RecordSession per wallet so two concurrent submissions for
	// the same wallet cannot both pass the ban check before either persists.
	// Recordings for different wallets stay independent.
	walletLocks sync.Map
}

func NewTrustService(repo *repository.Repository, analyzer *AnalyzerService, cfg config.MonitoringConfig) *TrustService {
	return &TrustService{
		repo:     repo,
		analyzer: analyzer,
		cfg:      cfg,
	}
}

func (ts *TrustService) lockWallet(wallet string) func() {
	muIface, _ := ts.walletLocks.LoadOrStore(wallet, &sync.Mutex{})
	mu := muIface.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// RecordSession validates and records one completed game session. The ban
// gate runs before any analysis or persistence: a banned wallet gets
// ErrPlayerBanned and leaves no rows behind.
func (ts *TrustService) RecordSession(ctx context.Context, req *models.RecordSessionRequest) (*models.GameSession, *models.SuspicionVerdict, error) {
	if err := validateSessionRequest(req); err != nil {
		return nil, nil, err
	}

	unlock := ts.lockWallet(req.Wallet)
	defer unlock()

	banned, err := ts.IsBanned(ctx, req.Wallet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check ban status: %w", err)
	}
	if banned {
		return nil, nil, ErrPlayerBanned
	}

	session := sessionFromRequest(req)

	verdict, err := ts.analyzer.Analyze(ctx, session)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to analyze session: %w", err)
	}

	session.IsSuspicious = verdict.IsSuspicious
	session.SuspicionScore = verdict.SuspicionScore
	session.FlaggedReasons = models.StringArray(verdict.FlaggedReasons)

	if err := ts.repo.CreateGameSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("failed to record game session: %w", err)
	}

	if verdict.IsSuspicious {
		if err := ts.logSuspiciousActivity(ctx, session, verdict); err != nil {
			log.Printf("Warning: failed to log suspicious activity for %s: %v", session.Wallet, err)
		}
	}

	if err := ts.updatePlayerStatistics(ctx, session); err != nil {
		log.Printf("Warning: failed to update player statistics for %s: %v", session.Wallet, err)
	}

	if verdict.ShouldBan {
		err := ts.BanPlayer(ctx, &BanRequest{
			Wallet:   session.Wallet,
			BanType:  models.BanTypePermanent,
			Reason:   "Auto-banned: " + strings.Join(verdict.FlaggedReasons, ", "),
			Evidence: verdict.FlaggedReasons,
			BannedBy: "auto_system",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to auto-ban player: %w", err)
		}
		log.Printf("Auto-banned player: %s", session.Wallet)
	}

	return session, verdict, nil
}

func validateSessionRequest(req *models.RecordSessionRequest) error {
	if req.Wallet == "" || req.GameName == "" {
		return errors.New("wallet and game_name are required")
	}
	decoded, err := base58.Decode(req.Wallet)
	if err != nil || len(decoded) != 32 {
		return ErrInvalidWallet
	}
	if req.Score < 0 {
		return errors.New("score must not be negative")
	}
	if req.DurationSeconds <= 0 {
		return errors.New("duration_seconds must be positive")
	}
	return nil
}

func sessionFromRequest(req *models.RecordSessionRequest) *models.GameSession {
	now := time.Now()
	session := &models.GameSession{
		ID:                  uuid.New(),
		Wallet:              req.Wallet,
		GameName:            req.GameName,
		Score:               req.Score,
		DurationSeconds:     req.DurationSeconds,
		MovesPerMinute:      req.MovesPerMinute,
		AverageReactionTime: req.AverageReactionTime,
		PerfectMoves:        req.PerfectMoves,
		Mistakes:            req.Mistakes,
		IPAddress:           req.IPAddress,
		UserAgent:           req.UserAgent,
		EndTime:             now,
		CreatedAt:           now,
	}
	if req.TournamentID != nil {
		if tid, err := uuid.Parse(*req.TournamentID); err == nil {
			session.TournamentID = &tid
			session.IsTournamentGame = true
		}
	}
	return session
}

func (ts *TrustService) logSuspiciousActivity(ctx context.Context, session *models.GameSession, verdict *models.SuspicionVerdict) error {
	activityType := "general_suspicion"
	if len(verdict.FlaggedReasons) > 0 {
		activityType = verdict.FlaggedReasons[0]
	}

	activity := &models.SuspiciousActivity{
		ID:              uuid.New(),
		Wallet:          session.Wallet,
		GameSessionID:   session.ID,
		ActivityType:    activityType,
		Severity:        verdict.Severity,
		Description:     "Flagged: " + strings.Join(verdict.FlaggedReasons, ", "),
		ConfidenceScore: verdict.SuspicionScore,
		EvidenceData: models.JSONB{
			"score":           session.Score,
			"game_name":       session.GameName,
			"flagged_reasons": verdict.FlaggedReasons,
			"suspicion_score": verdict.SuspicionScore,
		},
		DetectedBy: "ai_system",
		Status:     models.ReviewStatusPending,
		CreatedAt:  time.Now(),
	}

	return ts.repo.CreateSuspiciousActivity(ctx, activity)
}

func (ts *TrustService) updatePlayerStatistics(ctx context.Context, session *models.GameSession) error {
	stats, err := ts.repo.GetPlayerStatistics(ctx, session.Wallet)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = &models.PlayerStatistics{
			Wallet:     session.Wallet,
			TrustScore: 100,
		}
	} else if err != nil {
		return err
	}

	stats.TotalGamesPlayed++
	stats.AverageScore = stats.AverageScore +
		(float64(session.Score)-stats.AverageScore)/float64(stats.TotalGamesPlayed)
	if session.Score > stats.HighestScore {
		stats.HighestScore = session.Score
	}
	if session.IsSuspicious {
		stats.SuspiciousSessions++
	}
	stats.SuspicionRate = float64(stats.SuspiciousSessions) / float64(stats.TotalGamesPlayed)
	if !stats.IsBanned {
		stats.TrustScore = (1 - stats.SuspicionRate) * 100
	}
	now := time.Now()
	stats.LastPlayedAt = &now

	return ts.repo.SavePlayerStatistics(ctx, stats)
}

// ReviewRequest is an admin verdict on one suspicious activity
type ReviewRequest struct {
	ActivityID uuid.UUID
	ReviewedBy string
	Status     models.ReviewStatus
	Notes      string
	Action     models.ReviewAction
}

// ReviewActivity transitions a pending suspicious activity to its terminal
// review state. When the action includes a ban, the review update and the
// ban insert run in one transaction so a write failure cannot leave the
// activity confirmed but the wallet unbanned.
func (ts *TrustService) ReviewActivity(ctx context.Context, req *ReviewRequest) (*models.SuspiciousActivity, error) {
	if req.Status != models.ReviewStatusConfirmed && req.Status != models.ReviewStatusFalsePositive {
		return nil, fmt.Errorf("invalid review status: %s", req.Status)
	}
	switch req.Action {
	case models.ReviewActionNone, models.ReviewActionWarning,
		models.ReviewActionTempBan, models.ReviewActionPermanentBan:
	default:
		return nil, fmt.Errorf("invalid review action: %s", req.Action)
	}

	activity, err := ts.repo.GetSuspiciousActivityByID(ctx, req.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}
	if activity.Status != models.ReviewStatusPending {
		return nil, ErrActivityReviewed
	}

	now := time.Now()
	activity.Status = req.Status
	activity.ReviewedBy = &req.ReviewedBy
	activity.ReviewedAt = &now
	activity.ReviewNotes = &req.Notes
	activity.ActionTaken = req.Action
	if req.Action != models.ReviewActionNone {
		activity.ActionTakenAt = &now
	}

	err = ts.repo.DB().Transaction(func(tx *gorm.DB) error {
		txRepo := repository.NewRepository(tx)

		if err := txRepo.SaveSuspiciousActivity(ctx, activity); err != nil {
			return fmt.Errorf("failed to save review: %w", err)
		}

		if req.Action == models.ReviewActionTempBan || req.Action == models.ReviewActionPermanentBan {
			banType := models.BanTypePermanent
			var bannedUntil *time.Time
			if req.Action == models.ReviewActionTempBan {
				banType = models.BanTypeTemporary
				until := now.Add(ts.cfg.TempBanDuration)
				bannedUntil = &until
			}

			ban := &models.Ban{
				Wallet:      activity.Wallet,
				BanType:     banType,
				Reason:      "Confirmed by review: " + activity.ActivityType,
				Evidence:    models.StringArray{activity.ID.String()},
				BannedBy:    req.ReviewedBy,
				BannedUntil: bannedUntil,
				IsActive:    true,
				CreatedAt:   now,
			}
			if err := txRepo.CreateBan(ctx, ban); err != nil {
				return fmt.Errorf("failed to apply ban: %w", err)
			}
			if err := txRepo.SetPlayerBannedFlag(ctx, activity.Wallet, true); err != nil {
				return fmt.Errorf("failed to flag player statistics: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Reviewed suspicious activity %s: %s (action: %s)", activity.ID, req.Status, req.Action)
	return activity, nil
}

// BanRequest describes a manual or automatic ban
type BanRequest struct {
	Wallet      string
	BanType     models.BanType
	Reason      string
	Evidence    []string
	BannedBy    string
	BannedUntil *time.Time
}

// BanPlayer inserts a new ban row. Banning an already-banned wallet adds
// another record rather than erroring; the history is the point.
func (ts *TrustService) BanPlayer(ctx context.Context, req *BanRequest) error {
	if req.Wallet == "" || req.Reason == "" || req.BannedBy == "" {
		return errors.New("wallet, reason and banned_by are required")
	}
	if req.BanType != models.BanTypeTemporary && req.BanType != models.BanTypePermanent {
		return fmt.Errorf("invalid ban type: %s", req.BanType)
	}
	if req.BanType == models.BanTypeTemporary && req.BannedUntil == nil {
		until := time.Now().Add(ts.cfg.TempBanDuration)
		req.BannedUntil = &until
	}

	ban := &models.Ban{
		Wallet:      req.Wallet,
		BanType:     req.BanType,
		Reason:      req.Reason,
		Evidence:    models.StringArray(req.Evidence),
		BannedBy:    req.BannedBy,
		BannedUntil: req.BannedUntil,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}

	if err := ts.repo.CreateBan(ctx, ban); err != nil {
		return fmt.Errorf("failed to create ban: %w", err)
	}

	if err := ts.repo.SetPlayerBannedFlag(ctx, req.Wallet, true); err != nil {
		log.Printf("Warning: failed to flag player statistics for %s: %v", req.Wallet, err)
	}

	log.Printf("Banned player: %s (%s)", req.Wallet, req.BanType)
	return nil
}

// UnbanPlayer deactivates every active ban for a wallet and clears the
// banned cache on the trust profile
func (ts *TrustService) UnbanPlayer(ctx context.Context, wallet, reason, by string) error {
	lifted, err := ts.repo.DeactivateBans(ctx, wallet, reason, by, time.Now())
	if err != nil {
		return fmt.Errorf("failed to lift bans: %w", err)
	}

	if err := ts.repo.SetPlayerBannedFlag(ctx, wallet, false); err != nil {
		log.Printf("Warning: failed to clear banned flag for %s: %v", wallet, err)
	}

	// Restore the suspicion-derived trust score now that the ban no longer
	// pins it to zero.
	stats, err := ts.repo.GetPlayerStatistics(ctx, wallet)
	if err == nil {
		stats.IsBanned = false
		stats.TrustScore = (1 - stats.SuspicionRate) * 100
		if err := ts.repo.SavePlayerStatistics(ctx, stats); err != nil {
			log.Printf("Warning: failed to restore trust score for %s: %v", wallet, err)
		}
	}

	log.Printf("Unbanned player: %s (%d bans lifted)", wallet, lifted)
	return nil
}

// IsBanned reports whether the wallet has a currently effective ban:
// active and either permanent or not yet expired.
func (ts *TrustService) IsBanned(ctx context.Context, wallet string) (bool, error) {
	_, err := ts.repo.GetEffectiveBan(ctx, wallet, time.Now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
