package services

import (
	"context"
	"errors"
	"log"
	"time"

	"arcade-arena/internal/config"
	"arcade-arena/internal/models"
	"arcade-arena/internal/repository"

	"gorm.io/gorm"
)

// AnalyzerService evaluates completed game sessions against the active
// detection rules. Analysis itself has no side effects; persistence of the
// verdict is the TrustService's job.
type AnalyzerService struct {
	repo *repository.Repository
	cfg  config.MonitoringConfig
}

func NewAnalyzerService(repo *repository.Repository, cfg config.MonitoringConfig) *AnalyzerService {
	return &AnalyzerService{repo: repo, cfg: cfg}
}

// Analyze runs every active detection rule over one session and returns the
// combined verdict. An inactive or missing rule means "rule does not apply",
// never an error.
//
// Each firing rule overwrites the verdict severity with its own level, so
// the last rule to fire wins. That matches the long-standing scoring
// behavior admins review against; keep it unless product decides otherwise.
func (s *AnalyzerService) Analyze(ctx context.Context, session *models.GameSession) (*models.SuspicionVerdict, error) {
	verdict := &models.SuspicionVerdict{
		IsSuspicious:   false,
		SuspicionScore: 0,
		FlaggedReasons: []string{},
		Severity:       models.SeverityLow,
		ShouldBan:      false,
	}

	stats, err := s.repo.GetPlayerStatistics(ctx, session.Wallet)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	s.checkImpossibleScore(ctx, session, verdict)
	s.checkBotSpeed(ctx, session, verdict)
	s.checkPerfectGameplay(ctx, session, verdict)
	s.checkScoreAnomaly(ctx, session, stats, verdict)
	s.checkSessionAnomaly(ctx, session.Wallet, verdict)

	if verdict.SuspicionScore >= s.cfg.AutoBanScoreThreshold || verdict.Severity == models.SeverityCritical {
		verdict.ShouldBan = true
	}

	if verdict.IsSuspicious {
		log.Printf("Session analysis for %s: SUSPICIOUS score=%d severity=%s reasons=%v",
			session.Wallet, verdict.SuspicionScore, verdict.Severity, verdict.FlaggedReasons)
	}

	return verdict, nil
}

// checkImpossibleScore fires when the score exceeds the per-game ceiling
func (s *AnalyzerService) checkImpossibleScore(ctx context.Context, session *models.GameSession, verdict *models.SuspicionVerdict) {
	rule, err := s.repo.GetActiveRule(ctx, models.RuleImpossibleScore)
	if err != nil {
		return
	}

	maxScore := rule.MaxScorePerGame
	if maxScore <= 0 {
		maxScore = 1000000
	}

	if session.Score > maxScore {
		verdict.IsSuspicious = true
		verdict.SuspicionScore += 50
		verdict.FlaggedReasons = append(verdict.FlaggedReasons, models.ReasonImpossibleScore)
		verdict.Severity = models.SeverityCritical
		log.Printf("Impossible score detected: %d > %d", session.Score, maxScore)
	}
}

// checkBotSpeed fires on inhuman input rate or reaction time. Needs both
// behavioral metrics present; sessions without them are not penalized.
func (s *AnalyzerService) checkBotSpeed(ctx context.Context, session *models.GameSession, verdict *models.SuspicionVerdict) {
	rule, err := s.repo.GetActiveRule(ctx, models.RuleBotSpeed)
	if err != nil {
		return
	}

	if session.MovesPerMinute == nil || session.AverageReactionTime == nil {
		return
	}

	if *session.MovesPerMinute > rule.MaxMovesPerMinute {
		verdict.IsSuspicious = true
		verdict.SuspicionScore += 30
		verdict.FlaggedReasons = append(verdict.FlaggedReasons, models.ReasonBotSpeedHigh)
		verdict.Severity = models.SeverityHigh
		log.Printf("Bot-like speed: %.1f moves/min", *session.MovesPerMinute)
	}

	if *session.AverageReactionTime < rule.MinReactionTimeMs {
		verdict.IsSuspicious = true
		verdict.SuspicionScore += 25
		verdict.FlaggedReasons = append(verdict.FlaggedReasons, models.ReasonReactionTimeTooFast)
		verdict.Severity = models.SeverityHigh
		log.Printf("Inhuman reaction time: %.1fms", *session.AverageReactionTime)
	}
}

// checkPerfectGameplay fires on long zero-mistake runs
func (s *AnalyzerService) checkPerfectGameplay(ctx context.Context, session *models.GameSession, verdict *models.SuspicionVerdict) {
	rule, err := s.repo.GetActiveRule(ctx, models.RulePerfectGameplay)
	if err != nil {
		return
	}

	if session.PerfectMoves == nil || session.Mistakes == nil {
		return
	}

	totalMoves := *session.PerfectMoves + *session.Mistakes
	if totalMoves == 0 {
		return
	}

	perfectRate := float64(*session.PerfectMoves) / float64(totalMoves)

	if perfectRate >= rule.PerfectMovesThreshold &&
		*session.Mistakes == 0 &&
		totalMoves > rule.ZeroMistakesThreshold {
		verdict.IsSuspicious = true
		verdict.SuspicionScore += 20
		verdict.FlaggedReasons = append(verdict.FlaggedReasons, models.ReasonPerfectGameplay)
		verdict.Severity = models.SeverityMedium
		log.Printf("Suspiciously perfect: %.1f%% perfect moves over %d moves", perfectRate*100, totalMoves)
	}
}

// checkScoreAnomaly fires when the score is far above the player's own
// average. Needs at least 5 historical games; new players are exempt.
func (s *AnalyzerService) checkScoreAnomaly(ctx context.Context, session *models.GameSession, stats *models.PlayerStatistics, verdict *models.SuspicionVerdict) {
	if _, err := s.repo.GetActiveRule(ctx, models.RuleScoreAnomaly); err != nil {
		return
	}

	if stats == nil || stats.TotalGamesPlayed < 5 || stats.AverageScore <= 0 {
		return
	}

	deviation := float64(session.Score) / stats.AverageScore
	if deviation > 3.0 {
		verdict.IsSuspicious = true
		verdict.SuspicionScore += 15
		verdict.FlaggedReasons = append(verdict.FlaggedReasons, models.ReasonScoreAnomaly)
		log.Printf("Score anomaly: %d vs avg %.1f", session.Score, stats.AverageScore)
	}
}

// checkSessionAnomaly fires when a wallet records too many sessions in the
// trailing hour. The count comes from the persisted session table, so it
// survives restarts.
func (s *AnalyzerService) checkSessionAnomaly(ctx context.Context, wallet string, verdict *models.SuspicionVerdict) {
	rule, err := s.repo.GetActiveRule(ctx, models.RuleSessionAnomaly)
	if err != nil {
		return
	}

	oneHourAgo := time.Now().Add(-time.Hour)
	count, err := s.repo.CountSessionsSince(ctx, wallet, oneHourAgo)
	if err != nil {
		return
	}

	if count > int64(rule.SessionCountPerHour) {
		verdict.IsSuspicious = true
		verdict.SuspicionScore += 10
		verdict.FlaggedReasons = append(verdict.FlaggedReasons, models.ReasonExcessiveSessions)
		log.Printf("Too many games: %d in last hour for %s", count, wallet)
	}
}
