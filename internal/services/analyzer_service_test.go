package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"arcade-arena/internal/config"
	"arcade-arena/internal/database"
	"arcade-arena/internal/models"
	"arcade-arena/internal/repository"

	"github.com/google/uuid"
)

// setupTestDB opens a named in-memory sqlite database. The name keeps each
// test's database isolated while cache=shared lets gorm's connection pool
// see the same data.
func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.GameSession{},
		&models.PlayerStatistics{},
		&models.DetectionRule{},
		&models.SuspiciousActivity{},
		&models.Ban{},
		&models.Tournament{},
		&models.TournamentParticipant{},
		&models.PendingPayout{},
		&models.Transaction{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	if err := database.SeedDetectionRulesOn(db, testMonitoringConfig()); err != nil {
		t.Fatalf("failed to seed rules: %v", err)
	}

	return db
}

func testMonitoringConfig() config.MonitoringConfig {
	return config.MonitoringConfig{
		MaxScorePerGame:       1000000,
		MaxMovesPerMinute:     300,
		MinReactionTimeMs:     150,
		PerfectMovesThreshold: 0.95,
		ZeroMistakesThreshold: 50,
		SessionCountPerHour:   20,
		TempBanDuration:       7 * 24 * time.Hour,
		AutoBanScoreThreshold: 80,
	}
}

func testPayoutConfig() config.PayoutConfig {
	return config.PayoutConfig{
		Interval:           30 * time.Second,
		BatchSize:          10,
		MaxAttempts:        3,
		JobDelay:           time.Millisecond,
		ExecutorTimeout:    5 * time.Second,
		PlatformFeePercent: 5,
		MinPayoutThreshold: 10,
		DisputeWindow:      0,
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func testSession(wallet string, score int64) *models.GameSession {
	return &models.GameSession{
		ID:              uuid.New(),
		Wallet:          wallet,
		GameName:        "neon-runner",
		Score:           score,
		DurationSeconds: 120,
		EndTime:         time.Now(),
		CreatedAt:       time.Now(),
	}
}

func TestAnalyzeImpossibleScore(t *testing.T) {
	db := setupTestDB(t)
	analyzer := NewAnalyzerService(repository.NewRepository(db), testMonitoringConfig())

	session := testSession("wallet_imp", 2000000)
	verdict, err := analyzer.Analyze(context.Background(), session)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !verdict.IsSuspicious {
		t.Error("expected session to be suspicious")
	}
	if verdict.SuspicionScore != 50 {
		t.Errorf("expected suspicion score 50, got %d", verdict.SuspicionScore)
	}
	if verdict.Severity != models.SeverityCritical {
		t.Errorf("expected critical severity, got %s", verdict.Severity)
	}
	if !verdict.ShouldBan {
		t.Error("expected critical verdict to trigger ban")
	}
	if len(verdict.FlaggedReasons) != 1 || verdict.FlaggedReasons[0] != models.ReasonImpossibleScore {
		t.Errorf("unexpected reasons: %v", verdict.FlaggedReasons)
	}
}

func TestAnalyzeBotSpeed(t *testing.T) {
	db := setupTestDB(t)
	analyzer := NewAnalyzerService(repository.NewRepository(db), testMonitoringConfig())

	session := testSession("wallet_bot", 5000)
	session.MovesPerMinute = floatPtr(400)
	session.AverageReactionTime = floatPtr(50)

	verdict, err := analyzer.Analyze(context.Background(), session)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !verdict.IsSuspicious {
		t.Error("expected session to be suspicious")
	}
	// 30 for input rate + 25 for reaction time
	if verdict.SuspicionScore != 55 {
		t.Errorf("expected suspicion score 55, got %d", verdict.SuspicionScore)
	}
	if verdict.Severity != models.SeverityHigh {
		t.Errorf("expected high severity, got %s", verdict.Severity)
	}
	if verdict.ShouldBan {
		t.Error("score 55 must not trigger an automatic ban")
	}

	wantReasons := []string{models.ReasonBotSpeedHigh, models.ReasonReactionTimeTooFast}
	if len(verdict.FlaggedReasons) != len(wantReasons) {
		t.Fatalf("expected reasons %v, got %v", wantReasons, verdict.FlaggedReasons)
	}
	for i, want := range wantReasons {
		if verdict.FlaggedReasons[i] != want {
			t.Errorf("reason %d: expected %s, got %s", i, want, verdict.FlaggedReasons[i])
		}
	}
}

func TestAnalyzeAutoBanThresholdConfigurable(t *testing.T) {
	db := setupTestDB(t)
	cfg := testMonitoringConfig()
	cfg.AutoBanScoreThreshold = 50
	analyzer := NewAnalyzerService(repository.NewRepository(db), cfg)

	session := testSession("wallet_thresh", 5000)
	session.MovesPerMinute = floatPtr(400)
	session.AverageReactionTime = floatPtr(50)

	verdict, err := analyzer.Analyze(context.Background(), session)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if verdict.SuspicionScore != 55 {
		t.Errorf("expected suspicion score 55, got %d", verdict.SuspicionScore)
	}
	if !verdict.ShouldBan {
		t.Error("score 55 must trigger a ban once the threshold is lowered to 50")
	}
}

func TestAnalyzeCleanSession(t *testing.T) {
	db := setupTestDB(t)
	analyzer := NewAnalyzerService(repository.NewRepository(db), testMonitoringConfig())

	session := testSession("wallet_clean", 5000)
	session.MovesPerMinute = floatPtr(120)
	session.AverageReactionTime = floatPtr(350)
	session.PerfectMoves = intPtr(40)
	session.Mistakes = intPtr(12)

	verdict, err := analyzer.Analyze(context.Background(), session)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if verdict.IsSuspicious {
		t.Errorf("expected clean verdict, got score=%d reasons=%v", verdict.SuspicionScore, verdict.FlaggedReasons)
	}
	if verdict.SuspicionScore != 0 {
		t.Errorf("expected suspicion score 0, got %d", verdict.SuspicionScore)
	}
	if verdict.ShouldBan {
		t.Error("clean session must not trigger a ban")
	}
}

func TestAnalyzeMissingMetricsSkipsBotSpeed(t *testing.T) {
	db := setupTestDB(t)
	analyzer := NewAnalyzerService(repository.NewRepository(db), testMonitoringConfig())

	// Reaction time alone is not enough for the bot speed rule
	session := testSession("wallet_partial", 5000)
	session.AverageReactionTime = floatPtr(10)

	verdict, err := analyzer.Analyze(context.Background(), session)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if verdict.IsSuspicious {
		t.Errorf("expected clean verdict without both metrics, got %v", verdict.FlaggedReasons)
	}
}

func TestAnalyzePerfectGameplay(t *testing.T) {
	db := setupTestDB(t)
	analyzer := NewAnalyzerService(repository.NewRepository(db), testMonitoringConfig())

	session := testSession("wallet_perfect", 9000)
	session.PerfectMoves = intPtr(120)
	session.Mistakes = intPtr(0)

	verdict, err := analyzer.Analyze(context.Background(), session)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !verdict.IsSuspicious {
		t.Fatal("expected long zero-mistake run to be flagged")
	}
	if verdict.SuspicionScore != 20 {
		t.Errorf("expected suspicion score 20, got %d", verdict.SuspicionScore)
	}
	if verdict.Severity != models.SeverityMedium {
		t.Errorf("expected medium severity, got %s", verdict.Severity)
	}
}

func TestAnalyzeScoreAnomaly(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	analyzer := NewAnalyzerService(repo, testMonitoringConfig())

	stats := &models.PlayerStatistics{
		Wallet:           "wallet_anomaly",
		TotalGamesPlayed: 10,
		AverageScore:     100,
		TrustScore:       100,
	}
	if err := db.Create(stats).Error; err != nil {
		t.Fatalf("failed to seed statistics: %v", err)
	}

	session := testSession("wallet_anomaly", 1000)
	verdict, err := analyzer.Analyze(context.Background(), session)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !verdict.IsSuspicious {
		t.Fatal("expected 10x average score to be flagged")
	}
	if verdict.SuspicionScore != 15 {
		t.Errorf("expected suspicion score 15, got %d", verdict.SuspicionScore)
	}

	// A new player with the same score is exempt
	fresh := testSession("wallet_fresh", 1000)
	verdict, err = analyzer.Analyze(context.Background(), fresh)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if verdict.IsSuspicious {
		t.Error("new players must not trip the score anomaly rule")
	}
}

func TestAnalyzeInactiveRuleSkipped(t *testing.T) {
	db := setupTestDB(t)
	analyzer := NewAnalyzerService(repository.NewRepository(db), testMonitoringConfig())

	err := db.Model(&models.DetectionRule{}).
		Where("rule_name = ?", models.RuleImpossibleScore).
		Update("is_active", false).Error
	if err != nil {
		t.Fatalf("failed to deactivate rule: %v", err)
	}

	session := testSession("wallet_inactive", 2000000)
	verdict, err := analyzer.Analyze(context.Background(), session)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if verdict.IsSuspicious {
		t.Errorf("deactivated rule must not fire, got %v", verdict.FlaggedReasons)
	}
	if verdict.ShouldBan {
		t.Error("no ban without a firing rule")
	}
}

func TestAnalyzeSessionAnomaly(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	analyzer := NewAnalyzerService(repo, testMonitoringConfig())

	// 21 sessions in the trailing hour pushes past the threshold of 20
	for i := 0; i < 21; i++ {
		s := testSession("wallet_grinder", int64(100+i))
		s.CreatedAt = time.Now().Add(-30 * time.Minute)
		if err := db.Create(s).Error; err != nil {
			t.Fatalf("failed to seed session: %v", err)
		}
	}

	verdict, err := analyzer.Analyze(context.Background(), testSession("wallet_grinder", 200))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !verdict.IsSuspicious {
		t.Fatal("expected excessive sessions to be flagged")
	}
	if verdict.SuspicionScore != 10 {
		t.Errorf("expected suspicion score 10, got %d", verdict.SuspicionScore)
	}
}
