package database

import (
	"fmt"
	"log"

	"arcade-arena/internal/config"
	"arcade-arena/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	// Core player models first
	coreModels := []interface{}{
		&models.User{},
		&models.GameSession{},
		&models.PlayerStatistics{},
	}

	for _, model := range coreModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Monitoring models
	monitoringModels := []interface{}{
		&models.DetectionRule{},
		&models.SuspiciousActivity{},
		&models.Ban{},
	}

	for _, model := range monitoringModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Tournament and settlement models
	settlementModels := []interface{}{
		&models.Tournament{},
		&models.TournamentParticipant{},
		&models.PendingPayout{},
		&models.Transaction{},
	}

	for _, model := range settlementModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Admin models
	adminModels := []interface{}{
		&models.AdminUser{},
	}

	for _, model := range adminModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// SeedDetectionRules inserts the default detection rules if they do not
// exist yet. Existing rows are left untouched so admin tuning survives
// restarts.
func SeedDetectionRules(cfg config.MonitoringConfig) error {
	return SeedDetectionRulesOn(DB, cfg)
}

// SeedDetectionRulesOn seeds rules on an explicit database handle (used by
// tests running against sqlite).
func SeedDetectionRulesOn(db *gorm.DB, cfg config.MonitoringConfig) error {
	rules := []models.DetectionRule{
		{
			RuleName:        models.RuleImpossibleScore,
			Description:     "Score exceeds the per-game maximum any human could reach",
			Severity:        models.SeverityCritical,
			IsActive:        true,
			AutoFlag:        true,
			AutoBan:         true,
			MaxScorePerGame: cfg.MaxScorePerGame,
		},
		{
			RuleName:          models.RuleBotSpeed,
			Description:       "Input rate or reaction time outside human range",
			Severity:          models.SeverityHigh,
			IsActive:          true,
			AutoFlag:          true,
			MaxMovesPerMinute: cfg.MaxMovesPerMinute,
			MinReactionTimeMs: cfg.MinReactionTimeMs,
		},
		{
			RuleName:              models.RulePerfectGameplay,
			Description:           "Long zero-mistake runs at near-perfect accuracy",
			Severity:              models.SeverityMedium,
			IsActive:              true,
			AutoFlag:              true,
			PerfectMovesThreshold: cfg.PerfectMovesThreshold,
			ZeroMistakesThreshold: cfg.ZeroMistakesThreshold,
		},
		{
			RuleName:    models.RuleScoreAnomaly,
			Description: "Score far above the player's historical average",
			Severity:    models.SeverityLow,
			IsActive:    true,
			AutoFlag:    true,
		},
		{
			RuleName:            models.RuleSessionAnomaly,
			Description:         "Too many sessions recorded within one hour",
			Severity:            models.SeverityLow,
			IsActive:            true,
			AutoFlag:            true,
			SessionCountPerHour: cfg.SessionCountPerHour,
		},
	}

	for i := range rules {
		err := db.Where("rule_name = ?", rules[i].RuleName).
			FirstOrCreate(&rules[i]).Error
		if err != nil {
			return fmt.Errorf("failed to seed rule %s: %w", rules[i].RuleName, err)
		}
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
