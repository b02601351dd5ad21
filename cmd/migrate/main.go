package main

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq"

	"arcade-arena/internal/config"
)

// Applies a raw SQL migration file. AutoMigrate covers schema creation; this
// tool exists for one-off data fixes and index changes that gorm cannot
// express.
//
//	go run ./cmd/migrate migrations/001_payout_indexes.sql
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <path-to-sql-file>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	sqlBytes, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read migration file: %v", err)
	}

	log.Printf("Applying migration: %s", os.Args[1])
	if _, err := db.Exec(string(sqlBytes)); err != nil {
		log.Fatalf("Failed to apply migration: %v", err)
	}

	log.Println("Migration applied successfully")
}
