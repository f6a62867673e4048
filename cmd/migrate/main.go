package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"committee-live/config"
	"committee-live/internal/repository"
	"committee-live/internal/services"
	"committee-live/pkg/database"

	"gorm.io/gorm"
)

const usage = `
Committee Live - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Create or update all tables
  status      Show database connection status and row counts
  seed-dev    Seed a development group and print member tokens
  truncate    Delete all rows (DANGEROUS)

Flags:
  -group string      Group id used by seed-dev (default "dev-group")
  -event string      Event name used by seed-dev (default "Plenary session")
  -timezone string   Event timezone used by seed-dev (default "America/New_York")

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go seed-dev -group wg-11
  go run cmd/migrate/main.go status
`

func main() {
	defaults := database.DefaultSeedConfig()
	groupID := flag.String("group", defaults.GroupID, "Group id used by seed-dev")
	eventName := flag.String("event", defaults.EventName, "Event name used by seed-dev")
	timezone := flag.String("timezone", defaults.Timezone, "Event timezone used by seed-dev")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	switch command {
	case "up":
		runMigrationsUp(db)
	case "status":
		showStatus(db)
	case "seed-dev":
		runSeedDevelopment(db, cfg, &database.SeedConfig{
			GroupID:   *groupID,
			EventName: *eventName,
			Timezone:  *timezone,
		})
	case "truncate":
		runTruncate(db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(db *gorm.DB) {
	log.Println("🚀 Running migrations UP...")

	if err := repository.InitSchema(db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}

func showStatus(db *gorm.DB) {
	log.Println("🔍 Checking database status...")

	if err := database.HealthCheck(context.Background(), db); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	for _, model := range repository.Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			log.Printf("⚠️  Error resolving table for %T: %v", model, err)
			continue
		}
		table := stmt.Schema.Table
		if !db.Migrator().HasTable(model) {
			log.Printf("❌ Table %-20s does not exist", table)
			continue
		}
		var count int64
		if err := db.Model(model).Count(&count).Error; err != nil {
			log.Printf("⚠️  Error counting %s: %v", table, err)
			continue
		}
		log.Printf("✅ Table %-20s exists (%d rows)", table, count)
	}
}

func runSeedDevelopment(db *gorm.DB, cfg *config.Config, seedCfg *database.SeedConfig) {
	log.Println("🌱 Seeding database (development mode)...")

	if err := repository.InitSchema(db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	result, err := database.Seed(context.Background(), db, seedCfg)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	tokens := services.NewTokenService(cfg)

	log.Println("📊 Seed Summary:")
	log.Printf("   - Group: %s", seedCfg.GroupID)
	log.Printf("   - Event: %s (%s)", result.Event.Name, result.Event.ID)
	log.Printf("   - Polls: %d", len(result.Polls))
	log.Printf("   - Members: %d", len(result.Members))
	for _, m := range result.Members {
		token, _, err := tokens.IssueAccessToken(m.SAPIN, m.Name)
		if err != nil {
			log.Fatalf("❌ Failed to issue token for %d: %v", m.SAPIN, err)
		}
		log.Printf("     %d %-10s %-14s %-10s %s", m.SAPIN, m.Name, m.Status, m.AccessLevel, token)
	}
	log.Println("✅ Development seeding completed!")
}

func runTruncate(db *gorm.DB) {
	log.Println("⚠️  WARNING: This will TRUNCATE all tables!")

	if err := repository.Truncate(db); err != nil {
		log.Fatalf("❌ Truncate failed: %v", err)
	}

	log.Println("✅ All tables truncated!")
}
