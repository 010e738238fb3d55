package main

import (
	"log"
	"os"

	"notebook-sources-be/internal/model"
	"notebook-sources-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. Extensions GORM AutoMigrate does not create
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto extension: %v. Continuing...", err)
	}

	// 4. AutoMigrate (sources.notebook_id gets an ON DELETE CASCADE foreign key)
	log.Println("Running AutoMigrate for notebooks and sources...")
	if err := db.AutoMigrate(&model.Notebook{}, &model.Source{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Listing index for newest-first reads per notebook
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_sources_notebook_created ON sources (notebook_id, created_at DESC);`).Error; err != nil {
		log.Fatalf("Error: Failed to create sources index: %v", err)
	}

	log.Println("Migration completed successfully")
}
