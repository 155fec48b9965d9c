package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/skilledgame/backend/internal/config"
	"github.com/skilledgame/backend/internal/database"
)

// Seeds a privileged support player. Privileged accounts bypass balance
// pre-checks and are exempt from wager-lock debits; they exist for testing
// and support, never for normal play.
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	name := os.Getenv("SUPPORT_DISPLAY_NAME")
	if name == "" {
		name = "Skilled Support"
	}

	code := os.Getenv("SUPPORT_ACCESS_CODE")
	if code == "" {
		code = "change-me-in-production"
		log.Printf("WARNING: Using default support code. Set SUPPORT_ACCESS_CODE in production!")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash support code: %v", err)
	}

	var id int
	err = db.QueryRowx(`
		INSERT INTO players (display_name, skilled_coins, is_privileged, support_code_hash, created_at)
		VALUES ($1, 0, TRUE, $2, NOW())
		RETURNING id
	`, name, string(hash)).Scan(&id)
	if err != nil {
		log.Fatalf("Failed to create support player: %v", err)
	}

	log.Printf("Support player created")
	log.Printf("  ID: %d", id)
	log.Printf("  Display Name: %s", name)
	log.Println("\nExchange the access code for a privileged token at /api/v1/support/login")
}
