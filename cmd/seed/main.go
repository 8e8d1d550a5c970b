package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/ymatsuda/member-api/config"
	"github.com/ymatsuda/member-api/internal/domain/entity"
	"github.com/ymatsuda/member-api/pkg/helpers"
)

// Seeds a verified demo user with a credential account and one sample post.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "demo@example.com"
	password := "password123"
	name := "Demo User"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now()
	userID := uuid.NewString()
	var id string
	err = db.QueryRow(`
		INSERT INTO users (id, name, email, email_verified, image, created_at, updated_at)
		VALUES ($1, $2, $3, true, '', $4, $4)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		RETURNING id
	`, userID, name, email, now).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}

	if _, err := db.Exec(`
		INSERT INTO accounts (id, user_id, account_id, provider_id, password, created_at, updated_at)
		VALUES ($1, $2, $2, $3, $4, $5, $5)
		ON CONFLICT (provider_id, account_id) DO UPDATE SET password = EXCLUDED.password, updated_at = EXCLUDED.updated_at
	`, uuid.NewString(), id, entity.ProviderCredential, hash, now); err != nil {
		log.Fatalf("failed to seed credential account: %v", err)
	}

	if _, err := db.Exec(`
		INSERT INTO posts (user_id, title, content, published, created_at, updated_at)
		VALUES ($1, $2, $3, true, $4, $4)
	`, id, "Hello world", "First seeded post.", now); err != nil {
		log.Fatalf("failed to seed post: %v", err)
	}

	fmt.Printf("seeded user: id=%s email=%s password=%s\n", id, email, password)
}
