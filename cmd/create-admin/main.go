package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/cache"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/config"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/database"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/logger"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Admin creation has no offline story: write straight through the
	// gateway with a no-op cache so nothing gets queued.
	gw := gateway.NewRemote(pool, cache.NewMemoryStore(), log)
	if !gw.CheckConnectivity(ctx) {
		log.Fatal().Msg("PostgreSQL unreachable; admin accounts cannot be created offline")
	}

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Admin User ===")

	// Name
	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	existing, err := gw.Query(ctx, "users", gateway.Filters{"email": email})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to check existing users")
	}
	if len(existing) > 0 {
		fmt.Printf("Error: a user with email %s already exists\n", email)
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────

	// Hash Password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	id := uuid.New()
	rec := gateway.Record{
		"id":            id,
		"name":          name,
		"email":         email,
		"password_hash": string(hashedPassword),
		"role":          string(model.RoleAdmin),
		"stream":        "",
		"created_at":    time.Now().UTC(),
	}
	if err := gw.Upsert(ctx, "users", []gateway.Record{rec}, "email"); err != nil {
		log.Fatal().Err(err).Msg("Failed to create admin")
	}

	fmt.Printf("\nSuccess! Admin '%s' (%s) created with ID: %s\n", name, email, id)
}
