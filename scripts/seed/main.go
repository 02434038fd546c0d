// Command seed bootstraps the first SUPERADMIN account so the back-office
// can be reached on a fresh database.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bakurah/investors-portal-api/internal/models"
	"github.com/bakurah/investors-portal-api/internal/repository"
	"github.com/bakurah/investors-portal-api/pkg/config"
	"github.com/bakurah/investors-portal-api/pkg/database"
)

func main() {
	var (
		email    string
		password string
		fullName string
		language string
	)

	flag.StringVar(&email, "email", "", "superadmin email (required)")
	flag.StringVar(&password, "password", "", "superadmin password (required, min 8 chars)")
	flag.StringVar(&fullName, "name", "Portal Administrator", "superadmin display name")
	flag.StringVar(&language, "language", "ar", "notification language (ar or en)")
	flag.Parse()

	if email == "" || password == "" {
		flag.Usage()
		os.Exit(2)
	}
	if len(password) < 8 {
		log.Fatal("password must be at least 8 characters")
	}
	if language != "ar" && language != "en" {
		log.Fatalf("unsupported language %q", language)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users := repository.NewUserRepository(db)

	existing, err := users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Fatalf("failed to check existing user: %v", err)
	}
	if existing != nil {
		fmt.Printf("user %s already exists (role %s), nothing to do\n", email, existing.Role)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         models.RoleSuperAdmin,
		Language:     models.Language(language),
		Active:       true,
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("failed to create superadmin: %v", err)
	}

	fmt.Printf("created superadmin %s (%s)\n", email, user.ID)
}
