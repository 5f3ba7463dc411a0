package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campustrack/campustrack-backend/internal/config"
	"github.com/campustrack/campustrack-backend/internal/database"
	"github.com/campustrack/campustrack-backend/internal/logger"
	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/campustrack/campustrack-backend/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a demo faculty account plus a batch of students in the same
// department, all with the password "campustrack". Re-running is a no-op for
// accounts that already exist.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)

	department := "Computer Science"

	fmt.Println("=== Seeding Demo Users ===")

	hash, err := bcrypt.GenerateFromPassword([]byte("campustrack"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	faculty := &model.User{
		Email:        "faculty@campustrack.local",
		Name:         "Dr. Alice Warren",
		Role:         model.RoleFaculty,
		Department:   department,
		PasswordHash: string(hash),
	}
	if created := seedUser(ctx, userRepo, faculty); created {
		fmt.Printf("Created faculty: %s\n", faculty.Email)
	}

	names := []string{
		"Ben Okafor", "Chloe Tan", "Daniel Reyes", "Emma Lindqvist", "Farid Haddad",
		"Grace Kim", "Hugo Martinez", "Isla Murray", "Jonas Weber", "Katya Ivanova",
		"Liam O'Connor", "Mei Nakamura", "Noah Fischer", "Olivia Santos", "Priya Sharma",
		"Quentin Dubois", "Rosa Alvarez", "Samuel Adeyemi", "Tara Singh", "Viktor Horvat",
	}

	successCount := 0
	for i, name := range names {
		student := &model.User{
			Email:        fmt.Sprintf("student%d@campustrack.local", i+1),
			Name:         name,
			Role:         model.RoleStudent,
			Department:   department,
			PasswordHash: string(hash),
		}
		if created := seedUser(ctx, userRepo, student); created {
			successCount++
		}
	}

	fmt.Printf("Seeded %d new students in %s\n", successCount, department)
}

func seedUser(ctx context.Context, repo *repository.UserRepository, u *model.User) bool {
	if err := repo.Create(ctx, u); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false // already seeded
		}
		fmt.Printf("Failed to create %s: %v\n", u.Email, err)
		return false
	}
	return true
}
