// Package bootstrap wires shared process startup: database and Redis
// connections, the optional development admin account, demo seeding, and
// the task handler registrations used by both the API and worker binaries.
package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemo bool
}

// InitRuntime connects to the database and Redis and optionally seeds demo
// data. Redis being unreachable is not fatal: the returned client is nil and
// dependents fall back to their degraded modes.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	if opts.SeedDemo {
		if err := seed.Run(db, seed.DefaultOptions()); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// ensureDevAdmin creates or repairs the local admin account. It only acts in
// development and only when DEV_ADMIN_PASSWORD is set.
func ensureDevAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || cfg.DevAdminPassword == "" {
		return nil
	}

	username := strings.TrimSpace(cfg.DevAdminUsername)
	if username == "" {
		username = "admin"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevAdminEmail))
	if email == "" {
		email = "admin@quill.local"
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.DevAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var admin models.User
		findErr := tx.Where("email = ?", email).First(&admin).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			admin = models.User{
				Username: username,
				Email:    email,
				Password: string(hashed),
				IsActive: true,
				IsStaff:  true,
				IsAdmin:  true,
			}
			if err := tx.Create(&admin).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.Profile{UserID: admin.ID}).Error; err != nil {
				return err
			}
			return tx.Create(&models.PopularityMetrics{UserID: admin.ID}).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&models.User{}).Where("id = ?", admin.ID).Updates(map[string]any{
				"is_active": true,
				"is_staff":  true,
				"is_admin":  true,
				"password":  string(hashed),
			}).Error
		}
	}); err != nil {
		return err
	}

	log.Printf("development admin account ensured (%s)", email)
	return nil
}
