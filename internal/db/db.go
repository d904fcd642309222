package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return gdb, nil
}

// activeProposalIndex backs the one-live-proposal-per-freelancer rule; withdrawn
// proposals do not occupy the slot.
const activeProposalIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_proposals_active
	ON proposals (project_id, freelancer_id) WHERE status <> 'withdrawn'`

// at most one accepted proposal per project
const acceptedProposalIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_proposals_accepted
	ON proposals (project_id) WHERE status = 'accepted'`

func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.User{},
		&models.FreelancerProfile{},
		&models.Project{},
		&models.Proposal{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	for _, stmt := range []string{activeProposalIndex, acceptedProposalIndex} {
		if err := gdb.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
