package database

import (
	"fmt"
	"log"

	"github.com/anjiri1684/class_portal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// ledgerIndexes back the one-spend and one-refund per (student, session)
// rule at the storage layer.
var ledgerIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_spend_student_session
		ON credit_ledger_entries (student_id, related_session_id)
		WHERE kind = 'spend'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_refund_student_session
		ON credit_ledger_entries (student_id, related_session_id)
		WHERE kind = 'refund'`,
}

func ConnectDB(dsn, appEnv string) {
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel(appEnv)),
	})
	if err != nil {
		log.Fatalf("🔥 Failed to connect to database: %v", err)
	}

	fmt.Println("✅ Database connected successfully")
}

// logLevel keeps SQL quiet in tests and verbose in development.
func logLevel(appEnv string) logger.LogLevel {
	switch appEnv {
	case "test":
		return logger.Silent
	case "development":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.LedgerEntry{}); err != nil {
		return fmt.Errorf("failed to migrate ledger: %w", err)
	}
	for _, stmt := range ledgerIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create ledger index: %w", err)
		}
	}
	fmt.Println("✅ Database migration successful")
	return nil
}
