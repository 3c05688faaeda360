package db

import (
	"github.com/yingkiat/swing-sage/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Event{},
		&models.Position{},
		&models.Trade{},
		&models.FundingEntry{},
		&models.AnalysisOutcome{},
		&models.PortfolioSnapshot{},
	)
}
