package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot is a rib: a point-in-time rollup of the other ribs,
// immutable once written. Created on material funding events, deposits, and
// the scheduled snapshot job.
type PortfolioSnapshot struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	SnapshotAt time.Time `gorm:"type:timestamptz;not null;index"`

	PositionCount  int             `gorm:"not null"`
	TotalInvested  decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	CashBalance    decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	UnrealizedPnL  decimal.Decimal `gorm:"column:unrealized_pnl;type:numeric(30,10);not null"`
	NetLiquidation decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	// TriggerEventID is empty for scheduled snapshots.
	TriggerEventID string `gorm:"type:uuid;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PortfolioSnapshot) TableName() string {
	return "v_portfolio_snapshots"
}
