package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a rib: one immutable row per executed transaction, always
// referencing exactly one spine event.
type Trade struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Symbol         string           `gorm:"type:varchar(20);not null;index"`
	Side           string           `gorm:"type:varchar(10);not null"`
	InstrumentType string           `gorm:"type:varchar(10);not null"`
	Quantity       decimal.Decimal  `gorm:"type:numeric(30,10);not null"`
	Price          decimal.Decimal  `gorm:"type:numeric(20,10);not null"`
	Multiplier     decimal.Decimal  `gorm:"type:numeric(10,2);not null;default:1"`
	TotalValue     decimal.Decimal  `gorm:"type:numeric(30,10);not null"`
	Strike         *decimal.Decimal `gorm:"type:numeric(20,10)"`
	Expiration     *string          `gorm:"type:varchar(20)"`
	OptionType     *string          `gorm:"type:varchar(10)"`
	Strategy       string           `gorm:"type:varchar(50)"`

	ExecutionTime time.Time `gorm:"type:timestamptz;not null;index"`

	// SourceEventID dedupes replay: the same spine event never yields a
	// second trade row.
	SourceEventID string `gorm:"type:uuid;not null;uniqueIndex"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Trade) TableName() string {
	return "v_trades"
}
