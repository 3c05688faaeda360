package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	InstrumentEquity = "equity"
	InstrumentOption = "option"
)

// Position is a rib: one row per (symbol, instrument, strike, expiration,
// option type), merged on every trade that touches the key. Rows are never
// deleted; quantity may return to zero.
type Position struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	// PositionKey is the canonical aggregate key the upsert serializes on.
	PositionKey string `gorm:"type:varchar(200);not null;uniqueIndex"`

	Symbol         string           `gorm:"type:varchar(20);not null;index"`
	InstrumentType string           `gorm:"type:varchar(10);not null"`
	Strike         *decimal.Decimal `gorm:"type:numeric(20,10)"`
	Expiration     *string          `gorm:"type:varchar(20)"`
	OptionType     *string          `gorm:"type:varchar(10)"`

	Quantity      decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	AvgCost       decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`
	CurrentValue  decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	UnrealizedPnL decimal.Decimal `gorm:"column:unrealized_pnl;type:numeric(30,10);not null;default:0"`

	FirstEntry   time.Time `gorm:"type:timestamptz;not null"`
	LastActivity time.Time `gorm:"type:timestamptz;not null;index"`

	// SourceEvents lists every spine event id that contributed to this row.
	SourceEvents datatypes.JSON `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Position) TableName() string {
	return "v_positions"
}

// PositionKeyFor builds the canonical aggregate key for a contract. Empty
// option fields collapse so equity keys stay short and stable.
func PositionKeyFor(symbol, instrumentType string, strike *decimal.Decimal, expiration, optionType string) string {
	parts := []string{
		strings.ToUpper(strings.TrimSpace(symbol)),
		strings.ToLower(strings.TrimSpace(instrumentType)),
	}
	if strike != nil {
		parts = append(parts, strike.String())
	} else {
		parts = append(parts, "")
	}
	parts = append(parts, strings.TrimSpace(expiration), strings.ToLower(strings.TrimSpace(optionType)))
	return strings.Join(parts, "|")
}
