package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionDeposit    = "DEPOSIT"
	TransactionWithdrawal = "WITHDRAWAL"
	TransactionTrade      = "TRADE"
)

// FundingEntry is a rib: an append-only cash ledger row. RunningBalance is a
// strict function of chronological order: balance[n] = balance[n-1] + amount[n].
type FundingEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	TransactionType string `gorm:"type:varchar(20);not null;index"`

	// Amount is the signed delta applied to the balance. Withdrawals and
	// trade debits are negative.
	Amount         decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	RunningBalance decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	TransactionTime time.Time `gorm:"type:timestamptz;not null;index"`
	Description     string    `gorm:"type:text"`

	SourceEventID string `gorm:"type:uuid;not null;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (FundingEntry) TableName() string {
	return "v_funding"
}
