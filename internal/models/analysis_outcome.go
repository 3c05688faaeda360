package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OutcomePending   = "pending"
	OutcomeTargetHit = "target_hit"
	OutcomeStopHit   = "stop_hit"
)

// AnalysisOutcome is a rib: one row per analysis-type event. It is the one
// rib that is intentionally revisited after creation — a later observation or
// trade resolves Outcome, OutcomeTime, and ActualReturn; everything else is
// frozen at insert.
type AnalysisOutcome struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Topic          string  `gorm:"type:varchar(100);not null;index"`
	Recommendation string  `gorm:"type:varchar(50);not null;index"`
	Confidence     float64 `gorm:"type:numeric(4,3);not null"`

	EntryLevel  *decimal.Decimal `gorm:"type:numeric(20,10)"`
	TargetLevel *decimal.Decimal `gorm:"type:numeric(20,10)"`
	StopLevel   *decimal.Decimal `gorm:"type:numeric(20,10)"`

	Outcome      string           `gorm:"type:varchar(20);not null;default:'pending';index"`
	OutcomeTime  *time.Time       `gorm:"type:timestamptz"`
	ActualReturn *decimal.Decimal `gorm:"type:numeric(20,10)"`

	AnalysisTime  time.Time `gorm:"type:timestamptz;not null;index"`
	SourceEventID string    `gorm:"type:uuid;not null;uniqueIndex"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (AnalysisOutcome) TableName() string {
	return "v_analysis_outcomes"
}
