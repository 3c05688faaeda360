package models

import (
	"time"

	"gorm.io/datatypes"
)

// Event types form a closed set; Append rejects anything else.
const (
	EventTypeAnalysis    = "analysis"
	EventTypeProposal    = "proposal"
	EventTypeInsight     = "insight"
	EventTypeObservation = "observation"
)

// ValidEventType reports whether t belongs to the closed event-type set.
func ValidEventType(t string) bool {
	switch t {
	case EventTypeAnalysis, EventTypeProposal, EventTypeInsight, EventTypeObservation:
		return true
	}
	return false
}

// Event is a spine record: immutable once written, never updated or deleted.
// Every rib row is derived from one or more of these and must be
// reconstructable by replaying them in order.
type Event struct {
	EventID string `gorm:"primaryKey;type:uuid"`

	TsEvent    time.Time `gorm:"type:timestamptz;not null;index"`
	TsRecorded time.Time `gorm:"type:timestamptz;not null"`

	EventType string `gorm:"type:varchar(20);not null;index"`
	Category  string `gorm:"type:varchar(50);not null;index"`

	SessionID   string `gorm:"type:varchar(100);not null;uniqueIndex:idx_session_sequence,priority:1"`
	SequenceNum int    `gorm:"not null;uniqueIndex:idx_session_sequence,priority:2"`

	Topic   string         `gorm:"type:varchar(100);index"`
	Symbols datatypes.JSON `gorm:"type:jsonb"`

	ConfidenceScore float64 `gorm:"type:numeric(4,3);not null;index"`

	Payload         datatypes.JSON `gorm:"type:jsonb;not null"`
	CrossReferences datatypes.JSON `gorm:"type:jsonb"`

	EventKey string `gorm:"type:text;not null;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Event) TableName() string {
	return "events"
}
