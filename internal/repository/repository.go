package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yingkiat/swing-sage/internal/models"
)

// Sort orders accepted by ListEvents.
const (
	SortTimestamp  = "timestamp"
	SortConfidence = "confidence"
	SortRelevance  = "relevance"
)

// ListEventsParams is the spine query filter bundle. Zero values mean "no
// filter". Symbols and CrossReferences match any-overlap.
type ListEventsParams struct {
	EventKey        string
	EventID         string
	Topic           string
	Symbols         []string
	EventTypes      []string
	Categories      []string
	MinConfidence   *float64
	Since           *time.Time
	SessionID       string
	CrossReferences []string

	SortBy string
	Limit  int
	Offset int
}

// Repository is the persistence surface shared by the event store, the
// projection engine, and the read views. Tx-suffixed methods run inside the
// append transaction and take the transaction handle the engine was given.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// AcquireAggregateLockTx serializes non-commutative rib updates on an
	// aggregate key for the remainder of the transaction.
	AcquireAggregateLockTx(ctx context.Context, tx *gorm.DB, key string) error

	// Spine.
	InsertEventTx(ctx context.Context, tx *gorm.DB, item *models.Event) error
	GetEventByID(ctx context.Context, eventID string) (*models.Event, error)
	ListEvents(ctx context.Context, params ListEventsParams) ([]models.Event, error)
	CountEvents(ctx context.Context, params ListEventsParams) (int64, error)
	NextSequenceNum(ctx context.Context, sessionID string) (int, error)
	ListEventsOrdered(ctx context.Context, limit, offset int) ([]models.Event, error)

	// Trades.
	InsertTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error
	GetTradeBySourceEventTx(ctx context.Context, tx *gorm.DB, eventID string) (*models.Trade, error)
	ListTradesSince(ctx context.Context, since time.Time) ([]models.Trade, error)

	// Positions.
	GetPositionByKeyTx(ctx context.Context, tx *gorm.DB, positionKey string) (*models.Position, error)
	SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error
	ListPositions(ctx context.Context) ([]models.Position, error)
	ListPositionsTx(ctx context.Context, tx *gorm.DB) ([]models.Position, error)

	// Funding ledger.
	InsertFundingEntryTx(ctx context.Context, tx *gorm.DB, item *models.FundingEntry) error
	GetFundingBySourceEventTx(ctx context.Context, tx *gorm.DB, eventID string) (*models.FundingEntry, error)
	LatestFundingEntryTx(ctx context.Context, tx *gorm.DB) (*models.FundingEntry, error)
	LatestCashBalance(ctx context.Context) (decimal.Decimal, error)
	SumFundingByType(ctx context.Context, transactionType string) (decimal.Decimal, error)
	ListFundingEntries(ctx context.Context, limit int) ([]models.FundingEntry, error)

	// Analysis outcomes.
	InsertAnalysisOutcomeTx(ctx context.Context, tx *gorm.DB, item *models.AnalysisOutcome) error
	GetAnalysisOutcomeBySourceEventTx(ctx context.Context, tx *gorm.DB, eventID string) (*models.AnalysisOutcome, error)
	ListAnalysisOutcomesBySourceEventsTx(ctx context.Context, tx *gorm.DB, eventIDs []string) ([]models.AnalysisOutcome, error)
	UpdateAnalysisOutcomeTx(ctx context.Context, tx *gorm.DB, item *models.AnalysisOutcome) error
	ListAnalysisOutcomesSince(ctx context.Context, since time.Time) ([]models.AnalysisOutcome, error)

	// Portfolio snapshots.
	InsertSnapshotTx(ctx context.Context, tx *gorm.DB, item *models.PortfolioSnapshot) error
	CountSnapshots(ctx context.Context) (int64, error)

	// TruncateRibsTx clears all rib tables ahead of a replay. The spine is
	// never touched.
	TruncateRibsTx(ctx context.Context, tx *gorm.DB) error
}
