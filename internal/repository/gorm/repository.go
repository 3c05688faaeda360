package gormrepository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yingkiat/swing-sage/internal/models"
	"github.com/yingkiat/swing-sage/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// conn picks the transaction handle when one is in flight.
func (s *Store) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *Store) AcquireAggregateLockTx(ctx context.Context, tx *gorm.DB, key string) error {
	if s == nil || key == "" {
		return nil
	}
	// Transaction-scoped advisory lock: released automatically at commit or
	// rollback, so concurrent upserts on the same aggregate key serialize.
	return s.conn(tx).WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}

// --- Spine ------------------------------------------------------------------

func (s *Store) InsertEventTx(ctx context.Context, tx *gorm.DB, item *models.Event) error {
	if s == nil || item == nil {
		return nil
	}
	return s.conn(tx).WithContext(ctx).Create(item).Error
}

func (s *Store) GetEventByID(ctx context.Context, eventID string) (*models.Event, error) {
	if s == nil || s.db == nil || eventID == "" {
		return nil, nil
	}
	var item models.Event
	err := s.db.WithContext(ctx).Where("event_id = ?", eventID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) applyEventFilters(query *gorm.DB, params repository.ListEventsParams) *gorm.DB {
	if params.EventKey != "" {
		query = query.Where("event_key = ?", params.EventKey)
	}
	if params.EventID != "" {
		query = query.Where("event_id = ?", params.EventID)
	}
	if params.Topic != "" {
		query = query.Where("topic = ?", params.Topic)
	}
	if len(params.Symbols) > 0 {
		query = query.Where("jsonb_exists_any(symbols, ARRAY[?])", params.Symbols)
	}
	if len(params.EventTypes) > 0 {
		query = query.Where("event_type IN ?", params.EventTypes)
	}
	if len(params.Categories) > 0 {
		query = query.Where("category IN ?", params.Categories)
	}
	if params.MinConfidence != nil {
		query = query.Where("confidence_score >= ?", *params.MinConfidence)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("ts_event >= ?", *params.Since)
	}
	if params.SessionID != "" {
		query = query.Where("session_id = ?", params.SessionID)
	}
	if len(params.CrossReferences) > 0 {
		query = query.Where("jsonb_exists_any(cross_references, ARRAY[?])", params.CrossReferences)
	}
	return query
}

func (s *Store) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.applyEventFilters(s.db.WithContext(ctx).Model(&models.Event{}), params)

	switch params.SortBy {
	case repository.SortConfidence:
		query = query.Order("confidence_score DESC, ts_event DESC")
	case repository.SortRelevance:
		// Relevance blends confidence and recency: fresher, higher-confidence
		// events first.
		query = query.Order("(confidence_score * 0.7 - EXTRACT(EPOCH FROM (NOW() - ts_event)) / 86400.0 * 0.3) DESC")
	default:
		query = query.Order("ts_event DESC")
	}

	limit := normalizeLimit(params.Limit, 10)
	offset := normalizeOffset(params.Offset)
	var items []models.Event
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountEvents(ctx context.Context, params repository.ListEventsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := s.applyEventFilters(s.db.WithContext(ctx).Model(&models.Event{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) NextSequenceNum(ctx context.Context, sessionID string) (int, error) {
	if s == nil || s.db == nil {
		return 1, nil
	}
	var next int
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(sequence_num), 0) + 1").
		Scan(&next).Error
	if err != nil {
		return 0, err
	}
	if next < 1 {
		next = 1
	}
	return next, nil
}

func (s *Store) ListEventsOrdered(ctx context.Context, limit, offset int) ([]models.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Event
	// Capture order, not ts_event order: replay must walk the spine in the
	// same order live appends ran so non-commutative ribs (the funding
	// balance chain, average cost) rebuild to the live state.
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Order("ts_recorded ASC, session_id ASC, sequence_num ASC").
		Limit(normalizeLimit(limit, 500)).
		Offset(normalizeOffset(offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Trades -----------------------------------------------------------------

func (s *Store) InsertTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error {
	if s == nil || item == nil {
		return nil
	}
	return s.conn(tx).WithContext(ctx).Create(item).Error
}

func (s *Store) GetTradeBySourceEventTx(ctx context.Context, tx *gorm.DB, eventID string) (*models.Trade, error) {
	if s == nil || eventID == "" {
		return nil, nil
	}
	var item models.Trade
	err := s.conn(tx).WithContext(ctx).Where("source_event_id = ?", eventID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTradesSince(ctx context.Context, since time.Time) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Trade{})
	if !since.IsZero() {
		query = query.Where("execution_time >= ?", since)
	}
	var items []models.Trade
	if err := query.Order("execution_time DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Positions --------------------------------------------------------------

func (s *Store) GetPositionByKeyTx(ctx context.Context, tx *gorm.DB, positionKey string) (*models.Position, error) {
	if s == nil || positionKey == "" {
		return nil, nil
	}
	var item models.Position
	err := s.conn(tx).WithContext(ctx).Where("position_key = ?", positionKey).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error {
	if s == nil || item == nil {
		return nil
	}
	return s.conn(tx).WithContext(ctx).Save(item).Error
}

func (s *Store) ListPositions(ctx context.Context) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return s.listPositions(ctx, s.db)
}

func (s *Store) ListPositionsTx(ctx context.Context, tx *gorm.DB) ([]models.Position, error) {
	if s == nil {
		return nil, nil
	}
	return s.listPositions(ctx, s.conn(tx))
}

func (s *Store) listPositions(ctx context.Context, db *gorm.DB) ([]models.Position, error) {
	var items []models.Position
	err := db.WithContext(ctx).
		Model(&models.Position{}).
		Order("last_activity DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Funding ledger ---------------------------------------------------------

func (s *Store) InsertFundingEntryTx(ctx context.Context, tx *gorm.DB, item *models.FundingEntry) error {
	if s == nil || item == nil {
		return nil
	}
	return s.conn(tx).WithContext(ctx).Create(item).Error
}

func (s *Store) GetFundingBySourceEventTx(ctx context.Context, tx *gorm.DB, eventID string) (*models.FundingEntry, error) {
	if s == nil || eventID == "" {
		return nil, nil
	}
	var item models.FundingEntry
	err := s.conn(tx).WithContext(ctx).Where("source_event_id = ?", eventID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) LatestFundingEntryTx(ctx context.Context, tx *gorm.DB) (*models.FundingEntry, error) {
	if s == nil {
		return nil, nil
	}
	var item models.FundingEntry
	// Insertion order is the balance chain: the most recently written row
	// carries the authoritative running balance even when an event arrived
	// with a backdated ts_event.
	err := s.conn(tx).WithContext(ctx).
		Order("id DESC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) LatestCashBalance(ctx context.Context) (decimal.Decimal, error) {
	if s == nil || s.db == nil {
		return decimal.Zero, nil
	}
	entry, err := s.LatestFundingEntryTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	if entry == nil {
		return decimal.Zero, nil
	}
	return entry.RunningBalance, nil
}

func (s *Store) SumFundingByType(ctx context.Context, transactionType string) (decimal.Decimal, error) {
	if s == nil || s.db == nil {
		return decimal.Zero, nil
	}
	var total decimal.Decimal
	err := s.db.WithContext(ctx).
		Model(&models.FundingEntry{}).
		Where("transaction_type = ?", transactionType).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (s *Store) ListFundingEntries(ctx context.Context, limit int) ([]models.FundingEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.FundingEntry
	err := s.db.WithContext(ctx).
		Model(&models.FundingEntry{}).
		Order("transaction_time ASC, id ASC").
		Limit(normalizeLimit(limit, 1000)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Analysis outcomes ------------------------------------------------------

func (s *Store) InsertAnalysisOutcomeTx(ctx context.Context, tx *gorm.DB, item *models.AnalysisOutcome) error {
	if s == nil || item == nil {
		return nil
	}
	return s.conn(tx).WithContext(ctx).Create(item).Error
}

func (s *Store) GetAnalysisOutcomeBySourceEventTx(ctx context.Context, tx *gorm.DB, eventID string) (*models.AnalysisOutcome, error) {
	if s == nil || eventID == "" {
		return nil, nil
	}
	var item models.AnalysisOutcome
	err := s.conn(tx).WithContext(ctx).Where("source_event_id = ?", eventID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAnalysisOutcomesBySourceEventsTx(ctx context.Context, tx *gorm.DB, eventIDs []string) ([]models.AnalysisOutcome, error) {
	if s == nil || len(eventIDs) == 0 {
		return nil, nil
	}
	var items []models.AnalysisOutcome
	err := s.conn(tx).WithContext(ctx).
		Where("source_event_id IN ?", eventIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateAnalysisOutcomeTx(ctx context.Context, tx *gorm.DB, item *models.AnalysisOutcome) error {
	if s == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.conn(tx).WithContext(ctx).
		Model(&models.AnalysisOutcome{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"outcome":       item.Outcome,
			"outcome_time":  item.OutcomeTime,
			"actual_return": item.ActualReturn,
		}).Error
}

func (s *Store) ListAnalysisOutcomesSince(ctx context.Context, since time.Time) ([]models.AnalysisOutcome, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.AnalysisOutcome{})
	if !since.IsZero() {
		query = query.Where("analysis_time >= ?", since)
	}
	var items []models.AnalysisOutcome
	if err := query.Order("analysis_time DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Portfolio snapshots ----------------------------------------------------

func (s *Store) InsertSnapshotTx(ctx context.Context, tx *gorm.DB, item *models.PortfolioSnapshot) error {
	if s == nil || item == nil {
		return nil
	}
	return s.conn(tx).WithContext(ctx).Create(item).Error
}

func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.PortfolioSnapshot{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- Rebuild ----------------------------------------------------------------

func (s *Store) TruncateRibsTx(ctx context.Context, tx *gorm.DB) error {
	if s == nil {
		return nil
	}
	return s.conn(tx).WithContext(ctx).Exec(
		"TRUNCATE TABLE v_positions, v_trades, v_funding, v_analysis_outcomes, v_portfolio_snapshots RESTART IDENTITY",
	).Error
}

// --- helpers ----------------------------------------------------------------

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
