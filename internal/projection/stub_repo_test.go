package projection

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yingkiat/swing-sage/internal/models"
	"github.com/yingkiat/swing-sage/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// It keeps rib state in slices and maps so projection rules can be exercised
// without postgres.
type stubRepo struct {
	events    []models.Event
	trades    []models.Trade
	positions map[string]*models.Position
	funding   []models.FundingEntry
	outcomes  []models.AnalysisOutcome
	snapshots []models.PortfolioSnapshot
	truncates int
}

func newStubRepo() *stubRepo {
	return &stubRepo{positions: map[string]*models.Position{}}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) AcquireAggregateLockTx(ctx context.Context, tx *gorm.DB, key string) error {
	return nil
}

func (s *stubRepo) InsertEventTx(ctx context.Context, tx *gorm.DB, item *models.Event) error {
	for _, ev := range s.events {
		if ev.SessionID == item.SessionID && ev.SequenceNum == item.SequenceNum {
			return gorm.ErrDuplicatedKey
		}
	}
	s.events = append(s.events, *item)
	return nil
}

func (s *stubRepo) GetEventByID(ctx context.Context, eventID string) (*models.Event, error) {
	for i := range s.events {
		if s.events[i].EventID == eventID {
			ev := s.events[i]
			return &ev, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.Event, error) {
	return nil, nil
}

func (s *stubRepo) CountEvents(ctx context.Context, params repository.ListEventsParams) (int64, error) {
	return 0, nil
}

func (s *stubRepo) NextSequenceNum(ctx context.Context, sessionID string) (int, error) {
	max := 0
	for _, ev := range s.events {
		if ev.SessionID == sessionID && ev.SequenceNum > max {
			max = ev.SequenceNum
		}
	}
	return max + 1, nil
}

func (s *stubRepo) ListEventsOrdered(ctx context.Context, limit, offset int) ([]models.Event, error) {
	ordered := make([]models.Event, len(s.events))
	copy(ordered, s.events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].TsRecorded.Equal(ordered[j].TsRecorded) {
			return ordered[i].TsRecorded.Before(ordered[j].TsRecorded)
		}
		if ordered[i].SessionID != ordered[j].SessionID {
			return ordered[i].SessionID < ordered[j].SessionID
		}
		return ordered[i].SequenceNum < ordered[j].SequenceNum
	})
	if offset >= len(ordered) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(ordered) {
		end = len(ordered)
	}
	return ordered[offset:end], nil
}

func (s *stubRepo) InsertTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error {
	item.ID = uint64(len(s.trades) + 1)
	s.trades = append(s.trades, *item)
	return nil
}

func (s *stubRepo) GetTradeBySourceEventTx(ctx context.Context, tx *gorm.DB, eventID string) (*models.Trade, error) {
	for i := range s.trades {
		if s.trades[i].SourceEventID == eventID {
			t := s.trades[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListTradesSince(ctx context.Context, since time.Time) ([]models.Trade, error) {
	var out []models.Trade
	for _, t := range s.trades {
		if !t.ExecutionTime.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubRepo) GetPositionByKeyTx(ctx context.Context, tx *gorm.DB, positionKey string) (*models.Position, error) {
	if pos, ok := s.positions[positionKey]; ok {
		cp := *pos
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error {
	cp := *item
	s.positions[item.PositionKey] = &cp
	return nil
}

func (s *stubRepo) ListPositions(ctx context.Context) ([]models.Position, error) {
	return s.ListPositionsTx(ctx, nil)
}

func (s *stubRepo) ListPositionsTx(ctx context.Context, tx *gorm.DB) ([]models.Position, error) {
	var out []models.Position
	for _, pos := range s.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PositionKey < out[j].PositionKey })
	return out, nil
}

func (s *stubRepo) InsertFundingEntryTx(ctx context.Context, tx *gorm.DB, item *models.FundingEntry) error {
	item.ID = uint64(len(s.funding) + 1)
	s.funding = append(s.funding, *item)
	return nil
}

func (s *stubRepo) GetFundingBySourceEventTx(ctx context.Context, tx *gorm.DB, eventID string) (*models.FundingEntry, error) {
	for i := range s.funding {
		if s.funding[i].SourceEventID == eventID {
			f := s.funding[i]
			return &f, nil
		}
	}
	return nil, nil
}

// LatestFundingEntryTx mirrors the postgres ORDER BY id DESC: the highest id
// carries the authoritative running balance.
func (s *stubRepo) LatestFundingEntryTx(ctx context.Context, tx *gorm.DB) (*models.FundingEntry, error) {
	var latest *models.FundingEntry
	for i := range s.funding {
		if latest == nil || s.funding[i].ID > latest.ID {
			latest = &s.funding[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	f := *latest
	return &f, nil
}

func (s *stubRepo) LatestCashBalance(ctx context.Context) (decimal.Decimal, error) {
	if len(s.funding) == 0 {
		return decimal.Zero, nil
	}
	return s.funding[len(s.funding)-1].RunningBalance, nil
}

func (s *stubRepo) SumFundingByType(ctx context.Context, transactionType string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, f := range s.funding {
		if f.TransactionType == transactionType {
			sum = sum.Add(f.Amount)
		}
	}
	return sum, nil
}

func (s *stubRepo) ListFundingEntries(ctx context.Context, limit int) ([]models.FundingEntry, error) {
	out := make([]models.FundingEntry, len(s.funding))
	copy(out, s.funding)
	if limit > 0 && limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *stubRepo) InsertAnalysisOutcomeTx(ctx context.Context, tx *gorm.DB, item *models.AnalysisOutcome) error {
	item.ID = uint64(len(s.outcomes) + 1)
	s.outcomes = append(s.outcomes, *item)
	return nil
}

func (s *stubRepo) GetAnalysisOutcomeBySourceEventTx(ctx context.Context, tx *gorm.DB, eventID string) (*models.AnalysisOutcome, error) {
	for i := range s.outcomes {
		if s.outcomes[i].SourceEventID == eventID {
			o := s.outcomes[i]
			return &o, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListAnalysisOutcomesBySourceEventsTx(ctx context.Context, tx *gorm.DB, eventIDs []string) ([]models.AnalysisOutcome, error) {
	var out []models.AnalysisOutcome
	for _, o := range s.outcomes {
		for _, id := range eventIDs {
			if o.SourceEventID == id {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

func (s *stubRepo) UpdateAnalysisOutcomeTx(ctx context.Context, tx *gorm.DB, item *models.AnalysisOutcome) error {
	for i := range s.outcomes {
		if s.outcomes[i].ID == item.ID {
			s.outcomes[i] = *item
			return nil
		}
	}
	return nil
}

func (s *stubRepo) ListAnalysisOutcomesSince(ctx context.Context, since time.Time) ([]models.AnalysisOutcome, error) {
	var out []models.AnalysisOutcome
	for _, o := range s.outcomes {
		if !o.AnalysisTime.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertSnapshotTx(ctx context.Context, tx *gorm.DB, item *models.PortfolioSnapshot) error {
	item.ID = uint64(len(s.snapshots) + 1)
	s.snapshots = append(s.snapshots, *item)
	return nil
}

func (s *stubRepo) CountSnapshots(ctx context.Context) (int64, error) {
	return int64(len(s.snapshots)), nil
}

func (s *stubRepo) TruncateRibsTx(ctx context.Context, tx *gorm.DB) error {
	s.truncates++
	s.trades = nil
	s.positions = map[string]*models.Position{}
	s.funding = nil
	s.outcomes = nil
	s.snapshots = nil
	return nil
}
