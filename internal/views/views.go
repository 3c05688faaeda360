// Package views exposes the consolidated read surfaces. Every view is a pure
// function of rib state — none of them touches the spine.
package views

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yingkiat/swing-sage/internal/models"
	"github.com/yingkiat/swing-sage/internal/repository"
)

// Config holds the read-side policy knobs.
type Config struct {
	// ConcentrationThreshold is the share of total invested value above
	// which a position counts as concentrated.
	ConcentrationThreshold decimal.Decimal
	// ActivityWindowDays bounds the recent-activity view.
	ActivityWindowDays int
	// PerformanceWindowDays bounds the analysis-performance view.
	PerformanceWindowDays int
}

type Service struct {
	Repo   repository.Repository
	Config Config
}

// PortfolioOverview is the headline rollup.
type PortfolioOverview struct {
	PositionCount         int             `json:"position_count"`
	TotalInvested         decimal.Decimal `json:"total_invested"`
	CashBalance           decimal.Decimal `json:"cash_balance"`
	UnrealizedPnL         decimal.Decimal `json:"unrealized_pnl"`
	TotalDeposits         decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals      decimal.Decimal `json:"total_withdrawals"`
	ConcentratedPositions int             `json:"concentrated_positions"`
	SnapshotCount         int64           `json:"snapshot_count"`
}

func (s *Service) PortfolioOverview(ctx context.Context) (PortfolioOverview, error) {
	positions, err := s.Repo.ListPositions(ctx)
	if err != nil {
		return PortfolioOverview{}, err
	}
	cash, err := s.Repo.LatestCashBalance(ctx)
	if err != nil {
		return PortfolioOverview{}, err
	}
	deposits, err := s.Repo.SumFundingByType(ctx, models.TransactionDeposit)
	if err != nil {
		return PortfolioOverview{}, err
	}
	withdrawals, err := s.Repo.SumFundingByType(ctx, models.TransactionWithdrawal)
	if err != nil {
		return PortfolioOverview{}, err
	}
	snapshots, err := s.Repo.CountSnapshots(ctx)
	if err != nil {
		return PortfolioOverview{}, err
	}

	overview := ComputeOverview(positions, cash, s.Config.ConcentrationThreshold)
	overview.TotalDeposits = deposits
	overview.TotalWithdrawals = withdrawals.Abs()
	overview.SnapshotCount = snapshots
	return overview, nil
}

// ComputeOverview aggregates open positions and cash. Exported separately so
// the arithmetic is testable without storage.
func ComputeOverview(positions []models.Position, cash decimal.Decimal, concentration decimal.Decimal) PortfolioOverview {
	overview := PortfolioOverview{
		CashBalance:   cash,
		TotalInvested: decimal.Zero,
		UnrealizedPnL: decimal.Zero,
	}
	open := make([]models.Position, 0, len(positions))
	for _, pos := range positions {
		if pos.Quantity.IsZero() {
			continue
		}
		open = append(open, pos)
		overview.PositionCount++
		overview.TotalInvested = overview.TotalInvested.Add(pos.CurrentValue)
		overview.UnrealizedPnL = overview.UnrealizedPnL.Add(pos.UnrealizedPnL)
	}
	if overview.TotalInvested.IsPositive() && concentration.IsPositive() {
		cutoff := overview.TotalInvested.Mul(concentration)
		for _, pos := range open {
			if pos.CurrentValue.GreaterThan(cutoff) {
				overview.ConcentratedPositions++
			}
		}
	}
	return overview
}

// SymbolActivity is one row of the recent-activity view.
type SymbolActivity struct {
	Symbol          string          `json:"symbol"`
	TradeCount      int             `json:"trade_count"`
	Volume          decimal.Decimal `json:"volume"`
	PortfolioWeight decimal.Decimal `json:"portfolio_weight"`
}

func (s *Service) RecentActivity(ctx context.Context) ([]SymbolActivity, error) {
	days := s.Config.ActivityWindowDays
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	trades, err := s.Repo.ListTradesSince(ctx, since)
	if err != nil {
		return nil, err
	}
	positions, err := s.Repo.ListPositions(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeActivity(trades, positions), nil
}

// ComputeActivity groups trailing trades per symbol and joins the symbol's
// current weight in the invested portfolio.
func ComputeActivity(trades []models.Trade, positions []models.Position) []SymbolActivity {
	totalInvested := decimal.Zero
	investedBySymbol := map[string]decimal.Decimal{}
	for _, pos := range positions {
		if pos.Quantity.IsZero() {
			continue
		}
		totalInvested = totalInvested.Add(pos.CurrentValue)
		investedBySymbol[pos.Symbol] = investedBySymbol[pos.Symbol].Add(pos.CurrentValue)
	}

	order := []string{}
	rows := map[string]*SymbolActivity{}
	for _, trade := range trades {
		row, ok := rows[trade.Symbol]
		if !ok {
			row = &SymbolActivity{Symbol: trade.Symbol, Volume: decimal.Zero, PortfolioWeight: decimal.Zero}
			rows[trade.Symbol] = row
			order = append(order, trade.Symbol)
		}
		row.TradeCount++
		row.Volume = row.Volume.Add(trade.TotalValue.Abs())
	}

	out := make([]SymbolActivity, 0, len(order))
	for _, symbol := range order {
		row := rows[symbol]
		if totalInvested.IsPositive() {
			row.PortfolioWeight = investedBySymbol[symbol].Div(totalInvested)
		}
		out = append(out, *row)
	}
	return out
}

// RecommendationStats is one bucket of the analysis-performance view.
type RecommendationStats struct {
	Recommendation string  `json:"recommendation"`
	Total          int     `json:"total"`
	TargetHit      int     `json:"target_hit"`
	StopHit        int     `json:"stop_hit"`
	Pending        int     `json:"pending"`
	SuccessRate    float64 `json:"success_rate"`
}

// AnalysisPerformance is the trailing-window success rollup.
type AnalysisPerformance struct {
	ByRecommendation   []RecommendationStats `json:"by_recommendation"`
	OverallTotal       int                   `json:"overall_total"`
	OverallTargetHit   int                   `json:"overall_target_hit"`
	OverallStopHit     int                   `json:"overall_stop_hit"`
	OverallPending     int                   `json:"overall_pending"`
	OverallSuccessRate float64               `json:"overall_success_rate"`
}

func (s *Service) AnalysisPerformance(ctx context.Context) (AnalysisPerformance, error) {
	days := s.Config.PerformanceWindowDays
	if days <= 0 {
		days = 90
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.Repo.ListAnalysisOutcomesSince(ctx, since)
	if err != nil {
		return AnalysisPerformance{}, err
	}
	return ComputePerformance(rows), nil
}

// ComputePerformance buckets outcomes per recommendation. Success rate only
// counts settled outcomes; pending rows dilute nothing.
func ComputePerformance(rows []models.AnalysisOutcome) AnalysisPerformance {
	perf := AnalysisPerformance{}
	order := []string{}
	buckets := map[string]*RecommendationStats{}
	for _, row := range rows {
		bucket, ok := buckets[row.Recommendation]
		if !ok {
			bucket = &RecommendationStats{Recommendation: row.Recommendation}
			buckets[row.Recommendation] = bucket
			order = append(order, row.Recommendation)
		}
		bucket.Total++
		perf.OverallTotal++
		switch row.Outcome {
		case models.OutcomeTargetHit:
			bucket.TargetHit++
			perf.OverallTargetHit++
		case models.OutcomeStopHit:
			bucket.StopHit++
			perf.OverallStopHit++
		default:
			bucket.Pending++
			perf.OverallPending++
		}
	}

	for _, key := range order {
		bucket := buckets[key]
		settled := bucket.TargetHit + bucket.StopHit
		if settled > 0 {
			bucket.SuccessRate = float64(bucket.TargetHit) / float64(settled)
		}
		perf.ByRecommendation = append(perf.ByRecommendation, *bucket)
	}
	settled := perf.OverallTargetHit + perf.OverallStopHit
	if settled > 0 {
		perf.OverallSuccessRate = float64(perf.OverallTargetHit) / float64(settled)
	}
	return perf
}
