package views

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yingkiat/swing-sage/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeOverview(t *testing.T) {
	positions := []models.Position{
		{Symbol: "AAPL", Quantity: d("10"), CurrentValue: d("1785"), UnrealizedPnL: d("35")},
		{Symbol: "TEM", Quantity: d("4"), CurrentValue: d("388"), UnrealizedPnL: d("-12")},
		{Symbol: "SOLD", Quantity: decimal.Zero, CurrentValue: decimal.Zero},
	}

	overview := ComputeOverview(positions, d("26.39"), d("0.15"))

	if overview.PositionCount != 2 {
		t.Errorf("position count = %d, want 2 (closed positions excluded)", overview.PositionCount)
	}
	if !overview.TotalInvested.Equal(d("2173")) {
		t.Errorf("total invested = %s, want 2173", overview.TotalInvested)
	}
	if !overview.UnrealizedPnL.Equal(d("23")) {
		t.Errorf("unrealized pnl = %s, want 23", overview.UnrealizedPnL)
	}
	if !overview.CashBalance.Equal(d("26.39")) {
		t.Errorf("cash = %s, want 26.39", overview.CashBalance)
	}
	// AAPL is 82% of invested, TEM 17.8%; both above the 15% cutoff.
	if overview.ConcentratedPositions != 2 {
		t.Errorf("concentrated = %d, want 2", overview.ConcentratedPositions)
	}
}

func TestComputeOverviewEmpty(t *testing.T) {
	overview := ComputeOverview(nil, decimal.Zero, d("0.15"))
	if overview.PositionCount != 0 || overview.ConcentratedPositions != 0 {
		t.Errorf("overview = %+v, want zero counts", overview)
	}
	if !overview.TotalInvested.IsZero() {
		t.Errorf("total invested = %s, want 0", overview.TotalInvested)
	}
}

func TestComputeActivity(t *testing.T) {
	trades := []models.Trade{
		{Symbol: "TEM", TotalValue: d("388")},
		{Symbol: "TEM", TotalValue: d("360")},
		{Symbol: "AAPL", TotalValue: d("1785")},
	}
	positions := []models.Position{
		{Symbol: "TEM", Quantity: d("7"), CurrentValue: d("748")},
		{Symbol: "AAPL", Quantity: d("10"), CurrentValue: d("1785")},
	}

	rows := ComputeActivity(trades, positions)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	tem := rows[0]
	if tem.Symbol != "TEM" || tem.TradeCount != 2 {
		t.Errorf("first row = %+v, want TEM with 2 trades", tem)
	}
	if !tem.Volume.Equal(d("748")) {
		t.Errorf("TEM volume = %s, want 748", tem.Volume)
	}
	wantWeight := d("748").Div(d("2533"))
	if !tem.PortfolioWeight.Equal(wantWeight) {
		t.Errorf("TEM weight = %s, want %s", tem.PortfolioWeight, wantWeight)
	}
}

func TestComputeActivityNoPositions(t *testing.T) {
	rows := ComputeActivity([]models.Trade{{Symbol: "TEM", TotalValue: d("100")}}, nil)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if !rows[0].PortfolioWeight.IsZero() {
		t.Errorf("weight = %s with no invested value, want 0", rows[0].PortfolioWeight)
	}
}

func TestComputePerformance(t *testing.T) {
	rows := []models.AnalysisOutcome{
		{Recommendation: "BUY_CALLS", Outcome: models.OutcomeTargetHit},
		{Recommendation: "BUY_CALLS", Outcome: models.OutcomeStopHit},
		{Recommendation: "BUY_CALLS", Outcome: models.OutcomePending},
		{Recommendation: "SELL", Outcome: models.OutcomeTargetHit},
	}

	perf := ComputePerformance(rows)
	if perf.OverallTotal != 4 || perf.OverallTargetHit != 2 || perf.OverallStopHit != 1 || perf.OverallPending != 1 {
		t.Errorf("overall = %+v, want 4/2/1/1", perf)
	}
	// 2 hits of 3 settled.
	if perf.OverallSuccessRate != 2.0/3.0 {
		t.Errorf("overall success = %v, want 2/3", perf.OverallSuccessRate)
	}

	if len(perf.ByRecommendation) != 2 {
		t.Fatalf("buckets = %d, want 2", len(perf.ByRecommendation))
	}
	calls := perf.ByRecommendation[0]
	if calls.Recommendation != "BUY_CALLS" || calls.Total != 3 || calls.Pending != 1 {
		t.Errorf("BUY_CALLS bucket = %+v", calls)
	}
	if calls.SuccessRate != 0.5 {
		t.Errorf("BUY_CALLS success = %v, want 0.5 (pending rows dilute nothing)", calls.SuccessRate)
	}
}

func TestComputePerformanceAllPending(t *testing.T) {
	perf := ComputePerformance([]models.AnalysisOutcome{
		{Recommendation: "BUY", Outcome: models.OutcomePending},
	})
	if perf.OverallSuccessRate != 0 {
		t.Errorf("success rate = %v with no settled rows, want 0", perf.OverallSuccessRate)
	}
}
