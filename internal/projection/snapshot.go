package projection

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yingkiat/swing-sage/internal/models"
)

// snapshotDue decides whether a fresh ledger entry is material enough to roll
// up the portfolio: any deposit, or any delta past the configured threshold.
// The threshold is policy, not a constant — see Config.
func (e *Engine) snapshotDue(entry *models.FundingEntry) bool {
	if entry.TransactionType == models.TransactionDeposit {
		return true
	}
	threshold := e.Config.SnapshotThreshold
	if threshold.IsZero() {
		return false
	}
	return entry.Amount.Abs().GreaterThan(threshold)
}

// takeSnapshot rolls the current rib state into one immutable snapshot row,
// reading through the open transaction so it sees the entry that triggered it.
func (e *Engine) takeSnapshot(ctx context.Context, tx *gorm.DB, ev *models.Event, entry *models.FundingEntry) error {
	snap, err := e.buildSnapshot(ctx, tx, ev.TsEvent)
	if err != nil {
		return err
	}
	snap.TriggerEventID = ev.EventID
	if err := e.Repo.InsertSnapshotTx(ctx, tx, snap); err != nil {
		return err
	}
	e.applied(ruleSnapshot, ev)
	return nil
}

// buildSnapshot computes the point-in-time rollup from rib state only.
func (e *Engine) buildSnapshot(ctx context.Context, tx *gorm.DB, at time.Time) (*models.PortfolioSnapshot, error) {
	positions, err := e.Repo.ListPositionsTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	count := 0
	invested := decimal.Zero
	unrealized := decimal.Zero
	for _, pos := range positions {
		if pos.Quantity.IsZero() {
			continue
		}
		count++
		invested = invested.Add(pos.CurrentValue)
		unrealized = unrealized.Add(pos.UnrealizedPnL)
	}

	cash := decimal.Zero
	if latest, err := e.Repo.LatestFundingEntryTx(ctx, tx); err != nil {
		return nil, err
	} else if latest != nil {
		cash = latest.RunningBalance
	}

	return &models.PortfolioSnapshot{
		SnapshotAt:     at,
		PositionCount:  count,
		TotalInvested:  invested,
		CashBalance:    cash,
		UnrealizedPnL:  unrealized,
		NetLiquidation: invested.Add(cash),
	}, nil
}

// TakeScheduledSnapshot records a snapshot outside any append, for the cron
// job. It runs in its own transaction so the rollup is internally consistent.
func (e *Engine) TakeScheduledSnapshot(ctx context.Context) error {
	if e == nil || e.Repo == nil {
		return nil
	}
	return e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		snap, err := e.buildSnapshot(ctx, tx, time.Now().UTC())
		if err != nil {
			return err
		}
		return e.Repo.InsertSnapshotTx(ctx, tx, snap)
	})
}
