// Package projection derives the rib tables from spine events.
//
// Each rule is an explicit projector function dispatched by content shape,
// not database triggers: the append path calls Apply synchronously inside the
// same transaction as the spine insert, so a caller observes fully updated
// ribs before Append returns. Every rule is idempotent with respect to replay
// by deduplicating on the source event id.
package projection

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yingkiat/swing-sage/internal/metrics"
	"github.com/yingkiat/swing-sage/internal/models"
	"github.com/yingkiat/swing-sage/internal/repository"
)

// ledgerLockKey serializes running-balance appends; the ledger is a single
// aggregate.
const ledgerLockKey = "v_funding"

// Rule names used in logs and metrics.
const (
	ruleTrade      = "trade"
	ruleFunding    = "funding"
	ruleAnalysis   = "analysis"
	ruleSnapshot   = "snapshot"
	ruleResolution = "resolution"
	rulePayload    = "payload"
)

// Config holds the projection policy knobs.
type Config struct {
	// SnapshotThreshold is the absolute ledger delta above which a funding
	// insert also produces a portfolio snapshot. Deposits always snapshot.
	SnapshotThreshold decimal.Decimal
}

type Engine struct {
	Repo    repository.Repository
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Config  Config
}

// Apply runs every matching projection rule for ev inside tx. Rules whose
// required fields are absent are skipped and logged, never surfaced as
// errors: the spine write must succeed regardless, and a rebuild recovers the
// projection once the document is corrected upstream. A returned error means
// storage failed and the whole append rolls back.
func (e *Engine) Apply(ctx context.Context, tx *gorm.DB, ev *models.Event) error {
	if e == nil || e.Repo == nil || ev == nil {
		return nil
	}

	payload, err := models.DecodePayload(ev.Payload)
	if err != nil {
		e.skip(rulePayload, ev, "payload undecodable", err)
		return nil
	}

	if err := e.applyTrade(ctx, tx, ev, payload); err != nil {
		return err
	}
	if err := e.applyFunding(ctx, tx, ev, payload); err != nil {
		return err
	}
	if err := e.applyAnalysis(ctx, tx, ev, payload); err != nil {
		return err
	}
	if err := e.applyResolution(ctx, tx, ev, payload); err != nil {
		return err
	}
	return nil
}

func (e *Engine) skip(rule string, ev *models.Event, reason string, err error) {
	e.Metrics.RuleSkipped(rule)
	if e.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("rule", rule),
		zap.String("event_id", ev.EventID),
		zap.String("reason", reason),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	e.Logger.Debug("projection skipped", fields...)
}

func (e *Engine) applied(rule string, ev *models.Event) {
	e.Metrics.RuleApplied(rule)
	if e.Logger != nil {
		e.Logger.Debug("projection applied",
			zap.String("rule", rule),
			zap.String("event_id", ev.EventID))
	}
}

// appendLedger inserts one funding row under the ledger lock, maintaining the
// running balance, and evaluates the snapshot policy for the new entry.
func (e *Engine) appendLedger(ctx context.Context, tx *gorm.DB, ev *models.Event, entry *models.FundingEntry) error {
	if err := e.Repo.AcquireAggregateLockTx(ctx, tx, ledgerLockKey); err != nil {
		return err
	}
	prev, err := e.Repo.LatestFundingEntryTx(ctx, tx)
	if err != nil {
		return err
	}
	balance := decimal.Zero
	if prev != nil {
		balance = prev.RunningBalance
	}
	entry.RunningBalance = balance.Add(entry.Amount)
	if err := e.Repo.InsertFundingEntryTx(ctx, tx, entry); err != nil {
		return err
	}

	if e.snapshotDue(entry) {
		if err := e.takeSnapshot(ctx, tx, ev, entry); err != nil {
			return err
		}
	}
	return nil
}
