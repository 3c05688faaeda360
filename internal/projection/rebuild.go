package projection

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const rebuildBatchSize = 500

// RebuildResult summarizes one replay of the spine.
type RebuildResult struct {
	Replayed int `json:"replayed"`
}

// Rebuild truncates every rib table and replays the full spine in capture
// (ts_recorded, session, sequence) order through the same Apply path as live
// projection. Capture order is the order live appends ran in, so the replayed
// balance chain and position merges land on the live state even when events
// carried backdated ts_event values. Events whose documents satisfy no rule
// are skipped exactly as
// they are live; only storage failures abort, rolling the whole rebuild back
// so the previous rib state survives.
func (e *Engine) Rebuild(ctx context.Context) (RebuildResult, error) {
	var result RebuildResult
	if e == nil || e.Repo == nil {
		return result, nil
	}

	err := e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := e.Repo.TruncateRibsTx(ctx, tx); err != nil {
			return err
		}

		offset := 0
		for {
			events, err := e.Repo.ListEventsOrdered(ctx, rebuildBatchSize, offset)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				return nil
			}
			for i := range events {
				if err := e.Apply(ctx, tx, &events[i]); err != nil {
					return err
				}
				result.Replayed++
				if e.Metrics != nil {
					e.Metrics.RebuildReplayed.Inc()
				}
			}
			if len(events) < rebuildBatchSize {
				return nil
			}
			offset += len(events)
		}
	})
	if err != nil {
		return RebuildResult{}, err
	}

	if e.Logger != nil {
		e.Logger.Info("rib rebuild complete", zap.Int("replayed", result.Replayed))
	}
	return result, nil
}
