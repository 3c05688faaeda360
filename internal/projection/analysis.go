package projection

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yingkiat/swing-sage/internal/models"
)

// applyAnalysis fires for every analysis-type event and records a pending
// outcome row from the structured sub-document. No prose is parsed: producers
// that fail to populate structured_analysis get a skip, not an error.
func (e *Engine) applyAnalysis(ctx context.Context, tx *gorm.DB, ev *models.Event, payload models.EventPayload) error {
	if ev.EventType != models.EventTypeAnalysis {
		return nil
	}
	sa := payload.StructuredAnalysis
	if sa == nil || sa.Recommendation == "" {
		e.skip(ruleAnalysis, ev, "structured_analysis.recommendation absent", nil)
		return nil
	}

	existing, err := e.Repo.GetAnalysisOutcomeBySourceEventTx(ctx, tx, ev.EventID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	confidence := ev.ConfidenceScore
	if sa.Confidence != nil {
		confidence = *sa.Confidence
	}

	outcome := &models.AnalysisOutcome{
		Topic:          ev.Topic,
		Recommendation: strings.ToUpper(strings.TrimSpace(sa.Recommendation)),
		Confidence:     confidence,
		Outcome:        models.OutcomePending,
		AnalysisTime:   ev.TsEvent,
		SourceEventID:  ev.EventID,
	}
	if sa.PriceLevels != nil {
		outcome.EntryLevel = sa.PriceLevels.Entry
		outcome.TargetLevel = sa.PriceLevels.Target
		outcome.StopLevel = sa.PriceLevels.Stop
	}

	if err := e.Repo.InsertAnalysisOutcomeTx(ctx, tx, outcome); err != nil {
		return err
	}

	e.applied(ruleAnalysis, ev)
	return nil
}

// applyResolution fires when an observation reports a terminal outcome for
// earlier analyses it cross-references. Only pending rows move; an outcome is
// settled exactly once.
func (e *Engine) applyResolution(ctx context.Context, tx *gorm.DB, ev *models.Event, payload models.EventPayload) error {
	if ev.EventType != models.EventTypeObservation {
		return nil
	}
	outcomeRaw, ok := paramString(payload.Parameters, "outcome")
	if !ok {
		return nil
	}
	outcome := strings.ToLower(strings.TrimSpace(outcomeRaw))
	if outcome != models.OutcomeTargetHit && outcome != models.OutcomeStopHit {
		e.skip(ruleResolution, ev, "unrecognized outcome "+outcome, nil)
		return nil
	}

	refs := decodeStringList(ev.CrossReferences)
	if len(refs) == 0 {
		e.skip(ruleResolution, ev, "no cross references", nil)
		return nil
	}

	var actualReturn *decimal.Decimal
	if ret, ok := paramDecimal(payload.Parameters, "actual_return"); ok {
		actualReturn = &ret
	}

	rows, err := e.Repo.ListAnalysisOutcomesBySourceEventsTx(ctx, tx, refs)
	if err != nil {
		return err
	}
	resolved := false
	for i := range rows {
		row := rows[i]
		if row.Outcome != models.OutcomePending {
			continue
		}
		row.Outcome = outcome
		when := ev.TsEvent
		row.OutcomeTime = &when
		row.ActualReturn = actualReturn
		if err := e.Repo.UpdateAnalysisOutcomeTx(ctx, tx, &row); err != nil {
			return err
		}
		resolved = true
	}
	if resolved {
		e.applied(ruleResolution, ev)
	}
	return nil
}

func decodeStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
