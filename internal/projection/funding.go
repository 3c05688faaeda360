package projection

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yingkiat/swing-sage/internal/models"
)

// applyFunding fires when the free-form parameter map carries a funding
// amount and a deposit/withdrawal transaction type. It appends one ledger row
// with the maintained running balance, deduplicating on the source event id.
func (e *Engine) applyFunding(ctx context.Context, tx *gorm.DB, ev *models.Event, payload models.EventPayload) error {
	amount, okAmount := paramDecimal(payload.Parameters, "amount", "funding_amount")
	txType, okType := paramString(payload.Parameters, "transaction_type")
	if !okAmount || !okType {
		return nil
	}

	txType = strings.ToUpper(strings.TrimSpace(txType))
	if txType != models.TransactionDeposit && txType != models.TransactionWithdrawal {
		e.skip(ruleFunding, ev, "unrecognized transaction type "+txType, nil)
		return nil
	}
	if amount.IsNegative() {
		amount = amount.Abs()
	}

	existing, err := e.Repo.GetFundingBySourceEventTx(ctx, tx, ev.EventID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	delta := amount
	if txType == models.TransactionWithdrawal {
		delta = amount.Neg()
	}

	// Stamped with capture time, not ts_event: the running balance chains in
	// insertion order, and a backdated ts_event must not fork the chain.
	description, _ := paramString(payload.Parameters, "description")
	entry := &models.FundingEntry{
		TransactionType: txType,
		Amount:          delta,
		TransactionTime: ev.TsRecorded,
		Description:     description,
		SourceEventID:   ev.EventID,
	}
	if err := e.appendLedger(ctx, tx, ev, entry); err != nil {
		return err
	}

	e.applied(ruleFunding, ev)
	return nil
}

// paramDecimal pulls the first present numeric parameter under any of the
// given keys. JSON numbers arrive as float64; producers occasionally send
// strings.
func paramDecimal(params map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, key := range keys {
		v, ok := params[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return decimal.NewFromFloat(t), true
		case int:
			return decimal.NewFromInt(int64(t)), true
		case int64:
			return decimal.NewFromInt(t), true
		case json.Number:
			d, err := decimal.NewFromString(t.String())
			if err == nil {
				return d, true
			}
		case string:
			d, err := decimal.NewFromString(strings.TrimSpace(t))
			if err == nil {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

func paramString(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
