package projection

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yingkiat/swing-sage/internal/models"
)

// applyTrade fires when the structured sub-document carries trade parameters
// with a unit count and a strike-or-price field. It inserts one trade row,
// merges the matching position with value-weighted average cost, and debits
// (or credits, for sells) the funding ledger.
func (e *Engine) applyTrade(ctx context.Context, tx *gorm.DB, ev *models.Event, payload models.EventPayload) error {
	sa := payload.StructuredAnalysis
	if sa == nil || sa.TradeParameters == nil {
		return nil
	}
	tp := sa.TradeParameters

	units := tp.Units()
	if units == nil || (tp.Price == nil && tp.Strike == nil) {
		return nil
	}
	if tp.Symbol == "" || tp.Price == nil || units.IsZero() {
		e.skip(ruleTrade, ev, "missing symbol, price, or quantity", nil)
		return nil
	}

	// Replays must not double-count.
	existing, err := e.Repo.GetTradeBySourceEventTx(ctx, tx, ev.EventID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	side := strings.ToUpper(strings.TrimSpace(tp.Side))
	if side == "" {
		side = "BUY"
	}
	symbol := strings.ToUpper(strings.TrimSpace(tp.Symbol))
	instrument := models.InstrumentEquity
	if tp.IsOption() {
		instrument = models.InstrumentOption
	}
	multiplier := tp.Multiplier()
	price := *tp.Price
	quantity := *units
	totalValue := quantity.Mul(price).Mul(multiplier)

	var expiration *string
	if tp.Expiration != "" {
		exp := tp.Expiration
		expiration = &exp
	}
	var optionType *string
	if tp.OptionType != "" {
		ot := strings.ToLower(tp.OptionType)
		optionType = &ot
	}

	trade := &models.Trade{
		Symbol:         symbol,
		Side:           side,
		InstrumentType: instrument,
		Quantity:       quantity,
		Price:          price,
		Multiplier:     multiplier,
		TotalValue:     totalValue,
		Strike:         tp.Strike,
		Expiration:     expiration,
		OptionType:     optionType,
		Strategy:       tp.Strategy,
		ExecutionTime:  ev.TsEvent,
		SourceEventID:  ev.EventID,
	}
	if err := e.Repo.InsertTradeTx(ctx, tx, trade); err != nil {
		return err
	}

	if err := e.mergePosition(ctx, tx, ev, trade); err != nil {
		return err
	}

	// Cash impact: buys debit, sells credit.
	delta := totalValue.Neg()
	if side == "SELL" {
		delta = totalValue
	}
	entry := &models.FundingEntry{
		TransactionType: models.TransactionTrade,
		Amount:          delta,
		TransactionTime: ev.TsRecorded,
		Description:     side + " " + quantity.String() + " " + symbol,
		SourceEventID:   ev.EventID,
	}
	if err := e.appendLedger(ctx, tx, ev, entry); err != nil {
		return err
	}

	e.applied(ruleTrade, ev)
	return nil
}

// mergePosition upserts the position aggregate under a per-key lock. The
// weighted-average-cost merge is not commutative, so concurrent sessions
// trading the same key serialize here.
func (e *Engine) mergePosition(ctx context.Context, tx *gorm.DB, ev *models.Event, trade *models.Trade) error {
	expiration := ""
	if trade.Expiration != nil {
		expiration = *trade.Expiration
	}
	optionType := ""
	if trade.OptionType != nil {
		optionType = *trade.OptionType
	}
	key := models.PositionKeyFor(trade.Symbol, trade.InstrumentType, trade.Strike, expiration, optionType)

	if err := e.Repo.AcquireAggregateLockTx(ctx, tx, key); err != nil {
		return err
	}

	pos, err := e.Repo.GetPositionByKeyTx(ctx, tx, key)
	if err != nil {
		return err
	}

	signedQty := trade.Quantity
	if trade.Side == "SELL" {
		signedQty = signedQty.Neg()
	}

	now := ev.TsEvent
	if pos == nil {
		sourceEvents, _ := json.Marshal([]string{ev.EventID})
		pos = &models.Position{
			PositionKey:    key,
			Symbol:         trade.Symbol,
			InstrumentType: trade.InstrumentType,
			Strike:         trade.Strike,
			Expiration:     trade.Expiration,
			OptionType:     trade.OptionType,
			Quantity:       signedQty,
			AvgCost:        trade.Price,
			FirstEntry:     now,
			LastActivity:   now,
			SourceEvents:   sourceEvents,
		}
	} else {
		newQty := pos.Quantity.Add(signedQty)
		// Buys re-weight the average cost; sells realize at the standing
		// average and leave it unchanged.
		if trade.Side != "SELL" && !newQty.IsZero() {
			oldValue := pos.Quantity.Mul(pos.AvgCost)
			addedValue := signedQty.Mul(trade.Price)
			pos.AvgCost = oldValue.Add(addedValue).Div(newQty)
		}
		pos.Quantity = newQty
		pos.LastActivity = now
		pos.SourceEvents = appendSourceEvent(pos.SourceEvents, ev.EventID)
	}

	pos.CurrentValue = positionValue(pos)
	pos.UnrealizedPnL = decimal.Zero

	return e.Repo.SavePositionTx(ctx, tx, pos)
}

// positionValue is the cost-basis valuation of a position. Market pricing is
// out of scope; current value tracks the basis until a feed updates it.
func positionValue(pos *models.Position) decimal.Decimal {
	mult := decimal.NewFromInt(1)
	if pos.InstrumentType == models.InstrumentOption {
		mult = decimal.NewFromInt(100)
	}
	return pos.Quantity.Mul(pos.AvgCost).Mul(mult)
}

func appendSourceEvent(raw []byte, eventID string) []byte {
	var ids []string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &ids)
	}
	for _, id := range ids {
		if id == eventID {
			out, _ := json.Marshal(ids)
			return out
		}
	}
	ids = append(ids, eventID)
	out, _ := json.Marshal(ids)
	return out
}
