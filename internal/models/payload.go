package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// EventPayload is the semi-structured document carried by every spine event.
// The projection engine only ever reads StructuredAnalysis and Parameters;
// the free-form fields exist for humans and the agent layer.
type EventPayload struct {
	UserCommand        string             `json:"user_command,omitempty"`
	AgentReasoning     string             `json:"agent_reasoning,omitempty"`
	Parameters         map[string]any     `json:"parameters,omitempty"`
	StructuredAnalysis *StructuredAnalysis `json:"structured_analysis,omitempty"`
	ExtractedSymbols   []string           `json:"extracted_symbols,omitempty"`
}

// StructuredAnalysis is the normalized sub-document producers populate so the
// engine never parses prose or guesses field names.
type StructuredAnalysis struct {
	Recommendation  string           `json:"recommendation,omitempty"`
	Action          string           `json:"action,omitempty"`
	Confidence      *float64         `json:"confidence,omitempty"`
	PriceLevels     *PriceLevels     `json:"price_levels,omitempty"`
	TradeParameters *TradeParameters `json:"trade_parameters,omitempty"`
}

type PriceLevels struct {
	Entry  *decimal.Decimal `json:"entry,omitempty"`
	Target *decimal.Decimal `json:"target,omitempty"`
	Stop   *decimal.Decimal `json:"stop,omitempty"`
}

// TradeParameters describes an executed transaction. Quantity holds share
// counts for equities; Contracts holds contract counts for options. Exactly
// one of the two is expected.
type TradeParameters struct {
	Symbol         string           `json:"symbol,omitempty"`
	Side           string           `json:"side,omitempty"`
	InstrumentType string           `json:"instrument_type,omitempty"`
	Quantity       *decimal.Decimal `json:"quantity,omitempty"`
	Contracts      *decimal.Decimal `json:"contracts,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Strike         *decimal.Decimal `json:"strike,omitempty"`
	Expiration     string           `json:"expiration,omitempty"`
	OptionType     string           `json:"option_type,omitempty"`
	Strategy       string           `json:"strategy,omitempty"`
}

// Units returns the contract or share count, whichever is populated.
func (tp *TradeParameters) Units() *decimal.Decimal {
	if tp == nil {
		return nil
	}
	if tp.Contracts != nil {
		return tp.Contracts
	}
	return tp.Quantity
}

// IsOption reports whether the trade is an options transaction. Explicit
// instrument_type wins; otherwise the presence of a strike or an option type
// decides.
func (tp *TradeParameters) IsOption() bool {
	if tp == nil {
		return false
	}
	switch tp.InstrumentType {
	case InstrumentOption:
		return true
	case InstrumentEquity:
		return false
	}
	return tp.Strike != nil || tp.OptionType != ""
}

// Multiplier is the contract multiplier applied to ledger deltas: 100 for
// options, 1 for equities.
func (tp *TradeParameters) Multiplier() decimal.Decimal {
	if tp.IsOption() {
		return decimal.NewFromInt(100)
	}
	return decimal.NewFromInt(1)
}

// DecodePayload unmarshals a raw payload document. A nil or empty document
// decodes to the zero payload, not an error.
func DecodePayload(raw []byte) (EventPayload, error) {
	var p EventPayload
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return EventPayload{}, err
	}
	return p, nil
}
