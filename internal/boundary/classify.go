package boundary

import (
	"sort"
	"strings"
)

// Classification is keyword-driven over the command and the already-extracted
// rationale text the agent layer hands over. This is dispatch on hints, not
// language understanding — the caller may always pin the type explicitly.

func classifyEvent(userCommand, reasoning string) (eventType, category string) {
	cmd := strings.ToLower(userCommand)
	ctx := strings.ToLower(reasoning)

	switch {
	case containsAny(cmd, "recommendation", "buy", "sell", "trade"):
		eventType = "proposal"
	case containsAny(ctx, "buy", "sell", "enter", "exit", "target", "stop"):
		eventType = "proposal"
	case containsAny(cmd, "risk", "insight"):
		eventType = "insight"
	case containsAny(cmd, "analysis", "analyze"):
		eventType = "analysis"
	case containsAny(ctx, "shows", "indicates", "suggests", "looking", "setup"):
		eventType = "analysis"
	default:
		eventType = "observation"
	}

	switch {
	case containsAny(ctx, "swing", "swing trade", "swing trading"):
		category = "swing_setup"
	case containsAny(ctx, "day trade", "day trading", "intraday"):
		category = "day_trade"
	case containsAny(ctx, "earnings", "earnings call", "quarterly"):
		category = "earnings"
	case containsAny(ctx, "risk", "stop loss", "position size"):
		category = "risk_mgmt"
	case containsAny(ctx, "breakout", "support", "resistance", "technical"):
		category = "technical_analysis"
	case containsAny(ctx, "sentiment", "news", "catalyst"):
		category = "sentiment"
	default:
		category = "general"
	}
	return eventType, category
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// deriveTopic picks the canonical subject label: a single symbol stands for
// itself, multiple symbols join into one sorted thematic tag, and symbol-free
// events fall back on reasoning keywords.
func deriveTopic(symbols []string, reasoning string) (string, []string) {
	upper := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			upper = append(upper, s)
		}
	}

	switch {
	case len(upper) == 1:
		return upper[0], upper
	case len(upper) > 1:
		sorted := append([]string(nil), upper...)
		sort.Strings(sorted)
		return strings.Join(sorted, "_"), upper
	}

	ctx := strings.ToLower(reasoning)
	switch {
	case strings.Contains(ctx, "market"):
		return "market_analysis", nil
	case strings.Contains(ctx, "earnings"):
		return "earnings_analysis", nil
	case strings.Contains(ctx, "volatility"):
		return "market_volatility", nil
	}
	return "general_trading", nil
}

// confidenceScore is a specificity heuristic: named symbols, parameters, and
// price levels buy confidence, capped at 1.0.
func confidenceScore(reasoning string, symbols []string, params map[string]any) float64 {
	score := 0.5
	if len(symbols) > 0 {
		score += 0.2
	}
	if len(params) > 0 {
		boost := float64(len(params)) * 0.05
		if boost > 0.2 {
			boost = 0.2
		}
		score += boost
	}
	if hasAnyKey(params, "price_level", "support_level", "resistance_level") {
		score += 0.15
	}
	if hasAnyKey(params, "rsi", "volume_ratio", "timeframe") {
		score += 0.1
	}
	if len(reasoning) > 100 {
		score += 0.05
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func hasAnyKey(params map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := params[k]; ok {
			return true
		}
	}
	return false
}
