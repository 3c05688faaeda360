package boundary

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/yingkiat/swing-sage/internal/eventstore"
	"github.com/yingkiat/swing-sage/internal/models"
	"github.com/yingkiat/swing-sage/internal/repository"
)

// EventSummary is the consumer-facing shape of one spine event. The full
// rationale and cross references only ship on request.
type EventSummary struct {
	EventID         string         `json:"event_id"`
	EventKey        string         `json:"event_key"`
	EventType       string         `json:"event_type"`
	Category        string         `json:"category"`
	Topic           string         `json:"topic"`
	Symbols         []string       `json:"symbols"`
	ConfidenceScore float64        `json:"confidence_score"`
	StoredAt        time.Time      `json:"stored_at"`
	AgeHours        float64        `json:"age_hours"`
	SequenceNum     int            `json:"sequence_num"`
	Summary         string         `json:"summary"`
	AgentReasoning  string         `json:"agent_reasoning,omitempty"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	CrossReferences []string       `json:"cross_references,omitempty"`
}

// GetResult is one page plus the unbounded match count.
type GetResult struct {
	Events     []EventSummary `json:"events"`
	TotalFound int64          `json:"total_found"`
}

type Getter struct {
	Store *eventstore.Store
}

// Get runs a consumer query and shapes results into summaries.
func (g *Getter) Get(ctx context.Context, params repository.ListEventsParams, includeDetails bool) (GetResult, error) {
	if g == nil || g.Store == nil {
		return GetResult{}, nil
	}
	page, err := g.Store.Query(ctx, params)
	if err != nil {
		return GetResult{}, err
	}

	now := time.Now().UTC()
	out := GetResult{
		Events:     make([]EventSummary, 0, len(page.Events)),
		TotalFound: page.Total,
	}
	for i := range page.Events {
		out.Events = append(out.Events, Summarize(&page.Events[i], now, includeDetails))
	}
	return out, nil
}

// Summarize flattens a spine event. The headline is the first sentence of
// the rationale, truncated; events without a rationale describe themselves.
func Summarize(ev *models.Event, now time.Time, includeDetails bool) EventSummary {
	payload, _ := models.DecodePayload(ev.Payload)
	symbols := decodeStrings(ev.Symbols)

	s := EventSummary{
		EventID:         ev.EventID,
		EventKey:        ev.EventKey,
		EventType:       ev.EventType,
		Category:        ev.Category,
		Topic:           ev.Topic,
		Symbols:         symbols,
		ConfidenceScore: ev.ConfidenceScore,
		StoredAt:        ev.TsEvent,
		AgeHours:        now.Sub(ev.TsEvent).Hours(),
		SequenceNum:     ev.SequenceNum,
	}

	if payload.AgentReasoning != "" {
		s.Summary = headline(payload.AgentReasoning)
	} else {
		s.Summary = ev.EventType + " event for " + strings.Join(symbols, ", ")
	}

	if includeDetails {
		s.AgentReasoning = payload.AgentReasoning
		s.Parameters = payload.Parameters
		s.CrossReferences = decodeStrings(ev.CrossReferences)
	}
	return s
}

func headline(reasoning string) string {
	first, _, _ := strings.Cut(reasoning, ".")
	// Truncate on rune boundaries so multibyte text never splits mid-char.
	if runes := []rune(first); len(runes) > 200 {
		first = string(runes[:200])
	}
	if len(reasoning) > len(first) {
		return first + "..."
	}
	return first
}

func decodeStrings(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
