// Package boundary adapts loosely-typed producer commands and consumer
// queries to the event store's contracts. Classification and the structured
// document are settled here, before the spine sees anything — the core never
// parses natural language.
package boundary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yingkiat/swing-sage/internal/eventkey"
	"github.com/yingkiat/swing-sage/internal/eventstore"
	"github.com/yingkiat/swing-sage/internal/models"
)

// ConversationContext is the pre-structured bundle the agent layer supplies
// alongside a command.
type ConversationContext struct {
	RecentSymbols      []string        `json:"recent_symbols"`
	AgentReasoning     string          `json:"agent_reasoning"`
	ParametersUsed     map[string]any  `json:"parameters_used"`
	StructuredAnalysis json.RawMessage `json:"structured_analysis"`
	CrossReferences    []string        `json:"cross_references"`
}

// EmitRequest is the producer-side command.
type EmitRequest struct {
	UserCommand string              `json:"user_command" binding:"required"`
	SessionID   string              `json:"session_id" binding:"required"`
	TypeHint    string              `json:"type_hint"`
	Symbols     []string            `json:"symbols"`
	DataVersion string              `json:"data_version"`
	Context     ConversationContext `json:"context"`
}

// EmitResult echoes what was stored.
type EmitResult struct {
	EventID         string   `json:"event_id"`
	EventKey        string   `json:"event_key"`
	EventType       string   `json:"event_type"`
	Category        string   `json:"category"`
	Topic           string   `json:"topic"`
	Symbols         []string `json:"symbols"`
	SequenceNum     int      `json:"sequence_num"`
	ConfidenceScore float64  `json:"confidence_score"`
	Summary         string   `json:"summary"`
}

type Emitter struct {
	Store     *eventstore.Store
	Validator *Validator
	Logger    *zap.Logger
}

// Emit classifies the command, canonicalizes its correlation key, and appends
// one spine event. Projection runs synchronously inside the append, so the
// caller observes fully updated ribs when this returns.
func (e *Emitter) Emit(ctx context.Context, req EmitRequest) (EmitResult, error) {
	if e == nil || e.Store == nil {
		return EmitResult{}, fmt.Errorf("emitter not configured")
	}

	if err := e.Validator.Validate(req.Context.StructuredAnalysis); err != nil {
		return EmitResult{}, fmt.Errorf("%w: %v", eventstore.ErrInvalidEvent, err)
	}

	eventType, category := e.resolveType(req)

	symbolSource := req.Symbols
	if len(symbolSource) == 0 {
		symbolSource = req.Context.RecentSymbols
	}
	topic, symbols := deriveTopic(symbolSource, req.Context.AgentReasoning)

	params := req.Context.ParametersUsed
	confidence := confidenceScore(req.Context.AgentReasoning, symbols, params)

	version := req.DataVersion
	if version == "" {
		version = eventkey.DefaultVersion
	}
	eventKey := eventkey.Generate(eventType, category, symbols, params, version)

	var structured *models.StructuredAnalysis
	if len(req.Context.StructuredAnalysis) > 0 {
		structured = &models.StructuredAnalysis{}
		if err := json.Unmarshal(req.Context.StructuredAnalysis, structured); err != nil {
			return EmitResult{}, fmt.Errorf("%w: structured_analysis undecodable: %v", eventstore.ErrInvalidEvent, err)
		}
	}

	payload := models.EventPayload{
		UserCommand:        req.UserCommand,
		AgentReasoning:     req.Context.AgentReasoning,
		Parameters:         params,
		StructuredAnalysis: structured,
		ExtractedSymbols:   symbols,
	}
	payloadRaw, err := json.Marshal(payload)
	if err != nil {
		return EmitResult{}, err
	}
	symbolsRaw, _ := json.Marshal(symbols)
	crossRefsRaw, _ := json.Marshal(req.Context.CrossReferences)

	sequence, err := e.Store.NextSequenceNum(ctx, req.SessionID)
	if err != nil {
		return EmitResult{}, err
	}

	ev := &models.Event{
		EventType:       eventType,
		Category:        category,
		SessionID:       req.SessionID,
		SequenceNum:     sequence,
		Topic:           topic,
		Symbols:         symbolsRaw,
		ConfidenceScore: confidence,
		Payload:         payloadRaw,
		CrossReferences: crossRefsRaw,
		EventKey:        eventKey,
	}

	eventID, err := e.Store.Append(ctx, ev)
	if err != nil {
		return EmitResult{}, err
	}

	return EmitResult{
		EventID:         eventID,
		EventKey:        eventKey,
		EventType:       eventType,
		Category:        category,
		Topic:           topic,
		Symbols:         symbols,
		SequenceNum:     sequence,
		ConfidenceScore: confidence,
		Summary:         fmt.Sprintf("stored %s/%s for topic %q (confidence %.2f)", eventType, category, topic, confidence),
	}, nil
}

// resolveType honors an explicit "type" or "type/category" hint and falls
// back on keyword classification.
func (e *Emitter) resolveType(req EmitRequest) (string, string) {
	hint := strings.TrimSpace(req.TypeHint)
	if hint == "" {
		return classifyEvent(req.UserCommand, req.Context.AgentReasoning)
	}
	if t, c, ok := strings.Cut(hint, "/"); ok {
		return strings.ToLower(t), strings.ToLower(c)
	}
	_, category := classifyEvent(req.UserCommand, req.Context.AgentReasoning)
	return strings.ToLower(hint), category
}
