package boundary

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/yingkiat/swing-sage/internal/eventstore"
	"github.com/yingkiat/swing-sage/internal/models"
	"github.com/yingkiat/swing-sage/internal/projection"
	"github.com/yingkiat/swing-sage/internal/repository"
)

// stubRepo embeds the interface and overrides only what Emit touches;
// anything else panics, which is the point.
type stubRepo struct {
	repository.Repository
	events []models.Event
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) InsertEventTx(ctx context.Context, tx *gorm.DB, item *models.Event) error {
	for _, ev := range s.events {
		if ev.SessionID == item.SessionID && ev.SequenceNum == item.SequenceNum {
			return gorm.ErrDuplicatedKey
		}
	}
	s.events = append(s.events, *item)
	return nil
}

func (s *stubRepo) NextSequenceNum(ctx context.Context, sessionID string) (int, error) {
	max := 0
	for _, ev := range s.events {
		if ev.SessionID == sessionID && ev.SequenceNum > max {
			max = ev.SequenceNum
		}
	}
	return max + 1, nil
}

func newTestEmitter(t *testing.T, repo *stubRepo) *Emitter {
	t.Helper()
	validator, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return &Emitter{
		Store: &eventstore.Store{
			Repo:   repo,
			Engine: &projection.Engine{},
		},
		Validator: validator,
	}
}

func TestEmitStoresClassifiedEvent(t *testing.T) {
	repo := &stubRepo{}
	emitter := newTestEmitter(t, repo)

	res, err := emitter.Emit(context.Background(), EmitRequest{
		UserCommand: "buy 4 TEM calls at the open",
		SessionID:   "sess-1",
		Symbols:     []string{"tem"},
		Context: ConversationContext{
			AgentReasoning: "swing setup above support, risk defined at the stop",
			ParametersUsed: map[string]any{"price_level": 25.0},
		},
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if res.EventType != "proposal" {
		t.Errorf("event type = %q, want proposal", res.EventType)
	}
	if res.Category != "swing_setup" {
		t.Errorf("category = %q, want swing_setup", res.Category)
	}
	if res.Topic != "TEM" {
		t.Errorf("topic = %q, want TEM", res.Topic)
	}
	if res.SequenceNum != 1 {
		t.Errorf("sequence = %d, want 1", res.SequenceNum)
	}
	if res.EventID == "" {
		t.Error("event id empty")
	}
	if !strings.HasPrefix(res.EventKey, "proposal|swing_setup|TEM|") || !strings.HasSuffix(res.EventKey, "|v1") {
		t.Errorf("event key = %q", res.EventKey)
	}

	if len(repo.events) != 1 {
		t.Fatalf("spine rows = %d, want 1", len(repo.events))
	}
	stored := repo.events[0]
	payload, err := models.DecodePayload(stored.Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.UserCommand != "buy 4 TEM calls at the open" {
		t.Errorf("user command = %q", payload.UserCommand)
	}
	if len(payload.ExtractedSymbols) != 1 || payload.ExtractedSymbols[0] != "TEM" {
		t.Errorf("extracted symbols = %v, want [TEM]", payload.ExtractedSymbols)
	}
}

func TestEmitTypeHint(t *testing.T) {
	repo := &stubRepo{}
	emitter := newTestEmitter(t, repo)

	res, err := emitter.Emit(context.Background(), EmitRequest{
		UserCommand: "note this",
		SessionID:   "sess-1",
		TypeHint:    "Insight/Risk_Mgmt",
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if res.EventType != "insight" || res.Category != "risk_mgmt" {
		t.Errorf("type/category = %s/%s, want insight/risk_mgmt", res.EventType, res.Category)
	}
}

func TestEmitSequencesPerSession(t *testing.T) {
	repo := &stubRepo{}
	emitter := newTestEmitter(t, repo)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		res, err := emitter.Emit(ctx, EmitRequest{
			UserCommand: "observation",
			SessionID:   "sess-1",
		})
		if err != nil {
			t.Fatalf("Emit %d: %v", want, err)
		}
		if res.SequenceNum != want {
			t.Errorf("sequence = %d, want %d", res.SequenceNum, want)
		}
	}

	res, err := emitter.Emit(ctx, EmitRequest{
		UserCommand: "observation",
		SessionID:   "sess-2",
	})
	if err != nil {
		t.Fatalf("Emit other session: %v", err)
	}
	if res.SequenceNum != 1 {
		t.Errorf("new session sequence = %d, want 1", res.SequenceNum)
	}
}

func TestEmitRejectsBadStructuredAnalysis(t *testing.T) {
	repo := &stubRepo{}
	emitter := newTestEmitter(t, repo)

	_, err := emitter.Emit(context.Background(), EmitRequest{
		UserCommand: "buy",
		SessionID:   "sess-1",
		Context: ConversationContext{
			StructuredAnalysis: json.RawMessage(`{"confidence": 1.5}`),
		},
	})
	if !errors.Is(err, eventstore.ErrInvalidEvent) {
		t.Fatalf("err = %v, want ErrInvalidEvent", err)
	}
	if len(repo.events) != 0 {
		t.Errorf("spine rows = %d after rejected emit, want 0", len(repo.events))
	}
}

func TestValidator(t *testing.T) {
	validator, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	valid := []string{
		``,
		`{}`,
		`{"recommendation":"BUY_CALLS","confidence":0.72}`,
		`{"price_levels":{"entry":178.5,"target":185,"stop":174}}`,
		`{"trade_parameters":{"symbol":"TEM","side":"BUY","contracts":4,"price":0.97,"strike":25,"option_type":"call"}}`,
	}
	for _, doc := range valid {
		if err := validator.Validate(json.RawMessage(doc)); err != nil {
			t.Errorf("Validate(%s) = %v, want nil", doc, err)
		}
	}

	invalid := []string{
		`{"confidence":1.5}`,
		`{"trade_parameters":{"side":"LONG"}}`,
		`{"trade_parameters":{"option_type":"CALL"}}`,
		`{"price_levels":{"midpoint":180}}`,
		`{"unexpected":true}`,
		`{not json`,
	}
	for _, doc := range invalid {
		if err := validator.Validate(json.RawMessage(doc)); err == nil {
			t.Errorf("Validate(%s) = nil, want error", doc)
		}
	}
}

func TestSummarize(t *testing.T) {
	payload, _ := json.Marshal(models.EventPayload{
		AgentReasoning: "TEM is coiling under the 25 strike. Volume has been building for three sessions.",
		Parameters:     map[string]any{"price_level": 25.0},
	})
	symbols, _ := json.Marshal([]string{"TEM"})
	ts := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	ev := &models.Event{
		EventID:         "ev-1",
		EventType:       models.EventTypeAnalysis,
		Category:        "technical_analysis",
		Topic:           "TEM",
		Symbols:         symbols,
		ConfidenceScore: 0.85,
		TsEvent:         ts,
		Payload:         payload,
	}

	now := ts.Add(6 * time.Hour)
	s := Summarize(ev, now, false)
	if s.Summary != "TEM is coiling under the 25 strike..." {
		t.Errorf("summary = %q", s.Summary)
	}
	if s.AgeHours != 6 {
		t.Errorf("age = %v hours, want 6", s.AgeHours)
	}
	if s.AgentReasoning != "" || s.Parameters != nil {
		t.Error("details included without include_details")
	}

	detailed := Summarize(ev, now, true)
	if detailed.AgentReasoning == "" || detailed.Parameters == nil {
		t.Error("details missing with include_details")
	}
}

func TestSummarizeMultibyteHeadline(t *testing.T) {
	// 250 multibyte runes and no sentence break: the headline must cut on a
	// rune boundary, never mid-character.
	reasoning := strings.Repeat("é", 250)
	payload, _ := json.Marshal(models.EventPayload{AgentReasoning: reasoning})
	ev := &models.Event{
		EventType: models.EventTypeObservation,
		Payload:   payload,
	}

	s := Summarize(ev, time.Now().UTC(), false)
	if !utf8.ValidString(s.Summary) {
		t.Fatalf("summary is not valid UTF-8: %q", s.Summary)
	}
	want := strings.Repeat("é", 200) + "..."
	if s.Summary != want {
		t.Errorf("summary = %q, want 200 runes plus ellipsis", s.Summary)
	}
}

func TestSummarizeNoReasoning(t *testing.T) {
	symbols, _ := json.Marshal([]string{"AAPL"})
	ev := &models.Event{
		EventType: models.EventTypeObservation,
		Symbols:   symbols,
		Payload:   []byte(`{}`),
	}
	s := Summarize(ev, time.Now().UTC(), false)
	if s.Summary != "observation event for AAPL" {
		t.Errorf("summary = %q", s.Summary)
	}
}
