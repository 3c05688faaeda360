// Package eventstore owns the spine: validated appends with synchronous
// projection, and filtered reads. Append is the sole write path; nothing ever
// updates or deletes a spine row.
package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yingkiat/swing-sage/internal/metrics"
	"github.com/yingkiat/swing-sage/internal/models"
	"github.com/yingkiat/swing-sage/internal/projection"
	"github.com/yingkiat/swing-sage/internal/repository"
)

var (
	// ErrInvalidEvent rejects malformed events: closed-set violations and
	// out-of-range confidence scores.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrDuplicateSequence rejects an append whose (session_id, sequence_num)
	// already exists.
	ErrDuplicateSequence = errors.New("duplicate sequence number")
)

const (
	// DefaultQueryLimit and MaxQueryLimit bound result pages.
	DefaultQueryLimit = 10
	MaxQueryLimit     = 50
)

type Store struct {
	Repo    repository.Repository
	Engine  *projection.Engine
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Append validates ev, inserts it into the spine, and runs every projection
// rule inside the same transaction: either the event and all its rib
// mutations commit, or none do. Returns the assigned event id.
func (s *Store) Append(ctx context.Context, ev *models.Event) (string, error) {
	if s == nil || s.Repo == nil || ev == nil {
		return "", fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	start := time.Now()

	if err := s.validate(ev); err != nil {
		return "", err
	}

	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ev.TsEvent.IsZero() {
		ev.TsEvent = now
	}
	ev.TsRecorded = now

	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.InsertEventTx(ctx, tx, ev); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: session %s sequence %d", ErrDuplicateSequence, ev.SessionID, ev.SequenceNum)
			}
			return err
		}
		return s.Engine.Apply(ctx, tx, ev)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSequence) && s.Metrics != nil {
			s.Metrics.AppendsRejected.WithLabelValues("duplicate_sequence").Inc()
		}
		return "", err
	}

	if s.Metrics != nil {
		s.Metrics.EventsAppended.WithLabelValues(ev.EventType).Inc()
		s.Metrics.AppendLatency.Observe(time.Since(start).Seconds())
	}
	if s.Logger != nil {
		s.Logger.Info("event appended",
			zap.String("event_id", ev.EventID),
			zap.String("event_type", ev.EventType),
			zap.String("category", ev.Category),
			zap.String("session_id", ev.SessionID),
			zap.Int("sequence_num", ev.SequenceNum))
	}
	return ev.EventID, nil
}

func (s *Store) validate(ev *models.Event) error {
	if !models.ValidEventType(ev.EventType) {
		s.countRejection("event_type")
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, ev.EventType)
	}
	if ev.ConfidenceScore < 0 || ev.ConfidenceScore > 1 {
		s.countRejection("confidence_score")
		return fmt.Errorf("%w: confidence score %v outside [0,1]", ErrInvalidEvent, ev.ConfidenceScore)
	}
	if ev.SessionID == "" {
		s.countRejection("session_id")
		return fmt.Errorf("%w: empty session id", ErrInvalidEvent)
	}
	if ev.SequenceNum < 1 {
		s.countRejection("sequence_num")
		return fmt.Errorf("%w: sequence number %d below 1", ErrInvalidEvent, ev.SequenceNum)
	}
	return nil
}

func (s *Store) countRejection(reason string) {
	if s != nil && s.Metrics != nil {
		s.Metrics.AppendsRejected.WithLabelValues(reason).Inc()
	}
}

// QueryResult is one page of spine events plus the unbounded match count, so
// callers can restart the scan at an offset.
type QueryResult struct {
	Events []models.Event
	Total  int64
}

// Query reads the spine with the caller's filters, ordered by timestamp,
// confidence, or relevance. Limits default modest and are hard-capped.
func (s *Store) Query(ctx context.Context, params repository.ListEventsParams) (QueryResult, error) {
	if s == nil || s.Repo == nil {
		return QueryResult{}, nil
	}
	if params.Limit <= 0 {
		params.Limit = DefaultQueryLimit
	}
	if params.Limit > MaxQueryLimit {
		params.Limit = MaxQueryLimit
	}

	events, err := s.Repo.ListEvents(ctx, params)
	if err != nil {
		return QueryResult{}, err
	}
	total, err := s.Repo.CountEvents(ctx, params)
	if err != nil {
		return QueryResult{}, err
	}
	return QueryResult{Events: events, Total: total}, nil
}

// NextSequenceNum hands producers the next strictly increasing sequence
// number for a session.
func (s *Store) NextSequenceNum(ctx context.Context, sessionID string) (int, error) {
	if s == nil || s.Repo == nil {
		return 1, nil
	}
	return s.Repo.NextSequenceNum(ctx, sessionID)
}
