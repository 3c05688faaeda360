package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yingkiat/swing-sage/internal/boundary"
	"github.com/yingkiat/swing-sage/internal/cache"
	"github.com/yingkiat/swing-sage/internal/eventstore"
	"github.com/yingkiat/swing-sage/internal/repository"
)

type EventsHandler struct {
	Emitter *boundary.Emitter
	Getter  *boundary.Getter
	Cache   *cache.EventCache
	Logger  *zap.Logger
}

func (h *EventsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/events")
	g.POST("", h.emit)
	g.GET("", h.list)
	g.GET("/:event_id", h.getByID)
}

func (h *EventsHandler) emit(c *gin.Context) {
	if h.Emitter == nil {
		Error(c, http.StatusInternalServerError, "emitter unavailable", nil)
		return
	}
	var req boundary.EmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}
	res, err := h.Emitter.Emit(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, eventstore.ErrDuplicateSequence):
			Error(c, http.StatusConflict, err.Error(), nil)
		case errors.Is(err, eventstore.ErrInvalidEvent):
			Error(c, http.StatusBadRequest, err.Error(), nil)
		default:
			Error(c, http.StatusBadGateway, err.Error(), nil)
		}
		return
	}
	// A re-emitted key must not serve the pre-append summary.
	h.Cache.Invalidate(c.Request.Context(), res.EventKey)
	Ok(c, res, nil)
}

func (h *EventsHandler) list(c *gin.Context) {
	if h.Getter == nil {
		Error(c, http.StatusInternalServerError, "getter unavailable", nil)
		return
	}
	params := repository.ListEventsParams{
		EventKey:        strings.TrimSpace(c.Query("event_key")),
		Topic:           strings.TrimSpace(c.Query("topic")),
		SessionID:       strings.TrimSpace(c.Query("session_id")),
		Symbols:         csvQuery(c, "symbols"),
		EventTypes:      csvQuery(c, "event_types"),
		Categories:      csvQuery(c, "categories"),
		CrossReferences: csvQuery(c, "cross_references"),
		MinConfidence:   floatQueryPtr(c, "min_confidence"),
		Since:           timeQueryPtr(c, "since"),
		SortBy:          strings.TrimSpace(c.Query("sort_by")),
		Limit:           intQuery(c, "limit", 0),
		Offset:          intQuery(c, "offset", 0),
	}
	includeDetails := boolQuery(c, "include_details", false)

	// Exact-key lookups are the hot path for follow-up questions, so they
	// are the only ones cached.
	cacheable := params.EventKey != "" && !includeDetails
	if cacheable {
		if raw := h.Cache.Get(c.Request.Context(), params.EventKey); raw != nil {
			var cached boundary.GetResult
			if err := json.Unmarshal(raw, &cached); err == nil {
				Ok(c, cached, map[string]any{"cached": true})
				return
			}
		}
	}

	res, err := h.Getter.Get(c.Request.Context(), params, includeDetails)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if cacheable && len(res.Events) > 0 {
		h.Cache.Set(c.Request.Context(), params.EventKey, res)
	}
	Ok(c, res, nil)
}

func (h *EventsHandler) getByID(c *gin.Context) {
	if h.Getter == nil {
		Error(c, http.StatusInternalServerError, "getter unavailable", nil)
		return
	}
	eventID := strings.TrimSpace(c.Param("event_id"))
	if eventID == "" {
		Error(c, http.StatusBadRequest, "invalid event_id", nil)
		return
	}
	res, err := h.Getter.Get(c.Request.Context(), repository.ListEventsParams{EventID: eventID, Limit: 1}, true)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if len(res.Events) == 0 {
		Error(c, http.StatusNotFound, "event not found", nil)
		return
	}
	Ok(c, res.Events[0], nil)
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQuery(c *gin.Context, key string, def bool) bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

func floatQueryPtr(c *gin.Context, key string) *float64 {
	if val := c.Query(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return &f
		}
	}
	return nil
}

func timeQueryPtr(c *gin.Context, key string) *time.Time {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if ts, err := time.Parse(time.RFC3339, val); err == nil {
			t := ts.UTC()
			return &t
		}
	}
	return nil
}

func csvQuery(c *gin.Context, key string) []string {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
