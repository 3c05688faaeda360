package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yingkiat/swing-sage/internal/projection"
)

type AdminHandler struct {
	Engine *projection.Engine
	Logger *zap.Logger
}

func (h *AdminHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/admin")
	g.POST("/rebuild", h.rebuild)
	g.POST("/snapshot", h.snapshot)
}

// rebuild truncates every derived table and replays the full spine. The
// spine itself is never touched.
func (h *AdminHandler) rebuild(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	res, err := h.Engine.Rebuild(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("rebuild failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, res, nil)
}

func (h *AdminHandler) snapshot(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	if err := h.Engine.TakeScheduledSnapshot(c.Request.Context()); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"status": "snapshot_taken"}, nil)
}
