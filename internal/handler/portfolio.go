package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yingkiat/swing-sage/internal/views"
)

type PortfolioHandler struct {
	Views *views.Service
}

func (h *PortfolioHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1")
	g.GET("/portfolio/overview", h.overview)
	g.GET("/portfolio/activity", h.activity)
	g.GET("/analysis/performance", h.performance)
}

func (h *PortfolioHandler) overview(c *gin.Context) {
	if h.Views == nil {
		Error(c, http.StatusInternalServerError, "views unavailable", nil)
		return
	}
	out, err := h.Views.PortfolioOverview(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, out, nil)
}

func (h *PortfolioHandler) activity(c *gin.Context) {
	if h.Views == nil {
		Error(c, http.StatusInternalServerError, "views unavailable", nil)
		return
	}
	out, err := h.Views.RecentActivity(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, out, nil)
}

func (h *PortfolioHandler) performance(c *gin.Context) {
	if h.Views == nil {
		Error(c, http.StatusInternalServerError, "views unavailable", nil)
		return
	}
	out, err := h.Views.AnalysisPerformance(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, out, nil)
}
