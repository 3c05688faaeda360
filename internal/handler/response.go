package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// envelope is the uniform response body for every endpoint. Code is zero on
// success and mirrors the HTTP status on failure; Meta carries paging totals
// and cache markers.
type envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Ok writes a 200 envelope around data.
func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, envelope{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

// Error writes a failure envelope with the given status and message.
func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, envelope{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}
