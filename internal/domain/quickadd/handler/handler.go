// Package handler exposes the free-text quick-add endpoints.
package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/renobook/renobook/internal/domain/quickadd"
	apperrors "github.com/renobook/renobook/internal/errors"
	"github.com/renobook/renobook/internal/respond"
)

// QuickAddHandler handles parse and parse-and-add requests.
type QuickAddHandler struct {
	svc *quickadd.Service
}

// NewQuickAddHandler creates a quick-add handler.
func NewQuickAddHandler(svc *quickadd.Service) *QuickAddHandler {
	return &QuickAddHandler{svc: svc}
}

// RegisterRoutes mounts the quick-add routes on the group.
func (h *QuickAddHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/parse", h.Parse)
	rg.POST("/parse-and-add", h.ParseAndAdd)
}

type parseRequest struct {
	Text string `json:"text"`
}

// Parse extracts fields from one line of text for user confirmation.
func (h *QuickAddHandler) Parse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	preview, err := h.svc.ParseText(c.Request.Context(), req.Text)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Data(c, preview)
}

// ParseAndAdd parses text and stores the items. Multi-line input runs the
// batch pipeline; lines succeed or fail independently.
func (h *QuickAddHandler) ParseAndAdd(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}

	if strings.Contains(strings.TrimSpace(req.Text), "\n") {
		result, err := h.svc.ParseAndAddBatch(c.Request.Context(), req.Text)
		if err != nil {
			respond.Error(c, err)
			return
		}
		respond.OK(c, "批量添加完成", gin.H{"result": result})
		return
	}

	item, err := h.svc.ParseAndAdd(c.Request.Context(), req.Text)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, "智能添加成功", gin.H{"item": item})
}
