// Package handler exposes the budget book over HTTP.
package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/renobook/renobook/internal/domain/budget/repository"
	"github.com/renobook/renobook/internal/domain/budget/service"
	"github.com/renobook/renobook/internal/domain/report"
	"github.com/renobook/renobook/internal/domain/sheet"
	apperrors "github.com/renobook/renobook/internal/errors"
	"github.com/renobook/renobook/internal/respond"
)

// UploadConfig bounds spreadsheet uploads before they reach the parser.
type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

// BudgetHandler handles budget CRUD, import/export and reordering.
type BudgetHandler struct {
	svc      *service.BudgetService
	renderer *report.Renderer
	upload   UploadConfig
}

// NewBudgetHandler creates a budget handler.
func NewBudgetHandler(svc *service.BudgetService, renderer *report.Renderer, upload UploadConfig) *BudgetHandler {
	return &BudgetHandler{svc: svc, renderer: renderer, upload: upload}
}

// RegisterRoutes mounts all budget routes on the group.
func (h *BudgetHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/data", h.LoadData)

	rg.POST("/items", h.AddItem)
	rg.GET("/items/:id", h.GetItem)
	rg.PUT("/items/:id", h.UpdateItem)
	rg.POST("/items/delete", h.DeleteItems)

	rg.POST("/categories", h.AddCategory)
	rg.DELETE("/categories/:id", h.DeleteCategory)
	rg.POST("/categories/reorder", h.ReorderCategories)
	rg.POST("/categories/:id/items/reorder", h.ReorderItems)

	rg.POST("/import", h.Import)
	rg.POST("/validate", h.Validate)
	rg.GET("/export", h.ExportExcel)
	rg.GET("/export/csv", h.ExportCSV)
	rg.GET("/export/pdf", h.ExportPDF)
}

// LoadData returns the whole book grouped by category with totals.
func (h *BudgetHandler) LoadData(c *gin.Context) {
	overview, err := h.svc.Overview(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Data(c, overview)
}

// AddItem creates one item.
func (h *BudgetHandler) AddItem(c *gin.Context) {
	var req service.ItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	item, err := h.svc.AddItem(c.Request.Context(), req)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, "添加成功", gin.H{"item": item})
}

// GetItem returns one item by id.
func (h *BudgetHandler) GetItem(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}
	item, err := h.svc.GetItem(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Data(c, item)
}

// UpdateItem rewrites one item's fields.
func (h *BudgetHandler) UpdateItem(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}
	var req service.ItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	item, err := h.svc.UpdateItem(c.Request.Context(), id, req)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, "更新成功", gin.H{"item": item})
}

type deleteItemsRequest struct {
	IDs []int64 `json:"ids"`
}

// DeleteItems removes a batch of items by id.
func (h *BudgetHandler) DeleteItems(c *gin.Context) {
	var req deleteItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	deleted, err := h.svc.DeleteItems(c.Request.Context(), req.IDs)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, fmt.Sprintf("已删除 %d 个项目", deleted), gin.H{"deleted": deleted})
}

type addCategoryRequest struct {
	Name string `json:"name"`
}

// AddCategory creates a category (idempotent on the name).
func (h *BudgetHandler) AddCategory(c *gin.Context) {
	var req addCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	id, err := h.svc.AddCategory(c.Request.Context(), req.Name)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, "分类已添加", gin.H{"id": id})
}

// DeleteCategory removes a category; its items survive uncategorized.
func (h *BudgetHandler) DeleteCategory(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}
	name, detached, err := h.svc.DeleteCategory(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, fmt.Sprintf("分类 %s 已删除", name), gin.H{"detached_items": detached})
}

type reorderCategoriesRequest struct {
	Orders []repository.CategoryOrder `json:"orders"`
}

// ReorderCategories applies new display positions.
func (h *BudgetHandler) ReorderCategories(c *gin.Context) {
	var req reorderCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	if err := h.svc.ReorderCategories(c.Request.Context(), req.Orders); err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, "排序已更新", nil)
}

type reorderItemsRequest struct {
	Orders []repository.ItemOrder `json:"orders"`
}

// ReorderItems applies new sequence positions within one category.
func (h *BudgetHandler) ReorderItems(c *gin.Context) {
	categoryID, err := pathID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}
	var req reorderItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	if err := h.svc.ReorderItems(c.Request.Context(), categoryID, req.Orders); err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, "排序已更新", nil)
}

// Import replaces the whole store with an uploaded spreadsheet.
func (h *BudgetHandler) Import(c *gin.Context) {
	path, cleanup, err := h.receiveUpload(c)
	if err != nil {
		respond.Error(c, err)
		return
	}
	defer cleanup()

	f, err := os.Open(path)
	if err != nil {
		respond.Error(c, apperrors.Wrap(apperrors.ErrInternal, err))
		return
	}
	defer f.Close()

	summary, err := h.svc.ImportWorkbook(c.Request.Context(), f)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, fmt.Sprintf("导入成功：%d 个分类，%d 个项目", summary.Categories, summary.Items),
		gin.H{"summary": summary})
}

// Validate checks an uploaded spreadsheet's structure without importing.
func (h *BudgetHandler) Validate(c *gin.Context) {
	path, cleanup, err := h.receiveUpload(c)
	if err != nil {
		respond.Error(c, err)
		return
	}
	defer cleanup()

	f, err := os.Open(path)
	if err != nil {
		respond.Error(c, apperrors.Wrap(apperrors.ErrInternal, err))
		return
	}
	defer f.Close()

	respond.Data(c, sheet.ValidateReader(f))
}

// receiveUpload enforces the extension allowlist and size ceiling, then
// stages the file under a random name in the upload directory.
func (h *BudgetHandler) receiveUpload(c *gin.Context) (string, func(), error) {
	file, err := c.FormFile("file")
	if err != nil {
		return "", nil, apperrors.Wrap(apperrors.ErrBadUpload, err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		return "", nil, apperrors.ErrBadUpload
	}
	if h.upload.MaxBytes > 0 && file.Size > h.upload.MaxBytes {
		return "", nil, apperrors.ErrUploadTooLarge
	}

	if err := os.MkdirAll(h.upload.Dir, 0o750); err != nil {
		return "", nil, apperrors.Wrap(apperrors.ErrInternal, err)
	}
	path := filepath.Join(h.upload.Dir, uuid.New().String()+ext)
	if err := c.SaveUploadedFile(file, path); err != nil {
		return "", nil, apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return path, func() { _ = os.Remove(path) }, nil
}

// ExportExcel rebuilds and streams the canonical spreadsheet.
func (h *BudgetHandler) ExportExcel(c *gin.Context) {
	f, err := h.svc.ExportWorkbook(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	defer f.Close()

	filename := "装修预算表_导出_" + time.Now().Format("20060102_150405") + ".xlsx"
	setAttachment(c, filename, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		respond.Error(c, apperrors.Wrap(apperrors.ErrInternal, err))
	}
}

// ExportCSV streams the book as a flat CSV.
func (h *BudgetHandler) ExportCSV(c *gin.Context) {
	filename := "装修预算表_导出_" + time.Now().Format("20060102_150405") + ".csv"
	setAttachment(c, filename, "text/csv; charset=utf-8")
	if err := h.svc.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		respond.Error(c, err)
	}
}

// ExportPDF renders and streams the printable report.
func (h *BudgetHandler) ExportPDF(c *gin.Context) {
	overview, err := h.svc.Overview(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	data, err := h.renderer.Render(c.Request.Context(), "装修预算表", overview)
	if err != nil {
		respond.Error(c, err)
		return
	}
	filename := "装修预算表_" + time.Now().Format("20060102_150405") + ".pdf"
	setAttachment(c, filename, "application/pdf")
	c.Data(http.StatusOK, "application/pdf", data)
}

func setAttachment(c *gin.Context, filename, contentType string) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition",
		"attachment; filename*=UTF-8''"+url.PathEscape(filename))
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "无效的 id")
	}
	return id, nil
}
