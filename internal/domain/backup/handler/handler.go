// Package handler exposes backup management over HTTP.
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/renobook/renobook/internal/domain/backup"
	apperrors "github.com/renobook/renobook/internal/errors"
	"github.com/renobook/renobook/internal/respond"
)

// BackupHandler handles backup create/list/restore/delete requests.
type BackupHandler struct {
	svc *backup.Service
}

// NewBackupHandler creates a backup handler.
func NewBackupHandler(svc *backup.Service) *BackupHandler {
	return &BackupHandler{svc: svc}
}

// RegisterRoutes mounts the backup routes on the group.
func (h *BackupHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/backups", h.List)
	rg.POST("/backups", h.Create)
	rg.POST("/backups/:filename/restore", h.Restore)
	rg.DELETE("/backups/:filename", h.Delete)
}

type createRequest struct {
	Description string `json:"description"`
}

// Create snapshots the database, optionally labeled.
func (h *BackupHandler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respond.Error(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	filename, err := h.svc.Create(c.Request.Context(), req.Description)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, "备份已创建", gin.H{"filename": filename})
}

// List returns all backups, newest first.
func (h *BackupHandler) List(c *gin.Context) {
	backups, err := h.svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Data(c, backups)
}

// Restore replaces the live database with the named backup.
func (h *BackupHandler) Restore(c *gin.Context) {
	filename := c.Param("filename")
	if err := h.svc.Restore(c.Request.Context(), filename); err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, "数据库已从备份恢复: "+filename, nil)
}

// Delete removes the named backup file.
func (h *BackupHandler) Delete(c *gin.Context) {
	filename := c.Param("filename")
	if err := h.svc.Delete(c.Request.Context(), filename); err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, "备份文件已删除: "+filename, nil)
}
