package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/ozgurkara/bordrohub/internal/auth"
	"github.com/ozgurkara/bordrohub/internal/httpx"
	"github.com/ozgurkara/bordrohub/internal/models"
	"github.com/ozgurkara/bordrohub/internal/security"
)

type AuditHandler struct {
	DB *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler { return &AuditHandler{DB: db} }

// List returns the audit trail, newest first.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	limit, offset := pagination(r)

	q := h.DB.Model(&models.AuditLog{}).Where("company_id = ?", id.CompanyID)
	if action := security.SanitizeSearch(r.URL.Query().Get("action")); action != "" {
		q = q.Where("action = ?", action)
	}
	var total int64
	q.Count(&total)
	var entries []models.AuditLog
	if err := q.Order("id desc").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_audit", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": entries, "total": total})
}
