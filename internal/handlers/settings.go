package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/ozgurkara/bordrohub/internal/auth"
	"github.com/ozgurkara/bordrohub/internal/httpx"
	"github.com/ozgurkara/bordrohub/internal/models"
	"github.com/ozgurkara/bordrohub/internal/services"
	"github.com/ozgurkara/bordrohub/internal/validation"
)

type SettingsHandler struct {
	DB          *gorm.DB
	LogoDir     string
	MaxLogoSize int64
}

func NewSettingsHandler(db *gorm.DB, logoDir string, maxLogoSize int64) *SettingsHandler {
	return &SettingsHandler{DB: db, LogoDir: logoDir, MaxLogoSize: maxLogoSize}
}

func (h *SettingsHandler) company(r *http.Request) (*models.Company, bool) {
	id, _ := auth.IdentityFromContext(r.Context())
	var c models.Company
	if err := h.DB.First(&c, id.CompanyID).Error; err != nil {
		return nil, false
	}
	return &c, true
}

// GetCompany returns the tenant settings. The SMTP password never leaves
// the API; only its presence is reported.
func (h *SettingsHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	c, ok := h.company(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "company_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"company":           c,
		"smtp_password_set": c.SMTPPassword != "",
	})
}

type companyRequest struct {
	Name             *string `json:"name"`
	TrackingBaseURL  *string `json:"tracking_base_url"`
	MailDelaySeconds *int    `json:"mail_delay_seconds"`
	MailBatchSize    *int    `json:"mail_batch_size"`
	MailBatchDelay   *int    `json:"mail_batch_delay"`
}

// UpdateCompany edits the general tenant settings.
func (h *SettingsHandler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	c, ok := h.company(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "company_not_found", nil)
		return
	}
	var req companyRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"name": "required"})
			return
		}
		updates["name"] = name
	}
	if req.TrackingBaseURL != nil {
		updates["tracking_base_url"] = strings.TrimRight(strings.TrimSpace(*req.TrackingBaseURL), "/")
	}
	if req.MailDelaySeconds != nil && *req.MailDelaySeconds >= 0 {
		updates["mail_delay_seconds"] = *req.MailDelaySeconds
	}
	if req.MailBatchSize != nil && *req.MailBatchSize >= 0 {
		updates["mail_batch_size"] = *req.MailBatchSize
	}
	if req.MailBatchDelay != nil && *req.MailBatchDelay >= 0 {
		updates["mail_batch_delay"] = *req.MailBatchDelay
	}
	if len(updates) > 0 {
		if err := h.DB.Model(c).Updates(updates).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_company", nil)
			return
		}
		audit(h.DB, id, r, models.AuditSettingsUpdate, "")
	}
	httpx.JSON(w, http.StatusOK, c)
}

type smtpRequest struct {
	Server     string  `json:"server"`
	Port       int     `json:"port"`
	Username   string  `json:"username"`
	Password   *string `json:"password"` // nil keeps the stored one
	UseTLS     *bool   `json:"use_tls"`
	SenderName string  `json:"sender_name"`
}

// UpdateSMTP stores the mail account. An omitted password keeps the
// current one, so the form can round-trip without ever seeing it.
func (h *SettingsHandler) UpdateSMTP(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	c, ok := h.company(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "company_not_found", nil)
		return
	}
	var req smtpRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("server", req.Server, v)
	validation.Required("username", req.Username, v)
	if req.Port <= 0 || req.Port > 65535 {
		v["port"] = "invalid_port"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	updates := map[string]any{
		"smtp_server":      strings.TrimSpace(req.Server),
		"smtp_port":        req.Port,
		"smtp_username":    strings.TrimSpace(req.Username),
		"smtp_sender_name": strings.TrimSpace(req.SenderName),
	}
	if req.Password != nil {
		updates["smtp_password"] = *req.Password
	}
	if req.UseTLS != nil {
		updates["smtp_use_tls"] = *req.UseTLS
	}
	if err := h.DB.Model(c).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_smtp", nil)
		return
	}
	audit(h.DB, id, r, models.AuditSMTPUpdate, "")
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type smtpTestRequest struct {
	To string `json:"to"`
}

// TestSMTP connects to the stored account and sends a probe mail.
func (h *SettingsHandler) TestSMTP(w http.ResponseWriter, r *http.Request) {
	c, ok := h.company(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "company_not_found", nil)
		return
	}
	if !c.SMTPConfigured() {
		httpx.JSONError(w, http.StatusBadRequest, "smtp_not_configured", nil)
		return
	}
	var req smtpTestRequest
	if err := httpx.Decode(r, &req); err != nil || !validation.IsEmail(req.To) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"to": "invalid_email"})
		return
	}
	m := services.NewCompanyMailer(c)
	if err := m.TestConnection(); err != nil {
		httpx.JSONError(w, http.StatusBadGateway, "smtp_connection_failed", err.Error())
		return
	}
	if err := m.SendTest(req.To); err != nil {
		httpx.JSONError(w, http.StatusBadGateway, "smtp_send_failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

type mailTemplateRequest struct {
	Subject         *string `json:"subject"`
	Body            *string `json:"body"`
	PrimaryColor    *string `json:"primary_color"`
	SecondaryColor  *string `json:"secondary_color"`
	BackgroundColor *string `json:"background_color"`
	TextColor       *string `json:"text_color"`
	HeaderTextColor *string `json:"header_text_color"`
	FooterText      *string `json:"footer_text"`
	DisclaimerText  *string `json:"disclaimer_text"`
	ShowLogo        *bool   `json:"show_logo"`
	LogoWidth       *int    `json:"logo_width"`
}

// UpdateMailTemplate edits the per-company mail look.
func (h *SettingsHandler) UpdateMailTemplate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	c, ok := h.company(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "company_not_found", nil)
		return
	}
	var req mailTemplateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	updates := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	set("mail_subject", req.Subject)
	set("mail_body", req.Body)
	set("mail_primary_color", req.PrimaryColor)
	set("mail_secondary_color", req.SecondaryColor)
	set("mail_background_color", req.BackgroundColor)
	set("mail_text_color", req.TextColor)
	set("mail_header_text_color", req.HeaderTextColor)
	set("mail_footer_text", req.FooterText)
	set("mail_disclaimer_text", req.DisclaimerText)
	if req.ShowLogo != nil {
		updates["mail_show_logo"] = *req.ShowLogo
	}
	if req.LogoWidth != nil && *req.LogoWidth > 0 && *req.LogoWidth <= 600 {
		updates["mail_logo_width"] = *req.LogoWidth
	}
	if len(updates) > 0 {
		if err := h.DB.Model(c).Updates(updates).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_template", nil)
			return
		}
		audit(h.DB, id, r, models.AuditTemplateUpdate, "")
	}
	httpx.JSON(w, http.StatusOK, c)
}

// PreviewMail renders the current template with sample data.
func (h *SettingsHandler) PreviewMail(w http.ResponseWriter, r *http.Request) {
	c, ok := h.company(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "company_not_found", nil)
		return
	}
	body := c.MailBody
	if body == "" {
		body = models.DefaultMailBody
	}
	html, err := services.NewCompanyMailer(c).Preview(body)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_render_preview", nil)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, html)
}

var logoExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".svg":  true,
	".webp": true,
}

// UploadLogo stores the company logo used in the mail header.
func (h *SettingsHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	c, ok := h.company(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "company_not_found", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxLogoSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "file_required", nil)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !logoExtensions[ext] {
		httpx.JSONError(w, http.StatusBadRequest, "unsupported_image_type", nil)
		return
	}
	if err := os.MkdirAll(h.LogoDir, 0o755); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_store_logo", nil)
		return
	}
	path := filepath.Join(h.LogoDir, fmt.Sprintf("company_%d%s", c.ID, ext))
	dst, err := os.Create(path)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_store_logo", nil)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		httpx.JSONError(w, http.StatusBadRequest, "failed_to_store_logo", nil)
		return
	}
	dst.Close()

	// drop a previous logo with a different extension
	if c.LogoPath != "" && c.LogoPath != path {
		os.Remove(c.LogoPath)
	}
	if err := h.DB.Model(c).Update("logo_path", path).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_store_logo", nil)
		return
	}
	audit(h.DB, id, r, models.AuditSettingsUpdate, "logo")
	httpx.JSON(w, http.StatusOK, map[string]string{"logo_path": path})
}

// GetLogo serves the stored logo file.
func (h *SettingsHandler) GetLogo(w http.ResponseWriter, r *http.Request) {
	c, ok := h.company(r)
	if !ok || c.LogoPath == "" {
		httpx.JSONError(w, http.StatusNotFound, "logo_not_found", nil)
		return
	}
	if _, err := os.Stat(c.LogoPath); err != nil {
		httpx.JSONError(w, http.StatusNotFound, "logo_not_found", nil)
		return
	}
	http.ServeFile(w, r, c.LogoPath)
}

// DeleteLogo removes the logo file and clears the reference.
func (h *SettingsHandler) DeleteLogo(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	c, ok := h.company(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "company_not_found", nil)
		return
	}
	if c.LogoPath != "" {
		os.Remove(c.LogoPath)
	}
	if err := h.DB.Model(c).Update("logo_path", "").Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_logo", nil)
		return
	}
	audit(h.DB, id, r, models.AuditSettingsUpdate, "logo_deleted")
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
