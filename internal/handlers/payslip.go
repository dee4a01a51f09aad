package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ozgurkara/bordrohub/internal/auth"
	"github.com/ozgurkara/bordrohub/internal/httpx"
	"github.com/ozgurkara/bordrohub/internal/jobs"
	"github.com/ozgurkara/bordrohub/internal/models"
	"github.com/ozgurkara/bordrohub/internal/pdfsplit"
	"github.com/ozgurkara/bordrohub/internal/security"
	"github.com/ozgurkara/bordrohub/internal/services"
	"github.com/ozgurkara/bordrohub/internal/validation"
	"github.com/ozgurkara/bordrohub/internal/xlsx"
)

type PayslipHandler struct {
	DB        *gorm.DB
	Intake    *services.Intake
	Sender    *services.Sender
	Jobs      *jobs.Store
	Processor *pdfsplit.Processor

	UploadDir     string
	MaxUploadSize int64
}

// payslipResponse adds the masked TC and display name to the model.
type payslipResponse struct {
	*models.Payslip
	TCNoMasked  string `json:"tc_no_masked"`
	DisplayName string `json:"display_name"`
}

func toPayslipResponse(p *models.Payslip) payslipResponse {
	return payslipResponse{Payslip: p, TCNoMasked: models.MaskTC(p.TCNo), DisplayName: p.DisplayName()}
}

func toPayslipResponses(list []models.Payslip) []payslipResponse {
	out := make([]payslipResponse, len(list))
	for i := range list {
		out[i] = toPayslipResponse(&list[i])
	}
	return out
}

// Upload receives the multi-page payroll PDF for one period, splits it
// per employee and stores the matched pages.
func (h *PayslipHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	period := r.URL.Query().Get("period")
	if period == "" {
		period = r.FormValue("period")
	}
	if !validation.IsPeriod(period) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"period": "invalid_period"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "file_required", nil)
		return
	}
	defer file.Close()
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		httpx.JSONError(w, http.StatusBadRequest, "pdf_required", nil)
		return
	}

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "upload_failed", nil)
		return
	}
	tmpPath := filepath.Join(h.UploadDir, uuid.NewString()+".pdf")
	dst, err := os.Create(tmpPath)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "upload_failed", nil)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		httpx.JSONError(w, http.StatusBadRequest, "upload_failed", nil)
		return
	}
	dst.Close()
	defer os.Remove(tmpPath)

	res, err := h.Intake.ProcessUpload(id.CompanyID, period, tmpPath, security.SanitizeFilename(header.Filename))
	if err != nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "pdf_processing_failed", err.Error())
		return
	}
	audit(h.DB, id, r, models.AuditPayslipUpload,
		fmt.Sprintf("period=%s pages=%d created=%d", period, res.TotalPages, res.Created))
	httpx.JSON(w, http.StatusOK, res)
}

// List returns payslips with period, status and name filters.
func (h *PayslipHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	limit, offset := pagination(r)

	q := h.DB.Model(&models.Payslip{}).Where("payslips.company_id = ?", id.CompanyID)
	if period := r.URL.Query().Get("period"); period != "" {
		if !validation.IsPeriod(period) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"period": "invalid_period"})
			return
		}
		q = q.Where("payslips.period = ?", period)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		if status == string(models.PayslipStatusNoEmployee) {
			// unmatched pages, whatever their stored status says
			q = q.Where("payslips.employee_id IS NULL")
		} else {
			q = q.Where("payslips.status = ?", status)
		}
	}
	if empID := r.URL.Query().Get("employee_id"); empID != "" {
		n, err := strconv.ParseUint(empID, 10, 64)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"employee_id": "invalid_id"})
			return
		}
		q = q.Where("payslips.employee_id = ?", n)
	}
	if search := security.SanitizeSearch(r.URL.Query().Get("search")); search != "" {
		if validation.IsTCNo(search) {
			q = q.Where("payslips.tc_no = ?", search)
		} else {
			like := "%" + strings.ToLower(search) + "%"
			q = q.Joins("LEFT JOIN employees ON employees.id = payslips.employee_id").
				Where(`lower(payslips.extracted_first_name) LIKE ? OR lower(payslips.extracted_last_name) LIKE ?
					OR lower(employees.first_name) LIKE ? OR lower(employees.last_name) LIKE ?`,
					like, like, like, like)
		}
	}

	var total int64
	q.Count(&total)
	var payslips []models.Payslip
	if err := q.Preload("Employee").Order("payslips.id desc").Limit(limit).Offset(offset).Find(&payslips).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_payslips", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": toPayslipResponses(payslips),
		"total": total,
	})
}

type periodSummary struct {
	Period    string `json:"period"`
	Total     int64  `json:"total"`
	Sent      int64  `json:"sent"`
	Pending   int64  `json:"pending"`
	Unmatched int64  `json:"unmatched"`
	Failed    int64  `json:"failed"`
}

// Periods lists every uploaded period with per-status counts.
func (h *PayslipHandler) Periods(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	type row struct {
		Period string
		Status models.PayslipStatus
		N      int64
	}
	var rows []row
	err := h.DB.Model(&models.Payslip{}).
		Select("period, status, count(*) as n").
		Where("company_id = ?", id.CompanyID).
		Group("period, status").
		Order("period desc").
		Scan(&rows).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_periods", nil)
		return
	}

	byPeriod := map[string]*periodSummary{}
	var order []string
	for _, rw := range rows {
		s, ok := byPeriod[rw.Period]
		if !ok {
			s = &periodSummary{Period: rw.Period}
			byPeriod[rw.Period] = s
			order = append(order, rw.Period)
		}
		s.Total += rw.N
		switch rw.Status {
		case models.PayslipStatusSent, models.PayslipStatusOpened, models.PayslipStatusDownloaded:
			s.Sent += rw.N
		case models.PayslipStatusPending:
			s.Pending += rw.N
		case models.PayslipStatusNoEmployee:
			s.Unmatched += rw.N
		case models.PayslipStatusFailed:
			s.Failed += rw.N
		}
	}
	out := make([]periodSummary, 0, len(order))
	for _, p := range order {
		out = append(out, *byPeriod[p])
	}
	httpx.JSON(w, http.StatusOK, out)
}

type sendRequest struct {
	Period      string `json:"period"`
	PayslipIDs  []uint `json:"payslip_ids"`
	ForceResend bool   `json:"force_resend"`
}

// Send queues a background delivery job. Without explicit ids every
// pending or failed payslip of the period goes out. Already delivered
// payslips need force_resend, otherwise the call is rejected.
func (h *PayslipHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var req sendRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	var company models.Company
	if err := h.DB.First(&company, id.CompanyID).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "send_failed", nil)
		return
	}
	if !company.SMTPConfigured() {
		httpx.JSONError(w, http.StatusBadRequest, "smtp_not_configured", nil)
		return
	}

	var payslips []models.Payslip
	q := h.DB.Where("company_id = ?", id.CompanyID)
	switch {
	case len(req.PayslipIDs) > 0:
		q = q.Where("id IN ?", req.PayslipIDs)
	case validation.IsPeriod(req.Period):
		q = q.Where("period = ?", req.Period)
		if !req.ForceResend {
			q = q.Where("status IN ?", []models.PayslipStatus{models.PayslipStatusPending, models.PayslipStatusFailed})
		} else {
			q = q.Where("employee_id IS NOT NULL")
		}
	default:
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"period": "invalid_period"})
		return
	}
	if err := q.Find(&payslips).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "send_failed", nil)
		return
	}
	if len(payslips) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "nothing_to_send", nil)
		return
	}

	if !req.ForceResend {
		var delivered []uint
		for _, p := range payslips {
			if p.Delivered() {
				delivered = append(delivered, p.ID)
			}
		}
		if len(delivered) > 0 {
			httpx.JSONError(w, http.StatusConflict, "already_sent", map[string]any{"payslip_ids": delivered})
			return
		}
	}

	ids := make([]uint, len(payslips))
	for i, p := range payslips {
		ids[i] = p.ID
	}
	jobID, err := h.Jobs.Create(r.Context(), "payslip_send", len(ids), id.CompanyID, id.UserID,
		map[string]any{"period": req.Period})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "send_failed", nil)
		return
	}
	go h.Sender.SendBatch(context.Background(), jobID, &company, ids, id.UserID)

	audit(h.DB, id, r, models.AuditPayslipSend, fmt.Sprintf("period=%s count=%d", req.Period, len(ids)))
	httpx.JSON(w, http.StatusAccepted, map[string]any{"job_id": jobID, "total": len(ids)})
}

// SelectPending returns the ids a "send everything outstanding" action
// would target: pending or failed, matched to an employee.
func (h *PayslipHandler) SelectPending(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	q := h.DB.Model(&models.Payslip{}).
		Where("company_id = ? AND employee_id IS NOT NULL", id.CompanyID).
		Where("status IN ?", []models.PayslipStatus{models.PayslipStatusPending, models.PayslipStatusFailed})
	if period := r.URL.Query().Get("period"); period != "" {
		if !validation.IsPeriod(period) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"period": "invalid_period"})
			return
		}
		q = q.Where("period = ?", period)
	}
	var ids []uint
	if err := q.Order("id").Pluck("id", &ids).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_payslips", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ids": ids, "total": len(ids)})
}

// SelectAll returns every payslip id, optionally narrowed to a period.
func (h *PayslipHandler) SelectAll(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	q := h.DB.Model(&models.Payslip{}).Where("company_id = ?", id.CompanyID)
	if period := r.URL.Query().Get("period"); period != "" {
		if !validation.IsPeriod(period) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"period": "invalid_period"})
			return
		}
		q = q.Where("period = ?", period)
	}
	var ids []uint
	if err := q.Order("id").Pluck("id", &ids).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_payslips", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ids": ids, "total": len(ids)})
}

// deleteRows removes the given payslips with their events and files.
func (h *PayslipHandler) deleteRows(companyID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var paths []string
	h.DB.Model(&models.Payslip{}).
		Where("company_id = ? AND id IN ?", companyID, ids).
		Pluck("pdf_path", &paths)
	var deleted int64
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("payslip_id IN ?", ids).Delete(&models.TrackingEvent{}).Error; err != nil {
			return err
		}
		res := tx.Where("company_id = ? AND id IN ?", companyID, ids).Delete(&models.Payslip{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, err
	}
	for _, p := range paths {
		if p != "" {
			os.Remove(p)
		}
	}
	return deleted, nil
}

// BulkDelete removes the listed payslips, their events and files.
func (h *PayslipHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var req struct {
		IDs []uint `json:"ids"`
	}
	if err := httpx.Decode(r, &req); err != nil || len(req.IDs) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	deleted, err := h.deleteRows(id.CompanyID, req.IDs)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_payslips", nil)
		return
	}
	audit(h.DB, id, r, models.AuditPayslipDelete, fmt.Sprintf("bulk deleted=%d", deleted))
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// DeleteAll wipes every payslip of the company, all periods included.
func (h *PayslipHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var ids []uint
	h.DB.Model(&models.Payslip{}).Where("company_id = ?", id.CompanyID).Pluck("id", &ids)
	deleted, err := h.deleteRows(id.CompanyID, ids)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_payslips", nil)
		return
	}
	audit(h.DB, id, r, models.AuditPayslipDelete, fmt.Sprintf("all deleted=%d", deleted))
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// Delete removes one payslip, its events and its cut PDF.
func (h *PayslipHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	pID, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "payslip_not_found", nil)
		return
	}
	var p models.Payslip
	if err := h.DB.Where("company_id = ?", id.CompanyID).First(&p, pID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "payslip_not_found", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("payslip_id = ?", p.ID).Delete(&models.TrackingEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_payslip", nil)
		return
	}
	os.Remove(p.PDFPath)
	audit(h.DB, id, r, models.AuditPayslipDelete, fmt.Sprintf("id=%d period=%s", p.ID, p.Period))
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// DeletePeriod wipes a whole period: rows, events and files.
func (h *PayslipHandler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	period := r.PathValue("period")
	if !validation.IsPeriod(period) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"period": "invalid_period"})
		return
	}
	var ids []uint
	h.DB.Model(&models.Payslip{}).
		Where("company_id = ? AND period = ?", id.CompanyID, period).
		Pluck("id", &ids)
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if len(ids) > 0 {
			if err := tx.Where("payslip_id IN ?", ids).Delete(&models.TrackingEvent{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("company_id = ? AND period = ?", id.CompanyID, period).Delete(&models.Payslip{}).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_period", nil)
		return
	}
	h.Processor.DeletePeriod(id.CompanyID, period)
	audit(h.DB, id, r, models.AuditPayslipDelete, fmt.Sprintf("period=%s count=%d", period, len(ids)))
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "deleted", "count": len(ids)})
}

// Report streams the delivery report of one period as a workbook.
func (h *PayslipHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	period := r.PathValue("period")
	if !validation.IsPeriod(period) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"period": "invalid_period"})
		return
	}
	var payslips []models.Payslip
	err := h.DB.Preload("Employee").
		Where("company_id = ? AND period = ?", id.CompanyID, period).
		Order("id").
		Find(&payslips).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_build_report", nil)
		return
	}
	raw, err := xlsx.BuildSendReport(period, payslips)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_build_report", nil)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", xlsx.ReportFilename(period)))
	w.Write(raw)
}
