package handlers

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/ozgurkara/bordrohub/internal/auth"
	"github.com/ozgurkara/bordrohub/internal/httpx"
	"github.com/ozgurkara/bordrohub/internal/models"
	"github.com/ozgurkara/bordrohub/internal/security"
	"github.com/ozgurkara/bordrohub/internal/validation"
)

type TrackingHandler struct {
	DB     *gorm.DB
	Signer *security.Signer

	// PDFRoot confines download paths; nothing outside it is served.
	PDFRoot string

	IPLimiter       *security.RateLimiter
	TrackingLimiter *security.RateLimiter
}

// pixelPNG is the 1x1 transparent image served by the open tracker.
var pixelPNG = func() []byte {
	var buf bytes.Buffer
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}()

func servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Write(pixelPNG)
}

// Pixel records a mail-open event. It always answers with the image,
// whatever happened; mail clients must never see an error.
func (h *TrackingHandler) Pixel(w http.ResponseWriter, r *http.Request) {
	trackingID := r.PathValue("tracking_id")
	if !security.ValidTrackingID(trackingID) {
		servePixel(w)
		return
	}
	var p models.Payslip
	if err := h.DB.Where("tracking_id = ?", trackingID).First(&p).Error; err != nil {
		servePixel(w)
		return
	}
	h.DB.Create(&models.TrackingEvent{
		PayslipID: p.ID,
		EventType: models.EventEmailOpened,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	p.MarkOpened()
	h.DB.Model(&p).Update("status", p.Status)
	servePixel(w)
}

// Download serves the encrypted PDF behind a signed, expiring link.
func (h *TrackingHandler) Download(w http.ResponseWriter, r *http.Request) {
	trackingID := r.PathValue("tracking_id")
	if !security.ValidTrackingID(trackingID) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	ts, err := strconv.ParseInt(r.URL.Query().Get("t"), 10, 64)
	sig := r.URL.Query().Get("s")
	if err != nil || sig == "" {
		httpx.JSONError(w, http.StatusForbidden, "invalid_link", nil)
		return
	}
	if !h.Signer.Verify(trackingID, ts, sig) {
		httpx.JSONError(w, http.StatusForbidden, "invalid_link", nil)
		return
	}
	if h.Signer.Expired(ts, timeNow()) {
		httpx.JSONError(w, http.StatusGone, "link_expired", nil)
		return
	}

	ip := clientIP(r)
	if h.IPLimiter != nil && !h.IPLimiter.Allow(ip) {
		httpx.JSONError(w, http.StatusTooManyRequests, "too_many_requests", nil)
		return
	}
	if h.TrackingLimiter != nil && !h.TrackingLimiter.Allow(trackingID) {
		httpx.JSONError(w, http.StatusTooManyRequests, "download_limit_reached", nil)
		return
	}

	var p models.Payslip
	if err := h.DB.Preload("Employee").Where("tracking_id = ?", trackingID).First(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	path := security.SafePath(p.PDFPath, h.PDFRoot)
	if path == "" {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if _, err := os.Stat(path); err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}

	if h.IPLimiter != nil {
		h.IPLimiter.Record(ip)
	}
	if h.TrackingLimiter != nil {
		h.TrackingLimiter.Record(trackingID)
	}

	h.DB.Create(&models.TrackingEvent{
		PayslipID: p.ID,
		EventType: models.EventLinkClicked,
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	})
	h.DB.Create(&models.TrackingEvent{
		PayslipID: p.ID,
		EventType: models.EventPDFDownloaded,
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	})
	p.MarkDownloaded()
	h.DB.Model(&p).Update("status", p.Status)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "bordro_"+p.Period+".pdf"))
	http.ServeFile(w, r, path)
}

// trackingStats is the delivery funnel of one period (or everything).
type trackingStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	Sent       int64 `json:"sent"`
	Opened     int64 `json:"opened"`
	Downloaded int64 `json:"downloaded"`
	Failed     int64 `json:"failed"`
	Unmatched  int64 `json:"unmatched"`

	OpenRate     float64 `json:"open_rate"`
	DownloadRate float64 `json:"download_rate"`
}

// Stats aggregates payslip statuses into the delivery funnel.
func (h *TrackingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	q := h.DB.Model(&models.Payslip{}).Where("company_id = ?", id.CompanyID)
	if period := r.URL.Query().Get("period"); period != "" {
		if !validation.IsPeriod(period) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"period": "invalid_period"})
			return
		}
		q = q.Where("period = ?", period)
	}

	type row struct {
		Status models.PayslipStatus
		N      int64
	}
	var rows []row
	if err := q.Select("status, count(*) as n").Group("status").Scan(&rows).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_stats", nil)
		return
	}

	var s trackingStats
	for _, rw := range rows {
		s.Total += rw.N
		switch rw.Status {
		case models.PayslipStatusPending:
			s.Pending += rw.N
		case models.PayslipStatusSent:
			s.Sent += rw.N
		case models.PayslipStatusOpened:
			s.Opened += rw.N
		case models.PayslipStatusDownloaded:
			s.Downloaded += rw.N
		case models.PayslipStatusFailed:
			s.Failed += rw.N
		case models.PayslipStatusNoEmployee:
			s.Unmatched += rw.N
		}
	}
	delivered := s.Sent + s.Opened + s.Downloaded
	if delivered > 0 {
		s.OpenRate = float64(s.Opened+s.Downloaded) / float64(delivered)
		s.DownloadRate = float64(s.Downloaded) / float64(delivered)
	}
	httpx.JSON(w, http.StatusOK, s)
}

// trackingReportRow is one payslip of the per-period delivery report.
type trackingReportRow struct {
	PayslipID   uint                   `json:"payslip_id"`
	Period      string                 `json:"period"`
	DisplayName string                 `json:"display_name"`
	TCNoMasked  string                 `json:"tc_no_masked"`
	Status      models.PayslipStatus   `json:"status"`
	SentAt      *time.Time             `json:"sent_at"`
	Events      []models.TrackingEvent `json:"events"`
}

// Report returns the event trail of every payslip in one period.
func (h *TrackingHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	period := r.URL.Query().Get("period")
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

	ids := make([]uint, len(payslips))
	for i, p := range payslips {
		ids[i] = p.ID
	}
	byPayslip := map[uint][]models.TrackingEvent{}
	if len(ids) > 0 {
		var events []models.TrackingEvent
		if err := h.DB.Where("payslip_id IN ?", ids).Order("created_at").Find(&events).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_build_report", nil)
			return
		}
		for _, ev := range events {
			byPayslip[ev.PayslipID] = append(byPayslip[ev.PayslipID], ev)
		}
	}

	rows := make([]trackingReportRow, len(payslips))
	for i, p := range payslips {
		rows[i] = trackingReportRow{
			PayslipID:   p.ID,
			Period:      p.Period,
			DisplayName: p.DisplayName(),
			TCNoMasked:  models.MaskTC(p.TCNo),
			Status:      p.Status,
			SentAt:      p.SentAt,
			Events:      byPayslip[p.ID],
		}
	}
	httpx.JSON(w, http.StatusOK, rows)
}

// Events lists the tracking trail of one payslip.
func (h *TrackingHandler) Events(w http.ResponseWriter, r *http.Request) {
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
	var events []models.TrackingEvent
	if err := h.DB.Where("payslip_id = ?", p.ID).Order("created_at").Find(&events).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_events", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, events)
}
