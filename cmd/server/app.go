package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ozgurkara/bordrohub/internal/auth"
	"github.com/ozgurkara/bordrohub/internal/config"
	"github.com/ozgurkara/bordrohub/internal/handlers"
	"github.com/ozgurkara/bordrohub/internal/httpx"
	"github.com/ozgurkara/bordrohub/internal/jobs"
	"github.com/ozgurkara/bordrohub/internal/models"
	"github.com/ozgurkara/bordrohub/internal/pdfsplit"
	"github.com/ozgurkara/bordrohub/internal/security"
	"github.com/ozgurkara/bordrohub/internal/services"
)

// newApp wires every handler into one mux. The auth middleware only
// attaches the identity; requireAuth/requireAdmin enforce it per route.
func newApp(cfg config.Config, dbConn *gorm.DB, rdb *redis.Client) http.Handler {
	tokens := auth.NewManager(cfg.SecretKey,
		time.Duration(cfg.AccessTokenTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTokenTTLDay)*24*time.Hour)
	tokens.SetUserVerifier(func(ctx context.Context, uid uint) bool {
		var count int64
		dbConn.Model(&models.User{}).Where("id = ? AND is_active = ?", uid, true).Count(&count)
		return count == 1
	})

	lockout := auth.NewLockout(rdb, cfg.LoginMaxAttempts,
		time.Duration(cfg.LoginLockoutMinutes)*time.Minute)
	signer := security.NewSigner(cfg.DownloadLinkSecret,
		time.Duration(cfg.DownloadLinkExpireDays)*24*time.Hour)
	jobStore := jobs.NewStore(rdb)

	processor := pdfsplit.NewProcessor(cfg.PDFOutputDir)
	intake := &services.Intake{DB: dbConn, Processor: processor}
	sender := &services.Sender{
		DB:      dbConn,
		Jobs:    jobStore,
		Signer:  signer,
		BaseURL: cfg.TrackingBaseURL,
	}

	authH := handlers.NewAuthHandler(dbConn, tokens, lockout)
	employeeH := handlers.NewEmployeeHandler(dbConn, intake)
	payslipH := &handlers.PayslipHandler{
		DB:            dbConn,
		Intake:        intake,
		Sender:        sender,
		Jobs:          jobStore,
		Processor:     processor,
		UploadDir:     cfg.UploadDir,
		MaxUploadSize: cfg.MaxUploadSize,
	}
	trackingH := &handlers.TrackingHandler{
		DB:              dbConn,
		Signer:          signer,
		PDFRoot:         cfg.PDFOutputDir,
		IPLimiter:       security.NewRateLimiter(cfg.DownloadIPLimitPerMinute, time.Minute),
		TrackingLimiter: security.NewRateLimiter(cfg.DownloadTrackingLimitPerDay, 24*time.Hour),
	}
	settingsH := handlers.NewSettingsHandler(dbConn, cfg.LogoDir, cfg.MaxLogoSize)
	jobH := handlers.NewJobHandler(jobStore)
	auditH := handlers.NewAuditHandler(dbConn)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/v1/auth/login", authH.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authH.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", requireAuth(authH.Logout))
	mux.HandleFunc("GET /api/v1/auth/me", requireAuth(authH.Me))

	mux.HandleFunc("GET /api/v1/employees", requireAuth(employeeH.List))
	mux.HandleFunc("POST /api/v1/employees", requireAuth(employeeH.Create))
	mux.HandleFunc("GET /api/v1/employees/{id}", requireAuth(employeeH.Get))
	mux.HandleFunc("PUT /api/v1/employees/{id}", requireAuth(employeeH.Update))
	mux.HandleFunc("DELETE /api/v1/employees/{id}", requireAuth(employeeH.Delete))
	mux.HandleFunc("POST /api/v1/employees/import", requireAuth(employeeH.Import))
	mux.HandleFunc("POST /api/v1/employees/bulk", requireAuth(employeeH.BulkUpdate))
	mux.HandleFunc("POST /api/v1/employees/bulk-delete", requireAuth(employeeH.BulkDelete))
	mux.HandleFunc("DELETE /api/v1/employees", requireAdmin(employeeH.DeleteAll))
	mux.HandleFunc("GET /api/v1/employees/select/all", requireAuth(employeeH.SelectAll))

	mux.HandleFunc("POST /api/v1/payslips/upload", requireAuth(payslipH.Upload))
	mux.HandleFunc("GET /api/v1/payslips", requireAuth(payslipH.List))
	mux.HandleFunc("GET /api/v1/payslips/periods", requireAuth(payslipH.Periods))
	mux.HandleFunc("POST /api/v1/payslips/send", requireAuth(payslipH.Send))
	mux.HandleFunc("GET /api/v1/payslips/select/pending", requireAuth(payslipH.SelectPending))
	mux.HandleFunc("GET /api/v1/payslips/select/all", requireAuth(payslipH.SelectAll))
	mux.HandleFunc("POST /api/v1/payslips/bulk-delete", requireAuth(payslipH.BulkDelete))
	mux.HandleFunc("DELETE /api/v1/payslips", requireAdmin(payslipH.DeleteAll))
	mux.HandleFunc("DELETE /api/v1/payslips/{id}", requireAuth(payslipH.Delete))
	mux.HandleFunc("GET /api/v1/payslips/{id}/events", requireAuth(trackingH.Events))
	mux.HandleFunc("DELETE /api/v1/payslips/periods/{period}", requireAuth(payslipH.DeletePeriod))
	mux.HandleFunc("GET /api/v1/payslips/periods/{period}/report", requireAuth(payslipH.Report))

	// public endpoints hit from inside the mails
	mux.HandleFunc("GET /api/v1/tracking/pixel/{tracking_id}", trackingH.Pixel)
	mux.HandleFunc("GET /api/v1/tracking/download/{tracking_id}", trackingH.Download)
	mux.HandleFunc("GET /api/v1/tracking/stats", requireAuth(trackingH.Stats))
	mux.HandleFunc("GET /api/v1/tracking/report", requireAuth(trackingH.Report))

	mux.HandleFunc("GET /api/v1/settings/company", requireAuth(settingsH.GetCompany))
	mux.HandleFunc("PUT /api/v1/settings/company", requireAdmin(settingsH.UpdateCompany))
	mux.HandleFunc("PUT /api/v1/settings/smtp", requireAdmin(settingsH.UpdateSMTP))
	mux.HandleFunc("POST /api/v1/settings/smtp/test", requireAdmin(settingsH.TestSMTP))
	mux.HandleFunc("PUT /api/v1/settings/mail-template", requireAdmin(settingsH.UpdateMailTemplate))
	mux.HandleFunc("GET /api/v1/settings/mail-template/preview", requireAuth(settingsH.PreviewMail))
	mux.HandleFunc("POST /api/v1/settings/logo", requireAdmin(settingsH.UploadLogo))
	mux.HandleFunc("GET /api/v1/settings/logo", requireAuth(settingsH.GetLogo))
	mux.HandleFunc("DELETE /api/v1/settings/logo", requireAdmin(settingsH.DeleteLogo))

	mux.HandleFunc("GET /api/v1/jobs/{id}", requireAuth(jobH.Get))
	mux.HandleFunc("GET /api/v1/audit", requireAdmin(auditH.List))

	return tokens.Middleware(mux)
}

func requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFromContext(r.Context()); !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next(w, r)
	}
}

func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		if id.Role != string(models.RoleAdmin) {
			httpx.JSONError(w, http.StatusForbidden, "admin_required", nil)
			return
		}
		next(w, r)
	}
}
