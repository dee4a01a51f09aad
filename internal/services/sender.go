package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/ozgurkara/bordrohub/internal/jobs"
	"github.com/ozgurkara/bordrohub/internal/mailer"
	"github.com/ozgurkara/bordrohub/internal/models"
	"github.com/ozgurkara/bordrohub/internal/security"
)

// PayslipMailer sends one rendered payslip mail. Satisfied by
// *mailer.Mailer; tests substitute their own.
type PayslipMailer interface {
	SendPayslip(mailer.PayslipMail) error
}

// NewCompanyMailer builds a mailer from the company's SMTP account and
// template settings.
func NewCompanyMailer(c *models.Company) *mailer.Mailer {
	return &mailer.Mailer{
		Server:      c.SMTPServer,
		Port:        c.SMTPPort,
		Username:    c.SMTPUsername,
		Password:    c.SMTPPassword,
		SenderName:  c.SMTPSenderName,
		UseStartTLS: c.SMTPUseTLS,
		Template: mailer.TemplateSettings{
			CompanyName:     c.Name,
			LogoPath:        c.LogoPath,
			PrimaryColor:    c.MailPrimaryColor,
			SecondaryColor:  c.MailSecondaryColor,
			BackgroundColor: c.MailBackgroundColor,
			TextColor:       c.MailTextColor,
			HeaderTextColor: c.MailHeaderTextColor,
			FooterText:      c.MailFooterText,
			DisclaimerText:  c.DisclaimerText(),
			ShowLogo:        c.MailShowLogo,
			LogoWidth:       c.MailLogoWidth,
		},
	}
}

// Sender delivers a batch of payslips over the owning company's SMTP
// account, recording progress in the job store.
type Sender struct {
	DB      *gorm.DB
	Jobs    *jobs.Store
	Signer  *security.Signer
	BaseURL string // fallback when the company has no tracking base URL

	// NewMailer lets tests swap the SMTP client; nil means the real one.
	NewMailer func(*models.Company) PayslipMailer
}

func (s *Sender) trackingBase(c *models.Company) string {
	if c.TrackingBaseURL != "" {
		return c.TrackingBaseURL
	}
	return s.BaseURL
}

func (s *Sender) mailerFor(c *models.Company) PayslipMailer {
	if s.NewMailer != nil {
		return s.NewMailer(c)
	}
	return NewCompanyMailer(c)
}

// SendBatch delivers the given payslips one by one. Per-payslip failures
// are recorded on the row and in the job; only infrastructure failures
// abort the run. Meant to run on its own goroutine; pass the job id
// created beforehand.
func (s *Sender) SendBatch(ctx context.Context, jobID string, company *models.Company, payslipIDs []uint, sentBy uint) {
	if err := s.Jobs.SetStatus(ctx, jobID, jobs.StatusRunning, ""); err != nil {
		log.Printf("job %s: %v", jobID, err)
	}

	m := s.mailerFor(company)
	subject := company.MailSubject
	if subject == "" {
		subject = models.DefaultMailSubject
	}
	body := company.MailBody
	if body == "" {
		body = models.DefaultMailBody
	}
	base := s.trackingBase(company)

	delay := time.Duration(company.MailDelaySeconds) * time.Second
	batchSize := company.MailBatchSize
	batchDelay := time.Duration(company.MailBatchDelay) * time.Second

	for i, id := range payslipIDs {
		if ctx.Err() != nil {
			s.finish(jobID, jobs.StatusFailed, "gönderim iptal edildi")
			return
		}

		res := s.sendOne(ctx, m, company.ID, id, subject, body, base, sentBy)
		if err := s.Jobs.Increment(ctx, jobID, res); err != nil {
			log.Printf("job %s: %v", jobID, err)
		}

		if i == len(payslipIDs)-1 {
			break
		}
		if batchSize > 0 && (i+1)%batchSize == 0 {
			sleepCtx(ctx, batchDelay)
		} else {
			sleepCtx(ctx, delay)
		}
	}
	s.finish(jobID, jobs.StatusCompleted, "")
}

func (s *Sender) finish(jobID string, status jobs.JobStatus, msg string) {
	// the request context is long gone by now
	if err := s.Jobs.SetStatus(context.Background(), jobID, status, msg); err != nil {
		log.Printf("job %s: %v", jobID, err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// sendOne delivers a single payslip and updates its row.
func (s *Sender) sendOne(ctx context.Context, m PayslipMailer, companyID, payslipID uint, subject, body, base string, sentBy uint) jobs.Result {
	res := jobs.Result{PayslipID: payslipID}

	var p models.Payslip
	err := s.DB.Preload("Employee").Where("company_id = ?", companyID).First(&p, payslipID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		res.Error = "bordro bulunamadı"
		return res
	}
	if err != nil {
		res.Error = fmt.Sprintf("bordro okunamadı: %v", err)
		return res
	}

	// skipped rows keep their status; only an actual SMTP failure marks
	// the row failed
	if reason := sendBlockReason(&p); reason != "" {
		res.Error = reason
		return res
	}
	res.Email = p.Employee.Email

	pm := mailer.PayslipMail{
		To:           p.Employee.Email,
		EmployeeName: p.Employee.FullName(),
		Period:       p.Period,
		PDFPath:      p.PDFPath,
		PDFFilename:  fmt.Sprintf("bordro_%s.pdf", p.Period),
		Subject:      subject,
		Body:         body,
		DownloadURL:  s.Signer.DownloadURL(base, p.TrackingID),
		PixelURL:     security.PixelURL(base, p.TrackingID),
	}
	if err := m.SendPayslip(pm); err != nil {
		res.Error = err.Error()
		s.markFailed(&p, sentBy, err.Error())
		return res
	}

	now := time.Now()
	updates := map[string]any{
		"status":     models.PayslipStatusSent,
		"sent_at":    now,
		"sent_by":    sentBy,
		"send_error": "",
	}
	if err := s.DB.Model(&p).Updates(updates).Error; err != nil {
		res.Error = fmt.Sprintf("durum güncellenemedi: %v", err)
		return res
	}
	s.DB.Create(&models.TrackingEvent{
		PayslipID: p.ID,
		EventType: models.EventEmailSent,
	})

	res.Success = true
	return res
}

// sendBlockReason explains why a payslip cannot be mailed, "" when it can.
func sendBlockReason(p *models.Payslip) string {
	if !p.HasEmployee() || p.Employee == nil {
		return "çalışan eşleşmedi"
	}
	if !p.Employee.IsActive {
		return "çalışan pasif durumda"
	}
	if p.Employee.Email == "" {
		return "çalışanın e-posta adresi yok"
	}
	return ""
}

func (s *Sender) markFailed(p *models.Payslip, sentBy uint, reason string) {
	s.DB.Model(p).Updates(map[string]any{
		"status":     models.PayslipStatusFailed,
		"sent_by":    sentBy,
		"send_error": reason,
	})
}
