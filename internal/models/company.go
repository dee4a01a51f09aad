package models

import (
	"time"
)

// Default texts used when a company has not customised its mail template.
const (
	DefaultMailSubject        = "Bordronuz Hakkında"
	DefaultMailBody           = "Sayın {name},\n\nEkte {period} dönemine ait bordronuz bulunmaktadır.\n\nSaygılarımızla"
	DefaultMailFooterText     = "Bu mail otomatik olarak gönderilmiştir.\nLütfen yanıtlamayınız."
	DefaultMailDisclaimerText = "Bu butona tıklayarak, bordronuzu görüntülediğinizi ve onaylayarak teslim aldığınızı beyan etmiş olursunuz."
)

// Company holds per-tenant configuration: SMTP account, mail template
// styling and the send throttling knobs.
type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string `gorm:"size:255;not null" json:"name"`
	LogoPath string `gorm:"size:500" json:"logo_path,omitempty"`

	// SMTP account
	SMTPServer     string `gorm:"size:255" json:"smtp_server,omitempty"`
	SMTPPort       int    `gorm:"default:587" json:"smtp_port"`
	SMTPUsername   string `gorm:"size:255" json:"smtp_username,omitempty"`
	SMTPPassword   string `gorm:"type:text" json:"-"`
	SMTPUseTLS     bool   `gorm:"default:true" json:"smtp_use_tls"`
	SMTPSenderName string `gorm:"size:255" json:"smtp_sender_name,omitempty"`

	// Mail template
	MailSubject         string `gorm:"size:500;default:'Bordronuz Hakkında'" json:"mail_subject"`
	MailBody            string `gorm:"type:text" json:"mail_body"`
	MailPrimaryColor    string `gorm:"size:20;default:'#3b82f6'" json:"mail_primary_color"`
	MailSecondaryColor  string `gorm:"size:20;default:'#1e40af'" json:"mail_secondary_color"`
	MailBackgroundColor string `gorm:"size:20;default:'#f8fafc'" json:"mail_background_color"`
	MailTextColor       string `gorm:"size:20;default:'#1e293b'" json:"mail_text_color"`
	MailHeaderTextColor string `gorm:"size:20;default:'#ffffff'" json:"mail_header_text_color"`
	MailFooterText      string `gorm:"type:text" json:"mail_footer_text"`
	MailDisclaimerText  string `gorm:"type:text;default:'Bu butona tıklayarak, bordronuzu görüntülediğinizi ve onaylayarak teslim aldığınızı beyan etmiş olursunuz.'" json:"mail_disclaimer_text"`
	MailShowLogo        bool   `gorm:"default:true" json:"mail_show_logo"`
	MailLogoWidth       int    `gorm:"default:150" json:"mail_logo_width"`

	// Externally reachable base URL for pixel and download links.
	TrackingBaseURL string `gorm:"size:500" json:"tracking_base_url,omitempty"`

	// Send throttling
	MailDelaySeconds int `gorm:"default:2" json:"mail_delay_seconds"`
	MailBatchSize    int `gorm:"default:10" json:"mail_batch_size"`
	MailBatchDelay   int `gorm:"default:5" json:"mail_batch_delay"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Users     []User     `gorm:"foreignKey:CompanyID" json:"-"`
	Employees []Employee `gorm:"foreignKey:CompanyID" json:"-"`
	Payslips  []Payslip  `gorm:"foreignKey:CompanyID" json:"-"`
}

// SMTPConfigured reports whether the company can send mail at all.
func (c *Company) SMTPConfigured() bool {
	return c.SMTPServer != "" && c.SMTPUsername != "" && c.SMTPPassword != ""
}

// DisclaimerText returns the configured disclaimer or the default consent
// sentence shown beneath the download button.
func (c *Company) DisclaimerText() string {
	if c.MailDisclaimerText != "" {
		return c.MailDisclaimerText
	}
	return DefaultMailDisclaimerText
}
