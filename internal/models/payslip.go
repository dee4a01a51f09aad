package models

import (
	"strings"
	"time"
)

// PayslipStatus is the delivery state of one payslip document.
type PayslipStatus string

const (
	PayslipStatusPending    PayslipStatus = "pending"
	PayslipStatusSent       PayslipStatus = "sent"
	PayslipStatusOpened     PayslipStatus = "opened"
	PayslipStatusDownloaded PayslipStatus = "downloaded"
	PayslipStatusFailed     PayslipStatus = "failed"
	// PayslipStatusNoEmployee marks a page that was processed but could not
	// be matched to any employee record.
	PayslipStatusNoEmployee PayslipStatus = "no_employee"
)

// Payslip is one payroll document page for one period. EmployeeID is
// nullable: unmatched documents are kept with the identity fields read
// from the page instead of being rejected.
type Payslip struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CompanyID uint     `gorm:"index;not null" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"-"`

	EmployeeID *uint     `gorm:"index" json:"employee_id,omitempty"`
	Employee   *Employee `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`

	// Identity read from the document, kept even without an employee match.
	TCNo               string `gorm:"size:11;index:ix_payslips_tc_no" json:"-"`
	ExtractedFirstName string `gorm:"size:100" json:"extracted_first_name,omitempty"`
	ExtractedLastName  string `gorm:"size:100" json:"extracted_last_name,omitempty"`

	// Period in YYYY-MM form plus an optional display label from the page.
	Period      string `gorm:"size:7;not null;index" json:"period"`
	PeriodLabel string `gorm:"size:100" json:"period_label,omitempty"`

	PDFPath         string `gorm:"size:500;not null" json:"-"`
	PDFOriginalName string `gorm:"size:255" json:"pdf_original_name,omitempty"`
	// Last six digits of the TC number; the document is encrypted with it.
	PDFPassword string `gorm:"size:50" json:"-"`

	TrackingID string `gorm:"size:64;uniqueIndex;not null" json:"tracking_id"`

	Status PayslipStatus `gorm:"size:20;default:'pending'" json:"status"`

	SentAt    *time.Time `json:"sent_at,omitempty"`
	SentBy    *uint      `json:"sent_by,omitempty"`
	SendError string     `gorm:"type:text" json:"send_error,omitempty"`

	TrackingEvents []TrackingEvent `gorm:"foreignKey:PayslipID" json:"-"`
}

// HasEmployee reports whether the page was matched to a registry entry.
func (p *Payslip) HasEmployee() bool {
	return p.EmployeeID != nil
}

// ExtractedFullName joins the identity fields read from the document.
func (p *Payslip) ExtractedFullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.ExtractedFirstName) + " " + strings.TrimSpace(p.ExtractedLastName))
}

// DisplayName prefers the matched employee's name, then the extracted one.
func (p *Payslip) DisplayName() string {
	if p.Employee != nil {
		return p.Employee.FullName()
	}
	if name := p.ExtractedFullName(); name != "" {
		return name
	}
	return "Bilinmeyen"
}

// Delivered reports whether the mail left the building in some form.
func (p *Payslip) Delivered() bool {
	switch p.Status {
	case PayslipStatusSent, PayslipStatusOpened, PayslipStatusDownloaded:
		return true
	}
	return false
}

// MarkOpened promotes sent to opened; later states are kept.
func (p *Payslip) MarkOpened() {
	if p.Status == PayslipStatusSent {
		p.Status = PayslipStatusOpened
	}
}

// MarkDownloaded promotes sent or opened to downloaded.
func (p *Payslip) MarkDownloaded() {
	if p.Status == PayslipStatusSent || p.Status == PayslipStatusOpened {
		p.Status = PayslipStatusDownloaded
	}
}
