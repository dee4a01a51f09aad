package models

import "time"

// Audit actions recorded by the service.
const (
	AuditLogin          = "auth.login"
	AuditLoginFailed    = "auth.login_failed"
	AuditLogout         = "auth.logout"
	AuditPayslipUpload  = "payslip.upload"
	AuditPayslipSend    = "payslip.send"
	AuditPayslipDelete  = "payslip.delete"
	AuditEmployeeImport = "employee.import"
	AuditEmployeeDelete = "employee.delete"
	AuditSettingsUpdate = "settings.update"
	AuditSMTPUpdate     = "settings.smtp_update"
	AuditTemplateUpdate = "settings.template_update"
)

// AuditLog is an append-only record of operator actions.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	CompanyID uint  `gorm:"index;not null" json:"company_id"`
	UserID    *uint `gorm:"index" json:"user_id,omitempty"`

	Action    string `gorm:"size:100;index;not null" json:"action"`
	Detail    string `gorm:"type:text" json:"detail,omitempty"`
	IPAddress string `gorm:"size:45" json:"ip_address,omitempty"`
}
