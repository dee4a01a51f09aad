package models

import (
	"strings"
	"time"
)

// Employee is one registry entry of a company. Payslip pages are matched
// against the registry by TC number.
type Employee struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CompanyID uint     `gorm:"index;not null" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"-"`

	// 11 digit national identity number.
	TCNo string `gorm:"size:11;index;not null" json:"-"`

	FirstName  string `gorm:"size:100" json:"first_name,omitempty"`
	LastName   string `gorm:"size:100" json:"last_name,omitempty"`
	Email      string `gorm:"size:255;not null" json:"email"`
	Department string `gorm:"size:255" json:"department,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Payslips []Payslip `gorm:"foreignKey:EmployeeID" json:"-"`
}

// FullName joins first and last name, "İsimsiz" when both are empty.
func (e *Employee) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(e.FirstName) + " " + strings.TrimSpace(e.LastName))
	if name == "" {
		return "İsimsiz"
	}
	return name
}

// TCMasked hides all but the last four digits.
func (e *Employee) TCMasked() string {
	return MaskTC(e.TCNo)
}

// MaskTC renders a TC number with only its last four digits visible.
func MaskTC(tc string) string {
	if len(tc) >= 4 {
		return strings.Repeat("*", 7) + tc[len(tc)-4:]
	}
	return strings.Repeat("*", 11)
}
