package models

import "time"

// EventType classifies tracking events on a payslip.
type EventType string

const (
	EventEmailSent     EventType = "email_sent"
	EventEmailOpened   EventType = "email_opened"
	EventLinkClicked   EventType = "link_clicked"
	EventPDFDownloaded EventType = "pdf_downloaded"
)

// TrackingEvent records one observation: mail sent, pixel loaded or PDF
// downloaded, with the client details that came with it.
type TrackingEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	PayslipID uint     `gorm:"index;not null" json:"payslip_id"`
	Payslip   *Payslip `gorm:"foreignKey:PayslipID" json:"-"`

	EventType EventType `gorm:"size:30;not null" json:"event_type"`

	IPAddress string `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent string `gorm:"type:text" json:"user_agent,omitempty"`
	ExtraData string `gorm:"type:text" json:"extra_data,omitempty"`
}
