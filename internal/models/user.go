package models

import "time"

// UserRole separates operators from administrators.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// User is an operator account scoped to one company.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CompanyID uint     `gorm:"index;not null" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"-"`

	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	FullName string   `gorm:"size:255" json:"full_name,omitempty"`
	Role     UserRole `gorm:"size:20;default:'user'" json:"role"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	// Hash of the currently valid refresh token; cleared on logout.
	RefreshToken string `gorm:"size:500" json:"-"`

	LastLogin *time.Time `json:"last_login,omitempty"`
}

// IsAdmin reports whether the account may touch admin-only routes.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
