package handlers

import (
	"net/http"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ozgurkara/bordrohub/internal/auth"
	"github.com/ozgurkara/bordrohub/internal/models"
	"github.com/ozgurkara/bordrohub/internal/security"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// unique in-memory database per test to avoid cross-test collisions
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Company{}, &models.User{}, &models.Employee{},
		&models.Payslip{}, &models.TrackingEvent{}, &models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedCompany(t *testing.T, db *gorm.DB) *models.Company {
	t.Helper()
	c := &models.Company{Name: "Acme AŞ", IsActive: true}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return c
}

func seedUser(t *testing.T, db *gorm.DB, companyID uint, role models.UserRole) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("parola123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &models.User{
		CompanyID:    companyID,
		Email:        string(role) + "@example.com",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// asUser attaches the caller identity the auth middleware would have set.
func asUser(r *http.Request, u *models.User) *http.Request {
	id := auth.Identity{UserID: u.ID, CompanyID: u.CompanyID, Email: u.Email, Role: string(u.Role)}
	return r.WithContext(auth.WithIdentity(r.Context(), id))
}

func seedEmployee(t *testing.T, db *gorm.DB, companyID uint, tc, email string) *models.Employee {
	t.Helper()
	e := &models.Employee{
		CompanyID: companyID,
		TCNo:      tc,
		FirstName: "Ayşe",
		LastName:  "Yılmaz",
		Email:     email,
		IsActive:  true,
	}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	return e
}

func seedPayslip(t *testing.T, db *gorm.DB, companyID uint, employeeID *uint, period string, status models.PayslipStatus) *models.Payslip {
	t.Helper()
	p := &models.Payslip{
		CompanyID:  companyID,
		EmployeeID: employeeID,
		TCNo:       "12345678901",
		Period:     period,
		PDFPath:    "/tmp/test.pdf",
		TrackingID: security.NewTrackingID(),
		Status:     status,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed payslip: %v", err)
	}
	return p
}
