package db

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ozgurkara/bordrohub/internal/auth"
	"github.com/ozgurkara/bordrohub/internal/config"
	"github.com/ozgurkara/bordrohub/internal/models"
)

func TestSeedIdempotent(t *testing.T) {
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range allModels() {
		if err := d.AutoMigrate(m); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Config{
		FirstAdminEmail:    "Admin@Example.com",
		FirstAdminPassword: "parola123",
	}
	if err := Seed(d, cfg); err != nil {
		t.Fatal(err)
	}
	if err := Seed(d, cfg); err != nil {
		t.Fatal(err)
	}

	var companies, admins int64
	d.Model(&models.Company{}).Count(&companies)
	d.Model(&models.User{}).Where("email = ?", "admin@example.com").Count(&admins)
	if companies != 1 {
		t.Fatalf("companies = %d", companies)
	}
	if admins != 1 {
		t.Fatalf("admin accounts = %d", admins)
	}

	var admin models.User
	d.Where("email = ?", "admin@example.com").First(&admin)
	if admin.Role != models.RoleAdmin || !admin.IsActive {
		t.Fatalf("admin = %+v", admin)
	}
	if !auth.CheckPassword(admin.PasswordHash, "parola123") {
		t.Fatal("admin password not usable")
	}

	var company models.Company
	d.Order("id").First(&company)
	if company.MailSubject != models.DefaultMailSubject {
		t.Fatalf("company defaults missing: %+v", company)
	}
}

func TestSeedWithoutAdminConfig(t *testing.T) {
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range allModels() {
		if err := d.AutoMigrate(m); err != nil {
			t.Fatal(err)
		}
	}
	if err := Seed(d, config.Config{}); err != nil {
		t.Fatal(err)
	}
	var users int64
	d.Model(&models.User{}).Count(&users)
	if users != 0 {
		t.Fatalf("users = %d", users)
	}
	var companies int64
	d.Model(&models.Company{}).Count(&companies)
	if companies != 1 {
		t.Fatalf("companies = %d", companies)
	}
}

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"postgres://u:p@db:5432/app", "postgres://u:p@db:5432/app"},
		{"  \"postgres://u:p@db/app\"  ", "postgres://u:p@db/app"},
		{"host=db user=u password=p dbname=app", "host=db user=u password=p dbname=app sslmode=disable"},
		{"host=db   user=u  sslmode=require", "host=db user=u sslmode=require"},
		{"", ""},
		{"not a dsn", "not a dsn"},
	}
	for _, c := range cases {
		if got := NormalizeDSN(c.in); got != c.want {
			t.Errorf("NormalizeDSN(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMaskDSN(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"postgres://user:secret@db:5432/app", "postgres://user:***@db:5432/app"},
		{"host=db user=u password=secret dbname=app", "host=db user=u password=*** dbname=app"},
		{"host=db user=u dbname=app", "host=db user=u dbname=app"},
	}
	for _, c := range cases {
		if got := MaskDSN(c.in); got != c.want {
			t.Errorf("MaskDSN(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
