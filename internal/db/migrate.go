package db

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// register the postgres driver and file source for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ozgurkara/bordrohub/internal/auth"
	"github.com/ozgurkara/bordrohub/internal/config"
	"github.com/ozgurkara/bordrohub/internal/models"
)

// Models in AutoMigrate order; parents before children.
func allModels() []any {
	return []any{
		&models.Company{},
		&models.User{},
		&models.Employee{},
		&models.Payslip{},
		&models.TrackingEvent{},
		&models.AuditLog{},
	}
}

// ConnectAndMigrate opens the database with retries and brings the
// schema up to date: SQL migrations via golang-migrate when
// cfg.Migrations is set, gorm AutoMigrate otherwise (dev convenience).
func ConnectAndMigrate(cfg config.Config) (*gorm.DB, error) {
	dsn := NormalizeDSN(cfg.DatabaseDSN)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty")
	}

	logLevel := logger.Silent
	if cfg.Dev() {
		logLevel = logger.Warn
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
		if err == nil {
			break
		}
		log.Println("retrying db connection:", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after retries: %w", err)
	}
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping: %w", pingErr)
	}
	log.Println("[db] using dsn:", MaskDSN(dsn))

	if cfg.Migrations {
		if err := RunSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations: %w", err)
		}
	} else {
		for _, m := range allModels() {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	for _, table := range []string{"companies", "users", "employees", "payslips"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	if err := Seed(db, cfg); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return db, nil
}

// RunSQLMigrations applies ./migrations with golang-migrate.
func RunSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Seed makes sure a default company exists and, when configured,
// creates the first admin account. Idempotent.
func Seed(db *gorm.DB, cfg config.Config) error {
	var company models.Company
	err := db.Order("id").First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		company = models.Company{
			Name:           "BordroHub",
			MailSubject:    models.DefaultMailSubject,
			MailBody:       models.DefaultMailBody,
			MailFooterText: models.DefaultMailFooterText,
			IsActive:       true,
		}
		if err := db.Create(&company).Error; err != nil {
			return fmt.Errorf("create default company: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("load company: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(cfg.FirstAdminEmail))
	if email == "" || cfg.FirstAdminPassword == "" {
		return nil
	}
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if count > 0 {
		return nil
	}
	hash, err := auth.HashPassword(cfg.FirstAdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := models.User{
		CompanyID:    company.ID,
		Email:        email,
		PasswordHash: hash,
		FullName:     "Yönetici",
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create first admin: %w", err)
	}
	log.Println("[db] first admin account created:", email)
	return nil
}
