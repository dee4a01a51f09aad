package services

import (
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/ozgurkara/bordrohub/internal/models"
	"github.com/ozgurkara/bordrohub/internal/pdfsplit"
)

// Intake turns an uploaded payroll PDF into per-employee payslip rows.
type Intake struct {
	DB        *gorm.DB
	Processor *pdfsplit.Processor
}

// IntakeResult summarises one upload run.
type IntakeResult struct {
	TotalPages int      `json:"total_pages"`
	Created    int      `json:"created"`
	Matched    int      `json:"matched"`
	Unmatched  int      `json:"unmatched"`
	Replaced   int      `json:"replaced"`
	Errors     []string `json:"errors,omitempty"`
}

// ProcessUpload splits the PDF, matches every page against the company
// registry by TC number and stores the result. Pages whose TC already
// has a payslip in the period replace the old row and file. Unmatched
// pages are kept with status no_employee so they can be repaired later.
func (in *Intake) ProcessUpload(companyID uint, period, pdfPath, originalName string) (*IntakeResult, error) {
	pages, pageErrs, err := in.Processor.Process(pdfPath, companyID, period)
	if err != nil {
		return nil, err
	}

	var employees []models.Employee
	if err := in.DB.Where("company_id = ?", companyID).Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	byTC := make(map[string]*models.Employee, len(employees))
	for i := range employees {
		byTC[employees[i].TCNo] = &employees[i]
	}

	res := &IntakeResult{
		TotalPages: len(pages) + len(pageErrs),
		Errors:     pageErrs,
	}
	for _, page := range pages {
		payslip := models.Payslip{
			CompanyID:          companyID,
			TCNo:               page.TCNo,
			ExtractedFirstName: page.FirstName,
			ExtractedLastName:  page.LastName,
			Period:             period,
			PeriodLabel:        page.PeriodLabel,
			PDFPath:            page.PDFPath,
			PDFOriginalName:    originalName,
			PDFPassword:        page.PDFPassword,
			TrackingID:         page.TrackingID,
			Status:             models.PayslipStatusNoEmployee,
		}
		if emp, ok := byTC[page.TCNo]; ok {
			payslip.EmployeeID = &emp.ID
			payslip.Status = models.PayslipStatusPending
			res.Matched++
		} else {
			res.Unmatched++
		}

		if err := in.replaceExisting(companyID, period, page.TCNo, res); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Sayfa %d: %v", page.PageNo, err))
			continue
		}
		if err := in.DB.Create(&payslip).Error; err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Sayfa %d: kayıt oluşturulamadı - %v", page.PageNo, err))
			continue
		}
		res.Created++
	}
	return res, nil
}

// replaceExisting drops an earlier payslip of the same TC in the same
// period, including its cut PDF, so a re-upload wins.
func (in *Intake) replaceExisting(companyID uint, period, tcNo string, res *IntakeResult) error {
	var old []models.Payslip
	if err := in.DB.Where("company_id = ? AND period = ? AND tc_no = ?", companyID, period, tcNo).Find(&old).Error; err != nil {
		return fmt.Errorf("eski kayıt sorgulanamadı - %w", err)
	}
	for _, p := range old {
		if err := in.DB.Where("payslip_id = ?", p.ID).Delete(&models.TrackingEvent{}).Error; err != nil {
			return fmt.Errorf("eski kayıt silinemedi - %w", err)
		}
		if err := in.DB.Delete(&models.Payslip{}, p.ID).Error; err != nil {
			return fmt.Errorf("eski kayıt silinemedi - %w", err)
		}
		os.Remove(p.PDFPath)
		res.Replaced++
	}
	return nil
}

// Rematch walks the unmatched payslips of a company and links the ones
// whose TC has since been added to the registry.
func (in *Intake) Rematch(companyID uint) (int, error) {
	var orphans []models.Payslip
	err := in.DB.Where("company_id = ? AND employee_id IS NULL", companyID).Find(&orphans).Error
	if err != nil {
		return 0, fmt.Errorf("load unmatched payslips: %w", err)
	}
	matched := 0
	for i := range orphans {
		var emp models.Employee
		err := in.DB.Where("company_id = ? AND tc_no = ?", companyID, orphans[i].TCNo).First(&emp).Error
		if err != nil {
			continue
		}
		updates := map[string]any{
			"employee_id": emp.ID,
			"status":      models.PayslipStatusPending,
		}
		if err := in.DB.Model(&orphans[i]).Updates(updates).Error; err != nil {
			return matched, fmt.Errorf("link payslip %d: %w", orphans[i].ID, err)
		}
		matched++
	}
	return matched, nil
}
