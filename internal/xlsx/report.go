package xlsx

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ozgurkara/bordrohub/internal/models"
)

var statusLabels = map[models.PayslipStatus]string{
	models.PayslipStatusPending:    "Bekliyor",
	models.PayslipStatusSent:       "Gönderildi",
	models.PayslipStatusOpened:     "Görüntülendi",
	models.PayslipStatusDownloaded: "İndirildi",
	models.PayslipStatusFailed:     "Hata",
	models.PayslipStatusNoEmployee: "Çalışan Bulunamadı",
}

// StatusLabel is the Turkish display name of a payslip status.
func StatusLabel(s models.PayslipStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// BuildSendReport renders the delivery state of one period as a
// downloadable workbook.
func BuildSendReport(period string, payslips []models.Payslip) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	headers := []string{"TC Kimlik", "Ad Soyad", "E-posta", "Departman", "Dönem", "Durum", "Gönderim Tarihi", "Hata"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"3B82F6"}},
	})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		f.SetCellStyle(sheet, "A1", last, headerStyle)
	}

	for i, p := range payslips {
		rowNo := i + 2
		email, department := "", ""
		if p.Employee != nil {
			email = p.Employee.Email
			department = p.Employee.Department
		}
		sentAt := ""
		if p.SentAt != nil {
			sentAt = p.SentAt.Local().Format("02.01.2006 15:04")
		}
		values := []any{
			models.MaskTC(p.TCNo),
			p.DisplayName(),
			email,
			department,
			p.Period,
			StatusLabel(p.Status),
			sentAt,
			p.SendError,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNo)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetColWidth(sheet, "A", "A", 16)
	f.SetColWidth(sheet, "B", "C", 28)
	f.SetColWidth(sheet, "D", "H", 20)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return buf.Bytes(), nil
}

// ReportFilename names the download after the period and today's date.
func ReportFilename(period string) string {
	return fmt.Sprintf("bordro_raporu_%s_%s.xlsx", period, time.Now().Format("20060102"))
}
