package xlsx

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/ozgurkara/bordrohub/internal/models"
)

// workbook builds an in-memory xlsx from rows of cells.
func workbook(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		for j, v := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			f.SetCellValue("Sheet1", cell, v)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestParseEmployees(t *testing.T) {
	r := workbook(t, [][]any{
		{"TC Kimlik No", "Ad", "Soyad", "E-Posta", "Departman"},
		{"12345678901", "Ayşe", "Yılmaz", "ayse@example.com", "Muhasebe"},
		{"98765432109", "Mehmet", "Demir", "mehmet@example.com", ""},
	})
	rows, errs, err := ParseEmployees(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected row errors: %+v", errs)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].TCNo != "12345678901" || rows[0].FirstName != "Ayşe" || rows[0].Department != "Muhasebe" {
		t.Fatalf("row 1 = %+v", rows[0])
	}
	if rows[1].Email != "mehmet@example.com" {
		t.Fatalf("row 2 = %+v", rows[1])
	}
}

func TestParseEmployeesEnglishHeaders(t *testing.T) {
	r := workbook(t, [][]any{
		{"tc", "first name", "last name", "email"},
		{"12345678901", "Ada", "Lovelace", "ada@example.com"},
	})
	rows, _, err := ParseEmployees(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 1 || rows[0].LastName != "Lovelace" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestParseEmployeesRowErrors(t *testing.T) {
	r := workbook(t, [][]any{
		{"TC", "Ad", "Soyad", "E-posta"},
		{"123", "Kısa", "TC", "kisa@example.com"},            // bad TC
		{"12345678901", "Ayşe", "Yılmaz", "not-an-email"},    // bad email
		{"12345678901", "Tekrar", "Eden", "dup@example.com"}, // valid, row 3 never registered its TC
		{"", "", "", ""}, // blank row ignored
		{"98765432109", "Sağlam", "Kayıt", "ok@example.com"},
	})
	rows, errs, err := ParseEmployees(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if len(errs) != 2 {
		t.Fatalf("errs = %+v", errs)
	}
	if errs[0].Row != 2 || errs[1].Row != 3 {
		t.Fatalf("error rows: %+v", errs)
	}
}

func TestParseEmployeesDuplicateTC(t *testing.T) {
	r := workbook(t, [][]any{
		{"TC", "Ad", "Soyad", "E-posta"},
		{"12345678901", "Bir", "Kayıt", "bir@example.com"},
		{"12345678901", "İki", "Kayıt", "iki@example.com"},
	})
	rows, errs, err := ParseEmployees(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 1 || len(errs) != 1 {
		t.Fatalf("rows=%d errs=%+v", len(rows), errs)
	}
}

func TestParseEmployeesMissingColumns(t *testing.T) {
	r := workbook(t, [][]any{
		{"Ad", "Soyad"},
		{"Ayşe", "Yılmaz"},
	})
	if _, _, err := ParseEmployees(r); err == nil {
		t.Fatal("workbook without TC column must fail")
	}
}

func TestBuildSendReport(t *testing.T) {
	sent := models.Payslip{
		TCNo:   "12345678901",
		Period: "2024-01",
		Status: models.PayslipStatusSent,
		Employee: &models.Employee{
			FirstName: "Ayşe", LastName: "Yılmaz",
			Email: "ayse@example.com", Department: "Muhasebe",
		},
	}
	unmatched := models.Payslip{
		TCNo:               "98765432109",
		Period:             "2024-01",
		Status:             models.PayslipStatusNoEmployee,
		ExtractedFirstName: "Mehmet",
		ExtractedLastName:  "Demir",
	}

	raw, err := BuildSendReport("2024-01", []models.Payslip{sent, unmatched})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("row count = %d", len(rows))
	}
	if rows[1][0] != "*******8901" {
		t.Fatalf("TC not masked: %q", rows[1][0])
	}
	if rows[1][5] != "Gönderildi" || rows[2][5] != "Çalışan Bulunamadı" {
		t.Fatalf("status labels: %q %q", rows[1][5], rows[2][5])
	}
	if rows[2][1] != "Mehmet Demir" {
		t.Fatalf("extracted name missing: %q", rows[2][1])
	}
}
