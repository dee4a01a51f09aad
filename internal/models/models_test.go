package models

import "testing"

func TestMaskTC(t *testing.T) {
	if got := MaskTC("12345678901"); got != "*******8901" {
		t.Fatalf("MaskTC = %q", got)
	}
	if got := MaskTC("123"); got != "***********" {
		t.Fatalf("short tc should be fully masked, got %q", got)
	}
}

func TestEmployeeFullName(t *testing.T) {
	e := Employee{FirstName: " Ayşe ", LastName: "Yılmaz"}
	if got := e.FullName(); got != "Ayşe Yılmaz" {
		t.Fatalf("FullName = %q", got)
	}
	empty := Employee{}
	if got := empty.FullName(); got != "İsimsiz" {
		t.Fatalf("empty FullName = %q", got)
	}
}

func TestPayslipDisplayName(t *testing.T) {
	p := Payslip{ExtractedFirstName: "Mehmet", ExtractedLastName: "Demir"}
	if got := p.DisplayName(); got != "Mehmet Demir" {
		t.Fatalf("DisplayName = %q", got)
	}
	p.Employee = &Employee{FirstName: "Ali", LastName: "Kaya"}
	if got := p.DisplayName(); got != "Ali Kaya" {
		t.Fatalf("employee name should win, got %q", got)
	}
	if got := (&Payslip{}).DisplayName(); got != "Bilinmeyen" {
		t.Fatalf("blank DisplayName = %q", got)
	}
}

func TestPayslipStatusTransitions(t *testing.T) {
	p := Payslip{Status: PayslipStatusSent}
	p.MarkOpened()
	if p.Status != PayslipStatusOpened {
		t.Fatalf("sent should open, got %s", p.Status)
	}
	p.MarkDownloaded()
	if p.Status != PayslipStatusDownloaded {
		t.Fatalf("opened should download, got %s", p.Status)
	}
	p.MarkOpened()
	if p.Status != PayslipStatusDownloaded {
		t.Fatalf("downloaded must not regress, got %s", p.Status)
	}

	pending := Payslip{Status: PayslipStatusPending}
	pending.MarkOpened()
	pending.MarkDownloaded()
	if pending.Status != PayslipStatusPending {
		t.Fatalf("pending must not advance, got %s", pending.Status)
	}
}

func TestPayslipDelivered(t *testing.T) {
	for _, st := range []PayslipStatus{PayslipStatusSent, PayslipStatusOpened, PayslipStatusDownloaded} {
		if !(&Payslip{Status: st}).Delivered() {
			t.Fatalf("%s should count as delivered", st)
		}
	}
	for _, st := range []PayslipStatus{PayslipStatusPending, PayslipStatusFailed, PayslipStatusNoEmployee} {
		if (&Payslip{Status: st}).Delivered() {
			t.Fatalf("%s should not count as delivered", st)
		}
	}
}

func TestCompanyDisclaimerText(t *testing.T) {
	c := Company{}
	if got := c.DisclaimerText(); got != DefaultMailDisclaimerText {
		t.Fatalf("default disclaimer expected, got %q", got)
	}
	c.MailDisclaimerText = "özel metin"
	if got := c.DisclaimerText(); got != "özel metin" {
		t.Fatalf("custom disclaimer expected, got %q", got)
	}
}

func TestCompanySMTPConfigured(t *testing.T) {
	c := Company{SMTPServer: "smtp.example.com", SMTPUsername: "u@example.com"}
	if c.SMTPConfigured() {
		t.Fatal("missing password should not count as configured")
	}
	c.SMTPPassword = "secret"
	if !c.SMTPConfigured() {
		t.Fatal("fully set account should count as configured")
	}
}
