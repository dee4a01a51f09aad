package mailer

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// Mailer delivers payslip mails over one company's SMTP account.
type Mailer struct {
	Server     string
	Port       int
	Username   string
	Password   string
	SenderName string
	// UseStartTLS selects STARTTLS (port 587 style); otherwise the
	// connection is implicit SSL/TLS (port 465, Yandex/Gmail style).
	UseStartTLS bool

	Template TemplateSettings
}

// PayslipMail is one delivery.
type PayslipMail struct {
	To           string
	EmployeeName string
	Period       string
	PDFPath      string
	PDFFilename  string
	Subject      string // subject template with {name}/{period} placeholders
	Body         string // body template with {name}/{period} placeholders
	DownloadURL  string
	PixelURL     string
}

func (m *Mailer) dialer() *gomail.Dialer {
	d := gomail.NewDialer(m.Server, m.Port, m.Username, m.Password)
	// gomail upgrades via STARTTLS automatically on plain connections;
	// SSL forces an implicit TLS handshake instead.
	d.SSL = !m.UseStartTLS
	return d
}

// TestConnection dials and authenticates without sending anything.
func (m *Mailer) TestConnection() error {
	conn, err := m.dialer().Dial()
	if err != nil {
		return fmt.Errorf("smtp connect: %w", err)
	}
	return conn.Close()
}

// SendPayslip renders and delivers one payslip mail with the encrypted
// PDF attached.
func (m *Mailer) SendPayslip(pm PayslipMail) error {
	subject := expandPlaceholders(pm.Subject, pm.EmployeeName, pm.Period, m.Template.CompanyName)

	html, err := RenderHTMLBody(m.Template, pm.Body, pm.EmployeeName, pm.Period, pm.DownloadURL, pm.PixelURL)
	if err != nil {
		return err
	}
	plain := expandPlaceholders(pm.Body, pm.EmployeeName, pm.Period, m.Template.CompanyName)
	plain += "\n\nBordronuzu indirmek için: " + pm.DownloadURL

	msg := gomail.NewMessage()
	if m.SenderName != "" {
		msg.SetHeader("From", msg.FormatAddress(m.Username, m.SenderName))
	} else {
		msg.SetHeader("From", m.Username)
	}
	msg.SetHeader("To", pm.To)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plain)
	msg.AddAlternative("text/html", html)
	msg.Attach(pm.PDFPath, gomail.Rename(pm.PDFFilename))

	if err := m.dialer().DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// SendTest delivers a plain test mail to verify the SMTP settings.
func (m *Mailer) SendTest(to string) error {
	msg := gomail.NewMessage()
	if m.SenderName != "" {
		msg.SetHeader("From", msg.FormatAddress(m.Username, m.SenderName))
	} else {
		msg.SetHeader("From", m.Username)
	}
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "BordroHub - Test Maili")
	msg.SetBody("text/plain", "Bu bir test mailidir.\n\nSMTP ayarlarınız doğru çalışıyor.\n\nSaygılarımızla,\nBordroHub")

	if err := m.dialer().DialAndSend(msg); err != nil {
		return fmt.Errorf("send test mail: %w", err)
	}
	return nil
}

// Preview renders the HTML body with sample data and no tracking.
func (m *Mailer) Preview(bodyTemplate string) (string, error) {
	return RenderHTMLBody(m.Template, bodyTemplate, "Örnek Çalışan", "Ocak 2024", "#", "")
}
