package mailer

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TemplateSettings is the per-company look of the payslip mail.
type TemplateSettings struct {
	CompanyName     string
	LogoPath        string
	PrimaryColor    string
	SecondaryColor  string
	BackgroundColor string
	TextColor       string
	HeaderTextColor string
	FooterText      string
	DisclaimerText  string
	ShowLogo        bool
	LogoWidth       int
}

type templateData struct {
	TemplateSettings
	Period      string
	BodyHTML    template.HTML
	FooterHTML  template.HTML
	LogoDataURI template.URL
	DownloadURL template.URL
	PixelURL    template.URL
	Year        int
}

var mailTmpl = template.Must(template.New("payslip_mail").Parse(`<!DOCTYPE html>
<html lang="tr">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Bordro Bildirimi</title>
</head>
<body style="margin:0;padding:0;font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;background-color:{{.BackgroundColor}};">
<table role="presentation" cellspacing="0" cellpadding="0" width="100%" style="background-color:{{.BackgroundColor}};">
<tr><td style="padding:40px 20px;">
<table role="presentation" cellspacing="0" cellpadding="0" width="100%" style="max-width:600px;margin:0 auto;">
<tr>
<td style="background:linear-gradient(135deg,{{.PrimaryColor}} 0%,{{.SecondaryColor}} 100%);padding:40px 30px;border-radius:16px 16px 0 0;text-align:center;">
{{if .LogoDataURI}}<img src="{{.LogoDataURI}}" alt="Logo" style="display:block;margin:0 auto 15px auto;max-width:{{.LogoWidth}}px;height:auto;">{{end}}
<h1 style="color:{{.HeaderTextColor}};margin:0;font-size:28px;font-weight:700;">Bordro Bildirimi</h1>
<div style="display:inline-block;background:rgba(255,255,255,0.2);color:{{.HeaderTextColor}};padding:8px 20px;border-radius:20px;font-size:14px;margin-top:15px;">{{.Period}}</div>
</td>
</tr>
<tr>
<td style="background:#ffffff;padding:40px 30px;border-left:1px solid #e2e8f0;border-right:1px solid #e2e8f0;">
<div style="color:{{.TextColor}};font-size:16px;line-height:1.7;">{{.BodyHTML}}</div>
<div style="text-align:center;margin:35px 0 15px 0;">
<a href="{{.DownloadURL}}" style="display:inline-block;background:linear-gradient(135deg,{{.PrimaryColor}} 0%,{{.SecondaryColor}} 100%);color:#ffffff;padding:16px 40px;text-decoration:none;border-radius:12px;font-weight:600;font-size:16px;">Bordroyu İndir</a>
</div>
{{if .DisclaimerText}}<div style="text-align:center;margin-top:15px;">
<p style="color:#64748b;font-size:12px;margin:0;line-height:1.5;font-style:italic;">{{.DisclaimerText}}</p>
</div>{{end}}
<div style="background:#f0f9ff;border:1px solid #bae6fd;border-radius:12px;padding:20px;margin-top:25px;">
<div style="color:#0369a1;font-size:14px;line-height:1.6;">
<strong>Bilgi:</strong> Bordronuz bu mailin ekinde de bulunmaktadır.<br>
<strong>PDF Şifresi:</strong> TC Kimlik numaranızın son 6 hanesi
</div>
</div>
</td>
</tr>
<tr>
<td style="background:#f8fafc;padding:30px;border-radius:0 0 16px 16px;border:1px solid #e2e8f0;border-top:none;text-align:center;">
<p style="color:#64748b;font-size:13px;margin:0;line-height:1.6;">{{.FooterHTML}}</p>
<div style="margin-top:20px;padding-top:20px;border-top:1px solid #e2e8f0;">
<p style="color:#94a3b8;font-size:11px;margin:0;">© {{.Year}} {{.CompanyName}}</p>
</div>
</td>
</tr>
</table>
</td></tr>
</table>
{{if .PixelURL}}<img src="{{.PixelURL}}" width="1" height="1" style="display:none;" alt="">{{end}}
</body>
</html>
`))

// expandPlaceholders substitutes the {name}, {period} and {company}
// template variables an operator may use in subject and body.
func expandPlaceholders(tmpl, name, period, company string) string {
	tmpl = strings.ReplaceAll(tmpl, "{name}", name)
	tmpl = strings.ReplaceAll(tmpl, "{period}", period)
	tmpl = strings.ReplaceAll(tmpl, "{company}", company)
	return tmpl
}

// toHTML escapes plain text and turns newlines into line breaks.
func toHTML(text string) template.HTML {
	escaped := template.HTMLEscapeString(text)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// RenderHTMLBody produces the full HTML mail body.
func RenderHTMLBody(s TemplateSettings, bodyTemplate, employeeName, period, downloadURL, pixelURL string) (string, error) {
	body := expandPlaceholders(bodyTemplate, employeeName, period, s.CompanyName)

	data := templateData{
		TemplateSettings: s,
		Period:           period,
		BodyHTML:         toHTML(body),
		FooterHTML:       toHTML(s.FooterText),
		DownloadURL:      template.URL(downloadURL),
		PixelURL:         template.URL(pixelURL),
		Year:             time.Now().Year(),
	}
	if data.CompanyName == "" {
		data.CompanyName = "BordroHub"
	}
	if s.ShowLogo && s.LogoPath != "" {
		data.LogoDataURI = logoDataURI(s.LogoPath)
	}

	var sb strings.Builder
	if err := mailTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render mail template: %w", err)
	}
	return sb.String(), nil
}

// logoDataURI inlines the company logo; mail clients do not load local
// paths, so the image travels inside the HTML.
func logoDataURI(path string) template.URL {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	mime := map[string]string{
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".svg":  "image/svg+xml",
		".webp": "image/webp",
	}[strings.ToLower(filepath.Ext(path))]
	if mime == "" {
		mime = "image/png"
	}
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw))
}
