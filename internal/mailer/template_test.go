package mailer

import (
	"strings"
	"testing"
)

func testSettings() TemplateSettings {
	return TemplateSettings{
		CompanyName:     "Acme AŞ",
		PrimaryColor:    "#3b82f6",
		SecondaryColor:  "#1e40af",
		BackgroundColor: "#f8fafc",
		TextColor:       "#1e293b",
		HeaderTextColor: "#ffffff",
		FooterText:      "Bu mail otomatik olarak gönderilmiştir.",
		DisclaimerText:  "Onay metni",
		LogoWidth:       150,
	}
}

func TestExpandPlaceholders(t *testing.T) {
	got := expandPlaceholders("Sayın {name}, {period} bordronuz {company} tarafından gönderildi.",
		"Ayşe Yılmaz", "2024-01", "Acme AŞ")
	want := "Sayın Ayşe Yılmaz, 2024-01 bordronuz Acme AŞ tarafından gönderildi."
	if got != want {
		t.Fatalf("got %q", got)
	}
}

func TestRenderHTMLBody(t *testing.T) {
	html, err := RenderHTMLBody(testSettings(), "Sayın {name},\nbordronuz ektedir.",
		"Ayşe Yılmaz", "Ocak 2024", "https://example.com/dl", "https://example.com/px")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"Ayşe Yılmaz",
		"Ocak 2024",
		"https://example.com/dl",
		"https://example.com/px",
		"Onay metni",
		"Bordroyu İndir",
		"TC Kimlik numaranızın son 6 hanesi",
		"bordronuz ektedir.<br>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered mail misses %q", want)
		}
	}
}

func TestRenderHTMLBodyEscapesUserText(t *testing.T) {
	html, err := RenderHTMLBody(testSettings(), "<script>alert(1)</script>",
		"Ad", "Ocak 2024", "#", "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Fatal("body text must be escaped")
	}
}

func TestRenderHTMLBodyWithoutPixel(t *testing.T) {
	html, err := RenderHTMLBody(testSettings(), "Merhaba", "Ad", "Ocak 2024", "#", "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, `width="1" height="1"`) {
		t.Fatal("pixel img rendered without a pixel url")
	}
}

func TestRenderHTMLBodyWithoutDisclaimer(t *testing.T) {
	s := testSettings()
	s.DisclaimerText = ""
	html, err := RenderHTMLBody(s, "Merhaba", "Ad", "Ocak 2024", "#", "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "Onay metni") {
		t.Fatal("disclaimer rendered although empty")
	}
}
