package pdfsplit

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ozgurkara/bordrohub/internal/security"
)

// Page is one successfully processed payslip page.
type Page struct {
	PageNo      int
	TCNo        string
	FirstName   string
	LastName    string
	PeriodLabel string
	PDFPath     string
	PDFPassword string
	TrackingID  string
}

// Processor cuts an uploaded payroll PDF into per-employee pages,
// extracts the identity printed on each page and encrypts the output
// with the last six digits of the TC number.
type Processor struct {
	OutputDir string
}

func NewProcessor(outputDir string) *Processor {
	return &Processor{OutputDir: outputDir}
}

// Process splits pdfPath for one company and period. Pages that cannot
// be read yield an entry in errs instead of failing the whole run.
func (p *Processor) Process(pdfPath string, companyID uint, period string) (pages []Page, errs []string, err error) {
	f, reader, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	companyDir := filepath.Join(p.OutputDir, strconv.FormatUint(uint64(companyID), 10), period)
	if err := os.MkdirAll(companyDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output dir: %w", err)
	}

	total := reader.NumPage()
	for pageNo := 1; pageNo <= total; pageNo++ {
		identity, ok := readPageIdentity(reader, pageNo)
		if !ok {
			errs = append(errs, fmt.Sprintf("Sayfa %d: TC veya isim bulunamadı", pageNo))
			continue
		}

		filename := pageFilename(identity)
		outPath := filepath.Join(companyDir, filename)
		password := identity.TCNo[len(identity.TCNo)-6:]

		if err := p.cutAndEncrypt(pdfPath, outPath, pageNo, password); err != nil {
			errs = append(errs, fmt.Sprintf("Sayfa %d: PDF oluşturulamadı - %v", pageNo, err))
			continue
		}

		pages = append(pages, Page{
			PageNo:      pageNo,
			TCNo:        identity.TCNo,
			FirstName:   identity.FirstName,
			LastName:    identity.LastName,
			PeriodLabel: identity.PeriodLabel,
			PDFPath:     outPath,
			PDFPassword: password,
			TrackingID:  security.NewTrackingID(),
		})
	}
	return pages, errs, nil
}

// readPageIdentity pulls the positioned text of one page and runs the
// extraction. Malformed pages make the pdf reader panic; treat that as
// an unreadable page.
func readPageIdentity(reader *pdf.Reader, pageNo int) (identity Identity, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			identity, ok = Identity{}, false
		}
	}()
	page := reader.Page(pageNo)
	if page.V.IsNull() {
		return Identity{}, false
	}
	texts := page.Content().Text
	raw := make([]Span, 0, len(texts))
	for _, t := range texts {
		raw = append(raw, Span{X: t.X, Y: t.Y, W: t.W, Text: t.S})
	}
	return extractIdentity(mergeSpans(raw))
}

// cutAndEncrypt writes a single page of src to dst, AES-256 encrypted.
// Printing stays allowed, everything else is locked down.
func (p *Processor) cutAndEncrypt(src, dst string, pageNo int, password string) error {
	tmp := filepath.Join(os.TempDir(), "bordro_"+uuid.NewString()+".pdf")
	defer os.Remove(tmp)

	if err := api.TrimFile(src, tmp, []string{strconv.Itoa(pageNo)}, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("trim page %d: %w", pageNo, err)
	}
	conf := model.NewAESConfiguration(password, password+"admin", 256)
	conf.Permissions = model.PermissionsPrint
	if err := api.EncryptFile(tmp, dst, conf); err != nil {
		return fmt.Errorf("encrypt page %d: %w", pageNo, err)
	}
	return nil
}

func pageFilename(id Identity) string {
	parts := []string{id.TCNo, cleanNamePart(id.FirstName), cleanNamePart(id.LastName)}
	if id.PeriodLabel != "" {
		parts = append(parts, strings.ReplaceAll(id.PeriodLabel, ".", "-"))
	}
	return strings.Join(parts, "_") + ".pdf"
}

func cleanNamePart(text string) string {
	if text == "" {
		return "BILINMEYEN"
	}
	for _, c := range `<>:"/\|?*` {
		text = strings.ReplaceAll(text, string(c), "")
	}
	return strings.TrimSpace(text)
}

// DeletePeriod removes every cut PDF of a company period.
func (p *Processor) DeletePeriod(companyID uint, period string) error {
	dir := filepath.Join(p.OutputDir, strconv.FormatUint(uint64(companyID), 10), period)
	return os.RemoveAll(dir)
}
