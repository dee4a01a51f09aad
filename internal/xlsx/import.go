package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ozgurkara/bordrohub/internal/validation"
)

// EmployeeRow is one parsed registry row from an uploaded workbook.
type EmployeeRow struct {
	Row        int
	TCNo       string
	FirstName  string
	LastName   string
	Email      string
	Department string
}

// RowError explains why one workbook row was skipped.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// headerAliases maps the column names operators actually use, Turkish
// and English, to the fields we need.
var headerAliases = map[string][]string{
	"tc":         {"tc", "tcno", "tckimlik", "tckimlikno", "kimlikno", "tcidentity"},
	"first_name": {"ad", "isim", "adi", "firstname", "name"},
	"last_name":  {"soyad", "soyadi", "soyisim", "lastname", "surname"},
	"email":      {"email", "eposta", "mail", "emailadresi", "epostaadresi"},
	"department": {"departman", "bolum", "birim", "department"},
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	replacer := strings.NewReplacer(
		" ", "", ".", "", "-", "", "_", "", "/", "",
		"ı", "i", "ö", "o", "ü", "u", "ş", "s", "ç", "c", "ğ", "g",
	)
	return replacer.Replace(h)
}

// matchColumns finds the index of each known field in the header row.
func matchColumns(header []string) map[string]int {
	cols := map[string]int{}
	for idx, cell := range header {
		norm := normalizeHeader(cell)
		if norm == "" {
			continue
		}
		for field, aliases := range headerAliases {
			if _, taken := cols[field]; taken {
				continue
			}
			for _, alias := range aliases {
				if norm == alias {
					cols[field] = idx
					break
				}
			}
		}
	}
	return cols
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ParseEmployees reads an xlsx workbook and returns the valid registry
// rows plus a per-row error list for everything that was skipped. The
// first sheet is used; the first row must be a header naming at least
// the TC and email columns.
func ParseEmployees(r io.Reader) ([]EmployeeRow, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("workbook has no data rows")
	}

	cols := matchColumns(rows[0])
	if _, ok := cols["tc"]; !ok {
		return nil, nil, fmt.Errorf("TC kimlik sütunu bulunamadı")
	}
	if _, ok := cols["email"]; !ok {
		return nil, nil, fmt.Errorf("e-posta sütunu bulunamadı")
	}

	colIdx := func(field string) int {
		if idx, ok := cols[field]; ok {
			return idx
		}
		return -1
	}

	var (
		out    []EmployeeRow
		errs   []RowError
		seenTC = map[string]int{}
	)
	for i, row := range rows[1:] {
		rowNo := i + 2 // 1-based, after the header
		tc := cellAt(row, cols["tc"])
		email := cellAt(row, cols["email"])
		if tc == "" && email == "" {
			continue // blank line
		}
		if !validation.IsTCNo(tc) {
			errs = append(errs, RowError{Row: rowNo, Reason: "Geçersiz TC kimlik numarası"})
			continue
		}
		if !validation.IsEmail(email) {
			errs = append(errs, RowError{Row: rowNo, Reason: "Geçersiz e-posta adresi"})
			continue
		}
		if first, dup := seenTC[tc]; dup {
			errs = append(errs, RowError{Row: rowNo, Reason: fmt.Sprintf("TC numarası %d. satırda zaten var", first)})
			continue
		}
		seenTC[tc] = rowNo

		out = append(out, EmployeeRow{
			Row:        rowNo,
			TCNo:       tc,
			FirstName:  cellAt(row, colIdx("first_name")),
			LastName:   cellAt(row, colIdx("last_name")),
			Email:      email,
			Department: cellAt(row, colIdx("department")),
		})
	}
	return out, errs, nil
}
