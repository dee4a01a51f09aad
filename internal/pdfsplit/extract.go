package pdfsplit

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Span is a positioned text run on a page. Coordinates are PDF points
// with the origin at the bottom-left corner.
type Span struct {
	X, Y, W float64
	Text    string
}

// Identity is what a payslip page tells us about its owner.
type Identity struct {
	TCNo        string
	FirstName   string
	LastName    string
	PeriodLabel string // payroll date printed in the page header, DD.MM.YYYY
}

var dateRegex = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)

// fixTurkishText repairs the broken font encoding some payroll programs
// produce for Turkish characters.
func fixTurkishText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case 'Ğ':
			b.WriteRune('İ')
		case 'ğ':
			b.WriteRune('Ş')
		case '¾':
			b.WriteRune('Ğ')
		case 'Û':
			b.WriteRune('ı')
		case '₣':
			b.WriteRune('ğ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// mergeSpans glues per-glyph runs into word-level spans. Runs on the same
// line are merged while the horizontal gap stays below mergeGap points.
func mergeSpans(raw []Span) []Span {
	const lineTol = 2.0
	const mergeGap = 3.0

	sort.Slice(raw, func(i, j int) bool {
		if diff := raw[i].Y - raw[j].Y; diff > lineTol || diff < -lineTol {
			return raw[i].Y > raw[j].Y
		}
		return raw[i].X < raw[j].X
	})

	var out []Span
	for _, s := range raw {
		if s.Text == "" {
			continue
		}
		if n := len(out); n > 0 {
			prev := &out[n-1]
			sameLine := prev.Y-s.Y < lineTol && s.Y-prev.Y < lineTol
			if sameLine && s.X-(prev.X+prev.W) < mergeGap {
				prev.Text += s.Text
				prev.W = s.X + s.W - prev.X
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func lettersAndSpacesOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// extractIdentity locates the 11 digit TC number, reads the name lines
// printed in the same column right below it, and picks up the payroll
// date from the page header.
func extractIdentity(spans []Span) (Identity, bool) {
	var id Identity

	pageTop := 0.0
	for _, s := range spans {
		if s.Y > pageTop {
			pageTop = s.Y
		}
	}

	var tcSpan *Span
	for i := range spans {
		text := fixTurkishText(strings.TrimSpace(spans[i].Text))
		if isDigits(text) && len(text) == 11 {
			tcSpan = &spans[i]
			id.TCNo = text
		}
		// header date sits within the top 60 points of the page
		if dateRegex.MatchString(text) && pageTop-spans[i].Y < 60 {
			id.PeriodLabel = text
		}
	}
	if tcSpan == nil {
		return Identity{}, false
	}

	// Collect non-numeric runs in the TC's column, at most 30 points below.
	type frag struct {
		x, y float64
		text string
	}
	var frags []frag
	for _, s := range spans {
		text := fixTurkishText(strings.TrimSpace(s.Text))
		if text == "" || isDigits(text) {
			continue
		}
		inColumn := (s.X-tcSpan.X < 30 && tcSpan.X-s.X < 30) || (s.X > tcSpan.X-10 && s.X < tcSpan.X+50)
		below := s.Y < tcSpan.Y && tcSpan.Y-s.Y < 30
		if inColumn && below {
			frags = append(frags, frag{x: s.X, y: s.Y, text: text})
		}
	}

	// Group fragments into lines (same Y within 5 points), join left to
	// right, keep lines that are plain words.
	const lineTol = 5.0
	var lineYs []float64
	lines := map[float64][]frag{}
	for _, f := range frags {
		key := f.y
		for _, y := range lineYs {
			if f.y-y < lineTol && y-f.y < lineTol {
				key = y
				break
			}
		}
		if _, ok := lines[key]; !ok {
			lineYs = append(lineYs, key)
		}
		lines[key] = append(lines[key], f)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(lineYs))) // top line first

	var nameLines []string
	for _, y := range lineYs {
		parts := lines[y]
		sort.Slice(parts, func(i, j int) bool { return parts[i].x < parts[j].x })
		var joined strings.Builder
		for _, p := range parts {
			joined.WriteString(p.text)
		}
		text := strings.TrimSpace(joined.String())
		if len([]rune(text)) > 1 && lettersAndSpacesOnly(text) {
			nameLines = append(nameLines, text)
		}
	}

	switch {
	case len(nameLines) >= 2:
		id.FirstName = nameLines[0]
		id.LastName = nameLines[1]
	case len(nameLines) == 1:
		id.FirstName = nameLines[0]
	}
	// A page without both name lines is not usable for matching.
	if id.FirstName == "" || id.LastName == "" {
		return Identity{}, false
	}
	return id, true
}
