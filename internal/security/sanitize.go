package security

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	trackingIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	searchScrub     = regexp.MustCompile(`[%_;'"\\]|--`)
	filenameScrub   = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// ValidTrackingID checks the URL-safe base64 shape of a tracking id.
func ValidTrackingID(id string) bool {
	if len(id) < 32 || len(id) > 128 {
		return false
	}
	return trackingIDRegex.MatchString(id)
}

// SafePath resolves path and returns its absolute form only when it stays
// inside baseDir. Returns "" for anything that escapes (path traversal).
func SafePath(path, baseDir string) string {
	if path == "" || baseDir == "" {
		return ""
	}
	absBase, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return ""
	}
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return absPath
}

// SanitizeSearch strips SQL metacharacters from a free-text search term
// before it is fed into a LIKE pattern.
func SanitizeSearch(term string) string {
	term = strings.TrimSpace(term)
	if len(term) > 100 {
		term = term[:100]
	}
	return strings.TrimSpace(searchScrub.ReplaceAllString(term, ""))
}

// SanitizeFilename keeps only safe filename characters.
func SanitizeFilename(name string) string {
	if name == "" {
		return "untitled"
	}
	safe := filenameScrub.ReplaceAllString(name, "_")
	safe = strings.ReplaceAll(safe, "..", "_")
	safe = strings.Trim(safe, ".")
	if len(safe) > 200 {
		ext := filepath.Ext(safe)
		safe = safe[:200-len(ext)] + ext
	}
	if safe == "" {
		return "untitled"
	}
	return safe
}
