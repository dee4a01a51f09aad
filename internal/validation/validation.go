package validation

import (
	"regexp"
	"strings"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

var (
	tcRegex     = regexp.MustCompile(`^[0-9]{11}$`)
	periodRegex = regexp.MustCompile(`^\d{4}-\d{2}$`)
	emailRegex  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

// TCNo checks the 11 digit national identity number format.
func TCNo(field, value string, v Violations) {
	if !tcRegex.MatchString(value) {
		v[field] = "invalid_tc_no"
	}
}

// Period checks the YYYY-MM period format.
func Period(field, value string, v Violations) {
	if !periodRegex.MatchString(value) {
		v[field] = "invalid_period"
	}
}

func Email(field, value string, v Violations) {
	if !emailRegex.MatchString(value) {
		v[field] = "invalid_email"
	}
}

// IsTCNo is the bare predicate used outside request validation.
func IsTCNo(value string) bool { return tcRegex.MatchString(value) }

// IsPeriod is the bare predicate for YYYY-MM strings.
func IsPeriod(value string) bool { return periodRegex.MatchString(value) }

// IsEmail is the bare predicate for e-mail addresses.
func IsEmail(value string) bool { return emailRegex.MatchString(value) }
