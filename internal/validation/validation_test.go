package validation

import "testing"

func TestIsTCNo(t *testing.T) {
	valid := []string{"12345678901", "00000000000"}
	for _, s := range valid {
		if !IsTCNo(s) {
			t.Errorf("IsTCNo(%q) = false", s)
		}
	}
	invalid := []string{"", "1234567890", "123456789012", "1234567890a", "12345 78901"}
	for _, s := range invalid {
		if IsTCNo(s) {
			t.Errorf("IsTCNo(%q) = true", s)
		}
	}
}

func TestIsPeriod(t *testing.T) {
	if !IsPeriod("2024-01") {
		t.Error("2024-01 should be valid")
	}
	for _, s := range []string{"", "2024", "2024-1", "01-2024", "2024/01", "2024-013"} {
		if IsPeriod(s) {
			t.Errorf("IsPeriod(%q) = true", s)
		}
	}
}

func TestIsEmail(t *testing.T) {
	if !IsEmail("ops@example.com") {
		t.Error("plain address should be valid")
	}
	for _, s := range []string{"", "ops", "ops@", "@example.com", "a b@example.com", "ops@example"} {
		if IsEmail(s) {
			t.Errorf("IsEmail(%q) = true", s)
		}
	}
}

func TestViolations(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	TCNo("tc_no", "123", v)
	Period("period", "2024-1", v)
	Email("email", "nope", v)
	if v.Empty() {
		t.Fatal("violations expected")
	}
	for _, field := range []string{"name", "tc_no", "period", "email"} {
		if _, ok := v[field]; !ok {
			t.Errorf("missing violation for %s", field)
		}
	}

	ok := Violations{}
	Required("name", "Acme", ok)
	TCNo("tc_no", "12345678901", ok)
	Period("period", "2024-01", ok)
	Email("email", "ops@example.com", ok)
	if !ok.Empty() {
		t.Fatalf("unexpected violations: %v", ok)
	}
}
