package validation

import "testing"

func TestValidEmail(t *testing.T) {
	valids := []string{
		"ana@acme.dev",
		"a.b+tag@sub.acme.dev",
		"x@y.co",
	}
	for _, v := range valids {
		if !ValidEmail(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}

	invalids := []string{
		"",
		"ana",
		"ana@",
		"@acme.dev",
		"ana@acme",
		"ana @acme.dev",
		"ana@ac me.dev",
	}
	for _, v := range invalids {
		if ValidEmail(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestValidTag(t *testing.T) {
	valids := []string{"a", "infra", "status-board", "q3", "abc-def-123"}
	for _, v := range valids {
		if !ValidTag(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}

	invalids := []string{"", "-lead", "trail-", "UPPER", "con espacio", "0123456789012345678901234567890123"}
	for _, v := range invalids {
		if ValidTag(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}
