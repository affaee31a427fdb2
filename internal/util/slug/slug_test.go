package slug

import "testing"

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Mi App (beta)":    "mi-app-beta",
		"  Design System ": "design-system",
		"café_móvil":       "cafe-movil",
		"v2.0/rc1":         "v2-0-rc1",
		"---":              "app",
		"":                 "app",
		"YA-en-slug":       "ya-en-slug",
	}
	for in, want := range cases {
		if got := Make(in); got != want {
			t.Errorf("Make(%q) = %q, want %q", in, got, want)
		}
	}
}
