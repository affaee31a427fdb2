// Package slug deriva identificadores URL-safe a partir de nombres libres.
package slug

import (
	"strings"
	"unicode"
)

// Make convierte un nombre en slug: minúsculas, ascii alfanumérico y guiones.
// "Mi App (beta)" → "mi-app-beta". Un nombre sin nada rescatable da "app".
func Make(name string) string {
	var b strings.Builder
	lastDash := true // evita guión inicial
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case unicode.IsSpace(r), r == '-', r == '_', r == '.', r == '/':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		default:
			// acentos comunes; el resto se descarta
			if m, ok := translit[r]; ok {
				b.WriteRune(m)
				lastDash = false
			}
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "app"
	}
	if len(s) > 64 {
		s = strings.Trim(s[:64], "-")
	}
	return s
}

var translit = map[rune]rune{
	'á': 'a', 'é': 'e', 'í': 'i', 'ó': 'o', 'ú': 'u', 'ü': 'u', 'ñ': 'n',
	'à': 'a', 'è': 'e', 'ì': 'i', 'ò': 'o', 'ù': 'u', 'ç': 'c',
}
