// Package validation concentra las reglas de formato de los valores que
// entran por la API. Son chequeos de forma, no de existencia: que un email
// valide acá no dice que la casilla exista.
package validation

import "regexp"

// Email: pragmático, no RFC 5321 completo. Algo con pinta de casilla
// (local@dominio.tld, sin espacios) alcanza; el magic link es la
// verificación real.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reporta si addr tiene forma de dirección de correo.
func ValidEmail(addr string) bool {
	if addr == "" || len(addr) > 254 {
		return false
	}
	return emailRe.MatchString(addr)
}

// Tag rules:
// - Minúsculas y dígitos; guión sólo en el medio.
// - Largo 1..32.
//
// Válidos: infra, status-board, q3. Inválidos: "", -lead, trail-, UPPER.
var tagRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,30}[a-z0-9])?$`)

// ValidTag reporta si name sirve como tag de una app.
func ValidTag(name string) bool {
	return tagRe.MatchString(name)
}
