// Package access implementa el motor de decisión de acceso a apps.
//
// La decisión pura (Evaluate) está separada del estado de grants
// (internal/access/gate): el caller combina ambos antes de decidir si
// muestra un challenge o sirve contenido.
package access

import (
	"strings"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
)

// Config es la configuración de acceso de una app como variante cerrada:
// un solo payload es significativo según el kind. Se construye únicamente
// vía los constructores o FromApp, que copian SOLO el campo del modo activo.
// Así un update parcial que deja campos stale en la fila de la app nunca
// puede filtrarse en una decisión.
type Config struct {
	kind     repository.AccessType
	password string
	emails   map[string]struct{}
	domain   string
}

// Public construye la config de una app visible por cualquiera.
func Public() Config {
	return Config{kind: repository.AccessPublic}
}

// Private construye la config de una app visible sólo por su owner.
func Private() Config {
	return Config{kind: repository.AccessPrivate}
}

// PasswordGate construye la config de una app protegida por password compartida.
func PasswordGate(secret string) Config {
	return Config{kind: repository.AccessPassword, password: secret}
}

// EmailList construye la config de una app restringida a un set de emails.
// Los emails se normalizan a minúsculas.
func EmailList(emails []string) Config {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return Config{kind: repository.AccessEmailList, emails: set}
}

// DomainGate construye la config de una app restringida a un dominio de email.
// Acepta el dominio con o sin "@" inicial.
func DomainGate(domain string) Config {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "@")
	return Config{kind: repository.AccessDomain, domain: d}
}

// FromApp deriva la Config desde la fila persistida de la app.
// Copia únicamente el payload del modo activo; los campos de otros modos
// se descartan acá, no en el evaluador.
func FromApp(app *repository.App) Config {
	switch app.AccessType {
	case repository.AccessPublic:
		return Public()
	case repository.AccessPassword:
		return PasswordGate(app.AccessPassword)
	case repository.AccessEmailList:
		return EmailList(app.AccessEmails)
	case repository.AccessDomain:
		return DomainGate(app.AccessDomain)
	default:
		// private, y cualquier valor desconocido degrada a private
		return Private()
	}
}

// Kind devuelve el access type de la config.
func (c Config) Kind() repository.AccessType {
	if c.kind == "" {
		return repository.AccessPrivate
	}
	return c.kind
}

// Password devuelve la password compartida (vacía fuera del modo password).
// La usa el challenge handler, nunca Evaluate.
func (c Config) Password() string { return c.password }

// Domain devuelve el dominio requerido (vacío fuera del modo domain).
func (c Config) Domain() string { return c.domain }
