package access

import (
	"strings"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
)

// DenyReason codifica por qué se denegó el acceso. No es un error: el
// caller lo rutea al gate correspondiente (password form, email form) o a
// una página de denegación terminal.
type DenyReason string

const (
	DenyPrivate          DenyReason = "private"
	DenyPasswordRequired DenyReason = "password_required"
	DenyEmailRequired    DenyReason = "email_required"
	DenyNotOnList        DenyReason = "not_on_list"
	DenyWrongDomain      DenyReason = "wrong_domain"
)

// Verdict es el resultado de una evaluación de acceso.
type Verdict struct {
	Allowed bool
	Reason  DenyReason // sólo significativo cuando !Allowed
}

var allow = Verdict{Allowed: true}

func deny(r DenyReason) Verdict { return Verdict{Reason: r} }

// Evaluate decide si un requester puede ver una app. Función pura: sin I/O,
// total sobre los cinco access types, nunca panica.
//
// requesterEmail es el email verificado del requester ("" si anónimo).
// isOwner lo deriva el boundary HTTP comparando contra el owner de la app;
// el owner bypasea todos los gates.
//
// Para el modo password esta función sólo señala que existe un gate
// (DenyPasswordRequired); la verificación de la password es un challenge
// aparte y el grant resultante lo consulta el caller vía gate.Manager.
func Evaluate(cfg Config, requesterEmail string, isOwner bool) Verdict {
	if isOwner {
		return allow
	}

	email := strings.ToLower(strings.TrimSpace(requesterEmail))

	switch cfg.Kind() {
	case repository.AccessPublic:
		return allow

	case repository.AccessPassword:
		return deny(DenyPasswordRequired)

	case repository.AccessEmailList:
		if email == "" {
			return deny(DenyEmailRequired)
		}
		if _, ok := cfg.emails[email]; ok {
			return allow
		}
		return deny(DenyNotOnList)

	case repository.AccessDomain:
		if email == "" {
			return deny(DenyEmailRequired)
		}
		if emailDomain(email) == cfg.domain && cfg.domain != "" {
			return allow
		}
		return deny(DenyWrongDomain)

	default: // private
		return deny(DenyPrivate)
	}
}

// emailDomain devuelve la porción de dominio de un email ya normalizado.
func emailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}
