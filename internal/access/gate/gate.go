// Package gate maneja los grants efímeros de acceso: la prueba de que un
// requester pasó un challenge (password o email) para una app concreta.
//
// Los grants son capability tokens firmados (HMAC JWT) que carga el propio
// requester — no hay tabla de sesiones server-side para esto. Scope y expiry
// van dentro del token; el transporte (cookie, header) es asunto del caller.
package gate

import (
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/internalhub/internal/signing"
)

// Mechanism identifica el challenge que originó un grant.
type Mechanism string

const (
	MechanismPassword Mechanism = "password"
	MechanismEmail    Mechanism = "email"
)

// Manager emite y verifica gate grants.
type Manager struct {
	signer      *signing.Signer
	passwordTTL time.Duration
	emailTTL    time.Duration
}

// NewManager crea un Manager. passwordTTL es la ventana de validez de un
// grant por password (24h por defecto en config), emailTTL la de un grant
// por email verificado.
func NewManager(signer *signing.Signer, passwordTTL, emailTTL time.Duration) *Manager {
	if passwordTTL <= 0 {
		passwordTTL = 24 * time.Hour
	}
	if emailTTL <= 0 {
		emailTTL = 24 * time.Hour
	}
	return &Manager{signer: signer, passwordTTL: passwordTTL, emailTTL: emailTTL}
}

// GrantPassword emite un grant tras un password challenge exitoso.
// No carga identidad: sólo prueba que alguien conocía la password de la app.
func (m *Manager) GrantPassword(appID string) (string, error) {
	return m.grant(appID, MechanismPassword, "", m.passwordTTL)
}

// GrantEmail emite un grant tras verificar un magic token para (app, email).
func (m *Manager) GrantEmail(appID, email string) (string, error) {
	return m.grant(appID, MechanismEmail, strings.ToLower(strings.TrimSpace(email)), m.emailTTL)
}

func (m *Manager) grant(appID string, mech Mechanism, email string, ttl time.Duration) (string, error) {
	claims := jwtv5.MapClaims{
		"sub":  appID,
		"mech": string(mech),
	}
	if email != "" {
		claims["email"] = email
	}
	return m.signer.Sign(claims, ttl)
}

// HasPasswordGrant verifica un grant por password para la app dada.
// Tokens expirados, malformados o con otro scope cuentan como "sin grant";
// nunca retorna error.
func (m *Manager) HasPasswordGrant(token, appID string) bool {
	_, ok := m.verify(token, appID, MechanismPassword)
	return ok
}

// HasEmailGrant verifica un grant por email para (app, email). El email
// presentado debe coincidir con el del grant (case-insensitive): un grant
// emitido para otra persona no sirve.
func (m *Manager) HasEmailGrant(token, appID, email string) bool {
	granted, ok := m.verify(token, appID, MechanismEmail)
	if !ok {
		return false
	}
	want := strings.ToLower(strings.TrimSpace(email))
	return want != "" && granted == want
}

// GrantedEmail devuelve el email de un email grant válido para la app
// ("" si el token no es un grant válido). Lo usa el viewer para evaluar
// email_list/domain sin sesión de usuario.
func (m *Manager) GrantedEmail(token, appID string) string {
	email, ok := m.verify(token, appID, MechanismEmail)
	if !ok {
		return ""
	}
	return email
}

// verify valida firma, expiry, scope de app y mecanismo.
// Devuelve el email del grant (vacío para password) y ok.
func (m *Manager) verify(token, appID string, mech Mechanism) (string, bool) {
	if token == "" || appID == "" {
		return "", false
	}
	claims, err := m.signer.Parse(token)
	if err != nil {
		return "", false
	}
	if sub, _ := claims["sub"].(string); sub != appID {
		return "", false
	}
	if got, _ := claims["mech"].(string); got != string(mech) {
		return "", false
	}
	email, _ := claims["email"].(string)
	return email, true
}

// PasswordTTL expone la ventana de validez de password grants (para cookies).
func (m *Manager) PasswordTTL() time.Duration { return m.passwordTTL }

// EmailTTL expone la ventana de validez de email grants.
func (m *Manager) EmailTTL() time.Duration { return m.emailTTL }

// CookieName devuelve el nombre de la cookie donde viaja el grant de una
// app. Una cookie por app: revocar o expirar una no toca las demás.
func CookieName(appID string) string {
	return "app_access_" + appID
}
