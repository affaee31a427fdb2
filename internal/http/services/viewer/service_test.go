package viewer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/internalhub/internal/access/gate"
	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	"github.com/dropDatabas3/internalhub/internal/signing"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testService(t *testing.T) (*service, *gate.Manager) {
	t.Helper()
	signer := signing.New(testSecret)
	m := gate.NewManager(signer, time.Hour, time.Hour)
	s := New(Deps{Gate: m}).(*service)
	return s, m
}

func noCookies(string) (string, bool) { return "", false }

func withCookie(name, value string) CookieReader {
	return func(n string) (string, bool) {
		if n == name {
			return value, true
		}
		return "", false
	}
}

func testApp(accessType repository.AccessType) *repository.App {
	return &repository.App{
		ID:         "app-1",
		Slug:       "demo",
		Name:       "Demo",
		Status:     repository.AppStatusPublished,
		OwnerID:    "owner-1",
		AccessType: accessType,
	}
}

func TestAuthorizeOwnerBypassesEverything(t *testing.T) {
	s, _ := testService(t)
	app := testApp(repository.AccessPrivate)
	owner := &repository.User{ID: "owner-1", Email: "owner@acme.dev"}

	d := s.Authorize(context.Background(), app, owner, noCookies)
	require.True(t, d.Allowed)
	assert.Equal(t, "owner", d.Method)
}

func TestAuthorizeUnpublishedHiddenFromOthers(t *testing.T) {
	s, _ := testService(t)
	app := testApp(repository.AccessPublic)
	app.Status = repository.AppStatusDraft

	d := s.Authorize(context.Background(), app, &repository.User{ID: "u2", Email: "x@acme.dev"}, noCookies)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotPublished, d.Reason)

	// El owner sí puede previsualizar su draft.
	d = s.Authorize(context.Background(), app, &repository.User{ID: "owner-1"}, noCookies)
	assert.True(t, d.Allowed)
}

func TestAuthorizePublic(t *testing.T) {
	s, _ := testService(t)
	d := s.Authorize(context.Background(), testApp(repository.AccessPublic), nil, noCookies)
	require.True(t, d.Allowed)
	assert.Equal(t, "public", d.Method)
}

func TestAuthorizePrivateDeniesEveryoneButOwner(t *testing.T) {
	s, _ := testService(t)
	d := s.Authorize(context.Background(), testApp(repository.AccessPrivate), &repository.User{ID: "u2", Email: "x@acme.dev"}, noCookies)
	assert.False(t, d.Allowed)
	assert.Equal(t, "private", d.Reason)
}

func TestAuthorizePasswordGate(t *testing.T) {
	s, m := testService(t)
	app := testApp(repository.AccessPassword)
	app.AccessPassword = "hunter2"

	// Sin grant: denegado señalando el gate.
	d := s.Authorize(context.Background(), app, nil, noCookies)
	assert.False(t, d.Allowed)
	assert.Equal(t, "password_required", d.Reason)

	// Con grant válido en la cookie: pasa.
	grant, err := m.GrantPassword(app.ID)
	require.NoError(t, err)
	d = s.Authorize(context.Background(), app, nil, withCookie(gate.CookieName(app.ID), grant))
	require.True(t, d.Allowed)
	assert.Equal(t, "password", d.Method)

	// Un grant de otra app no sirve.
	other, err := m.GrantPassword("app-other")
	require.NoError(t, err)
	d = s.Authorize(context.Background(), app, nil, withCookie(gate.CookieName(app.ID), other))
	assert.False(t, d.Allowed)
}

func TestAuthorizeEmailListWithSession(t *testing.T) {
	s, _ := testService(t)
	app := testApp(repository.AccessEmailList)
	app.AccessEmails = []string{"ana@acme.dev"}

	d := s.Authorize(context.Background(), app, &repository.User{ID: "u2", Email: "Ana@acme.dev"}, noCookies)
	require.True(t, d.Allowed)
	assert.Equal(t, "email", d.Method)

	d = s.Authorize(context.Background(), app, &repository.User{ID: "u3", Email: "bob@acme.dev"}, noCookies)
	assert.False(t, d.Allowed)
	assert.Equal(t, "not_on_list", d.Reason)

	// Anónimo sin grant: falta el email.
	d = s.Authorize(context.Background(), app, nil, noCookies)
	assert.False(t, d.Allowed)
	assert.Equal(t, "email_required", d.Reason)
}

func TestAuthorizeEmailGrantRevalidatedAgainstPolicy(t *testing.T) {
	s, m := testService(t)
	app := testApp(repository.AccessEmailList)
	app.AccessEmails = []string{"ana@acme.dev"}

	grant, err := m.GrantEmail(app.ID, "ana@acme.dev")
	require.NoError(t, err)

	d := s.Authorize(context.Background(), app, nil, withCookie(gate.CookieName(app.ID), grant))
	require.True(t, d.Allowed)
	assert.Equal(t, "ana@acme.dev", d.Email)

	// Si el email salió de la lista, el grant viejo deja de valer.
	app.AccessEmails = []string{"carla@acme.dev"}
	d = s.Authorize(context.Background(), app, nil, withCookie(gate.CookieName(app.ID), grant))
	assert.False(t, d.Allowed)
	assert.Equal(t, "not_on_list", d.Reason)
}

func TestAuthorizeDomainGate(t *testing.T) {
	s, _ := testService(t)
	app := testApp(repository.AccessDomain)
	app.AccessDomain = "acme.dev"

	d := s.Authorize(context.Background(), app, &repository.User{ID: "u2", Email: "x@acme.dev"}, noCookies)
	assert.True(t, d.Allowed)

	d = s.Authorize(context.Background(), app, &repository.User{ID: "u3", Email: "x@evil.dev"}, noCookies)
	assert.False(t, d.Allowed)
	assert.Equal(t, "wrong_domain", d.Reason)
}

func TestChallenge(t *testing.T) {
	s, m := testService(t)
	app := testApp(repository.AccessPassword)
	app.AccessPassword = "hunter2"

	_, err := s.Challenge(context.Background(), app, "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = s.Challenge(context.Background(), app, "")
	assert.ErrorIs(t, err, ErrPasswordMissing)

	grant, err := s.Challenge(context.Background(), app, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, gate.CookieName(app.ID), grant.CookieName)
	assert.True(t, m.HasPasswordGrant(grant.Token, app.ID))

	// Apps sin gate de password no aceptan challenges.
	_, err = s.Challenge(context.Background(), testApp(repository.AccessPublic), "hunter2")
	assert.ErrorIs(t, err, ErrNoPasswordGate)
}
