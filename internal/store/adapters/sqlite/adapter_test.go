package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	store "github.com/dropDatabas3/internalhub/internal/store"
)

func openConn(t *testing.T) store.AdapterConnection {
	t.Helper()
	a, ok := store.GetAdapter("sqlite")
	require.True(t, ok, "sqlite adapter registered")
	conn, err := a.Connect(context.Background(), store.AdapterConfig{
		Name:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSQLite_AppLifecycle(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	apps := conn.Apps()

	a, err := apps.Create(ctx, repository.CreateAppInput{Name: "Mi App", OwnerID: "u1", StoragePath: "mi-app-1"})
	require.NoError(t, err)
	assert.Equal(t, "mi-app", a.Slug)
	assert.Equal(t, repository.AppStatusDraft, a.Status)

	dup, err := apps.Create(ctx, repository.CreateAppInput{Name: "Mi App", OwnerID: "u1", StoragePath: "mi-app-2"})
	require.NoError(t, err)
	assert.Equal(t, "mi-app-2", dup.Slug)

	pub := repository.AppStatusPublished
	a, err = apps.Update(ctx, a.ID, repository.UpdateAppInput{Status: &pub})
	require.NoError(t, err)
	require.NotNil(t, a.PublishedAt)
	first := *a.PublishedAt

	draft := repository.AppStatusDraft
	_, err = apps.Update(ctx, a.ID, repository.UpdateAppInput{Status: &draft})
	require.NoError(t, err)
	a, err = apps.Update(ctx, a.ID, repository.UpdateAppInput{Status: &pub})
	require.NoError(t, err)
	assert.True(t, a.PublishedAt.Equal(first), "republish must keep the original timestamp")

	got, err := apps.GetBySlugOrID(ctx, "mi-app")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	require.NoError(t, apps.Delete(ctx, a.ID))
	_, err = apps.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSQLite_AccessConfigRoundTrip(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	apps := conn.Apps()

	a, err := apps.Create(ctx, repository.CreateAppInput{Name: "Demo", OwnerID: "u1", StoragePath: "demo-1"})
	require.NoError(t, err)

	at := repository.AccessEmailList
	emails := []string{"ana@example.com", "bo@example.com"}
	a, err = apps.Update(ctx, a.ID, repository.UpdateAppInput{AccessType: &at, AccessEmails: &emails})
	require.NoError(t, err)
	assert.Equal(t, repository.AccessEmailList, a.AccessType)
	assert.Equal(t, emails, a.AccessEmails)
}

func TestSQLite_UsersUpsert(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	users := conn.Users()

	u1, err := users.GetOrCreateByEmail(ctx, "Ana@Example.COM", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u1.Email)

	u2, err := users.GetOrCreateByEmail(ctx, "ana@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID)
	assert.Equal(t, "Ana", u2.Name, "el nombre original no se pisa con vacío")
}

func TestSQLite_MagicTokenSingleUse(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	toks := conn.MagicTokens()

	_, err := toks.Create(ctx, repository.CreateMagicTokenInput{
		Email: "ana@example.com", TokenHash: "h1", TTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	got, err := toks.Consume(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)

	_, err = toks.Consume(ctx, "h1")
	assert.ErrorIs(t, err, repository.ErrTokenExpired)

	_, err = toks.Consume(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSQLite_StarsToggle(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()

	u, err := conn.Users().GetOrCreateByEmail(ctx, "ana@example.com", "Ana")
	require.NoError(t, err)
	a, err := conn.Apps().Create(ctx, repository.CreateAppInput{Name: "Demo", OwnerID: u.ID, StoragePath: "demo-1"})
	require.NoError(t, err)

	on, err := conn.Stars().Toggle(ctx, u.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, on)

	list, err := conn.Apps().List(ctx, repository.ListAppsOptions{ViewerID: u.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].StarCount)
	assert.True(t, list[0].IsStarred)
	assert.Equal(t, "ana@example.com", list[0].OwnerEmail)

	off, err := conn.Stars().Toggle(ctx, u.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, off)
}
