package fs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	store "github.com/dropDatabas3/internalhub/internal/store"
)

func openConn(t *testing.T) store.AdapterConnection {
	t.Helper()
	a, ok := store.GetAdapter("fs")
	require.True(t, ok, "fs adapter registered")
	conn, err := a.Connect(context.Background(), store.AdapterConfig{Name: "fs", FSRoot: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestApps_CreateAssignsUniqueSlug(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	apps := conn.Apps()

	a1, err := apps.Create(ctx, repository.CreateAppInput{Name: "Mi App", OwnerID: "u1", StoragePath: "mi-app-1"})
	require.NoError(t, err)
	assert.Equal(t, "mi-app", a1.Slug)
	assert.Equal(t, repository.AppStatusDraft, a1.Status)
	assert.Equal(t, repository.AccessPrivate, a1.AccessType)

	a2, err := apps.Create(ctx, repository.CreateAppInput{Name: "Mi App", OwnerID: "u1", StoragePath: "mi-app-2"})
	require.NoError(t, err)
	assert.Equal(t, "mi-app-2", a2.Slug)
}

func TestApps_GetBySlugOrID(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	apps := conn.Apps()

	created, err := apps.Create(ctx, repository.CreateAppInput{Name: "Demo", OwnerID: "u1", StoragePath: "demo-1"})
	require.NoError(t, err)

	bySlug, err := apps.GetBySlugOrID(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)

	byID, err := apps.GetBySlugOrID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	_, err = apps.GetBySlugOrID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestApps_PublishedAtSetOnce(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	apps := conn.Apps()

	a, err := apps.Create(ctx, repository.CreateAppInput{Name: "Demo", OwnerID: "u1", StoragePath: "demo-1"})
	require.NoError(t, err)

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
	require.NotNil(t, a.PublishedAt)
	assert.True(t, a.PublishedAt.Equal(first), "republish must keep the original timestamp")
}

func TestApps_ListHidesOtherPeoplesDrafts(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	apps := conn.Apps()

	mine, err := apps.Create(ctx, repository.CreateAppInput{Name: "Mine", OwnerID: "u1", StoragePath: "mine-1"})
	require.NoError(t, err)
	theirs, err := apps.Create(ctx, repository.CreateAppInput{Name: "Theirs", OwnerID: "u2", StoragePath: "theirs-1"})
	require.NoError(t, err)

	pub := repository.AppStatusPublished
	_, err = apps.Update(ctx, theirs.ID, repository.UpdateAppInput{Status: &pub})
	require.NoError(t, err)

	list, err := apps.List(ctx, repository.ListAppsOptions{ViewerID: "u1"})
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, mine.ID, "own draft visible")
	assert.Contains(t, ids, theirs.ID, "published app visible")

	list, err = apps.List(ctx, repository.ListAppsOptions{ViewerID: "u2"})
	require.NoError(t, err)
	for _, a := range list {
		assert.NotEqual(t, mine.ID, a.ID, "someone else's draft must stay hidden")
	}
}

func TestApps_UpdateAccessConfig(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	apps := conn.Apps()

	a, err := apps.Create(ctx, repository.CreateAppInput{Name: "Demo", OwnerID: "u1", StoragePath: "demo-1"})
	require.NoError(t, err)

	at := repository.AccessPassword
	pw := "hunter2"
	a, err = apps.Update(ctx, a.ID, repository.UpdateAppInput{AccessType: &at, AccessPassword: &pw})
	require.NoError(t, err)
	assert.Equal(t, repository.AccessPassword, a.AccessType)
	assert.Equal(t, "hunter2", a.AccessPassword)

	bad := repository.AccessType("vip")
	_, err = apps.Update(ctx, a.ID, repository.UpdateAppInput{AccessType: &bad})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestUsers_GetOrCreateByEmail(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	users := conn.Users()

	u1, err := users.GetOrCreateByEmail(ctx, "Ana@Example.COM", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u1.Email)
	require.NotNil(t, u1.LastLogin)

	u2, err := users.GetOrCreateByEmail(ctx, "ana@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID, "mismo email, mismo usuario")
}

func TestMagicTokens_SingleUse(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	toks := conn.MagicTokens()

	created, err := toks.Create(ctx, repository.CreateMagicTokenInput{
		Email:     "ana@example.com",
		TokenHash: "hash-1",
		TTL:       15 * time.Minute,
	})
	require.NoError(t, err)
	assert.True(t, created.ExpiresAt.After(time.Now()))

	got, err := toks.Consume(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)

	_, err = toks.Consume(ctx, "hash-1")
	assert.ErrorIs(t, err, repository.ErrTokenExpired, "second consume must fail")

	_, err = toks.Consume(ctx, "no-such-hash")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMagicTokens_NewTokenInvalidatesPrevious(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	toks := conn.MagicTokens()

	_, err := toks.Create(ctx, repository.CreateMagicTokenInput{Email: "ana@example.com", TokenHash: "old", TTL: 15 * time.Minute})
	require.NoError(t, err)
	_, err = toks.Create(ctx, repository.CreateMagicTokenInput{Email: "ana@example.com", TokenHash: "new", TTL: 15 * time.Minute})
	require.NoError(t, err)

	_, err = toks.Consume(ctx, "old")
	assert.ErrorIs(t, err, repository.ErrTokenExpired)

	_, err = toks.Consume(ctx, "new")
	assert.NoError(t, err)
}

func TestMagicTokens_DeleteExpired(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	toks := conn.MagicTokens()

	_, err := toks.Create(ctx, repository.CreateMagicTokenInput{Email: "a@x.com", TokenHash: "h1", TTL: -time.Minute})
	require.NoError(t, err)
	_, err = toks.Create(ctx, repository.CreateMagicTokenInput{Email: "b@x.com", TokenHash: "h2", TTL: time.Hour})
	require.NoError(t, err)

	n, err := toks.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = toks.Consume(ctx, "h2")
	assert.NoError(t, err, "live token must survive the cleanup")
}

func TestStars_ToggleAndJoinedFields(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()

	u, err := conn.Users().GetOrCreateByEmail(ctx, "ana@example.com", "Ana")
	require.NoError(t, err)
	a, err := conn.Apps().Create(ctx, repository.CreateAppInput{Name: "Demo", OwnerID: u.ID, StoragePath: "demo-1"})
	require.NoError(t, err)

	stars := conn.Stars()
	on, err := stars.Toggle(ctx, u.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, on)

	n, err := stars.CountByApp(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := conn.Apps().List(ctx, repository.ListAppsOptions{ViewerID: u.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].StarCount)
	assert.True(t, list[0].IsStarred)
	assert.Equal(t, "ana@example.com", list[0].OwnerEmail)

	off, err := stars.Toggle(ctx, u.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, off)
}

func TestAccessLog_InsertAndList(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()
	log := conn.AccessLog()

	for _, m := range []string{"password", "email", "owner"} {
		require.NoError(t, log.Insert(ctx, repository.AccessLogEntry{AppID: "app-1", Method: m}))
	}
	require.NoError(t, log.Insert(ctx, repository.AccessLogEntry{AppID: "app-2", Method: "public"}))

	entries, err := log.ListByApp(ctx, "app-1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "email", entries[1].Method)
	assert.Equal(t, "owner", entries[0].Method, "newest first")
}

func TestApps_DeleteCascades(t *testing.T) {
	conn := openConn(t)
	ctx := context.Background()

	a, err := conn.Apps().Create(ctx, repository.CreateAppInput{Name: "Demo", OwnerID: "u1", StoragePath: "demo-1"})
	require.NoError(t, err)
	_, err = conn.Stars().Toggle(ctx, "u1", a.ID)
	require.NoError(t, err)
	require.NoError(t, conn.AccessLog().Insert(ctx, repository.AccessLogEntry{AppID: a.ID, Method: "owner"}))

	require.NoError(t, conn.Apps().Delete(ctx, a.ID))

	_, err = conn.Apps().GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	n, err := conn.Stars().CountByApp(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	entries, err := conn.AccessLog().ListByApp(ctx, a.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
