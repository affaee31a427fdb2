package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	"github.com/dropDatabas3/internalhub/internal/util/slug"
)

type appRepo struct{ pool *pgxpool.Pool }

const appColumns = `
	a.id, a.slug, a.name, a.description, a.status, a.storage_path, a.owner_id,
	a.access_type, a.access_password, a.access_emails, a.access_domain, a.tags,
	a.created_at, a.updated_at, a.published_at,
	COALESCE(u.email, ''),
	(SELECT COUNT(*) FROM stars s WHERE s.app_id = a.id)::int,
	EXISTS(SELECT 1 FROM stars s WHERE s.app_id = a.id AND s.user_id::text = $1)`

const appFrom = ` FROM apps a LEFT JOIN users u ON u.id = a.owner_id `

func scanApp(row pgx.Row) (*repository.App, error) {
	var app repository.App
	err := row.Scan(
		&app.ID, &app.Slug, &app.Name, &app.Description, (*string)(&app.Status),
		&app.StoragePath, &app.OwnerID,
		(*string)(&app.AccessType), &app.AccessPassword, &app.AccessEmails, &app.AccessDomain, &app.Tags,
		&app.CreatedAt, &app.UpdatedAt, &app.PublishedAt,
		&app.OwnerEmail, &app.StarCount, &app.IsStarred,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("pg: scan app: %w", err)
	}
	return &app, nil
}

func (r *appRepo) Create(ctx context.Context, input repository.CreateAppInput) (*repository.App, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", repository.ErrInvalidInput)
	}

	base := slug.Make(input.Name)
	s := base
	for n := 2; ; n++ {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM apps WHERE slug = $1)`, s).Scan(&exists); err != nil {
			return nil, fmt.Errorf("pg: check slug: %w", err)
		}
		if !exists {
			break
		}
		s = fmt.Sprintf("%s-%d", base, n)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO apps (id, slug, name, description, status, storage_path, owner_id,
			access_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		id, s, input.Name, input.Description, string(repository.AppStatusDraft),
		input.StoragePath, input.OwnerID, string(repository.AccessPrivate), now)
	if err != nil {
		return nil, fmt.Errorf("pg: insert app: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *appRepo) GetByID(ctx context.Context, id string) (*repository.App, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+appColumns+appFrom+`WHERE a.id::text = $2`, "", id)
	return scanApp(row)
}

func (r *appRepo) GetBySlugOrID(ctx context.Context, slugOrID string) (*repository.App, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+appColumns+appFrom+`WHERE a.slug = $2`, "", slugOrID)
	app, err := scanApp(row)
	if err == nil {
		return app, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}
	// tolera identificadores que no son slugs (ni siquiera UUID)
	if _, perr := uuid.Parse(slugOrID); perr != nil {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, slugOrID)
}

func (r *appRepo) List(ctx context.Context, opts repository.ListAppsOptions) ([]*repository.App, error) {
	var (
		where []string
		args  []any
	)
	args = append(args, opts.ViewerID) // $1: para el EXISTS de is_starred
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// drafts y archivadas sólo las ve su dueño
	where = append(where, fmt.Sprintf(`(a.status = %s OR a.owner_id::text = %s)`,
		arg(string(repository.AppStatusPublished)), arg(opts.ViewerID)))

	if opts.OwnerOnly {
		where = append(where, fmt.Sprintf(`a.owner_id::text = %s`, arg(opts.ViewerID)))
	}
	if s := strings.TrimSpace(opts.Search); s != "" {
		like := arg("%" + strings.ToLower(s) + "%")
		where = append(where, fmt.Sprintf(
			`(lower(a.name) LIKE %s OR lower(a.description) LIKE %s OR lower(array_to_string(a.tags, ' ')) LIKE %s)`,
			like, like, like))
	}
	if opts.Starred {
		where = append(where, fmt.Sprintf(
			`EXISTS(SELECT 1 FROM stars s WHERE s.app_id = a.id AND s.user_id::text = %s)`,
			arg(opts.ViewerID)))
	}

	order := ` ORDER BY a.updated_at DESC`
	if opts.SortBy == "name" {
		order = ` ORDER BY lower(a.name) ASC`
	}

	query := `SELECT` + appColumns + appFrom + `WHERE ` + strings.Join(where, " AND ") + order
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pg: list apps: %w", err)
	}
	defer rows.Close()

	var apps []*repository.App
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (r *appRepo) Update(ctx context.Context, id string, input repository.UpdateAppInput) (*repository.App, error) {
	var (
		sets []string
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if input.Name != nil {
		sets = append(sets, `name = `+arg(*input.Name))
	}
	if input.Description != nil {
		sets = append(sets, `description = `+arg(*input.Description))
	}
	if input.Status != nil {
		sets = append(sets, `status = `+arg(string(*input.Status)))
		if *input.Status == repository.AppStatusPublished {
			// primera publicación fija published_at; después no se pisa
			sets = append(sets, `published_at = COALESCE(published_at, now())`)
		}
	}
	if input.Tags != nil {
		sets = append(sets, `tags = `+arg(*input.Tags))
	}
	if input.AccessType != nil {
		if !input.AccessType.Valid() {
			return nil, fmt.Errorf("%w: unknown access type %q", repository.ErrInvalidInput, *input.AccessType)
		}
		sets = append(sets, `access_type = `+arg(string(*input.AccessType)))
	}
	if input.AccessPassword != nil {
		sets = append(sets, `access_password = `+arg(*input.AccessPassword))
	}
	if input.AccessEmails != nil {
		sets = append(sets, `access_emails = `+arg(*input.AccessEmails))
	}
	if input.AccessDomain != nil {
		sets = append(sets, `access_domain = `+arg(*input.AccessDomain))
	}
	// Sin campos igual se ejecuta: un update vacío bumpea updated_at
	// (es el "touch" que usa el redeploy).
	sets = append(sets, `updated_at = now()`)

	tag, err := r.pool.Exec(ctx,
		`UPDATE apps SET `+strings.Join(sets, ", ")+` WHERE id::text = `+arg(id), args...)
	if err != nil {
		return nil, fmt.Errorf("pg: update app: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *appRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM apps WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("pg: delete app: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	// stars y access log caen por ON DELETE CASCADE
	return nil
}
