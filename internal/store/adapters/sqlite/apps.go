package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	"github.com/dropDatabas3/internalhub/internal/util/slug"
)

type appRepo struct{ db *sql.DB }

// appColumns es la proyección estándar, con owner email y stars joineados.
const appColumns = `
	a.id, a.slug, a.name, a.description, a.status, a.storage_path, a.owner_id,
	a.access_type, a.access_password, a.access_emails, a.access_domain, a.tags,
	a.created_at, a.updated_at, a.published_at,
	COALESCE(u.email, ''),
	(SELECT COUNT(*) FROM stars s WHERE s.app_id = a.id),
	EXISTS(SELECT 1 FROM stars s WHERE s.app_id = a.id AND s.user_id = ?)`

const appFrom = ` FROM apps a LEFT JOIN users u ON u.id = a.owner_id `

func scanApp(row interface{ Scan(...any) error }) (*repository.App, error) {
	var (
		app         repository.App
		emailsJSON  string
		tagsJSON    string
		publishedAt sql.NullTime
		starredFlag bool
	)
	err := row.Scan(
		&app.ID, &app.Slug, &app.Name, &app.Description, (*string)(&app.Status),
		&app.StoragePath, &app.OwnerID,
		(*string)(&app.AccessType), &app.AccessPassword, &emailsJSON, &app.AccessDomain, &tagsJSON,
		&app.CreatedAt, &app.UpdatedAt, &publishedAt,
		&app.OwnerEmail, &app.StarCount, &starredFlag,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: scan app: %w", err)
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		app.PublishedAt = &t
	}
	app.IsStarred = starredFlag
	if err := json.Unmarshal([]byte(emailsJSON), &app.AccessEmails); err != nil {
		return nil, fmt.Errorf("sqlite: decode access_emails: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &app.Tags); err != nil {
		return nil, fmt.Errorf("sqlite: decode tags: %w", err)
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
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM apps WHERE slug = ?)`, s).Scan(&exists); err != nil {
			return nil, fmt.Errorf("sqlite: check slug: %w", err)
		}
		if !exists {
			break
		}
		s = fmt.Sprintf("%s-%d", base, n)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO apps (id, slug, name, description, status, storage_path, owner_id,
			access_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s, input.Name, input.Description, string(repository.AppStatusDraft),
		input.StoragePath, input.OwnerID, string(repository.AccessPrivate), now, now)
	if err != nil {
		return nil, fmt.Errorf("sqlite: insert app: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *appRepo) GetByID(ctx context.Context, id string) (*repository.App, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+appColumns+appFrom+`WHERE a.id = ?`, "", id)
	return scanApp(row)
}

func (r *appRepo) GetBySlugOrID(ctx context.Context, slugOrID string) (*repository.App, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+appColumns+appFrom+`WHERE a.slug = ?`, "", slugOrID)
	app, err := scanApp(row)
	if err == nil {
		return app, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}
	return r.GetByID(ctx, slugOrID)
}

func (r *appRepo) List(ctx context.Context, opts repository.ListAppsOptions) ([]*repository.App, error) {
	var (
		where []string
		args  []any
	)
	args = append(args, opts.ViewerID) // para el EXISTS de is_starred

	// drafts y archivadas sólo las ve su dueño
	where = append(where, `(a.status = ? OR a.owner_id = ?)`)
	args = append(args, string(repository.AppStatusPublished), opts.ViewerID)

	if opts.OwnerOnly {
		where = append(where, `a.owner_id = ?`)
		args = append(args, opts.ViewerID)
	}
	if s := strings.TrimSpace(opts.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		where = append(where, `(LOWER(a.name) LIKE ? OR LOWER(a.description) LIKE ? OR LOWER(a.tags) LIKE ?)`)
		args = append(args, like, like, like)
	}
	if opts.Starred {
		where = append(where, `EXISTS(SELECT 1 FROM stars s WHERE s.app_id = a.id AND s.user_id = ?)`)
		args = append(args, opts.ViewerID)
	}

	order := ` ORDER BY a.updated_at DESC`
	if opts.SortBy == "name" {
		order = ` ORDER BY LOWER(a.name) ASC`
	}

	query := `SELECT` + appColumns + appFrom + `WHERE ` + strings.Join(where, " AND ") + order
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list apps: %w", err)
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
	if input.Name != nil {
		sets = append(sets, `name = ?`)
		args = append(args, *input.Name)
	}
	if input.Description != nil {
		sets = append(sets, `description = ?`)
		args = append(args, *input.Description)
	}
	if input.Status != nil {
		sets = append(sets, `status = ?`)
		args = append(args, string(*input.Status))
		if *input.Status == repository.AppStatusPublished {
			// primera publicación fija published_at; después no se pisa
			sets = append(sets, `published_at = COALESCE(published_at, ?)`)
			args = append(args, time.Now().UTC())
		}
	}
	if input.Tags != nil {
		b, _ := json.Marshal(*input.Tags)
		sets = append(sets, `tags = ?`)
		args = append(args, string(b))
	}
	if input.AccessType != nil {
		if !input.AccessType.Valid() {
			return nil, fmt.Errorf("%w: unknown access type %q", repository.ErrInvalidInput, *input.AccessType)
		}
		sets = append(sets, `access_type = ?`)
		args = append(args, string(*input.AccessType))
	}
	if input.AccessPassword != nil {
		sets = append(sets, `access_password = ?`)
		args = append(args, *input.AccessPassword)
	}
	if input.AccessEmails != nil {
		b, _ := json.Marshal(*input.AccessEmails)
		sets = append(sets, `access_emails = ?`)
		args = append(args, string(b))
	}
	if input.AccessDomain != nil {
		sets = append(sets, `access_domain = ?`)
		args = append(args, *input.AccessDomain)
	}
	// Sin campos igual se ejecuta: un update vacío bumpea updated_at
	// (es el "touch" que usa el redeploy).
	sets = append(sets, `updated_at = ?`)
	args = append(args, time.Now().UTC(), id)

	res, err := r.db.ExecContext(ctx,
		`UPDATE apps SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: update app: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *appRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM apps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete app: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	_, _ = r.db.ExecContext(ctx, `DELETE FROM stars WHERE app_id = ?`, id)
	_, _ = r.db.ExecContext(ctx, `DELETE FROM app_access_log WHERE app_id = ?`, id)
	return nil
}
