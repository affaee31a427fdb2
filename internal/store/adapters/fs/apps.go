package fs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	"github.com/dropDatabas3/internalhub/internal/util/slug"
)

// appRecord es la forma persistida de una app.
type appRecord struct {
	ID          string     `yaml:"id"`
	Slug        string     `yaml:"slug"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Status      string     `yaml:"status"`
	StoragePath string     `yaml:"storage_path"`
	OwnerID     string     `yaml:"owner_id"`
	AccessType  string     `yaml:"access_type"`
	AccessPass  string     `yaml:"access_password,omitempty"`
	AccessMails []string   `yaml:"access_emails,omitempty"`
	AccessDom   string     `yaml:"access_domain,omitempty"`
	Tags        []string   `yaml:"tags,omitempty"`
	CreatedAt   time.Time  `yaml:"created_at"`
	UpdatedAt   time.Time  `yaml:"updated_at"`
	PublishedAt *time.Time `yaml:"published_at,omitempty"`
}

func (r appRecord) toDomain() *repository.App {
	return &repository.App{
		ID:             r.ID,
		Slug:           r.Slug,
		Name:           r.Name,
		Description:    r.Description,
		Status:         repository.AppStatus(r.Status),
		StoragePath:    r.StoragePath,
		OwnerID:        r.OwnerID,
		AccessType:     repository.AccessType(r.AccessType),
		AccessPassword: r.AccessPass,
		AccessEmails:   append([]string(nil), r.AccessMails...),
		AccessDomain:   r.AccessDom,
		Tags:           append([]string(nil), r.Tags...),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		PublishedAt:    r.PublishedAt,
	}
}

type appRepo struct{ conn *fsConnection }

func (r *appRepo) load() ([]appRecord, error) {
	var recs []appRecord
	if err := loadYAML(r.conn.appsFile(), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *appRepo) save(recs []appRecord) error {
	return saveYAML(r.conn.appsFile(), recs)
}

func (r *appRepo) Create(ctx context.Context, input repository.CreateAppInput) (*repository.App, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", repository.ErrInvalidInput)
	}

	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	recs, err := r.load()
	if err != nil {
		return nil, err
	}

	base := slug.Make(input.Name)
	s := base
	for n := 2; slugTaken(recs, s); n++ {
		s = fmt.Sprintf("%s-%d", base, n)
	}

	now := time.Now().UTC()
	rec := appRecord{
		ID:          uuid.NewString(),
		Slug:        s,
		Name:        input.Name,
		Description: input.Description,
		Status:      string(repository.AppStatusDraft),
		StoragePath: input.StoragePath,
		OwnerID:     input.OwnerID,
		AccessType:  string(repository.AccessPrivate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	recs = append(recs, rec)
	if err := r.save(recs); err != nil {
		return nil, err
	}
	return r.decorate(rec.toDomain(), "")
}

func slugTaken(recs []appRecord, s string) bool {
	for _, rec := range recs {
		if rec.Slug == s {
			return true
		}
	}
	return false
}

func (r *appRepo) GetByID(ctx context.Context, id string) (*repository.App, error) {
	r.conn.mu.RLock()
	defer r.conn.mu.RUnlock()
	return r.getLocked(func(rec appRecord) bool { return rec.ID == id }, "")
}

func (r *appRepo) GetBySlugOrID(ctx context.Context, slugOrID string) (*repository.App, error) {
	r.conn.mu.RLock()
	defer r.conn.mu.RUnlock()
	app, err := r.getLocked(func(rec appRecord) bool { return rec.Slug == slugOrID }, "")
	if err == nil {
		return app, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}
	return r.getLocked(func(rec appRecord) bool { return rec.ID == slugOrID }, "")
}

func (r *appRepo) getLocked(match func(appRecord) bool, viewerID string) (*repository.App, error) {
	recs, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if match(rec) {
			return r.decorate(rec.toDomain(), viewerID)
		}
	}
	return nil, repository.ErrNotFound
}

func (r *appRepo) List(ctx context.Context, opts repository.ListAppsOptions) ([]*repository.App, error) {
	r.conn.mu.RLock()
	defer r.conn.mu.RUnlock()

	recs, err := r.load()
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(opts.Search))
	apps := make([]*repository.App, 0, len(recs))
	for _, rec := range recs {
		// drafts y archivadas sólo las ve su dueño
		if rec.Status != string(repository.AppStatusPublished) && rec.OwnerID != opts.ViewerID {
			continue
		}
		if opts.OwnerOnly && rec.OwnerID != opts.ViewerID {
			continue
		}
		if search != "" && !matchesSearch(rec, search) {
			continue
		}
		app, err := r.decorate(rec.toDomain(), opts.ViewerID)
		if err != nil {
			return nil, err
		}
		if opts.Starred && !app.IsStarred {
			continue
		}
		apps = append(apps, app)
	}

	switch opts.SortBy {
	case "name":
		sort.Slice(apps, func(i, j int) bool {
			return strings.ToLower(apps[i].Name) < strings.ToLower(apps[j].Name)
		})
	default: // "recent"
		sort.Slice(apps, func(i, j int) bool {
			return apps[i].UpdatedAt.After(apps[j].UpdatedAt)
		})
	}
	return apps, nil
}

func matchesSearch(rec appRecord, search string) bool {
	if strings.Contains(strings.ToLower(rec.Name), search) ||
		strings.Contains(strings.ToLower(rec.Description), search) {
		return true
	}
	for _, tag := range rec.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

func (r *appRepo) Update(ctx context.Context, id string, input repository.UpdateAppInput) (*repository.App, error) {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	recs, err := r.load()
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, rec := range recs {
		if rec.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, repository.ErrNotFound
	}

	rec := &recs[idx]
	if input.Name != nil {
		rec.Name = *input.Name
	}
	if input.Description != nil {
		rec.Description = *input.Description
	}
	if input.Status != nil {
		rec.Status = string(*input.Status)
		// primera publicación fija PublishedAt; después no se pisa
		if *input.Status == repository.AppStatusPublished && rec.PublishedAt == nil {
			now := time.Now().UTC()
			rec.PublishedAt = &now
		}
	}
	if input.Tags != nil {
		rec.Tags = append([]string(nil), (*input.Tags)...)
	}
	if input.AccessType != nil {
		if !input.AccessType.Valid() {
			return nil, fmt.Errorf("%w: unknown access type %q", repository.ErrInvalidInput, *input.AccessType)
		}
		rec.AccessType = string(*input.AccessType)
	}
	if input.AccessPassword != nil {
		rec.AccessPass = *input.AccessPassword
	}
	if input.AccessEmails != nil {
		rec.AccessMails = append([]string(nil), (*input.AccessEmails)...)
	}
	if input.AccessDomain != nil {
		rec.AccessDom = *input.AccessDomain
	}
	rec.UpdatedAt = time.Now().UTC()

	if err := r.save(recs); err != nil {
		return nil, err
	}
	return r.decorate(rec.toDomain(), "")
}

func (r *appRepo) Delete(ctx context.Context, id string) error {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	recs, err := r.load()
	if err != nil {
		return err
	}
	kept := recs[:0]
	found := false
	for _, rec := range recs {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return repository.ErrNotFound
	}
	if err := r.save(kept); err != nil {
		return err
	}
	// stars y access log de la app se van con ella
	_ = deleteStarsByApp(r.conn, id)
	_ = deleteAccessLogByApp(r.conn, id)
	return nil
}

// decorate completa los campos joined (owner email, stars) leyendo las
// otras colecciones. Se llama con el lock de la conexión ya tomado.
func (r *appRepo) decorate(app *repository.App, viewerID string) (*repository.App, error) {
	var users []userRecord
	if err := loadYAML(r.conn.usersFile(), &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == app.OwnerID {
			app.OwnerEmail = u.Email
			break
		}
	}

	var stars []starRecord
	if err := loadYAML(r.conn.starsFile(), &stars); err != nil {
		return nil, err
	}
	for _, s := range stars {
		if s.AppID != app.ID {
			continue
		}
		app.StarCount++
		if viewerID != "" && s.UserID == viewerID {
			app.IsStarred = true
		}
	}
	return app, nil
}
