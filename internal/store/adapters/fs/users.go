package fs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
)

type userRecord struct {
	ID        string     `yaml:"id"`
	Email     string     `yaml:"email"`
	Name      string     `yaml:"name,omitempty"`
	CreatedAt time.Time  `yaml:"created_at"`
	LastLogin *time.Time `yaml:"last_login,omitempty"`
}

func (r userRecord) toDomain() *repository.User {
	return &repository.User{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		LastLogin: r.LastLogin,
	}
}

type userRepo struct{ conn *fsConnection }

func (r *userRepo) GetOrCreateByEmail(ctx context.Context, email, name string) (*repository.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", repository.ErrInvalidInput)
	}

	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	var users []userRecord
	if err := loadYAML(r.conn.usersFile(), &users); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			users[i].LastLogin = &now
			if name != "" && users[i].Name == "" {
				users[i].Name = name
			}
			if err := saveYAML(r.conn.usersFile(), users); err != nil {
				return nil, err
			}
			return users[i].toDomain(), nil
		}
	}

	rec := userRecord{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		CreatedAt: now,
		LastLogin: &now,
	}
	users = append(users, rec)
	if err := saveYAML(r.conn.usersFile(), users); err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	r.conn.mu.RLock()
	defer r.conn.mu.RUnlock()

	var users []userRecord
	if err := loadYAML(r.conn.usersFile(), &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return u.toDomain(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	r.conn.mu.RLock()
	defer r.conn.mu.RUnlock()

	var users []userRecord
	if err := loadYAML(r.conn.usersFile(), &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u.toDomain(), nil
		}
	}
	return nil, repository.ErrNotFound
}
