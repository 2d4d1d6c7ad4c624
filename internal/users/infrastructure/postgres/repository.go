package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	users "equipment-api/internal/users/domain"
)

const defaultUserTable = "users"

// UserRepository is a Postgres implementation for user accounts.
type UserRepository struct {
	db    *sql.DB
	table string
}

// NewUserRepository constructs a repository with the default table name.
func NewUserRepository(db *sql.DB, opts ...RepositoryOption) *UserRepository {
	repo := &UserRepository{db: db, table: defaultUserTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*UserRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *UserRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Create stores a new user and assigns its ID.
func (r *UserRepository) Create(ctx context.Context, user *users.User) error {
	if r == nil || r.db == nil {
		return errors.New("user repo: nil db")
	}
	if user == nil {
		return errors.New("user repo: nil user")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (email, pwd, fullname, activated)
VALUES ($1, $2, $3, $4)
RETURNING id`, r.table)

	return r.db.QueryRowContext(ctx, query, user.Email, user.PasswordHash, user.FullName, user.Activated).Scan(&user.ID)
}

// FindActiveByEmail returns the activated user with the given email, or nil
// when there is none.
func (r *UserRepository) FindActiveByEmail(ctx context.Context, email string) (*users.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, email, pwd, fullname, activated
FROM %s
WHERE email = $1 AND activated`, r.table)

	var user users.User
	err := r.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Activated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
