package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/grandline/internal/store"
)

// ErrAlreadyExists is returned when creating a user whose username is taken.
var ErrAlreadyExists = errors.New("already exists")

// User is an account allowed to mutate the catalog.
type User struct {
	ID           string     `json:"id" yaml:"id"`
	Username     string     `json:"username" yaml:"username"`
	PasswordHash string     `json:"-" yaml:"-"`
	Role         string     `json:"role" yaml:"role"`
	CreatedAt    time.Time  `json:"created_at" yaml:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty" yaml:"last_login,omitempty"`
	Disabled     bool       `json:"disabled" yaml:"disabled"`
}

// UserRepository persists accounts.
type UserRepository interface {
	Get(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	// Create stores user, assigning an ID, creation time and the admin role
	// when those are unset.
	Create(ctx context.Context, user *User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	SetDisabled(ctx context.Context, username string, disabled bool) error
	Count(ctx context.Context) (int, error)
}

var _ UserRepository = (*SQLiteUserRepository)(nil)

// SQLiteUserRepository stores accounts in the users table.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a UserRepository over a migrated database.
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

const selectUser = `SELECT id, username, password_hash, role, created_at, last_login, disabled FROM users`

func (r *SQLiteUserRepository) Get(ctx context.Context, id string) (*User, error) {
	return r.one(ctx, "id", id)
}

func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.one(ctx, "username", username)
}

func (r *SQLiteUserRepository) one(ctx context.Context, column, value string) (*User, error) {
	u, err := readUser(r.db.QueryRowContext(ctx, selectUser+` WHERE `+column+` = ?`, value))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("user by %s: %w", column, err)
	}
	return u, nil
}

func (r *SQLiteUserRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := readUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Role == "" {
		user.Role = "admin"
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at, disabled) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.Role, user.CreatedAt, user.Disabled)
	if store.IsUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create user %q: %w", user.Username, err)
	}
	return nil
}

func (r *SQLiteUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), id)
}

func (r *SQLiteUserRepository) SetDisabled(ctx context.Context, username string, disabled bool) error {
	return r.update(ctx, `UPDATE users SET disabled = ? WHERE username = ?`, disabled, username)
}

// update runs a single-row UPDATE, mapping zero affected rows to ErrNotFound.
func (r *SQLiteUserRepository) update(ctx context.Context, stmt string, args ...any) error {
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func readUser(s RowScanner) (*User, error) {
	var (
		u         User
		lastLogin sql.NullTime
	)
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &lastLogin, &u.Disabled); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}
