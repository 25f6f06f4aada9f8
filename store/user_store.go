package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"portfolio/api/config"
	"portfolio/api/models"
)

type UserStore struct {
	db     *sql.DB
	driver string
}

// NewUserStore creates a UserStore. Queries are written with $N placeholders
// and rewritten for SQLite.
func NewUserStore(db *sql.DB, driver string) *UserStore {
	return &UserStore{db: db, driver: driver}
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

func (s *UserStore) rebind(query string) string {
	if s.driver == config.DriverSQLite {
		return placeholderRe.ReplaceAllString(query, "?$1")
	}
	return query
}

// CreateUser inserts a new user into the database.
func (s *UserStore) CreateUser(ctx context.Context, email string, hashedPassword []byte, isAdmin bool) (*models.User, error) {
	now := time.Now().UTC()
	user := &models.User{
		Email:          email,
		HashedPassword: hashedPassword,
		IsAdmin:        isAdmin,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	query := s.rebind(`
		INSERT INTO users (email, hashed_password, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id;
	`)
	err := s.db.QueryRowContext(ctx, query, email, hashedPassword, isAdmin, now, now).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user with email '%s': %w", email, ErrUserExists)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created", "id", user.ID, "email", user.Email, "admin", user.IsAdmin)
	return user, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := s.rebind(`
		SELECT id, email, hashed_password, is_admin, created_at, updated_at
		FROM users
		WHERE email = $1;
	`)
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email '%s': %w", email, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// CountAdmins returns the number of admin accounts.
func (s *UserStore) CountAdmins(ctx context.Context) (int, error) {
	var n int
	query := s.rebind(`SELECT COUNT(*) FROM users WHERE is_admin = $1;`)
	if err := s.db.QueryRowContext(ctx, query, true).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// EnsureAdmin creates an admin account with the given credentials when no admin
// exists yet. It reports whether an account was created.
func (s *UserStore) EnsureAdmin(ctx context.Context, email string, hashedPassword []byte) (bool, error) {
	n, err := s.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, email, hashedPassword, true); err != nil {
		return false, fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	return true, nil
}
