package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daretna/daretna/internal/models"
	"github.com/daretna/daretna/internal/storage"
)

const userColumns = `id, name, email, phone, role, kind, password_hash,
	on_time, late, total_amount, points, level, badges, created_at, updated_at`

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Level == "" {
		user.Level = models.LevelForPoints(user.Points)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.Phone, user.Role, user.Kind,
		user.PasswordHash, user.History.OnTime, user.History.Late,
		user.History.TotalAmount, user.Points, user.Level,
		strings.Join(user.Badges, ","), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user email %s: %w", user.Email, storage.ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user email %s: %w", email, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetUserByContact retrieves a user whose email or phone matches the identifier.
func (s *SQLiteStore) GetUserByContact(ctx context.Context, identifier string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? OR (phone != '' AND phone = ?)`,
		identifier, identifier)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user contact %s: %w", identifier, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by contact: %w", err)
	}
	return user, nil
}

// UpdateUser overwrites an existing user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, phone = ?, role = ?, kind = ?,
		 password_hash = ?, on_time = ?, late = ?, total_amount = ?,
		 points = ?, level = ?, badges = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name, user.Email, user.Phone, user.Role, user.Kind,
		user.PasswordHash, user.History.OnTime, user.History.Late,
		user.History.TotalAmount, user.Points, user.Level,
		strings.Join(user.Badges, ","), user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", user.ID, storage.ErrNotFound)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	var badges string
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.Phone, &user.Role, &user.Kind,
		&user.PasswordHash, &user.History.OnTime, &user.History.Late,
		&user.History.TotalAmount, &user.Points, &user.Level, &badges,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if badges != "" {
		user.Badges = strings.Split(badges, ",")
	}
	return user, nil
}

// isUniqueViolation reports whether the error is a SQLite UNIQUE constraint
// failure. The pure Go driver does not export a typed error for this.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
