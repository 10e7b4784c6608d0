package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PutUser creates or replaces the password hash for name.
func (s *Store) PutUser(ctx context.Context, name, passwordHash string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("user name is required")
	}
	if passwordHash == "" {
		return errors.New("password hash is required")
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.execWithRetry(ctx,
		`INSERT INTO users (name, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET password_hash = excluded.password_hash, updated_at = excluded.updated_at`,
		name, passwordHash, now, now,
	)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// PasswordHash returns the stored hash for name. Unknown users report false.
func (s *Store) PasswordHash(ctx context.Context, name string) (string, bool, error) {
	var hash string
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT password_hash FROM users WHERE name = ?`, strings.TrimSpace(name),
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup user: %w", err)
	}
	return hash, true, nil
}

// Users lists every account ordered by name.
func (s *Store) Users(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT name, password_hash, created_at, updated_at FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var (
			user       User
			createdRaw string
			updatedRaw string
		)
		if err := rows.Scan(&user.Name, &user.PasswordHash, &createdRaw, &updatedRaw); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user.CreatedAt, _ = parseTimeString(createdRaw)
		user.UpdatedAt, _ = parseTimeString(updatedRaw)
		users = append(users, user)
	}
	return users, rows.Err()
}

// RemoveUser deletes name and reports whether it existed.
func (s *Store) RemoveUser(ctx context.Context, name string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM users WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return false, fmt.Errorf("remove user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove user: %w", err)
	}
	return n > 0, nil
}
