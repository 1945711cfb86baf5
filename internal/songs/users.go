package songs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UpsertUser creates or refreshes a requester record.
func (s *Store) UpsertUser(ctx context.Context, user User) error {
	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		return errors.New("user id is required")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO users (id, display_name, color, created_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             display_name = excluded.display_name,
             color = excluded.color`,
		user.ID,
		nullableString(user.DisplayName),
		nullableString(user.Color),
		user.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUser fetches a user by identifier. Returns nil when absent.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, color, created_at FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns all known users ordered by display name.
func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, color, created_at FROM users ORDER BY display_name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user rows: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user record. Songs keep their denormalized user
// columns so history stays readable.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func scanUser(row rowScanner) (*User, error) {
	var (
		user        User
		displayName sql.NullString
		color       sql.NullString
		createdAt   string
	)
	if err := row.Scan(&user.ID, &displayName, &color, &createdAt); err != nil {
		return nil, err
	}
	user.DisplayName = displayName.String
	user.Color = color.String
	user.CreatedAt = parseTimeString(createdAt)
	return &user, nil
}
