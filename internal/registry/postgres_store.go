package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/autonome/autonome/internal/logger"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// PostgresStore keeps users in the registered_users table
type PostgresStore struct {
	conn *sql.DB
}

// NewPostgresStore connects, pings and creates the table if needed
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{conn: conn}
	if err := store.initTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	logger.InfoMsg("Database connection established successfully")
	return store, nil
}

func (s *PostgresStore) initTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS registered_users (
		id UUID PRIMARY KEY,
		full_name VARCHAR(255) NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		telegram_username VARCHAR(255) NOT NULL,
		monitoring BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_registered_users_telegram ON registered_users(telegram_username);
	`

	_, err := s.conn.Exec(query)
	return err
}

func (s *PostgresStore) Register(ctx context.Context, reg Registration) (*User, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	hash, err := hashPassword(reg.Password)
	if err != nil {
		return nil, err
	}

	query := `
	INSERT INTO registered_users (id, full_name, email, password_hash, telegram_username, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, full_name, email, telegram_username, monitoring, created_at
	`

	user := &User{}
	err = s.conn.QueryRowContext(ctx, query,
		uuid.NewString(), reg.FullName, reg.Email, hash, reg.TelegramUsername, time.Now().UTC(),
	).Scan(&user.ID, &user.FullName, &user.Email, &user.TelegramUsername, &user.Monitoring, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("Registered user", map[string]interface{}{
		"user_id":           user.ID,
		"telegram_username": user.TelegramUsername,
	})
	return user, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]User, error) {
	query := `
	SELECT id, full_name, email, telegram_username, monitoring, created_at
	FROM registered_users
	ORDER BY created_at
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.FullName, &u.Email, &u.TelegramUsername, &u.Monitoring, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) StartMonitoring(ctx context.Context, telegramUsername string) (*User, error) {
	query := `
	UPDATE registered_users SET monitoring = TRUE
	WHERE id = (
		SELECT id FROM registered_users WHERE telegram_username = $1 ORDER BY created_at LIMIT 1
	)
	RETURNING id, full_name, email, telegram_username, monitoring, created_at
	`

	user := &User{}
	err := s.conn.QueryRowContext(ctx, query, NormalizeUsername(telegramUsername)).Scan(
		&user.ID, &user.FullName, &user.Email, &user.TelegramUsername, &user.Monitoring, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start monitoring: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) IsMonitoring(ctx context.Context, telegramUsername string) (bool, error) {
	query := `
	SELECT EXISTS (
		SELECT 1 FROM registered_users WHERE telegram_username = $1 AND monitoring
	)
	`

	var monitoring bool
	if err := s.conn.QueryRowContext(ctx, query, NormalizeUsername(telegramUsername)).Scan(&monitoring); err != nil {
		return false, fmt.Errorf("failed to check monitoring: %w", err)
	}
	return monitoring, nil
}

func (s *PostgresStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
