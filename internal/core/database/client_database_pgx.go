package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/Alttexta/internal/config"
	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

// NewDatabaseClient opens Postgres through the pgx stdlib driver and bootstraps the schema.
// When SSL_CERT_PATH is set the connection verifies the server against it.
func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

const userColumns = `id, first_name, email, password_hash, role, token_cap, tokens_used, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.Role, &u.TokenCap, &u.TokensUsed, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	var exists bool
	if err := c.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, user.Email).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return core.ConflictError("email already registered", nil)
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, role, token_cap, tokens_used, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`
	return c.db.QueryRowContext(ctx, q,
		user.ID, user.FirstName, user.Email, user.PasswordHash, user.Role, user.TokenCap, user.TokensUsed,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(c.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (c *DatabaseClient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(c.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (c *DatabaseClient) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) exec1(ctx context.Context, what, q string, args ...any) error {
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.NotFoundError(what+" not found", nil)
	}
	return nil
}

func (c *DatabaseClient) UpdateTokenCap(ctx context.Context, id string, tokenCap int64) error {
	return c.exec1(ctx, "user", `UPDATE users SET token_cap = $2, updated_at = now() WHERE id = $1`, id, tokenCap)
}

func (c *DatabaseClient) ResetUsage(ctx context.Context, id string) error {
	return c.exec1(ctx, "user", `UPDATE users SET tokens_used = 0, updated_at = now() WHERE id = $1`, id)
}

func (c *DatabaseClient) DeleteUser(ctx context.Context, id string) error {
	return c.exec1(ctx, "user", `DELETE FROM users WHERE id = $1`, id)
}

// Usage logs

// InsertUsageLog writes the log row and bumps the user's running total in one transaction.
func (c *DatabaseClient) InsertUsageLog(ctx context.Context, entry *models.UsageLog) error {
	if entry == nil {
		return errors.New("nil usage log")
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET tokens_used = tokens_used + $2, updated_at = now() WHERE id = $1`,
		entry.UserID, entry.PromptTokens+entry.ResponseTokens)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return core.NotFoundError("user not found", nil)
	}

	const q = `
		INSERT INTO usage_logs (id, user_id, tool_name, prompt_tokens, response_tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`
	if err := tx.QueryRowContext(ctx, q,
		entry.ID, entry.UserID, entry.ToolName, entry.PromptTokens, entry.ResponseTokens,
	).Scan(&entry.CreatedAt); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListUsageLogs returns the newest logs first; an empty userID lists every user.
func (c *DatabaseClient) ListUsageLogs(ctx context.Context, userID string) ([]models.UsageLog, error) {
	const q = `
		SELECT id, user_id, tool_name, prompt_tokens, response_tokens, created_at
		FROM usage_logs
		WHERE $1 = '' OR user_id::text = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UsageLog
	for rows.Next() {
		var l models.UsageLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.ToolName, &l.PromptTokens, &l.ResponseTokens, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Documents

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, user_id, file_name, storage_url, source_url, source_type, content_type, kind, size_bytes, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING created_at
	`
	return c.db.QueryRowContext(ctx, q,
		doc.ID, doc.UserID, doc.FileName, doc.StorageURL, doc.SourceURL, doc.SourceType, doc.ContentType, doc.Kind, doc.SizeBytes,
	).Scan(&doc.CreatedAt)
}

func (c *DatabaseClient) ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error) {
	const q = `
		SELECT id, user_id, file_name, storage_url, source_url, source_type, content_type, kind, size_bytes, created_at
		FROM documents
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.FileName, &d.StorageURL, &d.SourceURL, &d.SourceType, &d.ContentType, &d.Kind, &d.SizeBytes, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, user_id, file_name, storage_url, source_url, source_type, content_type, kind, size_bytes, created_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.UserID, &d.FileName, &d.StorageURL, &d.SourceURL, &d.SourceType, &d.ContentType, &d.Kind, &d.SizeBytes, &d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}
