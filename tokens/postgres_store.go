package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store with PostgreSQL persistence. The state
// flips run as single UPDATE statements guarded on the previous state, so
// the row count tells us whether our compare-and-swap won.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore creates a new PostgreSQL-backed token store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS survey_tokens (
		token_value VARCHAR(64) PRIMARY KEY,
		campaign_id VARCHAR(50) NOT NULL,
		recipient VARCHAR(255) NOT NULL,
		batch_id VARCHAR(36) NOT NULL,
		used BOOLEAN NOT NULL DEFAULT FALSE,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		used_at TIMESTAMP WITH TIME ZONE,
		completed_at TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_tokens_campaign ON survey_tokens(campaign_id);
	CREATE INDEX IF NOT EXISTS idx_tokens_batch ON survey_tokens(batch_id);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Insert persists a freshly minted token.
func (s *PostgresStore) Insert(ctx context.Context, t *Token) error {
	query := `
	INSERT INTO survey_tokens (token_value, campaign_id, recipient, batch_id, used, completed, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		t.Value, t.CampaignID, t.Recipient, t.BatchID, t.Used, t.Completed, t.CreatedAt)
	return err
}

// Get retrieves a token by value.
func (s *PostgresStore) Get(ctx context.Context, value string) (*Token, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token_value, campaign_id, recipient, batch_id, used, completed,
		       created_at, used_at, completed_at
		FROM survey_tokens WHERE token_value = $1
	`, value)

	var (
		t                   Token
		usedAt, completedAt sql.NullTime
	)
	err := row.Scan(&t.Value, &t.CampaignID, &t.Recipient, &t.BatchID,
		&t.Used, &t.Completed, &t.CreatedAt, &usedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning token: %w", err)
	}
	if usedAt.Valid {
		t.UsedAt = usedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = completedAt.Time
	}
	return &t, nil
}

// MarkUsed atomically flips unused -> used. The WHERE clause on the
// previous state is the compare-and-swap: when two requests race, exactly
// one UPDATE reports an affected row.
func (s *PostgresStore) MarkUsed(ctx context.Context, value string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE survey_tokens SET used = TRUE, used_at = NOW()
		WHERE token_value = $1 AND used = FALSE
	`, value)
	if err != nil {
		return fmt.Errorf("marking token used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	return s.spentError(ctx, value)
}

// MarkCompleted atomically flips used -> completed.
func (s *PostgresStore) MarkCompleted(ctx context.Context, value string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE survey_tokens SET completed = TRUE, completed_at = NOW()
		WHERE token_value = $1 AND used = TRUE AND completed = FALSE
	`, value)
	if err != nil {
		return fmt.Errorf("marking token completed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	t, err := s.Get(ctx, value)
	if err != nil {
		return err
	}
	if t.Completed {
		return ErrTokenAlreadyCompleted
	}
	return ErrTokenNotUsed
}

func (s *PostgresStore) spentError(ctx context.Context, value string) error {
	t, err := s.Get(ctx, value)
	if err != nil {
		return err
	}
	if t.Completed {
		return ErrTokenAlreadyCompleted
	}
	return ErrTokenAlreadyUsed
}

// Delete permanently removes a token.
func (s *PostgresStore) Delete(ctx context.Context, value string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM survey_tokens WHERE token_value = $1`, value)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// ListByCampaign retrieves all tokens issued for a campaign.
func (s *PostgresStore) ListByCampaign(ctx context.Context, campaignID string) ([]*Token, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token_value, campaign_id, recipient, batch_id, used, completed,
		       created_at, used_at, completed_at
		FROM survey_tokens WHERE campaign_id = $1 ORDER BY created_at
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Token
	for rows.Next() {
		var (
			t                   Token
			usedAt, completedAt sql.NullTime
		)
		if err := rows.Scan(&t.Value, &t.CampaignID, &t.Recipient, &t.BatchID,
			&t.Used, &t.Completed, &t.CreatedAt, &usedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if usedAt.Valid {
			t.UsedAt = usedAt.Time
		}
		if completedAt.Valid {
			t.CompletedAt = completedAt.Time
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
