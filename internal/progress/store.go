// Package progress persists per-user daily aggregates and session artworks
// to PostgreSQL.
package progress

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Daily is one user's aggregate record for a calendar day.
type Daily struct {
	UserID        string    `json:"user_id"`
	Day           time.Time `json:"day"`
	SessionCount  int       `json:"session_count"`
	WordsImproved int       `json:"words_improved"`
	AvgConfidence float64   `json:"avg_confidence"`
}

// Artwork is a persisted end-of-session theme artwork.
type Artwork struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	ImageURL  string    `json:"image_url"`
	Theme     string    `json:"theme"`
	Emotions  []string  `json:"emotions"`
	Colors    []string  `json:"colors"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists progress data to PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to the progress database at connStr and applies migrations.
func Open(connStr string) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("progress open: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("progress ping: %w", err)
	}
	if err = migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("progress migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return err
	}

	var current int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`)
	if err = row.Scan(&current); err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for i := current + 1; i < len(entries); i++ {
		data, readErr := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if readErr != nil {
			return fmt.Errorf("read migration %d: %w", i, readErr)
		}
		if _, execErr := db.Exec(string(data)); execErr != nil {
			return fmt.Errorf("migration %d: %w", i, execErr)
		}
		if _, execErr := db.Exec(`INSERT INTO schema_version (version) VALUES ($1)`, i); execErr != nil {
			return fmt.Errorf("migration %d record: %w", i, execErr)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertDaily folds one ended session into the user's record for the day:
// session count +1, words improved accumulated, and the running average
// confidence recomputed as (existing + new) / 2.
func (s *Store) UpsertDaily(ctx context.Context, userID string, day time.Time, wordsImproved int, confidence float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_progress (user_id, day, session_count, words_improved, avg_confidence, updated_at)
		VALUES ($1, $2, 1, $3, $4, $5)
		ON CONFLICT (user_id, day) DO UPDATE SET
			session_count  = daily_progress.session_count + 1,
			words_improved = daily_progress.words_improved + EXCLUDED.words_improved,
			avg_confidence = (daily_progress.avg_confidence + EXCLUDED.avg_confidence) / 2,
			updated_at     = EXCLUDED.updated_at`,
		userID, day.UTC().Truncate(24*time.Hour), wordsImproved, confidence, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert daily progress: %w", err)
	}
	return nil
}

// ListDaily returns the user's most recent daily records, newest first.
func (s *Store) ListDaily(ctx context.Context, userID string, limit int) ([]Daily, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, day, session_count, words_improved, avg_confidence
		FROM daily_progress WHERE user_id = $1
		ORDER BY day DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list daily progress: %w", err)
	}
	defer rows.Close()

	var out []Daily
	for rows.Next() {
		var d Daily
		if err = rows.Scan(&d.UserID, &d.Day, &d.SessionCount, &d.WordsImproved, &d.AvgConfidence); err != nil {
			return nil, fmt.Errorf("scan daily progress: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveArtwork persists a generated theme artwork.
func (s *Store) SaveArtwork(ctx context.Context, a *Artwork) error {
	emotions, err := encodeList(a.Emotions)
	if err != nil {
		return err
	}
	colors, err := encodeList(a.Colors)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artworks (id, user_id, session_id, image_url, theme, emotions, colors, prompt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.UserID, a.SessionID, a.ImageURL, a.Theme, emotions, colors, a.Prompt, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save artwork: %w", err)
	}
	return nil
}
