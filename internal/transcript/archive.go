// Package transcript archives closed interview sessions in SQLite.
package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/conversation"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/session"
)

var ErrNotFound = errors.New("transcript not found")

const (
	// fixed width so stored timestamps sort lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

	defaultListLimit = 50
	maxListLimit     = 500
)

// Summary is one row of the archive listing.
type Summary struct {
	ID           string        `json:"id"`
	Technologies []string      `json:"technologies"`
	Level        session.Level `json:"level"`
	Messages     int           `json:"messages"`
	CreatedAt    time.Time     `json:"created_at"`
	ClosedAt     time.Time     `json:"closed_at"`
}

// Archive is a SQLite-backed store of session transcripts.
type Archive struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the archive database at path.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("archive: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: init schema: %w", err)
	}

	return &Archive{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions (
		id           TEXT PRIMARY KEY,
		technologies TEXT NOT NULL,
		level        TEXT NOT NULL,
		stage        TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		closed_at    TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (session_id, position)
	);`)
	return err
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Save stores t, replacing any earlier copy with the same ID.
func (a *Archive) Save(ctx context.Context, t session.Transcript) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stage, _ := t.Stage.MarshalText()
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, technologies, level, stage, created_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, strings.Join(t.Config.Technologies, ","), string(t.Config.Level), string(stage),
		formatTime(t.CreatedAt), formatTime(a.now()),
	); err != nil {
		return fmt.Errorf("archive: save session %s: %w", t.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, t.ID); err != nil {
		return fmt.Errorf("archive: clear messages %s: %w", t.ID, err)
	}

	for i, msg := range t.Messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, position, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			t.ID, i, string(msg.Role), msg.Content, formatTime(msg.CreatedAt),
		); err != nil {
			return fmt.Errorf("archive: save message %d of %s: %w", i, t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// Load returns the archived transcript with the given ID.
func (a *Archive) Load(ctx context.Context, id string) (*session.Transcript, error) {
	var (
		techs, level, stage, created string
		t                            session.Transcript
	)
	err := a.db.QueryRowContext(ctx,
		`SELECT id, technologies, level, stage, created_at FROM sessions WHERE id = ?`, id,
	).Scan(&t.ID, &techs, &level, &stage, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("archive: load %s: %w", id, err)
	}

	t.Config = session.Config{Technologies: splitTechnologies(techs), Level: session.Level(level)}
	if err := t.Stage.UnmarshalText([]byte(stage)); err != nil {
		return nil, fmt.Errorf("archive: load %s: %w", id, err)
	}
	t.CreatedAt = parseTime(created)

	rows, err := a.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM messages WHERE session_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("archive: load messages %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var role, content, at string
		if err := rows.Scan(&role, &content, &at); err != nil {
			return nil, fmt.Errorf("archive: scan message: %w", err)
		}
		t.Messages = append(t.Messages, conversation.Message{
			Role:      conversation.Role(role),
			Content:   content,
			CreatedAt: parseTime(at),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: load messages %s: %w", id, err)
	}

	return &t, nil
}

// List returns the most recently closed sessions first.
func (a *Archive) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT s.id, s.technologies, s.level, s.created_at, s.closed_at,
		        (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		 FROM sessions s ORDER BY s.closed_at DESC, s.id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			s                             Summary
			techs, level, created, closed string
		)
		if err := rows.Scan(&s.ID, &techs, &level, &created, &closed, &s.Messages); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		s.Technologies = splitTechnologies(techs)
		s.Level = session.Level(level)
		s.CreatedAt = parseTime(created)
		s.ClosedAt = parseTime(closed)
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func splitTechnologies(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
