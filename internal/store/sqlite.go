package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/okontny/kindling/internal/models"
)

// openSQLite opens one database file with WAL mode and a single writer, and
// creates the parent directory if needed.
func openSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return db, nil
}

func openSQLiteStores(dataDir string) (*Stores, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data dir is required for the sqlite driver")
	}

	ideas, err := newSQLiteIdeas(filepath.Join(dataDir, "ideas.db"))
	if err != nil {
		return nil, fmt.Errorf("open idea store: %w", err)
	}
	artifacts, err := newSQLiteArtifacts(filepath.Join(dataDir, "artifacts.db"))
	if err != nil {
		ideas.db.Close()
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	logs, err := newSQLiteLogs(filepath.Join(dataDir, "logs.db"))
	if err != nil {
		ideas.db.Close()
		artifacts.db.Close()
		return nil, fmt.Errorf("open log store: %w", err)
	}

	dbs := []*sql.DB{ideas.db, artifacts.db, logs.db}
	return &Stores{
		Ideas:     ideas,
		Artifacts: artifacts,
		Logs:      logs,
		closeFn: func() error {
			var firstErr error
			for _, db := range dbs {
				if err := db.Close(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
		pingFn: func(ctx context.Context) error {
			for _, db := range dbs {
				if err := db.PingContext(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}

// --- Idea Store ---

type sqliteIdeas struct {
	db *sql.DB
}

var _ IdeaStore = (*sqliteIdeas)(nil)

func newSQLiteIdeas(path string) (*sqliteIdeas, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS ideas (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		context_refs TEXT,
		status TEXT NOT NULL DEFAULT 'queued',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ideas_status ON ideas(status);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &sqliteIdeas{db: db}, nil
}

func (s *sqliteIdeas) Insert(ctx context.Context, text, contextRefs string) (*models.Idea, error) {
	idea := &models.Idea{
		ID:          uuid.New().String(),
		Text:        text,
		ContextRefs: contextRefs,
		Status:      models.IdeaStatusQueued,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ideas (id, text, context_refs, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		idea.ID, idea.Text, idea.ContextRefs, idea.Status, idea.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert idea: %w", err)
	}
	return idea, nil
}

func (s *sqliteIdeas) Get(ctx context.Context, id string) (*models.Idea, error) {
	idea := &models.Idea{}
	var refs sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, text, context_refs, status, created_at FROM ideas WHERE id = ?`,
		id,
	).Scan(&idea.ID, &idea.Text, &refs, &idea.Status, &idea.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query idea: %w", err)
	}
	if refs.Valid {
		idea.ContextRefs = refs.String
	}
	return idea, nil
}

func (s *sqliteIdeas) ListAll(ctx context.Context) ([]models.Idea, error) {
	return s.list(ctx, "")
}

func (s *sqliteIdeas) ListByStatus(ctx context.Context, status models.IdeaStatus) ([]models.Idea, error) {
	return s.list(ctx, status)
}

func (s *sqliteIdeas) list(ctx context.Context, status models.IdeaStatus) ([]models.Idea, error) {
	query := `SELECT id, text, context_refs, status, created_at FROM ideas`
	var args []interface{}

	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	// Oldest first: the queue is FIFO.
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ideas: %w", err)
	}
	defer rows.Close()

	var ideas []models.Idea
	for rows.Next() {
		var idea models.Idea
		var refs sql.NullString
		if err := rows.Scan(&idea.ID, &idea.Text, &refs, &idea.Status, &idea.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		if refs.Valid {
			idea.ContextRefs = refs.String
		}
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

func (s *sqliteIdeas) UpdateStatus(ctx context.Context, id string, status models.IdeaStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE ideas SET status = ? WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("update idea status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrIdeaNotFound
	}
	return nil
}

func (s *sqliteIdeas) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ideas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete idea: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrIdeaNotFound
	}
	return nil
}

// --- Artifact Store ---

type sqliteArtifacts struct {
	db *sql.DB
}

var _ ArtifactStore = (*sqliteArtifacts)(nil)

func newSQLiteArtifacts(path string) (*sqliteArtifacts, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		idea_id TEXT NOT NULL,
		project_type TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		category_tags TEXT,
		next_actions TEXT,
		next_reading TEXT,
		status TEXT NOT NULL DEFAULT 'awaiting_review',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_idea_id ON artifacts(idea_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &sqliteArtifacts{db: db}, nil
}

func (s *sqliteArtifacts) Insert(ctx context.Context, draft ArtifactDraft) (*models.Artifact, error) {
	artifact := &models.Artifact{
		ID:           uuid.New().String(),
		IdeaID:       draft.IdeaID,
		Type:         draft.Type,
		Title:        draft.Title,
		Body:         draft.Body,
		CategoryTags: draft.CategoryTags,
		NextActions:  draft.NextActions,
		NextReading:  draft.NextReading,
		Status:       models.ArtifactStatusAwaitingReview,
		CreatedAt:    time.Now().UTC(),
	}

	tagsJSON, _ := json.Marshal(artifact.CategoryTags)
	actionsJSON, _ := json.Marshal(artifact.NextActions)
	readingJSON, _ := json.Marshal(artifact.NextReading)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, idea_id, project_type, title, body, category_tags, next_actions, next_reading, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.ID, artifact.IdeaID, artifact.Type, artifact.Title, artifact.Body,
		string(tagsJSON), string(actionsJSON), string(readingJSON), artifact.Status, artifact.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}
	return artifact, nil
}

func (s *sqliteArtifacts) Get(ctx context.Context, id string) (*models.Artifact, error) {
	artifact := &models.Artifact{}
	var tagsJSON, actionsJSON, readingJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, idea_id, project_type, title, body, category_tags, next_actions, next_reading, status, created_at
		 FROM artifacts WHERE id = ?`,
		id,
	).Scan(&artifact.ID, &artifact.IdeaID, &artifact.Type, &artifact.Title, &artifact.Body,
		&tagsJSON, &actionsJSON, &readingJSON, &artifact.Status, &artifact.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query artifact: %w", err)
	}

	scanArtifactJSON(artifact, tagsJSON, actionsJSON, readingJSON)
	return artifact, nil
}

func (s *sqliteArtifacts) ListAll(ctx context.Context) ([]models.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, idea_id, project_type, title, body, category_tags, next_actions, next_reading, status, created_at
		 FROM artifacts ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []models.Artifact
	for rows.Next() {
		var artifact models.Artifact
		var tagsJSON, actionsJSON, readingJSON string
		if err := rows.Scan(&artifact.ID, &artifact.IdeaID, &artifact.Type, &artifact.Title, &artifact.Body,
			&tagsJSON, &actionsJSON, &readingJSON, &artifact.Status, &artifact.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		scanArtifactJSON(&artifact, tagsJSON, actionsJSON, readingJSON)
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}

func (s *sqliteArtifacts) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrArtifactNotFound
	}
	return nil
}

// scanArtifactJSON decodes the JSON-serialized list columns.
func scanArtifactJSON(artifact *models.Artifact, tagsJSON, actionsJSON, readingJSON string) {
	if tagsJSON != "" {
		json.Unmarshal([]byte(tagsJSON), &artifact.CategoryTags)
	}
	if actionsJSON != "" {
		json.Unmarshal([]byte(actionsJSON), &artifact.NextActions)
	}
	if readingJSON != "" {
		json.Unmarshal([]byte(readingJSON), &artifact.NextReading)
	}
}

// --- Log Store ---

type sqliteLogs struct {
	db *sql.DB
}

var _ LogStore = (*sqliteLogs)(nil)

func newSQLiteLogs(path string) (*sqliteLogs, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS logs (
		id TEXT PRIMARY KEY,
		idea_id TEXT,
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_logs_idea_id ON logs(idea_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &sqliteLogs{db: db}, nil
}

func (s *sqliteLogs) Append(ctx context.Context, ideaID, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (id, idea_id, message, created_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), ideaID, message, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func (s *sqliteLogs) ListAll(ctx context.Context) ([]models.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, idea_id, message, created_at FROM logs ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query log entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var entry models.LogEntry
		var ideaID sql.NullString
		if err := rows.Scan(&entry.ID, &ideaID, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		if ideaID.Valid {
			entry.IdeaID = ideaID.String
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
