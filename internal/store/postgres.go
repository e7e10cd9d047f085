package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okontny/kindling/internal/models"
)

func openPostgresStores(ctx context.Context, dsn string) (*Stores, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required for the postgres driver")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Stores{
		Ideas:     &postgresIdeas{pool: pool},
		Artifacts: &postgresArtifacts{pool: pool},
		Logs:      &postgresLogs{pool: pool},
		closeFn: func() error {
			pool.Close()
			return nil
		},
		pingFn: pool.Ping,
	}, nil
}

func migratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	// The list columns carry the same JSON serialization as the sqlite
	// backend, so rows are portable between drivers.
	schema := `
	CREATE TABLE IF NOT EXISTS ideas (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		context_refs TEXT,
		status TEXT NOT NULL DEFAULT 'queued',
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ideas_status ON ideas(status);

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
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_idea_id ON artifacts(idea_id);

	CREATE TABLE IF NOT EXISTS logs (
		id TEXT PRIMARY KEY,
		idea_id TEXT,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_logs_idea_id ON logs(idea_id);
	`
	_, err := pool.Exec(ctx, schema)
	return err
}

// --- Idea Store ---

type postgresIdeas struct {
	pool *pgxpool.Pool
}

var _ IdeaStore = (*postgresIdeas)(nil)

func (s *postgresIdeas) Insert(ctx context.Context, text, contextRefs string) (*models.Idea, error) {
	idea := &models.Idea{
		ID:          uuid.New().String(),
		Text:        text,
		ContextRefs: contextRefs,
		Status:      models.IdeaStatusQueued,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ideas (id, text, context_refs, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		idea.ID, idea.Text, idea.ContextRefs, string(idea.Status), idea.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert idea: %w", err)
	}
	return idea, nil
}

func (s *postgresIdeas) Get(ctx context.Context, id string) (*models.Idea, error) {
	idea := &models.Idea{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, text, COALESCE(context_refs, ''), status, created_at FROM ideas WHERE id = $1`,
		id,
	).Scan(&idea.ID, &idea.Text, &idea.ContextRefs, &idea.Status, &idea.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query idea: %w", err)
	}
	return idea, nil
}

func (s *postgresIdeas) ListAll(ctx context.Context) ([]models.Idea, error) {
	return s.list(ctx, "")
}

func (s *postgresIdeas) ListByStatus(ctx context.Context, status models.IdeaStatus) ([]models.Idea, error) {
	return s.list(ctx, status)
}

func (s *postgresIdeas) list(ctx context.Context, status models.IdeaStatus) ([]models.Idea, error) {
	query := `SELECT id, text, COALESCE(context_refs, ''), status, created_at FROM ideas`
	var args []interface{}

	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ideas: %w", err)
	}
	defer rows.Close()

	var ideas []models.Idea
	for rows.Next() {
		var idea models.Idea
		if err := rows.Scan(&idea.ID, &idea.Text, &idea.ContextRefs, &idea.Status, &idea.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

func (s *postgresIdeas) UpdateStatus(ctx context.Context, id string, status models.IdeaStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ideas SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update idea status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIdeaNotFound
	}
	return nil
}

func (s *postgresIdeas) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ideas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete idea: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIdeaNotFound
	}
	return nil
}

// --- Artifact Store ---

type postgresArtifacts struct {
	pool *pgxpool.Pool
}

var _ ArtifactStore = (*postgresArtifacts)(nil)

func (s *postgresArtifacts) Insert(ctx context.Context, draft ArtifactDraft) (*models.Artifact, error) {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO artifacts (id, idea_id, project_type, title, body, category_tags, next_actions, next_reading, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		artifact.ID, artifact.IdeaID, string(artifact.Type), artifact.Title, artifact.Body,
		string(tagsJSON), string(actionsJSON), string(readingJSON), artifact.Status, artifact.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}
	return artifact, nil
}

func (s *postgresArtifacts) Get(ctx context.Context, id string) (*models.Artifact, error) {
	artifact := &models.Artifact{}
	var tagsJSON, actionsJSON, readingJSON string

	err := s.pool.QueryRow(ctx,
		`SELECT id, idea_id, project_type, title, body, COALESCE(category_tags, ''), COALESCE(next_actions, ''), COALESCE(next_reading, ''), status, created_at
		 FROM artifacts WHERE id = $1`,
		id,
	).Scan(&artifact.ID, &artifact.IdeaID, &artifact.Type, &artifact.Title, &artifact.Body,
		&tagsJSON, &actionsJSON, &readingJSON, &artifact.Status, &artifact.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query artifact: %w", err)
	}

	scanArtifactJSON(artifact, tagsJSON, actionsJSON, readingJSON)
	return artifact, nil
}

func (s *postgresArtifacts) ListAll(ctx context.Context) ([]models.Artifact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, idea_id, project_type, title, body, COALESCE(category_tags, ''), COALESCE(next_actions, ''), COALESCE(next_reading, ''), status, created_at
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

func (s *postgresArtifacts) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM artifacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrArtifactNotFound
	}
	return nil
}

// --- Log Store ---

type postgresLogs struct {
	pool *pgxpool.Pool
}

var _ LogStore = (*postgresLogs)(nil)

func (s *postgresLogs) Append(ctx context.Context, ideaID, message string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO logs (id, idea_id, message, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), ideaID, message, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func (s *postgresLogs) ListAll(ctx context.Context) ([]models.LogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, COALESCE(idea_id, ''), message, created_at FROM logs ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query log entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var entry models.LogEntry
		if err := rows.Scan(&entry.ID, &entry.IdeaID, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
