package trail

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/okontny/kindling/internal/models"
	"github.com/okontny/kindling/internal/store"
)

type failingLogStore struct {
	calls int
}

func (f *failingLogStore) Append(ctx context.Context, ideaID, message string) error {
	f.calls++
	return errors.New("disk full")
}

func (f *failingLogStore) ListAll(ctx context.Context) ([]models.LogEntry, error) {
	return nil, nil
}

func TestRecordAppendsEntry(t *testing.T) {
	stores, err := store.Open(context.Background(), store.Options{Driver: "sqlite", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to open stores: %v", err)
	}
	t.Cleanup(func() { stores.Close() })

	rec := NewRecorder(stores.Logs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec.Record(context.Background(), "idea-1", "processing as research")

	entries, err := stores.Logs.ListAll(context.Background())
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].IdeaID != "idea-1" || entries[0].Message != "processing as research" {
		t.Errorf("Unexpected entry: %+v", entries[0])
	}
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	logs := &failingLogStore{}
	rec := NewRecorder(logs, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Must not panic or surface the error; the trail is diagnostic only.
	rec.Record(context.Background(), "idea-1", "something happened")

	if logs.calls != 1 {
		t.Errorf("Expected 1 append attempt, got %d", logs.calls)
	}
}
