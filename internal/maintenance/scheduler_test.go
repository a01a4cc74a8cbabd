package maintenance

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stellarlinkco/scout/internal/index"
)

type flakyEmbedder struct {
	fail bool
}

func (f *flakyEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.fail {
		return nil, fmt.Errorf("embedder down")
	}
	return []float32{1, 0, 0}, nil
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		vec, err := f.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	store, err := index.Open(filepath.Join(t.TempDir(), "index.db"), &flakyEmbedder{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	s := NewScheduler(store, "not a cron expression")
	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Fatal("expected error for invalid schedule")
	}
}

func TestSchedulerBackfillsPendingRows(t *testing.T) {
	emb := &flakyEmbedder{fail: true}
	store, err := index.Open(filepath.Join(t.TempDir(), "index.db"), emb)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.Add(ctx, index.Document{Title: "doc", Content: "some content"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Pending != 1 {
		t.Fatalf("pending = %d, want 1", stats.Pending)
	}

	emb.fail = false
	s := NewScheduler(store, "@hourly")
	s.runBackfill(ctx)

	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Pending != 0 {
		t.Fatalf("pending = %d after backfill, want 0", stats.Pending)
	}
}
