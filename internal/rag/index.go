package rag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/rahul/agentic/internal/fsutil"
)

const collectionName = "workspace"

// Stats summarizes a rebuild.
type Stats struct {
	IndexedFiles int `json:"indexed_files"`
	Chunks       int `json:"chunks"`
}

// Hit is one query result.
type Hit struct {
	Path      string  `json:"path"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Score     float32 `json:"score"`
	Snippet   string  `json:"snippet"`
}

// Index is a persistent chunk index backed by chromem-go.
type Index struct {
	mu         sync.Mutex
	db         *chromem.DB
	chunkLines int
	logger     *zap.Logger
}

// Open loads or creates the index stored under dir.
func Open(dir string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory %s: %w", dir, err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", dir, err)
	}
	return &Index{db: db, chunkLines: DefaultChunkLines, logger: logger.Named("rag")}, nil
}

// Rebuild replaces the whole index with the UTF-8 files under root that
// pass the include/exclude globs. Files that are not valid UTF-8 are skipped.
func (x *Index) Rebuild(ctx context.Context, root string, include, exclude []string) (Stats, error) {
	filter, err := fsutil.NewFilter(include, exclude)
	if err != nil {
		return Stats{}, err
	}

	var (
		stats Stats
		docs  []chromem.Document
	)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || !filter.Match(rel) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil || !utf8.Valid(data) {
			return nil
		}
		stats.IndexedFiles++
		for _, c := range ChunkText(path, string(data), x.chunkLines) {
			stats.Chunks++
			// A chunk without tokens scores 0 against every query, and the
			// store cannot normalize a zero vector, so it is counted but not stored.
			vec := Embed(c.Text)
			if IsZero(vec) {
				continue
			}
			docs = append(docs, chromem.Document{
				ID:      path + ":" + strconv.Itoa(c.StartLine),
				Content: c.Text,
				Metadata: map[string]string{
					"path":       c.Path,
					"start_line": strconv.Itoa(c.StartLine),
					"end_line":   strconv.Itoa(c.EndLine),
					"language":   c.Language,
				},
				Embedding: vec,
			})
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("walking %s: %w", root, err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.db.DeleteCollection(collectionName); err != nil {
		return Stats{}, fmt.Errorf("clearing index: %w", err)
	}
	col, err := x.db.GetOrCreateCollection(collectionName, nil, EmbeddingFunc)
	if err != nil {
		return Stats{}, fmt.Errorf("creating collection: %w", err)
	}
	if len(docs) > 0 {
		if err := col.AddDocuments(ctx, docs, 1); err != nil {
			return Stats{}, fmt.Errorf("adding documents: %w", err)
		}
	}

	x.logger.Info("index rebuilt", zap.String("root", root), zap.Int("files", stats.IndexedFiles), zap.Int("chunks", stats.Chunks))
	return stats, nil
}

// Query returns up to topK chunks ranked by cosine similarity to query.
// An empty or missing index, or a query without tokens, yields no hits.
func (x *Index) Query(ctx context.Context, query string, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, errors.New("top_k must be positive")
	}

	hits := []Hit{}
	if len(Tokenize(query)) == 0 {
		return hits, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	col := x.db.GetCollection(collectionName, EmbeddingFunc)
	if col == nil {
		return hits, nil
	}
	n := min(topK, col.Count())
	if n == 0 {
		return hits, nil
	}

	results, err := col.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	for _, r := range results {
		start, _ := strconv.Atoi(r.Metadata["start_line"])
		end, _ := strconv.Atoi(r.Metadata["end_line"])
		hits = append(hits, Hit{
			Path:      r.Metadata["path"],
			StartLine: start,
			EndLine:   end,
			Score:     r.Similarity,
			Snippet:   r.Content,
		})
	}
	return hits, nil
}
