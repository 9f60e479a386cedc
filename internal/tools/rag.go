package tools

import (
	"context"
	"errors"
	"fmt"
)

var errNoIndex = errors.New("retrieval index is not configured")

// RagRebuildTool reindexes a directory tree.
type RagRebuildTool struct {
	guard Guard
	index Index
}

func NewRagRebuildTool(guard Guard, index Index) *RagRebuildTool {
	return &RagRebuildTool{guard: guard, index: index}
}

func (t *RagRebuildTool) Kind() Kind { return KindRagRebuild }

func (t *RagRebuildTool) Name() string { return KindRagRebuild.String() }

func (t *RagRebuildTool) Description() string {
	return "Rebuild the code search index from files under root."
}

func (t *RagRebuildTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"root":         map[string]any{"type": "string", "description": "Directory to index"},
			"include_glob": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"exclude_glob": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"root"},
	}
}

func (t *RagRebuildTool) Execute(ctx context.Context, args Args) (Output, error) {
	a, ok := args.(RagRebuildArgs)
	if !ok {
		return nil, mismatchedArgs(KindRagRebuild, args)
	}
	if t.index == nil {
		return nil, errNoIndex
	}
	if err := t.guard.CheckPath(a.Root); err != nil {
		return nil, err
	}
	stats, err := t.index.Rebuild(ctx, a.Root, a.IncludeGlob, a.ExcludeGlob)
	if err != nil {
		return nil, fmt.Errorf("rag rebuild: %w", err)
	}
	return Output{"indexed_files": stats.IndexedFiles, "chunks": stats.Chunks}, nil
}

// RagQueryTool searches the index.
type RagQueryTool struct {
	index Index
}

func NewRagQueryTool(index Index) *RagQueryTool {
	return &RagQueryTool{index: index}
}

func (t *RagQueryTool) Kind() Kind { return KindRagQuery }

func (t *RagQueryTool) Name() string { return KindRagQuery.String() }

func (t *RagQueryTool) Description() string {
	return "Search the code index for chunks relevant to a natural language query."
}

func (t *RagQueryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "What to look for"},
			"top_k": map[string]any{"type": "integer", "description": fmt.Sprintf("Maximum hits (default %d)", DefaultTopK)},
		},
		"required": []string{"query"},
	}
}

func (t *RagQueryTool) Execute(ctx context.Context, args Args) (Output, error) {
	a, ok := args.(RagQueryArgs)
	if !ok {
		return nil, mismatchedArgs(KindRagQuery, args)
	}
	if t.index == nil {
		return nil, errNoIndex
	}
	hits, err := t.index.Query(ctx, a.Query, a.TopK)
	if err != nil {
		return nil, fmt.Errorf("rag query: %w", err)
	}
	return Output{"hits": hits}, nil
}
