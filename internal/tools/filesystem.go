package tools

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rahul/agentic/internal/fsutil"
)

// Entry is one file reported by list_tree.
type Entry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// ListTreeTool walks a directory and reports regular files.
type ListTreeTool struct {
	guard Guard
}

func NewListTreeTool(guard Guard) *ListTreeTool {
	return &ListTreeTool{guard: guard}
}

func (t *ListTreeTool) Kind() Kind { return KindListTree }

func (t *ListTreeTool) Name() string { return KindListTree.String() }

func (t *ListTreeTool) Description() string {
	return "List files under a directory, filtered by include/exclude globs and bounded by depth."
}

func (t *ListTreeTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"root":         map[string]any{"type": "string", "description": "Directory to walk"},
			"max_depth":    map[string]any{"type": "integer", "description": fmt.Sprintf("Directory levels below root to descend (default %d)", DefaultMaxDepth)},
			"include_glob": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"exclude_glob": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"root"},
	}
}

func (t *ListTreeTool) Execute(ctx context.Context, args Args) (Output, error) {
	a, ok := args.(ListTreeArgs)
	if !ok {
		return nil, mismatchedArgs(KindListTree, args)
	}
	if err := t.guard.CheckPath(a.Root); err != nil {
		return nil, err
	}
	entries, err := ListTree(ctx, a.Root, a.MaxDepth, a.IncludeGlob, a.ExcludeGlob)
	if err != nil {
		return nil, err
	}
	return Output{"entries": entries}, nil
}

// ListTree returns the regular files under root whose relative path passes
// the glob filter. Files directly in root are depth 0; maxDepth bounds how
// many directory levels below root are descended.
func ListTree(ctx context.Context, root string, maxDepth int, include, exclude []string) ([]Entry, error) {
	filter, err := fsutil.NewFilter(include, exclude)
	if err != nil {
		return nil, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	entries := []Entry{}
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == absRoot {
				return walkErr
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && strings.Count(filepath.ToSlash(rel), "/")+1 > maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !filter.Match(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, Entry{Path: filepath.ToSlash(rel), Type: "file", Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tree %s: %w", root, err)
	}
	return entries, nil
}

// ReadFileTool reads a bounded prefix of a file.
type ReadFileTool struct {
	guard Guard
}

func NewReadFileTool(guard Guard) *ReadFileTool {
	return &ReadFileTool{guard: guard}
}

func (t *ReadFileTool) Kind() Kind { return KindReadFile }

func (t *ReadFileTool) Name() string { return KindReadFile.String() }

func (t *ReadFileTool) Description() string {
	return "Read up to max_bytes of a file as UTF-8 text."
}

func (t *ReadFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":      map[string]any{"type": "string", "description": "Absolute file path"},
			"max_bytes": map[string]any{"type": "integer", "description": fmt.Sprintf("Byte limit (default %d)", DefaultMaxBytes)},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args Args) (Output, error) {
	a, ok := args.(ReadFileArgs)
	if !ok {
		return nil, mismatchedArgs(KindReadFile, args)
	}
	if err := t.guard.CheckPath(a.Path); err != nil {
		return nil, err
	}

	f, err := os.Open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	buf, err := io.ReadAll(io.LimitReader(f, int64(a.MaxBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	truncated := len(buf) > a.MaxBytes
	if truncated {
		buf = buf[:a.MaxBytes]
	}
	return Output{
		"path":      a.Path,
		"content":   toValidUTF8(buf),
		"truncated": truncated,
	}, nil
}

// toValidUTF8 decodes b, replacing invalid sequences with U+FFFD.
func toValidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// WriteFileTool replaces a file's contents, creating parent directories.
type WriteFileTool struct {
	guard Guard
}

func NewWriteFileTool(guard Guard) *WriteFileTool {
	return &WriteFileTool{guard: guard}
}

func (t *WriteFileTool) Kind() Kind { return KindWriteFile }

func (t *WriteFileTool) Name() string { return KindWriteFile.String() }

func (t *WriteFileTool) Description() string {
	return "Write content to a file, replacing it entirely. Parent directories are created."
}

func (t *WriteFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string", "description": "Absolute file path"},
			"content": map[string]any{"type": "string", "description": "Full file contents"},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args Args) (Output, error) {
	a, ok := args.(WriteFileArgs)
	if !ok {
		return nil, mismatchedArgs(KindWriteFile, args)
	}
	if err := t.guard.CheckPath(a.Path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(a.Path, []byte(a.Content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	return Output{"ok": true}, nil
}
