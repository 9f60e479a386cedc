// Package rag indexes workspace files into line-window chunks and answers
// similarity queries over them.
package rag

import (
	"path/filepath"
	"strings"
)

// DefaultChunkLines is the window size used when indexing.
const DefaultChunkLines = 200

// Chunk is a contiguous line range of one file. Lines are 1-based and inclusive.
type Chunk struct {
	Path      string
	StartLine int
	EndLine   int
	Language  string
	Text      string
}

// ChunkText splits text into windows of maxLines lines.
func ChunkText(path, text string, maxLines int) []Chunk {
	if maxLines <= 0 {
		maxLines = DefaultChunkLines
	}
	lines := splitLines(text)
	lang := Language(path)

	var chunks []Chunk
	for i := 0; i < len(lines); i += maxLines {
		end := min(i+maxLines, len(lines))
		chunks = append(chunks, Chunk{
			Path:      path,
			StartLine: i + 1,
			EndLine:   end,
			Language:  lang,
			Text:      strings.Join(lines[i:end], "\n"),
		})
	}
	return chunks
}

// Language is the file extension without the dot, or "text".
func Language(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "text"
	}
	return strings.TrimPrefix(ext, ".")
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
