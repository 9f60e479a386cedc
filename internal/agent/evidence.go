package agent

import (
	"strings"

	"github.com/rahul/agentic/internal/tools"
)

// DefaultEvidenceLines is how many trailing lines of each stream the planner sees.
const DefaultEvidenceLines = 40

// ExtractEvidence joins the last maxLines lines of stdout and of stderr,
// stdout first, and trims surrounding whitespace.
func ExtractEvidence(res tools.Result, maxLines int) string {
	if maxLines <= 0 {
		maxLines = DefaultEvidenceLines
	}
	return strings.TrimSpace(tail(res.Stdout, maxLines) + "\n" + tail(res.Stderr, maxLines))
}

func tail(s string, n int) string {
	lines := splitLines(s)
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
