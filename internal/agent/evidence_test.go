package agent

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rahul/agentic/internal/tools"
)

func TestExtractEvidence(t *testing.T) {
	var out strings.Builder
	for i := 1; i <= 50; i++ {
		fmt.Fprintf(&out, "line %d\n", i)
	}
	got := ExtractEvidence(tools.Result{Stdout: out.String(), Stderr: "boom\n"}, 3)
	want := "line 48\nline 49\nline 50\nboom"
	if got != want {
		t.Errorf("ExtractEvidence() = %q, want %q", got, want)
	}
}

func TestExtractEvidence_Empty(t *testing.T) {
	if got := ExtractEvidence(tools.Result{}, 40); got != "" {
		t.Errorf("ExtractEvidence() = %q, want empty", got)
	}
	if got := ExtractEvidence(tools.Result{Stderr: "timeout"}, 40); got != "timeout" {
		t.Errorf("ExtractEvidence() = %q, want %q", got, "timeout")
	}
}
