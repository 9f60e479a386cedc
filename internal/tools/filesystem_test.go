package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/agentic/internal/governance"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func entryPaths(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

func TestListTree_DepthAndGlobs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.py":           "print(1)\n",
		"README.md":         "# x\n",
		"src/calc.py":       "def add(a, b): return a + b\n",
		"src/deep/inner.py": "x = 1\n",
		".git/HEAD":         "ref\n",
	})
	ctx := context.Background()

	entries, err := ListTree(ctx, root, 0, nil, DefaultExcludeGlob)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.py", "README.md"}, entryPaths(entries))

	entries, err = ListTree(ctx, root, 1, []string{"**/*.py"}, DefaultExcludeGlob)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.py", "src/calc.py"}, entryPaths(entries))

	entries, err = ListTree(ctx, root, 10, nil, DefaultExcludeGlob)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.py", "README.md", "src/calc.py", "src/deep/inner.py"}, entryPaths(entries))

	for _, e := range entries {
		assert.Equal(t, "file", e.Type)
		assert.Positive(t, e.Size)
	}
}

func TestListTreeTool_PathDenied(t *testing.T) {
	r := newTestRegistry(t, t.TempDir())
	call, err := r.Bind("list_tree", map[string]any{"root": "/etc"})
	require.NoError(t, err)
	_, err = call.Invoke(context.Background())
	assert.True(t, errors.Is(err, governance.ErrPolicyViolation))
}

func TestReadFileTool_Truncates(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"big.txt": strings.Repeat("a", 100)})
	r := newTestRegistry(t, root)

	call, err := r.Bind("read_file", map[string]any{"path": filepath.Join(root, "big.txt"), "max_bytes": 10})
	require.NoError(t, err)
	out, err := call.Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 10), out["content"])
	assert.Equal(t, true, out["truncated"])

	call, err = r.Bind("read_file", map[string]any{"path": filepath.Join(root, "big.txt"), "max_bytes": 100})
	require.NoError(t, err)
	out, err = call.Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, false, out["truncated"])
}

func TestReadFileTool_InvalidUTF8(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"bin": string([]byte{'o', 'k', 0xff})})
	r := newTestRegistry(t, root)

	out, err := r.Get(KindReadFile).Execute(context.Background(), ReadFileArgs{Path: filepath.Join(root, "bin"), MaxBytes: 16})
	require.NoError(t, err)
	assert.Equal(t, "ok\uFFFD", out["content"])
}

func TestWriteFileTool_DeniedOutsideRoots(t *testing.T) {
	r := newTestRegistry(t, t.TempDir())
	outside := filepath.Join(t.TempDir(), "escape.txt")

	_, err := r.Get(KindWriteFile).Execute(context.Background(), WriteFileArgs{Path: outside, Content: "x"})
	var denied *governance.PathDeniedError
	require.True(t, errors.As(err, &denied))
	_, statErr := os.Stat(outside)
	assert.True(t, os.IsNotExist(statErr))
}
