package tools

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/rahul/agentic/internal/rag"
)

// Kind enumerates the closed set of tools a plan may invoke.
type Kind int

const (
	KindListTree Kind = iota + 1
	KindReadFile
	KindWriteFile
	KindApplyPatch
	KindRunCmd
	KindGitDiff
	KindRagRebuild
	KindRagQuery
)

var kindNames = map[Kind]string{
	KindListTree:   "list_tree",
	KindReadFile:   "read_file",
	KindWriteFile:  "write_file",
	KindApplyPatch: "apply_patch",
	KindRunCmd:     "run_cmd",
	KindGitDiff:    "git_diff",
	KindRagRebuild: "rag_rebuild",
	KindRagQuery:   "rag_query",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a wire name to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, &UnknownToolError{Name: name}
}

// Kinds returns every tool kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(kindNames))
	for k := range kindNames {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// UnknownToolError is returned when a plan names a tool outside the closed set.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// Output is the JSON-shaped payload a tool returns.
type Output map[string]any

// Args is implemented by every typed argument struct.
type Args interface {
	Kind() Kind
}

// Tool defines the interface for all agent capabilities.
type Tool interface {
	Kind() Kind
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	Execute(ctx context.Context, args Args) (Output, error)
}

// Guard is the sandbox policy every tool funnels through.
type Guard interface {
	CheckPath(path string) error
	CheckCommand(cmd string) error
}

// Index is the retrieval subsystem behind the rag tools.
type Index interface {
	Rebuild(ctx context.Context, root string, include, exclude []string) (rag.Stats, error)
	Query(ctx context.Context, query string, topK int) ([]rag.Hit, error)
}

// Deps are the collaborators the built-in tools need.
type Deps struct {
	Guard          Guard
	Runner         *Runner
	Index          Index
	WorkspaceRoot  string
	ToolTimeoutSec int
	Logger         *zap.Logger
}

// Registry is the fixed dispatch table from Kind to Tool.
type Registry struct {
	tools  map[Kind]Tool
	logger *zap.Logger
}

// NewRegistry builds the registry with every built-in tool wired to deps.
func NewRegistry(deps Deps) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.ToolTimeoutSec
	if timeout <= 0 {
		timeout = DefaultToolTimeoutSec
	}

	r := &Registry{tools: make(map[Kind]Tool, len(kindNames)), logger: logger.Named("tools")}
	r.add(NewListTreeTool(deps.Guard))
	r.add(NewReadFileTool(deps.Guard))
	r.add(NewWriteFileTool(deps.Guard))
	r.add(NewApplyPatchTool(deps.Guard))
	r.add(NewRunCmdTool(deps.Guard, deps.Runner, deps.WorkspaceRoot, timeout))
	r.add(NewGitDiffTool(deps.Guard, deps.WorkspaceRoot))
	r.add(NewRagRebuildTool(deps.Guard, deps.Index))
	r.add(NewRagQueryTool(deps.Index))
	return r
}

func (r *Registry) add(t Tool) {
	r.tools[t.Kind()] = t
}

// Get returns the tool for kind, or nil.
func (r *Registry) Get(kind Kind) Tool {
	return r.tools[kind]
}

// Resolve maps a tool name to its handler.
func (r *Registry) Resolve(name string) (Tool, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	t, ok := r.tools[kind]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return t, nil
}

// Tools returns all registered tools in Kind order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, k := range Kinds() {
		if t, ok := r.tools[k]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Call is a tool bound to validated arguments.
type Call struct {
	Tool Tool
	Args Args
}

// Bind resolves name and decodes raw into the tool's argument type.
func (r *Registry) Bind(name string, raw map[string]any) (*Call, error) {
	t, err := r.Resolve(name)
	if err != nil {
		r.logger.Warn("unknown tool requested", zap.String("tool", name))
		return nil, err
	}
	args, err := DecodeArgs(t.Kind(), raw)
	if err != nil {
		r.logger.Warn("tool arguments rejected", zap.String("tool", name), zap.Error(err))
		return nil, err
	}
	return &Call{Tool: t, Args: args}, nil
}

// Invoke executes the bound call.
func (c *Call) Invoke(ctx context.Context) (Output, error) {
	return c.Tool.Execute(ctx, c.Args)
}

func mismatchedArgs(kind Kind, args Args) error {
	got := "nil"
	if args != nil {
		got = args.Kind().String()
	}
	return &SchemaError{Tool: kind.String(), Err: fmt.Errorf("got arguments for %s", got)}
}
