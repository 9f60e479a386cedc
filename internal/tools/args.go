package tools

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

const (
	// DefaultToolTimeoutSec bounds run_cmd when the step gives no timeout.
	DefaultToolTimeoutSec = 300
	DefaultMaxDepth       = 4
	DefaultMaxBytes       = 64 * 1024
	DefaultTopK           = 8
)

// DefaultExcludeGlob applies to list_tree and rag_rebuild when no exclude list is given.
var DefaultExcludeGlob = []string{"**/.git/**"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// SchemaError reports step arguments that do not match the tool's declared schema.
type SchemaError struct {
	Tool string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

type ListTreeArgs struct {
	Root        string   `json:"root" validate:"required"`
	MaxDepth    int      `json:"max_depth" validate:"gte=0"`
	IncludeGlob []string `json:"include_glob"`
	ExcludeGlob []string `json:"exclude_glob"`
}

func (ListTreeArgs) Kind() Kind { return KindListTree }

type ReadFileArgs struct {
	Path     string `json:"path" validate:"required"`
	MaxBytes int    `json:"max_bytes" validate:"gte=1"`
}

func (ReadFileArgs) Kind() Kind { return KindReadFile }

type WriteFileArgs struct {
	Path    string `json:"path" validate:"required"`
	Content string `json:"content"`
}

func (WriteFileArgs) Kind() Kind { return KindWriteFile }

type ApplyPatchArgs struct {
	Root  string `json:"root" validate:"required"`
	Patch string `json:"patch" validate:"required"`
}

func (ApplyPatchArgs) Kind() Kind { return KindApplyPatch }

type RunCmdArgs struct {
	Cmd        string            `json:"cmd" validate:"required"`
	Cwd        string            `json:"cwd"`
	TimeoutSec int               `json:"timeout_sec" validate:"gte=0"`
	Env        map[string]string `json:"env"`
}

func (RunCmdArgs) Kind() Kind { return KindRunCmd }

type GitDiffArgs struct {
	Cwd string `json:"cwd"`
}

func (GitDiffArgs) Kind() Kind { return KindGitDiff }

type RagRebuildArgs struct {
	Root        string   `json:"root" validate:"required"`
	IncludeGlob []string `json:"include_glob"`
	ExcludeGlob []string `json:"exclude_glob"`
}

func (RagRebuildArgs) Kind() Kind { return KindRagRebuild }

type RagQueryArgs struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k" validate:"gte=1"`
}

func (RagQueryArgs) Kind() Kind { return KindRagQuery }

// DecodeArgs converts a plan step's generic argument map into the typed
// arguments of kind. Unknown keys, mistyped values and missing required
// fields yield a *SchemaError.
func DecodeArgs(kind Kind, raw map[string]any) (Args, error) {
	switch kind {
	case KindListTree:
		a, err := decode(kind, raw, ListTreeArgs{MaxDepth: DefaultMaxDepth})
		if err != nil {
			return nil, err
		}
		if a.ExcludeGlob == nil {
			a.ExcludeGlob = DefaultExcludeGlob
		}
		return a, nil
	case KindReadFile:
		return decode(kind, raw, ReadFileArgs{MaxBytes: DefaultMaxBytes})
	case KindWriteFile:
		return decode(kind, raw, WriteFileArgs{})
	case KindApplyPatch:
		return decode(kind, raw, ApplyPatchArgs{})
	case KindRunCmd:
		return decode(kind, raw, RunCmdArgs{})
	case KindGitDiff:
		return decode(kind, raw, GitDiffArgs{})
	case KindRagRebuild:
		a, err := decode(kind, raw, RagRebuildArgs{})
		if err != nil {
			return nil, err
		}
		if a.ExcludeGlob == nil {
			a.ExcludeGlob = DefaultExcludeGlob
		}
		return a, nil
	case KindRagQuery:
		return decode(kind, raw, RagQueryArgs{TopK: DefaultTopK})
	default:
		return nil, &UnknownToolError{Name: kind.String()}
	}
}

// decode fills a (pre-populated with defaults) from raw.
func decode[T Args](kind Kind, raw map[string]any, a T) (T, error) {
	if err := decodeInto(kind, raw, &a); err != nil {
		var zero T
		return zero, err
	}
	return a, nil
}

func decodeInto(kind Kind, raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return &SchemaError{Tool: kind.String(), Err: err}
	}
	if err := validate.Struct(out); err != nil {
		return &SchemaError{Tool: kind.String(), Err: err}
	}
	return nil
}
