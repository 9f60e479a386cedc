// Package governance holds the sandbox policy every tool call funnels through.
//
// The policy is a guardrail against accidental destructive commands from a
// cooperating planner. It is not a security boundary: the command check is a
// substring/prefix heuristic and the path check is a plain textual prefix test
// with no canonicalization, so "/workspace/../etc" passes when "/workspace" is
// a configured root. Callers must normalize paths themselves if they need
// containment.
package governance

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrPolicyViolation matches every error produced by the policy checks.
var ErrPolicyViolation = errors.New("policy violation")

// DefaultBlockedKeywords are substrings that hard-block a command.
var DefaultBlockedKeywords = []string{
	"rm -rf /",
	"sudo",
	"chmod 777",
	"curl | sh",
	"mkfs",
	"dd if=",
}

// DefaultAllowedPrefixes are the interpreters and tools a command may start with.
var DefaultAllowedPrefixes = []string{
	"pytest",
	"python",
	"python -m",
	"npm",
	"mvn",
	"gradle",
	"make",
	"go",
	"ls",
	"cat",
	"rg",
	"echo",
	"true",
	"false",
}

// PathDeniedError is returned when a path is outside every configured root.
type PathDeniedError struct {
	Path string
}

func (e *PathDeniedError) Error() string {
	return fmt.Sprintf("access denied for path: %s", e.Path)
}

func (e *PathDeniedError) Unwrap() error { return ErrPolicyViolation }

// CommandBlockedError is returned when a command contains a blocked keyword.
type CommandBlockedError struct {
	Command string
	Keyword string
}

func (e *CommandBlockedError) Error() string {
	return fmt.Sprintf("blocked command (contains %q): %s", e.Keyword, e.Command)
}

func (e *CommandBlockedError) Unwrap() error { return ErrPolicyViolation }

// CommandDisallowedError is returned when a command does not start with an allowed prefix.
type CommandDisallowedError struct {
	Command string
}

func (e *CommandDisallowedError) Error() string {
	return fmt.Sprintf("command not allowed: %s", e.Command)
}

func (e *CommandDisallowedError) Unwrap() error { return ErrPolicyViolation }

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request describes a tool call to be evaluated. Paths and Command are
// optional; empty values are not checked.
type Request struct {
	Tool    string
	Paths   []string
	Command string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// Config configures a Policy. Empty lists fall back to the defaults.
type Config struct {
	WorkspaceRoot   string
	DataRoot        string
	BlockedKeywords []string
	AllowedPrefixes []string
	DeniedTools     []string
}

// Policy validates paths and shell commands.
type Policy struct {
	roots       []string
	blocked     []string
	allowed     []string
	deniedTools map[string]bool
}

// NewPolicy builds a Policy from cfg.
func NewPolicy(cfg Config) *Policy {
	p := &Policy{
		blocked:     lowerAll(cfg.BlockedKeywords),
		allowed:     lowerAll(cfg.AllowedPrefixes),
		deniedTools: make(map[string]bool),
	}
	if len(p.blocked) == 0 {
		p.blocked = DefaultBlockedKeywords
	}
	if len(p.allowed) == 0 {
		p.allowed = DefaultAllowedPrefixes
	}
	for _, root := range []string{cfg.WorkspaceRoot, cfg.DataRoot} {
		if root != "" {
			p.roots = append(p.roots, root)
		}
	}
	for _, name := range cfg.DeniedTools {
		p.deniedTools[name] = true
	}
	return p
}

// Roots returns the configured path prefixes.
func (p *Policy) Roots() []string {
	return append([]string(nil), p.roots...)
}

// CheckPath accepts path iff it is textually prefixed by a configured root.
func (p *Policy) CheckPath(path string) error {
	for _, root := range p.roots {
		if strings.HasPrefix(path, root) {
			return nil
		}
	}
	return &PathDeniedError{Path: path}
}

// CheckCommand rejects blocked keywords first, then anything without an allowed prefix.
func (p *Policy) CheckCommand(cmd string) error {
	lowered := strings.ToLower(cmd)
	for _, kw := range p.blocked {
		if strings.Contains(lowered, kw) {
			return &CommandBlockedError{Command: cmd, Keyword: kw}
		}
	}
	for _, prefix := range p.allowed {
		if strings.HasPrefix(lowered, prefix) {
			return nil
		}
	}
	return &CommandDisallowedError{Command: cmd}
}

// Evaluate runs every applicable check for a tool call and reports the first denial.
func (p *Policy) Evaluate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if p.deniedTools[req.Tool] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("tool '%s' is restricted by system policy", req.Tool),
		}, nil
	}
	for _, path := range req.Paths {
		if err := p.CheckPath(path); err != nil {
			return Result{Effect: EffectDeny, Reason: err.Error()}, nil
		}
	}
	if req.Command != "" {
		if err := p.CheckCommand(req.Command); err != nil {
			return Result{Effect: EffectDeny, Reason: err.Error()}, nil
		}
	}
	return Result{
		Effect: EffectAllow,
		Reason: "approved by default policy",
	}, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
