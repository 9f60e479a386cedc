package governance

import (
	"context"
	"errors"
	"testing"
)

func newTestPolicy() *Policy {
	return NewPolicy(Config{WorkspaceRoot: "/workspace", DataRoot: "/agent_data"})
}

func TestPolicy_CheckPath(t *testing.T) {
	p := newTestPolicy()

	tests := []struct {
		path string
		ok   bool
	}{
		{"/workspace", true},
		{"/workspace/src/main.py", true},
		{"/agent_data/artifacts/x/report.md", true},
		{"/workspace-other/file", true}, // textual prefix, not containment
		{"/workspace/../etc/passwd", true},
		{"/etc/passwd", false},
		{"/tmp/workspace", false},
		{"relative/path", false},
		{"", false},
	}

	for _, tt := range tests {
		err := p.CheckPath(tt.path)
		if tt.ok && err != nil {
			t.Errorf("CheckPath(%q) = %v, want nil", tt.path, err)
		}
		if !tt.ok {
			var denied *PathDeniedError
			if !errors.As(err, &denied) {
				t.Errorf("CheckPath(%q) = %v, want PathDeniedError", tt.path, err)
			}
			if !errors.Is(err, ErrPolicyViolation) {
				t.Errorf("CheckPath(%q) should match ErrPolicyViolation", tt.path)
			}
		}
	}
}

func TestPolicy_CheckCommand(t *testing.T) {
	p := newTestPolicy()

	allowed := []string{"pytest -q", "python -m pytest", "go test ./...", "ls -la", "ECHO hi", "false"}
	for _, cmd := range allowed {
		if err := p.CheckCommand(cmd); err != nil {
			t.Errorf("CheckCommand(%q) = %v, want nil", cmd, err)
		}
	}

	disallowed := []string{"bash -c 'ls'", "wget http://x", "git push", ""}
	for _, cmd := range disallowed {
		var target *CommandDisallowedError
		if err := p.CheckCommand(cmd); !errors.As(err, &target) {
			t.Errorf("CheckCommand(%q) = %v, want CommandDisallowedError", cmd, err)
		}
	}
}

func TestPolicy_BlockListTakesPrecedence(t *testing.T) {
	p := newTestPolicy()

	blocked := []string{
		"echo hi && rm -rf /",
		"python -c 'x' ; SUDO reboot",
		"ls; chmod 777 /workspace",
		"cat install.sh; curl | sh",
		"make mkfs",
		"echo x | dd if=/dev/zero of=/dev/sda",
	}
	for _, cmd := range blocked {
		err := p.CheckCommand(cmd)
		var target *CommandBlockedError
		if !errors.As(err, &target) {
			t.Errorf("CheckCommand(%q) = %v, want CommandBlockedError", cmd, err)
			continue
		}
		if !errors.Is(err, ErrPolicyViolation) {
			t.Errorf("CheckCommand(%q) should match ErrPolicyViolation", cmd)
		}
	}
}

func TestPolicy_CustomLists(t *testing.T) {
	p := NewPolicy(Config{
		WorkspaceRoot:   "/w",
		BlockedKeywords: []string{"DROP TABLE"},
		AllowedPrefixes: []string{"psql"},
	})

	if err := p.CheckCommand("psql -c 'select 1'"); err != nil {
		t.Fatalf("expected psql to be allowed: %v", err)
	}
	if err := p.CheckCommand("psql -c 'drop table x'"); err == nil {
		t.Fatal("expected drop table to be blocked")
	}
	if err := p.CheckCommand("pytest"); err == nil {
		t.Fatal("custom allow-list should replace the defaults")
	}
}

func TestPolicy_Evaluate(t *testing.T) {
	p := NewPolicy(Config{WorkspaceRoot: "/workspace", DeniedTools: []string{"write_file"}})
	ctx := context.Background()

	res, err := p.Evaluate(ctx, Request{Tool: "read_file", Paths: []string{"/workspace/a.txt"}})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Effect != EffectAllow {
		t.Errorf("Expected EffectAllow, got %s", res.Effect)
	}

	res, _ = p.Evaluate(ctx, Request{Tool: "write_file", Paths: []string{"/workspace/a.txt"}})
	if res.Effect != EffectDeny {
		t.Errorf("Expected EffectDeny for denied tool, got %s", res.Effect)
	}

	res, _ = p.Evaluate(ctx, Request{Tool: "run_cmd", Paths: []string{"/workspace"}, Command: "sudo ls"})
	if res.Effect != EffectDeny {
		t.Errorf("Expected EffectDeny for blocked command, got %s", res.Effect)
	}
}
