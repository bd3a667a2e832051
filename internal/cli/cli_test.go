package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"triage 1.2.3", "abc123", "2026-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output %q is missing %q", out, want)
		}
	}
}

func TestLoadTasks(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name        string
		file        string
		title       string
		description string
		wantTasks   int
		wantErr     bool
	}{
		{
			name:        "single ticket from flags",
			title:       "Cannot log in",
			description: "The password reset link never arrives.",
			wantTasks:   1,
		},
		{
			name:        "single ticket too short",
			title:       "Hi",
			description: "help",
			wantErr:     true,
		},
		{
			name: "file with two tickets",
			file: write("ok.yaml", `
tickets:
  - id: T-1
    title: Cannot log in
    description: The password reset link never arrives.
  - title: VPN keeps dropping
    description: My VPN disconnects every few minutes since yesterday.
`),
			wantTasks: 2,
		},
		{
			name:    "empty file",
			file:    write("empty.yaml", "tickets: []\n"),
			wantErr: true,
		},
		{
			name: "invalid ticket in file",
			file: write("bad.yaml", `
tickets:
  - title: ok title here
    description: short
`),
			wantErr: true,
		},
		{
			name:    "missing file",
			file:    filepath.Join(dir, "missing.yaml"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processFile, processTitle, processDescription = tt.file, tt.title, tt.description
			t.Cleanup(func() { processFile, processTitle, processDescription = "", "", "" })

			tasks, err := loadTasks()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("loadTasks() = %v, want error", tasks)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadTasks() error = %v", err)
			}
			if len(tasks) != tt.wantTasks {
				t.Fatalf("loadTasks() returned %d tasks, want %d", len(tasks), tt.wantTasks)
			}
			for i, task := range tasks {
				if task.TicketID == "" {
					t.Errorf("task %d has no ticket id", i)
				}
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("abcdefghij", 4); got != "abcd..." {
		t.Errorf("truncate() = %q, want abcd...", got)
	}
}
