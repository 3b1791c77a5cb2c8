package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeMain(t *testing.T, src string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "main.py")
	if err := os.WriteFile(file, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, file
}

func runTool(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunJSONSummary(t *testing.T) {
	dir, file := writeMain(t, "x = chr(ord('a'))\n")
	config := filepath.Join(dir, "none.json")

	code, stdout, stderr := runTool(t, "-config", config, "-json", "-dump", file)
	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr)
	}

	dump, summary, ok := strings.Cut(stdout, "{")
	if !ok {
		t.Fatalf("no JSON in output:\n%s", stdout)
	}
	if !strings.Contains(dump, "x = 'a'") {
		t.Errorf("dump = %q", dump)
	}

	var report struct {
		Rounds          int      `json:"rounds"`
		LanguageVersion string   `json:"language_version"`
		Modules         []string `json:"modules"`
		Passes          []struct {
			Pass            string `json:"pass"`
			ConstantsFolded int    `json:"constants_folded"`
		} `json:"passes"`
	}
	if err := json.Unmarshal([]byte("{"+summary), &report); err != nil {
		t.Fatalf("invalid JSON summary: %v\n%s", err, summary)
	}
	if report.Rounds != 2 || report.LanguageVersion != "2.7.0" || len(report.Modules) != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Passes) != 3 || report.Passes[1].Pass != "PrecomputeBuiltins" || report.Passes[1].ConstantsFolded != 2 {
		t.Errorf("passes = %+v", report.Passes)
	}
}

func TestRunFlagsOverrideConfig(t *testing.T) {
	dir, file := writeMain(t, "x = chr(300)\n")
	config := filepath.Join(dir, "treeopt.json")
	if err := os.WriteFile(config, []byte(`{"language_version": "2.7", "max_rounds": 8}`), 0o644); err != nil {
		t.Fatal(err)
	}

	// chr(300) only folds when characters go beyond one byte.
	code, stdout, _ := runTool(t, "-config", config, "-dump", file)
	if code != 0 || !strings.Contains(stdout, "x = builtin_chr(300)") {
		t.Errorf("2.7: exit %d\n%s", code, stdout)
	}

	code, stdout, _ = runTool(t, "-config", config, "-dump", "-language", "3.8", file)
	if code != 0 || !strings.Contains(stdout, `x = '\xc4\xac'`) {
		t.Errorf("3.8: exit %d\n%s", code, stdout)
	}
}

func TestRunErrors(t *testing.T) {
	dir, file := writeMain(t, "x = a + 1\n")
	config := filepath.Join(dir, "none.json")

	tests := []struct {
		name   string
		args   []string
		code   int
		stderr string
	}{
		{"no main module", []string{"-config", config}, 2, "exactly one main module"},
		{"unknown flag", []string{"-bogus", file}, 2, "flag provided but not defined"},
		{"syntax error", []string{"-config", config, file}, 1, "INVALID_SYNTAX"},
		{"syntax excerpt", []string{"-config", config, file}, 1, "x = a + 1\n      ^"},
		{"missing file", []string{"-config", config, filepath.Join(dir, "gone.py")}, 1, "failed to read module"},
		{"bad language", []string{"-config", config, "-language", "x.y", file}, 1, "language_version"},
		{"negative rounds", []string{"-config", config, "-max-rounds", "-1", file}, 1, "max_rounds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runTool(t, tt.args...)
			if code != tt.code {
				t.Errorf("exit code = %d, want %d", code, tt.code)
			}
			if !strings.Contains(stderr, tt.stderr) {
				t.Errorf("stderr does not mention %q:\n%s", tt.stderr, stderr)
			}
		})
	}
}

func TestRunVersionAndHelp(t *testing.T) {
	code, stdout, _ := runTool(t, "-version")
	if code != 0 || !strings.HasPrefix(stdout, "treeopt v") {
		t.Errorf("-version: exit %d, output %q", code, stdout)
	}

	code, stdout, _ = runTool(t, "-help")
	if code != 0 || !strings.Contains(stdout, "USAGE:") || !strings.Contains(stdout, "-follow-stdlib") {
		t.Errorf("-help: exit %d, output %q", code, stdout)
	}
}

func TestRunWatchStopsOnCancel(t *testing.T) {
	dir, file := writeMain(t, "x = 1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"-config", filepath.Join(dir, "none.json"), "-watch", file}, &stdout, &stderr)
	if code == 0 {
		t.Errorf("a cancelled run reported success; stderr:\n%s", stderr.String())
	}
}
