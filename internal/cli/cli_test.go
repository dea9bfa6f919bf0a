package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/visstudy/pkg/study"
)

// run executes the root command with args and an isolated cache.
func run(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestGenerateDefaultExperiment(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "generated")
	if err := run(t, "generate", "--init", "--dir", dir, "--points", "50"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	req := study.DefaultRequest()
	req.NumPoints = 50
	for _, rel := range []string{study.DataPath(req), study.SpecPath(req), study.PagePath(req)} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}

	// the default run cleans first, so repeating it succeeds
	if err := run(t, "generate", "--dir", dir, "--points", "50"); err != nil {
		t.Fatalf("second generate: %v", err)
	}
	// without cleaning the page already exists
	if err := run(t, "generate", "--dir", dir, "--points", "50", "--clean=false"); err == nil {
		t.Fatal("expected a conflict without --clean")
	}
}

func TestGenerateRequiresInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	if err := run(t, "generate", "--dir", dir); err == nil {
		t.Fatal("expected an error for an uninitialized output tree")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("generate must not create %s", dir)
	}
}

func TestGeneratePlan(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	plan := filepath.Join(t.TempDir(), "study.toml")
	src := `title = "Renderer study"

[defaults]
points = 20
categories = 3
attributes = 0

[[experiment]]
name = "small_csv"
format = "csv"

[[experiment]]
name = "small_json"
format = "json"
renderer = "svg"
`
	if err := os.WriteFile(plan, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := run(t, "generate", "--init", "--dir", dir, "--plan", plan, "--index", "--workers", "2", "--seed", "7"); err != nil {
		t.Fatalf("generate --plan: %v", err)
	}

	index, err := os.ReadFile(filepath.Join(dir, study.IndexFile))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	for _, want := range []string{"Renderer study", "small_csv_points-20", "small_json_points-20"} {
		if !bytes.Contains(index, []byte(want)) {
			t.Errorf("index missing %q", want)
		}
	}
}

func TestGeneratePlanRejectsRequestFlags(t *testing.T) {
	err := run(t, "generate", "--plan", "study.toml", "--points", "5")
	if err == nil || !strings.Contains(err.Error(), "--points") {
		t.Fatalf("err = %v, want --points conflict", err)
	}
}

func TestGenerateRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	if err := run(t, "generate", "--init", "--dir", dir, "--format", "xml"); err == nil {
		t.Fatal("expected invalid format error")
	}
}

func TestInitIndexClean(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tree")
	if err := run(t, "init", "--dir", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := run(t, "generate", "--dir", dir, "--points", "5", "--format", "json"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := run(t, "index", "--dir", dir, "--title", "Demo"); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := run(t, "index", "--dir", dir); err == nil {
		t.Fatal("second index without --force should fail")
	}
	if err := run(t, "index", "--dir", dir, "--force", "--description", "Some *notes*"); err != nil {
		t.Fatalf("index --force: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, study.IndexFile))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(b, []byte("<em>notes</em>")) {
		t.Error("description should be rendered as Markdown")
	}

	if err := run(t, "clean", "--dir", dir); err != nil {
		t.Fatalf("clean: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			t.Errorf("clean left %s", e.Name())
		}
	}
}

func TestServerURL(t *testing.T) {
	tests := map[string]string{
		":8080":          "http://localhost:8080",
		"127.0.0.1:9000": "http://127.0.0.1:9000",
	}
	for addr, want := range tests {
		if got := serverURL(addr); got != want {
			t.Errorf("serverURL(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			var buf bytes.Buffer
			root := New(io.Discard, log.InfoLevel).RootCommand()
			root.SetArgs([]string{"completion", shell})
			root.SetOut(&buf)
			root.SetErr(io.Discard)
			if err := root.Execute(); err != nil {
				t.Fatalf("completion %s: %v", shell, err)
			}
			if !strings.Contains(buf.String(), "visstudy") {
				t.Errorf("completion %s does not mention visstudy", shell)
			}
		})
	}

	root := New(io.Discard, log.InfoLevel).RootCommand()
	root.SetArgs([]string{"completion", "tcsh"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err == nil {
		t.Error("completion accepted an unknown shell")
	}
}
