package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glint-lang/glint/internal/compiler"
	"github.com/glint-lang/glint/internal/value"
)

func writeModule(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
}

func TestResolveDirectFile(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "greet.glint", "\"hi\"\n")

	l := New(dir, compiler.Settings{}, nil, nil)
	chunk, path, fromCache, err := l.CompileModule("greet")
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}
	if chunk == nil {
		t.Fatal("expected a compiled chunk")
	}
	if fromCache {
		t.Fatal("first compile should not report fromCache")
	}
	want := filepath.Join(dir, "greet.glint")
	if resolved, _ := filepath.EvalSymlinks(want); resolved != "" {
		want = resolved
	}
	if abs, _ := filepath.Abs(want); abs != path {
		t.Fatalf("path = %q, want %q", path, abs)
	}
}

func TestResolveNestedMainFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "pkg")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeModule(t, sub, "main.glint", "42\n")

	l := New(dir, compiler.Settings{}, nil, nil)
	_, _, _, err := l.CompileModule("pkg")
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}
}

func TestModuleNotFound(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, compiler.Settings{}, nil, nil)
	if _, _, _, err := l.CompileModule("missing"); err == nil {
		t.Fatal("expected an error for a missing module")
	}
}

func TestCompileModuleCachesResult(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "once.glint", "1\n")

	l := New(dir, compiler.Settings{}, nil, nil)
	if _, _, fromCache, err := l.CompileModule("once"); err != nil || fromCache {
		t.Fatalf("first call: fromCache=%v err=%v", fromCache, err)
	}
	if _, _, fromCache, err := l.CompileModule("once"); err != nil || !fromCache {
		t.Fatalf("second call: fromCache=%v err=%v", fromCache, err)
	}
}

func TestClearCacheForcesRecompile(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "once.glint", "1\n")

	l := New(dir, compiler.Settings{}, nil, nil)
	if _, _, _, err := l.CompileModule("once"); err != nil {
		t.Fatalf("CompileModule: %v", err)
	}
	l.ClearCache()
	if _, _, fromCache, err := l.CompileModule("once"); err != nil || fromCache {
		t.Fatalf("after ClearCache: fromCache=%v err=%v", fromCache, err)
	}
}

func TestLoadModuleMaterializesExports(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "data.glint", "@value: 7\n")

	l := New(dir, compiler.Settings{ExportTopLevelIDs: true}, nil, nil)
	exports, err := l.LoadModule("data")
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	v, ok := exports.Get(value.NewStrValue("@value"))
	if !ok {
		t.Fatal("expected @value export")
	}
	if v.AsInt() != 7 {
		t.Fatalf("exported value = %v, want 7", v)
	}
}
