package runtime

import (
	"testing"

	"github.com/kr/pretty"
)

func TestCompileAndRunReturnsTopLevelValue(t *testing.T) {
	r := New(DefaultSettings())
	got, err := r.CompileAndRun("1 + 2\n")
	if err != nil {
		t.Fatalf("CompileAndRun: %v", err)
	}
	if got.AsInt() != 3 {
		t.Fatalf("got %v, want 3", got)
	}
}

func TestMainIsAutoInvoked(t *testing.T) {
	r := New(DefaultSettings())
	got, err := r.CompileAndRun("@main: || 42\n")
	if err != nil {
		t.Fatalf("CompileAndRun: %v", err)
	}
	if got.AsInt() != 42 {
		t.Fatalf("got %v, want 42", got)
	}
}

func TestRunTestsReportsFailures(t *testing.T) {
	settings := DefaultSettings()
	settings.RunTests = true
	r := New(settings)

	src := `
@tests: {
  @test_pass: || true,
  @test_fail: || throw "boom",
}
`
	_, err := r.CompileAndRun(src)
	if err == nil {
		t.Fatal("expected a test failure error")
	}
	tf, ok := err.(*TestFailure)
	if !ok {
		t.Fatalf("err = %T, want *TestFailure", err)
	}
	if len(tf.Failures) != 1 || tf.Failures[0].Name != "fail" {
		t.Fatalf("failures:\n%s", pretty.Sprint(tf.Failures))
	}
}

func TestExportsAfterRun(t *testing.T) {
	r := New(DefaultSettings())
	if _, err := r.CompileAndRun("x = 5\n"); err != nil {
		t.Fatalf("CompileAndRun: %v", err)
	}
	exports, err := r.Exports()
	if err != nil {
		t.Fatalf("Exports: %v", err)
	}
	if exports == nil {
		t.Fatal("expected a non-nil exports map")
	}
}

func TestValueToStringRendersNumbers(t *testing.T) {
	r := New(DefaultSettings())
	got, err := r.CompileAndRun("42\n")
	if err != nil {
		t.Fatalf("CompileAndRun: %v", err)
	}
	if s := r.ValueToString(got); s != "42" {
		t.Fatalf("ValueToString = %q, want %q", s, "42")
	}
}
