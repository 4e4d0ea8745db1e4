package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunEvalPrintsNothingOnSuccess(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-e", "1 + 1"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
	}
}

func TestRunEvalReportsScriptError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-e", `throw "boom"`}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "boom") {
		t.Fatalf("stderr = %q, want it to mention the thrown value", stderr.String())
	}
}

func TestRunMissingScriptPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "usage:") {
		t.Fatalf("stderr = %q, want usage message", stderr.String())
	}
}

func TestRunVersionFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-v"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), "glint") {
		t.Fatalf("stdout = %q, want version string", stdout.String())
	}
}
