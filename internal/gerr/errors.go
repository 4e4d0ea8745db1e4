package gerr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Family distinguishes the three error families from the language spec:
// lexer/parser, compiler, and runtime.
type Family string

const (
	FamilyLex     Family = "lex"
	FamilyParse   Family = "parse"
	FamilyCompile Family = "compile"
	FamilyRuntime Family = "runtime"
)

// Kind enumerates the sub-classification within a Family.
type Kind string

const (
	// Lex/parse kinds.
	KindInternal           Kind = "InternalError"
	KindExpectedIndent     Kind = "ExpectedIndentation"
	KindSyntax             Kind = "SyntaxError"
	KindStringFormat       Kind = "StringFormatError"
	// Compile kinds.
	KindFrameOverflow      Kind = "StackOverflow"
	KindEmptyRegisterStack Kind = "EmptyRegisterStack"
	KindUncommittedLocal   Kind = "UncommittedRegister"
	KindInvalidAST         Kind = "InvalidAst"
	KindFeatureMisuse      Kind = "FeatureMisuse"
	// Runtime kinds.
	KindStringError  Kind = "StringError"
	KindThrown       Kind = "KotoError"
	KindTimeout      Kind = "Timeout"
	KindUnexpected   Kind = "UnexpectedType"
	KindInvalidBinOp Kind = "InvalidBinaryOp"
	KindBaseCycle    Kind = "BaseCycle"
	KindInternalVM   Kind = "InternalError"
	// Module loader kinds (spec §4.7): distinguished so an embedder can
	// tell "no such module" apart from "found it, couldn't read it" or
	// "found it, it doesn't compile" (the last surfaces as whatever
	// Kind the failed compile itself produced, wrapped rather than
	// reclassified).
	KindModuleNotFound  Kind = "UnableToFindModule"
	KindModuleReadError Kind = "ModuleReadError"
)

// TraceFrame records one call-stack frame unwound while an error
// propagated, matching spec §7's "(chunk, instruction) appended to trace".
type TraceFrame struct {
	ChunkPath string
	Span      Span
	Source    string // the single source line the span starts on, if known
}

// Error is the single error type produced by the lexer, parser, compiler
// and VM. ExpectedIndentation is semantically distinguished so an
// interactive front-end can use it as a signal to request a continuation
// line (spec §4.2, §7).
type Error struct {
	Family  Family
	Kind    Kind
	Message string
	Span    Span
	Trace   []TraceFrame

	// Value holds the thrown script value for KindThrown errors, stored
	// as an opaque fmt.Stringer so this package doesn't depend on value.
	Value fmt.Stringer
}

func New(family Family, kind Kind, span Span, format string, args ...any) *Error {
	return &Error{Family: family, Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s at %s", e.Kind, e.Message, e.Span.Start)
	for i := len(e.Trace) - 1; i >= 0; i-- {
		t := e.Trace[i]
		fmt.Fprintf(&b, "\n  at %s:%s", t.ChunkPath, t.Span.Start)
	}
	return b.String()
}

// IsExpectedIndentation reports whether err is the special
// "expected indentation" parse error (spec §4.2).
func IsExpectedIndentation(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindExpectedIndent
	}
	return false
}

// WithTraceFrame appends a trace frame as a frame unwinds, used by the VM
// as it pops call frames while an error propagates (spec §7).
func (e *Error) WithTraceFrame(chunkPath string, span Span, source string) *Error {
	e.Trace = append(e.Trace, TraceFrame{ChunkPath: chunkPath, Span: span, Source: source})
	return e
}

// Render formats the error the way the embedder displays unhandled
// errors: path:line:col, a source excerpt, and a caret under the
// offending column, optionally in color. This mirrors the teacher's
// SentraError.Error() rendering, generalized from a point to a Span and
// driven off the accumulated Trace rather than a flat CallStack.
func (e *Error) Render(path string, source string, color bool) string {
	var b strings.Builder

	headline := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if color {
		headline = "\x1b[1;31m" + headline + "\x1b[0m"
	}
	fmt.Fprintf(&b, "%s\n  --> %s:%s\n", headline, path, e.Span.Start)

	if line := sourceLine(source, e.Span.Start.Line); line != "" {
		fmt.Fprintf(&b, "%5d | %s\n", e.Span.Start.Line+1, line)
		caret := strings.Repeat(" ", e.Span.Start.Column) + "^"
		if color {
			caret = "\x1b[1;31m" + caret + "\x1b[0m"
		}
		fmt.Fprintf(&b, "      | %s\n", caret)
	}

	for i := len(e.Trace) - 1; i >= 0; i-- {
		t := e.Trace[i]
		fmt.Fprintf(&b, "  at %s:%s\n", t.ChunkPath, t.Span.Start)
		if t.Source != "" {
			fmt.Fprintf(&b, "      | %s\n", t.Source)
		}
	}
	return b.String()
}

func sourceLine(source string, line int) string {
	lines := strings.Split(source, "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	return lines[line]
}
