// Command glint is the reference CLI front-end for internal/runtime
// (spec §6.4): compile and run a script file (or an inline `-e`
// expression), optionally printing its disassembly instead of running
// it, and optionally running its @tests.
//
// Grounded on the teacher's cmd/sentra: kept its manual flag handling
// and plain-text error rendering, generalized from its large
// subcommand/alias dispatcher (run/repl/test/check/lint/fmt/...) down
// to the smaller stdlib-`flag` surface spec §6.4 actually asks for —
// no cobra/kingpin appears anywhere in the retrieved examples for this
// kind of CLI, so the teacher's own unadorned approach, rebuilt on
// flag.NewFlagSet instead of a hand-rolled os.Args switch, is what this
// keeps.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/compiler"
	"github.com/glint-lang/glint/internal/gerr"
	"github.com/glint-lang/glint/internal/loader"
	"github.com/glint-lang/glint/internal/runtime"

	stderrors "github.com/pkg/errors"
)

const version = "glint 0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("glint", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var eval string
	fs.StringVar(&eval, "e", "", "evaluate `script` inline instead of reading a file")
	fs.StringVar(&eval, "eval", "", "evaluate `script` inline instead of reading a file")

	var showInstructions bool
	fs.BoolVar(&showInstructions, "i", false, "print disassembled instructions instead of running")
	fs.BoolVar(&showInstructions, "show_instructions", false, "print disassembled instructions instead of running")

	var showBytecode bool
	fs.BoolVar(&showBytecode, "b", false, "print the disassembled instructions (same listing as -i) instead of running")
	fs.BoolVar(&showBytecode, "show_bytecode", false, "print the disassembled instructions (same listing as -i) instead of running")

	var runTests bool
	fs.BoolVar(&runTests, "t", false, "run @tests after @main")
	fs.BoolVar(&runTests, "tests", false, "run @tests after @main")

	var importTests bool
	fs.BoolVar(&importTests, "T", false, "no effect: @tests on imported modules are not run")
	fs.BoolVar(&importTests, "import_tests", false, "no effect: @tests on imported modules are not run")

	var showVersion bool
	fs.BoolVar(&showVersion, "v", false, "print version and exit")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if showVersion {
		fmt.Fprintln(stdout, version)
		return 0
	}

	rest := fs.Args()
	var (
		source string
		path   string
	)
	switch {
	case eval != "":
		source = eval
		path = "<eval>"
	case len(rest) > 0:
		path = rest[0]
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "glint: %s\n", err)
			return 1
		}
		source = string(raw)
		rest = rest[1:]
	default:
		fmt.Fprintln(stderr, "usage: glint [flags] <script> [args...]")
		fs.PrintDefaults()
		return 1
	}

	color := colorEnabled(stderr)

	rt := runtime.New(runtime.Settings{
		Stdout:      stdout,
		Stderr:      stderr,
		Stdin:       os.Stdin,
		RunTests:    runTests,
		ImportTests: importTests,
	})
	rt.SetArgs(rest)

	if err := rt.Compile(runtime.CompileArgs{Script: source, ScriptPath: path}); err != nil {
		printErr(stderr, path, source, err, color)
		return 1
	}

	if showInstructions || showBytecode {
		return disassemble(stdout, path, source)
	}

	if _, err := rt.Run(); err != nil {
		printErr(stderr, path, source, err, color)
		return 1
	}
	return 0
}

// colorEnabled follows the common NO_COLOR convention and only
// colorizes when stderr is itself a terminal (spec §6.4: color output
// must not corrupt piped/redirected error streams).
func colorEnabled(stderr io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := stderr.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printErr renders err the way an unhandled script error reaches the
// user: a *gerr.Error (possibly wrapped by github.com/pkg/errors as it
// crossed the loader) renders with source context; anything else
// prints as a plain message.
func printErr(stderr io.Writer, path, source string, err error, color bool) {
	var ge *gerr.Error
	if stderrors.As(err, &ge) {
		fmt.Fprint(stderr, ge.Render(path, source, color))
		return
	}
	fmt.Fprintf(stderr, "glint: %s\n", err)
}

// disassemble recompiles source standalone (no module loader needed,
// since disassembly never executes Import) and prints its instruction
// stream, one mnemonic per line (spec §6.4's -i/-b flags).
func disassemble(stdout io.Writer, path, source string) int {
	chunk, err := loader.CompileScript(source, path, compiler.Settings{ExportTopLevelIDs: true})
	if err != nil {
		fmt.Fprintf(stdout, "glint: %s\n", err)
		return 1
	}
	err = chunk.Decode(func(offset int, op bytecode.Op, operands []byte) error {
		fmt.Fprintf(stdout, "%6d  %-16s %v\n", offset, op, operands)
		return nil
	})
	if err != nil {
		fmt.Fprintf(stdout, "glint: %s\n", err)
		return 1
	}
	return 0
}
