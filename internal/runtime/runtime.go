// Package runtime is glint's embedder-facing API (spec §6.1): compile a
// script, run it, call functions it exported, and drive its @test_*
// functions — without the caller having to touch internal/vm,
// internal/loader, or internal/compiler directly.
//
// Grounded on the teacher's internal/engine.Engine (compile-once,
// run-many wrapper pairing a VM with a module cache and a test runner),
// generalized from the teacher's two-phase load/exec split to glint's
// Compile/Run split and from its flat test-function list to glint's
// nested @tests map with optional @pre_test/@post_test hooks.
package runtime

import (
	"io"
	"path/filepath"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/compiler"
	"github.com/glint-lang/glint/internal/corelib"
	"github.com/glint-lang/glint/internal/loader"
	"github.com/glint-lang/glint/internal/value"
	"github.com/glint-lang/glint/internal/vm"

	"github.com/pkg/errors"
)

// Settings configures a Runtime for its whole lifetime (spec §6.1's
// Runtime::new settings).
type Settings struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// ModuleImportedCallback, if set, is notified each time an import
	// resolves, whether served from the module cache or freshly
	// compiled — useful for a REPL/CLI's module trace output. path is
	// the module's resolved file path.
	ModuleImportedCallback func(path string, fromCache bool)

	// RunTests runs the compiled script's own @tests after @main (spec
	// §6.1's `-t`/`--tests` CLI behavior, mirrored at the embedder level).
	RunTests bool
	// ImportTests is stored but not read: @tests found on imported
	// modules are not run, whether or not RunTests is set.
	ImportTests bool

	// ExecutionLimit, if set, bounds a single Run's wall-clock time
	// (spec §4.6's optional execution-time-limit, wired to vm.SetTimeout).
	ExecutionLimit *time.Duration
}

// DefaultSettings returns a Settings with Stdout/Stderr/Stdin wired to
// nothing (the zero io.Writer/io.Reader) and no test running — the
// embedder fills in what it needs.
func DefaultSettings() Settings {
	return Settings{}
}

// CompileArgs is Compile's input (spec §6.1's compile_script args).
type CompileArgs struct {
	Script     string
	ScriptPath string
	Settings   compiler.Settings
}

// TestResult reports one @test_name run's outcome. When
// Settings.RunTests is set, Run returns every failure, in test-name
// order, inside a *TestFailure error so a CLI can report every failing
// test rather than stopping at the first.
type TestResult struct {
	Name string
	Err  error
}

// TestFailure wraps every failed test from one @tests run.
type TestFailure struct {
	Failures []TestResult
}

func (f *TestFailure) Error() string {
	s := ""
	for i, r := range f.Failures {
		if i > 0 {
			s += "; "
		}
		s += r.Name + ": " + r.Err.Error()
	}
	return s
}

// Runtime pairs one VM with its module loader and the last compiled
// script, implementing spec §6.1's embedder surface.
type Runtime struct {
	settings Settings
	vm       *vm.VM
	loader   *loader.Loader

	chunk  *bytecode.Chunk
	path   string
	source string

	lastExports *value.Map
}

// New constructs a Runtime: a fresh VM wired to settings' I/O streams
// and execution limit, with Prelude seeded from internal/corelib.
func New(settings Settings) *Runtime {
	v := vm.New()
	v.Stdout = settings.Stdout
	v.Stderr = settings.Stderr
	v.Stdin = settings.Stdin
	if settings.ExecutionLimit != nil {
		v.SetTimeout(*settings.ExecutionLimit)
	}
	v.Prelude = corelib.Prelude()
	return &Runtime{settings: settings, vm: v}
}

// Compile parses and compiles args.Script, always forcing
// ExportTopLevelIDs on (spec §6.1's compile_script, always export so
// @main/@tests and REPL-style top-level bindings are reachable
// regardless of what the caller asked for), and (re)builds the module
// loader rooted at the script's own directory.
func (r *Runtime) Compile(args CompileArgs) error {
	set := args.Settings
	set.ExportTopLevelIDs = true

	path := args.ScriptPath
	if path == "" {
		path = "<script>"
	}
	chunk, err := loader.CompileScript(args.Script, path, set)
	if err != nil {
		return err
	}

	baseDir := "."
	if args.ScriptPath != "" {
		baseDir = filepath.Dir(args.ScriptPath)
	}
	r.loader = loader.New(baseDir, set, r.vm.Prelude, r.settings.ModuleImportedCallback)
	r.vm.Loader = r.loader

	r.chunk = chunk
	r.path = path
	r.source = args.Script
	return nil
}

// Run executes the most recently Compiled script (spec §6.1's run),
// dispatching @main and, if Settings.RunTests is set, @tests afterward.
func (r *Runtime) Run() (value.Value, error) {
	if r.chunk == nil {
		return value.Value{}, errors.New("runtime: Compile must be called before Run")
	}
	if r.settings.ExecutionLimit != nil {
		r.vm.SetTimeout(*r.settings.ExecutionLimit)
	}
	return r.runChunk(r.chunk)
}

// CompileAndRun is the one-shot convenience form of Compile+Run (spec
// §6.1's compile_and_run).
func (r *Runtime) CompileAndRun(script string) (value.Value, error) {
	if err := r.Compile(CompileArgs{Script: script}); err != nil {
		return value.Value{}, err
	}
	return r.Run()
}

// runChunk runs chunk's top level, materializes its exports, invokes
// @main if present, and runs @tests if RunTests is set.
func (r *Runtime) runChunk(chunk *bytecode.Chunk) (value.Value, error) {
	exports, err := r.vm.RunModule(chunk)
	if err != nil {
		return value.Value{}, err
	}
	r.lastExports = exports

	result := value.Null()
	if main, ok := exports.Get(value.NewStrValue("@main")); ok {
		v, callErr := r.vm.CallValue(main, nil, nil)
		if callErr != nil {
			return value.Value{}, callErr
		}
		result = v
	}

	if r.settings.RunTests {
		if tests, ok := exports.Get(value.NewStrValue("@tests")); ok && tests.Kind() == value.KindMap {
			if err := r.runTestMap(tests.AsMap()); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

// runTestMap runs every @test_name entry of m in a stable (sorted)
// order, calling @pre_test before and @post_test after each one if
// present (spec §6.1's test-running convention). Sorting uses
// golang.org/x/exp/maps+slices rather than a hand-rolled loop, since
// Meta.Tests() returns a plain Go map with no defined iteration order
// and test output needs to be reproducible run to run.
func (r *Runtime) runTestMap(m *value.Map) error {
	tests := m.Meta.Tests()
	names := maps.Keys(tests)
	slices.Sort(names)

	preTest, hasPre := m.Meta.Get(value.MetaKey{Kind: value.MetaPreTest})
	postTest, hasPost := m.Meta.Get(value.MetaKey{Kind: value.MetaPostTest})

	var failures []TestResult
	for _, name := range names {
		if hasPre {
			if _, err := r.vm.CallValue(preTest, nil, nil); err != nil {
				failures = append(failures, TestResult{Name: name, Err: err})
				continue
			}
		}
		_, err := r.vm.CallValue(tests[name], nil, nil)
		if err != nil {
			failures = append(failures, TestResult{Name: name, Err: err})
		}
		if hasPost {
			if _, postErr := r.vm.CallValue(postTest, nil, nil); postErr != nil && err == nil {
				failures = append(failures, TestResult{Name: name, Err: postErr})
			}
		}
	}
	if len(failures) > 0 {
		return &TestFailure{Failures: failures}
	}
	return nil
}

// CallFunction calls fn with args from outside any running script (spec
// §6.1's call_function).
func (r *Runtime) CallFunction(fn value.Value, args ...value.Value) (value.Value, error) {
	return r.vm.CallValue(fn, nil, args)
}

// CallInstanceFunction calls fn with self bound to its instance
// receiver (spec §6.1's call_instance_function).
func (r *Runtime) CallInstanceFunction(fn, self value.Value, args ...value.Value) (value.Value, error) {
	return r.vm.CallValue(fn, &self, args)
}

// ValueToString renders v with value.Display's built-in rules (spec
// §6.1's value_to_string). A Map's @display meta function is not
// called.
func (r *Runtime) ValueToString(v value.Value) string {
	return value.Display(value.NewDisplayContext(), v, true)
}

// Exports returns the most recently run script/module's exports map.
func (r *Runtime) Exports() (*value.Map, error) {
	if r.lastExports == nil {
		return nil, errors.New("runtime: no script has been run yet")
	}
	return r.lastExports, nil
}

// Prelude returns the Map of built-in names visible to every script
// without an explicit import (spec §6.1's prelude()).
func (r *Runtime) Prelude() *value.Map { return r.vm.Prelude }

// SetArgs injects a `koto.args` list into the prelude's `koto` module
// (spec §6.1's set_args), creating that submodule if the embedder
// hasn't already put one there.
func (r *Runtime) SetArgs(args []string) {
	koto, ok := r.vm.Prelude.Get(value.NewStrValue("koto"))
	var m *value.Map
	if ok && koto.Kind() == value.KindMap {
		m = koto.AsMap()
	} else {
		m = value.NewMap()
		r.vm.Prelude.Set(value.NewStrValue("koto"), value.NewMapValue(m))
	}
	elems := make([]value.Value, len(args))
	for i, a := range args {
		elems[i] = value.NewStrValue(a)
	}
	m.Set(value.NewStrValue("args"), value.NewList(elems))
}

// ClearModuleCache discards every cached compiled module (spec §6.1's
// clear_module_cache), so the next import of each recompiles from disk.
func (r *Runtime) ClearModuleCache() {
	if r.loader != nil {
		r.loader.ClearCache()
	}
}

