// Package loader implements glint's module search-and-cache protocol
// (spec §4.7): resolving `import x` to a source file on disk,
// compiling it, and caching the compiled chunk by canonical path so a
// module imported from several places is only read and compiled once.
//
// Grounded on the teacher's internal/modloader.Resolver (path
// canonicalization plus a sync.Map cache keyed by resolved path),
// generalized to glint's directory/sibling-module search order and
// rebuilt on golang.org/x/sync/singleflight so concurrent first-time
// imports of the same module collapse into a single compile rather
// than racing each other into the cache.
package loader

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/compiler"
	"github.com/glint-lang/glint/internal/gerr"
	"github.com/glint-lang/glint/internal/parser"
	"github.com/glint-lang/glint/internal/value"
	"github.com/glint-lang/glint/internal/vm"
)

// moduleExtension is the source file suffix glint's module search
// protocol looks for (spec §4.7; this project's own convention, not
// the worked ".koto" example the distilled spec used for illustration).
const moduleExtension = ".glint"

// ImportedFunc is notified each time a module is resolved, whether the
// compiled chunk came from cache or was freshly compiled — wired to
// Settings.ModuleImportedCallback in internal/runtime.
type ImportedFunc func(path string, fromCache bool)

// Loader resolves bare import names against a single fixed base
// directory and caches compiled chunks by canonical path.
//
// vm.ModuleLoader.LoadModule(path string) takes only the bare import
// name, with no "importing file's path" context, so a Loader instance
// can only resolve every import relative to the one baseDir it was
// constructed with — not true per-nested-module relative resolution
// (an import inside a loaded module searches from the same baseDir as
// the top-level script, rather than from that module's own directory).
// This is a deliberate simplification forced by the ModuleLoader
// interface shape; see DESIGN.md.
type Loader struct {
	baseDir  string
	settings compiler.Settings
	prelude  *value.Map
	onImport ImportedFunc

	mu    sync.Mutex
	cache map[string]*bytecode.Chunk // canonical path -> compiled chunk
	group singleflight.Group
}

// New returns a Loader that searches baseDir for imported modules,
// compiling them with settings and giving each module's own run its own
// VM sharing prelude (so a module's nested imports and non-local lookups
// resolve the same way the top-level script's do).
func New(baseDir string, settings compiler.Settings, prelude *value.Map, onImport ImportedFunc) *Loader {
	return &Loader{
		baseDir:  baseDir,
		settings: settings,
		prelude:  prelude,
		onImport: onImport,
		cache:    make(map[string]*bytecode.Chunk),
	}
}

// ClearCache discards every cached compiled module (the embedder's
// clear_module_cache, spec §6.1), forcing the next import of each to
// recompile from disk.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*bytecode.Chunk)
}

// resolve implements spec §4.7's module search order: `baseDir/name.glint`
// first, then `baseDir/name/main.glint`; neither existing is
// KindModuleNotFound. The returned path is canonicalized (symlinks and
// `.`/`..` resolved) so two import spellings of the same file share one
// cache entry.
func (l *Loader) resolve(name string) (string, error) {
	direct := filepath.Join(l.baseDir, name+moduleExtension)
	if p, ok := canonicalIfExists(direct); ok {
		return p, nil
	}
	nested := filepath.Join(l.baseDir, name, "main"+moduleExtension)
	if p, ok := canonicalIfExists(nested); ok {
		return p, nil
	}
	return "", gerr.New(gerr.FamilyRuntime, gerr.KindModuleNotFound, gerr.Span{}, "unable to find module %q", name)
}

func canonicalIfExists(path string) (string, bool) {
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", false
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return resolved, true
	}
	return abs, true
}

// CompileScript compiles source standalone, outside the module cache —
// used for the embedder's top-level script, which is never itself
// looked up by another module's import.
func CompileScript(source, path string, settings compiler.Settings) (*bytecode.Chunk, error) {
	a, pool, err := parser.Parse(source, path)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(a, pool, source, path, settings)
}

// CompileModule resolves name to a source file, compiling it if not
// already cached. Concurrent first-time requests for the same module
// collapse into a single read+compile via singleflight. A failed
// compile is never cached, so the next CompileModule call retries it
// from scratch rather than replaying the failure forever.
func (l *Loader) CompileModule(name string) (chunk *bytecode.Chunk, canonicalPath string, fromCache bool, err error) {
	path, err := l.resolve(name)
	if err != nil {
		return nil, "", false, err
	}

	l.mu.Lock()
	if c, ok := l.cache[path]; ok {
		l.mu.Unlock()
		return c, path, true, nil
	}
	l.mu.Unlock()

	result, err, _ := l.group.Do(path, func() (any, error) {
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, gerr.New(gerr.FamilyRuntime, gerr.KindModuleReadError, gerr.Span{}, "reading module %q: %s", name, readErr)
		}
		src := string(raw)
		a, pool, parseErr := parser.Parse(src, path)
		if parseErr != nil {
			return nil, errors.Wrapf(parseErr, "compiling module %q", name)
		}
		c, compileErr := compiler.Compile(a, pool, src, path, l.settings)
		if compileErr != nil {
			return nil, errors.Wrapf(compileErr, "compiling module %q", name)
		}
		l.mu.Lock()
		l.cache[path] = c
		l.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, "", false, err
	}
	return result.(*bytecode.Chunk), path, false, nil
}

// LoadModule satisfies vm.ModuleLoader: it compiles (or fetches from
// cache) name's chunk, then runs it to completion in a fresh VM that
// shares this Loader and its Prelude, so a module's own imports and
// non-local name lookups resolve exactly as the top-level script's do.
func (l *Loader) LoadModule(name string) (*value.Map, error) {
	chunk, path, fromCache, err := l.CompileModule(name)
	if err != nil {
		return nil, err
	}
	if l.onImport != nil {
		l.onImport(path, fromCache)
	}

	moduleVM := vm.New()
	moduleVM.Prelude = l.prelude
	moduleVM.Loader = l
	exports, err := moduleVM.RunModule(chunk)
	if err != nil {
		return nil, errors.Wrapf(err, "running module %q", name)
	}
	return exports, nil
}
