package vm

import (
	"github.com/glint-lang/glint/internal/gerr"
	"github.com/glint-lang/glint/internal/value"
)

// lookupNonLocal resolves an identifier the compiler could not bind to
// a local or capture slot (internal/compiler/expr.go's compileIdentRead
// fallback): the prelude is the only runtime-dynamic namespace this VM
// consults (spec §4.6's LoadNonLocal).
func (vm *VM) lookupNonLocal(name string) (value.Value, bool) {
	if vm.Prelude == nil {
		return value.Value{}, false
	}
	return vm.Prelude.Get(value.NewStrValue(name))
}

// doImport implements the Import opcode: prelude modules resolve first,
// then the host ModuleLoader, then the VM's own per-run module cache so
// a module imported from two sites shares one execution (spec §4.6's
// Import handling, §4.7's module search protocol).
func (vm *VM) doImport(name string) (value.Value, *gerr.Error) {
	if vm.Prelude != nil {
		if v, ok := vm.Prelude.Get(value.NewStrValue(name)); ok {
			return v, nil
		}
	}
	if cached, ok := vm.moduleCache[name]; ok {
		return value.NewMapValue(cached), nil
	}
	if vm.Loader == nil {
		return value.Value{}, gerr.New(gerr.FamilyRuntime, gerr.KindUnexpected, gerr.Span{}, "no module loader configured for import %q", name)
	}
	m, err := vm.Loader.LoadModule(name)
	if err != nil {
		return value.Value{}, gerr.New(gerr.FamilyRuntime, gerr.KindUnexpected, gerr.Span{}, "failed to import %q: %s", name, err)
	}
	vm.moduleCache[name] = m
	return value.NewMapValue(m), nil
}
