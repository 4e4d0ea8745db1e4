package value

// Object is the protocol a host-defined value implements to plug into
// the language's operator/display/iteration machinery (spec §3.6).
// Every hook beyond TypeName is optional in spirit — a concrete Object
// implementation that has nothing useful to say for a given hook
// returns the zero value and false — the VM then falls back to the
// built-in rule (or an error) the same way it does for a Map with no
// matching Meta entry (spec §4.6's "metatable first, built-in second").
//
// Grounded on the teacher's OBJ_INSTANCE / OBJ_CLASS split
// (internal/vmregister/value.go InstanceObj/ClassObj), generalized
// into a single Go interface so host code (native modules, embedder
// extensions) can supply Object values without reimplementing glint's
// own class machinery — the same role vmregister's ClassObj/InstanceObj
// pair plays for script-defined types, here opened up to Go-native
// types as well.
type Object interface {
	// TypeName is the built-in `type x` string for this object, absent
	// an overriding @type meta entry.
	TypeName() string

	// Display renders the object for `print`/string conversion.
	Display() string

	// Copy returns a single-level independent copy (spec §5's `copy`).
	Copy() Object

	// Size reports the object's `@size`, or (0, false) if it has none
	// (the VM then falls back to an error, matching Map's rule).
	Size() (int, bool)

	// IteratorKind reports which built-in iterator shape best describes
	// this object (spec §4.6's Iterators list), or IterNone if the
	// object isn't iterable without an explicit @iterator override.
	IteratorKind() ObjectIteratorKind

	// Call invokes the object as a callable (its `@call` meta hook),
	// or (Value{}, false, nil) if the object is not callable.
	Call(args []Value) (result Value, handled bool, err error)
}

// ObjectIteratorKind classifies what Iterate() on an Object should
// produce, mirroring the built-in iterator kinds of spec §4.6.
type ObjectIteratorKind uint8

const (
	IterNone ObjectIteratorKind = iota
	IterValues
	IterPairs
)

// NewObjectValue wraps obj in a Value.
func NewObjectValue(obj Object) Value { return fromPtr(KindObject, obj) }

// AsObject returns v's Object payload; only meaningful when
// v.Kind() == KindObject.
func (v Value) AsObject() Object { return v.ptr.(Object) }
