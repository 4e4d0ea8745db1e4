package value

import "strings"

// DisplayContext tracks the set of containers currently being
// displayed (by heap address) so a cyclic structure prints `...` on
// re-entry instead of recursing forever (spec §5's "Display cycle
// handling").
type DisplayContext struct {
	active map[any]bool
}

// NewDisplayContext returns an empty context.
func NewDisplayContext() *DisplayContext { return &DisplayContext{active: make(map[any]bool)} }

func (ctx *DisplayContext) enter(addr any) bool {
	if ctx.active[addr] {
		return false
	}
	ctx.active[addr] = true
	return true
}

func (ctx *DisplayContext) leave(addr any) { delete(ctx.active, addr) }

// Display renders v the way `print`/string-conversion does, using only
// the built-in rules (spec §6.5): a Map or Object's `@display` meta
// hook, which requires invoking script/native code, is the VM's
// responsibility — it calls this as the fallback once it has checked
// for and found no such hook.
func Display(ctx *DisplayContext, v Value, topLevel bool) string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindInt, KindFloat:
		return FormatNumber(v)
	case KindRange:
		return v.AsRange().String()
	case KindStr:
		s := v.AsStr().String()
		if topLevel {
			return s
		}
		return "'" + s + "'"

	case KindList:
		l := v.AsList()
		if !ctx.enter(l) {
			return "[...]"
		}
		defer ctx.leave(l)
		parts := make([]string, len(l.Elems))
		for i, e := range l.Elems {
			parts[i] = Display(ctx, e, false)
		}
		return "[" + strings.Join(parts, ", ") + "]"

	case KindTuple:
		t := v.AsTuple()
		if !ctx.enter(t) {
			return "(...)"
		}
		defer ctx.leave(t)
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = Display(ctx, e, false)
		}
		suffix := ""
		if len(parts) == 1 {
			suffix = ","
		}
		return "(" + strings.Join(parts, ", ") + suffix + ")"

	case KindTemporaryTuple:
		tt := v.AsTemporaryTuple()
		parts := make([]string, len(tt.Values()))
		for i, e := range tt.Values() {
			parts[i] = Display(ctx, e, false)
		}
		return "(" + strings.Join(parts, ", ") + ")"

	case KindMap:
		m := v.AsMap()
		if !ctx.enter(m) {
			return "{...}"
		}
		defer ctx.leave(m)
		var parts []string
		m.Each(func(k, val Value) bool {
			parts = append(parts, Display(ctx, k, false)+": "+Display(ctx, val, false))
			return true
		})
		return "{" + strings.Join(parts, ", ") + "}"

	case KindFunction, KindCaptureFunction, KindNativeFunction:
		return "||function"

	case KindIterator:
		return "Iterator"

	case KindObject:
		return v.AsObject().Display()

	default:
		return ""
	}
}
