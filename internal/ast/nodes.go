// Package ast is the indexed syntax tree produced by the parser
// (spec §3.3). Unlike the teacher's pointer-linked Expr/Stmt trees
// (internal/parser's Binary/Literal/Variable/CallExpr/IfExpr structs),
// every node here lives in one arena and children are referenced by
// Index so a Chunk's debug map can record spans by offset without
// keeping the tree itself alive, and so the "every AstIndex resolves to
// a valid node" invariant (spec §8) is checkable in O(1).
package ast

import "github.com/glint-lang/glint/internal/gerr"

// Index references a node inside an Ast. NoIndex (-1) means
// "absent" (e.g. a for-loop with no step, an if with no else).
type Index int32

const NoIndex Index = -1

// Kind enumerates every node shape the parser can produce (spec §3.3).
type Kind uint8

const (
	KindNil Kind = iota
	KindBoolTrue
	KindBoolFalse
	KindInt
	KindFloat
	KindStringLiteral // Const = string in the pool; no interpolation
	KindStringTemplate
	KindIdent
	KindWildcard // `_`
	KindSelf

	KindList
	KindTuple
	KindTempTuple
	KindMapEntries
	KindMetaMap // map literal containing @-entries

	KindRange // Lhs=start?, Rhs=end?, Flags: inclusive/bounded

	KindIf       // Lhs=cond, Rhs=then-block, Extra=else (If/else-if chain/Else/NoIndex)
	KindMatch    // Lhs=scrutinee, Children=arms (KindMatchArm)
	KindMatchArm // Children=patterns, Lhs=guard(or NoIndex), Rhs=body
	KindSwitch   // Children=arms (KindSwitchArm)
	KindSwitchArm
	KindFor   // Lhs=targets(KindList of idents), Rhs=iterable, Extra=body
	KindWhile // Lhs=cond, Rhs=body
	KindUntil // Lhs=cond, Rhs=body
	KindLoop  // Rhs=body
	KindBreak
	KindContinue
	KindReturn // Lhs=value or NoIndex
	KindYield  // Lhs=value
	KindThrow  // Lhs=value
	KindTry    // Lhs=body, Rhs=catch-block, Extra=finally-block; Str=catch binding name ("" when absent)
	KindBlock  // Children=statements

	KindBinaryOp  // Lhs, Rhs; Str=operator symbol
	KindUnaryOp   // Lhs; Str=operator symbol
	KindAssign    // Lhs=target, Rhs=value; Str=compound op ("" for simple "=")
	KindMultiAssign

	KindFunction // Children=params (KindIdent/KindWildcard/KindTuple-destructure), Rhs=body; Flags: variadic/generator/instance
	KindCall     // Lhs=callee, Children=args
	KindChain    // Lhs=head, Rhs=first lookup node; each lookup's Rhs is the next lookup or NoIndex
	KindLookupId   // part of a chain: Const=name
	KindLookupIndex // part of a chain: Lhs=index expr
	KindLookupCall  // part of a chain: Children=args
	KindLookupOptional // wraps the next lookup with `?.` null-short-circuit

	KindImport     // Children=bound names (KindImportItem)
	KindImportItem // Const=name, Extra=alias or NoIndex
	KindFromImport // Lhs=module path (KindChain/KindIdent), Children=KindImportItem

	KindMetaEntry // Str=meta key text (e.g. "@+", "@display", "@meta name"); Rhs=value
)

// Flags bits, interpreted per Kind (documented alongside each Kind above).
const (
	FlagInclusive = 1 << iota // KindRange: `..=`
	FlagBoundedStart
	FlagBoundedEnd
	FlagVariadic // KindFunction: last param collects extras
	FlagGenerator // KindFunction: contains a yield
	FlagInstance // KindFunction: implicit self
	FlagRaw      // KindStringLiteral/Template: raw string, no escapes
	FlagOptionalLookup // KindLookupId/KindLookupIndex/KindLookupCall: reached via `?.`
)

// Node is one entry in the arena. Only the fields relevant to Kind are
// meaningful; see the comments next to each Kind constant.
type Node struct {
	Kind     Kind
	Span     gerr.Span
	Lhs, Rhs Index
	Extra    Index
	Children []Index
	Const    uint32 // constpool.Index, kept untyped here to avoid an import cycle
	Str      string
	Flags    uint32
}

// Ast is the arena of nodes produced by a single parse (spec §3.3).
type Ast struct {
	Nodes []Node
	Root  Index
}

// New returns an empty Ast.
func New() *Ast { return &Ast{Root: NoIndex} }

// Add appends n and returns its Index.
func (a *Ast) Add(n Node) Index {
	idx := Index(len(a.Nodes))
	a.Nodes = append(a.Nodes, n)
	return idx
}

// Get returns the node at idx. Panics on an out-of-range index, since a
// well-formed Ast never produces one (spec §8 invariant).
func (a *Ast) Get(idx Index) *Node {
	return &a.Nodes[idx]
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

var kindNames = [...]string{
	KindNil: "nil", KindBoolTrue: "true", KindBoolFalse: "false",
	KindInt: "int", KindFloat: "float", KindStringLiteral: "string",
	KindStringTemplate: "string_template", KindIdent: "ident",
	KindWildcard: "wildcard", KindSelf: "self", KindList: "list",
	KindTuple: "tuple", KindTempTuple: "temp_tuple", KindMapEntries: "map",
	KindMetaMap: "meta_map", KindRange: "range", KindIf: "if",
	KindMatch: "match", KindMatchArm: "match_arm", KindSwitch: "switch",
	KindSwitchArm: "switch_arm", KindFor: "for", KindWhile: "while",
	KindUntil: "until", KindLoop: "loop", KindBreak: "break",
	KindContinue: "continue", KindReturn: "return", KindYield: "yield",
	KindThrow: "throw", KindTry: "try", KindBlock: "block",
	KindBinaryOp: "binary_op", KindUnaryOp: "unary_op", KindAssign: "assign",
	KindMultiAssign: "multi_assign", KindFunction: "function", KindCall: "call",
	KindChain: "chain", KindLookupId: "lookup_id", KindLookupIndex: "lookup_index",
	KindLookupCall: "lookup_call", KindLookupOptional: "lookup_optional",
	KindImport: "import", KindImportItem: "import_item",
	KindFromImport: "from_import", KindMetaEntry: "meta_entry",
}
