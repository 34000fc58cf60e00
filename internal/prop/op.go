// Package prop implements the property and invariant expression language:
// a closed catalog of named, typed operators, and parsers that turn raw
// metadata expressions into checks against a function's environment or a
// schema's field types.
package prop

// Op enumerates every operator of the property language. The catalog is
// closed: parsing matches textual names against this table, never ad-hoc
// string comparison at use sites.
type Op int

const (
	OpAnd Op = iota
	OpOr
	OpNot
	OpWhen // (when a b): a implies b

	OpEq
	OpNeq
	OpLt
	OpLeq
	OpGt
	OpGeq

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAbs

	OpSuccess // transaction completes without aborting
	OpAbort   // transaction aborts
	OpAuthorizedBy
	OpTableWritten
	OpTableRead
	OpColumnDelta

	OpForall
	OpExists
)

type opInfo struct {
	symbol    string
	minArgs   int
	maxArgs   int // -1 for variadic
	invariant bool
	property  bool
}

// opTable is the single source of truth for symbol names, arities and
// context availability. The name lookup below is derived from it once.
var opTable = map[Op]opInfo{
	OpAnd:  {"and", 2, -1, true, true},
	OpOr:   {"or", 2, -1, true, true},
	OpNot:  {"not", 1, 1, true, true},
	OpWhen: {"when", 2, 2, true, true},

	OpEq:  {"=", 2, 2, true, true},
	OpNeq: {"!=", 2, 2, true, true},
	OpLt:  {"<", 2, 2, true, true},
	OpLeq: {"<=", 2, 2, true, true},
	OpGt:  {">", 2, 2, true, true},
	OpGeq: {">=", 2, 2, true, true},

	OpAdd: {"+", 2, 2, true, true},
	OpSub: {"-", 1, 2, true, true},
	OpMul: {"*", 2, 2, true, true},
	OpDiv: {"/", 2, 2, true, true},
	OpMod: {"mod", 2, 2, true, true},
	OpAbs: {"abs", 1, 1, true, true},

	OpSuccess:      {"success", 0, 0, false, true},
	OpAbort:        {"abort", 0, 0, false, true},
	OpAuthorizedBy: {"authorized-by", 1, 1, false, true},
	OpTableWritten: {"table-written", 1, 1, false, true},
	OpTableRead:    {"table-read", 1, 1, false, true},
	OpColumnDelta:  {"column-delta", 2, 2, false, true},

	// a quantifier form is (forall (name type) body): binder plus body
	OpForall: {"forall", 2, 2, false, true},
	OpExists: {"exists", 2, 2, false, true},
}

var opByName map[string]Op

func init() {
	opByName = make(map[string]Op, len(opTable))
	for op, info := range opTable {
		opByName[info.symbol] = op
	}
}

// ParseOp resolves an operator name against the catalog.
func ParseOp(name string) (Op, bool) {
	op, ok := opByName[name]
	return op, ok
}

// Symbol returns the canonical textual name of the operator.
func (o Op) Symbol() string {
	return opTable[o].symbol
}

// Arity returns the operator's minimum and maximum argument counts; max is
// -1 for variadic operators.
func (o Op) Arity() (min, max int) {
	info := opTable[o]
	return info.minArgs, info.maxArgs
}

// InInvariant reports whether the operator may appear in a table invariant.
func (o Op) InInvariant() bool {
	return opTable[o].invariant
}

// InProperty reports whether the operator may appear in a function property.
func (o Op) InProperty() bool {
	return opTable[o].property
}
