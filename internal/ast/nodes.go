package ast

import "fmt"

// Loc is a source position within a module file.
type Loc struct {
	File string
	Line int
	Col  int
}

// String renders the location as file:line:col.
func (l Loc) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Col)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// SKind discriminates the s-expression node kinds produced by the reader.
type SKind int

const (
	SList SKind = iota
	SObject
	SSymbol
	SString
	SNumber
	SBool
)

// SNode is one node of a read s-expression. Lists hold their elements in
// Items; objects hold alternating key (SString) and value nodes. Atoms keep
// their source text in Text.
type SNode struct {
	Kind  SKind
	Pos   Loc
	Text  string
	Items []SNode
}

// IsSymbol reports whether the node is the given symbol.
func (n SNode) IsSymbol(name string) bool {
	return n.Kind == SSymbol && n.Text == name
}

// Head returns the leading symbol of a list, or "" if the node is not a
// list headed by a symbol.
func (n SNode) Head() string {
	if n.Kind == SList && len(n.Items) > 0 && n.Items[0].Kind == SSymbol {
		return n.Items[0].Text
	}
	return ""
}

// String renders the node back to s-expression text. Used by parse-failure
// messages and the check renderer.
func (n SNode) String() string {
	switch n.Kind {
	case SSymbol, SNumber, SBool:
		return n.Text
	case SString:
		return fmt.Sprintf("%q", n.Text)
	case SList:
		s := "("
		for i, it := range n.Items {
			if i > 0 {
				s += " "
			}
			s += it.String()
		}
		return s + ")"
	case SObject:
		s := "{"
		for i := 0; i+1 < len(n.Items); i += 2 {
			if i > 0 {
				s += ", "
			}
			s += fmt.Sprintf("%q: %s", n.Items[i].Text, n.Items[i+1].String())
		}
		return s + "}"
	default:
		return "<invalid>"
	}
}

// DefKind discriminates top-level definitions inside a module.
type DefKind int

const (
	DefFun DefKind = iota
	DefConst
	DefTable
	DefSchema
)

// String returns the definition keyword.
func (k DefKind) String() string {
	switch k {
	case DefFun:
		return "defun"
	case DefConst:
		return "defconst"
	case DefTable:
		return "deftable"
	case DefSchema:
		return "defschema"
	default:
		return "unknown"
	}
}

// Param is a typed function argument in declaration order.
type Param struct {
	Name string
	Type string // declared type name, e.g. "integer"
	Pos  Loc
}

// Field is one typed column of a schema.
type Field struct {
	Name string
	Type string
	Pos  Loc
}

// Meta holds the raw metadata attached to a definition, keyed by metadata
// name ("invariant", "invariants", "property", "properties", "doc", ...).
// Values are kept as unparsed s-expression nodes; the verification
// extractors parse them against the appropriate environments.
type Meta map[string]SNode

// Get returns the raw node for a metadata key.
func (m Meta) Get(key string) (SNode, bool) {
	n, ok := m[key]
	return n, ok
}

// Def is one top-level definition. Only the fields relevant to its Kind are
// populated.
type Def struct {
	Kind DefKind
	Name string
	Pos  Loc
	Meta Meta

	// DefFun
	Params     []Param
	ReturnType string
	Body       Expr

	// DefConst
	Value Expr

	// DefTable
	SchemaName string

	// DefSchema
	Fields []Field
}

// Module is a fully parsed module: an ordered list of definitions plus the
// names of modules it imports with (use ...).
type Module struct {
	Name    string
	Pos     Loc
	Defs    []*Def
	Imports []string
}

// Def returns the definition with the given name, if any.
func (m *Module) Def(name string) (*Def, bool) {
	for _, d := range m.Defs {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Ref is a resolved reference to a definition in a specific module.
type Ref struct {
	Module *Module
	Def    *Def
}

// Resolve finds name in the module or, failing that, in any module it
// imports. The imported modules are looked up in all.
func Resolve(all map[string]*Module, m *Module, name string) (Ref, bool) {
	if d, ok := m.Def(name); ok {
		return Ref{Module: m, Def: d}, true
	}
	for _, imp := range m.Imports {
		im, ok := all[imp]
		if !ok {
			continue
		}
		if d, ok := im.Def(name); ok {
			return Ref{Module: im, Def: d}, true
		}
	}
	return Ref{}, false
}
