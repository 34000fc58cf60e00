package prop

import (
	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/checker"
)

// Expr is a parsed property or invariant expression.
type Expr interface {
	// Type is the expression's semantic type, assigned during parsing.
	Type() checker.Type
	propExpr()
}

// Lit is a literal value.
type Lit struct {
	Val checker.Value
}

// Var references an environment identifier: the result binding, an
// argument, a quantifier binding, or (in invariants) a schema field.
type Var struct {
	ID   checker.VarID
	Name string
	Ty   checker.Type
}

// App applies a catalog operator. TableArg and ColumnArg carry the table
// and column names of the table-shaped operators (table-written,
// table-read, column-delta, authorized-by keyset name).
type App struct {
	Op        Op
	Args      []Expr
	TableArg  string
	ColumnArg string
	Ty        checker.Type
}

// Quant is a quantified expression binding one fresh variable.
type Quant struct {
	Exists  bool
	Binding Var
	Body    Expr
}

func (l *Lit) Type() checker.Type   { return l.Val.Type }
func (v *Var) Type() checker.Type   { return v.Ty }
func (a *App) Type() checker.Type   { return a.Ty }
func (q *Quant) Type() checker.Type { return checker.TypeBool }

func (*Lit) propExpr()   {}
func (*Var) propExpr()   {}
func (*App) propExpr()   {}
func (*Quant) propExpr() {}

// Goal is what a check seeks: universal validity or the existence of a
// witness.
type Goal int

const (
	Validation Goal = iota
	Satisfaction
)

// String names the goal.
func (g Goal) String() string {
	if g == Satisfaction {
		return "satisfiable"
	}
	return "valid"
}

// Check is one parsed property with its proof goal. Immutable once parsed.
type Check struct {
	Goal Goal
	Body Expr
	Raw  string // source text, for rendering
}

// Located pairs a check with the source position of its metadata entry.
type Located struct {
	Loc   ast.Loc
	Check Check
}

// Invariant is one parsed table invariant.
type Invariant struct {
	Loc  ast.Loc
	Body Expr
	Raw  string
}

// Table is an extracted table: its schema's field types plus every parsed
// invariant attached to the schema. Immutable after extraction.
type Table struct {
	Name       string
	Pos        ast.Loc
	Fields     map[string]checker.Type
	FieldOrder []string
	Invariants []Invariant
}

// BuildTableEnv derives the table->column->type environment shared by
// check parsing and body typechecking.
func BuildTableEnv(tables []Table) checker.TableEnv {
	env := make(checker.TableEnv, len(tables))
	for _, t := range tables {
		cols := make(map[string]checker.Type, len(t.Fields))
		for name, ty := range t.Fields {
			cols[name] = ty
		}
		env[t.Name] = cols
	}
	return env
}
