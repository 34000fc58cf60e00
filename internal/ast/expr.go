package ast

// Expr is the base interface for function-body expression nodes.
type Expr interface {
	Loc() Loc
	exprNode()
}

// IntLit is an integer literal.
type IntLit struct {
	Value int64
	Pos   Loc
}

// DecLit is a decimal literal. The source text is kept for exact rendering.
type DecLit struct {
	Value float64
	Text  string
	Pos   Loc
}

// StrLit is a string literal.
type StrLit struct {
	Value string
	Pos   Loc
}

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool
	Pos   Loc
}

// Var references an argument or let-bound name.
type Var struct {
	Name string
	Pos  Loc
}

// If is a two-armed conditional.
type If struct {
	Cond Expr
	Then Expr
	Else Expr
	Pos  Loc
}

// Binding is one name/value pair of a let form.
type Binding struct {
	Name  string
	Value Expr
	Pos   Loc
}

// Let introduces bindings scoped to its body.
type Let struct {
	Bindings []Binding
	Body     Expr
	Pos      Loc
}

// Seq evaluates expressions in order; its value is the last one's. Bodies
// with more than one top-level expression parse to a Seq.
type Seq struct {
	Exprs []Expr
	Pos   Loc
}

// App applies a built-in operator (arithmetic, comparison, logical) to its
// arguments.
type App struct {
	Op   string
	Args []Expr
	Pos  Loc
}

// Enforce aborts the transaction with Msg when its condition is false.
type Enforce struct {
	Cond Expr
	Msg  string
	Pos  Loc
}

// EnforceKeyset aborts the transaction unless the named keyset is satisfied.
type EnforceKeyset struct {
	Name Expr // string-typed expression naming the keyset
	Pos  Loc
}

// ColValue is one column/value pair of a write.
type ColValue struct {
	Col   string
	Value Expr
}

// Write inserts or overwrites the row at Key in a table. Writes must cover
// every schema column (the checker enforces full-row writes).
type Write struct {
	Table string
	Key   Expr
	Cols  []ColValue
	Pos   Loc
}

// Read retrieves one column of the row at Key. The value is symbolically
// unconstrained: nothing is assumed about prior table contents.
type Read struct {
	Table  string
	Key    Expr
	Column string
	Pos    Loc
}

func (e *IntLit) Loc() Loc        { return e.Pos }
func (e *DecLit) Loc() Loc        { return e.Pos }
func (e *StrLit) Loc() Loc        { return e.Pos }
func (e *BoolLit) Loc() Loc       { return e.Pos }
func (e *Var) Loc() Loc           { return e.Pos }
func (e *If) Loc() Loc            { return e.Pos }
func (e *Let) Loc() Loc           { return e.Pos }
func (e *Seq) Loc() Loc           { return e.Pos }
func (e *App) Loc() Loc           { return e.Pos }
func (e *Enforce) Loc() Loc       { return e.Pos }
func (e *EnforceKeyset) Loc() Loc { return e.Pos }
func (e *Write) Loc() Loc         { return e.Pos }
func (e *Read) Loc() Loc          { return e.Pos }

func (*IntLit) exprNode()        {}
func (*DecLit) exprNode()        {}
func (*StrLit) exprNode()        {}
func (*BoolLit) exprNode()       {}
func (*Var) exprNode()           {}
func (*If) exprNode()            {}
func (*Let) exprNode()           {}
func (*Seq) exprNode()           {}
func (*App) exprNode()           {}
func (*Enforce) exprNode()       {}
func (*EnforceKeyset) exprNode() {}
func (*Write) exprNode()         {}
func (*Read) exprNode()          {}
