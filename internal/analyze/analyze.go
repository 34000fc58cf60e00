// Package analyze combines a function's symbolic translation with a parsed
// check or table invariant to produce the proposition handed to the solver.
package analyze

import (
	"fmt"
	"strings"

	"github.com/MrRacoon/pact/internal/checker"
	"github.com/MrRacoon/pact/internal/prop"
	"github.com/MrRacoon/pact/internal/term"
)

// Error is a check that parsed but cannot be analyzed against this body.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// KeysetVar is a free boolean standing for "the named keyset authorizes
// this transaction". All enforcement sites naming the same keyset share
// one variable.
type KeysetVar struct {
	Name string
	Var  term.SymVar
}

// Analysis is a proposition ready for the solver, plus the auxiliary
// keyset variables it mentions and the assertions tying enforcement sites
// to them.
type Analysis struct {
	Prop    term.Term
	Keysets []KeysetVar
	Links   []term.Term
}

// Property builds the proposition for one check over a translated body.
func Property(tr *term.Translation, check prop.Check) (*Analysis, error) {
	a := &analyzer{tr: tr, ksVars: map[string]term.SymVar{}}
	p, err := a.expr(check.Body)
	if err != nil {
		return nil, err
	}
	res := &Analysis{Prop: p, Links: a.links}
	for name, v := range a.ksVars {
		res.Keysets = append(res.Keysets, KeysetVar{Name: name, Var: v})
	}
	return res, nil
}

// Invariant builds the proposition asserting that every write to the table
// preserves the invariant when the transaction succeeds. The second result
// is false when the body never writes the table.
func Invariant(table prop.Table, inv prop.Invariant, tr *term.Translation) (term.Term, bool, error) {
	var clauses []term.Term
	for _, w := range tr.Writes {
		if w.Table != table.Name {
			continue
		}
		body, err := substitute(inv.Body, w.Cols)
		if err != nil {
			return nil, false, err
		}
		clauses = append(clauses, term.Implies(term.And(tr.Success, w.Cond), body))
	}
	if len(clauses) == 0 {
		return nil, false, nil
	}
	return term.And(clauses...), true, nil
}

type analyzer struct {
	tr     *term.Translation
	ksVars map[string]term.SymVar
	links  []term.Term
}

func (a *analyzer) keysetVar(name string) term.SymVar {
	if v, ok := a.ksVars[name]; ok {
		return v
	}
	v := term.SymVar{Name: "ks_" + sanitize(name), Ty: checker.TypeBool}
	a.ksVars[name] = v
	// every enforcement site naming this keyset shares the outcome
	for _, k := range a.tr.Keysets {
		if k.Literal == name {
			a.links = append(a.links, term.Eq(k.Var, v))
		}
	}
	return v
}

func (a *analyzer) expr(e prop.Expr) (term.Term, error) {
	switch n := e.(type) {
	case *prop.Lit:
		return litTerm(n.Val), nil
	case *prop.Var:
		return term.SymVar{Name: term.VarName(n.ID), Ty: n.Ty}, nil
	case *prop.Quant:
		body, err := a.expr(n.Body)
		if err != nil {
			return nil, err
		}
		return term.Quantified{
			Exists: n.Exists,
			Var:    term.SymVar{Name: term.VarName(n.Binding.ID), Ty: n.Binding.Ty},
			Body:   body,
		}, nil
	case *prop.App:
		return a.app(n)
	default:
		return nil, errf("unsupported property expression")
	}
}

func (a *analyzer) app(n *prop.App) (term.Term, error) {
	switch n.Op {
	case prop.OpSuccess:
		return a.tr.Success, nil
	case prop.OpAbort:
		return term.Not(a.tr.Success), nil
	case prop.OpAuthorizedBy:
		return a.keysetVar(n.TableArg), nil
	case prop.OpTableWritten:
		var conds []term.Term
		for _, w := range a.tr.Writes {
			if w.Table == n.TableArg {
				conds = append(conds, w.Cond)
			}
		}
		return term.Or(conds...), nil
	case prop.OpTableRead:
		var conds []term.Term
		for _, r := range a.tr.Reads {
			if r.Table == n.TableArg {
				conds = append(conds, r.Cond)
			}
		}
		return term.Or(conds...), nil
	case prop.OpColumnDelta:
		return a.columnDelta(n), nil
	}

	args := make([]term.Term, len(n.Args))
	for i, arg := range n.Args {
		t, err := a.expr(arg)
		if err != nil {
			return nil, err
		}
		args[i] = t
	}
	return opTerm(n, args)
}

// columnDelta sums the written values of one numeric column across the
// body's conditional writes. Rows are modelled as inserts, so the delta of
// a write is the full written value.
func (a *analyzer) columnDelta(n *prop.App) term.Term {
	zero := term.Term(term.IntLit(0))
	if n.Ty == checker.TypeDecimal {
		zero = term.DecLit(0)
	}
	sum := zero
	for _, w := range a.tr.Writes {
		if w.Table != n.TableArg {
			continue
		}
		col, ok := w.Cols[n.ColumnArg]
		if !ok {
			continue
		}
		sum = term.App{Sym: "+", Args: []term.Term{sum, term.Ite(w.Cond, col, zero)}}
	}
	return sum
}

func opTerm(n *prop.App, args []term.Term) (term.Term, error) {
	switch n.Op {
	case prop.OpAnd:
		return term.And(args...), nil
	case prop.OpOr:
		return term.Or(args...), nil
	case prop.OpNot:
		return term.Not(args[0]), nil
	case prop.OpWhen:
		return term.Implies(args[0], args[1]), nil
	case prop.OpEq:
		return term.Eq(args[0], args[1]), nil
	case prop.OpNeq:
		return term.Not(term.Eq(args[0], args[1])), nil
	case prop.OpLt, prop.OpLeq, prop.OpGt, prop.OpGeq:
		return compare(n, args), nil
	case prop.OpAdd:
		return term.App{Sym: "+", Args: args}, nil
	case prop.OpSub:
		return term.App{Sym: "-", Args: args}, nil
	case prop.OpMul:
		return term.App{Sym: "*", Args: args}, nil
	case prop.OpDiv:
		sym := "/"
		if n.Ty == checker.TypeInteger {
			sym = "div"
		}
		return term.App{Sym: sym, Args: args}, nil
	case prop.OpMod:
		return term.App{Sym: "mod", Args: args}, nil
	case prop.OpAbs:
		return term.App{Sym: "abs", Args: args}, nil
	default:
		return nil, errf("operator %s has no solver form", n.Op.Symbol())
	}
}

func compare(n *prop.App, args []term.Term) term.Term {
	sym := map[prop.Op]string{
		prop.OpLt: "<", prop.OpLeq: "<=", prop.OpGt: ">", prop.OpGeq: ">=",
	}[n.Op]
	if n.Args[0].Type() != checker.TypeString {
		return term.App{Sym: sym, Args: args}
	}
	switch n.Op {
	case prop.OpLt:
		return term.App{Sym: "str.<", Args: args}
	case prop.OpLeq:
		return term.App{Sym: "str.<=", Args: args}
	case prop.OpGt:
		return term.App{Sym: "str.<", Args: []term.Term{args[1], args[0]}}
	default:
		return term.App{Sym: "str.<=", Args: []term.Term{args[1], args[0]}}
	}
}

func litTerm(v checker.Value) term.Term {
	switch v.Type {
	case checker.TypeInteger, checker.TypeTime:
		return term.IntLit(v.Integer)
	case checker.TypeDecimal:
		return term.DecLit(v.Decimal)
	case checker.TypeBool:
		return term.BoolLit(v.Bool)
	default:
		return term.StrLit(v.String)
	}
}

// substitute rewrites invariant field references into the terms a write
// assigns those columns. The checker guarantees full-row writes, so every
// field resolves.
func substitute(e prop.Expr, cols map[string]term.Term) (term.Term, error) {
	switch n := e.(type) {
	case *prop.Lit:
		return litTerm(n.Val), nil
	case *prop.Var:
		col, ok := cols[n.Name]
		if !ok {
			return nil, errf("invariant references %q but the write does not cover it", n.Name)
		}
		return col, nil
	case *prop.App:
		args := make([]term.Term, len(n.Args))
		for i, arg := range n.Args {
			t, err := substitute(arg, cols)
			if err != nil {
				return nil, err
			}
			args[i] = t
		}
		return opTerm(n, args)
	default:
		return nil, errf("unsupported invariant expression")
	}
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
