// Package term defines the symbolic term representation shared by body
// translation, symbolic analysis and the solver session, together with its
// SMT-LIB 2 encoding.
package term

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MrRacoon/pact/internal/checker"
)

// Term is a symbolic expression. Terms are immutable once built.
type Term interface {
	termNode()
}

// SymVar is a solver-level symbolic variable.
type SymVar struct {
	Name string
	Ty   checker.Type
}

// IntLit is an integer constant.
type IntLit int64

// DecLit is a decimal constant.
type DecLit float64

// StrLit is a string constant.
type StrLit string

// BoolLit is a boolean constant.
type BoolLit bool

// App applies an SMT-LIB symbol to arguments.
type App struct {
	Sym  string
	Args []Term
}

// Quantified is a forall/exists term binding one variable.
type Quantified struct {
	Exists bool
	Var    SymVar
	Body   Term
}

func (SymVar) termNode()     {}
func (IntLit) termNode()     {}
func (DecLit) termNode()     {}
func (StrLit) termNode()     {}
func (BoolLit) termNode()    {}
func (App) termNode()        {}
func (Quantified) termNode() {}

// Sort maps a semantic type to its SMT-LIB sort. Time values are encoded
// as epoch offsets and keysets by their registry name.
func Sort(ty checker.Type) string {
	switch ty {
	case checker.TypeInteger, checker.TypeTime:
		return "Int"
	case checker.TypeDecimal:
		return "Real"
	case checker.TypeString, checker.TypeKeySet:
		return "String"
	case checker.TypeBool:
		return "Bool"
	default:
		return "Int"
	}
}

// SMT renders the term in SMT-LIB 2 syntax.
func SMT(t Term) string {
	var sb strings.Builder
	writeSMT(&sb, t)
	return sb.String()
}

func writeSMT(sb *strings.Builder, t Term) {
	switch n := t.(type) {
	case SymVar:
		sb.WriteString(n.Name)
	case IntLit:
		if n < 0 {
			fmt.Fprintf(sb, "(- %d)", -int64(n))
		} else {
			fmt.Fprintf(sb, "%d", int64(n))
		}
	case DecLit:
		f := float64(n)
		if f < 0 {
			fmt.Fprintf(sb, "(- %s)", formatReal(-f))
		} else {
			sb.WriteString(formatReal(f))
		}
	case StrLit:
		// SMT-LIB strings escape quotes by doubling them
		sb.WriteString(`"` + strings.ReplaceAll(string(n), `"`, `""`) + `"`)
	case BoolLit:
		sb.WriteString(strconv.FormatBool(bool(n)))
	case App:
		sb.WriteString("(" + n.Sym)
		for _, a := range n.Args {
			sb.WriteString(" ")
			writeSMT(sb, a)
		}
		sb.WriteString(")")
	case Quantified:
		kw := "forall"
		if n.Exists {
			kw = "exists"
		}
		fmt.Fprintf(sb, "(%s ((%s %s)) ", kw, n.Var.Name, Sort(n.Var.Ty))
		writeSMT(sb, n.Body)
		sb.WriteString(")")
	default:
		sb.WriteString("true")
	}
}

// formatReal renders a float as an SMT-LIB real literal with a decimal
// point, which z3 requires to distinguish Real from Int constants.
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// And conjoins terms, folding boolean literals.
func And(ts ...Term) Term {
	kept := make([]Term, 0, len(ts))
	for _, t := range ts {
		if b, ok := t.(BoolLit); ok {
			if !bool(b) {
				return BoolLit(false)
			}
			continue
		}
		kept = append(kept, t)
	}
	switch len(kept) {
	case 0:
		return BoolLit(true)
	case 1:
		return kept[0]
	default:
		return App{Sym: "and", Args: kept}
	}
}

// Or disjoins terms, folding boolean literals.
func Or(ts ...Term) Term {
	kept := make([]Term, 0, len(ts))
	for _, t := range ts {
		if b, ok := t.(BoolLit); ok {
			if bool(b) {
				return BoolLit(true)
			}
			continue
		}
		kept = append(kept, t)
	}
	switch len(kept) {
	case 0:
		return BoolLit(false)
	case 1:
		return kept[0]
	default:
		return App{Sym: "or", Args: kept}
	}
}

// Not negates a term.
func Not(t Term) Term {
	return App{Sym: "not", Args: []Term{t}}
}

// Implies builds (=> a b).
func Implies(a, b Term) Term {
	return App{Sym: "=>", Args: []Term{a, b}}
}

// Eq builds (= a b).
func Eq(a, b Term) Term {
	return App{Sym: "=", Args: []Term{a, b}}
}

// Ite builds (ite c a b).
func Ite(c, a, b Term) Term {
	return App{Sym: "ite", Args: []Term{c, a, b}}
}
