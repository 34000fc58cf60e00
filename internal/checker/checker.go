// Package checker recovers function signatures from module definitions and
// typechecks function bodies before any symbolic work happens. A function
// whose body does not typecheck is never translated; every check attached
// to it degrades to a single typecheck failure.
package checker

import (
	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/diagnostic"
)

// TableEnv maps table name to column name to semantic type. Built once per
// module from the extracted tables and shared read-only by every function.
type TableEnv map[string]map[string]Type

// FunSig is a function's resolved signature: semantically typed arguments
// in declaration order plus the result type.
type FunSig struct {
	Name   string
	Args   []Arg
	Result Type
}

// Signature typechecks a definition's declared types into a FunSig. It
// returns (nil, nil) for definitions that do not resolve as functions
// (constants, tables, schemas) and an error wrapping ErrNoSymbolicType
// when an argument or result type has no symbolic representation.
func Signature(d *ast.Def) (*FunSig, error) {
	if d.Kind != ast.DefFun {
		return nil, nil
	}
	sig := &FunSig{Name: d.Name}
	for _, p := range d.Params {
		ty, err := TranslateType(p.Type)
		if err != nil {
			return nil, err
		}
		sig.Args = append(sig.Args, Arg{Name: p.Name, Type: ty})
	}
	res, err := TranslateType(d.ReturnType)
	if err != nil {
		return nil, err
	}
	sig.Result = res
	return sig, nil
}

// CheckFun typechecks a function body against its signature and the table
// environment. The returned diagnostics are empty when the body is well
// typed.
func CheckFun(d *ast.Def, sig *FunSig, tables TableEnv) []diagnostic.Diagnostic {
	c := &bodyChecker{
		tables: tables,
		diags:  diagnostic.New(d.Pos.File),
	}
	scope := make(map[string]Type, len(sig.Args))
	for _, a := range sig.Args {
		scope[a.Name] = a.Type
	}
	got, ok := c.infer(d.Body, scope)
	if ok && got != sig.Result {
		c.errorf(d.Body.Loc(), "function %s returns %s but body has type %s", d.Name, sig.Result, got)
	}
	return c.diags.All()
}

// CheckConst typechecks a constant definition's value.
func CheckConst(d *ast.Def) []diagnostic.Diagnostic {
	c := &bodyChecker{diags: diagnostic.New(d.Pos.File)}
	c.infer(d.Value, map[string]Type{})
	return c.diags.All()
}

type bodyChecker struct {
	tables TableEnv
	diags  *diagnostic.Diagnostics
}

func (c *bodyChecker) errorf(loc ast.Loc, format string, args ...interface{}) {
	c.diags.Errorf(loc.Line, loc.Col, format, args...)
}

// infer computes the type of a body expression, reporting any type errors
// found along the way. The bool result is false when no type could be
// assigned.
func (c *bodyChecker) infer(e ast.Expr, scope map[string]Type) (Type, bool) {
	switch n := e.(type) {
	case nil:
		return 0, false
	case *ast.IntLit:
		return TypeInteger, true
	case *ast.DecLit:
		return TypeDecimal, true
	case *ast.StrLit:
		return TypeString, true
	case *ast.BoolLit:
		return TypeBool, true
	case *ast.Var:
		ty, ok := scope[n.Name]
		if !ok {
			c.errorf(n.Pos, "unknown variable %q", n.Name)
			return 0, false
		}
		return ty, true
	case *ast.If:
		if ct, ok := c.infer(n.Cond, scope); ok && ct != TypeBool {
			c.errorf(n.Cond.Loc(), "if condition must be bool, got %s", ct)
		}
		tt, tok := c.infer(n.Then, scope)
		et, eok := c.infer(n.Else, scope)
		if tok && eok && tt != et {
			c.errorf(n.Pos, "if branches disagree: %s vs %s", tt, et)
			return 0, false
		}
		return tt, tok && eok
	case *ast.Let:
		inner := make(map[string]Type, len(scope)+len(n.Bindings))
		for k, v := range scope {
			inner[k] = v
		}
		for _, b := range n.Bindings {
			ty, ok := c.infer(b.Value, inner)
			if !ok {
				return 0, false
			}
			inner[b.Name] = ty
		}
		return c.infer(n.Body, inner)
	case *ast.Seq:
		var ty Type
		ok := false
		for _, x := range n.Exprs {
			ty, ok = c.infer(x, scope)
		}
		return ty, ok
	case *ast.App:
		return c.inferApp(n, scope)
	case *ast.Enforce:
		if ct, ok := c.infer(n.Cond, scope); ok && ct != TypeBool {
			c.errorf(n.Cond.Loc(), "enforce condition must be bool, got %s", ct)
		}
		return TypeBool, true
	case *ast.EnforceKeyset:
		if nt, ok := c.infer(n.Name, scope); ok && nt != TypeString && nt != TypeKeySet {
			c.errorf(n.Name.Loc(), "enforce-keyset name must be a string or keyset, got %s", nt)
		}
		return TypeBool, true
	case *ast.Write:
		c.checkWrite(n, scope)
		return TypeString, true
	case *ast.Read:
		cols, ok := c.tables[n.Table]
		if !ok {
			c.errorf(n.Pos, "unknown table %q", n.Table)
			return 0, false
		}
		ty, ok := cols[n.Column]
		if !ok {
			c.errorf(n.Pos, "table %q has no column %q", n.Table, n.Column)
			return 0, false
		}
		if kt, ok := c.infer(n.Key, scope); ok && kt != TypeString {
			c.errorf(n.Key.Loc(), "row key must be a string, got %s", kt)
		}
		return ty, true
	default:
		c.errorf(e.Loc(), "unsupported expression %s", ast.Print(e))
		return 0, false
	}
}

func (c *bodyChecker) checkWrite(w *ast.Write, scope map[string]Type) {
	cols, ok := c.tables[w.Table]
	if !ok {
		c.errorf(w.Pos, "unknown table %q", w.Table)
		return
	}
	if kt, ok := c.infer(w.Key, scope); ok && kt != TypeString {
		c.errorf(w.Key.Loc(), "row key must be a string, got %s", kt)
	}
	seen := make(map[string]bool, len(w.Cols))
	for _, cv := range w.Cols {
		want, ok := cols[cv.Col]
		if !ok {
			c.errorf(w.Pos, "table %q has no column %q", w.Table, cv.Col)
			continue
		}
		if seen[cv.Col] {
			c.errorf(w.Pos, "column %q written twice", cv.Col)
		}
		seen[cv.Col] = true
		if got, ok := c.infer(cv.Value, scope); ok && got != want {
			c.errorf(cv.Value.Loc(), "column %q has type %s but value is %s", cv.Col, want, got)
		}
	}
	// invariant analysis substitutes written values per column, so partial
	// rows are rejected rather than guessed at
	for col := range cols {
		if !seen[col] {
			c.errorf(w.Pos, "write to %q must cover column %q", w.Table, col)
		}
	}
}

// inferApp types a built-in operator application.
func (c *bodyChecker) inferApp(app *ast.App, scope map[string]Type) (Type, bool) {
	argTypes := make([]Type, len(app.Args))
	for i, a := range app.Args {
		ty, ok := c.infer(a, scope)
		if !ok {
			return 0, false
		}
		argTypes[i] = ty
	}

	switch app.Op {
	case "+", "-", "*", "/":
		if app.Op == "-" && len(app.Args) == 1 {
			if !argTypes[0].Numeric() {
				c.errorf(app.Pos, "negation requires a numeric operand, got %s", argTypes[0])
				return 0, false
			}
			return argTypes[0], true
		}
		if len(app.Args) != 2 {
			c.errorf(app.Pos, "%s requires two operands", app.Op)
			return 0, false
		}
		if !argTypes[0].Numeric() || argTypes[0] != argTypes[1] {
			c.errorf(app.Pos, "%s requires matching numeric operands, got %s and %s", app.Op, argTypes[0], argTypes[1])
			return 0, false
		}
		return argTypes[0], true
	case "mod":
		if len(app.Args) != 2 || argTypes[0] != TypeInteger || argTypes[1] != TypeInteger {
			c.errorf(app.Pos, "mod requires two integer operands")
			return 0, false
		}
		return TypeInteger, true
	case "abs":
		if len(app.Args) != 1 || !argTypes[0].Numeric() {
			c.errorf(app.Pos, "abs requires one numeric operand")
			return 0, false
		}
		return argTypes[0], true
	case "=", "!=":
		if len(app.Args) != 2 || argTypes[0] != argTypes[1] {
			c.errorf(app.Pos, "%s requires two operands of the same type", app.Op)
			return 0, false
		}
		return TypeBool, true
	case "<", "<=", ">", ">=":
		if len(app.Args) != 2 || argTypes[0] != argTypes[1] {
			c.errorf(app.Pos, "%s requires two operands of the same type", app.Op)
			return 0, false
		}
		if !argTypes[0].Numeric() && argTypes[0] != TypeString && argTypes[0] != TypeTime {
			c.errorf(app.Pos, "%s is not defined on %s", app.Op, argTypes[0])
			return 0, false
		}
		return TypeBool, true
	case "and", "or":
		if len(app.Args) < 2 {
			c.errorf(app.Pos, "%s requires at least two operands", app.Op)
			return 0, false
		}
		for i, ty := range argTypes {
			if ty != TypeBool {
				c.errorf(app.Args[i].Loc(), "%s operands must be bool, got %s", app.Op, ty)
				return 0, false
			}
		}
		return TypeBool, true
	case "not":
		if len(app.Args) != 1 || argTypes[0] != TypeBool {
			c.errorf(app.Pos, "not requires one bool operand")
			return 0, false
		}
		return TypeBool, true
	default:
		c.errorf(app.Pos, "unknown operator %q", app.Op)
		return 0, false
	}
}
