package term

import (
	"fmt"

	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/checker"
)

// VarName is the solver-level name of an environment identifier. Check
// parsing and body translation share identifier allocation, so a property
// variable and the body occurrence of the same argument render to the same
// solver symbol.
func VarName(id checker.VarID) string {
	return fmt.Sprintf("v%d", id)
}

// Error is a body expression that typechecked but has no symbolic
// translation.
type Error struct {
	Pos ast.Loc
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// TagAlloc is an auxiliary solver variable allocated during translation:
// a write's column value, a read result, an enforce outcome or a keyset
// authorization outcome. Tags with a nil Def are free; the others are
// constrained to equal their defining term. What describes the tag for
// model rendering.
type TagAlloc struct {
	ID   int
	Name string
	Ty   checker.Type
	Pos  ast.Loc
	What string
	Def  Term
}

// Write is one symbolic table write. Cond is the path condition under
// which the write executes; Cols maps every schema column to the written
// term.
type Write struct {
	Table string
	Key   Term
	Cols  map[string]Term
	Cond  Term
	Pos   ast.Loc
}

// Read is one symbolic table read. Var is the free variable standing for
// the retrieved value: nothing is assumed about prior table contents.
type Read struct {
	Table  string
	Key    Term
	Column string
	Cond   Term
	Var    SymVar
	Pos    ast.Loc
}

// Keyset is one keyset enforcement site. Var is the free boolean standing
// for the authorization outcome; Literal is the keyset name when it is
// statically known, "" otherwise.
type Keyset struct {
	Name    Term
	Cond    Term
	Var     SymVar
	Literal string
	Pos     ast.Loc
}

// Translation is the symbolic form of one function body.
type Translation struct {
	Env     *checker.Env
	Result  Term
	Success Term
	Writes  []Write
	Reads   []Read
	Keysets []Keyset
	Tags    []TagAlloc
}

// Translate builds the symbolic translation of a typechecked body. The
// environment is allocated exactly as check parsing allocates it: result
// at id 0, arguments in declaration order after it.
func Translate(sig *checker.FunSig, tables checker.TableEnv, body ast.Expr) (*Translation, error) {
	env, err := checker.NewEnv(sig.Result, sig.Args)
	if err != nil {
		return nil, &Error{Pos: body.Loc(), Msg: err.Error()}
	}
	t := &translator{
		tables: tables,
		tr:     &Translation{Env: env},
	}
	scope := make(map[string]scoped, len(sig.Args))
	for _, a := range sig.Args {
		id, _ := env.ID(a.Name)
		scope[a.Name] = scoped{SymVar{Name: VarName(id), Ty: a.Type}, a.Type}
	}
	result, _, err := t.expr(body, scope, BoolLit(true))
	if err != nil {
		return nil, err
	}
	t.tr.Result = result
	t.tr.Success = And(t.success...)
	return t.tr, nil
}

type scoped struct {
	term Term
	ty   checker.Type
}

type translator struct {
	tables  checker.TableEnv
	tr      *Translation
	success []Term
	nextTag int
}

func (t *translator) tag(pos ast.Loc, ty checker.Type, what string, def Term) SymVar {
	id := t.nextTag
	t.nextTag++
	v := SymVar{Name: fmt.Sprintf("t%d", id), Ty: ty}
	t.tr.Tags = append(t.tr.Tags, TagAlloc{
		ID: id, Name: v.Name, Ty: ty, Pos: pos, What: what, Def: def,
	})
	return v
}

// expr translates one body expression under a path condition, returning
// the term and its semantic type.
func (t *translator) expr(e ast.Expr, scope map[string]scoped, path Term) (Term, checker.Type, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return IntLit(n.Value), checker.TypeInteger, nil
	case *ast.DecLit:
		return DecLit(n.Value), checker.TypeDecimal, nil
	case *ast.StrLit:
		return StrLit(n.Value), checker.TypeString, nil
	case *ast.BoolLit:
		return BoolLit(n.Value), checker.TypeBool, nil
	case *ast.Var:
		s, ok := scope[n.Name]
		if !ok {
			return nil, 0, &Error{Pos: n.Pos, Msg: fmt.Sprintf("unbound variable %q", n.Name)}
		}
		return s.term, s.ty, nil
	case *ast.If:
		return t.ifExpr(n, scope, path)
	case *ast.Let:
		inner := make(map[string]scoped, len(scope)+len(n.Bindings))
		for k, v := range scope {
			inner[k] = v
		}
		for _, b := range n.Bindings {
			val, ty, err := t.expr(b.Value, inner, path)
			if err != nil {
				return nil, 0, err
			}
			inner[b.Name] = scoped{val, ty}
		}
		return t.expr(n.Body, inner, path)
	case *ast.Seq:
		var last Term = BoolLit(true)
		var ty checker.Type = checker.TypeBool
		for _, x := range n.Exprs {
			v, xty, err := t.expr(x, scope, path)
			if err != nil {
				return nil, 0, err
			}
			last, ty = v, xty
		}
		return last, ty, nil
	case *ast.App:
		return t.app(n, scope, path)
	case *ast.Enforce:
		cond, _, err := t.expr(n.Cond, scope, path)
		if err != nil {
			return nil, 0, err
		}
		v := t.tag(n.Pos, checker.TypeBool, fmt.Sprintf("enforce at %s", n.Pos), cond)
		t.success = append(t.success, Implies(path, v))
		return BoolLit(true), checker.TypeBool, nil
	case *ast.EnforceKeyset:
		return t.enforceKeyset(n, scope, path)
	case *ast.Write:
		return t.write(n, scope, path)
	case *ast.Read:
		return t.read(n, scope, path)
	default:
		return nil, 0, &Error{Pos: e.Loc(), Msg: fmt.Sprintf("no symbolic translation for %s", ast.Print(e))}
	}
}

func (t *translator) ifExpr(n *ast.If, scope map[string]scoped, path Term) (Term, checker.Type, error) {
	cond, _, err := t.expr(n.Cond, scope, path)
	if err != nil {
		return nil, 0, err
	}
	thenT, ty, err := t.expr(n.Then, scope, And(path, cond))
	if err != nil {
		return nil, 0, err
	}
	elseT, _, err := t.expr(n.Else, scope, And(path, Not(cond)))
	if err != nil {
		return nil, 0, err
	}
	return Ite(cond, thenT, elseT), ty, nil
}

func (t *translator) enforceKeyset(n *ast.EnforceKeyset, scope map[string]scoped, path Term) (Term, checker.Type, error) {
	name, _, err := t.expr(n.Name, scope, path)
	if err != nil {
		return nil, 0, err
	}
	literal := ""
	if s, ok := name.(StrLit); ok {
		literal = string(s)
	}
	v := t.tag(n.Pos, checker.TypeBool, fmt.Sprintf("keyset enforcement at %s", n.Pos), nil)
	t.tr.Keysets = append(t.tr.Keysets, Keyset{
		Name: name, Cond: path, Var: v, Literal: literal, Pos: n.Pos,
	})
	t.success = append(t.success, Implies(path, v))
	return BoolLit(true), checker.TypeBool, nil
}

func (t *translator) write(n *ast.Write, scope map[string]scoped, path Term) (Term, checker.Type, error) {
	key, _, err := t.expr(n.Key, scope, path)
	if err != nil {
		return nil, 0, err
	}
	cols := make(map[string]Term, len(n.Cols))
	for _, cv := range n.Cols {
		val, ty, err := t.expr(cv.Value, scope, path)
		if err != nil {
			return nil, 0, err
		}
		v := t.tag(cv.Value.Loc(), ty, fmt.Sprintf("%s.%s written at %s", n.Table, cv.Col, n.Pos), val)
		cols[cv.Col] = v
	}
	t.tr.Writes = append(t.tr.Writes, Write{
		Table: n.Table, Key: key, Cols: cols, Cond: path, Pos: n.Pos,
	})
	return StrLit("Write succeeded"), checker.TypeString, nil
}

func (t *translator) read(n *ast.Read, scope map[string]scoped, path Term) (Term, checker.Type, error) {
	key, _, err := t.expr(n.Key, scope, path)
	if err != nil {
		return nil, 0, err
	}
	ty := t.tables[n.Table][n.Column]
	v := t.tag(n.Pos, ty, fmt.Sprintf("%s.%s read at %s", n.Table, n.Column, n.Pos), nil)
	t.tr.Reads = append(t.tr.Reads, Read{
		Table: n.Table, Key: key, Column: n.Column, Cond: path, Var: v, Pos: n.Pos,
	})
	return v, ty, nil
}

func (t *translator) app(n *ast.App, scope map[string]scoped, path Term) (Term, checker.Type, error) {
	args := make([]Term, len(n.Args))
	var tys []checker.Type
	for i, a := range n.Args {
		arg, ty, err := t.expr(a, scope, path)
		if err != nil {
			return nil, 0, err
		}
		args[i] = arg
		tys = append(tys, ty)
	}

	switch n.Op {
	case "+", "*":
		return App{Sym: n.Op, Args: args}, tys[0], nil
	case "-":
		return App{Sym: "-", Args: args}, tys[0], nil
	case "/":
		sym := "/"
		if tys[0] == checker.TypeInteger {
			sym = "div"
		}
		return App{Sym: sym, Args: args}, tys[0], nil
	case "mod":
		return App{Sym: "mod", Args: args}, checker.TypeInteger, nil
	case "abs":
		return App{Sym: "abs", Args: args}, tys[0], nil
	case "=":
		return Eq(args[0], args[1]), checker.TypeBool, nil
	case "!=":
		return Not(Eq(args[0], args[1])), checker.TypeBool, nil
	case "<", "<=", ">", ">=":
		return compare(n.Op, args, tys[0]), checker.TypeBool, nil
	case "and":
		return And(args...), checker.TypeBool, nil
	case "or":
		return Or(args...), checker.TypeBool, nil
	case "not":
		return Not(args[0]), checker.TypeBool, nil
	default:
		return nil, 0, &Error{Pos: n.Pos, Msg: fmt.Sprintf("no symbolic translation for operator %q", n.Op)}
	}
}

// compare builds a comparison; strings use the str.< family, everything
// else the arithmetic orderings.
func compare(op string, args []Term, ty checker.Type) Term {
	if ty != checker.TypeString {
		return App{Sym: op, Args: args}
	}
	switch op {
	case "<":
		return App{Sym: "str.<", Args: args}
	case "<=":
		return App{Sym: "str.<=", Args: args}
	case ">":
		return App{Sym: "str.<", Args: []Term{args[1], args[0]}}
	default:
		return App{Sym: "str.<=", Args: []Term{args[1], args[0]}}
	}
}
