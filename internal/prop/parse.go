package prop

import (
	"fmt"
	"strconv"

	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/checker"
)

// ParseError is a malformed property or invariant expression.
type ParseError struct {
	Pos ast.Loc
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func errAt(pos ast.Loc, format string, args ...interface{}) error {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

type context int

const (
	ctxProperty context = iota
	ctxInvariant
)

// ParseCheck parses one property expression against the function's
// environment and the module's table environment. The goal is derived from
// the syntactic wrapper: (valid e) proves e for all inputs, (satisfiable e)
// seeks a witness, and a bare expression defaults to validation. Variables
// the check introduces itself (quantifier bindings) are allocated
// identifiers starting at the environment's current length.
func ParseCheck(tables checker.TableEnv, env *checker.Env, node ast.SNode) (Check, error) {
	goal := Validation
	body := node
	switch node.Head() {
	case "valid":
		if len(node.Items) != 2 {
			return Check{}, errAt(node.Pos, "valid takes exactly one expression")
		}
		body = node.Items[1]
	case "satisfiable":
		if len(node.Items) != 2 {
			return Check{}, errAt(node.Pos, "satisfiable takes exactly one expression")
		}
		goal = Satisfaction
		body = node.Items[1]
	}

	p := &exprParser{ctx: ctxProperty, tables: tables}
	expr, err := p.expr(env, body)
	if err != nil {
		return Check{}, err
	}
	if expr.Type() != checker.TypeBool {
		return Check{}, errAt(body.Pos, "property must be a boolean expression, got %s", expr.Type())
	}
	return Check{Goal: goal, Body: expr, Raw: node.String()}, nil
}

// ParseInvariant parses one invariant expression against a schema's field
// types. Each field becomes a typed variable at its declared type.
func ParseInvariant(fields []ast.Field, fieldTypes map[string]checker.Type, node ast.SNode) (Invariant, error) {
	args := make([]checker.Arg, 0, len(fields))
	for _, f := range fields {
		args = append(args, checker.Arg{Name: f.Name, Type: fieldTypes[f.Name]})
	}
	env, err := checker.NewEnv(checker.TypeBool, args)
	if err != nil {
		return Invariant{}, errAt(node.Pos, "schema fields: %v", err)
	}

	p := &exprParser{ctx: ctxInvariant}
	expr, perr := p.expr(env, node)
	if perr != nil {
		return Invariant{}, perr
	}
	if expr.Type() != checker.TypeBool {
		return Invariant{}, errAt(node.Pos, "invariant must be a boolean expression, got %s", expr.Type())
	}
	return Invariant{Loc: node.Pos, Body: expr, Raw: node.String()}, nil
}

type exprParser struct {
	ctx    context
	tables checker.TableEnv
}

func (p *exprParser) expr(env *checker.Env, n ast.SNode) (Expr, error) {
	switch n.Kind {
	case ast.SNumber:
		if i, err := strconv.ParseInt(n.Text, 10, 64); err == nil {
			return &Lit{Val: checker.Value{Type: checker.TypeInteger, Integer: i}}, nil
		}
		f, err := strconv.ParseFloat(n.Text, 64)
		if err != nil {
			return nil, errAt(n.Pos, "malformed number %q", n.Text)
		}
		return &Lit{Val: checker.Value{Type: checker.TypeDecimal, Decimal: f}}, nil
	case ast.SString:
		return &Lit{Val: checker.Value{Type: checker.TypeString, String: n.Text}}, nil
	case ast.SBool:
		return &Lit{Val: checker.Value{Type: checker.TypeBool, Bool: n.Text == "true"}}, nil
	case ast.SSymbol:
		return p.symbol(env, n)
	case ast.SList:
		return p.form(env, n)
	default:
		return nil, errAt(n.Pos, "unexpected expression %s", n.String())
	}
}

func (p *exprParser) symbol(env *checker.Env, n ast.SNode) (Expr, error) {
	// success and abort may appear bare as well as in list form
	if p.ctx == ctxProperty {
		if n.Text == "success" {
			return &App{Op: OpSuccess, Ty: checker.TypeBool}, nil
		}
		if n.Text == "abort" {
			return &App{Op: OpAbort, Ty: checker.TypeBool}, nil
		}
	}
	if p.ctx == ctxInvariant && n.Text == "result" {
		return nil, errAt(n.Pos, "result is not available in invariants")
	}
	id, ok := env.ID(n.Text)
	if !ok {
		return nil, errAt(n.Pos, "unknown variable %q", n.Text)
	}
	return &Var{ID: id, Name: n.Text, Ty: env.TypeOf(id)}, nil
}

func (p *exprParser) form(env *checker.Env, n ast.SNode) (Expr, error) {
	head := n.Head()
	if head == "" {
		return nil, errAt(n.Pos, "expected an operator application, got %s", n.String())
	}
	op, ok := ParseOp(head)
	if !ok {
		return nil, errAt(n.Items[0].Pos, "unknown operator %q", head)
	}
	if p.ctx == ctxInvariant && !op.InInvariant() {
		return nil, errAt(n.Items[0].Pos, "%s is not available in invariants", head)
	}
	if p.ctx == ctxProperty && !op.InProperty() {
		return nil, errAt(n.Items[0].Pos, "%s is not available in properties", head)
	}
	min, max := op.Arity()
	argc := len(n.Items) - 1
	if argc < min || (max >= 0 && argc > max) {
		if min == max {
			return nil, errAt(n.Pos, "%s takes %d argument(s), got %d", head, min, argc)
		}
		return nil, errAt(n.Pos, "%s takes %d to %d arguments, got %d", head, min, max, argc)
	}

	switch op {
	case OpForall, OpExists:
		return p.quant(env, op, n)
	case OpAuthorizedBy:
		if n.Items[1].Kind != ast.SString {
			return nil, errAt(n.Items[1].Pos, "authorized-by requires a keyset name string")
		}
		return &App{Op: op, TableArg: n.Items[1].Text, Ty: checker.TypeBool}, nil
	case OpTableWritten, OpTableRead:
		if n.Items[1].Kind != ast.SSymbol {
			return nil, errAt(n.Items[1].Pos, "%s requires a table name", head)
		}
		table := n.Items[1].Text
		if _, ok := p.tables[table]; !ok {
			return nil, errAt(n.Items[1].Pos, "unknown table %q", table)
		}
		return &App{Op: op, TableArg: table, Ty: checker.TypeBool}, nil
	case OpColumnDelta:
		if n.Items[1].Kind != ast.SSymbol || n.Items[2].Kind != ast.SSymbol {
			return nil, errAt(n.Pos, "column-delta requires a table name and a column name")
		}
		table, col := n.Items[1].Text, n.Items[2].Text
		cols, ok := p.tables[table]
		if !ok {
			return nil, errAt(n.Items[1].Pos, "unknown table %q", table)
		}
		ty, ok := cols[col]
		if !ok {
			return nil, errAt(n.Items[2].Pos, "table %q has no column %q", table, col)
		}
		if !ty.Numeric() {
			return nil, errAt(n.Items[2].Pos, "column-delta requires a numeric column, %q is %s", col, ty)
		}
		return &App{Op: op, TableArg: table, ColumnArg: col, Ty: ty}, nil
	}

	args := make([]Expr, 0, argc)
	for _, item := range n.Items[1:] {
		arg, err := p.expr(env, item)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	ty, err := p.appType(op, args, n.Pos)
	if err != nil {
		return nil, err
	}
	return &App{Op: op, Args: args, Ty: ty}, nil
}

// quant parses (forall (x type) body) and (exists (x type) body), binding
// the variable at the environment's next free identifier.
func (p *exprParser) quant(env *checker.Env, op Op, n ast.SNode) (Expr, error) {
	binder := n.Items[1]
	if binder.Kind != ast.SList || len(binder.Items) != 2 ||
		binder.Items[0].Kind != ast.SSymbol || binder.Items[1].Kind != ast.SSymbol {
		return nil, errAt(binder.Pos, "%s binder must be (name type)", op.Symbol())
	}
	ty, err := checker.TranslateType(binder.Items[1].Text)
	if err != nil {
		return nil, errAt(binder.Items[1].Pos, "%v", err)
	}
	inner := env.Clone()
	id, err := inner.Bind(binder.Items[0].Text, ty)
	if err != nil {
		return nil, errAt(binder.Pos, "%v", err)
	}
	body, perr := p.expr(inner, n.Items[2])
	if perr != nil {
		return nil, perr
	}
	if body.Type() != checker.TypeBool {
		return nil, errAt(n.Items[2].Pos, "%s body must be boolean, got %s", op.Symbol(), body.Type())
	}
	return &Quant{
		Exists:  op == OpExists,
		Binding: Var{ID: id, Name: binder.Items[0].Text, Ty: ty},
		Body:    body,
	}, nil
}

// appType checks operand types and computes the application's result type.
func (p *exprParser) appType(op Op, args []Expr, pos ast.Loc) (checker.Type, error) {
	switch op {
	case OpAnd, OpOr, OpNot, OpWhen:
		for _, a := range args {
			if a.Type() != checker.TypeBool {
				return 0, errAt(pos, "%s operands must be boolean, got %s", op.Symbol(), a.Type())
			}
		}
		return checker.TypeBool, nil
	case OpEq, OpNeq:
		if args[0].Type() != args[1].Type() {
			return 0, errAt(pos, "%s operands must have the same type, got %s and %s",
				op.Symbol(), args[0].Type(), args[1].Type())
		}
		return checker.TypeBool, nil
	case OpLt, OpLeq, OpGt, OpGeq:
		ty := args[0].Type()
		if ty != args[1].Type() {
			return 0, errAt(pos, "%s operands must have the same type, got %s and %s",
				op.Symbol(), ty, args[1].Type())
		}
		if !ty.Numeric() && ty != checker.TypeString && ty != checker.TypeTime {
			return 0, errAt(pos, "%s is not defined on %s", op.Symbol(), ty)
		}
		return checker.TypeBool, nil
	case OpAdd, OpMul, OpDiv:
		if !args[0].Type().Numeric() || args[0].Type() != args[1].Type() {
			return 0, errAt(pos, "%s requires matching numeric operands", op.Symbol())
		}
		return args[0].Type(), nil
	case OpSub:
		if !args[0].Type().Numeric() {
			return 0, errAt(pos, "- requires numeric operands")
		}
		if len(args) == 2 && args[0].Type() != args[1].Type() {
			return 0, errAt(pos, "- requires matching numeric operands")
		}
		return args[0].Type(), nil
	case OpMod:
		if args[0].Type() != checker.TypeInteger || args[1].Type() != checker.TypeInteger {
			return 0, errAt(pos, "mod requires integer operands")
		}
		return checker.TypeInteger, nil
	case OpAbs:
		if !args[0].Type().Numeric() {
			return 0, errAt(pos, "abs requires a numeric operand")
		}
		return args[0].Type(), nil
	case OpSuccess, OpAbort:
		return checker.TypeBool, nil
	default:
		return 0, errAt(pos, "operator %s cannot be applied here", op.Symbol())
	}
}
