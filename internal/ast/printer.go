package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders a body expression back to source-like text for diagnostics.
func Print(e Expr) string {
	var sb strings.Builder
	printExpr(&sb, e)
	return sb.String()
}

func printExpr(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *IntLit:
		sb.WriteString(strconv.FormatInt(n.Value, 10))
	case *DecLit:
		if n.Text != "" {
			sb.WriteString(n.Text)
		} else {
			sb.WriteString(strconv.FormatFloat(n.Value, 'f', -1, 64))
		}
	case *StrLit:
		fmt.Fprintf(sb, "%q", n.Value)
	case *BoolLit:
		sb.WriteString(strconv.FormatBool(n.Value))
	case *Var:
		sb.WriteString(n.Name)
	case *If:
		sb.WriteString("(if ")
		printExpr(sb, n.Cond)
		sb.WriteString(" ")
		printExpr(sb, n.Then)
		sb.WriteString(" ")
		printExpr(sb, n.Else)
		sb.WriteString(")")
	case *Let:
		sb.WriteString("(let (")
		for i, b := range n.Bindings {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString("(" + b.Name + " ")
			printExpr(sb, b.Value)
			sb.WriteString(")")
		}
		sb.WriteString(") ")
		printExpr(sb, n.Body)
		sb.WriteString(")")
	case *Seq:
		for i, x := range n.Exprs {
			if i > 0 {
				sb.WriteString(" ")
			}
			printExpr(sb, x)
		}
	case *App:
		sb.WriteString("(" + n.Op)
		for _, a := range n.Args {
			sb.WriteString(" ")
			printExpr(sb, a)
		}
		sb.WriteString(")")
	case *Enforce:
		sb.WriteString("(enforce ")
		printExpr(sb, n.Cond)
		if n.Msg != "" {
			fmt.Fprintf(sb, " %q", n.Msg)
		}
		sb.WriteString(")")
	case *EnforceKeyset:
		sb.WriteString("(enforce-keyset ")
		printExpr(sb, n.Name)
		sb.WriteString(")")
	case *Write:
		sb.WriteString("(write " + n.Table + " ")
		printExpr(sb, n.Key)
		sb.WriteString(" {")
		for i, cv := range n.Cols {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%q: ", cv.Col)
			printExpr(sb, cv.Value)
		}
		sb.WriteString("})")
	case *Read:
		sb.WriteString("(read " + n.Table + " ")
		printExpr(sb, n.Key)
		fmt.Fprintf(sb, " %q)", n.Column)
	default:
		sb.WriteString("<expr>")
	}
}
