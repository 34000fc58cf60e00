// Package parser reads module source text into the ast module model. The
// surface syntax is s-expressions: a file holds one or more (module ...)
// forms, each containing defschema, deftable, defconst and defun
// definitions with optional (meta ...) blocks.
package parser

import (
	"strconv"

	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/diagnostic"
	"github.com/MrRacoon/pact/internal/lexer"
)

// Parser turns tokens into s-expression nodes and module definitions
type Parser struct {
	l     *lexer.Lexer
	file  string
	tok   lexer.Token
	diags *diagnostic.Diagnostics
}

// Parse parses one source file into its modules. On failure the returned
// error is a *Error carrying every diagnostic collected.
func Parse(file, src string) ([]*ast.Module, error) {
	p := &Parser{
		l:     lexer.New(src),
		file:  file,
		diags: diagnostic.New(file),
	}
	p.next()

	var mods []*ast.Module
	for p.tok.Type != lexer.EOF {
		node, ok := p.readNode()
		if !ok {
			break
		}
		if node.Head() != "module" {
			p.errorAt(node.Pos, "expected (module ...) at top level, got %s", node.String())
			continue
		}
		if m := p.buildModule(node); m != nil {
			mods = append(mods, m)
		}
	}

	if p.diags.HasErrors() {
		return nil, &Error{Diags: p.diags}
	}
	return mods, nil
}

// ParseExpr reads a single s-expression, used for check expressions
// supplied outside a module file.
func ParseExpr(file, src string) (ast.SNode, error) {
	p := &Parser{
		l:     lexer.New(src),
		file:  file,
		diags: diagnostic.New(file),
	}
	p.next()
	node, ok := p.readNode()
	if !ok && !p.diags.HasErrors() {
		p.errorAt(p.pos(), "expected an expression")
	}
	if p.diags.HasErrors() {
		return ast.SNode{}, &Error{Diags: p.diags}
	}
	return node, nil
}

func (p *Parser) next() {
	p.tok = p.l.NextToken()
}

func (p *Parser) errorAt(pos ast.Loc, format string, args ...interface{}) {
	p.diags.Errorf(pos.Line, pos.Col, format, args...)
}

func (p *Parser) pos() ast.Loc {
	return ast.Loc{File: p.file, Line: p.tok.Line, Col: p.tok.Column}
}

// readNode reads one s-expression node from the token stream.
func (p *Parser) readNode() (ast.SNode, bool) {
	pos := p.pos()
	switch p.tok.Type {
	case lexer.LPAREN:
		p.next()
		node := ast.SNode{Kind: ast.SList, Pos: pos}
		for p.tok.Type != lexer.RPAREN {
			if p.tok.Type == lexer.EOF {
				p.errorAt(pos, "unterminated list")
				return node, false
			}
			item, ok := p.readNode()
			if !ok {
				return node, false
			}
			node.Items = append(node.Items, item)
		}
		p.next() // consume ')'
		return node, true
	case lexer.LBRACE:
		return p.readObject(pos)
	case lexer.LBRACKET:
		// bracketed lists are plain lists, accepted for invariant/property
		// metadata written in collection style
		p.next()
		node := ast.SNode{Kind: ast.SList, Pos: pos}
		for p.tok.Type != lexer.RBRACKET {
			if p.tok.Type == lexer.EOF {
				p.errorAt(pos, "unterminated list")
				return node, false
			}
			item, ok := p.readNode()
			if !ok {
				return node, false
			}
			node.Items = append(node.Items, item)
		}
		p.next()
		return node, true
	case lexer.SYMBOL:
		node := ast.SNode{Kind: ast.SSymbol, Pos: pos, Text: p.tok.Literal}
		p.next()
		return node, true
	case lexer.STRING_LIT:
		node := ast.SNode{Kind: ast.SString, Pos: pos, Text: p.tok.Literal}
		p.next()
		return node, true
	case lexer.INT_LIT, lexer.FLOAT_LIT:
		node := ast.SNode{Kind: ast.SNumber, Pos: pos, Text: p.tok.Literal}
		p.next()
		return node, true
	case lexer.TRUE, lexer.FALSE:
		node := ast.SNode{Kind: ast.SBool, Pos: pos, Text: p.tok.Literal}
		p.next()
		return node, true
	default:
		p.errorAt(pos, "unexpected token %q", p.tok.Literal)
		p.next()
		return ast.SNode{Pos: pos}, false
	}
}

// readObject reads a braces object: {"key": value, ...}
func (p *Parser) readObject(pos ast.Loc) (ast.SNode, bool) {
	p.next() // consume '{'
	node := ast.SNode{Kind: ast.SObject, Pos: pos}
	for p.tok.Type != lexer.RBRACE {
		if p.tok.Type == lexer.EOF {
			p.errorAt(pos, "unterminated object")
			return node, false
		}
		if p.tok.Type != lexer.STRING_LIT {
			p.errorAt(p.pos(), "object keys must be strings, got %q", p.tok.Literal)
			return node, false
		}
		key := ast.SNode{Kind: ast.SString, Pos: p.pos(), Text: p.tok.Literal}
		p.next()
		if p.tok.Type != lexer.COLON {
			p.errorAt(p.pos(), "expected ':' after object key %q", key.Text)
			return node, false
		}
		p.next()
		val, ok := p.readNode()
		if !ok {
			return node, false
		}
		node.Items = append(node.Items, key, val)
		if p.tok.Type == lexer.COMMA {
			p.next()
		}
	}
	p.next() // consume '}'
	return node, true
}

// buildModule converts a (module name defs...) node into an ast.Module.
func (p *Parser) buildModule(node ast.SNode) *ast.Module {
	if len(node.Items) < 2 || node.Items[1].Kind != ast.SSymbol {
		p.errorAt(node.Pos, "module requires a name")
		return nil
	}
	m := &ast.Module{Name: node.Items[1].Text, Pos: node.Pos}
	for _, item := range node.Items[2:] {
		switch item.Head() {
		case "use":
			if len(item.Items) != 2 || item.Items[1].Kind != ast.SSymbol {
				p.errorAt(item.Pos, "use requires a module name")
				continue
			}
			m.Imports = append(m.Imports, item.Items[1].Text)
		case "defschema":
			if d := p.buildSchema(item); d != nil {
				m.Defs = append(m.Defs, d)
			}
		case "deftable":
			if d := p.buildTable(item); d != nil {
				m.Defs = append(m.Defs, d)
			}
		case "defconst":
			if d := p.buildConst(item); d != nil {
				m.Defs = append(m.Defs, d)
			}
		case "defun":
			if d := p.buildFun(item); d != nil {
				m.Defs = append(m.Defs, d)
			}
		default:
			p.errorAt(item.Pos, "unexpected form %q in module %s", item.Head(), m.Name)
		}
	}
	return m
}

// buildMeta converts (meta (key value)...) into a Meta map.
func (p *Parser) buildMeta(node ast.SNode) ast.Meta {
	meta := ast.Meta{}
	for _, item := range node.Items[1:] {
		if item.Kind != ast.SList || len(item.Items) != 2 || item.Items[0].Kind != ast.SSymbol {
			p.errorAt(item.Pos, "meta entries must be (key value) pairs")
			continue
		}
		meta[item.Items[0].Text] = item.Items[1]
	}
	return meta
}

// buildSchema converts (defschema name (col type)... [meta]).
func (p *Parser) buildSchema(node ast.SNode) *ast.Def {
	if len(node.Items) < 2 || node.Items[1].Kind != ast.SSymbol {
		p.errorAt(node.Pos, "defschema requires a name")
		return nil
	}
	d := &ast.Def{Kind: ast.DefSchema, Name: node.Items[1].Text, Pos: node.Pos, Meta: ast.Meta{}}
	for _, item := range node.Items[2:] {
		if item.Head() == "meta" {
			d.Meta = p.buildMeta(item)
			continue
		}
		if item.Kind != ast.SList || len(item.Items) != 2 ||
			item.Items[0].Kind != ast.SSymbol || item.Items[1].Kind != ast.SSymbol {
			p.errorAt(item.Pos, "schema fields must be (name type) pairs")
			continue
		}
		d.Fields = append(d.Fields, ast.Field{
			Name: item.Items[0].Text,
			Type: item.Items[1].Text,
			Pos:  item.Pos,
		})
	}
	return d
}

// buildTable converts (deftable name schema).
func (p *Parser) buildTable(node ast.SNode) *ast.Def {
	if len(node.Items) != 3 || node.Items[1].Kind != ast.SSymbol || node.Items[2].Kind != ast.SSymbol {
		p.errorAt(node.Pos, "deftable requires a name and a schema name")
		return nil
	}
	return &ast.Def{
		Kind:       ast.DefTable,
		Name:       node.Items[1].Text,
		Pos:        node.Pos,
		Meta:       ast.Meta{},
		SchemaName: node.Items[2].Text,
	}
}

// buildConst converts (defconst name value [meta]).
func (p *Parser) buildConst(node ast.SNode) *ast.Def {
	if len(node.Items) < 3 || node.Items[1].Kind != ast.SSymbol {
		p.errorAt(node.Pos, "defconst requires a name and a value")
		return nil
	}
	d := &ast.Def{Kind: ast.DefConst, Name: node.Items[1].Text, Pos: node.Pos, Meta: ast.Meta{}}
	d.Value = p.buildExpr(node.Items[2])
	if len(node.Items) > 3 && node.Items[3].Head() == "meta" {
		d.Meta = p.buildMeta(node.Items[3])
	}
	return d
}

// buildFun converts (defun name ((arg type)...) returntype [meta] body).
func (p *Parser) buildFun(node ast.SNode) *ast.Def {
	if len(node.Items) < 5 || node.Items[1].Kind != ast.SSymbol {
		p.errorAt(node.Pos, "defun requires a name, arguments, return type and body")
		return nil
	}
	d := &ast.Def{Kind: ast.DefFun, Name: node.Items[1].Text, Pos: node.Pos, Meta: ast.Meta{}}

	params := node.Items[2]
	if params.Kind != ast.SList {
		p.errorAt(params.Pos, "defun %s: arguments must be a list", d.Name)
		return nil
	}
	for _, pn := range params.Items {
		if pn.Kind != ast.SList || len(pn.Items) != 2 ||
			pn.Items[0].Kind != ast.SSymbol || pn.Items[1].Kind != ast.SSymbol {
			p.errorAt(pn.Pos, "defun %s: arguments must be (name type) pairs", d.Name)
			continue
		}
		d.Params = append(d.Params, ast.Param{
			Name: pn.Items[0].Text,
			Type: pn.Items[1].Text,
			Pos:  pn.Pos,
		})
	}

	if node.Items[3].Kind != ast.SSymbol {
		p.errorAt(node.Items[3].Pos, "defun %s: return type must be a type name", d.Name)
		return nil
	}
	d.ReturnType = node.Items[3].Text

	rest := node.Items[4:]
	if rest[0].Head() == "meta" {
		d.Meta = p.buildMeta(rest[0])
		rest = rest[1:]
	}
	switch len(rest) {
	case 0:
		p.errorAt(node.Pos, "defun %s: missing body", d.Name)
		return nil
	case 1:
		d.Body = p.buildExpr(rest[0])
	default:
		seq := &ast.Seq{Pos: rest[0].Pos}
		for _, bn := range rest {
			seq.Exprs = append(seq.Exprs, p.buildExpr(bn))
		}
		d.Body = seq
	}
	return d
}

// buildExpr converts an s-expression node into a body expression.
func (p *Parser) buildExpr(node ast.SNode) ast.Expr {
	switch node.Kind {
	case ast.SNumber:
		if i, err := strconv.ParseInt(node.Text, 10, 64); err == nil {
			return &ast.IntLit{Value: i, Pos: node.Pos}
		}
		f, err := strconv.ParseFloat(node.Text, 64)
		if err != nil {
			p.errorAt(node.Pos, "malformed number %q", node.Text)
			return nil
		}
		return &ast.DecLit{Value: f, Text: node.Text, Pos: node.Pos}
	case ast.SString:
		return &ast.StrLit{Value: node.Text, Pos: node.Pos}
	case ast.SBool:
		return &ast.BoolLit{Value: node.Text == "true", Pos: node.Pos}
	case ast.SSymbol:
		return &ast.Var{Name: node.Text, Pos: node.Pos}
	case ast.SList:
		return p.buildForm(node)
	default:
		p.errorAt(node.Pos, "unexpected expression %s", node.String())
		return nil
	}
}

func (p *Parser) buildForm(node ast.SNode) ast.Expr {
	head := node.Head()
	switch head {
	case "if":
		if len(node.Items) != 4 {
			p.errorAt(node.Pos, "if requires a condition and two branches")
			return nil
		}
		return &ast.If{
			Cond: p.buildExpr(node.Items[1]),
			Then: p.buildExpr(node.Items[2]),
			Else: p.buildExpr(node.Items[3]),
			Pos:  node.Pos,
		}
	case "let":
		if len(node.Items) != 3 || node.Items[1].Kind != ast.SList {
			p.errorAt(node.Pos, "let requires a binding list and a body")
			return nil
		}
		l := &ast.Let{Pos: node.Pos}
		for _, bn := range node.Items[1].Items {
			if bn.Kind != ast.SList || len(bn.Items) != 2 || bn.Items[0].Kind != ast.SSymbol {
				p.errorAt(bn.Pos, "let bindings must be (name value) pairs")
				continue
			}
			l.Bindings = append(l.Bindings, ast.Binding{
				Name:  bn.Items[0].Text,
				Value: p.buildExpr(bn.Items[1]),
				Pos:   bn.Pos,
			})
		}
		l.Body = p.buildExpr(node.Items[2])
		return l
	case "enforce":
		if len(node.Items) != 2 && len(node.Items) != 3 {
			p.errorAt(node.Pos, "enforce requires a condition and an optional message")
			return nil
		}
		e := &ast.Enforce{Cond: p.buildExpr(node.Items[1]), Pos: node.Pos}
		if len(node.Items) == 3 {
			if node.Items[2].Kind != ast.SString {
				p.errorAt(node.Items[2].Pos, "enforce message must be a string")
				return nil
			}
			e.Msg = node.Items[2].Text
		}
		return e
	case "enforce-keyset":
		if len(node.Items) != 2 {
			p.errorAt(node.Pos, "enforce-keyset requires a keyset name")
			return nil
		}
		return &ast.EnforceKeyset{Name: p.buildExpr(node.Items[1]), Pos: node.Pos}
	case "write":
		if len(node.Items) != 4 || node.Items[1].Kind != ast.SSymbol || node.Items[3].Kind != ast.SObject {
			p.errorAt(node.Pos, "write requires a table, a key and a column object")
			return nil
		}
		w := &ast.Write{Table: node.Items[1].Text, Key: p.buildExpr(node.Items[2]), Pos: node.Pos}
		obj := node.Items[3]
		for i := 0; i+1 < len(obj.Items); i += 2 {
			w.Cols = append(w.Cols, ast.ColValue{
				Col:   obj.Items[i].Text,
				Value: p.buildExpr(obj.Items[i+1]),
			})
		}
		return w
	case "read":
		if len(node.Items) != 4 || node.Items[1].Kind != ast.SSymbol || node.Items[3].Kind != ast.SString {
			p.errorAt(node.Pos, "read requires a table, a key and a column name")
			return nil
		}
		return &ast.Read{
			Table:  node.Items[1].Text,
			Key:    p.buildExpr(node.Items[2]),
			Column: node.Items[3].Text,
			Pos:    node.Pos,
		}
	case "":
		p.errorAt(node.Pos, "expected an operator application, got %s", node.String())
		return nil
	default:
		app := &ast.App{Op: head, Pos: node.Pos}
		for _, arg := range node.Items[1:] {
			app.Args = append(app.Args, p.buildExpr(arg))
		}
		return app
	}
}
