package lexer

// Lexer scans module source text and produces s-expression tokens
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number
	column       int  // current column number
}

// New creates a new Lexer instance
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// readChar reads the next character and advances the position
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // ASCII code for NUL
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// peekChar returns the next character without advancing the position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// skipWhitespace skips whitespace characters
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		if l.ch == '\n' {
			l.line++
			l.column = 0
		}
		l.readChar()
	}
}

// skipComment skips a line comment (; to end of line)
func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// readSymbol reads a symbol atom. Symbols may contain letters, digits and
// the punctuation that operator names use (-, +, *, /, <, >, =, !, ?, .).
func (l *Lexer) readSymbol() string {
	position := l.position
	for isSymbolChar(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads a numeric literal (integer or decimal)
func (l *Lexer) readNumber() (string, TokenType) {
	position := l.position
	tokenType := INT_LIT

	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		tokenType = FLOAT_LIT
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[position:l.position], tokenType
}

// readString reads a string literal. The opening quote has been consumed.
func (l *Lexer) readString() (string, bool) {
	result := make([]byte, 0, 16)
	for {
		l.readChar()
		if l.ch == 0 || l.ch == '\n' {
			return "", false // unterminated
		}
		if l.ch == '"' {
			break
		}
		if l.ch == '\\' {
			switch l.peekChar() {
			case 'n':
				result = append(result, '\n')
				l.readChar()
			case 't':
				result = append(result, '\t')
				l.readChar()
			case '"':
				result = append(result, '"')
				l.readChar()
			case '\\':
				result = append(result, '\\')
				l.readChar()
			default:
				result = append(result, l.ch)
			}
			continue
		}
		result = append(result, l.ch)
	}
	return string(result), true
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	for l.ch == ';' {
		l.skipComment()
		l.skipWhitespace()
	}

	tok := Token{Line: l.line, Column: l.column}

	switch l.ch {
	case 0:
		tok.Type = EOF
		return tok
	case '(':
		tok.Type, tok.Literal = LPAREN, "("
	case ')':
		tok.Type, tok.Literal = RPAREN, ")"
	case '{':
		tok.Type, tok.Literal = LBRACE, "{"
	case '}':
		tok.Type, tok.Literal = RBRACE, "}"
	case '[':
		tok.Type, tok.Literal = LBRACKET, "["
	case ']':
		tok.Type, tok.Literal = RBRACKET, "]"
	case ':':
		tok.Type, tok.Literal = COLON, ":"
	case ',':
		tok.Type, tok.Literal = COMMA, ","
	case '"':
		s, ok := l.readString()
		if !ok {
			tok.Type, tok.Literal = ILLEGAL, "unterminated string"
			return tok
		}
		tok.Type, tok.Literal = STRING_LIT, s
	default:
		if isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())) {
			lit, typ := l.readNumber()
			tok.Type, tok.Literal = typ, lit
			return tok // readNumber advanced past the literal
		}
		if isSymbolChar(l.ch) {
			sym := l.readSymbol()
			switch sym {
			case "true":
				tok.Type, tok.Literal = TRUE, sym
			case "false":
				tok.Type, tok.Literal = FALSE, sym
			default:
				tok.Type, tok.Literal = SYMBOL, sym
			}
			return tok
		}
		tok.Type, tok.Literal = ILLEGAL, string(l.ch)
	}

	l.readChar()
	return tok
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isSymbolChar(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', isDigit(ch):
		return true
	}
	switch ch {
	case '-', '+', '*', '/', '<', '>', '=', '!', '?', '.', '_', '%':
		return true
	}
	return false
}
