package lexer

import "fmt"

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Literals and atoms
	SYMBOL     // defun, balance, +, >=, column-delta
	INT_LIT    // 123, -4
	FLOAT_LIT  // 123.45
	STRING_LIT // "hello"
	TRUE
	FALSE

	// Delimiters
	LPAREN   // (
	RPAREN   // )
	LBRACE   // {
	RBRACE   // }
	LBRACKET // [
	RBRACKET // ]
	COLON    // :
	COMMA    // ,
)

// Token represents a single lexical token with its source position
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// String returns a human-readable representation of the token type
func (t TokenType) String() string {
	switch t {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case SYMBOL:
		return "SYMBOL"
	case INT_LIT:
		return "INT"
	case FLOAT_LIT:
		return "FLOAT"
	case STRING_LIT:
		return "STRING"
	case TRUE:
		return "TRUE"
	case FALSE:
		return "FALSE"
	case LPAREN:
		return "("
	case RPAREN:
		return ")"
	case LBRACE:
		return "{"
	case RBRACE:
		return "}"
	case LBRACKET:
		return "["
	case RBRACKET:
		return "]"
	case COLON:
		return ":"
	case COMMA:
		return ","
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}
