// Package policy implements per-fleet standing orders: ordered
// condition→action rules evaluated every tick against a read-only snapshot
// of derived fleet state. Conditions are boolean expressions over named
// variables with AND/OR/NOT and numeric comparisons; no calls, no side
// effects.
package policy

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType represents the type of a token in a condition expression.
type TokenType int

const (
	TokenEOF TokenType = iota

	// Literals
	TokenNumber
	TokenIdent
	TokenTrue
	TokenFalse

	// Operators
	TokenAnd       // AND / &&
	TokenOr        // OR / ||
	TokenNot       // NOT / !
	TokenEqual     // ==
	TokenNotEqual  // !=
	TokenLess      // <
	TokenLessEq    // <=
	TokenGreater   // >
	TokenGreaterEq // >=

	TokenLParen
	TokenRParen
)

// Token is one lexical unit of a condition expression.
type Token struct {
	Type TokenType
	Text string
	Num  float64
	Pos  int
}

// lex splits a condition expression into tokens.
func lex(input string) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(input) {
		c := rune(input[i])

		switch {
		case unicode.IsSpace(c):
			i++

		case c == '(':
			tokens = append(tokens, Token{Type: TokenLParen, Text: "(", Pos: i})
			i++
		case c == ')':
			tokens = append(tokens, Token{Type: TokenRParen, Text: ")", Pos: i})
			i++

		case c == '&':
			if i+1 < len(input) && input[i+1] == '&' {
				tokens = append(tokens, Token{Type: TokenAnd, Text: "&&", Pos: i})
				i += 2
			} else {
				return nil, fmt.Errorf("unexpected '&' at %d", i)
			}
		case c == '|':
			if i+1 < len(input) && input[i+1] == '|' {
				tokens = append(tokens, Token{Type: TokenOr, Text: "||", Pos: i})
				i += 2
			} else {
				return nil, fmt.Errorf("unexpected '|' at %d", i)
			}

		case c == '=':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, Token{Type: TokenEqual, Text: "==", Pos: i})
				i += 2
			} else {
				return nil, fmt.Errorf("unexpected '=' at %d (use '==')", i)
			}
		case c == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, Token{Type: TokenNotEqual, Text: "!=", Pos: i})
				i += 2
			} else {
				tokens = append(tokens, Token{Type: TokenNot, Text: "!", Pos: i})
				i++
			}
		case c == '<':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, Token{Type: TokenLessEq, Text: "<=", Pos: i})
				i += 2
			} else {
				tokens = append(tokens, Token{Type: TokenLess, Text: "<", Pos: i})
				i++
			}
		case c == '>':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, Token{Type: TokenGreaterEq, Text: ">=", Pos: i})
				i += 2
			} else {
				tokens = append(tokens, Token{Type: TokenGreater, Text: ">", Pos: i})
				i++
			}

		case unicode.IsDigit(c) || c == '.':
			start := i
			for i < len(input) && (unicode.IsDigit(rune(input[i])) || input[i] == '.') {
				i++
			}
			text := input[start:i]
			var num float64
			if _, err := fmt.Sscanf(text, "%g", &num); err != nil {
				return nil, fmt.Errorf("bad number %q at %d", text, start)
			}
			tokens = append(tokens, Token{Type: TokenNumber, Text: text, Num: num, Pos: start})

		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(input) && (unicode.IsLetter(rune(input[i])) || unicode.IsDigit(rune(input[i])) || input[i] == '_') {
				i++
			}
			text := input[start:i]
			switch strings.ToUpper(text) {
			case "AND":
				tokens = append(tokens, Token{Type: TokenAnd, Text: text, Pos: start})
			case "OR":
				tokens = append(tokens, Token{Type: TokenOr, Text: text, Pos: start})
			case "NOT":
				tokens = append(tokens, Token{Type: TokenNot, Text: text, Pos: start})
			case "TRUE":
				tokens = append(tokens, Token{Type: TokenTrue, Text: text, Pos: start})
			case "FALSE":
				tokens = append(tokens, Token{Type: TokenFalse, Text: text, Pos: start})
			default:
				tokens = append(tokens, Token{Type: TokenIdent, Text: text, Pos: start})
			}

		default:
			return nil, fmt.Errorf("unexpected character %q at %d", c, i)
		}
	}

	tokens = append(tokens, Token{Type: TokenEOF, Pos: len(input)})
	return tokens, nil
}
