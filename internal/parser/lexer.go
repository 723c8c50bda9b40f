package parser

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType identifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenInt
	TokenReal
	TokenString

	TokenEq     // ==
	TokenNe     // !=
	TokenLt     // <
	TokenGt     // >
	TokenLe     // <=
	TokenGe     // >=
	TokenAnd    // &&
	TokenOr     // ||
	TokenNot    // !
	TokenPlus   // +
	TokenMinus  // -
	TokenMul    // *
	TokenDiv    // /
	TokenMod    // %
	TokenAssign // =

	TokenQuestion // ?
	TokenColon    // :
	TokenElvis    // ?:
	TokenSafeNav  // ?.
	TokenHash     // #

	TokenSelectAll   // .?[
	TokenSelectFirst // .^[
	TokenSelectLast  // .$[
	TokenProject     // .![

	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenLCurly   // {
	TokenRCurly   // }
	TokenDot      // .
	TokenComma    // ,
)

// Token is a lexical token with its character offset in the input.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// Tokenize splits an expression into tokens, recording positions.
func Tokenize(input string) ([]Token, error) {
	var tokens []Token
	i := 0

	emit := func(t TokenType, v string, pos int) {
		tokens = append(tokens, Token{Type: t, Value: v, Pos: pos})
	}

	for i < len(input) {
		for i < len(input) && unicode.IsSpace(rune(input[i])) {
			i++
		}
		if i >= len(input) {
			break
		}

		start := i

		if i+2 < len(input) && input[i] == '.' {
			switch input[i : i+3] {
			case ".?[":
				emit(TokenSelectAll, ".?[", start)
				i += 3
				continue
			case ".^[":
				emit(TokenSelectFirst, ".^[", start)
				i += 3
				continue
			case ".$[":
				emit(TokenSelectLast, ".$[", start)
				i += 3
				continue
			case ".![":
				emit(TokenProject, ".![", start)
				i += 3
				continue
			}
		}

		if i+1 < len(input) {
			two := input[i : i+2]
			switch two {
			case "==":
				emit(TokenEq, two, start)
				i += 2
				continue
			case "!=":
				emit(TokenNe, two, start)
				i += 2
				continue
			case "<=":
				emit(TokenLe, two, start)
				i += 2
				continue
			case ">=":
				emit(TokenGe, two, start)
				i += 2
				continue
			case "&&":
				emit(TokenAnd, two, start)
				i += 2
				continue
			case "||":
				emit(TokenOr, two, start)
				i += 2
				continue
			case "?:":
				emit(TokenElvis, two, start)
				i += 2
				continue
			case "?.":
				emit(TokenSafeNav, two, start)
				i += 2
				continue
			}
		}

		switch input[i] {
		case '<':
			emit(TokenLt, "<", start)
			i++
		case '>':
			emit(TokenGt, ">", start)
			i++
		case '!':
			emit(TokenNot, "!", start)
			i++
		case '+':
			emit(TokenPlus, "+", start)
			i++
		case '-':
			emit(TokenMinus, "-", start)
			i++
		case '*':
			emit(TokenMul, "*", start)
			i++
		case '/':
			emit(TokenDiv, "/", start)
			i++
		case '%':
			emit(TokenMod, "%", start)
			i++
		case '=':
			emit(TokenAssign, "=", start)
			i++
		case '?':
			emit(TokenQuestion, "?", start)
			i++
		case ':':
			emit(TokenColon, ":", start)
			i++
		case '#':
			emit(TokenHash, "#", start)
			i++
		case '(':
			emit(TokenLParen, "(", start)
			i++
		case ')':
			emit(TokenRParen, ")", start)
			i++
		case '[':
			emit(TokenLBracket, "[", start)
			i++
		case ']':
			emit(TokenRBracket, "]", start)
			i++
		case '{':
			emit(TokenLCurly, "{", start)
			i++
		case '}':
			emit(TokenRCurly, "}", start)
			i++
		case '.':
			emit(TokenDot, ".", start)
			i++
		case ',':
			emit(TokenComma, ",", start)
			i++
		case '\'', '"':
			quote := input[i]
			i++
			var sb strings.Builder
			for i < len(input) && input[i] != quote {
				if input[i] == '\\' && i+1 < len(input) {
					sb.WriteByte(input[i+1])
					i += 2
					continue
				}
				sb.WriteByte(input[i])
				i++
			}
			if i >= len(input) {
				return nil, &ParseError{Position: start, Message: "unterminated string literal"}
			}
			i++
			emit(TokenString, sb.String(), start)
		default:
			switch {
			case unicode.IsDigit(rune(input[i])):
				isReal := false
				for i < len(input) {
					if unicode.IsDigit(rune(input[i])) {
						i++
						continue
					}
					// A dot only continues the number when a digit follows;
					// "1.?[...]" is a selection on 1, not the real 1.0.
					if input[i] == '.' && i+1 < len(input) && unicode.IsDigit(rune(input[i+1])) && !isReal {
						isReal = true
						i += 2
						continue
					}
					break
				}
				t := TokenInt
				if isReal {
					t = TokenReal
				}
				emit(t, input[start:i], start)
			case unicode.IsLetter(rune(input[i])) || input[i] == '_':
				for i < len(input) && (unicode.IsLetter(rune(input[i])) || unicode.IsDigit(rune(input[i])) || input[i] == '_') {
					i++
				}
				emit(TokenIdent, input[start:i], start)
			default:
				return nil, &ParseError{Position: start, Message: fmt.Sprintf("unexpected character %q", input[i])}
			}
		}
	}

	tokens = append(tokens, Token{Type: TokenEOF, Pos: len(input)})
	return tokens, nil
}
