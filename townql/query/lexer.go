package query

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	qerrors "github.com/townql/townql/townql/errors"
)

// Token represents a lexical token
type Token struct {
	Kind  TokenKind
	Value string
	Num   float64
	Pos   int // character offset of the first rune
}

// TokenKind is the type of token
type TokenKind int

const (
	TokIdent TokenKind = iota
	TokString
	TokNumber
	TokEq
	TokNe
	TokLt
	TokLte
	TokGt
	TokGte
	TokOf
	TokAnd
	TokOr
	TokOrder
	TokBy
	TokAsc
	TokDesc
	TokLimit
	TokEOF
)

func (k TokenKind) String() string {
	switch k {
	case TokIdent:
		return "Ident"
	case TokString:
		return "String"
	case TokNumber:
		return "Number"
	case TokEq:
		return "=="
	case TokNe:
		return "!="
	case TokLt:
		return "<"
	case TokLte:
		return "<="
	case TokGt:
		return ">"
	case TokGte:
		return ">="
	case TokOf:
		return "OF"
	case TokAnd:
		return "AND"
	case TokOr:
		return "OR"
	case TokOrder:
		return "ORDER"
	case TokBy:
		return "BY"
	case TokAsc:
		return "ASC"
	case TokDesc:
		return "DESC"
	case TokLimit:
		return "LIMIT"
	case TokEOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

// IsOperator reports whether the token is a comparison operator, OF included.
func (k TokenKind) IsOperator() bool {
	switch k {
	case TokEq, TokNe, TokLt, TokLte, TokGt, TokGte, TokOf:
		return true
	}
	return false
}

// IsConnector reports whether the token joins two conditions.
func (k TokenKind) IsConnector() bool {
	return k == TokAnd || k == TokOr
}

// IsKeyword reports whether the token is one of the reserved words.
func (k TokenKind) IsKeyword() bool {
	return k >= TokOf && k <= TokLimit
}

// IsValue reports whether the token can stand as a condition value.
func (k TokenKind) IsValue() bool {
	return k == TokIdent || k == TokString || k == TokNumber
}

// describe renders a token for error messages.
func (t Token) describe() string {
	switch t.Kind {
	case TokEOF:
		return "end of query"
	case TokString:
		return strconv.Quote(t.Value)
	default:
		return "'" + t.Value + "'"
	}
}

var keywords = map[string]TokenKind{
	"OF":    TokOf,
	"AND":   TokAnd,
	"OR":    TokOr,
	"ORDER": TokOrder,
	"BY":    TokBy,
	"ASC":   TokAsc,
	"DESC":  TokDesc,
	"LIMIT": TokLimit,
}

var numberRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)

// Lexer tokenizes a query string
type Lexer struct {
	input []rune
	pos   int
}

// NewLexer creates a new lexer for the input string
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: []rune(input),
		pos:   0,
	}
}

// Lex tokenizes the entire input
func Lex(input string) ([]Token, error) {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok, err := lexer.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			break
		}
	}

	return tokens, nil
}

// Next returns the next token
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Kind: TokEOF, Pos: l.pos}, nil
	}

	start := l.pos
	ch := l.input[l.pos]

	switch ch {
	case '=':
		if l.peek(1) == '=' {
			l.pos += 2
			return Token{Kind: TokEq, Value: "==", Pos: start}, nil
		}
		return Token{}, qerrors.LexError(start, "unexpected '=' at position %d (use '==' for equality)", start)
	case '!':
		if l.peek(1) == '=' {
			l.pos += 2
			return Token{Kind: TokNe, Value: "!=", Pos: start}, nil
		}
		return Token{}, qerrors.LexError(start, "unexpected '!' at position %d (use '!=' for inequality)", start)
	case '<':
		if l.peek(1) == '=' {
			l.pos += 2
			return Token{Kind: TokLte, Value: "<=", Pos: start}, nil
		}
		l.pos++
		return Token{Kind: TokLt, Value: "<", Pos: start}, nil
	case '>':
		if l.peek(1) == '=' {
			l.pos += 2
			return Token{Kind: TokGte, Value: ">=", Pos: start}, nil
		}
		l.pos++
		return Token{Kind: TokGt, Value: ">", Pos: start}, nil
	case '"', '\'':
		return l.scanString(ch)
	}

	if isWordStart(ch) {
		return l.scanWord()
	}

	return Token{}, qerrors.LexError(start, "unexpected character '%c' at position %d", ch, start)
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos < len(l.input) {
		return l.input[pos]
	}
	return 0
}

func (l *Lexer) scanString(quote rune) (Token, error) {
	start := l.pos
	l.pos++ // consume opening quote
	var sb strings.Builder

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == quote {
			l.pos++ // consume closing quote
			return Token{Kind: TokString, Value: sb.String(), Pos: start}, nil
		}
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos++
			switch l.input[l.pos] {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(l.input[l.pos])
			}
			l.pos++
			continue
		}
		sb.WriteRune(ch)
		l.pos++
	}

	return Token{}, qerrors.LexError(start, "unterminated string starting at position %d", start)
}

// scanWord consumes a run of word characters and classifies it as a number,
// a keyword or a plain identifier/value.
func (l *Lexer) scanWord() (Token, error) {
	start := l.pos

	for l.pos < len(l.input) && isWordChar(l.input[l.pos]) {
		l.pos++
	}

	value := string(l.input[start:l.pos])

	if numberRe.MatchString(value) {
		num, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Token{}, qerrors.LexError(start, "invalid number: %s", value)
		}
		return Token{Kind: TokNumber, Value: value, Num: num, Pos: start}, nil
	}

	if kind, ok := keywords[strings.ToUpper(value)]; ok {
		return Token{Kind: kind, Value: value, Pos: start}, nil
	}

	return Token{Kind: TokIdent, Value: value, Pos: start}, nil
}

func isWordStart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '-' || ch == '+' || ch == '.'
}

func isWordChar(ch rune) bool {
	if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
		return true
	}
	switch ch {
	case '_', '.', '@', '-', '+', '/', ':', '\'', '%', '#', '&', '?', '~':
		return true
	}
	return false
}
