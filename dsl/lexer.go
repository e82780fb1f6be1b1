package dsl

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// 导出脚本的词法规则。颜色必须排在 # 注释之前，长形式优先匹配。
var scriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Newline", Pattern: `\n+`},
	{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
	{Name: "LineComment", Pattern: `//[^\n]*`},
	{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
	{Name: "HashComment", Pattern: `#[^\n]*`},
	{Name: "Number", Pattern: `(?:\d+\.\d+|\d+)(?:pt|px|mm|cm|in|%|x)?`},
	{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
	{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:]`},
	{Name: "LBrace", Pattern: `{`},
	{Name: "RBrace", Pattern: `}`},
})

var (
	tokenNames = map[lexer.TokenType]string{}

	newlineToken = tokenType("Newline")
	lbraceToken  = tokenType("LBrace")
	rbraceToken  = tokenType("RBrace")
	symbolToken  = tokenType("Symbol")
	stringToken  = tokenType("String")
)

func init() {
	for name, tt := range scriptLexer.Symbols() {
		tokenNames[tt] = name
	}
}

func tokenType(name string) lexer.TokenType {
	tt, ok := scriptLexer.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}

// Lexeme is a single token kept verbatim, used for command arguments and
// bare expressions. String tokens carry their unquoted text in Value.
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable: one argument token, stopping at the
// end of the statement or at a block brace.
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	if endsStatement(lex.Peek()) {
		return participle.NextMatch
	}
	next, err := readLexeme(lex)
	if err != nil {
		return err
	}
	*l = next
	return nil
}

// Expression collects the raw tokens of an unquoted value such as `a4` or
// `data.region.code`. Separators inside brackets or parentheses do not end it.
type Expression struct {
	Parts []*Lexeme
}

// Parse implements participle.Parseable for Expression.
func (e *Expression) Parse(lex *lexer.PeekingLexer) error {
	depth := 0
	for {
		tok := lex.Peek()
		if tok.EOF() || (depth == 0 && endsExpression(tok)) {
			break
		}
		next, err := readLexeme(lex)
		if err != nil {
			return err
		}
		switch next.Raw {
		case "(", "[":
			depth++
		case ")", "]":
			depth = max(depth-1, 0)
		}
		e.Parts = append(e.Parts, &next)
	}
	if len(e.Parts) == 0 {
		return participle.NextMatch
	}
	return nil
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

func readLexeme(lex *lexer.PeekingLexer) (Lexeme, error) {
	tok := lex.Next()
	if tok.EOF() {
		return Lexeme{}, participle.NextMatch
	}
	out := Lexeme{Type: tokenNames[tok.Type], Value: tok.Value, Raw: tok.Value, Pos: tok.Pos}
	if out.Type == "" {
		out.Type = fmt.Sprintf("#%d", tok.Type)
	}
	if tok.Type == stringToken {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Lexeme{}, err
		}
		out.Value = unquoted
	}
	return out, nil
}

func endsStatement(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case newlineToken, lbraceToken, rbraceToken:
		return true
	case symbolToken:
		return tok.Value == ";"
	}
	return false
}

// endsExpression 在括号外遇到语句结束符或列表分隔符时结束表达式。
func endsExpression(tok *lexer.Token) bool {
	if endsStatement(tok) {
		return true
	}
	return tok.Type == symbolToken && (tok.Value == "," || tok.Value == "]")
}
