package dsl

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var scriptParser = participle.MustBuild[Document](
	participle.Lexer(scriptLexer),
	participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
)

// Document is the root AST node for an export script.
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'export' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section represents a top-level section (meta/options/job).
type Section struct {
	Meta    *MetaSection    `parser:"  @@"`
	Options *OptionsSection `parser:"| @@"`
	Job     *JobSection     `parser:"| @@"`
}

// Kind returns the human-readable section type.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Options != nil:
		return "options"
	case s.Job != nil:
		return s.Job.Policy
	default:
		return "unknown"
	}
}

// MetaSection captures document metadata assignments.
type MetaSection struct {
	Block *Block `parser:"'meta' @@"`
}

// OptionsSection holds render options shared by every job in the script.
type OptionsSection struct {
	Block *Block `parser:"'options' @@"`
}

// JobSection describes one exported document: the layout policy, an optional
// output file name and the surfaces to capture.
type JobSection struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Policy string         `parser:"@( 'paginated' | 'composite' | 'two-page' )"`
	File   *StringLiteral `parser:"@String?"`
	Block  *Block         `parser:"@@"`
}

// Block is a delimited list of statements.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement inside a block: `key: value` or `name arg arg ...`.
type Statement struct {
	Assignment *Assignment `parser:"  @@"`
	Command    *Command    `parser:"| @@"`
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' Newline* @@"`
}

// Command is a named statement with free-form arguments, e.g.
// `section analysis title "Analysis" margin-top 4mm`.
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

// Value represents generic property values.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Array  *ArrayValue    `parser:"| @@"`
	Object *InlineObject  `parser:"| @@"`
	Expr   *Expression    `parser:"| @@"`
}

// ArrayValue captures `[ ... ]` expressions.
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// InlineObject captures `{ key: value }` inline maps.
type InlineObject struct {
	Entries []*Assignment `parser:"'{' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* '}'"`
}

// Parse parses an export script from an io.Reader.
func Parse(r io.Reader) (*Document, error) {
	return scriptParser.Parse("", r)
}

// ParseString parses an export script from a string.
func ParseString(input string) (*Document, error) {
	return scriptParser.ParseString("", input)
}

// ParseFile parses the export script at path; positions in errors carry the file name.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开导出脚本 %s: %w", path, err)
	}
	defer f.Close()
	return scriptParser.Parse(path, f)
}
