// Package dsl parses .reel scene templates.
//
//	scene Verse v1 {
//	  frame { dim: 50% }
//	  caption arabic rtl {
//	    text: "${verse.text_rtl}"
//	    shadow off
//	    box 60%
//	  }
//	}
//
// A block holds properties (key: value) and switches (a bare name with at most one argument).
package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	reelLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)(?:px|pt|%|x|s)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Punct", Pattern: `[][{}:;,]`},
	})

	reelParser = participle.MustBuild[Document](
		participle.Lexer(reelLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment"),
		participle.UseLookahead(2),
	)
)

// Document is the root of a scene template.
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'scene' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is one of meta, frame or caption.
type Section struct {
	Meta    *Block          `parser:"  'meta' @@"`
	Frame   *Block          `parser:"| 'frame' @@"`
	Caption *CaptionSection `parser:"| @@"`
}

// Kind returns the section keyword.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Frame != nil:
		return "frame"
	case s.Caption != nil:
		return "caption"
	}
	return "unknown"
}

// CaptionSection declares one caption block, eg: caption arabic rtl { ... }.
type CaptionSection struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Name   string         `parser:"'caption' @Ident"`
	Script string         `parser:"@Ident?"`
	Block  *Block         `parser:"@@"`
}

// Captions returns the caption sections in declaration order.
func (d *Document) Captions() []*CaptionSection {
	var out []*CaptionSection
	for _, s := range d.Sections {
		if s != nil && s.Caption != nil {
			out = append(out, s.Caption)
		}
	}
	return out
}

// Block is a brace-delimited statement list; statements end at a newline or ';'.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement is either a property or a switch.
type Statement struct {
	Property *Property `parser:"  @@"`
	Switch   *Switch   `parser:"| @@"`
}

// Property assigns a value: key: value.
type Property struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident ':' Newline*"`
	Value *Value         `parser:"@@"`
}

// Switch toggles or tunes a feature: shadow off, box 60%.
type Switch struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Name string         `parser:"@Ident"`
	Arg  *string        `parser:"( @Ident | @Number )?"`
}

// Value is a property value. Word holds bare identifiers such as named colors.
type Value struct {
	String *Quoted `parser:"  @String"`
	Number *string `parser:"| @Number"`
	Color  *string `parser:"| @Color"`
	Word   *string `parser:"| @Ident"`
	List   *List   `parser:"| @@"`
}

// List is a bracketed value list; items are separated by commas or newlines.
type List struct {
	Items []*Value `parser:"'[' Newline* ( @@ ( ( ',' | Newline ) Newline* @@ )* )? Newline* ']'"`
}

// Raw returns the unevaluated text of a scalar value.
func (v *Value) Raw() (string, bool) {
	switch {
	case v == nil:
		return "", false
	case v.String != nil:
		return string(*v.String), true
	case v.Number != nil:
		return *v.Number, true
	case v.Color != nil:
		return *v.Color, true
	case v.Word != nil:
		return *v.Word, true
	}
	return "", false
}

// Quoted is an unquoted Go-style string literal.
type Quoted string

// Capture implements participle.Capture.
func (q *Quoted) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("字符串缺少内容")
	}
	s, err := strconv.Unquote(values[0])
	if err != nil {
		return fmt.Errorf("字符串 %s 无效: %w", values[0], err)
	}
	*q = Quoted(s)
	return nil
}

// Parse parses a template from r.
func Parse(r io.Reader) (*Document, error) {
	return reelParser.Parse("", r)
}

// ParseString parses a template held in memory.
func ParseString(input string) (*Document, error) {
	return reelParser.ParseString("", input)
}
