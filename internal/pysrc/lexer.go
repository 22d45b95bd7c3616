package pysrc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// TokKind classifies tokens after chroma's lexing has been normalized.
type TokKind int

const (
	TokName TokKind = iota
	TokString
	TokNumber
	TokOp
	TokNewline
)

// Token is a normalized Python token with its 1-based line and 0-based column.
type Token struct {
	Kind TokKind
	Text string
	Line int
	Col  int

	start, end int
}

var errNoLexer = errors.New("python lexer unavailable")

const bom = "\ufeff"

// compound operators chroma may emit as separate characters
var compoundOps = map[string]bool{
	"==": true, "!=": true, "<=": true, ">=": true, "**": true, "//": true,
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true, "&=": true,
	"|=": true, "^=": true, "->": true, ":=": true, "<<": true, ">>": true,
	"**=": true, "//=": true, "<<=": true, ">>=": true, "@=": true,
}

// Lex tokenizes Python source. Comments are dropped, newlines inside
// brackets are dropped, and adjacent string pieces are merged into one
// literal token. Unbalanced brackets are reported as an error. A leading
// byte order mark is skipped.
func Lex(src string) ([]Token, error) {
	src = strings.TrimPrefix(src, bom)
	lexer := lexers.Get("python")
	if lexer == nil {
		return nil, errNoLexer
	}
	it, err := lexer.Tokenise(nil, src)
	if err != nil {
		return nil, fmt.Errorf("tokenise: %w", err)
	}

	l := &normalizer{line: 1}
	for _, t := range it.Tokens() {
		l.feed(t)
	}
	l.flushString()
	if l.depth != 0 {
		return l.out, fmt.Errorf("unbalanced brackets at end of input (depth %d)", l.depth)
	}
	if l.unbalanced {
		return l.out, fmt.Errorf("unbalanced closing bracket on line %d", l.badLine)
	}
	l.newline()
	return l.out, nil
}

type normalizer struct {
	out        []Token
	line, col  int
	off        int
	depth      int
	unbalanced bool
	badLine    int
	str        *Token
}

func (l *normalizer) feed(t chroma.Token) {
	v := t.Value
	startLine, startCol, startOff := l.line, l.col, l.off
	l.advance(v)

	switch {
	case strings.TrimSpace(v) == "":
		l.flushString()
		if strings.Contains(v, "\n") {
			l.newline()
		}
	case strings.TrimSpace(strings.ReplaceAll(v, "\\", "")) == "" && strings.Contains(v, "\n"):
		// explicit line continuation
		l.flushString()
	case t.Type.InCategory(chroma.Comment):
		l.flushString()
		if strings.Contains(v, "\n") {
			l.newline()
		}
	case t.Type.InSubCategory(chroma.LiteralString):
		if l.str == nil {
			l.str = &Token{Kind: TokString, Line: startLine, Col: startCol, start: startOff}
		}
		l.str.Text += v
		l.str.end = l.off
	case t.Type.InSubCategory(chroma.LiteralNumber):
		l.flushString()
		l.emit(Token{Kind: TokNumber, Text: strings.TrimSpace(v), Line: startLine, Col: startCol, start: startOff, end: l.off})
	default:
		l.flushString()
		l.split(v, startLine, startCol, startOff)
	}
}

// split breaks a non-string, non-comment chunk into names, numbers and
// operators. chroma usually emits these one at a time, but Error tokens and
// some lexer states produce runs.
func (l *normalizer) split(v string, line, col, off int) {
	i := 0
	for i < len(v) {
		c := v[i]
		switch {
		case c == '\n':
			l.newline()
			line++
			col = 0
			i++
			continue
		case c == ' ' || c == '\t' || c == '\r' || c == '\\':
		case isIdentStart(c):
			j := i + 1
			for j < len(v) && isIdentPart(v[j]) {
				j++
			}
			l.emit(Token{Kind: TokName, Text: v[i:j], Line: line, Col: col, start: off + i, end: off + j})
			col += j - i
			i = j
			continue
		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(v) && (isIdentPart(v[j]) || v[j] == '.') {
				j++
			}
			l.emit(Token{Kind: TokNumber, Text: v[i:j], Line: line, Col: col, start: off + i, end: off + j})
			col += j - i
			i = j
			continue
		default:
			l.emit(Token{Kind: TokOp, Text: string(c), Line: line, Col: col, start: off + i, end: off + i + 1})
		}
		col++
		i++
	}
}

func (l *normalizer) emit(t Token) {
	if t.Kind == TokOp {
		switch t.Text {
		case "(", "[", "{":
			l.depth++
		case ")", "]", "}":
			if l.depth == 0 {
				if !l.unbalanced {
					l.badLine = t.Line
				}
				l.unbalanced = true
			} else {
				l.depth--
			}
		}
		if n := len(l.out); n > 0 {
			prev := &l.out[n-1]
			if prev.Kind == TokOp && prev.end == t.start && compoundOps[prev.Text+t.Text] {
				prev.Text += t.Text
				prev.end = t.end
				return
			}
		}
	}
	l.out = append(l.out, t)
}

func (l *normalizer) newline() {
	if l.depth > 0 {
		return
	}
	if n := len(l.out); n == 0 || l.out[n-1].Kind == TokNewline {
		return
	}
	l.out = append(l.out, Token{Kind: TokNewline, Text: "\n", Line: l.line, start: l.off, end: l.off})
}

func (l *normalizer) flushString() {
	if l.str == nil {
		return
	}
	t := *l.str
	l.str = nil
	l.out = append(l.out, t)
}

func (l *normalizer) advance(v string) {
	for i := 0; i < len(v); i++ {
		if v[i] == '\n' {
			l.line++
			l.col = 0
		} else {
			l.col++
		}
	}
	l.off += len(v)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
