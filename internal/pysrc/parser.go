package pysrc

import (
	"fmt"
	"strings"
)

// Parse builds the statement structure of a Python source file. Lexing
// failures and unbalanced brackets are returned as errors; statements that
// cannot be parsed individually are counted in Module.Skipped and otherwise
// ignored.
func Parse(path, src string) (*Module, error) {
	src = strings.TrimPrefix(src, bom)
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	m := &Module{Path: path}
	b := &builder{src: src, mod: m, chain: map[int][]Expr{}}
	for _, ln := range splitLines(toks) {
		b.line(ln)
	}
	return m, nil
}

type logicalLine struct {
	toks   []Token
	indent int
}

func splitLines(toks []Token) []logicalLine {
	var out []logicalLine
	var cur []Token
	for _, t := range toks {
		if t.Kind == TokNewline {
			if len(cur) > 0 {
				out = append(out, logicalLine{toks: cur, indent: cur[0].Col})
			}
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		out = append(out, logicalLine{toks: cur, indent: cur[0].Col})
	}
	return out
}

type frame struct {
	indent int
	guard  Guard
}

type builder struct {
	src    string
	mod    *Module
	stack  []frame
	chain  map[int][]Expr // indent -> conditions of the open if/elif chain
}

func (b *builder) scope() Scope {
	s := make(Scope, len(b.stack))
	for i, f := range b.stack {
		s[i] = f.guard
	}
	return s
}

func (b *builder) line(ln logicalLine) {
	for len(b.stack) > 0 && b.stack[len(b.stack)-1].indent >= ln.indent {
		b.stack = b.stack[:len(b.stack)-1]
	}
	b.statement(ln.toks, ln.indent, b.scope())
}

var compoundKeywords = map[string]bool{
	"if": true, "elif": true, "else": true, "for": true, "while": true,
	"with": true, "try": true, "except": true, "finally": true,
	"def": true, "class": true,
}

var simpleKeywords = map[string]bool{
	"return": true, "pass": true, "break": true, "continue": true,
	"global": true, "nonlocal": true, "del": true, "raise": true,
	"assert": true, "yield": true,
}

func (b *builder) statement(toks []Token, indent int, scope Scope) {
	if len(toks) == 0 {
		return
	}
	first := toks[0]
	if first.Kind == TokName && first.Text == "async" && len(toks) > 1 {
		toks = toks[1:]
		first = toks[0]
	}
	switch {
	case first.Kind == TokOp && first.Text == "@":
		b.expression(toks[1:], scope, false)
		return
	case first.Kind == TokName && (first.Text == "import" || first.Text == "from"):
		b.imports(toks)
		return
	case first.Kind == TokName && compoundKeywords[first.Text]:
		b.compound(toks, indent, scope)
		return
	case first.Kind == TokName && simpleKeywords[first.Text]:
		return
	}
	for _, part := range splitTopLevel(toks, ";") {
		b.simple(part, scope)
	}
}

func (b *builder) compound(toks []Token, indent int, scope Scope) {
	colon := indexTopLevel(toks, ":")
	if colon < 0 {
		b.mod.Skipped++
		return
	}
	header, body := toks[1:colon], toks[colon+1:]
	g := Guard{Line: toks[0].Line}
	switch kw := toks[0].Text; kw {
	case "if", "elif", "while":
		g.Kind = "if"
		if kw == "while" {
			g.Kind = "while"
		}
		cond, err := b.parseExpr(header)
		if err != nil {
			b.mod.Skipped++
			cond = &Opaque{node: b.nodeFor(header)}
		}
		g.Cond = cond
		switch kw {
		case "if":
			b.chain[indent] = []Expr{cond}
		case "elif":
			g.Prior = append([]Expr{}, b.chain[indent]...)
			b.chain[indent] = append(b.chain[indent], cond)
		default:
			delete(b.chain, indent)
		}
		b.collectCalls(cond, scope, false)
	case "else":
		g.Kind = "else"
		g.Prior = append([]Expr{}, b.chain[indent]...)
		g.Negated = true
		delete(b.chain, indent)
	case "for", "with":
		g.Kind = kw
		delete(b.chain, indent)
		if e, err := b.parseExpr(header); err == nil {
			b.collectCalls(e, scope, false)
		}
	case "try", "except", "finally":
		g.Kind = "try"
	case "def", "class":
		g.Kind = kw
		if len(header) > 0 && header[0].Kind == TokName {
			g.Name = header[0].Text
		}
	}
	inner := append(append(Scope{}, scope...), g)
	if len(body) > 0 {
		b.statement(body, indent+1, inner)
		return
	}
	b.stack = append(b.stack, frame{indent: indent, guard: g})
}

func (b *builder) imports(toks []Token) {
	line := toks[0].Line
	if toks[0].Text == "import" {
		for _, part := range splitTopLevel(toks[1:], ",") {
			mod, alias := importName(part)
			if mod == "" {
				continue
			}
			bound := alias
			if bound == "" {
				bound, _, _ = strings.Cut(mod, ".")
			}
			b.mod.Imports = append(b.mod.Imports, Import{Module: mod, Names: []string{bound}, Line: line})
		}
		return
	}
	kw := -1
	for i, t := range toks {
		if t.Kind == TokName && t.Text == "import" {
			kw = i
			break
		}
	}
	if kw < 0 {
		b.mod.Skipped++
		return
	}
	var mod strings.Builder
	for _, t := range toks[1:kw] {
		mod.WriteString(t.Text)
	}
	imp := Import{Module: mod.String(), From: true, Line: line}
	var names []Token
	for _, t := range toks[kw+1:] {
		if t.Kind == TokOp && (t.Text == "(" || t.Text == ")") {
			continue
		}
		names = append(names, t)
	}
	for _, part := range splitTopLevel(names, ",") {
		name, alias := importName(part)
		if alias != "" {
			name = alias
		}
		if name != "" && name != "*" {
			imp.Names = append(imp.Names, name)
		}
	}
	b.mod.Imports = append(b.mod.Imports, imp)
}

// importName splits `a.b as c` into the dotted name and the alias.
func importName(toks []Token) (string, string) {
	var name strings.Builder
	for i, t := range toks {
		if t.Kind == TokName && t.Text == "as" {
			if i+1 < len(toks) {
				return name.String(), toks[i+1].Text
			}
			break
		}
		name.WriteString(t.Text)
	}
	return name.String(), ""
}

var augmentedOps = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "|=": true, "&=": true,
	"%=": true, "//=": true, "**=": true, "^=": true, ">>=": true, "<<=": true, "@=": true,
}

func (b *builder) simple(toks []Token, scope Scope) {
	if len(toks) == 0 {
		return
	}
	// annotated assignment: NAME: type = value
	if len(toks) > 2 && toks[1].Kind == TokOp && toks[1].Text == ":" {
		eq := indexTopLevel(toks, "=")
		if eq < 0 {
			return
		}
		toks = append(append([]Token{}, toks[:1]...), toks[eq:]...)
	}
	for i, t := range toks {
		if t.Kind == TokOp && augmentedOps[t.Text] && depthAt(toks, i) == 0 {
			b.assign([][]Token{toks[:i]}, t.Text, toks[i+1:], scope)
			return
		}
	}
	parts := splitTopLevel(toks, "=")
	if len(parts) > 1 {
		b.assign(parts[:len(parts)-1], "=", parts[len(parts)-1], scope)
		return
	}
	b.expression(toks, scope, true)
}

func (b *builder) assign(targets [][]Token, op string, value []Token, scope Scope) {
	v, err := b.parseExpr(value)
	if err != nil {
		b.mod.Skipped++
		return
	}
	a := Assign{Op: op, Value: v, Line: value[0].Line, Scope: scope}
	if len(targets) > 0 && len(targets[0]) > 0 {
		a.Line = targets[0][0].Line
	}
	for _, tt := range targets {
		te, err := b.parseExpr(tt)
		if err != nil {
			b.mod.Skipped++
			return
		}
		a.Targets = append(a.Targets, te)
		b.collectCalls(te, scope, false)
	}
	b.mod.Assigns = append(b.mod.Assigns, a)
	b.collectCalls(v, scope, false)
}

func (b *builder) expression(toks []Token, scope Scope, statement bool) {
	e, err := b.parseExpr(toks)
	if err != nil {
		b.mod.Skipped++
		return
	}
	b.collectCalls(e, scope, statement)
}

func (b *builder) collectCalls(e Expr, scope Scope, statement bool) {
	root := e
	Walk(e, func(x Expr) bool {
		if c, ok := x.(*Call); ok {
			b.mod.Calls = append(b.mod.Calls, CallSite{
				Call:      c,
				Line:      c.Line(),
				Scope:     scope,
				Statement: statement && x == root,
			})
		}
		return true
	})
}

func (b *builder) parseExpr(toks []Token) (Expr, error) {
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	p := &exprParser{toks: toks, src: b.src}
	e, err := p.exprList()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("line %d: unexpected %q", p.peek().Line, p.peek().Text)
	}
	return e, nil
}

func (b *builder) nodeFor(toks []Token) node {
	if len(toks) == 0 {
		return node{}
	}
	return node{line: toks[0].Line, src: sourceText(b.src, toks[0], toks[len(toks)-1])}
}

// depthAt returns the bracket depth just before toks[i].
func depthAt(toks []Token, i int) int {
	d := 0
	for _, t := range toks[:i] {
		if t.Kind != TokOp {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			d++
		case ")", "]", "}":
			d--
		}
	}
	return d
}

func indexTopLevel(toks []Token, op string) int {
	d := 0
	for i, t := range toks {
		if t.Kind != TokOp {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			d++
		case ")", "]", "}":
			d--
		case op:
			if d == 0 {
				return i
			}
		}
	}
	return -1
}

func splitTopLevel(toks []Token, op string) [][]Token {
	var out [][]Token
	d, start := 0, 0
	for i, t := range toks {
		if t.Kind != TokOp {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			d++
		case ")", "]", "}":
			d--
		case op:
			if d == 0 {
				out = append(out, toks[start:i])
				start = i + 1
			}
		}
	}
	return append(out, toks[start:])
}

func sourceText(src string, first, last Token) string {
	if first.start < 0 || last.end > len(src) || first.start > last.end {
		return first.Text
	}
	return strings.Join(strings.Fields(src[first.start:last.end]), " ")
}
