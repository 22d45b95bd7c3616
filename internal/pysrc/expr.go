package pysrc

import (
	"fmt"
)

type exprParser struct {
	toks []Token
	pos  int
	src  string
}

var reserved = map[string]bool{
	"for": true, "if": true, "else": true, "in": true, "and": true, "or": true,
	"not": true, "is": true, "lambda": true, "import": true, "from": true,
	"return": true, "def": true, "class": true, "while": true, "with": true,
	"as": true, "yield": true, "async": true,
}

var binaryLevels = [][]string{
	{"|"},
	{"^"},
	{"&"},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "//", "%", "@"},
}

var comparisonOps = map[string]bool{
	"<": true, ">": true, "==": true, ">=": true, "<=": true, "!=": true,
}

func (p *exprParser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *exprParser) peek() Token {
	if p.atEnd() {
		return Token{Kind: TokNewline}
	}
	return p.toks[p.pos]
}

func (p *exprParser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return Token{Kind: TokNewline}
	}
	return p.toks[p.pos+n]
}

func (p *exprParser) isOp(s string) bool {
	t := p.peek()
	return t.Kind == TokOp && t.Text == s
}

func (p *exprParser) isKw(s string) bool {
	t := p.peek()
	return t.Kind == TokName && t.Text == s
}

func (p *exprParser) next() Token {
	t := p.peek()
	p.pos++
	return t
}

func (p *exprParser) expect(op string) error {
	if !p.isOp(op) {
		return p.errorf("expected %q", op)
	}
	p.pos++
	return nil
}

func (p *exprParser) errorf(format string, args ...any) error {
	t := p.peek()
	if t.Kind == TokNewline {
		return fmt.Errorf("unexpected end of expression: "+format, args...)
	}
	return fmt.Errorf("line %d: near %q: %s", t.Line, t.Text, fmt.Sprintf(format, args...))
}

func (p *exprParser) node(start int) node {
	if start >= len(p.toks) {
		return node{}
	}
	end := p.pos - 1
	if end < start {
		end = start
	}
	if end >= len(p.toks) {
		end = len(p.toks) - 1
	}
	return node{line: p.toks[start].Line, src: sourceText(p.src, p.toks[start], p.toks[end])}
}

// startsExpr reports whether the next token can begin an expression.
func (p *exprParser) startsExpr() bool {
	t := p.peek()
	switch t.Kind {
	case TokName:
		return !reserved[t.Text] || t.Text == "not" || t.Text == "lambda"
	case TokString, TokNumber:
		return true
	case TokOp:
		switch t.Text {
		case "(", "[", "{", "-", "+", "~", "*", "**", ".":
			return true
		}
	}
	return false
}

// exprList parses a comma separated expression list; more than one element
// yields a tuple.
func (p *exprParser) exprList() (Expr, error) {
	start := p.pos
	first, err := p.test()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	elts := []Expr{first}
	for p.isOp(",") {
		p.pos++
		if !p.startsExpr() {
			break
		}
		e, err := p.test()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	return &Seq{node: p.node(start), Kind: "tuple", Elts: elts}, nil
}

func (p *exprParser) test() (Expr, error) {
	start := p.pos
	if p.isKw("lambda") {
		p.skipExpr()
		return &Opaque{node: p.node(start)}, nil
	}
	if p.isOp("*") || p.isOp("**") {
		p.pos++
		x, err := p.or()
		if err != nil {
			return nil, err
		}
		return &Starred{node: p.node(start), X: x}, nil
	}
	x, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.isOp(":=") {
		p.pos++
		return p.test()
	}
	if !p.isKw("if") {
		return x, nil
	}
	p.pos++
	cond, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.isKw("else") {
		return nil, p.errorf("expected else")
	}
	p.pos++
	els, err := p.test()
	if err != nil {
		return nil, err
	}
	return &IfExp{node: p.node(start), Body: x, Cond: cond, Else: els}, nil
}

func (p *exprParser) or() (Expr, error)  { return p.boolChain("or", p.and) }
func (p *exprParser) and() (Expr, error) { return p.boolChain("and", p.not) }

func (p *exprParser) boolChain(op string, sub func() (Expr, error)) (Expr, error) {
	start := p.pos
	x, err := sub()
	if err != nil {
		return nil, err
	}
	for p.isKw(op) {
		p.pos++
		y, err := sub()
		if err != nil {
			return nil, err
		}
		x = &BinOp{node: p.node(start), Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *exprParser) not() (Expr, error) {
	start := p.pos
	if p.isKw("not") {
		p.pos++
		x, err := p.not()
		if err != nil {
			return nil, err
		}
		return &Unary{node: p.node(start), Op: "not", X: x}, nil
	}
	return p.comparison()
}

func (p *exprParser) comparison() (Expr, error) {
	start := p.pos
	x, err := p.binary(0)
	if err != nil {
		return nil, err
	}
	for {
		var op string
		t := p.peek()
		switch {
		case t.Kind == TokOp && comparisonOps[t.Text]:
			op = t.Text
			p.pos++
		case p.isKw("in"):
			op = "in"
			p.pos++
		case p.isKw("not") && p.peekAt(1).Kind == TokName && p.peekAt(1).Text == "in":
			op = "not in"
			p.pos += 2
		case p.isKw("is"):
			op = "is"
			p.pos++
			if p.isKw("not") {
				op = "is not"
				p.pos++
			}
		default:
			return x, nil
		}
		y, err := p.binary(0)
		if err != nil {
			return nil, err
		}
		x = &BinOp{node: p.node(start), Op: op, X: x, Y: y}
	}
}

func (p *exprParser) binary(level int) (Expr, error) {
	if level == len(binaryLevels) {
		return p.unary()
	}
	start := p.pos
	x, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.Kind != TokOp || !contains(binaryLevels[level], t.Text) {
			return x, nil
		}
		p.pos++
		y, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		x = &BinOp{node: p.node(start), Op: t.Text, X: x, Y: y}
	}
}

func (p *exprParser) unary() (Expr, error) {
	start := p.pos
	if p.isOp("-") || p.isOp("+") || p.isOp("~") {
		op := p.next().Text
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{node: p.node(start), Op: op, X: x}, nil
	}
	if p.isKw("await") {
		p.pos++
	}
	return p.power()
}

func (p *exprParser) power() (Expr, error) {
	start := p.pos
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.isOp("**") {
		p.pos++
		y, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &BinOp{node: p.node(start), Op: "**", X: x, Y: y}, nil
	}
	return x, nil
}

func (p *exprParser) primary() (Expr, error) {
	start := p.pos
	x, err := p.atom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isOp("."):
			p.pos++
			t := p.next()
			if t.Kind != TokName {
				return nil, p.errorf("expected attribute name")
			}
			x = &Attr{node: p.node(start), X: x, Attr: t.Text}
		case p.isOp("("):
			p.pos++
			c := &Call{Func: x}
			if err := p.callArgs(c); err != nil {
				return nil, err
			}
			c.node = p.node(start)
			x = c
		case p.isOp("["):
			p.pos++
			idx, err := p.subscript()
			if err != nil {
				return nil, err
			}
			x = &Subscript{node: p.node(start), X: x, Index: idx}
		default:
			return x, nil
		}
	}
}

func (p *exprParser) callArgs(c *Call) error {
	for !p.isOp(")") {
		if p.atEnd() {
			return p.errorf("unterminated call")
		}
		t := p.peek()
		if t.Kind == TokName && !reserved[t.Text] && p.peekAt(1).Kind == TokOp && p.peekAt(1).Text == "=" {
			p.pos += 2
			v, err := p.test()
			if err != nil {
				return err
			}
			c.Kwargs = append(c.Kwargs, Keyword{Name: t.Text, Value: v})
		} else {
			start := p.pos
			a, err := p.test()
			if err != nil {
				return err
			}
			if p.isKw("for") || p.isKw("async") {
				p.skipToClose()
				a = &Opaque{node: p.node(start)}
			}
			c.Args = append(c.Args, a)
		}
		if p.isOp(",") {
			p.pos++
			continue
		}
		if !p.isOp(")") {
			return p.errorf("expected , or )")
		}
	}
	p.pos++
	return nil
}

func (p *exprParser) subscript() (Expr, error) {
	start := p.pos
	if p.isOp(":") {
		p.skipToClose()
		p.pos++
		return &Opaque{node: p.node(start)}, nil
	}
	idx, err := p.exprList()
	if err != nil {
		return nil, err
	}
	if p.isOp(":") {
		p.skipToClose()
		p.pos++
		return &Opaque{node: p.node(start)}, nil
	}
	if err := p.expect("]"); err != nil {
		return nil, err
	}
	return idx, nil
}

func (p *exprParser) atom() (Expr, error) {
	start := p.pos
	t := p.peek()
	switch t.Kind {
	case TokName:
		if reserved[t.Text] {
			return nil, p.errorf("unexpected keyword")
		}
		p.pos++
		switch t.Text {
		case "True", "False", "None":
			return &Const{node: p.node(start), Value: t.Text}, nil
		}
		return &Name{node: p.node(start), ID: t.Text}, nil
	case TokNumber:
		p.pos++
		return &Num{node: p.node(start), Text: t.Text}, nil
	case TokString:
		p.pos++
		v, formatted, ok := Unquote(t.Text)
		if !ok {
			return nil, fmt.Errorf("line %d: malformed string literal", t.Line)
		}
		s := &Str{Value: v, Formatted: formatted}
		// implicit concatenation across whitespace
		for p.peek().Kind == TokString {
			nt := p.next()
			nv, nf, ok := Unquote(nt.Text)
			if !ok {
				return nil, fmt.Errorf("line %d: malformed string literal", nt.Line)
			}
			s.Value += nv
			s.Formatted = s.Formatted || nf
		}
		s.node = p.node(start)
		return s, nil
	case TokOp:
		switch t.Text {
		case "(":
			p.pos++
			return p.display(start, ")", "tuple")
		case "[":
			p.pos++
			return p.display(start, "]", "list")
		case "{":
			p.pos++
			return p.brace(start)
		case ".":
			for p.isOp(".") {
				p.pos++
			}
			return &Opaque{node: p.node(start)}, nil
		}
	}
	return nil, p.errorf("unexpected token")
}

// display parses (...) and [...]; a parenthesized single expression is
// returned unwrapped.
func (p *exprParser) display(start int, closer, kind string) (Expr, error) {
	var elts []Expr
	trailingComma := false
	for !p.isOp(closer) {
		if p.atEnd() {
			return nil, p.errorf("unterminated %s", kind)
		}
		e, err := p.test()
		if err != nil {
			return nil, err
		}
		if p.isKw("for") || p.isKw("async") {
			p.skipToClose()
			p.pos++
			return &Opaque{node: p.node(start)}, nil
		}
		elts = append(elts, e)
		trailingComma = false
		if p.isOp(",") {
			p.pos++
			trailingComma = true
			continue
		}
		if !p.isOp(closer) {
			return nil, p.errorf("expected , or %s", closer)
		}
	}
	p.pos++
	if kind == "tuple" && len(elts) == 1 && !trailingComma {
		return elts[0], nil
	}
	return &Seq{node: p.node(start), Kind: kind, Elts: elts}, nil
}

func (p *exprParser) brace(start int) (Expr, error) {
	d := &Dict{}
	var set []Expr
	for !p.isOp("}") {
		if p.atEnd() {
			return nil, p.errorf("unterminated dict")
		}
		if p.isOp("**") {
			p.pos++
			s := p.pos
			x, err := p.binary(0)
			if err != nil {
				return nil, err
			}
			d.Keys = append(d.Keys, &Starred{node: p.node(s), X: x})
			d.Values = append(d.Values, x)
		} else {
			k, err := p.test()
			if err != nil {
				return nil, err
			}
			switch {
			case p.isOp(":"):
				p.pos++
				v, err := p.test()
				if err != nil {
					return nil, err
				}
				if p.isKw("for") || p.isKw("async") {
					p.skipToClose()
					p.pos++
					return &Opaque{node: p.node(start)}, nil
				}
				d.Keys = append(d.Keys, k)
				d.Values = append(d.Values, v)
			case p.isKw("for") || p.isKw("async"):
				p.skipToClose()
				p.pos++
				return &Opaque{node: p.node(start)}, nil
			default:
				set = append(set, k)
			}
		}
		if p.isOp(",") {
			p.pos++
			continue
		}
		if !p.isOp("}") {
			return nil, p.errorf("expected , or }")
		}
	}
	p.pos++
	if len(set) > 0 && len(d.Keys) == 0 {
		return &Seq{node: p.node(start), Kind: "set", Elts: set}, nil
	}
	d.node = p.node(start)
	return d, nil
}

// skipToClose advances to the bracket closing the current nesting level
// without consuming it.
func (p *exprParser) skipToClose() {
	d := 0
	for !p.atEnd() {
		t := p.peek()
		if t.Kind == TokOp {
			switch t.Text {
			case "(", "[", "{":
				d++
			case ")", "]", "}":
				if d == 0 {
					return
				}
				d--
			}
		}
		p.pos++
	}
}

// skipExpr advances past a lambda up to the next top-level comma or
// closing bracket.
func (p *exprParser) skipExpr() {
	d := 0
	for !p.atEnd() {
		t := p.peek()
		if t.Kind == TokOp {
			switch t.Text {
			case "(", "[", "{":
				d++
			case ")", "]", "}":
				if d == 0 {
					return
				}
				d--
			case ",":
				if d == 0 {
					return
				}
			}
		}
		p.pos++
	}
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
