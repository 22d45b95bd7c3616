package pysrc

// Expr is a parsed Python expression. Only the shapes a configuration file
// plausibly contains are modelled; anything else becomes an Opaque node.
type Expr interface {
	Line() int
	// Source is a normalized rendering of the expression tokens.
	Source() string
}

type node struct {
	line int
	src  string
}

func (n node) Line() int      { return n.line }
func (n node) Source() string { return n.src }

type Name struct {
	node
	ID string
}

// Str is a string literal. Formatted is set for f-strings.
type Str struct {
	node
	Value     string
	Formatted bool
}

type Num struct {
	node
	Text string
}

// Const is True, False or None.
type Const struct {
	node
	Value string
}

type Attr struct {
	node
	X    Expr
	Attr string
}

type Subscript struct {
	node
	X     Expr
	Index Expr
}

type Keyword struct {
	Name  string
	Value Expr
}

type Call struct {
	node
	Func   Expr
	Args   []Expr
	Kwargs []Keyword
}

// Kwarg returns the keyword argument called name.
func (c *Call) Kwarg(name string) (Expr, bool) {
	for _, kw := range c.Kwargs {
		if kw.Name == name {
			return kw.Value, true
		}
	}
	return nil, false
}

// Arg returns positional argument i, falling back to keyword name.
func (c *Call) Arg(i int, name string) (Expr, bool) {
	if i < len(c.Args) {
		return c.Args[i], true
	}
	if name != "" {
		return c.Kwarg(name)
	}
	return nil, false
}

// Seq is a list, tuple or set display.
type Seq struct {
	node
	Kind string // "list", "tuple", "set"
	Elts []Expr
}

type Dict struct {
	node
	Keys   []Expr
	Values []Expr
}

// Lookup returns the value stored under a string key.
func (d *Dict) Lookup(key string) (Expr, bool) {
	for i, k := range d.Keys {
		if s, ok := k.(*Str); ok && s.Value == key {
			return d.Values[i], true
		}
	}
	return nil, false
}

// BinOp covers arithmetic, comparison and boolean operators.
type BinOp struct {
	node
	Op   string
	X, Y Expr
}

type Unary struct {
	node
	Op string
	X  Expr
}

type IfExp struct {
	node
	Body, Cond, Else Expr
}

// Starred is *x or **x inside a call or display.
type Starred struct {
	node
	X Expr
}

// Opaque is an expression the parser skipped over (lambdas,
// comprehensions, unsupported syntax).
type Opaque struct {
	node
}

// Guard is one enclosing block of a statement.
type Guard struct {
	Kind    string // "if", "else", "def", "class", "for", "while", "with", "try"
	Cond    Expr   // condition for if/elif/while; nil otherwise
	Negated bool   // set for else branches
	// Prior holds the conditions of the earlier if/elif branches of the
	// chain, all of which are false when this branch runs.
	Prior []Expr
	Name  string // function or class name
	Line  int
}

// Conditions returns every condition deciding whether the block runs:
// the negated earlier branches first, then its own.
func (g Guard) Conditions() []Expr {
	out := append([]Expr{}, g.Prior...)
	if g.Cond != nil {
		out = append(out, g.Cond)
	}
	return out
}

// Scope is the chain of blocks enclosing a statement, outermost first.
type Scope []Guard

// TopLevel reports whether the statement runs unconditionally at import.
func (s Scope) TopLevel() bool { return len(s) == 0 }

// Assign is NAME = expr, target[...] = expr, obj.attr = expr or an
// augmented assignment.
type Assign struct {
	Targets []Expr
	Op      string // "=" or an augmented operator such as "+="
	Value   Expr
	Line    int
	Scope   Scope
}

// CallSite is a call expression found anywhere in a statement.
type CallSite struct {
	Call  *Call
	Line  int
	Scope Scope
	// Statement is set when the call is the whole expression statement.
	Statement bool
}

// Import is one import statement. Module is the dotted module name as
// written, with leading dots for relative imports; Names are the local
// names the statement binds. From is set for from-imports.
type Import struct {
	Module string
	Names  []string
	From   bool
	Line   int
}

// Module is the statement-level structure of a Python source file.
type Module struct {
	Path    string
	Assigns []Assign
	Calls   []CallSite
	Imports []Import
	// Skipped counts statements that could not be parsed.
	Skipped int
}

// Walk visits e and every sub-expression depth first.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Attr:
		Walk(n.X, fn)
	case *Subscript:
		Walk(n.X, fn)
		Walk(n.Index, fn)
	case *Call:
		Walk(n.Func, fn)
		for _, a := range n.Args {
			Walk(a, fn)
		}
		for _, kw := range n.Kwargs {
			Walk(kw.Value, fn)
		}
	case *Seq:
		for _, x := range n.Elts {
			Walk(x, fn)
		}
	case *Dict:
		for i := range n.Keys {
			Walk(n.Keys[i], fn)
			Walk(n.Values[i], fn)
		}
	case *BinOp:
		Walk(n.X, fn)
		Walk(n.Y, fn)
	case *Unary:
		Walk(n.X, fn)
	case *IfExp:
		Walk(n.Body, fn)
		Walk(n.Cond, fn)
		Walk(n.Else, fn)
	case *Starred:
		Walk(n.X, fn)
	}
}

// DottedName renders Name and Attr chains as "a.b.c"; other shapes return "".
func DottedName(e Expr) string {
	switch n := e.(type) {
	case *Name:
		return n.ID
	case *Attr:
		if base := DottedName(n.X); base != "" {
			return base + "." + n.Attr
		}
	}
	return ""
}
