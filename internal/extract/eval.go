package extract

import (
	"strconv"
	"strings"

	"github.com/deploylint/deploylint/internal/pysrc"
	"github.com/deploylint/deploylint/internal/snapshot"
)

// envCall describes a recognized environment lookup function.
type envCall struct {
	// default is read from positional argument defaultArg, or keyword "default".
	defaultArg int
	// fixedVar names the variable read when it is not an argument.
	fixedVar string
	// cast forces the default to a bool (django-environ env.bool).
	castBool bool
}

var envCalls = map[string]envCall{
	"os.environ.get":         {defaultArg: 1},
	"os.getenv":              {defaultArg: 1},
	"environ.get":            {defaultArg: 1},
	"getenv":                 {defaultArg: 1},
	"os.environ.setdefault":  {defaultArg: 1},
	"env":                    {defaultArg: 1},
	"env.str":                {defaultArg: 1},
	"env.int":                {defaultArg: 1},
	"env.list":               {defaultArg: 1},
	"env.bool":               {defaultArg: 1, castBool: true},
	"env.url":                {defaultArg: 1},
	"env.db":                 {defaultArg: -1, fixedVar: "DATABASE_URL"},
	"env.db_url":             {defaultArg: -1, fixedVar: "DATABASE_URL"},
	"config":                 {defaultArg: -1},
	"dj_database_url.config": {defaultArg: -1, fixedVar: "DATABASE_URL"},
}

var envMappings = map[string]bool{"os.environ": true, "environ": true, "env": true}

// evaluator reduces expressions to snapshot values without executing them.
// Module-level names assigned earlier in the file resolve to their values.
type evaluator struct {
	names map[string]snapshot.Value
	exprs map[string]pysrc.Expr
}

func newEvaluator() *evaluator {
	return &evaluator{names: map[string]snapshot.Value{}, exprs: map[string]pysrc.Expr{}}
}

func (ev *evaluator) bind(name string, e pysrc.Expr, v snapshot.Value) {
	ev.names[name] = v
	ev.exprs[name] = e
}

// Eval returns the normalized value of e. Expressions that read the
// environment are marked FromEnv, with the default literal recorded when one
// can be recovered. Everything else that is not a literal becomes KindExpr.
func (ev *evaluator) Eval(e pysrc.Expr) snapshot.Value {
	if e == nil {
		return snapshot.Absent()
	}
	lit, ok := ev.literal(e)
	envVar, usesEnv := ev.envRef(e)
	if !usesEnv {
		if ok {
			return lit
		}
		return snapshot.Expr(e.Source())
	}
	if !ok {
		return snapshot.Expr(e.Source()).FromEnvironment(envVar, nil)
	}
	v := lit
	if !v.Present() {
		v = snapshot.Expr(e.Source())
	}
	v.Raw = e.Source()
	return v.FromEnvironment(envVar, &lit)
}

// envRef reports the first environment variable e reads.
func (ev *evaluator) envRef(e pysrc.Expr) (string, bool) {
	var name string
	found := false
	pysrc.Walk(e, func(x pysrc.Expr) bool {
		if found {
			return false
		}
		switch n := x.(type) {
		case *pysrc.Call:
			if spec, ok := envCalls[pysrc.DottedName(n.Func)]; ok {
				found = true
				name = spec.fixedVar
				if name == "" {
					if a, ok := n.Arg(0, ""); ok {
						if s, ok := a.(*pysrc.Str); ok {
							name = s.Value
						}
					}
				}
				return false
			}
		case *pysrc.Subscript:
			if envMappings[pysrc.DottedName(n.X)] {
				found = true
				if s, ok := n.Index.(*pysrc.Str); ok {
					name = s.Value
				}
				return false
			}
		case *pysrc.Name:
			if v, ok := ev.names[n.ID]; ok && v.FromEnv {
				found = true
				name = v.EnvVar
				return false
			}
		}
		return true
	})
	return name, found
}

// literal evaluates e as a constant, substituting environment lookups with
// their default.
func (ev *evaluator) literal(e pysrc.Expr) (snapshot.Value, bool) {
	switch n := e.(type) {
	case *pysrc.Const:
		switch n.Value {
		case "True":
			return snapshot.Bool(true), true
		case "False":
			return snapshot.Bool(false), true
		}
		return snapshot.Absent(), true
	case *pysrc.Str:
		if n.Formatted && strings.Contains(n.Value, "{") {
			return snapshot.Value{}, false
		}
		return snapshot.String(n.Value), true
	case *pysrc.Num:
		return snapshot.String(n.Text), true
	case *pysrc.Name:
		v, ok := ev.names[n.ID]
		if !ok || v.Kind == snapshot.KindExpr {
			return snapshot.Value{}, false
		}
		if v.FromEnv {
			if v.Default == nil {
				return snapshot.Value{}, false
			}
			return *v.Default, true
		}
		return v, true
	case *pysrc.Seq:
		var items []string
		for _, x := range n.Elts {
			if st, ok := x.(*pysrc.Starred); ok {
				inner, ok := ev.literal(st.X)
				if !ok || inner.Kind != snapshot.KindList {
					return snapshot.Value{}, false
				}
				items = append(items, inner.List...)
				continue
			}
			v, ok := ev.literal(x)
			if !ok || v.Kind != snapshot.KindString {
				return snapshot.Value{}, false
			}
			items = append(items, v.Str)
		}
		return snapshot.List(items...), true
	case *pysrc.Subscript:
		if envMappings[pysrc.DottedName(n.X)] {
			return snapshot.Value{}, false
		}
	case *pysrc.Call:
		return ev.literalCall(n)
	case *pysrc.BinOp:
		return ev.literalBinOp(n)
	case *pysrc.Unary:
		x, ok := ev.literal(n.X)
		if !ok {
			return snapshot.Value{}, false
		}
		if n.Op == "not" {
			return snapshot.Bool(!truthy(x)), true
		}
	case *pysrc.IfExp:
		c, ok := ev.literal(n.Cond)
		if !ok {
			return snapshot.Value{}, false
		}
		if truthy(c) {
			return ev.literal(n.Body)
		}
		return ev.literal(n.Else)
	}
	return snapshot.Value{}, false
}

func (ev *evaluator) literalCall(c *pysrc.Call) (snapshot.Value, bool) {
	fn := pysrc.DottedName(c.Func)
	if spec, ok := envCalls[fn]; ok {
		return ev.envDefault(c, spec)
	}
	switch fn {
	case "bool":
		a, ok := c.Arg(0, "")
		if !ok {
			return snapshot.Bool(false), true
		}
		v, ok := ev.literal(a)
		if !ok {
			return snapshot.Value{}, false
		}
		return snapshot.Bool(truthy(v)), true
	case "str", "list", "tuple":
		a, ok := c.Arg(0, "")
		if !ok {
			return snapshot.Value{}, false
		}
		return ev.literal(a)
	}
	attr, ok := c.Func.(*pysrc.Attr)
	if !ok {
		return snapshot.Value{}, false
	}
	recv, ok := ev.literal(attr.X)
	if !ok || recv.Kind != snapshot.KindString {
		return snapshot.Value{}, false
	}
	switch attr.Attr {
	case "lower":
		return snapshot.String(strings.ToLower(recv.Str)), true
	case "upper":
		return snapshot.String(strings.ToUpper(recv.Str)), true
	case "strip":
		return snapshot.String(strings.TrimSpace(recv.Str)), true
	case "split":
		sep := ""
		if a, ok := c.Arg(0, "sep"); ok {
			s, ok := ev.literal(a)
			if !ok || s.Kind != snapshot.KindString {
				return snapshot.Value{}, false
			}
			sep = s.Str
		}
		if sep == "" {
			return snapshot.List(strings.Fields(recv.Str)...), true
		}
		return snapshot.List(strings.Split(recv.Str, sep)...), true
	}
	return snapshot.Value{}, false
}

func (ev *evaluator) envDefault(c *pysrc.Call, spec envCall) (snapshot.Value, bool) {
	var def pysrc.Expr
	if spec.defaultArg >= 0 {
		def, _ = c.Arg(spec.defaultArg, "default")
	} else {
		def, _ = c.Kwarg("default")
	}
	if def == nil {
		return snapshot.Value{}, false
	}
	v, ok := ev.literal(def)
	if !ok {
		return snapshot.Value{}, false
	}
	castBool := spec.castBool
	if cast, ok := c.Kwarg("cast"); ok && pysrc.DottedName(cast) == "bool" {
		castBool = true
	}
	if castBool && v.Kind == snapshot.KindString {
		return snapshot.Bool(strToBool(v.Str)), true
	}
	return v, true
}

func (ev *evaluator) literalBinOp(n *pysrc.BinOp) (snapshot.Value, bool) {
	x, ok := ev.literal(n.X)
	if !ok {
		return snapshot.Value{}, false
	}
	y, ok := ev.literal(n.Y)
	if !ok {
		return snapshot.Value{}, false
	}
	switch n.Op {
	case "==":
		return snapshot.Bool(equal(x, y)), true
	case "!=":
		return snapshot.Bool(!equal(x, y)), true
	case "in", "not in":
		var in bool
		switch {
		case y.Kind == snapshot.KindList && x.Kind == snapshot.KindString:
			in = y.Contains(x.Str)
		case y.Kind == snapshot.KindString && x.Kind == snapshot.KindString:
			in = strings.Contains(y.Str, x.Str)
		default:
			return snapshot.Value{}, false
		}
		if n.Op == "not in" {
			in = !in
		}
		return snapshot.Bool(in), true
	case "and":
		if !truthy(x) {
			return x, true
		}
		return y, true
	case "or":
		if truthy(x) {
			return x, true
		}
		return y, true
	case "+":
		switch {
		case x.Kind == snapshot.KindString && y.Kind == snapshot.KindString:
			return snapshot.String(x.Str + y.Str), true
		case x.Kind == snapshot.KindList && y.Kind == snapshot.KindList:
			return snapshot.List(append(x.List, y.List...)...), true
		}
	}
	return snapshot.Value{}, false
}

func equal(x, y snapshot.Value) bool {
	if x.Kind != y.Kind {
		return false
	}
	switch x.Kind {
	case snapshot.KindBool:
		return x.Bool == y.Bool
	case snapshot.KindString:
		return x.Str == y.Str
	case snapshot.KindList:
		return strings.Join(x.List, "\x00") == strings.Join(y.List, "\x00")
	}
	return x.Kind == snapshot.KindAbsent
}

func truthy(v snapshot.Value) bool {
	switch v.Kind {
	case snapshot.KindBool:
		return v.Bool
	case snapshot.KindString:
		return v.Str != ""
	case snapshot.KindList:
		return len(v.List) > 0
	case snapshot.KindExpr:
		return true
	}
	return false
}

// strToBool follows the spellings accepted by python-decouple and
// django-environ.
func strToBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on", "y", "t":
		return true
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n != 0
	}
	return false
}
