package extract

import (
	"net/url"
	"slices"
	"strings"

	"github.com/deploylint/deploylint/internal/pysrc"
	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

// adapter maps framework-specific settings onto snapshot keys.
type adapter interface {
	framework() types.Framework
	apply(b *snapshot.Builder, mod *pysrc.Module)
}

func adapterFor(fw types.Framework) adapter {
	switch fw {
	case types.FrameworkDjango:
		return djangoAdapter{}
	case types.FrameworkFlask:
		return flaskAdapter{}
	}
	return nullAdapter{}
}

type nullAdapter struct{}

func (nullAdapter) framework() types.Framework { return types.FrameworkUnknown }
func (nullAdapter) apply(*snapshot.Builder, *pysrc.Module) {}

// binding ties a setting, optionally drilled into nested dicts, to a key.
type binding struct {
	key  snapshot.Key
	path []string
	// host reduces a database URL to its host component.
	host bool
}

// dbURLCalls are helpers that build a database config from a URL. The value
// names the argument holding the literal URL.
var dbURLCalls = map[string]struct {
	arg  int
	name string
}{
	"dj_database_url.config": {arg: -1, name: "default"},
	"dj_database_url.parse":  {arg: 0, name: "url"},
	"env.db":                 {arg: -1, name: "default"},
	"env.db_url":             {arg: -1, name: "default"},
}

// drill follows path through dict displays, dict(...) calls and names bound
// earlier in the module, then evaluates what it reaches.
func (ev *evaluator) drill(e pysrc.Expr, path []string, host bool) snapshot.Value {
	if len(path) == 0 {
		v := ev.Eval(e)
		if host {
			v = urlHostValue(v)
		}
		return v
	}
	switch n := e.(type) {
	case *pysrc.Dict:
		sub, ok := n.Lookup(path[0])
		if !ok {
			return snapshot.Absent()
		}
		return ev.drill(sub, path[1:], host)
	case *pysrc.Name:
		if bound, ok := ev.exprs[n.ID]; ok {
			return ev.drill(bound, path, host)
		}
	case *pysrc.Call:
		fn := pysrc.DottedName(n.Func)
		if fn == "dict" {
			sub, ok := n.Kwarg(path[0])
			if !ok {
				return snapshot.Absent()
			}
			return ev.drill(sub, path[1:], host)
		}
		if _, ok := dbURLCalls[fn]; ok && host && len(path) == 1 {
			return ev.databaseURLHost(n)
		}
	}
	// The container is not a literal; the setting is present but opaque,
	// or environment-derived as a whole.
	v := ev.Eval(e)
	if v.FromEnv {
		return snapshot.Expr(e.Source()).FromEnvironment(v.EnvVar, nil)
	}
	return snapshot.Expr(e.Source())
}

// databaseURLHost reduces a dj_database_url or env.db call to the host of
// its literal URL. The call reads the environment unless it is a parse of a
// literal string.
func (ev *evaluator) databaseURLHost(c *pysrc.Call) snapshot.Value {
	spec := dbURLCalls[pysrc.DottedName(c.Func)]
	var arg pysrc.Expr
	if spec.arg >= 0 {
		arg, _ = c.Arg(spec.arg, spec.name)
	} else {
		arg, _ = c.Kwarg(spec.name)
	}
	lit, haveLit, file := snapshot.Value{}, false, false
	if arg != nil {
		if l, ok := ev.literal(arg); ok && l.Kind == snapshot.KindString {
			lit, haveLit, file = snapshot.String(urlHost(l.Str)), true, fileDatabase(l.Str)
		}
	}
	envVar, usesEnv := ev.envRef(c)
	switch {
	case file && !usesEnv:
		return snapshot.Absent()
	case file:
		return snapshot.Expr(c.Source()).FromEnvironment(envVar, nil)
	case !usesEnv && haveLit:
		lit.Raw = c.Source()
		return lit
	case !usesEnv:
		return snapshot.Expr(c.Source())
	case haveLit:
		v := lit
		v.Raw = c.Source()
		return v.FromEnvironment(envVar, &lit)
	}
	return snapshot.Expr(c.Source()).FromEnvironment(envVar, nil)
}

// urlHostValue replaces a database URL with its host, keeping provenance.
// A file database has no host and is reported absent.
func urlHostValue(v snapshot.Value) snapshot.Value {
	if v.Kind == snapshot.KindString && fileDatabase(v.Str) {
		if v.FromEnv {
			return snapshot.Expr(v.Str).FromEnvironment(v.EnvVar, nil)
		}
		return snapshot.Absent()
	}
	if v.Kind == snapshot.KindString && strings.Contains(v.Str, "://") {
		v.Raw = v.Str
		v.Str = urlHost(v.Str)
	}
	if v.Default != nil {
		d := urlHostValue(*v.Default)
		v.Default = &d
	}
	return v
}

func urlHost(raw string) string {
	if !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Hostname()
}

func fileDatabase(raw string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "sqlite")
}

// networkEngines are database backends whose drivers connect to the local
// machine when HOST is empty or missing.
var networkEngines = []string{"postgresql", "postgis", "mysql", "oracle", "mssql"}

// implicitHost records an empty or missing HOST under a network backend as
// an empty host string, the driver's local default. An empty HOST under any
// other backend is absent. path leads from db to HOST.
func (ev *evaluator) implicitHost(db pysrc.Expr, path []string, host snapshot.Value) snapshot.Value {
	empty := host.Kind == snapshot.KindString && !host.FromEnv && strings.TrimSpace(host.Str) == ""
	if len(path) == 0 || (host.Present() && !empty) {
		return host
	}
	engine := ev.drill(db, append(slices.Clone(path[:len(path)-1]), "ENGINE"), false)
	if engine.Kind != snapshot.KindString || engine.FromEnv || !slices.ContainsFunc(networkEngines, func(n string) bool {
		return strings.Contains(strings.ToLower(engine.Str), n)
	}) {
		return snapshot.Absent()
	}
	if empty {
		return host
	}
	v := snapshot.String("")
	v.Raw = engine.Str
	return v
}

// guardEnv reports the first environment variable an enclosing if/elif/else
// chain reads, including the earlier branches an elif or else negates.
func (ev *evaluator) guardEnv(scope pysrc.Scope) (string, bool) {
	for _, g := range scope {
		for _, c := range g.Conditions() {
			if name, ok := ev.envRef(c); ok {
				return name, true
			}
		}
	}
	return "", false
}

// guarded marks v as environment-derived when its assignment only runs
// under an environment-dependent condition.
func (ev *evaluator) guarded(v snapshot.Value, scope pysrc.Scope) snapshot.Value {
	if v.FromEnv || !v.Present() {
		return v
	}
	if name, ok := ev.guardEnv(scope); ok {
		return v.FromEnvironment(name, nil)
	}
	return v
}

// subscriptPath flattens NAME['a']['b'] into NAME and [a b].
func subscriptPath(e pysrc.Expr) (string, []string, bool) {
	var path []string
	for {
		switch n := e.(type) {
		case *pysrc.Name:
			return n.ID, path, true
		case *pysrc.Subscript:
			s, ok := n.Index.(*pysrc.Str)
			if !ok {
				return "", nil, false
			}
			path = append([]string{s.Value}, path...)
			e = n.X
		default:
			return "", nil, false
		}
	}
}

// mutate applies a list mutation to cur. add is the evaluated operand and
// at the position an insert lands at.
func mutate(cur snapshot.Value, method string, add snapshot.Value, at int, raw string) snapshot.Value {
	if !cur.Present() {
		if method == "remove" {
			return cur
		}
		if method == "append" || method == "insert" {
			if add.Kind == snapshot.KindString && !add.FromEnv {
				return snapshot.List(add.Str)
			}
		}
		return add
	}
	if cur.Kind != snapshot.KindList || add.FromEnv {
		out := snapshot.Expr(raw)
		if add.FromEnv {
			return out.FromEnvironment(add.EnvVar, nil)
		}
		if cur.FromEnv {
			return out.FromEnvironment(cur.EnvVar, nil)
		}
		return out
	}
	out := cur
	switch method {
	case "append", "insert":
		if add.Kind != snapshot.KindString {
			return snapshot.Expr(raw)
		}
		at = min(max(at, 0), len(cur.List))
		out.List = slices.Insert(slices.Clone(cur.List), at, add.Str)
	case "extend", "+=":
		if add.Kind != snapshot.KindList {
			return snapshot.Expr(raw)
		}
		out.List = append(append([]string{}, cur.List...), add.List...)
	case "remove":
		if add.Kind != snapshot.KindString {
			return snapshot.Expr(raw)
		}
		out.List = nil
		for _, it := range cur.List {
			if it != add.Str {
				out.List = append(out.List, it)
			}
		}
		if out.List == nil {
			out.List = []string{}
		}
	}
	return out
}
