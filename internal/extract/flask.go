package extract

import (
	"path"
	"strings"

	"github.com/deploylint/deploylint/internal/pysrc"
	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

// flaskConfig maps app.config entries to keys.
var flaskConfig = map[string]binding{
	"DEBUG":                   {key: snapshot.DebugEnabled},
	"SECRET_KEY":              {key: snapshot.SecretKey},
	"SQLALCHEMY_DATABASE_URI": {key: snapshot.DatabaseHost, host: true},
}

// flaskAttrs maps attributes set directly on the app object.
var flaskAttrs = map[string]binding{
	"debug":      {key: snapshot.DebugEnabled},
	"secret_key": {key: snapshot.SecretKey},
}

var flaskConstructors = map[string]bool{"Flask": true, "flask.Flask": true}

type flaskAdapter struct {
	// appModules are dotted names of project modules that construct the
	// application. Names imported from them are app objects or factories.
	appModules []string
}

func (flaskAdapter) framework() types.Framework { return types.FrameworkFlask }

// apply reads configuration applied to every Flask application object in
// the module. Application factories configure the app inside a function, so
// statements are read regardless of the enclosing block.
func (a flaskAdapter) apply(b *snapshot.Builder, mod *pysrc.Module) {
	apps := flaskApps(mod, a.appModules)
	if len(apps) == 0 {
		return
	}
	ev := newEvaluator()
	for _, st := range allStatements(mod) {
		origin := snapshot.Origin{Path: mod.Path, Line: st.line}
		if st.assign != nil {
			flaskAssign(b, ev, apps, st.assign, origin)
			continue
		}
		flaskCall(b, ev, apps, st.call, origin)
	}
}

// flaskApps returns the names bound to Flask(...) anywhere in the module,
// names imported from one of appModules, and names assigned from calling an
// imported name (app = create_app()).
func flaskApps(mod *pysrc.Module, appModules []string) map[string]bool {
	apps := map[string]bool{}
	imported := map[string]bool{}
	for _, imp := range mod.Imports {
		if importsFrom(imp, appModules) {
			for _, n := range imp.Names {
				apps[n] = true
				imported[n] = true
			}
		}
	}
	for _, a := range mod.Assigns {
		c, ok := a.Value.(*pysrc.Call)
		if !ok {
			continue
		}
		if fn := pysrc.DottedName(c.Func); !flaskConstructors[fn] && !imported[fn] {
			continue
		}
		for _, t := range a.Targets {
			if n, ok := t.(*pysrc.Name); ok {
				apps[n.ID] = true
			}
		}
	}
	return apps
}

// ModuleName returns the dotted Python module name of a project-relative
// source path. A package's __init__.py names the package.
func ModuleName(rel string) string {
	rel = strings.TrimSuffix(path.Clean(strings.ReplaceAll(rel, "\\", "/")), ".py")
	rel = strings.TrimSuffix(rel, "/__init__")
	return strings.ReplaceAll(rel, "/", ".")
}

// importsFrom reports whether imp is a from-import of one of modules.
// Relative and partially qualified module names match by suffix.
func importsFrom(imp pysrc.Import, modules []string) bool {
	name := strings.TrimLeft(imp.Module, ".")
	if !imp.From || name == "" {
		return false
	}
	for _, m := range modules {
		if m == name || strings.HasSuffix(m, "."+name) {
			return true
		}
	}
	return false
}

// ImportsFlaskApp reports whether mod imports from one of appModules, the
// shape of a runner script such as run.py or wsgi.py.
func ImportsFlaskApp(mod *pysrc.Module, appModules []string) bool {
	for _, imp := range mod.Imports {
		if importsFrom(imp, appModules) {
			return true
		}
	}
	return false
}

// HasFlaskApp reports whether mod constructs a Flask application.
func HasFlaskApp(mod *pysrc.Module) bool {
	for _, cs := range mod.Calls {
		if flaskConstructors[pysrc.DottedName(cs.Call.Func)] {
			return true
		}
	}
	return false
}

func flaskAssign(b *snapshot.Builder, ev *evaluator, apps map[string]bool, a *pysrc.Assign, origin snapshot.Origin) {
	if a.Op != "=" {
		return
	}
	for _, t := range a.Targets {
		switch n := t.(type) {
		case *pysrc.Name:
			if a.Scope.TopLevel() {
				ev.bind(n.ID, a.Value, ev.Eval(a.Value))
			}
		case *pysrc.Attr:
			if recv, ok := n.X.(*pysrc.Name); ok && apps[recv.ID] {
				if bd, ok := flaskAttrs[n.Attr]; ok {
					setFlask(b, ev, bd, a.Value, a.Scope, origin)
				}
			}
		case *pysrc.Subscript:
			if !isAppConfig(n.X, apps) {
				continue
			}
			if s, ok := n.Index.(*pysrc.Str); ok {
				if bd, ok := flaskConfig[s.Value]; ok {
					setFlask(b, ev, bd, a.Value, a.Scope, origin)
				}
			}
		}
	}
}

func flaskCall(b *snapshot.Builder, ev *evaluator, apps map[string]bool, cs *pysrc.CallSite, origin snapshot.Origin) {
	attr, ok := cs.Call.Func.(*pysrc.Attr)
	if !ok {
		return
	}
	if recv, ok := attr.X.(*pysrc.Name); ok && apps[recv.ID] && attr.Attr == "run" {
		flaskRun(b, ev, cs, origin)
		return
	}
	if !isAppConfig(attr.X, apps) {
		return
	}
	switch attr.Attr {
	case "update", "from_mapping":
		for _, kw := range cs.Call.Kwargs {
			if bd, ok := flaskConfig[kw.Name]; ok {
				setFlask(b, ev, bd, kw.Value, cs.Scope, origin)
			}
		}
		if len(cs.Call.Args) == 1 {
			if d, ok := cs.Call.Args[0].(*pysrc.Dict); ok {
				for key, bd := range flaskConfig {
					if v, ok := d.Lookup(key); ok {
						setFlask(b, ev, bd, v, cs.Scope, origin)
					}
				}
			}
		}
	case "from_object":
		// from_object(__name__) loads the module's own upper-case names.
		arg, ok := cs.Call.Arg(0, "obj")
		if n, isName := arg.(*pysrc.Name); !ok || !isName || n.ID != "__name__" {
			return
		}
		for name, bd := range flaskConfig {
			if e, ok := ev.exprs[name]; ok {
				setFlask(b, ev, bd, e, cs.Scope, origin)
			}
		}
	}
}

// flaskRun records app.run(...): the development server is in use unless the
// call only happens under an environment-dependent condition.
func flaskRun(b *snapshot.Builder, ev *evaluator, cs *pysrc.CallSite, origin snapshot.Origin) {
	mode := snapshot.ServerDev
	if _, gated := ev.guardEnv(cs.Scope); gated {
		mode = snapshot.ServerDevGated
	}
	v := snapshot.String(mode)
	v.Raw = cs.Call.Source()
	if !b.Has(snapshot.ServerMode) || b.Lookup(snapshot.ServerMode).Str == snapshot.ServerDevGated {
		b.Set(snapshot.ServerMode, v.WithOrigin(origin))
	}
	if dbg, ok := cs.Call.Kwarg("debug"); ok {
		setFlask(b, ev, flaskAttrs["debug"], dbg, cs.Scope, origin)
	}
}

func setFlask(b *snapshot.Builder, ev *evaluator, bd binding, e pysrc.Expr, scope pysrc.Scope, origin snapshot.Origin) {
	v := ev.drill(e, nil, bd.host)
	b.Set(bd.key, ev.guarded(v, scope).WithOrigin(origin))
}

func isAppConfig(e pysrc.Expr, apps map[string]bool) bool {
	attr, ok := e.(*pysrc.Attr)
	if !ok || attr.Attr != "config" {
		return false
	}
	recv, ok := attr.X.(*pysrc.Name)
	return ok && apps[recv.ID]
}

// allStatements orders every assignment and statement call by line,
// whatever block encloses it.
func allStatements(mod *pysrc.Module) []statement {
	var out []statement
	for i := range mod.Assigns {
		out = append(out, statement{line: mod.Assigns[i].Line, assign: &mod.Assigns[i]})
	}
	for i := range mod.Calls {
		if mod.Calls[i].Statement {
			out = append(out, statement{line: mod.Calls[i].Line, call: &mod.Calls[i]})
		}
	}
	sortStatements(out)
	return out
}
