package extract

import (
	"slices"
	"strconv"

	"github.com/deploylint/deploylint/internal/pysrc"
	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

var djangoSettings = map[string][]binding{
	"DEBUG":                {{key: snapshot.DebugEnabled}},
	"ALLOWED_HOSTS":        {{key: snapshot.AllowedHosts}},
	"DATABASES":            {{key: snapshot.DatabaseHost, path: []string{"default", "HOST"}, host: true}},
	"STATIC_URL":           {{key: snapshot.StaticURL}},
	"STATIC_ROOT":          {{key: snapshot.StaticRoot}},
	"STATICFILES_STORAGE":  {{key: snapshot.StaticfilesStorage}},
	"STORAGES":             {{key: snapshot.StaticfilesStorage, path: []string{"staticfiles", "BACKEND"}}},
	"CSRF_TRUSTED_ORIGINS": {{key: snapshot.CSRFTrustedOrigins}},
	"MIDDLEWARE":           {{key: snapshot.MiddlewareList}},
	"MIDDLEWARE_CLASSES":   {{key: snapshot.MiddlewareList}},
	"SECRET_KEY":           {{key: snapshot.SecretKey}},
}

// listMethods are in-place list mutations; the value is the index of the
// argument holding the new element.
var listMethods = map[string]int{"append": 0, "insert": 1, "extend": 0, "remove": 0}

type djangoAdapter struct{}

func (djangoAdapter) framework() types.Framework { return types.FrameworkDjango }

func (djangoAdapter) apply(b *snapshot.Builder, mod *pysrc.Module) {
	ev := newEvaluator()
	for _, st := range orderedStatements(mod) {
		origin := snapshot.Origin{Path: mod.Path, Line: st.line}
		if st.call != nil {
			djangoMutation(b, ev, st.call, origin)
			continue
		}
		a := st.assign
		for _, target := range a.Targets {
			djangoAssign(b, ev, a, target, origin)
		}
	}
}

func djangoAssign(b *snapshot.Builder, ev *evaluator, a *pysrc.Assign, target pysrc.Expr, origin snapshot.Origin) {
	name, tpath, ok := subscriptPath(target)
	if !ok {
		return
	}
	if a.Op != "=" {
		if len(tpath) > 0 || a.Op != "+=" {
			return
		}
		add := ev.Eval(a.Value)
		cur := currentSetting(b, ev, name)
		v := mutate(cur, "+=", add, len(cur.List), a.Value.Source())
		ev.bind(name, a.Value, v)
		for _, bd := range djangoSettings[name] {
			if len(bd.path) == 0 {
				b.Set(bd.key, ev.guarded(v, a.Scope).WithOrigin(origin))
			}
		}
		return
	}
	if len(tpath) == 0 {
		ev.bind(name, a.Value, ev.Eval(a.Value))
	}
	for _, bd := range djangoSettings[name] {
		if !hasPrefix(bd.path, tpath) {
			continue
		}
		v := ev.drill(a.Value, bd.path[len(tpath):], bd.host)
		if bd.key == snapshot.DatabaseHost {
			v = ev.implicitHost(a.Value, bd.path[len(tpath):], v)
		}
		if len(tpath) > 0 && !v.Present() {
			continue
		}
		b.Set(bd.key, ev.guarded(v, a.Scope).WithOrigin(origin))
	}
}

// djangoMutation handles NAME.append(x), NAME.insert(i, x), NAME.extend(xs)
// and NAME.remove(x) on list settings.
func djangoMutation(b *snapshot.Builder, ev *evaluator, cs *pysrc.CallSite, origin snapshot.Origin) {
	attr, ok := cs.Call.Func.(*pysrc.Attr)
	if !ok {
		return
	}
	recv, ok := attr.X.(*pysrc.Name)
	if !ok {
		return
	}
	idx, ok := listMethods[attr.Attr]
	if !ok {
		return
	}
	binds := djangoSettings[recv.ID]
	if len(binds) == 0 || len(binds[0].path) > 0 {
		return
	}
	arg, ok := cs.Call.Arg(idx, "")
	if !ok {
		return
	}
	cur := currentSetting(b, ev, recv.ID)
	at := len(cur.List)
	if attr.Attr == "insert" {
		if pos, ok := cs.Call.Arg(0, ""); ok {
			if i, ok := insertIndex(pos, cur.List); ok {
				at = i
			}
		}
	}
	v := mutate(cur, attr.Attr, ev.Eval(arg), at, cs.Call.Source())
	ev.bind(recv.ID, cs.Call, v)
	for _, bd := range binds {
		b.Set(bd.key, ev.guarded(v, cs.Scope).WithOrigin(origin))
	}
}

// insertIndex resolves the position argument of list.insert against list.
// Integer literals, negative offsets and NAME.index('x') plus or minus a
// literal are understood. Out of range positions clamp to the ends.
func insertIndex(e pysrc.Expr, list []string) (int, bool) {
	i, ok := listPos(e, list)
	if !ok {
		return 0, false
	}
	if i < 0 {
		i += len(list)
	}
	return min(max(i, 0), len(list)), true
}

func listPos(e pysrc.Expr, list []string) (int, bool) {
	switch n := e.(type) {
	case *pysrc.Num:
		i, err := strconv.Atoi(n.Text)
		return i, err == nil
	case *pysrc.Unary:
		if n.Op != "-" {
			return 0, false
		}
		i, ok := listPos(n.X, list)
		return -i, ok
	case *pysrc.BinOp:
		if n.Op != "+" && n.Op != "-" {
			return 0, false
		}
		x, okx := listPos(n.X, list)
		y, oky := listPos(n.Y, list)
		if !okx || !oky {
			return 0, false
		}
		if n.Op == "-" {
			return x - y, true
		}
		return x + y, true
	case *pysrc.Call:
		attr, ok := n.Func.(*pysrc.Attr)
		if !ok || attr.Attr != "index" || len(n.Args) != 1 {
			return 0, false
		}
		if s, ok := n.Args[0].(*pysrc.Str); ok {
			if i := slices.Index(list, s.Value); i >= 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// currentSetting returns the value of a setting assigned earlier in this
// module, or in a previously extracted settings module.
func currentSetting(b *snapshot.Builder, ev *evaluator, name string) snapshot.Value {
	if v, ok := ev.names[name]; ok {
		return v
	}
	if binds := djangoSettings[name]; len(binds) > 0 && len(binds[0].path) == 0 {
		return b.Lookup(binds[0].key)
	}
	return snapshot.Absent()
}

func hasPrefix(path, prefix []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}
