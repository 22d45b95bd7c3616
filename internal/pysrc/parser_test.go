package pysrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assignTo(t *testing.T, m *Module, name string) Assign {
	t.Helper()
	for _, a := range m.Assigns {
		for _, tg := range a.Targets {
			if DottedName(tg) == name {
				return a
			}
		}
	}
	t.Fatalf("no assignment to %s", name)
	return Assign{}
}

func TestLex_MergesOperatorsAndStrings(t *testing.T) {
	toks, err := Lex("x += 1\ny = 'a' \"b\"\nif a >= b: pass\n")
	require.NoError(t, err)

	var ops []string
	for _, tk := range toks {
		if tk.Kind == TokOp {
			ops = append(ops, tk.Text)
		}
	}
	assert.Contains(t, ops, "+=")
	assert.Contains(t, ops, ">=")
	assert.Contains(t, ops, ":")
}

func TestLex_UnbalancedBrackets(t *testing.T) {
	_, err := Lex("X = [1, 2\n")
	require.Error(t, err)

	_, err = Lex("X = 1)\n")
	require.Error(t, err)
}

func TestLex_NewlinesInsideBracketsDropped(t *testing.T) {
	toks, err := Lex("X = [\n  'a',\n  'b',\n]\nY = 1\n")
	require.NoError(t, err)
	n := 0
	for _, tk := range toks {
		if tk.Kind == TokNewline {
			n++
		}
	}
	assert.Equal(t, 2, n)
}

func TestParse_Imports(t *testing.T) {
	src := `import os.path, dj_database_url as dburl
from .app import app as application
from myshop.factory import (
    create_app,
    db,
)
from settings import *
`
	m, err := Parse("wsgi.py", src)
	require.NoError(t, err)
	assert.Equal(t, []Import{
		{Module: "os.path", Names: []string{"os"}, Line: 1},
		{Module: "dj_database_url", Names: []string{"dburl"}, Line: 1},
		{Module: ".app", Names: []string{"application"}, From: true, Line: 2},
		{Module: "myshop.factory", Names: []string{"create_app", "db"}, From: true, Line: 3},
		{Module: "settings", From: true, Line: 7},
	}, m.Imports)
}

func TestParse_ByteOrderMark(t *testing.T) {
	m, err := Parse("settings.py", "\ufeffINSTALLED_APPS = ['shop']\nDEBUG = True\n")
	require.NoError(t, err)
	a := assignTo(t, m, "INSTALLED_APPS")
	assert.Equal(t, 1, a.Line)
	assert.Equal(t, 2, assignTo(t, m, "DEBUG").Line)

	toks, err := Lex("\ufeffX = 1\n")
	require.NoError(t, err)
	assert.Equal(t, "X", toks[0].Text)
	assert.Equal(t, TokName, toks[0].Kind)
}

func TestParse_Assignments(t *testing.T) {
	src := `import os
from pathlib import Path

BASE_DIR = Path(__file__).resolve().parent.parent
DEBUG = True  # comment
ALLOWED_HOSTS: list = ["a.example.com", 'b.example.com']
A = B = "same"
MIDDLEWARE += ["x"]
DATABASES = {
    'default': {
        'HOST': 'localhost',
    }
}
DATABASES['default']['HOST'] = "db"; X = 1
`
	m, err := Parse("settings.py", src)
	require.NoError(t, err)
	assert.Equal(t, []Import{
		{Module: "os", Names: []string{"os"}, Line: 1},
		{Module: "pathlib", Names: []string{"Path"}, From: true, Line: 2},
	}, m.Imports)
	assert.Zero(t, m.Skipped)

	dbg := assignTo(t, m, "DEBUG")
	assert.Equal(t, 5, dbg.Line)
	c, ok := dbg.Value.(*Const)
	require.True(t, ok)
	assert.Equal(t, "True", c.Value)

	hosts := assignTo(t, m, "ALLOWED_HOSTS")
	seq, ok := hosts.Value.(*Seq)
	require.True(t, ok)
	assert.Equal(t, "list", seq.Kind)
	require.Len(t, seq.Elts, 2)
	assert.Equal(t, "b.example.com", seq.Elts[1].(*Str).Value)

	chained := assignTo(t, m, "A")
	assert.Len(t, chained.Targets, 2)

	aug := assignTo(t, m, "MIDDLEWARE")
	assert.Equal(t, "+=", aug.Op)

	db := assignTo(t, m, "DATABASES")
	d, ok := db.Value.(*Dict)
	require.True(t, ok)
	inner, ok := d.Lookup("default")
	require.True(t, ok)
	host, ok := inner.(*Dict).Lookup("HOST")
	require.True(t, ok)
	assert.Equal(t, "localhost", host.(*Str).Value)

	var sub *Assign
	for i := range m.Assigns {
		if _, ok := m.Assigns[i].Targets[0].(*Subscript); ok {
			sub = &m.Assigns[i]
		}
	}
	require.NotNil(t, sub)
	assert.Equal(t, 14, sub.Line)
	assignTo(t, m, "X")
}

func TestParse_ScopesAndCalls(t *testing.T) {
	src := `from flask import Flask

app = Flask(__name__)

@app.route('/')
def hello():
    return 'hi'

if os.environ.get("LOCAL"):
    DEBUG = True
else:
    DEBUG = False

if __name__ == '__main__':
    app.run(debug=True, port=5000)
`
	m, err := Parse("app.py", src)
	require.NoError(t, err)

	var run *CallSite
	for i := range m.Calls {
		if DottedName(m.Calls[i].Call.Func) == "app.run" {
			run = &m.Calls[i]
		}
	}
	require.NotNil(t, run)
	assert.True(t, run.Statement)
	require.Len(t, run.Scope, 1)
	assert.Equal(t, "if", run.Scope[0].Kind)
	dbg, ok := run.Call.Kwarg("debug")
	require.True(t, ok)
	assert.Equal(t, "True", dbg.(*Const).Value)

	var guards []string
	for _, a := range m.Assigns {
		if DottedName(a.Targets[0]) == "DEBUG" {
			require.Len(t, a.Scope, 1)
			guards = append(guards, a.Scope[0].Kind)
			assert.Len(t, a.Scope[0].Conditions(), 1)
		}
	}
	assert.Equal(t, []string{"if", "else"}, guards)

	var routeSeen bool
	for _, c := range m.Calls {
		if DottedName(c.Call.Func) == "app.route" {
			routeSeen = true
		}
	}
	assert.True(t, routeSeen)
}

func TestParse_ElseNegatesWholeChain(t *testing.T) {
	src := `if os.environ.get("ENV") == "prod":
    DEBUG = False
elif IS_CI:
    DEBUG = False
else:
    DEBUG = True
for x in y:
    pass
else:
    LOOPED = True
`
	m, err := Parse("settings.py", src)
	require.NoError(t, err)

	var scopes []Guard
	for _, a := range m.Assigns {
		if DottedName(a.Targets[0]) == "DEBUG" {
			require.Len(t, a.Scope, 1)
			scopes = append(scopes, a.Scope[0])
		}
	}
	require.Len(t, scopes, 3)
	assert.Empty(t, scopes[0].Prior)
	assert.Len(t, scopes[1].Prior, 1)
	assert.Equal(t, "IS_CI", DottedName(scopes[1].Cond))

	els := scopes[2]
	assert.True(t, els.Negated)
	assert.Nil(t, els.Cond)
	conds := els.Conditions()
	require.Len(t, conds, 2)
	assert.Contains(t, conds[0].Source(), `"ENV"`)
	assert.Equal(t, "IS_CI", DottedName(conds[1]))

	// a for/else does not inherit the if chain above it
	looped := assignTo(t, m, "LOOPED")
	assert.Empty(t, looped.Scope[0].Conditions())
}

func TestParse_DefScopeAndOpaque(t *testing.T) {
	src := `def create_app():
    app = Flask(__name__)
    app.config.update(SECRET_KEY=os.environ["SECRET_KEY"])
    return app

STATIC_ROOT = BASE_DIR / 'staticfiles'
HOSTS = [h for h in range(3)]
`
	m, err := Parse("factory.py", src)
	require.NoError(t, err)

	app := assignTo(t, m, "app")
	require.Len(t, app.Scope, 1)
	assert.Equal(t, "def", app.Scope[0].Kind)
	assert.Equal(t, "create_app", app.Scope[0].Name)

	root := assignTo(t, m, "STATIC_ROOT")
	bin, ok := root.Value.(*BinOp)
	require.True(t, ok)
	assert.Equal(t, "/", bin.Op)
	assert.Equal(t, "BASE_DIR / 'staticfiles'", root.Value.Source())

	hosts := assignTo(t, m, "HOSTS")
	_, ok = hosts.Value.(*Opaque)
	assert.True(t, ok)
}

func TestUnquote(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		fmt  bool
	}{
		{`'plain'`, "plain", false},
		{`"a\nb"`, "a\nb", false},
		{`r'\d+'`, `\d+`, false},
		{`f"{x}"`, "{x}", true},
		{`'''tri'''`, "tri", false},
		{`'a' "b"`, "ab", false},
		{`u'é'`, "é", false},
	}
	for _, c := range cases {
		got, f, ok := Unquote(c.raw)
		require.True(t, ok, c.raw)
		assert.Equal(t, c.want, got, c.raw)
		assert.Equal(t, c.fmt, f, c.raw)
	}
	_, _, ok := Unquote(`'open`)
	assert.False(t, ok)
}
