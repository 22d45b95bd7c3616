package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

func django(t *testing.T, src string) snapshot.Snapshot {
	t.Helper()
	s, err := New(types.FrameworkDjango, nil).Source("settings.py", []byte(src))
	require.NoError(t, err)
	return s
}

func flask(t *testing.T, src string) snapshot.Snapshot {
	t.Helper()
	s, err := New(types.FrameworkFlask, nil).Source("app.py", []byte(src))
	require.NoError(t, err)
	return s
}

func TestDjango_Literals(t *testing.T) {
	s := django(t, `
SECRET_KEY = 'django-insecure-test-key'
DEBUG = True
ALLOWED_HOSTS = []
DATABASES = {
    'default': {
        'ENGINE': 'django.db.backends.postgresql',
        'HOST': 'localhost',
    }
}
STATIC_URL = '/static/'
`)
	assert.True(t, s.Get(snapshot.DebugEnabled).IsTrue())
	assert.False(t, s.Get(snapshot.DebugEnabled).FromEnv)
	assert.Equal(t, 3, s.Get(snapshot.DebugEnabled).Origin.Line)

	hosts := s.Get(snapshot.AllowedHosts)
	assert.Equal(t, snapshot.KindList, hosts.Kind)
	assert.True(t, hosts.Empty())

	assert.Equal(t, "localhost", s.Get(snapshot.DatabaseHost).Str)
	assert.Equal(t, "/static/", s.Get(snapshot.StaticURL).Str)
	assert.False(t, s.Get(snapshot.StaticRoot).Present())
	assert.False(t, s.Get(snapshot.CSRFTrustedOrigins).Present())
	assert.Equal(t, "django-insecure-test-key", s.Get(snapshot.SecretKey).Str)
}

func TestDjango_EnvironmentLookups(t *testing.T) {
	s := django(t, `
import os
import dj_database_url
from pathlib import Path

BASE_DIR = Path(__file__).resolve().parent.parent
SECRET_KEY = os.environ.get('SECRET_KEY', 'django-insecure-dev-key')
DEBUG = os.environ.get('DEBUG', 'False') == 'True'
ALLOWED_HOSTS = os.getenv('ALLOWED_HOSTS', 'localhost').split(',')
DATABASES = {
    'default': dj_database_url.config(default='postgres://u:p@127.0.0.1:5432/db', conn_max_age=600)
}
STATIC_ROOT = BASE_DIR / 'staticfiles'
`)
	dbg := s.Get(snapshot.DebugEnabled)
	assert.True(t, dbg.FromEnv)
	assert.Equal(t, "DEBUG", dbg.EnvVar)
	require.NotNil(t, dbg.Default)
	assert.False(t, dbg.Default.IsTrue())

	hosts := s.Get(snapshot.AllowedHosts)
	assert.True(t, hosts.FromEnv)
	assert.Equal(t, []string{"localhost"}, hosts.List)

	db := s.Get(snapshot.DatabaseHost)
	assert.True(t, db.FromEnv)
	assert.Equal(t, "DATABASE_URL", db.EnvVar)
	assert.Equal(t, "127.0.0.1", db.Str)

	key := s.Get(snapshot.SecretKey)
	assert.True(t, key.FromEnv)
	assert.Equal(t, "django-insecure-dev-key", key.Default.Str)

	root := s.Get(snapshot.StaticRoot)
	assert.Equal(t, snapshot.KindExpr, root.Kind)
	assert.Equal(t, "BASE_DIR / 'staticfiles'", root.Raw)
}

func TestDjango_DebugEnvironmentDefaults(t *testing.T) {
	cases := map[string]bool{
		"DEBUG = os.environ.get('DEBUG', 'True') == 'True'\n":  true,
		"DEBUG = os.getenv('DEBUG', True)\n":                    true,
		"DEBUG = os.environ.get('DEBUG', 'False') == 'True'\n": false,
	}
	for src, on := range cases {
		dbg := django(t, "import os\n"+src).Get(snapshot.DebugEnabled)
		assert.True(t, dbg.FromEnv, src)
		require.NotNil(t, dbg.Default, src)
		assert.Equal(t, on, dbg.Default.IsTrue(), src)
	}
}

func TestDjango_ThirdPartyEnvHelpers(t *testing.T) {
	s := django(t, `
import environ
from decouple import config
env = environ.Env()
DEBUG = env.bool('DEBUG', default=True)
SECRET_KEY = config('SECRET_KEY')
CSRF_TRUSTED_ORIGINS = env.list('CSRF_TRUSTED_ORIGINS', default=[])
`)
	dbg := s.Get(snapshot.DebugEnabled)
	assert.True(t, dbg.FromEnv)
	assert.True(t, dbg.IsTrue())

	key := s.Get(snapshot.SecretKey)
	assert.True(t, key.FromEnv)
	assert.Equal(t, "SECRET_KEY", key.EnvVar)
	assert.Nil(t, key.Default)

	assert.True(t, s.Get(snapshot.CSRFTrustedOrigins).FromEnv)
}

func TestDjango_ListMutationsAndOverrides(t *testing.T) {
	s := django(t, `
MIDDLEWARE = ['django.middleware.security.SecurityMiddleware']
MIDDLEWARE.insert(1, 'whitenoise.middleware.WhiteNoiseMiddleware')
MIDDLEWARE += ['django.middleware.common.CommonMiddleware']
ALLOWED_HOSTS = []
ALLOWED_HOSTS.append('example.com')
DEBUG = True
DEBUG = False
STORAGES = {"staticfiles": {"BACKEND": "storages.backends.s3boto3.S3Boto3Storage"}}
def helper():
    DEBUG = True
`)
	mw := s.Get(snapshot.MiddlewareList)
	assert.True(t, mw.Contains("whitenoise.middleware.WhiteNoiseMiddleware"))
	assert.True(t, mw.Contains("django.middleware.common.CommonMiddleware"))
	assert.Len(t, mw.List, 3)

	assert.Equal(t, []string{"example.com"}, s.Get(snapshot.AllowedHosts).List)
	assert.False(t, s.Get(snapshot.DebugEnabled).IsTrue())
	assert.Equal(t, "storages.backends.s3boto3.S3Boto3Storage", s.Get(snapshot.StaticfilesStorage).Str)
}

func TestDjango_InsertHonoursPosition(t *testing.T) {
	cases := map[string][]string{
		"MIDDLEWARE.insert(1, 'x')":  {"a", "x", "b", "c"},
		"MIDDLEWARE.insert(0, 'x')":  {"x", "a", "b", "c"},
		"MIDDLEWARE.insert(-1, 'x')": {"a", "b", "x", "c"},
		"MIDDLEWARE.insert(99, 'x')": {"a", "b", "c", "x"},
		"MIDDLEWARE.insert(MIDDLEWARE.index('b') + 1, 'x')": {"a", "b", "x", "c"},
		"MIDDLEWARE.insert(pos, 'x')":                        {"a", "b", "c", "x"},
	}
	for stmt, want := range cases {
		s := django(t, "MIDDLEWARE = ['a', 'b', 'c']\n"+stmt+"\n")
		assert.Equal(t, want, s.Get(snapshot.MiddlewareList).List, stmt)
	}
}

func TestDjango_GuardsAndSubscripts(t *testing.T) {
	s := django(t, `
import os
DATABASES = {'default': {'ENGINE': 'x'}}
DATABASES['default']['HOST'] = '127.0.0.1'
if os.environ.get('DEV'):
    SECRET_KEY = 'dev-only'
`)
	assert.Equal(t, "127.0.0.1", s.Get(snapshot.DatabaseHost).Str)
	key := s.Get(snapshot.SecretKey)
	assert.True(t, key.FromEnv)
	assert.Equal(t, "DEV", key.EnvVar)
}

func TestDjango_ElseOfEnvironmentChain(t *testing.T) {
	s := django(t, `
import os
if os.environ.get('ENV') == 'production':
    DEBUG = False
elif IS_STAGING:
    DEBUG = False
else:
    DEBUG = True
`)
	dbg := s.Get(snapshot.DebugEnabled)
	assert.True(t, dbg.FromEnv)
	assert.Equal(t, "ENV", dbg.EnvVar)
}

func TestDjango_ImplicitDatabaseHost(t *testing.T) {
	cases := []struct {
		src     string
		present bool
	}{
		{"DATABASES = {'default': {'ENGINE': 'django.db.backends.postgresql', 'NAME': 'app', 'HOST': ''}}", true},
		{"DATABASES = {'default': {'ENGINE': 'django.db.backends.mysql', 'NAME': 'app'}}", true},
		{"DATABASES = {}\nDATABASES['default'] = {'ENGINE': 'django.contrib.gis.db.backends.postgis'}", true},
		{"DATABASES = {'default': {'ENGINE': 'django.db.backends.sqlite3', 'NAME': 'db.sqlite3', 'HOST': ''}}", false},
		{"DATABASES = {'default': {'ENGINE': os.environ['DB_ENGINE'], 'NAME': 'app'}}", false},
		{"DATABASES = {'default': dj_database_url.parse('sqlite:///db.sqlite3')}", false},
	}
	for _, c := range cases {
		host := django(t, "import os\n"+c.src+"\n").Get(snapshot.DatabaseHost)
		if !c.present {
			assert.False(t, host.Present(), c.src)
			continue
		}
		require.True(t, host.Present(), c.src)
		assert.Equal(t, snapshot.KindString, host.Kind, c.src)
		assert.Empty(t, host.Str, c.src)
	}

	s := flask(t, "from flask import Flask\napp = Flask(__name__)\napp.config['SQLALCHEMY_DATABASE_URI'] = 'sqlite:///app.db'\n")
	assert.False(t, s.Get(snapshot.DatabaseHost).Present())
}

func TestDjango_NoneIsAbsent(t *testing.T) {
	s := django(t, "STATIC_ROOT = None\nSTATIC_URL = '/static/'\n")
	assert.False(t, s.Get(snapshot.StaticRoot).Present())
}

func TestFlask_AppConfiguration(t *testing.T) {
	s := flask(t, `
import os
from flask import Flask

app = Flask(__name__)
app.config['SECRET_KEY'] = 'hardcoded'
app.config['SQLALCHEMY_DATABASE_URI'] = 'postgresql://user:pw@localhost/app'
app.config.update(DEBUG=os.environ.get('FLASK_DEBUG') == '1')

@app.route('/')
def hello():
    return 'Hello, World!'

if __name__ == '__main__':
    app.run(port=5000)
`)
	assert.Equal(t, "hardcoded", s.Get(snapshot.SecretKey).Str)
	assert.Equal(t, "localhost", s.Get(snapshot.DatabaseHost).Str)
	assert.True(t, s.Get(snapshot.DebugEnabled).FromEnv)

	mode := s.Get(snapshot.ServerMode)
	assert.Equal(t, snapshot.ServerDev, mode.Str)
	assert.Equal(t, 15, mode.Origin.Line)
}

func TestFlask_GatedRunAndFactory(t *testing.T) {
	s := flask(t, `
import os
from flask import Flask

def create_app():
    app = Flask(__name__)
    app.secret_key = os.environ["SECRET_KEY"]
    app.debug = True
    if os.environ.get("LOCAL_DEV"):
        app.run()
    return app
`)
	assert.True(t, s.Get(snapshot.SecretKey).FromEnv)
	assert.True(t, s.Get(snapshot.DebugEnabled).IsTrue())
	assert.Equal(t, snapshot.ServerDevGated, s.Get(snapshot.ServerMode).Str)
}

func TestFlask_FromObjectName(t *testing.T) {
	s := flask(t, `
from flask import Flask
DEBUG = True
SECRET_KEY = 'x'
app = Flask(__name__)
app.config.from_object(__name__)
`)
	assert.True(t, s.Get(snapshot.DebugEnabled).IsTrue())
	assert.Equal(t, "x", s.Get(snapshot.SecretKey).Str)
}

func TestProject_FlaskRunnerImportsApp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "shop"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop", "app.py"), []byte("from flask import Flask\napp = Flask(__name__)\napp.config['SECRET_KEY'] = 'x'\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.py"), []byte("from .shop.app import app as application\napplication.run(debug=True)\n"), 0o644))

	in := Input{Root: dir, Settings: []string{"shop/app.py", "run.py"}}
	s := New(types.FrameworkFlask, nil).Project(in)
	assert.False(t, s.Get(snapshot.ServerMode).Present())

	in.AppModules = []string{"shop.app"}
	s = New(types.FrameworkFlask, nil).Project(in)
	mode := s.Get(snapshot.ServerMode)
	assert.Equal(t, snapshot.ServerDev, mode.Str)
	assert.Equal(t, "run.py", mode.Origin.Path)
	assert.True(t, s.Get(snapshot.DebugEnabled).IsTrue())
	assert.Equal(t, "x", s.Get(snapshot.SecretKey).Str)
}

func TestModuleName(t *testing.T) {
	for rel, want := range map[string]string{
		"app.py":               "app",
		"myshop/__init__.py":   "myshop",
		"src/myshop/wsgi.py":   "src.myshop.wsgi",
		"./web/application.py": "web.application",
	} {
		assert.Equal(t, want, ModuleName(rel), rel)
	}
}

func TestSource_ParseErrorRecovered(t *testing.T) {
	s, err := New(types.FrameworkDjango, nil).Source("settings.py", []byte("DEBUG = [True\n"))
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "settings.py", pe.Path)
	for _, k := range snapshot.Keys() {
		assert.False(t, s.Get(k).Present(), k)
	}

	_, err = New(types.FrameworkDjango, nil).Source("settings.py", []byte("DEBUG\x00 = True"))
	require.True(t, errors.As(err, &pe))
}

func TestProject_MissingFilesAndNotices(t *testing.T) {
	dir := t.TempDir()
	x := New(types.FrameworkDjango, nil)

	s := x.Project(Input{Root: dir, Settings: []string{"settings.py"}})
	assert.Empty(t, s.Sources())
	for _, k := range snapshot.Keys() {
		assert.False(t, s.Get(k).Present(), k)
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.py"), []byte("DEBUG = (\n"), 0o644))
	s = x.Project(Input{Root: dir, Settings: []string{"settings.py"}})
	require.Len(t, s.Notices(), 1)
	assert.Contains(t, s.Notices()[0], "settings.py")
}

func TestProject_EntryPointsAndVersion(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("settings.py", "DEBUG = False\n")
	write("Procfile", "release: python manage.py migrate\nweb: python manage.py runserver 0.0.0.0:$PORT\n")
	write("requirements.txt", "dj-database-url==2.1.0\nDjango>=4.2,<5.0\n")

	s := New(types.FrameworkDjango, nil).Project(Input{
		Root:         dir,
		Settings:     []string{"settings.py"},
		EntryPoints:  []string{"Procfile"},
		Requirements: []string{"requirements.txt"},
	})
	mode := s.Get(snapshot.ServerMode)
	assert.Equal(t, snapshot.ServerDev, mode.Str)
	assert.Equal(t, "Procfile", mode.Origin.Path)
	assert.Equal(t, 2, mode.Origin.Line)
	assert.Equal(t, "4.2.0", s.Get(snapshot.FrameworkVersion).Str)
	assert.Len(t, s.Sources(), 3)
}

func TestClassifyCommand(t *testing.T) {
	cases := map[string]string{
		"gunicorn myproject.wsgi --log-file -":         snapshot.ServerWSGI,
		"python manage.py migrate && gunicorn app:app": snapshot.ServerWSGI,
		"python -m uvicorn main:app":                   snapshot.ServerWSGI,
		"waitress-serve --port=$PORT app:app":          snapshot.ServerWSGI,
		"python manage.py runserver":                   snapshot.ServerDev,
		"flask run --host 0.0.0.0":                     snapshot.ServerDev,
		"python app.py":                                snapshot.ServerDev,
	}
	for cmd, want := range cases {
		got, ok := classifyCommand(cmd)
		require.True(t, ok, cmd)
		assert.Equal(t, want, got, cmd)
	}
	_, ok := classifyCommand("./start.sh")
	assert.False(t, ok)
}

func TestEntryManifests(t *testing.T) {
	render := "services:\n  - type: worker\n    startCommand: python worker.py\n  - type: web\n    startCommand: gunicorn app:app\n"
	v, ok := entryServerMode("render.yaml", []byte(render))
	require.True(t, ok)
	assert.Equal(t, snapshot.ServerWSGI, v.Str)
	assert.Equal(t, 5, v.Origin.Line)

	v, ok = entryServerMode("railway.json", []byte(`{"deploy": {"startCommand": "python manage.py runserver"}}`))
	require.True(t, ok)
	assert.Equal(t, snapshot.ServerDev, v.Str)

	v, ok = entryServerMode("railway.toml", []byte("[deploy]\nstartCommand = \"hypercorn app:app\"\n"))
	require.True(t, ok)
	assert.Equal(t, snapshot.ServerWSGI, v.Str)

	for _, body := range []string{
		"[deploy]\nstartCommand = \"\"\"gunicorn app:app\"\"\"\n",
		"deploy = { startCommand = \"gunicorn app:app\" }\n",
	} {
		v, ok = entryServerMode("railway.toml", []byte(body))
		require.True(t, ok, body)
		assert.Equal(t, snapshot.ServerWSGI, v.Str, body)
		assert.Equal(t, "gunicorn app:app", v.Raw, body)
	}

	v, ok = entryServerMode("app.yaml", []byte("runtime: python312\nentrypoint: gunicorn -b :$PORT main:app\n"))
	require.True(t, ok)
	assert.Equal(t, snapshot.ServerWSGI, v.Str)
}

func TestFrameworkVersion(t *testing.T) {
	cases := []struct {
		file, body, want string
		fw               types.Framework
	}{
		{"requirements.txt", "Django==3.2.18\n", "3.2.18", types.FrameworkDjango},
		{"requirements.txt", "djangorestframework==3.14\ndjango~=4.1\n", "4.1.0", types.FrameworkDjango},
		{"Pipfile", "[packages]\ndjango = \"==5.0\"\n", "5.0.0", types.FrameworkDjango},
		{"Pipfile", "[packages]\nDjango = {version = \"~=4.1\", extras = [\"bcrypt\"]}\n", "4.1.0", types.FrameworkDjango},
		{"pyproject.toml", "[project]\nname = \"shop\"\ndependencies = [\n  \"flask-login>=0.6\",\n  \"flask>=2.3\",\n]\n", "2.3.0", types.FrameworkFlask},
		{"pyproject.toml", "[tool.poetry.dependencies]\nDjango = {version = \"^4.2\", extras = [\"argon2\"]}\n", "4.2.0", types.FrameworkDjango},
	}
	for _, c := range cases {
		v, ok := frameworkVersion(c.fw, c.file, []byte(c.body))
		require.True(t, ok, c.body)
		assert.Equal(t, c.want, v.Str, c.body)
	}
	_, ok := frameworkVersion(types.FrameworkDjango, "requirements.txt", []byte("django<5\nflask==2.0\n"))
	assert.False(t, ok)
	_, ok = frameworkVersion(types.FrameworkDjango, "Pipfile", []byte("[packages]\ndjango = \"*\"\n"))
	assert.False(t, ok)
	_, ok = frameworkVersion(types.FrameworkDjango, "pyproject.toml", []byte("[tool.poetry\n"))
	assert.False(t, ok)
}
