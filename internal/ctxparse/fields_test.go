package ctxparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func find(fs []Field, key string) (Field, bool) {
	for _, f := range fs {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

func TestYAMLFields_ScalarsAndItems(t *testing.T) {
	y := "" +
		"services:\n" +
		"  - type: worker\n" +
		"    startCommand: python worker.py\n" +
		"  - type: web\n" +
		"    startCommand: gunicorn app.wsgi\n"
	fs := YAMLFields([]byte(y))
	require.NotEmpty(t, fs)

	var web []Field
	for _, f := range fs {
		if f.Item == 1 {
			web = append(web, f)
		}
	}
	require.Len(t, web, 2)
	assert.Equal(t, "services.startCommand", web[1].Key)
	assert.Equal(t, "gunicorn app.wsgi", web[1].Value)
	assert.Equal(t, 5, web[1].Line)
}

func TestJSONFields_ValidAndInvalid(t *testing.T) {
	good := `{
  "deploy": {
    "startCommand": "gunicorn app:app"
  }
}`
	f, ok := find(JSONFields([]byte(good)), "deploy.startCommand")
	require.True(t, ok)
	assert.Equal(t, "gunicorn app:app", f.Value)
	assert.Equal(t, 3, f.Line)

	assert.Nil(t, JSONFields([]byte(`{"a":`)))
}

func TestTOMLFields(t *testing.T) {
	src := "# railway\n[deploy]\nstartCommand = \"python manage.py runserver\" # dev\nretries = 3\n"
	fs := TOMLFields([]byte(src))
	f, ok := find(fs, "deploy.startCommand")
	require.True(t, ok)
	assert.Equal(t, "python manage.py runserver", f.Value)
	assert.Equal(t, 3, f.Line)

	r, ok := find(fs, "deploy.retries")
	require.True(t, ok)
	assert.Equal(t, "3", r.Value)
}

func TestTOMLFields_StringAndTableForms(t *testing.T) {
	cases := []struct {
		name, src string
		line      int
	}{
		{"triple quoted", "[deploy]\nstartCommand = \"\"\"gunicorn app:app\"\"\"\n", 2},
		{"literal", "[deploy]\nstartCommand = 'gunicorn app:app'\n", 2},
		{"inline table", "[build]\nbuilder = \"nixpacks\"\n\ndeploy = { startCommand = \"gunicorn app:app\", numReplicas = 2 }\n", 4},
		{"dotted key", "deploy.startCommand = \"gunicorn app:app\"\n", 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f, ok := find(TOMLFields([]byte(c.src)), "deploy.startCommand")
			require.True(t, ok)
			assert.Equal(t, "gunicorn app:app", f.Value)
			assert.Equal(t, c.line, f.Line)
		})
	}
}

func TestTOMLFields_ArraysAndInvalid(t *testing.T) {
	src := "[project]\nname = \"shop\"\ndependencies = [\n  \"requests>=2\",\n  \"Django>=4.2\",\n]\n"
	var deps []Field
	for _, f := range TOMLFields([]byte(src)) {
		if f.Key == "project.dependencies" {
			deps = append(deps, f)
		}
	}
	require.Len(t, deps, 2)
	assert.Equal(t, "Django>=4.2", deps[1].Value)
	assert.Equal(t, 1, deps[1].Item)
	assert.Equal(t, 5, deps[1].Line)

	assert.Nil(t, TOMLFields([]byte("[deploy\nstartCommand = ")))
}

func TestProcfileFields(t *testing.T) {
	fs := ProcfileFields([]byte("release: python manage.py migrate\nweb: gunicorn mysite.wsgi --log-file -\n\nnot a process line\n"))
	require.Len(t, fs, 2)
	assert.Equal(t, "web", fs[1].Key)
	assert.Equal(t, "gunicorn mysite.wsgi --log-file -", fs[1].Value)
	assert.Equal(t, 2, fs[1].Line)
}
