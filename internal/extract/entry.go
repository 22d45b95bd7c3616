package extract

import (
	"path/filepath"
	"strings"

	"github.com/deploylint/deploylint/internal/ctxparse"
	"github.com/deploylint/deploylint/internal/snapshot"
)

// EntryPointFiles are the hosting manifests that declare a start command.
var EntryPointFiles = []string{"Procfile", "render.yaml", "railway.json", "railway.toml", "app.yaml"}

// productionServers are WSGI/ASGI servers suitable for production traffic.
var productionServers = map[string]bool{
	"gunicorn":       true,
	"uwsgi":          true,
	"waitress":       true,
	"waitress-serve": true,
	"uvicorn":        true,
	"hypercorn":      true,
	"daphne":         true,
	"granian":        true,
}

// entryServerMode reads the web start command of a hosting manifest and
// classifies it.
func entryServerMode(path string, data []byte) (snapshot.Value, bool) {
	f, ok := startCommand(path, data)
	if !ok {
		return snapshot.Value{}, false
	}
	mode, ok := classifyCommand(f.Value)
	if !ok {
		return snapshot.Value{}, false
	}
	v := snapshot.String(mode)
	v.Raw = f.Value
	return v.WithOrigin(snapshot.Origin{Path: path, Line: f.Line}), true
}

func startCommand(path string, data []byte) (ctxparse.Field, bool) {
	switch strings.ToLower(filepath.Base(path)) {
	case "procfile":
		return field(ctxparse.ProcfileFields(data), "web")
	case "railway.json":
		return field(ctxparse.JSONFields(data), "deploy.startCommand")
	case "railway.toml":
		return field(ctxparse.TOMLFields(data), "deploy.startCommand")
	case "app.yaml":
		return field(ctxparse.YAMLFields(data), "entrypoint")
	case "render.yaml":
		return renderStartCommand(ctxparse.YAMLFields(data))
	}
	return ctxparse.Field{}, false
}

func field(fs []ctxparse.Field, key string) (ctxparse.Field, bool) {
	for _, f := range fs {
		if f.Key == key {
			return f, true
		}
	}
	return ctxparse.Field{}, false
}

// renderStartCommand picks the start command of the first web service.
func renderStartCommand(fs []ctxparse.Field) (ctxparse.Field, bool) {
	kinds := map[int]string{}
	for _, f := range fs {
		if f.Key == "services.type" {
			kinds[f.Item] = f.Value
		}
	}
	for _, f := range fs {
		if f.Key != "services.startCommand" {
			continue
		}
		if t, ok := kinds[f.Item]; !ok || t == "web" {
			return f, true
		}
	}
	return ctxparse.Field{}, false
}

// classifyCommand maps a shell start command to a server mode. The first
// recognized server in the command decides.
func classifyCommand(cmd string) (string, bool) {
	toks := strings.Fields(cmd)
	for i, t := range toks {
		base := filepath.Base(t)
		switch {
		case productionServers[base]:
			return snapshot.ServerWSGI, true
		case base == "runserver":
			return snapshot.ServerDev, true
		case base == "flask" && i+1 < len(toks) && toks[i+1] == "run":
			return snapshot.ServerDev, true
		case strings.HasPrefix(base, "python") && i+1 < len(toks):
			next := toks[i+1]
			if strings.HasSuffix(next, ".py") && filepath.Base(next) != "manage.py" {
				return snapshot.ServerDev, true
			}
		}
	}
	return "", false
}
