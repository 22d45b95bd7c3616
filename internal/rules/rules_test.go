package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

func snap(fw types.Framework, set map[snapshot.Key]snapshot.Value) snapshot.Snapshot {
	b := snapshot.NewBuilder(fw)
	b.AddSource("settings.py", []byte("x"))
	for k, v := range set {
		b.Set(k, v)
	}
	return b.Build()
}

func env(v snapshot.Value, name string) snapshot.Value {
	d := v
	return v.FromEnvironment(name, &d)
}

func outcome(t *testing.T, r Rule, s snapshot.Snapshot) types.Outcome {
	t.Helper()
	f, err := Run(r, s)
	require.NoError(t, err)
	return f.Outcome
}

const (
	pass = types.OutcomePass
	fail = types.OutcomeFail
	na   = types.OutcomeNotApplicable
)

func TestRules_Outcomes(t *testing.T) {
	dj := types.FrameworkDjango
	cases := []struct {
		name string
		rule Rule
		set  map[snapshot.Key]snapshot.Value
		want types.Outcome
	}{
		{"debug absent", debugDisabled, nil, pass},
		{"debug true", debugDisabled, map[snapshot.Key]snapshot.Value{snapshot.DebugEnabled: snapshot.Bool(true)}, fail},
		{"debug false", debugDisabled, map[snapshot.Key]snapshot.Value{snapshot.DebugEnabled: snapshot.Bool(false)}, pass},
		{"debug env default true", debugDisabled, map[snapshot.Key]snapshot.Value{snapshot.DebugEnabled: env(snapshot.Bool(true), "DEBUG")}, fail},
		{"debug env default false", debugDisabled, map[snapshot.Key]snapshot.Value{snapshot.DebugEnabled: env(snapshot.Bool(false), "DEBUG")}, pass},
		{"debug env no default", debugDisabled, map[snapshot.Key]snapshot.Value{snapshot.DebugEnabled: snapshot.Expr("os.environ['DEBUG']").FromEnvironment("DEBUG", nil)}, pass},

		{"hosts absent", allowedHostsNonEmpty, nil, fail},
		{"hosts empty", allowedHostsNonEmpty, map[snapshot.Key]snapshot.Value{snapshot.AllowedHosts: snapshot.List()}, fail},
		{"hosts set", allowedHostsNonEmpty, map[snapshot.Key]snapshot.Value{snapshot.AllowedHosts: snapshot.List("*")}, pass},
		{"hosts env empty default", allowedHostsNonEmpty, map[snapshot.Key]snapshot.Value{snapshot.AllowedHosts: env(snapshot.List(), "HOSTS")}, pass},

		{"db absent", databaseHostNotLocal, nil, na},
		{"db localhost", databaseHostNotLocal, map[snapshot.Key]snapshot.Value{snapshot.DatabaseHost: snapshot.String("localhost")}, fail},
		{"db 127.0.0.1", databaseHostNotLocal, map[snapshot.Key]snapshot.Value{snapshot.DatabaseHost: snapshot.String("127.0.0.1")}, fail},
		{"db ::1", databaseHostNotLocal, map[snapshot.Key]snapshot.Value{snapshot.DatabaseHost: snapshot.String("::1")}, fail},
		{"db empty", databaseHostNotLocal, map[snapshot.Key]snapshot.Value{snapshot.DatabaseHost: snapshot.String("")}, fail},
		{"db remote", databaseHostNotLocal, map[snapshot.Key]snapshot.Value{snapshot.DatabaseHost: snapshot.String("db.internal")}, pass},
		{"db env localhost default", databaseHostNotLocal, map[snapshot.Key]snapshot.Value{snapshot.DatabaseHost: env(snapshot.String("localhost"), "DATABASE_URL")}, pass},

		{"static url only", staticRootDefined, map[snapshot.Key]snapshot.Value{snapshot.StaticURL: snapshot.String("/static/")}, fail},
		{"static both", staticRootDefined, map[snapshot.Key]snapshot.Value{snapshot.StaticURL: snapshot.String("/static/"), snapshot.StaticRoot: snapshot.Expr("BASE_DIR / 'staticfiles'")}, pass},
		{"static none", staticRootDefined, nil, na},
		{"static remote storage", staticRootDefined, map[snapshot.Key]snapshot.Value{
			snapshot.StaticURL:          snapshot.String("/static/"),
			snapshot.StaticfilesStorage: snapshot.String("storages.backends.s3boto3.S3Boto3Storage"),
		}, pass},
		{"static local storage", staticRootDefined, map[snapshot.Key]snapshot.Value{
			snapshot.StaticURL:          snapshot.String("/static/"),
			snapshot.StaticfilesStorage: snapshot.String("whitenoise.storage.CompressedManifestStaticFilesStorage"),
		}, fail},

		{"csrf absent unknown version", csrfTrustedOrigins, nil, fail},
		{"csrf absent django 3", csrfTrustedOrigins, map[snapshot.Key]snapshot.Value{snapshot.FrameworkVersion: snapshot.String("3.2.18")}, na},
		{"csrf absent django 4", csrfTrustedOrigins, map[snapshot.Key]snapshot.Value{snapshot.FrameworkVersion: snapshot.String("4.2.0")}, fail},
		{"csrf set", csrfTrustedOrigins, map[snapshot.Key]snapshot.Value{snapshot.CSRFTrustedOrigins: snapshot.List("https://*.railway.app")}, pass},
		{"csrf empty", csrfTrustedOrigins, map[snapshot.Key]snapshot.Value{snapshot.CSRFTrustedOrigins: snapshot.List()}, fail},

		{"middleware no static", staticFileMiddleware, nil, na},
		{"middleware missing", staticFileMiddleware, map[snapshot.Key]snapshot.Value{
			snapshot.StaticURL:      snapshot.String("/static/"),
			snapshot.MiddlewareList: snapshot.List("django.middleware.security.SecurityMiddleware"),
		}, fail},
		{"middleware whitenoise", staticFileMiddleware, map[snapshot.Key]snapshot.Value{
			snapshot.StaticURL:      snapshot.String("/static/"),
			snapshot.MiddlewareList: snapshot.List("whitenoise.middleware.WhiteNoiseMiddleware"),
		}, pass},
		{"middleware remote storage", staticFileMiddleware, map[snapshot.Key]snapshot.Value{
			snapshot.StaticURL:          snapshot.String("/static/"),
			snapshot.StaticfilesStorage: snapshot.String("storages.backends.s3boto3.S3StaticStorage"),
		}, pass},

		{"server absent", productionServer, nil, na},
		{"server dev", productionServer, map[snapshot.Key]snapshot.Value{snapshot.ServerMode: snapshot.String(snapshot.ServerDev)}, fail},
		{"server gated", productionServer, map[snapshot.Key]snapshot.Value{snapshot.ServerMode: snapshot.String(snapshot.ServerDevGated)}, pass},
		{"server wsgi", productionServer, map[snapshot.Key]snapshot.Value{snapshot.ServerMode: snapshot.String(snapshot.ServerWSGI)}, pass},

		{"secret absent", secretKeyNotHardcoded, nil, na},
		{"secret literal", secretKeyNotHardcoded, map[snapshot.Key]snapshot.Value{snapshot.SecretKey: snapshot.String("abc")}, fail},
		{"secret env", secretKeyNotHardcoded, map[snapshot.Key]snapshot.Value{snapshot.SecretKey: env(snapshot.String("dev"), "SECRET_KEY")}, pass},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, outcome(t, c.rule, snap(dj, c.set)))
		})
	}
}

func TestConfigurationFound(t *testing.T) {
	assert.Equal(t, fail, outcome(t, configurationFound, snapshot.Empty(types.FrameworkFlask)))
	assert.Equal(t, pass, outcome(t, configurationFound, snap(types.FrameworkFlask, nil)))
}

func TestSecretKeyEvidenceIsMasked(t *testing.T) {
	s := snap(types.FrameworkDjango, map[snapshot.Key]snapshot.Value{
		snapshot.SecretKey: snapshot.String("supersecretvalue").WithOrigin(snapshot.Origin{Path: "settings.py", Line: 4}),
	})
	f, err := Run(secretKeyNotHardcoded, s)
	require.NoError(t, err)
	assert.True(t, f.Failed())
	assert.NotContains(t, f.Evidence, "supersecretvalue")
	assert.Equal(t, "settings.py", f.Path)
	assert.Equal(t, 4, f.Line)
}

func TestEveryRuleYieldsKnownOutcome(t *testing.T) {
	snaps := []snapshot.Snapshot{
		snapshot.Empty(types.FrameworkDjango),
		snapshot.Empty(types.FrameworkFlask),
		snap(types.FrameworkDjango, map[snapshot.Key]snapshot.Value{
			snapshot.DebugEnabled:     snapshot.Expr("x"),
			snapshot.AllowedHosts:     snapshot.Expr("y"),
			snapshot.ServerMode:       snapshot.Expr("z"),
			snapshot.FrameworkVersion: snapshot.String("not-a-version"),
		}),
	}
	for _, r := range Default().All() {
		for _, s := range snaps {
			f, err := Run(r, s)
			require.NoError(t, err, r.ID)
			assert.Contains(t, []types.Outcome{pass, fail, na}, f.Outcome, r.ID)
			assert.Equal(t, f.Outcome != fail, f.Passed, r.ID)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	s := snap(types.FrameworkDjango, map[snapshot.Key]snapshot.Value{
		snapshot.DebugEnabled: snapshot.Bool(true),
		snapshot.StaticURL:    snapshot.String("/static/"),
	})
	for _, r := range Default().Set(types.FrameworkDjango, Filter{}) {
		a, _ := Run(r, s)
		b, _ := Run(r, s)
		assert.Equal(t, a, b, r.ID)
	}
}

func TestRun_RecoversPanics(t *testing.T) {
	r := Rule{ID: "boom", Severity: types.SevWarning, Check: func(snapshot.Snapshot) Result { panic("kaboom") }}
	f, err := Run(r, snapshot.Empty(types.FrameworkDjango))
	require.Error(t, err)
	var ee *EvaluationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "boom", ee.Rule)
	assert.Equal(t, fail, f.Outcome)
	assert.False(t, f.Passed)
	assert.Contains(t, f.Message, "kaboom")
}

func TestRegistry_SetsAndFilters(t *testing.T) {
	g := Default()
	var django []string
	for _, r := range g.Set(types.FrameworkDjango, Filter{}) {
		django = append(django, r.ID)
	}
	assert.Equal(t, []string{
		"configuration_found",
		"debug_disabled",
		"allowed_hosts_nonempty",
		"database_host_not_hardcoded_local",
		"static_root_defined",
		"csrf_trusted_origins_present",
		"static_file_middleware_present",
		"production_server_not_dev_server",
		"secret_key_not_hardcoded",
	}, django)

	var flask []string
	for _, r := range g.Set(types.FrameworkFlask, Filter{}) {
		flask = append(flask, r.ID)
	}
	assert.NotContains(t, flask, "allowed_hosts_nonempty")
	assert.Contains(t, flask, "production_server_not_dev_server")

	only := g.Set(types.FrameworkDjango, Filter{Enable: []string{"DEBUG_DISABLED", "secret_key_not_hardcoded"}, Disable: []string{"secret_key_not_hardcoded"}})
	require.Len(t, only, 1)
	assert.Equal(t, "debug_disabled", only[0].ID)

	assert.NoError(t, g.Validate(Filter{Disable: []string{"debug_disabled"}}))
	assert.Error(t, g.Validate(Filter{Enable: []string{"no_such_rule"}}))
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	g := NewRegistry()
	require.NoError(t, g.Register(debugDisabled))
	assert.Error(t, g.Register(Rule{ID: "Debug_Disabled", Check: debugDisabled.Check}))
	assert.Error(t, g.Register(Rule{ID: "no_check"}))
}

func TestRegistry_NewRuleDoesNotChangeOthers(t *testing.T) {
	s := snap(types.FrameworkDjango, map[snapshot.Key]snapshot.Value{
		snapshot.DebugEnabled: snapshot.Bool(true),
		snapshot.AllowedHosts: snapshot.List(),
	})
	before := map[string]types.Outcome{}
	g := NewRegistry()
	for _, r := range Default().All() {
		require.NoError(t, g.Register(r))
		before[r.ID] = outcome(t, r, s)
	}
	require.NoError(t, g.Register(Rule{
		ID:       "custom_always_fails",
		Severity: types.SevError,
		Check:    func(snapshot.Snapshot) Result { return Fail("nope", snapshot.Absent()) },
	}))
	for _, r := range g.Set(types.FrameworkDjango, Filter{}) {
		if r.ID == "custom_always_fails" {
			continue
		}
		assert.Equal(t, before[r.ID], outcome(t, r, s), r.ID)
	}
}
