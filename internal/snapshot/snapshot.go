// Package snapshot holds the normalized, framework-agnostic view of a
// project's deployment-relevant configuration.
package snapshot

import (
	"sort"
	"strconv"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/deploylint/deploylint/internal/redact"
	"github.com/deploylint/deploylint/internal/types"
)

// Key is a symbolic configuration name shared by every framework adapter.
type Key string

const (
	DebugEnabled       Key = "debug_enabled"
	AllowedHosts       Key = "allowed_hosts"
	DatabaseHost       Key = "database_host"
	StaticURL          Key = "static_url"
	StaticRoot         Key = "static_root"
	StaticfilesStorage Key = "staticfiles_storage"
	CSRFTrustedOrigins Key = "csrf_trusted_origins"
	MiddlewareList     Key = "middleware_list"
	ServerMode         Key = "server_mode"
	SecretKey          Key = "secret_key"
	FrameworkVersion   Key = "framework_version"
)

// Keys returns every known key in a stable order.
func Keys() []Key {
	return []Key{
		DebugEnabled, AllowedHosts, DatabaseHost, StaticURL, StaticRoot,
		StaticfilesStorage, CSRFTrustedOrigins, MiddlewareList, ServerMode,
		SecretKey, FrameworkVersion,
	}
}

// Server modes recorded under ServerMode.
const (
	ServerDev      = "dev_server"
	ServerDevGated = "dev_server_gated"
	ServerWSGI     = "wsgi"
)

// Source is a configuration file that contributed to a snapshot.
type Source struct {
	Path string
	Hash uint64
}

func NewSource(path string, data []byte) Source {
	return Source{Path: path, Hash: xxhash.Sum64(data)}
}

// Snapshot is an immutable mapping from Key to Value. Every key in Keys()
// has an entry; keys not found in any source are explicitly absent.
type Snapshot struct {
	framework types.Framework
	values    map[Key]Value
	sources   []Source
	notices   []string
}

// Framework returns the framework the snapshot was extracted for.
func (s Snapshot) Framework() types.Framework { return s.framework }

// Get returns the value for k, or an absent value for unknown keys.
func (s Snapshot) Get(k Key) Value {
	v, ok := s.values[k]
	if !ok {
		return Absent()
	}
	return v.clone()
}

// Sources lists the files the snapshot was built from.
func (s Snapshot) Sources() []Source {
	return append([]Source(nil), s.sources...)
}

// Notices are low-confidence remarks recorded during extraction, such as
// sources that could not be parsed.
func (s Snapshot) Notices() []string {
	return append([]string(nil), s.notices...)
}

// Fingerprint hashes the contributing sources so callers can tell when a
// project's configuration changed.
func (s Snapshot) Fingerprint() string {
	return Fingerprint(s.Sources())
}

// Fingerprint hashes srcs independently of their order.
func Fingerprint(srcs []Source) string {
	srcs = append([]Source(nil), srcs...)
	sort.Slice(srcs, func(i, j int) bool { return srcs[i].Path < srcs[j].Path })
	d := xxhash.New()
	for _, src := range srcs {
		_, _ = d.WriteString(src.Path)
		_, _ = d.WriteString(strconv.FormatUint(src.Hash, 16))
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// String renders the snapshot one key per line, used by debug logging.
func (s Snapshot) String() string {
	var b strings.Builder
	for _, k := range Keys() {
		b.WriteString(string(k))
		b.WriteString("=")
		v := s.Get(k)
		if k == SecretKey && v.Kind == KindString {
			v.Str = redact.Mask(v.Str)
			if v.Default != nil {
				d := *v.Default
				d.Str = redact.Mask(d.Str)
				v.Default = &d
			}
		}
		b.WriteString(v.String())
		b.WriteString("\n")
	}
	return b.String()
}

// Builder accumulates values before freezing them into a Snapshot.
type Builder struct {
	framework types.Framework
	values    map[Key]Value
	sources   []Source
	notices   []string
}

func NewBuilder(fw types.Framework) *Builder {
	return &Builder{framework: fw, values: map[Key]Value{}}
}

// Set records v for k. Later sources win over earlier ones.
func (b *Builder) Set(k Key, v Value) {
	b.values[k] = v.clone()
}

// Has reports whether k has been set to a present value.
func (b *Builder) Has(k Key) bool {
	v, ok := b.values[k]
	return ok && v.Present()
}

// Lookup returns the value set so far for k.
func (b *Builder) Lookup(k Key) Value {
	v, ok := b.values[k]
	if !ok {
		return Absent()
	}
	return v.clone()
}

func (b *Builder) AddSource(path string, data []byte) {
	b.sources = append(b.sources, NewSource(path, data))
}

func (b *Builder) Notice(msg string) {
	b.notices = append(b.notices, msg)
}

// Build freezes the builder. The builder must not be used afterwards.
func (b *Builder) Build() Snapshot {
	vals := make(map[Key]Value, len(Keys()))
	for _, k := range Keys() {
		vals[k] = Absent()
	}
	for k, v := range b.values {
		vals[k] = v
	}
	return Snapshot{
		framework: b.framework,
		values:    vals,
		sources:   append([]Source(nil), b.sources...),
		notices:   append([]string(nil), b.notices...),
	}
}

// Empty returns a snapshot with every key absent and no sources.
func Empty(fw types.Framework) Snapshot {
	return NewBuilder(fw).Build()
}
