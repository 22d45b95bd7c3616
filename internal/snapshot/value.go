package snapshot

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the semantic type of a Value.
type Kind int

const (
	KindAbsent Kind = iota
	KindBool
	KindString
	KindList
	// KindExpr is a value that is present in the source but could not be
	// reduced to a literal, e.g. BASE_DIR / 'staticfiles'.
	KindExpr
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindExpr:
		return "expr"
	default:
		return "absent"
	}
}

// Origin locates the assignment a value was read from.
type Origin struct {
	Path string
	Line int
}

// Value is a normalized configuration value.
type Value struct {
	Kind Kind
	Bool bool
	Str  string
	List []string
	// Raw is the source text of the expression, when known.
	Raw string

	// FromEnv is set when the value is read from the process environment.
	FromEnv bool
	// EnvVar is the first environment variable name the value reads.
	EnvVar string
	// Default is the literal used when the environment variable is unset.
	Default *Value

	Origin Origin
}

func Absent() Value { return Value{Kind: KindAbsent} }

func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

func String(s string) Value { return Value{Kind: KindString, Str: s} }

func List(items ...string) Value {
	return Value{Kind: KindList, List: append([]string{}, items...)}
}

func Expr(raw string) Value { return Value{Kind: KindExpr, Raw: raw} }

// Present reports whether the key was set at all.
func (v Value) Present() bool { return v.Kind != KindAbsent }

// IsTrue reports a literal boolean true.
func (v Value) IsTrue() bool { return v.Kind == KindBool && v.Bool }

// Empty reports an absent value, an empty string or an empty list.
func (v Value) Empty() bool {
	switch v.Kind {
	case KindAbsent:
		return true
	case KindString:
		return v.Str == ""
	case KindList:
		return len(v.List) == 0
	}
	return false
}

// Contains reports whether a list value holds item.
func (v Value) Contains(item string) bool {
	for _, s := range v.List {
		if s == item {
			return true
		}
	}
	return false
}

// WithOrigin returns a copy of v located at o.
func (v Value) WithOrigin(o Origin) Value {
	v = v.clone()
	v.Origin = o
	return v
}

// FromEnvironment returns a copy of v marked as read from envVar with the
// given default literal.
func (v Value) FromEnvironment(envVar string, def *Value) Value {
	v = v.clone()
	v.FromEnv = true
	if v.EnvVar == "" {
		v.EnvVar = envVar
	}
	if def != nil {
		d := def.clone()
		v.Default = &d
	}
	return v
}

func (v Value) clone() Value {
	if v.List != nil {
		v.List = append([]string{}, v.List...)
	}
	if v.Default != nil {
		d := v.Default.clone()
		v.Default = &d
	}
	return v
}

func (v Value) String() string {
	var s string
	switch v.Kind {
	case KindAbsent:
		return "<absent>"
	case KindBool:
		s = strconv.FormatBool(v.Bool)
	case KindString:
		s = strconv.Quote(v.Str)
	case KindList:
		q := make([]string, len(v.List))
		for i, it := range v.List {
			q[i] = strconv.Quote(it)
		}
		s = "[" + strings.Join(q, ", ") + "]"
	case KindExpr:
		s = "expr(" + v.Raw + ")"
	}
	if v.FromEnv {
		env := v.EnvVar
		if env == "" {
			env = "?"
		}
		s = fmt.Sprintf("%s env=%s", s, env)
		if v.Default != nil {
			s += " default=" + v.Default.String()
		}
	}
	return s
}
