package pysrc

import (
	"strconv"
	"strings"
)

// Unquote decodes one or more adjacent Python string literals, including
// r/b/u/f prefixes and triple quotes. formatted reports an f-string prefix.
func Unquote(raw string) (value string, formatted bool, ok bool) {
	var out strings.Builder
	s := raw
	parsed := false
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		if s == "" {
			break
		}
		i := 0
		isRaw, isFmt := false, false
		for i < len(s) && i < 3 && strings.ContainsRune("rRbBuUfF", rune(s[i])) {
			switch s[i] {
			case 'r', 'R':
				isRaw = true
			case 'f', 'F':
				isFmt = true
			}
			i++
		}
		s = s[i:]
		var q string
		switch {
		case strings.HasPrefix(s, `"""`), strings.HasPrefix(s, `'''`):
			q = s[:3]
		case strings.HasPrefix(s, `"`), strings.HasPrefix(s, `'`):
			q = s[:1]
		default:
			return "", false, false
		}
		s = s[len(q):]
		end := closingQuote(s, q)
		if end < 0 {
			return "", false, false
		}
		body := s[:end]
		s = s[end+len(q):]
		if isRaw {
			out.WriteString(body)
		} else {
			out.WriteString(unescape(body))
		}
		formatted = formatted || isFmt
		parsed = true
	}
	return out.String(), formatted, parsed
}

func closingQuote(s, q string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(s[i:], q) {
			return i
		}
	}
	return -1
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case '\\', '\'', '"':
			b.WriteByte(s[i])
		case '\n':
		case 'x':
			if i+2 < len(s) {
				if n, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					b.WriteByte(byte(n))
					i += 2
					continue
				}
			}
			b.WriteString(`\x`)
		case 'u':
			if i+4 < len(s) {
				if n, err := strconv.ParseUint(s[i+1:i+5], 16, 32); err == nil {
					b.WriteRune(rune(n))
					i += 4
					continue
				}
			}
			b.WriteString(`\u`)
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
