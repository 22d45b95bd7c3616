package report

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// highlightLine colours one line of evidence for a terminal. The lexer is
// picked from filename; settings evidence without a path is Python.
func highlightLine(line, filename string) string {
	var lexer chroma.Lexer
	if filename != "" {
		lexer = lexers.Match(filepath.Base(filename))
		if lexer == nil {
			if ext := filepath.Ext(filename); ext != "" {
				lexer = lexers.Match("file" + ext)
			}
		}
	} else {
		lexer = lexers.Get("python")
	}
	if lexer == nil {
		return line
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return line
	}
	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return line
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
