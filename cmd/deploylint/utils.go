package deploylint

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/deploylint/deploylint/internal/config"
)

// exitCode carries a non-zero process status out of a command without
// printing an error.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func pickString(cli string, file *string, def string) string {
	if cli != "" {
		return cli
	}
	if file != nil && *file != "" {
		return *file
	}
	return def
}

func pickInt(cli int, file *int) int {
	if cli != 0 {
		return cli
	}
	if file != nil {
		return *file
	}
	return 0
}

func pickInt64(cli int64, file *int64, def int64) int64 {
	if cli != 0 {
		return cli
	}
	if file != nil && *file != 0 {
		return *file
	}
	return def
}

// pickBool lets an explicitly passed flag win in both directions.
func pickBool(cli bool, changed bool, file *bool, def bool) bool {
	if changed {
		return cli
	}
	if file != nil {
		return *file
	}
	return def
}

func pickList(cli string, file config.StringList) []string {
	if strings.TrimSpace(cli) == "" {
		return file
	}
	var out []string
	for _, p := range strings.Split(cli, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// colorEnabled reports whether w is a terminal and colour was not disabled
// by flag, config or NO_COLOR.
func colorEnabled(w io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func strPtr(s string) *string { return &s }

func optStrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}

func boolPtr(b bool) *bool { return &b }
