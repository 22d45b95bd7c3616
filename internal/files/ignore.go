package files

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// AppendIgnore ensures pattern is listed in the .gitignore at root. The file
// is created when missing and a trailing newline is added before appending
// when the last line lacks one. Idempotent.
func AppendIgnore(root, pattern string) error {
	pattern = strings.TrimSpace(pattern)
	path := filepath.Join(root, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if Ignores(data, pattern) {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	line := pattern + "\n"
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		line = "\n" + line
	}
	_, err = f.WriteString(line)
	return err
}

// Ignores reports whether a .gitignore body lists pattern verbatim, with or
// without a leading slash.
func Ignores(gitignore []byte, pattern string) bool {
	pattern = strings.TrimPrefix(strings.TrimSpace(pattern), "/")
	sc := bufio.NewScanner(bytes.NewReader(gitignore))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		if strings.TrimPrefix(line, "/") == pattern {
			return true
		}
	}
	return false
}
