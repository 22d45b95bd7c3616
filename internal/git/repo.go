package git

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Metadata describes the repository a project lives in.
type Metadata struct {
	Repo   string `json:"repo,omitempty"`
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// Empty reports whether nothing could be determined.
func (m Metadata) Empty() bool { return m == Metadata{} }

// validateRoot validates and normalizes a project root path.
// Returns the cleaned absolute path or an error if invalid.
func validateRoot(root string) (string, error) {
	if strings.ContainsRune(root, 0) {
		return "", fmt.Errorf("invalid path: contains null byte")
	}
	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access path %q: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", root)
	}
	return abs, nil
}

func open(root string) (*gogit.Repository, error) {
	abs, err := validateRoot(root)
	if err != nil {
		return nil, err
	}
	return gogit.PlainOpenWithOptions(abs, &gogit.PlainOpenOptions{DetectDotGit: true})
}

// RepoMetadata returns best-effort repository metadata for root, which may
// be any directory inside a work tree. The zero value is returned when root
// is not in a repository.
func RepoMetadata(root string) Metadata {
	repo, err := open(root)
	if err != nil {
		return Metadata{}
	}
	var m Metadata
	if rem, err := repo.Remote("origin"); err == nil {
		if urls := rem.Config().URLs; len(urls) > 0 {
			m.Repo = shortRepo(urls[0])
		}
	}
	head, err := repo.Head()
	if err != nil {
		// unborn branch: HEAD still names it
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			if ref, rerr := repo.Storer.Reference(plumbing.HEAD); rerr == nil && ref.Type() == plumbing.SymbolicReference {
				m.Branch = ref.Target().Short()
			}
		}
		return m
	}
	m.Commit = head.Hash().String()
	if head.Name().IsBranch() {
		m.Branch = head.Name().Short()
	} else {
		m.Branch = "HEAD"
	}
	return m
}

// shortRepo trims a remote URL to owner/name when possible.
func shortRepo(u string) string {
	s := strings.TrimSuffix(strings.TrimSpace(u), ".git")
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "/"); j >= 0 {
			s = s[j+1:]
		}
		return s
	}
	// scp-like: git@host:owner/name
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// Dir returns the .git directory of the work tree containing root, or ""
// when root is not inside a work tree with an on-disk .git directory.
func Dir(root string) string {
	repo, err := open(root)
	if err != nil {
		return ""
	}
	wt, err := repo.Worktree()
	if err != nil {
		return ""
	}
	dir := filepath.Join(wt.Filesystem.Root(), gogit.GitDirName)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}
