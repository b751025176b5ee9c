// Package policy implements the allow/deny path filter: a file is eligible
// for indexing or RPC reads only if it sits under one of the configured
// allowed roots, is not a reserved secret extension, and is not larger
// than MaxFileSize.
package policy

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// MaxFileSize is the hard ceiling on file size eligible for indexing or
// resource reads.
const MaxFileSize = 50 * 1024 * 1024 // 50 MiB

// deniedExtensions are reserved-secret suffixes, matched against the
// basename (so "service.env" and ".env" both deny, but "environment.go"
// does not).
var deniedExtensions = []string{".env", ".key", ".pem"}

// Filter enforces root containment, secret-extension denial, and the size
// ceiling. A Filter is built once per set of allowed roots and reused for
// every path-read boundary in the process.
type Filter struct {
	roots  []string // canonicalized, absolute
	ignore *gitignore.GitIgnore
}

// New canonicalizes each allowed root (resolving symlinks where possible)
// and optionally layers a gitignore-style deny pattern set on top of the
// extension/size/containment rules — a project's own .gitignore-shaped
// exclude list (vendor/, node_modules/, dist/, ...) is a deny-list the
// fixed extension/size/containment rules don't otherwise express.
func New(roots []string, extraDenyPatterns []string) (*Filter, error) {
	f := &Filter{roots: make([]string, 0, len(roots))}
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, err
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		f.roots = append(f.roots, filepath.ToSlash(abs))
	}
	if len(extraDenyPatterns) > 0 {
		ign := gitignore.CompileIgnoreLines(extraDenyPatterns...)
		f.ignore = ign
	}
	return f, nil
}

// Roots returns the canonicalized allowed roots, used by roots/list and
// resources/list.
func (f *Filter) Roots() []string {
	out := make([]string, len(f.roots))
	copy(out, f.roots)
	return out
}

// contained reports whether abs lies within one of the allowed roots after
// canonicalization.
func (f *Filter) contained(abs string) bool {
	abs = filepath.ToSlash(abs)
	for _, root := range f.roots {
		if abs == root || strings.HasPrefix(abs, root+"/") {
			return true
		}
	}
	return false
}

func deniedExtension(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, ext := range deniedExtensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

// AllowRead reports whether path may be read: it must canonicalize inside
// an allowed root, must not carry a denied extension, must not be excluded
// by the optional ignore patterns, and must not exceed MaxFileSize.
// Missing files are "not found", distinct from denial: for a contained
// file that cannot be stat'ed, AllowRead returns the stat error, so a
// missing file surfaces as an error for which os.IsNotExist is true.
func (f *Filter) AllowRead(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	if !f.contained(abs) {
		return false, nil
	}
	if deniedExtension(abs) {
		return false, nil
	}
	if f.excluded(abs) {
		return false, nil
	}
	info, err := os.Stat(abs)
	if err != nil {
		return false, err
	}
	if info.Size() > MaxFileSize {
		return false, nil
	}
	return true, nil
}

// AllowList is the list-time variant: any error (including "does not
// exist") is a deny, never surfaced to the caller — missing files are
// treated as deny, not error, at list time.
func (f *Filter) AllowList(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	if !f.contained(abs) {
		return false
	}
	if deniedExtension(abs) {
		return false
	}
	if f.excluded(abs) {
		return false
	}
	info, err := os.Stat(abs)
	if err != nil {
		return false
	}
	return info.Size() <= MaxFileSize
}

func (f *Filter) excluded(abs string) bool {
	if f.ignore == nil {
		return false
	}
	return f.ignore.MatchesPath(abs)
}
