// Package reposcan analyzes a local repository clone for the generation
// pipeline: a language histogram by file extension, a sample of the tree
// and the key files (README, manifests) that anchor the writer prompt.
package reposcan

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/scribehq/scribe"
	"github.com/scribehq/scribe/pipeline"
)

// Interface compliance check.
var _ pipeline.Analyzer = (*Scanner)(nil)

// Scanner resolves repository references to directories under a clone root
// and walks them. "owner/name" maps to <root>/owner/name; URL references
// use their trailing path segments the same way.
type Scanner struct {
	root       string
	ignore     []string
	treeSample int
	keyFileCap int64
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithIgnore replaces the default ignore globs (doublestar patterns
// matched against slash-separated paths relative to the repository).
func WithIgnore(patterns ...string) ScannerOption {
	return func(s *Scanner) { s.ignore = patterns }
}

// WithTreeSample caps the number of paths recorded in the tree sample.
func WithTreeSample(n int) ScannerOption {
	return func(s *Scanner) { s.treeSample = n }
}

// New creates a Scanner rooted at the clone directory root.
func New(root string, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		root: root,
		ignore: []string{
			".git/**",
			"node_modules/**",
			"vendor/**",
			"**/*.min.js",
			"**/*.lock",
		},
		treeSample: 200,
		keyFileCap: 16 * 1024,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// keyFileNames are read in full (capped) because they describe the project
// better than any histogram.
var keyFileNames = map[string]bool{
	"README.md":      true,
	"README":         true,
	"go.mod":         true,
	"package.json":   true,
	"pyproject.toml": true,
	"Cargo.toml":     true,
	"Makefile":       true,
	"Dockerfile":     true,
}

// Analyze implements pipeline.Analyzer. A reference that resolves outside
// the clone root or to a missing directory fails with KindRepoAccess.
func (s *Scanner) Analyze(ctx context.Context, targetRef string) (pipeline.Analysis, error) {
	dir, err := s.resolve(targetRef)
	if err != nil {
		return pipeline.Analysis{}, err
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return pipeline.Analysis{}, &scribe.SessionError{
			Kind:      scribe.KindRepoAccess,
			Message:   fmt.Sprintf("repository %q is not available", targetRef),
			Timestamp: time.Now(),
		}
	}

	analysis := pipeline.Analysis{
		Languages: make(map[string]int),
		KeyFiles:  make(map[string]string),
	}
	fsys := os.DirFS(dir)
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if p == "." {
			return nil
		}
		if s.ignored(p, d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		analysis.FileCount++
		if lang := languageOf(p); lang != "" {
			analysis.Languages[lang]++
		}
		if len(analysis.TreeSample) < s.treeSample {
			analysis.TreeSample = append(analysis.TreeSample, p)
		}
		if keyFileNames[path.Base(p)] && !strings.Contains(p, "/") {
			content, rerr := s.readCapped(fsys, p)
			if rerr == nil {
				analysis.KeyFiles[p] = content
			}
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return pipeline.Analysis{}, err
		}
		return pipeline.Analysis{}, fmt.Errorf("reposcan: walk %s: %w", targetRef, err)
	}
	sort.Strings(analysis.TreeSample)
	return analysis, nil
}

// resolve maps a repository reference to a directory under the clone root.
func (s *Scanner) resolve(targetRef string) (string, error) {
	ref := targetRef
	if strings.Contains(ref, "://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", badRef(targetRef)
		}
		ref = strings.Trim(u.Path, "/")
	}
	parts := strings.Split(ref, "/")
	if len(parts) < 2 {
		return "", badRef(targetRef)
	}
	owner, name := parts[len(parts)-2], strings.TrimSuffix(parts[len(parts)-1], ".git")
	if owner == "" || name == "" || owner == ".." || name == ".." {
		return "", badRef(targetRef)
	}
	return filepath.Join(s.root, owner, name), nil
}

func badRef(targetRef string) error {
	return &scribe.SessionError{
		Kind:      scribe.KindRepoAccess,
		Message:   fmt.Sprintf("cannot resolve repository reference %q", targetRef),
		Timestamp: time.Now(),
	}
}

func (s *Scanner) ignored(p string, isDir bool) bool {
	candidate := p
	if isDir {
		// Match directory patterns like ".git/**" against the directory
		// itself so the whole subtree is skipped.
		candidate = p + "/"
	}
	for _, pattern := range s.ignore {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
		if isDir {
			if ok, _ := doublestar.Match(pattern, candidate+"x"); ok {
				return true
			}
		}
	}
	return false
}

func (s *Scanner) readCapped(fsys fs.FS, p string) (string, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	buf := make([]byte, s.keyFileCap)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	return string(buf[:n]), nil
}

var languages = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".rs":    "Rust",
	".java":  "Java",
	".kt":    "Kotlin",
	".rb":    "Ruby",
	".php":   "PHP",
	".c":     "C",
	".h":     "C",
	".cc":    "C++",
	".cpp":   "C++",
	".cs":    "C#",
	".swift": "Swift",
	".sh":    "Shell",
	".sql":   "SQL",
	".md":    "Markdown",
	".yaml":  "YAML",
	".yml":   "YAML",
	".html":  "HTML",
	".css":   "CSS",
}

func languageOf(p string) string {
	return languages[strings.ToLower(path.Ext(p))]
}
