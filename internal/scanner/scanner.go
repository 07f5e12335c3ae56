package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/panbanda/augur/pkg/config"
	"github.com/panbanda/augur/pkg/models"
)

// Scanner discovers candidate source files under a root directory.
// It never opens file contents.
type Scanner struct {
	config     *config.Config
	extensions map[string]bool
	denyDirs   map[string]bool

	patterns  gitignore.Matcher
	gitignore gitignore.Matcher
	gitPrefix []string // root's path relative to the git root
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Scanner{
		config:     cfg,
		extensions: make(map[string]bool, len(cfg.Analysis.Extensions)),
		denyDirs:   make(map[string]bool, len(cfg.Exclude.Dirs)),
	}
	for _, ext := range cfg.Analysis.Extensions {
		s.extensions[strings.ToLower(ext)] = true
	}
	for _, dir := range cfg.Exclude.Dirs {
		s.denyDirs[dir] = true
	}
	return s
}

// findGitRoot finds the root of the git repository by looking for a .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns builds the config-pattern matcher and, when enabled,
// the matcher for every .gitignore in the enclosing repository.
func (s *Scanner) loadExcludePatterns(root string) {
	s.patterns, s.gitignore, s.gitPrefix = nil, nil, nil

	var patterns []gitignore.Pattern
	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}
	if len(patterns) > 0 {
		s.patterns = gitignore.NewMatcher(patterns)
	}

	if !s.config.Exclude.Gitignore {
		return
	}
	gitRoot := findGitRoot(root)
	if gitRoot == "" {
		return
	}
	gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil)
	if err != nil || len(gitPatterns) == 0 {
		return
	}
	s.gitignore = gitignore.NewMatcher(gitPatterns)
	if rel, err := filepath.Rel(gitRoot, root); err == nil && rel != "." {
		s.gitPrefix = splitPath(rel)
	}
}

// isExcluded checks a root-relative path against the deny-list and both matchers.
func (s *Scanner) isExcluded(relPath string, isDir bool) bool {
	parts := splitPath(relPath)
	if isDir && len(parts) > 0 && s.denyDirs[parts[len(parts)-1]] {
		return true
	}
	if s.patterns != nil && s.patterns.Match(parts, isDir) {
		return true
	}
	if s.gitignore != nil {
		full := append(slices.Clone(s.gitPrefix), parts...)
		if s.gitignore.Match(full, isDir) {
			return true
		}
	}
	return false
}

// Scan walks root and returns the matching files sorted by relative path.
// A missing root, or one that is not a directory, yields models.ErrInvalidRoot.
func (s *Scanner) Scan(root string) ([]models.FileDescriptor, error) {
	absRoot, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(absRoot)

	files := make([]models.FileDescriptor, 0, 256)
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			return nil
		}
		if path == absRoot {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}

		// info describes the file a symlink points to, or the entry itself.
		var info fs.FileInfo
		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
			info, err = os.Stat(resolved)
			if err != nil || info.IsDir() {
				// WalkDir does not descend into symlinked directories.
				return nil
			}
		}

		if d.IsDir() {
			if s.isExcluded(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !s.extensions[ext] || s.isExcluded(relPath, false) {
			return nil
		}

		if info == nil {
			if info, err = d.Info(); err != nil {
				return nil
			}
		}
		files = append(files, models.FileDescriptor{
			Path:    path,
			RelPath: filepath.ToSlash(relPath),
			Ext:     ext,
			Size:    info.Size(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidRoot, walkErr)
	}

	slices.SortFunc(files, func(a, b models.FileDescriptor) int {
		return strings.Compare(a.RelPath, b.RelPath)
	})
	return files, nil
}

// ResolveRoot returns the absolute, symlink-free form of root, or an error
// wrapping models.ErrInvalidRoot.
func ResolveRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidRoot, err)
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidRoot, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", models.ErrInvalidRoot, root)
	}
	return absRoot, nil
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Trailing separator prevents "/root2" matching "/root".
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

func splitPath(p string) []string {
	return strings.Split(filepath.ToSlash(p), "/")
}
