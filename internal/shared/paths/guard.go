package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/boxfs/internal/shared/types"
)

// maxLinkHops bounds symlink chains followed while classifying a missing path.
const maxLinkHops = 40

// Guard confines paths to a canonical root directory.
type Guard struct {
	root  string // canonical (absolute, symlinks resolved)
	alias string // absolute form as configured, before symlink resolution
}

// NewGuard canonicalizes root. The root must be an existing directory.
func NewGuard(root string) (*Guard, error) {
	if root == "" {
		return nil, fmt.Errorf("root path is required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	return &Guard{root: canonical, alias: filepath.Clean(abs)}, nil
}

// Root returns the canonical root.
func (g *Guard) Root() string {
	return g.root
}

// Rel returns p relative to the root using forward slashes, "." for the root itself.
func (g *Guard) Rel(p string) string {
	rel, err := filepath.Rel(g.root, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

// Within reports whether p equals base or lies below it. Both must be clean absolute paths.
// The comparison happens at a separator boundary, so /srv/files_evil is not within /srv/files.
func Within(base, p string) bool {
	if p == base {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

// Resolve canonicalizes an existing path inside the root.
func (g *Guard) Resolve(candidate string) (string, error) {
	p, err := g.ResolveFor(candidate)
	if err != nil {
		return "", err
	}
	if _, err := os.Lstat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", types.NewError("resolve", candidate, types.KindNotFound, err)
		}
		return "", types.NewError("resolve", candidate, types.KindOutOfBounds, err)
	}
	return p, nil
}

// ResolveFor canonicalizes a path that may not exist yet. The existing prefix is resolved
// through symlinks; missing trailing components are appended as written.
func (g *Guard) ResolveFor(candidate string) (string, error) {
	if strings.ContainsRune(candidate, 0) {
		return "", types.Errorf("resolve", candidate, types.KindInvalidArgument, "NUL byte in path")
	}
	p, err := g.canonical(g.lexical(candidate), 0)
	if err != nil {
		return "", types.NewError("resolve", candidate, types.KindOutOfBounds, err)
	}
	return p, nil
}

// ResolveEntry canonicalizes the parent of candidate but not its final component, so a
// symlink is addressed as itself rather than its target. The entry must exist.
func (g *Guard) ResolveEntry(candidate string) (string, error) {
	if strings.ContainsRune(candidate, 0) {
		return "", types.Errorf("resolve", candidate, types.KindInvalidArgument, "NUL byte in path")
	}

	lex := g.lexical(candidate)
	if !Within(g.root, lex) {
		return "", types.Errorf("resolve", candidate, types.KindOutOfBounds, "path escapes root")
	}
	if lex == g.root {
		return g.root, nil
	}

	parent, err := g.Resolve(filepath.Dir(lex))
	if err != nil {
		return "", err
	}

	p := filepath.Join(parent, filepath.Base(lex))
	if !Within(g.root, p) || p == g.root {
		return "", types.Errorf("resolve", candidate, types.KindOutOfBounds, "path escapes root")
	}
	if _, err := os.Lstat(p); err != nil {
		return "", types.Wrap("resolve", candidate, err)
	}
	return p, nil
}

// ResolveIn joins the relative name rel below the canonical directory base and canonicalizes
// the parent of the result. The result may not exist. It fails with OutOfBounds when rel is
// absolute or when the result, lexically or after resolving symlinks, is not strictly below base.
func (g *Guard) ResolveIn(base, rel string) (string, error) {
	switch {
	case rel == "":
		return "", types.Errorf("resolve", rel, types.KindInvalidArgument, "empty name")
	case strings.ContainsRune(rel, 0):
		return "", types.Errorf("resolve", rel, types.KindInvalidArgument, "NUL byte in name")
	case filepath.IsAbs(rel), filepath.VolumeName(rel) != "", strings.HasPrefix(rel, "/"), strings.HasPrefix(rel, `\`):
		return "", types.Errorf("resolve", rel, types.KindOutOfBounds, "absolute name not allowed")
	}
	if !Within(g.root, base) {
		return "", types.Errorf("resolve", base, types.KindOutOfBounds, "base escapes root")
	}

	lex := filepath.Join(base, filepath.FromSlash(rel))
	if lex == base || !Within(base, lex) {
		return "", types.Errorf("resolve", rel, types.KindOutOfBounds, "name escapes %s", base)
	}

	parent, err := g.canonical(filepath.Dir(lex), 0)
	if err != nil {
		return "", types.NewError("resolve", rel, types.KindOutOfBounds, err)
	}

	p := filepath.Join(parent, filepath.Base(lex))
	if p == base || !Within(base, p) {
		return "", types.Errorf("resolve", rel, types.KindOutOfBounds, "name escapes %s", base)
	}
	return p, nil
}

// lexical turns candidate into a clean absolute path, rebasing paths written against the
// configured root spelling onto the canonical root.
func (g *Guard) lexical(candidate string) string {
	if !filepath.IsAbs(candidate) {
		return filepath.Join(g.root, candidate)
	}

	p := filepath.Clean(candidate)
	if g.alias != g.root && Within(g.alias, p) {
		rel, err := filepath.Rel(g.alias, p)
		if err == nil {
			return filepath.Join(g.root, rel)
		}
	}
	return p
}

// canonical resolves symlinks in the existing prefix of the clean absolute path p and
// appends the missing tail. Every intermediate result must stay inside the root.
func (g *Guard) canonical(p string, hops int) (string, error) {
	if hops > maxLinkHops {
		return "", fmt.Errorf("too many levels of symbolic links")
	}
	if !Within(g.root, p) {
		return "", fmt.Errorf("path escapes root")
	}

	existing := p
	var tail []string
	for {
		_, err := os.Lstat(existing)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing || !Within(g.root, parent) {
			return "", fmt.Errorf("path escapes root")
		}
		tail = append([]string{filepath.Base(existing)}, tail...)
		existing = parent
	}

	real, err := filepath.EvalSymlinks(existing)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		// existing is a dangling link: follow it by hand so a missing target inside the
		// root still reads as missing rather than escaping.
		next, ferr := g.followDangling(existing)
		if ferr != nil {
			return "", ferr
		}
		return g.canonical(filepath.Join(append([]string{next}, tail...)...), hops+1)
	}

	if !Within(g.root, real) {
		return "", fmt.Errorf("path escapes root")
	}
	return filepath.Join(append([]string{real}, tail...)...), nil
}

// followDangling returns the target of the dangling symlink at p, made absolute against the
// canonical directory holding the link.
func (g *Guard) followDangling(p string) (string, error) {
	target, err := os.Readlink(p)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target), nil
	}

	dir, err := filepath.EvalSymlinks(filepath.Dir(p))
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, target), nil
}
