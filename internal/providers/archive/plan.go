package archive

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"go.uber.org/zap"
)

// member is one entry of an archive being created.
type member struct {
	name    string // slash-separated, relative to the archive root, no trailing slash
	src     string // canonical path the content is read from
	parent  string // directory the source was selected in
	dir     bool
	mode    os.FileMode
	modTime time.Time
}

// plan is the complete, ordered content of an archive, computed before any output exists
// so that every strategy writes the same members in the same order.
type plan struct {
	members []member
	units   int
	failed  int
}

// plan resolves sources and walks directory sources in depth-first pre-order, siblings in
// byte-wise name order. A source outside the root aborts planning; missing or unreadable
// entries are recorded on res. skip names a path that must never be archived (the output).
func (e *Engine) plan(ctx context.Context, sources []string, skip string, res *types.Result) (*plan, error) {
	p := &plan{}
	seen := map[string]bool{}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		real, err := e.guard.Resolve(src)
		if err != nil {
			if types.KindOf(err) != types.KindNotFound {
				return nil, err
			}
			p.units++
			p.failed++
			res.Fail(src, "", err)
			continue
		}

		leaf := filepath.Base(real)
		if seen[leaf] {
			p.units++
			p.failed++
			res.Fail(src, real, types.Errorf("archive", src, types.KindAlreadyExists, "another source is already archived as %q", leaf))
			continue
		}
		seen[leaf] = true

		if err := e.walk(ctx, real, leaf, skip, p, res); err != nil {
			return nil, err
		}
	}

	return p, nil
}

type walkItem struct {
	path string
	name string
}

// walk adds the tree at root to p with an explicit stack.
func (e *Engine) walk(ctx context.Context, root, leaf, skip string, p *plan, res *types.Result) error {
	parent := filepath.Dir(root)
	stack := []walkItem{{path: root, name: leaf}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if it.path == skip || (it.path != root && paths.IsTemp(filepath.Base(it.path))) {
			continue
		}

		p.units++
		info, err := os.Lstat(it.path)
		if err != nil {
			e.failMember(p, res, it, err)
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			target, ok := e.linkTarget(root, it, res)
			if !ok {
				p.units--
				continue
			}
			if err := readable(target.path); err != nil {
				e.failMember(p, res, it, err)
				continue
			}
			p.members = append(p.members, member{
				name: it.name, src: target.path, parent: parent,
				mode: target.info.Mode(), modTime: target.info.ModTime(),
			})
			continue
		}

		switch {
		case info.IsDir():
			names, err := readDirNames(it.path)
			if err != nil {
				e.failMember(p, res, it, err)
				continue
			}
			p.members = append(p.members, member{
				name: it.name, src: it.path, parent: parent, dir: true,
				mode: info.Mode(), modTime: info.ModTime(),
			})
			for i := len(names) - 1; i >= 0; i-- {
				stack = append(stack, walkItem{
					path: filepath.Join(it.path, names[i]),
					name: path.Join(it.name, names[i]),
				})
			}
		case info.Mode().IsRegular():
			if err := readable(it.path); err != nil {
				e.failMember(p, res, it, err)
				continue
			}
			p.members = append(p.members, member{
				name: it.name, src: it.path, parent: parent,
				mode: info.Mode(), modTime: info.ModTime(),
			})
		default:
			p.units--
			res.Skip(it.name, it.path, "not a regular file or directory")
		}
	}

	return nil
}

type linkInfo struct {
	path string
	info os.FileInfo
}

// linkTarget follows a symlink found inside a directory source. Only links to regular files
// inside the same source tree are archived; everything else is skipped.
func (e *Engine) linkTarget(root string, it walkItem, res *types.Result) (linkInfo, bool) {
	target, err := e.guard.Resolve(it.path)
	if err != nil || !paths.Within(root, target) {
		res.Skip(it.name, it.path, "link target is outside the source tree")
		return linkInfo{}, false
	}
	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		res.Skip(it.name, it.path, "link does not point to a regular file")
		return linkInfo{}, false
	}
	return linkInfo{path: target, info: info}, true
}

func (e *Engine) failMember(p *plan, res *types.Result, it walkItem, err error) {
	p.failed++
	res.Fail(it.name, it.path, types.Wrap("archive", it.path, err))
	e.log.Warn("cannot archive entry", zap.String("path", it.path), zap.Error(err))
}

func readable(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	return f.Close()
}

func readDirNames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
