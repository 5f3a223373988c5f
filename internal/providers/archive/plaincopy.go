package archive

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/GriffinCanCode/boxfs/internal/shared/utils"
	"go.uber.org/zap"
)

// createPlainCopy mirrors the planned members into a directory at tmp. It needs no
// compression support and no external programs.
func (e *Engine) createPlainCopy(ctx context.Context, p *plan, tmp string) error {
	if err := os.Mkdir(tmp, 0755); err != nil {
		return err
	}

	var dirs []member
	for _, m := range p.members {
		if err := ctx.Err(); err != nil {
			return err
		}

		dst := filepath.Join(tmp, filepath.FromSlash(m.name))
		if m.dir {
			if err := os.Mkdir(dst, 0755); err != nil {
				return err
			}
			dirs = append(dirs, m)
			continue
		}
		if err := utils.CopyFile(ctx, m.src, dst, m.mode.Perm()); err != nil {
			return err
		}
		setModTime(e.log, dst, m.modTime)
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		dst := filepath.Join(tmp, filepath.FromSlash(dirs[i].name))
		if err := os.Chmod(dst, dirs[i].mode.Perm()); err != nil {
			e.log.Debug("chmod failed", zap.String("path", dst), zap.Error(err))
		}
		setModTime(e.log, dst, dirs[i].modTime)
	}
	return nil
}

// setModTime restores a modification time. Timestamps are best effort.
func setModTime(log *zap.Logger, p string, t time.Time) {
	if t.IsZero() {
		return
	}
	if err := os.Chtimes(p, t, t); err != nil {
		log.Debug("chtimes failed", zap.String("path", p), zap.Error(err))
	}
}

// extractPlainCopy copies a mirrored directory into the stage in depth-first pre-order.
// Links inside the mirror are recorded as failures, like link members of real archives.
func (e *Engine) extractPlainCopy(ctx context.Context, srcDir string, st *stage, res *types.Result) error {
	names, err := readDirNames(srcDir)
	if err != nil {
		return err
	}

	stack := make([]walkItem, 0, len(names))
	for i := len(names) - 1; i >= 0; i-- {
		stack = append(stack, walkItem{path: filepath.Join(srcDir, names[i]), name: names[i]})
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		info, err := os.Lstat(it.path)
		if err != nil {
			if p, ok := st.target(it.name, res); ok {
				st.fail(it.name, p, err, res)
			}
			continue
		}

		mode := info.Mode()
		switch {
		case mode&os.ModeSymlink != 0:
			st.rejectLink(it.name, res)
		case mode.IsDir():
			st.mkdir(it.name, mode, res)
			children, err := readDirNames(it.path)
			if err != nil {
				st.failed++
				res.Fail(it.name, it.path, types.Wrap("extract_archive", it.path, err))
				continue
			}
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, walkItem{
					path: filepath.Join(it.path, children[i]),
					name: path.Join(it.name, children[i]),
				})
			}
		case mode.IsRegular():
			src := it.path
			st.writeFile(ctx, it.name, mode, info.ModTime(), func() (io.ReadCloser, error) { return os.Open(src) }, res)
		default:
			st.skip(it.name, res)
		}
	}
	return nil
}
