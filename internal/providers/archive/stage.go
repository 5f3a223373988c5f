package archive

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/GriffinCanCode/boxfs/internal/shared/utils"
	"go.uber.org/zap"
)

// Permission bits kept on extracted entries; setuid and setgid are dropped.
const keepBits = os.ModePerm | os.ModeSticky

// stage is a private directory extracted entries are written into before they become
// visible at the destination.
type stage struct {
	guard *paths.Guard
	log   *zap.Logger
	dir   string
	dest  string
	merge bool

	units    int
	failed   int
	dirModes map[string]os.FileMode
	written  []string
}

// newStage prepares a staging directory for dest: a hidden sibling when dest does not exist,
// a hidden child when dest is an existing directory.
func newStage(guard *paths.Guard, log *zap.Logger, dest string) (*stage, error) {
	st := &stage{guard: guard, log: log, dest: dest, dirModes: map[string]os.FileMode{}}

	info, err := os.Lstat(dest)
	switch {
	case err == nil && info.IsDir():
		st.merge = true
		st.dir = paths.TempName(filepath.Join(dest, filepath.Base(dest)), "extract")
	case err == nil:
		return nil, types.Errorf("extract_archive", dest, types.KindAlreadyExists, "destination exists and is not a directory")
	case errors.Is(err, fs.ErrNotExist):
		if _, err := os.Stat(filepath.Dir(dest)); err != nil {
			return nil, types.Wrap("extract_archive", filepath.Dir(dest), err)
		}
		st.dir = paths.TempName(dest, "extract")
	default:
		return nil, types.Wrap("extract_archive", dest, err)
	}

	if err := os.Mkdir(st.dir, 0700); err != nil {
		return nil, types.Wrap("extract_archive", dest, err)
	}
	return st, nil
}

// target resolves an archive member name below the staging directory and counts it as a
// unit of work. Names that would land outside the stage are recorded as failures. The
// archive root itself ("./") is ignored.
func (s *stage) target(name string, res *types.Result) (string, bool) {
	clean := path.Clean("/" + strings.ReplaceAll(name, `\`, "/"))
	if clean == "/" && !strings.Contains(name, "..") {
		return "", false
	}

	s.units++
	p, err := s.guard.ResolveIn(s.dir, name)
	if err != nil {
		s.fail(name, "", err, res)
		return "", false
	}
	return p, true
}

func (s *stage) mkdir(name string, mode os.FileMode, res *types.Result) {
	p, ok := s.target(name, res)
	if !ok {
		return
	}

	if err := os.MkdirAll(p, 0700); err != nil {
		s.fail(name, p, err, res)
		return
	}
	perm := mode & keepBits
	if perm&os.ModePerm == 0 {
		perm |= 0755
	}
	s.dirModes[p] = perm
	s.succeed(name, p, res)
}

func (s *stage) writeFile(ctx context.Context, name string, mode os.FileMode, modTime time.Time, open func() (io.ReadCloser, error), res *types.Result) {
	p, ok := s.target(name, res)
	if !ok {
		return
	}

	perm := mode & keepBits
	if perm&os.ModePerm == 0 {
		perm |= 0644
	}

	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		s.fail(name, p, err, res)
		return
	}

	src, err := open()
	if err != nil {
		s.fail(name, p, err, res)
		return
	}
	defer src.Close()

	out, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		s.fail(name, p, err, res)
		return
	}
	if _, err := io.Copy(out, utils.ContextReader(ctx, src)); err != nil {
		out.Close()
		os.Remove(p)
		s.fail(name, p, err, res)
		return
	}
	if err := out.Close(); err != nil {
		s.fail(name, p, err, res)
		return
	}
	if err := os.Chmod(p, perm); err != nil {
		s.fail(name, p, err, res)
		return
	}
	setModTime(s.log, p, modTime)
	s.succeed(name, p, res)
}

// rejectLink records a link member; links are never materialized.
func (s *stage) rejectLink(name string, res *types.Result) {
	if _, ok := s.target(name, res); !ok {
		return
	}
	s.fail(name, "", types.Errorf("extract_archive", name, types.KindInvalidArgument, "link entries are not extracted"), res)
}

// skip records a member type that is not extracted (devices, fifos).
func (s *stage) skip(name string, res *types.Result) {
	res.Skip(name, "", "unsupported entry type")
}

func (s *stage) succeed(name, p string, res *types.Result) {
	s.written = append(s.written, p)
	res.Succeeded(name, s.finalPath(p))
}

func (s *stage) fail(name, p string, err error, res *types.Result) {
	if p != "" {
		p = s.finalPath(p)
	}
	s.failed++
	res.Fail(name, p, types.Wrap("extract_archive", name, err))
	s.log.Warn("cannot extract entry", zap.String("entry", name), zap.Error(err))
}

// finalPath maps a staged path to where it appears after commit.
func (s *stage) finalPath(p string) string {
	rel, err := filepath.Rel(s.dir, p)
	if err != nil {
		return p
	}
	return filepath.Join(s.dest, rel)
}

// applyDirModes sets the recorded directory permissions, deepest first, once nothing more is
// written below them.
func (s *stage) applyDirModes() {
	dirs := make([]string, 0, len(s.dirModes))
	for d := range s.dirModes {
		dirs = append(dirs, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, d := range dirs {
		if err := os.Chmod(d, s.dirModes[d]); err != nil {
			s.log.Debug("chmod failed", zap.String("path", d), zap.Error(err))
		}
	}
}

// commit makes the staged tree visible at the destination.
func (s *stage) commit(res *types.Result) error {
	if !s.merge {
		if err := os.Chmod(s.dir, 0755); err != nil {
			return err
		}
		s.applyDirModes()
		return os.Rename(s.dir, s.dest)
	}

	defer os.RemoveAll(s.dir)
	s.applyDirModesAfterMerge()
	return s.mergeInto(res)
}

// applyDirModesAfterMerge rewrites the recorded modes to their final location; they are
// applied once the merge has moved every entry.
func (s *stage) applyDirModesAfterMerge() {
	moved := make(map[string]os.FileMode, len(s.dirModes))
	for d, m := range s.dirModes {
		moved[s.finalPath(d)] = m
	}
	s.dirModes = moved
}

// mergeInto moves staged entries into the existing destination. Files replace files;
// directories merge with directories; a kind mismatch leaves the destination entry alone
// and is recorded as a failure.
func (s *stage) mergeInto(res *types.Result) error {
	type pair struct{ from, to string }
	stack := []pair{{from: s.dir, to: s.dest}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		names, err := readDirNames(cur.from)
		if err != nil {
			return err
		}
		for i := len(names) - 1; i >= 0; i-- {
			from := filepath.Join(cur.from, names[i])
			to := filepath.Join(cur.to, names[i])

			srcInfo, err := os.Lstat(from)
			if err != nil {
				return err
			}
			dstInfo, err := os.Lstat(to)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				if err := os.Rename(from, to); err != nil {
					return err
				}
			case err != nil:
				return err
			case srcInfo.IsDir() && dstInfo.IsDir():
				stack = append(stack, pair{from: from, to: to})
			case !srcInfo.IsDir() && !dstInfo.IsDir():
				if err := os.Rename(from, to); err != nil {
					return err
				}
			default:
				s.failed++
				rel, _ := filepath.Rel(s.dest, to)
				res.Fail(filepath.ToSlash(rel), to, types.Errorf("extract_archive", to, types.KindAlreadyExists, "destination entry has a different type"))
			}
		}
	}

	s.applyDirModes()
	return nil
}

// discard removes the staging directory and everything in it.
func (s *stage) discard() {
	os.RemoveAll(s.dir)
}
