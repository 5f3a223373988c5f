package archive

import (
	"context"
	"io/fs"
	"os"
	"strings"

	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/charlievieth/fastwalk"
)

// createShellTar has the tar binary write the planned members, in plan order, to a
// gzip-compressed tar at tmp. Recursion is disabled so tar adds exactly the planned list;
// -h stores the planned file links as regular files.
func (e *Engine) createShellTar(ctx context.Context, p *plan, tmp string) error {
	args := []string{e.profile.TarPath, "-c", "-z", "-h", "-f", tmp, "--no-recursion"}

	cwd := ""
	for _, m := range p.members {
		if m.parent != cwd {
			args = append(args, "-C", m.parent)
			cwd = m.parent
		}
		args = append(args, quoteMember("./"+m.name))
	}

	if _, err := e.runner.Run(ctx, "", args...); err != nil {
		return err
	}
	return syncFile(tmp)
}

// extractShellTar lists the archive, drops link members and names that leave the stage, and
// has the tar binary extract only the remaining members. Listed names are escaped by tar; they
// are passed back to tar as listed and unquoted for everything resolved on this side.
func (e *Engine) extractShellTar(ctx context.Context, archivePath string, st *stage, res *types.Result) error {
	tarPath := e.profile.TarPath

	list, err := e.runner.Run(ctx, "", tarPath, "-t", "-z", "-f", archivePath)
	if err != nil {
		return shellFailure(ctx, archivePath, err)
	}
	verbose, err := e.runner.Run(ctx, "", tarPath, "-t", "-v", "-z", "-f", archivePath)
	if err != nil {
		return shellFailure(ctx, archivePath, err)
	}

	names := splitLines(list.Stdout)
	lines := splitLines(verbose.Stdout)
	if len(names) != len(lines) {
		return types.Errorf("extract_archive", archivePath, types.KindInvalidArgument, "member listing is inconsistent")
	}

	type wanted struct{ listed, name, path string }
	var keep []wanted
	for i, listed := range names {
		name := unquoteMember(listed)
		switch memberType(lines[i]) {
		case 'l', 'h':
			st.rejectLink(name, res)
		case 'd', '-':
			if p, ok := st.target(name, res); ok {
				keep = append(keep, wanted{listed: listed, name: name, path: p})
			}
		default:
			st.skip(name, res)
		}
	}
	if len(keep) == 0 {
		return nil
	}

	args := []string{tarPath, "-x", "-z", "-f", archivePath, "-C", st.dir,
		"--no-recursion", "--no-same-owner", "--no-same-permissions", "--"}
	for _, w := range keep {
		args = append(args, strings.TrimSuffix(w.listed, "/"))
	}
	if _, err := e.runner.Run(ctx, "", args...); err != nil {
		return shellFailure(ctx, archivePath, err)
	}

	if err := sanitizeTree(st.dir); err != nil {
		return err
	}

	for _, w := range keep {
		if _, err := os.Lstat(w.path); err != nil {
			st.fail(w.name, w.path, err, res)
			continue
		}
		st.succeed(w.name, w.path, res)
	}
	return nil
}

// quoteMember escapes backslashes in a member name given to tar on the command line, which
// tar unquotes before use.
func quoteMember(name string) string {
	return strings.ReplaceAll(name, `\`, `\\`)
}

// unquoteMember reverses the C-style escaping tar applies to names in its listings: octal
// escapes for non-printable bytes, `\\` for a backslash and the usual single-letter escapes.
// Unknown escapes are kept as written.
func unquoteMember(name string) string {
	if !strings.Contains(name, `\`) {
		return name
	}

	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c != '\\' || i+1 == len(name) {
			b.WriteByte(c)
			continue
		}

		next := name[i+1]
		if next >= '0' && next <= '7' {
			v, n := 0, 0
			for n < 3 && i+1+n < len(name) && name[i+1+n] >= '0' && name[i+1+n] <= '7' {
				v = v*8 + int(name[i+1+n]-'0')
				n++
			}
			if v <= 0xff {
				b.WriteByte(byte(v))
				i += n
				continue
			}
		}
		if r, ok := memberEscapes[next]; ok {
			b.WriteByte(r)
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

var memberEscapes = map[byte]byte{
	'\\': '\\',
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
	'?':  '?',
	'"':  '"',
	'\'': '\'',
}

// memberType returns the entry type from a verbose listing line: '-' file, 'd' directory,
// 'l' symlink, 'h' hard link, others for special files. Hard links that a tar
// implementation prints as regular files are recognized by their "link to" suffix.
func memberType(line string) byte {
	if line == "" {
		return '?'
	}
	if strings.Contains(line, " link to ") {
		return 'h'
	}
	return line[0]
}

// sanitizeTree removes any link in dir and strips setuid and setgid bits.
func sanitizeTree(dir string) error {
	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return os.Remove(p)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode()&(os.ModeSetuid|os.ModeSetgid) != 0 {
			return os.Chmod(p, info.Mode()&keepBits)
		}
		return nil
	})
}

func shellFailure(ctx context.Context, archivePath string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return types.Errorf("extract_archive", archivePath, types.KindInvalidArgument, "tar failed: %v", err)
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func syncFile(p string) error {
	f, err := os.OpenFile(p, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
