package filesystem

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
)

// Find walks dir and returns the entries whose slash-separated path relative to dir matches
// the doublestar pattern (e.g. "**/*.go"). Results are sorted by path; files carry their
// detected MIME type. Links are never followed.
func (o *Ops) Find(ctx context.Context, dir, pattern string) ([]types.Entry, error) {
	const op = "find"

	if !doublestar.ValidatePattern(pattern) {
		return nil, types.Errorf(op, pattern, types.KindInvalidArgument, "invalid pattern")
	}

	base, err := o.resolveDir(op, dir)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		matches []string
	)
	conf := fastwalk.Config{Follow: false}

	err = fastwalk.Walk(&conf, base, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || p == base {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 || paths.IsTemp(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(base, p)
		if err != nil {
			return nil
		}
		if ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); ok {
			mu.Lock()
			matches = append(matches, p)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, types.Wrap(op, dir, err)
	}

	sort.Strings(matches)

	entries := make([]types.Entry, 0, len(matches))
	for _, p := range matches {
		info, err := os.Lstat(p)
		if err != nil {
			continue
		}
		entry := types.NewEntry(p, info)
		if !entry.IsDir() {
			entry.MIME = detectMIME(p)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
