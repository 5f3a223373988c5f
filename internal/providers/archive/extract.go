package archive

import (
	"context"

	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"go.uber.org/zap"
)

// extractor unpacks one detected layout into a stage.
type extractor struct {
	name    string
	extract func(ctx context.Context, src string, st *stage, res *types.Result) error
}

// selectExtractor picks the strategy for a detected layout. A nil extractor means no
// strategy is usable on this host.
func (e *Engine) selectExtractor(f format, archivePath string) *extractor {
	tar := func(f format) *extractor {
		return &extractor{name: StrategyTar, extract: func(ctx context.Context, src string, st *stage, res *types.Result) error {
			return e.extractTar(ctx, src, f, st, res)
		}}
	}

	switch f {
	case formatDirectory:
		return &extractor{name: StrategyPlainCopy, extract: e.extractPlainCopy}
	case formatZip:
		if e.profile.NativeArchive {
			return &extractor{name: StrategyZip, extract: e.extractZip}
		}
	case formatGzip:
		if e.profile.ShellExec && e.profile.POSIX && paths.IsTarGzName(archivePath) {
			return &extractor{name: StrategyShellTar, extract: e.extractShellTar}
		}
		if e.profile.NativeArchive {
			return tar(f)
		}
	case formatTar, formatZstd:
		if e.profile.NativeArchive {
			return tar(f)
		}
	}
	return nil
}

// Extract unpacks the archive at archivePath into destDir, or into "<stem>_extracted" next
// to the archive when destDir is empty. The layout is detected from content.
func (e *Engine) Extract(ctx context.Context, archivePath, destDir string) (*types.Result, error) {
	const op = "extract_archive"

	src, err := e.guard.Resolve(archivePath)
	if err != nil {
		return types.Failure(op, archivePath, err)
	}

	if destDir == "" {
		destDir = paths.ExtractDir(src)
	}
	dest, err := e.guard.ResolveFor(destDir)
	if err != nil {
		return types.Failure(op, destDir, err)
	}

	f, err := detect(src)
	if err != nil {
		return types.Failure(op, archivePath, err)
	}
	if f == formatUnknown {
		return types.Failure(op, archivePath, types.Errorf(op, archivePath, types.KindInvalidArgument, "not a recognized archive"))
	}
	if f == formatDirectory && paths.Within(src, dest) {
		return types.Failure(op, destDir, types.Errorf(op, destDir, types.KindInvalidArgument, "destination is inside the archive directory"))
	}

	x := e.selectExtractor(f, src)
	if x == nil {
		return types.Failure(op, archivePath, types.Errorf(op, archivePath, types.KindCapabilityUnavailable,
			"no strategy can extract %s archives (%s)", f, e.profile))
	}

	st, err := newStage(e.guard, e.log, dest)
	if err != nil {
		return types.Failure(op, destDir, err)
	}

	res := &types.Result{Op: op, Strategy: x.name, Output: dest}
	if x.name != StrategyZip {
		res.Note = e.fallbackNote(x.name)
	}

	if err := x.extract(ctx, src, st, res); err != nil {
		st.discard()
		res.Output = ""
		e.log.Warn("extraction failed", zap.String("strategy", x.name), zap.String("archive", src), zap.Error(err))
		return res, res.Abort(archivePath, err)
	}
	if err := ctx.Err(); err != nil {
		st.discard()
		res.Output = ""
		return res, res.Abort(archivePath, err)
	}

	if st.units > 0 && st.failed == st.units {
		st.discard()
		res.Output = ""
		return res, res.Settle(st.units, st.failed)
	}

	if err := st.commit(res); err != nil {
		st.discard()
		res.Output = ""
		return res, res.Abort(destDir, err)
	}
	return res, res.Settle(st.units, st.failed)
}
