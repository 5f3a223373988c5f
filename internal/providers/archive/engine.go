package archive

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/GriffinCanCode/boxfs/internal/capability"
	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/GriffinCanCode/boxfs/internal/shell"
	"go.uber.org/zap"
)

// Strategy names reported in results.
const (
	StrategyZip       = "zip"
	StrategyShellTar  = "shell-tar"
	StrategyTar       = "tar"
	StrategyPlainCopy = "plain-copy"
)

// Runner executes external programs from an argument vector.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (*shell.Result, error)
}

// Engine packs and unpacks archives inside a confined root, choosing a strategy from the
// capability profile on every call.
type Engine struct {
	guard   *paths.Guard
	profile capability.Profile
	runner  Runner
	log     *zap.Logger
}

// New creates an archive engine. runner may be nil when the profile has no ShellExec.
func New(guard *paths.Guard, profile capability.Profile, runner Runner, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if runner == nil {
		profile.ShellExec = false
	}
	return &Engine{guard: guard, profile: profile, runner: runner, log: log.Named("archive")}
}

// creator is one row of the creation strategy table.
type creator struct {
	name      string
	available func(capability.Profile) bool
	output    func(requested string) string
	create    func(e *Engine, ctx context.Context, p *plan, tmp string) error
}

var creators = []creator{
	{
		name:      StrategyZip,
		available: func(p capability.Profile) bool { return p.NativeArchive },
		output:    func(name string) string { return name },
		create:    (*Engine).createZip,
	},
	{
		name:      StrategyShellTar,
		available: func(p capability.Profile) bool { return p.ShellExec && p.POSIX },
		output:    paths.TarGzName,
		create:    (*Engine).createShellTar,
	},
	{
		name:      StrategyPlainCopy,
		available: func(capability.Profile) bool { return true },
		output:    paths.PlainName,
		create:    (*Engine).createPlainCopy,
	},
}

// selectCreator returns the first available creation strategy.
func (e *Engine) selectCreator() creator {
	for _, c := range creators {
		if c.available(e.profile) {
			return c
		}
	}
	return creators[len(creators)-1]
}

// Create packs req.Sources into an archive inside req.BaseDir.
func (e *Engine) Create(ctx context.Context, req types.ArchiveRequest) (*types.Result, error) {
	const op = "create_archive"

	if len(req.Sources) == 0 {
		return types.Failure(op, req.ArchiveName, types.Errorf(op, req.ArchiveName, types.KindInvalidArgument, "no sources given"))
	}
	if err := paths.ValidateName(req.ArchiveName); err != nil {
		return types.Failure(op, req.ArchiveName, types.NewError(op, req.ArchiveName, types.KindInvalidArgument, err))
	}

	base, err := e.resolveDir(op, req.BaseDir)
	if err != nil {
		return types.Failure(op, req.BaseDir, err)
	}

	strategy := e.selectCreator()
	output, err := e.guard.ResolveIn(base, strategy.output(req.ArchiveName))
	if err != nil {
		return types.Failure(op, req.ArchiveName, err)
	}
	if info, err := os.Lstat(output); err == nil && info.IsDir() {
		return types.Failure(op, output, types.Errorf(op, output, types.KindAlreadyExists, "a directory occupies the archive name"))
	}

	res := &types.Result{Op: op, Strategy: strategy.name, Output: output, Note: e.fallbackNote(strategy.name)}

	p, err := e.plan(ctx, req.Sources, output, res)
	if err != nil {
		return res, res.Abort(req.ArchiveName, err)
	}
	if len(p.members) == 0 {
		res.Output = ""
		if p.failed > 0 {
			return res, res.Settle(p.units, p.failed)
		}
		return res, res.Abort(req.ArchiveName, types.Errorf(op, req.ArchiveName, types.KindInvalidArgument, "nothing to archive"))
	}

	tmp := paths.TempName(output, "tmp")
	if err := strategy.create(e, ctx, p, tmp); err != nil {
		os.RemoveAll(tmp)
		res.Output = ""
		e.log.Warn("archive creation failed", zap.String("strategy", strategy.name), zap.Error(err))
		return res, res.Abort(req.ArchiveName, err)
	}
	if err := commitOutput(tmp, output); err != nil {
		os.RemoveAll(tmp)
		res.Output = ""
		return res, res.Abort(req.ArchiveName, err)
	}

	for _, m := range p.members {
		res.Succeeded(m.name, m.src)
	}
	return res, res.Settle(p.units, p.failed)
}

// commitOutput moves a finished temporary artifact over the final name. A regular file or
// link at the final name is replaced; a directory is never replaced.
func commitOutput(tmp, output string) error {
	info, err := os.Lstat(output)
	if err == nil {
		if info.IsDir() {
			return types.Errorf("create_archive", output, types.KindAlreadyExists, "a directory occupies the archive name")
		}
		if info.Mode().IsRegular() || info.Mode()&os.ModeSymlink != 0 {
			if st, err := os.Stat(tmp); err == nil && st.IsDir() {
				if err := os.Remove(output); err != nil {
					return err
				}
			}
		}
	}
	return os.Rename(tmp, output)
}

func (e *Engine) fallbackNote(strategy string) string {
	if strategy == StrategyZip {
		return ""
	}
	notes := e.profile.Notes()
	if len(notes) == 0 {
		return fmt.Sprintf("using %s", strategy)
	}
	return fmt.Sprintf("using %s: %s", strategy, strings.Join(notes, "; "))
}

// resolveDir resolves dir and requires it to be a directory.
func (e *Engine) resolveDir(op, dir string) (string, error) {
	p, err := e.guard.Resolve(dir)
	if err != nil {
		return "", types.Wrap(op, dir, err)
	}
	info, err := os.Stat(p)
	if err != nil {
		return "", types.Wrap(op, dir, err)
	}
	if !info.IsDir() {
		return "", types.Errorf(op, dir, types.KindInvalidArgument, "not a directory")
	}
	return p, nil
}
