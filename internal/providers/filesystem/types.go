package filesystem

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/GriffinCanCode/boxfs/internal/capability"
	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"go.uber.org/zap"
)

// Default permissions for entries created by Ops; the process umask still applies.
const (
	FilePerm os.FileMode = 0644
	DirPerm  os.FileMode = 0755
)

// Ops performs single-entry mutations and listings inside a confined root.
type Ops struct {
	guard   *paths.Guard
	profile capability.Profile
	log     *zap.Logger
}

// New creates filesystem operations over guard.
func New(guard *paths.Guard, profile capability.Profile, log *zap.Logger) *Ops {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ops{guard: guard, profile: profile, log: log.Named("filesystem")}
}

var errNotDirectory = errors.New("not a directory")

// resolveDir resolves dir and requires it to be a directory.
func (o *Ops) resolveDir(op, dir string) (string, error) {
	p, err := o.guard.Resolve(dir)
	if err != nil {
		return "", types.Wrap(op, dir, err)
	}
	info, err := os.Stat(p)
	if err != nil {
		return "", types.Wrap(op, dir, err)
	}
	if !info.IsDir() {
		return "", types.NewError(op, dir, types.KindInvalidArgument, errNotDirectory)
	}
	return p, nil
}

// resolveChild validates name as a single component and resolves it below dir. The result
// may not exist; its final component is not followed.
func (o *Ops) resolveChild(op, dir, name string) (string, error) {
	if err := paths.ValidateName(name); err != nil {
		return "", types.NewError(op, name, types.KindInvalidArgument, err)
	}
	base, err := o.resolveDir(op, dir)
	if err != nil {
		return "", err
	}
	p, err := o.guard.ResolveIn(base, name)
	if err != nil {
		return "", types.Wrap(op, filepath.Join(dir, name), err)
	}
	return p, nil
}

// resolveEntry resolves an existing entry without following a final symlink. The root itself
// is never a valid target for mutation.
func (o *Ops) resolveEntry(op, p string) (string, error) {
	real, err := o.guard.ResolveEntry(p)
	if err != nil {
		return "", types.Wrap(op, p, err)
	}
	if real == o.guard.Root() {
		return "", types.Errorf(op, p, types.KindPermissionDenied, "the root directory cannot be modified")
	}
	return real, nil
}
