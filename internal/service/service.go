package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/GriffinCanCode/boxfs/internal/capability"
	"github.com/GriffinCanCode/boxfs/internal/config"
	"github.com/GriffinCanCode/boxfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/boxfs/internal/providers/archive"
	"github.com/GriffinCanCode/boxfs/internal/providers/fetch"
	"github.com/GriffinCanCode/boxfs/internal/providers/filesystem"
	"github.com/GriffinCanCode/boxfs/internal/shared/id"
	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/GriffinCanCode/boxfs/internal/shell"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures a Service.
type Options struct {
	Root             string
	Capability       capability.Config
	Fetch            fetch.Config
	Logger           *zap.Logger
	Registerer       prometheus.Registerer
	MetricsNamespace string

	// Runner overrides the tar runner; a shell.Runner is used when nil and the host allows it.
	Runner archive.Runner
	// Profile, when set, replaces the probed profile.
	Profile *capability.Profile
}

// Service is the single entry point to every operation on a confined root.
type Service struct {
	guard   *paths.Guard
	profile capability.Profile
	fs      *filesystem.Ops
	archive *archive.Engine
	fetch   *fetch.Fetcher
	metrics *monitoring.Metrics
	catalog *Catalog
	log     *zap.Logger
}

// New builds a Service rooted at opts.Root. The root must be an existing directory.
func New(opts Options) (*Service, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	guard, err := paths.NewGuard(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid root: %w", err)
	}

	profile := capability.Probe(opts.Capability)
	if opts.Profile != nil {
		profile = *opts.Profile
	}

	runner := opts.Runner
	if runner == nil && profile.ShellExec {
		runner = shell.New()
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	namespace := opts.MetricsNamespace
	if namespace == "" {
		namespace = "boxfs"
	}

	s := &Service{
		guard:   guard,
		profile: profile,
		fs:      filesystem.New(guard, profile, log),
		archive: archive.New(guard, profile, runner, log),
		fetch:   fetch.New(guard, profile, opts.Fetch, log),
		metrics: monitoring.NewMetrics(namespace, reg),
		catalog: NewCatalog(),
		log:     log.Named("service"),
	}

	if err := registerOperations(s.catalog); err != nil {
		return nil, err
	}

	s.log.Info("service ready",
		zap.String("root", guard.Root()),
		zap.Stringer("profile", profile),
		zap.Strings("missing", profile.Notes()))
	return s, nil
}

// FromConfig builds a Service from loaded configuration.
func FromConfig(cfg *config.Config, log *zap.Logger, reg prometheus.Registerer) (*Service, error) {
	return New(Options{
		Root: cfg.Root.Path,
		Capability: capability.Config{
			NativeArchive:  cfg.Archive.Native,
			AllowShell:     cfg.Archive.AllowShell,
			TarBinary:      cfg.Archive.TarBinary,
			AllowNetwork:   cfg.Fetch.AllowNetwork,
			RichHTTPClient: cfg.Fetch.RichClient,
		},
		Fetch: fetch.Config{
			Timeout:      cfg.Fetch.Timeout.Std(),
			MaxRedirects: cfg.Fetch.MaxRedirects,
			InsecureTLS:  cfg.Fetch.InsecureTLS,
			UserAgent:    cfg.Fetch.UserAgent,
			RateLimit:    cfg.Fetch.RateLimit,

			BreakerThreshold: cfg.Fetch.BreakerThreshold,
			BreakerCooldown:  cfg.Fetch.BreakerCooldown.Std(),
		},
		Logger:           log,
		Registerer:       reg,
		MetricsNamespace: cfg.Metrics.Namespace,
	})
}

// Profile returns the capability profile probed at startup.
func (s *Service) Profile() capability.Profile {
	return s.profile
}

// Root returns the canonical root directory.
func (s *Service) Root() string {
	return s.guard.Root()
}

// Catalog returns the operation catalog.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// List returns the entries directly inside dir.
func (s *Service) List(ctx context.Context, dir string) ([]types.Entry, error) {
	var entries []types.Entry
	_, err := s.run(ctx, func(ctx context.Context) (*types.Result, error) {
		var err error
		entries, err = s.fs.List(ctx, dir)
		return queryResult(OpList, dir, err)
	})
	return entries, err
}

// Find returns entries below dir whose relative path matches pattern.
func (s *Service) Find(ctx context.Context, dir, pattern string) ([]types.Entry, error) {
	var entries []types.Entry
	_, err := s.run(ctx, func(ctx context.Context) (*types.Result, error) {
		var err error
		entries, err = s.fs.Find(ctx, dir, pattern)
		return queryResult(OpFind, dir, err)
	})
	return entries, err
}

// Open returns a read handle on a regular file. The caller closes it.
func (s *Service) Open(ctx context.Context, path string) (*os.File, types.Entry, error) {
	var (
		f     *os.File
		entry types.Entry
	)
	_, err := s.run(ctx, func(ctx context.Context) (*types.Result, error) {
		var err error
		f, entry, err = s.fs.Open(ctx, path)
		return queryResult(OpOpen, path, err)
	})
	return f, entry, err
}

// CreateEmptyFile creates or truncates dir/name.
func (s *Service) CreateEmptyFile(ctx context.Context, dir, name string) (*types.Result, error) {
	return s.run(ctx, func(ctx context.Context) (*types.Result, error) {
		return s.fs.CreateEmptyFile(ctx, dir, name)
	})
}

// CreateDirectory creates parent/name.
func (s *Service) CreateDirectory(ctx context.Context, parent, name string) (*types.Result, error) {
	return s.run(ctx, func(ctx context.Context) (*types.Result, error) {
		return s.fs.CreateDirectory(ctx, parent, name)
	})
}

// Delete removes a file, link or empty directory.
func (s *Service) Delete(ctx context.Context, path string) (*types.Result, error) {
	return s.run(ctx, func(ctx context.Context) (*types.Result, error) {
		return s.fs.Delete(ctx, path)
	})
}

// DeleteRecursive removes path and everything below it.
func (s *Service) DeleteRecursive(ctx context.Context, path string) (*types.Result, error) {
	return s.run(ctx, func(ctx context.Context) (*types.Result, error) {
		return s.fs.DeleteRecursive(ctx, path)
	})
}

// Rename gives path a new name, optionally moving it into dir.
func (s *Service) Rename(ctx context.Context, path, newName, dir string) (*types.Result, error) {
	return s.run(ctx, func(ctx context.Context) (*types.Result, error) {
		return s.fs.Rename(ctx, path, newName, dir)
	})
}

// SetPermissions applies POSIX permission bits to path.
func (s *Service) SetPermissions(ctx context.Context, path string, mode uint32) (*types.Result, error) {
	return s.run(ctx, func(ctx context.Context) (*types.Result, error) {
		return s.fs.SetPermissions(ctx, path, mode)
	})
}

// Store writes r into dir/name atomically.
func (s *Service) Store(ctx context.Context, dir, name string, r io.Reader) (*types.Result, error) {
	return s.run(ctx, func(ctx context.Context) (*types.Result, error) {
		return s.fs.Store(ctx, dir, name, r)
	})
}

// CreateArchive packs the requested sources.
func (s *Service) CreateArchive(ctx context.Context, req types.ArchiveRequest) (*types.Result, error) {
	return s.run(ctx, func(ctx context.Context) (*types.Result, error) {
		return s.archive.Create(ctx, req)
	})
}

// ExtractArchive unpacks archivePath into destDir, or next to the archive when destDir is empty.
func (s *Service) ExtractArchive(ctx context.Context, archivePath, destDir string) (*types.Result, error) {
	return s.run(ctx, func(ctx context.Context) (*types.Result, error) {
		return s.archive.Extract(ctx, archivePath, destDir)
	})
}

// Fetch downloads req.URL into the root.
func (s *Service) Fetch(ctx context.Context, req types.FetchRequest) (*types.Result, error) {
	return s.run(ctx, func(ctx context.Context) (*types.Result, error) {
		return s.fetch.Fetch(ctx, req)
	})
}

// run executes one operation with an operation ID, metrics and a log line.
func (s *Service) run(ctx context.Context, fn func(context.Context) (*types.Result, error)) (*types.Result, error) {
	opID := id.NewOpID()
	timer := s.metrics.StartTimer()

	res, err := fn(ctx)
	elapsed := timer.Stop(res)

	s.logResult(opID, res, err, elapsed)
	return res, err
}

func (s *Service) logResult(opID id.OpID, res *types.Result, err error, elapsed time.Duration) {
	fields := []zap.Field{
		zap.Stringer("op_id", opID),
		zap.String("op", res.Op),
		zap.String("outcome", string(res.Outcome)),
		zap.Duration("duration", elapsed),
	}
	if res.Strategy != "" {
		fields = append(fields, zap.String("strategy", res.Strategy))
	}
	if res.Output != "" {
		fields = append(fields, zap.String("output", res.Output))
	}
	if res.Note != "" {
		fields = append(fields, zap.String("note", res.Note))
	}
	if n := len(res.Failures()); n > 0 {
		fields = append(fields, zap.Int("failed_entries", n))
	}

	level := zapcore.InfoLevel
	if op, ok := s.catalog.Lookup(res.Op); ok && op.ReadOnly {
		level = zapcore.DebugLevel
	}
	if err != nil {
		level = zapcore.WarnLevel
		fields = append(fields, zap.String("kind", string(types.KindOf(err))), zap.Error(err))
	}

	s.log.Log(level, "operation finished", fields...)
}

// queryResult turns the error of a read-only call into a result for metrics and logging.
func queryResult(op, path string, err error) (*types.Result, error) {
	if err != nil {
		return types.Failure(op, path, err)
	}
	return types.Success(op), nil
}
