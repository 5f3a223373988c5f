package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/GriffinCanCode/boxfs/internal/service"
	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/spf13/pflag"
)

// env is what a command runs against.
type env struct {
	svc    *service.Service
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// command is one CLI subcommand. Commands that mutate return the result to print; read-only
// commands print their own output and return a nil result.
type command struct {
	name    string
	usage   string
	summary string
	minArgs int
	maxArgs int // -1 for unlimited
	flags   func(*pflag.FlagSet)
	run     func(ctx context.Context, e *env, args []string) (*types.Result, error)
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands() {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func commands() []command {
	var (
		recursive bool
		asJSON    bool
		into      string
		dest      string
		baseDir   string
		saveAs    string
		checksum  string
	)

	return []command{
		{
			name: "profile", usage: "", summary: "Show the host capability profile and available operations",
			maxArgs: 0,
			run: func(ctx context.Context, e *env, args []string) (*types.Result, error) {
				return nil, e.printProfile()
			},
		},
		{
			name: "ls", usage: "[--json] [dir]", summary: "List a directory",
			maxArgs: 1,
			flags: func(f *pflag.FlagSet) {
				f.BoolVar(&asJSON, "json", false, "print entries as JSON")
			},
			run: func(ctx context.Context, e *env, args []string) (*types.Result, error) {
				entries, err := e.svc.List(ctx, argOr(args, 0, "."))
				if err != nil {
					return nil, err
				}
				if asJSON {
					return nil, e.printJSON(entries)
				}
				return nil, e.printEntries(entries)
			},
		},
		{
			name: "find", usage: "[--json] <pattern> [dir]", summary: "Find entries matching a glob pattern",
			minArgs: 1, maxArgs: 2,
			flags: func(f *pflag.FlagSet) {
				f.BoolVar(&asJSON, "json", false, "print entries as JSON")
			},
			run: func(ctx context.Context, e *env, args []string) (*types.Result, error) {
				entries, err := e.svc.Find(ctx, argOr(args, 1, "."), args[0])
				if err != nil {
					return nil, err
				}
				if asJSON {
					return nil, e.printJSON(entries)
				}
				return nil, e.printEntries(entries)
			},
		},
		{
			name: "cat", usage: "<file>", summary: "Write a file to stdout",
			minArgs: 1, maxArgs: 1,
			run: func(ctx context.Context, e *env, args []string) (*types.Result, error) {
				f, _, err := e.svc.Open(ctx, args[0])
				if err != nil {
					return nil, err
				}
				defer f.Close()
				_, err = io.Copy(e.stdout, f)
				return nil, err
			},
		},
		{
			name: "touch", usage: "<path>", summary: "Create or truncate an empty file",
			minArgs: 1, maxArgs: 1,
			run: func(ctx context.Context, e *env, args []string) (*types.Result, error) {
				dir, name := splitPath(args[0])
				return e.svc.CreateEmptyFile(ctx, dir, name)
			},
		},
		{
			name: "mkdir", usage: "<path>", summary: "Create a directory",
			minArgs: 1, maxArgs: 1,
			run: func(ctx context.Context, e *env, args []string) (*types.Result, error) {
				dir, name := splitPath(args[0])
				return e.svc.CreateDirectory(ctx, dir, name)
			},
		},
		{
			name: "rm", usage: "[-r] <path>", summary: "Delete a file, link or directory",
			minArgs: 1, maxArgs: 1,
			flags: func(f *pflag.FlagSet) {
				f.BoolVarP(&recursive, "recursive", "r", false, "delete directories and their contents")
			},
			run: func(ctx context.Context, e *env, args []string) (*types.Result, error) {
				if recursive {
					return e.svc.DeleteRecursive(ctx, args[0])
				}
				return e.svc.Delete(ctx, args[0])
			},
		},
		{
			name: "mv", usage: "[--into dir] <path> <new-name>", summary: "Rename or move an entry",
			minArgs: 2, maxArgs: 2,
			flags: func(f *pflag.FlagSet) {
				f.StringVar(&into, "into", "", "directory to move the entry into")
			},
			run: func(ctx context.Context, e *env, args []string) (*types.Result, error) {
				return e.svc.Rename(ctx, args[0], args[1], into)
			},
		},
		{
			name: "chmod", usage: "<mode> <path>", summary: "Change permission bits (octal)",
			minArgs: 2, maxArgs: 2,
			run: func(ctx context.Context, e *env, args []string) (*types.Result, error) {
				mode, err := types.ParseMode(args[0])
				if err != nil {
					return types.Failure(service.OpSetPermissions, args[1], types.NewError(service.OpSetPermissions, args[1], types.KindInvalidArgument, err))
				}
				return e.svc.SetPermissions(ctx, args[1], mode)
			},
		},
		{
			name: "put", usage: "<path>", summary: "Store stdin as a file",
			minArgs: 1, maxArgs: 1,
			run: func(ctx context.Context, e *env, args []string) (*types.Result, error) {
				dir, name := splitPath(args[0])
				return e.svc.Store(ctx, dir, name, e.stdin)
			},
		},
		{
			name: "zip", usage: "[--base dir] <archive-name> <source>...", summary: "Pack sources into an archive",
			minArgs: 2, maxArgs: -1,
			flags: func(f *pflag.FlagSet) {
				f.StringVar(&baseDir, "base", ".", "directory the sources are relative to and the archive is written in")
			},
			run: func(ctx context.Context, e *env, args []string) (*types.Result, error) {
				return e.svc.CreateArchive(ctx, types.ArchiveRequest{
					ArchiveName: args[0],
					Sources:     args[1:],
					BaseDir:     baseDir,
				})
			},
		},
		{
			name: "unzip", usage: "[--dest dir] <archive>", summary: "Unpack an archive",
			minArgs: 1, maxArgs: 1,
			flags: func(f *pflag.FlagSet) {
				f.StringVar(&dest, "dest", "", "destination directory (default <stem>_extracted next to the archive)")
			},
			run: func(ctx context.Context, e *env, args []string) (*types.Result, error) {
				return e.svc.ExtractArchive(ctx, args[0], dest)
			},
		},
		{
			name: "fetch", usage: "[--name file] [--checksum alg:hex] <url> [dir]", summary: "Download a URL into the root",
			minArgs: 1, maxArgs: 2,
			flags: func(f *pflag.FlagSet) {
				f.StringVar(&saveAs, "name", "", "file name to save as")
				f.StringVar(&checksum, "checksum", "", "expected digest, e.g. sha256:<hex> or blake2b-256:<hex>")
			},
			run: func(ctx context.Context, e *env, args []string) (*types.Result, error) {
				return e.svc.Fetch(ctx, types.FetchRequest{
					URL:            args[0],
					DestinationDir: argOr(args, 1, "."),
					SuggestedName:  saveAs,
					Checksum:       checksum,
				})
			},
		},
	}
}

func argOr(args []string, i int, fallback string) string {
	if i < len(args) {
		return args[i]
	}
	return fallback
}

// splitPath splits a root-relative path into its directory and final name.
func splitPath(p string) (string, string) {
	p = filepath.Clean(p)
	return filepath.Dir(p), filepath.Base(p)
}

func (e *env) printProfile() error {
	profile := e.svc.Profile()
	fmt.Fprintf(e.stdout, "root:     %s\n", e.svc.Root())
	fmt.Fprintf(e.stdout, "profile:  %s\n", profile)
	for _, note := range profile.Notes() {
		fmt.Fprintf(e.stdout, "missing:  %s\n", note)
	}
	stats := e.svc.Catalog().Stats(profile)
	fmt.Fprintf(e.stdout, "ops:      %d of %d available\n\n", stats.Available, stats.Total)

	for _, op := range e.svc.Catalog().List(nil) {
		state := "available"
		if !op.Available(profile) {
			state = "unavailable"
		}
		fmt.Fprintf(e.stdout, "%-18s %-9s %-12s %s\n", op.Name, op.Category, state, op.Description)
	}
	return nil
}
