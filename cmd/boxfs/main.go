package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/boxfs/internal/config"
	"github.com/GriffinCanCode/boxfs/internal/logging"
	"github.com/GriffinCanCode/boxfs/internal/service"
	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitPartial = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// globalFlags are accepted before the command name.
type globalFlags struct {
	config   string
	root     string
	logLevel string
	dev      bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var g globalFlags
	flags := pflag.NewFlagSet("boxfs", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	flags.StringVarP(&g.config, "config", "c", "", "configuration file (yaml, toml or json)")
	flags.StringVarP(&g.root, "root", "r", "", "confined root directory (overrides BOXFS_ROOT)")
	flags.StringVar(&g.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flags.BoolVar(&g.dev, "dev", false, "development logging")
	flags.Usage = func() { usage(stderr, flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	rest := flags.Args()
	if len(rest) == 0 {
		usage(stderr, flags)
		return exitUsage
	}
	cmd, ok := lookupCommand(rest[0])
	if !ok {
		fmt.Fprintf(stderr, "boxfs: unknown command %q\n\n", rest[0])
		usage(stderr, flags)
		return exitUsage
	}

	cmdFlags := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	cmdFlags.SetOutput(stderr)
	if cmd.flags != nil {
		cmd.flags(cmdFlags)
	}
	cmdFlags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: boxfs %s %s\n\n%s\n", cmd.name, cmd.usage, cmd.summary)
		if cmdFlags.HasFlags() {
			fmt.Fprintf(stderr, "\nFlags:\n%s", cmdFlags.FlagUsages())
		}
	}
	if err := cmdFlags.Parse(rest[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	cmdArgs := cmdFlags.Args()
	if len(cmdArgs) < cmd.minArgs || (cmd.maxArgs >= 0 && len(cmdArgs) > cmd.maxArgs) {
		cmdFlags.Usage()
		return exitUsage
	}

	cfg, err := loadConfig(g)
	if err != nil {
		fmt.Fprintf(stderr, "boxfs: %v\n", err)
		return exitUsage
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		fmt.Fprintf(stderr, "boxfs: %v\n", err)
		return exitUsage
	}
	defer logger.Sync()

	svc, err := service.FromConfig(cfg, logger.Logger, prometheus.NewRegistry())
	if err != nil {
		logger.Error("cannot start", zap.Error(err))
		fmt.Fprintf(stderr, "boxfs: %v\n", err)
		return exitFailed
	}

	env := &env{svc: svc, stdin: stdin, stdout: stdout, stderr: stderr}
	res, err := cmd.run(ctx, env, cmdArgs)
	return finish(env, res, err)
}

// loadConfig reads the environment and optional file, then applies the global flags.
func loadConfig(g globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.config != "" {
		cfg, err = config.LoadFile(g.config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if g.root != "" {
		cfg.Root.Path = g.root
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if g.dev {
		cfg.Logging.Development = true
	}
	return cfg, cfg.Validate()
}

// finish prints the result of a mutating command and maps its outcome to an exit code.
func finish(e *env, res *types.Result, err error) int {
	if res != nil {
		if perr := e.printJSON(res); perr != nil {
			fmt.Fprintf(e.stderr, "boxfs: %v\n", perr)
			return exitFailed
		}
	}
	if res != nil && res.Outcome == types.OutcomePartialFailure {
		for _, f := range res.Failures() {
			fmt.Fprintf(e.stderr, "boxfs: %s: %s\n", f.Name, f.Error)
		}
		return exitPartial
	}
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(e.stderr, "boxfs: %v\n", err)
	return exitFailed
}

func usage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: boxfs [global flags] <command> [args]\n\nCommands:\n")
	for _, c := range commands() {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nGlobal flags:\n%s", flags.FlagUsages())
}
