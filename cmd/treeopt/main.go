// Command treeopt optimizes a program and every module it imports:
// builtin calls are specialized, constant expressions precomputed and
// imported modules pulled in until nothing changes any more.
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/orizon-lang/treeopt/internal/cli"
	"github.com/orizon-lang/treeopt/internal/errors"
	"github.com/orizon-lang/treeopt/internal/position"
	"github.com/orizon-lang/treeopt/internal/session"
	"github.com/orizon-lang/treeopt/internal/watch"
)

const toolName = "treeopt"

// debounce is how long the watcher waits for edits to settle
const debounce = 200 * time.Millisecond

type options struct {
	configFile   string
	followStdlib bool
	stdlibRoot   string
	language     string
	maxRounds    int
	enableLen    bool
	dump         bool
	jsonOutput   bool
	watch        bool
	showVersion  bool
	showHelp     bool
	verbose      bool
	debug        bool
}

var flagInfo = []cli.FlagInfo{
	{Name: "config", Usage: "configuration file path", Default: "treeopt.json"},
	{Name: "follow-stdlib", Usage: "recurse into standard library modules"},
	{Name: "stdlib-root", Usage: "installation root of the standard library", Default: cli.DefaultStdlibRoot},
	{Name: "language", Usage: "source language version", Default: cli.DefaultLanguageVersion},
	{Name: "max-rounds", Usage: "bound on optimization rounds, 0 for none", Default: fmt.Sprint(cli.DefaultMaxRounds)},
	{Name: "enable-len", Usage: "specialize len() calls"},
	{Name: "dump", Usage: "print the optimized tree of every module"},
	{Name: "json", Usage: "print the summary as JSON"},
	{Name: "watch", Usage: "optimize again whenever a module file changes"},
	{Name: "verbose", Usage: "log progress"},
	{Name: "debug", Usage: "log every change"},
	{Name: "version", Usage: "show version information"},
	{Name: "help", Usage: "show help information"},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet(toolName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configFile, "config", "treeopt.json", "configuration file path")
	fs.BoolVar(&opts.followStdlib, "follow-stdlib", false, "recurse into standard library modules")
	fs.StringVar(&opts.stdlibRoot, "stdlib-root", "", "installation root of the standard library")
	fs.StringVar(&opts.language, "language", "", "source language version")
	fs.IntVar(&opts.maxRounds, "max-rounds", 0, "bound on optimization rounds, 0 for none")
	fs.BoolVar(&opts.enableLen, "enable-len", false, "specialize len() calls")
	fs.BoolVar(&opts.dump, "dump", false, "print the optimized tree of every module")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print the summary as JSON")
	fs.BoolVar(&opts.watch, "watch", false, "optimize again whenever a module file changes")
	fs.BoolVar(&opts.verbose, "verbose", false, "log progress")
	fs.BoolVar(&opts.debug, "debug", false, "log every change")
	fs.BoolVar(&opts.showVersion, "version", false, "show version information")
	fs.BoolVar(&opts.showHelp, "help", false, "show help information")
	fs.Usage = func() { usage(stderr) }

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if opts.showHelp {
		usage(stdout)
		return 0
	}
	if opts.showVersion {
		cli.PrintVersion(stdout, toolName, opts.jsonOutput)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: exactly one main module is required")
		usage(stderr)
		return 2
	}

	config, err := cli.LoadConfig(opts.configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := applyFlags(fs, &opts, config); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := cli.NewLoggerTo(stderr, config.Verbose, config.Debug)
	mainFile := fs.Arg(0)

	if !opts.watch {
		_, code := optimizeOnce(ctx, config, mainFile, &opts, stdout, logger)
		return code
	}
	return watchLoop(ctx, config, mainFile, &opts, stdout, logger)
}

// applyFlags lets explicitly set flags override the configuration
func applyFlags(fs *flag.FlagSet, opts *options, config *cli.Config) error {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "follow-stdlib":
			config.FollowStdlib = opts.followStdlib
		case "stdlib-root":
			config.StdlibRoot = opts.stdlibRoot
		case "language":
			config.LanguageVersion = opts.language
		case "max-rounds":
			config.MaxRounds = opts.maxRounds
		case "enable-len":
			config.EnableLenSpecialization = opts.enableLen
		case "verbose":
			config.Verbose = opts.verbose
		case "debug":
			config.Debug = opts.debug
		}
	})
	return config.Validate()
}

// optimizeOnce runs one session and prints its outcome. It returns the
// session, nil if none could be created, and the exit code.
func optimizeOnce(ctx context.Context, config *cli.Config, mainFile string, opts *options, stdout io.Writer, logger *cli.Logger) (*session.Session, int) {
	s, err := session.New(config, mainFile, logger)
	if err != nil {
		logger.Error("%v", err)
		return nil, 1
	}

	report, err := s.Run(ctx)
	if report != nil {
		if opts.dump {
			s.Dump(stdout)
		}
		if opts.jsonOutput {
			data, jerr := json.MarshalIndent(report, "", "  ")
			if jerr != nil {
				logger.Error("failed to marshal report: %v", jerr)
				return s, 1
			}
			fmt.Fprintln(stdout, string(data))
		} else {
			report.WriteText(stdout)
		}
	}

	if err != nil {
		switch {
		case errors.IsDefect(err):
			logger.Error("internal consistency failure: %v", err)
		case errors.Is(err, errors.CategorySyntax, "INVALID_SYNTAX"):
			logger.Error("%v\n%s", err, syntaxExcerpt(err))
		default:
			logger.Error("%v", err)
		}
		return s, 1
	}
	return s, 0
}

// syntaxExcerpt renders the source line a syntax error points at
func syntaxExcerpt(err error) string {
	var se *errors.StandardError
	if !stderrors.As(err, &se) {
		return ""
	}
	filename, _ := se.Context["file"].(string)
	line, _ := se.Context["line"].(int)
	column, _ := se.Context["column"].(int)

	src, rerr := os.ReadFile(filename)
	if rerr != nil {
		return ""
	}
	sf := position.NewSourceFile(filename, string(src))
	return sf.Excerpt(position.Position{Filename: filename, Line: line, Column: column})
}

func watchLoop(ctx context.Context, config *cli.Config, mainFile string, opts *options, stdout io.Writer, logger *cli.Logger) int {
	for {
		s, code := optimizeOnce(ctx, config, mainFile, opts, stdout, logger)
		if ctx.Err() != nil {
			return code
		}

		files := []string{mainFile}
		if s != nil {
			files = s.Files()
		}
		changed, err := waitForChange(ctx, files)
		if err != nil {
			if ctx.Err() != nil {
				return code
			}
			logger.Error("watch failed: %v", err)
			return 1
		}
		for _, f := range changed {
			logger.Info("changed: %s", filepath.Base(f))
		}
	}
}

func waitForChange(ctx context.Context, files []string) ([]string, error) {
	w, err := watch.New()
	if err != nil {
		return nil, err
	}
	defer w.Close()

	for _, f := range files {
		if err := w.Add(f); err != nil {
			return nil, err
		}
	}
	return w.Wait(ctx, debounce)
}

func usage(w io.Writer) {
	cli.PrintUsage(w, toolName, "treeopt [OPTIONS] <MAIN_MODULE>",
		"whole-program builtin specialization and constant precomputation",
		flagInfo,
		[]string{
			"treeopt main.py",
			"treeopt -json -follow-stdlib main.py",
			"treeopt -dump -language 3.8 main.py",
			"treeopt -watch -verbose main.py",
		})
}
