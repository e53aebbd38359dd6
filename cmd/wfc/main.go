package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	_ "github.com/joho/godotenv/autoload"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

// ExitError carries the exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

type command struct {
	usage string
	run   func(ctx context.Context, env *cmdEnv, args []string) error
}

var commands = map[string]command{
	"compile":   {"compile [-o FILE] [-class NAME] [-indent N] [-runtime MODULE] GRAPH", runCompile},
	"batch":     {"batch -out DIR GRAPH...", runBatch},
	"check":     {"check GRAPH", runCheck},
	"bindings":  {"bindings [-available NAME:TYPE,...] GRAPH", runBindings},
	"templates": {"templates GRAPH", runTemplates},
	"resolve":   {"resolve [-node ID] [-samples FILE] GRAPH", runResolve},
	"reverse":   {"reverse [-format json|hcl] PROGRAM", runReverse},
	"spans":     {"spans PROGRAM|TRACE", runSpans},
	"trace":     {"trace TRACE", runTrace},
	"dot":       {"dot [-trace FILE] GRAPH", runDOT},
	"types":     {"types", runTypes},
	"cache":     {"cache [-max-age DURATION] list|purge|prune", runCache},
}

func main() {
	if err := run(context.Background(), os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
}

func run(ctx context.Context, out io.Writer, args []string) error {
	c := loadConfig()

	fs := flag.NewFlagSet("wfc", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { usage(out, fs) }
	logLevel := fs.String("log-level", c.LogLevel, "Logging level: trace, debug, info, warn, error.")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return &ExitError{Code: exitUsage, Message: err.Error()}
	}
	if err := setupLogging(*logLevel); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return &ExitError{Code: exitUsage, Message: "no command given"}
	}
	name := fs.Arg(0)
	cmd, exists := commands[name]
	if !exists {
		return &ExitError{Code: exitUsage, Message: fmt.Sprintf("unknown command %q", name)}
	}
	return cmd.run(ctx, &cmdEnv{out: out, config: c, name: name, usage: cmd.usage}, fs.Args()[1:])
}

func usage(out io.Writer, fs *flag.FlagSet) {
	fmt.Fprint(out, `
wfc compiles workflow graphs into durable workflow programs and back.

Usage:
  wfc [options] COMMAND [arguments]

Commands:
`)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", commands[name].usage)
	}
	fmt.Fprint(out, "\nOptions:\n")
	fs.PrintDefaults()
}
