package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"thusly/interpreter"
)

// runCmd executes a Thusly source file to completion.
type runCmd struct{}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Execute Thusly code from a source file" }
func (*runCmd) Usage() string {
	return `run <path>:
  Execute a Thusly source file.
`
}
func (r *runCmd) SetFlags(f *flag.FlagSet) {}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 No source file given.\n")
		return subcommands.ExitStatus(exitUsageError)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read %s: %v\n", args[0], err)
		return subcommands.ExitStatus(exitIOError)
	}

	interp := interpreter.NewStdout()
	switch interp.Interpret(string(data)) {
	case interpreter.ReportCompileError:
		for _, e := range interp.CompileErrs {
			fmt.Fprint(os.Stderr, e)
		}
		return subcommands.ExitStatus(exitInputDataError)
	case interpreter.ReportRuntimeError:
		fmt.Fprint(os.Stderr, interp.RuntimeErr)
		return subcommands.ExitStatus(exitSoftwareError)
	}
	return subcommands.ExitStatus(exitSuccess)
}
