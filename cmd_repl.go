package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"thusly/interpreter"
)

// replCmd runs an interactive, line-at-a-time Thusly session. Each line is
// compiled independently, but the Interpreter (and so its Environment and
// interned text) persists across lines, matching a single long-lived VM.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive Thusly session" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive Thusly session. Type 'exit' to quit.
`
}
func (r *replCmd) SetFlags(f *flag.FlagSet) {}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to start the REPL: %v\n", err)
		return subcommands.ExitStatus(exitSoftwareError)
	}
	defer rl.Close()

	runREPL(rl, os.Stdout)
	return subcommands.ExitStatus(exitSuccess)
}

func runREPL(rl *readline.Instance, out io.Writer) {
	interp := interpreter.New(out)
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			return
		}
		if line == "" {
			continue
		}
		if line == "exit" {
			return
		}

		switch interp.Interpret(line + "\n") {
		case interpreter.ReportCompileError:
			for _, e := range interp.CompileErrs {
				fmt.Fprint(os.Stderr, e)
			}
		case interpreter.ReportRuntimeError:
			fmt.Fprint(os.Stderr, interp.RuntimeErr)
		}
	}
}
