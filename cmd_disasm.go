package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"thusly/compiler"
	"thusly/value"
)

// disasmCmd compiles a source file and prints its bytecode without running
// it, the observational counterpart to run.
type disasmCmd struct{}

func (*disasmCmd) Name() string     { return "disasm" }
func (*disasmCmd) Synopsis() string { return "Compile a source file and print its bytecode" }
func (*disasmCmd) Usage() string {
	return `disasm <path>:
  Compile a Thusly source file and print its disassembled bytecode.
`
}
func (d *disasmCmd) SetFlags(f *flag.FlagSet) {}

func (d *disasmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	program, errs := compiler.Compile(string(data), value.NewEnvironment())
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprint(os.Stderr, e)
		}
		return subcommands.ExitStatus(exitInputDataError)
	}

	fmt.Print(program.Disassemble())
	return subcommands.ExitStatus(exitSuccess)
}
