// Command thusly is the command-line wrapper around the tokenizer,
// compiler, and VM. It is not part of the interpreter core: it only reads a
// file or REPL line, calls Interpret, and maps the result to a process exit
// code (see exitcode.go).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&replCmd{}, "")
	subcommands.Register(&disasmCmd{}, "")

	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Println("Welcome to Thusly!")
		os.Exit(int((&replCmd{}).Execute(context.Background(), flag.CommandLine)))
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}
