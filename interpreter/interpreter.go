// Package interpreter wires the compiler and VM together behind the single
// entry point surrounding tools call: compile a source buffer, then execute
// the resulting Program on a long-lived VM.
package interpreter

import (
	"io"
	"os"

	"thusly/compiler"
	"thusly/value"
	"thusly/vm"
)

// ErrorReport classifies how an Interpret call ended, mirroring the
// exit-code mapping the CLI wrapper applies.
type ErrorReport int

const (
	NoError ErrorReport = iota
	ReportCompileError
	ReportRuntimeError
)

// Interpreter owns the Environment (interned text and the heap chain) and
// the VM for as long as the process runs. Environment state, including
// interned text, persists across repeated Interpret calls, matching a REPL
// session that reuses one VM across lines.
type Interpreter struct {
	env         *value.Environment
	machine     *vm.VM
	CompileErrs []error
	RuntimeErr  error
}

func New(out io.Writer) *Interpreter {
	env := value.NewEnvironment()
	machine := vm.New(env)
	if out != nil {
		machine.Out = out
	}
	return &Interpreter{env: env, machine: machine}
}

func NewStdout() *Interpreter {
	return New(os.Stdout)
}

// Interpret compiles source and, if compilation succeeded, executes it.
// Source must stay alive for the duration of the call: tokens are slices of
// it. Text literals are copied into the Environment when they are interned.
func (i *Interpreter) Interpret(source string) ErrorReport {
	i.CompileErrs = nil
	i.RuntimeErr = nil

	program, errs := compiler.Compile(source, i.env)
	if len(errs) > 0 {
		i.CompileErrs = errs
		return ReportCompileError
	}

	if err := i.machine.Run(program); err != nil {
		i.RuntimeErr = err
		return ReportRuntimeError
	}
	return NoError
}
