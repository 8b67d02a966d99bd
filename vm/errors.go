package vm

import "fmt"

// RuntimeError is a diagnostic produced while executing a Program: a type
// mismatch on an arithmetic, comparison, or negation opcode, an operand
// stack overflow, or an unknown opcode. Unlike
// compiler.CompileError, execution always aborts immediately on the first
// one.
type RuntimeError struct {
	Line    int
	Message string
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf(
		"\n---------\n| error |\n---------\n\t> Line:\n\t\t%d\n\t> Where:\n\t\tDuring execution.\n\t> What's wrong:\n\t\t%s\n",
		e.Line, e.Message,
	)
}
