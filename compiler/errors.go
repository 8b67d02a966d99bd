package compiler

import "fmt"

// CompileError is a single diagnostic produced while compiling: an
// unexpected token, a scope violation, an overflowed limit, and so on.
// Where describes the token the error was reported at, framed the way the
// command-line tool prints it to stderr.
type CompileError struct {
	Line    int
	Where   string
	Message string
}

func (e CompileError) Error() string {
	return fmt.Sprintf(
		"\n---------\n| error |\n---------\n\t> Line:\n\t\t%d\n\t> Where:\n\t\t%s\n\t> What's wrong:\n\t\t%s\n",
		e.Line, e.Where, e.Message,
	)
}
