package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"thusly/compiler"
	"thusly/value"
)

func TestConstantAndOut(t *testing.T) {
	env := value.NewEnvironment()
	p := compiler.NewProgram()
	n, _ := p.AddConstant(value.Number(42))
	p.EmitOpByte(compiler.OP_CONSTANT, byte(n), 1)
	p.EmitOp(compiler.OP_OUT, 1)
	p.EmitOp(compiler.OP_RETURN, 1)

	var buf bytes.Buffer
	machine := New(env)
	machine.Out = &buf
	err := machine.Run(p)

	assert.NoError(t, err)
	assert.Equal(t, "42\n", buf.String())
}

func TestStackOverflowIsRuntimeError(t *testing.T) {
	env := value.NewEnvironment()
	p := compiler.NewProgram()
	n, _ := p.AddConstant(value.Number(1))
	for i := 0; i < StackMax+1; i++ {
		p.EmitOpByte(compiler.OP_CONSTANT, byte(n), 1)
	}
	p.EmitOp(compiler.OP_RETURN, 1)

	machine := New(env)
	machine.Out = &bytes.Buffer{}
	err := machine.Run(p)

	assert.Error(t, err)
	var rerr RuntimeError
	assert.ErrorAs(t, err, &rerr)
}

func TestDivideByZeroProducesInfNotError(t *testing.T) {
	env := value.NewEnvironment()
	p := compiler.NewProgram()
	one, _ := p.AddConstant(value.Number(1))
	zero, _ := p.AddConstant(value.Number(0))
	p.EmitOpByte(compiler.OP_CONSTANT, byte(one), 1)
	p.EmitOpByte(compiler.OP_CONSTANT, byte(zero), 1)
	p.EmitOp(compiler.OP_DIVIDE, 1)
	p.EmitOp(compiler.OP_OUT, 1)
	p.EmitOp(compiler.OP_RETURN, 1)

	var buf bytes.Buffer
	machine := New(env)
	machine.Out = &buf
	err := machine.Run(p)

	assert.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), "inf"))
}

func TestAddTypeMismatchIsRuntimeError(t *testing.T) {
	env := value.NewEnvironment()
	p := compiler.NewProgram()
	num, _ := p.AddConstant(value.Number(1))
	text := env.InternString("a")
	txt, _ := p.AddConstant(value.HeapRef(text))
	p.EmitOpByte(compiler.OP_CONSTANT, byte(num), 1)
	p.EmitOpByte(compiler.OP_CONSTANT, byte(txt), 1)
	p.EmitOp(compiler.OP_ADD, 1)
	p.EmitOp(compiler.OP_RETURN, 1)

	machine := New(env)
	machine.Out = &bytes.Buffer{}
	err := machine.Run(p)

	assert.Error(t, err)
}

func TestConcatenationInternsResult(t *testing.T) {
	env := value.NewEnvironment()
	p := compiler.NewProgram()
	a := env.InternString("foo")
	b := env.InternString("bar")
	ai, _ := p.AddConstant(value.HeapRef(a))
	bi, _ := p.AddConstant(value.HeapRef(b))
	p.EmitOpByte(compiler.OP_CONSTANT, byte(ai), 1)
	p.EmitOpByte(compiler.OP_CONSTANT, byte(bi), 1)
	p.EmitOp(compiler.OP_ADD, 1)
	p.EmitOpByte(compiler.OP_GET_VAR, 0, 1) // copy the result so it stays on the stack
	p.EmitOp(compiler.OP_OUT, 1)
	p.EmitOp(compiler.OP_RETURN, 1)

	var buf bytes.Buffer
	machine := New(env)
	machine.Out = &buf
	err := machine.Run(p)

	assert.NoError(t, err)
	assert.Equal(t, "foobar\n", buf.String())

	assert.Same(t, env.InternString("foobar"), machine.peek(0).AsText())
}
