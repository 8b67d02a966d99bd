// Package vm implements the stack-based bytecode interpreter that executes
// a compiled Program: a fetch-decode-execute loop over a fixed-size operand
// stack, with no global variable table (lexical slots are stack positions).
package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"thusly/compiler"
	"thusly/value"
)

// StackMax bounds the VM's operand stack. Pushing past it is a runtime
// error rather than an unchecked overflow.
const StackMax = 256

// VM holds the mutable execution state: a fixed operand stack and the
// Environment that owns every heap-allocated text value it touches. Out
// receives everything OP_OUT writes; it defaults to os.Stdout.
type VM struct {
	stack [StackMax]value.Value
	sp    int

	env *value.Environment
	Out io.Writer
}

func New(env *value.Environment) *VM {
	return &VM{env: env, Out: os.Stdout}
}

func (vm *VM) reset() {
	vm.sp = 0
}

func (vm *VM) push(v value.Value) error {
	if vm.sp >= StackMax {
		return errors.New("stack overflow")
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() value.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distanceFromTop int) value.Value {
	return vm.stack[vm.sp-1-distanceFromTop]
}

// Run executes program from its first instruction until OP_RETURN, and
// reports the first runtime error encountered. The stack is reset before
// execution begins but the Environment (and its interned text) persists
// across calls, matching the source's single long-lived VM.
func (vm *VM) Run(program *compiler.Program) error {
	vm.reset()

	pc := 0
	instructions := program.Instructions

	readByte := func() byte {
		b := instructions[pc]
		pc++
		return b
	}
	readUint16 := func() uint16 {
		v := binary.BigEndian.Uint16(instructions[pc : pc+2])
		pc += 2
		return v
	}
	runtimeErrorAt := func(offset int, format string, args ...interface{}) error {
		line := 0
		if offset >= 0 && offset < len(program.SourceLines) {
			line = program.SourceLines[offset]
		}
		return RuntimeError{Line: line, Message: fmt.Sprintf(format, args...)}
	}

	for {
		instructionOffset := pc
		op := compiler.Opcode(readByte())

		switch op {
		case compiler.OP_POP:
			vm.pop()

		case compiler.OP_POPN:
			n := readByte()
			vm.sp -= int(n) + 1

		case compiler.OP_GET_VAR:
			slot := readByte()
			if err := vm.push(vm.stack[slot]); err != nil {
				return runtimeErrorAt(instructionOffset, "%s", err)
			}

		case compiler.OP_SET_VAR:
			slot := readByte()
			vm.stack[slot] = vm.peek(0)

		case compiler.OP_CONSTANT:
			idx := readByte()
			if err := vm.push(program.Constants[idx]); err != nil {
				return runtimeErrorAt(instructionOffset, "%s", err)
			}

		case compiler.OP_CONSTANT_FALSE:
			if err := vm.push(value.Boolean(false)); err != nil {
				return runtimeErrorAt(instructionOffset, "%s", err)
			}

		case compiler.OP_CONSTANT_TRUE:
			if err := vm.push(value.Boolean(true)); err != nil {
				return runtimeErrorAt(instructionOffset, "%s", err)
			}

		case compiler.OP_CONSTANT_NONE:
			if err := vm.push(value.None); err != nil {
				return runtimeErrorAt(instructionOffset, "%s", err)
			}

		case compiler.OP_EQUALS:
			b, a := vm.pop(), vm.pop()
			if err := vm.push(value.Boolean(a.Equals(b))); err != nil {
				return runtimeErrorAt(instructionOffset, "%s", err)
			}

		case compiler.OP_NOT_EQUALS:
			b, a := vm.pop(), vm.pop()
			if err := vm.push(value.Boolean(!a.Equals(b))); err != nil {
				return runtimeErrorAt(instructionOffset, "%s", err)
			}

		case compiler.OP_LESS_THAN, compiler.OP_LESS_THAN_EQUALS, compiler.OP_GREATER_THAN, compiler.OP_GREATER_THAN_EQUALS:
			b, a := vm.pop(), vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return runtimeErrorAt(instructionOffset, "Cannot compare %s and %s.", a.TypeName(), b.TypeName())
			}
			var result bool
			switch op {
			case compiler.OP_LESS_THAN:
				result = a.AsNumber() < b.AsNumber()
			case compiler.OP_LESS_THAN_EQUALS:
				result = a.AsNumber() <= b.AsNumber()
			case compiler.OP_GREATER_THAN:
				result = a.AsNumber() > b.AsNumber()
			case compiler.OP_GREATER_THAN_EQUALS:
				result = a.AsNumber() >= b.AsNumber()
			}
			if err := vm.push(value.Boolean(result)); err != nil {
				return runtimeErrorAt(instructionOffset, "%s", err)
			}

		case compiler.OP_ADD:
			b, a := vm.pop(), vm.pop()
			result, err := vm.add(a, b)
			if err != nil {
				return runtimeErrorAt(instructionOffset, "%s", err)
			}
			if err := vm.push(result); err != nil {
				return runtimeErrorAt(instructionOffset, "%s", err)
			}

		case compiler.OP_SUBTRACT, compiler.OP_MULTIPLY, compiler.OP_DIVIDE, compiler.OP_MODULO:
			b, a := vm.pop(), vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return runtimeErrorAt(instructionOffset, "Cannot apply arithmetic to %s and %s.", a.TypeName(), b.TypeName())
			}
			var result float64
			switch op {
			case compiler.OP_SUBTRACT:
				result = a.AsNumber() - b.AsNumber()
			case compiler.OP_MULTIPLY:
				result = a.AsNumber() * b.AsNumber()
			case compiler.OP_DIVIDE:
				result = a.AsNumber() / b.AsNumber()
			case compiler.OP_MODULO:
				result = math.Mod(a.AsNumber(), b.AsNumber())
			}
			if err := vm.push(value.Number(result)); err != nil {
				return runtimeErrorAt(instructionOffset, "%s", err)
			}

		case compiler.OP_NEGATE:
			a := vm.pop()
			if !a.IsNumber() {
				return runtimeErrorAt(instructionOffset, "Cannot negate a %s.", a.TypeName())
			}
			if err := vm.push(value.Number(-a.AsNumber())); err != nil {
				return runtimeErrorAt(instructionOffset, "%s", err)
			}

		case compiler.OP_NOT:
			a := vm.pop()
			if err := vm.push(value.Boolean(!a.Truthy())); err != nil {
				return runtimeErrorAt(instructionOffset, "%s", err)
			}

		case compiler.OP_OUT:
			a := vm.pop()
			fmt.Fprintln(vm.Out, a.String())

		case compiler.OP_JUMP_FWD:
			distance := readUint16()
			pc += int(distance)

		case compiler.OP_JUMP_FWD_IF_FALSE:
			distance := readUint16()
			if !vm.peek(0).Truthy() {
				pc += int(distance)
			}

		case compiler.OP_JUMP_FWD_IF_TRUE:
			distance := readUint16()
			if vm.peek(0).Truthy() {
				pc += int(distance)
			}

		case compiler.OP_JUMP_BWD:
			distance := readUint16()
			pc -= int(distance)

		case compiler.OP_RETURN:
			return nil

		default:
			return runtimeErrorAt(instructionOffset, "Unknown opcode %v.", op)
		}
	}
}

// add implements OP_ADD's dual numeric-add/text-concatenate behavior.
// Concatenation always goes through the Environment's interner so the
// reference-equality contract on text holds for the result too.
func (vm *VM) add(a, b value.Value) (value.Value, error) {
	if a.IsText() && b.IsText() {
		combined := make([]byte, 0, a.AsText().Len()+b.AsText().Len())
		combined = append(combined, a.AsText().Bytes...)
		combined = append(combined, b.AsText().Bytes...)
		return value.HeapRef(vm.env.InternBytes(combined)), nil
	}
	if a.IsNumber() && b.IsNumber() {
		return value.Number(a.AsNumber() + b.AsNumber()), nil
	}
	return value.Value{}, fmt.Errorf("Cannot add %s and %s.", a.TypeName(), b.TypeName())
}
