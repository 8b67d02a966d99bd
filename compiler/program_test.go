package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"thusly/value"
)

func TestEmitOpByteLayout(t *testing.T) {
	p := NewProgram()
	p.EmitOpByte(OP_GET_VAR, 3, 7)
	assert.Equal(t, []byte{byte(OP_GET_VAR), 3}, p.Instructions)
	assert.Equal(t, []int{7, 7}, p.SourceLines)
}

func TestPatchJumpForwardLandsPastBody(t *testing.T) {
	p := NewProgram()
	placeholder := p.EmitOpUint16Placeholder(OP_JUMP_FWD_IF_FALSE, 1)
	p.EmitOp(OP_POP, 1)
	p.EmitOp(OP_NOT, 1) // stand-in body instruction
	distance, ok := p.PatchJumpForward(placeholder)
	assert.True(t, ok)
	assert.Equal(t, 2, distance) // OP_POP + OP_NOT = 2 bytes to skip
}

func TestJumpBackwardDistanceTargetsInstructionStart(t *testing.T) {
	p := NewProgram()
	target := len(p.Instructions)
	p.EmitOp(OP_NOT, 1)
	p.EmitOp(OP_NOT, 1)
	distance, ok := JumpBackwardDistance(len(p.Instructions), target)
	assert.True(t, ok)
	assert.Equal(t, 2+3, distance)
}

func TestAddConstantRejectsPastLimit(t *testing.T) {
	p := NewProgram()
	for i := 0; i < ConstantsMax; i++ {
		_, ok := p.AddConstant(value.Number(float64(i)))
		assert.True(t, ok)
	}
	_, ok := p.AddConstant(value.Number(999))
	assert.False(t, ok)
}

func TestOpcodeStringRoundTrips(t *testing.T) {
	assert.Equal(t, "OP_ADD", OP_ADD.String())
	assert.Equal(t, "OP_UNKNOWN", Opcode(250).String())
}
