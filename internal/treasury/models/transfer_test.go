package models

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestInstructionID(t *testing.T) {
	t.Run("same drain yields the same id on every attempt", func(t *testing.T) {
		first := NewTransferInstruction(admin, 4, uint256.NewInt(100), now)
		retry := NewTransferInstruction(admin, 4, uint256.NewInt(100), now.Add(time.Minute))
		assert.Equal(t, first.ID, retry.ID)
		assert.Equal(t, uint64(4), retry.Sequence)
	})

	t.Run("later drains get new ids", func(t *testing.T) {
		assert.NotEqual(t, InstructionID(admin, 1), InstructionID(admin, 2))
	})

	t.Run("recipient is part of the id", func(t *testing.T) {
		assert.NotEqual(t, InstructionID(admin, 1), InstructionID(stranger, 1))
	})
}
