package emu

import (
	"fmt"

	"github.com/sarchlab/n64core/insts"
)

// FatalError reports a host-fatal condition: an encoding outside the
// instruction catalog or an impossible internal state. Every backend
// panics with a *FatalError; it is never delivered to the guest.
type FatalError struct {
	PC     uint64
	Word   uint32
	Op     insts.Op
	Fields string
	Reason string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal at pc=%#x word=%#08x op=%s (%s): %s",
		e.PC, e.Word, e.Op, e.Fields, e.Reason)
}

func newFatalError(pc uint64, in *insts.Instruction, reason string) *FatalError {
	return &FatalError{
		PC:   pc,
		Word: in.Raw,
		Op:   in.Op,
		Fields: fmt.Sprintf("opcode=%d rs=%d rt=%d rd=%d sa=%d funct=%d",
			in.Raw>>26, in.Rs, in.Rt, in.Rd, in.Sa, in.Funct),
		Reason: reason,
	}
}
