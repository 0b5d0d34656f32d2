package emu

import "errors"

// Warnings reported through StepResult.Warning. None of them stops the
// simulation.
var (
	// ErrUnknownOpcode is reported when a word matches no instruction.
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrUnknownCondition is reported for a B.cond whose condition code is
	// not evaluated by the simulator.
	ErrUnknownCondition = errors.New("unknown branch condition")

	// ErrUnimplementedVariant is reported when a recognized instruction uses
	// a sub-field value the simulator does not model.
	ErrUnimplementedVariant = errors.New("unimplemented instruction variant")
)
