package stack_test

import (
	"testing"

	"github.com/aether-dbg/aether/internal/memtest"
	"github.com/aether-dbg/aether/stack"
	"github.com/aether-dbg/aether/symbols"
	"github.com/aether-dbg/aether/target"
	"github.com/aether-dbg/aether/test"
)

func TestUnwindWithoutElfReturnsFrameZero(t *testing.T) {
	core := memtest.New(target.Info{})
	test.ExpectSuccess(t, core.WriteRegister(15, 0x08001234)) // PC
	test.ExpectSuccess(t, core.WriteRegister(13, 0x20001000)) // SP
	test.ExpectSuccess(t, core.WriteRegister(14, 0x08000100)) // LR

	frames, err := stack.Unwind(core, symbols.New())
	test.ExpectSuccess(t, err)
	test.Equate(t, len(frames), 1)
	test.Equate(t, frames[0].PC, uint64(0x08001234))
	test.Equate(t, frames[0].SP, uint64(0x20001000))
	test.Equate(t, frames[0].ID, 0)
}

func TestUnwindNilSymbols(t *testing.T) {
	core := memtest.New(target.Info{})
	frames, err := stack.Unwind(core, nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, len(frames), 1)
}
