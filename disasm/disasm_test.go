package disasm_test

import (
	"testing"

	"github.com/aether-dbg/aether/disasm"
	"github.com/aether-dbg/aether/target"
	"github.com/aether-dbg/aether/test"
)

func TestThumbNop(t *testing.T) {
	code := []byte{0x00, 0xBF, 0x00, 0xBF}
	insns := disasm.Decode(target.Armv7m, 0x1000, code, 2)

	test.Equate(t, len(insns), 2)
	test.Equate(t, insns[0].Mnemonic, "nop")
	test.Equate(t, insns[0].Address, uint64(0x1000))
	test.Equate(t, insns[1].Mnemonic, "nop")
	test.Equate(t, insns[1].Address, uint64(0x1002))
}

func TestRV32Nop(t *testing.T) {
	code := []byte{0x13, 0x00, 0x00, 0x00}
	insns := disasm.Decode(target.Riscv32, 0x2000, code, 1)

	test.Equate(t, len(insns), 1)
	test.Equate(t, insns[0].Mnemonic, "nop")
	test.Equate(t, insns[0].Address, uint64(0x2000))
}

func TestThumbBranchAndDataProcessing(t *testing.T) {
	// movs r0, #5 ; bx lr
	code := []byte{0x05, 0x20, 0x70, 0x47}
	insns := disasm.Decode(target.Armv6m, 0x0, code, 2)

	test.Equate(t, len(insns), 2)
	test.Equate(t, insns[0].Mnemonic, "movs")
	test.Equate(t, insns[0].OpStr, "r0, #5")
	test.Equate(t, insns[1].Mnemonic, "bx")
	test.Equate(t, insns[1].OpStr, "r14")
}

func TestRV32Arithmetic(t *testing.T) {
	// addi x1, x0, 5  (0x00500093)
	code := []byte{0x93, 0x00, 0x50, 0x00}
	insns := disasm.Decode(target.Riscv32, 0x0, code, 1)

	test.Equate(t, insns[0].Mnemonic, "addi")
	test.Equate(t, insns[0].OpStr, "x1, x0, 5")
}

func TestInstructionString(t *testing.T) {
	i := disasm.Instruction{Address: 0x1000, Mnemonic: "nop"}
	test.Equate(t, i.String(), "0x00001000: nop")
}
