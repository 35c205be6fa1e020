package memory_test

import (
	"strings"
	"testing"

	"github.com/aether-dbg/aether/internal/memtest"
	"github.com/aether-dbg/aether/memory"
	"github.com/aether-dbg/aether/target"
	"github.com/aether-dbg/aether/test"
)

func TestFormatMemoryLine(t *testing.T) {
	addr, hex, ascii := memory.FormatMemoryLine(0x1000, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	test.Equate(t, addr, "00001000")
	test.ExpectSuccess(t, strings.HasPrefix(hex, "DE AD BE EF "))
	test.Equate(t, ascii, "....")
}

func TestReadWriteBlock(t *testing.T) {
	core := memtest.New(target.Info{})
	m := memory.New(core)

	test.ExpectSuccess(t, m.WriteBlock(0x2000, []byte{1, 2, 3, 4}))
	got, err := m.ReadBlock(0x2000, 4)
	test.ExpectSuccess(t, err)
	test.Equate(t, got, []byte{1, 2, 3, 4})
}

func TestRead32RoundTrip(t *testing.T) {
	core := memtest.New(target.Info{})
	m := memory.New(core)

	test.ExpectSuccess(t, m.Write32(0x3000, 0xDEADBEEF))
	v, err := m.Read32(0x3000)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, uint32(0xDEADBEEF))
}
