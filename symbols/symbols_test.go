package symbols_test

import (
	"testing"

	"github.com/aether-dbg/aether/symbols"
	"github.com/aether-dbg/aether/test"
)

func TestInitialState(t *testing.T) {
	m := symbols.New()
	test.Equate(t, m.RawELF(), []byte(nil))
	test.Equate(t, m.DWARF() == nil, true)
}

func TestLookupNoSymbols(t *testing.T) {
	m := symbols.New()

	_, ok := m.Lookup(0x1000)
	test.ExpectFailure(t, ok)

	_, ok = m.LookupSymbol("main")
	test.ExpectFailure(t, ok)

	_, ok = m.GetAddress("main.c", 10)
	test.ExpectFailure(t, ok)
}

func TestResolveVariableNoSymbols(t *testing.T) {
	m := symbols.New()
	_, err := m.ResolveVariable("g_counter")
	test.ExpectFailure(t, err == nil)
}

func TestLoadSymbolsRejectsGarbage(t *testing.T) {
	m := symbols.New()
	err := m.LoadSymbols([]byte("not an elf file"))
	test.ExpectFailure(t, err == nil)
}
