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

package symbols

import (
	"debug/dwarf"
	"testing"
)

func TestHasAnyPrefixMatchesAnyModulePath(t *testing.T) {
	if !hasAnyPrefix("alloc::vec::Vec<u32>", rustVecPrefixes) {
		t.Fatal("expected alloc::vec::Vec<...> to match a Vec prefix")
	}
	if !hasAnyPrefix("Vec<u32>", rustVecPrefixes) {
		t.Fatal("expected bare Vec<...> to match a Vec prefix")
	}
	if hasAnyPrefix("Velocity<u32>", rustVecPrefixes) {
		t.Fatal("did not expect Velocity<...> to match a Vec prefix")
	}
}

func TestRustInnerTypeName(t *testing.T) {
	if got := rustInnerTypeName("core::option::Option<u32>"); got != "u32" {
		t.Fatalf("got %q, want %q", got, "u32")
	}
	if got := rustInnerTypeName("Option<Vec<u8>>"); got != "Vec<u8>" {
		t.Fatalf("got %q, want %q", got, "Vec<u8>")
	}
	if got := rustInnerTypeName("no angle brackets"); got != "" {
		t.Fatalf("got %q, want empty string", got)
	}
}

func TestResolveRustVecReportsArrayKind(t *testing.T) {
	st := &dwarf.StructType{StructName: "Vec<u32>"}
	v := resolveRustVec("items", st)
	if v.Kind != Array {
		t.Fatalf("got kind %v, want Array", v.Kind)
	}
	if v.Value != "Vec<u32> (len: ?)" {
		t.Fatalf("got value %q", v.Value)
	}
}

func TestResolveRustOptionHasNoneAndSomeMembers(t *testing.T) {
	st := &dwarf.StructType{StructName: "core::option::Option<u32>"}
	v := resolveRustOption("maybe", st)
	if v.Kind != Enum {
		t.Fatalf("got kind %v, want Enum", v.Kind)
	}
	if len(v.Members) != 2 || v.Members[0].Name != "None" || v.Members[1].Name != "Some" {
		t.Fatalf("unexpected members: %+v", v.Members)
	}
	if v.Members[1].Value != "u32" {
		t.Fatalf("got Some value %q, want u32", v.Members[1].Value)
	}
}

func TestResolveRustResultHasOkAndErrMembers(t *testing.T) {
	st := &dwarf.StructType{StructName: "Result<u32, String>"}
	v := resolveRustResult("outcome", st)
	if v.Kind != Enum {
		t.Fatalf("got kind %v, want Enum", v.Kind)
	}
	if len(v.Members) != 2 || v.Members[0].Name != "Ok" || v.Members[1].Name != "Err" {
		t.Fatalf("unexpected members: %+v", v.Members)
	}
}

func TestResolveTypeDispatchesRustContainerShapes(t *testing.T) {
	vec := resolveType("items", &dwarf.StructType{StructName: "Vec<u32>"}, 0)
	if vec.Kind != Array {
		t.Fatalf("resolveType did not dispatch Vec to the array-shape handler, got kind %v", vec.Kind)
	}

	opt := resolveType("maybe", &dwarf.StructType{StructName: "Option<u32>"}, 0)
	if opt.Kind != Enum {
		t.Fatalf("resolveType did not dispatch Option to the enum-shape handler, got kind %v", opt.Kind)
	}

	plain := resolveType("point", &dwarf.StructType{StructName: "Point"}, 0)
	if plain.Kind != Struct {
		t.Fatalf("resolveType should fall back to generic Struct for an unrecognised shape, got kind %v", plain.Kind)
	}
}
