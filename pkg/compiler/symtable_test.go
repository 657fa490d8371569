package compiler

import (
	"strings"
	"testing"
)

func TestSymbolTable(t *testing.T) {
	t.Run("GlobalAllocation", func(t *testing.T) {
		s := NewSymbolTable()
		g1, a1 := s.DeclareVar("g1", TypeInt, 0)
		_, a2 := s.DeclareVar("arr", TypeArray, 3)
		_, a3 := s.DeclareVar("g3", TypeInt, 0)

		if g1.Kind != KindGlobal || g1.Depth != 0 {
			t.Errorf("g1: expected global at depth 0, got %v depth %d", g1.Kind, g1.Depth)
		}
		if a1 != DirectAddr(544) {
			t.Errorf("g1 address: expected direct 544, got %v", a1)
		}
		if a2 != DirectAddr(548) {
			t.Errorf("arr address: expected direct 548, got %v", a2)
		}
		// arr takes four cells: pointer + three elements
		if a3 != DirectAddr(564) {
			t.Errorf("g3 address: expected direct 564, got %v", a3)
		}
	})

	t.Run("LocalAllocation", func(t *testing.T) {
		s := NewSymbolTable()
		s.DeclareVar("g", TypeInt, 0)
		s.EnterScope()
		s.BeginFunction()
		_, a := s.DeclareVar("a", TypeInt, 0)
		_, b := s.DeclareVar("b", TypeArray, 2)
		s.EnterScope()
		_, c := s.DeclareVar("c", TypeInt, 0)

		if a != OffsetAddr(0) || b != OffsetAddr(4) || c != OffsetAddr(16) {
			t.Errorf("locals: expected offsets 0, 4, 16, got %v, %v, %v", a, b, c)
		}
		row, _ := s.Lookup("c")
		if row.Kind != KindLocal || row.Depth != 2 {
			t.Errorf("c: expected local at depth 2, got %v depth %d", row.Kind, row.Depth)
		}

		s.ExitScope()
		s.ExitScope()
		s.EnterScope()
		s.BeginFunction()
		if _, d := s.DeclareVar("d", TypeInt, 0); d != OffsetAddr(0) {
			t.Errorf("locals restart per function: expected offset 0, got %v", d)
		}
	})

	t.Run("Params", func(t *testing.T) {
		s := NewSymbolTable()
		s.DeclareParams([]Param{{"x", TypeInt}, {"v", TypeArray}, {"n", TypeInt}})

		want := map[string]Address{"x": OffsetAddr(-16), "v": OffsetAddr(-12), "n": OffsetAddr(-8)}
		for name, addr := range want {
			row, ok := s.Lookup(name)
			if !ok {
				t.Fatalf("%s: not found", name)
			}
			if row.Addr != addr || row.Kind != KindParam || row.Depth != 1 {
				t.Errorf("%s: expected %v param at depth 1, got %v %v depth %d", name, addr, row.Addr, row.Kind, row.Depth)
			}
		}
		if row, _ := s.LookupAddress(OffsetAddr(-12)); row == nil || row.Name != "v" || row.Type != TypeArray {
			t.Errorf("LookupAddress(-12): expected array v, got %+v", row)
		}

		// params belong to the body scope
		s.EnterScope()
		s.ExitScope()
		if _, ok := s.Lookup("x"); ok {
			t.Errorf("params should be dropped with the body scope")
		}
	})

	t.Run("Redeclaration", func(t *testing.T) {
		s := NewSymbolTable()
		first, _ := s.DeclareVar("x", TypeInt, 0)
		again, addr := s.DeclareVar("x", TypeArray, 5)

		if again != first {
			t.Errorf("redeclaration should return the first row")
		}
		if first.Type != TypeInt || first.Addr != DirectAddr(544) {
			t.Errorf("first declaration changed: %+v", first)
		}
		if addr != DirectAddr(548) {
			t.Errorf("redeclaration still consumes cells: expected direct 548, got %v", addr)
		}
		if n := len(s.Rows()); n != 1 {
			t.Errorf("expected 1 row, got %d", n)
		}
	})

	t.Run("NoShadowing", func(t *testing.T) {
		s := NewSymbolTable()
		s.DeclareVar("x", TypeInt, 0)
		s.EnterScope()
		row, _ := s.DeclareVar("x", TypeArray, 2)
		if row.Depth != 0 || row.Type != TypeInt {
			t.Errorf("inner x should resolve to the global, got %+v", row)
		}
	})

	t.Run("NestedScopes", func(t *testing.T) {
		s := NewSymbolTable()
		s.DeclareVar("g", TypeInt, 0)
		for i := 0; i < 2; i++ {
			s.EnterScope()
			s.DeclareVar("x", TypeInt, 0)
			if _, ok := s.Lookup("x"); !ok {
				t.Fatalf("block %d: x not visible", i)
			}
			s.ExitScope()
		}
		if _, ok := s.Lookup("x"); ok {
			t.Errorf("x leaked out of its block")
		}
		if _, ok := s.Lookup("g"); !ok {
			t.Errorf("g lost")
		}
		if s.Depth() != 0 {
			t.Errorf("depth: expected 0, got %d", s.Depth())
		}
	})

	t.Run("LookupAddressSkipsFunctions", func(t *testing.T) {
		s := NewSymbolTable()
		s.Insert(Symbol{Name: "f", Addr: DirectAddr(544), Kind: KindFunction})
		if _, ok := s.LookupAddress(DirectAddr(544)); ok {
			t.Errorf("function rows must not match an address lookup")
		}
		s.DeclareVar("g", TypeInt, 0)
		if row, ok := s.LookupAddress(DirectAddr(544)); !ok || row.Name != "g" {
			t.Errorf("expected g at direct 544, got %+v", row)
		}
	})
}

func TestSymbolTableDump(t *testing.T) {
	s := NewSymbolTable()
	s.DeclareVar("total", TypeInt, 0)
	s.Insert(Symbol{Name: "sum", Addr: DirectAddr(7), Kind: KindFunction, Len: 2, RetAddr: 100004, Params: []VarType{TypeArray, TypeInt}})

	var sb strings.Builder
	s.Dump(&sb)
	out := sb.String()
	for _, want := range []string{"total", "global", "direct 544", "sum", "function", "ret=100004", "[array int]"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
