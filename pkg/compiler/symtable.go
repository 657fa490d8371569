package compiler

import (
	"fmt"
	"io"
	"strings"
)

// Kind classifies what a symbol row declares.
type Kind int

const (
	KindLocal Kind = iota
	KindParam
	KindFunction
	KindGlobal
)

var kindNames = [...]string{
	KindLocal:    "local",
	KindParam:    "param",
	KindFunction: "function",
	KindGlobal:   "global",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// VarType is the declared type of a variable, parameter or function result.
type VarType int

const (
	TypeInt VarType = iota
	TypeVoid
	TypeArray
)

var varTypeNames = [...]string{
	TypeInt:   "int",
	TypeVoid:  "void",
	TypeArray: "array",
}

func (t VarType) String() string {
	if int(t) >= 0 && int(t) < len(varTypeNames) {
		return varTypeNames[t]
	}
	return fmt.Sprintf("VarType(%d)", int(t))
}

// Symbol is one row of the symbol table.
type Symbol struct {
	Name    string
	Addr    Address
	Depth   int // 0 = global
	Len     int // array size, or parameter count for functions
	RetAddr int // cell receiving a function's return value
	Kind    Kind
	Type    VarType
	Params  []VarType // parameter types, functions only
}

// SymbolTable is an ordered list of rows plus the current scope depth.
// Lookups scan from the newest row, so inner declarations are found first.
// A name that is already visible is never inserted again.
type SymbolTable struct {
	rows  []*Symbol
	depth int

	// Cells handed out so far; locals restart at every function.
	globalCells int
	localCells  int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{}
}

func (s *SymbolTable) Depth() int { return s.depth }

func (s *SymbolTable) EnterScope() { s.depth++ }

// ExitScope drops every row declared at the current depth.
func (s *SymbolTable) ExitScope() {
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.Depth != s.depth {
			kept = append(kept, row)
		}
	}
	for i := len(kept); i < len(s.rows); i++ {
		s.rows[i] = nil
	}
	s.rows = kept
	if s.depth > 0 {
		s.depth--
	}
}

// BeginFunction restarts local address assignment at offset 0.
func (s *SymbolTable) BeginFunction() { s.localCells = 0 }

// Insert appends sym unless its name is already visible. It returns the
// visible row for the name and whether sym was the one inserted.
func (s *SymbolTable) Insert(sym Symbol) (*Symbol, bool) {
	if prev, ok := s.Lookup(sym.Name); ok {
		return prev, false
	}
	row := &sym
	s.rows = append(s.rows, row)
	return row, true
}

// Lookup finds the innermost visible row named name.
func (s *SymbolTable) Lookup(name string) (*Symbol, bool) {
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].Name == name {
			return s.rows[i], true
		}
	}
	return nil, false
}

// LookupAddress finds the variable or parameter stored at addr.
func (s *SymbolTable) LookupAddress(addr Address) (*Symbol, bool) {
	for i := len(s.rows) - 1; i >= 0; i-- {
		row := s.rows[i]
		if row.Kind != KindFunction && row.Addr == addr {
			return row, true
		}
	}
	return nil, false
}

// DeclareVar assigns the next free address at the current depth and inserts
// the row. size is 0 for a scalar; an array takes size+1 cells, the first
// holding the address of element 0. The returned address is the newly
// assigned one even when the name was already visible.
func (s *SymbolTable) DeclareVar(name string, typ VarType, size int) (*Symbol, Address) {
	cells := 1
	if typ == TypeArray {
		cells = size + 1
	}

	var addr Address
	kind := KindLocal
	if s.depth == 0 {
		addr = DirectAddr(StackBase + WordSize*s.globalCells)
		kind = KindGlobal
		s.globalCells += cells
	} else {
		addr = OffsetAddr(WordSize * s.localCells)
		s.localCells += cells
	}

	row, _ := s.Insert(Symbol{Name: name, Addr: addr, Depth: s.depth, Len: size, Kind: kind, Type: typ})
	return row, addr
}

// Param is a parameter waiting to be declared.
type Param struct {
	Name string
	Type VarType
}

// DeclareParams inserts params one scope deeper than the current depth, where
// the function body will live. The last parameter sits just below the saved
// frame pointer, at offset -8.
func (s *SymbolTable) DeclareParams(params []Param) {
	n := len(params)
	for i, p := range params {
		off := -2*WordSize - WordSize*(n-1-i)
		s.Insert(Symbol{Name: p.Name, Addr: OffsetAddr(off), Depth: s.depth + 1, Kind: KindParam, Type: p.Type})
	}
}

// Rows returns the visible rows, oldest first.
func (s *SymbolTable) Rows() []*Symbol { return s.rows }

// Dump writes one row per line, for debugging.
func (s *SymbolTable) Dump(w io.Writer) {
	var sb strings.Builder
	for _, row := range s.rows {
		fmt.Fprintf(&sb, "%-12s %-8s %-6s depth=%d len=%d %s", row.Name, row.Kind, row.Type, row.Depth, row.Len, row.Addr)
		if row.Kind == KindFunction {
			fmt.Fprintf(&sb, " ret=%d params=%v", row.RetAddr, row.Params)
		}
		sb.WriteByte('\n')
	}
	io.WriteString(w, sb.String())
}
