package compiler

import (
	"fmt"

	"cminus/pkg/vm"
)

// AddrMode tells how an Address is turned into a memory cell at run time.
type AddrMode int

const (
	Direct   AddrMode = iota // absolute cell
	Offset                   // relative to the frame pointer
	Indirect                 // cell that holds the target address
)

// Address locates a variable, temporary or computed array element.
type Address struct {
	Mode  AddrMode
	Value int
}

func DirectAddr(v int) Address { return Address{Mode: Direct, Value: v} }
func OffsetAddr(v int) Address { return Address{Mode: Offset, Value: v} }
func IndirectAddr(v int) Address { return Address{Mode: Indirect, Value: v} }

func (a Address) String() string {
	switch a.Mode {
	case Direct:
		return fmt.Sprintf("direct %d", a.Value)
	case Offset:
		return fmt.Sprintf("offset %d", a.Value)
	case Indirect:
		return fmt.Sprintf("indirect %d", a.Value)
	}
	return fmt.Sprintf("Address(%d, %d)", int(a.Mode), a.Value)
}

// Fixed memory cells of the target machine.
const (
	SP  = 500 // stack pointer
	BP  = 504 // frame pointer
	AX  = 508
	BX  = 512
	CX  = 516
	DX  = 520
	EX  = 524
	FX  = 528
	RET = 532
	TMP = 536 // frame address scratch
	POP = 540 // last popped word

	StackBase = 544
	TempBase  = 100000
	WordSize  = 4
)

// operand converts a location that needs no address arithmetic into a
// single instruction operand. Offset addresses have no such form.
func (a Address) operand() (vm.Arg, bool) {
	switch a.Mode {
	case Direct:
		return vm.Dir(a.Value), true
	case Indirect:
		return vm.Ind(a.Value), true
	}
	return vm.Arg{}, false
}
