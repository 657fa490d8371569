// Package vm defines the four-field instruction set emitted by the compiler
// and a small word-addressed machine that executes it.
package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Opcode identifies an instruction. The zero value marks a slot that has been
// reserved but never filled.
type Opcode int

const (
	OpNone Opcode = iota
	OpASSIGN
	OpADD
	OpSUB
	OpMULT
	OpLT
	OpEQ
	OpJP
	OpJPF
	OpPRINT
)

var opcodeNames = [...]string{
	OpNone:   "",
	OpASSIGN: "ASSIGN",
	OpADD:    "ADD",
	OpSUB:    "SUB",
	OpMULT:   "MULT",
	OpLT:     "LT",
	OpEQ:     "EQ",
	OpJP:     "JP",
	OpJPF:    "JPF",
	OpPRINT:  "PRINT",
}

func (op Opcode) String() string {
	if int(op) >= 0 && int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// LookupOpcode maps a mnemonic back to its opcode.
func LookupOpcode(name string) (Opcode, bool) {
	for op, n := range opcodeNames {
		if n != "" && n == name {
			return Opcode(op), true
		}
	}
	return OpNone, false
}

// Mode is the addressing mode of a single operand.
type Mode int

const (
	ModeNone      Mode = iota
	ModeImmediate      // #v
	ModeDirect         // v
	ModeIndirect       // @v
)

// Arg is one operand field of an instruction.
type Arg struct {
	Mode  Mode
	Value int
}

func Imm(v int) Arg { return Arg{Mode: ModeImmediate, Value: v} }
func Dir(v int) Arg { return Arg{Mode: ModeDirect, Value: v} }
func Ind(v int) Arg { return Arg{Mode: ModeIndirect, Value: v} }

func (a Arg) String() string {
	switch a.Mode {
	case ModeImmediate:
		return "#" + strconv.Itoa(a.Value)
	case ModeDirect:
		return strconv.Itoa(a.Value)
	case ModeIndirect:
		return "@" + strconv.Itoa(a.Value)
	}
	return ""
}

// Instruction is an opcode with up to three operands.
type Instruction struct {
	Op   Opcode
	Args [3]Arg
}

// New builds an instruction; missing operands stay empty.
func New(op Opcode, args ...Arg) Instruction {
	ins := Instruction{Op: op}
	copy(ins.Args[:], args)
	return ins
}

// Resolved reports whether the slot holds a real instruction.
func (i Instruction) Resolved() bool { return i.Op != OpNone }

func (i Instruction) String() string {
	return fmt.Sprintf("(%s,%s,%s,%s)", i.Op, i.Args[0], i.Args[1], i.Args[2])
}

// DefaultMaxSteps bounds Run so a non-terminating program cannot hang a caller.
const DefaultMaxSteps = 10_000_000

var (
	ErrStepLimit  = errors.New("step limit exceeded")
	ErrUnresolved = errors.New("unresolved instruction")
	ErrBadOperand = errors.New("bad operand")
)

// Machine executes a program against a sparse word memory.
type Machine struct {
	Program []Instruction
	Mem     map[int]int
	PC      int

	Halted bool
	Steps  int

	// MaxSteps caps Run; zero means DefaultMaxSteps.
	MaxSteps int

	// Output is where PRINT writes. If nil, os.Stdout is used.
	Output io.Writer
}

// NewMachine returns a machine ready to run program from pc 0.
func NewMachine(program []Instruction) *Machine {
	return &Machine{
		Program: program,
		Mem:     make(map[int]int),
	}
}

func (m *Machine) outputSink() io.Writer {
	if m.Output != nil {
		return m.Output
	}
	return os.Stdout
}

// Read returns the word stored at addr; untouched cells read as zero.
func (m *Machine) Read(addr int) int { return m.Mem[addr] }

// Write stores val at addr.
func (m *Machine) Write(addr, val int) { m.Mem[addr] = val }

func (m *Machine) value(a Arg) (int, error) {
	switch a.Mode {
	case ModeImmediate:
		return a.Value, nil
	case ModeDirect:
		return m.Read(a.Value), nil
	case ModeIndirect:
		return m.Read(m.Read(a.Value)), nil
	}
	return 0, fmt.Errorf("pc %d: %w: missing operand", m.PC, ErrBadOperand)
}

func (m *Machine) target(a Arg) (int, error) {
	switch a.Mode {
	case ModeDirect:
		return a.Value, nil
	case ModeIndirect:
		return m.Read(a.Value), nil
	}
	return 0, fmt.Errorf("pc %d: %w: %q is not a destination", m.PC, ErrBadOperand, a.String())
}

func (m *Machine) store(a Arg, v int) error {
	addr, err := m.target(a)
	if err != nil {
		return err
	}
	m.Write(addr, v)
	return nil
}

func boolWord(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Step executes the instruction at PC. Leaving the program halts the machine.
func (m *Machine) Step() error {
	if m.Halted {
		return nil
	}
	if m.PC < 0 || m.PC >= len(m.Program) {
		m.Halted = true
		return nil
	}

	ins := m.Program[m.PC]
	m.Steps++
	next := m.PC + 1

	switch ins.Op {
	case OpASSIGN:
		v, err := m.value(ins.Args[0])
		if err != nil {
			return err
		}
		if err := m.store(ins.Args[1], v); err != nil {
			return err
		}

	case OpADD, OpSUB, OpMULT, OpLT, OpEQ:
		a, err := m.value(ins.Args[0])
		if err != nil {
			return err
		}
		b, err := m.value(ins.Args[1])
		if err != nil {
			return err
		}
		var r int
		switch ins.Op {
		case OpADD:
			r = a + b
		case OpSUB:
			r = a - b
		case OpMULT:
			r = a * b
		case OpLT:
			r = boolWord(a < b)
		case OpEQ:
			r = boolWord(a == b)
		}
		if err := m.store(ins.Args[2], r); err != nil {
			return err
		}

	case OpJP:
		t, err := m.target(ins.Args[0])
		if err != nil {
			return err
		}
		next = t

	case OpJPF:
		c, err := m.value(ins.Args[0])
		if err != nil {
			return err
		}
		if c == 0 {
			t, err := m.target(ins.Args[1])
			if err != nil {
				return err
			}
			next = t
		}

	case OpPRINT:
		v, err := m.value(ins.Args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(m.outputSink(), v)

	default:
		m.Halted = true
		return fmt.Errorf("pc %d: %w %s", m.PC, ErrUnresolved, ins)
	}

	m.PC = next
	return nil
}

// Run steps until the machine halts, fails, or exceeds its step budget.
func (m *Machine) Run() error {
	limit := m.MaxSteps
	if limit <= 0 {
		limit = DefaultMaxSteps
	}
	for !m.Halted {
		if m.Steps >= limit {
			return fmt.Errorf("pc %d: %w (%d)", m.PC, ErrStepLimit, limit)
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}
