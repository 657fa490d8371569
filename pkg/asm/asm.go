// Package asm reads an instruction dump ("pc<TAB>(OP,a,b,c)" per line) back
// into a program the vm package can execute.
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"cminus/pkg/vm"
)

type Assembler struct {
	slots map[int]parsedLine
}

type parsedLine struct {
	lineNo   int
	pc       int
	mnemonic string
	operands [3]string
}

func NewAssembler() *Assembler {
	return &Assembler{
		slots: make(map[int]parsedLine),
	}
}

// Assemble parses a dump and returns the program plus a pc -> source line map.
func Assemble(code string) ([]vm.Instruction, map[int]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]vm.Instruction, map[int]int, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}

	return a.pass2()
}

// pass1 collects every numbered line and rejects duplicate program counters.
func (a *Assembler) pass1(lines []string) error {
	for i, raw := range lines {
		lineNo := i + 1
		p, ok, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if prev, exists := a.slots[p.pc]; exists {
			return fmt.Errorf("duplicate pc %d on line %d (first defined on line %d)", p.pc, lineNo, prev.lineNo)
		}
		a.slots[p.pc] = p
	}
	return nil
}

// pass2 lays the instructions out densely from pc 0.
func (a *Assembler) pass2() ([]vm.Instruction, map[int]int, error) {
	program := make([]vm.Instruction, len(a.slots))
	sourceMap := make(map[int]int, len(a.slots))

	for pc := 0; pc < len(a.slots); pc++ {
		p, ok := a.slots[pc]
		if !ok {
			return nil, nil, fmt.Errorf("missing instruction for pc %d", pc)
		}

		op, ok := vm.LookupOpcode(p.mnemonic)
		if !ok {
			return nil, nil, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
		}

		ins := vm.Instruction{Op: op}
		for i, tok := range p.operands {
			arg, err := parseOperand(tok, p.lineNo)
			if err != nil {
				return nil, nil, err
			}
			ins.Args[i] = arg
		}

		program[pc] = ins
		sourceMap[pc] = p.lineNo
	}

	return program, sourceMap, nil
}

func parseLine(raw string, lineNo int) (parsedLine, bool, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, false, nil
	}

	open := strings.IndexByte(line, '(')
	closing := strings.LastIndexByte(line, ')')
	if open <= 0 || closing < open {
		return p, false, fmt.Errorf("malformed instruction on line %d: %q", lineNo, raw)
	}

	pc, err := strconv.Atoi(strings.TrimSpace(line[:open]))
	if err != nil || pc < 0 {
		return p, false, fmt.Errorf("invalid pc on line %d: %q", lineNo, strings.TrimSpace(line[:open]))
	}
	p.pc = pc

	fields := strings.Split(line[open+1:closing], ",")
	if len(fields) != 4 {
		return p, false, fmt.Errorf("expected opcode and three operands on line %d, got %d fields", lineNo, len(fields))
	}

	p.mnemonic = strings.ToUpper(strings.TrimSpace(fields[0]))
	for i := range p.operands {
		p.operands[i] = strings.TrimSpace(fields[i+1])
	}
	return p, true, nil
}

func stripComments(line string) string {
	if cut := strings.Index(line, "//"); cut >= 0 {
		return line[:cut]
	}
	return line
}

func parseOperand(token string, lineNo int) (vm.Arg, error) {
	if token == "" {
		return vm.Arg{}, nil
	}

	mode := vm.ModeDirect
	digits := token
	switch token[0] {
	case '#':
		mode = vm.ModeImmediate
		digits = token[1:]
	case '@':
		mode = vm.ModeIndirect
		digits = token[1:]
	}

	v, err := strconv.Atoi(digits)
	if err != nil {
		return vm.Arg{}, fmt.Errorf("invalid operand on line %d: %q", lineNo, token)
	}
	return vm.Arg{Mode: mode, Value: v}, nil
}
