package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// run executes program and returns everything PRINT wrote.
func run(t *testing.T, program ...Instruction) (*Machine, string) {
	t.Helper()
	var out bytes.Buffer
	m := NewMachine(program)
	m.Output = &out
	if err := m.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return m, out.String()
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		ins  Instruction
		want string
	}{
		{New(OpASSIGN, Imm(544), Dir(500)), "(ASSIGN,#544,500,)"},
		{New(OpADD, Imm(4), Dir(500), Dir(500)), "(ADD,#4,500,500)"},
		{New(OpJP, Ind(508)), "(JP,@508,,)"},
		{New(OpJPF, Dir(100004), Dir(17)), "(JPF,100004,17,)"},
		{Instruction{}, "(,,,)"},
	}
	for _, tt := range tests {
		if got := tt.ins.String(); got != tt.want {
			t.Errorf("String(): expected %q, got %q", tt.want, got)
		}
	}
}

func TestLookupOpcode(t *testing.T) {
	for _, name := range []string{"ASSIGN", "ADD", "SUB", "MULT", "LT", "EQ", "JP", "JPF", "PRINT"} {
		op, ok := LookupOpcode(name)
		if !ok || op.String() != name {
			t.Errorf("LookupOpcode(%q): got %v, %v", name, op, ok)
		}
	}
	if _, ok := LookupOpcode("HLT"); ok {
		t.Errorf("LookupOpcode(HLT): expected miss")
	}
	if _, ok := LookupOpcode(""); ok {
		t.Errorf("LookupOpcode(\"\"): expected miss")
	}
}

func TestALU(t *testing.T) {
	m, _ := run(t,
		New(OpASSIGN, Imm(10), Dir(100)),
		New(OpASSIGN, Imm(3), Dir(104)),
		New(OpADD, Dir(100), Dir(104), Dir(200)),
		New(OpSUB, Dir(100), Dir(104), Dir(204)),
		New(OpMULT, Dir(100), Dir(104), Dir(208)),
		New(OpLT, Dir(104), Dir(100), Dir(212)),
		New(OpLT, Dir(100), Dir(104), Dir(216)),
		New(OpEQ, Dir(100), Imm(10), Dir(220)),
	)
	want := map[int]int{200: 13, 204: 7, 208: 30, 212: 1, 216: 0, 220: 1}
	for addr, v := range want {
		if got := m.Read(addr); got != v {
			t.Errorf("mem[%d]: expected %d, got %d", addr, v, got)
		}
	}
}

func TestIndirectAddressing(t *testing.T) {
	m, out := run(t,
		New(OpASSIGN, Imm(600), Dir(508)),
		New(OpASSIGN, Imm(42), Ind(508)),
		New(OpPRINT, Ind(508)),
	)
	if m.Read(600) != 42 {
		t.Errorf("mem[600]: expected 42, got %d", m.Read(600))
	}
	if out != "42\n" {
		t.Errorf("output: expected %q, got %q", "42\n", out)
	}
}

func TestJumps(t *testing.T) {
	// Count down from 3, printing each value.
	_, out := run(t,
		New(OpASSIGN, Imm(3), Dir(100)),        // 0
		New(OpLT, Imm(0), Dir(100), Dir(104)),  // 1
		New(OpJPF, Dir(104), Dir(6)),           // 2
		New(OpPRINT, Dir(100)),                 // 3
		New(OpSUB, Dir(100), Imm(1), Dir(100)), // 4
		New(OpJP, Dir(1)),                      // 5
	)
	if out != "3\n2\n1\n" {
		t.Errorf("output: expected countdown, got %q", out)
	}
}

func TestIndirectJump(t *testing.T) {
	_, out := run(t,
		New(OpASSIGN, Imm(3), Dir(508)),
		New(OpJP, Ind(508)),
		New(OpPRINT, Imm(1)),
		New(OpPRINT, Imm(2)),
	)
	if out != "2\n" {
		t.Errorf("output: expected %q, got %q", "2\n", out)
	}
}

func TestUnresolvedSlot(t *testing.T) {
	m := NewMachine([]Instruction{New(OpASSIGN, Imm(1), Dir(100)), {}})
	err := m.Run()
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if !m.Halted {
		t.Errorf("expected machine to halt on unresolved slot")
	}
}

func TestBadDestination(t *testing.T) {
	m := NewMachine([]Instruction{New(OpASSIGN, Imm(1), Imm(2))})
	if err := m.Run(); !errors.Is(err, ErrBadOperand) {
		t.Fatalf("expected ErrBadOperand, got %v", err)
	}
}

func TestStepLimit(t *testing.T) {
	m := NewMachine([]Instruction{New(OpJP, Dir(0))})
	m.MaxSteps = 50
	err := m.Run()
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("expected ErrStepLimit, got %v", err)
	}
	if !strings.Contains(err.Error(), "(50)") {
		t.Errorf("expected limit in message, got %q", err.Error())
	}
}
