package compiler

import (
	"bytes"
	"testing"

	"cminus/pkg/vm"
)

// runCode compiles src, runs it to completion and returns what it printed.
func runCode(t *testing.T, src string) string {
	t.Helper()
	res := mustCompile(t, src)

	program, err := res.Program()
	if err != nil {
		t.Fatalf("Program failed: %v", err)
	}

	m := vm.NewMachine(program)
	m.MaxSteps = 200000
	var output bytes.Buffer
	m.Output = &output
	if err := m.Run(); err != nil {
		t.Fatalf("Run failed: %v\noutput so far: %q", err, output.String())
	}
	return output.String()
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected string
	}{
		{
			name:     "assignment",
			src:      "int main(void){int x; x=1+2; output(x); return 0;}",
			expected: "3\n",
		},
		{
			name: "recursive factorial",
			src: `int fact(int n) {
  if (n < 2) return 1;
  else return n * fact(n - 1);
}
void main(void) {
  output(fact(5));
}`,
			expected: "120\n",
		},
		{
			name: "while loop",
			src: `void main(void) {
  int i;
  int s;
  i = 0;
  s = 0;
  while (i < 5) {
    s = s + i;
    i = i + 1;
  }
  output(s);
}`,
			expected: "10\n",
		},
		{
			name: "break leaves the loop",
			src: `void main(void) {
  int i;
  i = 0;
  while (i < 10) {
    if (i == 3) break;
    else i = i + 1;
  }
  output(i);
}`,
			expected: "3\n",
		},
		{
			name: "break leaves only the inner loop",
			src: `void main(void) {
  int i;
  int j;
  int n;
  i = 0;
  n = 0;
  while (i < 3) {
    j = 0;
    while (1 == 1) {
      if (j == 2) break; else j = j + 1;
      n = n + 1;
    }
    i = i + 1;
  }
  output(n);
}`,
			expected: "6\n",
		},
		{
			name: "global array",
			src: `int a[4];
void main(void) {
  int i;
  int s;
  i = 0;
  s = 0;
  while (i < 4) {
    a[i] = i * 2 + 1;
    i = i + 1;
  }
  i = 0;
  while (i < 4) {
    s = s + a[i];
    i = i + 1;
  }
  output(s);
}`,
			expected: "16\n",
		},
		{
			name: "array parameter",
			src: `int sum(int v[], int n) {
  int i;
  int s;
  i = 0;
  s = 0;
  while (i < n) {
    s = s + v[i];
    i = i + 1;
  }
  return s;
}
void main(void) {
  int a[3];
  a[0] = 1;
  a[1] = 2;
  a[2] = 3;
  output(sum(a, 3));
}`,
			expected: "6\n",
		},
		{
			name: "if else",
			src: `int max(int a, int b) {
  if (b < a) return a;
  else return b;
}
void main(void) {
  output(max(3, 9));
  output(max(7, 2));
}`,
			expected: "9\n7\n",
		},
		{
			name:     "unary minus",
			src:      "void main(void) { output(-4 + 10); output(2 * -3); output(0 - -5); }",
			expected: "6\n-6\n5\n",
		},
		{
			name: "global counter updated by a function",
			src: `int count;
void bump(int by) {
  count = count + by;
}
void main(void) {
  count = 1;
  bump(2);
  bump(4);
  output(count);
}`,
			expected: "7\n",
		},
		{
			name: "void return",
			src: `void show(int v) {
  if (v < 0) return;
  output(v);
}
void main(void) {
  show(-1);
  show(8);
}`,
			expected: "8\n",
		},
		{
			name: "chained assignment",
			src: `void main(void) {
  int a;
  int b;
  a = b = 4;
  output(a + b);
}`,
			expected: "8\n",
		},
		{
			name: "local after a skipped if block",
			src: `int id(int v) { return v; }
void main(void) {
  if (0) { int a; a = 1; }
  { int b; b = 5; id(1); output(b); }
}`,
			expected: "5\n",
		},
		{
			name: "local after a loop that never runs",
			src: `int id(int v) { return v; }
void main(void) {
  while (0) { int a; a = 1; }
  { int b; b = 5; id(1); output(b); }
}`,
			expected: "5\n",
		},
		{
			name: "locals declared in a repeated loop body",
			src: `int id(int v) { return v; }
void main(void) {
  int i;
  i = 0;
  while (i < 3) { int a; a = id(i); i = a + 1; }
  { int b; b = 9; id(2); output(b); output(i); }
}`,
			expected: "9\n3\n",
		},
		{
			name: "two recursive calls in one expression",
			src: `int fib(int n) {
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
void main(void) {
  output(fib(6));
}`,
			expected: "8\n",
		},
		{
			name: "call result kept across a nested call",
			src: `int add(int a, int b) { return a + b; }
void main(void) {
  output(add(1 + 2, add(3, 4)) + add(add(1, 1), 5));
}`,
			expected: "17\n",
		},
		{
			name:     "comparison values",
			src:      "void main(void) { output(1 < 2); output(2 < 1); output(3 == 3); }",
			expected: "1\n0\n1\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := runCode(t, tc.src); got != tc.expected {
				t.Errorf("expected output %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestProgramEntryPoint(t *testing.T) {
	src := "void start(void) { output(7); }"

	res := Compile(src, Options{EntryPoint: "start"})
	program, err := res.Program()
	if err != nil {
		t.Fatalf("Program failed: %v", err)
	}
	m := vm.NewMachine(program)
	var output bytes.Buffer
	m.Output = &output
	if err := m.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if output.String() != "7\n" {
		t.Errorf("expected 7, got %q", output.String())
	}

	// without the entry point the body is jumped over
	if got := runCode(t, src); got != "" {
		t.Errorf("expected no output, got %q", got)
	}
}
