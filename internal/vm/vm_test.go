package vm

import (
	"testing"

	"github.com/glint-lang/glint/internal/compiler"
	"github.com/glint-lang/glint/internal/parser"
	"github.com/glint-lang/glint/internal/value"
)

// run compiles src through the real parser/compiler pipeline and
// executes it on a fresh VM, mirroring how internal/runtime drives a
// script end to end (no embedder layer needed for these tests).
func run(t *testing.T, src string) value.Value {
	t.Helper()
	a, pool, err := parser.Parse(src, "<test>")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	chunk, err := compiler.Compile(a, pool, src, "<test>", compiler.Settings{})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	got, err := New().Run(chunk)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	return got
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	a, pool, err := parser.Parse(src, "<test>")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	chunk, err := compiler.Compile(a, pool, src, "<test>", compiler.Settings{})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	_, err = New().Run(chunk)
	return err
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want value.Value
	}{
		{"add ints", "1 + 2", value.Int(3)},
		{"sub ints", "5 - 8", value.Int(-3)},
		{"mul ints", "3 * 4", value.Int(12)},
		{"div promotes float", "7 / 2", value.Float(3.5)},
		{"remainder ints", "7 % 2", value.Int(1)},
		{"mixed int float add", "1 + 2.5", value.Float(3.5)},
		{"string concat", `"foo" + "bar"`, value.NewStrValue("foobar")},
		{"negate int", "-5", value.Int(-5)},
		{"not true", "not true", value.Bool(false)},
		{"comparison", "3 < 4", value.Bool(true)},
		{"equal mixed numeric", "2 == 2.0", value.Bool(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(t, tt.src)
			if !value.Equal(got, tt.want) {
				t.Errorf("%s: got %s, want %s", tt.src, got.TypeName(), tt.want.TypeName())
			}
		})
	}
}

func TestListAndIndex(t *testing.T) {
	got := run(t, "x = [10, 20, 30]\nx[1]")
	if got.Kind() != value.KindInt || got.AsInt() != 20 {
		t.Fatalf("got %v, want 20", got)
	}
}

func TestNegativeIndex(t *testing.T) {
	got := run(t, `x = [1, 2, 3]
x[-1]`)
	if got.AsInt() != 3 {
		t.Fatalf("got %d, want 3", got.AsInt())
	}
}

func TestMapAccess(t *testing.T) {
	got := run(t, `m = {a: 1, b: 2}
m.b`)
	if got.AsInt() != 2 {
		t.Fatalf("got %d, want 2", got.AsInt())
	}
}

func TestFunctionCall(t *testing.T) {
	got := run(t, `f = |x, y| x + y
f(3, 4)`)
	if got.AsInt() != 7 {
		t.Fatalf("got %d, want 7", got.AsInt())
	}
}

func TestClosureCapture(t *testing.T) {
	got := run(t, `make_adder = |n|
  |x| x + n
add5 = make_adder(5)
add5(10)`)
	if got.AsInt() != 15 {
		t.Fatalf("got %d, want 15", got.AsInt())
	}
}

func TestVariadicFunction(t *testing.T) {
	got := run(t, `sum_all = |first, rest...|
  total = first
  for r in rest
    total += r
  total
sum_all(1, 2, 3, 4)`)
	if got.AsInt() != 10 {
		t.Fatalf("got %d, want 10", got.AsInt())
	}
}

func TestForLoopOverRange(t *testing.T) {
	got := run(t, `total = 0
for i in 0..5
  total += i
total`)
	if got.AsInt() != 10 {
		t.Fatalf("got %d, want 10", got.AsInt())
	}
}

func TestWhileLoop(t *testing.T) {
	got := run(t, `n = 0
count = 0
while n < 5
  n += 1
  count += 1
count`)
	if got.AsInt() != 5 {
		t.Fatalf("got %d, want 5", got.AsInt())
	}
}

func TestTryCatch(t *testing.T) {
	got := run(t, `result = 0
try
  throw "boom"
catch e
  result = 1
result`)
	if got.AsInt() != 1 {
		t.Fatalf("got %d, want 1", got.AsInt())
	}
}

func TestUncaughtThrowPropagates(t *testing.T) {
	if err := runErr(t, `throw "boom"`); err == nil {
		t.Fatal("expected an error from an uncaught throw")
	}
}

func TestGeneratorYield(t *testing.T) {
	got := run(t, `counter = ||
  yield 1
  yield 2
  yield 3

total = 0
for v in counter()
  total += v
total`)
	if got.AsInt() != 6 {
		t.Fatalf("got %d, want 6", got.AsInt())
	}
}

func TestOperatorOverload(t *testing.T) {
	got := run(t, `make_vec2 = |x, y|
  {
    x: x,
    y: y,
    @+: |a, b| make_vec2(a.x + b.x, a.y + b.y),
  }

a = make_vec2(1, 2)
b = make_vec2(3, 4)
c = a + b
c.x + c.y`)
	if got.AsInt() != 10 {
		t.Fatalf("got %d, want 10", got.AsInt())
	}
}
