package vm

import (
	"fmt"
	"testing"

	"github.com/embedscript/kong/ast"
	"github.com/embedscript/kong/compiler"
	"github.com/embedscript/kong/gc"
	"github.com/embedscript/kong/lexer"
	"github.com/embedscript/kong/object"
	"github.com/embedscript/kong/parser"
	"github.com/embedscript/kong/store"
)

func parse(input string) *ast.Program {
	l := lexer.New(input, "test.ape")
	p := parser.New(l)
	return p.ParseProgram()
}

type vmTestCase struct {
	input    string
	expected any
}

func runVMTests(t *testing.T, tests []vmTestCase) {
	t.Helper()
	for _, tt := range tests {
		program := parse(tt.input)

		globalStore := store.New()
		c := compiler.New(globalStore)
		if err := c.Compile(program); err != nil {
			t.Fatalf("%q: compiler error: %s", tt.input, err)
		}

		machine := New(c.Bytecode(), globalStore, gc.New())
		if err := machine.Run(); err != nil {
			t.Fatalf("%q: vm error: %s", tt.input, err)
		}

		testExpectedObject(t, tt.input, tt.expected, machine.LastPoppedStackElem())
	}
}

func testExpectedObject(t *testing.T, input string, expected any, actual object.Object) {
	t.Helper()
	switch want := expected.(type) {
	case int:
		testIntegerObject(t, input, int64(want), actual)
	case float64:
		f, ok := actual.(*object.Float)
		if !ok {
			t.Errorf("%q: object is not Float, got %T (%+v)", input, actual, actual)
			return
		}
		if f.Value != want {
			t.Errorf("%q: float wrong, want=%v got=%v", input, want, f.Value)
		}
	case bool:
		b, ok := actual.(*object.Boolean)
		if !ok {
			t.Errorf("%q: object is not Boolean, got %T (%+v)", input, actual, actual)
			return
		}
		if b.Value != want {
			t.Errorf("%q: boolean wrong, want=%v got=%v", input, want, b.Value)
		}
	case string:
		s, ok := actual.(*object.String)
		if !ok {
			t.Errorf("%q: object is not String, got %T (%+v)", input, actual, actual)
			return
		}
		if s.Value != want {
			t.Errorf("%q: string wrong, want=%q got=%q", input, want, s.Value)
		}
	case nil:
		if _, ok := actual.(*object.Null); !ok {
			t.Errorf("%q: object is not Null, got %T (%+v)", input, actual, actual)
		}
	case []int:
		arr, ok := actual.(*object.Array)
		if !ok {
			t.Errorf("%q: object is not Array, got %T (%+v)", input, actual, actual)
			return
		}
		if len(arr.Elements) != len(want) {
			t.Errorf("%q: wrong array length, want=%d got=%d", input, len(want), len(arr.Elements))
			return
		}
		for i, w := range want {
			testIntegerObject(t, input, int64(w), arr.Elements[i])
		}
	default:
		t.Fatalf("%q: unhandled expected type %T", input, expected)
	}
}

func testIntegerObject(t *testing.T, input string, want int64, actual object.Object) {
	t.Helper()
	i, ok := actual.(*object.Integer)
	if !ok {
		t.Errorf("%q: object is not Integer, got %T (%+v)", input, actual, actual)
		return
	}
	if i.Value != want {
		t.Errorf("%q: integer wrong, want=%d got=%d", input, want, i.Value)
	}
}

func TestIntegerArithmetic(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{"1", 1},
		{"2", 2},
		{"1 + 2", 3},
		{"1 - 2", -1},
		{"2 * 3", 6},
		{"6 / 2", 3},
		{"7 % 3", 1},
		{"5 * (2 + 10)", 60},
		{"-5", -5},
		{"-10 + 5", -5},
	})
}

func TestFloatContaminates(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{"1 + 2.5", 3.5},
		{"10 / 4", 2.5},
	})
}

func TestBooleanExpressions(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{"true", true},
		{"false", false},
		{"1 < 2", true},
		{"1 > 2", false},
		{"1 < 1", false},
		{"1 == 1", true},
		{"1 != 1", false},
		{"1 == 2", false},
		{"true == true", true},
		{"true != false", true},
		{"(1 < 2) == true", true},
		{"!true", false},
		{"!false", true},
		{"!5", false},
		{"!!5", true},
	})
}

func TestConditionals(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{"if (true) { 10 }", 10},
		{"if (true) { 10 } else { 20 }", 10},
		{"if (false) { 10 } else { 20 }", 20},
		{"if (1 < 2) { 10 } else { 20 }", 10},
		{"if (false) { 10 }", nil},
	})
}

func TestGlobalDefStatements(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{"let one = 1; one", 1},
		{"let one = 1; let two = one + one; one + two", 3},
	})
}

func TestStringExpressions(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{`"foo"`, "foo"},
		{`"foo" + "bar"`, "foobar"},
		{`"num: " + 5`, "num: 5"},
	})
}

func TestArrayLiterals(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{"[]", []int{}},
		{"[1, 2, 3]", []int{1, 2, 3}},
		{"[1 + 1, 2 * 2, 3 - 1]", []int{2, 4, 2}},
	})
}

func TestArrayIndexing(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{"[1, 2, 3][1]", 2},
		{"[1, 2, 3][0 + 2]", 3},
		{"[1, 2, 3][-1]", 3},
		{"[1, 2, 3][99]", nil},
		{"[][0]", nil},
	})
}

func TestMapLiteralsAndIndexing(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{"let m = {1: 2, 2: 3}; m[1]", 2},
		{"let m = {1: 2, 2: 3}; m[2]", 3},
		{"let m = {}; m[0]", nil},
		{`let m = {"a": 1}; m["a"]`, 1},
	})
}

func TestFunctionCalls(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{"let double = fn(x) { x * 2 }; double(5)", 10},
		{"let add = fn(a, b) { a + b }; add(1, 2)", 3},
		{"let add = fn(a, b) { let c = a + b; c }; add(1, 2)", 3},
		{"fn() { 5 + 10 }()", 15},
		{"let noop = fn() { }; noop()", nil},
	})
}

func TestFunctionsWithBindings(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{"let one = fn() { let one = 1; one }; one()", 1},
		{"let oneAndTwo = fn() { let one = 1; let two = 2; one + two }; oneAndTwo()", 3},
	})
}

func TestRecursiveFunctions(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{
			`let countdown = fn(x) { if (x == 0) { 0 } else { countdown(x - 1) } }; countdown(5)`,
			0,
		},
		{
			`let wrapper = fn() {
			   let countdown = fn(x) { if (x == 0) { 0 } else { countdown(x - 1) } };
			   countdown(3);
			 };
			 wrapper();`,
			0,
		},
	})
}

func TestClosures(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{
			`let newAdder = fn(a) { fn(b) { a + b } };
			 let addTwo = newAdder(2);
			 addTwo(3);`,
			5,
		},
	})
}

func TestForEachArray(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{
			`let sum = 0;
			 for (x in [1, 2, 3]) { sum = sum + x }
			 sum;`,
			6,
		},
	})
}

func TestRecoverCatchesRuntimeError(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{
			`let safe = fn() {
			   recover (err) { return -1; }
			   return 1 + "x" + [];
			 };
			 safe();`,
			-1,
		},
	})
}

func TestRecoverReadsErrorMessage(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{
			`let safe = fn() {
			   recover (e) { return "caught:" + e.message; }
			   return len(1);
			 };
			 safe();`,
			"caught:argument to `len` not supported, got FIXED_NUMBER",
		},
	})
}

func TestArrayPseudoMethods(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{"[1, 2, 3].length", 3},
		{"let a = [1]; a.push(2); a", []int{1, 2}},
		{"[1, 2, 3].first", 1},
		{"[1, 2, 3].last", 3},
	})
}

func TestArrayMapCallsBackIntoVM(t *testing.T) {
	runVMTests(t, []vmTestCase{
		{
			`[1, 2, 3].map(fn(x) { x * 2 })`,
			[]int{2, 4, 6},
		},
	})
}

func TestOperatorOverloads(t *testing.T) {
	tests := []vmTestCase{
		{
			fmt.Sprintf(`let a = {"x": 1, %q: fn(self, other) { self["x"] + other["x"] }};
			 let b = {"x": 2};
			 a + b;`,
				object.OverloadAdd,
			),
			3,
		},
	}
	runVMTests(t, tests)
}
