package object

import "testing"

type stubCaller struct{}

func (stubCaller) CallObject(fn Object, args []Object) (Object, error) {
	nf := fn.(*NativeFunction)
	return nf.Fn(stubCaller{}, nil, args), nil
}

func TestLookupMethod(t *testing.T) {
	if _, ok := LookupMethod(ArrayObj, "push"); !ok {
		t.Errorf("expected array.push to be found")
	}
	if _, ok := LookupMethod(ArrayObj, "nope"); ok {
		t.Errorf("expected array.nope to be absent")
	}
	if _, ok := LookupMethod(IntegerObj, "length"); ok {
		t.Errorf("integers have no method table")
	}
}

func TestArrayMethods(t *testing.T) {
	arr := &Array{Elements: []Object{&Integer{Value: 1}, &Integer{Value: 2}, &Integer{Value: 3}}}

	m, _ := LookupMethod(ArrayObj, "length")
	if got := m.Fn(nil, arr, nil).(*Integer).Value; got != 3 {
		t.Errorf("length = %d, want 3", got)
	}

	m, _ = LookupMethod(ArrayObj, "first")
	if got := m.Fn(nil, arr, nil).(*Integer).Value; got != 1 {
		t.Errorf("first = %d, want 1", got)
	}

	m, _ = LookupMethod(ArrayObj, "last")
	if got := m.Fn(nil, arr, nil).(*Integer).Value; got != 3 {
		t.Errorf("last = %d, want 3", got)
	}

	m, _ = LookupMethod(ArrayObj, "push")
	m.Fn(nil, arr, []Object{&Integer{Value: 4}})
	if len(arr.Elements) != 4 {
		t.Fatalf("push did not mutate in place, len=%d", len(arr.Elements))
	}

	m, _ = LookupMethod(ArrayObj, "pop")
	popped := m.Fn(nil, arr, nil).(*Integer).Value
	if popped != 4 || len(arr.Elements) != 3 {
		t.Errorf("pop = %d (len %d), want 4 (len 3)", popped, len(arr.Elements))
	}

	m, _ = LookupMethod(ArrayObj, "join")
	joined := m.Fn(nil, arr, []Object{&String{Value: "-"}}).(*String).Value
	if joined != "1-2-3" {
		t.Errorf("join = %q, want %q", joined, "1-2-3")
	}

	m, _ = LookupMethod(ArrayObj, "fill")
	filled := m.Fn(nil, arr, []Object{&Integer{Value: 2}, &String{Value: "x"}}).(*Array)
	if len(filled.Elements) != 2 || filled.Elements[1].(*String).Value != "x" {
		t.Errorf("fill produced %s", filled.Inspect())
	}

	m, _ = LookupMethod(ArrayObj, "map")
	src := &Array{Elements: []Object{&Integer{Value: 1}, &Integer{Value: 2}}}
	double := &NativeFunction{Fn: func(_ Caller, _ Object, args []Object) Object {
		return &Integer{Value: args[0].(*Integer).Value * 2}
	}}
	mapped := m.Fn(stubCaller{}, src, []Object{double}).(*Array)
	if mapped.Elements[0].(*Integer).Value != 2 || mapped.Elements[1].(*Integer).Value != 4 {
		t.Errorf("map produced %s", mapped.Inspect())
	}
}

func TestMapMethods(t *testing.T) {
	mp := NewMap()
	mp.Set(&String{Value: "a"}, &Integer{Value: 1})
	mp.Set(&String{Value: "b"}, &Integer{Value: 2})

	m, _ := LookupMethod(MapObj, "length")
	if got := m.Fn(nil, mp, nil).(*Integer).Value; got != 2 {
		t.Errorf("length = %d, want 2", got)
	}

	m, _ = LookupMethod(MapObj, "keys")
	keys := m.Fn(nil, mp, nil).(*Array)
	if len(keys.Elements) != 2 {
		t.Errorf("keys len = %d, want 2", len(keys.Elements))
	}

	m, _ = LookupMethod(MapObj, "values")
	values := m.Fn(nil, mp, nil).(*Array)
	if len(values.Elements) != 2 {
		t.Errorf("values len = %d, want 2", len(values.Elements))
	}
}

func TestStringMethods(t *testing.T) {
	s := &String{Value: "a,b,c"}

	m, _ := LookupMethod(StringObj, "length")
	if got := m.Fn(nil, s, nil).(*Integer).Value; got != 5 {
		t.Errorf("length = %d, want 5", got)
	}

	m, _ = LookupMethod(StringObj, "split")
	parts := m.Fn(nil, s, []Object{&String{Value: ","}}).(*Array)
	if len(parts.Elements) != 3 || parts.Elements[1].(*String).Value != "b" {
		t.Errorf("split produced %s", parts.Inspect())
	}
}
