package store

import (
	"testing"

	"github.com/embedscript/kong/object"
)

func TestNewRegistersBuiltins(t *testing.T) {
	s := New()
	sym, ok := s.GetSymbol("len")
	if !ok {
		t.Fatalf("expected \"len\" to be pre-registered")
	}
	v, ok := s.GetAt(sym.Index)
	if !ok {
		t.Fatalf("expected a value at len's index")
	}
	if _, ok := v.(*object.NativeFunction); !ok {
		t.Errorf("len should resolve to a native function, got %T", v)
	}
}

func TestSetThenGet(t *testing.T) {
	s := New()
	before := s.Len()

	sym := s.Set("x", &object.Integer{Value: 42})
	if sym.Index != before {
		t.Fatalf("new symbol index = %d, want %d", sym.Index, before)
	}

	v, ok := s.GetAt(sym.Index)
	if !ok || v.(*object.Integer).Value != 42 {
		t.Fatalf("GetAt(%d) = %v, want 42", sym.Index, v)
	}

	s.Set("x", &object.Integer{Value: 99})
	if s.Len() != before+1 {
		t.Errorf("re-setting an existing name should not grow the store, Len()=%d", s.Len())
	}
	v, _ = s.GetAt(sym.Index)
	if v.(*object.Integer).Value != 99 {
		t.Errorf("re-setting \"x\" should overwrite its slot, got %v", v)
	}
}

func TestGetAtOutOfRange(t *testing.T) {
	s := New()
	if _, ok := s.GetAt(-1); ok {
		t.Errorf("negative index should report ok=false")
	}
	if _, ok := s.GetAt(s.Len() + 100); ok {
		t.Errorf("out-of-range index should report ok=false")
	}
}

func TestGetSymbolUnknown(t *testing.T) {
	s := New()
	if _, ok := s.GetSymbol("does-not-exist"); ok {
		t.Errorf("unknown name should report ok=false")
	}
}
