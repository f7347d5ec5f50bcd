// Package object defines the runtime value model for the Kong virtual
// machine.
//
// A value is a tagged union over null, bool, fixed-number (integral),
// float-number, string, array, map, script-function, native-function, and
// error. Heap-backed kinds (string, array, map, script-function,
// native-function, error) carry a small mark header so the [gc] package can
// manage them without external bookkeeping.
package object

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"

	"github.com/embedscript/kong/code"
	"github.com/embedscript/kong/token"
)

// Type identifies the kind of an [Object].
type Type string

const (
	NullObj           Type = "NULL"
	BooleanObj        Type = "BOOLEAN"
	IntegerObj        Type = "FIXED_NUMBER"
	FloatObj          Type = "FLOAT_NUMBER"
	StringObj         Type = "STRING"
	ArrayObj          Type = "ARRAY"
	MapObj            Type = "MAP"
	ScriptFunctionObj Type = "SCRIPT_FUNCTION"
	NativeFunctionObj Type = "NATIVE_FUNCTION"
	ErrorObj          Type = "ERROR"
)

// Object is implemented by every runtime value.
type Object interface {
	Type() Type
	Inspect() string
}

// Caller lets a native function re-enter the VM (e.g. array.map invoking a
// script function). Implemented by *vm.VM; kept as an interface here to
// avoid an import cycle between object and vm.
type Caller interface {
	CallObject(fn Object, args []Object) (Object, error)
}

// gcHeader is embedded into every heap-allocated object to give the
// collector a mark bit without external bookkeeping.
type gcHeader struct {
	marked bool
}

// Marked reports whether the GC has visited this object in the current mark
// phase.
func (h *gcHeader) Marked() bool { return h.marked }

// SetMarked sets or clears this object's mark bit.
func (h *gcHeader) SetMarked(v bool) { h.marked = v }

// Heap is implemented by every heap-allocated kind so [gc.Heap] can manage
// it uniformly.
type Heap interface {
	Object
	Marked() bool
	SetMarked(bool)
}

// Null is the sole null value.
type Null struct{}

func (n *Null) Type() Type      { return NullObj }
func (n *Null) Inspect() string { return "null" }

// Boolean wraps a bool.
type Boolean struct{ Value bool }

func (b *Boolean) Type() Type      { return BooleanObj }
func (b *Boolean) Inspect() string { return strconv.FormatBool(b.Value) }

// Integer is a fixed (integral) number.
type Integer struct{ Value int64 }

func (i *Integer) Type() Type      { return IntegerObj }
func (i *Integer) Inspect() string { return strconv.FormatInt(i.Value, 10) }

// Float is a floating-point number.
type Float struct{ Value float64 }

func (f *Float) Type() Type { return FloatObj }
func (f *Float) Inspect() string {
	return strconv.FormatFloat(f.Value, 'g', -1, 64)
}

// MakeNumber implements the fixed-vs-float tagging rule: a value whose
// float64 bit pattern round-trips to an integer with no fractional part is
// a fixed number, otherwise a float.
func MakeNumber(v float64) Object {
	if float64(int64(v)) == v {
		return &Integer{Value: int64(v)}
	}
	return &Float{Value: v}
}

// NumberBits returns the float64 bit pattern backing OpMkNumber for n,
// whichever numeric kind it is.
func NumberBits(n Object) (uint64, bool) {
	switch v := n.(type) {
	case *Integer:
		return math.Float64bits(float64(v.Value)), true
	case *Float:
		return math.Float64bits(v.Value), true
	}
	return 0, false
}

// AsFloat widens any numeric object to float64.
func AsFloat(o Object) (float64, bool) {
	switch v := o.(type) {
	case *Integer:
		return float64(v.Value), true
	case *Float:
		return v.Value, true
	}
	return 0, false
}

// IsNumeric reports whether o is Integer or Float.
func IsNumeric(o Object) bool {
	switch o.(type) {
	case *Integer, *Float:
		return true
	}
	return false
}

// String is an immutable (in observable semantics) heap string.
type String struct {
	gcHeader
	Value string

	hashOnce bool
	hashVal  HashKey
}

func (s *String) Type() Type      { return StringObj }
func (s *String) Inspect() string { return s.Value }

// HashKey returns (and caches) s's hash key.
func (s *String) HashKey() HashKey {
	if !s.hashOnce {
		h := fnv.New64a()
		_, _ = h.Write([]byte(s.Value))
		s.hashVal = HashKey{Type: s.Type(), Value: h.Sum64()}
		s.hashOnce = true
	}
	return s.hashVal
}

// HashKey identifies a hashable value for map-key purposes.
type HashKey struct {
	Type  Type
	Value uint64
}

// Hashable is implemented by object kinds that may be used as map keys.
type Hashable interface {
	Object
	HashKey() HashKey
}

func (b *Boolean) HashKey() HashKey {
	var v uint64
	if b.Value {
		v = 1
	}
	return HashKey{Type: b.Type(), Value: v}
}

func (i *Integer) HashKey() HashKey {
	return HashKey{Type: i.Type(), Value: uint64(i.Value)}
}

func (f *Float) HashKey() HashKey {
	return HashKey{Type: f.Type(), Value: math.Float64bits(f.Value)}
}

// Array is a heap-allocated, mutable, indexable sequence.
type Array struct {
	gcHeader
	Elements []Object
}

func (a *Array) Type() Type { return ArrayObj }
func (a *Array) Inspect() string {
	var out strings.Builder
	elems := make([]string, 0, len(a.Elements))
	for _, e := range a.Elements {
		elems = append(elems, e.Inspect())
	}
	out.WriteString("[")
	out.WriteString(strings.Join(elems, ", "))
	out.WriteString("]")
	return out.String()
}

// MapPair is one key/value pair stored in a [Map].
type MapPair struct {
	Key   Object
	Value Object
}

// Map is a heap-allocated hash map keyed by [Hashable] values. Keys is kept
// in insertion order so iteration (foreach, Inspect) is deterministic.
type Map struct {
	gcHeader
	Pairs map[HashKey]MapPair
	Keys  []HashKey
}

func NewMap() *Map {
	return &Map{Pairs: make(map[HashKey]MapPair)}
}

func (m *Map) Type() Type { return MapObj }
func (m *Map) Inspect() string {
	var out strings.Builder
	pairs := make([]string, 0, len(m.Keys))
	for _, k := range m.Keys {
		p := m.Pairs[k]
		pairs = append(pairs, fmt.Sprintf("%s: %s", p.Key.Inspect(), p.Value.Inspect()))
	}
	out.WriteString("{")
	out.WriteString(strings.Join(pairs, ", "))
	out.WriteString("}")
	return out.String()
}

// Set stores key => value, preserving first-insertion order for key.
func (m *Map) Set(key Hashable, value Object) {
	hk := key.HashKey()
	if _, exists := m.Pairs[hk]; !exists {
		m.Keys = append(m.Keys, hk)
	}
	m.Pairs[hk] = MapPair{Key: key, Value: value}
}

// Get looks up key, reporting whether it was present.
func (m *Map) Get(key Hashable) (Object, bool) {
	p, ok := m.Pairs[key.HashKey()]
	if !ok {
		return nil, false
	}
	return p.Value, true
}

// CompiledFunction is the static, immutable code blob a [ScriptFunction]
// points to; it is interned in the constants pool.
type CompiledFunction struct {
	Instructions  code.Instructions
	NumLocals     int
	NumParameters int
}

func (cf *CompiledFunction) Type() Type      { return "COMPILED_FUNCTION" }
func (cf *CompiledFunction) Inspect() string { return fmt.Sprintf("CompiledFunction[%p]", cf) }

// ScriptFunction is a heap closure: a reference to its compiled code blob
// plus the free-variable slots it captured at creation.
type ScriptFunction struct {
	gcHeader
	Fn   *CompiledFunction
	Free []Object
	Name string
}

func (f *ScriptFunction) Type() Type { return ScriptFunctionObj }
func (f *ScriptFunction) Inspect() string {
	if f.Name != "" {
		return fmt.Sprintf("fn<%s>(...)", f.Name)
	}
	return fmt.Sprintf("fn(...)[%p]", f)
}

// NativeFunction is a heap-allocated built-in or host-registered callable.
// Data is an opaque pointer the registering code may use to close over
// state.
type NativeFunction struct {
	gcHeader
	Name string
	Fn   func(c Caller, this Object, args []Object) Object
	Data any
}

func (nf *NativeFunction) Type() Type      { return NativeFunctionObj }
func (nf *NativeFunction) Inspect() string { return fmt.Sprintf("native<%s>", nf.Name) }

// ErrorKind classifies the source of an [Error].
type ErrorKind string

const (
	ErrCompilation ErrorKind = "compilation"
	ErrParsing     ErrorKind = "parsing"
	ErrAllocation  ErrorKind = "allocation"
	ErrRuntime     ErrorKind = "runtime"
	ErrUser        ErrorKind = "user"
)

// TraceEntry is one frame of an [Error]'s traceback.
type TraceEntry struct {
	Name string
	Pos  token.Position
}

// Error is a heap-allocated error value: raised by native functions via
// [NewError], by the VM on a failed dispatch, or observed by a `recover`
// block.
type Error struct {
	gcHeader
	Kind      ErrorKind
	Message   string
	Pos       token.Position
	Traceback []TraceEntry
}

func (e *Error) Type() Type      { return ErrorObj }
func (e *Error) Inspect() string { return "error: " + e.Message }

// Error implements the error interface with the bare message.
func (e *Error) Error() string { return e.Message }

// NewError constructs a user-kind error, the shape native functions use to
// report failures through the explicit error API.
func NewError(format string, a ...any) *Error {
	return &Error{Kind: ErrUser, Message: fmt.Sprintf(format, a...)}
}

// IsTruthy implements the truthiness rule: false, null, and +0
// are falsy; everything else is truthy.
func IsTruthy(o Object) bool {
	switch v := o.(type) {
	case *Null:
		return false
	case *Boolean:
		return v.Value
	case *Integer:
		return v.Value != 0
	case *Float:
		return v.Value != 0
	default:
		return true
	}
}

// TypeName returns a human-readable name for o's type, used in error
// messages.
func TypeName(o Object) string {
	if o == nil {
		return "null"
	}
	return string(o.Type())
}

// CopyFlat implements a "deep-but-shallow" copy: arrays, maps,
// and strings copy one level; everything else (including closures and
// native functions) is returned as-is.
func CopyFlat(o Object) Object {
	switch v := o.(type) {
	case *Array:
		elems := make([]Object, len(v.Elements))
		copy(elems, v.Elements)
		return &Array{Elements: elems}
	case *Map:
		m := NewMap()
		for _, k := range v.Keys {
			p := v.Pairs[k]
			m.Keys = append(m.Keys, k)
			m.Pairs[k] = p
		}
		return m
	case *String:
		return &String{Value: v.Value}
	default:
		return o
	}
}

// IsCallable reports whether o may appear as the callee of a CALL.
func IsCallable(o Object) bool {
	switch o.(type) {
	case *ScriptFunction, *NativeFunction:
		return true
	}
	return false
}

// IsHashable reports whether o satisfies [Hashable].
func IsHashable(o Object) bool {
	_, ok := o.(Hashable)
	return ok
}

// Compare implements a total order for same-typed numeric/string operands,
// and identity comparison otherwise. It returns a negative, zero, or
// positive int the way [strings.Compare] does.
func Compare(a, b Object) (int, bool) {
	if IsNumeric(a) && IsNumeric(b) {
		af, _ := AsFloat(a)
		bf, _ := AsFloat(b)
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(*String)
	bs, bok := b.(*String)
	if aok && bok {
		return strings.Compare(as.Value, bs.Value), true
	}
	if a == b {
		return 0, true
	}
	return 0, false
}

// Equal implements cross-type-safe equality: same-typed comparisons defer
// to [Compare]; differently typed operands are simply unequal (never an
// error), matching OpCompareEqual's contract.
func Equal(a, b Object) bool {
	if a.Type() != b.Type() {
		return false
	}
	if c, ok := Compare(a, b); ok {
		return c == 0
	}
	return a == b
}
