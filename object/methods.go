package object

import "strings"

// Method is one entry of a type's pseudo-method table. A
// "pseudo-property" (IsFunction == false) is invoked immediately when
// indexed, e.g. `arr.length`; a "bound function" (IsFunction == true)
// returns a callable bound to its receiver, e.g. `arr.push`.
type Method struct {
	Name       string
	IsFunction bool
	Fn         func(c Caller, this Object, args []Object) Object
}

// ArrayMethods is the array pseudo-method table.
var ArrayMethods = []Method{
	{"length", false, arrayLength},
	{"push", true, arrayPush},
	{"append", true, arrayPush},
	{"pop", true, arrayPop},
	{"first", false, arrayFirst},
	{"last", false, arrayLast},
	{"fill", true, arrayFill},
	{"map", true, arrayMap},
	{"join", true, arrayJoin},
}

// MapMethods is the map pseudo-method table.
var MapMethods = []Method{
	{"length", false, mapLength},
	{"keys", true, mapKeys},
	{"values", true, mapValues},
}

// StringMethods is the string pseudo-method table.
var StringMethods = []Method{
	{"length", false, stringLength},
	{"split", true, stringSplit},
}

// ErrorMethods is the error pseudo-method table, the only way a `recover`
// block can read what went wrong instead of just discarding it.
var ErrorMethods = []Method{
	{"message", false, errorMessage},
	{"kind", false, errorKind},
	{"position", false, errorPosition},
	{"traceback", false, errorTraceback},
}

// LookupMethod finds the pseudo-method named name on values of type typ.
func LookupMethod(typ Type, name string) (*Method, bool) {
	var table []Method
	switch typ {
	case ArrayObj:
		table = ArrayMethods
	case MapObj:
		table = MapMethods
	case StringObj:
		table = StringMethods
	case ErrorObj:
		table = ErrorMethods
	default:
		return nil, false
	}
	for i := range table {
		if table[i].Name == name {
			return &table[i], true
		}
	}
	return nil, false
}

func arrayLength(_ Caller, this Object, _ []Object) Object {
	arr, ok := this.(*Array)
	if !ok {
		return NewError("length: not an array")
	}
	return &Integer{Value: int64(len(arr.Elements))}
}

// arrayPush implements both `push` (append one) and `append` (variadic
// append)
func arrayPush(_ Caller, this Object, args []Object) Object {
	arr, ok := this.(*Array)
	if !ok {
		return NewError("push: not an array")
	}
	arr.Elements = append(arr.Elements, args...)
	return arr
}

func arrayPop(_ Caller, this Object, _ []Object) Object {
	arr, ok := this.(*Array)
	if !ok {
		return NewError("pop: not an array")
	}
	n := len(arr.Elements)
	if n == 0 {
		return &Null{}
	}
	last := arr.Elements[n-1]
	arr.Elements = arr.Elements[:n-1]
	return last
}

func arrayFirst(_ Caller, this Object, _ []Object) Object {
	arr, ok := this.(*Array)
	if !ok || len(arr.Elements) == 0 {
		return &Null{}
	}
	return arr.Elements[0]
}

func arrayLast(_ Caller, this Object, _ []Object) Object {
	arr, ok := this.(*Array)
	if !ok || len(arr.Elements) == 0 {
		return &Null{}
	}
	return arr.Elements[len(arr.Elements)-1]
}

// arrayFill replaces arr's contents with n copies of value, so arr ends up
// with exactly n elements whatever its previous length.
func arrayFill(_ Caller, this Object, args []Object) Object {
	arr, ok := this.(*Array)
	if !ok {
		return NewError("fill: not an array")
	}
	if len(args) != 2 {
		return NewError("fill: expected 2 arguments, got %d", len(args))
	}
	count, ok := args[0].(*Integer)
	if !ok {
		return NewError("fill: count must be a fixed number")
	}
	value := args[1]
	n := int(count.Value)
	if n < 0 {
		return NewError("fill: negative count")
	}
	elems := make([]Object, n)
	for i := range elems {
		elems[i] = value
	}
	arr.Elements = elems
	return arr
}

// arrayMap re-enters the VM via Caller to invoke a script/native function
// for each element, replacing the array's contents in place.
func arrayMap(c Caller, this Object, args []Object) Object {
	arr, ok := this.(*Array)
	if !ok {
		return NewError("map: not an array")
	}
	if len(args) != 1 || !IsCallable(args[0]) {
		return NewError("map: expected a callable argument")
	}
	fn := args[0]
	out := make([]Object, len(arr.Elements))
	for i, el := range arr.Elements {
		v, err := c.CallObject(fn, []Object{el})
		if err != nil {
			return NewError("map: %s", err.Error())
		}
		out[i] = v
	}
	arr.Elements = out
	return arr
}

// arrayJoin concatenates elements with sep, stringifying non-string
// elements via Inspect.
func arrayJoin(_ Caller, this Object, args []Object) Object {
	arr, ok := this.(*Array)
	if !ok {
		return NewError("join: not an array")
	}
	sep := ""
	if len(args) == 1 {
		s, ok := args[0].(*String)
		if !ok {
			return NewError("join: separator must be a string")
		}
		sep = s.Value
	}
	parts := make([]string, len(arr.Elements))
	for i, el := range arr.Elements {
		if s, ok := el.(*String); ok {
			parts[i] = s.Value
		} else {
			parts[i] = el.Inspect()
		}
	}
	return &String{Value: strings.Join(parts, sep)}
}

func mapLength(_ Caller, this Object, _ []Object) Object {
	m, ok := this.(*Map)
	if !ok {
		return NewError("length: not a map")
	}
	return &Integer{Value: int64(len(m.Keys))}
}

func mapKeys(_ Caller, this Object, _ []Object) Object {
	m, ok := this.(*Map)
	if !ok {
		return NewError("keys: not a map")
	}
	out := make([]Object, len(m.Keys))
	for i, k := range m.Keys {
		out[i] = m.Pairs[k].Key
	}
	return &Array{Elements: out}
}

func mapValues(_ Caller, this Object, _ []Object) Object {
	m, ok := this.(*Map)
	if !ok {
		return NewError("values: not a map")
	}
	out := make([]Object, len(m.Keys))
	for i, k := range m.Keys {
		out[i] = m.Pairs[k].Value
	}
	return &Array{Elements: out}
}

func stringLength(_ Caller, this Object, _ []Object) Object {
	s, ok := this.(*String)
	if !ok {
		return NewError("length: not a string")
	}
	return &Integer{Value: int64(len([]rune(s.Value)))}
}

func stringSplit(_ Caller, this Object, args []Object) Object {
	s, ok := this.(*String)
	if !ok {
		return NewError("split: not a string")
	}
	sep := ""
	if len(args) == 1 {
		sepObj, ok := args[0].(*String)
		if !ok {
			return NewError("split: separator must be a string")
		}
		sep = sepObj.Value
	}
	var parts []string
	if sep == "" {
		for _, r := range s.Value {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(s.Value, sep)
	}
	out := make([]Object, len(parts))
	for i, p := range parts {
		out[i] = &String{Value: p}
	}
	return &Array{Elements: out}
}

func errorMessage(_ Caller, this Object, _ []Object) Object {
	e, ok := this.(*Error)
	if !ok {
		return NewError("message: not an error")
	}
	return &String{Value: e.Message}
}

func errorKind(_ Caller, this Object, _ []Object) Object {
	e, ok := this.(*Error)
	if !ok {
		return NewError("kind: not an error")
	}
	return &String{Value: string(e.Kind)}
}

func errorPosition(_ Caller, this Object, _ []Object) Object {
	e, ok := this.(*Error)
	if !ok {
		return NewError("position: not an error")
	}
	return &String{Value: e.Pos.String()}
}

// errorTraceback returns each traceback entry as a "name@file:line:column"
// string, outermost call first.
func errorTraceback(_ Caller, this Object, _ []Object) Object {
	e, ok := this.(*Error)
	if !ok {
		return NewError("traceback: not an error")
	}
	out := make([]Object, len(e.Traceback))
	for i, entry := range e.Traceback {
		out[i] = &String{Value: entry.Name + "@" + entry.Pos.String()}
	}
	return &Array{Elements: out}
}
