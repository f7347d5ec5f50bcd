package object

import "fmt"

// Builtins is the registry of free-standing native functions available to
// every program without an explicit import.
var Builtins = []struct {
	Name string
	Fn   *NativeFunction
}{
	{
		"len",
		&NativeFunction{Name: "len", Fn: func(_ Caller, _ Object, args []Object) Object {
			if len(args) != 1 {
				return NewError("wrong number of arguments. got=%d, want=1", len(args))
			}
			switch arg := args[0].(type) {
			case *String:
				return &Integer{Value: int64(len([]rune(arg.Value)))}
			case *Array:
				return &Integer{Value: int64(len(arg.Elements))}
			default:
				return NewError("argument to `len` not supported, got %s", TypeName(args[0]))
			}
		}},
	},
	{
		"first",
		&NativeFunction{Name: "first", Fn: func(_ Caller, _ Object, args []Object) Object {
			if len(args) != 1 {
				return NewError("wrong number of arguments. got=%d, want=1", len(args))
			}
			arr, ok := args[0].(*Array)
			if !ok {
				return NewError("argument to `first` not supported, got %s", TypeName(args[0]))
			}
			if len(arr.Elements) == 0 {
				return &Null{}
			}
			return arr.Elements[0]
		}},
	},
	{
		"last",
		&NativeFunction{Name: "last", Fn: func(_ Caller, _ Object, args []Object) Object {
			if len(args) != 1 {
				return NewError("wrong number of arguments. got=%d, want=1", len(args))
			}
			arr, ok := args[0].(*Array)
			if !ok {
				return NewError("argument to `last` not supported, got %s", TypeName(args[0]))
			}
			if len(arr.Elements) == 0 {
				return &Null{}
			}
			return arr.Elements[len(arr.Elements)-1]
		}},
	},
	{
		"rest",
		&NativeFunction{Name: "rest", Fn: func(_ Caller, _ Object, args []Object) Object {
			if len(args) != 1 {
				return NewError("wrong number of arguments. got=%d, want=1", len(args))
			}
			arr, ok := args[0].(*Array)
			if !ok {
				return NewError("argument to `rest` not supported, got %s", TypeName(args[0]))
			}
			length := len(arr.Elements)
			if length == 0 {
				return &Null{}
			}
			newElements := make([]Object, length-1)
			copy(newElements, arr.Elements[1:length])
			return &Array{Elements: newElements}
		}},
	},
	{
		// push returns a new array with val appended, leaving arr untouched.
		// The mutating counterpart lives at the `arr.push` pseudo-method
		// (object/methods.go).
		"push",
		&NativeFunction{Name: "push", Fn: func(_ Caller, _ Object, args []Object) Object {
			if len(args) != 2 {
				return NewError("wrong number of arguments. got=%d, want=2", len(args))
			}
			arr, ok := args[0].(*Array)
			if !ok {
				return NewError("argument to `push` not supported, got %s", TypeName(args[0]))
			}
			length := len(arr.Elements)
			newElements := make([]Object, length+1)
			copy(newElements, arr.Elements)
			newElements[length] = args[1]
			return &Array{Elements: newElements}
		}},
	},
	{
		"puts",
		&NativeFunction{Name: "puts", Fn: func(_ Caller, _ Object, args []Object) Object {
			for _, arg := range args {
				fmt.Println(arg.Inspect())
			}
			return &Null{}
		}},
	},
}

// GetBuiltinByName retrieves a built-in function by name from [Builtins], or
// nil if there is none with that name.
func GetBuiltinByName(name string) *NativeFunction {
	for _, def := range Builtins {
		if def.Name == name {
			return def.Fn
		}
	}
	return nil
}
