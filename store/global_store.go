// Package store implements the global value store shared by every file
// compiled into one program: a name-to-symbol dictionary paired with an
// ordered, indexed array of the values those symbols name.
//
// Module-global and context-global symbols both resolve through one
// GlobalStore, so the store keeps its own symbol dictionary independent
// of any one file's symbol table.
package store

import "github.com/embedscript/kong/object"

// Symbol names one slot in a GlobalStore's value array.
type Symbol struct {
	Name  string
	Index int
}

// GlobalStore owns the name->symbol dictionary and the parallel value
// array every compiled file's module-global and context-global symbols
// resolve against.
type GlobalStore struct {
	symbols map[string]Symbol
	values  []object.Object
}

// New constructs an empty GlobalStore with every registered builtin
// native function pre-defined as a symbol, mirroring the way the
// teacher's vm.New wires object.GetBuiltinByName into the builtin scope.
func New() *GlobalStore {
	s := &GlobalStore{symbols: make(map[string]Symbol)}
	for _, b := range object.Builtins {
		s.Set(b.Name, b.Fn)
	}
	return s
}

// Set creates a new symbol (and value slot) for name if none exists yet,
// or overwrites the value of an existing one. It returns the symbol
// either way.
func (s *GlobalStore) Set(name string, value object.Object) Symbol {
	sym, ok := s.symbols[name]
	if !ok {
		sym = Symbol{Name: name, Index: len(s.values)}
		s.symbols[name] = sym
		s.values = append(s.values, value)
		return sym
	}
	s.values[sym.Index] = value
	return sym
}

// GetAt returns the value stored at index, if any.
func (s *GlobalStore) GetAt(index int) (object.Object, bool) {
	if index < 0 || index >= len(s.values) {
		return nil, false
	}
	return s.values[index], true
}

// SetAt overwrites the value stored at index, if it is in range.
func (s *GlobalStore) SetAt(index int, value object.Object) bool {
	if index < 0 || index >= len(s.values) {
		return false
	}
	s.values[index] = value
	return true
}

// GetSymbol resolves name to its Symbol, if one has been Set.
func (s *GlobalStore) GetSymbol(name string) (Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// Len reports how many value slots the store currently holds.
func (s *GlobalStore) Len() int {
	return len(s.values)
}
