package compiler

import (
	"path/filepath"

	"github.com/embedscript/kong/lexer"
	"github.com/embedscript/kong/parser"
	"github.com/embedscript/kong/store"
)

// FileScope owns one file's parser, symbol table, and the set of module
// names it has already included.
type FileScope struct {
	Path    string
	Dir     string
	Parser  *parser.Parser
	Symbols *SymbolTable

	loaded map[string]bool
}

// NewFileScope parses source under path and builds a fresh symbol table
// rooted at modGlobalOffset against the shared global store.
func NewFileScope(path, source string, globalStore *store.GlobalStore, modGlobalOffset int) *FileScope {
	l := lexer.New(source, path)
	return &FileScope{
		Path:    path,
		Dir:     filepath.Dir(path),
		Parser:  parser.New(l),
		Symbols: NewSymbolTable(globalStore, modGlobalOffset),
		loaded:  make(map[string]bool),
	}
}

// HasLoaded reports whether moduleName has already been included from
// this file scope.
func (fs *FileScope) HasLoaded(moduleName string) bool {
	return fs.loaded[moduleName]
}

// AddLoaded records moduleName as included from this file scope.
func (fs *FileScope) AddLoaded(moduleName string) {
	fs.loaded[moduleName] = true
}

// Module is produced by compiling an included file in its own file scope
// and capturing its module-global symbols.
type Module struct {
	Name    string
	Symbols []Symbol
}

// NewModule builds a Module from a just-compiled file scope's top-level
// symbols, qualifying every name as "name::origname".
func NewModule(name string, fileGlobalSymbols []Symbol) *Module {
	qualified := make([]Symbol, len(fileGlobalSymbols))
	for i, sym := range fileGlobalSymbols {
		qualified[i] = Symbol{
			Name:       name + "::" + sym.Name,
			Scope:      sym.Scope,
			Index:      sym.Index,
			Assignable: sym.Assignable,
		}
	}
	return &Module{Name: name, Symbols: qualified}
}

// ResolveIncludePath canonicalizes an include target relative to dir: an
// absolute path keeps its form plus ".ape"; a relative path is joined to
// the current file's directory, also with ".ape" appended. The result is
// cleaned so cycle and cache checks can compare paths structurally rather
// than lexically.
func ResolveIncludePath(dir, target string) string {
	var joined string
	if filepath.IsAbs(target) {
		joined = target + ".ape"
	} else {
		joined = filepath.Join(dir, target) + ".ape"
	}
	return filepath.Clean(joined)
}

// ModuleName derives an include's module alias from its resolved path:
// the file's base name without its ".ape" extension.
func ModuleName(resolvedPath string) string {
	base := filepath.Base(resolvedPath)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}
