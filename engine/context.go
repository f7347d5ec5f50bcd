// Package engine glues the lexer/parser/compiler/vm pipeline into one
// driver object: something a REPL and a CLI file-runner can both hold
// onto across many incremental compiles of the same running program.
package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/embedscript/kong/compiler"
	"github.com/embedscript/kong/gc"
	"github.com/embedscript/kong/lexer"
	"github.com/embedscript/kong/object"
	"github.com/embedscript/kong/parser"
	"github.com/embedscript/kong/store"
	"github.com/embedscript/kong/vm"
)

// Context is a running program: one global store, one compiler (carrying
// forward its symbol table and constant pool), one heap, and the module
// globals array a fresh VM is seeded with on every Run.
type Context struct {
	globalStore *store.GlobalStore
	comp        *compiler.Compiler
	heap        *gc.Heap

	moduleGlobals []object.Object

	out io.Writer

	includeDirs []string
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithOutput sets the writer the `puts` native prints to, overriding the
// default of os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Context) { c.out = w }
}

// WithGCPoolSize overrides the heap's per-type pool capacity.
func WithGCPoolSize(size int) Option {
	return func(c *Context) { c.heap = gc.NewWithPoolSize(size) }
}

// WithIncludeDirs adds extra search roots an `include` statement's target
// is tried against when it cannot be resolved relative to the including
// file's own directory. This is a pragmatic extension of the compiler's
// single-directory resolution rule (compiler.ResolveIncludePath only ever
// joins against the including file's directory) — not a rewrite of that
// rule, which stays the first and primary resolution attempt.
func WithIncludeDirs(dirs ...string) Option {
	return func(c *Context) { c.includeDirs = append(c.includeDirs, dirs...) }
}

// WithMainPath seeds the compiler's include resolution as though the
// first CompileSource call were itself file mainPath, without actually
// reading mainPath from disk. Useful for a REPL that wants relative
// includes resolved against its working directory.
func WithMainPath(mainPath string) Option {
	return func(c *Context) { c.comp = compiler.NewWithFile(c.globalStore, mainPath) }
}

// New constructs a Context with a fresh global store, heap, and compiler.
func New(opts ...Option) *Context {
	globalStore := store.New()
	c := &Context{
		globalStore:   globalStore,
		heap:          gc.New(),
		moduleGlobals: make([]object.Object, vm.GlobalsSize),
		out:           os.Stdout,
	}
	c.comp = compiler.New(globalStore)

	for _, opt := range opts {
		opt(c)
	}

	c.comp.SetReadFile(c.readInclude)
	c.globalStore.Set("puts", c.putsNative())
	return c
}

// putsNative rebuilds the `puts` builtin bound to this Context's output
// writer, overwriting object.Builtins' stdout-only default (store.Set
// freely overwrites an existing symbol's value).
func (c *Context) putsNative() *object.NativeFunction {
	return &object.NativeFunction{
		Name: "puts",
		Fn: func(_ object.Caller, _ object.Object, args []object.Object) object.Object {
			for _, arg := range args {
				_, _ = fmt.Fprintln(c.out, arg.Inspect())
			}
			return &object.Null{}
		},
	}
}

// readInclude implements compiler.ReadFileFunc: try the resolved path
// first (the normal resolution rule), then each configured include root
// joined with the resolved path's base name.
func (c *Context) readInclude(path string) (string, error) {
	if b, err := os.ReadFile(path); err == nil {
		return string(b), nil
	} else if len(c.includeDirs) == 0 {
		return "", err
	}

	base := filepath.Base(path)
	for _, dir := range c.includeDirs {
		if b, err := os.ReadFile(filepath.Join(dir, base)); err == nil {
			return string(b), nil
		}
	}
	return "", fmt.Errorf("include %q not found (searched %d extra directories)", path, len(c.includeDirs))
}

// RegisterNative installs fn as a context-global native function visible
// to every subsequent compile, the host's way of extending the global
// store with its own functions.
func (c *Context) RegisterNative(name string, fn *object.NativeFunction) error {
	if fn == nil {
		return fmt.Errorf("engine: RegisterNative(%q): nil function", name)
	}
	c.globalStore.Set(name, fn)
	return nil
}

// SetGlobal installs val as a context-global value visible to every
// subsequent compile, the host's way of seeding the global store directly.
func (c *Context) SetGlobal(name string, val object.Object) error {
	if val == nil {
		return fmt.Errorf("engine: SetGlobal(%q): nil value", name)
	}
	c.globalStore.Set(name, val)
	return nil
}

// CompileSource lexes, parses, and compiles one incremental chunk of
// source against this Context's running compiler state.
func (c *Context) CompileSource(code string) (*compiler.Bytecode, error) {
	l := lexer.New(code, "<source>")
	p := parser.New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		return nil, &ParseError{Messages: errs}
	}
	return c.comp.CompileSource(program)
}

// CompileFile reads path, then behaves like CompileSource.
func (c *Context) CompileFile(path string) (*compiler.Bytecode, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine: reading %s: %w", path, err)
	}

	l := lexer.New(string(content), path)
	p := parser.New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		return nil, &ParseError{Messages: errs}
	}
	return c.comp.CompileSource(program)
}

// Run executes bc in a fresh VM that resumes this Context's module
// globals, so top-level `let` bindings from a prior CompileSource/Run
// round trip are visible to the next one (the REPL's incremental-session
// behavior).
func (c *Context) Run(bc *compiler.Bytecode) (object.Object, error) {
	machine := vm.NewWithGlobals(bc, c.globalStore, c.heap, c.moduleGlobals)
	if err := machine.Run(); err != nil {
		return nil, err
	}
	c.moduleGlobals = machine.ModuleGlobals()
	return machine.LastPoppedStackElem(), nil
}

// ParseError wraps the parser's accumulated error-message list into one
// error value CompileSource/CompileFile callers can handle uniformly
// alongside compiler and VM errors.
type ParseError struct {
	Messages []string
}

func (e *ParseError) Error() string {
	if len(e.Messages) == 1 {
		return "parse error: " + e.Messages[0]
	}
	return fmt.Sprintf("%d parse errors, first: %s", len(e.Messages), e.Messages[0])
}
