package vm

import (
	"fmt"
	"math"

	"github.com/embedscript/kong/code"
	"github.com/embedscript/kong/compiler"
	"github.com/embedscript/kong/gc"
	"github.com/embedscript/kong/object"
	"github.com/embedscript/kong/store"
)

// StackSize bounds the VM's data stack.
const StackSize = 2048

// ThisStackSize bounds the this-stack (the GETTHIS/MAPSTART scratch space).
const ThisStackSize = 1024

// GlobalsSize bounds the flat module-global value array every compiled
// file's DEFMODULEGLOBAL/SETMODULEGLOBAL/GETMODULEGLOBAL indexes into.
const GlobalsSize = 65536

// MaxFrameDepth bounds recursion: exceeding it is reported as a runtime
// error rather than overflowing the Go call stack/heap.
const MaxFrameDepth = 1024

// InitialFrameCapacity is how many Frame slots the deque starts with.
const InitialFrameCapacity = 64

var (
	True  = &object.Boolean{Value: true}
	False = &object.Boolean{Value: false}
	Null  = &object.Null{}
)

func nativeBoolToBooleanObject(b bool) *object.Boolean {
	if b {
		return True
	}
	return False
}

// overloadKeyStrings pre-allocates the well-known operator-overload key
// values once, giving [gc.Heap.MarkList] a live root to mark for them
// (counts "overload-key strings" among the VM's roots)
// without allocating a fresh *object.String on every lookup.
var overloadKeyStrings = []*object.String{
	{Value: object.OverloadAdd},
	{Value: object.OverloadSub},
	{Value: object.OverloadMul},
	{Value: object.OverloadDiv},
	{Value: object.OverloadMod},
	{Value: object.OverloadOr},
	{Value: object.OverloadXor},
	{Value: object.OverloadAnd},
	{Value: object.OverloadLshift},
	{Value: object.OverloadRshift},
	{Value: object.OverloadMinus},
	{Value: object.OverloadBang},
	{Value: object.OverloadCmp},
	{Value: object.OverloadGetIdx},
	{Value: object.OverloadSetIdx},
	{Value: object.OverloadCall},
}

// VM executes compiled bytecode against a shared heap and global store.
type VM struct {
	constants []object.Object

	stack []object.Object
	sp    int

	// thisStack backs the `this` keyword (GETTHIS). Index 0 always holds
	// Null so GETTHIS never underflows; MAPSTART/MAPEND push and pop the
	// map literal currently under construction, so `this` inside a map
	// literal's value expressions names the map being built (self
	// reference), and null everywhere else — see DESIGN.md for why this
	// narrower reading was chosen over a general method-receiver `this`.
	thisStack []object.Object
	thisPtr   int

	moduleGlobals []object.Object

	globalStore *store.GlobalStore

	frames *FrameStack

	lastPopped object.Object

	heap *gc.Heap

	errors []*object.Error
}

// New constructs a VM ready to run bc against globalStore, sharing heap for
// allocation and collection.
func New(bc *compiler.Bytecode, globalStore *store.GlobalStore, heap *gc.Heap) *VM {
	return NewWithGlobals(bc, globalStore, heap, make([]object.Object, GlobalsSize))
}

// NewWithGlobals is like New but resumes a previously populated
// module-global array, letting a REPL keep top-level bindings alive across
// successive incremental compiles of the same file scope.
func NewWithGlobals(bc *compiler.Bytecode, globalStore *store.GlobalStore, heap *gc.Heap, moduleGlobals []object.Object) *VM {
	mainFn := &object.ScriptFunction{
		Fn:   &object.CompiledFunction{Instructions: bc.Instructions},
		Name: "__main__",
	}

	frames := NewFrameStack(InitialFrameCapacity)
	frames.push(mainFn, 0)

	thisStack := make([]object.Object, ThisStackSize)
	thisStack[0] = Null

	return &VM{
		constants:     bc.Constants,
		stack:         make([]object.Object, StackSize),
		thisStack:     thisStack,
		thisPtr:       1,
		moduleGlobals: moduleGlobals,
		globalStore:   globalStore,
		frames:        frames,
		lastPopped:    Null,
		heap:          heap,
	}
}

// ModuleGlobals exposes the module-global value array, e.g. so a REPL can
// carry it into the next incremental VM.
func (vm *VM) ModuleGlobals() []object.Object {
	return vm.moduleGlobals
}

// LastPoppedStackElem returns the most recently popped stack value, i.e.
// the result of the last top-level expression statement — used by a REPL
// to print "what the line evaluated to."
func (vm *VM) LastPoppedStackElem() object.Object {
	return vm.lastPopped
}

func (vm *VM) runtimeError(format string, a ...any) {
	vm.errors = append(vm.errors, &object.Error{Kind: object.ErrRuntime, Message: fmt.Sprintf(format, a...)})
}

func (vm *VM) hasError() bool { return len(vm.errors) > 0 }

func (vm *VM) clearErrors() { vm.errors = vm.errors[:0] }

func (vm *VM) lastError() *object.Error {
	if len(vm.errors) == 0 {
		return nil
	}
	return vm.errors[len(vm.errors)-1]
}

func (vm *VM) push(obj object.Object) error {
	if vm.sp >= StackSize {
		return fmt.Errorf("stack overflow")
	}
	vm.stack[vm.sp] = obj
	vm.sp++
	return nil
}

func (vm *VM) pop() object.Object {
	obj := vm.stack[vm.sp-1]
	vm.sp--
	vm.lastPopped = obj
	return obj
}

func (vm *VM) top() object.Object {
	if vm.sp == 0 {
		return nil
	}
	return vm.stack[vm.sp-1]
}

func (vm *VM) pushThis(obj object.Object) error {
	if vm.thisPtr >= ThisStackSize {
		return fmt.Errorf("this stack overflow")
	}
	vm.thisStack[vm.thisPtr] = obj
	vm.thisPtr++
	return nil
}

func (vm *VM) popThis() object.Object {
	if vm.thisPtr <= 1 {
		return Null
	}
	vm.thisPtr--
	return vm.thisStack[vm.thisPtr]
}

// popFrame discards the current top frame, resetting sp the way a normal
// RETURN would (the callee and its arguments/locals fall off the stack).
func (vm *VM) popFrame() *Frame {
	f := vm.frames.pop()
	vm.sp = f.basePointer - 1
	return f
}

// Run drives the dispatch loop to completion, i.e. until the outermost
// frame's instructions are exhausted or an unrecovered runtime error
// terminates execution.
func (vm *VM) Run() error {
	return vm.runUntilDepth(0)
}

// runUntilDepth executes instructions until the frame stack's depth falls
// to stopDepth. Passing the depth recorded just before a nested call (see
// [VM.CallObject]) lets a native function re-enter the VM and run exactly
// one script-function call to completion without disturbing the caller's
// own frames.
func (vm *VM) runUntilDepth(stopDepth int) error {
	for vm.frames.depth() > stopDepth {
		frame := vm.frames.current()

		if frame.ip >= len(frame.Instructions())-1 {
			if vm.frames.depth() == stopDepth+1 {
				break
			}
			vm.popFrame()
			continue
		}

		frame.ip++
		ins := frame.Instructions()
		op := code.Opcode(ins[frame.ip])

		if err := vm.execute(op, ins, frame); err != nil {
			vm.runtimeError("%s", err.Error())
		}

		if vm.hasError() {
			if !vm.tryRecover(stopDepth) {
				return vm.lastError()
			}
		}

		if vm.heap.ShouldSweep() {
			vm.collectGarbage()
		}
	}

	if vm.hasError() {
		return vm.lastError()
	}
	return nil
}

// tryRecover searches frames (down to, but not below, stopDepth — frames
// below that belong to whatever Go call nested into the VM, and cannot be
// unwound from here) for one with an installed, not-already-firing recover
// block; if found, unwind to it, push the error value, and resume there.
func (vm *VM) tryRecover(stopDepth int) bool {
	err := vm.lastError()
	if err == nil || len(vm.errors) != 1 || err.Kind != object.ErrRuntime {
		return false
	}

	recoverDepth := -1
	for i := vm.frames.depth() - 1; i >= stopDepth; i-- {
		f := vm.frames.at(i)
		if f.recoverIP >= 0 && !f.isRecovering {
			recoverDepth = i
			break
		}
	}
	if recoverDepth < 0 {
		return false
	}

	errObj := &object.Error{Kind: object.ErrRuntime, Message: err.Message}
	for vm.frames.depth() > recoverDepth+1 {
		vm.popFrame()
	}
	target := vm.frames.current()
	if pushErr := vm.push(errObj); pushErr != nil {
		return false
	}
	target.ip = target.recoverIP - 1
	target.isRecovering = true
	vm.clearErrors()
	return true
}

// CallObject implements [object.Caller], letting a native function (e.g.
// array.map) invoke a script or native function value mid-dispatch.
func (vm *VM) CallObject(fn object.Object, args []object.Object) (object.Object, error) {
	switch f := fn.(type) {
	case *object.NativeFunction:
		var this object.Object
		if o, ok := f.Data.(object.Object); ok {
			this = o
		}
		result := f.Fn(vm, this, args)
		if errObj, ok := result.(*object.Error); ok {
			return nil, fmt.Errorf("%s", errObj.Message)
		}
		return result, nil

	case *object.ScriptFunction:
		if f.Fn.NumParameters != len(args) {
			return nil, fmt.Errorf("function '%s' expects %d arguments, got %d", f.Name, f.Fn.NumParameters, len(args))
		}
		if vm.frames.depth() >= MaxFrameDepth {
			return nil, fmt.Errorf("stack overflow: max call depth %d exceeded", MaxFrameDepth)
		}
		baseDepth := vm.frames.depth()
		// The callee sits below its arguments, as for CALL, so the return
		// path (sp = basePointer - 1) leaves sp where it was before this call.
		if err := vm.push(f); err != nil {
			return nil, err
		}
		bp := vm.sp
		for _, a := range args {
			if err := vm.push(a); err != nil {
				return nil, err
			}
		}
		vm.frames.push(f, bp)
		vm.sp = bp + f.Fn.NumLocals

		if err := vm.runUntilDepth(baseDepth); err != nil {
			return nil, err
		}
		return vm.pop(), nil
	}

	if overloadFn, ok := object.LookupOverload(fn, object.OverloadCall); ok {
		return vm.CallObject(overloadFn, args)
	}
	return nil, fmt.Errorf("%s object is not callable", object.TypeName(fn))
}

// collectGarbage marks every GC root, then sweeps.
func (vm *VM) collectGarbage() {
	vm.heap.UnmarkAll()

	roots := make([]object.Object, 0, vm.sp+vm.thisPtr+len(vm.constants)+len(vm.moduleGlobals)+vm.frames.depth()+len(overloadKeyStrings)+1)
	roots = append(roots, vm.constants...)
	roots = append(roots, vm.moduleGlobals...)
	roots = append(roots, vm.stack[:vm.sp]...)
	roots = append(roots, vm.thisStack[:vm.thisPtr]...)
	if vm.lastPopped != nil {
		roots = append(roots, vm.lastPopped)
	}
	for i := 0; i < vm.frames.depth(); i++ {
		roots = append(roots, vm.frames.at(i).fn)
	}
	for _, k := range overloadKeyStrings {
		roots = append(roots, k)
	}
	for i := 0; i < vm.globalStore.Len(); i++ {
		if v, ok := vm.globalStore.GetAt(i); ok {
			roots = append(roots, v)
		}
	}

	vm.heap.MarkList(roots)
	vm.heap.Sweep()
}

// execute dispatches a single instruction, advancing frame.ip past any
// operands it reads.
func (vm *VM) execute(op code.Opcode, ins code.Instructions, frame *Frame) error {
	switch op {
	case code.OpConstant:
		ix := code.ReadUint16(ins[frame.ip+1:])
		frame.ip += 2
		return vm.push(vm.constants[ix])

	case code.OpMkNumber:
		bits := code.ReadUint64(ins[frame.ip+1:])
		frame.ip += 8
		return vm.push(object.MakeNumber(math.Float64frombits(bits)))

	case code.OpTrue:
		return vm.push(True)
	case code.OpFalse:
		return vm.push(False)
	case code.OpNull:
		return vm.push(Null)

	case code.OpAdd, code.OpSub, code.OpMul, code.OpDiv, code.OpMod,
		code.OpBitOr, code.OpBitXor, code.OpBitAnd, code.OpLeftShift, code.OpRightShift:
		return vm.executeBinaryOp(op)

	case code.OpMinus:
		return vm.executeMinus()
	case code.OpNot:
		return vm.executeNot()

	case code.OpComparePlain, code.OpCompareEqual:
		return vm.executeCompare(op)
	case code.OpIsEqual, code.OpNotEqual, code.OpGreaterThan, code.OpGreaterEqual:
		return vm.executeCompareFollowup(op)

	case code.OpJump:
		target := int(code.ReadUint16(ins[frame.ip+1:]))
		frame.ip = target - 1

	case code.OpJumpIfFalse:
		target := int(code.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		if !object.IsTruthy(vm.pop()) {
			frame.ip = target - 1
		}

	case code.OpJumpIfTrue:
		target := int(code.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		if object.IsTruthy(vm.pop()) {
			frame.ip = target - 1
		}

	case code.OpDefLocal, code.OpSetLocal:
		localIx := int(ins[frame.ip+1])
		frame.ip++
		vm.stack[frame.basePointer+localIx] = vm.pop()

	case code.OpGetLocal:
		localIx := int(ins[frame.ip+1])
		frame.ip++
		return vm.push(vm.stack[frame.basePointer+localIx])

	case code.OpDefModuleGlobal, code.OpSetModuleGlobal:
		ix := int(code.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		vm.moduleGlobals[ix] = vm.pop()

	case code.OpGetModuleGlobal:
		ix := int(code.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		return vm.push(vm.moduleGlobals[ix])

	case code.OpGetContextGlobal:
		ix := int(code.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		v, ok := vm.globalStore.GetAt(ix)
		if !ok {
			return fmt.Errorf("context global value %d not found", ix)
		}
		return vm.push(v)

	case code.OpMkArray:
		n := int(code.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		return vm.executeMkArray(n)

	case code.OpMapStart:
		frame.ip += 2
		return vm.pushThis(vm.heap.AllocMap())

	case code.OpMapEnd:
		n := int(code.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		return vm.executeMkMap(n)

	case code.OpGetIndex:
		return vm.executeGetIndex()
	case code.OpSetIndex:
		return vm.executeSetIndex()
	case code.OpGetValueAt:
		return vm.executeGetValueAt()

	case code.OpCall:
		argc := int(ins[frame.ip+1])
		frame.ip++
		return vm.executeCall(argc)

	case code.OpReturnValue:
		returnValue := vm.pop()
		vm.popFrame()
		return vm.push(returnValue)

	case code.OpReturnNothing:
		vm.popFrame()
		return vm.push(Null)

	case code.OpMkFunction:
		constIx := int(code.ReadUint16(ins[frame.ip+1:]))
		numFree := int(ins[frame.ip+3])
		frame.ip += 3
		return vm.executeMkFunction(constIx, numFree)

	case code.OpGetFree:
		freeIx := int(ins[frame.ip+1])
		frame.ip++
		return vm.push(frame.fn.Free[freeIx])

	case code.OpSetFree:
		freeIx := int(ins[frame.ip+1])
		frame.ip++
		frame.fn.Free[freeIx] = vm.pop()

	case code.OpCurrentFunction:
		return vm.push(frame.fn)

	case code.OpGetThis:
		return vm.push(vm.thisStack[vm.thisPtr-1])

	case code.OpDup:
		return vm.push(object.CopyFlat(vm.top()))

	case code.OpPop:
		vm.pop()

	case code.OpLen:
		return vm.executeLen()

	case code.OpSetRecover:
		target := int(code.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		frame.recoverIP = target

	default:
		return fmt.Errorf("unknown opcode: %d", op)
	}

	return nil
}

// numericOpFor maps an arithmetic/bitwise opcode to the shared
// object.NumericBinaryOp the optimizer also folds with.
func numericOpFor(op code.Opcode) object.NumericBinaryOp {
	switch op {
	case code.OpAdd:
		return object.NumAdd
	case code.OpSub:
		return object.NumSub
	case code.OpMul:
		return object.NumMul
	case code.OpDiv:
		return object.NumDiv
	case code.OpMod:
		return object.NumMod
	case code.OpBitOr:
		return object.NumBitOr
	case code.OpBitXor:
		return object.NumBitXor
	case code.OpBitAnd:
		return object.NumBitAnd
	case code.OpLeftShift:
		return object.NumLeftShift
	case code.OpRightShift:
		return object.NumRightShift
	}
	return ""
}

// overloadKeyFor maps an arithmetic/bitwise opcode to its well-known
// operator-overload key in object's overload table.
func overloadKeyFor(op code.Opcode) (string, bool) {
	switch op {
	case code.OpAdd:
		return object.OverloadAdd, true
	case code.OpSub:
		return object.OverloadSub, true
	case code.OpMul:
		return object.OverloadMul, true
	case code.OpDiv:
		return object.OverloadDiv, true
	case code.OpMod:
		return object.OverloadMod, true
	case code.OpBitOr:
		return object.OverloadOr, true
	case code.OpBitXor:
		return object.OverloadXor, true
	case code.OpBitAnd:
		return object.OverloadAnd, true
	case code.OpLeftShift:
		return object.OverloadLshift, true
	case code.OpRightShift:
		return object.OverloadRshift, true
	}
	return "", false
}

func opcodeName(op code.Opcode) string {
	if def, err := code.Lookup(byte(op)); err == nil {
		return def.Name
	}
	return fmt.Sprintf("opcode(%d)", op)
}

func (vm *VM) tryOverloadBinary(key string, left, right object.Object) (object.Object, bool, error) {
	fn, ok := object.LookupOverload(left, key)
	if !ok {
		return nil, false, nil
	}
	result, err := vm.CallObject(fn, []object.Object{left, right})
	return result, true, err
}

func (vm *VM) tryOverloadUnary(key string, operand object.Object) (object.Object, bool, error) {
	fn, ok := object.LookupOverload(operand, key)
	if !ok {
		return nil, false, nil
	}
	result, err := vm.CallObject(fn, []object.Object{operand})
	return result, true, err
}

// concatString implements ADD's string rule: concatenation if right is
// also a string, else stringification of right.
func (vm *VM) concatString(left *object.String, right object.Object) object.Object {
	if rs, ok := right.(*object.String); ok {
		return vm.heap.AllocString(left.Value + rs.Value)
	}
	return vm.heap.AllocString(left.Value + right.Inspect())
}

func (vm *VM) executeBinaryOp(op code.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	switch {
	case op == code.OpAdd && left.Type() == object.StringObj:
		return vm.push(vm.concatString(left.(*object.String), right))

	case op == code.OpAdd && left.Type() == object.ArrayObj:
		arr := left.(*object.Array)
		arr.Elements = append(arr.Elements, right)
		return vm.push(arr)

	case object.IsNumeric(left) && object.IsNumeric(right):
		result, ok := object.EvalNumericBinary(numericOpFor(op), left, right)
		if !ok {
			return fmt.Errorf("invalid numeric operands for %s", opcodeName(op))
		}
		return vm.push(result)
	}

	if key, ok := overloadKeyFor(op); ok {
		if result, found, err := vm.tryOverloadBinary(key, left, right); found {
			if err != nil {
				return err
			}
			return vm.push(result)
		}
	}
	return fmt.Errorf("invalid operand types for %s, got %s and %s", opcodeName(op), object.TypeName(left), object.TypeName(right))
}

func (vm *VM) executeMinus() error {
	operand := vm.pop()
	switch v := operand.(type) {
	case *object.Integer:
		return vm.push(&object.Integer{Value: -v.Value})
	case *object.Float:
		return vm.push(&object.Float{Value: -v.Value})
	}
	if result, found, err := vm.tryOverloadUnary(object.OverloadMinus, operand); found {
		if err != nil {
			return err
		}
		return vm.push(result)
	}
	return fmt.Errorf("invalid operand type for MINUS, got %s", object.TypeName(operand))
}

func (vm *VM) executeNot() error {
	operand := vm.pop()
	if result, found, err := vm.tryOverloadUnary(object.OverloadBang, operand); found {
		if err != nil {
			return err
		}
		return vm.push(result)
	}
	return vm.push(nativeBoolToBooleanObject(!object.IsTruthy(operand)))
}

func (vm *VM) executeCompare(op code.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	if op == code.OpCompareEqual {
		if object.Equal(left, right) {
			return vm.push(&object.Integer{Value: 0})
		}
		return vm.push(&object.Integer{Value: 1})
	}

	if c, ok := object.Compare(left, right); ok {
		return vm.push(&object.Integer{Value: int64(c)})
	}
	if result, found, err := vm.tryOverloadBinary(object.OverloadCmp, left, right); found {
		if err != nil {
			return err
		}
		return vm.push(result)
	}
	return fmt.Errorf("cannot compare %s and %s", object.TypeName(left), object.TypeName(right))
}

func (vm *VM) executeCompareFollowup(op code.Opcode) error {
	result := vm.pop()
	n, ok := result.(*object.Integer)
	if !ok {
		return fmt.Errorf("comparison follow-up expected a number, got %s", object.TypeName(result))
	}
	switch op {
	case code.OpIsEqual:
		return vm.push(nativeBoolToBooleanObject(n.Value == 0))
	case code.OpNotEqual:
		return vm.push(nativeBoolToBooleanObject(n.Value != 0))
	case code.OpGreaterThan:
		return vm.push(nativeBoolToBooleanObject(n.Value > 0))
	case code.OpGreaterEqual:
		return vm.push(nativeBoolToBooleanObject(n.Value >= 0))
	}
	return fmt.Errorf("unknown comparison follow-up %s", opcodeName(op))
}

func (vm *VM) executeMkArray(n int) error {
	elems := make([]object.Object, n)
	for i := n - 1; i >= 0; i-- {
		elems[i] = vm.pop()
	}
	return vm.push(vm.heap.AllocArray(elems))
}

// executeMkMap pops the pending map MAPSTART pushed onto the this-stack,
// populates it from the top 2*n data-stack cells (value, key, ..., in
// reverse push order), and pushes the finished map.
func (vm *VM) executeMkMap(n int) error {
	pending := vm.popThis()
	m, ok := pending.(*object.Map)
	if !ok {
		return fmt.Errorf("internal error: no pending map for MAPEND")
	}

	type kv struct {
		key   object.Object
		value object.Object
	}
	pairs := make([]kv, n)
	for i := n - 1; i >= 0; i-- {
		value := vm.pop()
		key := vm.pop()
		pairs[i] = kv{key: key, value: value}
	}
	for _, p := range pairs {
		h, ok := p.key.(object.Hashable)
		if !ok {
			return fmt.Errorf("key of type %s is not hashable", object.TypeName(p.key))
		}
		m.Set(h, p.value)
	}
	return vm.push(m)
}

func (vm *VM) executeGetIndex() error {
	index := vm.pop()
	left := vm.pop()

	if name, ok := index.(*object.String); ok {
		if m, found := object.LookupMethod(left.Type(), name.Value); found {
			if m.IsFunction {
				return vm.push(&object.NativeFunction{Name: m.Name, Fn: m.Fn, Data: left})
			}
			result := m.Fn(vm, left, nil)
			if errObj, ok := result.(*object.Error); ok {
				return fmt.Errorf("%s", errObj.Message)
			}
			return vm.push(result)
		}
	}

	switch l := left.(type) {
	case *object.Array:
		idx, ok := index.(*object.Integer)
		if !ok {
			break
		}
		i := arrayIndex(int(idx.Value), len(l.Elements))
		if i < 0 {
			return vm.push(Null)
		}
		return vm.push(l.Elements[i])

	case *object.Map:
		h, ok := index.(object.Hashable)
		if !ok {
			return fmt.Errorf("key of type %s is not hashable", object.TypeName(index))
		}
		v, ok := l.Get(h)
		if !ok {
			return vm.push(Null)
		}
		return vm.push(v)

	case *object.String:
		idx, ok := index.(*object.Integer)
		if !ok {
			break
		}
		runes := []rune(l.Value)
		i := arrayIndex(int(idx.Value), len(runes))
		if i < 0 {
			return vm.push(Null)
		}
		return vm.push(vm.heap.AllocString(string(runes[i])))
	}

	if result, found, err := vm.tryOverloadBinary(object.OverloadGetIdx, left, index); found {
		if err != nil {
			return err
		}
		return vm.push(result)
	}
	return fmt.Errorf("cannot index type %s with %s", object.TypeName(left), object.TypeName(index))
}

// arrayIndex resolves i against length, counting negative indices from the
// end; it returns -1 if the resolved index is still out of bounds.
func arrayIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return -1
	}
	return i
}

func (vm *VM) executeSetIndex() error {
	index := vm.pop()
	container := vm.pop()
	value := vm.pop()

	switch c := container.(type) {
	case *object.Array:
		idx, ok := index.(*object.Integer)
		if !ok {
			return fmt.Errorf("cannot index %s with %s", object.TypeName(container), object.TypeName(index))
		}
		i := arrayIndex(int(idx.Value), len(c.Elements))
		if i < 0 {
			return fmt.Errorf("setting array item failed (index %d out of bounds of %d)", idx.Value, len(c.Elements))
		}
		c.Elements[i] = value
		return nil

	case *object.Map:
		h, ok := index.(object.Hashable)
		if !ok {
			return fmt.Errorf("key of type %s is not hashable", object.TypeName(index))
		}
		c.Set(h, value)
		return nil
	}

	if fn, ok := object.LookupOverload(container, object.OverloadSetIdx); ok {
		_, err := vm.CallObject(fn, []object.Object{index, value})
		return err
	}
	return fmt.Errorf("type %s is not indexable", object.TypeName(container))
}

// executeGetValueAt implements GETVALUEAT for foreach: arrays and strings
// yield the element at idx; maps yield a 2-element {key, value} array.
func (vm *VM) executeGetValueAt() error {
	index := vm.pop()
	container := vm.pop()

	idx, ok := index.(*object.Integer)
	if !ok {
		return fmt.Errorf("cannot index %s with %s", object.TypeName(container), object.TypeName(index))
	}
	i := int(idx.Value)

	switch c := container.(type) {
	case *object.Array:
		if i < 0 || i >= len(c.Elements) {
			return vm.push(Null)
		}
		return vm.push(c.Elements[i])

	case *object.Map:
		if i < 0 || i >= len(c.Keys) {
			return vm.push(Null)
		}
		p := c.Pairs[c.Keys[i]]
		return vm.push(vm.heap.AllocArray([]object.Object{p.Key, p.Value}))

	case *object.String:
		runes := []rune(c.Value)
		if i < 0 || i >= len(runes) {
			return vm.push(Null)
		}
		return vm.push(vm.heap.AllocString(string(runes[i])))
	}
	return fmt.Errorf("type %s is not indexable", object.TypeName(container))
}

func (vm *VM) executeLen() error {
	container := vm.pop()
	switch c := container.(type) {
	case *object.Array:
		return vm.push(&object.Integer{Value: int64(len(c.Elements))})
	case *object.Map:
		return vm.push(&object.Integer{Value: int64(len(c.Keys))})
	case *object.String:
		return vm.push(&object.Integer{Value: int64(len([]rune(c.Value)))})
	}
	return fmt.Errorf("cannot get length of %s", object.TypeName(container))
}

func (vm *VM) executeMkFunction(constIx, numFree int) error {
	constant := vm.constants[constIx]
	compiledFn, ok := constant.(*object.CompiledFunction)
	if !ok {
		return fmt.Errorf("constant %d is not a compiled function", constIx)
	}

	free := make([]object.Object, numFree)
	copy(free, vm.stack[vm.sp-numFree:vm.sp])
	vm.sp -= numFree

	return vm.push(&object.ScriptFunction{Fn: compiledFn, Free: free})
}

// executeCall dispatches a CALL instruction: a script-function callee
// pushes a new frame and resumes the dispatch loop there; a native-function
// callee runs to completion immediately; anything else falls back to the
// `__call__` operator overload before erroring.
func (vm *VM) executeCall(argc int) error {
	callee := vm.stack[vm.sp-1-argc]
	args := make([]object.Object, argc)
	copy(args, vm.stack[vm.sp-argc:vm.sp])

	switch fn := callee.(type) {
	case *object.ScriptFunction:
		if fn.Fn.NumParameters != argc {
			return fmt.Errorf("function '%s' expects %d arguments, but got %d", fn.Name, fn.Fn.NumParameters, argc)
		}
		if vm.frames.depth() >= MaxFrameDepth {
			return fmt.Errorf("stack overflow: max call depth %d exceeded", MaxFrameDepth)
		}
		bp := vm.sp - argc
		vm.frames.push(fn, bp)
		vm.sp = bp + fn.Fn.NumLocals
		return nil

	case *object.NativeFunction:
		var this object.Object
		if o, ok := fn.Data.(object.Object); ok {
			this = o
		}
		result := fn.Fn(vm, this, args)
		vm.sp = vm.sp - argc - 1
		if errObj, ok := result.(*object.Error); ok {
			return fmt.Errorf("%s", errObj.Message)
		}
		return vm.push(result)
	}

	overloadFn, ok := object.LookupOverload(callee, object.OverloadCall)
	if !ok {
		return fmt.Errorf("%s object is not callable", object.TypeName(callee))
	}
	vm.sp = vm.sp - argc - 1
	result, err := vm.CallObject(overloadFn, args)
	if err != nil {
		return err
	}
	return vm.push(result)
}
