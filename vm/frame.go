// Package vm implements the stack-based bytecode interpreter: the frame
// stack, the data/this stacks, and the dispatch loop that drives a
// [*object.CompiledFunction] to completion.
package vm

import (
	"github.com/embedscript/kong/code"
	"github.com/embedscript/kong/object"
)

// Frame tracks one call's execution state: the function being run, its
// instruction pointer, its base pointer into the VM's data stack, and the
// recover-block bookkeeping a `recover(err){...}` inside this call installs.
type Frame struct {
	fn          *object.ScriptFunction
	ip          int
	basePointer int

	recoverIP    int
	isRecovering bool
}

// NewFrame constructs a Frame for fn, about to execute from instruction 0,
// with its locals based at basePointer and no recover block installed.
func NewFrame(fn *object.ScriptFunction, basePointer int) *Frame {
	return &Frame{fn: fn, ip: -1, basePointer: basePointer, recoverIP: -1}
}

// reset reinitializes an existing Frame in place for reuse, avoiding an
// allocation on every call into the same function.
func (f *Frame) reset(fn *object.ScriptFunction, basePointer int) {
	f.fn = fn
	f.ip = -1
	f.basePointer = basePointer
	f.recoverIP = -1
	f.isRecovering = false
}

// Instructions returns the bytecode this frame is executing.
func (f *Frame) Instructions() code.Instructions {
	return f.fn.Fn.Instructions
}

// FrameStack is the VM's call stack: a deque of reusable [Frame] slots.
// Pushing past the deque's current length grows it by one slot; pushing
// within it overwrites the existing slot in place, so a VM that calls
// functions in a loop does not allocate a new Frame per call once the
// deque has grown to its working depth.
type FrameStack struct {
	frames []*Frame
	count  int
}

// NewFrameStack constructs an empty FrameStack with capacity for depth
// frames before the underlying slice must grow.
func NewFrameStack(depth int) *FrameStack {
	return &FrameStack{frames: make([]*Frame, 0, depth)}
}

// push installs fn as a new top frame with locals based at basePointer,
// reusing a deque slot if one is available at this depth.
func (fs *FrameStack) push(fn *object.ScriptFunction, basePointer int) *Frame {
	if fs.count == len(fs.frames) {
		fs.frames = append(fs.frames, NewFrame(fn, basePointer))
	} else {
		fs.frames[fs.count].reset(fn, basePointer)
	}
	fs.count++
	return fs.frames[fs.count-1]
}

// pop discards the top frame, leaving its slot in the deque for reuse.
func (fs *FrameStack) pop() *Frame {
	fs.count--
	return fs.frames[fs.count]
}

// current returns the top frame, or nil if the stack is empty.
func (fs *FrameStack) current() *Frame {
	if fs.count == 0 {
		return nil
	}
	return fs.frames[fs.count-1]
}

// at returns the frame at depth i (0 is the bottom-most, oldest call).
func (fs *FrameStack) at(i int) *Frame {
	return fs.frames[i]
}

// depth reports how many frames are currently live.
func (fs *FrameStack) depth() int {
	return fs.count
}
