package vm

import (
	"testing"

	"github.com/embedscript/kong/code"
	"github.com/embedscript/kong/object"
)

func testFn(numLocals, numParams int) *object.ScriptFunction {
	return &object.ScriptFunction{
		Fn: &object.CompiledFunction{
			Instructions:  code.Instructions{byte(code.OpReturnNothing)},
			NumLocals:     numLocals,
			NumParameters: numParams,
		},
	}
}

func TestFrameInstructions(t *testing.T) {
	fn := testFn(0, 0)
	f := NewFrame(fn, 0)
	if f.ip != -1 {
		t.Errorf("ip = %d, want -1", f.ip)
	}
	if len(f.Instructions()) != 1 {
		t.Errorf("Instructions length = %d, want 1", len(f.Instructions()))
	}
}

func TestFrameStackReusesSlots(t *testing.T) {
	fs := NewFrameStack(2)

	fnA := testFn(1, 0)
	fA := fs.push(fnA, 0)
	fA.ip = 5
	fA.recoverIP = 3
	fA.isRecovering = true

	fnB := testFn(2, 1)
	fs.push(fnB, 1)

	if fs.depth() != 2 {
		t.Fatalf("depth = %d, want 2", fs.depth())
	}

	fs.pop()
	fs.pop()
	fnC := testFn(3, 2)
	fC := fs.push(fnC, 4)

	if fC != fA {
		t.Fatalf("expected FrameStack to reuse the slot vacated by the popped frame")
	}
	if fC.ip != -1 || fC.recoverIP != -1 || fC.isRecovering {
		t.Errorf("reused frame was not reset: ip=%d recoverIP=%d isRecovering=%v", fC.ip, fC.recoverIP, fC.isRecovering)
	}
	if fC.basePointer != 4 {
		t.Errorf("basePointer = %d, want 4", fC.basePointer)
	}
	if fC.fn != fnC {
		t.Errorf("reused frame did not rebind to the new function")
	}
}

func TestFrameStackCurrentAndAt(t *testing.T) {
	fs := NewFrameStack(4)
	if fs.current() != nil {
		t.Fatalf("current() on empty stack should be nil")
	}

	fnA := testFn(0, 0)
	fnB := testFn(0, 0)
	fs.push(fnA, 0)
	fBFrame := fs.push(fnB, 1)

	if fs.current() != fBFrame {
		t.Errorf("current() did not return the most recently pushed frame")
	}
	if fs.at(0).fn != fnA {
		t.Errorf("at(0) did not return the bottom-most frame")
	}
	if fs.at(1).fn != fnB {
		t.Errorf("at(1) did not return the top frame")
	}
}
