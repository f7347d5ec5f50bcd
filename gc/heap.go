// Package gc implements the mark-sweep heap that owns every array, map,
// string, closure, and error value the VM allocates.
//
// It is a tri-buffered collector: every allocation is recorded on a front
// and a back list; sweep walks the front list once, keeps reachable
// records on the (cleared) back list, and recycles the rest into one of
// several fixed-capacity per-type pools before swapping the lists. A
// failed pool allocation simply falls through to a plain Go allocation;
// Go's own runtime collector reclaims it from there.
package gc

import "github.com/embedscript/kong/object"

// PoolSize is the default per-type pool capacity.
const PoolSize = 2048

// SweepInterval is the allocation count since the last sweep that
// ShouldSweep must exceed before it reports true.
const SweepInterval = 2

// poolableArrayLen and poolableMapLen bound how large an array/map may be
// and still be recycled rather than dropped.
const poolableArrayLen = 1024
const poolableMapLen = 1024

// poolableStringCap bounds how long a string's value may be and still be
// recycled.
const poolableStringCap = 4096

// Heap is the garbage-collected object space.
type Heap struct {
	allocationsSinceSweep int

	front []object.Heap
	back  []object.Heap

	arrays  *pool[*object.Array]
	maps    *pool[*object.Map]
	strings *pool[*object.String]
}

// New constructs an empty Heap with the default pool capacity.
func New() *Heap {
	return NewWithPoolSize(PoolSize)
}

// NewWithPoolSize is like New but overrides the per-type pool capacity,
// e.g. so a host embedding kong can trade memory for fewer Go-GC-visible
// allocations on workloads with unusually large or numerous arrays/maps/
// strings (see engine.Option WithGCPoolSize).
func NewWithPoolSize(poolSize int) *Heap {
	return &Heap{
		arrays:  newPool[*object.Array](poolSize),
		maps:    newPool[*object.Map](poolSize),
		strings: newPool[*object.String](poolSize),
	}
}

// track records h as newly allocated on both the front and back lists, so
// that appending to the back list during sweep can never fail to have
// reserved the space (mirrors memgc.c's alloc-time da_push on both lists).
func (h *Heap) track(o object.Heap) {
	h.allocationsSinceSweep++
	h.front = append(h.front, o)
	h.back = append(h.back, o)
}

// AllocArray returns a fresh or recycled *object.Array with elems.
func (h *Heap) AllocArray(elems []object.Object) *object.Array {
	if a, ok := h.arrays.get(); ok {
		a.Elements = elems
		a.SetMarked(false)
		h.track(a)
		return a
	}
	a := &object.Array{Elements: elems}
	h.track(a)
	return a
}

// AllocMap returns a fresh or recycled *object.Map.
func (h *Heap) AllocMap() *object.Map {
	if m, ok := h.maps.get(); ok {
		h.track(m)
		return m
	}
	m := object.NewMap()
	h.track(m)
	return m
}

// AllocString returns a fresh or recycled *object.String holding value.
func (h *Heap) AllocString(value string) *object.String {
	if s, ok := h.strings.get(); ok {
		*s = object.String{Value: value}
		h.track(s)
		return s
	}
	s := &object.String{Value: value}
	h.track(s)
	return s
}

// GetFromPool returns a pooled record of the given kind without tracking
// it as a new allocation, matching the GC contract's get-from-pool(type).
// It reports ok=false if the pool for that kind is empty.
func (h *Heap) GetFromPool(kind object.Type) (object.Heap, bool) {
	switch kind {
	case object.ArrayObj:
		if a, ok := h.arrays.get(); ok {
			return a, true
		}
	case object.MapObj:
		if m, ok := h.maps.get(); ok {
			return m, true
		}
	case object.StringObj:
		if s, ok := h.strings.get(); ok {
			return s, true
		}
	}
	return nil, false
}

// UnmarkAll clears the mark bit on every record tracked on the front list.
func (h *Heap) UnmarkAll() {
	for _, o := range h.front {
		o.SetMarked(false)
	}
}

// MarkList marks every heap-backed value among roots, matching
// mark-list(values, n).
func (h *Heap) MarkList(roots []object.Object) {
	for _, r := range roots {
		h.MarkObject(r)
	}
}

// MarkObject marks o, recursing through arrays' elements, maps' keys and
// values, and script-functions' free variables.
func (h *Heap) MarkObject(o object.Object) {
	heapObj, ok := o.(object.Heap)
	if !ok || heapObj == nil {
		return
	}
	if heapObj.Marked() {
		return
	}
	heapObj.SetMarked(true)

	switch v := o.(type) {
	case *object.Map:
		for _, k := range v.Keys {
			p := v.Pairs[k]
			h.MarkObject(p.Key)
			h.MarkObject(p.Value)
		}
	case *object.Array:
		for _, e := range v.Elements {
			h.MarkObject(e)
		}
	case *object.ScriptFunction:
		for _, f := range v.Free {
			h.MarkObject(f)
		}
	}
}

// ShouldSweep reports whether enough allocations have happened since the
// last sweep to warrant another one.
func (h *Heap) ShouldSweep() bool {
	return h.allocationsSinceSweep > SweepInterval
}

// Sweep scans the front list once: marked records survive onto the
// (cleared) back list, unmarked records are recycled into their per-type
// pool when small enough and the pool has room, or simply dropped (Go's
// own collector reclaims them). The lists are then swapped.
func (h *Heap) Sweep() {
	h.back = h.back[:0]

	for _, o := range h.front {
		if o.Marked() {
			h.back = append(h.back, o)
			continue
		}
		h.recycle(o)
	}

	h.front, h.back = h.back, h.front
	h.allocationsSinceSweep = 0
}

func (h *Heap) recycle(o object.Heap) {
	switch v := o.(type) {
	case *object.Array:
		if len(v.Elements) <= poolableArrayLen {
			v.Elements = nil
			h.arrays.put(v)
			return
		}
	case *object.Map:
		if len(v.Keys) <= poolableMapLen {
			v.Pairs = make(map[object.HashKey]object.MapPair)
			v.Keys = nil
			h.maps.put(v)
			return
		}
	case *object.String:
		if len(v.Value) <= poolableStringCap {
			h.strings.put(v)
			return
		}
	}
	// Not poolable (or no room): let Go's runtime collector reclaim it.
}

// Live returns the number of records currently tracked as reachable (valid
// right after a Sweep, or as an allocation count beforehand).
func (h *Heap) Live() int {
	return len(h.front)
}
