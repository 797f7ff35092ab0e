// Package gc implements a tracing mark-and-sweep collector: every heap
// object (package object) is allocated through a
// Collector, which keeps an intrusive allocation-order list of all of
// them, triggers a cycle when allocated bytes cross a growing threshold,
// and lets an embedding application mark its own external roots.
package gc

import (
	"github.com/dolthub/swiss"
	"github.com/mna/corelang/lang/object"
)

// RootMarker is implemented by whoever owns live references into the heap
// that the collector cannot otherwise discover -- the machine's VM for its
// operand stack/frames/globals, and the compiler for in-progress function
// constants while a Collector is shared between compile and run.
type RootMarker interface {
	MarkRoots(c *Collector)
}

// Collector owns every heap object, the string intern table, and the
// mark/sweep state machine. There is deliberately no package-level
// singleton: callers construct one Collector
// per independent VM/compile unit.
type Collector struct {
	objects object.Obj // head of the intrusive allocation list

	strings *swiss.Map[string, *object.String]

	gray []object.Obj

	bytesAllocated int64
	nextGC         int64

	stressGC   bool
	canCollect bool

	rootStack []RootMarker

	// external is an additional, embedder-installed marking hook invoked on
	// every cycle after rootStack.
	external func(c *Collector)

	// Stats from the most recently completed cycle, exposed for tests and
	// diagnostics.
	LastFreed int
}

const initialNextGC = 256

// New creates an empty Collector ready to allocate objects.
func New() *Collector {
	return &Collector{
		strings:    swiss.NewMap[string, *object.String](64),
		nextGC:     initialNextGC,
		canCollect: true,
	}
}

// SetStressGC forces a collection cycle on every allocation, for testing
// GC correctness under maximal pressure.
func (c *Collector) SetStressGC(v bool) { c.stressGC = v }

// SetCanCollect gates whether allocations may trigger a cycle at all; an
// embedder assembling a multi-object structure piecemeal can temporarily
// disable collection so a half-built object graph is never swept.
func (c *Collector) SetCanCollect(v bool) { c.canCollect = v }

// CanCollect reports the current state of the collection gate, so nested
// critical sections can save and restore it.
func (c *Collector) CanCollect() bool { return c.canCollect }

// SetExternalMarking installs the embedder's GC root-marking hook.
func (c *Collector) SetExternalMarking(fn func(c *Collector)) { c.external = fn }

// RekeyString re-indexes s after its bytes were mutated in place (string
// element assignment): the stale entry under old is dropped, and s
// becomes the canonical String for its new content unless one already
// exists -- in that case the two coexist and identity-equality between
// them is deliberately lost, the price of in-place mutation.
func (c *Collector) RekeyString(old string, s *object.String) {
	c.strings.Delete(old)
	if _, ok := c.strings.Get(s.Chars); !ok {
		c.strings.Put(s.Chars, s)
	}
}

// PushRootMarker registers an additional source of roots, active until the
// matching PopRootMarker. The machine pushes itself for the VM's lifetime;
// the compiler pushes itself only while compiling, so that constants being
// built (functions, interned strings) are not swept mid-compile.
func (c *Collector) PushRootMarker(r RootMarker) { c.rootStack = append(c.rootStack, r) }

// PopRootMarker removes the most recently pushed RootMarker.
func (c *Collector) PopRootMarker() {
	if len(c.rootStack) > 0 {
		c.rootStack = c.rootStack[:len(c.rootStack)-1]
	}
}

// BytesAllocated reports the collector's running allocation estimate.
func (c *Collector) BytesAllocated() int64 { return c.bytesAllocated }

// register accounts for a freshly allocated object's size, runs a cycle if
// the threshold was crossed (or stress mode is on), and only then links the
// object into the heap list: the collection an allocation triggers can
// never sweep the object being allocated, so callers only need o rooted
// before the next allocation.
func (c *Collector) register(o object.Obj, size int64) {
	c.bytesAllocated += size
	if c.canCollect && (c.stressGC || c.bytesAllocated > c.nextGC) {
		c.Collect()
	}
	o.SetNext(c.objects)
	c.objects = o
}

// MarkValue marks the Value's object, if it has one, pushing it onto the
// gray work list if this is the first time it's seen this cycle.
func (c *Collector) MarkValue(v object.Value) {
	if v.IsObj() && v.AsObj() != nil {
		c.MarkObject(v.AsObj())
	}
}

// MarkObject marks a single object gray.
func (c *Collector) MarkObject(o object.Obj) {
	if o == nil || o.Marked() {
		return
	}
	o.SetMarked(true)
	c.gray = append(c.gray, o)
}

// Collect runs one full mark/trace/sweep cycle.
func (c *Collector) Collect() {
	c.markRoots()
	c.trace()
	c.sweepStrings()
	freed := c.sweep()
	c.LastFreed = freed
	c.nextGC = c.bytesAllocated * 2
	if c.nextGC < initialNextGC {
		c.nextGC = initialNextGC
	}
}

func (c *Collector) markRoots() {
	for _, r := range c.rootStack {
		r.MarkRoots(c)
	}
	if c.external != nil {
		c.external(c)
	}
}

func (c *Collector) trace() {
	for len(c.gray) > 0 {
		o := c.gray[len(c.gray)-1]
		c.gray = c.gray[:len(c.gray)-1]
		o.Blacken(c.MarkValue)
	}
}

// sweepStrings removes intern-table entries whose String was not marked,
// before the general sweep frees the underlying object: otherwise
// the table would be left holding a dangling entry.
func (c *Collector) sweepStrings() {
	var dead []string
	c.strings.Iter(func(k string, s *object.String) bool {
		if !s.Marked() {
			dead = append(dead, k)
		}
		return false
	})
	for _, k := range dead {
		c.strings.Delete(k)
	}
}

func (c *Collector) sweep() int {
	var prev object.Obj
	cur := c.objects
	freed := 0
	for cur != nil {
		if cur.Marked() {
			cur.SetMarked(false)
			prev = cur
			cur = cur.Next()
			continue
		}
		unreached := cur
		cur = cur.Next()
		if prev == nil {
			c.objects = cur
		} else {
			prev.SetNext(cur)
		}
		freed++
		_ = unreached // left for GC; no explicit free() in Go, the allocator reclaims it
	}
	return freed
}
