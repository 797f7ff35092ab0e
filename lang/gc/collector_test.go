package gc_test

import (
	"testing"

	"github.com/mna/corelang/lang/gc"
	"github.com/mna/corelang/lang/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/maps"
)

// markerFunc adapts a function to gc.RootMarker for tests.
type markerFunc func(*gc.Collector)

func (f markerFunc) MarkRoots(c *gc.Collector) { f(c) }

func TestInternStringIdentity(t *testing.T) {
	c := gc.New()
	s1 := c.InternString("hello")
	s2 := c.InternString("hello")
	s3 := c.InternString("world")

	assert.Same(t, s1, s2, "same bytes must yield the same String")
	assert.NotSame(t, s1, s3)
	assert.Equal(t, object.HashFNV1a("hello"), s1.Hash)
	assert.True(t, object.FromObj(s1).Equal(object.FromObj(s2)))
}

func TestCollectSweepsUnreachable(t *testing.T) {
	c := gc.New()
	s := c.InternString("doomed")
	_ = s

	c.Collect()
	assert.Equal(t, 1, c.LastFreed)

	// the intern-table entry went with it: re-interning builds a new object
	again := c.InternString("doomed")
	assert.NotSame(t, s, again)
}

func TestRootMarkerKeepsAlive(t *testing.T) {
	c := gc.New()
	s := c.InternString("rooted")

	c.PushRootMarker(markerFunc(func(c *gc.Collector) {
		c.MarkObject(s)
	}))
	c.Collect()
	assert.Equal(t, 0, c.LastFreed)
	assert.Same(t, s, c.InternString("rooted"))

	c.PopRootMarker()
	c.Collect()
	assert.Equal(t, 1, c.LastFreed)
}

func TestExternalMarkingHook(t *testing.T) {
	c := gc.New()

	// an embedder-side table of values, invisible to the collector except
	// through the external hook
	sideTable := map[string]object.Value{
		"a": object.FromObj(c.InternString("editor-side-a")),
		"b": object.FromObj(c.InternString("editor-side-b")),
	}

	called := false
	c.SetExternalMarking(func(c *gc.Collector) {
		called = true
		for _, v := range maps.Values(sideTable) {
			c.MarkValue(v)
		}
	})

	c.Collect()
	assert.True(t, called)
	assert.Equal(t, 0, c.LastFreed)
	assert.Same(t, sideTable["a"].AsObj(), c.InternString("editor-side-a"))
	assert.Same(t, sideTable["b"].AsObj(), c.InternString("editor-side-b"))
}

func TestBlackenTracesReferences(t *testing.T) {
	c := gc.New()
	c.SetCanCollect(false)

	name := c.InternString("Thing")
	cls := c.NewClass(name)
	inst := c.NewInstance(cls)
	elem := c.InternString("element")
	list := c.NewList([]object.Value{object.FromObj(elem)})
	inst.Fields["items"] = object.FromObj(list)
	c.SetCanCollect(true)

	// rooting only the instance must keep the class, its name, the list and
	// the list's element alive
	c.PushRootMarker(markerFunc(func(c *gc.Collector) {
		c.MarkObject(inst)
	}))
	defer c.PopRootMarker()

	c.Collect()
	assert.Equal(t, 0, c.LastFreed)
	assert.Same(t, name, c.InternString("Thing"))
	assert.Same(t, elem, c.InternString("element"))
}

func TestClosureAndUpvalueTracing(t *testing.T) {
	c := gc.New()
	c.SetCanCollect(false)

	fn := c.NewFunction(c.InternString("f"))
	fn.UpvalueCount = 1
	captured := c.InternString("captured")
	fn.Chunk.AddConstant(object.FromObj(c.InternString("constant")))

	slot := object.FromObj(captured)
	uv := c.NewOpenUpvalue(&slot, 0)
	uv.Close()

	cl := c.NewClosure(fn)
	cl.Upvalues[0] = uv
	c.SetCanCollect(true)

	c.PushRootMarker(markerFunc(func(c *gc.Collector) {
		c.MarkObject(cl)
	}))
	defer c.PopRootMarker()

	c.Collect()
	assert.Equal(t, 0, c.LastFreed)
	assert.Same(t, captured, c.InternString("captured"))
	assert.Same(t, fn.Name, c.InternString("f"))
	assert.Same(t, fn.Chunk.Constants[0].AsObj(), c.InternString("constant"))
}

func TestCanCollectGate(t *testing.T) {
	c := gc.New()
	c.SetStressGC(true)
	c.SetCanCollect(false)

	// with collection gated off, a half-built structure survives any number
	// of allocations
	cls := c.NewClass(c.InternString("Gated"))
	inst := c.NewInstance(cls)
	inst.Fields["x"] = object.FromObj(c.InternString("x-value"))
	c.SetCanCollect(true)

	c.PushRootMarker(markerFunc(func(col *gc.Collector) {
		col.MarkObject(inst)
	}))
	defer c.PopRootMarker()

	c.Collect()
	assert.Equal(t, 0, c.LastFreed)
	// the class name was never swept out of the intern table meanwhile
	assert.Same(t, cls.Name, c.InternString("Gated"))
}

func TestRekeyString(t *testing.T) {
	c := gc.New()
	s := c.InternString("abc")

	old := s.Chars
	s.Chars = "aZc"
	s.Hash = object.HashFNV1a(s.Chars)
	c.RekeyString(old, s)

	assert.Same(t, s, c.InternString("aZc"))
	assert.NotSame(t, s, c.InternString("abc"))
}

func TestBytesAllocatedGrows(t *testing.T) {
	c := gc.New()
	before := c.BytesAllocated()
	c.NewList(make([]object.Value, 16))
	require.Greater(t, c.BytesAllocated(), before)
}
