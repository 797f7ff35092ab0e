package object_test

import (
	"testing"

	"github.com/mna/corelang/lang/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *object.String {
	return object.NewString(s, object.HashFNV1a(s))
}

func TestValueEqual(t *testing.T) {
	s := str("a")
	l := object.NewList(nil)

	cases := []struct {
		name string
		a, b object.Value
		want bool
	}{
		{"nil nil", object.Nil, object.Nil, true},
		{"bool equal", object.Bool(true), object.Bool(true), true},
		{"bool unequal", object.Bool(true), object.Bool(false), false},
		{"number equal", object.Number(1.5), object.Number(1.5), true},
		{"number unequal", object.Number(1), object.Number(2), false},
		{"kind mismatch", object.Number(0), object.Bool(false), false},
		{"nil vs number", object.Nil, object.Number(0), false},
		{"same object", object.FromObj(s), object.FromObj(s), true},
		{"distinct objects same content", object.FromObj(str("a")), object.FromObj(str("a")), false},
		{"different object types", object.FromObj(s), object.FromObj(l), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.a.Equal(c.b))
		})
	}
}

func TestValueFalseness(t *testing.T) {
	assert.True(t, object.Nil.IsFalsey())
	assert.True(t, object.Bool(false).IsFalsey())
	assert.False(t, object.Bool(true).IsFalsey())
	assert.False(t, object.Number(0).IsFalsey())
	assert.False(t, object.FromObj(str("")).IsFalsey())
}

func TestValueString(t *testing.T) {
	cases := []struct {
		v    object.Value
		want string
	}{
		{object.Nil, "nil"},
		{object.Bool(true), "true"},
		{object.Bool(false), "false"},
		{object.Number(42), "42"},
		{object.Number(-3), "-3"},
		{object.Number(2.5), "2.5"},
		{object.Number(0.125), "0.125"},
		{object.FromObj(str("hi")), "hi"},
		{object.FromObj(object.NewRange(1, 3)), "1..3"},
		{object.FromObj(object.NewList([]object.Value{object.Number(1), object.FromObj(str("x"))})), "[1, x]"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.v.String())
	}
}

func TestValueTypeName(t *testing.T) {
	assert.Equal(t, "nil", object.Nil.TypeName())
	assert.Equal(t, "bool", object.Bool(true).TypeName())
	assert.Equal(t, "number", object.Number(1).TypeName())
	assert.Equal(t, "string", object.FromObj(str("s")).TypeName())
	assert.Equal(t, "list", object.FromObj(object.NewList(nil)).TypeName())
	assert.Equal(t, "range", object.FromObj(object.NewRange(0, 1)).TypeName())
}

func TestRange(t *testing.T) {
	t.Run("ascending", func(t *testing.T) {
		r := object.NewRange(1, 3)
		require.Equal(t, 3, r.Len())
		assert.True(t, r.Ascending())
		assert.Equal(t, 1.0, r.At(0))
		assert.Equal(t, 3.0, r.At(2))
		assert.True(t, r.InBounds(2))
		assert.False(t, r.InBounds(3))
		assert.False(t, r.InBounds(-1))
	})

	t.Run("descending", func(t *testing.T) {
		r := object.NewRange(3, 1)
		require.Equal(t, 3, r.Len())
		assert.False(t, r.Ascending())
		assert.Equal(t, 3.0, r.At(0))
		assert.Equal(t, 1.0, r.At(2))
	})

	t.Run("contains spans both directions", func(t *testing.T) {
		assert.True(t, object.NewRange(1, 5).Contains(3))
		assert.True(t, object.NewRange(5, 1).Contains(3))
		assert.False(t, object.NewRange(1, 5).Contains(6))
		assert.True(t, object.NewRange(1, 5).Contains(1))
		assert.True(t, object.NewRange(1, 5).Contains(5))
	})
}

func TestChunkAddConstantDedups(t *testing.T) {
	var c object.Chunk
	i1 := c.AddConstant(object.Number(2))
	i2 := c.AddConstant(object.Number(3))
	i3 := c.AddConstant(object.Number(2))

	assert.Equal(t, i1, i3)
	assert.NotEqual(t, i1, i2)
	assert.Len(t, c.Constants, 2)

	// interned strings dedup by identity
	s := str("name")
	j1 := c.AddConstant(object.FromObj(s))
	j2 := c.AddConstant(object.FromObj(s))
	assert.Equal(t, j1, j2)
}

func TestChunkWriteTracksLines(t *testing.T) {
	var c object.Chunk
	c.Write(1, 10)
	c.Write(2, 10)
	c.Write(3, 11)
	require.Len(t, c.Code, 3)
	require.Len(t, c.Lines, 3)
	assert.Equal(t, []int{10, 10, 11}, c.Lines)
}

func TestUpvalueClose(t *testing.T) {
	v := object.Number(7)
	uv := object.NewOpenUpvalue(&v, 4)
	require.True(t, uv.IsOpen())
	assert.Equal(t, 4, uv.Slot)

	v = object.Number(9)
	uv.Close()
	assert.False(t, uv.IsOpen())
	assert.Equal(t, 9.0, uv.Location.AsNumber())

	// the original slot is now independent
	v = object.Number(1)
	assert.Equal(t, 9.0, uv.Location.AsNumber())
}

func TestIsCallable(t *testing.T) {
	fn := object.NewFunction(str("f"))
	cl := object.NewClosure(fn)
	cls := object.NewClass(str("C"))

	assert.True(t, object.IsCallable(object.FromObj(cl)))
	assert.True(t, object.IsCallable(object.FromObj(cls)))
	assert.True(t, object.IsCallable(object.FromObj(object.NewNative("n", 0, false, nil))))
	assert.True(t, object.IsCallable(object.FromObj(object.NewBoundMethod(object.Nil, object.FromObj(cl)))))
	assert.False(t, object.IsCallable(object.FromObj(fn)))
	assert.False(t, object.IsCallable(object.Number(1)))
	assert.False(t, object.IsCallable(object.FromObj(str("s"))))

	assert.Equal(t, "f", object.CallableName(object.FromObj(cl)))
	assert.Equal(t, "C", object.CallableName(object.FromObj(cls)))
}
