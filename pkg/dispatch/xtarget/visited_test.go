package xtarget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisited(t *testing.T) {
	t.Run("add dedups", func(t *testing.T) {
		vs := NewVisited()
		v := Visit{Group: "a", Echelon: "e1", Endpoint: "m1"}

		assert.True(t, vs.Add(v))
		assert.False(t, vs.Add(v))
		assert.Equal(t, 1, vs.Len())
		assert.True(t, vs.Has(v))
	})

	t.Run("preserves order", func(t *testing.T) {
		vs := NewVisited()
		vs.Add(Visit{Group: "a", Echelon: "e1", Endpoint: "m1"})
		vs.Add(Visit{Group: "a", Echelon: "e2", Endpoint: "m2"})
		vs.Add(Visit{Group: "b", Echelon: "e1", Endpoint: "m1"})

		list := vs.List()
		assert.Len(t, list, 3)
		assert.Equal(t, "a", list[0].Group)
		assert.Equal(t, "b", list[2].Group)
		assert.Equal(t, "a.e1/m1 -> a.e2/m2 -> b.e1/m1", vs.String())
	})

	t.Run("empty trail", func(t *testing.T) {
		assert.Equal(t, "(none)", NewVisited().String())
	})

	t.Run("echelon exhausted", func(t *testing.T) {
		g := &TaskGroup{Name: "a"}
		e := &Echelon{Name: "e1", Models: []string{"m1", "m2"}}

		vs := NewVisited()
		vs.Add(Visit{Group: "a", Echelon: "e1", Endpoint: "m1"})
		assert.False(t, vs.EchelonExhausted(g, e))

		vs.Add(Visit{Group: "a", Echelon: "e1", Endpoint: "m2"})
		assert.True(t, vs.EchelonExhausted(g, e))
	})
}
