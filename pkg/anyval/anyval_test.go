package anyval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneIsIndependent(t *testing.T) {
	backing := []byte{1, 2, 3}
	v := View{Type: "s", Value: backing}
	o := v.Clone()
	backing[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, o.Value)
	assert.Equal(t, "s", o.Type)
}

func TestAsViewSharesStorage(t *testing.T) {
	o := Owned{Type: "i", Value: []byte{7, 0, 0, 0}}
	v := o.AsView()
	o.Value[0] = 8
	assert.Equal(t, byte(8), v.Value[0])
}

func TestIsVoid(t *testing.T) {
	assert.True(t, View{}.IsVoid())
	assert.False(t, View{Type: "i", Value: []byte{0, 0, 0, 0}}.IsVoid())
}

func TestEqual(t *testing.T) {
	a := View{Type: "i", Value: []byte{1, 0, 0, 0}}
	b := View{Type: "i", Value: []byte{1, 0, 0, 0}}
	c := View{Type: "I", Value: []byte{1, 0, 0, 0}}
	d := View{Type: "i", Value: []byte{2, 0, 0, 0}}
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(a, d))
}
