package typestring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatePrimitives(t *testing.T) {
	for _, s := range []string{"b", "c", "i", "I", "d", "s", "a", "e", "X"} {
		n, err := Validate([]byte(s), false)
		require.Nil(t, err, s)
		require.Equal(t, len(s), n, s)
	}
}

func TestValidateContainers(t *testing.T) {
	cases := []string{"li", "ls", "mis", "oi", "xi", "t2ii", "t3idb", "lt2is"}
	for _, s := range cases {
		err := ValidateFull([]byte(s), false)
		require.Nil(t, err, s)
	}
}

func TestValidateVoid(t *testing.T) {
	n, err := Validate(nil, true)
	require.Nil(t, err)
	require.Equal(t, 0, n)

	_, err = Validate(nil, false)
	require.NotNil(t, err)
}

func TestValidateErrors(t *testing.T) {
	_, err := Validate([]byte("z"), false)
	require.NotNil(t, err)

	_, err = Validate([]byte("l"), false)
	require.NotNil(t, err)

	_, err = Validate([]byte("t1ii"), false)
	require.NotNil(t, err)

	_, err = Validate([]byte("t"), false)
	require.NotNil(t, err)
}

func TestFeedChunked(t *testing.T) {
	p := New(false)
	whole := "t3idb"
	n1, done, err := p.Feed([]byte(whole[:2]))
	require.Nil(t, err)
	require.False(t, done)
	require.Equal(t, 2, n1)

	n2, done, err := p.Feed([]byte(whole[2:]))
	require.Nil(t, err)
	require.True(t, done)
	require.Equal(t, 3, n2)
}

func TestChildren(t *testing.T) {
	children, err := Children([]byte("t3idb"))
	require.Nil(t, err)
	require.Equal(t, [][]byte{[]byte("i"), []byte("d"), []byte("b")}, children)

	children, err = Children([]byte("mis"))
	require.Nil(t, err)
	require.Equal(t, [][]byte{[]byte("i"), []byte("s")}, children)

	children, err = Children([]byte("b"))
	require.Nil(t, err)
	require.Nil(t, children)
}
