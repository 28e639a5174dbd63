package ghostalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 0, alignUp(0, 16))
	assert.Equal(t, 16, alignUp(1, 16))
	assert.Equal(t, 16, alignUp(16, 16))
	assert.Equal(t, 4096, alignUp(4095, 4096))
}

func TestNextPow2(t *testing.T) {
	assert.Equal(t, 1, nextPow2(1))
	assert.Equal(t, 2, nextPow2(2))
	assert.Equal(t, 4, nextPow2(3))
	assert.Equal(t, 4096, nextPow2(2049))
	assert.Equal(t, 4096, nextPow2(4096))
}

func TestLayoutEffective(t *testing.T) {
	assert.Equal(t, 24, Layout{Size: 24, Align: 8}.effective())
	assert.Equal(t, 64, Layout{Size: 24, Align: 64}.effective())
	assert.False(t, Layout{Size: 0, Align: 8}.valid())
	assert.False(t, Layout{Size: 8, Align: 3}.valid())
	assert.True(t, Layout{Size: 8, Align: 8}.valid())
}

func TestSizeClassIndex(t *testing.T) {
	cases := []struct {
		size  int
		class int
		ok    bool
	}{
		{1, 0, true},
		{16, 0, true},
		{17, 1, true}, // 17 bytes rounds into the 32-byte class
		{32, 1, true},
		{33, 2, true},
		{2048, 7, true},
		{2049, 0, false}, // beyond the largest class: large-region path
		{0, 0, false},
	}
	for _, c := range cases {
		class, ok := sizeClassIndex(c.size)
		require.Equal(t, c.ok, ok, "size %d", c.size)
		if ok {
			require.Equal(t, c.class, class, "size %d", c.size)
		}
	}
	for i := 0; i < numClasses; i++ {
		class, ok := sizeClassIndex(classBlockSize(i))
		require.True(t, ok)
		require.Equal(t, i, class)
	}
}
