package cpp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func hsOf(names ...string) *hideset {
	ret := emptyHS
	for _, n := range names {
		ret = ret.add(n)
	}
	return ret
}

func TestHideset(t *testing.T) {
	a := hsOf("F", "B", "D", "B")
	assert.Equal(t, []string{"B", "D", "F"}, a.names())
	assert.Equal(t, 3, a.len())
	assert.True(t, a.contains("D"))
	assert.False(t, a.contains("C"))
	assert.False(t, a.contains("Z"))
	assert.Same(t, a, a.add("D"))

	b := hsOf("A", "D", "G")
	assert.Equal(t, []string{"A", "B", "D", "F", "G"}, a.union(b).names())
	assert.Equal(t, []string{"D"}, a.intersection(b).names())
	assert.Equal(t, []string{"D"}, b.intersection(a).names())
	assert.Nil(t, a.intersection(hsOf("X")).names())

	assert.Same(t, a, a.union(emptyHS))
	assert.Same(t, b, emptyHS.union(b))
	assert.Equal(t, 0, emptyHS.len())
	assert.False(t, emptyHS.contains("A"))
}

func TestHidesetSharing(t *testing.T) {
	base := hsOf("M", "N")
	x := base.add("A")
	y := base.add("B")
	assert.Equal(t, []string{"A", "M", "N"}, x.names())
	assert.Equal(t, []string{"B", "M", "N"}, y.names())
	assert.Same(t, base, x.r)
	assert.Equal(t, []string{"M", "N"}, base.names())
}
