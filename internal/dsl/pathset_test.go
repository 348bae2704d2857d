package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathSet_NeedsAndTouches(t *testing.T) {
	s := NewPathSet("id", "address.city")

	assert.True(t, s.Needs("id"))
	assert.False(t, s.Needs("address"))
	assert.True(t, s.Touches("address"))
	assert.False(t, s.Touches("name"))
	assert.False(t, s.Whole())
}

func TestPathSet_EmptyPathIsWholeItem(t *testing.T) {
	s := NewPathSet("")
	assert.True(t, s.Whole())
	assert.True(t, s.Needs("anything"))
	assert.Equal(t, []string{"*"}, s.Sorted())
}

func TestPathSet_Rebase(t *testing.T) {
	s := NewPathSet("address.city", "address.geo.lat", "id")

	assert.Equal(t, []string{"city", "geo.lat"}, s.Rebase("address").Sorted())
	assert.Equal(t, []string{"*"}, s.Rebase("id").Sorted())
	assert.Empty(t, s.Rebase("name"))
}

func TestPathSet_UnionAndHeads(t *testing.T) {
	s := NewPathSet("b.x")
	s.Union(NewPathSet("a", "b.y"))

	assert.Equal(t, []string{"a", "b.x", "b.y"}, s.Sorted())
	assert.Equal(t, []string{"a", "b"}, s.Heads())
}
