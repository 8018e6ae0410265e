package territory

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() []Part {
	return []Part{
		GADM("IND", "PAK"),
		Group(
			Predefined("kuru"),
			Group(Polygon(LatLng{10, 20}, LatLng{11, 21})).WithOp(OpDifference),
		).WithOp(OpDifference),
		Predefined("TARIM").WithOp(OpIntersection),
	}
}

func TestReadResolvesNestedParts(t *testing.T) {
	tree := sampleTree()

	got, ok := Read(tree, []int{0})
	require.True(t, ok)
	assert.Equal(t, TypeGADM, got.Type)
	assert.Equal(t, []string{"IND", "PAK"}, got.Values)

	got, ok = Read(tree, []int{1, 0})
	require.True(t, ok)
	assert.Equal(t, Predefined("kuru"), got)

	got, ok = Read(tree, []int{1, 1, 0})
	require.True(t, ok)
	assert.Equal(t, TypePolygon, got.Type)
	assert.Len(t, got.Points, 2)
}

func TestReadFailsClosed(t *testing.T) {
	tree := sampleTree()

	cases := map[string][]int{
		"empty path":              {},
		"negative index":          {-1},
		"index past end":          {3},
		"descend into leaf":       {0, 0},
		"nested out of range":     {1, 5},
		"deep descend into leaf":  {1, 0, 0},
		"past end inside a group": {1, 1, 2},
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := Read(tree, path)
			assert.False(t, ok)
		})
	}
}

func TestWriteCopiesOnlyTheSpine(t *testing.T) {
	tree := sampleTree()
	out, ok := Write(tree, []int{1, 0}, func(p Part) (Part, bool) {
		p.Values = []string{"panchala"}
		return p, true
	})
	require.True(t, ok)

	// The target changed in the copy, not in the input.
	got, ok := Read(out, []int{1, 0})
	require.True(t, ok)
	assert.Equal(t, []string{"panchala"}, got.Values)
	orig, ok := Read(tree, []int{1, 0})
	require.True(t, ok)
	assert.Equal(t, []string{"kuru"}, orig.Values)

	// Siblings off the written path share their backing storage.
	assert.Same(t, &tree[0].Values[0], &out[0].Values[0])
	assert.Same(t, &tree[2].Values[0], &out[2].Values[0])
	assert.Same(t, &tree[1].Children[1].Children[0].Points[0][0], &out[1].Children[1].Children[0].Points[0][0])
}

func TestWriteAbortsWhenUpdateRejects(t *testing.T) {
	tree := sampleTree()
	before := sampleTree()

	out, ok := Write(tree, []int{1, 0}, func(Part) (Part, bool) {
		return Part{}, false
	})
	assert.False(t, ok)
	assert.Nil(t, out)
	if diff := cmp.Diff(before, tree); diff != "" {
		t.Fatalf("input mutated by a rejected write (-want +got):\n%s", diff)
	}
}

func TestWriteFailsClosedOnBadPaths(t *testing.T) {
	tree := sampleTree()
	before := sampleTree()

	identity := func(p Part) (Part, bool) { return p, true }
	for name, path := range map[string][]int{
		"empty path":        {},
		"out of range":      {9},
		"through a leaf":    {0, 0},
		"nested bad index":  {1, 7},
		"negative interior": {1, -1, 0},
	} {
		t.Run(name, func(t *testing.T) {
			out, ok := Write(tree, path, identity)
			assert.False(t, ok)
			assert.Nil(t, out)
		})
	}
	if diff := cmp.Diff(before, tree); diff != "" {
		t.Fatalf("input mutated by failed writes (-want +got):\n%s", diff)
	}
}

func TestUpdateLeafGuardsType(t *testing.T) {
	tree := sampleTree()

	out, ok := UpdateLeaf(tree, []int{2}, TypeGADM, func(p Part) Part { return p })
	assert.False(t, ok)
	assert.Nil(t, out)

	out, ok = UpdateLeaf(tree, []int{2}, TypePredefined, func(p Part) Part {
		p.Values = append(p.NormalizedValues(), "TIBET")
		return p
	})
	require.True(t, ok)
	got, ok := Read(out, []int{2})
	require.True(t, ok)
	assert.Equal(t, []string{"TARIM", "TIBET"}, got.Values)
}
