package editor

import (
	"terrastudio/territory"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildOverlayGroupsGADM(t *testing.T) {
	expr := []territory.Part{
		territory.GADM("IND", "PAK"),
		territory.Group(
			territory.GADM("NPL").WithOp(territory.OpDifference),
			territory.Predefined("kuru"),
		).WithOp(territory.OpIntersection),
		territory.GADM().WithOp(territory.OpDifference),
	}

	groups := BuildOverlayGroups(expr, []int{1, 0}, territory.TypeGADM)

	want := []OverlayGroup{
		{Op: "union", IDs: []string{"IND", "PAK"}},
		{Op: "pending", IDs: []string{"NPL"}},
	}
	assert.Equal(t, want, groups,
		"predefined leaves and empty inactive leaves contribute nothing")
}

func TestBuildOverlayGroupsFirstPartReportsUnion(t *testing.T) {
	expr := []territory.Part{
		territory.GADM("IND").WithOp(territory.OpDifference),
		territory.GADM("PAK").WithOp(territory.OpDifference),
	}

	groups := BuildOverlayGroups(expr, nil, territory.TypeGADM)

	want := []OverlayGroup{
		{Op: "union", IDs: []string{"IND"}},
		{Op: "difference", IDs: []string{"PAK"}},
	}
	assert.Equal(t, want, groups, "the first part's stored op carries no meaning")
}

func TestBuildOverlayGroupsActiveEmptyLeafIncluded(t *testing.T) {
	expr := []territory.Part{territory.GADM()}

	groups := BuildOverlayGroups(expr, []int{0}, territory.TypeGADM)

	assert.Equal(t, []OverlayGroup{{Op: "pending"}}, groups,
		"an empty pending group is the full-state way to say nothing is selected")
}

func TestBuildOverlayGroupsStripsAliases(t *testing.T) {
	expr := []territory.Part{
		territory.Predefined("mauryan.Kuru", "Panchala"),
	}

	groups := BuildOverlayGroups(expr, nil, territory.TypePredefined)

	want := []OverlayGroup{
		{Op: "union", Names: []string{"Kuru", "Panchala"}},
	}
	assert.Equal(t, want, groups)
}

func TestBuildOverlayGroupsDoesNotMutateTree(t *testing.T) {
	expr := []territory.Part{
		territory.Predefined("mauryan.Kuru"),
	}

	BuildOverlayGroups(expr, nil, territory.TypePredefined)

	assert.Equal(t, []string{"mauryan.Kuru"}, expr[0].Values,
		"alias stripping happens on a copy of the leaf values")
}
