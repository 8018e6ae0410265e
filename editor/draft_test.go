package editor

import (
	"terrastudio/territory"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftFreehandDedup(t *testing.T) {
	ws := NewWorkspace()
	id := ws.AddPath("Trade route", nil)

	var d DraftController
	d.Enter(ws, DraftTarget{ElementID: id}, DraftPath)

	assert.True(t, d.Move(ws, territory.LatLng{10.0000, 20.0000}, true, true))
	assert.False(t, d.Move(ws, territory.LatLng{10.00005, 20.00003}, true, true),
		"sub-epsilon move on both axes must be discarded")
	assert.True(t, d.Move(ws, territory.LatLng{10.01, 20.01}, true, true))

	want := []territory.LatLng{{10.0000, 20.0000}, {10.01, 20.01}}
	assert.Equal(t, want, d.Points())

	el, ok := ws.Find(id)
	require.True(t, ok)
	assert.Equal(t, want, el.Points, "every accepted point writes through")
}

func TestDraftFreehandNeedsModifierAndButton(t *testing.T) {
	ws := NewWorkspace()
	id := ws.AddPath("Trade route", nil)

	var d DraftController
	d.Enter(ws, DraftTarget{ElementID: id}, DraftPath)

	assert.False(t, d.Move(ws, territory.LatLng{1, 1}, false, true))
	assert.False(t, d.Move(ws, territory.LatLng{1, 1}, true, false))
	assert.False(t, d.Move(ws, territory.LatLng{1, 1}, false, false))
	assert.Empty(t, d.Points())
}

func TestDraftClickAccumulatesPath(t *testing.T) {
	ws := NewWorkspace()
	id := ws.AddPath("Trade route", []territory.LatLng{{1, 1}})

	var d DraftController
	d.Enter(ws, DraftTarget{ElementID: id}, DraftPath)
	assert.Equal(t, []territory.LatLng{{1, 1}}, d.Points(), "enter seeds from the stored value")

	require.True(t, d.Click(ws, territory.LatLng{2, 2}))
	require.True(t, d.Click(ws, territory.LatLng{2, 2}), "discrete clicks have no distance guard")

	el, ok := ws.Find(id)
	require.True(t, ok)
	assert.Equal(t, []territory.LatLng{{1, 1}, {2, 2}, {2, 2}}, el.Points)
}

func TestDraftPointTargetStoresLastPointOnly(t *testing.T) {
	ws := NewWorkspace()
	id := ws.AddPoint("Capital", territory.LatLng{1, 1})

	var d DraftController
	d.Enter(ws, DraftTarget{ElementID: id}, DraftPoint)

	require.True(t, d.Click(ws, territory.LatLng{2, 2}))
	require.True(t, d.Click(ws, territory.LatLng{3, 3}))

	el, ok := ws.Find(id)
	require.True(t, ok)
	assert.Equal(t, []territory.LatLng{{3, 3}}, el.Points)
	assert.Len(t, d.Points(), 3, "the draft itself keeps the full history for undo")

	require.True(t, d.Undo(ws))
	el, _ = ws.Find(id)
	assert.Equal(t, []territory.LatLng{{2, 2}}, el.Points)
}

func TestDraftPolygonLeafWritesFullRing(t *testing.T) {
	ws := NewWorkspace()
	id := ws.AddFlag("Kuru", []territory.Part{
		territory.GADM("IND"),
		territory.Group(territory.Polygon(territory.LatLng{1, 1})).WithOp(territory.OpDifference),
	})

	var d DraftController
	d.Enter(ws, DraftTarget{ElementID: id, Path: []int{1, 0}}, DraftPolygon)
	assert.Equal(t, []territory.LatLng{{1, 1}}, d.Points())

	require.True(t, d.Click(ws, territory.LatLng{2, 2}))

	expr, ok := ws.FlagExpr(id)
	require.True(t, ok)
	leaf, ok := territory.Read(expr, []int{1, 0})
	require.True(t, ok)
	assert.Equal(t, []territory.LatLng{{1, 1}, {2, 2}}, leaf.Points)
	assert.Equal(t, territory.GADM("IND"), expr[0], "siblings off the path stay as they were")
}

func TestDraftUndo(t *testing.T) {
	ws := NewWorkspace()
	id := ws.AddPath("Trade route", []territory.LatLng{{1, 1}, {2, 2}})

	var d DraftController
	d.Enter(ws, DraftTarget{ElementID: id}, DraftPath)

	require.True(t, d.Undo(ws))
	el, _ := ws.Find(id)
	assert.Equal(t, []territory.LatLng{{1, 1}}, el.Points)

	require.True(t, d.Undo(ws))
	el, _ = ws.Find(id)
	assert.Empty(t, el.Points)

	assert.False(t, d.Undo(ws), "nothing left to undo")
}

func TestDraftStaleTargetFailsClosed(t *testing.T) {
	ws := NewWorkspace()
	id := ws.AddPath("Trade route", []territory.LatLng{{1, 1}})

	var d DraftController
	d.Enter(ws, DraftTarget{ElementID: id}, DraftPath)
	require.True(t, ws.Remove(id))

	assert.False(t, d.Click(ws, territory.LatLng{2, 2}))
	assert.False(t, d.Move(ws, territory.LatLng{3, 3}, true, true))
	assert.False(t, d.Undo(ws))
	assert.Equal(t, []territory.LatLng{{1, 1}}, d.Points(), "failed writes leave the draft untouched")

	d.Exit()
	assert.False(t, d.Active(), "exit always succeeds")
}

func TestDraftEnterOnMissingTargetStartsEmpty(t *testing.T) {
	ws := NewWorkspace()

	var d DraftController
	d.Enter(ws, DraftTarget{ElementID: "gone"}, DraftPolygon)

	assert.True(t, d.Active())
	assert.Empty(t, d.Points())
}
