package editor

import (
	"math"
	"terrastudio/territory"
)

// Draft capture modes. Path and polygon targets accumulate the full point
// list; point mode repositions a single marker.
type DraftMode string

const (
	DraftPath    DraftMode = "path"
	DraftPolygon DraftMode = "polygon"
	DraftPoint   DraftMode = "point"
)

// freehandEpsilon is the minimum per-axis movement, in degrees, between
// accepted freehand points. Continuous move events arrive at pointer
// sampling rate; anything closer than this on both axes is noise.
const freehandEpsilon = 0.0001

// DraftTarget addresses the value a draft session feeds. Path is the leaf
// address inside the element's expression when drafting a polygon leaf of
// a flag; it stays nil when the element's own value is the target.
type DraftTarget struct {
	ElementID string
	Path      []int
}

// DraftController accumulates clicked and freehand-swept points for one
// target at a time. Every accepted append and every undo rewrites the
// target immediately, so the stored value never lags the visible draft.
// All operations fail closed: when the target no longer resolves the
// draft state is left untouched and the caller sees false.
type DraftController struct {
	active bool
	mode   DraftMode
	target DraftTarget
	points []territory.LatLng
}

func (d *DraftController) Active() bool        { return d.active }
func (d *DraftController) Mode() DraftMode     { return d.mode }
func (d *DraftController) Target() DraftTarget { return d.target }

// Points returns a copy of the accumulated draft points.
func (d *DraftController) Points() []territory.LatLng {
	out := make([]territory.LatLng, len(d.points))
	copy(out, d.points)
	return out
}

// Enter starts a draft session, seeding the point list from the target's
// current value. A target that does not resolve seeds an empty draft; the
// session still starts so a fresh leaf can be drawn.
func (d *DraftController) Enter(ws *Workspace, target DraftTarget, mode DraftMode) {
	d.active = true
	d.mode = mode
	d.target = target
	d.points = seedPoints(ws, target)
}

func seedPoints(ws *Workspace, target DraftTarget) []territory.LatLng {
	if len(target.Path) > 0 {
		expr, ok := ws.FlagExpr(target.ElementID)
		if !ok {
			return nil
		}
		leaf, ok := territory.Read(expr, target.Path)
		if !ok || leaf.Type != territory.TypePolygon {
			return nil
		}
		return leaf.ValidPoints()
	}
	el, ok := ws.Find(target.ElementID)
	if !ok {
		return nil
	}
	out := make([]territory.LatLng, len(el.Points))
	copy(out, el.Points)
	return out
}

// Click appends one discretely clicked point and writes through.
func (d *DraftController) Click(ws *Workspace, pt territory.LatLng) bool {
	if !d.active {
		return false
	}
	return d.append(ws, pt)
}

// Move appends a freehand point. Points only accumulate while Ctrl/Cmd and
// the primary button are both held, and a point closer than
// freehandEpsilon to the last accepted point on both axes is discarded.
func (d *DraftController) Move(ws *Workspace, pt territory.LatLng, ctrlOrCmd, primaryDown bool) bool {
	if !d.active || !ctrlOrCmd || !primaryDown {
		return false
	}
	if n := len(d.points); n > 0 {
		last := d.points[n-1]
		if math.Abs(pt.Lat()-last.Lat()) < freehandEpsilon &&
			math.Abs(pt.Lng()-last.Lng()) < freehandEpsilon {
			return false
		}
	}
	return d.append(ws, pt)
}

// Undo removes the last point and writes through.
func (d *DraftController) Undo(ws *Workspace) bool {
	if !d.active || len(d.points) == 0 {
		return false
	}
	next := make([]territory.LatLng, len(d.points)-1)
	copy(next, d.points)
	if !d.writeThrough(ws, next) {
		return false
	}
	d.points = next
	return true
}

// Exit clears the draft state. The target keeps whatever value was last
// written; there is no separate commit step.
func (d *DraftController) Exit() {
	*d = DraftController{}
}

func (d *DraftController) append(ws *Workspace, pt territory.LatLng) bool {
	next := make([]territory.LatLng, len(d.points)+1)
	copy(next, d.points)
	next[len(d.points)] = pt
	if !d.writeThrough(ws, next) {
		return false
	}
	d.points = next
	return true
}

// writeThrough stores the given point list into the target. Point and
// text elements keep only the last point; path elements and polygon
// leaves keep the full ordered list.
func (d *DraftController) writeThrough(ws *Workspace, points []territory.LatLng) bool {
	if len(d.target.Path) > 0 {
		expr, ok := ws.FlagExpr(d.target.ElementID)
		if !ok {
			return false
		}
		next, ok := territory.UpdateLeaf(expr, d.target.Path, territory.TypePolygon, func(p territory.Part) territory.Part {
			p.Points = points
			return p
		})
		if !ok {
			return false
		}
		return ws.SetFlagExpr(d.target.ElementID, next)
	}

	el, ok := ws.Find(d.target.ElementID)
	if !ok {
		return false
	}
	switch el.Type {
	case ElementPoint, ElementText:
		if len(points) == 0 {
			el.Points = nil
		} else {
			el.Points = []territory.LatLng{points[len(points)-1]}
		}
	case ElementPath:
		el.Points = points
	default:
		return false
	}
	return true
}
