package editor

import (
	"terrastudio/territory"
)

// Sweep direction of a modifier-held hover gesture.
type SweepMode string

const (
	SweepAdd    SweepMode = "add"
	SweepRemove SweepMode = "remove"
)

// PaintTarget addresses the leaf a paint session feeds. LeafType is gadm
// or predefined; Alias carries the library alias when the session paints
// territory names inside an imported library tab, and stays empty for the
// builtin and custom libraries.
type PaintTarget struct {
	ElementID string
	Path      []int
	LeafType  territory.PartType
	Alias     string
}

// PaintController toggles feature ids in and out of one leaf's value set.
// Hover sweeps arrive at pointer sampling rate, far above the rate the
// set actually changes, so each sweep event's "<mode>:<id>" signature is
// compared against the previous one and identical consecutive signatures
// are dropped before the set is touched. Every real change writes through
// to the leaf in the same event.
type PaintController struct {
	active    bool
	target    PaintTarget
	selection []string
	selected  map[string]struct{}
	lastSweep string
}

func (pc *PaintController) Active() bool        { return pc.active }
func (pc *PaintController) Target() PaintTarget { return pc.target }

// Selection returns a copy of the selected ids in first-toggle order.
func (pc *PaintController) Selection() []string {
	out := make([]string, len(pc.selection))
	copy(out, pc.selection)
	return out
}

// Enter starts a paint session against a gadm or predefined leaf, seeding
// the selection from the leaf's normalized value with library-alias
// prefixes stripped. Entering with any other leaf type fails.
func (pc *PaintController) Enter(ws *Workspace, target PaintTarget) bool {
	if target.LeafType != territory.TypeGADM && target.LeafType != territory.TypePredefined {
		return false
	}
	pc.active = true
	pc.target = target
	pc.lastSweep = ""
	pc.selection = nil
	pc.selected = make(map[string]struct{})

	expr, ok := ws.FlagExpr(target.ElementID)
	if !ok {
		return true
	}
	leaf, ok := territory.Read(expr, target.Path)
	if !ok || leaf.Type != target.LeafType {
		return true
	}
	for _, v := range leaf.NormalizedValues() {
		if target.LeafType == territory.TypePredefined {
			v = StripAlias(v)
		}
		pc.add(v)
	}
	return true
}

// Toggle flips one id's membership on a plain click and writes through.
// A click is a deliberate gesture, so it also resets the sweep signature.
func (pc *PaintController) Toggle(ws *Workspace, id string) bool {
	if !pc.active || id == "" {
		return false
	}
	pc.lastSweep = ""
	next := pc.without(id)
	if _, in := pc.selected[id]; !in {
		next = append(pc.withAll(), id)
	}
	return pc.commit(ws, next)
}

// Sweep applies one hover event of a modifier-held sweep. Identical
// consecutive signatures are dropped before the set is touched.
func (pc *PaintController) Sweep(ws *Workspace, mode SweepMode, id string) bool {
	if !pc.active || id == "" {
		return false
	}
	sig := string(mode) + ":" + id
	if sig == pc.lastSweep {
		return false
	}
	pc.lastSweep = sig

	_, in := pc.selected[id]
	switch mode {
	case SweepAdd:
		if in {
			return false
		}
		return pc.commit(ws, append(pc.withAll(), id))
	case SweepRemove:
		if !in {
			return false
		}
		return pc.commit(ws, pc.without(id))
	}
	return false
}

// Exit clears the selection and sweep signature. The leaf keeps its last
// written value.
func (pc *PaintController) Exit() {
	*pc = PaintController{}
}

// commit writes the candidate selection through to the leaf and adopts it
// on success. A stale target leaves both the tree and the controller
// untouched.
func (pc *PaintController) commit(ws *Workspace, next []string) bool {
	values := next
	if pc.target.LeafType == territory.TypePredefined && pc.target.Alias != "" {
		values = make([]string, len(next))
		for i, id := range next {
			values[i] = pc.target.Alias + "." + id
		}
	}
	expr, ok := ws.FlagExpr(pc.target.ElementID)
	if !ok {
		return false
	}
	updated, ok := territory.UpdateLeaf(expr, pc.target.Path, pc.target.LeafType, func(p territory.Part) territory.Part {
		p.Values = values
		return p
	})
	if !ok {
		return false
	}
	if !ws.SetFlagExpr(pc.target.ElementID, updated) {
		return false
	}
	pc.selection = next
	pc.selected = make(map[string]struct{}, len(next))
	for _, id := range next {
		pc.selected[id] = struct{}{}
	}
	return true
}

func (pc *PaintController) add(id string) {
	if _, in := pc.selected[id]; in {
		return
	}
	pc.selected[id] = struct{}{}
	pc.selection = append(pc.selection, id)
}

// withAll returns a fresh copy of the current selection.
func (pc *PaintController) withAll() []string {
	out := make([]string, len(pc.selection))
	copy(out, pc.selection)
	return out
}

// without returns a fresh copy of the current selection minus one id.
func (pc *PaintController) without(id string) []string {
	out := make([]string, 0, len(pc.selection))
	for _, v := range pc.selection {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
