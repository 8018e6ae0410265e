package editor

import (
	"sync"
	"terrastudio/territory"

	"go.uber.org/zap"
)

// Feature kinds surfaces report picks for. River features exist on the
// reference map but no leaf type stores them, so river picks are dropped.
type FeatureType string

const (
	FeatureGADM      FeatureType = "gadm"
	FeatureRiver     FeatureType = "river"
	FeatureTerritory FeatureType = "territory"
)

// SurfacePush delivers full-state overlay and draft commands to one map
// surface. Implementations must tolerate the surface being absent: a
// command to nobody is dropped, never queued.
type SurfacePush interface {
	PushSelectionOverlay(surface string, groups []OverlayGroup)
	PushLabelOverlay(surface string, groups []OverlayGroup)
	ClearLabelOverlay(surface string)
	PushDraft(surface string, points []territory.LatLng, shape string)
}

type nopPush struct{}

func (nopPush) PushSelectionOverlay(string, []OverlayGroup)  {}
func (nopPush) PushLabelOverlay(string, []OverlayGroup)      {}
func (nopPush) ClearLabelOverlay(string)                     {}
func (nopPush) PushDraft(string, []territory.LatLng, string) {}

// Editor owns one project workspace and the two interactive controllers
// that mutate it. Bus handlers funnel every event through the single
// mutex, so tree mutation is serialized per workspace and a reader can
// never observe a half-applied edit. Each mutating event finishes by
// pushing the full resulting overlay or draft state back to the surface
// that drives the session.
type Editor struct {
	mu   sync.Mutex
	log  *zap.Logger
	push SurfacePush

	ws    *Workspace
	paint PaintController
	draft DraftController

	paintSurface string
	draftSurface string
}

func New(log *zap.Logger, push SurfacePush) *Editor {
	if log == nil {
		log = zap.NewNop()
	}
	if push == nil {
		push = nopPush{}
	}
	return &Editor{
		log:  log.Named("editor"),
		push: push,
		ws:   NewWorkspace(),
	}
}

// InstallWorkspace replaces the project wholesale, as the code sync does
// after parsing source text. Active picker sessions are closed first;
// their targets belong to the outgoing workspace.
func (e *Editor) InstallWorkspace(ws *Workspace) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ws == nil {
		ws = NewWorkspace()
	}
	e.closePaintLocked()
	e.closeDraftLocked()
	e.ws = ws
	e.log.Info("workspace installed", zap.Int("elements", len(ws.Elements)))
}

// Snapshot returns a copy of the workspace safe to read outside the lock.
// Element values are never edited in place, so sharing the inner slices
// with the live tree is safe.
func (e *Editor) Snapshot() *Workspace {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := &Workspace{
		Elements: make([]Element, len(e.ws.Elements)),
		CSS:      e.ws.CSS,
		Title:    e.ws.Title,
	}
	copy(out.Elements, e.ws.Elements)
	if e.ws.Zoom != nil {
		z := *e.ws.Zoom
		out.Zoom = &z
	}
	if e.ws.Focus != nil {
		f := *e.ws.Focus
		out.Focus = &f
	}
	return out
}

// AddFlag appends a flag element and returns its id.
func (e *Editor) AddFlag(label string, parts []territory.Part) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ws.AddFlag(label, parts)
}

// AddPoint appends a point annotation and returns its id.
func (e *Editor) AddPoint(label string, pos territory.LatLng) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ws.AddPoint(label, pos)
}

// AddText appends a text annotation and returns its id.
func (e *Editor) AddText(label string, pos territory.LatLng) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ws.AddText(label, pos)
}

// SetZoom sets the project zoom option.
func (e *Editor) SetZoom(z float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ws.Zoom = &z
}

// SetFocus sets the project focus center option.
func (e *Editor) SetFocus(pt territory.LatLng) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ws.Focus = &pt
}

// RemoveElement deletes an element. A picker session targeting it simply
// starts failing closed; Escape remains the way out.
func (e *Editor) RemoveElement(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ws.Remove(id)
}

// FlagExpr returns the expression owned by a flag.
func (e *Editor) FlagExpr(id string) ([]territory.Part, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ws.FlagExpr(id)
}

// SetFlagExpr replaces a flag's expression directly, outside any picker
// session.
func (e *Editor) SetFlagExpr(id string, parts []territory.Part) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ws.SetFlagExpr(id, parts)
}

// PaintEnter starts a paint session driven by the given surface.
func (e *Editor) PaintEnter(surface string, target PaintTarget) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paint.Enter(e.ws, target) {
		e.log.Debug("paint enter rejected",
			zap.String("element", target.ElementID),
			zap.String("leafType", string(target.LeafType)))
		return false
	}
	e.paintSurface = surface
	e.pushPaintLocked()
	return true
}

// PaintPick toggles one feature id on a plain click.
func (e *Editor) PaintPick(feature FeatureType, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.featureMatchesLocked(feature) {
		return false
	}
	if !e.paint.Toggle(e.ws, id) {
		return false
	}
	e.pushPaintLocked()
	return true
}

// PaintSweep applies one hover event of a modifier-held sweep.
func (e *Editor) PaintSweep(feature FeatureType, mode SweepMode, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.featureMatchesLocked(feature) {
		return false
	}
	if !e.paint.Sweep(e.ws, mode, id) {
		return false
	}
	e.pushPaintLocked()
	return true
}

// PaintExit closes the paint session and clears its overlay.
func (e *Editor) PaintExit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closePaintLocked()
}

// PaintSelection returns the live selection, for tests and the debug HUD.
func (e *Editor) PaintSelection() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paint.Selection()
}

// DraftEnter starts a draft session driven by the given surface.
func (e *Editor) DraftEnter(surface string, target DraftTarget, mode DraftMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Enter(e.ws, target, mode)
	e.draftSurface = surface
	e.pushDraftLocked()
}

// DraftClick appends one discretely clicked point.
func (e *Editor) DraftClick(pt territory.LatLng) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.draft.Click(e.ws, pt) {
		return false
	}
	e.pushDraftLocked()
	return true
}

// DraftMove feeds one freehand move event.
func (e *Editor) DraftMove(pt territory.LatLng, ctrlOrCmd, primaryDown bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.draft.Move(e.ws, pt, ctrlOrCmd, primaryDown) {
		return false
	}
	e.pushDraftLocked()
	return true
}

// DraftUndo removes the last draft point.
func (e *Editor) DraftUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.draft.Undo(e.ws) {
		return false
	}
	e.pushDraftLocked()
	return true
}

// DraftExit closes the draft session and clears the surface's temporary
// shape.
func (e *Editor) DraftExit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeDraftLocked()
}

// DraftPoints returns the live draft, for tests and the debug HUD.
func (e *Editor) DraftPoints() []territory.LatLng {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Points()
}

// HandleKey routes a forwarded key event to whichever session is active.
// The draft session takes precedence; Escape always succeeds.
func (e *Editor) HandleKey(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch key {
	case "Backspace":
		if e.draft.Active() && e.draft.Undo(e.ws) {
			e.pushDraftLocked()
		}
	case "Escape":
		if e.draft.Active() {
			e.closeDraftLocked()
			return
		}
		if e.paint.Active() {
			e.closePaintLocked()
		}
	}
}

// HandlePointer routes a forwarded pointer event into the draft session.
// Paint interaction arrives as feature picks instead, already resolved to
// feature ids by the surface.
func (e *Editor) HandlePointer(kind string, pt territory.LatLng, ctrlOrCmd, primaryDown bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.draft.Active() {
		return
	}
	var changed bool
	switch kind {
	case "click":
		changed = e.draft.Click(e.ws, pt)
	case "move":
		changed = e.draft.Move(e.ws, pt, ctrlOrCmd, primaryDown)
	}
	if changed {
		e.pushDraftLocked()
	}
}

func (e *Editor) featureMatchesLocked(feature FeatureType) bool {
	if !e.paint.Active() {
		return false
	}
	switch e.paint.Target().LeafType {
	case territory.TypeGADM:
		return feature == FeatureGADM
	case territory.TypePredefined:
		return feature == FeatureTerritory
	}
	return false
}

// pushPaintLocked sends the full overlay state for the painted flag to
// the driving surface.
func (e *Editor) pushPaintLocked() {
	target := e.paint.Target()
	expr, ok := e.ws.FlagExpr(target.ElementID)
	if !ok {
		return
	}
	groups := BuildOverlayGroups(expr, target.Path, target.LeafType)
	switch target.LeafType {
	case territory.TypeGADM:
		e.push.PushSelectionOverlay(e.paintSurface, groups)
	case territory.TypePredefined:
		e.push.PushLabelOverlay(e.paintSurface, groups)
	}
}

func (e *Editor) closePaintLocked() {
	if !e.paint.Active() {
		return
	}
	leafType := e.paint.Target().LeafType
	e.paint.Exit()
	switch leafType {
	case territory.TypeGADM:
		e.push.PushSelectionOverlay(e.paintSurface, nil)
	case territory.TypePredefined:
		e.push.ClearLabelOverlay(e.paintSurface)
	}
	e.paintSurface = ""
}

func (e *Editor) pushDraftLocked() {
	e.push.PushDraft(e.draftSurface, e.draft.Points(), string(e.draft.Mode()))
}

func (e *Editor) closeDraftLocked() {
	if !e.draft.Active() {
		return
	}
	mode := e.draft.Mode()
	e.draft.Exit()
	e.push.PushDraft(e.draftSurface, nil, string(mode))
	e.draftSurface = ""
}
