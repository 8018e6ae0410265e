package editor

import (
	"strings"
	"terrastudio/territory"

	"github.com/google/uuid"
)

// Element kinds, matching the statement vocabulary of generated project
// source. Raw elements hold statements the sync layer does not model and
// carry them through regeneration verbatim.
type ElementType string

const (
	ElementFlag  ElementType = "flag"
	ElementPoint ElementType = "point"
	ElementText  ElementType = "text"
	ElementPath  ElementType = "path"
	ElementAdmin ElementType = "admin"
	ElementRaw   ElementType = "raw"
)

// Element is one entry of the project's ordered element list. The value
// field in use is fixed by Type: Expr for flags, Points for paths (and the
// single stored position of point/text elements), Code and Level for admin
// overlays, Raw for passthrough source lines.
type Element struct {
	ID    string
	Type  ElementType
	Label string

	Expr   []territory.Part
	Points []territory.LatLng
	Code   string
	Level  int
	Raw    string
}

// Position returns the stored position of a point or text element.
func (e *Element) Position() (territory.LatLng, bool) {
	if len(e.Points) == 0 {
		return territory.LatLng{}, false
	}
	return e.Points[len(e.Points)-1], true
}

// Workspace is the structural form of one project: the ordered element
// list plus the map options that sit beside it in generated source.
type Workspace struct {
	Elements []Element

	Zoom  *float64
	Focus *territory.LatLng
	CSS   string
	Title string
}

func NewWorkspace() *Workspace {
	return &Workspace{}
}

func newElementID() string {
	return uuid.NewString()
}

// AddFlag appends a flag element owning the given expression and returns
// its id.
func (ws *Workspace) AddFlag(label string, parts []territory.Part) string {
	id := newElementID()
	ws.Elements = append(ws.Elements, Element{
		ID:    id,
		Type:  ElementFlag,
		Label: label,
		Expr:  parts,
	})
	return id
}

// AddPoint appends a point marker element.
func (ws *Workspace) AddPoint(label string, pos territory.LatLng) string {
	id := newElementID()
	ws.Elements = append(ws.Elements, Element{
		ID:     id,
		Type:   ElementPoint,
		Label:  label,
		Points: []territory.LatLng{pos},
	})
	return id
}

// AddText appends a text annotation element.
func (ws *Workspace) AddText(label string, pos territory.LatLng) string {
	id := newElementID()
	ws.Elements = append(ws.Elements, Element{
		ID:     id,
		Type:   ElementText,
		Label:  label,
		Points: []territory.LatLng{pos},
	})
	return id
}

// AddPath appends a polyline element.
func (ws *Workspace) AddPath(label string, points []territory.LatLng) string {
	id := newElementID()
	ws.Elements = append(ws.Elements, Element{
		ID:     id,
		Type:   ElementPath,
		Label:  label,
		Points: points,
	})
	return id
}

// AddAdmin appends an administrative-boundary overlay element.
func (ws *Workspace) AddAdmin(label, code string, level int) string {
	id := newElementID()
	ws.Elements = append(ws.Elements, Element{
		ID:    id,
		Type:  ElementAdmin,
		Label: label,
		Code:  code,
		Level: level,
	})
	return id
}

// AddRaw appends a passthrough source line.
func (ws *Workspace) AddRaw(line string) string {
	id := newElementID()
	ws.Elements = append(ws.Elements, Element{
		ID:   id,
		Type: ElementRaw,
		Raw:  line,
	})
	return id
}

// Find returns a pointer to the element with the given id. The pointer is
// only valid until the element list is next modified.
func (ws *Workspace) Find(id string) (*Element, bool) {
	for i := range ws.Elements {
		if ws.Elements[i].ID == id {
			return &ws.Elements[i], true
		}
	}
	return nil, false
}

// FindLabel returns the first element of the given type with the given
// label.
func (ws *Workspace) FindLabel(typ ElementType, label string) (*Element, bool) {
	for i := range ws.Elements {
		if ws.Elements[i].Type == typ && ws.Elements[i].Label == label {
			return &ws.Elements[i], true
		}
	}
	return nil, false
}

// Remove deletes the element with the given id, reporting whether it was
// present.
func (ws *Workspace) Remove(id string) bool {
	for i := range ws.Elements {
		if ws.Elements[i].ID == id {
			ws.Elements = append(ws.Elements[:i], ws.Elements[i+1:]...)
			return true
		}
	}
	return false
}

// FlagExpr returns the expression owned by the flag with the given id.
func (ws *Workspace) FlagExpr(id string) ([]territory.Part, bool) {
	el, ok := ws.Find(id)
	if !ok || el.Type != ElementFlag {
		return nil, false
	}
	return el.Expr, true
}

// SetFlagExpr replaces the expression owned by the flag with the given id.
func (ws *Workspace) SetFlagExpr(id string, parts []territory.Part) bool {
	el, ok := ws.Find(id)
	if !ok || el.Type != ElementFlag {
		return false
	}
	el.Expr = parts
	return true
}

// Flags returns the flag elements in list order.
func (ws *Workspace) Flags() []Element {
	out := make([]Element, 0, len(ws.Elements))
	for _, el := range ws.Elements {
		if el.Type == ElementFlag {
			out = append(out, el)
		}
	}
	return out
}

// StripAlias removes a library-alias prefix from a qualified territory
// name. Bare names pass through unchanged.
func StripAlias(name string) string {
	if i := strings.Index(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
