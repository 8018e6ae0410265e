package territory

import (
	"encoding/json"
	"math"
	"strings"
)

// Part kinds
type PartType string

const (
	TypeGADM       PartType = "gadm"
	TypePolygon    PartType = "polygon"
	TypePredefined PartType = "predefined"
	TypeGroup      PartType = "group"
)

// Set operators combining a Part with the running fold of its left siblings.
// The operator of the first Part in a list carries no meaning.
type SetOp string

const (
	OpUnion        SetOp = "union"
	OpDifference   SetOp = "difference"
	OpIntersection SetOp = "intersection"
)

// Symbol returns the operator's source-code spelling.
func (op SetOp) Symbol() string {
	switch op {
	case OpDifference:
		return "-"
	case OpIntersection:
		return "&"
	default:
		return "|"
	}
}

// OpFromSymbol maps an operator symbol back to a SetOp; anything
// unrecognised is a union, mirroring the fold's default.
func OpFromSymbol(sym string) SetOp {
	switch sym {
	case "-":
		return OpDifference
	case "&":
		return OpIntersection
	default:
		return OpUnion
	}
}

// LatLng is a [latitude, longitude] pair, in that fixed order everywhere.
type LatLng [2]float64

func (ll LatLng) Lat() float64 { return ll[0] }
func (ll LatLng) Lng() float64 { return ll[1] }

// Rounded clamps both axes to 4 decimal places, the capture-time precision
// for every coordinate crossing the surface bus.
func (ll LatLng) Rounded() LatLng {
	return LatLng{round4(ll[0]), round4(ll[1])}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func (ll LatLng) valid() bool {
	return !math.IsNaN(ll[0]) && !math.IsInf(ll[0], 0) &&
		!math.IsNaN(ll[1]) && !math.IsInf(ll[1], 0)
}

// Part is one node of a territory expression: a leaf region source or a
// group of child Parts. Exactly one value field is populated, fixed by Type:
// Values for gadm codes and predefined names, Points for polygon rings,
// Children for groups. Parts are plain values; every mutation goes through
// a rebuild, never in-place edits of shared slices.
type Part struct {
	Op       SetOp
	Type     PartType
	Values   []string
	Points   []LatLng
	Children []Part
}

// GADM builds an administrative-region leaf.
func GADM(codes ...string) Part {
	return Part{Op: OpUnion, Type: TypeGADM, Values: codes}
}

// Predefined builds a library-reference leaf.
func Predefined(names ...string) Part {
	return Part{Op: OpUnion, Type: TypePredefined, Values: names}
}

// Polygon builds a freehand-ring leaf. The ring is open; closure is
// implied by the renderer.
func Polygon(points ...LatLng) Part {
	return Part{Op: OpUnion, Type: TypePolygon, Points: points}
}

// Group builds a nested sub-expression.
func Group(children ...Part) Part {
	return Part{Op: OpUnion, Type: TypeGroup, Children: children}
}

// WithOp returns a copy of p combined with its left siblings by op.
func (p Part) WithOp(op SetOp) Part {
	p.Op = op
	return p
}

// NormalizedValues returns the leaf's value list trimmed, with empty
// entries dropped and duplicates removed, order preserved from first
// occurrence. Leaf values are always read through this.
func (p Part) NormalizedValues() []string {
	return NormalizeValues(p.Values)
}

// NormalizeValues applies the leaf-value normalization rules to any list.
func NormalizeValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ValidPoints returns the polygon ring with non-finite pairs dropped.
func (p Part) ValidPoints() []LatLng {
	out := make([]LatLng, 0, len(p.Points))
	for _, pt := range p.Points {
		if pt.valid() {
			out = append(out, pt)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// partWire is the JSON shape shared with surfaces and the code-sync
// service: {op, type, value} with value polymorphic on type.
type partWire struct {
	Op    SetOp           `json:"op,omitempty"`
	Type  PartType        `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (p Part) MarshalJSON() ([]byte, error) {
	w := partWire{Op: p.Op, Type: p.Type}
	if w.Op == "" {
		w.Op = OpUnion
	}
	var value interface{}
	switch p.Type {
	case TypeGADM, TypePredefined:
		// A single value is written as a bare string, several as a list,
		// matching what older project files contain.
		switch len(p.Values) {
		case 0:
			value = ""
		case 1:
			value = p.Values[0]
		default:
			value = p.Values
		}
	case TypePolygon:
		pts := p.ValidPoints()
		if pts == nil {
			pts = []LatLng{}
		}
		value = pts
	case TypeGroup:
		if p.Children == nil {
			value = []Part{}
		} else {
			value = p.Children
		}
	default:
		value = nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	w.Value = raw
	return json.Marshal(w)
}

// UnmarshalJSON accepts every value shape found in stored projects:
// bare strings or string lists for gadm/predefined, coordinate arrays or
// a JSON string holding one for polygons, nested part lists for groups.
// Malformed polygon pairs are dropped rather than failing the decode;
// the tree must install even when a leaf's stored value is garbage.
func (p *Part) UnmarshalJSON(data []byte) error {
	var w partWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Part{Op: w.Op, Type: w.Type}
	if out.Op == "" {
		out.Op = OpUnion
	}
	switch w.Type {
	case TypeGADM, TypePredefined:
		out.Values = decodeStringValue(w.Value)
	case TypePolygon:
		out.Points = DecodePolygonValue(w.Value)
	case TypeGroup:
		var children []Part
		if len(w.Value) > 0 {
			if err := json.Unmarshal(w.Value, &children); err != nil {
				children = nil
			}
		}
		if children == nil {
			children = []Part{}
		}
		out.Children = children
	}
	*p = out
	return nil
}

func decodeStringValue(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var list []interface{}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DecodePolygonValue parses a stored polygon value. Projects written by
// the code sync store the ring as a JSON string; surfaces send it as a
// plain array. Pairs that are not two finite numbers are dropped, and an
// unparsable value decodes to an empty ring.
func DecodePolygonValue(raw json.RawMessage) []LatLng {
	if len(raw) == 0 {
		return nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return decodePointList([]byte(text))
	}
	return decodePointList(raw)
}

func decodePointList(data []byte) []LatLng {
	var pairs []json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil
	}
	out := make([]LatLng, 0, len(pairs))
	for _, pr := range pairs {
		var nums []float64
		if err := json.Unmarshal(pr, &nums); err != nil {
			continue
		}
		if len(nums) != 2 {
			continue
		}
		pt := LatLng{nums[0], nums[1]}
		if !pt.valid() {
			continue
		}
		out = append(out, pt)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
