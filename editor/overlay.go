package editor

import (
	"terrastudio/territory"
)

// OverlayPending is the op class surfaces render for the leaf currently
// being painted, distinct from the three set-operator classes.
const OverlayPending = "pending"

// OverlayGroup is one full-state overlay entry: the ids (gadm codes) or
// names (territory labels) of a single leaf, colored by op class. Exactly
// one of IDs and Names is populated, fixed by the leaf type.
type OverlayGroup struct {
	Op    string   `json:"op"`
	IDs   []string `json:"ids,omitempty"`
	Names []string `json:"names,omitempty"`
}

// BuildOverlayGroups walks an expression and collects one group per leaf
// of the given type. The leaf at activePath gets the pending op class;
// other leaves carry their own operator, with the first part of any
// sibling list reporting union since its stored op carries no meaning.
// Alias prefixes are stripped from territory names so surfaces can match
// them against raw on-map labels. Empty leaves are skipped except for the
// active one, whose group is the ground truth for "nothing selected".
func BuildOverlayGroups(expr []territory.Part, activePath []int, leafType territory.PartType) []OverlayGroup {
	var groups []OverlayGroup
	collectOverlay(expr, nil, activePath, leafType, &groups)
	return groups
}

func collectOverlay(parts []territory.Part, prefix, activePath []int, leafType territory.PartType, out *[]OverlayGroup) {
	for i := range parts {
		p := parts[i]
		path := append(prefix[:len(prefix):len(prefix)], i)
		if p.Type == territory.TypeGroup {
			collectOverlay(p.Children, path, activePath, leafType, out)
			continue
		}
		if p.Type != leafType {
			continue
		}
		active := pathsEqual(path, activePath)
		ids := p.NormalizedValues()
		if leafType == territory.TypePredefined {
			for j, v := range ids {
				ids[j] = StripAlias(v)
			}
		}
		if len(ids) == 0 && !active {
			continue
		}
		op := string(territory.OpUnion)
		if i > 0 {
			op = string(p.Op)
		}
		if active {
			op = OverlayPending
		}
		g := OverlayGroup{Op: op}
		if leafType == territory.TypeGADM {
			g.IDs = ids
		} else {
			g.Names = ids
		}
		*out = append(*out, g)
	}
}

func pathsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
