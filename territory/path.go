package territory

// Path operations address a Part inside nested group lists by index.
// They fail closed: an out-of-range index, a non-group interior node or a
// rejected update all come back as ok=false with the input untouched.
// Picker sessions routinely outlive structural edits made elsewhere, so a
// stale path must never corrupt the tree or panic.

// Read resolves path against root and returns the Part at its terminus.
func Read(root []Part, path []int) (Part, bool) {
	if len(path) == 0 {
		return Part{}, false
	}
	list := root
	for depth, idx := range path {
		if idx < 0 || idx >= len(list) {
			return Part{}, false
		}
		if depth == len(path)-1 {
			return list[idx], true
		}
		if list[idx].Type != TypeGroup {
			return Part{}, false
		}
		list = list[idx].Children
	}
	return Part{}, false
}

// Write applies update to the Part at path's terminus and returns a new
// top-level list with the path's ancestors copied; siblings and untouched
// subtrees are shared with the input. The update receives the current Part
// by value and must return a replacement; returning ok=false (its own type
// guard failed) aborts the whole write. Write never modifies root.
func Write(root []Part, path []int, update func(Part) (Part, bool)) ([]Part, bool) {
	if len(path) == 0 || update == nil {
		return nil, false
	}
	idx := path[0]
	if idx < 0 || idx >= len(root) {
		return nil, false
	}
	if len(path) == 1 {
		replaced, ok := update(root[idx])
		if !ok {
			return nil, false
		}
		out := make([]Part, len(root))
		copy(out, root)
		out[idx] = replaced
		return out, true
	}
	if root[idx].Type != TypeGroup {
		return nil, false
	}
	children, ok := Write(root[idx].Children, path[1:], update)
	if !ok {
		return nil, false
	}
	out := make([]Part, len(root))
	copy(out, root)
	out[idx].Children = children
	return out, true
}

// UpdateLeaf is a Write whose update only fires when the target has the
// wanted type, the common case for both pickers.
func UpdateLeaf(root []Part, path []int, want PartType, update func(Part) Part) ([]Part, bool) {
	return Write(root, path, func(p Part) (Part, bool) {
		if p.Type != want {
			return Part{}, false
		}
		return update(p), true
	})
}
