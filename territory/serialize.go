package territory

import (
	"encoding/json"
	"strings"
)

// EmptyExpression is what an expression with nothing to say serializes to.
const EmptyExpression = "None"

// Serialize renders an expression in the generated-source grammar. The
// fold runs left to right: the first Part with a non-empty form seeds the
// output and its own operator is never written; every later non-empty Part
// appends " <sym> " plus its form. A Part that formats empty is skipped
// outright, consuming no operator slot and leaving no gap. An empty or
// all-empty expression renders as the literal None.
func Serialize(expr []Part) string {
	if s := serializeList(expr); s != "" {
		return s
	}
	return EmptyExpression
}

func serializeList(parts []Part) string {
	var b strings.Builder
	for _, p := range parts {
		f := formatPart(p)
		if f == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
			b.WriteString(p.Op.Symbol())
			b.WriteString(" ")
		}
		b.WriteString(f)
	}
	return b.String()
}

func formatPart(p Part) string {
	switch p.Type {
	case TypeGADM:
		vals := p.NormalizedValues()
		switch len(vals) {
		case 0:
			return ""
		case 1:
			return gadmCall(vals[0])
		}
		calls := make([]string, len(vals))
		for i, v := range vals {
			calls[i] = gadmCall(v)
		}
		return "(" + strings.Join(calls, " | ") + ")"

	case TypePredefined:
		vals := p.NormalizedValues()
		switch len(vals) {
		case 0:
			return ""
		case 1:
			return vals[0]
		}
		return "(" + strings.Join(vals, " | ") + ")"

	case TypePolygon:
		pts := p.ValidPoints()
		if len(pts) == 0 {
			return ""
		}
		raw, err := json.Marshal(pts)
		if err != nil {
			return ""
		}
		return "polygon(" + string(raw) + ")"

	case TypeGroup:
		inner := serializeList(p.Children)
		if inner == "" {
			return ""
		}
		// Groups are parenthesized even around a single child. The external
		// parser's grammar leans on that shape, so it stays.
		return "(" + inner + ")"
	}
	return ""
}

func gadmCall(code string) string {
	quoted, _ := json.Marshal(code)
	return "gadm(" + string(quoted) + ")"
}
