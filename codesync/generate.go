// Package codesync converts between the workspace and its generated source
// text. Generate emits one statement per element; Sync parses statements
// back into a workspace, passing lines it does not model through verbatim.
package codesync

import (
	"strconv"
	"strings"
	"terrastudio/editor"
	"terrastudio/territory"
)

// Generate renders the workspace as source text. Option statements come
// first, then one statement per element in workspace order.
func Generate(ws *editor.Workspace) string {
	var sb strings.Builder

	if ws.Zoom != nil {
		sb.WriteString("zoom(")
		sb.WriteString(formatNumber(*ws.Zoom))
		sb.WriteString(")\n")
	}
	if ws.Focus != nil {
		sb.WriteString("focus(")
		sb.WriteString(formatNumber(ws.Focus.Lat()))
		sb.WriteString(", ")
		sb.WriteString(formatNumber(ws.Focus.Lng()))
		sb.WriteString(")\n")
	}
	if ws.CSS != "" {
		sb.WriteString(`CSS("""`)
		sb.WriteString(ws.CSS)
		sb.WriteString("\"\"\")\n")
	}
	if ws.Title != "" {
		sb.WriteString(`TitleBox("""`)
		sb.WriteString(ws.Title)
		sb.WriteString("\"\"\")\n")
	}

	for i := range ws.Elements {
		writeElement(&sb, &ws.Elements[i])
	}
	return sb.String()
}

func writeElement(sb *strings.Builder, el *editor.Element) {
	switch el.Type {
	case editor.ElementFlag:
		sb.WriteString("Flag(value=")
		sb.WriteString(territory.Serialize(el.Expr))
		if el.Label != "" {
			sb.WriteString(", label=")
			sb.WriteString(quote(el.Label))
		}
		sb.WriteString(")\n")

	case editor.ElementPoint, editor.ElementText:
		name := "Point"
		if el.Type == editor.ElementText {
			name = "Text"
		}
		sb.WriteString(name)
		sb.WriteString("(label=")
		sb.WriteString(quote(el.Label))
		if pos, ok := el.Position(); ok {
			sb.WriteString(", position=")
			sb.WriteString(formatPoint(pos))
		}
		sb.WriteString(")\n")

	case editor.ElementPath:
		sb.WriteString("Path(value=")
		sb.WriteString(formatPoints(el.Points))
		if el.Label != "" {
			sb.WriteString(", label=")
			sb.WriteString(quote(el.Label))
		}
		sb.WriteString(")\n")

	case editor.ElementAdmin:
		sb.WriteString("Admin(gadm=")
		sb.WriteString(quote(el.Code))
		sb.WriteString(", level=")
		sb.WriteString(strconv.Itoa(el.Level))
		if el.Label != "" {
			sb.WriteString(", label=")
			sb.WriteString(quote(el.Label))
		}
		sb.WriteString(")\n")

	case editor.ElementRaw:
		sb.WriteString(el.Raw)
		sb.WriteString("\n")
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPoint(pt territory.LatLng) string {
	return "[" + formatNumber(pt.Lat()) + ", " + formatNumber(pt.Lng()) + "]"
}

func formatPoints(pts []territory.LatLng) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, pt := range pts {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(formatPoint(pt))
	}
	sb.WriteByte(']')
	return sb.String()
}

// quote renders a double-quoted string literal, keeping non-ASCII text
// verbatim.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
