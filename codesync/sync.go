package codesync

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"terrastudio/editor"
	"terrastudio/territory"
)

// Sync parses source text into a workspace. Statement calls it recognizes
// become typed elements; every other non-empty line becomes a raw
// passthrough element so the text survives the round trip. Import lines
// are dropped.
func Sync(source string) (*editor.Workspace, error) {
	ws := editor.NewWorkspace()
	lines := strings.Split(source, "\n")
	offsets := make([]int, len(lines))
	off := 0
	for i, ln := range lines {
		offsets[i] = off
		off += len(ln) + 1
	}

	for i := 0; i < len(lines); {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || isImportLine(trimmed) {
			i++
			continue
		}

		callee, isCall := callName(trimmed)
		if !isCall {
			ws.AddRaw(trimmed)
			i++
			continue
		}

		openOff := offsets[i] + strings.IndexByte(lines[i], '(')
		closeOff := matchParen(source, openOff)
		if closeOff < 0 {
			return nil, fmt.Errorf("line %d: unbalanced parentheses in %s(...)", i+1, callee)
		}
		startOff := offsets[i] + indentWidth(lines[i])
		stmt := source[startOff : closeOff+1]

		if !applyStatement(ws, statementKey(callee), stmt) {
			ws.AddRaw(stmt)
		}
		i += strings.Count(source[offsets[i]:closeOff], "\n") + 1
	}
	return ws, nil
}

func isImportLine(line string) bool {
	if strings.HasPrefix(line, "import ") {
		return true
	}
	return strings.HasPrefix(line, "from ") && strings.Contains(line, " import ")
}

// callName reports the callee when the line opens a call statement, i.e.
// the text before the first parenthesis is a dotted identifier.
func callName(line string) (string, bool) {
	open := strings.IndexByte(line, '(')
	if open <= 0 {
		return "", false
	}
	name := strings.TrimSpace(line[:open])
	if !isDottedIdent(name) {
		return "", false
	}
	return name, true
}

// statementKey strips a module prefix, so terra.Flag and Flag parse alike.
func statementKey(callee string) string {
	if dot := strings.LastIndexByte(callee, '.'); dot >= 0 {
		return callee[dot+1:]
	}
	return callee
}

func indentWidth(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func isDottedIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if !isIdent(part) {
			return false
		}
	}
	return true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// matchParen returns the offset of the parenthesis matching the one at
// open, skipping string literals and line comments. Returns -1 when the
// text ends before the call closes.
func matchParen(s string, open int) int {
	depth := 0
	var quote byte
	triple := false

	for j := open; j < len(s); j++ {
		c := s[j]
		if quote != 0 {
			switch {
			case triple:
				if c == quote && strings.HasPrefix(s[j:], string([]byte{quote, quote, quote})) {
					quote, triple = 0, false
					j += 2
				}
			case c == '\\':
				j++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
			if strings.HasPrefix(s[j:], string([]byte{c, c, c})) {
				triple = true
				j += 2
			}
		case '#':
			for j < len(s) && s[j] != '\n' {
				j++
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// applyStatement interprets one balanced call statement. False means the
// statement is not modeled (unknown name, unknown keyword, or a value the
// workspace cannot hold) and the caller keeps it as raw text.
func applyStatement(ws *editor.Workspace, name, stmt string) bool {
	open := strings.IndexByte(stmt, '(')
	if open < 0 {
		return false
	}
	end := matchParen(stmt, open)
	if end < 0 {
		return false
	}
	args, ok := splitArgs(stmt[open+1 : end])
	if !ok {
		return false
	}

	switch name {
	case "zoom":
		if len(args) != 1 {
			return false
		}
		_, v := keyValue(args[0])
		z, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return false
		}
		ws.Zoom = &z
		return true

	case "focus":
		if len(args) != 2 {
			return false
		}
		_, latText := keyValue(args[0])
		_, lngText := keyValue(args[1])
		lat, errLat := strconv.ParseFloat(latText, 64)
		lng, errLng := strconv.ParseFloat(lngText, 64)
		if errLat != nil || errLng != nil {
			return false
		}
		ws.Focus = &territory.LatLng{lat, lng}
		return true

	case "CSS", "TitleBox":
		if len(args) != 1 {
			return false
		}
		_, v := keyValue(args[0])
		text, ok := parseString(v)
		if !ok {
			return false
		}
		if name == "CSS" {
			ws.CSS = text
		} else {
			ws.Title = text
		}
		return true

	case "Flag":
		return applyFlag(ws, args)
	case "Point", "Text":
		return applyMarker(ws, name, args)
	case "Path":
		return applyPath(ws, args)
	case "Admin":
		return applyAdmin(ws, args)
	}
	return false
}

func applyFlag(ws *editor.Workspace, args []string) bool {
	var exprText, label string
	for _, arg := range args {
		key, v := keyValue(arg)
		switch key {
		case "value":
			exprText = v
		case "label":
			s, ok := parseString(v)
			if !ok {
				return false
			}
			label = s
		default:
			return false
		}
	}
	if exprText == "" {
		return false
	}
	parts, err := territory.Parse(exprText)
	if err != nil {
		return false
	}
	ws.AddFlag(label, parts)
	return true
}

func applyMarker(ws *editor.Workspace, name string, args []string) bool {
	var label string
	var pos *territory.LatLng
	for _, arg := range args {
		key, v := keyValue(arg)
		switch key {
		case "label":
			s, ok := parseString(v)
			if !ok {
				return false
			}
			label = s
		case "position":
			var pair []float64
			if err := json.Unmarshal([]byte(v), &pair); err != nil || len(pair) < 2 {
				return false
			}
			pos = &territory.LatLng{pair[0], pair[1]}
		default:
			return false
		}
	}
	if pos == nil {
		return false
	}
	if name == "Text" {
		ws.AddText(label, *pos)
	} else {
		ws.AddPoint(label, *pos)
	}
	return true
}

func applyPath(ws *editor.Workspace, args []string) bool {
	var label string
	var points []territory.LatLng
	seen := false
	for _, arg := range args {
		key, v := keyValue(arg)
		switch key {
		case "value":
			var raw json.RawMessage
			if err := json.Unmarshal([]byte(v), &raw); err != nil {
				return false
			}
			points = territory.DecodePolygonValue(raw)
			seen = true
		case "label":
			s, ok := parseString(v)
			if !ok {
				return false
			}
			label = s
		default:
			return false
		}
	}
	if !seen {
		return false
	}
	ws.AddPath(label, points)
	return true
}

func applyAdmin(ws *editor.Workspace, args []string) bool {
	var code, label string
	level := 0
	for _, arg := range args {
		key, v := keyValue(arg)
		switch key {
		case "gadm":
			s, ok := parseString(v)
			if !ok {
				return false
			}
			code = s
		case "level":
			n, err := strconv.Atoi(v)
			if err != nil {
				return false
			}
			level = n
		case "label":
			s, ok := parseString(v)
			if !ok {
				return false
			}
			label = s
		default:
			return false
		}
	}
	if code == "" {
		return false
	}
	ws.AddAdmin(label, code, level)
	return true
}

// splitArgs splits an argument list on top-level commas, dropping line
// comments. False means the text is not a well-formed argument list.
func splitArgs(s string) ([]string, bool) {
	var args []string
	var cur strings.Builder
	depth := 0
	var quote byte
	triple := false

	flush := func() {
		if arg := strings.TrimSpace(cur.String()); arg != "" {
			args = append(args, arg)
		}
		cur.Reset()
	}

	for j := 0; j < len(s); j++ {
		c := s[j]
		if quote != 0 {
			cur.WriteByte(c)
			switch {
			case triple:
				if c == quote && strings.HasPrefix(s[j:], string([]byte{quote, quote, quote})) {
					cur.WriteString(s[j+1 : j+3])
					quote, triple = 0, false
					j += 2
				}
			case c == '\\':
				if j+1 < len(s) {
					cur.WriteByte(s[j+1])
					j++
				}
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
			cur.WriteByte(c)
			if strings.HasPrefix(s[j:], string([]byte{c, c, c})) {
				triple = true
				cur.WriteString(s[j+1 : j+3])
				j += 2
			}
		case '#':
			for j < len(s) && s[j] != '\n' {
				j++
			}
		case '(', '[', '{':
			depth++
			cur.WriteByte(c)
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return nil, false
			}
			cur.WriteByte(c)
		case ',':
			if depth == 0 {
				flush()
			} else {
				cur.WriteByte(c)
			}
		default:
			cur.WriteByte(c)
		}
	}
	if depth != 0 || quote != 0 {
		return nil, false
	}
	flush()
	return args, true
}

// keyValue splits a keyword argument. Positional arguments come back with
// an empty key.
func keyValue(arg string) (string, string) {
	eq := strings.IndexByte(arg, '=')
	if eq <= 0 {
		return "", arg
	}
	key := strings.TrimSpace(arg[:eq])
	if !isIdent(key) {
		return "", arg
	}
	return key, strings.TrimSpace(arg[eq+1:])
}

// parseString decodes a quoted literal: triple-quoted text verbatim, or a
// single/double-quoted string with backslash escapes.
func parseString(v string) (string, bool) {
	if len(v) >= 6 && (strings.HasPrefix(v, `"""`) || strings.HasPrefix(v, "'''")) {
		if strings.HasSuffix(v, v[:3]) {
			return v[3 : len(v)-3], true
		}
		return "", false
	}
	if len(v) < 2 || (v[0] != '"' && v[0] != '\'') || v[len(v)-1] != v[0] {
		return "", false
	}
	var sb strings.Builder
	for j := 1; j < len(v)-1; j++ {
		c := v[j]
		if c == '\\' && j+1 < len(v)-1 {
			j++
			switch v[j] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(v[j])
			}
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String(), true
}
