// Package library extracts territory catalogs from library sources.
//
// A library is ordinary territory source text: top-level NAME = <expr>
// assignments, optionally followed by a __TERRITORY_INDEX__ list that
// fixes the display order of the picker. Catalogs are computed by
// scanning the text; library code is never executed.
package library

import "strings"

const indexName = "__TERRITORY_INDEX__"

// Assignment is one top-level NAME = <expr> binding.
type Assignment struct {
	Name string
	Expr string
	Line int
}

// Catalog returns the names a library defines and the display-order index.
// Names keep first-assignment order with underscore-prefixed names dropped.
// The index is the __TERRITORY_INDEX__ list filtered to names actually
// assigned; when no usable index exists all names are the index.
func Catalog(code string) (names, indexNames []string) {
	assigns := Assignments(code)
	seen := make(map[string]bool, len(assigns))
	for _, a := range assigns {
		if strings.HasPrefix(a.Name, "_") || seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		names = append(names, a.Name)
	}
	idx := territoryIndex(assigns)
	if len(idx) == 0 {
		return names, names
	}
	for _, n := range idx {
		if seen[n] {
			indexNames = append(indexNames, n)
		}
	}
	return names, indexNames
}

// Assignments scans code for top-level assignments in source order.
// Bindings inside brackets, strings, or comments are not assignments,
// and an expression keeps extending across lines while brackets stay
// open. Reassigned names appear once per occurrence.
func Assignments(code string) []Assignment {
	var (
		out     []Assignment
		pending *Assignment
		st      scanState
	)
	for i, line := range strings.Split(code, "\n") {
		if st.open() {
			text := st.consume(line)
			if pending != nil {
				pending.Expr += "\n" + text
				if !st.open() {
					pending.Expr = strings.TrimSpace(pending.Expr)
					out = append(out, *pending)
					pending = nil
				}
			}
			continue
		}
		name, rest, ok := splitAssignment(line)
		if !ok {
			st.consume(line)
			continue
		}
		a := Assignment{Name: name, Line: i + 1, Expr: st.consume(rest)}
		if st.open() {
			pending = &a
			continue
		}
		a.Expr = strings.TrimSpace(a.Expr)
		out = append(out, a)
	}
	// An expression left open at EOF never completed; drop it.
	return out
}

// territoryIndex returns the first __TERRITORY_INDEX__ list that reads
// as a literal, skipping ones that do not.
func territoryIndex(assigns []Assignment) []string {
	for _, a := range assigns {
		if a.Name != indexName {
			continue
		}
		if entries, ok := parseStringList(a.Expr); ok {
			return entries
		}
	}
	return nil
}

// splitAssignment matches a `NAME = <rest>` line. Assignments start at
// column zero, the way module-level bindings do; annotated and augmented
// assignments do not count.
func splitAssignment(line string) (name, rest string, ok bool) {
	if line == "" || !isIdentStart(line[0]) {
		return "", "", false
	}
	i := 1
	for i < len(line) && isIdentChar(line[i]) {
		i++
	}
	name = line[:i]
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	if i >= len(line) || line[i] != '=' {
		return "", "", false
	}
	if i+1 < len(line) && line[i+1] == '=' {
		return "", "", false
	}
	return name, line[i+1:], true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// scanState tracks bracket depth and string state across physical lines.
type scanState struct {
	depth  int
	quote  byte
	triple bool
}

func (s *scanState) open() bool { return s.depth > 0 || s.quote != 0 }

// consume advances the scanner over one physical line and returns the
// line with any trailing comment removed.
func (s *scanState) consume(line string) string {
	for i := 0; i < len(line); i++ {
		c := line[i]
		if s.quote != 0 {
			switch {
			case c == '\\':
				i++
			case c != s.quote:
			case !s.triple:
				s.quote = 0
			case strings.HasPrefix(line[i:], tripleOf(c)):
				s.quote, s.triple = 0, false
				i += 2
			}
			continue
		}
		switch c {
		case '\'', '"':
			s.quote = c
			if strings.HasPrefix(line[i:], tripleOf(c)) {
				s.triple = true
				i += 2
			}
		case '(', '[', '{':
			s.depth++
		case ')', ']', '}':
			if s.depth > 0 {
				s.depth--
			}
		case '#':
			return line[:i]
		}
	}
	return line
}

func tripleOf(c byte) string { return strings.Repeat(string(c), 3) }

// parseStringList reads a literal list or tuple, keeping string entries
// and skipping other literals. An entry that is not a literal (an
// identifier, a call) invalidates the whole list, matching literal
// evaluation in the source dialect.
func parseStringList(expr string) ([]string, bool) {
	expr = strings.TrimSpace(expr)
	if len(expr) < 2 {
		return nil, false
	}
	first, last := expr[0], expr[len(expr)-1]
	if !(first == '[' && last == ']') && !(first == '(' && last == ')') {
		return nil, false
	}
	items, ok := splitTopLevel(expr[1 : len(expr)-1])
	if !ok {
		return nil, false
	}
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if s, ok := parseStringEntry(item); ok {
			out = append(out, s)
			continue
		}
		if isNonStringLiteral(item) {
			continue
		}
		return nil, false
	}
	return out, true
}

// splitTopLevel splits on commas outside brackets and strings.
func splitTopLevel(s string) ([]string, bool) {
	var (
		items []string
		depth int
		start int
		quote byte
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return nil, false
			}
		case ',':
			if depth == 0 {
				items = append(items, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 || quote != 0 {
		return nil, false
	}
	return append(items, s[start:]), true
}

// parseStringEntry reads one or more adjacent quoted strings as a single
// concatenated value.
func parseStringEntry(s string) (string, bool) {
	var b strings.Builder
	i := 0
	for i < len(s) {
		if s[i] != '\'' && s[i] != '"' {
			return "", false
		}
		q := s[i]
		i++
		for {
			if i >= len(s) {
				return "", false
			}
			if s[i] == '\\' && i+1 < len(s) {
				b.WriteByte(s[i+1])
				i += 2
				continue
			}
			if s[i] == q {
				i++
				break
			}
			b.WriteByte(s[i])
			i++
		}
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
	}
	return b.String(), true
}

func isNonStringLiteral(s string) bool {
	switch s {
	case "True", "False", "None":
		return true
	}
	switch c := s[0]; {
	case c >= '0' && c <= '9':
		return true
	case c == '+' || c == '-' || c == '.':
		return true
	case c == '[' || c == '(' || c == '{':
		return true
	}
	return false
}
