package library

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"terrastudio/storage"

	"go.uber.org/zap"
)

// SourceBuiltin and SourceCustom name the two well-known library slots.
// Any other source names an imported library by its alias.
const (
	SourceBuiltin = "builtin"
	SourceCustom  = "custom"
)

// Store reads library sources from a directory. Files are read on every
// call so edits made outside the studio show up without a restart.
type Store struct {
	log *zap.Logger
	dir string
}

// NewStore returns a store over dir. An empty dir selects the libraries
// directory under the studio data dir.
func NewStore(log *zap.Logger, dir string) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if dir == "" {
		dir = storage.LibrariesDir()
	}
	return &Store{log: log.Named("library"), dir: dir}
}

// Seed writes the bundled builtin library if the slot is empty.
func (s *Store) Seed() error {
	path := s.path(SourceBuiltin)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	s.log.Info("seeding builtin territory library", zap.String("path", path))
	return os.WriteFile(path, []byte(builtinLibrary), 0o644)
}

// Read returns the source text of a library slot or alias.
func (s *Store) Read(source string) (string, error) {
	data, err := os.ReadFile(s.path(source))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write replaces the source text of a library slot or alias.
func (s *Store) Write(source, code string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path(source), []byte(code), 0o644)
}

// Catalog loads a library slot and extracts its catalog. A missing slot
// yields an empty catalog, not an error; the picker simply shows nothing.
func (s *Store) Catalog(source string) (names, indexNames []string, err error) {
	code, err := s.Read(source)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	names, indexNames = Catalog(code)
	return names, indexNames, nil
}

// Resolve finds the expression bound to a territory name. Dotted names
// look inside the aliased library, bare names search builtin then
// custom. The last binding of a name wins, as it would when the library
// runs.
func (s *Store) Resolve(name string) (string, bool) {
	if alias, rest, ok := strings.Cut(name, "."); ok {
		return s.lookup(alias, rest)
	}
	if expr, ok := s.lookup(SourceBuiltin, name); ok {
		return expr, true
	}
	return s.lookup(SourceCustom, name)
}

// Sources lists the library slots present on disk, sorted.
func (s *Store) Sources() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".py") {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), ".py"))
	}
	sort.Strings(out)
	return out
}

func (s *Store) lookup(source, name string) (string, bool) {
	code, err := s.Read(source)
	if err != nil {
		return "", false
	}
	expr, ok := "", false
	for _, a := range Assignments(code) {
		if a.Name == name {
			expr, ok = a.Expr, true
		}
	}
	return expr, ok
}

func (s *Store) path(source string) string {
	return filepath.Join(s.dir, source+".py")
}

// builtinLibrary ships a starter catalog so the picker has content on
// first run. Users extend it through the custom slot.
const builtinLibrary = `# Starter territories for the builtin picker tab. Put your own
# definitions in custom.py; delete this file to restore it.

SURASENA = gadm("IND.34.53") | gadm("IND.34.1")
VATSA = gadm("IND.34.27") | gadm("IND.34.45") | gadm("IND.34.3")
KURU_KSETRA = (
    gadm("IND.12.21")
    | gadm("IND.12.11")
    | gadm("IND.12.9")
    | gadm("IND.12.8")
    | gadm("IND.12.10")
    | gadm("IND.12.16")
)
KURU_JANGALA = (
    gadm("IND.25")
    | gadm("IND.12.20")
    | gadm("IND.12.18")
    | gadm("IND.12.7")
    | gadm("IND.12.5")
    | gadm("IND.12.3")
    | gadm("IND.12.14")
    | gadm("IND.12.13")
)
KURU = KURU_KSETRA | KURU_JANGALA
DARADA_PROPER = gadm("Z06.6")
CHITRAL = gadm("PAK.5.6.1")
DARADA = DARADA_PROPER | CHITRAL
POJK = gadm("Z06.1")

__TERRITORY_INDEX__ = [
    "KURU",
    "SURASENA",
    "VATSA",
    "DARADA",
    "POJK",
]
`
