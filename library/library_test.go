package library

import (
	"os"
	"path/filepath"
	"terrastudio/territory"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCatalogKeepsFirstAssignmentOrder(t *testing.T) {
	code := `_HELPER = gadm("IND.25")
KURU = _HELPER | gadm("IND.12.21")
PANCALA = gadm("IND.34.17")
KURU = PANCALA  # reassignment keeps the original slot
VATSA = gadm("IND.34.27")
`
	names, index := Catalog(code)
	assert.Equal(t, []string{"KURU", "PANCALA", "VATSA"}, names)
	assert.Equal(t, names, index)
}

func TestCatalogReadsMultilineAssignments(t *testing.T) {
	code := `TERAI = (
    gadm("IND.13.4")
    | gadm("IND.13.3")  # trailing note
)
# HIMALAYA = gadm("IND.13")
LADAKH = (
    gadm("Z01.14.13") | gadm("Z01.14.8")
)  # Aksai Chin
`
	names, _ := Catalog(code)
	assert.Equal(t, []string{"TERAI", "LADAKH"}, names)

	assigns := Assignments(code)
	require.Len(t, assigns, 2)
	assert.Equal(t, 1, assigns[0].Line)
	assert.Equal(t, 6, assigns[1].Line)

	parts, err := territory.Parse(assigns[0].Expr)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, []string{"IND.13.4", "IND.13.3"}, parts[0].Values)
}

func TestCatalogIndexOrdersAndFilters(t *testing.T) {
	code := `MITANNI = gadm("SYR")
SOCOTRA = gadm("YEM.12")
DILMUN = gadm("BHR")

__TERRITORY_INDEX__ = [
    "SOCOTRA",
    "MISSING",
    "MITANNI",
    "SOCOTRA",
]
`
	names, index := Catalog(code)
	assert.Equal(t, []string{"MITANNI", "SOCOTRA", "DILMUN"}, names)
	assert.Equal(t, []string{"SOCOTRA", "MITANNI", "SOCOTRA"}, index)
}

func TestCatalogIndexWithNonLiteralFallsBack(t *testing.T) {
	code := `ALPHA = gadm("A")
BETA = gadm("B")
__TERRITORY_INDEX__ = [ALPHA, "BETA"]
`
	names, index := Catalog(code)
	assert.Equal(t, []string{"ALPHA", "BETA"}, names)
	assert.Equal(t, names, index)
}

func TestCatalogSkipsNonAssignments(t *testing.T) {
	code := `import terra
disp = terrahub("/lib/disputed")
NOTE = """
FAKE = gadm("NOPE")
"""
x == 1
TYPED: int = 4
REAL = disp.Z03 | gadm("Z06.1")
`
	names, _ := Catalog(code)
	assert.Equal(t, []string{"disp", "NOTE", "REAL"}, names)
}

func TestCatalogEmpty(t *testing.T) {
	names, index := Catalog("")
	assert.Empty(t, names)
	assert.Empty(t, index)
}

func TestStoreSeedAndCatalog(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t), t.TempDir())
	require.NoError(t, store.Seed())

	names, index, err := store.Catalog(SourceBuiltin)
	require.NoError(t, err)
	assert.Contains(t, names, "KURU")
	assert.Contains(t, names, "KURU_KSETRA")
	assert.Equal(t, []string{"KURU", "SURASENA", "VATSA", "DARADA", "POJK"}, index)

	// Seeding again leaves edits alone.
	require.NoError(t, store.Write(SourceBuiltin, `ONLY = gadm("X")`+"\n"))
	require.NoError(t, store.Seed())
	names, _, err = store.Catalog(SourceBuiltin)
	require.NoError(t, err)
	assert.Equal(t, []string{"ONLY"}, names)
}

func TestStoreCatalogMissingSlot(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t), t.TempDir())
	names, index, err := store.Catalog(SourceCustom)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Empty(t, index)
}

func TestStoreResolve(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t), t.TempDir())
	require.NoError(t, store.Seed())
	require.NoError(t, store.Write(SourceCustom, "MAURYA = KURU | VATSA\nMAURYA = MAURYA | gadm(\"AFG\")\n"))
	require.NoError(t, store.Write("disp", "Z03 = gadm(\"Z03.28\") | gadm(\"Z03.29\")\n"))

	expr, ok := store.Resolve("DARADA")
	require.True(t, ok)
	assert.Equal(t, "DARADA_PROPER | CHITRAL", expr)

	parts, err := territory.Parse(expr)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, territory.TypePredefined, parts[0].Type)

	// Bare names search builtin then custom; the last binding wins.
	expr, ok = store.Resolve("MAURYA")
	require.True(t, ok)
	assert.Equal(t, `MAURYA | gadm("AFG")`, expr)

	expr, ok = store.Resolve("disp.Z03")
	require.True(t, ok)
	assert.Equal(t, `gadm("Z03.28") | gadm("Z03.29")`, expr)

	_, ok = store.Resolve("NOWHERE")
	assert.False(t, ok)
	_, ok = store.Resolve("ghost.NAME")
	assert.False(t, ok)
}

func TestStoreSources(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(zaptest.NewLogger(t), dir)
	require.NoError(t, store.Seed())
	require.NoError(t, store.Write(SourceCustom, ""))
	require.NoError(t, store.Write("disp", "Z08 = gadm(\"Z08.29\")\n"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	assert.Equal(t, []string{"builtin", "custom", "disp"}, store.Sources())
}
