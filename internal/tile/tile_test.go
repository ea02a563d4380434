package tile

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspoerri/asc2tiles/internal/gridref"
	"github.com/pspoerri/asc2tiles/internal/outline"
	"github.com/pspoerri/asc2tiles/internal/raster"
)

// testSpacing lets a 4×4 raster cover a whole 10 km square.
const testSpacing = 2500

func filled(t *testing.T, v int32) raster.Grid {
	t.Helper()
	g := raster.NewGrid(4, 4)
	g.Fill(v)
	return g
}

func staticOutline(t *testing.T, b orb.Bound) *outline.Provider {
	t.Helper()
	o, err := outline.New(b)
	require.NoError(t, err)
	return outline.Static(o)
}

func TestAssemble_StitchesFlipsAndClassifies(t *testing.T) {
	raw, err := raster.GridFromInts([][]int{
		{1, 1, 1, 1},
		{2, 2, 2, 2},
		{3, 3, 3, 3},
		{4, 4, 4, 4},
	})
	require.NoError(t, err)

	a := &Assembler{
		Source:  raster.MapSource{"NT27": raw},
		Outline: staticOutline(t, orb.Bound{Min: orb.Point{300000, 650000}, Max: orb.Point{350000, 700000}}),
		Spacing: testSpacing,
	}
	tl, err := a.Assemble("nt27")
	require.NoError(t, err)

	assert.Equal(t, "NT27", tl.ID)
	assert.Equal(t, Meta{SquareSize: testSpacing, GridReference: "NT27"}, tl.Meta)
	assert.Equal(t, [][]int{
		{4, 4, 4, 4, 4},
		{3, 3, 3, 3, 3},
		{2, 2, 2, 2, 2},
		{1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1},
	}, tl.Heights)
	for _, row := range tl.Land {
		assert.Equal(t, []int{1, 1, 1, 1, 1}, row)
	}
}

func TestAssemble_Coastline(t *testing.T) {
	// Land west of easting 325000; heights at sea level so the outline
	// decides every sample.
	a := &Assembler{
		Source:  raster.MapSource{"NT27": filled(t, 0)},
		Outline: staticOutline(t, orb.Bound{Min: orb.Point{300000, 650000}, Max: orb.Point{325000, 700000}}),
		Spacing: testSpacing,
	}
	tl, err := a.Assemble("NT27")
	require.NoError(t, err)

	require.Len(t, tl.Land, 5)
	for _, row := range tl.Land {
		assert.Equal(t, []int{1, 1, 0, 0, 0}, row)
	}
}

func TestAssemble_NoLand(t *testing.T) {
	src := raster.MapSource{"NT27": filled(t, -3)}
	far := staticOutline(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1000, 1000}})

	a := &Assembler{Source: src, Outline: far, Spacing: testSpacing, SkipSea: true}
	tl, err := a.Assemble("NT27")
	assert.ErrorIs(t, err, ErrNoLand)
	require.NotNil(t, tl)
	assert.Equal(t, "NT27", tl.ID)

	a.SkipSea = false
	tl, err = a.Assemble("NT27")
	require.NoError(t, err)
	for _, row := range tl.Land {
		assert.Equal(t, []int{0, 0, 0, 0, 0}, row)
	}
}

func TestAssemble_Errors(t *testing.T) {
	a := &Assembler{
		Source:  raster.MapSource{},
		Outline: staticOutline(t, orb.Bound{Max: orb.Point{1, 1}}),
	}

	_, err := a.Assemble("NT27")
	assert.ErrorIs(t, err, raster.ErrSourceDataAbsent)

	_, err = a.Assemble("NT2573")
	assert.ErrorIs(t, err, gridref.ErrInvalidFormat)

	_, err = a.Assemble("IT27")
	assert.ErrorIs(t, err, gridref.ErrInvalidFormat)
}

func TestTile_JSON(t *testing.T) {
	tl := &Tile{
		ID:      "NT27",
		Meta:    Meta{SquareSize: 50, GridReference: "NT27"},
		Heights: [][]int{{1, 2}, {3, 4}},
		Land:    [][]int{{0, 1}, {1, 1}},
	}
	data, err := json.Marshal(tl)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id":  "NT27",
		"meta": {"squareSize": 50, "gridReference": "NT27"},
		"heights": [[1, 2], [3, 4]],
		"land": [[0, 1], [1, 1]]
	}`, string(data))
}
