package stitch

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspoerri/asc2tiles/internal/gridref"
	"github.com/pspoerri/asc2tiles/internal/raster"
)

func grid(t *testing.T, rows [][]int) raster.Grid {
	t.Helper()
	g, err := raster.GridFromInts(rows)
	require.NoError(t, err)
	return g
}

func TestStitch(t *testing.T) {
	tile := grid(t, [][]int{{1, 2, 3}, {4, 5, 6}})
	right := grid(t, [][]int{{10, 11, 12}, {13, 14, 15}})
	top := grid(t, [][]int{{20, 21, 22}, {23, 24, 25}})
	topRight := grid(t, [][]int{{30, 31, 32}, {33, 34, 35}})

	tests := []struct {
		name string
		src  raster.MapSource
		want [][]int
	}{
		{
			name: "all neighbors",
			src:  raster.MapSource{"NT37": right, "NT28": top, "NT38": topRight},
			want: [][]int{{23, 24, 25, 33}, {1, 2, 3, 10}, {4, 5, 6, 13}},
		},
		{
			name: "no neighbors",
			src:  raster.MapSource{},
			want: [][]int{{1, 2, 3, 3}, {1, 2, 3, 3}, {4, 5, 6, 6}},
		},
		{
			name: "right only",
			src:  raster.MapSource{"NT37": right},
			want: [][]int{{1, 2, 3, 10}, {1, 2, 3, 10}, {4, 5, 6, 13}},
		},
		{
			name: "top only",
			src:  raster.MapSource{"NT28": top},
			want: [][]int{{23, 24, 25, 25}, {1, 2, 3, 3}, {4, 5, 6, 6}},
		},
		{
			name: "top-right only",
			src:  raster.MapSource{"NT38": topRight},
			want: [][]int{{1, 2, 3, 33}, {1, 2, 3, 3}, {4, 5, 6, 6}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New(tt.src, nil).Stitch(tile, "NT27")
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, out.Ints()); diff != "" {
				t.Errorf("stitched raster mismatch (-want +got):\n%s", diff)
			}
		})
	}

	// The input is never modified.
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}}, tile.Ints())
}

func TestStitch_AbsentNeighborsIsDeterministic(t *testing.T) {
	tile := grid(t, [][]int{{7, -1}, {0, 3}})
	s := New(raster.MapSource{}, nil)

	first, err := s.Stitch(tile, "nt27")
	require.NoError(t, err)
	second, err := s.Stitch(tile, "nt27")
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
	assert.Equal(t, 3, first.Rows)
	assert.Equal(t, 3, first.Cols)
}

func TestStitch_MismatchedNeighborIsIgnored(t *testing.T) {
	tile := grid(t, [][]int{{1, 2}, {3, 4}})
	src := raster.MapSource{
		"NT37": grid(t, [][]int{{9, 9}}),         // wrong row count
		"NT28": grid(t, [][]int{{8, 8, 8}}),      // wrong column count
		"NT38": grid(t, [][]int{{5, 6}, {7, 8}}), // any shape works for the corner
	}
	out, err := New(src, nil).Stitch(tile, "NT27")
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2, 7}, {1, 2, 2}, {3, 4, 4}}, out.Ints())
}

func TestStitch_EmptyNeighborIsIgnored(t *testing.T) {
	tile := grid(t, [][]int{{1, 2}, {3, 4}})
	src := raster.MapSource{
		"NT37": raster.NewGrid(2, 0), // matching row count, no columns
		"NT28": raster.NewGrid(0, 2), // matching column count, no rows
	}
	out, err := New(src, nil).Stitch(tile, "NT27")
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2, 2}, {1, 2, 2}, {3, 4, 4}}, out.Ints())
}

func TestStitch_GridEdge(t *testing.T) {
	// JM99 is the north-east corner of the grid; every neighbor is off-grid.
	tile := grid(t, [][]int{{1}})
	out, err := New(raster.MapSource{}, nil).Stitch(tile, "JM99")
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 1}, {1, 1}}, out.Ints())
}

func TestStitch_Errors(t *testing.T) {
	tile := grid(t, [][]int{{1}})

	_, err := New(raster.MapSource{}, nil).Stitch(tile, "NT2573")
	assert.ErrorIs(t, err, gridref.ErrInvalidFormat)

	_, err = New(raster.MapSource{}, nil).Stitch(raster.Grid{}, "NT27")
	assert.ErrorIs(t, err, ErrEmptyRaster)

	boom := errors.New("corrupt zip")
	_, err = New(brokenSource{err: boom}, nil).Stitch(tile, "NT27")
	assert.ErrorIs(t, err, boom)
}

type brokenSource struct{ err error }

func (b brokenSource) Decode(string) (raster.Grid, error) { return raster.Grid{}, b.err }
