package raster

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeArchive creates <root>/<sq>/<name> holding a single .asc member.
func writeArchive(t *testing.T, root, sq, name, asc string) string {
	t.Helper()
	dir := filepath.Join(root, sq)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("README.txt")
	require.NoError(t, err)
	w, err := zw.Create(sq + "/data.asc")
	require.NoError(t, err)
	_, err = w.Write([]byte(asc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestArchiveSource_Decode(t *testing.T) {
	root := t.TempDir()
	writeArchive(t, root, "nt", "nt27_OST50GRID_20170713.zip", sampleASC)

	src := NewArchiveSource(root, "")
	g, err := src.Decode("NT27")
	require.NoError(t, err)
	assert.Equal(t, 3, g.Rows)
	assert.Equal(t, 4, g.Cols)
	assert.Equal(t, int32(13), g.At(1, 3))

	_, err = src.Decode("NT28")
	assert.ErrorIs(t, err, ErrSourceDataAbsent)
}

func TestArchiveSource_PicksNewestRelease(t *testing.T) {
	root := t.TempDir()
	writeArchive(t, root, "nt", "nt27_OST50GRID_20160101.zip", "ncols 1\nnrows 1\n1\n")
	writeArchive(t, root, "nt", "nt27_OST50GRID_20170713.zip", "ncols 1\nnrows 1\n2\n")

	g, err := NewArchiveSource(root, "").Decode("nt27")
	require.NoError(t, err)
	assert.Equal(t, int32(2), g.At(0, 0))
}

func TestArchiveSource_NoASCMember(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "nt")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	f, err := os.Create(filepath.Join(dir, "nt27_OST50GRID_20170713.zip"))
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("empty.txt")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = NewArchiveSource(root, "").Decode("NT27")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSourceDataAbsent)
}

func TestArchiveSource_Collect(t *testing.T) {
	root := t.TempDir()
	writeArchive(t, root, "nt", "nt27_OST50GRID_20170713.zip", sampleASC)
	writeArchive(t, root, "nt", "nt28_OST50GRID_20170713.zip", sampleASC)
	writeArchive(t, root, "nu", "nu09_OST50GRID_20170713.zip", sampleASC)
	writeArchive(t, root, "nu", "notes_other.zip", sampleASC)
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.zip"), nil, 0o644))

	src := NewArchiveSource(root, "")

	ids, err := src.Collect("")
	require.NoError(t, err)
	assert.Equal(t, []string{"NT27", "NT28", "NU09"}, ids)

	ids, err = src.Collect("nt2")
	require.NoError(t, err)
	assert.Equal(t, []string{"NT27", "NT28"}, ids)
}
